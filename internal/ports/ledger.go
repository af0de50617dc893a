package ports

import (
	"context"
	"math/big"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LedgerClient is the slice of a chain node the oracle client relies on.
type LedgerClient interface {
	// ChainID doubles as the connectivity check.
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	// WaitReceipt blocks until the transaction is included or ctx is done.
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	// OpenEventFilter anchors a filter for the named contract event at the latest block.
	OpenEventFilter(ctx context.Context, contract common.Address, event string) (EventFilter, error)
	CallContract(ctx context.Context, contract common.Address, data []byte) ([]byte, error)
}

type EventFilter interface {
	// NewEntries returns the events that arrived since the previous call, in arrival order.
	NewEntries(ctx context.Context) ([]domain.OracleEvent, error)
	Close() error
}

type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}
