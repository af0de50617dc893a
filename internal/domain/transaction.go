package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed
}

type RequestParams struct {
	ModelID    *big.Int
	PromptText string
	// FeeAmount is denominated in wei.
	FeeAmount *big.Int
}

type TransactionRecord struct {
	ID        string
	TxHash    common.Hash
	SessionID string
	ModelID   *big.Int
	FeeAmount *big.Int
	Status    TxStatus
	RequestID *big.Int
	Result    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber *big.Int
	GasUsed     uint64
	// RequestID is taken from the oracle's promptRequest log when the receipt carries one.
	RequestID *big.Int
}

type OracleEvent struct {
	RequestID    *big.Int
	RawOutput    string
	CallbackData []byte
	TxHash       common.Hash
	BlockNumber  uint64
}

// OracleRequest mirrors the oracle contract's requests(id) view.
type OracleRequest struct {
	ID      *big.Int
	Sender  common.Address
	ModelID *big.Int
	Input   []byte
	Output  []byte
}
