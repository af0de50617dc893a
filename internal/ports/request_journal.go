package ports

import (
	"context"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type RequestJournal interface {
	Record(ctx context.Context, record domain.TransactionRecord) error
	Update(ctx context.Context, record domain.TransactionRecord) error
	GetByTxHash(ctx context.Context, hash common.Hash) (domain.TransactionRecord, error)
	List(ctx context.Context, limit int) ([]domain.TransactionRecord, error)
}
