package application

import (
	"context"
	"errors"
	"math/big"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

type TransactionSubmitter struct {
	ledger  ports.LedgerClient
	signer  ports.Signer
	chainID *big.Int
	log     logrus.FieldLogger
}

func NewTransactionSubmitter(ledger ports.LedgerClient, signer ports.Signer, chainID *big.Int, logger logrus.FieldLogger) *TransactionSubmitter {
	return &TransactionSubmitter{ledger: ledger, signer: signer, chainID: chainID, log: loggerOrDiscard(logger)}
}

// Submit signs tx locally and broadcasts it. It performs exactly one ledger write.
func (s *TransactionSubmitter) Submit(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if tx == nil {
		return common.Hash{}, domain.TransactionFailedError("error sending AI request", errors.New("transaction is nil"))
	}

	signed, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		s.log.WithError(err).Error("sign AI request")
		return common.Hash{}, domain.TransactionFailedError("error signing AI request", err)
	}
	s.log.WithField("tx", signed.Hash().Hex()).Debug("transaction signed")

	if err := s.ledger.SendTransaction(ctx, signed); err != nil {
		s.log.WithError(err).Error("send AI request")
		return common.Hash{}, domain.TransactionFailedError("error sending AI request", err)
	}

	s.log.WithField("tx", signed.Hash().Hex()).Info("transaction sent")
	return signed.Hash(), nil
}
