package application

import (
	"context"
	"fmt"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

type ReceiptWaiter struct {
	ledger   ports.LedgerClient
	contract common.Address
	log      logrus.FieldLogger
}

func NewReceiptWaiter(ledger ports.LedgerClient, contractAddress common.Address, logger logrus.FieldLogger) *ReceiptWaiter {
	return &ReceiptWaiter{ledger: ledger, contract: contractAddress, log: loggerOrDiscard(logger)}
}

// AwaitReceipt blocks until hash is included. A receipt with a non-success
// status is returned together with a transaction_failed error.
func (w *ReceiptWaiter) AwaitReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error) {
	log := w.log.WithField("tx", hash.Hex())
	log.Debug("waiting for transaction receipt")

	raw, err := w.ledger.WaitReceipt(ctx, hash)
	if err != nil {
		log.WithError(err).Error("fetch transaction receipt")
		return domain.Receipt{}, domain.TransactionFailedError("error fetching transaction receipt", err)
	}
	if raw == nil {
		return domain.Receipt{}, domain.TransactionFailedError("error fetching transaction receipt", fmt.Errorf("no receipt for %s", hash.Hex()))
	}

	receipt := domain.Receipt{
		TxHash:      hash,
		Status:      raw.Status,
		BlockNumber: raw.BlockNumber,
		GasUsed:     raw.GasUsed,
	}
	if request, ok := contract.FindPromptRequest(w.contract, raw.Logs); ok {
		receipt.RequestID = request.RequestID
	}

	if raw.Status != types.ReceiptStatusSuccessful {
		log.WithField("status", raw.Status).Error("transaction failed")
		return receipt, domain.TransactionFailedError(fmt.Sprintf("transaction failed! %s", hash.Hex()), nil)
	}

	entry := log.WithField("block", raw.BlockNumber)
	if receipt.RequestID != nil {
		entry = entry.WithField("request_id", receipt.RequestID.String())
	}
	entry.Info("transaction succeeded")

	return receipt, nil
}
