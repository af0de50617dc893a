package application

import (
	"context"
	"errors"
	"math/big"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var errMissingID = errors.New("id must be a non-negative integer")

// OracleQueries wraps the read-only views of the oracle contract.
type OracleQueries struct {
	ledger   ports.LedgerClient
	contract common.Address
	log      logrus.FieldLogger
}

func NewOracleQueries(ledger ports.LedgerClient, contractAddress common.Address, logger logrus.FieldLogger) *OracleQueries {
	return &OracleQueries{ledger: ledger, contract: contractAddress, log: loggerOrDiscard(logger)}
}

func (q *OracleQueries) EstimateFee(ctx context.Context, modelID *big.Int) (*big.Int, error) {
	if !validID(modelID) {
		return nil, domain.ContractInteractionError("estimate fee", errMissingID)
	}

	data, err := contract.PackEstimateFee(modelID)
	if err != nil {
		return nil, domain.ContractInteractionError("estimate fee", err)
	}
	out, err := q.call(ctx, data)
	if err != nil {
		return nil, domain.ContractInteractionError("estimate fee", err)
	}

	fee, err := contract.UnpackEstimateFee(out)
	if err != nil {
		return nil, domain.ContractInteractionError("estimate fee", err)
	}

	q.log.WithFields(logrus.Fields{"model_id": modelID.String(), "fee": fee.String()}).Debug("fee estimated")
	return fee, nil
}

func (q *OracleQueries) IsFinalized(ctx context.Context, requestID *big.Int) (bool, error) {
	if !validID(requestID) {
		return false, domain.ContractInteractionError("check request finalization", errMissingID)
	}

	data, err := contract.PackIsFinalized(requestID)
	if err != nil {
		return false, domain.ContractInteractionError("check request finalization", err)
	}
	out, err := q.call(ctx, data)
	if err != nil {
		return false, domain.ContractInteractionError("check request finalization", err)
	}

	finalized, err := contract.UnpackIsFinalized(out)
	if err != nil {
		return false, domain.ContractInteractionError("check request finalization", err)
	}
	return finalized, nil
}

func (q *OracleQueries) Request(ctx context.Context, requestID *big.Int) (domain.OracleRequest, error) {
	if !validID(requestID) {
		return domain.OracleRequest{}, domain.ContractInteractionError("load oracle request", errMissingID)
	}

	data, err := contract.PackRequests(requestID)
	if err != nil {
		return domain.OracleRequest{}, domain.ContractInteractionError("load oracle request", err)
	}
	out, err := q.call(ctx, data)
	if err != nil {
		return domain.OracleRequest{}, domain.ContractInteractionError("load oracle request", err)
	}

	request, err := contract.UnpackRequests(requestID, out)
	if err != nil {
		return domain.OracleRequest{}, domain.ContractInteractionError("load oracle request", err)
	}
	return request, nil
}

func (q *OracleQueries) CallbackGasLimit(ctx context.Context, modelID *big.Int) (uint64, error) {
	if !validID(modelID) {
		return 0, domain.ContractInteractionError("load callback gas limit", errMissingID)
	}

	data, err := contract.PackCallbackGasLimit(modelID)
	if err != nil {
		return 0, domain.ContractInteractionError("load callback gas limit", err)
	}
	out, err := q.call(ctx, data)
	if err != nil {
		return 0, domain.ContractInteractionError("load callback gas limit", err)
	}

	limit, err := contract.UnpackCallbackGasLimit(out)
	if err != nil {
		return 0, domain.ContractInteractionError("load callback gas limit", err)
	}
	return limit, nil
}

func (q *OracleQueries) call(ctx context.Context, data []byte) ([]byte, error) {
	out, err := q.ledger.CallContract(ctx, q.contract, data)
	if err != nil {
		q.log.WithError(err).Error("contract call failed")
		return nil, err
	}
	return out, nil
}

func validID(id *big.Int) bool {
	return id != nil && id.Sign() >= 0
}
