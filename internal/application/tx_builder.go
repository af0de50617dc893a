package application

import (
	"errors"
	"math/big"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

const (
	DefaultChainID      = 11155111
	DefaultGasLimit     = 800_000
	DefaultGasPriceGwei = 100
)

// GasPolicy holds the fee parameters applied to every oracle request.
type GasPolicy struct {
	ChainID  *big.Int
	GasLimit uint64
	GasPrice *big.Int
}

func DefaultGasPolicy() GasPolicy {
	return GasPolicy{
		ChainID:  big.NewInt(DefaultChainID),
		GasLimit: DefaultGasLimit,
		GasPrice: GweiToWei(DefaultGasPriceGwei),
	}
}

func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}

func (p GasPolicy) withDefaults() GasPolicy {
	defaults := DefaultGasPolicy()
	if p.ChainID == nil || p.ChainID.Sign() <= 0 {
		p.ChainID = defaults.ChainID
	}
	if p.GasLimit == 0 {
		p.GasLimit = defaults.GasLimit
	}
	if p.GasPrice == nil || p.GasPrice.Sign() <= 0 {
		p.GasPrice = defaults.GasPrice
	}
	return p
}

type TransactionBuilder struct {
	contract common.Address
	gas      GasPolicy
}

func NewTransactionBuilder(contractAddress common.Address, gas GasPolicy) *TransactionBuilder {
	return &TransactionBuilder{contract: contractAddress, gas: gas.withDefaults()}
}

func (b *TransactionBuilder) GasPolicy() GasPolicy {
	return b.gas
}

// Build assembles an unsigned calculateAIResult call carrying the request fee.
func (b *TransactionBuilder) Build(req domain.RequestParams, nonce uint64) (*types.Transaction, error) {
	if req.ModelID == nil || req.ModelID.Sign() < 0 {
		return nil, domain.TransactionFailedError("build AI request", errors.New("model id must be a non-negative integer"))
	}

	value := new(big.Int)
	if req.FeeAmount != nil {
		if req.FeeAmount.Sign() < 0 {
			return nil, domain.TransactionFailedError("build AI request", errors.New("fee amount must not be negative"))
		}
		value.Set(req.FeeAmount)
	}

	data, err := contract.PackCalculateAIResult(req.ModelID, req.PromptText)
	if err != nil {
		return nil, domain.TransactionFailedError("build AI request", err)
	}

	to := b.contract
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      b.gas.GasLimit,
		GasPrice: new(big.Int).Set(b.gas.GasPrice),
		Data:     data,
	}), nil
}
