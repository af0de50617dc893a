package application

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAppliesGasPolicyAndFee(t *testing.T) {
	t.Parallel()

	builder := NewTransactionBuilder(testContract, GasPolicy{})
	fee := big.NewInt(150_000_000_000_000_000)

	tx, err := builder.Build(domain.RequestParams{
		ModelID:    big.NewInt(11),
		PromptText: "system: You are a assistant\nuser: hi",
		FeeAmount:  fee,
	}, 7)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, testContract, *tx.To())
	assert.Equal(t, fee, tx.Value())
	assert.Equal(t, uint64(DefaultGasLimit), tx.Gas())
	assert.Equal(t, "100000000000", tx.GasPrice().String())
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())

	method := contract.ABI().Methods[contract.MethodCalculateAIResult]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, "system: You are a assistant\nuser: hi", args[1])

	fee.SetInt64(1)
	assert.NotEqual(t, fee, tx.Value())
}

func TestBuildHonorsCustomGasPolicy(t *testing.T) {
	t.Parallel()

	builder := NewTransactionBuilder(testContract, GasPolicy{ChainID: big.NewInt(1), GasLimit: 500_000, GasPrice: GweiToWei(2)})

	tx, err := builder.Build(domain.RequestParams{ModelID: big.NewInt(0), PromptText: "x"}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), tx.Gas())
	assert.Equal(t, "2000000000", tx.GasPrice().String())
	assert.Equal(t, 0, tx.Value().Sign())
	assert.Equal(t, big.NewInt(1), builder.GasPolicy().ChainID)
}

func TestBuildRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	builder := NewTransactionBuilder(testContract, DefaultGasPolicy())

	tests := []struct {
		name   string
		params domain.RequestParams
	}{
		{name: "missing model", params: domain.RequestParams{PromptText: "x"}},
		{name: "negative model", params: domain.RequestParams{ModelID: big.NewInt(-1)}},
		{name: "negative fee", params: domain.RequestParams{ModelID: big.NewInt(11), FeeAmount: big.NewInt(-5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.Build(tt.params, 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrTransactionFailed)
		})
	}
}

func unsignedTx(t *testing.T) *types.Transaction {
	t.Helper()

	tx, err := NewTransactionBuilder(testContract, DefaultGasPolicy()).Build(domain.RequestParams{ModelID: big.NewInt(11), PromptText: "hi"}, 0)
	require.NoError(t, err)
	return tx
}

func TestSubmitSignsAndSendsOnce(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	signer := &fakeSigner{address: testSender}
	submitter := NewTransactionSubmitter(ledger, signer, big.NewInt(DefaultChainID), nil)
	tx := unsignedTx(t)

	hash, err := submitter.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, 1, signer.signed)
	require.Len(t, ledger.sent, 1)
}

func TestSubmitFaultsAreTransactionFailures(t *testing.T) {
	t.Parallel()

	t.Run("sign", func(t *testing.T) {
		ledger := newFakeLedger()
		submitter := NewTransactionSubmitter(ledger, &fakeSigner{err: errors.New("bad key")}, big.NewInt(1), nil)

		hash, err := submitter.Submit(context.Background(), unsignedTx(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransactionFailed)
		assert.Equal(t, common.Hash{}, hash)
		assert.Empty(t, ledger.sent)
	})

	t.Run("send", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.sendErr = errors.New("insufficient funds for gas * price + value")
		submitter := NewTransactionSubmitter(ledger, &fakeSigner{}, big.NewInt(1), nil)

		_, err := submitter.Submit(context.Background(), unsignedTx(t))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransactionFailed)
		assert.Contains(t, err.Error(), "insufficient funds")
	})

	t.Run("nil", func(t *testing.T) {
		submitter := NewTransactionSubmitter(newFakeLedger(), &fakeSigner{}, big.NewInt(1), nil)

		_, err := submitter.Submit(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrTransactionFailed)
	})
}

func TestAwaitReceiptSuccessExtractsRequestID(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	ledger.receipt = successfulReceipt(42)
	waiter := NewReceiptWaiter(ledger, testContract, nil)
	hash := common.HexToHash("0x01")

	receipt, err := waiter.AwaitReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, big.NewInt(100), receipt.BlockNumber)
	assert.Equal(t, big.NewInt(42), receipt.RequestID)
}

func TestAwaitReceiptRevertedStatusFails(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	ledger.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(5)}
	waiter := NewReceiptWaiter(ledger, testContract, nil)
	hash := common.HexToHash("0xabc")

	receipt, err := waiter.AwaitReceipt(context.Background(), hash)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.Contains(t, err.Error(), "transaction failed! "+hash.Hex())
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Nil(t, receipt.RequestID)
}

func TestAwaitReceiptLedgerFault(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	ledger.receiptErr = context.DeadlineExceeded
	waiter := NewReceiptWaiter(ledger, testContract, nil)

	_, err := waiter.AwaitReceipt(context.Background(), common.HexToHash("0x02"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ledger.receiptErr = nil
	_, err = waiter.AwaitReceipt(context.Background(), common.HexToHash("0x02"))
	assert.ErrorIs(t, err, domain.ErrTransactionFailed)
}
