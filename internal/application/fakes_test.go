package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/contract/contracttest"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x696c83111a49eBb94267ecf4DDF6E220D5A80129")
	testSender   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

type fakeLedger struct {
	mu sync.Mutex

	chainID  *big.Int
	chainErr error

	nonce    uint64
	nonceErr error

	sent    []*types.Transaction
	sendErr error

	receipt    *types.Receipt
	receiptErr error

	openErr    error
	batches    [][]domain.OracleEvent
	entriesErr error
	polls      int
	closed     bool

	callOut map[string][]byte
	callErr error
	calls   [][]byte
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{chainID: big.NewInt(DefaultChainID), callOut: map[string][]byte{}}
}

func (f *fakeLedger) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, f.chainErr
}

func (f *fakeLedger) PendingNonce(context.Context, common.Address) (uint64, error) {
	return f.nonce, f.nonceErr
}

func (f *fakeLedger) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeLedger) WaitReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return f.receipt, f.receiptErr
}

func (f *fakeLedger) OpenEventFilter(_ context.Context, address common.Address, event string) (ports.EventFilter, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if address != testContract || event != contract.EventPromptsUpdated {
		return nil, errors.New("unexpected filter target")
	}
	return &fakeFilter{ledger: f}, nil
}

func (f *fakeLedger) CallContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, data)
	if f.callErr != nil {
		return nil, f.callErr
	}
	out, ok := f.callOut[string(data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeLedger) queue(batch ...domain.OracleEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
}

type fakeFilter struct {
	ledger *fakeLedger
}

func (f *fakeFilter) NewEntries(context.Context) ([]domain.OracleEvent, error) {
	l := f.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	l.polls++
	if l.entriesErr != nil {
		return nil, l.entriesErr
	}
	if len(l.batches) == 0 {
		return nil, nil
	}
	batch := l.batches[0]
	l.batches = l.batches[1:]
	return batch, nil
}

func (f *fakeFilter) Close() error {
	f.ledger.mu.Lock()
	defer f.ledger.mu.Unlock()
	f.ledger.closed = true
	return nil
}

// manualClock only moves when the sleeper advances it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type fakeSigner struct {
	address common.Address
	err     error
	signed  int
}

func (s *fakeSigner) Address() common.Address {
	return s.address
}

func (s *fakeSigner) SignTx(tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.signed++
	return tx, nil
}

type inMemoryJournal struct {
	mu      sync.Mutex
	records map[common.Hash]domain.TransactionRecord
	order   []common.Hash
}

func newInMemoryJournal() *inMemoryJournal {
	return &inMemoryJournal{records: map[common.Hash]domain.TransactionRecord{}}
}

func (j *inMemoryJournal) Record(_ context.Context, record domain.TransactionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records[record.TxHash] = record
	j.order = append(j.order, record.TxHash)
	return nil
}

func (j *inMemoryJournal) Update(_ context.Context, record domain.TransactionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.records[record.TxHash]; !ok {
		return domain.ErrRequestNotFound
	}
	j.records[record.TxHash] = record
	return nil
}

func (j *inMemoryJournal) GetByTxHash(_ context.Context, hash common.Hash) (domain.TransactionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	record, ok := j.records[hash]
	if !ok {
		return domain.TransactionRecord{}, domain.ErrRequestNotFound
	}
	return record, nil
}

func (j *inMemoryJournal) List(_ context.Context, limit int) ([]domain.TransactionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.TransactionRecord, 0, len(j.order))
	for i := len(j.order) - 1; i >= 0; i-- {
		out = append(out, j.records[j.order[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func oracleEvent(t *testing.T, requestID int64, output string) domain.OracleEvent {
	t.Helper()

	event, err := contract.UnpackPromptsUpdated(contracttest.PromptsUpdatedLog(testContract, requestID, output, nil))
	require.NoError(t, err)
	return event
}

func successfulReceipt(requestID int64) *types.Receipt {
	log := contracttest.PromptRequestLog(testContract, requestID, testSender, 11, "user: hi")
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		GasUsed:     21_000,
		Logs:        []*types.Log{&log},
	}
}
