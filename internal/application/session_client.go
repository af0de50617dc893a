package application

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SessionClientConfig struct {
	ContractAddress common.Address
	// OracleAddress is kept for reference only; requests go through the contract.
	OracleAddress common.Address
	Gas           GasPolicy
	SystemPrompt  string
	// Correlate narrows result matching to the request id reported by the receipt.
	Correlate bool
}

type SessionClientOption func(*OracleSessionClient)

func WithJournal(journal ports.RequestJournal) SessionClientOption {
	return func(c *OracleSessionClient) { c.journal = journal }
}

func WithLogger(logger logrus.FieldLogger) SessionClientOption {
	return func(c *OracleSessionClient) { c.log = logger }
}

func WithClock(clock ports.Clock) SessionClientOption {
	return func(c *OracleSessionClient) { c.clock = clock }
}

func WithSleeper(sleeper ports.Sleeper) SessionClientOption {
	return func(c *OracleSessionClient) { c.sleeper = sleeper }
}

// WithConversation resumes an existing transcript instead of starting empty.
func WithConversation(conversation *domain.ConversationContext) SessionClientOption {
	return func(c *OracleSessionClient) { c.conversation = conversation }
}

func WithSessionID(id domain.SessionID) SessionClientOption {
	return func(c *OracleSessionClient) { c.sessionID = id }
}

// WithLastTransaction restores the pending request of a previous process so
// AwaitReceipt and AwaitResult can pick it up.
func WithLastTransaction(hash common.Hash, requestID *big.Int) SessionClientOption {
	return func(c *OracleSessionClient) {
		c.lastTx = hash
		c.lastRequestID = requestID
	}
}

// OracleSessionClient runs the submit → receipt → result workflow for one conversation.
// It is not safe for concurrent use.
type OracleSessionClient struct {
	ledger       ports.LedgerClient
	signer       ports.Signer
	journal      ports.RequestJournal
	clock        ports.Clock
	sleeper      ports.Sleeper
	log          logrus.FieldLogger
	cfg          SessionClientConfig
	sessionID    domain.SessionID
	conversation *domain.ConversationContext

	builder   *TransactionBuilder
	submitter *TransactionSubmitter
	receipts  *ReceiptWaiter
	listener  *EventListener

	lastTx        common.Hash
	lastRequestID *big.Int
}

func NewOracleSessionClient(ctx context.Context, ledger ports.LedgerClient, signer ports.Signer, cfg SessionClientConfig, opts ...SessionClientOption) (*OracleSessionClient, error) {
	if ledger == nil {
		return nil, domain.ConfigurationError("ledger client is required", nil)
	}
	if signer == nil {
		return nil, domain.ConfigurationError("signer is required", nil)
	}
	if cfg.ContractAddress == (common.Address{}) {
		return nil, domain.ConfigurationError("contract address is required", nil)
	}

	c := &OracleSessionClient{ledger: ledger, signer: signer, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	c.log = loggerOrDiscard(c.log)
	if c.clock == nil {
		c.clock = ports.SystemClock{}
	}
	if c.conversation == nil {
		c.conversation = domain.NewConversationContext(cfg.SystemPrompt)
	}

	chainID, err := ledger.ChainID(ctx)
	if err != nil {
		c.log.WithError(err).Error("failed to connect to the network")
		return nil, domain.ConfigurationError("failed to connect to the network", err)
	}

	gas := cfg.Gas.withDefaults()
	if chainID.Cmp(gas.ChainID) != 0 {
		return nil, domain.ConfigurationError(fmt.Sprintf("node chain id %s does not match configured chain id %s", chainID, gas.ChainID), nil)
	}
	c.log.WithField("chain_id", chainID.String()).Info("connected to network")

	c.builder = NewTransactionBuilder(cfg.ContractAddress, gas)
	c.submitter = NewTransactionSubmitter(ledger, signer, gas.ChainID, c.log)
	c.receipts = NewReceiptWaiter(ledger, cfg.ContractAddress, c.log)
	c.listener = NewEventListener(ledger, cfg.ContractAddress, c.clock, c.sleeper, c.log)

	return c, nil
}

// SubmitRequest appends prompt to the conversation and sends the whole
// transcript to the oracle contract, paying fee wei.
func (c *OracleSessionClient) SubmitRequest(ctx context.Context, modelID *big.Int, prompt string, fee *big.Int) (common.Hash, error) {
	c.conversation.AppendSystemIfEmpty(c.cfg.SystemPrompt)
	c.conversation.AppendUser(prompt)
	serialized := c.conversation.Serialize()

	log := c.log.WithField("model_id", bigString(modelID))
	log.WithFields(logrus.Fields{"prompt": serialized, "value": bigString(fee)}).Debug("preparing transaction")

	nonce, err := c.ledger.PendingNonce(ctx, c.signer.Address())
	if err != nil {
		log.WithError(err).Error("fetch account nonce")
		return common.Hash{}, domain.ConfigurationError("fetch account nonce", err)
	}

	tx, err := c.builder.Build(domain.RequestParams{
		ModelID:    modelID,
		PromptText: serialized,
		FeeAmount:  fee,
	}, nonce)
	if err != nil {
		log.WithError(err).Error("error building AI request")
		return common.Hash{}, err
	}

	hash, err := c.submitter.Submit(ctx, tx)
	if err != nil {
		return common.Hash{}, err
	}

	c.lastTx = hash
	c.lastRequestID = nil

	now := c.clock.Now()
	c.journalRecord(ctx, domain.TransactionRecord{
		ID:        uuid.NewString(),
		TxHash:    hash,
		SessionID: string(c.sessionID),
		ModelID:   modelID,
		FeeAmount: fee,
		Status:    domain.TxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})

	return hash, nil
}

func (c *OracleSessionClient) AwaitReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error) {
	receipt, err := c.receipts.AwaitReceipt(ctx, hash)

	if hash == c.lastTx {
		c.lastRequestID = receipt.RequestID
	}

	update := func(record *domain.TransactionRecord) {
		record.RequestID = receipt.RequestID
		if err != nil {
			record.Status = domain.TxStatusFailed
			record.Error = err.Error()
			return
		}
		record.Status = domain.TxStatusConfirmed
	}
	c.journalUpdate(ctx, hash, update)

	return receipt, err
}

// AwaitResult listens for the oracle callback, decodes it and appends it to the
// conversation. A nil result with a nil error means no event arrived in budget.
func (c *OracleSessionClient) AwaitResult(ctx context.Context, opts ListenOptions) (*string, error) {
	if c.cfg.Correlate && opts.RequestID == nil {
		opts.RequestID = c.lastRequestID
	}

	event, err := c.listener.Listen(ctx, opts)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}

	decoded, err := domain.DecodeOutput(event.RawOutput)
	if err != nil {
		c.log.WithError(err).Error("error decoding output")
		return nil, err
	}

	c.conversation.AppendAssistant(decoded)
	c.log.WithField("request_id", bigString(event.RequestID)).Debug("decoded output appended to context")

	if c.lastTx != (common.Hash{}) {
		c.journalUpdate(ctx, c.lastTx, func(record *domain.TransactionRecord) {
			record.Result = decoded
			if record.RequestID == nil {
				record.RequestID = event.RequestID
			}
		})
	}

	return &decoded, nil
}

// Converse runs one full request/response cycle.
func (c *OracleSessionClient) Converse(ctx context.Context, modelID *big.Int, prompt string, fee *big.Int, opts ListenOptions) (*string, domain.Receipt, error) {
	hash, err := c.SubmitRequest(ctx, modelID, prompt, fee)
	if err != nil {
		return nil, domain.Receipt{}, err
	}

	receipt, err := c.AwaitReceipt(ctx, hash)
	if err != nil {
		return nil, receipt, err
	}

	result, err := c.AwaitResult(ctx, opts)
	return result, receipt, err
}

func (c *OracleSessionClient) Context() []domain.Message {
	return c.conversation.Snapshot()
}

func (c *OracleSessionClient) Conversation() *domain.ConversationContext {
	return c.conversation
}

func (c *OracleSessionClient) LastTx() common.Hash {
	return c.lastTx
}

func (c *OracleSessionClient) LastRequestID() *big.Int {
	return c.lastRequestID
}

func (c *OracleSessionClient) SenderAddress() common.Address {
	return c.signer.Address()
}

func (c *OracleSessionClient) journalRecord(ctx context.Context, record domain.TransactionRecord) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, record); err != nil {
		c.log.WithError(err).Warn("record request in journal")
	}
}

func (c *OracleSessionClient) journalUpdate(ctx context.Context, hash common.Hash, mutate func(*domain.TransactionRecord)) {
	if c.journal == nil {
		return
	}

	record, err := c.journal.GetByTxHash(ctx, hash)
	if err != nil {
		c.log.WithError(err).Warn("load request from journal")
		return
	}
	mutate(&record)
	record.UpdatedAt = c.clock.Now()

	if err := c.journal.Update(ctx, record); err != nil {
		c.log.WithError(err).Warn("update request in journal")
	}
}
