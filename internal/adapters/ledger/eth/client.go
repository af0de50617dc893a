// Package eth implements the ledger port on top of a go-ethereum JSON-RPC client.
package eth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

const defaultReceiptPollInterval = 2 * time.Second

// Backend is the subset of *ethclient.Client the adapter uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Option func(*Client)

func WithReceiptPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.receiptPoll = d
		}
	}
}

func WithSleeper(sleeper ports.Sleeper) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) { c.log = logger }
}

// WithCaller sets the from address used for read-only contract calls.
func WithCaller(address common.Address) Option {
	return func(c *Client) { c.caller = address }
}

type Client struct {
	backend     Backend
	closer      func()
	caller      common.Address
	receiptPoll time.Duration
	sleeper     ports.Sleeper
	log         logrus.FieldLogger
}

var _ ports.LedgerClient = (*Client)(nil)

// Dial connects to rawURL (http, ws or ipc).
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	if rawURL == "" {
		return nil, errors.New("rpc url is empty")
	}

	rpc, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}

	client := New(rpc, opts...)
	client.closer = rpc.Close
	return client, nil
}

func New(backend Backend, opts ...Option) *Client {
	c := &Client{backend: backend, receiptPoll: defaultReceiptPollInterval}
	for _, opt := range opts {
		opt(c)
	}
	if c.sleeper == nil {
		c.sleeper = ports.SystemSleeper{}
	}
	if c.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		c.log = discard
	}

	return c
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.backend.ChainID(ctx)
}

func (c *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	return c.backend.PendingNonceAt(ctx, account)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.backend.SendTransaction(ctx, tx)
}

// WaitReceipt polls for the receipt until it exists or ctx is done.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	log := c.log.WithField("tx", hash.Hex())

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		log.Trace("transaction not yet mined")

		if err := c.sleeper.Sleep(ctx, c.receiptPoll); err != nil {
			return nil, fmt.Errorf("wait for receipt: %w", err)
		}
	}
}

func (c *Client) CallContract(ctx context.Context, address common.Address, data []byte) ([]byte, error) {
	to := address
	return c.backend.CallContract(ctx, ethereum.CallMsg{From: c.caller, To: &to, Data: data}, nil)
}

// OpenEventFilter anchors at the current head; only logs from later blocks are reported.
func (c *Client) OpenEventFilter(ctx context.Context, address common.Address, event string) (ports.EventFilter, error) {
	if event != contract.EventPromptsUpdated {
		return nil, fmt.Errorf("unsupported event %q", event)
	}

	topic, err := contract.EventID(event)
	if err != nil {
		return nil, err
	}

	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest block: %w", err)
	}
	c.log.WithFields(logrus.Fields{"event": event, "block": head}).Debug("event filter anchored")

	return &logFilter{
		backend: c.backend,
		address: address,
		topic:   topic,
		anchor:  head,
		log:     c.log,
	}, nil
}
