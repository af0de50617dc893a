package application

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval  = 5 * time.Second
	DefaultMaxRetries    = 200
	DefaultListenTimeout = 120 * time.Second
)

type ListenState string

const (
	ListenStateInit      ListenState = "init"
	ListenStatePolling   ListenState = "polling"
	ListenStateMatched   ListenState = "matched"
	ListenStateExhausted ListenState = "exhausted"
	ListenStateError     ListenState = "error"
)

// ListenOptions bounds one Listen call. Zero or negative MaxRetries, Timeout
// and PollInterval fall back to the package defaults.
type ListenOptions struct {
	MaxRetries   int
	Timeout      time.Duration
	PollInterval time.Duration
	// RequestID restricts matching to one oracle request. Nil means first event wins.
	RequestID *big.Int
}

func DefaultListenOptions() ListenOptions {
	return ListenOptions{
		MaxRetries:   DefaultMaxRetries,
		Timeout:      DefaultListenTimeout,
		PollInterval: DefaultPollInterval,
	}
}

func (o ListenOptions) withDefaults() ListenOptions {
	defaults := DefaultListenOptions()
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaults.MaxRetries
	}
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	return o
}

type EventListener struct {
	ledger   ports.LedgerClient
	contract common.Address
	clock    ports.Clock
	sleeper  ports.Sleeper
	log      logrus.FieldLogger
}

func NewEventListener(ledger ports.LedgerClient, contractAddress common.Address, clock ports.Clock, sleeper ports.Sleeper, logger logrus.FieldLogger) *EventListener {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if sleeper == nil {
		sleeper = ports.SystemSleeper{}
	}

	return &EventListener{
		ledger:   ledger,
		contract: contractAddress,
		clock:    clock,
		sleeper:  sleeper,
		log:      loggerOrDiscard(logger),
	}
}

// Listen waits for a promptsUpdated event emitted after the call starts.
// It returns (nil, nil) when the retry or time budget runs out.
func (l *EventListener) Listen(ctx context.Context, opts ListenOptions) (*domain.OracleEvent, error) {
	opts = opts.withDefaults()

	var (
		state   = ListenStateInit
		filter  ports.EventFilter
		matched *domain.OracleEvent
		fault   error
		started time.Time
		retries int
	)

	defer func() {
		if filter != nil {
			_ = filter.Close()
		}
	}()

	for {
		switch state {
		case ListenStateInit:
			l.log.Info("starting to listen for promptsUpdated event")
			opened, err := l.ledger.OpenEventFilter(ctx, l.contract, contract.EventPromptsUpdated)
			if err != nil {
				fault = fmt.Errorf("open event filter: %w", err)
				state = ListenStateError
				continue
			}
			filter = opened
			started = l.clock.Now()
			state = ListenStatePolling

		case ListenStatePolling:
			events, err := filter.NewEntries(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, fmt.Errorf("listen for events: %w", ctxErr)
				}
				fault = err
				state = ListenStateError
				continue
			}

			if len(events) > 0 {
				l.log.WithField("events", len(events)).Info("new events detected")
				if event := selectEvent(events, opts.RequestID, l.log); event != nil {
					matched = event
					state = ListenStateMatched
					continue
				}
			} else {
				l.log.Info("no new events detected, retrying")
			}

			if err := l.sleeper.Sleep(ctx, opts.PollInterval); err != nil {
				return nil, fmt.Errorf("listen for events: %w", err)
			}

			if elapsed := l.clock.Now().Sub(started); elapsed > opts.Timeout {
				l.log.WithField("timeout", opts.Timeout).Warn("timeout exceeded without receiving a result")
				state = ListenStateExhausted
				continue
			}

			retries++
			if retries >= opts.MaxRetries {
				state = ListenStateExhausted
			}

		case ListenStateMatched:
			l.log.WithFields(logrus.Fields{
				"request_id": bigString(matched.RequestID),
				"attempt":    retries + 1,
			}).Info("prompt updated")
			l.log.WithField("output", matched.RawOutput).Debug("raw oracle output")
			return matched, nil

		case ListenStateExhausted:
			l.log.WithFields(logrus.Fields{
				"retries": retries,
				"timeout": opts.Timeout,
			}).Warn("failed to receive a result")
			return nil, nil

		case ListenStateError:
			l.log.WithError(fault).Error("error while listening for events")
			return nil, domain.ContractInteractionError("error while listening for events", fault)
		}
	}
}

// selectEvent applies the first-match-wins policy, optionally narrowed to one request id.
func selectEvent(events []domain.OracleEvent, requestID *big.Int, log logrus.FieldLogger) *domain.OracleEvent {
	for i := range events {
		event := events[i]
		if requestID != nil && (event.RequestID == nil || event.RequestID.Cmp(requestID) != 0) {
			log.WithFields(logrus.Fields{
				"request_id": bigString(event.RequestID),
				"want":       requestID.String(),
			}).Debug("skipping event for another request")
			continue
		}
		return &event
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
