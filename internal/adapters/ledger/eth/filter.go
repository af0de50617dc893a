package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var errFilterClosed = errors.New("event filter closed")

// logFilter emulates an installed log filter with eth_getLogs over a moving block window.
type logFilter struct {
	backend Backend
	address common.Address
	topic   common.Hash
	anchor  uint64
	closed  bool
	log     logrus.FieldLogger
}

func (f *logFilter) NewEntries(ctx context.Context) ([]domain.OracleEvent, error) {
	if f.closed {
		return nil, errFilterClosed
	}

	head, err := f.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch latest block: %w", err)
	}
	if head <= f.anchor {
		return nil, nil
	}

	logs, err := f.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(f.anchor + 1),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{f.address},
		Topics:    [][]common.Hash{{f.topic}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}
	f.anchor = head

	events := make([]domain.OracleEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		event, err := contract.UnpackPromptsUpdated(log)
		if err != nil {
			f.log.WithError(err).WithField("tx", log.TxHash.Hex()).Warn("skipping undecodable log")
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

func (f *logFilter) Close() error {
	f.closed = true
	return nil
}
