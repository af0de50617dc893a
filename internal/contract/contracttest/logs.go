// Package contracttest builds oracle event logs for fake ledgers in tests.
package contracttest

import (
	"math/big"

	"github.com/bnema/ethai-cli/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func PromptsUpdatedLog(address common.Address, requestID int64, output string, callbackData []byte) types.Log {
	event := contract.ABI().Events[contract.EventPromptsUpdated]
	data, err := event.Inputs.Pack(big.NewInt(requestID), output, callbackData)
	if err != nil {
		panic("contracttest: pack promptsUpdated: " + err.Error())
	}

	return types.Log{
		Address: address,
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}
}

func PromptRequestLog(address common.Address, requestID int64, sender common.Address, modelID int64, prompt string) types.Log {
	event := contract.ABI().Events[contract.EventPromptRequest]
	data, err := event.Inputs.Pack(big.NewInt(requestID), sender, big.NewInt(modelID), prompt)
	if err != nil {
		panic("contracttest: pack promptRequest: " + err.Error())
	}

	return types.Log{
		Address: address,
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}
}
