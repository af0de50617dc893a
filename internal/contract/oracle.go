package contract

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	MethodCalculateAIResult = "calculateAIResult"
	MethodEstimateFee       = "estimateFee"
	MethodIsFinalized       = "isFinalized"
	MethodRequests          = "requests"
	MethodCallbackGasLimit  = "callbackGasLimit"

	EventPromptRequest  = "promptRequest"
	EventPromptsUpdated = "promptsUpdated"
)

var ErrEventMismatch = errors.New("log does not carry the expected event")

var parsedOracleABI abi.ABI

func init() {
	var err error
	parsedOracleABI, err = abi.JSON(strings.NewReader(OracleABI))
	if err != nil {
		panic("contract: parse oracle ABI: " + err.Error())
	}
}

func ABI() abi.ABI {
	return parsedOracleABI
}

// EventID returns the topic0 hash of a named oracle event.
func EventID(name string) (common.Hash, error) {
	event, ok := parsedOracleABI.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown oracle event %q", name)
	}
	return event.ID, nil
}

func PackCalculateAIResult(modelID *big.Int, prompt string) ([]byte, error) {
	data, err := parsedOracleABI.Pack(MethodCalculateAIResult, modelID, prompt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MethodCalculateAIResult, err)
	}
	return data, nil
}

func PackEstimateFee(modelID *big.Int) ([]byte, error) {
	data, err := parsedOracleABI.Pack(MethodEstimateFee, modelID)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MethodEstimateFee, err)
	}
	return data, nil
}

func UnpackEstimateFee(output []byte) (*big.Int, error) {
	values, err := parsedOracleABI.Unpack(MethodEstimateFee, output)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", MethodEstimateFee, err)
	}
	fee, ok := firstValue[*big.Int](values)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected output %v", MethodEstimateFee, values)
	}
	return fee, nil
}

func PackIsFinalized(requestID *big.Int) ([]byte, error) {
	data, err := parsedOracleABI.Pack(MethodIsFinalized, requestID)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MethodIsFinalized, err)
	}
	return data, nil
}

func UnpackIsFinalized(output []byte) (bool, error) {
	values, err := parsedOracleABI.Unpack(MethodIsFinalized, output)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", MethodIsFinalized, err)
	}
	finalized, ok := firstValue[bool](values)
	if !ok {
		return false, fmt.Errorf("decode %s: unexpected output %v", MethodIsFinalized, values)
	}
	return finalized, nil
}

func PackRequests(requestID *big.Int) ([]byte, error) {
	data, err := parsedOracleABI.Pack(MethodRequests, requestID)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MethodRequests, err)
	}
	return data, nil
}

func UnpackRequests(requestID *big.Int, output []byte) (domain.OracleRequest, error) {
	values, err := parsedOracleABI.Unpack(MethodRequests, output)
	if err != nil {
		return domain.OracleRequest{}, fmt.Errorf("decode %s: %w", MethodRequests, err)
	}
	if len(values) != 4 {
		return domain.OracleRequest{}, fmt.Errorf("decode %s: got %d values, want 4", MethodRequests, len(values))
	}

	sender, okSender := values[0].(common.Address)
	modelID, okModel := values[1].(*big.Int)
	input, okInput := values[2].([]byte)
	out, okOutput := values[3].([]byte)
	if !okSender || !okModel || !okInput || !okOutput {
		return domain.OracleRequest{}, fmt.Errorf("decode %s: unexpected output types %T %T %T %T", MethodRequests, values[0], values[1], values[2], values[3])
	}

	return domain.OracleRequest{
		ID:      requestID,
		Sender:  sender,
		ModelID: modelID,
		Input:   input,
		Output:  out,
	}, nil
}

func PackCallbackGasLimit(modelID *big.Int) ([]byte, error) {
	data, err := parsedOracleABI.Pack(MethodCallbackGasLimit, modelID)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", MethodCallbackGasLimit, err)
	}
	return data, nil
}

func UnpackCallbackGasLimit(output []byte) (uint64, error) {
	values, err := parsedOracleABI.Unpack(MethodCallbackGasLimit, output)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", MethodCallbackGasLimit, err)
	}
	limit, ok := firstValue[uint64](values)
	if !ok {
		return 0, fmt.Errorf("decode %s: unexpected output %v", MethodCallbackGasLimit, values)
	}
	return limit, nil
}

// UnpackPromptsUpdated decodes the oracle callback event.
func UnpackPromptsUpdated(log types.Log) (domain.OracleEvent, error) {
	values, err := unpackEvent(EventPromptsUpdated, log)
	if err != nil {
		return domain.OracleEvent{}, err
	}
	if len(values) != 3 {
		return domain.OracleEvent{}, fmt.Errorf("decode %s: got %d values, want 3", EventPromptsUpdated, len(values))
	}

	requestID, okID := values[0].(*big.Int)
	output, okOutput := values[1].(string)
	callbackData, okData := values[2].([]byte)
	if !okID || !okOutput || !okData {
		return domain.OracleEvent{}, fmt.Errorf("decode %s: unexpected value types %T %T %T", EventPromptsUpdated, values[0], values[1], values[2])
	}

	return domain.OracleEvent{
		RequestID:    requestID,
		RawOutput:    output,
		CallbackData: callbackData,
		TxHash:       log.TxHash,
		BlockNumber:  log.BlockNumber,
	}, nil
}

type PromptRequest struct {
	RequestID *big.Int
	Sender    common.Address
	ModelID   *big.Int
	Prompt    string
}

// UnpackPromptRequest decodes the event the contract emits when it accepts a request.
func UnpackPromptRequest(log types.Log) (PromptRequest, error) {
	values, err := unpackEvent(EventPromptRequest, log)
	if err != nil {
		return PromptRequest{}, err
	}
	if len(values) != 4 {
		return PromptRequest{}, fmt.Errorf("decode %s: got %d values, want 4", EventPromptRequest, len(values))
	}

	requestID, okID := values[0].(*big.Int)
	sender, okSender := values[1].(common.Address)
	modelID, okModel := values[2].(*big.Int)
	prompt, okPrompt := values[3].(string)
	if !okID || !okSender || !okModel || !okPrompt {
		return PromptRequest{}, fmt.Errorf("decode %s: unexpected value types", EventPromptRequest)
	}

	return PromptRequest{RequestID: requestID, Sender: sender, ModelID: modelID, Prompt: prompt}, nil
}

// FindPromptRequest scans receipt logs emitted by address for the promptRequest event.
func FindPromptRequest(address common.Address, logs []*types.Log) (PromptRequest, bool) {
	for _, log := range logs {
		if log == nil || log.Address != address {
			continue
		}
		request, err := UnpackPromptRequest(*log)
		if err != nil {
			continue
		}
		return request, true
	}
	return PromptRequest{}, false
}

func unpackEvent(name string, log types.Log) ([]interface{}, error) {
	event := parsedOracleABI.Events[name]
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("decode %s: %w", name, ErrEventMismatch)
	}

	values, err := parsedOracleABI.Unpack(name, log.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return values, nil
}

func firstValue[T any](values []interface{}) (T, bool) {
	var zero T
	if len(values) == 0 {
		return zero, false
	}
	value, ok := values[0].(T)
	return value, ok
}
