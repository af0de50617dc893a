package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DecodeOutput normalizes an oracle output. Hex payloads ("0x...") are decoded
// and must be valid UTF-8; anything else, "0X..." included, passes through unchanged.
func DecodeOutput(raw string) (string, error) {
	if !strings.HasPrefix(raw, "0x") {
		return raw, nil
	}

	decoded, err := hexutil.Decode(raw)
	if err != nil {
		return "", InvalidResponseError("failed to decode AI response", err)
	}
	if !utf8.Valid(decoded) {
		return "", InvalidResponseError("failed to decode AI response: output is not valid UTF-8", nil)
	}

	return string(decoded), nil
}
