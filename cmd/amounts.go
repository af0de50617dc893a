package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var amountUnits = []struct {
	suffix string
	wei    *big.Int
}{
	{"ether", big.NewInt(params.Ether)},
	{"eth", big.NewInt(params.Ether)},
	{"gwei", big.NewInt(params.GWei)},
	{"wei", big.NewInt(params.Wei)},
}

// parseAmount reads a wei amount. Plain integers are wei; a unit suffix
// (eth, ether, gwei, wei) allows decimals such as "0.15eth".
func parseAmount(raw string) (*big.Int, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return nil, fmt.Errorf("amount is empty")
	}

	unit := big.NewInt(params.Wei)
	for _, candidate := range amountUnits {
		if strings.HasSuffix(value, candidate.suffix) {
			unit = candidate.wei
			value = strings.TrimSpace(strings.TrimSuffix(value, candidate.suffix))
			break
		}
	}

	amount, ok := new(big.Rat).SetString(value)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	amount.Mul(amount, new(big.Rat).SetInt(unit))
	if !amount.IsInt() {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}

	return new(big.Int).Set(amount.Num()), nil
}

func formatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	value := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).FloatString(18)
	value = strings.TrimRight(value, "0")
	return strings.TrimSuffix(value, ".")
}

func parseBigArg(name string, raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}
