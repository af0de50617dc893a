// Package ecdsa signs transactions locally with a secp256k1 private key.
package ecdsa

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/bnema/ethai-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrAddressMismatch = errors.New("private key does not match the configured sender address")

type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ ports.Signer = (*Signer)(nil)

func FromHex(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Factory adapts FromHex to the signer constructor the key service expects.
func Factory(hexKey string) (ports.Signer, error) {
	return FromHex(hexKey)
}

func (s *Signer) Address() common.Address {
	return s.address
}

// Expect fails when sender is set and differs from the key's address.
func (s *Signer) Expect(sender common.Address) error {
	if sender != (common.Address{}) && sender != s.address {
		return fmt.Errorf("%w: key is %s, configured %s", ErrAddressMismatch, s.address.Hex(), sender.Hex())
	}
	return nil
}

func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if chainID == nil {
		return nil, errors.New("chain id is required to sign")
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
