// Package spltoken reads and writes the fixed byte layouts of SPL
// token accounts and mints. Only the fields the matrix program touches
// are exposed: balances, supply, and the mint/owner identity fields.
package spltoken

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	// AccountSize is the serialized size of a token account.
	AccountSize = 165
	// MintSize is the serialized size of a mint.
	MintSize = 82

	accountMintOffset   = 0
	accountOwnerOffset  = 32
	accountAmountOffset = 64

	mintSupplyOffset   = 36
	mintDecimalsOffset = 44
)

var (
	ErrBadAccountSize = errors.New("token account data has wrong size")
	ErrBadMintSize    = errors.New("mint data has wrong size")
)

// NewAccountData builds an initialized token account holding zero
// tokens of the given mint.
func NewAccountData(mint, owner solana.PublicKey) []byte {
	data := make([]byte, AccountSize)
	copy(data[accountMintOffset:], mint.Bytes())
	copy(data[accountOwnerOffset:], owner.Bytes())
	data[108] = 1 // AccountState::Initialized
	return data
}

// NewMintData builds a mint with the given supply and decimals.
func NewMintData(supply uint64, decimals uint8) []byte {
	data := make([]byte, MintSize)
	binary.LittleEndian.PutUint64(data[mintSupplyOffset:], supply)
	data[mintDecimalsOffset] = decimals
	data[45] = 1 // is_initialized
	return data
}

// Amount returns the token balance of an account.
func Amount(data []byte) (uint64, error) {
	if len(data) < AccountSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadAccountSize, len(data))
	}
	return binary.LittleEndian.Uint64(data[accountAmountOffset:]), nil
}

// SetAmount overwrites the token balance of an account.
func SetAmount(data []byte, amount uint64) error {
	if len(data) < AccountSize {
		return fmt.Errorf("%w: %d bytes", ErrBadAccountSize, len(data))
	}
	binary.LittleEndian.PutUint64(data[accountAmountOffset:], amount)
	return nil
}

// AccountMint returns the mint a token account belongs to.
func AccountMint(data []byte) (solana.PublicKey, error) {
	if len(data) < AccountSize {
		return solana.PublicKey{}, fmt.Errorf("%w: %d bytes", ErrBadAccountSize, len(data))
	}
	return solana.PublicKeyFromBytes(data[accountMintOffset : accountMintOffset+32]), nil
}

// AccountOwner returns the wallet that owns a token account.
func AccountOwner(data []byte) (solana.PublicKey, error) {
	if len(data) < AccountSize {
		return solana.PublicKey{}, fmt.Errorf("%w: %d bytes", ErrBadAccountSize, len(data))
	}
	return solana.PublicKeyFromBytes(data[accountOwnerOffset : accountOwnerOffset+32]), nil
}

// Supply returns the total supply recorded on a mint.
func Supply(data []byte) (uint64, error) {
	if len(data) < MintSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrBadMintSize, len(data))
	}
	return binary.LittleEndian.Uint64(data[mintSupplyOffset:]), nil
}

// SetSupply overwrites the total supply recorded on a mint.
func SetSupply(data []byte, supply uint64) error {
	if len(data) < MintSize {
		return fmt.Errorf("%w: %d bytes", ErrBadMintSize, len(data))
	}
	binary.LittleEndian.PutUint64(data[mintSupplyOffset:], supply)
	return nil
}
