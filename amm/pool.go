// Package amm quotes and executes the deposit-to-token swap against
// the liquidity pool, then burns what the swap produced. Pool state is
// read from raw account bytes at the layout offsets the pool program
// uses; the pool's own types are not linked in.
package amm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
	"github.com/donutlabs/matrix/spltoken"
)

var (
	ErrPoolDisabled        = errors.New("pool is disabled")
	ErrPoolReadFailed      = errors.New("failed to read pool state")
	ErrCalculationOverflow = errors.New("swap calculation overflow")
	ErrSlippageExceeded    = errors.New("swap output below minimum")
)

const (
	// The pool's enabled flag sits behind the 8-byte discriminator
	// and 225 bytes of pool config.
	poolEnabledOffset = 8 + 225

	// Vault accounts record their total managed amount at offset 11.
	vaultTotalOffset = 11

	// precisionFactor scales the A/B ratio, matching the pool's
	// on-chain quote arithmetic.
	precisionFactor = 1_000_000_000
)

// ReserveSnapshot is the effective token depth on each side of the
// pool: vault totals scaled down to the LP share the pool holds.
// Token A is the protocol token, token B the wrapped deposit asset.
type ReserveSnapshot struct {
	TokenAAmount uint64
	TokenBAmount uint64
}

func poolEnabled(data []byte) (bool, error) {
	if len(data) <= poolEnabledOffset {
		return false, fmt.Errorf("%w: pool account has %d bytes", ErrPoolReadFailed, len(data))
	}
	return data[poolEnabledOffset] != 0, nil
}

func vaultTotal(data []byte) (uint64, error) {
	br := NewByteReader(data)
	if br.Remaining() < vaultTotalOffset+8 {
		return 0, fmt.Errorf("%w: vault account has %d bytes", ErrPoolReadFailed, len(data))
	}
	br.Skip(vaultTotalOffset)
	return br.ReadU64(), nil
}

func tokenAmount(tx *ledger.Tx, key solana.PublicKey) (uint64, error) {
	acc, err := tx.Get(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	amount, err := spltoken.Amount(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	return amount, nil
}

func mintSupply(tx *ledger.Tx, key solana.PublicKey) (uint64, error) {
	acc, err := tx.Get(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	supply, err := spltoken.Supply(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	return supply, nil
}

// shareOf scales a vault total down to the LP share: lpAmount * total
// / lpSupply, with 128-bit intermediates.
func shareOf(lpAmount, total, lpSupply uint64) (uint64, error) {
	if lpSupply == 0 {
		return 0, nil
	}
	result := new(big.Int).Mul(new(big.Int).SetUint64(lpAmount), new(big.Int).SetUint64(total))
	result.Div(result, new(big.Int).SetUint64(lpSupply))
	if !result.IsUint64() {
		return 0, ErrCalculationOverflow
	}
	return result.Uint64(), nil
}

// Snapshot reads the pool reserves needed to quote a swap. It fails if
// the pool is disabled or either side has zero effective depth.
func Snapshot(tx *ledger.Tx, env matrix.SwapEnv) (ReserveSnapshot, error) {
	pool, err := tx.Get(env.Pool)
	if err != nil {
		return ReserveSnapshot{}, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	enabled, err := poolEnabled(pool.Data)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	if !enabled {
		return ReserveSnapshot{}, ErrPoolDisabled
	}

	aVault, err := tx.Get(env.AVault)
	if err != nil {
		return ReserveSnapshot{}, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	aTotal, err := vaultTotal(aVault.Data)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	bVault, err := tx.Get(env.BVault)
	if err != nil {
		return ReserveSnapshot{}, fmt.Errorf("%w: %v", ErrPoolReadFailed, err)
	}
	bTotal, err := vaultTotal(bVault.Data)
	if err != nil {
		return ReserveSnapshot{}, err
	}

	aLP, err := tokenAmount(tx, env.AVaultLP)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	bLP, err := tokenAmount(tx, env.BVaultLP)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	aSupply, err := mintSupply(tx, env.AVaultLPMint)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	bSupply, err := mintSupply(tx, env.BVaultLPMint)
	if err != nil {
		return ReserveSnapshot{}, err
	}

	tokenA, err := shareOf(aLP, aTotal, aSupply)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	tokenB, err := shareOf(bLP, bTotal, bSupply)
	if err != nil {
		return ReserveSnapshot{}, err
	}
	if tokenA == 0 || tokenB == 0 {
		return ReserveSnapshot{}, fmt.Errorf("%w: empty pool side", ErrPoolReadFailed)
	}
	return ReserveSnapshot{TokenAAmount: tokenA, TokenBAmount: tokenB}, nil
}

// Quote converts a deposit amount to the expected token output at the
// snapshot ratio and the minimum acceptable output: one percent of the
// expectation, floored at a single base unit so the swap can never
// demand zero.
func Quote(snap ReserveSnapshot, amountIn uint64) (expected, minimumOut uint64, err error) {
	ratio := new(big.Int).Mul(new(big.Int).SetUint64(snap.TokenAAmount), big.NewInt(precisionFactor))
	ratio.Div(ratio, new(big.Int).SetUint64(snap.TokenBAmount))

	out := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), ratio)
	out.Div(out, big.NewInt(precisionFactor))
	if !out.IsUint64() {
		return 0, 0, ErrCalculationOverflow
	}
	expected = out.Uint64()

	minimumOut = expected / 100
	if minimumOut == 0 {
		minimumOut = 1
	}
	return expected, minimumOut, nil
}
