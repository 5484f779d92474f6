package amm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
	"github.com/donutlabs/matrix/spltoken"
)

// Exchanger executes one swap against the pool: debit amountIn from
// the user's wrapped account, credit at least minimumOut protocol
// tokens to the user's token account.
type Exchanger interface {
	Swap(tx *ledger.Tx, env matrix.SwapEnv, amountIn, minimumOut uint64) error
}

// Swapper quotes, swaps, and burns. The burn amount is the measured
// balance delta on the user's token account, never the quoted amount;
// a delta of zero or below the slippage minimum aborts the swap even
// when the exchanger reported success.
type Swapper struct {
	log       *slog.Logger
	exchanger Exchanger
}

var _ matrix.SwapBurner = (*Swapper)(nil)

func NewSwapper(log *slog.Logger, exchanger Exchanger) *Swapper {
	return &Swapper{log: log, exchanger: exchanger}
}

func (s *Swapper) SwapAndBurn(ctx context.Context, tx *ledger.Tx, env matrix.SwapEnv, amountIn uint64) (uint64, error) {
	snap, err := Snapshot(tx, env)
	if err != nil {
		return 0, err
	}
	expected, minimumOut, err := Quote(snap, amountIn)
	if err != nil {
		return 0, err
	}

	before, err := tokenAmount(tx, env.UserTokenAccount)
	if err != nil {
		return 0, err
	}
	if err := s.exchanger.Swap(tx, env, amountIn, minimumOut); err != nil {
		return 0, fmt.Errorf("%w: %v", matrix.ErrSwapFailed, err)
	}
	after, err := tokenAmount(tx, env.UserTokenAccount)
	if err != nil {
		return 0, err
	}
	if after <= before {
		return 0, matrix.ErrSwapFailed
	}
	received := after - before
	if received < minimumOut {
		return 0, fmt.Errorf("%w: received %d below minimum %d", matrix.ErrSwapFailed, received, minimumOut)
	}

	if err := s.burn(tx, env, received, before); err != nil {
		return 0, err
	}

	s.log.Debug("swap and burn complete",
		"amount_in", amountIn,
		"expected", expected,
		"minimum_out", minimumOut,
		"received", received,
	)
	return received, nil
}

// burn removes the received tokens from the user's account and the
// mint supply.
func (s *Swapper) burn(tx *ledger.Tx, env matrix.SwapEnv, received, before uint64) error {
	acc, err := tx.Get(env.UserTokenAccount)
	if err != nil {
		return fmt.Errorf("%w: %v", matrix.ErrBurnFailed, err)
	}
	if err := spltoken.SetAmount(acc.Data, before); err != nil {
		return fmt.Errorf("%w: %v", matrix.ErrBurnFailed, err)
	}

	mint, err := tx.Get(env.TokenMint)
	if err != nil {
		return fmt.Errorf("%w: %v", matrix.ErrBurnFailed, err)
	}
	supply, err := spltoken.Supply(mint.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", matrix.ErrBurnFailed, err)
	}
	if supply < received {
		return fmt.Errorf("%w: supply %d below burn amount %d", matrix.ErrBurnFailed, supply, received)
	}
	if err := spltoken.SetSupply(mint.Data, supply-received); err != nil {
		return fmt.Errorf("%w: %v", matrix.ErrBurnFailed, err)
	}
	return nil
}
