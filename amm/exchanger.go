package amm

import (
	"fmt"

	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
	"github.com/donutlabs/matrix/spltoken"
)

// LedgerExchanger settles swaps directly against ledger accounts at
// the pool's snapshot ratio: wrapped deposit moves into the B token
// vault, protocol tokens move out of the A token vault. It backs
// local simulation and tests; a deployment against the live pool
// submits the wire instruction instead.
type LedgerExchanger struct{}

var _ Exchanger = LedgerExchanger{}

func (LedgerExchanger) Swap(tx *ledger.Tx, env matrix.SwapEnv, amountIn, minimumOut uint64) error {
	snap, err := Snapshot(tx, env)
	if err != nil {
		return err
	}
	out, _, err := Quote(snap, amountIn)
	if err != nil {
		return err
	}
	if out < minimumOut {
		return fmt.Errorf("%w: out %d, minimum %d", ErrSlippageExceeded, out, minimumOut)
	}

	// Debit the wrapped deposit. Token balance and backing lamports
	// move together.
	wsol, err := tx.Get(env.UserWSOLAccount)
	if err != nil {
		return err
	}
	balance, err := spltoken.Amount(wsol.Data)
	if err != nil {
		return err
	}
	if balance < amountIn {
		return fmt.Errorf("wrapped balance %d below swap amount %d", balance, amountIn)
	}
	if err := spltoken.SetAmount(wsol.Data, balance-amountIn); err != nil {
		return err
	}
	if err := tx.Transfer(env.UserWSOLAccount, env.BTokenVault, amountIn); err != nil {
		return err
	}
	bVault, err := tx.Get(env.BTokenVault)
	if err != nil {
		return err
	}
	bBalance, err := spltoken.Amount(bVault.Data)
	if err != nil {
		return err
	}
	if err := spltoken.SetAmount(bVault.Data, bBalance+amountIn); err != nil {
		return err
	}

	// Credit protocol tokens out of the pool's reserve.
	aVault, err := tx.Get(env.ATokenVault)
	if err != nil {
		return err
	}
	aBalance, err := spltoken.Amount(aVault.Data)
	if err != nil {
		return err
	}
	if aBalance < out {
		return fmt.Errorf("pool reserve %d below swap output %d", aBalance, out)
	}
	if err := spltoken.SetAmount(aVault.Data, aBalance-out); err != nil {
		return err
	}
	user, err := tx.Get(env.UserTokenAccount)
	if err != nil {
		return err
	}
	userBalance, err := spltoken.Amount(user.Data)
	if err != nil {
		return err
	}
	return spltoken.SetAmount(user.Data, userBalance+out)
}
