package matrix

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/spltoken"
)

// wrapSOL moves lamports from the wallet into its wrapped SOL token
// account and syncs the token balance to match.
func (e *Engine) wrapSOL(tx *ledger.Tx, wallet, wsol solana.PublicKey, amount uint64) error {
	if err := tx.Transfer(wallet, wsol, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrWrapSolFailed, err)
	}
	acc, err := tx.Get(wsol)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrapSolFailed, err)
	}
	balance, err := spltoken.Amount(acc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrapSolFailed, err)
	}
	if err := spltoken.SetAmount(acc.Data, balance+amount); err != nil {
		return fmt.Errorf("%w: %v", ErrWrapSolFailed, err)
	}
	return nil
}

// unwrapSOL returns the wrapped balance to the wallet as lamports and
// zeroes the token account. A zero balance is a no-op.
func (e *Engine) unwrapSOL(tx *ledger.Tx, wallet, wsol solana.PublicKey) error {
	acc, err := tx.Get(wsol)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnwrapSolFailed, err)
	}
	balance, err := spltoken.Amount(acc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnwrapSolFailed, err)
	}
	if balance == 0 {
		return nil
	}
	if err := spltoken.SetAmount(acc.Data, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrUnwrapSolFailed, err)
	}
	if err := tx.Transfer(wsol, wallet, balance); err != nil {
		return fmt.Errorf("%w: %v", ErrUnwrapSolFailed, err)
	}
	return nil
}

// reserveSOL escrows deposit lamports in the program vault until the
// owning matrix fills its third slot.
func (e *Engine) reserveSOL(tx *ledger.Tx, wallet solana.PublicKey, amount uint64) error {
	if err := tx.Transfer(wallet, e.solVault, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrSolReserveFailed, err)
	}
	return nil
}

// payReserved releases escrowed lamports from the program vault to a
// beneficiary wallet. The wallet must be a plain system account.
func (e *Engine) payReserved(tx *ledger.Tx, wallet solana.PublicKey, amount uint64) error {
	if !e.isSystemWallet(tx, wallet) {
		return fmt.Errorf("%w: %s", ErrPaymentWalletInvalid, wallet)
	}
	if err := tx.Transfer(e.solVault, wallet, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrReferrerPaymentFailed, err)
	}
	return nil
}
