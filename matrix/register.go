package matrix

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/config"
)

type RegisterRootParams struct {
	Authority     solana.PublicKey
	UserWallet    solana.PublicKey
	DepositAmount uint64
	Fixed         FixedAccounts
	VaultA        []solana.PublicKey
}

// RegisterRoot creates a base participant with no referrer. Only the
// multisig treasury may bootstrap roots; the whole deposit is swapped
// and burned since there is no matrix to feed.
func (e *Engine) RegisterRoot(ctx context.Context, p RegisterRootParams) error {
	tx := e.store.Begin()
	defer tx.Rollback()

	st, err := e.loadState(tx)
	if err != nil {
		return err
	}
	if !p.Authority.Equals(st.MultisigTreasury) {
		return fmt.Errorf("%w: %s is not the multisig treasury", ErrNotAuthorized, p.Authority)
	}
	if err := e.validateFixed(p.Fixed); err != nil {
		return err
	}
	if err := e.validateVaultA(p.VaultA); err != nil {
		return err
	}

	userPDA, _, err := DeriveUserAccountPDA(e.programID, p.UserWallet)
	if err != nil {
		return err
	}
	if tx.Exists(userPDA) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, p.UserWallet)
	}

	user := &UserAccount{
		IsRegistered: true,
		OwnerWallet:  p.UserWallet,
		Upline:       ReferralUpline{ID: st.NextUplineID, Depth: 1},
		Chain:        ReferralChain{ID: st.NextChainID},
	}
	st.NextUplineID++
	st.NextChainID++

	env, err := e.swapEnvFor(tx, p.UserWallet, p.Fixed, p.VaultA)
	if err != nil {
		return err
	}
	if err := e.wrapSOL(tx, p.UserWallet, env.UserWSOLAccount, p.DepositAmount); err != nil {
		return err
	}
	burned, err := e.swapper.SwapAndBurn(ctx, tx, env, p.DepositAmount)
	if err != nil {
		return fmt.Errorf("swap and burn for root deposit: %w", err)
	}

	if err := storeUserAccount(tx, e.programID, userPDA, user); err != nil {
		return err
	}
	if err := e.storeState(tx, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	e.metrics.ObserveRegistration("root")
	e.metrics.ObserveBurn(burned)
	e.log.Info("root user registered",
		"wallet", p.UserWallet,
		"account", userPDA,
		"deposit", p.DepositAmount,
		"burned", burned,
	)
	return nil
}

type RegisterWithDepositParams struct {
	UserWallet     solana.PublicKey
	DepositAmount  uint64
	Referrer       solana.PublicKey
	ReferrerWallet solana.PublicKey
	Fixed          FixedAccounts
	VaultA         []solana.PublicKey
	OracleFeed     solana.PublicKey
	OracleProgram  solana.PublicKey
	Airdrop        AirdropAccounts
	Uplines        []solana.PublicKey
}

// RegisterWithDeposit registers a new participant under a referrer.
// The deposit lands in the referrer's next open slot: slot 1 swaps
// and burns it, slot 2 escrows it against the referrer's future
// payout, and slot 3 pays the referrer's reserve out, completes the
// matrix, and recurses the deposit up the stored upline.
func (e *Engine) RegisterWithDeposit(ctx context.Context, p RegisterWithDepositParams) error {
	tx := e.store.Begin()
	defer tx.Rollback()

	st, err := e.loadState(tx)
	if err != nil {
		return err
	}
	if err := e.validateFixed(p.Fixed); err != nil {
		return err
	}
	if err := e.validateVaultA(p.VaultA); err != nil {
		return err
	}
	if p.OracleFeed.IsZero() || p.OracleProgram.IsZero() {
		return ErrMissingOracleAccounts
	}
	if err := e.validateOracle(p.OracleFeed, p.OracleProgram); err != nil {
		return err
	}

	referrer, err := loadUserAccount(tx, e.programID, p.Referrer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReferrerNotRegistered, err)
	}
	if !referrer.IsRegistered {
		return fmt.Errorf("%w: %s", ErrReferrerNotRegistered, p.Referrer)
	}
	if !referrer.OwnerWallet.Equals(p.ReferrerWallet) {
		return fmt.Errorf("%w: %s does not own %s", ErrInvalidUplineWallet, p.ReferrerWallet, p.Referrer)
	}

	minDeposit, err := e.oracle.MinimumDeposit(ctx, tx, p.OracleFeed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPriceFeedRead, err)
	}
	if p.DepositAmount < minDeposit {
		return fmt.Errorf("%w: deposit %d lamports, minimum %d", ErrInsufficientDeposit, p.DepositAmount, minDeposit)
	}

	userPDA, _, err := DeriveUserAccountPDA(e.programID, p.UserWallet)
	if err != nil {
		return err
	}
	if tx.Exists(userPDA) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, p.UserWallet)
	}

	referrerKey := p.Referrer
	user := &UserAccount{
		IsRegistered: true,
		Referrer:     &referrerKey,
		OwnerWallet:  p.UserWallet,
		Upline: ReferralUpline{
			ID:      st.NextUplineID,
			Depth:   referrer.Upline.Depth + 1,
			Entries: buildUplineEntries(referrer, p.Referrer),
		},
		Chain: ReferralChain{ID: st.NextChainID},
	}
	st.NextUplineID++
	st.NextChainID++

	env, err := e.swapEnvFor(tx, p.UserWallet, p.Fixed, p.VaultA)
	if err != nil {
		return err
	}

	// Financial action depends on which slot the deposit lands in.
	// Slot 3 does not consume the deposit; it carries into the upline
	// walk wrapped and ready to burn.
	slotIdx := referrer.Chain.FilledSlots
	deposit := p.DepositAmount
	wsolOpen := false

	switch slotIdx {
	case 0:
		if err := e.wrapSOL(tx, p.UserWallet, env.UserWSOLAccount, deposit); err != nil {
			return err
		}
		burned, err := e.swapper.SwapAndBurn(ctx, tx, env, deposit)
		if err != nil {
			return fmt.Errorf("swap and burn for slot 1: %w", err)
		}
		e.metrics.ObserveBurn(burned)
		deposit = 0
	case 1:
		if err := e.reserveSOL(tx, p.UserWallet, deposit); err != nil {
			return err
		}
		referrer.ReservedSol = deposit
		e.metrics.ObserveReserve(deposit)
		deposit = 0
	case 2:
		if referrer.ReservedSol > 0 {
			amount := referrer.ReservedSol
			if err := e.payReserved(tx, p.ReferrerWallet, amount); err != nil {
				return err
			}
			e.metrics.ObservePayout(amount)
			referrer.ReservedSol = 0
		}
		if err := e.wrapSOL(tx, p.UserWallet, env.UserWSOLAccount, deposit); err != nil {
			return err
		}
		wsolOpen = true
	}

	_, completed := e.fillSlot(st, p.Referrer, referrer, userPDA)

	if err := storeUserAccount(tx, e.programID, p.Referrer, referrer); err != nil {
		return err
	}
	if err := storeUserAccount(tx, e.programID, userPDA, user); err != nil {
		return err
	}

	if completed {
		if err := e.settleUplines(ctx, tx, st, p, referrer, env, deposit, wsolOpen); err != nil {
			return err
		}
	}

	if err := e.storeState(tx, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	e.metrics.ObserveRegistration("referred")
	e.log.Info("user registered",
		"wallet", p.UserWallet,
		"account", userPDA,
		"referrer", p.Referrer,
		"slot", slotIdx+1,
		"deposit", p.DepositAmount,
		"completed", completed,
	)
	return nil
}

// buildUplineEntries copies the referrer's stored upline and appends
// the referrer itself, dropping the oldest entries when the list is at
// capacity so the nearest ancestors always survive.
func buildUplineEntries(referrer *UserAccount, referrerKey solana.PublicKey) []UplineEntry {
	stored := referrer.Upline.Entries
	if len(stored) >= config.MaxUplineDepth {
		stored = stored[len(stored)-(config.MaxUplineDepth-1):]
	}
	entries := make([]UplineEntry, 0, len(stored)+1)
	entries = append(entries, stored...)
	entries = append(entries, UplineEntry{PDA: referrerKey, Wallet: referrer.OwnerWallet})
	return entries
}
