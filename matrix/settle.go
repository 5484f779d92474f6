package matrix

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
)

// settleUplines runs after the direct referrer's matrix completes on a
// slot 3 fill. The completed referrer climbs into its nearest supplied
// ancestor's open slot, carrying the deposit until a slot 1 burn or
// slot 2 reserve consumes it; every ancestor whose matrix completes in
// turn keeps the climb going. Whatever deposit survives the walk is
// burned so no lamports are ever left unallocated.
func (e *Engine) settleUplines(ctx context.Context, tx *ledger.Tx, st *ProgramState, p RegisterWithDepositParams, referrer *UserAccount, env SwapEnv, deposit uint64, wsolOpen bool) error {
	pairs, err := uplinePairs(p.Uplines)
	if err != nil {
		return err
	}
	if err := validateUplinePairs(referrer.Upline.Entries, pairs); err != nil {
		return err
	}

	// Completions are counted up front so each notification can carry
	// its position in the batch; the notifier flushes rollover work on
	// the last one.
	total := e.countCompletions(tx, pairs)
	notified := 0
	notify := func(beneficiary solana.PublicKey) error {
		hint := notified
		notified++
		err := e.notifier.NotifyCompletion(ctx, tx, st, beneficiary, p.Airdrop, hint, notified == total)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAirdropNotifyFailed, beneficiary, err)
		}
		e.metrics.ObserveNotification()
		return nil
	}

	// The referrer's own completion is the first of the batch.
	if err := notify(referrer.OwnerWallet); err != nil {
		return err
	}

	currentUser := p.Referrer
	for i, pair := range pairs {
		if i >= config.MaxUplineDepth || deposit == 0 {
			break
		}

		anc, err := loadUserAccount(tx, e.programID, pair.account)
		if err != nil {
			return err
		}
		if !anc.IsRegistered {
			return fmt.Errorf("%w: %s", ErrSlotNotRegistered, pair.account)
		}
		if !e.isSystemWallet(tx, pair.wallet) {
			return fmt.Errorf("%w: %s", ErrPaymentWalletInvalid, pair.wallet)
		}

		switch anc.Chain.FilledSlots {
		case 0:
			if !wsolOpen {
				if err := e.wrapSOL(tx, p.UserWallet, env.UserWSOLAccount, deposit); err != nil {
					return err
				}
			}
			burned, err := e.swapper.SwapAndBurn(ctx, tx, env, deposit)
			if err != nil {
				return fmt.Errorf("swap and burn for ancestor %s: %w", pair.account, err)
			}
			e.metrics.ObserveBurn(burned)
			deposit = 0
			wsolOpen = false
		case 1:
			if wsolOpen {
				if err := e.unwrapSOL(tx, p.UserWallet, env.UserWSOLAccount); err != nil {
					return err
				}
				wsolOpen = false
			}
			if err := e.reserveSOL(tx, p.UserWallet, deposit); err != nil {
				return err
			}
			anc.ReservedSol = deposit
			e.metrics.ObserveReserve(deposit)
			deposit = 0
		case 2:
			if anc.ReservedSol > 0 {
				amount := anc.ReservedSol
				if err := e.payReserved(tx, pair.wallet, amount); err != nil {
					return err
				}
				e.metrics.ObservePayout(amount)
				anc.ReservedSol = 0
			}
		}

		_, completed := e.fillSlot(st, pair.account, anc, currentUser)
		if err := storeUserAccount(tx, e.programID, pair.account, anc); err != nil {
			return err
		}
		if !completed {
			break
		}
		if err := notify(anc.OwnerWallet); err != nil {
			return err
		}
		currentUser = pair.account
	}

	// Deposit that no ancestor slot absorbed burns instead of sitting
	// in the depositor's wrapped account.
	if deposit > 0 {
		if !wsolOpen {
			if err := e.wrapSOL(tx, p.UserWallet, env.UserWSOLAccount, deposit); err != nil {
				return err
			}
		}
		burned, err := e.swapper.SwapAndBurn(ctx, tx, env, deposit)
		if err != nil {
			return fmt.Errorf("fallback burn: %w", err)
		}
		e.metrics.ObserveBurn(burned)
		e.metrics.ObserveFallbackBurn()
		deposit = 0
		wsolOpen = false
	}
	if deposit != 0 || wsolOpen {
		return ErrUnusedDeposit
	}
	return nil
}

// countCompletions predicts how many matrices the walk will complete:
// the referrer's plus one per leading supplied ancestor already at two
// filled slots, stopping where the deposit would be consumed.
func (e *Engine) countCompletions(tx *ledger.Tx, pairs []uplinePair) int {
	total := 1
	for i, pair := range pairs {
		if i >= config.MaxUplineDepth {
			break
		}
		anc, err := loadUserAccount(tx, e.programID, pair.account)
		if err != nil {
			break
		}
		if anc.Chain.FilledSlots != 2 {
			break
		}
		total++
	}
	return total
}
