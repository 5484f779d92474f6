package matrix

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
)

// validateFixed rejects any caller-supplied account that does not
// match the allow-list. Strict equality, no substitutions.
func (e *Engine) validateFixed(f FixedAccounts) error {
	if !f.Pool.Equals(e.addrs.Pool) {
		return fmt.Errorf("%w: %s", ErrInvalidPoolAddress, f.Pool)
	}
	if !f.BVault.Equals(e.addrs.BVault) || !f.BVaultLP.Equals(e.addrs.BVaultLP) ||
		!f.BVaultLPMint.Equals(e.addrs.BVaultLPMint) || !f.BTokenVault.Equals(e.addrs.BTokenVault) {
		return ErrInvalidVaultAddress
	}
	if !f.VaultProgram.Equals(e.addrs.VaultProgram) {
		return fmt.Errorf("%w: %s", ErrInvalidVaultProgram, f.VaultProgram)
	}
	if !f.AmmProgram.Equals(e.addrs.AmmProgram) {
		return fmt.Errorf("%w: %s", ErrInvalidAmmProgram, f.AmmProgram)
	}
	if !f.TokenMint.Equals(e.addrs.TokenMint) {
		return fmt.Errorf("%w: %s", ErrInvalidTokenMintAddress, f.TokenMint)
	}
	if !f.WSOLMint.Equals(e.addrs.WSOLMint) {
		return fmt.Errorf("%w: %s", ErrInvalidWSOLMint, f.WSOLMint)
	}
	if !f.ProtocolTokenBFee.Equals(e.addrs.ProtocolTokenBFee) {
		return fmt.Errorf("%w: %s", ErrInvalidProtocolFeeAccount, f.ProtocolTokenBFee)
	}
	return nil
}

// validateVaultA checks the four pool-side vault accounts, in order:
// a_vault, a_vault_lp, a_vault_lp_mint, a_token_vault.
func (e *Engine) validateVaultA(vaultA []solana.PublicKey) error {
	if len(vaultA) != config.VaultAAccountsCount {
		return fmt.Errorf("%w: got %d, want %d", ErrMissingVaultAAccounts, len(vaultA), config.VaultAAccountsCount)
	}
	want := []solana.PublicKey{e.addrs.AVault, e.addrs.AVaultLP, e.addrs.AVaultLPMint, e.addrs.ATokenVault}
	for i, got := range vaultA {
		if !got.Equals(want[i]) {
			return fmt.Errorf("%w: account %d is %s", ErrInvalidVaultAAddresses, i, got)
		}
	}
	return nil
}

func (e *Engine) validateOracle(feed, program solana.PublicKey) error {
	if !feed.Equals(e.addrs.SolUsdFeed) {
		return fmt.Errorf("%w: %s", ErrInvalidPriceFeed, feed)
	}
	if !program.Equals(e.addrs.ChainlinkProgram) {
		return fmt.Errorf("%w: %s", ErrInvalidChainlinkProgram, program)
	}
	return nil
}

// isSystemWallet reports whether the account exists and is owned by
// the system program, making it safe to receive lamport payouts.
func (e *Engine) isSystemWallet(tx *ledger.Tx, wallet solana.PublicKey) bool {
	acc, err := tx.Get(wallet)
	if err != nil {
		return false
	}
	return acc.Owner.Equals(solana.SystemProgramID)
}

type uplinePair struct {
	account solana.PublicKey
	wallet  solana.PublicKey
}

// uplinePairs splits the flat caller-supplied account list into
// (account, wallet) pairs.
func uplinePairs(accounts []solana.PublicKey) ([]uplinePair, error) {
	if len(accounts)%2 != 0 {
		return nil, fmt.Errorf("%w: odd account count %d", ErrMissingUplineAccount, len(accounts))
	}
	pairs := make([]uplinePair, 0, len(accounts)/2)
	for i := 0; i < len(accounts); i += 2 {
		pairs = append(pairs, uplinePair{account: accounts[i], wallet: accounts[i+1]})
	}
	return pairs, nil
}

// validateUplinePairs checks the supplied pairs against the referrer's
// stored upline, entry by entry in stored order. The caller cannot
// skip, reorder, substitute wallets, or repeat entries; every stored
// ancestor must be supplied.
func validateUplinePairs(entries []UplineEntry, pairs []uplinePair) error {
	if len(pairs) != len(entries) {
		return fmt.Errorf("%w: got %d pairs, upline has %d entries", ErrMissingUplineAccount, len(pairs), len(entries))
	}
	seen := make(map[solana.PublicKey]struct{}, len(pairs))
	for i, pair := range pairs {
		if !pair.account.Equals(entries[i].PDA) {
			return fmt.Errorf("%w: position %d has %s, stored entry is %s", ErrInvalidUplineOrder, i, pair.account, entries[i].PDA)
		}
		if !pair.wallet.Equals(entries[i].Wallet) {
			return fmt.Errorf("%w: position %d has %s, stored wallet is %s", ErrInvalidUplineWallet, i, pair.wallet, entries[i].Wallet)
		}
		if _, ok := seen[pair.account]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateUplineEntry, pair.account)
		}
		seen[pair.account] = struct{}{}
	}
	return nil
}
