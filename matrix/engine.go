// Package matrix implements the referral matrix: a 3-slot chain per
// participant, filled left to right, with a distinct financial action
// per slot and recursive settlement up the referrer's ancestor chain
// when a matrix completes.
package matrix

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/spltoken"
)

// DepositOracle quotes the current minimum deposit in lamports. The
// feed account has already been validated against the allow-list when
// the oracle is called.
type DepositOracle interface {
	MinimumDeposit(ctx context.Context, tx *ledger.Tx, feed solana.PublicKey) (uint64, error)
}

// SwapEnv names every account the swap-and-burn path touches.
type SwapEnv struct {
	UserWallet       solana.PublicKey
	UserWSOLAccount  solana.PublicKey
	UserTokenAccount solana.PublicKey

	Pool         solana.PublicKey
	AVault       solana.PublicKey
	AVaultLP     solana.PublicKey
	AVaultLPMint solana.PublicKey
	ATokenVault  solana.PublicKey
	BVault       solana.PublicKey
	BVaultLP     solana.PublicKey
	BVaultLPMint solana.PublicKey
	BTokenVault  solana.PublicKey

	TokenMint         solana.PublicKey
	ProtocolTokenBFee solana.PublicKey
}

// SwapBurner converts wrapped deposit lamports into protocol tokens
// and burns exactly the amount the swap produced, measured as the
// balance delta on the user's token account. A swap that produces
// zero tokens must fail.
type SwapBurner interface {
	SwapAndBurn(ctx context.Context, tx *ledger.Tx, env SwapEnv, amountIn uint64) (burned uint64, err error)
}

// AirdropAccounts are the subledger accounts the caller supplies for
// completion notifications: the airdrop program state, the current and
// next week records, and one entry account per potential beneficiary.
type AirdropAccounts struct {
	State       solana.PublicKey
	CurrentWeek solana.PublicKey
	NextWeek    solana.PublicKey
	UserEntries []solana.PublicKey
}

// CompletionNotifier records a matrix completion against the airdrop
// subledger. hint is the position the beneficiary's entry account is
// expected at in accounts.UserEntries; implementations fall back to a
// scan when the hint misses. isLast marks the final notification of
// the batch so the notifier can flush week rollover work once.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, tx *ledger.Tx, state *ProgramState, beneficiary solana.PublicKey, accounts AirdropAccounts, hint int, isLast bool) error
}

// FixedAccounts are the caller-supplied accounts that must match the
// allow-list exactly.
type FixedAccounts struct {
	Pool              solana.PublicKey
	BVault            solana.PublicKey
	BVaultLP          solana.PublicKey
	BVaultLPMint      solana.PublicKey
	BTokenVault       solana.PublicKey
	VaultProgram      solana.PublicKey
	AmmProgram        solana.PublicKey
	TokenMint         solana.PublicKey
	WSOLMint          solana.PublicKey
	ProtocolTokenBFee solana.PublicKey
}

// Engine executes matrix operations against the ledger. Each entry
// point runs in a single transaction: any failure rolls back every
// state change, transfer, and burn staged so far.
type Engine struct {
	log       *slog.Logger
	store     *ledger.Store
	programID solana.PublicKey
	addrs     config.Addresses
	statePDA  solana.PublicKey
	solVault  solana.PublicKey

	oracle   DepositOracle
	swapper  SwapBurner
	notifier CompletionNotifier
	sink     EventSink
	metrics  *Metrics
}

type Option func(*Engine)

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(log *slog.Logger, store *ledger.Store, programID solana.PublicKey, addrs config.Addresses, oracle DepositOracle, swapper SwapBurner, notifier CompletionNotifier, opts ...Option) (*Engine, error) {
	statePDA, _, err := DeriveProgramStatePDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive program state address: %w", err)
	}
	solVault, _, err := DeriveProgramSolVaultPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sol vault address: %w", err)
	}
	e := &Engine{
		log:       log,
		store:     store,
		programID: programID,
		addrs:     addrs,
		statePDA:  statePDA,
		solVault:  solVault,
		oracle:    oracle,
		swapper:   swapper,
		notifier:  notifier,
		sink:      nopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// StatePDA returns the derived program state address.
func (e *Engine) StatePDA() solana.PublicKey { return e.statePDA }

// SolVaultPDA returns the derived escrow vault address.
func (e *Engine) SolVaultPDA() solana.PublicKey { return e.solVault }

type InitializeParams struct {
	Authority        solana.PublicKey
	MultisigTreasury solana.PublicKey
}

// Initialize creates the program state singleton and the escrow
// vault. Only the authorized initializer may call it, and the
// treasury must match the allow-list.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) error {
	tx := e.store.Begin()
	defer tx.Rollback()

	if !p.Authority.Equals(e.addrs.AuthorizedInitializer) {
		return fmt.Errorf("%w: %s is not the authorized initializer", ErrNotAuthorized, p.Authority)
	}
	if !p.MultisigTreasury.Equals(e.addrs.MultisigTreasury) {
		return fmt.Errorf("%w: treasury %s does not match", ErrNotAuthorized, p.MultisigTreasury)
	}
	if tx.Exists(e.statePDA) {
		return ErrAlreadyInitialized
	}

	st := &ProgramState{
		Owner:            p.Authority,
		MultisigTreasury: p.MultisigTreasury,
		NextUplineID:     1,
		NextChainID:      1,
		AirdropActive:    true,
	}
	if err := e.storeState(tx, st); err != nil {
		return err
	}
	if !tx.Exists(e.solVault) {
		if err := tx.Put(e.solVault, &ledger.Account{Owner: e.programID}); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	e.log.Info("program state initialized", "owner", p.Authority, "treasury", p.MultisigTreasury)
	return nil
}

// State returns the committed program state.
func (e *Engine) State() (*ProgramState, error) {
	acc := e.store.GetAccount(e.statePDA)
	if acc == nil {
		return nil, ErrNotInitialized
	}
	return UnmarshalProgramState(acc.Data)
}

// UserByWallet returns the committed user record for a wallet, or
// ledger.ErrAccountNotFound if the wallet never registered.
func (e *Engine) UserByWallet(wallet solana.PublicKey) (*UserAccount, error) {
	pda, _, err := DeriveUserAccountPDA(e.programID, wallet)
	if err != nil {
		return nil, err
	}
	acc := e.store.GetAccount(pda)
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, pda)
	}
	return UnmarshalUserAccount(acc.Data)
}

func (e *Engine) loadState(tx *ledger.Tx) (*ProgramState, error) {
	acc, err := tx.Get(e.statePDA)
	if err != nil {
		return nil, ErrNotInitialized
	}
	st, err := UnmarshalProgramState(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize program state: %w", err)
	}
	return st, nil
}

func (e *Engine) storeState(tx *ledger.Tx, st *ProgramState) error {
	data, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize program state: %w", err)
	}
	acc, err := tx.Get(e.statePDA)
	if err != nil {
		acc = &ledger.Account{Owner: e.programID}
	}
	acc.Data = data
	return tx.Put(e.statePDA, acc)
}

// ensureTokenAccount derives the wallet's associated token account for
// the mint and creates it in the overlay if it does not exist yet.
func (e *Engine) ensureTokenAccount(tx *ledger.Tx, wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account for %s: %w", wallet, err)
	}
	if !tx.Exists(ata) {
		err := tx.Put(ata, &ledger.Account{
			Owner: solana.TokenProgramID,
			Data:  spltoken.NewAccountData(mint, wallet),
		})
		if err != nil {
			return solana.PublicKey{}, err
		}
	}
	return ata, nil
}

func (e *Engine) swapEnvFor(tx *ledger.Tx, wallet solana.PublicKey, f FixedAccounts, vaultA []solana.PublicKey) (SwapEnv, error) {
	wsol, err := e.ensureTokenAccount(tx, wallet, f.WSOLMint)
	if err != nil {
		return SwapEnv{}, err
	}
	token, err := e.ensureTokenAccount(tx, wallet, f.TokenMint)
	if err != nil {
		return SwapEnv{}, err
	}
	return SwapEnv{
		UserWallet:        wallet,
		UserWSOLAccount:   wsol,
		UserTokenAccount:  token,
		Pool:              f.Pool,
		AVault:            vaultA[0],
		AVaultLP:          vaultA[1],
		AVaultLPMint:      vaultA[2],
		ATokenVault:       vaultA[3],
		BVault:            f.BVault,
		BVaultLP:          f.BVaultLP,
		BVaultLPMint:      f.BVaultLPMint,
		BTokenVault:       f.BTokenVault,
		TokenMint:         f.TokenMint,
		ProtocolTokenBFee: f.ProtocolTokenBFee,
	}, nil
}
