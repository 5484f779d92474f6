package matrix_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
	"github.com/donutlabs/matrix/spltoken"
)

const (
	minimumDeposit = 100_000_000
	deposit        = 200_000_000
	walletFunding  = 10_000_000_000
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

type fakeOracle struct{ minimum uint64 }

func (o *fakeOracle) MinimumDeposit(context.Context, *ledger.Tx, solana.PublicKey) (uint64, error) {
	return o.minimum, nil
}

// fakeSwapper consumes the wrapped balance one-for-one and drains the
// backing lamports to a sink so conservation stays checkable.
type fakeSwapper struct {
	burnSink solana.PublicKey
	calls    []uint64
	err      error
}

func (s *fakeSwapper) SwapAndBurn(_ context.Context, tx *ledger.Tx, env matrix.SwapEnv, amountIn uint64) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	acc, err := tx.Get(env.UserWSOLAccount)
	if err != nil {
		return 0, err
	}
	balance, err := spltoken.Amount(acc.Data)
	if err != nil {
		return 0, err
	}
	if balance < amountIn {
		return 0, fmt.Errorf("wrapped balance %d below %d", balance, amountIn)
	}
	if err := spltoken.SetAmount(acc.Data, balance-amountIn); err != nil {
		return 0, err
	}
	if err := tx.Transfer(env.UserWSOLAccount, s.burnSink, amountIn); err != nil {
		return 0, err
	}
	s.calls = append(s.calls, amountIn)
	return amountIn, nil
}

type notifyCall struct {
	beneficiary solana.PublicKey
	hint        int
	isLast      bool
}

type fakeNotifier struct {
	calls []notifyCall
	err   error
}

func (n *fakeNotifier) NotifyCompletion(_ context.Context, _ *ledger.Tx, state *matrix.ProgramState, beneficiary solana.PublicKey, _ matrix.AirdropAccounts, hint int, isLast bool) error {
	if n.err != nil {
		return n.err
	}
	if !state.AirdropActive {
		return nil
	}
	n.calls = append(n.calls, notifyCall{beneficiary: beneficiary, hint: hint, isLast: isLast})
	return nil
}

type harness struct {
	t         *testing.T
	store     *ledger.Store
	engine    *matrix.Engine
	programID solana.PublicKey
	addrs     config.Addresses
	fixed     matrix.FixedAccounts
	vaultA    []solana.PublicKey
	treasury  solana.PublicKey
	swapper   *fakeSwapper
	notifier  *fakeNotifier
	metrics   *matrix.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	netCfg, err := config.NetworkConfigForEnv(config.EnvDevnet)
	require.NoError(t, err)
	addrs := config.FixedAddresses(netCfg)

	store := ledger.NewStore()
	burnSink := solana.NewWallet().PublicKey()
	store.SetAccount(burnSink, &ledger.Account{})

	swapper := &fakeSwapper{burnSink: burnSink}
	notifier := &fakeNotifier{}
	metrics := matrix.NewMetrics(prometheus.NewRegistry())
	log := testLogger(t)

	engine, err := matrix.New(
		log,
		store,
		netCfg.MatrixProgramID,
		addrs,
		&fakeOracle{minimum: minimumDeposit},
		swapper,
		notifier,
		matrix.WithEventSink(matrix.NewLogSink(log)),
		matrix.WithMetrics(metrics),
	)
	require.NoError(t, err)

	h := &harness{
		t:         t,
		store:     store,
		engine:    engine,
		programID: netCfg.MatrixProgramID,
		addrs:     addrs,
		fixed: matrix.FixedAccounts{
			Pool:              addrs.Pool,
			BVault:            addrs.BVault,
			BVaultLP:          addrs.BVaultLP,
			BVaultLPMint:      addrs.BVaultLPMint,
			BTokenVault:       addrs.BTokenVault,
			VaultProgram:      addrs.VaultProgram,
			AmmProgram:        addrs.AmmProgram,
			TokenMint:         addrs.TokenMint,
			WSOLMint:          addrs.WSOLMint,
			ProtocolTokenBFee: addrs.ProtocolTokenBFee,
		},
		vaultA:   []solana.PublicKey{addrs.AVault, addrs.AVaultLP, addrs.AVaultLPMint, addrs.ATokenVault},
		treasury: addrs.MultisigTreasury,
		swapper:  swapper,
		notifier: notifier,
		metrics:  metrics,
	}

	require.NoError(t, engine.Initialize(context.Background(), matrix.InitializeParams{
		Authority:        addrs.AuthorizedInitializer,
		MultisigTreasury: addrs.MultisigTreasury,
	}))
	return h
}

func (h *harness) fundWallet() solana.PublicKey {
	wallet := solana.NewWallet().PublicKey()
	h.store.SetAccount(wallet, &ledger.Account{Lamports: walletFunding})
	return wallet
}

func (h *harness) registerRoot() solana.PublicKey {
	h.t.Helper()
	wallet := h.fundWallet()
	err := h.engine.RegisterRoot(context.Background(), matrix.RegisterRootParams{
		Authority:     h.treasury,
		UserWallet:    wallet,
		DepositAmount: deposit,
		Fixed:         h.fixed,
		VaultA:        h.vaultA,
	})
	require.NoError(h.t, err)
	return wallet
}

// register funds a fresh wallet and registers it under the referrer,
// building the upline pair list from the referrer's stored entries
// the way a client would.
func (h *harness) register(referrerWallet solana.PublicKey) (solana.PublicKey, error) {
	h.t.Helper()
	wallet := h.fundWallet()
	return wallet, h.registerWallet(wallet, referrerWallet, h.uplinePairsFor(referrerWallet))
}

func (h *harness) registerWallet(wallet, referrerWallet solana.PublicKey, uplines []solana.PublicKey) error {
	h.t.Helper()
	referrerPDA, _, err := matrix.DeriveUserAccountPDA(h.programID, referrerWallet)
	require.NoError(h.t, err)
	return h.engine.RegisterWithDeposit(context.Background(), matrix.RegisterWithDepositParams{
		UserWallet:     wallet,
		DepositAmount:  deposit,
		Referrer:       referrerPDA,
		ReferrerWallet: referrerWallet,
		Fixed:          h.fixed,
		VaultA:         h.vaultA,
		OracleFeed:     h.addrs.SolUsdFeed,
		OracleProgram:  h.addrs.ChainlinkProgram,
		Uplines:        uplines,
	})
}

func (h *harness) uplinePairsFor(referrerWallet solana.PublicKey) []solana.PublicKey {
	h.t.Helper()
	referrer, err := h.engine.UserByWallet(referrerWallet)
	require.NoError(h.t, err)
	pairs := make([]solana.PublicKey, 0, 2*len(referrer.Upline.Entries))
	for _, entry := range referrer.Upline.Entries {
		pairs = append(pairs, entry.PDA, entry.Wallet)
	}
	return pairs
}

func (h *harness) user(wallet solana.PublicKey) *matrix.UserAccount {
	h.t.Helper()
	user, err := h.engine.UserByWallet(wallet)
	require.NoError(h.t, err)
	return user
}

func (h *harness) vaultLamports() uint64 {
	h.t.Helper()
	acc := h.store.GetAccount(h.engine.SolVaultPDA())
	require.NotNil(h.t, acc)
	return acc.Lamports
}

func TestEngine_Initialize(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	st, err := h.engine.State()
	require.NoError(t, err)
	require.True(t, st.AirdropActive)
	require.Equal(t, uint32(1), st.NextUplineID)
	require.Equal(t, uint32(1), st.NextChainID)
	require.Equal(t, h.treasury, st.MultisigTreasury)

	// Initializing twice fails.
	err = h.engine.Initialize(context.Background(), matrix.InitializeParams{
		Authority:        h.addrs.AuthorizedInitializer,
		MultisigTreasury: h.treasury,
	})
	require.ErrorIs(t, err, matrix.ErrAlreadyInitialized)
}

func TestEngine_InitializeRejectsUnknownAuthority(t *testing.T) {
	t.Parallel()

	netCfg, err := config.NetworkConfigForEnv(config.EnvDevnet)
	require.NoError(t, err)
	addrs := config.FixedAddresses(netCfg)

	engine, err := matrix.New(testLogger(t), ledger.NewStore(), netCfg.MatrixProgramID, addrs, &fakeOracle{}, &fakeSwapper{}, &fakeNotifier{})
	require.NoError(t, err)

	err = engine.Initialize(context.Background(), matrix.InitializeParams{
		Authority:        solana.NewWallet().PublicKey(),
		MultisigTreasury: addrs.MultisigTreasury,
	})
	require.ErrorIs(t, err, matrix.ErrNotAuthorized)
}

func TestEngine_RegisterRoot(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()

	user := h.user(root)
	require.True(t, user.IsRegistered)
	require.Nil(t, user.Referrer)
	require.Empty(t, user.Upline.Entries)
	require.Equal(t, uint8(1), user.Upline.Depth)
	require.Zero(t, user.Chain.FilledSlots)

	// The whole deposit was swapped and burned.
	require.Equal(t, []uint64{deposit}, h.swapper.calls)
}

func TestEngine_RegisterRootRequiresTreasury(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wallet := h.fundWallet()
	err := h.engine.RegisterRoot(context.Background(), matrix.RegisterRootParams{
		Authority:     wallet,
		UserWallet:    wallet,
		DepositAmount: deposit,
		Fixed:         h.fixed,
		VaultA:        h.vaultA,
	})
	require.ErrorIs(t, err, matrix.ErrNotAuthorized)
}

func TestEngine_RegisterRejectsUnknownReferrer(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	wallet := h.fundWallet()
	err := h.registerWallet(wallet, solana.NewWallet().PublicKey(), nil)
	require.ErrorIs(t, err, matrix.ErrReferrerNotRegistered)
}

func TestEngine_RegisterRejectsLowDeposit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	rootPDA, _, err := matrix.DeriveUserAccountPDA(h.programID, root)
	require.NoError(t, err)

	wallet := h.fundWallet()
	err = h.engine.RegisterWithDeposit(context.Background(), matrix.RegisterWithDepositParams{
		UserWallet:     wallet,
		DepositAmount:  minimumDeposit - 1,
		Referrer:       rootPDA,
		ReferrerWallet: root,
		Fixed:          h.fixed,
		VaultA:         h.vaultA,
		OracleFeed:     h.addrs.SolUsdFeed,
		OracleProgram:  h.addrs.ChainlinkProgram,
	})
	require.ErrorIs(t, err, matrix.ErrInsufficientDeposit)

	// Nothing was created.
	_, err = h.engine.UserByWallet(wallet)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestEngine_RegisterRejectsWrongPool(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	fixed := h.fixed
	fixed.Pool = solana.NewWallet().PublicKey()

	wallet := h.fundWallet()
	rootPDA, _, err := matrix.DeriveUserAccountPDA(h.programID, root)
	require.NoError(t, err)
	err = h.engine.RegisterWithDeposit(context.Background(), matrix.RegisterWithDepositParams{
		UserWallet:     wallet,
		DepositAmount:  deposit,
		Referrer:       rootPDA,
		ReferrerWallet: root,
		Fixed:          fixed,
		VaultA:         h.vaultA,
		OracleFeed:     h.addrs.SolUsdFeed,
		OracleProgram:  h.addrs.ChainlinkProgram,
	})
	require.ErrorIs(t, err, matrix.ErrInvalidPoolAddress)
}

func TestEngine_SlotOneBurnsDeposit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	h.swapper.calls = nil

	u1, err := h.register(root)
	require.NoError(t, err)

	require.Equal(t, []uint64{deposit}, h.swapper.calls)
	require.Equal(t, uint8(1), h.user(root).Chain.FilledSlots)

	user := h.user(u1)
	require.Equal(t, []matrix.UplineEntry{{
		PDA:    mustUserPDA(t, h.programID, root),
		Wallet: root,
	}}, user.Upline.Entries)
	require.Equal(t, uint8(2), user.Upline.Depth)
}

func TestEngine_SlotTwoReservesDeposit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	_, err := h.register(root)
	require.NoError(t, err)

	_, err = h.register(root)
	require.NoError(t, err)

	require.Equal(t, uint64(deposit), h.vaultLamports())
	rootUser := h.user(root)
	require.Equal(t, uint8(2), rootUser.Chain.FilledSlots)
	require.Equal(t, uint64(deposit), rootUser.ReservedSol)
}

func TestEngine_SlotThreeCompletesAndPaysOut(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	_, err := h.register(root)
	require.NoError(t, err)
	_, err = h.register(root)
	require.NoError(t, err)

	h.swapper.calls = nil
	rootBefore := h.store.GetAccount(root).Lamports
	chainBefore := h.user(root).Chain.ID

	_, err = h.register(root)
	require.NoError(t, err)

	// The reserve was paid out and the matrix reset under a new ID.
	require.Equal(t, rootBefore+deposit, h.store.GetAccount(root).Lamports)
	require.Zero(t, h.vaultLamports())
	rootUser := h.user(root)
	require.Zero(t, rootUser.Chain.FilledSlots)
	require.Zero(t, rootUser.ReservedSol)
	require.NotEqual(t, chainBefore, rootUser.Chain.ID)

	// The root has no ancestors, so the carried deposit burned.
	require.Equal(t, []uint64{deposit}, h.swapper.calls)

	// Exactly one completion notification, marked last.
	require.Equal(t, []notifyCall{{beneficiary: root, hint: 0, isLast: true}}, h.notifier.calls)
}

func TestEngine_RecursionClimbsIntoAncestorSlot(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	a, err := h.register(root) // root slot 1
	require.NoError(t, err)

	// Fill a's matrix completely; the completion climbs a into root's
	// next open slot (slot 2, a burn already happened at slot 1... the
	// root is at one filled slot, so a lands in slot 2 and reserves).
	_, err = h.register(a)
	require.NoError(t, err)
	_, err = h.register(a)
	require.NoError(t, err)

	h.notifier.calls = nil
	_, err = h.register(a)
	require.NoError(t, err)

	// a completed; root absorbed the climb at slot 2 and holds the
	// deposit in escrow for a's registration.
	aUser := h.user(a)
	require.Zero(t, aUser.Chain.FilledSlots)
	rootUser := h.user(root)
	require.Equal(t, uint8(2), rootUser.Chain.FilledSlots)
	require.Equal(t, uint64(deposit), rootUser.ReservedSol)
	require.Equal(t, uint64(deposit), h.vaultLamports())

	// Root's matrix did not complete, so only a was notified.
	require.Equal(t, []notifyCall{{beneficiary: a, hint: 0, isLast: true}}, h.notifier.calls)

	// Root's slot 2 records a's account, not the new user's.
	require.Equal(t, mustUserPDA(t, h.programID, a), *rootUser.Chain.Slots[1])
}

func TestEngine_CascadedCompletionsNotifyInOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()

	a, err := h.register(root) // root 1/3
	require.NoError(t, err)
	_, err = h.register(root) // root 2/3, reserve in escrow
	require.NoError(t, err)

	_, err = h.register(a) // a 1/3
	require.NoError(t, err)
	_, err = h.register(a) // a 2/3
	require.NoError(t, err)

	h.notifier.calls = nil
	h.swapper.calls = nil
	rootBefore := h.store.GetAccount(root).Lamports

	// Completing a's matrix climbs into root's slot 3: root is paid,
	// root completes too, and the deposit falls through to a burn.
	_, err = h.register(a)
	require.NoError(t, err)

	require.Equal(t, []notifyCall{
		{beneficiary: a, hint: 0, isLast: false},
		{beneficiary: root, hint: 1, isLast: true},
	}, h.notifier.calls)

	require.Equal(t, rootBefore+deposit, h.store.GetAccount(root).Lamports)
	require.Zero(t, h.user(root).Chain.FilledSlots)
	require.Zero(t, h.user(a).Chain.FilledSlots)

	// Slot 3 payout for a, then the fallback burn of the new deposit.
	require.Equal(t, []uint64{deposit}, h.swapper.calls)
}

func TestEngine_DeepCascadeExhaustsUplineAndBurns(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()

	// Six-deep referral chain: each node referred by the previous one.
	chain := []solana.PublicKey{root}
	for i := 0; i < 5; i++ {
		next, err := h.register(chain[len(chain)-1])
		require.NoError(t, err)
		chain = append(chain, next)
	}

	// Each chain registration filled its referrer's first slot; bring
	// every node to two filled slots with a reserve in escrow.
	for i, node := range chain {
		if i == len(chain)-1 {
			_, err := h.register(node)
			require.NoError(t, err)
		}
		_, err := h.register(node)
		require.NoError(t, err)
		require.Equal(t, uint8(2), h.user(node).Chain.FilledSlots)
		require.Equal(t, uint64(deposit), h.user(node).ReservedSol)
	}
	require.Equal(t, uint64(len(chain))*deposit, h.vaultLamports())

	deepest := chain[len(chain)-1]
	pairs := h.uplinePairsFor(deepest)
	require.Len(t, pairs, 2*(len(chain)-1))

	before := make([]uint64, len(chain))
	for i, node := range chain {
		before[i] = h.store.GetAccount(node).Lamports
	}
	h.notifier.calls = nil
	h.swapper.calls = nil

	// The final registration completes the deepest matrix and every
	// ancestor's in turn; the walk runs out of ancestors with the
	// deposit still carried, so it falls through to a burn.
	wallet := h.fundWallet()
	require.NoError(t, h.registerWallet(wallet, deepest, pairs))

	// All six matrices paid out their reserve and reset.
	require.Zero(t, h.vaultLamports())
	for i, node := range chain {
		user := h.user(node)
		require.Zero(t, user.Chain.FilledSlots)
		require.Zero(t, user.ReservedSol)
		require.Equal(t, before[i]+deposit, h.store.GetAccount(node).Lamports)
	}

	// One notification per completion, referrer first, then the stored
	// ancestor order, isLast only on the sixth.
	require.Len(t, h.notifier.calls, len(chain))
	wantOrder := append([]solana.PublicKey{deepest}, chain[:len(chain)-1]...)
	for i, call := range h.notifier.calls {
		require.Equal(t, wantOrder[i], call.beneficiary)
		require.Equal(t, i, call.hint)
		require.Equal(t, i == len(chain)-1, call.isLast)
	}

	// No slot consumed the deposit, so it burned once at the end.
	require.Equal(t, []uint64{deposit}, h.swapper.calls)
}

func TestEngine_MetricsCountActivity(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()

	a, err := h.register(root) // root 1/3, burn
	require.NoError(t, err)
	_, err = h.register(root) // root 2/3, reserve
	require.NoError(t, err)
	_, err = h.register(a) // a 1/3, burn
	require.NoError(t, err)
	_, err = h.register(a) // a 2/3, reserve
	require.NoError(t, err)
	_, err = h.register(a) // a completes, cascades into root, fallback burn
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Registrations.WithLabelValues("root")))
	require.Equal(t, float64(5), testutil.ToFloat64(h.metrics.Registrations.WithLabelValues("referred")))
	for slot := 0; slot < 3; slot++ {
		require.Equal(t, float64(2), testutil.ToFloat64(h.metrics.SlotFills.WithLabelValues(strconv.Itoa(slot))))
	}
	require.Equal(t, float64(2), testutil.ToFloat64(h.metrics.Completions))
	require.Equal(t, float64(2), testutil.ToFloat64(h.metrics.Notifications))
	require.Equal(t, float64(1), testutil.ToFloat64(h.metrics.FallbackBurns))

	// Root's registration, two slot 1 fills, and the fallback burned;
	// two deposits were escrowed and both escrows paid out.
	require.Equal(t, float64(4*deposit), testutil.ToFloat64(h.metrics.BurnedTokens))
	require.Equal(t, float64(2*deposit), testutil.ToFloat64(h.metrics.ReservedLamports))
	require.Equal(t, float64(2*deposit), testutil.ToFloat64(h.metrics.PaidLamports))
}

func TestEngine_UplineValidation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	a, err := h.register(root)
	require.NoError(t, err)
	b, err := h.register(a)
	require.NoError(t, err)

	// b's upline is [root, a]. Fill b to two slots.
	_, err = h.register(b)
	require.NoError(t, err)
	_, err = h.register(b)
	require.NoError(t, err)

	good := h.uplinePairsFor(b)
	require.Len(t, good, 4)

	tests := []struct {
		name    string
		uplines []solana.PublicKey
		wantErr error
	}{
		{
			name:    "reversed order",
			uplines: []solana.PublicKey{good[2], good[3], good[0], good[1]},
			wantErr: matrix.ErrInvalidUplineOrder,
		},
		{
			name:    "substituted wallet",
			uplines: []solana.PublicKey{good[0], solana.NewWallet().PublicKey(), good[2], good[3]},
			wantErr: matrix.ErrInvalidUplineWallet,
		},
		{
			name:    "truncated list",
			uplines: []solana.PublicKey{good[0], good[1]},
			wantErr: matrix.ErrMissingUplineAccount,
		},
		{
			name:    "odd account count",
			uplines: good[:3],
			wantErr: matrix.ErrMissingUplineAccount,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wallet := h.fundWallet()
			err := h.registerWallet(wallet, b, test.uplines)
			require.ErrorIs(t, err, test.wantErr)

			// The failed registration left no trace.
			_, err = h.engine.UserByWallet(wallet)
			require.ErrorIs(t, err, ledger.ErrAccountNotFound)
		})
	}

	// The untampered list still works.
	_, err = h.register(b)
	require.NoError(t, err)
}

func TestEngine_NotifyFailureRollsBackRegistration(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()
	_, err := h.register(root)
	require.NoError(t, err)
	_, err = h.register(root)
	require.NoError(t, err)

	vaultBefore := h.vaultLamports()
	rootBefore := h.user(root)

	h.notifier.err = errors.New("subledger unavailable")
	wallet := h.fundWallet()
	err = h.registerWallet(wallet, root, nil)
	require.ErrorIs(t, err, matrix.ErrAirdropNotifyFailed)

	// Every mutation rolled back: no user, untouched escrow, referrer
	// matrix still at two slots.
	_, err = h.engine.UserByWallet(wallet)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	require.Equal(t, vaultBefore, h.vaultLamports())
	require.Equal(t, rootBefore.Chain.FilledSlots, h.user(root).Chain.FilledSlots)
	require.Equal(t, rootBefore.ReservedSol, h.user(root).ReservedSol)
	require.Equal(t, uint64(walletFunding), h.store.GetAccount(wallet).Lamports)
}

func TestEngine_SwapFailureRollsBackRegistration(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()

	h.swapper.err = matrix.ErrSwapFailed
	wallet := h.fundWallet()
	err := h.registerWallet(wallet, root, nil)
	require.ErrorIs(t, err, matrix.ErrSwapFailed)

	_, err = h.engine.UserByWallet(wallet)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
	require.Zero(t, h.user(root).Chain.FilledSlots)
	require.Equal(t, uint64(walletFunding), h.store.GetAccount(wallet).Lamports)
}

func TestEngine_DepositConservation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	root := h.registerRoot()

	wallets := []solana.PublicKey{root}
	for i := 0; i < 5; i++ {
		w, err := h.register(root)
		require.NoError(t, err)
		wallets = append(wallets, w)
	}

	// Every deposit is accounted for: still on a wallet, in escrow,
	// or drained to the burn sink. Nothing vanished.
	var total uint64
	for _, w := range wallets {
		total += h.store.GetAccount(w).Lamports
	}
	total += h.vaultLamports()
	total += h.store.GetAccount(h.swapper.burnSink).Lamports

	require.Equal(t, uint64(len(wallets))*walletFunding, total)
}

func mustUserPDA(t *testing.T, programID, wallet solana.PublicKey) solana.PublicKey {
	t.Helper()
	pda, _, err := matrix.DeriveUserAccountPDA(programID, wallet)
	require.NoError(t, err)
	return pda
}
