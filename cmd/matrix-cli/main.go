package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	"github.com/donutlabs/matrix/amm"
	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
	"github.com/donutlabs/matrix/oracle"
)

func main() {
	solanaEnv := flag.String("solana-env", config.EnvMainnetBeta, "Solana environment (mainnet-beta, devnet, localnet)")
	programID := flag.String("program-id", "", "Matrix program ID override")
	verbose := flag.Bool("verbose", false, "show debug logs")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	netCfg, err := config.NetworkConfigForEnv(*solanaEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --solana-env %q: %v\n", *solanaEnv, err)
		os.Exit(1)
	}

	pid := netCfg.MatrixProgramID
	if *programID != "" {
		pid = solana.MustPublicKeyFromBase58(*programID)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: logLevel}))

	rpcClient := solanarpc.New(netCfg.SolanaRPCURL)
	client := matrix.NewClient(rpcClient, pid)
	addrs := config.FixedAddresses(netCfg)
	ctx := context.Background()

	switch args[0] {
	case "state":
		err = cmdState(ctx, client)
	case "users":
		err = cmdUsers(ctx, client)
	case "user":
		err = cmdUser(ctx, client, args[1:])
	case "vault":
		err = cmdVault(ctx, client)
	case "minimum-deposit":
		err = cmdMinimumDeposit(ctx, log, rpcClient, addrs)
	case "quote":
		err = cmdQuote(ctx, rpcClient, addrs, args[1:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: matrix-cli [flags] <command> [args]

Commands:
  state                 Show program state
  users                 List all registered users
  user <wallet>         Show one user's account, upline, and chain
  vault                 Show the escrow vault balance
  minimum-deposit       Show the current minimum deposit from the price feed
  quote <lamports>      Quote a swap of wrapped lamports against the live pool

Flags:
`)
	flag.PrintDefaults()
}

func cmdState(ctx context.Context, client *matrix.Client) error {
	st, err := client.GetProgramState(ctx)
	if err != nil {
		return err
	}

	addr, _, _ := matrix.DeriveProgramStatePDA(client.ProgramID())

	fmt.Printf("Program State (%s)\n", addr)
	fmt.Printf("%-30s %s\n", "Owner:", st.Owner)
	fmt.Printf("%-30s %s\n", "Multisig Treasury:", st.MultisigTreasury)
	fmt.Printf("%-30s %d\n", "Next Upline ID:", st.NextUplineID)
	fmt.Printf("%-30s %d\n", "Next Chain ID:", st.NextChainID)
	fmt.Printf("%-30s %v\n", "Airdrop Active:", st.AirdropActive)
	if st.AirdropDeactivatedAt != 0 {
		fmt.Printf("%-30s %d\n", "Airdrop Deactivated At:", st.AirdropDeactivatedAt)
	}
	return nil
}

func cmdUsers(ctx context.Context, client *matrix.Client) error {
	data, err := client.GetProgramData(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Users (%d total)\n\n", len(data.Users))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WALLET\tDEPTH\tFILLED\tRESERVED\n")
	fmt.Fprintf(w, "------\t-----\t------\t--------\n")
	for _, u := range data.Users {
		fmt.Fprintf(w, "%s\t%d\t%d/3\t%s\n", u.OwnerWallet, u.Upline.Depth, u.Chain.FilledSlots, formatSOL(u.ReservedSol))
	}
	return w.Flush()
}

func cmdUser(ctx context.Context, client *matrix.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: user <wallet>")
	}
	wallet, err := solana.PublicKeyFromBase58(args[0])
	if err != nil {
		return fmt.Errorf("invalid wallet: %w", err)
	}

	user, err := client.GetUser(ctx, wallet)
	if err != nil {
		return err
	}

	fmt.Printf("User Account (%s)\n", user.PubKey)
	fmt.Printf("%-30s %s\n", "Owner Wallet:", user.OwnerWallet)
	if user.Referrer != nil {
		fmt.Printf("%-30s %s\n", "Referrer:", *user.Referrer)
	} else {
		fmt.Printf("%-30s (root)\n", "Referrer:")
	}
	fmt.Printf("%-30s %d\n", "Upline ID:", user.Upline.ID)
	fmt.Printf("%-30s %d\n", "Depth:", user.Upline.Depth)
	fmt.Printf("%-30s %d\n", "Chain ID:", user.Chain.ID)
	fmt.Printf("%-30s %d/3\n", "Filled Slots:", user.Chain.FilledSlots)
	fmt.Printf("%-30s %s\n", "Reserved:", formatSOL(user.ReservedSol))

	if len(user.Upline.Entries) > 0 {
		fmt.Println()
		fmt.Println("Upline (root-most first):")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  #\tACCOUNT\tWALLET\n")
		for i, e := range user.Upline.Entries {
			fmt.Fprintf(w, "  %d\t%s\t%s\n", i, e.PDA, e.Wallet)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	for i, slot := range user.Chain.Slots {
		if slot != nil {
			fmt.Printf("%-30s %s\n", fmt.Sprintf("Slot %d:", i+1), *slot)
		}
	}
	return nil
}

func cmdVault(ctx context.Context, client *matrix.Client) error {
	vault, lamports, err := client.GetVaultBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Escrow Vault (%s)\n", vault)
	fmt.Printf("%-30s %s\n", "Balance:", formatSOL(lamports))
	return nil
}

func cmdMinimumDeposit(ctx context.Context, log *slog.Logger, rpcClient *solanarpc.Client, addrs config.Addresses) error {
	tx, err := snapshotAccounts(ctx, rpcClient, addrs.SolUsdFeed)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	o := oracle.New(log, clockwork.NewRealClock(), oracle.DefaultCacheTTL)
	round, err := o.LatestRound(tx, addrs.SolUsdFeed)
	if err != nil {
		return err
	}
	minimum, err := o.MinimumDeposit(ctx, tx, addrs.SolUsdFeed)
	if err != nil {
		return err
	}

	fmt.Printf("%-30s %s USD\n", "SOL/USD Price:", round)
	fmt.Printf("%-30s %d\n", "Feed Timestamp:", round.Timestamp)
	fmt.Printf("%-30s %s\n", "Minimum Deposit:", formatSOL(minimum))
	return nil
}

func cmdQuote(ctx context.Context, rpcClient *solanarpc.Client, addrs config.Addresses, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: quote <lamports>")
	}
	amountIn, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	env := matrix.SwapEnv{
		Pool:         addrs.Pool,
		AVault:       addrs.AVault,
		AVaultLP:     addrs.AVaultLP,
		AVaultLPMint: addrs.AVaultLPMint,
		ATokenVault:  addrs.ATokenVault,
		BVault:       addrs.BVault,
		BVaultLP:     addrs.BVaultLP,
		BVaultLPMint: addrs.BVaultLPMint,
		BTokenVault:  addrs.BTokenVault,
		TokenMint:    addrs.TokenMint,
	}
	tx, err := snapshotAccounts(ctx, rpcClient,
		env.Pool,
		env.AVault, env.AVaultLP, env.AVaultLPMint, env.ATokenVault,
		env.BVault, env.BVaultLP, env.BVaultLPMint, env.BTokenVault,
	)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	snap, err := amm.Snapshot(tx, env)
	if err != nil {
		return err
	}
	expected, minimum, err := amm.Quote(snap, amountIn)
	if err != nil {
		return err
	}

	fmt.Printf("%-30s %d\n", "Token A Reserve:", snap.TokenAAmount)
	fmt.Printf("%-30s %d\n", "Token B Reserve:", snap.TokenBAmount)
	fmt.Printf("%-30s %s\n", "Amount In:", formatSOL(amountIn))
	fmt.Printf("%-30s %d\n", "Expected Out:", expected)
	fmt.Printf("%-30s %d\n", "Minimum Out:", minimum)
	return nil
}

// snapshotAccounts pulls live accounts into a local store so the
// ledger-backed packages can read them.
func snapshotAccounts(ctx context.Context, rpcClient *solanarpc.Client, keys ...solana.PublicKey) (*ledger.Tx, error) {
	store := ledger.NewStore()
	for _, key := range keys {
		out, err := rpcClient.GetAccountInfo(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
		}
		store.SetAccount(key, &ledger.Account{
			Lamports: out.Value.Lamports,
			Owner:    out.Value.Owner,
			Data:     out.Value.Data.GetBinary(),
		})
	}
	return store.Begin(), nil
}

func formatSOL(lamports uint64) string {
	sol := float64(lamports) / 1e9
	return fmt.Sprintf("%.9f SOL (%d lamports)", sol, lamports)
}
