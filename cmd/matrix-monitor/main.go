package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/matrix"
)

const (
	defaultMetricsAddr  = ":8080"
	defaultPollInterval = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "show debug logs")
	solanaEnvFlag := flag.String("solana-env", config.EnvMainnetBeta, "Solana environment to use")
	programIDFlag := flag.String("program-id", "", "Matrix program ID override")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	pollIntervalFlag := flag.Duration("poll-interval", defaultPollInterval, "interval between program account polls")
	flag.Parse()

	log := newLogger(*verboseFlag)

	netCfg, err := config.NetworkConfigForEnv(*solanaEnvFlag)
	if err != nil {
		log.Error("failed to get network config", "error", err)
		return err
	}

	pid := netCfg.MatrixProgramID
	if *programIDFlag != "" {
		pid, err = solana.PublicKeyFromBase58(*programIDFlag)
		if err != nil {
			log.Error("failed to parse program ID", "error", err)
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	gauges := newGauges(registry)

	if *metricsAddrFlag != "" {
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				os.Exit(1)
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			if err := http.Serve(listener, mux); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
				os.Exit(1)
			}
		}()
	}

	rpcClient := solanarpc.New(netCfg.SolanaRPCURL)
	client := matrix.NewClient(rpcClient, pid)
	clock := clockwork.NewRealClock()

	log.Info("matrix monitor starting",
		"env", *solanaEnvFlag,
		"program", pid,
		"rpc", netCfg.SolanaRPCURL,
		"interval", *pollIntervalFlag,
	)

	ticker := clock.NewTicker(*pollIntervalFlag)
	defer ticker.Stop()

	for {
		if err := poll(ctx, log, client, gauges); err != nil {
			log.Error("poll failed", "error", err)
			gauges.pollErrors.Inc()
		}
		select {
		case <-ctx.Done():
			log.Info("matrix monitor stopping")
			return nil
		case <-ticker.Chan():
		}
	}
}

type gauges struct {
	users            prometheus.Gauge
	usersByFill      *prometheus.GaugeVec
	reservedLamports prometheus.Gauge
	vaultLamports    prometheus.Gauge
	airdropActive    prometheus.Gauge
	nextUplineID     prometheus.Gauge
	nextChainID      prometheus.Gauge
	lastPollTime     prometheus.Gauge
	pollErrors       prometheus.Counter
}

func newGauges(reg prometheus.Registerer) *gauges {
	factory := promauto.With(reg)
	return &gauges{
		users: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "users",
			Help: "Registered user accounts.",
		}),
		usersByFill: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "users_by_filled_slots",
			Help: "User accounts grouped by filled slot count.",
		}, []string{"filled"}),
		reservedLamports: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "reserved_lamports",
			Help: "Sum of escrowed lamports across all users.",
		}),
		vaultLamports: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "vault_lamports",
			Help: "Lamport balance of the escrow vault.",
		}),
		airdropActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "airdrop_active",
			Help: "Whether the airdrop ledger is still active.",
		}),
		nextUplineID: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "next_upline_id",
			Help: "Next upline ID the program will assign.",
		}),
		nextChainID: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "next_chain_id",
			Help: "Next chain ID the program will assign.",
		}),
		lastPollTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "last_poll_timestamp_seconds",
			Help: "Unix time of the last successful poll.",
		}),
		pollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix", Subsystem: "monitor",
			Name: "poll_errors_total",
			Help: "Polls that failed.",
		}),
	}
}

func poll(ctx context.Context, log *slog.Logger, client *matrix.Client, g *gauges) error {
	data, err := client.GetProgramData(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch program data: %w", err)
	}

	g.users.Set(float64(len(data.Users)))

	var reserved uint64
	fills := map[uint8]int{0: 0, 1: 0, 2: 0}
	for _, u := range data.Users {
		reserved += u.ReservedSol
		fills[u.Chain.FilledSlots]++
	}
	for filled, count := range fills {
		g.usersByFill.WithLabelValues(fmt.Sprintf("%d", filled)).Set(float64(count))
	}
	g.reservedLamports.Set(float64(reserved))

	g.airdropActive.Set(boolToFloat(data.State.AirdropActive))
	g.nextUplineID.Set(float64(data.State.NextUplineID))
	g.nextChainID.Set(float64(data.State.NextChainID))

	_, vaultBalance, err := client.GetVaultBalance(ctx)
	if err != nil {
		log.Warn("failed to fetch vault balance", "error", err)
	} else {
		g.vaultLamports.Set(float64(vaultBalance))
	}

	g.lastPollTime.Set(float64(time.Now().Unix()))
	log.Debug("poll complete",
		"users", len(data.Users),
		"reserved_lamports", reserved,
		"vault_lamports", vaultBalance,
	)
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel}))
}
