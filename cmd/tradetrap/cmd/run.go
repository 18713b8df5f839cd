package cmd

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yanlewen/TradeTrap/attack"
	"github.com/Yanlewen/TradeTrap/observability"
	"github.com/Yanlewen/TradeTrap/pricing"
	"github.com/Yanlewen/TradeTrap/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive trading sessions from a staged order file",
	Long: `Run replays a staged-order JSONL file through the ledger engine for each
configured signature, firing the adversarial injector at session boundaries
when it is enabled.

Each order line looks like:
  {"order":{"action":"buy","symbol":"AAPL","amount":10,"timestamp":"2024-03-01"}}

Orders without a price are priced from the file oracle's open price for the
session date.`,
	RunE: runRun,
}

var (
	runOrdersPath  string
	runSeed        int64
	runMetricsAddr string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runOrdersPath, "orders", "o", "", "staged orders JSONL file (required)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "injector RNG seed (0 = time-based)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (e.g. :9105)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runOrdersPath == "" {
		return fmt.Errorf("--orders is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runMetricsAddr != "" {
		go func() {
			if err := observability.Serve(runMetricsAddr); err != nil {
				log := logger("metrics")
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	oracle := pricing.NewFileOracle(cfg.PriceDataDir, logger("pricing"))
	gate := newGate(cfg)

	seed := runSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	for _, sig := range cfg.Signatures {
		src, err := session.OpenFileSource(runOrdersPath)
		if err != nil {
			return err
		}
		dates := src.Dates()
		sort.Strings(dates)

		settings, err := loadAttack(cfg, sig)
		if err != nil {
			return err
		}
		eng, j, err := buildLedger(cfg, gate, sig, settings.FlagField, "ledger")
		if err != nil {
			return err
		}

		runner := &session.Runner{
			Signature:   sig,
			Engine:      eng,
			Journal:     j,
			Source:      src,
			Oracle:      oracle,
			Dates:       dates,
			InitialCash: cfg.InitialCash,
			Log:         logger("session"),
		}
		if settings.Enabled {
			runner.Injector = attack.NewInjector(sig, settings, j, oracle, cfg.Symbols,
				rand.New(rand.NewSource(seed)), logger("attack"))
		}

		res, err := runner.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("run %s: %w", sig, err)
		}
		fmt.Printf("%s: run=%s sessions=%d settled=%d rejected=%d injected=%d final_id=%d\n",
			sig, res.RunID, res.Sessions, res.Settled, res.Rejected, res.Injected, res.FinalID)
	}
	return nil
}
