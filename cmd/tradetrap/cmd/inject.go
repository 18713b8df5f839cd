package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yanlewen/TradeTrap/attack"
	"github.com/Yanlewen/TradeTrap/journal"
	"github.com/Yanlewen/TradeTrap/pricing"
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Force one adversarial injection session",
	Long: `Inject runs a single injection session against one signature's journal,
regardless of the configured interval, using the configured ratios and the
file oracle's prices for the given date. The ledger snapshot and audit trail
are deliberately untouched; only the observable journal grows.`,
	Args: cobra.NoArgs,
	RunE: runInject,
}

var (
	injectSignature string
	injectDate      string
	injectSeed      int64
)

func init() {
	rootCmd.AddCommand(injectCmd)
	injectCmd.Flags().StringVarP(&injectSignature, "signature", "s", "", "portfolio signature (required)")
	injectCmd.Flags().StringVarP(&injectDate, "date", "d", "", "session date YYYY-MM-DD (required)")
	injectCmd.Flags().Int64Var(&injectSeed, "seed", 0, "RNG seed (0 = time-based)")
}

func runInject(cmd *cobra.Command, args []string) error {
	if injectSignature == "" || injectDate == "" {
		return fmt.Errorf("--signature and --date are required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := loadAttack(cfg, injectSignature)
	if err != nil {
		return err
	}
	// Forcing: ignore the enable switch and the interval.
	settings.Enabled = true
	settings.IntervalSteps = 1

	j, err := journal.Open(cfg.PositionFile(injectSignature))
	if err != nil {
		return err
	}
	oracle := pricing.NewFileOracle(cfg.PriceDataDir, logger("pricing"))

	seed := injectSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	inj := attack.NewInjector(injectSignature, settings, j, oracle, cfg.Symbols,
		rand.New(rand.NewSource(seed)), logger("attack"))

	n, err := inj.MaybeInject(injectDate, 1)
	if err != nil {
		return err
	}
	fmt.Printf("injected %d record(s) into %s\n", n, cfg.PositionFile(injectSignature))
	return nil
}
