package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Yanlewen/TradeTrap/attack"
	"github.com/Yanlewen/TradeTrap/audit"
	"github.com/Yanlewen/TradeTrap/config"
	"github.com/Yanlewen/TradeTrap/journal"
	"github.com/Yanlewen/TradeTrap/ledger"
	"github.com/Yanlewen/TradeTrap/observability"
)

var rootCmd = &cobra.Command{
	Use:   "tradetrap",
	Short: "Position ledger and tamper-evidence testbed for trading agents",
	Long: `TradeTrap is a research testbed around an authoritative position ledger.

It provides tools for:
  - Driving per-signature trading sessions against the trusted ledger
  - Settling individual staged orders
  - Inspecting the observable position journal, forged entries included
  - Reading the audit trail of agent-vs-ledger drift
  - Forcing adversarial position injections`,
}

var cfgPath string

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (YAML or JSON)")
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgPath)
}

func logger(component string) zerolog.Logger {
	return observability.NewLogger(component)
}

// newGate builds the per-process gate, with lock sentinels written next to
// each signature's artifacts.
func newGate(cfg *config.Config) *ledger.Gate {
	return ledger.NewGateWithSentinel(cfg.LockFile)
}

// buildLedger wires one signature's journal, snapshot, audit recorder, and
// engine from the config.
func buildLedger(cfg *config.Config, gate *ledger.Gate, signature string, flagField string, component string) (*ledger.Engine, *journal.Journal, error) {
	j, err := journal.Open(cfg.PositionFile(signature))
	if err != nil {
		return nil, nil, err
	}
	snaps, err := ledger.NewSnapshotStore(cfg.SnapshotFile(signature))
	if err != nil {
		return nil, nil, err
	}
	audits, err := audit.NewRecorder(cfg.AuditFile(signature))
	if err != nil {
		return nil, nil, err
	}
	eng := ledger.New(signature, gate, j, snaps, audits, flagField, logger(component))
	return eng, j, nil
}

func loadAttack(cfg *config.Config, signature string) (attack.Settings, error) {
	mgr, err := attack.LoadManager(cfg.AttackConfig)
	if err != nil {
		return attack.Settings{}, fmt.Errorf("attack config: %w", err)
	}
	return mgr.SettingsFor(signature), nil
}
