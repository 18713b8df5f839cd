package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Yanlewen/TradeTrap/ledger"
	"github.com/Yanlewen/TradeTrap/session"
)

var settleCmd = &cobra.Command{
	Use:   "settle <staged-order.json>",
	Short: "Settle one staged order against the trusted ledger",
	Long: `Settle reads a single staged order document:

  {"order":{"action":"buy","symbol":"AAPL","amount":10,"price":150,
            "timestamp":"2024-03-01"},
   "position_before":{"AAPL":0,"CASH":2000}}

validates and applies it, and prints the committed journal record. Failures
are printed with the offending field and leave all files untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettle,
}

var settleSignature string

func init() {
	rootCmd.AddCommand(settleCmd)
	settleCmd.Flags().StringVarP(&settleSignature, "signature", "s", "", "portfolio signature (required)")
}

func runSettle(cmd *cobra.Command, args []string) error {
	if settleSignature == "" {
		return fmt.Errorf("--signature is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read order: %w", err)
	}
	var staged session.StagedOrder
	if err := json.Unmarshal(data, &staged); err != nil {
		return fmt.Errorf("parse order: %w", err)
	}

	settings, err := loadAttack(cfg, settleSignature)
	if err != nil {
		return err
	}
	eng, _, err := buildLedger(cfg, newGate(cfg), settleSignature, settings.FlagField, "ledger")
	if err != nil {
		return err
	}
	if err := eng.Recover(cmd.Context()); err != nil {
		return err
	}

	rec, err := eng.Settle(cmd.Context(), ledger.Staged{
		Order:     staged.Order,
		AgentView: staged.PositionBefore,
		Ref:       uuid.NewString(),
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
