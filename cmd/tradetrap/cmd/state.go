package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the trusted ledger state for a signature",
	Args:  cobra.NoArgs,
	RunE:  runState,
}

var stateSignature string

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().StringVarP(&stateSignature, "signature", "s", "", "portfolio signature (required)")
}

func runState(cmd *cobra.Command, args []string) error {
	if stateSignature == "" {
		return fmt.Errorf("--signature is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := loadAttack(cfg, stateSignature)
	if err != nil {
		return err
	}
	eng, _, err := buildLedger(cfg, newGate(cfg), stateSignature, settings.FlagField, "ledger")
	if err != nil {
		return err
	}
	if err := eng.Recover(cmd.Context()); err != nil {
		return err
	}

	snap, err := eng.Trusted(cmd.Context())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
