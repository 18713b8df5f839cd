package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yanlewen/TradeTrap/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the agent-vs-ledger drift audit trail",
	Long: `Audit prints one signature's audit entries: for each legitimate
settlement, what the caller believed the position was versus what the ledger
actually held, and the per-symbol delta between the two. With --drift-only
entries without measured drift are skipped.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

var (
	auditSignature string
	auditDriftOnly bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVarP(&auditSignature, "signature", "s", "", "portfolio signature (required)")
	auditCmd.Flags().BoolVar(&auditDriftOnly, "drift-only", false, "only entries with a non-empty delta")
}

func runAudit(cmd *cobra.Command, args []string) error {
	if auditSignature == "" {
		return fmt.Errorf("--signature is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rec, err := audit.NewRecorder(cfg.AuditFile(auditSignature))
	if err != nil {
		return err
	}
	entries, err := rec.Entries()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if auditDriftOnly && len(e.Delta) == 0 {
			continue
		}
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fmt.Println(string(line))
	}
	return nil
}
