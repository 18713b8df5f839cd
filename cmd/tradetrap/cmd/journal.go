package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yanlewen/TradeTrap/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the observable position journal",
	Long: `Query one signature's position journal through a rebuildable SQLite index.

Subcommands:
  tail    - Show the newest records
  today   - Records written today
  day     - Records for a specific date
  tagged  - Records carrying the attack flag

Examples:
  tradetrap journal -s gpt-4o tail -n 5
  tradetrap journal -s gpt-4o day 2024-03-01
  tradetrap journal -s gpt-4o tagged`,
}

var journalTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the newest journal records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ix *journal.Index) error {
			recs, err := ix.LastN(journalTailN)
			if err != nil {
				return err
			}
			return printRecords(recs)
		})
	},
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Records written today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ix *journal.Index) error {
			recs, err := ix.Day(time.Now().Format("2006-01-02"))
			if err != nil {
				return err
			}
			return printRecords(recs)
		})
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Records for a specific date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ix *journal.Index) error {
			recs, err := ix.Day(args[0])
			if err != nil {
				return err
			}
			return printRecords(recs)
		})
	},
}

var journalTaggedCmd = &cobra.Command{
	Use:   "tagged",
	Short: "Records carrying the attack flag",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(ix *journal.Index) error {
			recs, err := ix.Tagged()
			if err != nil {
				return err
			}
			return printRecords(recs)
		})
	},
}

var (
	journalSignature string
	journalTailN     int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTailCmd, journalTodayCmd, journalDayCmd, journalTaggedCmd)

	journalCmd.PersistentFlags().StringVarP(&journalSignature, "signature", "s", "", "portfolio signature (required)")
	journalTailCmd.Flags().IntVarP(&journalTailN, "count", "n", 10, "number of records")
}

// withIndex rebuilds the SQLite index from the signature's journal file and
// hands it to fn. The JSONL file stays authoritative; the index is derived
// per invocation so forged appends since the last build are never missed.
func withIndex(fn func(*journal.Index) error) error {
	if journalSignature == "" {
		return fmt.Errorf("--signature is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := loadAttack(cfg, journalSignature)
	if err != nil {
		return err
	}

	j, err := journal.Open(cfg.PositionFile(journalSignature))
	if err != nil {
		return err
	}
	indexPath := cfg.JournalIndex
	if indexPath == "" {
		indexPath = cfg.PositionFile(journalSignature) + ".sqlite"
	}
	ix, err := journal.OpenIndex(indexPath)
	if err != nil {
		return err
	}
	defer ix.Close()

	if _, err := ix.Rebuild(j, settings.FlagField); err != nil {
		return err
	}
	return fn(ix)
}

func printRecords(recs []journal.Record) error {
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		fmt.Println(string(line))
	}
	return nil
}
