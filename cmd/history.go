package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"dosnap/internal/history"

	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent rollback executions",
	Long: `Show the audit trail of recent rollback executions, newest first.
Requires HISTORY_DB to be configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		if AppConfig.HistoryDB == "" {
			fmt.Fprintln(os.Stderr, "Error: HISTORY_DB is not configured")
			os.Exit(1)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		collector, err := history.NewCollector(AppConfig.HistoryDB, history.DefaultRetentionConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer collector.Close()

		executions, err := collector.RecentExecutions(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(executions) == 0 {
			fmt.Println("No rollback executions recorded.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tPOINT\tRESULT\tDURATION\tDESCRIPTION")
		for _, e := range executions {
			result := "failed"
			if e.Success {
				result = "ok"
			}
			if e.DryRun {
				result += " (dry-run)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.StartedAt.Local().Format(time.RFC3339),
				e.PointID,
				result,
				e.Duration.Round(time.Millisecond),
				e.Description,
			)
		}
		w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of executions to show")

	rootCmd.AddCommand(historyCmd)
}
