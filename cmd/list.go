package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List rollback points, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		mgr, cleanup, err := newManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		points, err := mgr.ListRollbackPoints()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(points) == 0 {
			fmt.Println("No rollback points.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSERVICES\tVOLUMES\tDESCRIPTION")
		for _, p := range points {
			volumes := "-"
			if len(p.Volumes) > 0 {
				volumes = fmt.Sprintf("%d", len(p.Volumes))
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				p.ID,
				p.Timestamp.Local().Format(time.RFC3339),
				len(p.Services),
				volumes,
				p.Description,
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
