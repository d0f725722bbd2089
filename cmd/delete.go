package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <rollback-point-id>",
	Short: "Delete a rollback point and its backing files",
	Args:  exactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mgr, cleanup, err := newManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		removed, err := mgr.DeleteRollbackPoint(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if removed {
			fmt.Printf("Deleted rollback point %s\n", args[0])
		} else {
			fmt.Printf("Rollback point %s does not exist\n", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
