package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create [service...]",
	Short: "Create a rollback point from the current deployment state",
	Long: `Create a rollback point capturing the image references and configuration
files of the deployment. Without service arguments every currently running
service is captured; with arguments only the named services are, and each
of them must be running.

With --volumes the named volumes attached to the captured services are
archived as well, so a later restore can put volume data back. Volume
archives can be large; use this for stateful services only.

Creation never stops, restarts, or otherwise disturbs running services.`,
	Run: func(cmd *cobra.Command, args []string) {
		description, _ := cmd.Flags().GetString("description")
		includeVolumes, _ := cmd.Flags().GetBool("volumes")

		mgr, cleanup, err := newManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		point, err := mgr.CreateRollbackPoint(cmd.Context(), description, args, includeVolumes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Created rollback point %s\n", point.ID)
		fmt.Printf("  description: %s\n", point.Description)
		fmt.Printf("  services:    %d\n", len(point.Services))
		fmt.Printf("  configs:     %d\n", len(point.ConfigHashes))
		if len(point.Volumes) > 0 {
			fmt.Printf("  volumes:     %d\n", len(point.Volumes))
		}
	},
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "Description for the rollback point")
	createCmd.Flags().Bool("volumes", false, "Also archive named volumes of the captured services")

	rootCmd.AddCommand(createCmd)
}
