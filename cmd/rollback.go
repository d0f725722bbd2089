package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// confirmInput is overridable in tests.
var confirmInput = func() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	return strings.TrimSpace(line), err
}

// rollbackCmd represents the rollback command
var rollbackCmd = &cobra.Command{
	Use:   "rollback <rollback-point-id>",
	Short: "Restore the deployment to a rollback point",
	Long: `Restore the deployment to a previously created rollback point.

Affected services are stopped, configuration files and image references are
put back the way they were captured, volume data is restored when the point
includes volume archives, and then everything is started again in dependency
order. Each service's health is verified after the restart.

With --dry-run the command prints what would change without touching any
service. Restoring a point that includes volume archives overwrites the
current volume contents; the command asks for extra confirmation in that
case unless --yes is given.

A failed restore is reported per service and never triggers an automatic
rollback to another point.`,
	Args: exactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		mgr, cleanup, err := newManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		plan, err := mgr.Plan(cmd.Context(), id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(plan.String())

		if dryRun {
			fmt.Println("\nDry run: no services were touched.")
			return
		}

		if !yes {
			fmt.Printf("\nRestore to %s (%q, created %s)?",
				plan.PointID, plan.Description, plan.CreatedAt.Local().Format(time.RFC3339))
			if plan.Destructive() {
				fmt.Printf("\nWARNING: this point includes %d volume archive(s); current volume data will be OVERWRITTEN.", len(plan.Volumes))
			}
			fmt.Print(" [y/N]: ")
			answer, err := confirmInput()
			if err != nil || (answer != "y" && answer != "yes") {
				fmt.Println("Aborted.")
				return
			}
		}

		ok, results, err := mgr.Rollback(cmd.Context(), id, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println()
		for _, r := range results {
			status := "OK"
			if !r.Succeeded {
				status = "FAILED"
				if r.Reason != "" {
					status = "FAILED (" + r.Reason + ")"
				}
			}
			fmt.Printf("  %-20s %-16s %s\n", r.Service, r.State, status)
		}

		if !ok {
			fmt.Fprintln(os.Stderr, "\nRollback finished with failures.")
			os.Exit(1)
		}
		fmt.Println("\nRollback completed, all services healthy.")
	},
}

func init() {
	rollbackCmd.Flags().Bool("dry-run", false, "Show the plan without touching any service")
	rollbackCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompts")

	rootCmd.AddCommand(rollbackCmd)
}
