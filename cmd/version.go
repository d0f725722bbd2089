package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version should be updated with each new release
var Version = "v0.0.0"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dosnap",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dosnap version " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
