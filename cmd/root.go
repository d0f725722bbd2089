package cmd

import (
	"fmt"
	"os"

	"dosnap/internal/config"
	"dosnap/internal/dependency"
	"dosnap/internal/history"
	"dosnap/internal/logx"
	"dosnap/internal/rollback"
	"dosnap/internal/runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFilePath string
	configPath  string
	AppConfig   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dosnap",
	Short: "Snapshot and restore Docker Compose deployments",
	Long: `DOSnap captures rollback points for multi-service Docker Compose
deployments and restores them on demand.

A rollback point records, for every captured service, the exact image
reference it was running, a copy of the deployment's configuration files,
and optionally an archive of its named volumes. Restoring a point stops the
affected services, puts configuration and images back the way they were,
optionally restores volume data, then starts everything again in dependency
order and verifies health per service.

Creation never disturbs running services. Restores are best-effort per
service: a failure in one service never prevents the others from being
brought back up.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Allow env file path to be set via ENV_FILE env var if not provided by flag
		if envFilePath == "" {
			envFilePath = os.Getenv("ENV_FILE")
		}

		if envFilePath != "" {
			if err := godotenv.Load(envFilePath); err != nil {
				fmt.Printf("Error loading .env file from '%s'\n", envFilePath)
				return err
			}
		}

		// Allow config path to be set via CONFIG_PATH env var if not provided by flag
		if configPath == "" {
			configPath = os.Getenv("CONFIG_PATH")
		}

		cfg, err := config.LoadConfig(configPath, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		AppConfig = cfg
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// exactArgs mirrors cobra.ExactArgs but exits with code 2, the invalid
// invocation code, instead of the generic failure code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			fmt.Fprintf(os.Stderr, "Error: %s requires exactly %d argument(s), got %d\n", cmd.Name(), n, len(args))
			_ = cmd.Usage()
			os.Exit(2)
		}
		return nil
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = cmd.Usage()
		os.Exit(2)
		return nil
	})

	rootCmd.PersistentFlags().StringVarP(&envFilePath, "env-file", "e", "", "Path to the .env file (optional)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (optional)")
}

func newLogger() logx.Logger {
	logger := logx.NewDefaultLogger()
	if AppConfig != nil && AppConfig.Verbose {
		logger.SetLevel(logx.LogLevelDebug)
	}
	return logger
}

// newManager wires up the rollback manager from the loaded configuration.
// The returned cleanup closes the history database when one is configured.
func newManager() (*rollback.Manager, func(), error) {
	logger := newLogger()

	adapter, err := runtime.NewDockerAdapter(AppConfig.ComposeFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Docker: %w", err)
	}

	mgr, err := rollback.NewManager(AppConfig.ManagerConfig(), adapter, logger)
	if err != nil {
		return nil, nil, err
	}

	// The dependency graph comes from the compose file; a missing or
	// unparsable file just means starts happen in capture order.
	if graph, err := dependency.NewGraphFromComposeFile(AppConfig.ComposeFilePath); err == nil {
		mgr.SetDependencyGraph(graph)
	} else {
		logger.Debug("No dependency graph available: %v", err)
	}

	cleanup := func() {}
	if AppConfig.HistoryDB != "" {
		collector, err := history.NewCollector(AppConfig.HistoryDB, history.DefaultRetentionConfig())
		if err != nil {
			logger.Warn("Execution history disabled: %v", err)
		} else {
			mgr.SetHistory(collector)
			cleanup = func() { _ = collector.Close() }
		}
	}
	return mgr, cleanup, nil
}
