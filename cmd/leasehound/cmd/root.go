// Package cmd provides the CLI commands for leasehound.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/medleyre/leasehound/internal/config"
	"github.com/medleyre/leasehound/internal/logging"
	"github.com/medleyre/leasehound/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the leasehound CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leasehound",
		Short: "Conversational search over commercial lease documents",
		Long: `Leasehound answers questions about commercial leases with hybrid
retrieval: BM25 keyword search and semantic vector search fused into a
single ranking, grounded answers generated by a language model.

Index lease chunks with 'leasehound index', then ask one-shot questions
with 'leasehound query' or hold a conversation with 'leasehound chat'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("leasehound version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.leasehound/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.leasehound/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging configures slog. Logs always go to the rotating file; the
// debug flag lowers the level and mirrors to stderr.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	path := configPath
	explicit := path != ""
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path, explicit)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
