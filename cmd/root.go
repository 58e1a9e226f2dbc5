package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mj1618/uiautomator-server/internal/config"
	"github.com/mj1618/uiautomator-server/internal/observability"
	"github.com/mj1618/uiautomator-server/internal/output"
)

// Build information, set with -ldflags "-X".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfgFile string
	// appConfig and logger are set by the root command before any
	// subcommand runs.
	appConfig *config.Config
	logger    = zap.NewNop()
	printer   output.Printer
)

// flagKeys binds command-line flags to configuration keys. A flag set on
// the command line wins over the environment and the config file.
var flagKeys = map[string]string{
	"log-level":     "logger.level",
	"log-format":    "logger.format",
	"host":          "server.host",
	"port":          "server.port",
	"base-path":     "server.base_path",
	"fixture":       "platform.fixture",
	"implicit-wait": "finder.implicit_wait",
	"poll-interval": "finder.poll_interval",
}

var rootCmd = &cobra.Command{
	Use:   "uiautomator-server",
	Short: "On-device UI automation server",
	Long: `An automation server that exposes the accessibility tree of a device over the
WebDriver JSON wire protocol and as MCP tools, plus offline commands that
evaluate locators against hierarchy dumps.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./uiautomator-server.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log encoding: console, json")
	rootCmd.PersistentFlags().String("format", "yaml", "Output format of offline commands: yaml, json, xml (dump only)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v := config.New()
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return fmt.Errorf("bind flags: %w", bindErr)
		}
		cfg, err := config.NewConfigFromViper(v)
		if err != nil {
			return err
		}
		appConfig = cfg
		logger, _ = observability.NewStderrLogger(cfg.Logger)

		// Use the root persistent flag directly.
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		pretty, _ := rootCmd.PersistentFlags().GetBool("pretty")
		printer = output.Printer{W: cmd.OutOrStdout(), Format: f, Pretty: pretty}
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return observability.Sync(logger)
	}
}
