// vidgallery: a headless local video gallery and player controller. It
// indexes video folders, filters them by name, and drives VLC on this
// machine or a Chromecast on the network.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vidgallery/internal/config"
	xlog "vidgallery/internal/log"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	var g globalFlags
	rootCmd := &cobra.Command{
		Use:           "vidgallery",
		Short:         "vidgallery - local video gallery and player controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", config.DefaultPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (json or console)")

	rootCmd.AddCommand(scanCmd(&g))
	rootCmd.AddCommand(listCmd(&g))
	rootCmd.AddCommand(playCmd(&g))
	rootCmd.AddCommand(checkCmd(&g))
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// load reads the config, applies flag overrides and configures logging.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	xlog.Configure(xlog.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Version: version})
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vidgallery %s\nBuilt: %s\n", version, buildTime)
		},
	}
}
