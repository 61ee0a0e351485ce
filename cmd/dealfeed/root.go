package main

import (
	"fmt"

	"github.com/pevans/dealfeed/config"
	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "dealfeed",
	Short:        "Turn the pepper.ru deal listing into an RSS feed",
	Long:         "dealfeed polls the pepper.ru listing of new deals and rewrites a local RSS file whenever a new deal shows up at the top.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dealfeed %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		config.GetEnv(config.EnvConfig, config.DefaultConfigFile),
		"path to YAML config file ("+config.EnvConfig+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides log_level)")

	rootCmd.AddCommand(versionCmd)
}
