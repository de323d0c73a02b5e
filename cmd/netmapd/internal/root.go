// Package common implements the netmapd command line entry point: flag
// registration, configuration loading, and the node lifecycle wiring.
package common

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oasisprotocol/netmapd/common/logging"
)

var rootCmd = &cobra.Command{
	Use:   "netmapd",
	Short: "network map service",
	Run:   nodeRun,
}

// RootCommand returns the root (top level) cobra.Command.
func RootCommand() *cobra.Command {
	return rootCmd
}

// Execute spawns the main entry point after handling the config file and
// command line arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func nodeRun(cmd *cobra.Command, args []string) {
	if err := initLogging(); err != nil {
		logging.GetLogger("netmapd").Error("failed to initialize logging", "err", err)
		os.Exit(1)
	}
	logger := logging.GetLogger("netmapd")

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	node, err := NewNode(cfg)
	if err != nil {
		logger.Error("failed to initialize node", "err", err)
		os.Exit(1)
	}

	node.Wait()
	node.Cleanup()
}

var dumpConfigCmd = &cobra.Command{
	Use:   "dumpconfig",
	Short: "print the effective configuration as JSON and exit",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			logging.GetLogger("netmapd").Error("failed to load configuration", "err", err)
			os.Exit(1)
		}

		out, err := PrettyJSONMarshal(cfg)
		if err != nil {
			logging.GetLogger("netmapd").Error("failed to marshal configuration", "err", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		os.Stdout.Write([]byte("\n"))
	},
}

func init() {
	initConfigFlags()
	initLoggingFlags()

	rootCmd.PersistentFlags().AddFlagSet(ConfigFlags)
	rootCmd.PersistentFlags().AddFlagSet(loggingFlags)

	rootCmd.AddCommand(dumpConfigCmd)
}
