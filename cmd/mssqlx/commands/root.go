// Package commands implements the mssqlx CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/internal/debug"
)

var (
	flagServer   string
	flagDatabase string
	flagUser     string
	flagDebug    bool
)

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mssqlx",
		Short: "SQL Server session tool",
		Long:  "mssqlx runs queries against SQL Server through the mssqlx session layer.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(flagDebug)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", "", "server host (overrides config)")
	root.PersistentFlags().StringVar(&flagDatabase, "database", "", "database name (overrides config)")
	root.PersistentFlags().StringVar(&flagUser, "user", "", "login user (overrides config)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(NewQueryCommand())
	root.AddCommand(NewPingCommand())
	root.AddCommand(NewVersionCommand())
	root.AddCommand(NewDocsCommand())

	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig loads configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagServer != "" {
		cfg.Server = flagServer
	}
	if flagDatabase != "" {
		cfg.Database = flagDatabase
	}
	if flagUser != "" {
		cfg.User = flagUser
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg, nil
}
