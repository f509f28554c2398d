package commands

import (
	"context"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/tdsio/mssqlx/client"
	"github.com/tdsio/mssqlx/cmd/mssqlx/internal/ui"
	"github.com/tdsio/mssqlx/config"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Execute a SQL statement or batch",
		Long:  "Execute a statement against the configured server and print each result set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := promptPassword(cfg); err != nil {
				return err
			}

			pool, err := client.Connect(cfg)
			if err != nil {
				ui.PrintError("connect: %v", err)
				return err
			}
			defer pool.Destroy()

			out, err := pool.QueryString(context.Background(), args[0])
			if err != nil {
				ui.PrintError("query: %v", err)
				return err
			}

			for _, r := range out.Results {
				ui.PrintResult(r)
			}
			return nil
		},
	}
}

// promptPassword asks for the login password when none is configured.
func promptPassword(cfg *config.Config) error {
	if cfg.Password != "" || cfg.User == "" {
		return nil
	}
	prompt := &survey.Password{Message: "Password for " + cfg.User + ":"}
	return survey.AskOne(prompt, &cfg.Password)
}
