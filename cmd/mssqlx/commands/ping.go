package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tdsio/mssqlx/client"
	"github.com/tdsio/mssqlx/cmd/mssqlx/internal/ui"
)

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the configured server",
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

			start := time.Now()
			if err := pool.Ping(context.Background()); err != nil {
				ui.PrintError("ping: %v", err)
				return err
			}
			ui.PrintSuccess("%s responded in %s", cfg.Addr(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
