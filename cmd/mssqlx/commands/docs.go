package commands

import (
	"github.com/spf13/cobra"

	"github.com/tdsio/mssqlx/cmd/mssqlx/internal/ui"
)

const usageDoc = `# mssqlx

A pooled session layer for SQL Server.

## Configuration

Settings are read from ` + "`.mssqlx.yaml`" + ` (current directory, home, or
` + "`~/.config/mssqlx`" + `), environment variables prefixed with ` + "`MSSQLX_`" + `,
and ` + "`.env`" + ` / ` + "`.env.local`" + ` files.

| key | meaning |
| --- | ------- |
| server, port | server address |
| user, password, database | credentials and default database |
| request_timeout | per-request timeout |
| pool.max_size | maximum pooled connections |
| rows_as_records | name-keyed rows instead of positional arrays |

## Commands

* ` + "`mssqlx query \"SELECT 1\"`" + ` — run a statement or batch
* ` + "`mssqlx ping`" + ` — check connectivity
* ` + "`mssqlx version`" + ` — print version information

Statements beginning with EXEC run as procedure calls; batches separated by
semicolons or GO lines produce one result set per statement.
`

// NewDocsCommand creates the docs command.
func NewDocsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Show usage documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.PrintMarkdown(usageDoc)
		},
	}
}
