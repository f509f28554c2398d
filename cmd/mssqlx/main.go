package main

import (
	"os"

	"github.com/tdsio/mssqlx/cmd/mssqlx/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
