// Package ui provides terminal output helpers for the mssqlx CLI.
package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/tdsio/mssqlx/result"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// PrintSuccess prints a success message.
func PrintSuccess(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Println(SuccessStyle.Render("✓ " + message))
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+message))
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Println(WarningStyle.Render("⚠ " + message))
}

// PrintInfo prints a secondary informational message.
func PrintInfo(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Println(SecondaryStyle.Render(message))
}

// PrintMarkdown renders markdown to the terminal.
func PrintMarkdown(markdown string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// PrintResult renders one result set as a table followed by its row count.
func PrintResult(r *result.Result) {
	if len(r.Columns) == 0 {
		PrintInfo("(%d row(s) affected)", r.RowsAffected)
		return
	}

	header := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		header[i] = col.Name
	}

	data := pterm.TableData{header}
	if r.Records != nil {
		for _, rec := range r.Records {
			row := make([]string, len(r.Columns))
			for i, col := range r.Columns {
				row[i] = formatValue(rec[col.Name])
			}
			data = append(data, row)
		}
	} else {
		for _, values := range r.Rows {
			row := make([]string, len(r.Columns))
			for i := range r.Columns {
				if i < len(values) {
					row[i] = formatValue(values[i])
				}
			}
			data = append(data, row)
		}
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		PrintError("render table: %v", err)
		return
	}

	count := color.New(color.Faint).Sprintf("(%d row(s))", r.RowCount())
	fmt.Println(count)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
