// Package ui provides consistent styling for the waysurf CLI
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
)

var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(14)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)
)

var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconHeader  = "»"
)

// FormatHeader renders a title followed by a separator line.
func FormatHeader(title, subtitle string) string {
	header := HeaderStyle.Render(SectionStyle.Render(IconHeader) + " " + title)
	if subtitle != "" {
		header += "  " + SubtleStyle.Render(subtitle)
	}
	return header + "\n" + CreateSeparator(50, "─")
}

// FormatSection renders a config section name such as [window].
func FormatSection(name string) string {
	return SectionStyle.Render("[" + name + "]")
}

// FormatKeyValue renders an indented, aligned key/value line.
func FormatKeyValue(key string, value interface{}) string {
	return "  " + KeyStyle.Render(key) + TextStyle.Render(fmt.Sprint(value))
}

// FormatResult renders a check line with a success or failure icon.
func FormatResult(ok bool, message string) string {
	if ok {
		return SuccessStyle.Render(IconSuccess) + " " + message
	}
	return ErrorStyle.Render(IconError) + " " + message
}

// Table renders rows under headers with the application table style.
// Rows whose last column is non-empty are highlighted.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorSubtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return base.Foreground(ColorPrimary).Bold(true)
			case row >= 0 && row < len(rows) && len(rows[row]) > 0 && rows[row][len(rows[row])-1] != "":
				return base.Foreground(ColorSuccess)
			default:
				return base.Foreground(ColorText)
			}
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
