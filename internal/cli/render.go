package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#767676", Dark: "#9E9E9E"})
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#28A745", Dark: "#5FD787"})
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#DC3545", Dark: "#FF5F87"})
)

// maxCellWidth truncates long descriptions in tables.
const maxCellWidth = 32

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), message)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render(errorSymbol), errorStyle.Render(message))
}

func printInfof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

func heading(w io.Writer, title string) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(title))
}

// column describes one table column.
type column struct {
	Title string
	Right bool
	// Style colours a cell by its row index; nil leaves it plain.
	Style func(row int) lipgloss.Style
}

// renderTable writes rows aligned by display width, so wide runes and
// symbols such as "Rp" line up.
func renderTable(w io.Writer, cols []column, rows [][]string) {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.Title)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(cols))
		for i := range cols {
			if i < len(row) {
				cells[r][i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cells[r][i]))
		}
	}

	pad := func(s string, i int) string {
		if cols[i].Right {
			return runewidth.FillLeft(s, widths[i])
		}
		return runewidth.FillRight(s, widths[i])
	}

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = headerStyle.Render(pad(c.Title, i))
	}
	_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(titles, "  "), " "))

	rules := make([]string, len(cols))
	for i := range cols {
		rules[i] = mutedStyle.Render(strings.Repeat("─", widths[i]))
	}
	_, _ = fmt.Fprintln(w, strings.Join(rules, "  "))

	for r, row := range cells {
		out := make([]string, len(cols))
		for i, cell := range row {
			cell = pad(cell, i)
			if cols[i].Style != nil {
				cell = cols[i].Style(r).Render(cell)
			}
			out[i] = cell
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(out, "  "), " "))
	}
}

// keyValues writes label/value pairs with the labels padded to one width.
func keyValues(w io.Writer, pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, runewidth.StringWidth(p[0]))
	}
	for _, p := range pairs {
		_, _ = fmt.Fprintf(w, "%s  %s\n", mutedStyle.Render(runewidth.FillRight(p[0], width)), p[1])
	}
}
