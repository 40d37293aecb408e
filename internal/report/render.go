// Package report renders plain command line tables and number formats for
// the reporting commands.
package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// Table is a bordered table. Columns listed in Numeric are right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Numeric []int
}

// Render returns the table as a string ending in a newline, or "" when it
// has neither headers nor rows.
func (t Table) Render() string {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return ""
	}
	numeric := make(map[int]bool, len(t.Numeric))
	for _, c := range t.Numeric {
		numeric[c] = true
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case numeric[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(titleStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.String())
	b.WriteString("\n")
	return b.String()
}

// KeyValues renders label/value pairs as a two column table.
func KeyValues(title string, pairs [][2]string) string {
	rows := make([][]string, len(pairs))
	for i, p := range pairs {
		rows[i] = []string{p[0], p[1]}
	}
	return Table{Title: title, Rows: rows, Numeric: []int{1}}.Render()
}
