package commands

import (
	"fmt"
	"math"
	"strings"
)

// toCents converts a dollar amount from a command option into minor units.
func toCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

// formatMoney renders minor units as dollars, e.g. 1250 -> "$12.50".
func formatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// renderTable builds a monospace table inside a code fence, column widths
// sized to the widest cell.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for c, h := range header {
		widths[c] = len(h)
	}
	for _, row := range rows {
		for c, cell := range row {
			if c < len(widths) && len(cell) > widths[c] {
				widths[c] = len(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString("```\n")
	writeRow := func(cells []string) {
		for c, cell := range cells {
			if c > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[c]-len(cell)))
		}
		b.WriteString("\n")
	}
	writeRow(header)
	for c, w := range widths {
		if c > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("-", w))
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	b.WriteString("```")
	return b.String()
}
