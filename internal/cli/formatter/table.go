package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const colGap = 2

// RenderTable renders an aligned table with a header separator line.
// Columns are as wide as their widest cell, measured without ANSI escapes.
// Columns listed in rightAlign are padded on the left.
func RenderTable(headers []string, rows [][]string, rightAlign ...int) string {
	if len(headers) == 0 {
		return ""
	}
	cols := len(headers)
	right := make(map[int]bool, len(rightAlign))
	for _, c := range rightAlign {
		right[c] = true
	}

	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	styled := make([]string, cols)
	for i, h := range headers {
		styled[i] = StyleHeader.Render(h)
	}
	writeRow(&b, styled, widths, right)

	for i, w := range widths {
		b.WriteString(StyleDim.Render(strings.Repeat("─", w)))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")

	for _, row := range rows {
		writeRow(&b, row, widths, right)
	}
	return b.String()
}

func writeRow(b *strings.Builder, row []string, widths []int, right map[int]bool) {
	cols := len(widths)
	for i := 0; i < cols; i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := strings.Repeat(" ", max(0, widths[i]-lipgloss.Width(cell)))
		switch {
		case right[i]:
			b.WriteString(pad + cell)
		case i < cols-1:
			b.WriteString(cell + pad)
		default:
			b.WriteString(cell)
		}
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")
}
