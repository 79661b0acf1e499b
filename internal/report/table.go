// Package report renders run summaries as Markdown tables.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table lays out header and rows as an aligned Markdown table. Column
// widths use terminal display width, so wide runes in titles line up.
func Table(header []string, rows [][]string) []string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return nil
	}

	colWidths := make([]int, colCount)

	measure := func(row []string) {
		for i := 0; i < len(row) && i < colCount; i++ {
			width := runewidth.StringWidth(strings.TrimSpace(row[i]))
			if width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	measure(header)

	for _, row := range rows {
		measure(row)
	}

	// Separator needs at least "---"
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	result := make([]string, 0, len(rows)+2)
	result = append(result, renderRow(header, colWidths, false))
	result = append(result, renderRow(nil, colWidths, true))

	for _, row := range rows {
		result = append(result, renderRow(row, colWidths, false))
	}

	return result
}

func renderRow(row []string, colWidths []int, isSeparator bool) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		sb.WriteString(" ")

		if isSeparator {
			sb.WriteString(strings.Repeat("-", width))
		} else {
			content := ""
			if j < len(row) {
				content = strings.TrimSpace(row[j])
			}

			sb.WriteString(content)

			padding := width - runewidth.StringWidth(content)
			if padding > 0 {
				sb.WriteString(strings.Repeat(" ", padding))
			}
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
