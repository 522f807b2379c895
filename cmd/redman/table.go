package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one rendered table column; width 0 leaves it unbounded
type column struct {
	title string
	align text.Align
	width int
}

// renderTable draws rows under the given columns. Cells past a column's
// width are trimmed so long artist and album names keep rows on one line.
// A non-empty footer is rendered as a totals row.
func renderTable(columns []column, rows [][]string, footer ...string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	configs := make([]table.ColumnConfig, len(columns))
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft, AlignFooter: c.align}
		if c.width > 0 {
			configs[i].WidthMax = c.width
			configs[i].WidthMaxEnforcer = text.Trim
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		tw.AppendRow(toRow(row, len(columns)))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(footer, len(columns)))
	}

	return tw.Render()
}

func toRow(cells []string, n int) table.Row {
	r := make(table.Row, n)
	for i := range r {
		if i < len(cells) {
			r[i] = cells[i]
		}
	}
	return r
}
