package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one column of a listing. Numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

func textColumns(titles ...string) []column {
	cols := make([]column, len(titles))
	for i, t := range titles {
		cols[i] = column{title: t}
	}
	return cols
}

// roundedStyle keeps header titles as written; the stock rounded style
// upper-cases them.
func roundedStyle() table.Style {
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	return style
}

// writeTable prints rows under cols. Short rows are padded with empty
// cells and extra cells are dropped.
func writeTable(w io.Writer, cols []column, rows [][]string) {
	if len(cols) == 0 {
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}
	tw := table.NewWriter()
	tw.SetStyle(roundedStyle())

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if c.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(cols))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	fmt.Fprintln(w, tw.Render())
}

// writeFields prints label/value pairs as a headerless two column box.
func writeFields(w io.Writer, fields [][2]string) {
	tw := table.NewWriter()
	tw.SetStyle(roundedStyle())
	for _, f := range fields {
		tw.AppendRow(table.Row{f[0], f[1]})
	}
	fmt.Fprintln(w, tw.Render())
}
