package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    48,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderItems(items []media.MediaItem) string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		uploaded := ""
		if ts, ok := item.UploadedAt(); ok {
			uploaded = ts.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			itoa(i + 1),
			item.ID,
			item.Title,
			item.Category,
			item.MediaType,
			item.TechnicalMetadata.Resolution(),
			uploaded,
		})
	}
	return renderTable(
		[]string{"#", "ID", "Title", "Category", "Type", "Resolution", "Uploaded"},
		rows,
		[]columnAlignment{alignRight},
	)
}
