package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Nomadcxx/swipesort/internal/media"
)

// renderFilesTable lists files with their 1-based queue position and kind
func renderFilesTable(files []string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Path", "Kind"})
	for i, f := range files {
		tw.AppendRow(table.Row{i + 1, f, media.Classify(f).String()})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
