package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
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
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// searchTable lays out search candidates one per row in service order.
func searchTable(results []provider.SearchResult) string {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		year := ""
		if r.ProductionYear > 0 {
			year = strconv.Itoa(r.ProductionYear)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Name, year, formatIDs(r.ProviderIDs)})
	}
	return renderTable(
		[]string{"#", "Name", "Year", "IDs"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	)
}

func formatIDs(ids map[string]string) string {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+ids[k])
	}
	return strings.Join(parts, " ")
}
