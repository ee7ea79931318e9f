package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"xia2pipe/internal/reconcile"
)

var reportHeader = table.Row{"Stage", "Catalogued", "Eligible", "Finished", "Failed", "In flight", "To submit"}

func reportRow(r reconcile.Report) []int {
	return []int{r.Fetched, r.Eligible, r.Finished, r.Failed, r.InFlight, r.ToSubmit}
}

// renderReports renders one row per stage with counts right-aligned. A totals
// footer is added when more than one stage is shown.
func renderReports(reports []reconcile.Report) string {
	tw := table.NewWriter()
	style := table.StyleRounded
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)
	tw.AppendHeader(reportHeader)

	totals := make([]int, len(reportHeader)-1)
	for _, r := range reports {
		row := table.Row{stageTitle(r.Stage)}
		for i, n := range reportRow(r) {
			row = append(row, n)
			totals[i] += n
		}
		tw.AppendRow(row)
	}
	if len(reports) > 1 {
		footer := table.Row{"Total"}
		for _, n := range totals {
			footer = append(footer, n)
		}
		tw.AppendFooter(footer)
	}

	configs := make([]table.ColumnConfig, 0, len(reportHeader))
	for i := range reportHeader {
		align := text.AlignRight
		if i == 0 {
			align = text.AlignLeft
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
