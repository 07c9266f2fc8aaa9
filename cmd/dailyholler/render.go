package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"DailyHoller/internal/domain"
	"DailyHoller/internal/infrastructure/cities"
)

func renderSummary(w io.Writer, s domain.RunSummary) {
	if s.RunID == "" {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + s.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Completed", s.Completed},
		{"Cycle", s.Cycle},
		{"Batches", s.Batches},
		{"Cities", s.Processed},
		{"Created", s.Created},
		{"Failed", s.Failed},
		{"Skipped (fresh)", s.Skipped},
		{"Kept previous", s.Fallbacks},
		{"Abandoned batches", s.Abandoned},
		{"Duration", s.Duration.Round(time.Second)},
	})
	t.Render()
}

func renderCities(w io.Writer, page cities.Page) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"#", "City", "State", "Region", "Population"})
	for _, c := range page.Cities {
		t.AppendRow(table.Row{c.ID, c.Name, c.State, c.Region, c.Population})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("%d (page %d/%d)", page.Total, page.Page, page.TotalPages)})
	t.Render()
}
