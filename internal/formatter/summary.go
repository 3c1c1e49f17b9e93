// Package formatter renders run summaries as plain-text tables.
package formatter

import (
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"vulnfeed/internal/models"
	"vulnfeed/internal/pipeline"
	"vulnfeed/pkg/utils"
)

// cellWidth bounds error and path cells.
const cellWidth = 60

// CategoryTable renders the category distribution in the given order with a
// total footer.
func CategoryTable(counts []models.CategoryCount) string {
	tw := table.NewWriter()
	tw.SetTitle("Category Distribution")
	tw.AppendHeader(table.Row{"Category", "Count"})

	total := 0
	for _, c := range counts {
		tw.AppendRow(table.Row{c.Name, c.Count})
		total += c.Count
	}

	tw.AppendFooter(table.Row{"Total", total})

	return tw.Render()
}

// SkipSummary renders the number of skipped units per reason, sorted by reason.
func SkipSummary(counts map[models.SkipReason]int) string {
	reasons := make([]models.SkipReason, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}

	slices.Sort(reasons)

	tw := table.NewWriter()
	tw.SetTitle("Skipped")
	tw.AppendHeader(table.Row{"Reason", "Count"})

	for _, r := range reasons {
		tw.AppendRow(table.Row{string(r), counts[r]})
	}

	return tw.Render()
}

// ArchiveSummary renders one row per processed archive.
func ArchiveSummary(report *pipeline.FeedReport) string {
	helper := utils.NewStringHelper()

	tw := table.NewWriter()
	tw.SetAllowedRowLength(160)
	tw.AppendHeader(table.Row{"Archive", "Member", "Records", "Skipped", "Result"})

	for _, a := range report.Archives {
		result := "no data"

		switch {
		case a.Err != nil:
			result = helper.TruncateString(helper.NormalizeWhitespace(a.Err.Error()), cellWidth)
		case a.Written():
			result = a.Output
		}

		tw.AppendRow(table.Row{
			helper.TruncateString(a.Path, cellWidth),
			a.Member,
			strconv.Itoa(a.Records),
			strconv.Itoa(len(a.Skipped)),
			result,
		})
	}

	return tw.Render()
}
