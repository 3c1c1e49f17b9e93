package formatter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"vulnfeed/internal/models"
	"vulnfeed/internal/pipeline"
)

func TestCategoryTable(t *testing.T) {
	got := CategoryTable([]models.CategoryCount{
		{Name: "Web Security", Count: 12},
		{Name: "Other", Count: 3},
	})

	assert.Contains(t, got, "Category Distribution")
	assert.Contains(t, got, "CATEGORY")
	assert.Contains(t, got, "Web Security")
	assert.Contains(t, got, "15")
	assert.Less(t, strings.Index(got, "Web Security"), strings.Index(got, "Other"), "rows keep the given order")
}

func TestCategoryTable_WideCharactersAligned(t *testing.T) {
	got := CategoryTable([]models.CategoryCount{
		{Name: "漏洞", Count: 1},
		{Name: "Other", Count: 2},
	})

	lines := strings.Split(got, "\n")
	width := len([]rune(lines[len(lines)-1]))

	for _, line := range lines {
		if strings.Contains(line, "漏洞") {
			// each wide rune occupies two columns
			assert.Equal(t, width, len([]rune(line))+2, line)
		}
	}
}

func TestSkipSummary(t *testing.T) {
	got := SkipSummary(map[models.SkipReason]int{
		models.SkipMissingDescription: 2,
		models.SkipFetchFailed:        5,
	})

	assert.Contains(t, got, "Skipped")
	assert.Contains(t, got, string(models.SkipFetchFailed))
	assert.Less(t, strings.Index(got, string(models.SkipFetchFailed)), strings.Index(got, string(models.SkipMissingDescription)))
}

func TestArchiveSummary(t *testing.T) {
	report := &pipeline.FeedReport{Archives: []pipeline.ArchiveResult{
		{Path: "nvdcve-1.1-2023.json.zip", Member: "nvdcve-1.1-2023.json", Output: "output/nvd_data_2023.csv", Records: 7},
		{Path: "nvdcve-1.1-2002.json.zip", Member: "nvdcve-1.1-2002.json"},
		{Path: "nvdcve-1.1-2005.json.zip", Err: errors.New("zip: not a valid\n  zip file")},
	}}

	got := ArchiveSummary(report)

	assert.Contains(t, got, "output/nvd_data_2023.csv")
	assert.Contains(t, got, "no data")
	assert.Contains(t, got, "zip: not a valid zip file")
	assert.Contains(t, got, "7")
}
