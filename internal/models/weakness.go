// Package models defines the normalized records produced by the CWE and NVD pipelines.
package models

import "strconv"

// Sentinel values used in place of genuinely absent fields.
const (
	NotSpecified  = "Not Specified"
	ScoreNone     = "NONE"
	CategoryOther = "Other"
)

// WeaknessColumns is the fixed column order of the CWE dataset.
var WeaknessColumns = []string{"CWE_ID", "Description", "Exploitability", "Category"}

// WeaknessRecord is one normalized CWE definition.
type WeaknessRecord struct {
	Description    string `json:"description"`
	Exploitability string `json:"exploitability"`
	Category       string `json:"category"`
	ID             int    `json:"id"`
}

// Row returns the record as cells in WeaknessColumns order.
func (w WeaknessRecord) Row() []string {
	return []string{
		strconv.Itoa(w.ID),
		w.Description,
		w.Exploitability,
		w.Category,
	}
}

// CategoryCount is the number of weakness records in one category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
