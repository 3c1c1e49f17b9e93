package normalizer

import (
	"vulnfeed/internal/crawler/parsers"
	"vulnfeed/internal/models"
)

// Transformer turns extracted fields into output records.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// ToWeakness builds the weakness record for id. fields must have passed
// ValidateWeakness.
func (t *Transformer) ToWeakness(id int, fields parsers.WeaknessFields) models.WeaknessRecord {
	return models.WeaknessRecord{
		ID:             id,
		Description:    fields.Description.Value,
		Exploitability: fields.Exploitability.Value,
		Category:       Categorize(fields.Description.Value),
	}
}

// ToVulnerability builds the vulnerability record for one feed item. The record
// is always usable; a non-nil error means the scores fell back to the sentinel.
func (t *Transformer) ToVulnerability(fields parsers.FeedItemFields) (models.VulnerabilityRecord, error) {
	var impact any
	if fields.Impact != "" {
		impact = fields.Impact
	}

	matrix, err := ExtractCVSS(impact)

	return models.VulnerabilityRecord{
		CVEID:         fields.CVEID,
		Description:   fields.Description,
		Impact:        fields.Impact,
		PublishedDate: fields.PublishedDate,
		CWE:           fields.CWE,
		CVSS:          matrix,
	}, err
}
