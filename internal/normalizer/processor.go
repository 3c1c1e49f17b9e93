// Package normalizer turns extracted page and feed fields into output records.
package normalizer

import (
	"fmt"

	"vulnfeed/internal/crawler/parsers"
	"vulnfeed/internal/logger"
	"vulnfeed/internal/models"
)

// Processor validates and transforms one work unit at a time.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	log         *logger.Logger
}

// NewProcessor creates a new processor instance. A nil logger discards output.
func NewProcessor(log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
		log:         log,
	}
}

// WeaknessUnit names the work unit for a weakness id.
func WeaknessUnit(id int) string {
	return fmt.Sprintf("CWE-%d", id)
}

// ProcessWeakness extracts and normalizes one weakness page.
func (p *Processor) ProcessWeakness(id int, page string) models.Outcome[models.WeaknessRecord] {
	unit := WeaknessUnit(id)
	fields := parsers.ParseWeaknessPage(page)

	if err := p.validator.ValidateWeakness(fields); err != nil {
		return models.Skipped[models.WeaknessRecord](unit, SkipReasonFor(err), err)
	}

	return models.Success(unit, p.transformer.ToWeakness(id, fields))
}

// ProcessFeedItem extracts and normalizes one feed item. index is the item's
// position in its feed and names the unit until the CVE id is known.
func (p *Processor) ProcessFeedItem(index int, raw []byte) models.Outcome[models.VulnerabilityRecord] {
	unit := fmt.Sprintf("item %d", index)

	fields, err := parsers.ExtractItem(raw)
	if err != nil {
		return models.Skipped[models.VulnerabilityRecord](unit, models.SkipMalformedItem, err)
	}

	if fields.CVEID != "" {
		unit = fields.CVEID
	}

	record, err := p.transformer.ToVulnerability(fields)
	if err != nil {
		p.log.Warn("could not extract CVSS scores", "unit", unit, "error", err)
	}

	return models.Success(unit, record)
}
