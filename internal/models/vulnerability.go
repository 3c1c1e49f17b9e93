package models

// CVSSVersions lists the score versions carried by every vulnerability record, ascending.
var CVSSVersions = []string{"2.0", "3.0", "3.1", "4.0"}

// VulnerabilityColumns is the fixed column order of the NVD dataset.
var VulnerabilityColumns = []string{
	"CVE ID",
	"Description",
	"Impact",
	"Published Date",
	"CWE",
	"CVSS:2.0.baseScore",
	"CVSS:2.0.exploitabilityScore",
	"CVSS:3.0.baseScore",
	"CVSS:3.0.exploitabilityScore",
	"CVSS:3.1.baseScore",
	"CVSS:3.1.exploitabilityScore",
	"CVSS:4.0.baseScore",
	"CVSS:4.0.exploitabilityScore",
}

// ScorePair holds the base and exploitability score of one CVSS version.
type ScorePair struct {
	Base           string `json:"baseScore"`
	Exploitability string `json:"exploitabilityScore"`
}

// CVSSMatrix is the fixed eight-field score grid of a vulnerability.
type CVSSMatrix struct {
	V20 ScorePair `json:"v2.0"`
	V30 ScorePair `json:"v3.0"`
	V31 ScorePair `json:"v3.1"`
	V40 ScorePair `json:"v4.0"`
}

// NewCVSSMatrix returns a matrix with every field set to ScoreNone.
func NewCVSSMatrix() CVSSMatrix {
	none := ScorePair{Base: ScoreNone, Exploitability: ScoreNone}

	return CVSSMatrix{V20: none, V30: none, V31: none, V40: none}
}

// Cells returns the eight scores grouped by version ascending.
func (m CVSSMatrix) Cells() []string {
	return []string{
		m.V20.Base, m.V20.Exploitability,
		m.V30.Base, m.V30.Exploitability,
		m.V31.Base, m.V31.Exploitability,
		m.V40.Base, m.V40.Exploitability,
	}
}

// VulnerabilityRecord is one normalized NVD feed item.
type VulnerabilityRecord struct {
	CVEID         string     `json:"cveId"`
	Description   string     `json:"description"`
	Impact        string     `json:"impact"`
	PublishedDate string     `json:"publishedDate"`
	CWE           string     `json:"cwe"`
	CVSS          CVSSMatrix `json:"cvss"`
}

// Row returns the record as cells in VulnerabilityColumns order.
func (v VulnerabilityRecord) Row() []string {
	row := make([]string, 0, len(VulnerabilityColumns))
	row = append(row, v.CVEID, v.Description, v.Impact, v.PublishedDate, v.CWE)

	return append(row, v.CVSS.Cells()...)
}
