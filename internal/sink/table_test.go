package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnfeed/internal/models"
)

func TestWriteCSV_Weaknesses(t *testing.T) {
	table := NewTable(models.WeaknessColumns)
	records := []models.WeaknessRecord{
		{ID: 79, Description: "Cross-site scripting, \"reflected\"", Exploitability: "High", Category: "Web Security"},
		{ID: 1, Description: "Line one\nline two", Exploitability: models.NotSpecified, Category: models.CategoryOther},
	}
	require.NoError(t, AppendRecords(table, records))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	assert.True(t, strings.HasPrefix(buf.String(), "CWE_ID,Description,Exploitability,Category\n"))

	back, err := ReadCSV(&buf, models.WeaknessColumns)
	require.NoError(t, err)

	if diff := cmp.Diff(table.Rows(), back.Rows()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_VulnerabilitySentinelsSurvive(t *testing.T) {
	table := NewTable(models.VulnerabilityColumns)
	rec := models.VulnerabilityRecord{CVEID: "CVE-2023-0001", CVSS: models.NewCVSSMatrix()}
	rec.CVSS.V31 = models.ScorePair{Base: "9.8", Exploitability: "3.9"}
	require.NoError(t, AppendRecords(table, []models.VulnerabilityRecord{rec}))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	back, err := ReadCSV(&buf, models.VulnerabilityColumns)
	require.NoError(t, err)
	require.Equal(t, 1, back.Len())

	row := back.Rows()[0]
	assert.Equal(t, []string{"NONE", "NONE", "NONE", "NONE", "9.8", "3.9", "NONE", "NONE"}, row[5:])

	for _, cell := range row[5:] {
		assert.NotEmpty(t, cell)
	}
}

func TestAppend_WidthMismatch(t *testing.T) {
	table := NewTable([]string{"a", "b"})

	err := table.Append([]string{"only one"})
	assert.ErrorIs(t, err, ErrRowWidth)
	assert.Equal(t, 0, table.Len())
}

func TestWriteFile_EmptyPolicies(t *testing.T) {
	dir := t.TempDir()

	headerOnly := filepath.Join(dir, "nested", "cwe.csv")
	require.NoError(t, NewTable(models.WeaknessColumns).WriteFile(headerOnly, EmptyHeaderOnly))

	data, err := os.ReadFile(headerOnly)
	require.NoError(t, err)
	assert.Equal(t, "CWE_ID,Description,Exploitability,Category\n", string(data))

	suppressed := filepath.Join(dir, "out", "nvd_data_2023.csv")
	err = NewTable(models.VulnerabilityColumns).WriteFile(suppressed, EmptySuppress)
	assert.True(t, errors.Is(err, ErrEmptyTable))

	_, statErr := os.Stat(suppressed)
	assert.True(t, os.IsNotExist(statErr), "suppressed table must not create a file")
}

func TestWriteFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "nvd_data_2002.csv")

	table := NewTable([]string{"x"})
	require.NoError(t, table.Append([]string{"1"}))
	require.NoError(t, table.WriteFile(path, EmptySuppress))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}

func TestReadCSV_HeaderMismatch(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2\n"), []string{"a", "c"})
	assert.ErrorIs(t, err, ErrHeaderMismatch)

	_, err = ReadCSV(strings.NewReader(""), []string{"a"})
	assert.ErrorIs(t, err, ErrHeaderMismatch)
}
