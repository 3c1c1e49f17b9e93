// Package sink writes normalized records as fixed-column CSV tables.
package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Sink errors.
var (
	ErrEmptyTable     = errors.New("table has no rows")
	ErrRowWidth       = errors.New("row width does not match columns")
	ErrHeaderMismatch = errors.New("header does not match columns")
)

// EmptyPolicy decides what WriteFile does with a table that has no rows.
type EmptyPolicy int

const (
	// EmptyHeaderOnly writes a file containing only the header row.
	EmptyHeaderOnly EmptyPolicy = iota
	// EmptySuppress writes nothing and returns ErrEmptyTable.
	EmptySuppress
)

// Row is anything that renders itself as one table row.
type Row interface {
	Row() []string
}

// Table is an ordered column list and the rows under it.
type Table struct {
	columns []string
	rows    [][]string
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []string) *Table {
	return &Table{columns: slices.Clone(columns)}
}

// Rows returns the rows in insertion order.
func (t *Table) Rows() [][]string {
	return t.rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Append adds one row. Its width must match the columns.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("%w: got %d cells, want %d", ErrRowWidth, len(row), len(t.columns))
	}

	t.rows = append(t.rows, slices.Clone(row))

	return nil
}

// AppendRecords adds the rows of each record in order.
func AppendRecords[R Row](t *Table, records []R) error {
	for i, r := range records {
		if err := t.Append(r.Row()); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	return nil
}

// WriteCSV writes the header and all rows.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	return nil
}

// WriteFile writes the table to path, creating parent directories. An empty
// table is handled according to policy.
func (t *Table) WriteFile(path string, policy EmptyPolicy) error {
	if t.Len() == 0 && policy == EmptySuppress {
		return ErrEmptyTable
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	return nil
}

// ReadCSV parses a table written by WriteCSV. The header must equal columns.
func ReadCSV(r io.Reader, columns []string) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) == 0 || !slices.Equal(records[0], columns) {
		return nil, ErrHeaderMismatch
	}

	t := NewTable(columns)
	for _, row := range records[1:] {
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}

	return t, nil
}
