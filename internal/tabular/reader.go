// Package tabular reads and writes the tab-separated tables exchanged
// between pipeline stages.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Table is a header plus the data rows of a TSV source.
type Table struct {
	Source string
	Header []string
	Rows   [][]string
	// Lines holds the 1-based source line of each row.
	Lines []int
}

// ReadTable reads a TSV source whose first line is a header. Short rows are
// kept as-is; Field returns "" for columns a row does not reach.
func ReadTable(r io.Reader, source string) (*Table, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{Source: source}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", source, err)
	}

	table := &Table{
		Source: source,
		Header: trimHeader(header),
	}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		table.Rows = append(table.Rows, row)
		table.Lines = append(table.Lines, line)
	}
	return table, nil
}

// Column returns the index of the named header column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries the named column.
func (t *Table) Has(name string) bool {
	return t.Column(name) >= 0
}

// Field returns the value of column idx in row, or "" when the row is short
// or idx is negative.
func (t *Table) Field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = h
	}
	return out
}
