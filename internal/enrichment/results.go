package enrichment

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

// Result table columns.
const (
	ColumnTerm           = "Term"
	ColumnID             = "ID"
	ColumnPValue         = "pval"
	ColumnQValue         = "qval"
	ColumnNES            = "NES"
	ColumnLeadingEdge    = "leading_edge"
	ColumnPropagatedEdge = "propagated_edge"
)

// Result is one term of the enrichment output.
type Result struct {
	Term           string
	ID             string
	PValue         float64
	QValue         float64
	NES            float64
	LeadingEdge    []string
	PropagatedEdge []string
	// Extra holds the cells of columns this package does not interpret.
	Extra map[string]string
}

// ResultTable is the enrichment output with a record of which optional
// columns it carries.
type ResultTable struct {
	Rows []Result

	HasID          bool
	HasPValue      bool
	HasQValue      bool
	HasNES         bool
	HasLeadingEdge bool
	// QValueDerived is set when Process computed qval from pval.
	QValueDerived bool

	// columns lists the non-term input columns in their original order.
	columns []string
}

// ReadResults parses an enrichment result TSV. The term label is read from
// the Term column, or from the first column when no column is named Term.
// A lowercase "nes" column is accepted for NES.
func ReadResults(path string) (*ResultTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open enrichment results %s: %w", path, err)
	}
	defer f.Close()

	table, err := tabular.ReadTable(f, path)
	if err != nil {
		return nil, err
	}
	return parseResults(table)
}

func parseResults(table *tabular.Table) (*ResultTable, error) {
	if len(table.Header) == 0 {
		return nil, fmt.Errorf("%s has no header: %w", table.Source, domain.ErrSchema)
	}

	termCol := table.Column(ColumnTerm)
	if termCol < 0 {
		termCol = 0
	}
	nesCol := table.Column(ColumnNES)
	if nesCol < 0 {
		nesCol = table.Column("nes")
	}

	out := &ResultTable{}
	idCol := table.Column(ColumnID)
	pCol := table.Column(ColumnPValue)
	qCol := table.Column(ColumnQValue)
	leCol := table.Column(ColumnLeadingEdge)
	peCol := table.Column(ColumnPropagatedEdge)
	out.HasID = idCol >= 0
	out.HasPValue = pCol >= 0
	out.HasQValue = qCol >= 0
	out.HasNES = nesCol >= 0
	out.HasLeadingEdge = leCol >= 0

	for i, name := range table.Header {
		if i == termCol {
			continue
		}
		if i == nesCol {
			name = ColumnNES
		}
		out.columns = append(out.columns, name)
	}

	for _, fields := range table.Rows {
		res := Result{
			Term:   table.Field(fields, termCol),
			ID:     table.Field(fields, idCol),
			PValue: numericCell(table, fields, pCol),
			QValue: numericCell(table, fields, qCol),
			NES:    numericCell(table, fields, nesCol),
		}
		res.LeadingEdge = splitGenes(table.Field(fields, leCol))
		res.PropagatedEdge = splitGenes(table.Field(fields, peCol))

		for c, name := range table.Header {
			switch c {
			case termCol, idCol, pCol, qCol, nesCol, leCol, peCol:
				continue
			}
			if res.Extra == nil {
				res.Extra = make(map[string]string)
			}
			res.Extra[name] = table.Field(fields, c)
		}
		out.Rows = append(out.Rows, res)
	}
	return out, nil
}

// numericCell parses the cell like pandas' to_numeric with errors="coerce":
// anything unparsable becomes NaN.
func numericCell(table *tabular.Table, fields []string, col int) float64 {
	if col < 0 {
		return math.NaN()
	}
	v, err := tabular.ParseFloat(table.Field(fields, col))
	if err != nil {
		return math.NaN()
	}
	return v
}

// splitGenes decodes a comma-separated gene list, tolerating the Python list
// rendering "['A', 'B']".
func splitGenes(cell string) []string {
	cell = strings.TrimSpace(cell)
	cell = strings.TrimSuffix(strings.TrimPrefix(cell, "["), "]")
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ",")
	genes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			genes = append(genes, p)
		}
	}
	return genes
}

// Columns returns the header WriteResults emits: Term and ID first, then the
// input columns in their original order, then any columns Process added.
func (t *ResultTable) Columns() []string {
	cols := []string{ColumnTerm, ColumnID}
	seen := map[string]bool{ColumnTerm: true, ColumnID: true}
	for _, c := range t.columns {
		if !seen[c] {
			cols = append(cols, c)
			seen[c] = true
		}
	}
	if t.anyPropagated() && !seen[ColumnPropagatedEdge] {
		cols = append(cols, ColumnPropagatedEdge)
		seen[ColumnPropagatedEdge] = true
	}
	if t.HasQValue && !seen[ColumnQValue] {
		cols = append(cols, ColumnQValue)
	}
	return cols
}

func (t *ResultTable) anyPropagated() bool {
	for _, r := range t.Rows {
		if len(r.PropagatedEdge) > 0 {
			return true
		}
	}
	return false
}

// WriteResults writes the processed result table as TSV.
func WriteResults(path string, t *ResultTable) error {
	cols := t.Columns()
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]string, len(cols))
		for c, name := range cols {
			row[c] = r.cell(name)
		}
		rows[i] = row
	}
	return tabular.WriteFile(path, cols, rows)
}

func (r Result) cell(column string) string {
	switch column {
	case ColumnTerm:
		return r.Term
	case ColumnID:
		return r.ID
	case ColumnPValue:
		return tabular.FormatFloat(r.PValue)
	case ColumnQValue:
		return tabular.FormatFloat(r.QValue)
	case ColumnNES:
		return tabular.FormatFloat(r.NES)
	case ColumnLeadingEdge:
		return strings.Join(r.LeadingEdge, ",")
	case ColumnPropagatedEdge:
		return strings.Join(r.PropagatedEdge, ",")
	default:
		return r.Extra[column]
	}
}

// WritePathwayIDs writes ids as a single pathwayId column.
func WritePathwayIDs(path string, ids []string) error {
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{id}
	}
	return tabular.WriteFile(path, []string{"pathwayId"}, rows)
}
