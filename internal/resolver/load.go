package resolver

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

// Map kinds.
const (
	KindGene    = "gene"
	KindDisease = "disease"
)

// Normalizer rewrites the raw name column before it is used as a key.
type Normalizer func(string) string

// GeneNames keys gene maps by the first whitespace token of the label.
func GeneNames(s string) string { return domain.GeneLabel(s) }

// DiseaseNames keys disease maps by the trimmed name.
func DiseaseNames(s string) string { return strings.TrimSpace(s) }

// LoadTwoColumn builds a Map from a TSV source with a header line. Only the
// first two columns are used: name, then identifier. Rows missing either
// value are dropped before duplicates are resolved.
func LoadTwoColumn(r io.Reader, source, kind string, normalize Normalizer) (*Map, error) {
	table, err := tabular.ReadTable(r, source)
	if err != nil {
		return nil, err
	}
	if len(table.Header) < 2 {
		return nil, fmt.Errorf("expected at least two columns in %s, got %d: %w", source, len(table.Header), domain.ErrSchema)
	}
	if normalize == nil {
		normalize = DiseaseNames
	}

	m := newMap(kind)
	for _, row := range table.Rows {
		name := normalize(table.Field(row, 0))
		id := strings.TrimSpace(table.Field(row, 1))
		if name == "" || id == "" {
			continue
		}
		m.add(name, id)
	}
	return m, nil
}

// LoadGeneFile reads a gene symbol→target ID table.
func LoadGeneFile(path string) (*Map, error) {
	return loadFile(path, KindGene, GeneNames)
}

// LoadDiseaseFile reads a disease name→disease ID table.
func LoadDiseaseFile(path string) (*Map, error) {
	return loadFile(path, KindDisease, DiseaseNames)
}

func loadFile(path, kind string, normalize Normalizer) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s map %s: %w", kind, path, err)
	}
	defer f.Close()
	return LoadTwoColumn(f, path, kind, normalize)
}
