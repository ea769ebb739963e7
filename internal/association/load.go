package association

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

// Column names shared by the partitioned and flat association sources.
const (
	ColumnDiseaseID  = "diseaseId"
	ColumnTargetID   = "targetId"
	ColumnScore      = "score"
	ColumnDatatypeID = "datatypeId"
)

var requiredColumns = []string{ColumnDiseaseID, ColumnTargetID, ColumnScore}

// Source locates association data: a directory of parquet partitions, or a
// flat TSV used when the directory is absent or holds no partitions.
type Source struct {
	Dir          string
	FallbackFile string
}

// Score is optional so that a null cell decodes as nil rather than 0.
type row struct {
	DiseaseID string   `parquet:"diseaseId"`
	TargetID  string   `parquet:"targetId"`
	Score     *float64 `parquet:"score,optional"`
}

type typedRow struct {
	DiseaseID  string   `parquet:"diseaseId"`
	TargetID   string   `parquet:"targetId"`
	Score      *float64 `parquet:"score,optional"`
	DatatypeID string   `parquet:"datatypeId"`
}

// scoreValue maps a null score to NaN, as the flat TSV does for empty cells.
func scoreValue(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Load reads the configured association source.
func Load(src Source) (*Store, error) {
	if src.Dir != "" {
		paths, err := tabular.ListPartitions(src.Dir, tabular.ParquetExtensions...)
		switch {
		case err == nil && len(paths) > 0:
			return loadPartitions(paths)
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	if src.FallbackFile != "" {
		if info, err := os.Stat(src.FallbackFile); err == nil && !info.IsDir() {
			return loadFlatFile(src.FallbackFile)
		}
	}

	return nil, fmt.Errorf("could not locate association data: expected parquet under %q or TSV at %q: %w",
		src.Dir, src.FallbackFile, domain.ErrMissingData)
}

func loadPartitions(paths []string) (*Store, error) {
	store := &Store{hasDatatype: true}
	for _, path := range paths {
		columns, err := tabular.ParquetColumns(path)
		if err != nil {
			return nil, err
		}
		if err := tabular.RequireColumns(path, columns, requiredColumns...); err != nil {
			return nil, err
		}

		if tabular.HasColumn(columns, ColumnDatatypeID) {
			rows, err := tabular.ReadParquet[typedRow](path)
			if err != nil {
				return nil, err
			}
			for _, r := range rows {
				store.records = append(store.records, domain.Association{
					DiseaseID:  r.DiseaseID,
					TargetID:   r.TargetID,
					Score:      scoreValue(r.Score),
					DatatypeID: r.DatatypeID,
				})
			}
		} else {
			store.hasDatatype = false
			rows, err := tabular.ReadParquet[row](path)
			if err != nil {
				return nil, err
			}
			for _, r := range rows {
				store.records = append(store.records, domain.Association{
					DiseaseID: r.DiseaseID,
					TargetID:  r.TargetID,
					Score:     scoreValue(r.Score),
				})
			}
		}
		store.sources = append(store.sources, path)
	}
	return store, nil
}

func loadFlatFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open associations %s: %w", path, err)
	}
	defer f.Close()

	store, err := ReadFlat(f, path)
	if err != nil {
		return nil, err
	}
	store.sources = []string{path}
	return store, nil
}

// ReadFlat parses a TSV association table with a header carrying at least
// diseaseId, targetId and score, and optionally datatypeId.
func ReadFlat(r io.Reader, source string) (*Store, error) {
	table, err := tabular.ReadTable(r, source)
	if err != nil {
		return nil, err
	}
	if err := tabular.RequireColumns(source, table.Header, requiredColumns...); err != nil {
		return nil, err
	}

	diseaseCol := table.Column(ColumnDiseaseID)
	targetCol := table.Column(ColumnTargetID)
	scoreCol := table.Column(ColumnScore)
	datatypeCol := table.Column(ColumnDatatypeID)

	store := &Store{
		records:     make([]domain.Association, 0, len(table.Rows)),
		hasDatatype: datatypeCol >= 0,
	}
	for i, fields := range table.Rows {
		raw := table.Field(fields, scoreCol)
		score, err := tabular.ParseFloat(raw)
		if err != nil {
			return nil, domain.NewRecordError(domain.ErrMalformedRecord, source, table.Lines[i],
				strings.Join(fields, "\t"), fmt.Sprintf("score %q is not a number", raw))
		}
		store.records = append(store.records, domain.Association{
			DiseaseID:  strings.TrimSpace(table.Field(fields, diseaseCol)),
			TargetID:   strings.TrimSpace(table.Field(fields, targetCol)),
			Score:      score,
			DatatypeID: strings.TrimSpace(table.Field(fields, datatypeCol)),
		})
	}
	return store, nil
}
