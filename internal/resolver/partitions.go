package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

type targetRow struct {
	ID             string `parquet:"id"`
	ApprovedSymbol string `parquet:"approvedSymbol"`
}

// TargetPartition is the id→symbol content of one target partition, in row
// order with the first row per id kept.
type TargetPartition struct {
	Source  string
	IDs     []string
	Symbols []string
}

// MergeTargetPartitions folds partitions into a gene Map keyed by target ID.
// Inside a partition the first row per id wins; across partitions a later
// partition overwrites the symbol of an id seen earlier.
func MergeTargetPartitions(parts []TargetPartition) *Map {
	order := make([]string, 0)
	symbols := make(map[string]string)
	for _, part := range parts {
		for i, id := range part.IDs {
			if _, seen := symbols[id]; !seen {
				order = append(order, id)
			}
			symbols[id] = part.Symbols[i]
		}
	}

	m := newMap(KindGene)
	for _, id := range order {
		m.addInverse(id, symbols[id])
	}
	return m
}

// NewTargetPartition dedups ids inside one partition, keeping the first row.
func NewTargetPartition(source string, ids, symbols []string) TargetPartition {
	part := TargetPartition{Source: source}
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		symbol := GeneNames(symbols[i])
		if id == "" || symbol == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		part.IDs = append(part.IDs, id)
		part.Symbols = append(part.Symbols, symbol)
	}
	return part
}

// LoadTargetPartitions reads the parquet target partitions under dir (columns
// id and approvedSymbol) in sorted file order and merges them.
func LoadTargetPartitions(dir string) (*Map, error) {
	paths, err := tabular.ListPartitions(dir, tabular.ParquetExtensions...)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("target partitions %s: %w", dir, domain.ErrMissingData)
	}
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no parquet files found in %s: %w", dir, domain.ErrMissingData)
	}

	parts := make([]TargetPartition, 0, len(paths))
	for _, path := range paths {
		columns, err := tabular.ParquetColumns(path)
		if err != nil {
			return nil, err
		}
		if err := tabular.RequireColumns(path, columns, "id", "approvedSymbol"); err != nil {
			return nil, err
		}
		rows, err := tabular.ReadParquet[targetRow](path)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(rows))
		symbols := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
			symbols[i] = row.ApprovedSymbol
		}
		parts = append(parts, NewTargetPartition(path, ids, symbols))
	}
	return MergeTargetPartitions(parts), nil
}
