// Package enrichment prepares the ranked gene list handed to the external
// rank-based enrichment tool and post-processes the table it returns.
package enrichment

import (
	"sort"

	"github.com/vanshika/sectarget/internal/association"
	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

// Input table columns.
const (
	ColumnSymbol      = "symbol"
	ColumnGlobalScore = "globalScore"
)

// SymbolLookup resolves a target ID to its gene symbol.
type SymbolLookup interface {
	Name(id string) (string, bool)
}

// BuildInput turns aggregated target scores into ranked (symbol, score) rows,
// one per target with a known symbol. Targets without a symbol are dropped.
// Rows are ordered by descending score, then symbol.
func BuildInput(scores association.Scores, symbols SymbolLookup) []domain.RankedGene {
	rows := make([]domain.RankedGene, 0, len(scores))
	for _, id := range scores.TargetIDs() {
		symbol, ok := symbols.Name(id)
		if !ok {
			continue
		}
		rows = append(rows, domain.RankedGene{Symbol: symbol, Score: scores[id]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

// WriteInput writes rows as a symbol/globalScore TSV.
func WriteInput(path string, rows []domain.RankedGene) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Symbol, tabular.FormatFloat(r.Score)}
	}
	return tabular.WriteFile(path, []string{ColumnSymbol, ColumnGlobalScore}, out)
}
