package domain

import (
	"strings"
	"unicode"
)

// Association is a scored link between a disease and a target.
type Association struct {
	DiseaseID  string
	TargetID   string
	Score      float64
	DatatypeID string
}

// RankedGene is one row of the enrichment input: a gene symbol and its score.
type RankedGene struct {
	Symbol string
	Score  float64
}

// GeneScore is the overlap score assigned to a disease- and target-specific gene.
type GeneScore struct {
	Gene  string
	Score float64
}

// Interaction is a directed functional interaction between two genes.
type Interaction struct {
	Source     string
	Target     string
	Annotation string
	Score      string
}

// GeneLabel reduces a free-text gene label to its first whitespace-delimited
// token. Labels made only of whitespace reduce to "".
func GeneLabel(label string) string {
	label = strings.TrimLeftFunc(label, unicode.IsSpace)
	if i := strings.IndexFunc(label, unicode.IsSpace); i >= 0 {
		return label[:i]
	}
	return label
}
