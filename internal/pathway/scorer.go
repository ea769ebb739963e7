package pathway

import (
	"fmt"
	"sort"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

// UnknownPathwayPolicy decides what happens to a disease pathway ID that the
// index does not contain.
type UnknownPathwayPolicy int

const (
	// PolicyStrict fails with domain.ErrUnknownPathway.
	PolicyStrict UnknownPathwayPolicy = iota
	// PolicySkip ignores the pathway and reports it.
	PolicySkip
)

// ParsePolicy maps "strict" or "skip" to a policy.
func ParsePolicy(s string) (UnknownPathwayPolicy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "skip":
		return PolicySkip, nil
	}
	return PolicyStrict, fmt.Errorf("unknown pathway policy %q (want strict or skip)", s)
}

// GeneSet is an unordered set of gene labels.
type GeneSet map[string]struct{}

// Sorted returns the members in ascending order.
func (s GeneSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Scorer computes disease/target gene sets and overlap scores over an Index.
type Scorer struct {
	index  *Index
	policy UnknownPathwayPolicy
}

// NewScorer returns a Scorer over index.
func NewScorer(index *Index, policy UnknownPathwayPolicy) *Scorer {
	return &Scorer{index: index, policy: policy}
}

// DiseaseGenes returns the union of genes on the given pathways, plus the
// pathway IDs skipped under PolicySkip.
func (s *Scorer) DiseaseGenes(pathwayIDs []string) (GeneSet, []string, error) {
	genes := make(GeneSet)
	var skipped []string
	for _, id := range pathwayIDs {
		members, ok := s.index.Genes(id)
		if !ok {
			if s.policy == PolicySkip {
				skipped = append(skipped, id)
				continue
			}
			return nil, nil, fmt.Errorf("disease pathway %s: %w", id, domain.ErrUnknownPathway)
		}
		for _, g := range members {
			genes[g] = struct{}{}
		}
	}
	return genes, skipped, nil
}

// TargetGenes returns the union of genes sharing any pathway with target,
// target included.
func (s *Scorer) TargetGenes(target string) (GeneSet, error) {
	paths, ok := s.index.Pathways(target)
	if !ok {
		return nil, fmt.Errorf("target %s: %w", target, domain.ErrUnknownGene)
	}
	genes := make(GeneSet)
	for _, p := range paths {
		members, _ := s.index.Genes(p)
		for _, g := range members {
			genes[g] = struct{}{}
		}
	}
	return genes, nil
}

// Overlap returns the intersection of a and b in ascending order.
func Overlap(a, b GeneSet) []string {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	out := make([]string, 0)
	for g := range small {
		if _, ok := large[g]; ok {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// Score returns (d + t) / (D + T) for gene, where d counts the distinct
// pathways of gene that are disease pathways, t counts the target's pathway
// entries that contain gene, D is len(diseasePathways) and T is the number of
// pathway entries of target.
func (s *Scorer) Score(gene string, diseasePathways []string, target string) (float64, error) {
	targetPaths, ok := s.index.Pathways(target)
	if !ok {
		return 0, fmt.Errorf("target %s: %w", target, domain.ErrUnknownGene)
	}
	geneSet := make(map[string]struct{})
	if paths, ok := s.index.Pathways(gene); ok {
		for _, p := range paths {
			geneSet[p] = struct{}{}
		}
	}

	disease := make(map[string]struct{}, len(diseasePathways))
	for _, p := range diseasePathways {
		disease[p] = struct{}{}
	}
	d := 0
	for p := range geneSet {
		if _, ok := disease[p]; ok {
			d++
		}
	}

	t := 0
	for _, p := range targetPaths {
		members, _ := s.index.Genes(p)
		if contains(members, gene) {
			t++
		}
	}

	score, err := OverlapScore(d, t, len(diseasePathways), len(targetPaths))
	if err != nil {
		return 0, fmt.Errorf("gene %s: %w", gene, err)
	}
	return score, nil
}

// OverlapScore returns (d + t) / (D + T), failing with
// domain.ErrDegenerateScore when D + T is zero.
func OverlapScore(d, t, diseaseTotal, targetTotal int) (float64, error) {
	denominator := diseaseTotal + targetTotal
	if denominator == 0 {
		return 0, fmt.Errorf("no disease or target pathways: %w", domain.ErrDegenerateScore)
	}
	return float64(d+t) / float64(denominator), nil
}

// Result is the outcome of ScoreAll.
type Result struct {
	DiseaseGenes int
	TargetGenes  int
	Scores       []domain.GeneScore
	// SkippedPathways lists unknown disease pathways ignored under PolicySkip.
	SkippedPathways []string
}

// ScoreAll scores every gene that is both on a disease pathway and on a
// pathway of target. Scores are sorted by gene ascending.
func (s *Scorer) ScoreAll(diseasePathways []string, target string) (Result, error) {
	diseaseGenes, skipped, err := s.DiseaseGenes(diseasePathways)
	if err != nil {
		return Result{}, err
	}
	targetGenes, err := s.TargetGenes(target)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		DiseaseGenes:    len(diseaseGenes),
		TargetGenes:     len(targetGenes),
		SkippedPathways: skipped,
	}
	known := diseasePathways
	if len(skipped) > 0 {
		known = without(diseasePathways, skipped)
	}
	for _, gene := range Overlap(diseaseGenes, targetGenes) {
		score, err := s.Score(gene, known, target)
		if err != nil {
			return Result{}, err
		}
		res.Scores = append(res.Scores, domain.GeneScore{Gene: gene, Score: score})
	}
	return res, nil
}

// WriteScores writes scores as a GENE/SCORE TSV sorted by gene.
func WriteScores(path string, scores []domain.GeneScore) error {
	sorted := append([]domain.GeneScore(nil), scores...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Gene < sorted[j].Gene })
	rows := make([][]string, len(sorted))
	for i, sc := range sorted {
		rows[i] = []string{sc.Gene, tabular.FormatFloat(sc.Score)}
	}
	return tabular.WriteFile(path, []string{"GENE", "SCORE"}, rows)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func without(list, drop []string) []string {
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if _, ok := skip[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
