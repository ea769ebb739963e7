// Package pathway indexes gene↔pathway membership and scores genes shared
// between disease pathways and the pathways of a primary target.
package pathway

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
)

// DefaultSpecies is the organism whose mapping records are indexed.
const DefaultSpecies = "Homo sapiens"

const mappingFields = 8

// Index is a pair of ordered multimaps built from one mapping source. Values
// keep first-seen order and repeated records stay as repeated entries.
type Index struct {
	geneToPathways map[string][]string
	pathwayToGenes map[string][]string
	skipped        int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		geneToPathways: make(map[string][]string),
		pathwayToGenes: make(map[string][]string),
	}
}

// Add inserts one membership in both directions.
func (ix *Index) Add(gene, pathwayID string) {
	ix.geneToPathways[gene] = append(ix.geneToPathways[gene], pathwayID)
	ix.pathwayToGenes[pathwayID] = append(ix.pathwayToGenes[pathwayID], gene)
}

// ParseMapping reads a headerless mapping source whose records have exactly
// eight tab-separated fields: Ensembl ID, gene ID, gene label, pathway ID,
// URL, pathway name, evidence code, species. Records of other species are
// skipped. Any record with a different field count aborts the parse and no
// index is returned.
func ParseMapping(r io.Reader, source, species string) (*Index, error) {
	if species == "" {
		species = DefaultSpecies
	}
	ix := NewIndex()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(scanner.Text(), "\r")
		fields := strings.Split(text, "\t")
		if len(fields) != mappingFields {
			return nil, domain.NewRecordError(domain.ErrMalformedRecord, source, line, text,
				fmt.Sprintf("expected %d tab-separated fields, got %d", mappingFields, len(fields)))
		}
		if fields[7] != species {
			ix.skipped++
			continue
		}
		gene := domain.GeneLabel(fields[2])
		if gene == "" {
			ix.skipped++
			continue
		}
		ix.Add(gene, fields[3])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pathway mapping %s: %w", source, err)
	}
	return ix, nil
}

// LoadMapping opens and parses a mapping file.
func LoadMapping(path, species string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pathway mapping %s: %w", path, err)
	}
	defer f.Close()
	return ParseMapping(f, path, species)
}

// Pathways returns the pathway entries of gene, duplicates included.
func (ix *Index) Pathways(gene string) ([]string, bool) {
	p, ok := ix.geneToPathways[gene]
	return p, ok
}

// Genes returns the gene entries of pathwayID, duplicates included.
func (ix *Index) Genes(pathwayID string) ([]string, bool) {
	g, ok := ix.pathwayToGenes[pathwayID]
	return g, ok
}

// GeneCount returns the number of distinct genes.
func (ix *Index) GeneCount() int { return len(ix.geneToPathways) }

// PathwayCount returns the number of distinct pathways.
func (ix *Index) PathwayCount() int { return len(ix.pathwayToGenes) }

// Skipped returns how many records were ignored for species or empty labels.
func (ix *Index) Skipped() int { return ix.skipped }

// GeneNames returns the distinct genes in ascending order.
func (ix *Index) GeneNames() []string { return keys(ix.geneToPathways) }

// PathwayIDs returns the distinct pathways in ascending order.
func (ix *Index) PathwayIDs() []string { return keys(ix.pathwayToGenes) }

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ReadPathwayIDs reads one pathway ID per line, skipping blank lines and a
// leading pathwayId header.
func ReadPathwayIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if text == "pathwayId" {
				continue
			}
		}
		if text == "" {
			continue
		}
		ids = append(ids, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pathway ids: %w", err)
	}
	return ids, nil
}

// LoadPathwayIDs opens and reads a pathway ID list.
func LoadPathwayIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pathway ids %s: %w", path, err)
	}
	defer f.Close()
	return ReadPathwayIDs(f)
}
