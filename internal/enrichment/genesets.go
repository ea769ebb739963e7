package enrichment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
)

// GeneSets maps enrichment terms to their member genes, keeping the order in
// which terms first appear.
type GeneSets struct {
	terms   []string
	members map[string][]string
}

// ParseGeneSets reads GMT rows of the form term<TAB>description<TAB>gene...
// A non-blank row with fewer than three fields is fatal. A repeated term
// replaces the genes of the earlier row.
func ParseGeneSets(r io.Reader, source string) (*GeneSets, error) {
	sets := &GeneSets{members: make(map[string][]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) < 3 {
			return nil, domain.NewRecordError(domain.ErrMalformedRecord, source, line, text,
				fmt.Sprintf("gene set row has %d fields, want at least 3", len(parts)))
		}
		term := parts[0]
		if _, ok := sets.members[term]; !ok {
			sets.terms = append(sets.terms, term)
		}
		sets.members[term] = append([]string(nil), parts[2:]...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene sets %s: %w", source, err)
	}
	return sets, nil
}

// LoadGeneSets opens and parses a GMT file.
func LoadGeneSets(path string) (*GeneSets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene sets %s: %w", path, err)
	}
	defer f.Close()
	return ParseGeneSets(f, path)
}

// Terms returns every term in first-seen order.
func (g *GeneSets) Terms() []string {
	return append([]string(nil), g.terms...)
}

// Genes returns the members of term.
func (g *GeneSets) Genes(term string) ([]string, bool) {
	genes, ok := g.members[term]
	return genes, ok
}

// Len returns the number of terms.
func (g *GeneSets) Len() int { return len(g.terms) }
