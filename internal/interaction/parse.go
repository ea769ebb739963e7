// Package interaction parses directed functional interaction records and
// builds the gene network used by propagation.
package interaction

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanshika/sectarget/internal/domain"
)

// Header is the exact header line an interaction source must start with.
var Header = []string{"Gene1", "Gene2", "Annotation", "Direction", "Score"}

const (
	// Forward marks an edge from Gene1 to Gene2.
	Forward = "->"
	// Reverse marks an edge from Gene2 to Gene1.
	Reverse = "<-"
)

// Parsed holds the gene universe and directed edges of one source. Genes keep
// first-seen order and include genes of records that produced no edge.
type Parsed struct {
	Source string
	Genes  []string
	Edges  []domain.Interaction
	// Undirected counts records whose direction marker produced no edge.
	Undirected int
}

// Parse reads an interaction source. The header must match Header exactly and
// every record must have five tab-separated fields.
func Parse(r io.Reader, source string) (*Parsed, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read interactions %s: %w", source, err)
		}
		return nil, domain.NewRecordError(domain.ErrHeaderMismatch, source, 1, "", "empty source, expected header")
	}
	header := trimEOL(scanner.Text())
	if !headerMatches(header) {
		return nil, domain.NewRecordError(domain.ErrHeaderMismatch, source, 1, header,
			"expected header "+strings.Join(Header, "\\t"))
	}

	p := &Parsed{Source: source}
	seen := make(map[string]struct{})
	addGene := func(g string) {
		if _, ok := seen[g]; ok {
			return
		}
		seen[g] = struct{}{}
		p.Genes = append(p.Genes, g)
	}

	line := 1
	for scanner.Scan() {
		line++
		text := trimEOL(scanner.Text())
		fields := strings.Split(text, "\t")
		if len(fields) != len(Header) {
			return nil, domain.NewRecordError(domain.ErrMalformedRecord, source, line, text,
				fmt.Sprintf("expected %d tab-separated fields, got %d", len(Header), len(fields)))
		}
		gene1, gene2, annotation, direction, score := fields[0], fields[1], fields[2], fields[3], fields[4]
		switch direction {
		case Forward:
			p.Edges = append(p.Edges, domain.Interaction{Source: gene1, Target: gene2, Annotation: annotation, Score: score})
		case Reverse:
			p.Edges = append(p.Edges, domain.Interaction{Source: gene2, Target: gene1, Annotation: annotation, Score: score})
		default:
			p.Undirected++
		}
		addGene(gene1)
		addGene(gene2)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read interactions %s: %w", source, err)
	}
	return p, nil
}

// Load opens and parses an interaction file.
func Load(path string) (*Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open interactions %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, path)
}

func headerMatches(line string) bool {
	fields := strings.Split(line, "\t")
	if len(fields) != len(Header) {
		return false
	}
	for i, name := range Header {
		if fields[i] != name {
			return false
		}
	}
	return true
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}
