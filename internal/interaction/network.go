package interaction

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/tabular"
)

// Network is a directed multigraph over the gene universe. Every directed
// record is kept as its own line, so repeated records become parallel lines.
type Network struct {
	g     *multi.DirectedGraph
	ids   map[string]int64
	names map[int64]string
	lines int
}

// line carries the source record alongside the gonum line identity.
type line struct {
	multi.Line
	record domain.Interaction
}

// Build creates a Network from parsed records.
func Build(p *Parsed) *Network {
	n := &Network{
		g:     multi.NewDirectedGraph(),
		ids:   make(map[string]int64),
		names: make(map[int64]string),
	}
	for _, gene := range p.Genes {
		n.node(gene)
	}
	for _, e := range p.Edges {
		from, to := n.node(e.Source), n.node(e.Target)
		l := n.g.NewLine(from, to).(multi.Line)
		n.g.SetLine(line{Line: l, record: e})
		n.lines++
	}
	return n
}

func (n *Network) node(gene string) graph.Node {
	if id, ok := n.ids[gene]; ok {
		return n.g.Node(id)
	}
	nd := n.g.NewNode()
	n.g.AddNode(nd)
	n.ids[gene] = nd.ID()
	n.names[nd.ID()] = gene
	return nd
}

// Graph exposes the underlying gonum graph.
func (n *Network) Graph() graph.DirectedMultigraph { return n.g }

// NodeCount returns the size of the gene universe.
func (n *Network) NodeCount() int { return len(n.ids) }

// LineCount returns the number of directed lines, parallel lines included.
func (n *Network) LineCount() int { return n.lines }

// Has reports whether gene is part of the universe.
func (n *Network) Has(gene string) bool {
	_, ok := n.ids[gene]
	return ok
}

// Nodes returns the gene universe in ascending order.
func (n *Network) Nodes() []string {
	out := make([]string, 0, len(n.ids))
	for g := range n.ids {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Successors returns the distinct genes gene points to, ascending.
func (n *Network) Successors(gene string) []string {
	id, ok := n.ids[gene]
	if !ok {
		return nil
	}
	var out []string
	it := n.g.From(id)
	for it.Next() {
		out = append(out, n.names[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// Lines returns every record between from and to in insertion order.
func (n *Network) Lines(from, to string) []domain.Interaction {
	u, ok := n.ids[from]
	if !ok {
		return nil
	}
	v, ok := n.ids[to]
	if !ok {
		return nil
	}
	var out []line
	it := n.g.Lines(u, v)
	for it.Next() {
		out = append(out, it.Line().(line))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	records := make([]domain.Interaction, len(out))
	for i, l := range out {
		records[i] = l.record
	}
	return records
}

// Edges returns every line as a record, ordered by source, target, then
// insertion order.
func (n *Network) Edges() []domain.Interaction {
	out := make([]domain.Interaction, 0, n.lines)
	for _, from := range n.Nodes() {
		for _, to := range n.Successors(from) {
			out = append(out, n.Lines(from, to)...)
		}
	}
	return out
}

// Distinct returns one record per directed gene pair, keeping the first line
// inserted for that pair.
func (n *Network) Distinct() []domain.Interaction {
	var out []domain.Interaction
	for _, from := range n.Nodes() {
		for _, to := range n.Successors(from) {
			out = append(out, n.Lines(from, to)[0])
		}
	}
	return out
}

// WriteEdges writes edges as headerless gene1<TAB>gene2 rows.
func WriteEdges(path string, edges []domain.Interaction) error {
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{e.Source, e.Target}
	}
	return tabular.WriteFile(path, nil, rows)
}
