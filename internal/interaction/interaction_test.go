package interaction

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/sectarget/internal/domain"
)

const header = "Gene1\tGene2\tAnnotation\tDirection\tScore\n"

func parse(t *testing.T, body string) *Parsed {
	t.Helper()
	p, err := Parse(strings.NewReader(header+body), "FIsInGene.tsv")
	require.NoError(t, err)
	return p
}

func TestParseDirectionMarkers(t *testing.T) {
	p := parse(t, strings.Join([]string{
		"A\tB\tcatalyzed\t->\t1.00",
		"C\tD\tinhibited by\t<-\t0.90",
		"E\tF\tcomplex\t-\t1.00",
		"G\tH\tpredicted\t<->\t0.50",
	}, "\n")+"\n")

	assert.Equal(t, []domain.Interaction{
		{Source: "A", Target: "B", Annotation: "catalyzed", Score: "1.00"},
		{Source: "D", Target: "C", Annotation: "inhibited by", Score: "0.90"},
	}, p.Edges)
	assert.Equal(t, 2, p.Undirected)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"}, p.Genes)
}

func TestParseHeaderMismatch(t *testing.T) {
	for _, src := range []string{
		"",
		"A\tB\tcatalyzed\t->\t1.00\n",
		"Gene1\tGene2\tAnnotation\tDirection\n",
		"Gene1\tGene2\tAnnotation\tDirection\tScore\tExtra\n",
	} {
		_, err := Parse(strings.NewReader(src), "bad.tsv")
		assert.True(t, errors.Is(err, domain.ErrHeaderMismatch), "source %q: %v", src, err)
	}
}

func TestParseAcceptsCRLF(t *testing.T) {
	p, err := Parse(strings.NewReader("Gene1\tGene2\tAnnotation\tDirection\tScore\r\nA\tB\tx\t->\t1\r\n"), "crlf.tsv")
	require.NoError(t, err)
	require.Len(t, p.Edges, 1)
	assert.Equal(t, "1", p.Edges[0].Score)
}

func TestParseMalformedRecord(t *testing.T) {
	_, err := Parse(strings.NewReader(header+"A\tB\tx\t->\t1\nA\tB\t->\n"), "short.tsv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedRecord))

	var recErr *domain.RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 3, recErr.Line)
	assert.Equal(t, "short.tsv", recErr.Source)
}

func TestBuildKeepsParallelLines(t *testing.T) {
	p := parse(t, strings.Join([]string{
		"A\tB\tcatalyzed\t->\t1.00",
		"B\tA\tcatalyzed\t<-\t0.70",
		"B\tC\tactivated\t->\t0.80",
		"Z\tY\tcomplex\t-\t1.00",
	}, "\n")+"\n")
	n := Build(p)

	assert.Equal(t, []string{"A", "B", "C", "Y", "Z"}, n.Nodes())
	assert.Equal(t, 5, n.NodeCount())
	assert.Equal(t, 3, n.LineCount())
	assert.Equal(t, []string{"B"}, n.Successors("A"))
	assert.Equal(t, []string{"C"}, n.Successors("B"))
	assert.Empty(t, n.Successors("Z"))
	assert.True(t, n.Has("Y"))

	lines := n.Lines("A", "B")
	require.Len(t, lines, 2)
	assert.Equal(t, "1.00", lines[0].Score)
	assert.Equal(t, "0.70", lines[1].Score)

	assert.Equal(t, []domain.Interaction{
		{Source: "A", Target: "B", Annotation: "catalyzed", Score: "1.00"},
		{Source: "A", Target: "B", Annotation: "catalyzed", Score: "0.70"},
		{Source: "B", Target: "C", Annotation: "activated", Score: "0.80"},
	}, n.Edges())

	distinct := n.Distinct()
	require.Len(t, distinct, 2)
	assert.Equal(t, "1.00", distinct[0].Score)

	assert.Equal(t, 2, n.Graph().Lines(n.ids["A"], n.ids["B"]).Len())
}

func TestWriteEdgesHasNoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.tsv")
	require.NoError(t, WriteEdges(path, []domain.Interaction{{Source: "A", Target: "B"}, {Source: "B", Target: "C"}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A\tB\nB\tC\n", string(data))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.tsv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
