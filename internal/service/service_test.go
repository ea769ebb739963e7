package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/sectarget/internal/association"
	"github.com/vanshika/sectarget/internal/config"
	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/enrichment"
	"github.com/vanshika/sectarget/internal/graph"
	"github.com/vanshika/sectarget/internal/interaction"
	"github.com/vanshika/sectarget/internal/logging"
	"github.com/vanshika/sectarget/internal/pathway"
	"github.com/vanshika/sectarget/internal/repository"
	"github.com/vanshika/sectarget/internal/resolver"
)

const (
	geneTable    = "approvedSymbol\tid\nGENEA\tENSG_A\nGENEB\tENSG_B\nBTG4\tENSG_T\n"
	diseaseTable = "name\tid\nasthma\tEFO_0000270\n"
	assocTable   = "diseaseId\ttargetId\tscore\nEFO_0000270\tENSG_A\t0.9\nEFO_0000270\tENSG_B\t0.3\nEFO_0000270\tENSG_B\t0.5\nEFO_0000999\tENSG_T\t0.8\n"
	resultsTable = "Term\tpval\tNES\nDisease pathway [R-HSA-1]\t0.01\t1.5\nOther pathway [R-HSA-2]\t0.9\t-1.0\n"
	fisTable     = "Gene1\tGene2\tAnnotation\tDirection\tScore\nGENEB\tBTG4\tactivated\t->\t1.00\nGENEC\tGENEB\tcomplex\t-\t0.90\n"
)

func mappingRows(rows ...[2]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join([]string{"ENSG", "0", r[0], r[1], "url", "name", "TAS", "Homo sapiens"}, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mapLoader(content, kind string, normalize resolver.Normalizer, calls *int32) func() (*resolver.Map, error) {
	return func() (*resolver.Map, error) {
		atomic.AddInt32(calls, 1)
		return resolver.LoadTwoColumn(strings.NewReader(content), kind, kind, normalize)
	}
}

func testLoaders(calls *int32) Loaders {
	return Loaders{
		Genes:    mapLoader(geneTable, resolver.KindGene, resolver.GeneNames, calls),
		Diseases: mapLoader(diseaseTable, resolver.KindDisease, resolver.DiseaseNames, calls),
		Associations: func() (*association.Store, error) {
			atomic.AddInt32(calls, 1)
			return association.ReadFlat(strings.NewReader(assocTable), "associations.tsv")
		},
	}
}

func TestRegistryLoadsOnce(t *testing.T) {
	var calls int32
	reg := NewRegistry(testLoaders(&calls), logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Genes()
			_, _ = reg.Diseases()
			_, _ = reg.Associations()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	first, err := reg.Genes()
	require.NoError(t, err)
	second, err := reg.Genes()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryDoesNotCacheFailures(t *testing.T) {
	attempts := 0
	reg := NewRegistry(Loaders{
		Genes: func() (*resolver.Map, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("disk hiccup")
			}
			return resolver.LoadTwoColumn(strings.NewReader(geneTable), "genes", resolver.KindGene, resolver.GeneNames)
		},
	}, logging.Discard())

	_, err := reg.Genes()
	require.Error(t, err)
	m, err := reg.Genes()
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2, attempts)
}

func TestRegistryMissingLoader(t *testing.T) {
	reg := NewRegistry(Loaders{}, logging.Discard())
	_, err := reg.Associations()
	assert.True(t, errors.Is(err, domain.ErrMissingData))
}

func TestRegistryValidate(t *testing.T) {
	var calls int32
	reg := NewRegistry(testLoaders(&calls), logging.Discard())

	geneID, diseaseID, err := reg.Validate("BTG4", " asthma ")
	require.NoError(t, err)
	assert.Equal(t, "ENSG_T", geneID)
	assert.Equal(t, "EFO_0000270", diseaseID)

	_, _, err = reg.Validate("NOPE1", "asthma")
	assert.True(t, errors.Is(err, domain.ErrUnknownGene))

	_, _, err = reg.Validate("BTG4", "gout")
	assert.True(t, errors.Is(err, domain.ErrUnknownDisease))
}

func TestSymbolsPreferTargetMap(t *testing.T) {
	var calls int32
	loaders := testLoaders(&calls)
	loaders.Targets = func() (*resolver.Map, error) {
		return resolver.MergeTargetPartitions([]resolver.TargetPartition{
			resolver.NewTargetPartition("part-0", []string{"ENSG_A"}, []string{"ALPHA"}),
		}), nil
	}
	reg := NewRegistry(loaders, logging.Discard())
	symbols, err := reg.Symbols()
	require.NoError(t, err)
	name, ok := symbols.Name("ENSG_A")
	require.True(t, ok)
	assert.Equal(t, "ALPHA", name)
}

type fixture struct {
	dir string
	req Request
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	pval := 0.05
	return fixture{
		dir: dir,
		req: Request{
			Gene:              "BTG4",
			Disease:           "asthma",
			EnrichmentResults: writeFile(t, dir, "results.tsv", resultsTable),
			Filter:            enrichment.FilterOptions{PValue: &pval},
			PathwayMapping: writeFile(t, dir, "mapping.txt", mappingRows(
				[2]string{"GENEA", "R-HSA-1"},
				[2]string{"GENEB", "R-HSA-1"},
				[2]string{"GENEB", "R-HSA-2"},
				[2]string{"GENEC", "R-HSA-2"},
				[2]string{"BTG4", "R-HSA-2"},
			)),
			Interactions: writeFile(t, dir, "fis.tsv", fisTable),
			OutputDir:    filepath.Join(dir, "out"),
		},
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	fx := newFixture(t)
	var calls int32
	mem := graph.NewMemoryClient()
	exporter := NewBulkExporter(repository.New(mem), 2, 10, logging.Discard())

	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, config.LoggingConfig{Level: "info", Format: "json"})
	p := NewPipeline(NewRegistry(testLoaders(&calls), logger), logger,
		WithExporter(exporter),
		WithRunIDs(func() string { return "run-test" }),
	)

	rep, err := p.Run(context.Background(), fx.req)
	require.NoError(t, err)

	assert.Equal(t, "run-test", rep.RunID)
	assert.Equal(t, "ENSG_T", rep.GeneID)
	assert.Equal(t, []domain.RankedGene{{Symbol: "GENEA", Score: 0.9}, {Symbol: "GENEB", Score: 0.5}}, rep.Ranked)
	assert.Equal(t, []string{"R-HSA-1"}, rep.Filter.IDs)
	assert.Equal(t, domain.CapabilityApplied, rep.Filter.PValue)
	assert.Equal(t, []domain.GeneScore{{Gene: "GENEB", Score: 1.0}}, rep.Scores.Scores)
	require.NotNil(t, rep.Network)
	assert.Equal(t, 1, rep.Network.LineCount())
	assert.Equal(t, 3, rep.Network.NodeCount())

	scores, err := os.ReadFile(rep.Outputs.Scores)
	require.NoError(t, err)
	assert.Equal(t, "GENE\tSCORE\nGENEB\t1.0\n", string(scores))
	assert.Equal(t, filepath.Join(fx.req.OutputDir, "BTG4_EFO_0000270_scores.tsv"), rep.Outputs.Scores)

	ids, err := os.ReadFile(rep.Outputs.Pathways)
	require.NoError(t, err)
	assert.Equal(t, "pathwayId\nR-HSA-1\n", string(ids))

	edges, err := os.ReadFile(rep.Outputs.Edges)
	require.NoError(t, err)
	assert.Equal(t, "GENEB\tBTG4\n", string(edges))

	writes := mem.WriteCalls()
	require.Len(t, writes, 3)
	assert.Equal(t, "run-test", writes[2].Params["runId"])

	assert.Contains(t, logs.String(), `"run_id":"run-test"`)
}

func TestPipelineRunStageErrors(t *testing.T) {
	var calls int32

	t.Run("unknown gene", func(t *testing.T) {
		fx := newFixture(t)
		fx.req.Gene = "NOPE1"
		p := NewPipeline(NewRegistry(testLoaders(&calls), logging.Discard()), logging.Discard())
		_, err := p.Run(context.Background(), fx.req)

		var stage *StageError
		require.True(t, errors.As(err, &stage))
		assert.Equal(t, StageValidate, stage.Stage)
		assert.True(t, errors.Is(err, domain.ErrUnknownGene))
	})

	t.Run("unknown pathway strict", func(t *testing.T) {
		fx := newFixture(t)
		fx.req.EnrichmentResults = writeFile(t, fx.dir, "results.tsv", "Term\tpval\nMissing [R-HSA-404]\t0.001\n")
		p := NewPipeline(NewRegistry(testLoaders(&calls), logging.Discard()), logging.Discard())
		_, err := p.Run(context.Background(), fx.req)

		var stage *StageError
		require.True(t, errors.As(err, &stage))
		assert.Equal(t, StageScoring, stage.Stage)
		assert.True(t, errors.Is(err, domain.ErrUnknownPathway))
		assert.Equal(t, "scoring: disease pathway R-HSA-404: unknown pathway", err.Error())

		_, statErr := os.Stat(filepath.Join(fx.req.OutputDir, "BTG4_EFO_0000270_scores.tsv"))
		assert.True(t, errors.Is(statErr, os.ErrNotExist), "failed stage must not leave its output")
	})

	t.Run("unknown pathway skip", func(t *testing.T) {
		fx := newFixture(t)
		fx.req.EnrichmentResults = writeFile(t, fx.dir, "results.tsv", "Term\tpval\nMissing [R-HSA-404]\t0.001\nDisease [R-HSA-1]\t0.01\n")
		fx.req.Policy = pathway.PolicySkip
		p := NewPipeline(NewRegistry(testLoaders(&calls), logging.Discard()), logging.Discard())
		rep, err := p.Run(context.Background(), fx.req)
		require.NoError(t, err)
		assert.Equal(t, []string{"R-HSA-404"}, rep.Scores.SkippedPathways)
		assert.Equal(t, []domain.GeneScore{{Gene: "GENEB", Score: 1.0}}, rep.Scores.Scores)
	})

	t.Run("bad interactions header", func(t *testing.T) {
		fx := newFixture(t)
		fx.req.Interactions = writeFile(t, fx.dir, "fis.tsv", "GENEB\tBTG4\tactivated\t->\t1.00\n")
		p := NewPipeline(NewRegistry(testLoaders(&calls), logging.Discard()), logging.Discard())
		_, err := p.Run(context.Background(), fx.req)

		var stage *StageError
		require.True(t, errors.As(err, &stage))
		assert.Equal(t, StageInteractions, stage.Stage)
		assert.True(t, errors.Is(err, domain.ErrHeaderMismatch))
	})
}

func TestEnrichmentInputWarnsOnSkippedDatatype(t *testing.T) {
	var calls int32
	var logs bytes.Buffer
	logger := logging.NewWithWriter(&logs, config.LoggingConfig{Level: "warn"})
	p := NewPipeline(NewRegistry(testLoaders(&calls), logger), logger)

	ranked, agg, err := p.EnrichmentInput("EFO_0000270", "literature")
	require.NoError(t, err)
	assert.Equal(t, domain.CapabilitySkipped, agg.DatatypeFilter)
	assert.Len(t, ranked, 2)
	assert.Contains(t, logs.String(), "datatype filter skipped")
}

type stubEnricher struct {
	table *enrichment.ResultTable
	got   []domain.RankedGene
}

func (s *stubEnricher) Enrich(_ context.Context, ranked []domain.RankedGene) (*enrichment.ResultTable, error) {
	s.got = ranked
	return s.table, nil
}

func TestEnrichUsesEnricherAndDerivesQValues(t *testing.T) {
	stub := &stubEnricher{table: &enrichment.ResultTable{
		HasPValue: true,
		Rows: []enrichment.Result{
			{Term: "A [R-HSA-1]", PValue: 0.01},
			{Term: "B [R-HSA-2]", PValue: 0.04},
		},
	}}
	p := NewPipeline(NewRegistry(Loaders{}, logging.Discard()), logging.Discard(), WithEnricher(stub))
	ranked := []domain.RankedGene{{Symbol: "GENEA", Score: 1}}

	table, err := p.Enrich(context.Background(), ranked, "", "")
	require.NoError(t, err)
	assert.Equal(t, ranked, stub.got)
	assert.True(t, table.QValueDerived)
	assert.Equal(t, "R-HSA-1", table.Rows[0].ID)
	assert.InDelta(t, 0.02, table.Rows[0].QValue, 1e-12)
	assert.InDelta(t, 0.04, table.Rows[1].QValue, 1e-12)
}

type stubStore struct {
	mu      sync.Mutex
	batches int
	failOn  string
}

func (s *stubStore) UpsertGenes(context.Context, []string) (graph.Counters, error) {
	return graph.Counters{NodesCreated: 1}, nil
}

func (s *stubStore) UpsertInteractions(_ context.Context, edges []domain.Interaction) (graph.Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		if e.Source == s.failOn {
			return graph.Counters{}, errors.New("constraint violation")
		}
	}
	s.batches++
	return graph.Counters{RelationshipsCreated: len(edges)}, nil
}

func (s *stubStore) SaveScoreRun(context.Context, repository.ScoreRun) (graph.Counters, error) {
	return graph.Counters{}, nil
}

func TestBulkExporterBatchesAndCollectsErrors(t *testing.T) {
	fx := newFixture(t)
	body := "Gene1\tGene2\tAnnotation\tDirection\tScore\n"
	for _, g := range []string{"A", "B", "C", "D", "E"} {
		body += g + "\tZ\tactivated\t->\t1\n"
	}
	net := loadNetwork(t, writeFile(t, fx.dir, "fis.tsv", body))

	store := &stubStore{}
	counters, err := NewBulkExporter(store, 3, 2, logging.Discard()).ExportNetwork(context.Background(), net)
	require.NoError(t, err)
	assert.Equal(t, 3, store.batches)
	assert.Equal(t, 5, counters.RelationshipsCreated)

	failing := &stubStore{failOn: "C"}
	_, err = NewBulkExporter(failing, 3, 2, logging.Discard()).ExportNetwork(context.Background(), net)
	var taskErr *TaskError
	require.True(t, errors.As(err, &taskErr))
	assert.Len(t, taskErr.Errors, 1)
}

func TestBulkExporterHonoursCancellation(t *testing.T) {
	fx := newFixture(t)
	net := loadNetwork(t, fx.req.Interactions)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBulkExporter(&stubStore{}, 1, 1, logging.Discard()).ExportNetwork(ctx, net)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "EFO_0000270", fileStem("EFO_0000270"))
	assert.Equal(t, "type_2_diabetes", fileStem("  type 2  diabetes "))
	assert.Equal(t, "unnamed", fileStem("///"))
}

func loadNetwork(t *testing.T, path string) *interaction.Network {
	t.Helper()
	parsed, err := interaction.Load(path)
	require.NoError(t, err)
	return interaction.Build(parsed)
}

func TestSelectPathwaysWarnsInColumnOrder(t *testing.T) {
	pval, fdr := 0.05, 0.25
	table := &enrichment.ResultTable{Rows: []enrichment.Result{{Term: "A [R-HSA-1]", ID: "R-HSA-1"}}}

	for i := 0; i < 5; i++ {
		var logs bytes.Buffer
		logger := logging.NewWithWriter(&logs, config.LoggingConfig{Level: "warn"})
		report := NewPipeline(nil, logger).SelectPathways(table, enrichment.FilterOptions{PValue: &pval, FDR: &fdr, NESPositive: true})
		assert.Equal(t, []string{"R-HSA-1"}, report.IDs)

		out := logs.String()
		p, q, n := strings.Index(out, "column=pval"), strings.Index(out, "column=qval"), strings.Index(out, "column=NES")
		require.True(t, p >= 0 && q >= 0 && n >= 0, out)
		assert.True(t, p < q && q < n, out)
	}
}
