package service

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vanshika/sectarget/internal/association"
	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/enrichment"
	"github.com/vanshika/sectarget/internal/interaction"
	"github.com/vanshika/sectarget/internal/pathway"
	"github.com/vanshika/sectarget/internal/repository"
	"github.com/vanshika/sectarget/internal/resolver"
)

// Pipeline runs the prioritisation stages over the tables cached in a Registry.
type Pipeline struct {
	registry *Registry
	enricher enrichment.Enricher
	exporter *BulkExporter
	logger   *slog.Logger
	newRunID func() string
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithEnricher runs enrichment through e instead of reading a precomputed table.
func WithEnricher(e enrichment.Enricher) PipelineOption {
	return func(p *Pipeline) { p.enricher = e }
}

// WithExporter pushes the network and scores to a graph store at the end of a run.
func WithExporter(be *BulkExporter) PipelineOption {
	return func(p *Pipeline) { p.exporter = be }
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(fn func() string) PipelineOption {
	return func(p *Pipeline) { p.newRunID = fn }
}

// NewPipeline returns a Pipeline over registry.
func NewPipeline(registry *Registry, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{registry: registry, logger: logger, newRunID: uuid.NewString}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request describes one prioritisation run.
type Request struct {
	Gene     string
	Disease  string
	Datatype string

	// EnrichmentResults is read when the pipeline has no enricher.
	EnrichmentResults string
	GeneSets          string
	Filter            enrichment.FilterOptions

	PathwayMapping string
	Species        string
	Policy         pathway.UnknownPathwayPolicy

	// Interactions is optional; the network stage is skipped when empty.
	Interactions string
	// OutputDir receives the stage tables; nothing is written when empty.
	OutputDir string
}

// Outputs lists the files a run wrote.
type Outputs struct {
	Input    string
	Results  string
	Pathways string
	Scores   string
	Edges    string
}

// Report is the outcome of a successful run.
type Report struct {
	RunID       string
	GeneID      string
	DiseaseID   string
	Aggregation association.Aggregation
	Ranked      []domain.RankedGene
	Enrichment  *enrichment.ResultTable
	Filter      enrichment.FilterReport
	Scores      pathway.Result
	Network     *interaction.Network
	Outputs     Outputs
}

// EnrichmentInput aggregates the associations of diseaseID and ranks the
// targets that have a symbol.
func (p *Pipeline) EnrichmentInput(diseaseID, datatype string) ([]domain.RankedGene, association.Aggregation, error) {
	store, err := p.registry.Associations()
	if err != nil {
		return nil, association.Aggregation{}, stageErr(StageAssociations, err)
	}
	agg := store.Aggregate(diseaseID, datatype)
	if agg.DatatypeFilter == domain.CapabilitySkipped {
		p.logger.Warn("associations carry no datatypeId column; datatype filter skipped",
			"disease", diseaseID, "datatype", datatype)
	}

	symbols, err := p.registry.Symbols()
	if err != nil {
		return nil, agg, stageErr(StageInput, err)
	}
	ranked := enrichment.BuildInput(agg.Scores, symbols)
	p.logger.Info("enrichment input built",
		"disease", diseaseID,
		"records", agg.Matched,
		"targets", len(agg.Scores),
		"ranked", len(ranked),
	)
	return ranked, agg, nil
}

// Enrich obtains the enrichment table for ranked, from the enricher when one
// is configured or from resultsPath otherwise, and finalises it.
func (p *Pipeline) Enrich(ctx context.Context, ranked []domain.RankedGene, resultsPath, geneSetsPath string) (*enrichment.ResultTable, error) {
	var sets *enrichment.GeneSets
	if geneSetsPath != "" {
		s, err := enrichment.LoadGeneSets(geneSetsPath)
		if err != nil {
			return nil, stageErr(StageEnrichment, err)
		}
		sets = s
	}

	var (
		table *enrichment.ResultTable
		err   error
	)
	if p.enricher != nil {
		table, err = p.enricher.Enrich(ctx, ranked)
	} else {
		table, err = enrichment.ReadResults(resultsPath)
	}
	if err != nil {
		return nil, stageErr(StageEnrichment, err)
	}

	enrichment.Process(table, sets)
	if table.QValueDerived {
		p.logger.Info("qval derived from pval with Benjamini-Hochberg", "terms", len(table.Rows))
	}
	return table, nil
}

// SelectPathways filters table and logs each requested filter that had to be skipped.
func (p *Pipeline) SelectPathways(table *enrichment.ResultTable, opts enrichment.FilterOptions) enrichment.FilterReport {
	report := enrichment.Filter(table, opts)
	for _, f := range []struct {
		column string
		c      domain.Capability
	}{
		{enrichment.ColumnPValue, report.PValue},
		{enrichment.ColumnQValue, report.FDR},
		{enrichment.ColumnNES, report.NES},
	} {
		if f.c == domain.CapabilitySkipped {
			p.logger.Warn("enrichment results lack column; filter skipped", "column", f.column)
		}
	}
	p.logger.Info("significant pathways selected", "terms", len(table.Rows), "selected", len(report.IDs))
	return report
}

// ScoreTarget scores the genes shared by the disease pathways and the
// pathways of target.
func (p *Pipeline) ScoreTarget(index *pathway.Index, diseasePathways []string, target string, policy pathway.UnknownPathwayPolicy) (pathway.Result, error) {
	res, err := pathway.NewScorer(index, policy).ScoreAll(diseasePathways, target)
	if err != nil {
		return pathway.Result{}, stageErr(StageScoring, err)
	}
	for _, id := range res.SkippedPathways {
		p.logger.Warn("disease pathway not in pathway mapping; skipped", "pathway", id)
	}
	p.logger.Info("overlap scored",
		"target", target,
		"disease_genes", res.DiseaseGenes,
		"target_genes", res.TargetGenes,
		"overlap", len(res.Scores),
	)
	return res, nil
}

// Run executes every stage in order. The first failure aborts the run and is
// returned as a *StageError. Each table is written only after its stage has
// fully computed.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	rep := &Report{RunID: p.newRunID()}
	logger := p.logger.With("run_id", rep.RunID)
	logger.Info("run started", "gene", req.Gene, "disease", req.Disease)
	run := &Pipeline{registry: p.registry, enricher: p.enricher, exporter: p.exporter, logger: logger, newRunID: p.newRunID}

	geneID, diseaseID, err := p.registry.Validate(req.Gene, req.Disease)
	if err != nil {
		return nil, stageErr(StageValidate, err)
	}
	rep.GeneID, rep.DiseaseID = geneID, diseaseID
	stem := fileStem(diseaseID)

	rep.Ranked, rep.Aggregation, err = run.EnrichmentInput(diseaseID, req.Datatype)
	if err != nil {
		return nil, err
	}
	if rep.Outputs.Input, err = writeOutput(req.OutputDir, stem+"_gsea_input.tsv", func(path string) error {
		return enrichment.WriteInput(path, rep.Ranked)
	}); err != nil {
		return nil, stageErr(StageInput, err)
	}

	rep.Enrichment, err = run.Enrich(ctx, rep.Ranked, req.EnrichmentResults, req.GeneSets)
	if err != nil {
		return nil, err
	}
	if rep.Outputs.Results, err = writeOutput(req.OutputDir, stem+"_gsea_results.tsv", func(path string) error {
		return enrichment.WriteResults(path, rep.Enrichment)
	}); err != nil {
		return nil, stageErr(StageEnrichment, err)
	}

	rep.Filter = run.SelectPathways(rep.Enrichment, req.Filter)
	if rep.Outputs.Pathways, err = writeOutput(req.OutputDir, stem+"_gsea_ids.tsv", func(path string) error {
		return enrichment.WritePathwayIDs(path, rep.Filter.IDs)
	}); err != nil {
		return nil, stageErr(StagePathways, err)
	}

	index, err := pathway.LoadMapping(req.PathwayMapping, req.Species)
	if err != nil {
		return nil, stageErr(StageScoring, err)
	}
	target := resolver.GeneNames(req.Gene)
	rep.Scores, err = run.ScoreTarget(index, rep.Filter.IDs, target, req.Policy)
	if err != nil {
		return nil, err
	}
	if rep.Outputs.Scores, err = writeOutput(req.OutputDir, fileStem(target)+"_"+stem+"_scores.tsv", func(path string) error {
		return pathway.WriteScores(path, rep.Scores.Scores)
	}); err != nil {
		return nil, stageErr(StageScoring, err)
	}

	if req.Interactions != "" {
		parsed, err := interaction.Load(req.Interactions)
		if err != nil {
			return nil, stageErr(StageInteractions, err)
		}
		rep.Network = interaction.Build(parsed)
		logger.Info("interaction network built",
			"nodes", rep.Network.NodeCount(),
			"lines", rep.Network.LineCount(),
			"undirected_records", parsed.Undirected,
		)
		if rep.Outputs.Edges, err = writeOutput(req.OutputDir, "interactions.tsv", func(path string) error {
			return interaction.WriteEdges(path, rep.Network.Edges())
		}); err != nil {
			return nil, stageErr(StageInteractions, err)
		}
	}

	if p.exporter != nil {
		if rep.Network != nil {
			if _, err := p.exporter.ExportNetwork(ctx, rep.Network); err != nil {
				return nil, stageErr(StageExport, err)
			}
		}
		if _, err := p.exporter.ExportScores(ctx, repository.ScoreRun{
			RunID:   rep.RunID,
			Target:  target,
			Disease: diseaseID,
			Scores:  rep.Scores.Scores,
		}); err != nil {
			return nil, stageErr(StageExport, err)
		}
	}

	logger.Info("run finished", "scores", len(rep.Scores.Scores))
	return rep, nil
}

func writeOutput(dir, name string, write func(path string) error) (string, error) {
	if dir == "" {
		return "", nil
	}
	path := filepath.Join(dir, name)
	if err := write(path); err != nil {
		return "", err
	}
	return path, nil
}
