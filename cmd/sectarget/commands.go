package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vanshika/sectarget/internal/association"
	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/enrichment"
	"github.com/vanshika/sectarget/internal/graph"
	"github.com/vanshika/sectarget/internal/interaction"
	"github.com/vanshika/sectarget/internal/pathway"
	"github.com/vanshika/sectarget/internal/repository"
	"github.com/vanshika/sectarget/internal/resolver"
	"github.com/vanshika/sectarget/internal/service"
	"github.com/vanshika/sectarget/internal/tabular"
)

func (a *app) registry() *service.Registry {
	d := a.cfg.Data
	return service.NewRegistry(service.FileLoaders(service.Sources{
		GeneFile:    d.GeneFile,
		DiseaseFile: d.DiseaseFile,
		Associations: association.Source{
			Dir:          d.AssociationDir,
			FallbackFile: d.AssociationFile,
		},
		TargetDir: targetDir(d.TargetDir),
	}), a.logger)
}

// targetDir keeps the target partitions optional: a missing directory falls
// back to the gene map for symbols.
func targetDir(dir string) string {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// enricher builds the configured external enrichment command. geneSets is
// the GMT handed to it as {gmt}; the configured file is used when empty.
func (a *app) enricher(geneSets string) enrichment.Enricher {
	args := strings.Fields(a.cfg.Enrichment.Command)
	if len(args) == 0 {
		return nil
	}
	return &enrichment.CommandEnricher{
		Command:      args,
		GeneSetsPath: orDefault(geneSets, a.cfg.Data.GeneSets),
		Processes:    a.cfg.Enrichment.Processes,
	}
}

// exporter connects to the graph store; the returned func closes the client.
func (a *app) exporter(ctx context.Context) (*service.BulkExporter, func(), error) {
	g := a.cfg.Graph
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            g.URI,
		Database:       g.Database,
		Username:       g.Username,
		Password:       g.Password,
		MaxConnections: g.MaxConnections,
		ConnectTimeout: g.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(context.Background()); err != nil {
			a.logger.Warn("closing graph client failed", "error", err)
		}
	}
	repo := repository.New(client, repository.WithBatchSize(a.cfg.Export.BatchSize))
	return service.NewBulkExporter(repo, a.cfg.Export.Workers, repo.BatchSize(), a.logger), closeFn, nil
}

func (a *app) policy(flag string) (pathway.UnknownPathwayPolicy, error) {
	if flag == "" {
		flag = a.cfg.Scoring.UnknownPathways
	}
	return pathway.ParsePolicy(flag)
}

// filterFlags registers the significance thresholds shared by pathways and run.
type filterFlags struct {
	pvalue      float64
	fdr         float64
	nesPositive bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.pvalue, "pvalue", 0, "Keep terms with pval <= threshold")
	cmd.Flags().Float64Var(&f.fdr, "fdr", 0, "Keep terms with qval <= threshold")
	cmd.Flags().BoolVar(&f.nesPositive, "nes-positive", false, "Keep terms with NES > 0")
}

func (f *filterFlags) options(cmd *cobra.Command, base enrichment.FilterOptions) enrichment.FilterOptions {
	opts := base
	if cmd.Flags().Changed("pvalue") {
		v := f.pvalue
		opts.PValue = &v
	}
	if cmd.Flags().Changed("fdr") {
		v := f.fdr
		opts.FDR = &v
	}
	if cmd.Flags().Changed("nes-positive") {
		opts.NESPositive = f.nesPositive
	}
	return opts
}

func (a *app) baseFilter() enrichment.FilterOptions {
	return enrichment.FilterOptions{
		PValue:      a.cfg.Enrichment.PValue,
		FDR:         a.cfg.Enrichment.FDR,
		NESPositive: a.cfg.Enrichment.NESPositive,
	}
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func newValidateCmd(a *app) *cobra.Command {
	var gene, disease string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Resolve a target symbol and disease name to their identifiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			geneID, diseaseID, err := a.registry().Validate(gene, disease)
			if err != nil {
				return inStage(service.StageValidate, err)
			}
			fmt.Fprintf(a.stdout, "%s\t%s\n", geneID, diseaseID)
			return nil
		},
	}
	cmd.Flags().StringVar(&gene, "gene", "", "Primary target symbol")
	cmd.Flags().StringVar(&disease, "disease", "", "Disease name")
	_ = cmd.MarkFlagRequired("gene")
	_ = cmd.MarkFlagRequired("disease")
	return cmd
}

func newInputCmd(a *app) *cobra.Command {
	var disease, datatype, output string
	cmd := &cobra.Command{
		Use:   "gsea-input",
		Short: "Write the ranked symbol/globalScore list for a disease",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := a.registry()
			diseaseID, err := reg.DiseaseID(disease)
			if err != nil {
				return inStage(service.StageValidate, err)
			}
			ranked, _, err := service.NewPipeline(reg, a.logger).EnrichmentInput(diseaseID, datatype)
			if err != nil {
				return err
			}
			return inStage(service.StageInput, enrichment.WriteInput(output, ranked))
		},
	}
	cmd.Flags().StringVar(&disease, "disease", "", "Disease name")
	cmd.Flags().StringVar(&datatype, "datatype", "", "Restrict associations to one datatypeId")
	cmd.Flags().StringVarP(&output, "output", "o", tabular.Stdout, "Output TSV, - for stdout")
	_ = cmd.MarkFlagRequired("disease")
	return cmd
}

func newPathwaysCmd(a *app) *cobra.Command {
	var (
		results, input, geneSets, output, processed string
		filters                                     filterFlags
	)
	cmd := &cobra.Command{
		Use:   "pathways",
		Short: "Select significant pathway IDs from enrichment results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []service.PipelineOption
			var ranked []domain.RankedGene
			if input != "" {
				e := a.enricher(geneSets)
				if e == nil {
					return inStage(service.StageEnrichment, enrichment.ErrNoCommand)
				}
				opts = append(opts, service.WithEnricher(e))
				rows, err := readRanked(input)
				if err != nil {
					return inStage(service.StageEnrichment, err)
				}
				ranked = rows
			} else if results == "" {
				return inStage(service.StagePathways, fmt.Errorf("either --results or --input is required"))
			}

			p := service.NewPipeline(nil, a.logger, opts...)
			table, err := p.Enrich(cmd.Context(), ranked, results, geneSets)
			if err != nil {
				return err
			}
			if processed != "" {
				if err := enrichment.WriteResults(processed, table); err != nil {
					return inStage(service.StageEnrichment, err)
				}
			}
			report := p.SelectPathways(table, filters.options(cmd, a.baseFilter()))
			return inStage(service.StagePathways, enrichment.WritePathwayIDs(output, report.IDs))
		},
	}
	cmd.Flags().StringVar(&results, "results", "", "Enrichment result TSV")
	cmd.Flags().StringVar(&input, "input", "", "Ranked list to enrich with the configured command instead of --results")
	cmd.Flags().StringVar(&geneSets, "gene-sets", "", "GMT file whose members become propagated_edge")
	cmd.Flags().StringVar(&processed, "processed", "", "Also write the processed result table here")
	cmd.Flags().StringVarP(&output, "output", "o", tabular.Stdout, "Output pathway ID list, - for stdout")
	cmd.MarkFlagsMutuallyExclusive("results", "input")
	filters.register(cmd)
	return cmd
}

func newScoreCmd(a *app) *cobra.Command {
	var target, pathways, mapping, species, policyFlag, output string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score genes on both disease pathways and pathways of the target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := a.policy(policyFlag)
			if err != nil {
				return inStage(service.StageScoring, err)
			}
			ids, err := pathway.LoadPathwayIDs(pathways)
			if err != nil {
				return inStage(service.StageScoring, err)
			}
			index, err := pathway.LoadMapping(orDefault(mapping, a.cfg.Data.PathwayMapping), orDefault(species, a.cfg.Data.Species))
			if err != nil {
				return inStage(service.StageScoring, err)
			}
			res, err := service.NewPipeline(nil, a.logger).ScoreTarget(index, ids, resolver.GeneNames(target), policy)
			if err != nil {
				return err
			}
			return inStage(service.StageScoring, pathway.WriteScores(output, res.Scores))
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "Primary target symbol")
	cmd.Flags().StringVar(&pathways, "pathways", "", "Disease pathway ID list")
	cmd.Flags().StringVar(&mapping, "mapping", "", "Gene to pathway mapping file")
	cmd.Flags().StringVar(&species, "species", "", "Organism to index")
	cmd.Flags().StringVar(&policyFlag, "unknown-pathways", "", "strict or skip")
	cmd.Flags().StringVarP(&output, "output", "o", tabular.Stdout, "Output GENE/SCORE TSV, - for stdout")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("pathways")
	return cmd
}

func newInteractionsCmd(a *app) *cobra.Command {
	var file, output string
	var distinct bool
	cmd := &cobra.Command{
		Use:   "interactions",
		Short: "Build the directed interaction network and write its edge list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			net, err := a.network(orDefault(file, a.cfg.Data.Interactions))
			if err != nil {
				return err
			}
			edges := net.Edges()
			if distinct {
				edges = net.Distinct()
			}
			return inStage(service.StageInteractions, interaction.WriteEdges(output, edges))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Functional interaction TSV")
	cmd.Flags().StringVarP(&output, "output", "o", tabular.Stdout, "Output edge list, - for stdout")
	cmd.Flags().BoolVar(&distinct, "distinct", false, "Write one line per directed gene pair")
	return cmd
}

func (a *app) network(path string) (*interaction.Network, error) {
	parsed, err := interaction.Load(path)
	if err != nil {
		return nil, inStage(service.StageInteractions, err)
	}
	net := interaction.Build(parsed)
	a.logger.Info("interaction network built",
		"nodes", net.NodeCount(),
		"lines", net.LineCount(),
		"distinct", len(net.Distinct()),
		"undirected_records", parsed.Undirected,
	)
	return net, nil
}

func newExportCmd(a *app) *cobra.Command {
	var file, scores, target, disease, runID string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Push the interaction network and a score table to the graph store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			exporter, closeFn, err := a.exporter(ctx)
			if err != nil {
				return inStage(service.StageExport, err)
			}
			defer closeFn()

			if file != "" {
				net, err := a.network(file)
				if err != nil {
					return err
				}
				if _, err := exporter.ExportNetwork(ctx, net); err != nil {
					return inStage(service.StageExport, err)
				}
			}
			if scores != "" {
				rows, err := readScores(scores)
				if err != nil {
					return inStage(service.StageExport, err)
				}
				if runID == "" {
					runID = uuid.NewString()
				}
				_, err = exporter.ExportScores(ctx, repository.ScoreRun{RunID: runID, Target: target, Disease: disease, Scores: rows})
				return inStage(service.StageExport, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "interactions", "", "Functional interaction TSV to export")
	cmd.Flags().StringVar(&scores, "scores", "", "GENE/SCORE TSV to export")
	cmd.Flags().StringVar(&target, "target", "", "Primary target the scores belong to")
	cmd.Flags().StringVar(&disease, "disease", "", "Disease ID the scores belong to")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run ID, generated when empty")
	cmd.MarkFlagsRequiredTogether("scores", "target")
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		req        service.Request
		policyFlag string
		export     bool
		filters    filterFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage for one target and disease",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			policy, err := a.policy(policyFlag)
			if err != nil {
				return inStage(service.StageScoring, err)
			}
			req.Policy = policy
			req.Filter = filters.options(cmd, a.baseFilter())
			req.GeneSets = orDefault(req.GeneSets, a.cfg.Data.GeneSets)
			req.PathwayMapping = orDefault(req.PathwayMapping, a.cfg.Data.PathwayMapping)
			req.Species = orDefault(req.Species, a.cfg.Data.Species)
			req.OutputDir = orDefault(req.OutputDir, a.cfg.Data.OutputDir)

			// An explicit --results beats the configured command.
			var opts []service.PipelineOption
			if req.EnrichmentResults != "" {
				if a.cfg.Enrichment.Command != "" {
					a.logger.Info("using precomputed enrichment results; command not run", "results", req.EnrichmentResults)
				}
			} else if e := a.enricher(req.GeneSets); e != nil {
				opts = append(opts, service.WithEnricher(e))
			} else {
				return inStage(service.StageEnrichment, fmt.Errorf("no enrichment command configured and no --results given"))
			}

			if req.GeneSets != "" {
				if _, err := os.Stat(req.GeneSets); err != nil {
					a.logger.Warn("gene sets not found; propagated_edge left empty", "path", req.GeneSets)
					req.GeneSets = ""
				}
			}
			if export {
				exporter, closeFn, err := a.exporter(ctx)
				if err != nil {
					return inStage(service.StageExport, err)
				}
				defer closeFn()
				opts = append(opts, service.WithExporter(exporter))
			}

			rep, err := service.NewPipeline(a.registry(), a.logger, opts...).Run(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "run %s: %d scored genes, outputs in %s\n", rep.RunID, len(rep.Scores.Scores), req.OutputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Gene, "gene", "", "Primary target symbol")
	cmd.Flags().StringVar(&req.Disease, "disease", "", "Disease name")
	cmd.Flags().StringVar(&req.Datatype, "datatype", "", "Restrict associations to one datatypeId")
	cmd.Flags().StringVar(&req.EnrichmentResults, "results", "", "Precomputed enrichment result TSV")
	cmd.Flags().StringVar(&req.GeneSets, "gene-sets", "", "GMT gene sets")
	cmd.Flags().StringVar(&req.PathwayMapping, "mapping", "", "Gene to pathway mapping file")
	cmd.Flags().StringVar(&req.Species, "species", "", "Organism to index")
	cmd.Flags().StringVar(&req.Interactions, "interactions", "", "Functional interaction TSV; network stage skipped when empty")
	cmd.Flags().StringVar(&req.OutputDir, "output-dir", "", "Directory for stage outputs")
	cmd.Flags().StringVar(&policyFlag, "unknown-pathways", "", "strict or skip")
	cmd.Flags().BoolVar(&export, "export", false, "Push the network and scores to the graph store")
	filters.register(cmd)
	_ = cmd.MarkFlagRequired("gene")
	_ = cmd.MarkFlagRequired("disease")
	return cmd
}

func readRanked(path string) ([]domain.RankedGene, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := tabular.RequireColumns(path, table.Header, enrichment.ColumnSymbol, enrichment.ColumnGlobalScore); err != nil {
		return nil, err
	}
	symCol, scoreCol := table.Column(enrichment.ColumnSymbol), table.Column(enrichment.ColumnGlobalScore)
	out := make([]domain.RankedGene, 0, len(table.Rows))
	for i, row := range table.Rows {
		score, err := tabular.ParseFloat(table.Field(row, scoreCol))
		if err != nil {
			return nil, domain.NewRecordError(domain.ErrMalformedRecord, path, table.Lines[i], strings.Join(row, "\t"), "bad globalScore")
		}
		out = append(out, domain.RankedGene{Symbol: table.Field(row, symCol), Score: score})
	}
	return out, nil
}

func readScores(path string) ([]domain.GeneScore, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if err := tabular.RequireColumns(path, table.Header, "GENE", "SCORE"); err != nil {
		return nil, err
	}
	geneCol, scoreCol := table.Column("GENE"), table.Column("SCORE")
	out := make([]domain.GeneScore, 0, len(table.Rows))
	for i, row := range table.Rows {
		score, err := tabular.ParseFloat(table.Field(row, scoreCol))
		if err != nil {
			return nil, domain.NewRecordError(domain.ErrMalformedRecord, path, table.Lines[i], strings.Join(row, "\t"), "bad SCORE")
		}
		out = append(out, domain.GeneScore{Gene: table.Field(row, geneCol), Score: score})
	}
	return out, nil
}

func readTable(path string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return tabular.ReadTable(f, path)
}
