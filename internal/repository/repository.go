package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/graph"
)

const (
	defaultBatchSize = 500
	maxBatchSize     = 10000
	defaultTopLimit  = 50
)

// Repository persists the interaction network and overlap scores in a graph store.
type Repository struct {
	client    graph.Client
	batchSize int
	nowFn     func() time.Time
}

// Option customises a Repository.
type Option func(*Repository)

// WithBatchSize bounds the number of rows sent per UNWIND statement.
func WithBatchSize(n int) Option {
	return func(r *Repository) {
		switch {
		case n <= 0:
			r.batchSize = defaultBatchSize
		case n > maxBatchSize:
			r.batchSize = maxBatchSize
		default:
			r.batchSize = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.nowFn = now }
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client, opts ...Option) *Repository {
	r := &Repository{client: client, batchSize: defaultBatchSize, nowFn: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BatchSize returns the configured UNWIND batch size.
func (r *Repository) BatchSize() int { return r.batchSize }

// ScoreRun is one persisted scoring outcome.
type ScoreRun struct {
	RunID   string
	Target  string
	Disease string
	Scores  []domain.GeneScore
}

// UpsertGenes ensures a Gene node exists for every symbol.
func (r *Repository) UpsertGenes(ctx context.Context, symbols []string) (graph.Counters, error) {
	var total graph.Counters
	for start := 0; start < len(symbols); start += r.batchSize {
		end := min(start+r.batchSize, len(symbols))
		res, err := r.client.ExecuteWrite(ctx, upsertGenesCypher, map[string]any{
			"symbols": append([]string(nil), symbols[start:end]...),
		})
		if err != nil {
			return total, fmt.Errorf("upsert genes %d-%d: %w", start, end, err)
		}
		total.Add(res.Counters)
	}
	return total, nil
}

// UpsertInteractions merges one INTERACTS relationship per distinct
// (source, target, annotation) and refreshes its score.
func (r *Repository) UpsertInteractions(ctx context.Context, edges []domain.Interaction) (graph.Counters, error) {
	var total graph.Counters
	for start := 0; start < len(edges); start += r.batchSize {
		end := min(start+r.batchSize, len(edges))
		batch := make([]map[string]any, 0, end-start)
		for _, e := range edges[start:end] {
			if e.Source == "" || e.Target == "" {
				return total, errors.New("interaction endpoints are required")
			}
			batch = append(batch, interactionParams(e))
		}
		res, err := r.client.ExecuteWrite(ctx, upsertInteractionsCypher, map[string]any{"edges": batch})
		if err != nil {
			return total, fmt.Errorf("upsert interactions %d-%d: %w", start, end, err)
		}
		total.Add(res.Counters)
	}
	return total, nil
}

// SaveScoreRun records a scoring run and links every scored gene to the target.
func (r *Repository) SaveScoreRun(ctx context.Context, run ScoreRun) (graph.Counters, error) {
	if run.RunID == "" {
		return graph.Counters{}, errors.New("run id is required")
	}
	if run.Target == "" {
		return graph.Counters{}, errors.New("target is required")
	}

	params := map[string]any{
		"runId":     run.RunID,
		"target":    run.Target,
		"disease":   run.Disease,
		"createdAt": r.nowFn().UTC().Format(time.RFC3339Nano),
		"scores":    scoreParams(run.Scores),
	}
	res, err := r.client.ExecuteWrite(ctx, saveScoreRunCypher, params)
	if err != nil {
		return graph.Counters{}, fmt.Errorf("save score run %s: %w", run.RunID, err)
	}
	return res.Counters, nil
}

// TopScores returns the best scored genes of a run, score descending then gene.
func (r *Repository) TopScores(ctx context.Context, runID string, limit int) ([]domain.GeneScore, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("run id is required")
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}
	res, err := r.client.ExecuteRead(ctx, topScoresCypher, map[string]any{"runId": runID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("top scores query: %w", err)
	}
	scores := make([]domain.GeneScore, 0, len(res.Records))
	for _, rec := range res.Records {
		scores = append(scores, domain.GeneScore{Gene: rec.String("gene"), Score: rec.Float("score")})
	}
	return scores, nil
}

// NetworkSize counts the persisted genes and interactions.
func (r *Repository) NetworkSize(ctx context.Context) (genes, interactions int64, err error) {
	res, err := r.client.ExecuteRead(ctx, networkSizeCypher, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("network size query: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, 0, nil
	}
	return res.Records[0].Int("genes"), res.Records[0].Int("interactions"), nil
}

func interactionParams(e domain.Interaction) map[string]any {
	return map[string]any{
		"source":     e.Source,
		"target":     e.Target,
		"annotation": e.Annotation,
		"score":      e.Score,
	}
}

func scoreParams(scores []domain.GeneScore) []map[string]any {
	out := make([]map[string]any, 0, len(scores))
	for _, s := range scores {
		out = append(out, map[string]any{"gene": s.Gene, "score": s.Score})
	}
	return out
}

const upsertGenesCypher = `
UNWIND $symbols AS symbol
MERGE (:Gene {symbol: symbol})
`

const upsertInteractionsCypher = `
UNWIND $edges AS e
MERGE (a:Gene {symbol: e.source})
MERGE (b:Gene {symbol: e.target})
MERGE (a)-[r:INTERACTS {annotation: e.annotation}]->(b)
SET r.score = e.score
`

const saveScoreRunCypher = `
MERGE (t:Gene {symbol: $target})
MERGE (run:ScoringRun {runId: $runId})
SET run.target = $target, run.disease = $disease, run.createdAt = $createdAt
MERGE (run)-[:FOR_TARGET]->(t)
WITH run, t
UNWIND $scores AS s
MERGE (g:Gene {symbol: s.gene})
MERGE (g)-[sc:SCORED_FOR {runId: $runId}]->(t)
SET sc.score = s.score, sc.disease = $disease
`

const topScoresCypher = `
MATCH (g:Gene)-[sc:SCORED_FOR {runId: $runId}]->(:Gene)
RETURN g.symbol AS gene, sc.score AS score
ORDER BY score DESC, gene ASC
LIMIT $limit
`

const networkSizeCypher = `
MATCH (g:Gene)
WITH count(g) AS genes
OPTIONAL MATCH ()-[r:INTERACTS]->()
RETURN genes, count(r) AS interactions
`
