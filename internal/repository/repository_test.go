package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/graph"
)

func TestRepository_UpsertGenesBatches(t *testing.T) {
	mem := graph.NewMemoryClient().WithResponder(func(q graph.ExecutedQuery) (graph.Result, error) {
		n := len(q.Params["symbols"].([]string))
		return graph.Result{Counters: graph.Counters{NodesCreated: n}}, nil
	})
	repo := New(mem, WithBatchSize(2))

	counters, err := repo.UpsertGenes(context.Background(), []string{"A", "B", "C", "D", "E"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if counters.NodesCreated != 5 {
		t.Errorf("expected 5 nodes created, got %d", counters.NodesCreated)
	}

	calls := mem.WriteCalls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(calls))
	}
	if calls[0].Query != upsertGenesCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", upsertGenesCypher, calls[0].Query)
	}
	last := calls[2].Params["symbols"].([]string)
	if len(last) != 1 || last[0] != "E" {
		t.Errorf("unexpected last batch %v", last)
	}
}

func TestRepository_UpsertInteractions(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	edges := []domain.Interaction{
		{Source: "EGFR", Target: "GRB2", Annotation: "activated", Score: "1.00"},
		{Source: "GRB2", Target: "SOS1", Annotation: "complex", Score: "0.99"},
	}
	if _, err := repo.UpsertInteractions(context.Background(), edges); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write, got %d", len(calls))
	}
	batch, ok := calls[0].Params["edges"].([]map[string]any)
	if !ok {
		t.Fatalf("expected edge batch, got %T", calls[0].Params["edges"])
	}
	if batch[1]["source"] != "GRB2" || batch[1]["target"] != "SOS1" || batch[1]["annotation"] != "complex" {
		t.Errorf("unexpected edge params %v", batch[1])
	}
}

func TestRepository_UpsertInteractionsRejectsMissingEndpoint(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)
	_, err := repo.UpsertInteractions(context.Background(), []domain.Interaction{{Source: "EGFR"}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if len(mem.WriteCalls()) != 0 {
		t.Errorf("no write expected on invalid batch")
	}
}

func TestRepository_SaveScoreRun(t *testing.T) {
	mem := graph.NewMemoryClient()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := New(mem, WithClock(func() time.Time { return fixed }))

	run := ScoreRun{
		RunID:   "run-1",
		Target:  "BTG4",
		Disease: "EFO_0004248",
		Scores:  []domain.GeneScore{{Gene: "CCND1", Score: 0.75}},
	}
	if _, err := repo.SaveScoreRun(context.Background(), run); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	call := mem.WriteCalls()[0]
	if call.Query != saveScoreRunCypher {
		t.Fatalf("unexpected query %s", call.Query)
	}
	if call.Params["createdAt"] != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected createdAt %v", call.Params["createdAt"])
	}
	scores := call.Params["scores"].([]map[string]any)
	if scores[0]["gene"] != "CCND1" || scores[0]["score"] != 0.75 {
		t.Errorf("unexpected score params %v", scores[0])
	}

	if _, err := repo.SaveScoreRun(context.Background(), ScoreRun{Target: "BTG4"}); err == nil {
		t.Errorf("expected error for missing run id")
	}
}

func TestRepository_TopScores(t *testing.T) {
	mem := graph.NewMemoryClient().WithResponder(func(q graph.ExecutedQuery) (graph.Result, error) {
		return graph.Result{Records: []graph.Record{
			{"gene": "CCND1", "score": 0.75},
			{"gene": "MYC", "score": 0.5},
		}}, nil
	})
	repo := New(mem)

	scores, err := repo.TopScores(context.Background(), "run-1", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(scores) != 2 || scores[0].Gene != "CCND1" || scores[1].Score != 0.5 {
		t.Errorf("unexpected scores %+v", scores)
	}
	if got := mem.ReadCalls()[0].Params["limit"]; got != defaultTopLimit {
		t.Errorf("expected default limit, got %v", got)
	}
}

func TestRepository_NetworkSize(t *testing.T) {
	mem := graph.NewMemoryClient().WithResponder(func(graph.ExecutedQuery) (graph.Result, error) {
		return graph.Result{Records: []graph.Record{{"genes": int64(12), "interactions": int64(30)}}}, nil
	})
	genes, interactions, err := New(mem).NetworkSize(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if genes != 12 || interactions != 30 {
		t.Errorf("unexpected size %d/%d", genes, interactions)
	}
}

func TestRepository_PropagatesClientError(t *testing.T) {
	boom := errors.New("bolt unavailable")
	repo := New(graph.NewMemoryClient().WithError(boom))
	if _, err := repo.UpsertGenes(context.Background(), []string{"A"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}
