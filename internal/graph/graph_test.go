package graph

import (
	"context"
	"errors"
	"testing"
)

func TestOptionsValidate(t *testing.T) {
	if err := (Options{}).Validate(); !errors.Is(err, ErrMissingURI) {
		t.Fatalf("expected ErrMissingURI, got %v", err)
	}
	if err := (Options{URI: "bolt://localhost:7687", MaxConnections: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative pool size")
	}
	if err := (Options{URI: "bolt://localhost:7687"}).Validate(); err != nil {
		t.Fatalf("expected valid options, got %v", err)
	}
}

func TestNewNeo4jClientRequiresURI(t *testing.T) {
	if _, err := NewNeo4jClient(context.Background(), Options{}); !errors.Is(err, ErrMissingURI) {
		t.Fatalf("expected ErrMissingURI, got %v", err)
	}
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{"symbol": "TP53", "score": 0.5, "count": int64(3)}
	if got := rec.String("symbol"); got != "TP53" {
		t.Errorf("String: got %q", got)
	}
	if got := rec.Float("score"); got != 0.5 {
		t.Errorf("Float: got %v", got)
	}
	if got := rec.Int("count"); got != 3 {
		t.Errorf("Int: got %v", got)
	}
	if got := rec.String("missing"); got != "" {
		t.Errorf("missing key should be empty, got %q", got)
	}
}

func TestMemoryClientRecordsAndFails(t *testing.T) {
	boom := errors.New("boom")
	mem := NewMemoryClient().FailOn("DELETE", boom)
	ctx := context.Background()

	params := map[string]any{"gene": "EGFR"}
	if _, err := mem.ExecuteWrite(ctx, "MERGE (g:Gene {symbol: $gene})", params); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	params["gene"] = "mutated"
	if _, err := mem.ExecuteWrite(ctx, "MATCH (g) DELETE g", nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	calls := mem.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 recorded write, got %d", len(calls))
	}
	if calls[0].Params["gene"] != "EGFR" {
		t.Errorf("params should be copied, got %v", calls[0].Params["gene"])
	}

	var c Counters
	c.Add(Counters{NodesCreated: 2, RelationshipsCreated: 1})
	c.Add(Counters{NodesCreated: 1, PropertiesSet: 4})
	if c.NodesCreated != 3 || c.RelationshipsCreated != 1 || c.PropertiesSet != 4 {
		t.Errorf("unexpected counters %+v", c)
	}

	_ = mem.Close(ctx)
	if !mem.Closed() {
		t.Errorf("expected client to be closed")
	}
}
