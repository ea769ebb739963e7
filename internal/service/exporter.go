package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/graph"
	"github.com/vanshika/sectarget/internal/interaction"
	"github.com/vanshika/sectarget/internal/repository"
)

// NetworkStore is the persistence contract required by BulkExporter.
type NetworkStore interface {
	UpsertGenes(ctx context.Context, symbols []string) (graph.Counters, error)
	UpsertInteractions(ctx context.Context, edges []domain.Interaction) (graph.Counters, error)
	SaveScoreRun(ctx context.Context, run repository.ScoreRun) (graph.Counters, error)
}

// TaskError accumulates the errors produced by the export workers.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkExporter pushes the interaction network and score runs to a graph store,
// spreading interaction batches over a worker pool.
type BulkExporter struct {
	store     NetworkStore
	workers   int
	batchSize int
	logger    *slog.Logger
}

// NewBulkExporter creates a BulkExporter with the provided concurrency and batch size.
func NewBulkExporter(store NetworkStore, workers, batchSize int, logger *slog.Logger) *BulkExporter {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkExporter{
		store:     store,
		workers:   workers,
		batchSize: batchSize,
		logger:    logger,
	}
}

// ExportNetwork upserts every gene of n, then its interactions in batches.
func (be *BulkExporter) ExportNetwork(ctx context.Context, n *interaction.Network) (graph.Counters, error) {
	total, err := be.store.UpsertGenes(ctx, n.Nodes())
	if err != nil {
		return total, err
	}

	edges := n.Edges()
	batches := chunk(edges, be.batchSize)
	var mu sync.Mutex
	err = be.run(ctx, len(batches), func(idx int) error {
		c, err := be.store.UpsertInteractions(ctx, batches[idx])
		if err != nil {
			return fmt.Errorf("batch %d: %w", idx, err)
		}
		mu.Lock()
		total.Add(c)
		mu.Unlock()
		return nil
	})
	be.logger.Info("network exported",
		"genes", n.NodeCount(),
		"interactions", len(edges),
		"batches", len(batches),
		"nodes_created", total.NodesCreated,
		"relationships_created", total.RelationshipsCreated,
	)
	return total, err
}

// ExportScores saves one score run.
func (be *BulkExporter) ExportScores(ctx context.Context, run repository.ScoreRun) (graph.Counters, error) {
	c, err := be.store.SaveScoreRun(ctx, run)
	if err != nil {
		return c, err
	}
	be.logger.Info("scores exported", "run_id", run.RunID, "target", run.Target, "genes", len(run.Scores))
	return c, nil
}

func chunk(edges []domain.Interaction, size int) [][]domain.Interaction {
	var out [][]domain.Interaction
	for start := 0; start < len(edges); start += size {
		end := min(start+size, len(edges))
		out = append(out, edges[start:end])
	}
	return out
}

func (be *BulkExporter) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < be.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	// A cancelled run may have dropped undispatched batches without any
	// worker error, so ctx.Err is checked before the per-error scan.
	if err := ctx.Err(); err != nil {
		return err
	}
	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
