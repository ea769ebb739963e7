package graph

import (
	"context"
	"strings"
	"sync"
)

// ExecutedQuery captures a cypher statement and its parameters.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// Responder computes the result of one query against a MemoryClient.
type Responder func(q ExecutedQuery) (Result, error)

// MemoryClient is an in-memory Client that records every statement. It lets
// repository and exporter tests run without a graph database.
type MemoryClient struct {
	mu           sync.Mutex
	writes       []ExecutedQuery
	reads        []ExecutedQuery
	respond      Responder
	connectivity error
	closed       bool
}

// NewMemoryClient returns a client that answers every query with an empty result.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithResponder installs fn to answer subsequent reads and writes.
func (m *MemoryClient) WithResponder(fn Responder) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = fn
	return m
}

// WithError makes every subsequent query fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	return m.WithResponder(func(ExecutedQuery) (Result, error) { return Result{}, err })
}

// FailOn makes queries whose text contains fragment fail with err.
func (m *MemoryClient) FailOn(fragment string, err error) *MemoryClient {
	return m.WithResponder(func(q ExecutedQuery) (Result, error) {
		if strings.Contains(q.Query, fragment) {
			return Result{}, err
		}
		return Result{}, nil
	})
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(&m.writes, cypher, params)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(&m.reads, cypher, params)
}

func (m *MemoryClient) execute(log *[]ExecutedQuery, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := ExecutedQuery{Query: cypher, Params: cloneMap(params)}
	if m.respond != nil {
		res, err := m.respond(q)
		if err != nil {
			return Result{}, err
		}
		*log = append(*log, q)
		return res, nil
	}
	*log = append(*log, q)
	return Result{}, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCalls returns a snapshot of the successful write statements.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writes...)
}

// ReadCalls returns a snapshot of the successful read statements.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.reads...)
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
