package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the contract the network repository needs from a graph store.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified query response.
type Result struct {
	Records  []Record
	Counters Counters
}

// Counters reports what a write statement changed.
type Counters struct {
	NodesCreated         int
	RelationshipsCreated int
	PropertiesSet        int
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.NodesCreated += other.NodesCreated
	c.RelationshipsCreated += other.RelationshipsCreated
	c.PropertiesSet += other.PropertiesSet
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// String returns the value under key as a string, or "" when absent.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	return ""
}

// Float returns the numeric value under key, or 0 when absent.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Int returns the integer value under key, or 0 when absent.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	ConnectTimeout time.Duration
}

// Validate reports configuration that cannot produce a client.
func (o Options) Validate() error {
	if o.URI == "" {
		return ErrMissingURI
	}
	if o.MaxConnections < 0 {
		return fmt.Errorf("graph max connections must not be negative, got %d", o.MaxConnections)
	}
	return nil
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
