package collector

import (
	"context"

	"MarketDigest/internal/domain"
)

// Collector captures a single vendor adapter (Jisilu, Eastmoney, BOC, etc.).
// A collector performs its own fetching, parsing and threshold filtering and
// returns the datasets ready for persistence.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]domain.Dataset, error)
}

// Registry keeps collectors in registration order; the market pipeline runs
// them sequentially in that order.
type Registry struct {
	collectors []Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a collector.
func (r *Registry) Register(c Collector) {
	r.collectors = append(r.collectors, c)
}

// All returns the registered collectors in registration order.
func (r *Registry) All() []Collector {
	return r.collectors
}
