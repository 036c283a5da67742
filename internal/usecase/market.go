package usecase

import (
	"context"
	"log/slog"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/ports"
)

// MarketPipeline runs every registered collector and persists its datasets.
// Collectors are independent; one vendor being down must not stop the rest,
// so failures are logged and the run continues.
type MarketPipeline struct {
	registry *collector.Registry
	repo     ports.MarketRepository
	logger   *slog.Logger
}

// NewMarketPipeline wires the pipeline.
func NewMarketPipeline(registry *collector.Registry, repo ports.MarketRepository, logger *slog.Logger) *MarketPipeline {
	return &MarketPipeline{registry: registry, repo: repo, logger: logger}
}

// Run executes all collectors in registration order.
func (p *MarketPipeline) Run(ctx context.Context) {
	for _, coll := range p.registry.All() {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("market run cancelled", "error", err)
			return
		}

		p.logger.Info("collector starting", "collector", coll.Name())
		datasets, err := coll.Collect(ctx)
		if err != nil {
			p.logger.Error("collector failed", "collector", coll.Name(), "error", err)
			continue
		}

		for _, ds := range datasets {
			if err := p.repo.Save(ctx, ds.Table, ds.Rows); err != nil {
				p.logger.Error("save failed",
					"collector", coll.Name(), "table", ds.Table, "error", err)
				continue
			}
			p.logger.Info("collector finished",
				"collector", coll.Name(), "table", ds.Table, "rows", len(ds.Rows))
		}
	}
}
