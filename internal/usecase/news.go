package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
)

// NewsPipeline runs one full news cycle: fetch, window, filter, enrich,
// merge, categorize, archive.
type NewsPipeline struct {
	source  ports.FeedSource
	enrich  ports.Enricher
	archive ports.NewsArchive
	cfg     config.NewsConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewNewsPipeline wires the pipeline.
func NewNewsPipeline(source ports.FeedSource, enrich ports.Enricher, archive ports.NewsArchive, cfg config.NewsConfig, logger *slog.Logger) *NewsPipeline {
	return &NewsPipeline{
		source:  source,
		enrich:  enrich,
		archive: archive,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run produces the categorized news sections for the trailing days window.
// A non-positive days falls back to the configured default. Archiving
// failures are logged, not fatal; the report still renders.
func (p *NewsPipeline) Run(ctx context.Context, days int) ([]domain.CategorySection, error) {
	if days <= 0 {
		days = p.cfg.Days
	}

	articles, err := p.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feeds: %w", err)
	}
	p.logger.Info("feeds fetched", "articles", len(articles))

	articles = FilterLastDays(articles, days, p.now())
	articles = DropBlocked(articles, p.cfg.BlockedKeywords)
	p.logger.Info("window applied", "days", days, "articles", len(articles))

	articles = p.enrich.Enrich(ctx, articles)
	articles = DeduplicateAndMerge(articles)
	articles = Categorize(articles, p.cfg.Categories)
	p.logger.Info("articles merged", "unique", len(articles))

	if saved, err := p.archive.SaveArticles(ctx, articles); err != nil {
		p.logger.Error("archive save failed", "error", err)
	} else {
		p.logger.Info("articles archived", "new", saved)
	}

	return GroupByCategory(articles, p.cfg.Categories), nil
}
