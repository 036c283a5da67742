package ports

import (
	"context"
	"time"

	"MarketDigest/internal/domain"
)

// FeedSource pulls raw articles from all configured upstream feeds.
type FeedSource interface {
	FetchAll(ctx context.Context) ([]domain.Article, error)
}

// Enricher translates and classifies articles. Failures are handled
// per article: a failed article comes back untranslated with an empty
// topic key, so the slice is never shorter than the input.
type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// NewsArchive persists distinct articles permanently, deduplicated by link.
type NewsArchive interface {
	SaveArticles(ctx context.Context, articles []domain.Article) (int, error)
}

// MarketRepository stores one day of rows per strategy table and reads them
// back for rendering.
type MarketRepository interface {
	Save(ctx context.Context, table string, rows []domain.Row) error
	FetchDay(ctx context.Context, table, date string) ([]domain.Row, error)
}

// Notifier delivers the finished report to an outbound channel.
type Notifier interface {
	SendReport(ctx context.Context, subject, body string) error
}

// Scheduler controls when digest runs execute in daemon mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
