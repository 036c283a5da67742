package feeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
)

// RSSSource fetches every configured RSS/Atom feed and normalizes entries
// into articles. A feed that fails to fetch or parse is logged and skipped;
// the remaining feeds still contribute.
type RSSSource struct {
	parser *gofeed.Parser
	urls   []string
	logger *slog.Logger
}

var _ ports.FeedSource = (*RSSSource)(nil)

// NewRSSSource wires a parser over the configured feed URLs.
func NewRSSSource(urls []string, logger *slog.Logger) *RSSSource {
	return &RSSSource{
		parser: gofeed.NewParser(),
		urls:   urls,
		logger: logger,
	}
}

// FetchAll walks the feed list in order and returns all entries, stamped
// with an ingest sequence number that later fixes the merge tie-break.
func (s *RSSSource) FetchAll(ctx context.Context) ([]domain.Article, error) {
	var all []domain.Article
	seq := 0
	for _, feedURL := range s.urls {
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			s.warn("fetch feed failed", "url", feedURL, "error", err)
			continue
		}

		source := sourceName(feedURL)
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			published := item.PublishedParsed
			if published == nil {
				published = item.UpdatedParsed
			}
			all = append(all, domain.Article{
				Seq:         seq,
				Title:       strings.TrimSpace(item.Title),
				Link:        item.Link,
				Summary:     strings.TrimSpace(item.Description),
				PublishedAt: published,
				SourceName:  source,
			})
			seq++
		}
		s.debug("feed fetched", "url", feedURL, "source", source, "entries", len(feed.Items))
	}
	return all, nil
}

// sourceName derives a readable source label from the feed URL host, e.g.
// "nytimes" from cn.nytimes.com.
func sourceName(feedURL string) string {
	parsed, err := url.Parse(feedURL)
	if err != nil || parsed.Host == "" {
		return feedURL
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	labels := strings.Split(host, ".")
	if len(labels) >= 3 {
		return labels[len(labels)-2]
	}
	return labels[0]
}

func (s *RSSSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *RSSSource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
