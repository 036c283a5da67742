package domain

import "time"

// SourceRef attributes an article to one upstream feed entry.
type SourceRef struct {
	Name string
	Link string
}

// Article is the unit flowing through the news pipeline. It is created by an
// RSS fetch, enriched with translations and a topic key, and may absorb the
// source attributions of later articles describing the same event.
type Article struct {
	// Seq is the ingest sequence number. Merging is resolved in Seq order,
	// so the earliest-fetched article wins regardless of how articles are
	// later reordered.
	Seq int

	Title       string
	Link        string
	Summary     string
	PublishedAt *time.Time
	SourceName  string

	TranslatedTitle   string
	TranslatedSummary string
	Category          string

	// TopicKey associates articles describing the same event within one run.
	// Empty means the article never merges with anything.
	TopicKey string

	Sources []SourceRef
}

// HasSource reports whether link is already attributed to the article.
func (a Article) HasSource(link string) bool {
	for _, s := range a.Sources {
		if s.Link == link {
			return true
		}
	}
	return false
}

// CategorySection groups merged articles under one report category.
type CategorySection struct {
	Name     string
	Articles []Article
}
