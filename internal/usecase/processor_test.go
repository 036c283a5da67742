package usecase

import (
	"testing"
	"time"

	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestDeduplicateAndMergeCollapsesSharedTopics(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Seq: 1, Title: "Gold climbs", Link: "https://a.example/gold", SourceName: "A", TopicKey: "gold price"},
		{Seq: 2, Title: "Gold rallies", Link: "https://b.example/gold", SourceName: "B", TopicKey: "gold price"},
		{Seq: 3, Title: "Oil slides", Link: "https://c.example/oil", SourceName: "C", TopicKey: "oil price"},
	}

	merged := DeduplicateAndMerge(articles)
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged articles, got %d", len(merged))
	}

	gold := merged[0]
	if gold.Title != "Gold climbs" {
		t.Fatalf("first-seen article should win, got title %q", gold.Title)
	}
	if len(gold.Sources) != 2 {
		t.Fatalf("expected 2 sources on merged article, got %d", len(gold.Sources))
	}
	if gold.Sources[0].Name != "A" || gold.Sources[1].Name != "B" {
		t.Fatalf("sources out of order: %+v", gold.Sources)
	}
}

func TestDeduplicateAndMergeOrdersBySeq(t *testing.T) {
	t.Parallel()

	// Slice order reversed relative to ingest order; Seq must decide.
	articles := []domain.Article{
		{Seq: 5, Title: "Later", Link: "https://b.example/x", SourceName: "B", TopicKey: "same"},
		{Seq: 1, Title: "Earlier", Link: "https://a.example/x", SourceName: "A", TopicKey: "same"},
	}

	merged := DeduplicateAndMerge(articles)
	if len(merged) != 1 {
		t.Fatalf("expected 1 article, got %d", len(merged))
	}
	if merged[0].Title != "Earlier" {
		t.Fatalf("expected earliest ingest to win, got %q", merged[0].Title)
	}
}

func TestDeduplicateAndMergeEmptyKeysNeverMerge(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Seq: 1, Title: "one", Link: "https://a.example/1", SourceName: "A"},
		{Seq: 2, Title: "two", Link: "https://b.example/2", SourceName: "B"},
	}

	merged := DeduplicateAndMerge(articles)
	if len(merged) != 2 {
		t.Fatalf("empty topic keys must stay singletons, got %d articles", len(merged))
	}
	for _, art := range merged {
		if len(art.Sources) != 1 {
			t.Fatalf("singleton should carry its own source only, got %+v", art.Sources)
		}
	}
}

func TestDeduplicateAndMergeSkipsDuplicateLinks(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Seq: 1, Link: "https://a.example/x", SourceName: "A", TopicKey: "k"},
		{Seq: 2, Link: "https://a.example/x", SourceName: "A again", TopicKey: "k"},
	}

	merged := DeduplicateAndMerge(articles)
	if len(merged) != 1 || len(merged[0].Sources) != 1 {
		t.Fatalf("identical links must not duplicate sources: %+v", merged)
	}
}

func TestFilterWindowInclusiveBounds(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	articles := []domain.Article{
		{Title: "at start", PublishedAt: timePtr(start)},
		{Title: "at end", PublishedAt: timePtr(end)},
		{Title: "before", PublishedAt: timePtr(start.Add(-time.Second))},
		{Title: "after", PublishedAt: timePtr(end.Add(time.Second))},
		{Title: "undated"},
	}

	kept := FilterWindow(articles, start, end)
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept articles, got %d", len(kept))
	}
	titles := map[string]bool{}
	for _, art := range kept {
		titles[art.Title] = true
	}
	for _, want := range []string{"at start", "at end", "undated"} {
		if !titles[want] {
			t.Fatalf("expected %q to be kept, kept set: %v", want, titles)
		}
	}
}

func TestFilterLastDaysDefaultsToOneDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{Title: "recent", PublishedAt: timePtr(now.Add(-6 * time.Hour))},
		{Title: "stale", PublishedAt: timePtr(now.Add(-48 * time.Hour))},
	}

	kept := FilterLastDays(articles, 0, now)
	if len(kept) != 1 || kept[0].Title != "recent" {
		t.Fatalf("expected only the recent article, got %+v", kept)
	}
}

func TestDropBlocked(t *testing.T) {
	t.Parallel()

	articles := []domain.Article{
		{Title: "Celebrity Gossip special"},
		{Title: "Markets up", Summary: "nothing blocked here"},
		{Title: "Plain", Summary: "contains GOSSIP in caps"},
	}

	kept := DropBlocked(articles, []string{"gossip"})
	if len(kept) != 1 || kept[0].Title != "Markets up" {
		t.Fatalf("blocked keyword filter failed: %+v", kept)
	}
}

func TestCategorizeAndGroup(t *testing.T) {
	t.Parallel()

	categories := []config.CategoryConfig{
		{Name: "Tech", Keywords: []string{"chip"}},
		{Name: "Economy", Keywords: []string{"inflation"}},
		{Name: "Others"},
	}

	articles := []domain.Article{
		{TranslatedTitle: "New chip fab announced"},
		{TranslatedTitle: "Inflation cools"},
		{TranslatedTitle: "Local festival"},
		{TranslatedTitle: "Pre-set", Category: "Economy"},
	}

	categorized := Categorize(articles, categories)
	sections := GroupByCategory(categorized, categories)

	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0].Name != "Tech" || sections[1].Name != "Economy" {
		t.Fatalf("section order wrong: %s, %s", sections[0].Name, sections[1].Name)
	}
	if sections[len(sections)-1].Name != "Others" {
		t.Fatalf("Others must come last, got %s", sections[len(sections)-1].Name)
	}
	if len(sections[1].Articles) != 2 {
		t.Fatalf("expected 2 economy articles, got %d", len(sections[1].Articles))
	}
}

func TestGroupByCategoryUnknownFallsToOthers(t *testing.T) {
	t.Parallel()

	categories := []config.CategoryConfig{
		{Name: "Tech", Keywords: []string{"chip"}},
		{Name: "Others"},
	}
	articles := []domain.Article{{TranslatedTitle: "x", Category: "Sports"}}

	sections := GroupByCategory(articles, categories)
	if len(sections) != 1 || sections[0].Name != "Others" {
		t.Fatalf("unknown category should land in Others: %+v", sections)
	}
}
