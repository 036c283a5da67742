package usecase

import (
	"sort"
	"strings"
	"time"

	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

// FilterWindow keeps articles whose publish time falls inside [start, end],
// bounds inclusive. Undated articles always pass. Input order is preserved.
func FilterWindow(articles []domain.Article, start, end time.Time) []domain.Article {
	kept := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		if art.PublishedAt == nil {
			kept = append(kept, art)
			continue
		}
		published := art.PublishedAt.UTC()
		if !published.Before(start.UTC()) && !published.After(end.UTC()) {
			kept = append(kept, art)
		}
	}
	return kept
}

// FilterLastDays keeps articles published within the trailing days window
// ending at now. A non-positive days value defaults to one day.
func FilterLastDays(articles []domain.Article, days int, now time.Time) []domain.Article {
	if days <= 0 {
		days = 1
	}
	end := now.UTC()
	start := end.AddDate(0, 0, -days)
	return FilterWindow(articles, start, end)
}

// DropBlocked removes articles whose title or summary contains any of the
// blocked keywords, case-insensitively.
func DropBlocked(articles []domain.Article, keywords []string) []domain.Article {
	if len(keywords) == 0 {
		return articles
	}
	kept := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		haystack := strings.ToLower(art.Title + " " + art.Summary)
		blocked := false
		for _, kw := range keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				blocked = true
				break
			}
		}
		if !blocked {
			kept = append(kept, art)
		}
	}
	return kept
}

// DeduplicateAndMerge collapses articles sharing a topic key into the
// first-seen article bearing that key. Merging appends the later article's
// source attribution unless that exact link is already present; the first
// article's title, summary and category win. Articles with an empty topic
// key become singletons. First seen is resolved by ingest sequence number,
// not incidental slice order.
func DeduplicateAndMerge(articles []domain.Article) []domain.Article {
	ordered := make([]domain.Article, len(articles))
	copy(ordered, articles)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	var unique []domain.Article
	for _, art := range ordered {
		ref := domain.SourceRef{Name: art.SourceName, Link: art.Link}

		merged := false
		if art.TopicKey != "" {
			for i := range unique {
				if unique[i].TopicKey == art.TopicKey {
					if !unique[i].HasSource(ref.Link) {
						unique[i].Sources = append(unique[i].Sources, ref)
					}
					merged = true
					break
				}
			}
		}

		if !merged {
			art.Sources = []domain.SourceRef{ref}
			unique = append(unique, art)
		}
	}
	return unique
}

// Categorize fills in the category of articles that do not carry one yet by
// scanning the translated title and summary for category keywords. Articles
// that match nothing land in Others.
func Categorize(articles []domain.Article, categories []config.CategoryConfig) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)
	for i := range out {
		if out[i].Category != "" {
			continue
		}
		out[i].Category = matchCategory(out[i], categories)
	}
	return out
}

func matchCategory(art domain.Article, categories []config.CategoryConfig) string {
	haystack := strings.ToLower(art.TranslatedTitle + " " + art.TranslatedSummary)
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				return cat.Name
			}
		}
	}
	return "Others"
}

// GroupByCategory buckets articles into report sections following the
// configured category order, with Others always last. Unknown categories
// fall into Others. Empty sections are dropped.
func GroupByCategory(articles []domain.Article, categories []config.CategoryConfig) []domain.CategorySection {
	order := make([]string, 0, len(categories)+1)
	known := map[string]bool{}
	for _, cat := range categories {
		if cat.Name == "Others" {
			continue
		}
		order = append(order, cat.Name)
		known[cat.Name] = true
	}
	order = append(order, "Others")
	known["Others"] = true

	buckets := map[string][]domain.Article{}
	for _, art := range articles {
		cat := art.Category
		if !known[cat] {
			cat = "Others"
		}
		buckets[cat] = append(buckets[cat], art)
	}

	var sections []domain.CategorySection
	for _, name := range order {
		if arts := buckets[name]; len(arts) > 0 {
			sections = append(sections, domain.CategorySection{Name: name, Articles: arts})
		}
	}
	return sections
}
