package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
)

const (
	summaryLimit = 2000
	topicKeyLen  = 10
)

var topicExpr = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// Client translates article titles and summaries through a
// LibreTranslate-compatible endpoint and derives lossy topic keys from the
// translated titles. It is the non-LLM enrichment path.
type Client struct {
	endpoint string
	target   string
	http     *resty.Client
	logger   *slog.Logger
}

var _ ports.Enricher = (*Client)(nil)

// NewClient builds a translation client for the given target language.
func NewClient(endpoint, targetLanguage string, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		target:   targetLanguage,
		http:     resty.New().SetTimeout(15 * time.Second),
		logger:   logger,
	}
}

// Enrich translates each article that needs it and assigns topic keys. A
// per-article failure falls back to the original text with an empty topic
// key, so that article never merges with anything.
func (c *Client) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		enriched, err := c.enrichOne(ctx, art)
		if err != nil {
			c.warn("translation failed", "link", art.Link, "error", err)
			art.TranslatedTitle = art.Title
			art.TranslatedSummary = art.Summary
			art.TopicKey = ""
			out = append(out, art)
			continue
		}
		out = append(out, enriched)
	}
	return out
}

func (c *Client) enrichOne(ctx context.Context, art domain.Article) (domain.Article, error) {
	title := art.Title
	summary := truncateRunes(art.Summary, summaryLimit)

	if needsTranslation(title) {
		translated, err := c.translate(ctx, title)
		if err != nil {
			return domain.Article{}, fmt.Errorf("translate title: %w", err)
		}
		art.TranslatedTitle = translated

		if summary != "" {
			translated, err = c.translate(ctx, summary)
			if err != nil {
				return domain.Article{}, fmt.Errorf("translate summary: %w", err)
			}
			art.TranslatedSummary = translated
		}
	} else {
		art.TranslatedTitle = title
		art.TranslatedSummary = summary
	}

	art.TopicKey = TopicKey(art.TranslatedTitle)
	return art, nil
}

func (c *Client) translate(ctx context.Context, text string) (string, error) {
	var result struct {
		TranslatedText string `json:"translatedText"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"q":      text,
			"source": "auto",
			"target": c.target,
			"format": "text",
		}).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("post translation: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("translation endpoint returned %s", resp.Status())
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("decode translation: %w", err)
	}
	if result.TranslatedText == "" {
		return "", fmt.Errorf("empty translation")
	}
	return result.TranslatedText, nil
}

// TopicKey reduces a translated title to a lossy merge key: punctuation
// stripped, first runes kept, lowercased. Titles of the same event produced
// by different outlets frequently collide on this prefix within one run.
func TopicKey(title string) string {
	cleaned := topicExpr.ReplaceAllString(title, "")
	runes := []rune(cleaned)
	if len(runes) > topicKeyLen {
		runes = runes[:topicKeyLen]
	}
	return strings.ToLower(strings.TrimSpace(string(runes)))
}

// truncateRunes caps text at limit runes. Cutting on a byte offset could
// split a multi-byte rune and send invalid UTF-8 to the endpoint.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// needsTranslation reports whether the text contains any non-ASCII rune.
// Pure-ASCII text is assumed to already be in the target language.
func needsTranslation(text string) bool {
	for _, r := range text {
		if r > 127 {
			return true
		}
	}
	return false
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
