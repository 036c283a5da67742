package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
)

// GeminiClient enriches articles through the Gemini API: one call per
// article returns a translated title, a short summary, a category from the
// configured list and a topic key used for cross-source merging.
type GeminiClient struct {
	endpoint   string
	model      string
	apiKey     string
	categories []string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Enricher = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.GeminiConfig, categories []config.CategoryConfig, logger *slog.Logger) *GeminiClient {
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	return &GeminiClient{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		categories: names,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type classification struct {
	TranslatedTitle   string `json:"translated_title"`
	TranslatedSummary string `json:"translated_summary"`
	Category          string `json:"category"`
	TopicKey          string `json:"topic_key"`
}

// Enrich classifies each article. A failed call degrades that single
// article to its original text, category Others and an empty topic key.
func (c *GeminiClient) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		result, err := c.classify(ctx, art)
		if err != nil {
			c.warn("gemini classify failed", "link", art.Link, "error", err)
			art.TranslatedTitle = art.Title
			art.TranslatedSummary = art.Summary
			art.Category = "Others"
			art.TopicKey = ""
			out = append(out, art)
			continue
		}

		if result.TranslatedTitle != "" {
			art.TranslatedTitle = result.TranslatedTitle
		} else {
			art.TranslatedTitle = art.Title
		}
		if result.TranslatedSummary != "" {
			art.TranslatedSummary = result.TranslatedSummary
		} else {
			art.TranslatedSummary = art.Summary
		}
		art.Category = result.Category
		art.TopicKey = result.TopicKey
		out = append(out, art)
	}
	return out
}

func (c *GeminiClient) classify(ctx context.Context, art domain.Article) (classification, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return classification{}, fmt.Errorf("gemini client misconfigured")
	}

	// Cap by rune count so the cut never lands inside a multi-byte rune.
	summary := art.Summary
	if runes := []rune(summary); len(runes) > 3000 {
		summary = string(runes[:3000])
	}

	prompt := fmt.Sprintf(`Translate, summarize, categorize and tag one news article.
Return strict JSON with exactly these keys:
{
  "translated_title": "concise English title",
  "translated_summary": "2-3 sentence English summary",
  "category": "one of: %s",
  "topic_key": "a short topic label; articles about the same event must get the same label"
}

Article:
---
Title: %s

Summary: %s
---`, strings.Join(c.categories, ", "), art.Title, summary)

	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":      0.2,
			"responseMimeType": "application/json",
		},
	})
	if err != nil {
		return classification{}, fmt.Errorf("marshal gemini payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return classification{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classification{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return classification{}, fmt.Errorf("gemini error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return classification{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return classification{}, fmt.Errorf("gemini returned no candidates")
	}

	var result classification
	text := envelope.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return classification{}, fmt.Errorf("parse classification json: %w", err)
	}
	return result, nil
}

func (c *GeminiClient) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
