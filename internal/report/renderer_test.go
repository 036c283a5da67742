package report

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

type fakeRepo struct {
	tables map[string][]domain.Row
}

func (f *fakeRepo) Save(ctx context.Context, table string, rows []domain.Row) error { return nil }

func (f *fakeRepo) FetchDay(ctx context.Context, table, date string) ([]domain.Row, error) {
	return f.tables[table], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStrategy() config.StrategyConfig {
	return config.StrategyConfig{
		LOF:   config.FundConfig{MinPremiumRate: 5.0},
		QDII:  config.FundConfig{MinPremiumRate: 5.0},
		Cbond: config.CbondConfig{MaxDoubleLow: 195.0, MaxPutbackPrice: 103.0},
	}
}

func TestBuildRendersTablesWithAlignment(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{tables: map[string][]domain.Row{
		"market_indices": {
			{"symbol": "SPX", "name": "S&P 500", "price": 5000.0, "change": 25.0, "change_pct": 0.5, "prev_close": 4975.0},
		},
	}}
	r := NewRenderer(repo, testStrategy(), t.TempDir(), discardLogger())

	out := r.Build(context.Background(), "2026-02-01", nil, true)

	if !strings.Contains(out, "# Global News & Market Digest Report (2026-02-01)") {
		t.Fatalf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "| Index | Price | Change % |") {
		t.Fatalf("missing indices header:\n%s", out)
	}
	if !strings.Contains(out, "| :--- | ---: | ---: |") {
		t.Fatalf("missing alignment row:\n%s", out)
	}
	if !strings.Contains(out, "| S&P 500 | 5000.00 | 0.50% |") {
		t.Fatalf("missing data row:\n%s", out)
	}
}

func TestBuildRendersPlaceholderForEmptyTables(t *testing.T) {
	t.Parallel()

	r := NewRenderer(&fakeRepo{}, testStrategy(), t.TempDir(), discardLogger())
	out := r.Build(context.Background(), "2026-02-01", nil, true)

	for _, header := range []string{
		"### 1. Market Indices (Global)",
		"### 2. Forex Rates (BOC)",
		"### 3. Commodities",
		"### 6. A-share Arbitrage",
		"### 10. SPAC Arbitrage",
	} {
		if !strings.Contains(out, header+"\n"+noData) {
			t.Fatalf("expected %q followed by placeholder:\n%s", header, out)
		}
	}
}

func TestBuildNewsSectionMergesSourceLinks(t *testing.T) {
	t.Parallel()

	r := NewRenderer(&fakeRepo{}, testStrategy(), t.TempDir(), discardLogger())
	news := []domain.CategorySection{
		{
			Name: "Economy",
			Articles: []domain.Article{
				{
					TranslatedTitle:   "Gold price surges",
					TranslatedSummary: "Bullion extended gains.",
					Sources: []domain.SourceRef{
						{Name: "A", Link: "https://a.example/gold"},
						{Name: "B", Link: "https://b.example/gold"},
					},
				},
			},
		},
	}

	out := r.Build(context.Background(), "2026-02-01", news, false)

	if !strings.Contains(out, "### 📰 Economy (1 items)") {
		t.Fatalf("missing category header:\n%s", out)
	}
	want := "#### Gold price surges (Source: [A](https://a.example/gold), [B](https://b.example/gold))"
	if !strings.Contains(out, want) {
		t.Fatalf("merged source line missing:\n%s", out)
	}
	if strings.Contains(out, "Market Arbitrage & Opportunities") {
		t.Fatalf("markets section rendered despite includeMarkets=false:\n%s", out)
	}
}

func TestBuildForexPivot(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{tables: map[string][]domain.Row{
		"forex_rates": {
			{"currency": "日元", "bank": "中国银行", "spot_buy": 4.7, "cash_buy": 4.6, "spot_sell": 4.8, "cash_sell": 4.9},
			{"currency": "美元", "bank": "中国银行", "spot_buy": 710.0, "cash_buy": 705.0, "spot_sell": 715.0, "cash_sell": 716.0},
		},
	}}
	r := NewRenderer(repo, testStrategy(), t.TempDir(), discardLogger())

	out := r.Build(context.Background(), "2026-02-01", nil, true)

	// Priority order puts USD before JPY regardless of row order.
	if !strings.Contains(out, "| Rate | 美元 | 日元 |") {
		t.Fatalf("forex header order wrong:\n%s", out)
	}
	if !strings.Contains(out, "| Sell | 715.0000 | 4.8000 |") {
		t.Fatalf("sell row wrong:\n%s", out)
	}
	if !strings.Contains(out, "| Buy | 705.0000 | 4.6000 |") {
		t.Fatalf("buy row wrong:\n%s", out)
	}
}

func TestFormatTableEscapesPipes(t *testing.T) {
	t.Parallel()

	out := formatTable([][]string{{"a|b"}}, []string{"H"}, []string{"left"})
	if !strings.Contains(out, `a\|b`) {
		t.Fatalf("pipe not escaped: %s", out)
	}
}

func TestFormatLiquidity(t *testing.T) {
	t.Parallel()

	if got := formatLiquidity(12345); got != "1.23Y" {
		t.Fatalf("expected 1.23Y, got %s", got)
	}
	if got := formatLiquidity(980.4); got != "980.4W" {
		t.Fatalf("expected 980.4W, got %s", got)
	}
}

func TestWriteCreatesDatedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(&fakeRepo{}, testStrategy(), dir, discardLogger())
	r.now = func() time.Time { return time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC) }

	path, err := r.Write(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "Global_Digest_2026-02-01.md" {
		t.Fatalf("unexpected file name %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
}
