package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
)

const noData = "*No data available for today.*"

var forexPriority = []string{"美元", "欧元", "日元", "英镑"}

// Renderer reads back one day of stored rows and formats the combined news
// and market digest. Pure read-then-format; the only side effect is the
// file write in Write.
type Renderer struct {
	repo      ports.MarketRepository
	strategy  config.StrategyConfig
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewRenderer wires the renderer.
func NewRenderer(repo ports.MarketRepository, strategy config.StrategyConfig, outputDir string, logger *slog.Logger) *Renderer {
	return &Renderer{
		repo:      repo,
		strategy:  strategy,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Write builds the digest and writes it to the output directory, returning
// the file path.
func (r *Renderer) Write(ctx context.Context, news []domain.CategorySection, includeMarkets bool) (string, error) {
	date := r.now().Format("2006-01-02")
	content := r.Build(ctx, date, news, includeMarkets)

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("Global_Digest_%s.md", date))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	r.logger.Info("report written", "path", path)
	return path, nil
}

// Build assembles the full markdown document for the given date.
func (r *Renderer) Build(ctx context.Context, date string, news []domain.CategorySection, includeMarkets bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Global News & Market Digest Report (%s)\n\n", date)

	if len(news) > 0 {
		b.WriteString("## 🌏 Global News Summary\n\n")
		for _, section := range news {
			writeNewsSection(&b, section)
		}
	}

	if includeMarkets {
		b.WriteString("## 💰 Market Arbitrage & Opportunities\n\n")
		r.writeIndices(ctx, &b, date)
		r.writeForex(ctx, &b, date)
		r.writeCommodities(ctx, &b, date)
		r.writeLOF(ctx, &b, date)
		r.writeQDII(ctx, &b, date)
		r.writeAShare(ctx, &b, date)
		r.writeIssuance(ctx, &b, date)
		r.writeDoubleLow(ctx, &b, date)
		r.writePutback(ctx, &b, date)
		r.writeSPAC(ctx, &b, date)
	}

	b.WriteString("## 📚 Sources\n")
	b.WriteString("- **News**: TechCrunch, NY Times, BBC, Le Figaro\n")
	b.WriteString("- **Market Data**: Yahoo Finance, Bank of China, Jisilu, Eastmoney, StockAnalysis, CEFConnect\n")
	return b.String()
}

func writeNewsSection(b *strings.Builder, section domain.CategorySection) {
	fmt.Fprintf(b, "### 📰 %s (%d items)\n\n", section.Name, len(section.Articles))
	for _, article := range section.Articles {
		links := make([]string, 0, len(article.Sources))
		for _, src := range article.Sources {
			links = append(links, fmt.Sprintf("[%s](%s)", src.Name, src.Link))
		}
		fmt.Fprintf(b, "#### %s (Source: %s)\n\n", article.TranslatedTitle, strings.Join(links, ", "))
		if article.TranslatedSummary != "" {
			fmt.Fprintf(b, "%s\n\n", article.TranslatedSummary)
		}
		b.WriteString("---\n\n")
	}
}

// fetch reads one table, degrading load errors to an empty section so a
// single bad table never sinks the whole report.
func (r *Renderer) fetch(ctx context.Context, table, date string) []domain.Row {
	rows, err := r.repo.FetchDay(ctx, table, date)
	if err != nil {
		r.logger.Warn("report table unavailable", "table", table, "error", err)
		return nil
	}
	return rows
}

func (r *Renderer) writeIndices(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "market_indices", date) {
		display = append(display, []string{
			strCell(row, "name"),
			fmt.Sprintf("%.2f", numCell(row, "price")),
			fmt.Sprintf("%.2f%%", numCell(row, "change_pct")),
		})
	}
	b.WriteString("### 1. Market Indices (Global)\n")
	b.WriteString(formatTable(display, []string{"Index", "Price", "Change %"}, []string{"left", "right", "right"}) + "\n\n")
}

// writeForex pivots the rate rows into Buy/Sell lines across currencies,
// priority currencies first. Buy shows the cash buy rate, Sell the spot
// sell rate.
func (r *Renderer) writeForex(ctx context.Context, b *strings.Builder, date string) {
	rows := r.fetch(ctx, "forex_rates", date)

	b.WriteString("### 2. Forex Rates (BOC)\n")
	if len(rows) == 0 {
		b.WriteString(noData + "\n\n")
		return
	}

	byCurrency := map[string]domain.Row{}
	var order []string
	for _, row := range rows {
		currency := strCell(row, "currency")
		byCurrency[currency] = row
		order = append(order, currency)
	}
	var currencies []string
	for _, p := range forexPriority {
		if _, ok := byCurrency[p]; ok {
			currencies = append(currencies, p)
		}
	}
	for _, c := range order {
		if !contains(currencies, c) {
			currencies = append(currencies, c)
		}
	}

	headers := append([]string{"Rate"}, currencies...)
	aligns := append([]string{"left"}, repeat("right", len(currencies))...)
	sell := []string{"Sell"}
	buy := []string{"Buy"}
	for _, c := range currencies {
		sell = append(sell, fmt.Sprintf("%.4f", numCell(byCurrency[c], "spot_sell")))
		buy = append(buy, fmt.Sprintf("%.4f", numCell(byCurrency[c], "cash_buy")))
	}
	b.WriteString(formatTable([][]string{sell, buy}, headers, aligns) + "\n\n")
}

func (r *Renderer) writeCommodities(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "commodities", date) {
		display = append(display, []string{
			strCell(row, "name"),
			fmt.Sprintf("%.2f", numCell(row, "price")),
			fmt.Sprintf("%.2f%%", numCell(row, "change_pct")),
		})
	}
	b.WriteString("### 3. Commodities\n")
	b.WriteString(formatTable(display, []string{"Name", "Price", "Change %"}, []string{"left", "right", "right"}) + "\n\n")
}

func (r *Renderer) writeLOF(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "lof_funds", date) {
		display = append(display, []string{
			strCell(row, "fund_id"),
			strCell(row, "fund_name"),
			fmt.Sprintf("%.3f", numCell(row, "price")),
			fmt.Sprintf("%.2f%%", numCell(row, "premium_rate")),
			strCellOr(row, "apply_status", "-"),
			liquidityCell(numCell(row, "amount"), numCell(row, "volume")),
		})
	}
	fmt.Fprintf(b, "### 4. LOF/IOF Funds (Premium > %g%%)\n", r.strategy.LOF.MinPremiumRate)
	b.WriteString(formatTable(display,
		[]string{"Code", "Name", "Price", "Premium", "Status", "Liquidity"},
		[]string{"left", "left", "right", "right", "left", "left"}) + "\n\n")
}

func (r *Renderer) writeQDII(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "qdii_arbitrage", date) {
		realtime := "-"
		if v, ok := row["realtime_premium_rate"]; ok && v != nil {
			realtime = fmt.Sprintf("%.2f%%", numCell(row, "realtime_premium_rate"))
		}
		display = append(display, []string{
			strCell(row, "fund_id"),
			strCell(row, "fund_name"),
			strCell(row, "market_type"),
			fmt.Sprintf("%.2f%%", numCell(row, "premium_rate")),
			realtime,
			strCellOr(row, "apply_status", "-"),
			liquidityCell(numCell(row, "amount"), numCell(row, "volume")),
		})
	}
	fmt.Fprintf(b, "### 5. QDII Arbitrage (Premium > %g%%)\n", r.strategy.QDII.MinPremiumRate)
	b.WriteString(formatTable(display,
		[]string{"Code", "Name", "Market", "T-1 Prem", "Realtime", "Status", "Liquidity"},
		[]string{"left", "left", "left", "right", "right", "left", "left"}) + "\n\n")
}

func (r *Renderer) writeAShare(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "stock_arbitrage", date) {
		display = append(display, []string{
			strCell(row, "stock_id"),
			strCell(row, "stock_name"),
			fmt.Sprintf("%.2f", numCell(row, "price")),
			fmt.Sprintf("%.2f", numCell(row, "choose_price")),
			strCell(row, "type_cd"),
			strCell(row, "descr"),
		})
	}
	b.WriteString("### 6. A-share Arbitrage\n")
	b.WriteString(formatTable(display,
		[]string{"Code", "Name", "Price", "Cash Price", "Type", "Description"},
		[]string{"left", "left", "right", "right", "left", "left"}) + "\n\n")
}

func (r *Renderer) writeIssuance(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "bond_issuance", date) {
		display = append(display, []string{
			strCell(row, "bond_code"),
			strCell(row, "bond_name"),
			strCell(row, "subscription_date"),
			strCell(row, "listing_date"),
			strCell(row, "details"),
		})
	}
	b.WriteString("### 7. Bond Issuance & Listing\n")
	b.WriteString(formatTable(display,
		[]string{"Code", "Name", "Sub Date", "List Date", "Details"},
		[]string{"left", "left", "left", "left", "left"}) + "\n\n")
}

func (r *Renderer) writeDoubleLow(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "cbond_double_low", date) {
		display = append(display, []string{
			strCell(row, "bond_id"),
			strCell(row, "bond_name"),
			fmt.Sprintf("%.2f", numCell(row, "price")),
			fmt.Sprintf("%.2f%%", numCell(row, "premium_rate")),
			fmt.Sprintf("%.2f", numCell(row, "dblow")),
			fmt.Sprintf("%.2fy", numCell(row, "year_left")),
		})
	}
	fmt.Fprintf(b, "### 8. Cbond Double Low (< %g)\n", r.strategy.Cbond.MaxDoubleLow)
	b.WriteString(formatTable(display,
		[]string{"Code", "Name", "Price", "Premium", "LowIndex", "Rem.Y"},
		[]string{"left", "left", "right", "right", "right", "right"}) + "\n\n")
}

func (r *Renderer) writePutback(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "cbond_putback", date) {
		display = append(display, []string{
			strCell(row, "bond_id"),
			strCell(row, "bond_name"),
			fmt.Sprintf("%.2f", numCell(row, "price")),
			fmt.Sprintf("%.2f%%", numCell(row, "premium_rate")),
			strCellOr(row, "put_dt", "-"),
			fmt.Sprintf("%.2fy", numCell(row, "year_left")),
		})
	}
	fmt.Fprintf(b, "### 9. Cbond Put-back Window (Price < %g)\n", r.strategy.Cbond.MaxPutbackPrice)
	b.WriteString(formatTable(display,
		[]string{"Code", "Name", "Price", "Premium", "Put Date", "Rem.Y"},
		[]string{"left", "left", "right", "right", "left", "right"}) + "\n\n")
}

func (r *Renderer) writeSPAC(ctx context.Context, b *strings.Builder, date string) {
	var display [][]string
	for _, row := range r.fetch(ctx, "spac_arbitrage", date) {
		display = append(display, []string{
			strCell(row, "symbol"),
			strCell(row, "name"),
			strCell(row, "ipo_date"),
			fmt.Sprintf("%.2f", numCell(row, "price")),
			fmt.Sprintf("%.2f", numCell(row, "nav")),
			fmt.Sprintf("%.2f%%", numCell(row, "yield")),
			fmt.Sprintf("%d", int(numCell(row, "remaining_days"))),
		})
	}
	b.WriteString("### 10. SPAC Arbitrage\n")
	b.WriteString(formatTable(display,
		[]string{"Symbol", "Name", "IPO Date", "Price", "NAV", "Yield", "Days"},
		[]string{"left", "left", "left", "right", "right", "right", "right"}) + "\n\n")
}

// formatTable renders a markdown pipe table with per-column alignment
// hints. Empty input renders the no-data placeholder instead.
func formatTable(rows [][]string, headers, alignments []string) string {
	if len(rows) == 0 {
		return noData
	}

	alignMap := map[string]string{"left": ":---", "right": "---:", "center": ":---:"}
	seps := make([]string, len(headers))
	for i := range headers {
		align := "left"
		if i < len(alignments) {
			align = alignments[i]
		}
		sep, ok := alignMap[align]
		if !ok {
			sep = ":---"
		}
		seps[i] = sep
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	for _, row := range rows {
		escaped := make([]string, len(row))
		for i, cell := range row {
			escaped[i] = strings.ReplaceAll(cell, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
	}
	return b.String()
}

// formatLiquidity renders a wan-denominated value, switching to the yi
// (100 million) unit once it crosses 10,000 wan.
func formatLiquidity(wan float64) string {
	if wan >= 10000 {
		return fmt.Sprintf("%.2fY", wan/10000)
	}
	return fmt.Sprintf("%.1fW", wan)
}

func liquidityCell(amount, volume float64) string {
	var parts []string
	if amount > 0 {
		parts = append(parts, "Amt:"+formatLiquidity(amount))
	}
	if volume > 0 {
		parts = append(parts, "Vol:"+formatLiquidity(volume))
	}
	return strings.Join(parts, ", ")
}

// numCell coerces a scanned sqlite value to float64.
func numCell(row domain.Row, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// strCell coerces a scanned sqlite value to string; the driver may hand
// text back as bytes.
func strCell(row domain.Row, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func strCellOr(row domain.Row, key, fallback string) string {
	if s := strCell(row, key); s != "" {
		return s
	}
	return fallback
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}
