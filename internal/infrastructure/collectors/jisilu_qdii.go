package collectors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

const suspendedStatus = "暂停申购"

// qdiiMarket pairs a Jisilu QDII list with its display name. Order is
// preserved into the report.
type qdiiMarket struct {
	Name string
	URL  string
}

var defaultQDIIMarkets = []qdiiMarket{
	{"Asia", "https://www.jisilu.cn/data/qdii/qdii_list/A"},
	{"Europe/America", "https://www.jisilu.cn/data/qdii/qdii_list/E"},
	{"Commodities", "https://www.jisilu.cn/data/qdii/qdii_list/C"},
}

// JisiluQDII collects QDII funds with an exploitable premium across the
// Asia, Europe/America and Commodities lists. ETF rows are skipped since
// retail investors cannot arbitrate them through subscription.
type JisiluQDII struct {
	client  *resty.Client
	cfg     config.FundConfig
	pacer   *collector.Pacer
	logger  *slog.Logger
	markets []qdiiMarket
}

var _ collector.Collector = (*JisiluQDII)(nil)

// NewJisiluQDII wires the collector with its thresholds.
func NewJisiluQDII(cfg config.FundConfig, pacer *collector.Pacer, logger *slog.Logger) *JisiluQDII {
	return &JisiluQDII{
		client:  newJisiluClient("https://www.jisilu.cn/data/qdii/"),
		cfg:     cfg,
		pacer:   pacer,
		logger:  logger,
		markets: defaultQDIIMarkets,
	}
}

// Name identifies the collector in logs.
func (c *JisiluQDII) Name() string { return "jisilu-qdii" }

// Collect walks the three market lists in order.
func (c *JisiluQDII) Collect(ctx context.Context) ([]domain.Dataset, error) {
	var rows []domain.Row
	for _, market := range c.markets {
		c.pacer.Wait(ctx)
		cells, err := jisiluGet(ctx, c.client, market.URL, map[string]string{
			"rp":       "500",
			"only_lof": "y",
			"only_etf": "n",
		})
		if err != nil {
			c.logger.Warn("fetch qdii list failed", "market", market.Name, "error", err)
			continue
		}
		kept := filterQDII(cells, market.Name, c.cfg)
		c.logger.Debug("qdii list processed", "market", market.Name, "total", len(cells), "kept", len(kept))
		rows = append(rows, kept...)
	}

	return []domain.Dataset{{Table: "qdii_arbitrage", Rows: rows}}, nil
}

// filterQDII keeps liquid, non-suspended funds whose better premium (T-1 or
// realtime) clears the threshold.
func filterQDII(cells []map[string]any, marketName string, cfg config.FundConfig) []domain.Row {
	var out []domain.Row
	for _, cell := range cells {
		name := asString(cell["fund_nm"])
		if strings.Contains(strings.ToUpper(name), "ETF") {
			continue
		}

		premium := floatOr(cell["discount_rt"], 0)
		realtimePremium := floatOr(cell["discount_rt2"], 0)
		maxPremium := premium
		if realtimePremium > maxPremium {
			maxPremium = realtimePremium
		}

		amount := floatOr(cell["amount"], 0)
		volume := floatOr(cell["volume"], 0)
		isLiquid := amount > cfg.MinFundShareWan() || volume > cfg.MinTurnoverWan()

		status := asString(cell["apply_status"])
		if maxPremium <= cfg.MinPremiumRate || !isLiquid || status == suspendedStatus {
			continue
		}

		row := domain.Row{
			"fund_id":               asString(cell["fund_id"]),
			"fund_name":             name,
			"price":                 floatOr(cell["price"], 0),
			"premium_rate":          premium,
			"realtime_premium_rate": realtimePremium,
			"volume":                volume,
			"amount":                amount,
			"index_name":            asString(cell["index_nm"]),
			"apply_status":          status,
			"market_type":           marketName,
		}
		// Estimate values may be absent or a "buy" sentinel; store NULL then.
		row["estimate_value"] = nullableFloat(cell["estimate_value"])
		row["realtime_estimate_value"] = nullableFloat(cell["estimate_value2"])

		out = append(out, row)
	}
	return out
}

func nullableFloat(v any) any {
	if f, ok := asFloat(v); ok {
		return f
	}
	return nil
}
