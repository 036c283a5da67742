package collectors

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

const (
	defaultStockLOFURL = "https://www.jisilu.cn/data/lof/stock_lof_list/"
	defaultIndexLOFURL = "https://www.jisilu.cn/data/lof/index_lof_list/"
)

// JisiluLOF collects LOF funds trading at a premium over NAV from Jisilu's
// stock and index LOF lists.
type JisiluLOF struct {
	client   *resty.Client
	cfg      config.FundConfig
	pacer    *collector.Pacer
	logger   *slog.Logger
	stockURL string
	indexURL string
}

var _ collector.Collector = (*JisiluLOF)(nil)

// NewJisiluLOF wires the collector with its thresholds.
func NewJisiluLOF(cfg config.FundConfig, pacer *collector.Pacer, logger *slog.Logger) *JisiluLOF {
	return &JisiluLOF{
		client:   newJisiluClient("https://www.jisilu.cn/data/lof/"),
		cfg:      cfg,
		pacer:    pacer,
		logger:   logger,
		stockURL: defaultStockLOFURL,
		indexURL: defaultIndexLOFURL,
	}
}

// Name identifies the collector in logs.
func (c *JisiluLOF) Name() string { return "jisilu-lof" }

// Collect fetches both LOF lists and keeps funds above the premium and
// liquidity thresholds. A failed list contributes nothing; the other list
// still counts.
func (c *JisiluLOF) Collect(ctx context.Context) ([]domain.Dataset, error) {
	var rows []domain.Row
	for _, src := range []struct {
		url      string
		fundType string
	}{
		{c.stockURL, "Stock LOF"},
		{c.indexURL, "Index LOF"},
	} {
		c.pacer.Wait(ctx)
		cells, err := jisiluPost(ctx, c.client, src.url)
		if err != nil {
			c.logger.Warn("fetch lof list failed", "type", src.fundType, "error", err)
			continue
		}
		kept := filterLOF(cells, src.fundType, c.cfg)
		c.logger.Debug("lof list processed", "type", src.fundType, "total", len(cells), "kept", len(kept))
		rows = append(rows, kept...)
	}

	return []domain.Dataset{{Table: "lof_funds", Rows: rows}}, nil
}

// filterLOF keeps funds whose premium exceeds the threshold and which are
// liquid enough (shares or turnover above the wan-denominated minimums).
func filterLOF(cells []map[string]any, fundType string, cfg config.FundConfig) []domain.Row {
	var out []domain.Row
	for _, cell := range cells {
		premium, ok := asFloat(cell["discount_rt"])
		if !ok {
			continue
		}
		price, ok := asFloat(cell["price"])
		if !ok {
			continue
		}

		amount := floatOr(cell["amount"], 0)
		volume := floatOr(cell["volume"], 0)
		isLiquid := amount > cfg.MinFundShareWan() || volume > cfg.MinTurnoverWan()

		if premium > cfg.MinPremiumRate && isLiquid {
			status := asString(cell["apply_status"])
			if status == "" {
				status = "-"
			}
			out = append(out, domain.Row{
				"fund_id":      asString(cell["fund_id"]),
				"fund_name":    asString(cell["fund_nm"]),
				"price":        price,
				"premium_rate": premium,
				"amount":       amount,
				"volume":       volume,
				"fund_type":    fundType,
				"apply_status": status,
			})
		}
	}
	return out
}
