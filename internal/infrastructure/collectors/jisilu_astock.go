package collectors

import (
	"context"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/domain"
)

const defaultAStockURL = "https://www.jisilu.cn/data/taoligu/astock_arbitrage_list/"

// JisiluAStock collects A-share stocks trading below their cash-option
// price, i.e. positions that can be tendered for more than they cost.
type JisiluAStock struct {
	client *resty.Client
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
}

var _ collector.Collector = (*JisiluAStock)(nil)

// NewJisiluAStock wires the collector.
func NewJisiluAStock(pacer *collector.Pacer, logger *slog.Logger) *JisiluAStock {
	return &JisiluAStock{
		client: newJisiluClient("https://www.jisilu.cn/data/taoligu/#cna"),
		pacer:  pacer,
		logger: logger,
		url:    defaultAStockURL,
	}
}

// Name identifies the collector in logs.
func (c *JisiluAStock) Name() string { return "jisilu-astock" }

// Collect fetches the cash-option list and keeps mispriced entries.
func (c *JisiluAStock) Collect(ctx context.Context) ([]domain.Dataset, error) {
	c.pacer.Wait(ctx)
	cells, err := jisiluPost(ctx, c.client, c.url)
	if err != nil {
		return nil, err
	}

	rows := filterAStock(cells)
	c.logger.Debug("astock list processed", "total", len(cells), "kept", len(rows))
	return []domain.Dataset{{Table: "stock_arbitrage", Rows: rows}}, nil
}

// filterAStock keeps rows where the market price is below the cash-option
// price.
func filterAStock(cells []map[string]any) []domain.Row {
	var out []domain.Row
	for _, cell := range cells {
		price, ok := asFloat(cell["price"])
		if !ok {
			continue
		}
		choosePrice, ok := asFloat(cell["choose_price"])
		if !ok {
			continue
		}
		if price >= choosePrice {
			continue
		}
		out = append(out, domain.Row{
			"stock_id":     asString(cell["stock_id"]),
			"stock_name":   asString(cell["stock_nm"]),
			"price":        price,
			"choose_price": choosePrice,
			"type_cd":      asString(cell["type_cd"]),
			"descr":        asString(cell["descr"]),
		})
	}
	return out
}
