package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/domain"
)

const defaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// yahooQuote is the slice of the chart response we need. Prices come from
// the meta block so no range download is required.
type yahooQuote struct {
	Symbol    string
	Price     float64
	PrevClose float64
}

type yahooInstrument struct {
	Symbol string
	Short  string
	Name   string
}

var indexInstruments = []yahooInstrument{
	{Symbol: "000001.SS", Short: "000001", Name: "Shanghai Composite"},
	{Symbol: "^GSPC", Short: "SPX", Name: "S&P 500"},
	{Symbol: "^N225", Short: "N225", Name: "Nikkei 225"},
	{Symbol: "^NDX", Short: "NDX", Name: "Nasdaq 100"},
}

var commodityInstruments = []yahooInstrument{
	{Symbol: "GC=F", Short: "GC=F", Name: "Gold"},
	{Symbol: "SI=F", Short: "SI=F", Name: "Silver"},
}

func newYahooClient() *resty.Client {
	return resty.New().
		SetTimeout(20 * time.Second).
		SetHeader("User-Agent", jisiluUserAgent)
}

// yahooFetch pulls the latest price and previous close for one symbol.
func yahooFetch(ctx context.Context, client *resty.Client, baseURL, symbol string) (yahooQuote, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "1d",
		}).
		Get(fmt.Sprintf("%s/%s", baseURL, symbol))
	if err != nil {
		return yahooQuote{}, fmt.Errorf("get quote %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return yahooQuote{}, fmt.Errorf("quote %s returned status %d", symbol, resp.StatusCode())
	}

	var envelope struct {
		Chart struct {
			Result []struct {
				Meta struct {
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					ChartPreviousClose float64 `json:"chartPreviousClose"`
					PreviousClose      float64 `json:"previousClose"`
				} `json:"meta"`
			} `json:"result"`
			Error *struct {
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return yahooQuote{}, fmt.Errorf("decode quote %s: %w", symbol, err)
	}
	if envelope.Chart.Error != nil {
		return yahooQuote{}, fmt.Errorf("quote %s: %s", symbol, envelope.Chart.Error.Description)
	}
	if len(envelope.Chart.Result) == 0 {
		return yahooQuote{}, fmt.Errorf("quote %s: empty result", symbol)
	}

	meta := envelope.Chart.Result[0].Meta
	prev := meta.ChartPreviousClose
	if prev == 0 {
		prev = meta.PreviousClose
	}
	return yahooQuote{Symbol: symbol, Price: meta.RegularMarketPrice, PrevClose: prev}, nil
}

// yahooCollect fetches every instrument, skipping symbols that fail so one
// outage does not blank the whole table.
func yahooCollect(ctx context.Context, client *resty.Client, baseURL string, instruments []yahooInstrument, pacer *collector.Pacer, logger *slog.Logger, withPrevClose bool) []domain.Row {
	var out []domain.Row
	for _, inst := range instruments {
		pacer.Wait(ctx)
		quote, err := yahooFetch(ctx, client, baseURL, inst.Symbol)
		if err != nil {
			logger.Warn("quote fetch failed", "symbol", inst.Symbol, "error", err)
			continue
		}
		change := quote.Price - quote.PrevClose
		changePct := 0.0
		if quote.PrevClose != 0 {
			changePct = change / quote.PrevClose * 100
		}
		row := domain.Row{
			"symbol":     inst.Short,
			"name":       inst.Name,
			"price":      round2(quote.Price),
			"change":     round2(change),
			"change_pct": round2(changePct),
		}
		if withPrevClose {
			row["prev_close"] = round2(quote.PrevClose)
		}
		out = append(out, row)
	}
	return out
}

// MarketIndices collects the daily close of the tracked equity indices.
type MarketIndices struct {
	client *resty.Client
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
}

var _ collector.Collector = (*MarketIndices)(nil)

// NewMarketIndices wires the collector.
func NewMarketIndices(pacer *collector.Pacer, logger *slog.Logger) *MarketIndices {
	return &MarketIndices{
		client: newYahooClient(),
		pacer:  pacer,
		logger: logger,
		url:    defaultYahooURL,
	}
}

// Name identifies the collector in logs.
func (c *MarketIndices) Name() string { return "market-indices" }

// Collect fetches the tracked indices.
func (c *MarketIndices) Collect(ctx context.Context) ([]domain.Dataset, error) {
	rows := yahooCollect(ctx, c.client, c.url, indexInstruments, c.pacer, c.logger, true)
	c.logger.Debug("indices processed", "kept", len(rows))
	return []domain.Dataset{{Table: "market_indices", Rows: rows}}, nil
}

// Commodities collects precious-metal futures quotes.
type Commodities struct {
	client *resty.Client
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
}

var _ collector.Collector = (*Commodities)(nil)

// NewCommodities wires the collector.
func NewCommodities(pacer *collector.Pacer, logger *slog.Logger) *Commodities {
	return &Commodities{
		client: newYahooClient(),
		pacer:  pacer,
		logger: logger,
		url:    defaultYahooURL,
	}
}

// Name identifies the collector in logs.
func (c *Commodities) Name() string { return "commodities" }

// Collect fetches the tracked futures.
func (c *Commodities) Collect(ctx context.Context) ([]domain.Dataset, error) {
	rows := yahooCollect(ctx, c.client, c.url, commodityInstruments, c.pacer, c.logger, false)
	c.logger.Debug("commodities processed", "kept", len(rows))
	return []domain.Dataset{{Table: "commodities", Rows: rows}}, nil
}
