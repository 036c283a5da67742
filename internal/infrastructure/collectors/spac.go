package collectors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

const (
	defaultSPACURL = "https://stockanalysis.com/list/spac-stocks/"

	// Trust NAV and lifecycle: sponsors hold 10.00 per share and the
	// shell has roughly 18 months to close a deal.
	spacNAV           = 10.00
	spacLifecycleDays = 548
)

// SPACArbitrage scrapes the SPAC listing and surfaces shells trading below
// trust value with enough annualized yield to matter.
type SPACArbitrage struct {
	client *resty.Client
	cfg    config.SPACConfig
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
	now    func() time.Time
}

var _ collector.Collector = (*SPACArbitrage)(nil)

// NewSPACArbitrage wires the collector with its thresholds.
func NewSPACArbitrage(cfg config.SPACConfig, pacer *collector.Pacer, logger *slog.Logger) *SPACArbitrage {
	return &SPACArbitrage{
		client: resty.New().
			SetTimeout(20 * time.Second).
			SetHeader("User-Agent", jisiluUserAgent),
		cfg:    cfg,
		pacer:  pacer,
		logger: logger,
		url:    defaultSPACURL,
		now:    time.Now,
	}
}

// Name identifies the collector in logs.
func (c *SPACArbitrage) Name() string { return "spac-arbitrage" }

// Collect scrapes the listing table and keeps qualifying shells.
func (c *SPACArbitrage) Collect(ctx context.Context) ([]domain.Dataset, error) {
	c.pacer.Wait(ctx)
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("get spac list: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("spac list returned status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse spac page: %w", err)
	}

	rows, err := c.extract(doc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("spac list processed", "kept", len(rows))
	return []domain.Dataset{{Table: "spac_arbitrage", Rows: rows}}, nil
}

// spacColumns maps the listing table layout. Detected from headers when
// possible, with the observed default layout as fallback.
type spacColumns struct {
	symbol, name, price, ipo int
}

func detectSPACColumns(headers []string) spacColumns {
	cols := spacColumns{symbol: -1, name: -1, price: -1, ipo: -1}
	for i, h := range headers {
		switch {
		case strings.Contains(h, "Symbol"):
			cols.symbol = i
		case strings.Contains(h, "Name"):
			cols.name = i
		case strings.Contains(h, "IPO Date"):
			cols.ipo = i
		case strings.Contains(h, "Price"):
			cols.price = i
		}
	}
	if cols.symbol == -1 || cols.price == -1 || cols.ipo == -1 {
		return spacColumns{symbol: 1, name: 2, price: 3, ipo: 5}
	}
	return cols
}

func (c *SPACArbitrage) extract(doc *goquery.Document) ([]domain.Row, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found on spac page")
	}
	trs := table.Find("tr")
	if trs.Length() < 2 {
		return nil, fmt.Errorf("spac table has no data rows")
	}

	headers := trs.First().Find("th, td").Map(func(_ int, cell *goquery.Selection) string {
		return strings.TrimSpace(cell.Text())
	})
	cols := detectSPACColumns(headers)

	today := c.now()
	var out []domain.Row
	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th").Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		})
		row, ok := c.evaluate(cells, cols, today)
		if ok {
			out = append(out, row)
		}
	})
	return out, nil
}

// evaluate prices one listing row against trust value. The annualized yield
// assumes redemption at NAV when the lifecycle ends.
func (c *SPACArbitrage) evaluate(cells []string, cols spacColumns, today time.Time) (domain.Row, bool) {
	max := cols.symbol
	for _, i := range []int{cols.price, cols.ipo, cols.name} {
		if i > max {
			max = i
		}
	}
	if len(cells) <= max {
		return nil, false
	}

	symbol := cells[cols.symbol]
	name := ""
	if cols.name >= 0 {
		name = cells[cols.name]
	}
	priceStr := strings.NewReplacer(",", "", "$", "").Replace(cells[cols.price])
	ipoStr := cells[cols.ipo]
	if priceStr == "" || priceStr == "-" || ipoStr == "" || ipoStr == "-" {
		return nil, false
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, false
	}
	ipoDate, err := dateparse.ParseAny(ipoStr)
	if err != nil {
		return nil, false
	}

	expiration := ipoDate.AddDate(0, 0, spacLifecycleDays)
	remainingDays := int(expiration.Sub(today).Hours() / 24)
	if remainingDays <= 0 {
		return nil, false
	}

	yieldVal := ((spacNAV - price) / price) * (365 / float64(remainingDays))
	if price < c.cfg.MinPrice || price > c.cfg.MaxPrice || yieldVal <= c.cfg.MinYield {
		return nil, false
	}

	return domain.Row{
		"symbol":         symbol,
		"name":           name,
		"ipo_date":       ipoStr,
		"price":          price,
		"nav":            spacNAV,
		"yield":          round2(yieldVal * 100),
		"remaining_days": remainingDays,
	}, true
}
