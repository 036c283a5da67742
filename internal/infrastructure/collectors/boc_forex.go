package collectors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/domain"
)

const defaultBOCURL = "https://www.boc.cn/sourcedb/whpj/"

// Bank of China publishes rates against the Chinese currency name.
var bocTargetCurrencies = map[string]bool{
	"美元": true, // USD
	"欧元": true, // EUR
	"日元": true, // JPY
	"英镑": true, // GBP
}

var rateExpr = regexp.MustCompile(`\d+\.?\d*`)

// BOCForex scrapes the Bank of China published exchange-rate board.
type BOCForex struct {
	client *resty.Client
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
}

var _ collector.Collector = (*BOCForex)(nil)

// NewBOCForex wires the collector.
func NewBOCForex(pacer *collector.Pacer, logger *slog.Logger) *BOCForex {
	return &BOCForex{
		client: resty.New().
			SetTimeout(20 * time.Second).
			SetHeader("User-Agent", jisiluUserAgent),
		pacer:  pacer,
		logger: logger,
		url:    defaultBOCURL,
	}
}

// Name identifies the collector in logs.
func (c *BOCForex) Name() string { return "boc-forex" }

// Collect scrapes the rate page and keeps the target currencies.
func (c *BOCForex) Collect(ctx context.Context) ([]domain.Dataset, error) {
	c.pacer.Wait(ctx)
	resp, err := c.client.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("get boc rates: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("boc returned status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse boc page: %w", err)
	}

	rows, err := extractBOCRates(doc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("boc rates processed", "kept", len(rows))
	return []domain.Dataset{{Table: "forex_rates", Rows: rows}}, nil
}

// extractBOCRates locates the rate table by its header text, maps column
// indexes by header name and pulls the target currency rows. Unparseable
// rates degrade to zero rather than dropping the currency.
func extractBOCRates(doc *goquery.Document) ([]domain.Row, error) {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()
		if strings.Contains(text, "货币名称") && strings.Contains(text, "现汇买入价") {
			table = sel
			return false
		}
		return true
	})
	if table == nil {
		return nil, fmt.Errorf("no rate table found on boc page")
	}

	trs := table.Find("tr")
	if trs.Length() < 2 {
		return nil, fmt.Errorf("rate table has no data rows")
	}

	idx := map[string]int{}
	trs.First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
		header := strings.TrimSpace(cell.Text())
		switch {
		case strings.Contains(header, "货币名称"):
			idx["currency"] = i
		case strings.Contains(header, "现汇买入价"):
			idx["spot_buy"] = i
		case strings.Contains(header, "现钞买入价"):
			idx["cash_buy"] = i
		case strings.Contains(header, "现汇卖出价"):
			idx["spot_sell"] = i
		case strings.Contains(header, "现钞卖出价"):
			idx["cash_sell"] = i
		}
	})
	currencyIdx, ok := idx["currency"]
	if !ok {
		return nil, fmt.Errorf("currency column not found")
	}

	var out []domain.Row
	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td").Map(func(_ int, td *goquery.Selection) string {
			return strings.TrimSpace(td.Text())
		})
		if len(cells) <= currencyIdx {
			return
		}
		currency := cells[currencyIdx]
		if !bocTargetCurrencies[currency] {
			return
		}
		out = append(out, domain.Row{
			"currency":  currency,
			"bank":      "中国银行",
			"spot_buy":  rateAt(cells, idx, "spot_buy"),
			"cash_buy":  rateAt(cells, idx, "cash_buy"),
			"spot_sell": rateAt(cells, idx, "spot_sell"),
			"cash_sell": rateAt(cells, idx, "cash_sell"),
		})
	})
	return out, nil
}

func rateAt(cells []string, idx map[string]int, name string) float64 {
	i, ok := idx[name]
	if !ok || i >= len(cells) {
		return 0
	}
	match := rateExpr.FindString(cells[i])
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}
