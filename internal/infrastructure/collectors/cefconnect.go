package collectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

const defaultCEFBaseURL = "https://www.cefconnect.com"

// cefFund is the slice of the daily-pricing payload we evaluate. Pointer
// fields distinguish absent values from zero.
type cefFund struct {
	Ticker         string   `json:"Ticker"`
	Name           string   `json:"Name"`
	CategoryName   string   `json:"CategoryName"`
	SponsorName    string   `json:"SponsorName"`
	Price          *float64 `json:"Price"`
	NAV            float64  `json:"NAV"`
	Discount       *float64 `json:"Discount"`
	Discount52Wk   *float64 `json:"Discount52WkAvg"`
	ZScore1Yr      *float64 `json:"ZScore1Yr"`
	AvgDailyVolume *float64 `json:"AvgDailyVolume"`
}

// CEFArbitrage logs into CEFConnect and screens closed-end funds for deep
// statistically cheap discounts with enough dollar liquidity to trade.
type CEFArbitrage struct {
	client  *resty.Client
	cfg     config.CEFConfig
	auth    config.CEFConnectAuth
	pacer   *collector.Pacer
	logger  *slog.Logger
	baseURL string
	now     func() time.Time
}

var _ collector.Collector = (*CEFArbitrage)(nil)

// NewCEFArbitrage wires the collector with thresholds and credentials.
func NewCEFArbitrage(cfg config.CEFConfig, auth config.CEFConnectAuth, pacer *collector.Pacer, logger *slog.Logger) *CEFArbitrage {
	return &CEFArbitrage{
		client: resty.New().
			SetTimeout(60 * time.Second).
			SetHeader("User-Agent", jisiluUserAgent),
		cfg:     cfg,
		auth:    auth,
		pacer:   pacer,
		logger:  logger,
		baseURL: defaultCEFBaseURL,
		now:     time.Now,
	}
}

// Name identifies the collector in logs.
func (c *CEFArbitrage) Name() string { return "cef-arbitrage" }

// Collect authenticates, screens the daily pricing feed and annotates the
// survivors with their distribution trend.
func (c *CEFArbitrage) Collect(ctx context.Context) ([]domain.Dataset, error) {
	if c.auth.Email == "" || c.auth.Password == "" {
		return nil, fmt.Errorf("cefconnect credentials not configured")
	}
	if err := c.login(ctx); err != nil {
		return nil, err
	}

	c.pacer.Wait(ctx)
	resp, err := c.client.R().SetContext(ctx).Get(c.baseURL + "/api/v3/DailyPricing")
	if err != nil {
		return nil, fmt.Errorf("get daily pricing: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("daily pricing returned status %d", resp.StatusCode())
	}

	var funds []cefFund
	if err := json.Unmarshal(resp.Body(), &funds); err != nil {
		return nil, fmt.Errorf("decode daily pricing: %w", err)
	}

	var rows []domain.Row
	for _, fund := range funds {
		if !passesCEF(fund, c.cfg) {
			continue
		}
		rows = append(rows, domain.Row{
			"ticker":            fund.Ticker,
			"name":              fund.Name,
			"category":          fund.CategoryName,
			"sponsor":           fund.SponsorName,
			"price":             round2(*fund.Price),
			"nav":               round2(fund.NAV),
			"discount":          round2(*fund.Discount),
			"discount_52wk_avg": round2(floatDeref(fund.Discount52Wk)),
			"z_score":           round2(floatDeref(fund.ZScore1Yr)),
			"avg_daily_volume":  int(floatDeref(fund.AvgDailyVolume)),
			"dist_status":       c.distributionStatus(ctx, fund.Ticker),
		})
	}

	c.logger.Debug("cef screen processed", "total", len(funds), "kept", len(rows))
	return []domain.Dataset{{Table: "cef_arbitrage", Rows: rows}}, nil
}

// passesCEF applies the screen: complete quote, dollar liquidity above the
// floor, discount below the entry level and, when a z-score is published,
// the discount statistically stretched versus its own history.
func passesCEF(fund cefFund, cfg config.CEFConfig) bool {
	if fund.Ticker == "" || fund.Price == nil || fund.Discount == nil {
		return false
	}
	volumeUSD := floatDeref(fund.AvgDailyVolume) * *fund.Price
	if volumeUSD < cfg.MinVolumeUSD {
		return false
	}
	if *fund.Discount >= cfg.MinDiscount {
		return false
	}
	if fund.ZScore1Yr != nil && *fund.ZScore1Yr >= cfg.MaxZScore {
		return false
	}
	return true
}

func floatDeref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// login walks the ASP.NET form: pull the page for its hidden state fields,
// then post them back with the credentials. The shared cookie jar carries
// the session into the API calls.
func (c *CEFArbitrage) login(ctx context.Context) error {
	loginURL := c.baseURL + "/User/Login.aspx"

	c.pacer.Wait(ctx)
	if _, err := c.client.R().SetContext(ctx).Get(c.baseURL + "/"); err != nil {
		return fmt.Errorf("open home page: %w", err)
	}

	c.pacer.Wait(ctx)
	resp, err := c.client.R().SetContext(ctx).Get(loginURL)
	if err != nil {
		return fmt.Errorf("get login page: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("login page returned status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return fmt.Errorf("parse login page: %w", err)
	}

	form := map[string]string{
		"__EVENTTARGET":   "",
		"__EVENTARGUMENT": "",
		"email":           c.auth.Email,
		"password":        c.auth.Password,
		"rememberMe":      "on",
		"loginSubmit":     "",
	}
	for _, field := range []string{"__VIEWSTATE", "__VIEWSTATEGENERATOR", "__EVENTVALIDATION"} {
		value, ok := doc.Find(fmt.Sprintf("input[name=%s]", field)).Attr("value")
		if !ok {
			return fmt.Errorf("login page missing %s field", field)
		}
		form[field] = value
	}

	resp, err = c.client.R().SetContext(ctx).SetFormData(form).Post(loginURL)
	if err != nil {
		return fmt.Errorf("post login: %w", err)
	}
	if bytes.Contains(resp.Body(), []byte("Invalid")) {
		return fmt.Errorf("cefconnect login rejected")
	}
	c.logger.Debug("cefconnect session established")
	return nil
}

// distributionStatus compares the two most recent distributions over the
// trailing year. Any failure degrades to Stable so the screen result is
// never lost over an annotation.
func (c *CEFArbitrage) distributionStatus(ctx context.Context, ticker string) string {
	end := c.now()
	start := end.AddDate(0, 0, -365)
	url := fmt.Sprintf("%s/api/v3/distributionhistory/fund/%s/%s/%s",
		c.baseURL, ticker, start.Format("01-02-2006"), end.Format("01-02-2006"))

	c.pacer.Wait(ctx)
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil || resp.StatusCode() != http.StatusOK {
		c.logger.Debug("distribution history unavailable", "ticker", ticker, "error", err)
		return "Stable"
	}

	var history struct {
		Data []struct {
			TotDiv float64 `json:"TotDiv"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(resp.Body(), &history); err != nil || len(history.Data) < 2 {
		return "Stable"
	}

	latest := history.Data[len(history.Data)-1].TotDiv
	prev := history.Data[len(history.Data)-2].TotDiv
	switch {
	case latest < prev:
		return "Cutting"
	case latest > prev:
		return "Increasing"
	default:
		return "Stable"
	}
}
