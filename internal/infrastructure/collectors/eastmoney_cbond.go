package collectors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
)

// Sentinels for fields the vendor omits: an absent premium parks the bond
// far outside the double-low band, an absent remaining term far outside the
// putback window.
const (
	missingPremium  = 999.0
	missingYearLeft = 99.0
	maxDoubleLowPx  = 130.0
)

// EastmoneyCbond monitors the convertible-bond market for double-low value
// and putback-window setups. One fetch feeds both tables.
type EastmoneyCbond struct {
	client *resty.Client
	cfg    config.CbondConfig
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
	now    func() time.Time
}

var _ collector.Collector = (*EastmoneyCbond)(nil)

// NewEastmoneyCbond wires the collector with its thresholds.
func NewEastmoneyCbond(cfg config.CbondConfig, pacer *collector.Pacer, logger *slog.Logger) *EastmoneyCbond {
	return &EastmoneyCbond{
		client: newEastmoneyClient(),
		cfg:    cfg,
		pacer:  pacer,
		logger: logger,
		url:    defaultEastmoneyURL,
		now:    time.Now,
	}
}

// Name identifies the collector in logs.
func (c *EastmoneyCbond) Name() string { return "eastmoney-cbond" }

// Collect fetches the valuation report and splits it into the two
// strategy tables.
func (c *EastmoneyCbond) Collect(ctx context.Context) ([]domain.Dataset, error) {
	c.pacer.Wait(ctx)
	items, err := eastmoneyReport(ctx, c.client, c.url, "RPT_VALUE_ANALYSIS_CB", 1000)
	if err != nil {
		return nil, err
	}

	doubleLow, putback := c.process(items)
	c.logger.Debug("cbond market processed",
		"total", len(items), "double_low", len(doubleLow), "putback", len(putback))

	return []domain.Dataset{
		{Table: "cbond_double_low", Rows: doubleLow},
		{Table: "cbond_putback", Rows: putback},
	}, nil
}

func (c *EastmoneyCbond) process(items []map[string]any) (doubleLow, putback []domain.Row) {
	now := c.now()
	for _, item := range items {
		price, ok := asFloat(item["CURRENT_BOND_PRICE"])
		if !ok {
			continue
		}

		bondID := asString(item["SECURITY_CODE"])
		bondName := asString(item["SECURITY_NAME_ABBR"])
		premium := floatOr(item["CONVERT_PREMIUM_RATE"], missingPremium)
		yearLeft := floatOr(item["REMAIN_YEAR"], missingYearLeft)

		// Double low: price plus premium percentage points.
		dblow := price + premium
		if dblow < c.cfg.MaxDoubleLow && price < maxDoubleLowPx {
			doubleLow = append(doubleLow, domain.Row{
				"bond_id":      bondID,
				"bond_name":    bondName,
				"price":        price,
				"premium_rate": premium,
				"dblow":        dblow,
				"year_left":    yearLeft,
				"type":         "Double Low",
			})
		}

		putDate := asString(item["PUTBACK_DATE"])
		if c.nearPutback(putDate, yearLeft, now, bondID) && price < c.cfg.MaxPutbackPrice {
			putback = append(putback, domain.Row{
				"bond_id":      bondID,
				"bond_name":    bondName,
				"price":        price,
				"premium_rate": premium,
				"dblow":        dblow,
				"put_dt":       dateOnly(putDate),
				"year_left":    yearLeft,
				"type":         "Put-back Opportunity",
			})
		}
	}
	return doubleLow, putback
}

// nearPutback reports whether the bond enters its putback window within the
// configured horizon. When the vendor's putback date fails to parse, the
// remaining-term heuristic is used instead — inherited behavior that may
// mask bad vendor data rather than a verified equivalence, hence the log.
func (c *EastmoneyCbond) nearPutback(putDate string, yearLeft float64, now time.Time, bondID string) bool {
	horizonDays := c.cfg.MaxPutbackYears * 365

	if d := dateOnly(putDate); d != "" && d != "-" {
		parsed, err := dateparse.ParseAny(d)
		if err == nil {
			daysToPut := parsed.Sub(now).Hours() / 24
			return daysToPut > 0 && daysToPut < horizonDays
		}
		c.logger.Debug("putback date unparseable, using remaining term",
			"bond", bondID, "put_dt", putDate, "error", err)
	}
	return yearLeft < c.cfg.MaxPutbackYears
}

// dateOnly strips the time-of-day part the vendor appends to dates.
func dateOnly(v string) string {
	if v == "" {
		return ""
	}
	return strings.SplitN(v, " ", 2)[0]
}
