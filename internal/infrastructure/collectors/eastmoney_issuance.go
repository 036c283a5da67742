package collectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/domain"
)

// EastmoneyIssuance watches the new convertible-bond calendar for
// subscriptions and listings happening today or tomorrow.
type EastmoneyIssuance struct {
	client *resty.Client
	pacer  *collector.Pacer
	logger *slog.Logger
	url    string
	now    func() time.Time
}

var _ collector.Collector = (*EastmoneyIssuance)(nil)

// NewEastmoneyIssuance wires the collector.
func NewEastmoneyIssuance(pacer *collector.Pacer, logger *slog.Logger) *EastmoneyIssuance {
	return &EastmoneyIssuance{
		client: newEastmoneyClient(),
		pacer:  pacer,
		logger: logger,
		url:    defaultEastmoneyURL,
		now:    time.Now,
	}
}

// Name identifies the collector in logs.
func (c *EastmoneyIssuance) Name() string { return "eastmoney-issuance" }

// Collect fetches the recent bond list and keeps imminent events.
func (c *EastmoneyIssuance) Collect(ctx context.Context) ([]domain.Dataset, error) {
	c.pacer.Wait(ctx)
	items, err := eastmoneyReport(ctx, c.client, c.url, "RPT_BOND_CB_LIST", 100)
	if err != nil {
		return nil, err
	}

	rows := filterIssuance(items, c.now())
	c.logger.Debug("bond calendar processed", "total", len(items), "events", len(rows))
	return []domain.Dataset{{Table: "bond_issuance", Rows: rows}}, nil
}

// filterIssuance keeps bonds whose subscription or listing date falls on
// the run date or the following day.
func filterIssuance(items []map[string]any, now time.Time) []domain.Row {
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	var out []domain.Row
	for _, item := range items {
		subDate := dateOnly(asString(item["PUBLIC_START_DATE"]))
		listDate := dateOnly(asString(item["LISTING_DATE"]))

		var events []string
		switch subDate {
		case today:
			events = append(events, fmt.Sprintf("Subscription Today (%s)", subDate))
		case tomorrow:
			events = append(events, fmt.Sprintf("Subscription Tomorrow (%s)", subDate))
		}
		switch listDate {
		case today:
			events = append(events, fmt.Sprintf("Listing Today (%s)", listDate))
		case tomorrow:
			events = append(events, fmt.Sprintf("Listing Tomorrow (%s)", listDate))
		}
		if len(events) == 0 {
			continue
		}

		if subDate == "" {
			subDate = "-"
		}
		if listDate == "" {
			listDate = "-"
		}
		out = append(out, domain.Row{
			"bond_code":         asString(item["SECURITY_CODE"]),
			"bond_name":         asString(item["SECURITY_NAME_ABBR"]),
			"subscription_date": subDate,
			"listing_date":      listDate,
			"details":           strings.Join(events, ", "),
		})
	}
	return out
}
