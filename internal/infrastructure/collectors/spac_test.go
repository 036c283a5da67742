package collectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketDigest/internal/config"
)

func spacCfg() config.SPACConfig {
	return config.SPACConfig{MinYield: 0.01, MinPrice: 9.5, MaxPrice: 9.99}
}

const spacListHTML = `<html><body><table>
<tr><th>No.</th><th>Symbol</th><th>Company Name</th><th>Stock Price</th><th>Market Cap</th><th>IPO Date</th></tr>
<tr><td>1</td><td>AAAA</td><td>Alpha Acquisition</td><td>$9.80</td><td>200M</td><td>Aug 1, 2025</td></tr>
<tr><td>2</td><td>BBBB</td><td>Beta Acquisition</td><td>$10.50</td><td>300M</td><td>Aug 1, 2025</td></tr>
<tr><td>3</td><td>CCCC</td><td>Gamma Acquisition</td><td>$9.60</td><td>150M</td><td>Jan 1, 2023</td></tr>
<tr><td>4</td><td>DDDD</td><td>Delta Acquisition</td><td>-</td><td>100M</td><td>Aug 1, 2025</td></tr>
</table></body></html>`

func TestSPACCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(spacListHTML))
	}))
	defer srv.Close()

	coll := NewSPACArbitrage(spacCfg(), nil, discardLogger())
	coll.url = srv.URL
	coll.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }

	datasets, err := coll.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	rows := datasets[0].Rows

	// AAAA: IPO 2025-08-01, expires 2027-01-30, ~363 days left;
	// yield = ((10-9.8)/9.8)*(365/363) ~ 2.05%. BBBB is above the price
	// band, CCCC's lifecycle already expired, DDDD has no price.
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %+v", len(rows), rows)
	}
	row := rows[0]
	if row["symbol"] != "AAAA" || row["name"] != "Alpha Acquisition" {
		t.Fatalf("wrong row: %+v", row)
	}
	if row["nav"] != 10.00 {
		t.Fatalf("nav must be fixed at 10.00: %v", row["nav"])
	}
	days, _ := row["remaining_days"].(int)
	if days <= 300 || days >= 400 {
		t.Fatalf("remaining days out of range: %v", days)
	}
	yield, _ := row["yield"].(float64)
	if yield < 1.5 || yield > 2.5 {
		t.Fatalf("yield percent out of range: %v", yield)
	}
}

func TestDetectSPACColumnsFallback(t *testing.T) {
	t.Parallel()

	cols := detectSPACColumns([]string{"No.", "Ticker", "Company", "Last", "Cap"})
	if cols.symbol != 1 || cols.name != 2 || cols.price != 3 || cols.ipo != 5 {
		t.Fatalf("fallback layout wrong: %+v", cols)
	}
}

func TestDetectSPACColumnsFromHeaders(t *testing.T) {
	t.Parallel()

	cols := detectSPACColumns([]string{"Symbol", "Name", "IPO Date", "Price"})
	if cols.symbol != 0 || cols.name != 1 || cols.ipo != 2 || cols.price != 3 {
		t.Fatalf("header detection wrong: %+v", cols)
	}
}
