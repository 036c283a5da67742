package collectors

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketDigest/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fundCfg() config.FundConfig {
	return config.FundConfig{MinPremiumRate: 5.0, MinFundShare: 20000000, MinTurnover: 1000000}
}

func TestFilterLOF(t *testing.T) {
	t.Parallel()

	cells := []map[string]any{
		// Qualifies: premium above threshold, turnover above 100 wan.
		{"fund_id": "161116", "fund_nm": "Fund A", "price": "1.234", "discount_rt": "6.20%", "amount": 150.0, "volume": 450.0, "apply_status": "开放申购"},
		// Premium too low.
		{"fund_id": "161117", "fund_nm": "Fund B", "price": "1.100", "discount_rt": "3.00%", "amount": 99999.0, "volume": 99999.0},
		// Illiquid on both axes.
		{"fund_id": "161118", "fund_nm": "Fund C", "price": "1.500", "discount_rt": "9.00%", "amount": 10.0, "volume": 10.0},
		// Sentinel premium: skipped entirely.
		{"fund_id": "161119", "fund_nm": "Fund D", "price": "1.500", "discount_rt": "-"},
	}

	rows := filterLOF(cells, "Stock LOF", fundCfg())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %+v", len(rows), rows)
	}
	row := rows[0]
	if row["fund_id"] != "161116" || row["fund_type"] != "Stock LOF" {
		t.Fatalf("wrong row kept: %+v", row)
	}
	if row["premium_rate"] != 6.2 {
		t.Fatalf("percent string not parsed: %v", row["premium_rate"])
	}
}

func TestFilterLOFDefaultsApplyStatus(t *testing.T) {
	t.Parallel()

	cells := []map[string]any{
		{"fund_id": "1", "fund_nm": "x", "price": 1.0, "discount_rt": 8.0, "amount": 5000.0, "volume": 5000.0},
	}
	rows := filterLOF(cells, "Index LOF", fundCfg())
	if len(rows) != 1 || rows[0]["apply_status"] != "-" {
		t.Fatalf("missing status should default to '-': %+v", rows)
	}
}

func TestJisiluLOFCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[
			{"id":"161116","cell":{"fund_id":"161116","fund_nm":"Fund A","price":"1.234","discount_rt":"6.20%","amount":150.0,"volume":450.0}},
			{"id":"161117","cell":{"fund_id":"161117","fund_nm":"Fund B","price":"1.100","discount_rt":"1.00%","amount":150.0,"volume":450.0}}
		]}`))
	}))
	defer srv.Close()

	coll := NewJisiluLOF(fundCfg(), nil, discardLogger())
	coll.stockURL = srv.URL
	coll.indexURL = srv.URL

	datasets, err := coll.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(datasets) != 1 || datasets[0].Table != "lof_funds" {
		t.Fatalf("unexpected datasets: %+v", datasets)
	}
	// Both lists hit the same stub, each contributes the one qualifying fund.
	if len(datasets[0].Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(datasets[0].Rows))
	}
	if datasets[0].Rows[0]["fund_type"] != "Stock LOF" || datasets[0].Rows[1]["fund_type"] != "Index LOF" {
		t.Fatalf("fund types wrong: %+v", datasets[0].Rows)
	}
}

func TestFilterQDII(t *testing.T) {
	t.Parallel()

	cells := []map[string]any{
		// Qualifies on realtime premium even though T-1 is below threshold.
		{"fund_id": "160416", "fund_nm": "Oil Fund", "price": "1.10", "discount_rt": "4.00%", "discount_rt2": "7.50%",
			"amount": 5000.0, "volume": 5000.0, "index_nm": "Crude", "apply_status": "开放申购", "estimate_value": "1.02", "estimate_value2": "buy"},
		// ETF name: skipped.
		{"fund_id": "513100", "fund_nm": "Nasdaq ETF", "discount_rt": "9.00%", "amount": 5000.0, "volume": 5000.0},
		// Suspended subscription: skipped.
		{"fund_id": "160417", "fund_nm": "Gold Fund", "discount_rt": "9.00%", "amount": 5000.0, "volume": 5000.0, "apply_status": "暂停申购"},
	}

	rows := filterQDII(cells, "Commodities", fundCfg())
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %+v", len(rows), rows)
	}
	row := rows[0]
	if row["fund_id"] != "160416" || row["market_type"] != "Commodities" {
		t.Fatalf("wrong row: %+v", row)
	}
	if row["estimate_value"] != 1.02 {
		t.Fatalf("estimate_value not parsed: %v", row["estimate_value"])
	}
	if row["realtime_estimate_value"] != nil {
		t.Fatalf("buy sentinel should store nil, got %v", row["realtime_estimate_value"])
	}
}

func TestFilterAStock(t *testing.T) {
	t.Parallel()

	cells := []map[string]any{
		{"stock_id": "600001", "stock_nm": "Cheap", "price": "9.80", "choose_price": "10.20", "type_cd": "cash", "descr": "below cash option"},
		{"stock_id": "600002", "stock_nm": "Fair", "price": "10.20", "choose_price": "10.20"},
		{"stock_id": "600003", "stock_nm": "NoPrice", "price": "-", "choose_price": "10.20"},
	}

	rows := filterAStock(cells)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["stock_id"] != "600001" || rows[0]["price"] != 9.8 {
		t.Fatalf("wrong row: %+v", rows[0])
	}
}

func TestAsFloatSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"6.20%", 6.2, true},
		{"1,234.5", 1234.5, true},
		{"-", 0, false},
		{"buy", 0, false},
		{"", 0, false},
		{3.14, 3.14, true},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := asFloat(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("asFloat(%v) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
