package collectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const bocRatesHTML = `<html><body>
<table><tr><td>navigation junk</td></tr></table>
<table>
<tr><th>货币名称</th><th>现汇买入价</th><th>现钞买入价</th><th>现汇卖出价</th><th>现钞卖出价</th><th>发布时间</th></tr>
<tr><td>美元</td><td>710.55</td><td>704.72</td><td>713.56</td><td>713.56</td><td>2026-02-01</td></tr>
<tr><td>港币</td><td>91.00</td><td>90.20</td><td>91.40</td><td>91.40</td><td>2026-02-01</td></tr>
<tr><td>日元</td><td>4.71</td><td>4.56</td><td>4.74</td><td>4.74</td><td>2026-02-01</td></tr>
<tr><td>欧元</td><td>768.12</td><td>744.28</td><td>773.78</td><td>773.78</td><td>2026-02-01</td></tr>
</table>
</body></html>`

func TestExtractBOCRates(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bocRatesHTML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	rows, err := extractBOCRates(doc)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	// HKD is not a target currency.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}

	usd := rows[0]
	if usd["currency"] != "美元" || usd["bank"] != "中国银行" {
		t.Fatalf("wrong first row: %+v", usd)
	}
	if usd["spot_buy"] != 710.55 || usd["cash_buy"] != 704.72 || usd["spot_sell"] != 713.56 {
		t.Fatalf("usd rates wrong: %+v", usd)
	}
}

func TestExtractBOCRatesNoTable(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if _, err := extractBOCRates(doc); err == nil {
		t.Fatal("expected error when rate table is missing")
	}
}

func TestBOCForexCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bocRatesHTML))
	}))
	defer srv.Close()

	coll := NewBOCForex(nil, discardLogger())
	coll.url = srv.URL

	datasets, err := coll.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if datasets[0].Table != "forex_rates" || len(datasets[0].Rows) != 3 {
		t.Fatalf("unexpected datasets: %+v", datasets)
	}
}
