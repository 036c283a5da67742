package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	jisiluUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// jisiluRows is the common envelope of Jisilu list endpoints.
type jisiluRows struct {
	Rows []struct {
		Cell map[string]any `json:"cell"`
	} `json:"rows"`
}

func newJisiluClient(referer string) *resty.Client {
	return resty.New().
		SetTimeout(20 * time.Second).
		SetHeaders(map[string]string{
			"User-Agent":       jisiluUserAgent,
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          referer,
		})
}

// jisiluCacheBuster mirrors the site's own anti-cache query parameter.
func jisiluCacheBuster() string {
	return fmt.Sprintf("LST___t=%d", time.Now().UnixMilli())
}

func jisiluPost(ctx context.Context, client *resty.Client, url string) ([]map[string]any, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParam("___jsl", jisiluCacheBuster()).
		SetFormData(map[string]string{"rp": "500", "page": "1"}).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	return decodeJisilu(resp.StatusCode(), resp.Body(), url)
}

func jisiluGet(ctx context.Context, client *resty.Client, url string, params map[string]string) ([]map[string]any, error) {
	req := client.R().
		SetContext(ctx).
		SetQueryParam("___jsl", jisiluCacheBuster())
	for k, v := range params {
		req.SetQueryParam(k, v)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return decodeJisilu(resp.StatusCode(), resp.Body(), url)
}

func decodeJisilu(status int, body []byte, url string) ([]map[string]any, error) {
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, status)
	}
	var envelope jisiluRows
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	cells := make([]map[string]any, 0, len(envelope.Rows))
	for _, row := range envelope.Rows {
		if row.Cell != nil {
			cells = append(cells, row.Cell)
		}
	}
	return cells, nil
}
