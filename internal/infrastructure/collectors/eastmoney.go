package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultEastmoneyURL = "https://datacenter-web.eastmoney.com/api/data/v1/get"

func newEastmoneyClient() *resty.Client {
	return resty.New().
		SetTimeout(20 * time.Second).
		SetHeaders(map[string]string{
			"User-Agent": jisiluUserAgent,
			"Referer":    "https://data.eastmoney.com/",
		})
}

// eastmoneyReport fetches one page of a datacenter report and returns the
// raw items.
func eastmoneyReport(ctx context.Context, client *resty.Client, url, reportName string, pageSize int) ([]map[string]any, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"reportName":  reportName,
			"columns":     "ALL",
			"sortColumns": "PUBLIC_START_DATE",
			"sortTypes":   "-1",
			"pageSize":    strconv.Itoa(pageSize),
			"pageNumber":  "1",
			"source":      "WEB",
			"client":      "WEB",
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", reportName, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", reportName, resp.StatusCode())
	}

	var envelope struct {
		Result struct {
			Data []map[string]any `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("decode %s: %w", reportName, err)
	}
	return envelope.Result.Data, nil
}
