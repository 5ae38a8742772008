package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ClientConfig carries the venue credentials and endpoints spec.md §6
// requires: OKX_API_KEY, OKX_SECRET, OKX_PASSPHRASE, plus the trading pair.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Secret     string
	Passphrase string
	Symbol     string // e.g. "AVAX-USDT"
	InstType   string // default "SPOT"
}

// Client fetches closed-order history from the centralized exchange.
// Requests carry the raw API key and passphrase headers only; no HMAC
// request signature is computed. There is no rate-limit handling: a
// throttled or failed response is returned as an error, with no retry or
// backoff.
type Client struct {
	cfg ClientConfig
	http *http.Client
}

// NewClient builds a CEX venue client backed by a single shared HTTP
// client, the Go equivalent of the original's SessionFactory pattern of
// reusing one session across requests instead of opening one per call.
func NewClient(cfg ClientConfig) *Client {
	if cfg.InstType == "" {
		cfg.InstType = "SPOT"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type okxEnvelope struct {
	Code string        `json:"code"`
	Msg  string        `json:"msg"`
	Data []okxOrderRow `json:"data"`
}

type okxOrderRow struct {
	OrdID      string `json:"ordId"`
	AvgPx      string `json:"avgPx"`
	AccFillSz  string `json:"accFillSz"`
	FillPx     string `json:"fillPx"`
	Fee        string `json:"fee"`
	FeeCcy     string `json:"feeCcy"`
	State      string `json:"state"`
	FillTime   string `json:"fillTime"`
}

// FetchClosedOrders fetches closed orders for symbol since sinceEpochMs,
// implementing spec.md §4.2's "FetchClosedOrders(symbol, since_epoch_ms)".
// The caller is responsible for advancing sinceEpochMs monotonically past
// the largest observed fill_time between calls (spec.md §4.2).
func (c *Client) FetchClosedOrders(ctx context.Context, symbol string, sinceEpochMs int64) ([]FillRecord, error) {
	q := url.Values{}
	q.Set("instType", c.cfg.InstType)
	q.Set("instId", symbol)
	if sinceEpochMs > 0 {
		q.Set("since", strconv.FormatInt(sinceEpochMs, 10))
	}

	reqURL := fmt.Sprintf("%s/api/v5/trade/orders-history?%s", c.cfg.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cex: build request: %w", err)
	}
	c.sign(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cex: fetch closed orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("cex: transient error, status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cex: unexpected status %d", resp.StatusCode)
	}

	var env okxEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("cex: decode response: %w", err)
	}

	records := make([]FillRecord, 0, len(env.Data))
	for _, row := range env.Data {
		rec, err := row.toFillRecord()
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (row okxOrderRow) toFillRecord() (FillRecord, error) {
	avg, _ := decimal.NewFromString(row.AvgPx)
	qty, _ := decimal.NewFromString(row.AccFillSz)
	feeAmt, _ := decimal.NewFromString(row.Fee)
	feeAmt = feeAmt.Abs() // OKX reports fees as negative values

	fillTimeMs, err := strconv.ParseInt(row.FillTime, 10, 64)
	if err != nil {
		fillTimeMs = 0
	}

	return FillRecord{
		OrderID:          row.OrdID,
		AverageFillPrice: avg,
		Cost:             avg.Mul(qty),
		FilledQuantity:   qty,
		Fee: Fee{
			Amount: feeAmt,
			Token:  row.FeeCcy,
		},
		Status:     row.State,
		FillTimeMs: fillTimeMs,
	}, nil
}

// sign attaches the OKX-style auth headers. Left intentionally minimal:
// the HMAC request signature itself is not implemented in this revision.
func (c *Client) sign(req *http.Request) {
	req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	req.Header.Set("Accept", "application/json")
}
