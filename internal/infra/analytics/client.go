package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vietddude/tracker/internal/core/domain"
	"github.com/vietddude/tracker/internal/tracking/metrics"
)

// Config holds analytics API connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPClient implements Client against the analytics REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates an analytics API client. Every request is bounded by
// the configured timeout so a hung upstream call cannot stall a scan cycle.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetBalance returns the current portfolio of a wallet.
func (c *HTTPClient) GetBalance(ctx context.Context, address string) (*Balance, error) {
	var out Balance
	if err := c.get(ctx, "balance", "/v1/balance/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecentTransfers returns recent transfers sent or received by a wallet,
// newest first.
func (c *HTTPClient) GetRecentTransfers(ctx context.Context, q TransfersQuery) ([]Transfer, error) {
	params := url.Values{}
	if q.Sender != "" {
		params.Set("senderAddress", q.Sender)
	}
	if q.Receiver != "" {
		params.Set("receiverAddress", q.Receiver)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out struct {
		Transfers []Transfer `json:"transfers"`
	}
	if err := c.get(ctx, "recent_transfers", "/v1/transfers", params, &out); err != nil {
		return nil, err
	}
	return out.Transfers, nil
}

// GetTransfersForToken returns transfers of one token inside a time window,
// filtered upstream at the query's minimum amount.
func (c *HTTPClient) GetTransfersForToken(ctx context.Context, q TokenTransfersQuery) ([]Transfer, error) {
	params := url.Values{}
	params.Set("tokenId", q.TokenID)
	params.Set("minAmount", strconv.FormatFloat(q.MinAmount, 'f', -1, 64))
	params.Set("timeStart", strconv.FormatInt(q.TimeStart, 10))
	params.Set("timeEnd", strconv.FormatInt(q.TimeEnd, 10))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out struct {
		Transfers []Transfer `json:"transfers"`
	}
	if err := c.get(ctx, "token_transfers", "/v1/token-transfers", params, &out); err != nil {
		return nil, err
	}
	return out.Transfers, nil
}

// GetTopHolders returns the largest holders of a token.
func (c *HTTPClient) GetTopHolders(ctx context.Context, tokenID string) ([]Holder, error) {
	var out struct {
		Data []Holder `json:"data"`
	}
	if err := c.get(ctx, "top_holders", "/v1/token/"+url.PathEscape(tokenID)+"/holders", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) get(ctx context.Context, op, path string, params url.Values, out any) error {
	start := time.Now()
	metrics.UpstreamCalls.WithLabelValues(op).Inc()

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(op).Inc()
		return &domain.UpstreamError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(op).Inc()
		return &domain.UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	metrics.UpstreamLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.UpstreamErrors.WithLabelValues(op).Inc()
		return &domain.UpstreamError{
			Op:  op,
			Err: fmt.Errorf("rate limited (429), retry after: %s", resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(op).Inc()
		return &domain.UpstreamError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamErrors.WithLabelValues(op).Inc()
		return &domain.UpstreamError{Op: op, Err: fmt.Errorf("http %d: %s", resp.StatusCode, string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		metrics.UpstreamErrors.WithLabelValues(op).Inc()
		return &domain.UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
