// Package kis is a client for the Korea Investment & Securities OpenAPI.
// It covers token issuance, quote lookups and daily bar history over REST,
// plus a realtime execution-price subscription over websocket. The core
// screening packages never import it; data reaches them through datasets
// or the bar store.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/skpark33/bnf-stock/internal/domain"
)

// Endpoints for the real and the paper-trading environments.
const (
	RealBaseURL = "https://openapi.koreainvestment.com:9443"
	MockBaseURL = "https://openapivts.koreainvestment.com:29443"
)

// Transaction IDs for the quotation endpoints.
const (
	trIDCurrentPrice = "FHKST01010100"
	trIDDailyPrice   = "FHKST01010400"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// tokens are refreshed this long before their reported expiry
	tokenExpiryMargin = time.Minute
)

// Client calls the KIS REST API with retries and exponential backoff.
type Client struct {
	baseURL     string
	appKey      string
	appSecret   string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new KIS API client. baseURL is RealBaseURL or
// MockBaseURL (or a test server).
func NewClient(baseURL, appKey, appSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		appKey:      appKey,
		appSecret:   appSecret,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is a KIS API-level failure (rt_cd other than "0").
type apiError struct {
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("KIS error %s: %s", e.Code, e.Message)
}

// Authorize issues an access token and caches it. Subsequent API calls
// refresh the token automatically shortly before it expires.
func (c *Client) Authorize(ctx context.Context) error {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.refreshTokenLocked(ctx)
}

func (c *Client) refreshTokenLocked(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	})
	if err != nil {
		return fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Msg         string `json:"msg1"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("unmarshal token response: %w", err)
	}
	if result.AccessToken == "" {
		return fmt.Errorf("no access token in response: %s", result.Msg)
	}

	c.accessToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	return nil
}

// token returns a valid access token, refreshing it when needed.
func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken == "" || time.Now().After(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		if err := c.refreshTokenLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.accessToken, nil
}

// ApprovalKey issues the websocket approval key used by the realtime client.
func (c *Client) ApprovalKey(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"secretkey":  c.appSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal approval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/Approval", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create approval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("approval request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read approval response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("approval request status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		ApprovalKey string `json:"approval_key"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal approval response: %w", err)
	}
	if result.ApprovalKey == "" {
		return "", fmt.Errorf("no approval key in response")
	}
	return result.ApprovalKey, nil
}

// get performs an authenticated GET with retries and exponential backoff.
// API-level errors (rt_cd != "0") are not retried.
func (c *Client) get(ctx context.Context, path, trID string, query url.Values, result interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("appkey", c.appKey)
		req.Header.Set("appsecret", c.appSecret)
		req.Header.Set("tr_id", trID)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var envelope struct {
			RtCd string `json:"rt_cd"`
			Msg  string `json:"msg1"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			lastErr = fmt.Errorf("unmarshal envelope: %w", err)
			continue
		}
		if envelope.RtCd != "0" {
			return &apiError{Code: envelope.RtCd, Message: envelope.Msg}
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// CurrentPrice retrieves the current quote for a stock code.
// The last traded price lands in Close.
func (c *Client) CurrentPrice(ctx context.Context, code string) (*domain.StockQuote, error) {
	query := url.Values{}
	query.Set("fid_cond_mrkt_div_code", "J")
	query.Set("fid_input_iscd", code)

	var result struct {
		Output struct {
			Price  string `json:"stck_prpr"`
			Open   string `json:"stck_oprc"`
			High   string `json:"stck_hgpr"`
			Low    string `json:"stck_lwpr"`
			Volume string `json:"acml_vol"`
		} `json:"output"`
	}
	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", trIDCurrentPrice, query, &result); err != nil {
		return nil, err
	}

	quote := &domain.StockQuote{Code: code}
	var err error
	if quote.Close, err = parsePrice(result.Output.Price); err != nil {
		return nil, fmt.Errorf("parse current price: %w", err)
	}
	if quote.Open, err = parsePrice(result.Output.Open); err != nil {
		return nil, fmt.Errorf("parse open: %w", err)
	}
	if quote.High, err = parsePrice(result.Output.High); err != nil {
		return nil, fmt.Errorf("parse high: %w", err)
	}
	if quote.Low, err = parsePrice(result.Output.Low); err != nil {
		return nil, fmt.Errorf("parse low: %w", err)
	}
	if quote.Volume, err = parseVolume(result.Output.Volume); err != nil {
		return nil, fmt.Errorf("parse volume: %w", err)
	}
	return quote, nil
}

// DailyBars retrieves recent daily bars for a stock code, oldest first.
// The endpoint returns at most 30 unadjusted daily rows, newest first.
func (c *Client) DailyBars(ctx context.Context, code string) (domain.Series, error) {
	query := url.Values{}
	query.Set("fid_cond_mrkt_div_code", "J")
	query.Set("fid_input_iscd", code)
	query.Set("fid_org_adj_prc", "0")
	query.Set("fid_period_div_code", "D")

	var result struct {
		Output []struct {
			Date   string `json:"stck_bsop_date"`
			Open   string `json:"stck_oprc"`
			High   string `json:"stck_hgpr"`
			Low    string `json:"stck_lwpr"`
			Close  string `json:"stck_clpr"`
			Volume string `json:"acml_vol"`
		} `json:"output"`
	}
	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-price", trIDDailyPrice, query, &result); err != nil {
		return nil, err
	}

	series := make(domain.Series, 0, len(result.Output))
	for i := len(result.Output) - 1; i >= 0; i-- {
		row := result.Output[i]
		bar := domain.Bar{Date: row.Date}
		var err error
		if bar.Open, err = parsePrice(row.Open); err != nil {
			return nil, fmt.Errorf("parse open %s: %w", row.Date, err)
		}
		if bar.High, err = parsePrice(row.High); err != nil {
			return nil, fmt.Errorf("parse high %s: %w", row.Date, err)
		}
		if bar.Low, err = parsePrice(row.Low); err != nil {
			return nil, fmt.Errorf("parse low %s: %w", row.Date, err)
		}
		if bar.Close, err = parsePrice(row.Close); err != nil {
			return nil, fmt.Errorf("parse close %s: %w", row.Date, err)
		}
		if bar.Volume, err = parseVolume(row.Volume); err != nil {
			return nil, fmt.Errorf("parse volume %s: %w", row.Date, err)
		}
		series = append(series, bar)
	}
	return series, nil
}

func parsePrice(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseVolume(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
