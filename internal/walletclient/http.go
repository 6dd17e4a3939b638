package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures HTTPWalletClient.
type HTTPConfig struct {
	BaseURL         string
	TimeoutSeconds  int
	RateLimitPerSec float64
	RateLimitBurst  int
}

// HTTPWalletClient is a JSON-over-HTTP WalletClient implementation,
// rate-limited outbound (golang.org/x/time/rate), since the wallet service is a
// shared resource the dealer must not hammer.
type HTTPWalletClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

func NewHTTPWalletClient(cfg HTTPConfig) *HTTPWalletClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := cfg.RateLimitPerSec
	if limit <= 0 {
		limit = 5
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}
	return &HTTPWalletClient{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(limit), burst),
	}
}

func (c *HTTPWalletClient) GetUsdWalletBalance(ctx context.Context) (float64, error) {
	var out struct {
		UsdBalance float64 `json:"usd_balance"`
	}
	if err := c.getJSON(ctx, "/balance/usd", &out); err != nil {
		return 0, err
	}
	return out.UsdBalance, nil
}

func (c *HTTPWalletClient) GetBtcWalletBalance(ctx context.Context) (float64, error) {
	var out struct {
		BtcBalance float64 `json:"btc_balance"`
	}
	if err := c.getJSON(ctx, "/balance/btc", &out); err != nil {
		return 0, err
	}
	return out.BtcBalance, nil
}

func (c *HTTPWalletClient) DepositAddress(ctx context.Context) (string, error) {
	var out struct {
		Address string `json:"address"`
	}
	if err := c.getJSON(ctx, "/deposit-address", &out); err != nil {
		return "", err
	}
	return out.Address, nil
}

func (c *HTTPWalletClient) PayOnChain(ctx context.Context, address string, sizeSats int64, memo string) error {
	body, err := json.Marshal(struct {
		Address  string `json:"address"`
		SizeSats int64  `json:"size_sats"`
		Memo     string `json:"memo"`
	}{address, sizeSats, memo})
	if err != nil {
		return fmt.Errorf("walletclient: marshal pay request: %w", err)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("walletclient: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pay", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("walletclient: build pay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("walletclient: pay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("walletclient: pay returned HTTP %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func (c *HTTPWalletClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("walletclient: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("walletclient: build request for %s: %w", path, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("walletclient: request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("walletclient: %s returned HTTP %d: %s", path, resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
