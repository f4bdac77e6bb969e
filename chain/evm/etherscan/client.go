// Package etherscan queries an Etherscan compatible block explorer API for the verification
// status of deployed contracts.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/ourzora/drops-deployer/pkg/logger"
)

const (
	requestTimeout = 10 * time.Second

	defaultPollAttempts = 10
	defaultPollDelay    = 5 * time.Second
)

// ErrNotVerified is returned by WaitVerified when the explorer never reports the contract as
// verified.
var ErrNotVerified = errors.New("contract source code not verified")

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Verification is the verification record stored alongside a deployed address.
type Verification struct {
	Verified bool   `json:"verified"`
	Explorer string `json:"explorer"`
	Address  string `json:"address"`
	Attempts uint   `json:"attempts,omitempty"`
}

// Client is a minimal Etherscan API client.
type Client struct {
	lggr       logger.Logger
	endpoint   string
	apiKey     string
	httpClient *http.Client

	pollAttempts uint
	pollDelay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests. Defaults to http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPolling sets how many times and how often WaitVerified polls the explorer.
func WithPolling(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.pollAttempts = attempts
		c.pollDelay = delay
	}
}

// NewClient creates a client for the explorer API at endpoint, e.g. https://api.etherscan.io/api.
func NewClient(lggr logger.Logger, endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		lggr:         lggr,
		endpoint:     endpoint,
		apiKey:       apiKey,
		httpClient:   http.DefaultClient,
		pollAttempts: defaultPollAttempts,
		pollDelay:    defaultPollDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the explorer API endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// IsVerified reports whether the explorer has verified source code for the contract at address.
func (c *Client) IsVerified(ctx context.Context, address string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url errors embed the query string which carries the api key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return false, fmt.Errorf("explorer request failed: %w", uerr.Err)
		}

		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("explorer returned HTTP %d", resp.StatusCode)
	}

	var data apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return false, fmt.Errorf("failed to decode explorer response: %w", err)
	}

	if data.Status == "1" {
		return true, nil
	}

	var result string
	_ = json.Unmarshal(data.Result, &result)
	if strings.Contains(strings.ToLower(result), "not verified") {
		return false, nil
	}

	return false, fmt.Errorf("explorer error: %s: %s", data.Message, result)
}

// WaitVerified polls the explorer until the contract at address is verified or the attempts are
// exhausted.
func (c *Client) WaitVerified(ctx context.Context, address string) (Verification, error) {
	var attempts uint

	err := retry.Do(func() error {
		attempts++

		verified, err := c.IsVerified(ctx, address)
		if err != nil {
			return err
		}
		if !verified {
			return ErrNotVerified
		}

		return nil
	},
		retry.Context(ctx),
		retry.Attempts(c.pollAttempts),
		retry.Delay(c.pollDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			c.lggr.Debugw("Contract not yet verified",
				"address", address, "attempt", attempt+1, "maxAttempts", c.pollAttempts, "reason", err,
			)
		}),
	)
	if err != nil {
		return Verification{Explorer: c.endpoint, Address: address, Attempts: attempts},
			fmt.Errorf("verification of %s not confirmed by %s after %d attempts: %w", address, c.endpoint, attempts, err)
	}

	return Verification{Verified: true, Explorer: c.endpoint, Address: address, Attempts: attempts}, nil
}
