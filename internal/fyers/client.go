// Package fyers is a minimal REST client for the Fyers v3 brokerage API:
// auth-code exchange, quotes, historical candles, and order placement.
// Responses are decoded into typed structs and checked for the API-level
// "s" status before any field is trusted.
package fyers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultAPIBase  = "https://api-t1.fyers.in"
	defaultDataBase = "https://api-t1.fyers.in"
)

var (
	// ErrAuth marks authentication failures (missing/invalid token or a token
	// exchange that returned no access token). Fatal to startup.
	ErrAuth = errors.New("fyers: authentication failed")
	// ErrBadResponse marks a response the API flagged as not ok or that did
	// not decode into the expected shape. Treated as "no data this tick".
	ErrBadResponse = errors.New("fyers: bad response")
)

// Credentials carries the static app registration used for login and signing.
type Credentials struct {
	AppID       string
	SecretKey   string
	RedirectURI string
}

// Client issues authenticated requests against the Fyers REST API.
type Client struct {
	creds   Credentials
	token   string
	apiBase string
	http    *http.Client
	log     zerolog.Logger
}

// Option configures optional client parameters.
type Option func(*Client)

// WithBaseURL overrides the API base, used by tests to point at a stub server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiBase = base
		}
	}
}

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient constructs a client for the given app credentials and access token.
// The token may be empty for the pre-auth calls (AuthURL, ExchangeCode).
func NewClient(creds Credentials, token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		creds:   creds,
		token:   token,
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the access token used on subsequent authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

// authHeader is the Fyers scheme: "<app_id>:<access_token>".
func (c *Client) authHeader() string {
	return c.creds.AppID + ":" + c.token
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: http %d: %s", ErrAuth, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrBadResponse, err)
	}
	return nil
}
