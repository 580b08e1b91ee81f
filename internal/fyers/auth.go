package fyers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type tokenResponse struct {
	S           string `json:"s"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

// AuthURL builds the interactive login URL. The operator opens it in a
// browser, logs in, and copies the auth_code from the redirect.
func (c *Client) AuthURL() string {
	q := url.Values{}
	q.Set("client_id", c.creds.AppID)
	q.Set("redirect_uri", c.creds.RedirectURI)
	q.Set("response_type", "code")
	q.Set("state", "intrabot")
	return c.apiBase + "/api/v3/generate-authcode?" + q.Encode()
}

// ExchangeCode swaps an auth code for an access token. The app id hash is
// SHA-256 over "app_id:secret_key" as the v3 validate-authcode endpoint
// requires. There is no retry and no refresh; expiry is handled by the
// operator deleting the stored token file.
func (c *Client) ExchangeCode(ctx context.Context, authCode string) (string, error) {
	sum := sha256.Sum256([]byte(c.creds.AppID + ":" + c.creds.SecretKey))
	payload := map[string]string{
		"grant_type": "authorization_code",
		"appIdHash":  hex.EncodeToString(sum[:]),
		"code":       authCode,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/v3/validate-authcode", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out tokenResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.S != "ok" || out.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrAuth, out.Message)
	}
	c.token = out.AccessToken
	return out.AccessToken, nil
}
