package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// TokenHeader is the request header carrying the opaque auth token, both
	// inbound from callers and outbound to the core service.
	TokenHeader = "X-Auth-Token"

	tokenUserPath = "/api/tokens/user"
)

// Provider exchanges an opaque token for a user record. Implemented by
// Client; faked in tests.
type Provider interface {
	Lookup(ctx context.Context, token string) (*UserRecord, error)
}

// Client talks to the core identity service over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// NewClient constructs a client for the core service at url:port.
func NewClient(url string, port int, opts ...ClientOption) *Client {
	base := strings.TrimRight(url, "/")
	if port > 0 {
		base = fmt.Sprintf("%s:%d", base, port)
	}
	c := &Client{
		baseURL: base,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup forwards the token verbatim to the core service. The token travels
// both as a header and as a body field, matching the core contract.
func (c *Client) Lookup(ctx context.Context, token string) (*UserRecord, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenUserPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}
	if !envelope.Success {
		return nil, ErrAccessDenied
	}

	user, err := transformUser(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user payload: %v", ErrUpstreamUnavailable, err)
	}
	return user, nil
}
