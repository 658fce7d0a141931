// Package kv is a client for the Cloudflare Workers KV REST API,
// narrowed to the single-key value operations the asset pipeline needs.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// DefaultEndpoint is the production Cloudflare API base URL.
const DefaultEndpoint = "https://api.cloudflare.com/client/v4"

// MinTTLSeconds is the shortest expiration TTL the store accepts.
const MinTTLSeconds = 60

// Client issues value operations against one KV namespace. All requests
// carry a bearer token; timeouts and retries are the transport's
// responsibility, not the client's.
type Client struct {
	endpoint    string
	accountID   string
	namespaceID string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API base URL, mainly for tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the bearer-token http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the given account and namespace. The
// token is attached to every request as an Authorization bearer header
// via an oauth2 static token source.
func NewClient(ctx context.Context, accountID, namespaceID, token string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	c := &Client{
		endpoint:    DefaultEndpoint,
		accountID:   accountID,
		namespaceID: namespaceID,
		httpClient:  oauth2.NewClient(ctx, src),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) valueURL(key string) string {
	return fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces/%s/values/%s",
		c.endpoint, c.accountID, c.namespaceID, url.PathEscape(key))
}

// Get fetches the value stored under key. A non-2xx response is a
// *NotFoundError carrying the status.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.valueURL(key), nil)
	if err != nil {
		return nil, &TransportError{Op: "get", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "get", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "get", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NotFoundError{Key: key, Status: resp.StatusCode}
	}
	return body, nil
}

// writeResponse is the envelope the API wraps write results in.
type writeResponse struct {
	Success  bool              `json:"success"`
	Errors   []json.RawMessage `json:"errors"`
	Messages []json.RawMessage `json:"messages"`
}

// Put stores value under key. ttlSeconds, when non-zero, asks the store
// to evict the entry that many seconds in the future; values below
// MinTTLSeconds are rejected with ErrTTLTooShort before any network call.
func (c *Client) Put(ctx context.Context, key string, value []byte, ttlSeconds uint64) error {
	u := c.valueURL(key)
	if ttlSeconds != 0 {
		if ttlSeconds < MinTTLSeconds {
			return ErrTTLTooShort
		}
		u = fmt.Sprintf("%s?expiration_ttl=%d", u, ttlSeconds)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(value))
	if err != nil {
		return &TransportError{Op: "put", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "put", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "put", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}

	var wr writeResponse
	if err = json.Unmarshal(body, &wr); err != nil {
		return &TransportError{Op: "put", Err: fmt.Errorf("decoding response '%s': %w", body, err)}
	}
	if !wr.Success {
		return &RemoteError{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("writing key '%s': errors:%s messages:%s", key, wr.Errors, wr.Messages),
		}
	}
	return nil
}

// Delete removes the value stored under key.
func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.valueURL(key), nil)
	if err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
