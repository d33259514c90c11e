// Package remote is the Remote Data Client: a thin wrapper around the hosted
// backend's REST (table rows and RPC), auth and storage APIs.
package remote

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"centrovision-data/internal/config"
	"centrovision-data/internal/store"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the hosted backend. It never retries: a failed request is
// reported to the caller as-is.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	anonKey    string
	signedTTL  time.Duration
	kv         store.KV
	logger     *zap.Logger
}

func NewClient(cfg config.RemoteConfig, kv store.KV, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	baseURL := strings.TrimRight(cfg.URL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", cfg.AnonKey)

	return &Client{
		httpClient: client,
		baseURL:    baseURL,
		anonKey:    cfg.AnonKey,
		signedTTL:  ttl,
		kv:         kv,
		logger:     logger,
	}
}

type tokenKey struct{}

// WithAccessToken attaches the caller's session token; requests made with the
// returned context run under the caller's row-level-security scope.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func AccessToken(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey{}).(string)
	return s
}

func (c *Client) request(ctx context.Context) (*resty.Request, *APIError) {
	apiErr := &APIError{}
	token := AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	req := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req, apiErr
}

// Insert adds rows to table and decodes the stored representation into out
// (may be nil).
func (c *Client) Insert(ctx context.Context, table string, rows any, out any) error {
	req, apiErr := c.request(ctx)
	req.SetBody(rows).SetHeader("Prefer", "return=representation")
	resp, err := req.Post("/rest/v1/" + url.PathEscape(table))
	if err := c.check("insert "+table, resp, err, apiErr); err != nil {
		return err
	}
	return decodeInto(resp.Body(), out)
}

// Upsert inserts rows, merging on the onConflict columns.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, rows any, out any) error {
	req, apiErr := c.request(ctx)
	req.SetBody(rows).
		SetQueryParam("on_conflict", onConflict).
		SetHeader("Prefer", "resolution=merge-duplicates,return=representation")
	resp, err := req.Post("/rest/v1/" + url.PathEscape(table))
	if err := c.check("upsert "+table, resp, err, apiErr); err != nil {
		return err
	}
	return decodeInto(resp.Body(), out)
}

// RPC calls a database function exposed by the hosted backend.
func (c *Client) RPC(ctx context.Context, fn string, args any, out any) error {
	req, apiErr := c.request(ctx)
	if args == nil {
		args = map[string]any{}
	}
	req.SetBody(args)
	resp, err := req.Post("/rest/v1/rpc/" + url.PathEscape(fn))
	if err := c.check("rpc "+fn, resp, err, apiErr); err != nil {
		return err
	}
	return decodeInto(resp.Body(), out)
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
