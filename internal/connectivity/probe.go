package connectivity

import (
	"context"

	"github.com/go-resty/resty/v2"
)

// HTTPProber checks reachability of the hosted backend's auth health endpoint.
type HTTPProber struct {
	client *resty.Client
	path   string
}

func NewHTTPProber(baseURL, anonKey string) *HTTPProber {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("apikey", anonKey)
	return &HTTPProber{client: client, path: "/auth/v1/health"}
}

func (p *HTTPProber) Reachable(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Get(p.path)
	if err != nil {
		return false
	}
	return resp.StatusCode() < 500
}
