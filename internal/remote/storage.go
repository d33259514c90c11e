package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"centrovision-data/internal/store"

	"go.uber.org/zap"
)

type signedURLCacheEntry struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// signedURLMargin is how long before expiry a cached signed URL stops being handed out.
const signedURLMargin = time.Minute

// SignedURL issues a time-limited download URL for an object in bucket.
// Issued URLs are cached until shortly before they expire.
func (c *Client) SignedURL(ctx context.Context, bucket, objectPath string) (string, time.Time, error) {
	objectPath = strings.TrimLeft(objectPath, "/")
	cacheKey := "signed-url:" + bucket + "/" + objectPath

	if raw, err := c.kv.Get(ctx, cacheKey); err == nil {
		var entry signedURLCacheEntry
		if json.Unmarshal([]byte(raw), &entry) == nil && time.Until(entry.ExpiresAt) > signedURLMargin {
			return entry.URL, entry.ExpiresAt, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		c.logger.Warn("Signed URL cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	req, apiErr := c.request(ctx)
	var result struct {
		SignedURL string `json:"signedURL"`
	}
	req.SetBody(map[string]any{"expiresIn": int(c.signedTTL.Seconds())}).SetResult(&result)
	resp, err := req.Post("/storage/v1/object/sign/" + url.PathEscape(bucket) + "/" + escapeObjectPath(objectPath))
	if err := c.check("sign "+bucket, resp, err, apiErr); err != nil {
		return "", time.Time{}, err
	}

	full := result.SignedURL
	if strings.HasPrefix(full, "/") {
		full = c.baseURL + "/storage/v1" + full
	}
	expires := time.Now().Add(c.signedTTL)

	cacheTTL := c.signedTTL - signedURLMargin
	if b, err := json.Marshal(signedURLCacheEntry{URL: full, ExpiresAt: expires}); err == nil && cacheTTL > 0 {
		if err := c.kv.Set(ctx, cacheKey, string(b), cacheTTL); err != nil {
			c.logger.Warn("Signed URL cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return full, expires, nil
}

func escapeObjectPath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
