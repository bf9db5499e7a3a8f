// Package api holds the plumbing shared by the upstream API clients:
// a timeout-bounded HTTP client, CUE schema validation of responses,
// an optional sqlite response cache and a single condensed error type.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/anaconda/packaging-utils/internal/cache"
	"github.com/anaconda/packaging-utils/internal/jsoncanon"
)

// Client performs schema-validated JSON GETs against upstream APIs.
type Client struct {
	http  *http.Client
	cache *cache.Cache
	ttl   time.Duration
}

// NewClient returns a Client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// WithCache attaches a response cache. Bodies fetched within ttl are
// served from the cache without a network round trip.
func (c *Client) WithCache(store *cache.Cache, ttl time.Duration) *Client {
	c.cache = store
	c.ttl = ttl
	return c
}

// GetJSON GETs url, enforces the HTTP and content-type contract,
// validates the body against schema and returns the raw bytes together
// with the generically decoded JSON.
func (c *Client) GetJSON(ctx context.Context, url string, schema *Schema) ([]byte, map[string]any, error) {
	if body := c.cachedBody(ctx, url); body != nil {
		decoded, err := decodeAndValidate(body, schema)
		if err == nil {
			slog.Debug("cache hit", "url", url)
			return body, decoded, nil
		}
		// A stale schema or corrupt row should not break the call.
		slog.Warn("cached response failed validation, refetching", "url", url, "error", err)
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	decoded, err := decodeAndValidate(body, schema)
	if err != nil {
		return nil, nil, err
	}

	c.storeBody(ctx, url, body, decoded)
	return body, decoded, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	slog.Debug("performing GET request", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, WrapError(ErrRequestFailed, "failed to build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, WrapError(ErrRequestFailed, "GET request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewError(ErrBadStatus, fmt.Sprintf("API returned a %d HTTP status code", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, NewError(ErrBadContentType, "API returned with no content-type header")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return nil, NewError(ErrBadContentType, fmt.Sprintf("API returned a non-JSON content-type: %s", contentType))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(ErrRequestFailed, "failed to read response body", err)
	}
	return body, nil
}

func decodeAndValidate(body []byte, schema *Schema) (map[string]any, error) {
	if err := schema.Validate(body); err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, WrapError(ErrBadJSON, "failed to parse JSON response", err)
	}
	return decoded, nil
}

func (c *Client) cachedBody(ctx context.Context, url string) []byte {
	if c.cache == nil {
		return nil
	}
	entry, err := c.cache.Get(ctx, url, c.ttl)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("cache read failed", "url", url, "error", err)
		}
		return nil
	}
	return entry.Body
}

func (c *Client) storeBody(ctx context.Context, url string, body []byte, decoded map[string]any) {
	if c.cache == nil {
		return
	}
	digest, err := jsoncanon.Digest(decoded)
	if err != nil {
		slog.Warn("skipping cache store, digest failed", "url", url, "error", err)
		return
	}
	if err := c.cache.Put(ctx, url, body, digest); err != nil {
		slog.Warn("cache store failed", "url", url, "error", err)
	}
}
