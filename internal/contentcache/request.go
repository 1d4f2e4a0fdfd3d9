package contentcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Source tells whether a response came from the cache or the network.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Fetcher performs one HTTP exchange and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, method, url string, body []byte) ([]byte, error)
}

type RequestConfig struct {
	// Method defaults to GET.
	Method string
	Body   []byte
	// TTL overrides the resource TTL when positive.
	TTL time.Duration
}

type Response struct {
	Body   []byte
	Source Source
}

// CachedRequest serves GET requests from the cache when possible. Misses are
// fetched once even when several callers ask for the same URL at the same
// time, and only successful bodies are stored. Other methods always go to the
// network. Fetch errors are returned unchanged.
func (c *Cache) CachedRequest(ctx context.Context, fetcher Fetcher, url string, cfg RequestConfig) (*Response, error) {
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}

	if method != http.MethodGet {
		body, err := fetcher.Fetch(ctx, method, url, cfg.Body)
		if err != nil {
			return nil, err
		}
		return &Response{Body: body, Source: SourceNetwork}, nil
	}

	if v, ok := c.Get(url); ok {
		if body, ok := v.([]byte); ok {
			c.log.Trace().Str("url", url).Msg("cache hit")
			return &Response{Body: body, Source: SourceCache}, nil
		}
	}

	// The fetch outlives any single caller so one cancellation cannot fail the
	// callers sharing it. Each caller still stops waiting on its own ctx.
	leader := false
	ch := c.flight.DoChan(url, func() (any, error) {
		leader = true
		if v, ok := c.Get(url); ok {
			if body, ok := v.([]byte); ok {
				return flightResult{body: body, hit: true}, nil
			}
		}

		body, err := fetcher.Fetch(context.WithoutCancel(ctx), http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.SetTTL(url, body, cfg.TTL)
		return flightResult{body: body}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := res.Val.(flightResult)
		source := SourceNetwork
		if r.hit || !leader {
			source = SourceCache
		}
		return &Response{Body: r.body, Source: source}, nil
	}
}

type flightResult struct {
	body []byte
	hit  bool
}

// StatusError is returned by HTTPFetcher for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	client *http.Client
	header http.Header
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		header: http.Header{"Accept": []string{"application/json"}},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	for k, v := range f.header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, url)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: data}
	}

	return data, nil
}
