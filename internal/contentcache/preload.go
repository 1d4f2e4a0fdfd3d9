package contentcache

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

const DefaultPreloadConcurrency = 4

// PreloadResult lists which URLs were loaded and why the others failed.
type PreloadResult struct {
	Loaded []string
	Failed map[string]error
}

// PreloadImages fetches urls into the cache with at most limit requests in
// flight. A failed image is logged and recorded; it never fails the batch.
func (c *Cache) PreloadImages(ctx context.Context, fetcher Fetcher, urls []string, limit int) PreloadResult {
	if limit <= 0 {
		limit = DefaultPreloadConcurrency
	}

	result := PreloadResult{Failed: make(map[string]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(limit)

	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}

		g.Go(func() error {
			_, err := c.CachedRequest(ctx, fetcher, u, RequestConfig{})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Warn().Err(err).Str("url", u).Msg("failed to preload image")
				result.Failed[u] = err
				return nil
			}
			result.Loaded = append(result.Loaded, u)
			return nil
		})
	}

	_ = g.Wait()

	c.log.Debug().Int("loaded", len(result.Loaded)).Int("failed", len(result.Failed)).Msg("Preloaded images")
	return result
}
