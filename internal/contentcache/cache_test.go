package contentcache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(opts ...Option) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)}
	return New(zerolog.Nop(), append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestResourceName(t *testing.T) {
	tests := map[string]string{
		"/api/hero":                             "hero",
		"/api/hero/":                            "hero",
		"/api/highlights?limit=3":               "highlights",
		"/api/stadiums#top":                     "stadiums",
		"http://localhost:3000/api/dailyImages": "dailyImages",
		"hero":                                  "hero",
		"":                                      "",
	}

	for key, want := range tests {
		assert.Equal(t, want, ResourceName(key), key)
	}
}

func TestCache_TTLTable(t *testing.T) {
	c, _ := newTestCache()

	for _, resource := range []string{"hero", "highlights", "stadiums", "stadiumSchedules", "specialMatches", "dailyImages", "upcomingFightsBackground"} {
		assert.Equal(t, 300000*time.Millisecond, c.TTLFor("/api/"+resource), resource)
	}
	assert.Equal(t, 60000*time.Millisecond, c.TTLFor("/api/regularTickets"))
}

func TestCache_GetExpires(t *testing.T) {
	c, clock := newTestCache()

	c.Set("/api/hero", map[string]int{"a": 1})

	v, ok := c.Get("/api/hero")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"a": 1}, v)

	clock.Advance(300000*time.Millisecond - time.Millisecond)
	_, ok = c.Get("/api/hero")
	assert.True(t, ok)

	clock.Advance(time.Millisecond)
	_, ok = c.Get("/api/hero")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_DefaultTTL(t *testing.T) {
	c, clock := newTestCache()

	c.Set("/api/promptpayQR", "qr")
	clock.Advance(60 * time.Second)

	_, ok := c.Get("/api/promptpayQR")
	assert.False(t, ok)
}

func TestCache_CustomTTLs(t *testing.T) {
	c, clock := newTestCache(WithTTLs(map[string]time.Duration{"hero": time.Second}), WithDefaultTTL(time.Minute))

	c.Set("/api/hero", 1)
	c.Set("/api/highlights", 2)
	c.SetTTL("/api/other", 3, 2*time.Hour)

	clock.Advance(time.Second)
	_, ok := c.Get("/api/hero")
	assert.False(t, ok)

	_, ok = c.Get("/api/highlights")
	assert.True(t, ok)

	clock.Advance(time.Hour)
	_, ok = c.Get("/api/highlights")
	assert.False(t, ok)
	_, ok = c.Get("/api/other")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache()

	c.Set("/api/highlights", 1)
	c.Set("/api/highlights?page=2", 2)
	c.Set("/api/hero", 3)
	c.Set("/api/stadiums", 4)

	assert.Equal(t, 2, c.Clear("highlights"))

	_, ok := c.Get("/api/hero")
	assert.True(t, ok)
	_, ok = c.Get("/api/stadiums")
	assert.True(t, ok)
	_, ok = c.Get("/api/highlights")
	assert.False(t, ok)

	assert.Equal(t, 2, c.Clear(""))
	assert.Equal(t, 0, c.Len())
}

func TestCache_MaxEntries(t *testing.T) {
	c, clock := newTestCache(WithMaxEntries(2))

	c.Set("/api/regularTickets", 1) // 60s
	c.Set("/api/hero", 2)           // 300s
	c.Set("/api/stadiums", 3)       // evicts regularTickets, nearest expiry

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("/api/regularTickets")
	assert.False(t, ok)

	// Expired entries go first.
	clock.Advance(301 * time.Second)
	c.Set("/api/specialTickets", 4)
	assert.Equal(t, 1, c.Len())

	// Overwriting an existing key never evicts.
	c.Set("/api/hero", 5)
	c.Set("/api/hero", 6)
	assert.Equal(t, 2, c.Len())
}

func TestCache_Unbounded(t *testing.T) {
	c, _ := newTestCache(WithMaxEntries(0))

	for i := 0; i < DefaultMaxEntries+10; i++ {
		c.Set(fmt.Sprintf("/api/item/%d", i), i)
	}
	assert.Equal(t, DefaultMaxEntries+10, c.Len())
}

type countingFetcher struct {
	calls atomic.Int32
	body  []byte
	err   error
	delay time.Duration
}

func (f *countingFetcher) Fetch(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestCachedRequest_SecondCallHitsCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	fetcher := &countingFetcher{body: []byte(`{"success":true}`)}

	first, err := c.CachedRequest(ctx, fetcher, "/api/hero", RequestConfig{})
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, first.Source)

	second, err := c.CachedRequest(ctx, fetcher, "/api/hero", RequestConfig{})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Body, second.Body)

	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestCachedRequest_ConcurrentMissesCollapse(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	fetcher := &countingFetcher{body: []byte(`[]`), delay: 50 * time.Millisecond}

	var wg sync.WaitGroup
	sources := make([]Source, 8)
	for i := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.CachedRequest(ctx, fetcher, "/api/stadiums", RequestConfig{})
			if assert.NoError(t, err) {
				sources[i] = resp.Source
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())

	network := 0
	for _, s := range sources {
		if s == SourceNetwork {
			network++
		}
	}
	assert.Equal(t, 1, network)
}

type gatedFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (f *gatedFetcher) Fetch(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	select {
	case <-f.release:
		return []byte(`{"success":true}`), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCachedRequest_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c, _ := newTestCache()
	fetcher := &gatedFetcher{started: make(chan struct{}, 1), release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.CachedRequest(ctx, fetcher, "/api/hero", RequestConfig{})
		leaderErr <- err
	}()
	<-fetcher.started

	type result struct {
		resp *Response
		err  error
	}
	other := make(chan result, 1)
	go func() {
		resp, err := c.CachedRequest(context.Background(), fetcher, "/api/hero", RequestConfig{})
		other <- result{resp, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(fetcher.release)
	got := <-other
	require.NoError(t, got.err)
	assert.Equal(t, []byte(`{"success":true}`), got.resp.Body)
	assert.Equal(t, SourceCache, got.resp.Source)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	_, ok := c.Get("/api/hero")
	assert.True(t, ok)
}

func TestCachedRequest_NonGETBypasses(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	fetcher := &countingFetcher{body: []byte(`{"id":"b-1"}`)}

	for i := 0; i < 2; i++ {
		resp, err := c.CachedRequest(ctx, fetcher, "/api/bookings", RequestConfig{Method: http.MethodPost, Body: []byte(`{}`)})
		require.NoError(t, err)
		assert.Equal(t, SourceNetwork, resp.Source)
	}

	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCachedRequest_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	boom := errors.New("connection refused")
	fetcher := &countingFetcher{err: boom}

	_, err := c.CachedRequest(ctx, fetcher, "/api/hero", RequestConfig{})
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, c.Len())

	fetcher.err = nil
	fetcher.body = []byte(`ok`)
	resp, err := c.CachedRequest(ctx, fetcher, "/api/hero", RequestConfig{})
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, resp.Source)
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestHTTPFetcher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/hero":
			w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false}`))
		}
	}))
	defer ts.Close()

	f := NewHTTPFetcher(time.Second)

	body, err := f.Fetch(context.Background(), http.MethodGet, ts.URL+"/api/hero", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(body))

	_, err = f.Fetch(context.Background(), http.MethodGet, ts.URL+"/api/missing", nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestPreloadImages_PartialFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.jpg" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("image"))
	}))
	defer ts.Close()

	c, _ := newTestCache()
	urls := []string{ts.URL + "/a.jpg", ts.URL + "/broken.jpg", ts.URL + "/b.jpg", ts.URL + "/a.jpg", ""}

	result := c.PreloadImages(context.Background(), NewHTTPFetcher(time.Second), urls, 2)

	assert.ElementsMatch(t, []string{ts.URL + "/a.jpg", ts.URL + "/b.jpg"}, result.Loaded)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed, ts.URL+"/broken.jpg")
	assert.Equal(t, 2, c.Len())
}
