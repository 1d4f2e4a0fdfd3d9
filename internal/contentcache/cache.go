package contentcache

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL        = 60 * time.Second
	DefaultMaxEntries = 256
)

// DefaultTTLs returns the per-resource TTL table. Resources not listed use DefaultTTL.
func DefaultTTLs() map[string]time.Duration {
	return map[string]time.Duration{
		"hero":                     300 * time.Second,
		"highlights":               300 * time.Second,
		"stadiums":                 300 * time.Second,
		"stadiumSchedules":         300 * time.Second,
		"specialMatches":           300 * time.Second,
		"dailyImages":              300 * time.Second,
		"upcomingFightsBackground": 300 * time.Second,
	}
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-memory TTL cache keyed by request URL.
type Cache struct {
	log        zerolog.Logger
	mu         sync.Mutex
	entries    map[string]entry
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	maxEntries int
	now        func() time.Time
	flight     singleflight.Group
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTLs replaces the per-resource TTL table.
func WithTTLs(ttls map[string]time.Duration) Option {
	return func(c *Cache) {
		c.ttls = make(map[string]time.Duration, len(ttls))
		for k, v := range ttls {
			c.ttls[k] = v
		}
	}
}

func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithMaxEntries caps the number of entries. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

func New(log zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		log:        log.With().Str("module", "contentcache").Logger(),
		entries:    make(map[string]entry),
		ttls:       DefaultTTLs(),
		defaultTTL: DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResourceName returns the last path segment of key, ignoring any query,
// fragment or trailing slash.
func ResourceName(key string) string {
	path := key
	if u, err := url.Parse(key); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// TTLFor returns the TTL used for key's resource.
func (c *Cache) TTLFor(key string) time.Duration {
	if ttl, ok := c.ttls[ResourceName(key)]; ok {
		return ttl
	}
	return c.defaultTTL
}

// Get returns the value while it is live. An expired entry is removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.log.Trace().Str("key", key).Msg("expired")
		return nil, false
	}

	return e.value, true
}

// Set stores value with the TTL of key's resource.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, 0)
}

// SetTTL stores value for ttl, or for the resource TTL when ttl is not positive.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTLFor(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.makeRoom(now)
	}

	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// makeRoom drops expired entries, then the entry closest to expiry if the
// cache is still full. Callers hold c.mu.
func (c *Cache) makeRoom(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	if len(c.entries) < c.maxEntries {
		return
	}

	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(soonest) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}

	delete(c.entries, victim)
	c.log.Debug().Str("key", victim).Msg("evicted to stay under max entries")
}

// Clear removes every key containing pattern, or every key when pattern is
// empty, and returns how many were removed.
func (c *Cache) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if pattern == "" || strings.Contains(k, pattern) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
