package clientutil

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"
)

type Middleware func(http.RoundTripper) http.RoundTripper

func Chain(middlewares ...Middleware) Middleware {
	return func(final http.RoundTripper) http.RoundTripper {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// WithCache keeps cacheable responses in memory for the lifetime of the process,
// flushing everything every ttl.
func WithCache(ttl time.Duration) Middleware {
	cache := NewMemoryCache(ttl)
	return func(next http.RoundTripper) http.RoundTripper {
		transport := httpcache.NewTransport(cache)
		transport.Transport = next
		return transport
	}
}

func WithRateLimit(interval time.Duration) Middleware {
	if interval == 0 {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		limiter := rate.NewLimiter(rate.Every(interval), 1)
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context()); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}

func WithLogging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			took := time.Since(start).Truncate(time.Millisecond)
			if err != nil {
				logger.DebugContext(r.Context(), "http request failed", "url", Redact(r.URL), "took", took, "err", err)
				return nil, err
			}
			logger.DebugContext(r.Context(), "http response", "status", resp.StatusCode, "url", Redact(r.URL), "took", took)
			return resp, nil
		})
	}
}

func WithUserAgent(userAgent string) Middleware {
	if userAgent == "" {
		return Passthrough
	}
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripFunc(func(r *http.Request) (*http.Response, error) {
			r = r.Clone(r.Context())
			r.Header.Set("User-Agent", userAgent)
			return next.RoundTrip(r)
		})
	}
}

func Passthrough(next http.RoundTripper) http.RoundTripper {
	return next
}

// FSClient serves requests from fsys rooted at sub, ignoring the host and query.
func FSClient(fsys fs.FS, sub string) *http.Client {
	subfs, err := fs.Sub(fsys, sub)
	if err != nil {
		panic(fmt.Sprintf("clientutil: fs.Sub: %v", err.Error()))
	}
	file := http.NewFileTransportFS(subfs)
	return &http.Client{Transport: RoundTripFunc(func(r *http.Request) (*http.Response, error) {
		r = r.Clone(r.Context())
		r.URL = &url.URL{Scheme: "file", Path: r.URL.Path}
		return file.RoundTrip(r)
	})}
}

type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Wrap returns a copy of c with mw applied to its transport.
func Wrap(c *http.Client, mw Middleware) *http.Client {
	var wrapped http.Client
	if c != nil {
		wrapped = *c
	}
	if wrapped.Transport == nil {
		wrapped.Transport = http.DefaultTransport
	}
	wrapped.Transport = mw(wrapped.Transport)
	return &wrapped
}

var redactParams = []string{"api_key", "key", "token"}

// Redact returns u as a string with credentials in the query masked.
func Redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	var changed bool
	for _, p := range redactParams {
		if q.Has(p) {
			q.Set(p, "xxx")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	redacted := *u
	redacted.RawQuery = q.Encode()
	return redacted.String()
}

// MemoryCache is an httpcache.Cache that drops every entry once ttl has passed since
// the last flush. A ttl <= 0 keeps entries forever.
type MemoryCache struct {
	ttl time.Duration

	mu      sync.Mutex
	flushed time.Time
	items   map[string][]byte
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, flushed: time.Now(), items: map[string][]byte{}}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire()
	resp, ok := c.items[key]
	return resp, ok
}

func (c *MemoryCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire()
	c.items[key] = data
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// expire must be called with mu held.
func (c *MemoryCache) expire() {
	if c.ttl <= 0 || time.Since(c.flushed) < c.ttl {
		return
	}
	clear(c.items)
	c.flushed = time.Now()
}
