package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memoryCache is an in-memory Cache for tests.
type memoryCache struct {
	mu       sync.Mutex
	projects map[string]*Project
	puts     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{projects: make(map[string]*Project)}
}

func (m *memoryCache) GetProject(_ context.Context, name string, maxAge time.Duration) (*Project, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[name]
	if !ok || time.Since(p.CheckedAt) > maxAge {
		return nil, false, nil
	}
	return p, true, nil
}

func (m *memoryCache) PutProject(_ context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.Name] = p
	m.puts++
	return nil
}

func newIndex(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/pypi/requests/json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"info":{"name":"requests","version":"2.32.3","summary":"Python HTTP for Humans."},"releases":{}}`)
		case "/pypi/flaky/json":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClientLookup(t *testing.T) {
	t.Parallel()

	t.Run("existing project", func(t *testing.T) {
		t.Parallel()

		srv := newIndex(t, nil)
		defer srv.Close()

		client := NewClient(WithBaseURL(srv.URL))
		p, err := client.Lookup(context.Background(), "Requests")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.Exists {
			t.Error("expected project to exist")
		}
		if p.Version != "2.32.3" {
			t.Errorf("expected version 2.32.3, got %s", p.Version)
		}
		if p.Name != "requests" {
			t.Errorf("expected normalized name 'requests', got %s", p.Name)
		}
	})

	t.Run("missing project", func(t *testing.T) {
		t.Parallel()

		srv := newIndex(t, nil)
		defer srv.Close()

		client := NewClient(WithBaseURL(srv.URL))
		p, err := client.Lookup(context.Background(), "reqeusts")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Exists {
			t.Error("expected project to be missing")
		}
		if p.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", p.StatusCode)
		}
	})

	t.Run("server error is not existing", func(t *testing.T) {
		t.Parallel()

		srv := newIndex(t, nil)
		defer srv.Close()

		client := NewClient(WithBaseURL(srv.URL))
		exists, err := client.Exists(context.Background(), "flaky")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists {
			t.Error("expected non-200 to be treated as missing")
		}
	})

	t.Run("transport error is returned", func(t *testing.T) {
		t.Parallel()

		srv := newIndex(t, nil)
		srv.Close()

		client := NewClient(WithBaseURL(srv.URL))
		if _, err := client.Lookup(context.Background(), "requests"); err == nil {
			t.Error("expected error for closed server")
		}
	})

	t.Run("empty name is an error", func(t *testing.T) {
		t.Parallel()

		client := NewClient()
		if _, err := client.Lookup(context.Background(), "  "); !errors.Is(err, ErrEmptyName) {
			t.Errorf("expected ErrEmptyName, got %v", err)
		}
	})
}

func TestClientLookupCache(t *testing.T) {
	t.Parallel()

	t.Run("second lookup is served from cache", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := newIndex(t, &hits)
		defer srv.Close()

		var cacheHits, cacheMisses int
		cache := newMemoryCache()
		client := NewClient(
			WithBaseURL(srv.URL),
			WithCache(cache, time.Hour),
			WithCacheObserver(func(hit bool) {
				if hit {
					cacheHits++
				} else {
					cacheMisses++
				}
			}),
		)

		for range 3 {
			if _, err := client.Lookup(context.Background(), "requests"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 request to the index, got %d", hits.Load())
		}
		if cacheHits != 2 || cacheMisses != 1 {
			t.Errorf("expected 2 cache hits and 1 miss, got %d and %d", cacheHits, cacheMisses)
		}
	})

	t.Run("transient failures are not cached", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := newIndex(t, &hits)
		defer srv.Close()

		cache := newMemoryCache()
		client := NewClient(WithBaseURL(srv.URL), WithCache(cache, time.Hour))

		for range 2 {
			if _, err := client.Lookup(context.Background(), "flaky"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if hits.Load() != 2 {
			t.Errorf("expected 2 requests to the index, got %d", hits.Load())
		}
		if cache.puts != 0 {
			t.Errorf("expected no cache writes, got %d", cache.puts)
		}
	})

	t.Run("zero ttl disables cache", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := newIndex(t, &hits)
		defer srv.Close()

		client := NewClient(WithBaseURL(srv.URL), WithCache(newMemoryCache(), 0))
		for range 2 {
			if _, err := client.Lookup(context.Background(), "requests"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if hits.Load() != 2 {
			t.Errorf("expected 2 requests to the index, got %d", hits.Load())
		}
	})
}
