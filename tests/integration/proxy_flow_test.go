package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestProxyMissThenHitFlow(t *testing.T) {
	var originHits int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&originHits, 1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>cached page</html>")
	}))
	defer origin.Close()

	fixture := newProxyFixture(t, 1<<20, 100<<10)
	targetURI := origin.URL + "/index.html"

	// Miss -> origin fetch
	resp := fixture.get(t, targetURI)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if hit := resp.Header.Get("X-Relay-Hub-Cache-Hit"); hit != "false" {
		t.Fatalf("first request should miss, got %q", hit)
	}
	if body := readBody(t, resp); body != "<html>cached page</html>" {
		t.Fatalf("unexpected body: %s", body)
	}

	// Hit -> served from cache, origin not contacted again
	resp2 := fixture.get(t, targetURI)
	if hit := resp2.Header.Get("X-Relay-Hub-Cache-Hit"); hit != "true" {
		t.Fatalf("second request should hit, got %q", hit)
	}
	if body := readBody(t, resp2); body != "<html>cached page</html>" {
		t.Fatalf("cached body mismatch: %s", body)
	}

	if n := atomic.LoadInt64(&originHits); n != 1 {
		t.Fatalf("origin should be contacted once, got %d", n)
	}
}

func TestProxyDistinctKeysCachedSeparately(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "payload:%s", r.URL.Path)
	}))
	defer origin.Close()

	fixture := newProxyFixture(t, 1<<20, 100<<10)

	for _, path := range []string{"/a", "/b", "/a?v=2"} {
		resp := fixture.get(t, origin.URL+path)
		readBody(t, resp)
	}

	if fixture.store.Len() != 3 {
		t.Fatalf("distinct URIs must be distinct cache keys, got %d entries", fixture.store.Len())
	}
}

func TestProxyRejectsNonGetEndToEnd(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("non-GET must never reach the origin")
	}))
	defer origin.Close()

	fixture := newProxyFixture(t, 1<<20, 100<<10)

	req := httptest.NewRequest("DELETE", origin.URL+"/resource", nil)
	resp, err := fixture.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != fiber.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, "method_not_allowed") {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestProxyOriginFailureLeavesStoreUntouched(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := origin.URL
	origin.Close()

	fixture := newProxyFixture(t, 1<<20, 100<<10)

	resp := fixture.get(t, deadURL+"/gone")
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	readBody(t, resp)

	if fixture.store.Len() != 0 {
		t.Fatalf("failed fetch must not touch the store")
	}
}
