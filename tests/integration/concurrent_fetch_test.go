package integration

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestConcurrentFetchSameKey 模拟多个 handler 同时抓取同一个未缓存 URI：
// 全部请求都要拿到完整正文，最终缓存里只能有一个条目。
func TestConcurrentFetchSameKey(t *testing.T) {
	var originCalls int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&originCalls, 1)
		// 人为放慢响应，扩大并发窗口，让多个回源同时进行。
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "race_payload")
	}))
	defer origin.Close()

	fixture := newProxyFixture(t, 1<<20, 100<<10)
	targetURI := origin.URL + "/contended"

	const workers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := fixture.app.Test(httptest.NewRequest("GET", targetURI, nil))
			if err != nil {
				errCh <- err
				return
			}
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				errCh <- err
				return
			}
			if string(body) != "race_payload" {
				errCh <- fmt.Errorf("unexpected body: %q", body)
				return
			}
			errCh <- nil
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent fetch failed: %v", err)
		}
	}

	if fixture.store.Len() != 1 {
		t.Fatalf("expected exactly one cache entry, got %d", fixture.store.Len())
	}
	value, ok := fixture.store.Lookup(targetURI)
	if !ok || string(value) != "race_payload" {
		t.Fatalf("unexpected cached value: ok=%v value=%q", ok, value)
	}

	if atomic.LoadInt64(&originCalls) < 1 {
		t.Fatalf("origin was never contacted")
	}
}
