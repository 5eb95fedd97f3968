package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/relay-hub/relay-hub/internal/cache"
	"github.com/relay-hub/relay-hub/internal/config"
	"github.com/relay-hub/relay-hub/internal/proxy"
	"github.com/relay-hub/relay-hub/internal/server"
)

// proxyFixture 组合一次完整代理链路所需的全部组件。
type proxyFixture struct {
	app   *fiber.App
	store cache.Store
}

// newProxyFixture 按“配置 → 缓存 → client → handler → Fiber app”的启动顺序
// 搭建与生产一致的代理实例，缓存上限由调用方指定。
func newProxyFixture(t *testing.T, maxCache, maxObject int64) *proxyFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := cache.NewStore(maxCache, maxObject, nil)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	client := server.NewUpstreamClient(&config.Config{})
	handler := proxy.NewHandler(client, logger, store, nil)

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Proxy:      handler,
		ListenPort: 5000,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}

	return &proxyFixture{app: app, store: store}
}

// get 以 absolute-form URI 发起一次代理请求并返回响应。
func (f *proxyFixture) get(t *testing.T, targetURI string) *http.Response {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest("GET", targetURI, nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error: %v", err)
	}
	return string(body)
}
