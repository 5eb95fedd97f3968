package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relay-hub/relay-hub/internal/cache"
)

// RegisterDiagnosticsRoutes 暴露 /-/ 前缀的诊断接口，供运维查询缓存状态。
// 诊断路径使用 origin-form URI 直接访问代理自身，不参与转发。
func RegisterDiagnosticsRoutes(app *fiber.App, store cache.Store, registry prometheus.Gatherer) {
	if app == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if store != nil {
		app.Get("/-/cache", func(c fiber.Ctx) error {
			return c.JSON(store.Stats())
		})
	}

	if registry != nil {
		metricsHandler := adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		app.Get("/-/metrics", metricsHandler)
	}
}
