package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProxyHandler describes the component responsible for relaying requests to
// the origin server. It allows injecting fake handlers during tests.
type ProxyHandler interface {
	Handle(fiber.Ctx, *Target) error
}

// ProxyHandlerFunc adapts a function to the ProxyHandler interface.
type ProxyHandlerFunc func(fiber.Ctx, *Target) error

// Handle makes ProxyHandlerFunc satisfy ProxyHandler.
func (f ProxyHandlerFunc) Handle(c fiber.Ctx, target *Target) error {
	return f(c, target)
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Proxy      ProxyHandler
	ListenPort int
	// MaxConnections 大于 0 时限制并发连接数，0 表示沿用 Fiber 默认值。
	MaxConnections int
}

const (
	contextKeyTarget    = "_relayhub_target"
	contextKeyRequestID = "_relayhub_request_id"
)

// NewApp builds a Fiber application with request-target parsing middleware and
// structured error handling for the forwarding proxy surface.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Proxy == nil {
		return nil, errors.New("proxy handler is required")
	}
	if opts.ListenPort <= 0 || opts.ListenPort > 65535 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	fiberCfg := fiber.Config{
		CaseSensitive: true,
	}
	if opts.MaxConnections > 0 {
		fiberCfg.Concurrency = opts.MaxConnections
	}
	app := fiber.New(fiberCfg)

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(c.OriginalURL()) {
			return c.Next()
		}
		target, _ := getTargetFromContext(c)
		if target == nil {
			return renderBadTarget(c, opts.Logger, ErrOriginFormURI)
		}
		return opts.Proxy.Handle(c, target)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID、拦截非 GET 方法并解析请求目标。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		if isDiagnosticsPath(c.OriginalURL()) {
			return c.Next()
		}

		// 方法拒绝发生在任何回源动作之前，非 GET 请求不会被转发。
		if c.Method() != fiber.MethodGet {
			return renderMethodRejected(c, opts.Logger)
		}

		target, err := ParseTarget(c.OriginalURL())
		if err != nil {
			return renderBadTarget(c, opts.Logger, err)
		}

		c.Locals(contextKeyTarget, target)
		return c.Next()
	}
}

func renderMethodRejected(c fiber.Ctx, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "method_reject",
		"method": c.Method(),
	}).Warn("method not supported")

	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"error": "method_not_allowed",
	})
}

func renderBadTarget(c fiber.Ctx, logger *logrus.Logger, err error) error {
	logger.WithFields(logrus.Fields{
		"action": "target_parse",
		"target": c.OriginalURL(),
		"error":  err.Error(),
	}).Warn("request target rejected")

	code := "invalid_request_target"
	if errors.Is(err, ErrOriginFormURI) {
		code = "absolute_uri_required"
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": code,
	})
}

func getTargetFromContext(c fiber.Ctx) (*Target, bool) {
	if value := c.Locals(contextKeyTarget); value != nil {
		if target, ok := value.(*Target); ok {
			return target, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// isDiagnosticsPath 只认 origin-form 的 /-/ 前缀：absolute-form 目标即使
// 路径以 /-/ 开头也属于待转发 URI，诊断接口不得截留。
func isDiagnosticsPath(rawTarget string) bool {
	return strings.HasPrefix(rawTarget, "/-/")
}
