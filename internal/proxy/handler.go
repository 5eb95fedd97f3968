package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/relay-hub/relay-hub/internal/cache"
	"github.com/relay-hub/relay-hub/internal/logging"
	"github.com/relay-hub/relay-hub/internal/metrics"
	"github.com/relay-hub/relay-hub/internal/server"
)

// headerUserAgent 是代理回源固定使用的 User-Agent，客户端的同名头会被覆盖。
const headerUserAgent = "Mozilla/5.0" +
	" (X11; Linux x86_64; rv:3.10.0)" +
	" Gecko/20190801 Firefox/63.0.1"

// Handler 负责 orchestrate “缓存命中 → 回源转发 → 按资格写缓存” 的全流程，
// 对外暴露 Fiber handler，内部复用共享 http.Client 与内存对象缓存。
type Handler struct {
	client  *http.Client
	logger  *logrus.Logger
	store   cache.Store
	metrics *metrics.Metrics
}

// NewHandler constructs a proxy handler with shared HTTP client/logger/store.
func NewHandler(client *http.Client, logger *logrus.Logger, store cache.Store, m *metrics.Metrics) *Handler {
	return &Handler{
		client:  client,
		logger:  logger,
		store:   store,
		metrics: m,
	}
}

// Handle 执行缓存查找与回源转发。缓存操作只做内存簿记，
// 所有网络 I/O 都发生在缓存锁之外。
func (h *Handler) Handle(c fiber.Ctx, target *server.Target) error {
	started := time.Now()
	requestID := server.RequestID(c)

	if value, ok := h.store.Lookup(target.Key); ok {
		return h.serveCache(c, target, value, requestID, started)
	}

	return h.fetchAndStream(c, target, requestID, started)
}

// serveCache 将缓存正文完整写回客户端；客户端提前断开不算错误，
// 连接本来就要关闭，记一条日志即可。
func (h *Handler) serveCache(
	c fiber.Ctx,
	target *server.Target,
	value []byte,
	requestID string,
	started time.Time,
) error {
	c.Response().Header.Del("Content-Type")
	c.Response().Header.SetContentLength(len(value))
	c.Set("X-Relay-Hub-Cache-Hit", "true")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Status(fiber.StatusOK)

	_, err := c.Response().BodyWriter().Write(value)
	if err != nil {
		h.logClientGone(target, requestID, err)
	}

	h.metrics.ObserveProxyRequest("hit")
	h.logResult(c, target, requestID, fiber.StatusOK, true, started, nil)
	return nil
}

func (h *Handler) fetchAndStream(
	c fiber.Ctx,
	target *server.Target,
	requestID string,
	started time.Time,
) error {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := h.buildOriginRequest(ctx, c, target)
	if err != nil {
		h.metrics.ObserveProxyRequest("origin_error")
		h.logResult(c, target, requestID, 0, false, started, err)
		return h.writeError(c, fiber.StatusBadGateway, "origin_unreachable")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.metrics.ObserveProxyRequest("origin_error")
		h.logResult(c, target, requestID, 0, false, started, err)
		return h.writeError(c, fiber.StatusBadGateway, "origin_unreachable")
	}
	defer resp.Body.Close()

	copyResponseHeaders(c, resp.Header)
	c.Set("X-Relay-Hub-Cache-Hit", "false")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Status(resp.StatusCode)

	// 边转发边积累：缓冲写入永不报错，转发不会因超限中断。
	buffer := cache.NewObjectBuffer(h.store.MaxObjectSize())
	_, relayErr := io.Copy(c.Response().BodyWriter(), io.TeeReader(resp.Body, buffer))
	if relayErr != nil {
		// 中途失败意味着正文不完整，残缺对象绝不入缓存。
		h.metrics.ObserveProxyRequest("relay_error")
		h.logClientGone(target, requestID, relayErr)
		h.logResult(c, target, requestID, resp.StatusCode, false, started, relayErr)
		return nil
	}

	h.maybeInsert(target, resp.StatusCode, buffer)

	h.metrics.ObserveProxyRequest("miss")
	h.logResult(c, target, requestID, resp.StatusCode, false, started, nil)
	return nil
}

// buildOriginRequest 基于客户端请求重建回源请求：Host/User-Agent/Connection
// 由代理统一控制，其余头部去掉 hop-by-hop 字段后原样透传。
func (h *Handler) buildOriginRequest(ctx context.Context, c fiber.Ctx, target *server.Target) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL.String(), http.NoBody)
	if err != nil {
		return nil, err
	}

	clientHeaders := fiberHeadersAsHTTP(c)
	clientHeaders.Del("Host")
	clientHeaders.Del("User-Agent")
	server.CopyHeaders(req.Header, clientHeaders)

	req.Host = target.HostHeader()
	req.Header.Set("User-Agent", headerUserAgent)
	req.Close = true

	return req, nil
}

// maybeInsert 在转发完整结束后判定缓存资格并写入。
// 只缓存 200 响应；超限对象在积累阶段已被放弃。
func (h *Handler) maybeInsert(target *server.Target, status int, buffer *cache.ObjectBuffer) {
	if status != http.StatusOK || buffer.Overflowed() {
		return
	}

	if err := h.store.Insert(target.Key, buffer.Bytes()); err != nil {
		if errors.Is(err, cache.ErrObjectTooLarge) {
			// 积累上限与缓存上限取自同一配置，正常流程不应走到这里。
			h.logger.WithFields(logrus.Fields{
				"action": "cache_insert",
				"target": target.Key,
				"size":   buffer.Size(),
			}).Debug("object rejected by store")
		}
	}
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logClientGone(target *server.Target, requestID string, err error) {
	fields := logrus.Fields{
		"action": "client_write",
		"target": target.Key,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	h.logger.WithFields(fields).WithError(err).Warn("client_write_failed")
}

func (h *Handler) logResult(
	c fiber.Ctx,
	target *server.Target,
	requestID string,
	status int,
	cacheHit bool,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(c.Method(), target.Key, cacheHit)
	fields["action"] = "proxy"
	fields["origin"] = target.HostHeader()
	fields["origin_status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}

func copyResponseHeaders(c fiber.Ctx, headers http.Header) {
	for key, values := range headers {
		if server.IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
}
