package server

import (
	"net"
	"net/http"
	"net/textproto"
	"time"

	"github.com/relay-hub/relay-hub/internal/config"
)

// Shared HTTP transport tunings。转发代理按一次性 HTTP/1.0 风格交互回源：
// 禁用连接复用与 HTTP/2，每次回源都是独立短连接。
var defaultTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	DisableKeepAlives:   true,
	MaxIdleConns:        0,
	TLSHandshakeTimeout: 10 * time.Second,
	ForceAttemptHTTP2:   false,
	DialContext: (&net.Dialer{
		Timeout: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回共享 http.Client，用于所有回源请求。
// 未配置 UpstreamTimeout 时不限制整体耗时，连接挂起风险由部署层兜底。
// 3xx 响应原样转发给客户端，由客户端自行决定是否跟随跳转。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	var timeout time.Duration
	if cfg != nil && cfg.Global.UpstreamTimeout.DurationValue() > 0 {
		timeout = cfg.Global.UpstreamTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// hopByHopHeaders 定义 RFC 7230 中禁止代理转发的头部。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {}, // 非标准字段，但部分代理仍使用
}

// CopyHeaders 将 src 中允许透传的头复制到 dst，自动忽略 hop-by-hop 字段。
func CopyHeaders(dst, src http.Header) {
	for key, values := range src {
		if IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// IsHopByHopHeader 判断头部是否属于代理不应透传的 hop-by-hop 字段。
func IsHopByHopHeader(key string) bool {
	canonical := textproto.CanonicalMIMEHeaderKey(key)
	if _, ok := hopByHopHeaders[canonical]; ok {
		return true
	}

	return false
}
