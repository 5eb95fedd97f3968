package server

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Target 将请求行中的 absolute-form URI 解析为回源所需的各个部件，
// 供路由/代理层直接复用，避免重复解析。
type Target struct {
	// Key 是客户端请求行里的原始 URI，作为缓存键原样使用。
	Key string
	// URL 是解析后的回源地址，Scheme 恒为 http。
	URL *url.URL
}

// ErrOriginFormURI 表示请求使用了 origin-form 路径而非代理所需的完整 URI。
var ErrOriginFormURI = errors.New("request target must be an absolute URI")

// ParseTarget 解析转发代理的请求目标。兼容省略 scheme 的写法
// （"host:port/path"），缺省端口为 80、缺省路径为 "/"。
func ParseTarget(raw string) (*Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("empty request target")
	}

	candidate := trimmed
	// 只在首个 "/" 之前识别 scheme，查询串里携带的 URL 不参与判断。
	if idx := strings.Index(candidate, "://"); idx >= 0 && !strings.Contains(candidate[:idx], "/") {
		scheme := strings.ToLower(candidate[:idx])
		if scheme != "http" {
			return nil, fmt.Errorf("unsupported scheme: %s", scheme)
		}
	} else {
		if strings.HasPrefix(candidate, "/") {
			return nil, ErrOriginFormURI
		}
		candidate = "http://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return nil, fmt.Errorf("invalid request target: %w", err)
	}
	if parsed.Host == "" {
		return nil, errors.New("request target missing host")
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return &Target{
		Key: trimmed,
		URL: parsed,
	}, nil
}

// Hostname 返回不含端口的主机名。
func (t *Target) Hostname() string {
	return t.URL.Hostname()
}

// Port 返回目标端口，未显式指定时为 "80"。
func (t *Target) Port() string {
	if port := t.URL.Port(); port != "" {
		return port
	}
	return "80"
}

// HostHeader 构造回源请求的 Host 头：仅在非默认端口时携带端口。
func (t *Target) HostHeader() string {
	host := t.Hostname()
	if port := t.URL.Port(); port != "" && port != "80" {
		return net.JoinHostPort(host, port)
	}
	return host
}

// RequestPath 返回回源请求行使用的路径（含查询串）。
func (t *Target) RequestPath() string {
	path := t.URL.Path
	if path == "" {
		path = "/"
	}
	if t.URL.RawQuery != "" {
		return path + "?" + t.URL.RawQuery
	}
	return path
}
