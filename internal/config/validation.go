package config

import (
	"errors"
	"fmt"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
// ListenPort 为 0 表示端口尚未确定（由 CLI 位置参数注入），此时跳过端口检查。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort < 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if g.MaxCacheSize <= 0 {
		return newFieldError("MaxCacheSize", "必须大于 0")
	}
	if g.MaxObjectSize <= 0 {
		return newFieldError("MaxObjectSize", "必须大于 0")
	}
	// 单对象上限超过总容量时，合法对象可能永远放不进缓存，属于配置错误。
	if g.MaxObjectSize > g.MaxCacheSize {
		return newFieldError("MaxObjectSize",
			fmt.Sprintf("不能超过 MaxCacheSize（%d > %d）", g.MaxObjectSize, g.MaxCacheSize))
	}
	if g.UpstreamTimeout.DurationValue() < 0 {
		return newFieldError("UpstreamTimeout", "不能为负数")
	}
	if g.MaxConnections < 0 {
		return newFieldError("MaxConnections", "不能为负数")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}

	return nil
}
