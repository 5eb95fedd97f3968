package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等启动期基础字段。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":      action,
		"config_path": configPath,
	}
}

// RequestFields 提供 method/target/命中状态字段，供代理请求日志复用。
func RequestFields(method, target string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"method":    method,
		"target":    target,
		"cache_hit": cacheHit,
	}
}
