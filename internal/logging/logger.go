package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/relay-hub/relay-hub/internal/config"
)

// InitLogger 按全局配置构建 JSON 结构化 logger。日志文件不可写时
// 降级到 stdout 并继续启动，代理进程不因日志路径问题拒绝服务。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	out, fallbackErr := logDestination(cfg)
	logger.SetOutput(out)

	// 同步全局 logrus，库内部偶发的 logrus.Xxx 调用走同一出口。
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if fallbackErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "log_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(fallbackErr.Error())
	}

	return logger, nil
}

// logDestination 返回日志输出目标。配置了文件路径时使用 lumberjack 滚动，
// 目录创建失败时返回 stdout 与失败原因。
func logDestination(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}
