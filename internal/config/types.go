package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// ByteSize 支持纯字节整数或 "100KB"、"1MiB" 等带单位写法的容量字段。
type ByteSize int64

var byteSizeUnits = []struct {
	suffix string
	factor int64
}{
	{"gib", 1 << 30},
	{"mib", 1 << 20},
	{"kib", 1 << 10},
	{"gb", 1 << 30},
	{"mb", 1 << 20},
	{"kb", 1 << 10},
	{"b", 1},
}

// UnmarshalText 解析容量字符串；单位不区分大小写，KB 与 KiB 均按 1024 进制处理。
func (b *ByteSize) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*b = ByteSize(0)
		return nil
	}

	lower := strings.ToLower(raw)
	for _, unit := range byteSizeUnits {
		if !strings.HasSuffix(lower, unit.suffix) {
			continue
		}
		numPart := strings.TrimSpace(lower[:len(lower)-len(unit.suffix)])
		if numPart == "" {
			break
		}
		value, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			break
		}
		*b = ByteSize(int64(value * float64(unit.factor)))
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*b = ByteSize(intVal)
		return nil
	}

	return fmt.Errorf("invalid byte size value: %s", raw)
}

// Int64 返回字节数，便于与缓存层直接对接。
func (b ByteSize) Int64() int64 {
	return int64(b)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述代理的全局运行时行为，所有连接共享同一份参数。
//
// MaxCacheSize/MaxObjectSize 对应对象缓存的总容量与单对象上限；
// UpstreamTimeout 为 0 表示不限制回源耗时，由部署层自行兜底；
// MaxConnections 为 0 表示不限制并发连接数。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	MaxCacheSize    ByteSize `mapstructure:"MaxCacheSize"`
	MaxObjectSize   ByteSize `mapstructure:"MaxObjectSize"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	MaxConnections  int      `mapstructure:"MaxConnections"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
}
