package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeTempConfig 把 TOML 片段落盘为一次性配置文件并返回路径。
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay-hub.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

// fieldOf 提取错误链上的 FieldError 字段名，链上没有则返回空串。
func fieldOf(err error) string {
	var fe FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
