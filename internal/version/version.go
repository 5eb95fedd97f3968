package version

import "fmt"

// Version 与 Commit 在发布流水线里经 -ldflags 注入，本地构建保持占位符。
var (
	Version = "0.1.0"
	Commit  = "dev"
)

// Full 拼出 CLI -version 打印的完整标识。
func Full() string {
	return fmt.Sprintf("relay-hub %s (%s)", Version, Commit)
}
