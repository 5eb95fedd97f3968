package main

import (
	"fmt"

	"github.com/relay-hub/relay-hub/internal/version"
)

// printVersion 输出构建期注入的版本与提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
