package main

import (
	"bytes"
	"testing"
)

// captureCLIOutput 把 stdOut/stdErr 替换为内存缓冲，测试结束后自动还原，
// 便于对 CLI 输出做断言而不污染测试日志。
func captureCLIOutput(t *testing.T) (outBuf, errBuf *bytes.Buffer) {
	t.Helper()

	outBuf = &bytes.Buffer{}
	errBuf = &bytes.Buffer{}

	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = outBuf, errBuf
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})

	return outBuf, errBuf
}
