package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCLIFlagsPort(t *testing.T) {
	opts, err := parseCLIFlags([]string{"8080"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.port != 8080 {
		t.Fatalf("端口解析错误: %d", opts.port)
	}
}

func TestParseCLIFlagsMissingPort(t *testing.T) {
	if _, err := parseCLIFlags([]string{}); err == nil {
		t.Fatalf("缺少端口参数应报错")
	}
}

func TestParseCLIFlagsInvalidPort(t *testing.T) {
	for _, arg := range []string{"abc", "0", "-5", "99999"} {
		if _, err := parseCLIFlags([]string{arg}); err == nil {
			t.Fatalf("非法端口 %q 应报错", arg)
		}
	}
}

func TestParseCLIFlagsExtraArgs(t *testing.T) {
	if _, err := parseCLIFlags([]string{"8080", "extra"}); err == nil {
		t.Fatalf("多余参数应报错")
	}
}

func TestParseCLIFlagsConfigPriority(t *testing.T) {
	t.Setenv("RELAY_HUB_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{"8080"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "8080"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsVersionWithoutPort(t *testing.T) {
	opts, err := parseCLIFlags([]string{"-version"})
	if err != nil {
		t.Fatalf("version 模式不应要求端口: %v", err)
	}
	if !opts.showVersion {
		t.Fatalf("showVersion 未置位")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	captureCLIOutput(t)
	code := run(cliOptions{configPath: writeMainConfig(t, `
MaxCacheSize = "1MiB"
MaxObjectSize = "100KiB"
`), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	_, errBuf := captureCLIOutput(t)
	code := run(cliOptions{configPath: writeMainConfig(t, `
MaxCacheSize = "100KiB"
MaxObjectSize = "1MiB"
`), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
	if !strings.Contains(errBuf.String(), "MaxObjectSize") {
		t.Fatalf("错误输出应指向问题字段: %s", errBuf.String())
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	captureCLIOutput(t)
	code := run(cliOptions{configPath: filepath.Join(t.TempDir(), "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("缺失配置文件应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	outBuf, _ := captureCLIOutput(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(outBuf.String(), "relay-hub") {
		t.Fatalf("version 输出应包含 relay-hub 标识")
	}
}

func TestRunWithoutPort(t *testing.T) {
	_, errBuf := captureCLIOutput(t)
	code := run(cliOptions{})
	if code != 2 {
		t.Fatalf("缺少端口应返回退出码 2，得到 %d", code)
	}
	if !strings.Contains(errBuf.String(), "usage:") {
		t.Fatalf("应输出 usage 提示: %s", errBuf.String())
	}
}

func writeMainConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}
