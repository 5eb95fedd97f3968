package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/relay-hub/relay-hub/internal/cache"
	"github.com/relay-hub/relay-hub/internal/config"
	"github.com/relay-hub/relay-hub/internal/logging"
	"github.com/relay-hub/relay-hub/internal/metrics"
	"github.com/relay-hub/relay-hub/internal/proxy"
	"github.com/relay-hub/relay-hub/internal/server"
	"github.com/relay-hub/relay-hub/internal/server/routes"
	"github.com/relay-hub/relay-hub/internal/version"
)

const usageLine = "usage: relay-hub [flags] <port>"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	port        int
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		fmt.Fprintln(stdErr, usageLine)
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}
	if opts.port > 0 {
		cfg.Global.ListenPort = opts.port
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["max_cache_size"] = cfg.Global.MaxCacheSize.Int64()
		fields["max_object_size"] = cfg.Global.MaxObjectSize.Int64()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	if cfg.Global.ListenPort <= 0 {
		fmt.Fprintln(stdErr, "缺少监听端口")
		fmt.Fprintln(stdErr, usageLine)
		return 2
	}

	// CLI 启动遵循“配置 → 指标 → 对象缓存 → Fiber server”顺序，
	// 保证所有连接共享同一个缓存实例与指标注册表。
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	store, err := cache.NewStore(cfg.Global.MaxCacheSize.Int64(), cfg.Global.MaxObjectSize.Int64(), m)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化对象缓存失败: %v\n", err)
		return 1
	}
	defer store.Purge()

	httpClient := server.NewUpstreamClient(cfg)
	proxyHandler := proxy.NewHandler(httpClient, logger, store, m)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["max_cache_size"] = cfg.Global.MaxCacheSize.Int64()
	fields["max_object_size"] = cfg.Global.MaxObjectSize.Int64()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, proxyHandler, store, registry, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数。监听端口是唯一的位置参数；
// -version/-check-config 模式下允许省略端口。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("relay-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可被 RELAY_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("RELAY_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	opts := cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}

	switch fs.NArg() {
	case 0:
		if !checkOnly && !showVer {
			return cliOptions{}, fmt.Errorf("缺少监听端口参数")
		}
	case 1:
		port, err := strconv.Atoi(fs.Arg(0))
		if err != nil || port <= 0 || port > 65535 {
			return cliOptions{}, fmt.Errorf("非法端口: %s", fs.Arg(0))
		}
		opts.port = port
	default:
		return cliOptions{}, fmt.Errorf("多余的位置参数: %v", fs.Args()[1:])
	}

	return opts, nil
}

func startHTTPServer(
	cfg *config.Config,
	proxyHandler server.ProxyHandler,
	store cache.Store,
	registry *prometheus.Registry,
	logger *logrus.Logger,
) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:         logger,
		Proxy:          proxyHandler,
		ListenPort:     port,
		MaxConnections: cfg.Global.MaxConnections,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, store, registry)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
