// Package main 提供 quicpeer 命令行入口
//
// 服务端模式回显每个双向流收到的数据：
//
//	quicpeer -listen 127.0.0.1:4433 -names MaidSAFE.net
//
// 客户端模式发送一条消息并打印回显：
//
//	quicpeer -connect 127.0.0.1:4433 -server-name QuinnDemo -insecure -message hello
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-quicpeer"
	"github.com/dep2p/go-quicpeer/config"
	"github.com/dep2p/go-quicpeer/pkg/lib/log"
)

var logger = log.Logger("quicpeer/cmd")

// maxMessageSize 单个流最多读取的字节数
const maxMessageSize = 64 << 10

var (
	// ─────────────────────────────────────────────────────────────────────
	// 运行时参数
	// ─────────────────────────────────────────────────────────────────────
	listen     = flag.String("listen", "", "监听地址（服务端模式）")
	connect    = flag.String("connect", "", "对端地址（客户端模式）")
	configFile = flag.String("config", "", "配置文件路径")
	serverName = flag.String("server-name", "localhost", "期望的对端证书名称")
	message    = flag.String("message", "hello", "客户端发送的消息")
	names      = flag.String("names", "", "自签名证书名称，逗号分隔")

	// ─────────────────────────────────────────────────────────────────────
	// 信任策略
	// ─────────────────────────────────────────────────────────────────────
	insecure = flag.Bool("insecure", false, "接受任意证书（仅用于测试）")
	pin      = flag.String("pin", "", "只接受该指纹的证书（SHA-256 十六进制）")

	// ─────────────────────────────────────────────────────────────────────
	// 日志参数
	// ─────────────────────────────────────────────────────────────────────
	logLevel    = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	metricsAddr = flag.String("metrics", "", "Prometheus 指标监听地址，例如 127.0.0.1:9090")
	verbose     = flag.Bool("verbose", false, "输出 Fx 内部日志")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *logLevel != "" {
		level, ok := log.ParseLevel(*logLevel)
		if !ok {
			return fmt.Errorf("未知日志级别: %s", *logLevel)
		}
		log.SetLevel(level)
	}

	if (*listen == "") == (*connect == "") {
		flag.Usage()
		return errors.New("必须且只能指定 -listen 或 -connect 之一")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	node, err := quicpeer.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	if *listen != "" {
		leaf := node.Endpoint().ServerConfig().Leaf()
		fmt.Printf("监听地址: %s\n", node.LocalAddr())
		fmt.Printf("证书指纹: %s\n", quicpeer.FingerprintOf(quicpeer.Identity{CertificateChain: [][]byte{leaf.Raw}}))
		return serve(ctx, node)
	}

	reply, err := send(ctx, node, *connect, *serverName, []byte(*message))
	if err != nil {
		return err
	}
	fmt.Printf("回显: %s\n", reply)
	return nil
}

// loadConfig 加载配置文件，未指定时使用默认配置
func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return config.NewConfig(), nil
	}
	return config.LoadFile(*configFile)
}

// buildOptions 把命令行参数转换为节点选项
func buildOptions() ([]quicpeer.Option, error) {
	var opts []quicpeer.Option

	if *listen != "" {
		opts = append(opts, quicpeer.WithListen(*listen))
	}

	switch {
	case *insecure && *pin != "":
		return nil, errors.New("-insecure 与 -pin 不能同时使用")
	case *insecure:
		opts = append(opts, quicpeer.WithAcceptAnyCertificate())
	case *pin != "":
		if _, err := quicpeer.ParseFingerprint(*pin); err != nil {
			return nil, err
		}
		opts = append(opts, quicpeer.WithPinnedCertificates(*pin))
	}

	if *names != "" {
		opts = append(opts, quicpeer.WithServerNames(strings.Split(*names, ",")...))
	}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		go serveMetrics(*metricsAddr, reg)
		opts = append(opts, quicpeer.WithMetrics(reg))
	}

	if *verbose {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, quicpeer.WithFxLogger(zl))
	}

	return opts, nil
}

// serveMetrics 通过 HTTP 暴露指标
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	logger.Info("指标服务已启动", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("指标服务退出", "error", err)
	}
}

// serve 接受连接，每个双向流原样回显
func serve(ctx context.Context, node *quicpeer.Node) error {
	for {
		conn, err := node.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		logger.Info("接受连接", "remote", conn.RemoteAddr().String())
		go handleConn(ctx, conn)
	}
}

func handleConn(ctx context.Context, conn *quicpeer.Connection) {
	defer func() { _ = conn.Close() }()

	for {
		stream, err := conn.AcceptBi(ctx)
		if err != nil {
			logger.Debug("连接结束", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}

		go func() {
			defer func() { _ = stream.Close() }()

			data, err := stream.ReadToEnd(maxMessageSize)
			if err != nil {
				logger.Warn("读取流失败", "error", err)
				return
			}
			if _, err := stream.Write(data); err != nil {
				logger.Warn("回显失败", "error", err)
			}
		}()
	}
}

// send 发送 payload 并读取回显
//
// 写入和读取在两个 goroutine 中进行，回显大于发送缓冲时也不会互相阻塞。
func send(ctx context.Context, node *quicpeer.Node, addr, name string, payload []byte) ([]byte, error) {
	conn, err := node.Connect(ctx, addr, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	stream, err := conn.OpenBi(ctx)
	if err != nil {
		return nil, err
	}

	var reply []byte
	var g errgroup.Group
	g.Go(func() error {
		if _, err := stream.Write(payload); err != nil {
			return err
		}
		return stream.Finish()
	})
	g.Go(func() error {
		var err error
		reply, err = stream.ReadToEnd(maxMessageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reply, nil
}
