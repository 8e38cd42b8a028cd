package quicpeer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-quicpeer/config"
	"github.com/dep2p/go-quicpeer/pkg/lib/log"
)

var logger = log.Logger("quicpeer")

// stopTimeout Fx App Stop 超时
const stopTimeout = 10 * time.Second

// Node 由配置装配的端点
//
// 持有一个已绑定的 Endpoint、对应的 Incoming 和按配置构建的 ClientConfig。
// 可被多个 goroutine 并发使用。
type Node struct {
	config *config.Config
	app    *fx.App

	// 由 Fx 注入
	endpoint     *Endpoint
	incoming     *Incoming
	clientConfig ClientConfig

	mu     sync.RWMutex
	closed bool
}

// New 按配置创建并启动节点
//
// cfg 为 nil 时使用 config.NewConfig()。选项作用于 cfg 的副本，
// 调用方的配置不会被修改。返回时端点已经绑定。
//
// 示例：
//
//	node, err := quicpeer.New(ctx, config.NewConfig(),
//	    quicpeer.WithListen("0.0.0.0:4433"),
//	    quicpeer.WithPinnedCertificates(pin),
//	)
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	o := &options{config: config.CloneConfig(cfg)}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{config: o.config}

	app, err := buildFxApp(o, node)
	if err != nil {
		node.release()
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app

	if err := app.Start(ctx); err != nil {
		// 端点在 fx.New 阶段已经绑定，Start 失败时 OnStop 不一定会执行
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
		node.release()
		return nil, fmt.Errorf("start node: %w", err)
	}

	logger.Info("节点已启动",
		"endpoint", log.TruncateID(node.endpoint.ID(), 8),
		"addr", node.endpoint.LocalAddr().String(),
		"trust", node.clientConfig.Trust().String())
	return node, nil
}

// Config 返回节点使用的配置（只读）
func (n *Node) Config() *config.Config {
	return n.config
}

// Endpoint 返回底层端点
func (n *Node) Endpoint() *Endpoint {
	return n.endpoint
}

// Incoming 返回入站连接序列
func (n *Node) Incoming() *Incoming {
	return n.incoming
}

// ClientConfig 返回按配置构建的客户端配置
func (n *Node) ClientConfig() ClientConfig {
	return n.clientConfig
}

// LocalAddr 返回实际绑定的地址
func (n *Node) LocalAddr() *net.UDPAddr {
	return n.endpoint.LocalAddr()
}

// Connect 连接 addr（"host:port"），使用节点的客户端配置
//
// 配置了 DialTimeout 时，握手时间还受其限制。
func (n *Node) Connect(ctx context.Context, addr, serverName string) (*Connection, error) {
	if n.isClosed() {
		return nil, ErrNodeClosed
	}

	remote, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	if timeout := n.config.Transport.DialTimeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return n.endpoint.Connect(ctx, remote, n.clientConfig, serverName)
}

// Accept 等待下一个入站连接
func (n *Node) Accept(ctx context.Context) (*Connection, error) {
	if n.isClosed() {
		return nil, ErrNodeClosed
	}
	return n.incoming.Accept(ctx)
}

// Close 关闭节点，终止所有连接并释放 socket
//
// 可重复调用。
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := n.app.Stop(ctx); err != nil {
		logger.Warn("节点关闭出错", "error", err)
		return err
	}
	logger.Info("节点已关闭")
	return nil
}

// release 释放启动失败时已经绑定的端点
func (n *Node) release() {
	if n.endpoint != nil {
		_ = n.endpoint.Close()
	}
}

func (n *Node) isClosed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.closed
}
