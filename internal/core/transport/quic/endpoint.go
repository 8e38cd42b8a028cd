// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"

	"github.com/dep2p/go-quicpeer/internal/core/metrics"
	"github.com/dep2p/go-quicpeer/pkg/lib/log"
)

var logger = log.Logger("core/transport/quic")

// Endpoint 绑定到一个 UDP socket 的本地端点
//
// 同一个 socket 上既监听入站连接（服务端配置），也发起出站连接。
// 可以被多个 goroutine 并发使用；quic-go 负责按连接分发收到的数据包。
type Endpoint struct {
	id           string
	conn         net.PacketConn
	transport    *quic.Transport
	listener     *quic.Listener
	serverConfig ServerConfig

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Incoming 入站连接序列
//
// 与 Endpoint 一一对应，共享同一个 socket。每次 Accept 独立等待下一个完成握手的连接。
type Incoming struct {
	endpoint *Endpoint
}

// Bind 绑定 UDP socket 并挂载服务端配置
//
// localAddr 的端口可以为 0，由系统分配。socket 获取之后的任何一步失败
// （包括 ctx 被取消）都会先释放 socket 再返回。不做重试。
//
// 返回：
//   - *Endpoint: 用于发起连接
//   - *Incoming: 用于接受连接
func Bind(ctx context.Context, serverConfig ServerConfig, localAddr *net.UDPAddr) (_ *Endpoint, _ *Incoming, err error) {
	if localAddr == nil {
		return nil, nil, &BindError{Kind: BindSocketFailed, Err: errors.New("nil local address")}
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", localAddr.String())
	if err != nil {
		return nil, nil, newBindError(localAddr, err)
	}

	transport := &quic.Transport{Conn: conn}
	if serverConfig.StatelessRetry() {
		// 每个新连接都必须先通过 Retry 证明地址所有权
		transport.VerifySourceAddress = func(net.Addr) bool { return true }
	}

	listening := false
	defer func() {
		if err == nil {
			return
		}
		if listening {
			_ = transport.Close()
		}
		_ = conn.Close()
	}()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	listening = true
	listener, err := transport.Listen(serverConfig.tlsConfig(), serverConfig.Transport().quicConfig())
	if err != nil {
		return nil, nil, &BindError{
			Kind: BindEndpointSetupFailed,
			Addr: localAddr.String(),
			Port: localAddr.Port,
			Err:  err,
		}
	}

	ep := &Endpoint{
		id:           uuid.NewString(),
		conn:         conn,
		transport:    transport,
		listener:     listener,
		serverConfig: serverConfig,
	}

	metrics.Endpoints().Inc()
	logger.Info("端点已绑定",
		"endpoint", log.TruncateID(ep.id, 8),
		"addr", conn.LocalAddr().String(),
		"transport", serverConfig.Transport().String(),
		"statelessRetry", serverConfig.StatelessRetry())

	return ep, &Incoming{endpoint: ep}, nil
}

// ID 返回端点 ID（仅用于日志关联）
func (e *Endpoint) ID() string {
	return e.id
}

// LocalAddr 返回实际绑定的地址
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	if addr, ok := e.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr
	}
	addr, _ := net.ResolveUDPAddr("udp", e.conn.LocalAddr().String())
	return addr
}

// ServerConfig 返回挂载的服务端配置
func (e *Endpoint) ServerConfig() ServerConfig {
	return e.serverConfig
}

// Connect 向 remote 发起连接，阻塞直到握手完成或失败
//
// serverName 是对端证书需要匹配的名称（AcceptAny 策略下被忽略）。
// 失败时返回的错误可与 ErrHandshakeFailed / ErrConnectionTimedOut /
// ErrPeerRejected / ErrEndpointClosed 匹配，ctx 取消时返回 ctx 的错误。不做重试。
func (e *Endpoint) Connect(ctx context.Context, remote *net.UDPAddr, cfg ClientConfig, serverName string) (*Connection, error) {
	if e.closed.Load() {
		return nil, ErrEndpointClosed
	}
	if remote == nil {
		return nil, fmt.Errorf("%w: nil remote address", ErrHandshakeFailed)
	}

	logger.Debug("发起连接",
		"endpoint", log.TruncateID(e.id, 8),
		"remote", remote.String(),
		"serverName", serverName,
		"trust", cfg.Trust().String())

	qc, err := e.transport.Dial(ctx, remote, cfg.tlsConfig(serverName), cfg.Transport().quicConfig())
	if err != nil {
		if e.closed.Load() {
			return nil, ErrEndpointClosed
		}
		err = classifyConnError(err)
		metrics.ConnectErrors(errorReason(err)).Inc()
		logger.Debug("连接失败", "remote", remote.String(), "error", err)
		return nil, fmt.Errorf("connect %s: %w", remote, err)
	}

	c := newConnection(qc, DirOutbound)
	metrics.Connections(c.dir.String()).Inc()
	logger.Debug("连接已建立", "conn", log.TruncateID(c.ID(), 8), "remote", remote.String())
	return c, nil
}

// Close 关闭端点
//
// 依次关闭监听器、quic.Transport（会终止其上所有连接）和 socket。可重复调用。
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.closeErr = multierr.Combine(
			e.listener.Close(),
			e.transport.Close(),
			e.conn.Close(),
		)
		metrics.Endpoints().Dec()
		logger.Info("端点已关闭", "endpoint", log.TruncateID(e.id, 8), "error", e.closeErr)
	})
	return e.closeErr
}

// IsClosed 端点是否已关闭
func (e *Endpoint) IsClosed() bool {
	return e.closed.Load()
}

// Accept 等待下一个完成握手的入站连接
//
// 端点关闭后返回 ErrEndpointClosed。
func (in *Incoming) Accept(ctx context.Context) (*Connection, error) {
	if in.endpoint.closed.Load() {
		return nil, ErrEndpointClosed
	}

	qc, err := in.endpoint.listener.Accept(ctx)
	if err != nil {
		if in.endpoint.closed.Load() || errors.Is(err, quic.ErrServerClosed) {
			return nil, ErrEndpointClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}

	c := newConnection(qc, DirInbound)
	metrics.Connections(c.dir.String()).Inc()
	logger.Debug("接受连接", "conn", log.TruncateID(c.ID(), 8), "remote", qc.RemoteAddr().String())
	return c, nil
}

// Addr 返回监听地址
func (in *Incoming) Addr() net.Addr {
	return in.endpoint.listener.Addr()
}

// Endpoint 返回所属端点
func (in *Incoming) Endpoint() *Endpoint {
	return in.endpoint
}
