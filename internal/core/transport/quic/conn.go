// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-quicpeer/internal/core/metrics"
	"github.com/dep2p/go-quicpeer/pkg/lib/log"
)

// Direction 连接方向
type Direction int

const (
	// DirOutbound 本地发起
	DirOutbound Direction = iota
	// DirInbound 对端发起
	DirInbound
)

// String 返回方向名称
func (d Direction) String() string {
	if d == DirInbound {
		return "inbound"
	}
	return "outbound"
}

// Connection 一条已完成握手的 QUIC 连接
//
// 从握手完成存续到显式关闭或空闲超时。可被多个 goroutine 并发使用；
// 流的打开和接受都可以并发进行。
type Connection struct {
	id     string
	qc     quic.Connection
	dir    Direction
	opened time.Time
}

func newConnection(qc quic.Connection, dir Direction) *Connection {
	return &Connection{
		id:     uuid.NewString(),
		qc:     qc,
		dir:    dir,
		opened: time.Now(),
	}
}

// ID 返回连接 ID（仅用于日志关联）
func (c *Connection) ID() string {
	return c.id
}

// Direction 返回连接方向
func (c *Connection) Direction() Direction {
	return c.dir
}

// Opened 返回握手完成的时间
func (c *Connection) Opened() time.Time {
	return c.opened
}

// LocalAddr 返回本地地址
func (c *Connection) LocalAddr() net.Addr {
	return c.qc.LocalAddr()
}

// RemoteAddr 返回远端地址
func (c *Connection) RemoteAddr() net.Addr {
	return c.qc.RemoteAddr()
}

// PeerCertificates 返回对端出示的证书链
func (c *Connection) PeerCertificates() []*x509.Certificate {
	return c.qc.ConnectionState().TLS.PeerCertificates
}

// OpenBi 打开双向流，流数量达到上限时阻塞
func (c *Connection) OpenBi(ctx context.Context) (*BiStream, error) {
	s, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, c.wrapErr(err)
	}
	metrics.Streams("bi", "outbound").Inc()
	return newBiStream(s), nil
}

// OpenUni 打开单向发送流，流数量达到上限时阻塞
func (c *Connection) OpenUni(ctx context.Context) (*SendStream, error) {
	s, err := c.qc.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, c.wrapErr(err)
	}
	metrics.Streams("uni", "outbound").Inc()
	return newSendStream(s), nil
}

// AcceptBi 等待对端打开的下一个双向流
//
// 对端打开流后要写入数据（或结束发送）才会在这一侧出现。
func (c *Connection) AcceptBi(ctx context.Context) (*BiStream, error) {
	s, err := c.qc.AcceptStream(ctx)
	if err != nil {
		return nil, c.wrapErr(err)
	}
	metrics.Streams("bi", "inbound").Inc()
	return newBiStream(s), nil
}

// AcceptUni 等待对端打开的下一个单向流
func (c *Connection) AcceptUni(ctx context.Context) (*RecvStream, error) {
	s, err := c.qc.AcceptUniStream(ctx)
	if err != nil {
		return nil, c.wrapErr(err)
	}
	metrics.Streams("uni", "inbound").Inc()
	return newRecvStream(s), nil
}

// Close 以无错误码关闭连接
func (c *Connection) Close() error {
	return c.CloseWithError(0, "")
}

// CloseWithError 以应用错误码关闭连接
func (c *Connection) CloseWithError(code uint64, reason string) error {
	logger.Debug("关闭连接", "conn", log.TruncateID(c.id, 8), "code", code, "reason", reason)
	return c.qc.CloseWithError(quic.ApplicationErrorCode(code), reason)
}

// Done 连接终止时关闭
func (c *Connection) Done() <-chan struct{} {
	return c.qc.Context().Done()
}

// Err 返回连接终止原因，连接存活时返回 nil
//
// 空闲超时可与 ErrConnectionTimedOut 匹配，本地关闭与 ErrConnectionClosed 匹配，
// 对端关闭与 ErrPeerRejected 匹配。
func (c *Connection) Err() error {
	ctx := c.qc.Context()
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return ErrConnectionClosed
	}
	return classifyConnError(cause)
}

// wrapErr 归类流操作返回的错误
//
// ctx 错误原样返回；连接已终止时返回终止原因。
func (c *Connection) wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return classifyConnError(err)
}
