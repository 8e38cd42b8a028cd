// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/quic-go/quic-go"
)

// 配置错误
var (
	// ErrInvalidIdentity 证书链与私钥无法组成有效身份
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrInconsistentTransport 空闲超时不大于 KeepAlive 间隔
	ErrInconsistentTransport = errors.New("idle timeout must exceed keep-alive interval")
)

// 绑定错误
var (
	// ErrAddressInUse 地址已被占用
	ErrAddressInUse = errors.New("address in use")

	// ErrPermissionDenied 权限不足
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEndpointSetupFailed quic-go 拒绝 socket 与服务端配置的组合
	ErrEndpointSetupFailed = errors.New("endpoint setup failed")
)

// 握手与连接错误
var (
	// ErrHandshakeFailed 握手失败（协议或加密不匹配、证书被拒绝）
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrConnectionTimedOut 握手超时或空闲超时
	ErrConnectionTimedOut = errors.New("connection timed out")

	// ErrPeerRejected 对端主动拒绝或关闭
	ErrPeerRejected = errors.New("peer rejected connection")

	// ErrConnectionClosed 连接已被本地关闭
	ErrConnectionClosed = errors.New("connection closed")

	// ErrEndpointClosed 端点已关闭
	ErrEndpointClosed = errors.New("endpoint closed")

	// ErrCertificateRejected 信任策略拒绝了对端证书
	ErrCertificateRejected = errors.New("certificate rejected")
)

// 流错误，只影响单个流
var (
	// ErrUnexpectedEnd 流在读满之前结束
	ErrUnexpectedEnd = errors.New("stream finished early")

	// ErrSizeLimitExceeded 流数据超过读取上限
	ErrSizeLimitExceeded = errors.New("stream size limit exceeded")

	// ErrStreamReset 对端重置了流
	ErrStreamReset = errors.New("stream reset by peer")
)

// BindErrorKind 绑定失败的类别
type BindErrorKind int

const (
	// BindSocketFailed 其他 socket 错误
	BindSocketFailed BindErrorKind = iota
	// BindAddressInUse 地址已被占用
	BindAddressInUse
	// BindPermissionDenied 权限不足
	BindPermissionDenied
	// BindEndpointSetupFailed 端点装配失败
	BindEndpointSetupFailed
)

// String 返回类别名称
func (k BindErrorKind) String() string {
	switch k {
	case BindAddressInUse:
		return "address in use"
	case BindPermissionDenied:
		return "permission denied"
	case BindEndpointSetupFailed:
		return "endpoint setup failed"
	default:
		return "socket error"
	}
}

// BindError 绑定失败
//
// 携带尝试绑定的地址、端口和底层系统错误，errors.Is 可与
// ErrAddressInUse / ErrPermissionDenied / ErrEndpointSetupFailed 匹配。
type BindError struct {
	Kind BindErrorKind
	Addr string
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("could not bind to port %d (%s): %s: %v", e.Port, e.Addr, e.Kind, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Is 将类别映射到对应的哨兵错误
func (e *BindError) Is(target error) bool {
	switch e.Kind {
	case BindAddressInUse:
		return target == ErrAddressInUse
	case BindPermissionDenied:
		return target == ErrPermissionDenied
	case BindEndpointSetupFailed:
		return target == ErrEndpointSetupFailed
	}
	return false
}

func newBindError(addr *net.UDPAddr, err error) *BindError {
	kind := BindSocketFailed
	switch {
	case isAddrInUse(err):
		kind = BindAddressInUse
	case isPermissionDenied(err):
		kind = BindPermissionDenied
	}
	return &BindError{Kind: kind, Addr: addr.String(), Port: addr.Port, Err: err}
}

// classifyConnError 将 quic-go 的连接错误归类
//
// 用于 Connect 的握手失败以及连接终止原因。
func classifyConnError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// quic-go 的连接错误都满足 errors.Is(err, net.ErrClosed)，不能据此判断端点关闭
	if errors.Is(err, quic.ErrServerClosed) {
		return fmt.Errorf("%w: %w", ErrEndpointClosed, err)
	}

	var (
		idleErr      *quic.IdleTimeoutError
		handshakeErr *quic.HandshakeTimeoutError
		transportErr *quic.TransportError
		appErr       *quic.ApplicationError
		versionErr   *quic.VersionNegotiationError
	)

	switch {
	case errors.As(err, &idleErr), errors.As(err, &handshakeErr):
		return fmt.Errorf("%w: %w", ErrConnectionTimedOut, err)

	case errors.As(err, &appErr):
		if appErr.Remote {
			return fmt.Errorf("%w: %w", ErrPeerRejected, err)
		}
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)

	case errors.As(err, &transportErr):
		if transportErr.Remote && transportErr.ErrorCode == quic.ConnectionRefused {
			return fmt.Errorf("%w: %w", ErrPeerRejected, err)
		}
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)

	case errors.As(err, &versionErr):
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
}

// classifyStreamError 将流读写错误归类，io.EOF 原样返回
func classifyStreamError(err error) error {
	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		if streamErr.Remote {
			return fmt.Errorf("%w: %w", ErrStreamReset, err)
		}
		return err
	}
	return err
}

// errorReason 返回用于指标标签的错误类别
func errorReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrConnectionTimedOut):
		return "timeout"
	case errors.Is(err, ErrPeerRejected):
		return "rejected"
	case errors.Is(err, ErrEndpointClosed):
		return "endpoint_closed"
	default:
		return "handshake"
	}
}
