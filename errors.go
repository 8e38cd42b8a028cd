package quicpeer

import (
	"errors"

	"github.com/dep2p/go-quicpeer/internal/core/transport/quic"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ────────────────────────────────────────────────────────────────────────
	// 配置错误
	// ────────────────────────────────────────────────────────────────────────

	ErrInvalidIdentity       = quic.ErrInvalidIdentity
	ErrInconsistentTransport = quic.ErrInconsistentTransport

	// ────────────────────────────────────────────────────────────────────────
	// 绑定错误
	// ────────────────────────────────────────────────────────────────────────

	ErrAddressInUse        = quic.ErrAddressInUse
	ErrPermissionDenied    = quic.ErrPermissionDenied
	ErrEndpointSetupFailed = quic.ErrEndpointSetupFailed

	// ────────────────────────────────────────────────────────────────────────
	// 连接错误
	// ────────────────────────────────────────────────────────────────────────

	ErrHandshakeFailed     = quic.ErrHandshakeFailed
	ErrConnectionTimedOut  = quic.ErrConnectionTimedOut
	ErrPeerRejected        = quic.ErrPeerRejected
	ErrConnectionClosed    = quic.ErrConnectionClosed
	ErrEndpointClosed      = quic.ErrEndpointClosed
	ErrCertificateRejected = quic.ErrCertificateRejected

	// ────────────────────────────────────────────────────────────────────────
	// 流错误
	// ────────────────────────────────────────────────────────────────────────

	ErrUnexpectedEnd     = quic.ErrUnexpectedEnd
	ErrSizeLimitExceeded = quic.ErrSizeLimitExceeded
	ErrStreamReset       = quic.ErrStreamReset
)
