// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"fmt"
	"time"

	"github.com/quic-go/quic-go"
)

// disabledIdleTimeout 空闲超时被禁用时交给 quic-go 的值
//
// quic-go 无法表达"永不超时"（0 表示默认 30s），这里使用一个足够长的值。
// 握手时双方取较小值，对端配置了超时则以对端为准。
const disabledIdleTimeout = 365 * 24 * time.Hour

// 流数量上限
const (
	maxIncomingStreams    = 1024
	maxIncomingUniStreams = 1024
)

// TransportParameters 传输参数
//
// 构建后不可变，由嵌入它的 ClientConfig / ServerConfig 独占。
// IdleTimeout 为 0 表示禁用空闲超时；KeepAliveInterval 为 0 表示不发送 KeepAlive。
//
// 注意：IdleTimeout 应大于 KeepAliveInterval，否则连接可能在发送 KeepAlive
// 之前就被回收。BuildTransport 不做此检查，调用方可以使用 Validate。
type TransportParameters struct {
	IdleTimeout       time.Duration
	KeepAliveInterval time.Duration
}

// BuildTransport 构建传输参数
//
// 参数：
//   - idleTimeoutMs: 空闲超时（毫秒），0 表示禁用
//   - keepAliveMs: KeepAlive 间隔（毫秒）
func BuildTransport(idleTimeoutMs uint64, keepAliveMs uint32) TransportParameters {
	return TransportParameters{
		IdleTimeout:       time.Duration(idleTimeoutMs) * time.Millisecond,
		KeepAliveInterval: time.Duration(keepAliveMs) * time.Millisecond,
	}
}

// IdleTimeoutDisabled 空闲超时是否被禁用
func (p TransportParameters) IdleTimeoutDisabled() bool {
	return p.IdleTimeout == 0
}

// Validate 检查空闲超时与 KeepAlive 间隔是否一致
func (p TransportParameters) Validate() error {
	if p.IdleTimeoutDisabled() || p.KeepAliveInterval == 0 {
		return nil
	}
	if p.IdleTimeout <= p.KeepAliveInterval {
		return fmt.Errorf("%w: idle %s, keep-alive %s",
			ErrInconsistentTransport, p.IdleTimeout, p.KeepAliveInterval)
	}
	return nil
}

// String 返回便于日志的表示
func (p TransportParameters) String() string {
	idle := "disabled"
	if !p.IdleTimeoutDisabled() {
		idle = p.IdleTimeout.String()
	}
	return fmt.Sprintf("idle=%s keepalive=%s", idle, p.KeepAliveInterval)
}

// quicConfig 转换为 quic-go 配置
//
// 每次调用返回新对象，quic-go 会在内部填充默认值。
func (p TransportParameters) quicConfig() *quic.Config {
	idle := p.IdleTimeout
	if p.IdleTimeoutDisabled() {
		idle = disabledIdleTimeout
	}
	return &quic.Config{
		MaxIdleTimeout:        idle,
		KeepAlivePeriod:       p.KeepAliveInterval,
		MaxIncomingStreams:    maxIncomingStreams,
		MaxIncomingUniStreams: maxIncomingUniStreams,
	}
}
