package config

import (
	"fmt"
	"time"
)

// TransportConfig 传输层配置
type TransportConfig struct {
	// QUIC 传输参数
	QUIC QUICConfig `json:"quic" toml:"quic"`

	// DialTimeout 拨号超时，0 表示只受调用方 ctx 控制
	DialTimeout Duration `json:"dial_timeout" toml:"dial_timeout"`
}

// QUICConfig QUIC 传输参数
//
// 单位与 quic.BuildTransport 一致（毫秒），0 表示禁用。
type QUICConfig struct {
	// IdleTimeoutMs 最大空闲超时（毫秒）
	IdleTimeoutMs uint64 `json:"idle_timeout_ms" toml:"idle_timeout_ms"`

	// KeepAliveMs 保活间隔（毫秒）
	KeepAliveMs uint32 `json:"keep_alive_ms" toml:"keep_alive_ms"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		QUIC: QUICConfig{
			IdleTimeoutMs: 30_000,
			KeepAliveMs:   10_000,
		},
		DialTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	q := c.QUIC
	if q.IdleTimeoutMs > 0 && q.KeepAliveMs > 0 && uint64(q.KeepAliveMs) >= q.IdleTimeoutMs {
		return fmt.Errorf("%w: idle %dms, keep-alive %dms", ErrInvalidTimeouts, q.IdleTimeoutMs, q.KeepAliveMs)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("dial timeout must not be negative: %s", c.DialTimeout)
	}
	return nil
}

// WithIdleTimeout 设置空闲超时
func (c TransportConfig) WithIdleTimeout(d time.Duration) TransportConfig {
	c.QUIC.IdleTimeoutMs = uint64(d.Milliseconds())
	return c
}

// WithKeepAlive 设置保活间隔
//
// d 超过 math.MaxUint32 毫秒时会被截断，调用方需要先检查范围。
func (c TransportConfig) WithKeepAlive(d time.Duration) TransportConfig {
	c.QUIC.KeepAliveMs = uint32(d.Milliseconds())
	return c
}
