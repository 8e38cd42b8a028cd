package quicpeer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dep2p/go-quicpeer/config"
)

// Option 节点配置选项
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 在调用方配置的副本上修改
	config *config.Config

	// fxLogger Fx 内部事件日志，nil 时丢弃
	fxLogger *zap.Logger

	// registerer 非 nil 时安装 Prometheus 指标
	registerer prometheus.Registerer
}

// WithListen 设置本地绑定地址
func WithListen(addr string) Option {
	return func(o *options) error {
		if addr == "" {
			return errors.New("listen address is empty")
		}
		o.config.Listen = addr
		return nil
	}
}

// WithIdentityFiles 使用 PEM 证书和私钥文件作为服务端身份
func WithIdentityFiles(certFile, keyFile string) Option {
	return func(o *options) error {
		o.config.Security.CertFile = certFile
		o.config.Security.KeyFile = keyFile
		return nil
	}
}

// WithTransport 设置空闲超时和 KeepAlive 间隔，0 表示禁用
func WithTransport(idleTimeout, keepAlive time.Duration) Option {
	return func(o *options) error {
		if idleTimeout < 0 || keepAlive < 0 {
			return errors.New("transport durations must not be negative")
		}
		if keepAlive.Milliseconds() > math.MaxUint32 {
			return fmt.Errorf("keep-alive %s exceeds %d ms", keepAlive, uint32(math.MaxUint32))
		}
		o.config.Transport = o.config.Transport.WithIdleTimeout(idleTimeout).WithKeepAlive(keepAlive)
		return nil
	}
}

// WithAcceptAnyCertificate 出站连接接受任意证书
//
// 对端身份不会被验证，仅用于测试或本地引导。
func WithAcceptAnyCertificate() Option {
	return func(o *options) error {
		o.config.Security.Trust.Mode = config.TrustModeAcceptAny
		return nil
	}
}

// WithPinnedCertificates 出站连接只接受指定指纹的证书
func WithPinnedCertificates(pins ...string) Option {
	return func(o *options) error {
		if len(pins) == 0 {
			return config.ErrNoPins
		}
		o.config.Security.Trust.Mode = config.TrustModePinned
		o.config.Security.Trust.Pins = append([]string(nil), pins...)
		return nil
	}
}

// WithFxLogger 输出 Fx 内部事件日志
func WithFxLogger(logger *zap.Logger) Option {
	return func(o *options) error {
		o.fxLogger = logger
		return nil
	}
}

// WithServerNames 设置自签名证书包含的名称
//
// 只在未配置证书文件时生效。
func WithServerNames(names ...string) Option {
	return func(o *options) error {
		if len(names) == 0 {
			return errors.New("no server names")
		}
		o.config.Security.ServerNames = append([]string(nil), names...)
		return nil
	}
}

// WithMetrics 启用 Prometheus 指标并注册到 reg
//
// 指标是进程级的：同一进程中的所有端点共用一组计数。
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return errors.New("nil registerer")
		}
		o.registerer = reg
		return nil
	}
}
