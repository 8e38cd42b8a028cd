package quic

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/fx"

	"github.com/dep2p/go-quicpeer/config"
	sectls "github.com/dep2p/go-quicpeer/internal/core/security/tls"
)

// EndpointOutput Fx 输出
type EndpointOutput struct {
	fx.Out

	Endpoint *Endpoint
	Incoming *Incoming
}

// Module 返回 Fx 模块
//
// 依赖 *config.Config，提供 TransportParameters、TrustPolicy、Identity、
// ClientConfig、ServerConfig 以及已绑定的 *Endpoint / *Incoming。
// 应用停止时关闭端点。
func Module() fx.Option {
	return fx.Module("quic",
		fx.Provide(
			ProvideTransportParameters,
			ProvideTrustPolicy,
			ProvideIdentity,
			ProvideClientConfig,
			ProvideServerConfig,
			ProvideEndpoint,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideTransportParameters 从统一配置提供传输参数
func ProvideTransportParameters(cfg *config.Config) (TransportParameters, error) {
	q := cfg.Transport.QUIC
	params := BuildTransport(q.IdleTimeoutMs, q.KeepAliveMs)
	if err := params.Validate(); err != nil {
		return TransportParameters{}, err
	}
	return params, nil
}

// ProvideTrustPolicy 从统一配置提供信任策略
func ProvideTrustPolicy(cfg *config.Config) (TrustPolicy, error) {
	trust := cfg.Security.Trust

	switch trust.Mode {
	case config.TrustModeAcceptAny:
		return InsecureAcceptAnyCertificate(), nil

	case config.TrustModePinned:
		pins, err := trust.Fingerprints()
		if err != nil {
			return TrustPolicy{}, err
		}
		return PinnedTrust(pins...), nil

	case config.TrustModeStrict, "":
		if trust.RootCAFile == "" {
			return StrictTrust(nil), nil
		}
		roots, err := sectls.LoadCertPool(trust.RootCAFile)
		if err != nil {
			return TrustPolicy{}, err
		}
		return StrictTrust(roots), nil

	default:
		return TrustPolicy{}, fmt.Errorf("%w: %q", config.ErrUnknownTrustMode, trust.Mode)
	}
}

// ProvideIdentity 提供服务端身份
//
// 配置了证书文件时从文件加载，否则按 ServerNames 生成自签名证书。
func ProvideIdentity(cfg *config.Config) (Identity, error) {
	sec := cfg.Security

	if sec.HasIdentityFiles() {
		chain, key, err := sectls.LoadPEMFiles(sec.CertFile, sec.KeyFile)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
		}
		return Identity{CertificateChain: chain, PrivateKey: key}, nil
	}

	certDER, keyDER, err := sectls.GenerateSelfSigned(sec.ServerNames...)
	if err != nil {
		return Identity{}, err
	}
	fp := sectls.FingerprintFromDER(certDER)
	logger.Info("使用自签名证书", "names", sec.ServerNames, "fingerprint", fp.String())

	return Identity{CertificateChain: [][]byte{certDER}, PrivateKey: keyDER}, nil
}

// ProvideClientConfig 提供客户端配置
func ProvideClientConfig(params TransportParameters, trust TrustPolicy) ClientConfig {
	return BuildClientConfig(params, trust)
}

// ProvideServerConfig 提供服务端配置
func ProvideServerConfig(params TransportParameters, identity Identity) (ServerConfig, error) {
	return BuildServerConfig(params, identity)
}

// ProvideEndpoint 绑定 cfg.Listen 并提供端点
func ProvideEndpoint(cfg *config.Config, sc ServerConfig) (EndpointOutput, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return EndpointOutput{}, &BindError{Kind: BindSocketFailed, Addr: cfg.Listen, Err: err}
	}

	ep, incoming, err := Bind(context.Background(), sc, addr)
	if err != nil {
		return EndpointOutput{}, err
	}
	return EndpointOutput{Endpoint: ep, Incoming: incoming}, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, ep *Endpoint) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return ep.Close()
		},
	})
}
