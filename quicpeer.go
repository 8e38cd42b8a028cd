package quicpeer

import (
	"context"
	"net"

	sectls "github.com/dep2p/go-quicpeer/internal/core/security/tls"
	"github.com/dep2p/go-quicpeer/internal/core/transport/quic"
)

// ════════════════════════════════════════════════════════════════════════════
//                              类型
// ════════════════════════════════════════════════════════════════════════════

type (
	// Endpoint 绑定到一个 UDP socket 的本地端点
	Endpoint = quic.Endpoint
	// Incoming 入站连接序列
	Incoming = quic.Incoming
	// Connection 已完成握手的连接
	Connection = quic.Connection
	// BiStream 双向流
	BiStream = quic.BiStream
	// SendStream 单向发送流
	SendStream = quic.SendStream
	// RecvStream 单向接收流
	RecvStream = quic.RecvStream
	// StreamState 流状态
	StreamState = quic.StreamState

	// TransportParameters 传输参数
	TransportParameters = quic.TransportParameters
	// TrustPolicy 证书验证策略
	TrustPolicy = quic.TrustPolicy
	// Identity 本地证书链与私钥
	Identity = quic.Identity
	// ClientConfig 发起连接的配置
	ClientConfig = quic.ClientConfig
	// ServerConfig 接受连接的配置
	ServerConfig = quic.ServerConfig

	// BindError 绑定失败
	BindError = quic.BindError
	// Fingerprint 证书指纹
	Fingerprint = sectls.Fingerprint
)

// 流状态
const (
	StreamOpen     = quic.StreamOpen
	StreamFinished = quic.StreamFinished
	StreamClosed   = quic.StreamClosed
)

// ALPN 应用层协议标识
const ALPN = quic.ALPN

// ════════════════════════════════════════════════════════════════════════════
//                              构建函数
// ════════════════════════════════════════════════════════════════════════════

// BuildTransport 构建传输参数，idleTimeoutMs 为 0 表示禁用空闲超时
func BuildTransport(idleTimeoutMs uint64, keepAliveMs uint32) TransportParameters {
	return quic.BuildTransport(idleTimeoutMs, keepAliveMs)
}

// StrictTrust 标准链验证，roots 为 nil 时使用系统根证书
var StrictTrust = quic.StrictTrust

// PinnedTrust 只接受指纹在 pins 中的证书
var PinnedTrust = quic.PinnedTrust

// InsecureAcceptAnyCertificate 接受任意证书，放弃对端身份保证
func InsecureAcceptAnyCertificate() TrustPolicy {
	return quic.InsecureAcceptAnyCertificate()
}

// BuildClientConfig 组合传输参数和信任策略
func BuildClientConfig(transport TransportParameters, trust TrustPolicy) ClientConfig {
	return quic.BuildClientConfig(transport, trust)
}

// BuildServerConfig 组合传输参数和本地身份
func BuildServerConfig(transport TransportParameters, identity Identity) (ServerConfig, error) {
	return quic.BuildServerConfig(transport, identity)
}

// Bind 绑定 UDP socket 并挂载服务端配置
func Bind(ctx context.Context, serverConfig ServerConfig, localAddr *net.UDPAddr) (*Endpoint, *Incoming, error) {
	return quic.Bind(ctx, serverConfig, localAddr)
}

// GenerateIdentity 生成自签名身份，names 写入证书的 SAN
func GenerateIdentity(names ...string) (Identity, error) {
	certDER, keyDER, err := sectls.GenerateSelfSigned(names...)
	if err != nil {
		return Identity{}, err
	}
	return Identity{CertificateChain: [][]byte{certDER}, PrivateKey: keyDER}, nil
}

// LoadIdentity 从 PEM 文件加载身份
func LoadIdentity(certFile, keyFile string) (Identity, error) {
	chain, key, err := sectls.LoadPEMFiles(certFile, keyFile)
	if err != nil {
		return Identity{}, err
	}
	return Identity{CertificateChain: chain, PrivateKey: key}, nil
}

// ParseFingerprint 解析十六进制证书指纹
func ParseFingerprint(s string) (Fingerprint, error) {
	return sectls.ParseFingerprint(s)
}

// FingerprintOf 返回身份叶子证书的指纹
func FingerprintOf(id Identity) Fingerprint {
	if len(id.CertificateChain) == 0 {
		return Fingerprint{}
	}
	return sectls.FingerprintFromDER(id.CertificateChain[0])
}
