// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// ALPN 应用层协议标识，双方必须一致
const ALPN = "quicpeer/1"

// Identity 本地身份
//
// CertificateChain 为 DER 编码的证书链（叶子证书在前），
// PrivateKey 为 DER 编码的私钥（PKCS#8、PKCS#1 或 SEC 1）。
// 只有接受连接的一方需要。
type Identity struct {
	CertificateChain [][]byte
	PrivateKey       []byte
}

// ClientConfig 发起连接的配置
//
// 构建后不可变，同一端点发起的所有连接共享。
type ClientConfig struct {
	transport TransportParameters
	trust     TrustPolicy
}

// BuildClientConfig 组合传输参数和信任策略，总是成功
func BuildClientConfig(transport TransportParameters, trust TrustPolicy) ClientConfig {
	if trust.Kind() == TrustAcceptAny {
		logger.Warn("客户端配置使用 AcceptAny 信任策略，对端身份不会被验证")
	}
	return ClientConfig{transport: transport, trust: trust}
}

// Transport 返回传输参数
func (c ClientConfig) Transport() TransportParameters {
	return c.transport
}

// Trust 返回信任策略
func (c ClientConfig) Trust() TrustPolicy {
	return c.trust
}

// tlsConfig 为一次连接尝试生成 TLS 配置
//
// 所有策略（包括 Strict）都通过 VerifyPeerCertificate 走 TrustPolicy.Verify，
// 标准库自身的验证因此关闭。
func (c ClientConfig) tlsConfig(serverName string) *tls.Config {
	trust := c.trust
	return &tls.Config{
		ServerName:         serverName,
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			return trust.Verify(rawCerts, serverName)
		},
	}
}

// ServerConfig 接受连接的配置
//
// 构建后不可变，同一端点接受的所有连接共享。无状态重试总是启用。
type ServerConfig struct {
	transport      TransportParameters
	certificate    tls.Certificate
	statelessRetry bool
}

// BuildServerConfig 组合传输参数和本地身份
//
// 证书链为空、证书或私钥无法解析、私钥与叶子证书不匹配时返回
// 包装了 ErrInvalidIdentity 的错误。不访问网络和磁盘。
func BuildServerConfig(transport TransportParameters, identity Identity) (ServerConfig, error) {
	cert, err := identity.certificate()
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}

	return ServerConfig{
		transport:      transport,
		certificate:    cert,
		statelessRetry: true,
	}, nil
}

// Transport 返回传输参数
func (c ServerConfig) Transport() TransportParameters {
	return c.transport
}

// StatelessRetry 是否启用无状态重试
func (c ServerConfig) StatelessRetry() bool {
	return c.statelessRetry
}

// Leaf 返回叶子证书
func (c ServerConfig) Leaf() *x509.Certificate {
	return c.certificate.Leaf
}

// tlsConfig 生成服务端 TLS 配置
func (c ServerConfig) tlsConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{c.certificate},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}
}

// certificate 校验身份并组装 tls.Certificate
func (id Identity) certificate() (tls.Certificate, error) {
	if len(id.CertificateChain) == 0 {
		return tls.Certificate{}, errors.New("empty certificate chain")
	}

	var leaf *x509.Certificate
	for i, der := range id.CertificateChain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("parse certificate %d: %w", i, err)
		}
		if i == 0 {
			leaf = cert
		}
	}

	key, err := parsePrivateKey(id.PrivateKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	pub, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(key.Public()) {
		return tls.Certificate{}, errors.New("private key does not match leaf certificate")
	}

	chain := make([][]byte, len(id.CertificateChain))
	for i, der := range id.CertificateChain {
		chain[i] = append([]byte(nil), der...)
	}

	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// parsePrivateKey 依次尝试 PKCS#8、PKCS#1、SEC 1
func parsePrivateKey(der []byte) (crypto.Signer, error) {
	if len(der) == 0 {
		return nil, errors.New("empty private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", key)
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}

	return nil, errors.New("malformed private key")
}
