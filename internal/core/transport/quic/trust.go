// Package quic 基于 quic-go 引导安全的多路复用连接
package quic

import (
	"crypto/x509"
	"fmt"

	sectls "github.com/dep2p/go-quicpeer/internal/core/security/tls"
)

// TrustKind 信任策略类别
type TrustKind int

const (
	// TrustStrict 标准证书链验证（零值）
	TrustStrict TrustKind = iota
	// TrustAcceptAny 接受任意证书，仅用于测试和本地信任引导
	TrustAcceptAny
	// TrustPinned 叶子证书指纹必须在固定列表中
	TrustPinned
)

// String 返回类别名称
func (k TrustKind) String() string {
	switch k {
	case TrustStrict:
		return "strict"
	case TrustAcceptAny:
		return "accept-any"
	case TrustPinned:
		return "pinned"
	default:
		return fmt.Sprintf("TrustKind(%d)", int(k))
	}
}

// TrustPolicy 证书验证策略
//
// 封闭的策略类型，只能通过 StrictTrust / InsecureAcceptAnyCertificate /
// PinnedTrust 构造。零值等价于使用系统根证书的 Strict 策略，
// 因此不安全的 AcceptAny 永远不会被"默认"选中。
type TrustPolicy struct {
	kind  TrustKind
	roots *x509.CertPool
	pins  []sectls.Fingerprint
}

// StrictTrust 标准链验证，roots 为 nil 时使用系统根证书
func StrictTrust(roots *x509.CertPool) TrustPolicy {
	return TrustPolicy{kind: TrustStrict, roots: roots}
}

// InsecureAcceptAnyCertificate 接受任意证书
//
// 选择此策略即放弃对端身份保证：出示任何证书（包括与期望名称不符的证书）
// 的对端都被视为已验证。只能用于测试或本地信任引导，不能用于生产环境的对端认证。
func InsecureAcceptAnyCertificate() TrustPolicy {
	return TrustPolicy{kind: TrustAcceptAny}
}

// PinnedTrust 只接受叶子证书指纹在 pins 中的对端，服务器名称不参与验证
func PinnedTrust(pins ...sectls.Fingerprint) TrustPolicy {
	return TrustPolicy{kind: TrustPinned, pins: append([]sectls.Fingerprint(nil), pins...)}
}

// Kind 返回策略类别
func (p TrustPolicy) Kind() TrustKind {
	return p.kind
}

// String 返回策略名称
func (p TrustPolicy) String() string {
	return p.kind.String()
}

// Verify 验证对端出示的证书链
//
// rawCerts 为 DER 编码的证书链，叶子证书在前；serverName 为期望的对端名称。
// 拒绝时返回包装了 ErrCertificateRejected 的错误。
func (p TrustPolicy) Verify(rawCerts [][]byte, serverName string) error {
	switch p.kind {
	case TrustAcceptAny:
		return nil
	case TrustPinned:
		return p.verifyPinned(rawCerts)
	case TrustStrict:
		return p.verifyStrict(rawCerts, serverName)
	default:
		return fmt.Errorf("%w: unknown trust policy %s", ErrCertificateRejected, p.kind)
	}
}

func (p TrustPolicy) verifyStrict(rawCerts [][]byte, serverName string) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("%w: no certificate presented", ErrCertificateRejected)
	}

	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for i, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return fmt.Errorf("%w: parse certificate %d: %v", ErrCertificateRejected, i, err)
		}
		certs = append(certs, cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		Roots:         p.roots,
		Intermediates: intermediates,
		DNSName:       serverName,
	}
	if _, err := certs[0].Verify(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrCertificateRejected, err)
	}
	return nil
}

func (p TrustPolicy) verifyPinned(rawCerts [][]byte) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("%w: no certificate presented", ErrCertificateRejected)
	}

	fp := sectls.FingerprintFromDER(rawCerts[0])
	for _, pin := range p.pins {
		if pin.Equal(fp) {
			return nil
		}
	}
	return fmt.Errorf("%w: fingerprint %s is not pinned", ErrCertificateRejected, fp.Short())
}
