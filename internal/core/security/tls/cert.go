// Package tls 提供 QUIC 端点使用的证书材料
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// 自签名证书有效期
const selfSignedValidity = 365 * 24 * time.Hour

// GenerateSelfSigned 生成自签名证书
//
// names 中的 IP 字面量写入 IPAddresses，其余写入 DNSNames，
// 第一个名字同时作为 CommonName。使用 ECDSA P-256 密钥。
//
// 返回：
//   - certDER: DER 编码的证书
//   - keyDER: PKCS#8 DER 编码的私钥
func GenerateSelfSigned(names ...string) (certDER, keyDER []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("生成私钥失败: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("生成序列号失败: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"quicpeer"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		// 自签名证书自身充当信任锚，便于 Strict 策略把它放进根证书池
		IsCA: true,
	}
	for i, name := range names {
		if i == 0 {
			template.Subject.CommonName = name
		}
		if ip := net.ParseIP(name); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, name)
		}
	}

	certDER, err = x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("创建证书失败: %w", err)
	}

	keyDER, err = x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("编码私钥失败: %w", err)
	}

	return certDER, keyDER, nil
}

// LoadPEMFiles 从文件加载证书链和私钥
func LoadPEMFiles(certFile, keyFile string) (chain [][]byte, keyDER []byte, err error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取证书文件失败: %w", err)
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取私钥文件失败: %w", err)
	}

	return DecodePEM(certPEM, keyPEM)
}

// DecodePEM 解码 PEM 格式的证书链和私钥
//
// 证书按出现顺序返回（叶子证书在前）。私钥取第一个 *PRIVATE KEY 块，
// 不检查与证书是否匹配，这一步由配置构建时完成。
func DecodePEM(certPEM, keyPEM []byte) (chain [][]byte, keyDER []byte, err error) {
	for {
		var block *pem.Block
		block, certPEM = pem.Decode(certPEM)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}
	if len(chain) == 0 {
		return nil, nil, ErrNoCertificate
	}

	for {
		var block *pem.Block
		block, keyPEM = pem.Decode(keyPEM)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			return chain, block.Bytes, nil
		}
	}

	return nil, nil, ErrNoPrivateKey
}

// EncodePEM 将 DER 证书和私钥编码为 PEM
func EncodePEM(certDER, keyDER []byte) (certPEM, keyPEM []byte) {
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

// LoadCertPool 从 PEM 文件加载根证书池
func LoadCertPool(file string) (*x509.CertPool, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("读取根证书文件失败: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, ErrNoCertificate
	}
	return pool, nil
}
