// Package tls 提供 QUIC 端点使用的证书材料
package tls

import "errors"

// 证书材料相关错误
var (
	// ErrNoCertificate PEM 数据中没有证书
	ErrNoCertificate = errors.New("tls: no certificate in PEM data")

	// ErrNoPrivateKey PEM 数据中没有私钥
	ErrNoPrivateKey = errors.New("tls: no private key in PEM data")

	// ErrInvalidFingerprint 指纹格式无效
	ErrInvalidFingerprint = errors.New("tls: invalid fingerprint")
)
