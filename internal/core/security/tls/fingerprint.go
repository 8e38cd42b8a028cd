// Package tls 提供 QUIC 端点使用的证书材料
package tls

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint 证书指纹（叶子证书 DER 的 SHA-256）
type Fingerprint [sha256.Size]byte

// FingerprintFromDER 计算 DER 证书的指纹
func FingerprintFromDER(certDER []byte) Fingerprint {
	return sha256.Sum256(certDER)
}

// ParseFingerprint 解析十六进制指纹
//
// 允许 "ab:cd:..." 形式的冒号分隔写法，大小写不敏感。
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint

	raw, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(s), ":", ""))
	if err != nil {
		return fp, fmt.Errorf("%w: %v", ErrInvalidFingerprint, err)
	}
	if len(raw) != len(fp) {
		return fp, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFingerprint, len(fp), len(raw))
	}

	copy(fp[:], raw)
	return fp, nil
}

// Equal 常量时间比较
func (fp Fingerprint) Equal(other Fingerprint) bool {
	return subtle.ConstantTimeCompare(fp[:], other[:]) == 1
}

// String 返回小写十六进制表示
func (fp Fingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

// Short 返回前 8 个字符，用于日志
func (fp Fingerprint) Short() string {
	return fp.String()[:8]
}
