package config

import (
	"fmt"

	sectls "github.com/dep2p/go-quicpeer/internal/core/security/tls"
)

// 信任模式
const (
	// TrustModeStrict 按系统根证书（或 RootCAFile）校验证书链和名称
	TrustModeStrict = "strict"

	// TrustModeAcceptAny 接受任意证书，仅用于测试
	TrustModeAcceptAny = "accept-any"

	// TrustModePinned 只接受指纹匹配的证书
	TrustModePinned = "pinned"
)

// SecurityConfig 安全配置
type SecurityConfig struct {
	// CertFile PEM 证书链文件
	// 与 KeyFile 都为空时启动会生成自签名证书
	CertFile string `json:"cert_file,omitempty" toml:"cert_file,omitempty"`

	// KeyFile PEM 私钥文件
	KeyFile string `json:"key_file,omitempty" toml:"key_file,omitempty"`

	// ServerNames 自签名证书包含的名称
	ServerNames []string `json:"server_names,omitempty" toml:"server_names,omitempty"`

	// Trust 出站连接的信任策略
	Trust TrustConfig `json:"trust" toml:"trust"`
}

// TrustConfig 信任策略配置
type TrustConfig struct {
	// Mode 可选值: "strict", "accept-any", "pinned"
	Mode string `json:"mode" toml:"mode"`

	// Pins pinned 模式下接受的证书指纹（SHA-256 十六进制）
	Pins []string `json:"pins,omitempty" toml:"pins,omitempty"`

	// RootCAFile strict 模式下使用的根证书文件，空则使用系统根证书
	RootCAFile string `json:"root_ca_file,omitempty" toml:"root_ca_file,omitempty"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		ServerNames: []string{"localhost"},
		Trust: TrustConfig{
			Mode: TrustModeStrict,
		},
	}
}

// HasIdentityFiles 是否配置了证书文件
func (c SecurityConfig) HasIdentityFiles() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return ErrIncompleteIdentity
	}
	return c.Trust.Validate()
}

// Validate 验证信任策略配置
func (c TrustConfig) Validate() error {
	switch c.Mode {
	case TrustModeStrict, TrustModeAcceptAny:
	case TrustModePinned:
		if len(c.Pins) == 0 {
			return ErrNoPins
		}
		if _, err := c.Fingerprints(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTrustMode, c.Mode)
	}
	return nil
}

// Fingerprints 解析 Pins
func (c TrustConfig) Fingerprints() ([]sectls.Fingerprint, error) {
	fps := make([]sectls.Fingerprint, 0, len(c.Pins))
	for i, pin := range c.Pins {
		fp, err := sectls.ParseFingerprint(pin)
		if err != nil {
			return nil, fmt.Errorf("pin %d: %w", i, err)
		}
		fps = append(fps, fp)
	}
	return fps, nil
}
