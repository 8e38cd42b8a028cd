package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留 NewConfig 的默认值。
//
// 示例 JSON:
//
//	{
//	  "listen": "0.0.0.0:4433",
//	  "transport": {"quic": {"idle_timeout_ms": 60000, "keep_alive_ms": 15000}, "dial_timeout": "5s"},
//	  "security": {"trust": {"mode": "pinned", "pins": ["ab12..."]}}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromTOML 从 TOML 数据创建配置
//
// 未出现的字段保留 NewConfig 的默认值。
//
// 示例 TOML:
//
//	listen = "0.0.0.0:4433"
//
//	[transport]
//	dial_timeout = "5s"
//
//	[transport.quic]
//	idle_timeout_ms = 60000
//	keep_alive_ms = 15000
//
//	[security.trust]
//	mode = "strict"
//	root_ca_file = "/etc/quicpeer/ca.pem"
func FromTOML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载并验证配置
//
// 扩展名为 .toml 时按 TOML 解析，否则按 JSON 解析。
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = FromTOML(data)
	} else {
		cfg, err = FromJSON(data)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// CloneConfig 深拷贝配置
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	clone := *cfg
	if cfg.Security.ServerNames != nil {
		clone.Security.ServerNames = append([]string(nil), cfg.Security.ServerNames...)
	}
	if cfg.Security.Trust.Pins != nil {
		clone.Security.Trust.Pins = append([]string(nil), cfg.Security.Trust.Pins...)
	}
	return &clone
}
