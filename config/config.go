// Package config 提供 quicpeer 的统一配置
//
// 主 Config 结构体嵌入各子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载。
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Listen = "0.0.0.0:4433"
//	cfg.Security.Trust.Mode = config.TrustModeAcceptAny
//
//	// 从 JSON 文件加载
//	cfg, err := config.LoadFile("quicpeer.json")
package config

// DefaultListen 默认监听地址，端口由系统分配
const DefaultListen = "127.0.0.1:0"

// Config quicpeer 的完整配置
//
//   - Listen: 本地 UDP 绑定地址
//   - Transport: QUIC 传输参数
//   - Security: 证书与信任策略
type Config struct {
	// Listen 本地绑定地址，形如 "host:port"，端口可以为 0
	Listen string `json:"listen" toml:"listen"`

	// Transport 传输层配置
	Transport TransportConfig `json:"transport" toml:"transport"`

	// Security 安全配置
	Security SecurityConfig `json:"security" toml:"security"`
}

// NewConfig 创建默认配置
//
// 默认监听 127.0.0.1 的随机端口，空闲超时 30s，保活 10s，严格校验对端证书。
func NewConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		Transport: DefaultTransportConfig(),
		Security:  DefaultSecurityConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.Listen == "" {
		return ErrEmptyListen
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	return c.Security.Validate()
}
