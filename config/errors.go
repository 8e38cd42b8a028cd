package config

import "errors"

// 配置错误
var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("config is nil")

	// ErrEmptyListen 未设置监听地址
	ErrEmptyListen = errors.New("listen address is empty")

	// ErrInvalidTimeouts 空闲超时不大于保活间隔
	ErrInvalidTimeouts = errors.New("idle timeout must exceed keep-alive interval")

	// ErrUnknownTrustMode 未知的信任模式
	ErrUnknownTrustMode = errors.New("unknown trust mode")

	// ErrNoPins pinned 模式下没有指纹
	ErrNoPins = errors.New("pinned trust requires at least one pin")

	// ErrIncompleteIdentity 证书与私钥文件只配置了其中一个
	ErrIncompleteIdentity = errors.New("cert_file and key_file must be set together")
)
