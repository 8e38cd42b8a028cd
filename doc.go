// Package quicpeer 提供基于 QUIC 的安全端点引导
//
// 一个端点绑定一个 UDP socket，同时接受入站连接和发起出站连接。
// 连接使用 TLS 1.3 认证，对端证书按信任策略验证；连接上可以打开
// 任意数量的双向流和单向流。
//
// # 快速开始
//
//	import "github.com/dep2p/go-quicpeer"
//
//	// 1. 从配置启动节点（绑定端点）
//	cfg := config.NewConfig()
//	cfg.Listen = "0.0.0.0:4433"
//	node, err := quicpeer.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	// 2. 连接对端
//	conn, err := node.Connect(ctx, "203.0.113.7:4433", "peer.example")
//	stream, _ := conn.OpenBi(ctx)
//	stream.Write([]byte("hello"))
//	stream.Finish()
//	reply, _ := stream.ReadToEnd(64 << 10)
//
//	// 3. 接受连接
//	in, _ := node.Accept(ctx)
//	s, _ := in.AcceptBi(ctx)
//
// 不使用 fx 的调用方可以直接组合底层构建函数：
//
//	params := quicpeer.BuildTransport(30_000, 10_000)
//	server, _ := quicpeer.BuildServerConfig(params, identity)
//	ep, incoming, _ := quicpeer.Bind(ctx, server, &net.UDPAddr{IP: net.IPv4zero, Port: 4433})
//	client := quicpeer.BuildClientConfig(params, quicpeer.StrictTrust(nil))
//	conn, _ := ep.Connect(ctx, remote, client, "peer.example")
//
// # 读取语义
//
// RecvStream.Read 是单次读取，只返回当前已到达的数据，返回 0 字节
// 不代表流结束（流结束由 io.EOF 表示）。需要完整负载时使用
// ReadExact 或 ReadToEnd。
//
// # 信任策略
//
//   - StrictTrust: 标准证书链和名称验证（默认）
//   - PinnedTrust: 只接受指定指纹的证书
//   - InsecureAcceptAnyCertificate: 接受任意证书，仅用于测试
package quicpeer
