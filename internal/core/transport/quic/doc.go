// Package quic 基于 quic-go 引导安全的多路复用连接
//
// 本包是 P2P 协议栈之下的引导层：给定本地/远端 UDP 地址和证书材料，
// 产出可以发起和接受连接的端点。握手、加密、拥塞控制均由 quic-go 完成，
// 本包只负责配置的组合和流读取约定。
//
// # 组成
//
//   - BuildTransport: 空闲超时与 KeepAlive 参数
//   - TrustPolicy: 证书验证策略（Strict / AcceptAny / Pinned）
//   - BuildClientConfig / BuildServerConfig: 不可变的连接配置
//   - Bind: 绑定 UDP socket，返回 Endpoint 与 Incoming
//   - Connection / BiStream / SendStream / RecvStream: 连接与流
//
// # 读取约定
//
// 流上的数据随数据包逐步到达。RecvStream.Read 只反映当前已缓冲的数据，
// 可能返回 0 字节而流仍处于 Open 状态，0 字节不代表流结束（结束由 io.EOF 表示）。
// 需要完整负载时使用 ReadExact 或带上限的 ReadToEnd。
//
// # 使用示例
//
//	params := quic.BuildTransport(30_000, 10_000)
//	serverCfg, err := quic.BuildServerConfig(params, identity)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ep, incoming, err := quic.Bind(ctx, serverCfg, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
//
//	clientCfg := quic.BuildClientConfig(params, quic.StrictTrust(roots))
//	conn, err := ep.Connect(ctx, remote, clientCfg, "peer.example")
package quic
