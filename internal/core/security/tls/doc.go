// Package tls 提供 QUIC 端点使用的证书材料
//
// 本包只负责证书材料本身，不参与握手：
//
//   - 生成自签名证书（测试与本地信任引导）
//   - 从 PEM 文件加载证书链和私钥
//   - 计算证书指纹（用于 Pinned 信任策略）
//
// 返回值一律为 DER 编码，由 transport/quic 组装为 Identity。
//
// # 使用示例
//
//	certDER, keyDER, err := tls.GenerateSelfSigned("MaidSAFE.net")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fp := tls.FingerprintFromDER(certDER)
package tls
