package quic

import (
	"context"
	"crypto/x509"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	sectls "github.com/dep2p/go-quicpeer/internal/core/security/tls"
)

const testTimeout = 10 * time.Second

var loopback = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}

// testIdentity 生成自签名身份并返回叶子证书
func testIdentity(t *testing.T, names ...string) (Identity, *x509.Certificate) {
	t.Helper()

	certDER, keyDER, err := sectls.GenerateSelfSigned(names...)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)

	return Identity{CertificateChain: [][]byte{certDER}, PrivateKey: keyDER}, cert
}

// testServerConfig 构建使用自签名证书的服务端配置
func testServerConfig(t *testing.T, params TransportParameters, names ...string) ServerConfig {
	t.Helper()

	id, _ := testIdentity(t, names...)
	sc, err := BuildServerConfig(params, id)
	require.NoError(t, err)
	return sc
}

// bindLoopback 在 127.0.0.1 的随机端口上绑定端点，测试结束时关闭
func bindLoopback(t *testing.T, sc ServerConfig) (*Endpoint, *Incoming) {
	t.Helper()

	ep, incoming, err := Bind(context.Background(), sc, loopback)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })
	return ep, incoming
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// connectPair 建立一条回环连接，返回客户端和服务端两侧
//
// 服务端证书名为 localhost，客户端使用 AcceptAny。
func connectPair(t *testing.T, clientParams, serverParams TransportParameters) (client, server *Connection) {
	t.Helper()

	_, incoming := bindLoopback(t, testServerConfig(t, serverParams, "localhost"))
	clientEp, _ := bindLoopback(t, testServerConfig(t, clientParams, "client"))
	cc := BuildClientConfig(clientParams, InsecureAcceptAnyCertificate())

	ctx := testContext(t)
	var g errgroup.Group
	g.Go(func() (err error) {
		server, err = incoming.Accept(ctx)
		return err
	})
	g.Go(func() (err error) {
		client, err = clientEp.Connect(ctx, incoming.Endpoint().LocalAddr(), cc, "localhost")
		return err
	})
	require.NoError(t, g.Wait())

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

// defaultParams 测试用默认传输参数
func defaultParams() TransportParameters {
	return BuildTransport(30_000, 0)
}
