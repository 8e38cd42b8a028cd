package quicpeer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-quicpeer/config"
	"github.com/dep2p/go-quicpeer/internal/core/metrics"
)

func TestNode_EchoAcceptAny(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server, err := New(ctx, nil, WithFxLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer server.Close()

	client, err := New(ctx, nil, WithAcceptAnyCertificate())
	require.NoError(t, err)
	defer client.Close()

	var g errgroup.Group
	g.Go(func() error {
		conn, err := server.Accept(ctx)
		if err != nil {
			return err
		}
		s, err := conn.AcceptBi(ctx)
		if err != nil {
			return err
		}
		data, err := s.ReadToEnd(100)
		if err != nil {
			return err
		}
		if _, err := s.Write(data); err != nil {
			return err
		}
		return s.Finish()
	})

	conn, err := client.Connect(ctx, server.LocalAddr().String(), "QuinnDemo")
	require.NoError(t, err)

	s, err := conn.OpenBi(ctx)
	require.NoError(t, err)
	_, err = s.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, s.Finish())

	echo, err := s.ReadToEnd(100)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, echo)
	require.NoError(t, g.Wait())
}

func TestNode_StrictRejectsSelfSigned(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server, err := New(ctx, nil)
	require.NoError(t, err)
	defer server.Close()

	// 默认配置使用 Strict 策略和系统根证书
	client, err := New(ctx, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Connect(ctx, server.LocalAddr().String(), "localhost")
	assert.ErrorIs(t, err, ErrHandshakeFailed)
}

func TestNode_Pinned(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server, err := New(ctx, nil)
	require.NoError(t, err)
	defer server.Close()

	pin := pinOf(t, server)
	client, err := New(ctx, nil, WithPinnedCertificates(pin))
	require.NoError(t, err)
	defer client.Close()

	go func() {
		conn, err := server.Accept(ctx)
		if err == nil {
			<-conn.Done()
		}
	}()

	conn, err := client.Connect(ctx, server.LocalAddr().String(), "ignored")
	require.NoError(t, err)
	assert.NoError(t, conn.Close())
}

// pinOf 返回节点证书指纹的十六进制表示
func pinOf(t *testing.T, n *Node) string {
	t.Helper()

	leaf := n.Endpoint().ServerConfig().Leaf()
	require.NotNil(t, leaf)
	fp, err := ParseFingerprint(FingerprintOf(Identity{CertificateChain: [][]byte{leaf.Raw}}).String())
	require.NoError(t, err)
	return fp.String()
}

func TestNode_Options(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig()

	node, err := New(ctx, cfg, WithTransport(2*time.Second, 500*time.Millisecond))
	require.NoError(t, err)
	defer node.Close()

	params := node.ClientConfig().Transport()
	assert.Equal(t, 2*time.Second, params.IdleTimeout)
	assert.Equal(t, 500*time.Millisecond, params.KeepAliveInterval)

	// 调用方配置不被修改
	assert.Equal(t, uint64(30_000), cfg.Transport.QUIC.IdleTimeoutMs)
	assert.Equal(t, uint64(2_000), node.Config().Transport.QUIC.IdleTimeoutMs)

	_, err = New(ctx, cfg, WithPinnedCertificates())
	assert.ErrorIs(t, err, config.ErrNoPins)

	_, err = New(ctx, cfg, WithTransport(time.Second, 2*time.Second))
	assert.ErrorIs(t, err, config.ErrInvalidTimeouts)

	// 超出 uint32 毫秒的保活间隔不能被截断成一个很小的值
	_, err = New(ctx, cfg, WithTransport(0, 50*24*time.Hour))
	assert.ErrorContains(t, err, "exceeds")

	_, err = New(ctx, cfg, WithListen(""))
	assert.Error(t, err)
}

func TestNode_AddressInUse(t *testing.T) {
	ctx := context.Background()

	first, err := New(ctx, nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = New(ctx, nil, WithListen(first.LocalAddr().String()))
	assert.ErrorIs(t, err, ErrAddressInUse)
}

func TestNode_StartCanceledReleasesSocket(t *testing.T) {
	// 先占用再释放一个具体端口，确保两次绑定的是同一个地址
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()
	require.NoError(t, pc.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(ctx, nil, WithListen(addr))
	require.Error(t, err)

	pc, err = net.ListenPacket("udp", addr)
	require.NoError(t, err)
	require.NoError(t, pc.Close())

	node, err := New(context.Background(), nil, WithListen(addr))
	require.NoError(t, err)
	defer node.Close()
	assert.Equal(t, addr, node.LocalAddr().String())
}

func TestNode_Close(t *testing.T) {
	ctx := context.Background()

	node, err := New(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, node.Close())
	require.NoError(t, node.Close())
	assert.True(t, node.Endpoint().IsClosed())

	_, err = node.Accept(ctx)
	assert.ErrorIs(t, err, ErrNodeClosed)
	_, err = node.Connect(ctx, "127.0.0.1:1", "localhost")
	assert.ErrorIs(t, err, ErrNodeClosed)
}

func TestGenerateIdentity(t *testing.T) {
	id, err := GenerateIdentity("MaidSAFE.net")
	require.NoError(t, err)

	sc, err := BuildServerConfig(BuildTransport(0, 0), id)
	require.NoError(t, err)
	assert.Equal(t, "MaidSAFE.net", sc.Leaf().Subject.CommonName)
	assert.Equal(t, FingerprintOf(id).String(), FingerprintOf(Identity{CertificateChain: [][]byte{sc.Leaf().Raw}}).String())
	assert.Equal(t, Fingerprint{}, FingerprintOf(Identity{}))
}

func TestNode_ServerNames(t *testing.T) {
	node, err := New(context.Background(), nil, WithServerNames("MaidSAFE.net", "127.0.0.1"))
	require.NoError(t, err)
	defer node.Close()

	leaf := node.Endpoint().ServerConfig().Leaf()
	assert.Equal(t, "MaidSAFE.net", leaf.Subject.CommonName)
	assert.Equal(t, []string{"MaidSAFE.net"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
}

func TestNode_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	t.Cleanup(func() { metrics.SetGlobal(nil) })

	node, err := New(context.Background(), nil, WithMetrics(reg))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "quicpeer_endpoints" {
			found = true
			assert.GreaterOrEqual(t, mf.GetMetric()[0].GetGauge().GetValue(), 1.0)
		}
	}
	assert.True(t, found)
	require.NoError(t, node.Close())

	_, err = New(context.Background(), nil, WithMetrics(nil))
	assert.Error(t, err)
}
