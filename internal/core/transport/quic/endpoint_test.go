package quic

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestEndpoint_EchoScenario 服务端使用 MaidSAFE.net 证书，客户端以 QuinnDemo 为名称、
// 接受任意证书连接，发送 [1,2,3,4] 后结束流
func TestEndpoint_EchoScenario(t *testing.T) {
	params := BuildTransport(30_000, 5_000)

	id, leaf := testIdentity(t, "MaidSAFE.net")
	sc, err := BuildServerConfig(params, id)
	require.NoError(t, err)

	serverEp, incoming := bindLoopback(t, sc)
	clientEp, _ := bindLoopback(t, testServerConfig(t, params, "client"))
	cc := BuildClientConfig(params, InsecureAcceptAnyCertificate())

	ctx := testContext(t)
	var g errgroup.Group

	var received []byte
	g.Go(func() error {
		conn, err := incoming.Accept(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		stream, err := conn.AcceptBi(ctx)
		if err != nil {
			return err
		}
		received, err = stream.ReadToEnd(100)
		if err != nil {
			return err
		}
		if _, err := stream.Write(received); err != nil {
			return err
		}
		if err := stream.Finish(); err != nil {
			return err
		}

		// 等客户端读完回显后关闭连接
		<-conn.Done()
		return nil
	})

	conn, err := clientEp.Connect(ctx, serverEp.LocalAddr(), cc, "QuinnDemo")
	require.NoError(t, err)
	assert.Equal(t, DirOutbound, conn.Direction())

	peer := conn.PeerCertificates()
	require.NotEmpty(t, peer)
	assert.True(t, leaf.Equal(peer[0]))

	stream, err := conn.OpenBi(ctx)
	require.NoError(t, err)

	_, err = stream.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, stream.Finish())
	assert.Equal(t, StreamFinished, stream.SendStream.State())

	echo, err := stream.ReadToEnd(100)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, echo)

	require.NoError(t, conn.Close())
	require.NoError(t, g.Wait())
	assert.Equal(t, []byte{1, 2, 3, 4}, received)
}

func TestBind_EphemeralPort(t *testing.T) {
	ep, incoming := bindLoopback(t, testServerConfig(t, defaultParams(), "localhost"))

	addr := ep.LocalAddr()
	require.NotNil(t, addr)
	assert.True(t, addr.IP.IsLoopback())
	assert.NotZero(t, addr.Port)
	assert.Equal(t, addr.String(), incoming.Addr().String())
	assert.Same(t, ep, incoming.Endpoint())
	assert.NotEmpty(t, ep.ID())
	assert.True(t, ep.ServerConfig().StatelessRetry())
}

func TestBind_AddressInUse(t *testing.T) {
	sc := testServerConfig(t, defaultParams(), "localhost")
	first, _ := bindLoopback(t, sc)

	_, _, err := Bind(context.Background(), sc, first.LocalAddr())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAddressInUse)

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, BindAddressInUse, bindErr.Kind)
	assert.Equal(t, first.LocalAddr().Port, bindErr.Port)
	assert.Contains(t, bindErr.Error(), "address in use")
}

func TestBind_ReleasesSocketOnFailure(t *testing.T) {
	sc := testServerConfig(t, defaultParams(), "localhost")

	// 先占用再释放一个具体端口，之后的绑定都针对这个地址
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().(*net.UDPAddr)
	require.NoError(t, pc.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = Bind(ctx, sc, addr)
	require.Error(t, err)

	ep, _, err := Bind(context.Background(), sc, addr)
	require.NoError(t, err, "failed bind left the socket open")
	defer ep.Close()
	assert.Equal(t, addr.Port, ep.LocalAddr().Port)
}

func TestBind_NilAddress(t *testing.T) {
	_, _, err := Bind(context.Background(), testServerConfig(t, defaultParams(), "localhost"), nil)

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, BindSocketFailed, bindErr.Kind)
}

func TestBindError_Is(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		kind   BindErrorKind
		target error
	}{
		{BindAddressInUse, ErrAddressInUse},
		{BindPermissionDenied, ErrPermissionDenied},
		{BindEndpointSetupFailed, ErrEndpointSetupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := error(&BindError{Kind: tt.kind, Addr: "127.0.0.1:1", Port: 1, Err: cause})
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, cause)
		})
	}

	err := error(&BindError{Kind: BindSocketFailed, Err: cause})
	assert.NotErrorIs(t, err, ErrAddressInUse)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "socket error", BindSocketFailed.String())
}

func TestEndpoint_Close(t *testing.T) {
	sc := testServerConfig(t, defaultParams(), "localhost")
	ep, incoming, err := Bind(context.Background(), sc, loopback)
	require.NoError(t, err)
	addr := ep.LocalAddr()

	ctx := testContext(t)
	acceptErr := make(chan error, 1)
	go func() {
		_, err := incoming.Accept(ctx)
		acceptErr <- err
	}()

	// 等 Accept 进入阻塞
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ep.Close())
	assert.True(t, ep.IsClosed())

	select {
	case err := <-acceptErr:
		assert.ErrorIs(t, err, ErrEndpointClosed)
	case <-time.After(testTimeout):
		t.Fatal("Accept 没有在端点关闭后返回")
	}

	// 可重复关闭
	assert.NoError(t, ep.Close())

	_, err = incoming.Accept(ctx)
	assert.ErrorIs(t, err, ErrEndpointClosed)

	cc := BuildClientConfig(defaultParams(), InsecureAcceptAnyCertificate())
	_, err = ep.Connect(ctx, addr, cc, "localhost")
	assert.ErrorIs(t, err, ErrEndpointClosed)

	// 端口已释放
	again, _, err := Bind(context.Background(), sc, addr)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestEndpoint_CloseTerminatesConnections(t *testing.T) {
	_, incoming := bindLoopback(t, testServerConfig(t, defaultParams(), "localhost"))

	clientSC := testServerConfig(t, defaultParams(), "client")
	clientEp, _, err := Bind(context.Background(), clientSC, loopback)
	require.NoError(t, err)

	ctx := testContext(t)
	var g errgroup.Group
	g.Go(func() error {
		_, err := incoming.Accept(ctx)
		return err
	})

	cc := BuildClientConfig(defaultParams(), InsecureAcceptAnyCertificate())
	conn, err := clientEp.Connect(ctx, incoming.Endpoint().LocalAddr(), cc, "localhost")
	require.NoError(t, err)
	require.NoError(t, g.Wait())

	require.NoError(t, clientEp.Close())

	select {
	case <-conn.Done():
	case <-time.After(testTimeout):
		t.Fatal("端点关闭后连接没有终止")
	}
	assert.Error(t, conn.Err())
}

func TestEndpoint_ConnectNilRemote(t *testing.T) {
	ep, _ := bindLoopback(t, testServerConfig(t, defaultParams(), "localhost"))
	cc := BuildClientConfig(defaultParams(), InsecureAcceptAnyCertificate())

	_, err := ep.Connect(context.Background(), nil, cc, "localhost")
	assert.ErrorIs(t, err, ErrHandshakeFailed)
}

func TestEndpoint_ConnectContextDeadline(t *testing.T) {
	ep, _ := bindLoopback(t, testServerConfig(t, defaultParams(), "localhost"))
	cc := BuildClientConfig(defaultParams(), InsecureAcceptAnyCertificate())

	// 占用一个端口但不回应 QUIC
	silent, err := net.ListenUDP("udp", loopback)
	require.NoError(t, err)
	defer silent.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = ep.Connect(ctx, silent.LocalAddr().(*net.UDPAddr), cc, "localhost")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ep.IsClosed())
}

func TestEndpoint_ServesInboundAndOutbound(t *testing.T) {
	// 同一个端点既接受连接也发起连接
	aEp, aIn := bindLoopback(t, testServerConfig(t, defaultParams(), "localhost"))
	bEp, bIn := bindLoopback(t, testServerConfig(t, defaultParams(), "localhost"))
	cc := BuildClientConfig(defaultParams(), InsecureAcceptAnyCertificate())

	ctx := testContext(t)
	var g errgroup.Group
	for _, in := range []*Incoming{aIn, bIn} {
		in := in
		g.Go(func() error {
			conn, err := in.Accept(ctx)
			if err != nil {
				return err
			}
			if conn.Direction() != DirInbound {
				return errors.New("unexpected direction")
			}
			return nil
		})
	}

	ab, err := aEp.Connect(ctx, bEp.LocalAddr(), cc, "localhost")
	require.NoError(t, err)
	defer ab.Close()

	ba, err := bEp.Connect(ctx, aEp.LocalAddr(), cc, "localhost")
	require.NoError(t, err)
	defer ba.Close()

	require.NoError(t, g.Wait())
	assert.Equal(t, aEp.LocalAddr().String(), ab.LocalAddr().String())
	assert.Equal(t, bEp.LocalAddr().String(), ba.LocalAddr().String())
}
