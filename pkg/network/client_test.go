package network

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/ssotest"
)

func newTestClient(t *testing.T, srv *ssotest.Server, autoReconnect bool, onPush func(*protocol.SsoPacket)) *Client {
	t.Helper()

	ks := keystore.New(10001, "test-device")
	app, err := protocol.DefaultAppInfo(protocol.Linux)
	require.NoError(t, err)

	c := NewClient(Config{
		Address:        "ssotest",
		AutoReconnect:  autoReconnect,
		RequestTimeout: 2 * time.Second,
		Dial:           srv.Dial,
	}, protocol.NewCodec(app, ks, nil), nil, onPush)
	t.Cleanup(func() { c.Close() })
	return c
}

func echo(req *protocol.Request) *ssotest.Reply {
	return &ssotest.Reply{Data: req.Packet.Data()}
}

func TestSendReceivesResponse(t *testing.T) {
	srv := ssotest.New(t)
	srv.Handle("svc.Echo", echo)

	c := newTestClient(t, srv, false, nil)
	require.NoError(t, c.Connect(context.Background()))

	resp, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Echo", []byte("hello")), protocol.RequestD2Auth, protocol.EncryptEmpty)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), resp.Data())
	assert.NotZero(t, resp.Sequence())
	assert.Zero(t, c.Pending())
}

func TestSendNotConnected(t *testing.T) {
	c := newTestClient(t, ssotest.New(t), false, nil)

	_, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Echo", nil), protocol.RequestD2Auth, protocol.EncryptEmpty)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConcurrentSendsGetTheirOwnResponse(t *testing.T) {
	srv := ssotest.New(t)
	srv.Handle("svc.Echo", echo)

	c := newTestClient(t, srv, false, nil)
	require.NoError(t, c.Connect(context.Background()))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := []byte{byte(i)}
			resp, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Echo", body), protocol.RequestD2Auth, protocol.EncryptEmpty)
			if err != nil {
				errs <- err
				return
			}
			if resp.Data()[0] != byte(i) {
				errs <- errors.New("response routed to the wrong caller")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	seqs := make(map[uint32]bool)
	for _, req := range srv.Requests() {
		seqs[req.Packet.Sequence()] = true
	}
	assert.Len(t, seqs, n)
}

func TestPushRoutedToHandler(t *testing.T) {
	srv := ssotest.New(t)
	pushes := make(chan *protocol.SsoPacket, 1)

	c := newTestClient(t, srv, false, func(p *protocol.SsoPacket) { pushes <- p })
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, srv.Push(protocol.NewResponsePacket("trpc.msg.olpush.OlPushService.MsgPush", 4000, 0, "", []byte("push")), protocol.EncryptEmpty))

	select {
	case p := <-pushes:
		assert.Equal(t, []byte("push"), p.Data())
	case <-time.After(2 * time.Second):
		t.Fatal("push not delivered")
	}
}

func TestConnectionDropFaultsPending(t *testing.T) {
	srv := ssotest.New(t)

	c := newTestClient(t, srv, false, nil)
	disconnected := make(chan error, 1)
	c.OnDisconnect = func(err error) { disconnected <- err }
	require.NoError(t, c.Connect(context.Background()))

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Silent", nil), protocol.RequestD2Auth, protocol.EncryptEmpty)
			errs <- err
		}()
	}

	for i := 0; i < 3; i++ {
		select {
		case <-srv.Received():
		case <-time.After(2 * time.Second):
			t.Fatal("request not received")
		}
	}
	require.Eventually(t, func() bool { return c.Pending() == 3 }, time.Second, 5*time.Millisecond)

	srv.DropConnections()

	for i := 0; i < 3; i++ {
		err := <-errs
		var cerr *ConnectionError
		assert.True(t, errors.As(err, &cerr), "err = %v", err)
	}
	assert.Zero(t, c.Pending())

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect not called")
	}
	assert.False(t, c.IsConnected())
}

func TestRequestTimeout(t *testing.T) {
	srv := ssotest.New(t)
	c := newTestClient(t, srv, false, nil)
	c.cfg.RequestTimeout = 50 * time.Millisecond
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Silent", nil), protocol.RequestD2Auth, protocol.EncryptEmpty)

	var cerr *CancellationError
	require.True(t, errors.As(err, &cerr), "err = %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.Pending())
}

func TestAutoReconnect(t *testing.T) {
	srv := ssotest.New(t)
	srv.Handle("svc.Echo", echo)

	c := newTestClient(t, srv, true, nil)
	reconnected := make(chan struct{}, 1)
	c.OnReconnect = func() { reconnected <- struct{}{} }
	require.NoError(t, c.Connect(context.Background()))

	srv.DropConnections()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("did not reconnect")
	}
	assert.Equal(t, 2, srv.Dials())

	resp, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Echo", []byte("again")), protocol.RequestD2Auth, protocol.EncryptEmpty)
	require.NoError(t, err)
	assert.Equal(t, []byte("again"), resp.Data())
}

func TestConcurrentConnectSharesOneConnection(t *testing.T) {
	srv := ssotest.New(t)
	srv.Handle("svc.Echo", echo)

	c := newTestClient(t, srv, false, nil)
	var dials atomic.Int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	c.cfg.Dial = func(ctx context.Context, address string) (net.Conn, error) {
		dials.Add(1)
		entered <- struct{}{}
		<-release
		return srv.Dial(ctx, address)
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- c.Connect(context.Background()) }()
	}
	<-entered
	close(release)
	for i := 0; i < 2; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), dials.Load())

	resp, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Echo", []byte("once")), protocol.RequestD2Auth, protocol.EncryptEmpty)
	require.NoError(t, err)
	assert.Equal(t, []byte("once"), resp.Data())

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a receive loop")
	}
}

func TestConnectWhileReconnecting(t *testing.T) {
	srv := ssotest.New(t)
	c := newTestClient(t, srv, true, nil)
	disconnected := make(chan struct{}, 1)
	c.OnDisconnect = func(error) { disconnected <- struct{}{} }
	require.NoError(t, c.Connect(context.Background()))

	srv.Refuse(true)
	srv.DropConnections()
	<-disconnected

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrReconnecting)
	assert.Equal(t, 1, srv.Dials())
}

func TestCloseFaultsPending(t *testing.T) {
	srv := ssotest.New(t)
	c := newTestClient(t, srv, true, nil)
	require.NoError(t, c.Connect(context.Background()))

	errs := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), protocol.NewSsoPacket("svc.Silent", nil), protocol.RequestD2Auth, protocol.EncryptEmpty)
		errs <- err
	}()
	<-srv.Received()

	require.NoError(t, c.Close())

	err := <-errs
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 1, srv.Dials(), "closed client must not reconnect")

	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

func TestRunKeepalive(t *testing.T) {
	srv := ssotest.New(t)
	c := newTestClient(t, srv, false, nil)
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pings := make(chan struct{}, 4)
	go c.RunKeepalive(ctx, 10*time.Millisecond, func(context.Context) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return nil
	})

	for i := 0; i < 2; i++ {
		select {
		case <-pings:
		case <-time.After(time.Second):
			t.Fatal("keepalive did not fire")
		}
	}
}
