package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/ntlink/pkg/config"
	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/login"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/push"
	"github.com/ZentaChain/ntlink/pkg/service"
	"github.com/ZentaChain/ntlink/pkg/ssotest"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

var testD2Key = []byte("0123456789abcdef")

type harness struct {
	srv   *ssotest.Server
	gw    *ssotest.LoginGateway
	cfg   *config.Config
	opts  Options
	signs atomic.Int32
}

func newHarness(t *testing.T, vars map[string]string) *harness {
	t.Helper()

	h := &harness{}
	signSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.signs.Add(1)
		w.Write([]byte(`{"value":{"sign":"5151","token":"","extra":""}}`))
	}))
	t.Cleanup(signSrv.Close)

	env := map[string]string{
		"NTLINK_UIN":           "10001",
		"NTLINK_PASSWORD":      "hunter2",
		"NTLINK_DATABASE_PATH": filepath.Join(t.TempDir(), "ntlink.db"),
		"NTLINK_SIGN_URL":      signSrv.URL,
	}
	for k, v := range vars {
		env[k] = v
	}
	cfg, err := config.LoadFrom(env)
	require.NoError(t, err)
	cfg.StatusAddr = ""
	cfg.QRPollInterval = 5 * time.Millisecond
	h.cfg = cfg

	h.srv = ssotest.New(t)
	h.gw, err = ssotest.NewLoginGateway()
	require.NoError(t, err)
	h.srv.SetD2Key(testD2Key)
	h.srv.Handle(service.CmdKeyExchange, h.gw.HandleKeyExchange)
	h.srv.Handle(service.CmdPasswordLogin, h.gw.LoginHandler(func(*ssotest.LoginRequest) (*wire.NTLoginErrorInfo, wire.Message) {
		return nil, &wire.LoginResponse{
			Uid:     "u_bot",
			Tickets: &wire.NTLoginTickets{A2: []byte("a2"), D2: []byte("d2"), D2Key: testD2Key},
		}
	}))
	h.srv.Handle(service.CmdRegister, registerReply("register success"))

	h.opts = Options{Dial: h.srv.Dial, ServerPublicKey: h.gw.PublicKey()}
	return h
}

func registerReply(message string) ssotest.HandlerFunc {
	return func(*protocol.Request) *ssotest.Reply {
		return &ssotest.Reply{Data: wire.Serialize(&wire.RegisterResponse{Message: message, Timestamp: 1700000000})}
	}
}

func (h *harness) newBot(t *testing.T) *Bot {
	t.Helper()
	b, err := New(context.Background(), h.cfg, h.opts)
	require.NoError(t, err)
	t.Cleanup(b.Dispose)
	return b
}

func (h *harness) requests(command string) []*protocol.Request {
	var out []*protocol.Request
	for _, r := range h.srv.Requests() {
		if r.Packet.Command() == command {
			out = append(out, r)
		}
	}
	return out
}

func await[T event.Event](t *testing.T, b *Bot) <-chan T {
	t.Helper()
	ch := make(chan T, 4)
	t.Cleanup(event.Subscribe(b.Bus(), func(e T) { ch <- e }))
	return ch
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}

func TestPasswordLoginAndRecall(t *testing.T) {
	h := newHarness(t, nil)
	b := h.newBot(t)
	ctx := context.Background()

	require.NoError(t, b.Login(ctx))
	assert.Equal(t, login.StateOnline, b.LoginStatus().State)
	assert.Equal(t, "u_bot", b.Keystore().Uid)

	// key exchange and password login are on the sign allow-list
	assert.EqualValues(t, 2, h.signs.Load())
	logins := h.requests(service.CmdPasswordLogin)
	require.Len(t, logins, 1)
	require.NotNil(t, logins[0].Reserve.SecInfo)
	assert.Equal(t, []byte{0x51, 0x51}, logins[0].Reserve.SecInfo.Sign)

	h.srv.Handle(service.CmdGroupRecall, func(*protocol.Request) *ssotest.Reply { return &ssotest.Reply{} })
	h.srv.Handle(service.CmdC2CRecall, func(*protocol.Request) *ssotest.Reply { return &ssotest.Reply{} })

	require.NoError(t, b.RecallGroupMessage(ctx, 5555, 77))
	groupReqs := h.requests(service.CmdGroupRecall)
	require.Len(t, groupReqs, 1)
	gr, err := wire.Deserialize[wire.GroupRecallRequest](groupReqs[0].Packet.Data())
	require.NoError(t, err)
	assert.Equal(t, int64(5555), gr.GroupUin)
	assert.Equal(t, uint64(77), gr.Info.Sequence)

	err = b.RecallFriendMessage(ctx, 2002, FriendMessage{Sequence: 3})
	assert.ErrorIs(t, err, ErrUnknownFriend)

	messages := await[event.MessageEvent](t, b)
	msg := &wire.CommonMessage{
		Routing: &wire.RoutingHead{FromUin: 2002, FromUid: "u_friend", ToUin: 10001, ToUid: "u_bot"},
		Content: &wire.ContentHead{Type: uint32(push.MsgTypePrivateMessage), Sequence: 3, Random: 99, Timestamp: 1700000000},
	}
	require.NoError(t, h.srv.Push(protocol.NewResponsePacket(push.CmdMsgPush, 0, 0, "", wire.Serialize(&wire.MsgPush{Message: msg})), protocol.EncryptD2Key))
	assert.Equal(t, int64(2002), receive(t, messages).FromUin)

	require.NoError(t, b.RecallFriendMessage(ctx, 2002, FriendMessage{Sequence: 3, ClientSequence: 4, Random: 99, Timestamp: 1700000000}))
	c2cReqs := h.requests(service.CmdC2CRecall)
	require.Len(t, c2cReqs, 1)
	cr, err := wire.Deserialize[wire.C2CRecallRequest](c2cReqs[0].Packet.Data())
	require.NoError(t, err)
	assert.Equal(t, "u_friend", cr.TargetUid)
	assert.Equal(t, uint64(3), cr.Info.Sequence)
	assert.Equal(t, uint32(99), cr.Info.Random)

	entries, err := b.journal.List(ctx, "bot_online", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecallRequiresOnline(t *testing.T) {
	h := newHarness(t, nil)
	b := h.newBot(t)

	assert.ErrorIs(t, b.RecallGroupMessage(context.Background(), 5555, 1), ErrNotOnline)
	assert.ErrorIs(t, b.RecallFriendMessage(context.Background(), 2002, FriendMessage{}), ErrNotOnline)
	assert.Empty(t, h.srv.Requests())
}

func TestResumeSavedSession(t *testing.T) {
	h := newHarness(t, map[string]string{"NTLINK_KEYSTORE_PASSPHRASE": "correct horse"})

	first := h.newBot(t)
	require.NoError(t, first.Login(context.Background()))
	first.Dispose()

	second := h.newBot(t)
	require.NoError(t, second.Login(context.Background()))
	assert.Equal(t, login.StateOnline, second.LoginStatus().State)

	assert.Len(t, h.requests(service.CmdPasswordLogin), 1)
	assert.Len(t, h.requests(service.CmdRegister), 2)

	raw, err := second.db.Keystores().Load(context.Background(), 10001)
	require.NoError(t, err)
	assert.True(t, raw.Tickets.Empty())
	assert.NotEmpty(t, raw.Sealed)
}

func TestRefusedSessionFallsBackToPassword(t *testing.T) {
	h := newHarness(t, nil)
	store := keystore.NewFileStore(filepath.Join(t.TempDir(), "keystore.json"))
	h.opts.Store = store

	stale := keystore.New(10001, "ntlink")
	stale.SetTickets(keystore.Tickets{D2: []byte("old"), D2Key: testD2Key})
	require.NoError(t, store.Save(context.Background(), stale.Document()))

	var registers int
	h.srv.Handle(service.CmdRegister, func(req *protocol.Request) *ssotest.Reply {
		registers++
		if registers == 1 {
			return registerReply("register failed")(req)
		}
		return registerReply("register success")(req)
	})

	b := h.newBot(t)
	require.NoError(t, b.Login(context.Background()))
	assert.Equal(t, login.StateOnline, b.LoginStatus().State)
	assert.Len(t, h.requests(service.CmdPasswordLogin), 1)

	doc, err := store.Load(context.Background(), 10001)
	require.NoError(t, err)
	assert.Equal(t, []byte("d2"), doc.Tickets.D2)
}

func TestRefusedSessionWithoutReLogin(t *testing.T) {
	h := newHarness(t, map[string]string{"NTLINK_AUTO_RELOGIN": "false"})
	h.srv.Handle(service.CmdRegister, registerReply("register failed"))

	first := h.newBot(t)
	first.keystore.SetTickets(keystore.Tickets{D2: []byte("old"), D2Key: testD2Key})

	assert.ErrorIs(t, first.Login(context.Background()), service.ErrRegisterRejected)
	assert.Empty(t, h.requests(service.CmdPasswordLogin))
}

func TestQRCodeLoginWithoutPassword(t *testing.T) {
	h := newHarness(t, map[string]string{"NTLINK_PASSWORD": "", "NTLINK_UIN": "0"})
	h.srv.Handle(service.CmdFetchQRCode, func(*protocol.Request) *ssotest.Reply {
		return &ssotest.Reply{Data: wire.Serialize(&wire.QRCodeResponse{URL: "https://qr.test/x", Sig: []byte("s"), Expiry: 120})}
	})
	h.srv.Handle(service.CmdQueryQRState, func(*protocol.Request) *ssotest.Reply {
		return &ssotest.Reply{Data: wire.Serialize(&wire.QRStateResponse{
			State:   wire.QRStateConfirmed,
			Uin:     30003,
			Uid:     "u_qr",
			Tickets: &wire.NTLoginTickets{A2: []byte("a2"), D2: []byte("d2"), D2Key: testD2Key},
		})}
	})

	b := h.newBot(t)
	qr := await[event.BotQRCodeEvent](t, b)
	require.NoError(t, b.Login(context.Background()))
	assert.Equal(t, "https://qr.test/x", receive(t, qr).URL)

	assert.Equal(t, login.StateOnline, b.LoginStatus().State)
	assert.Equal(t, int64(30003), b.Uin())
	assert.Empty(t, h.requests(service.CmdPasswordLogin))
}

func TestCaptchaThenOnline(t *testing.T) {
	h := newHarness(t, nil)
	h.srv.Handle(service.CmdPasswordLogin, h.gw.LoginHandler(func(req *ssotest.LoginRequest) (*wire.NTLoginErrorInfo, wire.Message) {
		body, err := wire.Deserialize[wire.PasswordLoginRequest](req.Body)
		if !assert.NoError(t, err) || body.Iframe == nil {
			return &wire.NTLoginErrorInfo{ErrCode: uint32(service.LoginProofWater)},
				&wire.LoginResponse{SecCheck: &wire.NTLoginSecCheck{IframeURL: "https://captcha.test"}}
		}
		return nil, &wire.LoginResponse{
			Uid:     "u_bot",
			Tickets: &wire.NTLoginTickets{A2: []byte("a2"), D2: []byte("d2"), D2Key: testD2Key},
		}
	}))

	b := h.newBot(t)
	ctx := context.Background()

	err := b.Login(ctx)
	ce, ok := login.IsChallenge(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, login.ChallengeCaptcha, ce.Kind)

	snap := b.Snapshot()
	assert.Equal(t, "challenged", snap.State)
	assert.Equal(t, "captcha", snap.Challenge)
	assert.Equal(t, "https://captcha.test", snap.URL)
	assert.True(t, snap.Connected)

	require.NoError(t, b.SubmitCaptcha(ctx, "ticket", "rand", "sid"))
	assert.Equal(t, login.StateOnline, b.LoginStatus().State)
}

func TestKickStopsRun(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.HeartbeatInterval = 10 * time.Millisecond
	b := h.newBot(t)
	require.NoError(t, b.Login(context.Background()))

	var alive atomic.Int32
	h.srv.Handle(service.CmdHeartbeat, func(*protocol.Request) *ssotest.Reply {
		alive.Add(1)
		return &ssotest.Reply{}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return alive.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	kick := wire.Serialize(&wire.Kick{Uin: 10001, Title: "Offline", Tips: "logged in elsewhere"})
	require.NoError(t, h.srv.Push(protocol.NewResponsePacket(push.CmdKick, 0, 0, "", kick), protocol.EncryptD2Key))

	assert.ErrorIs(t, <-done, ErrKicked)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	b := h.newBot(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
