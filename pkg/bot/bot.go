// Package bot assembles one bot context: keystore, codec, connection,
// dispatcher, login machine, push pipeline, journal and status endpoint.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZentaChain/ntlink/pkg/config"
	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/login"
	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/network"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/push"
	"github.com/ZentaChain/ntlink/pkg/service"
	"github.com/ZentaChain/ntlink/pkg/sign"
	"github.com/ZentaChain/ntlink/pkg/status"
	"github.com/ZentaChain/ntlink/pkg/storage"
)

const (
	uidCacheSize      = 4096
	retentionInterval = time.Hour
)

var (
	ErrNotOnline     = errors.New("bot is not online")
	ErrUnknownFriend = errors.New("no uid known for friend")
	ErrKicked        = errors.New("session kicked by server")
)

// Options carries collaborators that override what the config would build
type Options struct {
	// Store replaces the keystore location from the config
	Store keystore.Store
	// Signer replaces the HTTP sign provider
	Signer protocol.Signer
	// Dial replaces TCP dialing
	Dial func(ctx context.Context, address string) (net.Conn, error)
	// ServerPublicKey replaces the built-in key exchange key
	ServerPublicKey []byte
}

// Bot is one logged-in (or logging-in) account
type Bot struct {
	cfg *config.Config

	keystore   *keystore.Keystore
	store      keystore.Store
	db         *storage.DB
	journal    *storage.Journal
	metrics    *metrics.Metrics
	bus        *event.Bus
	uids       *push.UidCache
	pipeline   *push.Pipeline
	client     *network.Client
	dispatcher *service.Dispatcher
	machine    *login.Machine
	status     *status.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	detach   []func()
	kicked   chan struct{}
	disposed bool
}

// New builds a bot context from cfg. Nothing is dialed until Connect or
// Login.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		metrics: metrics.New(),
		kicked:  make(chan struct{}),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())

	if err := b.openStorage(opts.Store); err != nil {
		return nil, err
	}

	ks, err := keystore.LoadOrCreate(ctx, b.store, cfg.Uin, cfg.DeviceName)
	if err != nil {
		b.closeStorage()
		return nil, fmt.Errorf("failed to load keystore: %w", err)
	}
	b.keystore = ks

	app, err := protocol.DefaultAppInfo(cfg.Protocol)
	if err != nil {
		b.closeStorage()
		return nil, err
	}

	signer := opts.Signer
	if signer == nil {
		url := cfg.SignURL
		if url == "" {
			url = sign.DefaultURL(app.AppClientVersion)
		}
		signer = sign.NewProvider(url, nil, nil)
	}

	b.bus = event.NewBus(b.metrics)
	b.uids = push.NewUidCache(uidCacheSize)
	b.pipeline = push.NewPipeline(b.metrics)
	push.RegisterDefaults(b.pipeline, push.Deps{Bus: b.bus, Uids: b.uids, SelfUin: ks.Uin})

	b.client = network.NewClient(network.Config{
		Address:        cfg.Address,
		AutoReconnect:  cfg.AutoReconnect,
		RequestTimeout: cfg.RequestTimeout,
		Dial:           opts.Dial,
	}, protocol.NewCodec(app, ks, signer), b.metrics, b.pipeline.HandlePacket)

	env := &service.Env{Keystore: ks, App: app, ServerPublicKey: opts.ServerPublicKey}
	b.dispatcher = service.NewDispatcher(service.Default(), b.client, env, b.metrics)
	b.machine = login.New(b.dispatcher, b.bus, b.store, b.metrics)

	b.client.OnDisconnect = b.onDisconnect
	b.client.OnReconnect = b.onReconnect

	if b.db != nil {
		b.journal = b.db.Journal()
		b.detach = append(b.detach, b.journal.Attach(b.bus))
	}
	b.detach = append(b.detach, event.Subscribe(b.bus, b.onOffline))

	if cfg.StatusAddr != "" {
		b.status = status.NewServer(&status.Config{
			Addr:         cfg.StatusAddr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}, b, b.metrics, b.journal)
	}

	log.Printf("🤖 [bot] context ready for %d (%s, device %q)", ks.Uin(), cfg.Protocol, ks.DeviceName())
	return b, nil
}

// openStorage picks the keystore location: an explicit store, then a JSON
// file, then the database. The database is opened whenever a path is set
// so the journal is kept.
func (b *Bot) openStorage(store keystore.Store) error {
	if b.cfg.DatabasePath != "" {
		db, err := storage.Open(b.cfg.DatabasePath)
		if err != nil {
			return err
		}
		b.db = db
	}

	switch {
	case store != nil:
		b.store = store
	case b.cfg.KeystorePath != "":
		b.store = keystore.NewFileStore(b.cfg.KeystorePath)
	case b.db != nil:
		b.store = b.db.Keystores()
	default:
		return errors.New("no keystore location configured")
	}
	if b.cfg.KeystorePassphrase != "" {
		b.store = keystore.NewSealedStore(b.store, b.cfg.KeystorePassphrase)
	}
	return nil
}

func (b *Bot) closeStorage() {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.Printf("⚠️  [bot] failed to close database: %v", err)
		}
	}
}

func (b *Bot) Uin() int64 {
	return b.keystore.Uin()
}

// Bus is where subscribers attach to the bot's events
func (b *Bot) Bus() *event.Bus {
	return b.bus
}

func (b *Bot) LoginStatus() login.Status {
	return b.machine.Status()
}

// Snapshot reports the bot for the status endpoint
func (b *Bot) Snapshot() status.Snapshot {
	st := b.machine.Status()
	snap := status.Snapshot{
		Uin:       b.keystore.Uin(),
		Uid:       b.keystore.Uid(),
		Protocol:  b.cfg.Protocol.String(),
		State:     st.State.String(),
		URL:       st.URL,
		Connected: b.client.IsConnected(),
		Pending:   b.client.Pending(),
	}
	if st.Challenge != login.ChallengeNone {
		snap.Challenge = st.Challenge.String()
	}
	return snap
}

// Connect dials the server if not connected yet
func (b *Bot) Connect(ctx context.Context) error {
	if b.client.IsConnected() {
		return nil
	}
	return b.client.Connect(ctx)
}

func (b *Bot) onDisconnect(err error) {
	b.machine.Disconnected()
	if !b.cfg.AutoReconnect {
		log.Printf("❌ [bot] connection lost and auto-reconnect is off: %v", err)
		b.machine.Dispose()
	}
}

func (b *Bot) onReconnect() {
	ctx, cancel := context.WithTimeout(b.ctx, b.cfg.RequestTimeout*2)
	defer cancel()
	if err := b.machine.Reconnected(ctx); err != nil {
		log.Printf("⚠️  [bot] re-registration after reconnect failed: %v", err)
	}
}

func (b *Bot) onOffline(e event.BotOfflineEvent) {
	if e.Reason != "kicked" {
		return
	}
	log.Printf("❌ [bot] kicked: %s %s", e.Title, e.Tips)
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.kicked:
	default:
		close(b.kicked)
	}
}

// Run supervises the heartbeat, the status endpoint and journal retention
// until ctx is done or the server kicks the session
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.client.RunKeepalive(ctx, b.cfg.HeartbeatInterval, b.heartbeat)
		return nil
	})
	if b.status != nil {
		g.Go(func() error {
			return b.status.Start(ctx)
		})
	}
	if b.journal != nil && b.cfg.JournalTTL > 0 {
		g.Go(func() error {
			b.journal.RunRetention(ctx, b.cfg.JournalTTL, retentionInterval)
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-b.kicked:
			return ErrKicked
		}
	})

	return g.Wait()
}

func (b *Bot) heartbeat(ctx context.Context) error {
	if b.machine.State() != login.StateOnline {
		return nil
	}
	_, err := service.SendEvent[*service.Alive](ctx, b.dispatcher, service.Heartbeat{})
	return err
}

// Dispose logs out locally, closes the connection and releases storage.
// The bot cannot be used afterwards.
func (b *Bot) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	detach := b.detach
	b.detach = nil
	b.mu.Unlock()

	b.machine.Dispose()
	b.cancel()
	if err := b.client.Close(); err != nil {
		log.Printf("⚠️  [bot] close: %v", err)
	}
	b.pipeline.Wait()
	for _, fn := range detach {
		fn()
	}
	b.closeStorage()
	log.Printf("👋 [bot] %d disposed", b.keystore.Uin())
}
