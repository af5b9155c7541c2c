package network

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/protocol"
)

// Config controls the service connection
type Config struct {
	Address        string
	AutoReconnect  bool
	RequestTimeout time.Duration
	DialTimeout    time.Duration

	// Reconnect backoff limits; zero means the defaults below
	MaxReconnectInterval time.Duration
	MaxReconnectElapsed  time.Duration

	// Dial overrides how connections are opened, mostly for tests
	Dial func(ctx context.Context, address string) (net.Conn, error)
}

const (
	defaultRequestTimeout       = 15 * time.Second
	defaultDialTimeout          = 10 * time.Second
	defaultMaxReconnectInterval = 30 * time.Second
	defaultMaxReconnectElapsed  = 10 * time.Minute
)

// Client owns one TCP connection to the service. Any number of goroutines
// may Send concurrently; a single receive loop delivers inbound packets.
type Client struct {
	cfg     Config
	codec   *protocol.Codec
	metrics *metrics.Metrics
	corr    *Correlator

	// connectMu serializes Connect so only one receive loop ever runs
	connectMu sync.Mutex

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	closed    bool
	running   bool // receive loop alive, possibly reconnecting

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Callbacks, set before Connect
	OnDisconnect func(err error)
	OnReconnect  func()
}

// NewClient creates a client. onPush receives every inbound packet that
// does not answer a pending request.
func NewClient(cfg Config, codec *protocol.Codec, m *metrics.Metrics, onPush func(*protocol.SsoPacket)) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxReconnectInterval == 0 {
		cfg.MaxReconnectInterval = defaultMaxReconnectInterval
	}
	if cfg.MaxReconnectElapsed == 0 {
		cfg.MaxReconnectElapsed = defaultMaxReconnectElapsed
	}
	if cfg.Dial == nil {
		dialer := &net.Dialer{Timeout: cfg.DialTimeout}
		cfg.Dial = func(ctx context.Context, address string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", address)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:     cfg,
		codec:   codec,
		metrics: m,
		corr:    NewCorrelator(onPush, m),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Codec returns the codec used for framing
func (c *Client) Codec() *protocol.Codec {
	return c.codec
}

// Connect dials the service and starts the receive loop. Concurrent calls
// share one connection. While the loop is reconnecting it returns
// ErrReconnecting.
func (c *Client) Connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	closed, connected, running := c.closed, c.connected, c.running
	c.mu.Unlock()
	switch {
	case closed:
		return ErrClosed
	case connected:
		return nil
	case running:
		return &ConnectionError{Err: ErrReconnecting}
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return &ConnectionError{Err: err}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.running = true
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.receiveLoopWithReconnect(conn)
	}()

	log.Printf("🔌 [network] connected to %s", c.cfg.Address)
	return nil
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.cfg.Dial(ctx, c.cfg.Address)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return nil, ErrClosed
	}
	c.conn = conn
	c.connected = true
	return conn, nil
}

// Send frames pkt with a fresh sequence, writes it and waits for the
// matching response. The wait ends at the configured request timeout, at
// ctx cancellation or when the connection faults.
func (c *Client) Send(ctx context.Context, pkt *protocol.SsoPacket, req protocol.RequestType, enc protocol.EncryptType) (*protocol.SsoPacket, error) {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}

	seq := c.corr.AllocateSequence()
	pkt = pkt.WithSequence(seq)

	waiter, err := c.corr.Register(seq)
	if err != nil {
		return nil, err
	}

	frame, err := c.codec.Encode(ctx, pkt, req, enc)
	if err != nil {
		c.corr.Cancel(seq)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	c.writeMu.Lock()
	err = protocol.WriteFrame(conn, frame)
	c.writeMu.Unlock()
	if err != nil {
		c.corr.Cancel(seq)
		return nil, &ConnectionError{Err: err}
	}
	c.metrics.PacketSent(pkt.Command())

	return c.corr.Wait(ctx, waiter)
}

// receiveLoop reads frames until the connection fails
func (c *Client) receiveLoop(conn net.Conn) error {
	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			return err
		}

		pkt, err := c.codec.Decode(frame)
		if err != nil {
			log.Printf("⚠️  [network] dropping undecodable frame (%d bytes): %v", len(frame), err)
			c.metrics.PacketReceived("malformed")
			continue
		}
		c.corr.Deliver(pkt)
	}
}

func (c *Client) receiveLoopWithReconnect(conn net.Conn) {
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		err := c.receiveLoop(conn)
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		c.mu.Lock()
		closed := c.closed
		if c.conn == conn {
			c.connected = false
		}
		c.mu.Unlock()
		conn.Close()

		if closed {
			c.corr.FaultAll(&ConnectionError{Err: ErrClosed})
			return
		}

		n := c.corr.FaultAll(&ConnectionError{Err: err})
		log.Printf("🔌 [network] connection lost: %v (%d pending faulted)", err, n)
		if c.OnDisconnect != nil {
			c.OnDisconnect(err)
		}

		if !c.cfg.AutoReconnect {
			return
		}

		next, err := c.reconnect()
		if err != nil {
			log.Printf("❌ [network] giving up reconnecting: %v", err)
			return
		}
		conn = next
		c.metrics.Reconnected()
		log.Println("✅ [network] reconnected")

		if c.OnReconnect != nil {
			// the callback may Send, which needs this loop reading
			go c.OnReconnect()
		}
	}
}

// Pending returns the number of requests awaiting a response
func (c *Client) Pending() int {
	return c.corr.Pending()
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the connection and faults every pending request. The client
// cannot be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	c.cancel()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()

	// requests registered while no loop was running
	c.corr.FaultAll(&ConnectionError{Err: ErrClosed})
	return err
}
