package network

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/protocol"
)

// recentCompletions bounds how many finished sequences are remembered for
// duplicate detection
const recentCompletions = 1024

type result struct {
	pkt *protocol.SsoPacket
	err error
}

// Waiter is the completion handle of one pending request. The channel is
// buffered so completing never blocks the receive loop, and the waiting
// caller resumes on its own goroutine.
type Waiter struct {
	seq  uint32
	ch   chan result
	once sync.Once
}

func (w *Waiter) complete(r result) bool {
	done := false
	w.once.Do(func() {
		w.ch <- r
		done = true
	})
	return done
}

// Sequence returns the sequence the waiter is registered for
func (w *Waiter) Sequence() uint32 {
	return w.seq
}

type completionKey struct {
	seq     uint32
	command string
}

// Correlator matches inbound packets to outstanding requests by sequence.
// Unmatched packets are server pushes and go to onPush.
type Correlator struct {
	seq atomic.Uint32

	mu      sync.Mutex
	pending map[uint32]*Waiter

	recent  *lru.Cache
	onPush  func(*protocol.SsoPacket)
	metrics *metrics.Metrics
}

// NewCorrelator creates a correlator. onPush may be nil.
func NewCorrelator(onPush func(*protocol.SsoPacket), m *metrics.Metrics) *Correlator {
	recent, err := lru.New(recentCompletions)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Correlator{
		pending: make(map[uint32]*Waiter),
		recent:  recent,
		onPush:  onPush,
		metrics: m,
	}
}

// AllocateSequence returns the next sequence, wrapping past zero
func (c *Correlator) AllocateSequence() uint32 {
	for {
		if v := c.seq.Add(1); v != 0 {
			return v
		}
	}
}

// Seed sets the counter so the next allocation is start+1
func (c *Correlator) Seed(start uint32) {
	c.seq.Store(start)
}

// Register creates the waiter for seq. Only one waiter may exist per sequence.
func (c *Correlator) Register(seq uint32) (*Waiter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.pending[seq]; exists {
		return nil, ErrDuplicateSequence
	}
	w := &Waiter{seq: seq, ch: make(chan result, 1)}
	c.pending[seq] = w
	c.metrics.SetPending(len(c.pending))
	return w, nil
}

// Wait blocks until w completes or ctx ends. On cancellation the pending
// entry is removed; a response that already arrived still wins.
func (c *Correlator) Wait(ctx context.Context, w *Waiter) (*protocol.SsoPacket, error) {
	select {
	case r := <-w.ch:
		return r.pkt, r.err
	case <-ctx.Done():
		c.Cancel(w.seq)
		select {
		case r := <-w.ch:
			return r.pkt, r.err
		default:
		}
		return nil, &CancellationError{Sequence: w.seq, Err: ctx.Err()}
	}
}

// Cancel drops the pending entry for seq; a no-op if already completed
func (c *Correlator) Cancel(seq uint32) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.metrics.SetPending(len(c.pending))
	c.mu.Unlock()
}

// Deliver routes an inbound packet. It never blocks on caller work.
func (c *Correlator) Deliver(pkt *protocol.SsoPacket) {
	c.mu.Lock()
	w, ok := c.pending[pkt.Sequence()]
	if ok {
		delete(c.pending, pkt.Sequence())
		c.metrics.SetPending(len(c.pending))
	}
	c.mu.Unlock()

	key := completionKey{seq: pkt.Sequence(), command: pkt.Command()}
	if ok {
		w.complete(result{pkt: pkt})
		c.recent.Add(key, struct{}{})
		c.metrics.PacketReceived("response")
		return
	}

	if c.recent.Contains(key) {
		log.Printf("⚠️  [correlator] duplicate response for %s seq=%d ignored", pkt.Command(), pkt.Sequence())
		c.metrics.PacketReceived("duplicate")
		return
	}

	c.metrics.PacketReceived("push")
	if c.onPush != nil {
		c.onPush(pkt)
	}
}

// FaultAll completes every pending request with err and returns how many
// were faulted
func (c *Correlator) FaultAll(err error) int {
	c.mu.Lock()
	waiters := c.pending
	c.pending = make(map[uint32]*Waiter)
	c.metrics.SetPending(0)
	c.mu.Unlock()

	for _, w := range waiters {
		w.complete(result{err: err})
	}
	return len(waiters)
}

// Pending returns the number of outstanding requests
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
