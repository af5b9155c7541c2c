// Package push routes server-initiated packets to processors that turn
// them into domain events.
package push

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const (
	CmdMsgPush = "trpc.msg.olpush.OlPushService.MsgPush"
	CmdKick    = "trpc.qq_new_tech.status_svc.StatusService.KickNT"
)

// MsgType is the content type of a pushed message
type MsgType uint32

const (
	MsgTypeGroupMemberIncrease MsgType = 33
	MsgTypeGroupMessage        MsgType = 82
	MsgTypeTempMessage         MsgType = 141
	MsgTypePrivateMessage      MsgType = 166
	MsgTypeEvent0x210          MsgType = 528
	MsgTypeEvent0x2DC          MsgType = 732
)

// Push is one decoded MsgPush
type Push struct {
	Type    MsgType
	SubType uint32
	Message *wire.CommonMessage
	// Content is the message body's opaque content, nil when absent
	Content []byte
	Raw     []byte
}

// Processor handles a push and reports whether it fully handled it
type Processor func(p *Push) (bool, error)

// CommandHandler handles a non-MsgPush server packet such as a kick
type CommandHandler func(pkt *protocol.SsoPacket) error

type processorEntry struct {
	name           string
	requireContent bool
	fn             Processor
}

type routeKey struct {
	msgType MsgType
	subType uint32
}

// Pipeline is the push registration table. Registration happens at startup;
// HandlePacket may be called from the receive loop at any time after.
type Pipeline struct {
	mu       sync.RWMutex
	exact    map[routeKey][]processorEntry
	any      map[MsgType][]processorEntry
	commands map[string]CommandHandler

	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewPipeline(m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		exact:    make(map[routeKey][]processorEntry),
		any:      make(map[MsgType][]processorEntry),
		commands: make(map[string]CommandHandler),
		metrics:  m,
	}
}

// Register adds fn for one (type, subtype) pair. requireContent skips
// pushes without a content body.
func (p *Pipeline) Register(t MsgType, subType uint32, name string, requireContent bool, fn Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := routeKey{t, subType}
	p.exact[k] = append(p.exact[k], processorEntry{name: name, requireContent: requireContent, fn: fn})
}

// RegisterAny adds fn for every subtype of t
func (p *Pipeline) RegisterAny(t MsgType, name string, requireContent bool, fn Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.any[t] = append(p.any[t], processorEntry{name: name, requireContent: requireContent, fn: fn})
}

// HandleCommand registers fn for packets with the given command
func (p *Pipeline) HandleCommand(command string, fn CommandHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands[command] = fn
}

// HandlePacket schedules pkt for processing and returns immediately
func (p *Pipeline) HandlePacket(pkt *protocol.SsoPacket) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.dispatch(pkt)
	}()
}

// Wait blocks until every scheduled packet has been processed
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) dispatch(pkt *protocol.SsoPacket) {
	if pkt.Command() != CmdMsgPush {
		p.mu.RLock()
		fn := p.commands[pkt.Command()]
		p.mu.RUnlock()
		if fn == nil {
			log.Printf("⚠️  [push] no handler for %s (seq=%d)", pkt.Command(), pkt.Sequence())
			return
		}
		if err := safeCommand(fn, pkt); err != nil {
			log.Printf("❌ [push] %s handler failed: %v", pkt.Command(), err)
		}
		return
	}

	push, err := decodePush(pkt.Data())
	if err != nil {
		log.Printf("⚠️  [push] dropping undecodable MsgPush: %v", err)
		p.metrics.PushHandled("undecodable", "error")
		return
	}
	label := strconv.FormatUint(uint64(push.Type), 10)

	p.mu.RLock()
	entries := make([]processorEntry, 0, 4)
	entries = append(entries, p.exact[routeKey{push.Type, push.SubType}]...)
	entries = append(entries, p.any[push.Type]...)
	p.mu.RUnlock()

	handled := false
	for _, e := range entries {
		if e.requireContent && push.Content == nil {
			continue
		}
		ok, err := safeProcess(e.fn, push)
		switch {
		case err != nil:
			log.Printf("❌ [push] processor %s failed on type=%d sub=%d: %v", e.name, push.Type, push.SubType, err)
			p.metrics.PushHandled(label, "error")
		case ok:
			handled = true
			p.metrics.PushHandled(label, "handled")
		}
	}

	if !handled {
		p.metrics.PushHandled(label, "unhandled")
	}
}

func decodePush(data []byte) (*Push, error) {
	msg, err := wire.Deserialize[wire.MsgPush](data)
	if err != nil {
		return nil, err
	}
	if msg.Message == nil || msg.Message.Content == nil {
		return nil, fmt.Errorf("%w: push without content head", wire.ErrMalformed)
	}

	push := &Push{
		Type:    MsgType(msg.Message.Content.Type),
		SubType: msg.Message.Content.SubType,
		Message: msg.Message,
		Raw:     data,
	}
	if body := msg.Message.Body; body != nil {
		push.Content = body.MsgContent
	}
	return push, nil
}

func safeProcess(fn Processor, p *Push) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(p)
}

func safeCommand(fn CommandHandler, pkt *protocol.SsoPacket) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(pkt)
}
