package push

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

func pushPacket(t MsgType, sub uint32, msg *wire.CommonMessage, content []byte) *protocol.SsoPacket {
	if msg == nil {
		msg = &wire.CommonMessage{}
	}
	msg.Content = &wire.ContentHead{Type: uint32(t), SubType: sub, Timestamp: 1700000000, Sequence: 10, Random: 20}
	if content != nil {
		if msg.Body == nil {
			msg.Body = &wire.MessageBody{}
		}
		msg.Body.MsgContent = content
	}
	return protocol.NewResponsePacket(CmdMsgPush, 0, 0, "", wire.Serialize(&wire.MsgPush{Message: msg}))
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) add(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newTestPipeline(selfUin int64) (*Pipeline, *recorder, *UidCache) {
	bus := event.NewBus(nil)
	rec := &recorder{}
	bus.SubscribeAll(rec.add)

	uids := NewUidCache(16)
	p := NewPipeline(nil)
	RegisterDefaults(p, Deps{Bus: bus, Uids: uids, SelfUin: func() int64 { return selfUin }})
	return p, rec, uids
}

func TestRoutingTable(t *testing.T) {
	p := NewPipeline(nil)

	var mu sync.Mutex
	var calls []string
	record := func(name string, handled bool, err error) Processor {
		return func(*Push) (bool, error) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
			return handled, err
		}
	}

	p.Register(MsgTypeEvent0x210, 138, "exact", false, record("exact", true, nil))
	p.RegisterAny(MsgTypeEvent0x210, "any", false, record("any", false, nil))
	p.Register(MsgTypeEvent0x210, 139, "other", false, record("other", true, nil))

	p.HandlePacket(pushPacket(MsgTypeEvent0x210, 138, nil, nil))
	p.Wait()

	assert.Equal(t, []string{"exact", "any"}, calls)
}

func TestProcessorFailureIsolated(t *testing.T) {
	p := NewPipeline(nil)

	var mu sync.Mutex
	ran := 0
	p.RegisterAny(MsgTypeGroupMessage, "panics", false, func(*Push) (bool, error) { panic("bad input") })
	p.RegisterAny(MsgTypeGroupMessage, "fails", false, func(*Push) (bool, error) { return false, errors.New("nope") })
	p.RegisterAny(MsgTypeGroupMessage, "works", false, func(*Push) (bool, error) {
		mu.Lock()
		ran++
		mu.Unlock()
		return true, nil
	})

	assert.NotPanics(t, func() {
		p.HandlePacket(pushPacket(MsgTypeGroupMessage, 0, nil, nil))
		p.HandlePacket(pushPacket(MsgTypeGroupMessage, 0, nil, nil))
		p.Wait()
	})
	assert.Equal(t, 2, ran)
}

func TestRequireContentSkips(t *testing.T) {
	p := NewPipeline(nil)
	called := false
	p.RegisterAny(MsgTypeGroupMemberIncrease, "needs content", true, func(*Push) (bool, error) {
		called = true
		return true, nil
	})

	p.HandlePacket(pushPacket(MsgTypeGroupMemberIncrease, 0, nil, nil))
	p.Wait()
	assert.False(t, called)
}

func TestUndecodablePushDropped(t *testing.T) {
	p := NewPipeline(nil)
	assert.NotPanics(t, func() {
		p.HandlePacket(protocol.NewResponsePacket(CmdMsgPush, 0, 0, "", []byte{0xFF}))
		p.HandlePacket(protocol.NewResponsePacket("unknown.Cmd", 0, 0, "", nil))
		p.Wait()
	})
}

func TestFriendRecallProcessor(t *testing.T) {
	tests := []struct {
		name       string
		fromUid    string
		toUid      string
		wantFriend int64
	}{
		{"friend recalled theirs", "u_friend", "u_self", 2002},
		{"we recalled ours", "u_self", "u_friend", 2002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec, uids := newTestPipeline(1001)
			uids.Add("u_self", 1001)
			uids.Add("u_friend", 2002)

			content := wire.Serialize(&wire.FriendRecall{Info: &wire.FriendRecallInfo{
				FromUid:  tt.fromUid,
				ToUid:    tt.toUid,
				TipInfo:  &wire.TipInfo{Tip: "recalled a message"},
				Sequence: 321,
			}})
			p.HandlePacket(pushPacket(MsgTypeEvent0x210, subFriendRecall, nil, content))
			p.Wait()

			require.Len(t, rec.events, 1)
			ev, ok := rec.events[0].(event.FriendRecallEvent)
			require.True(t, ok)
			assert.Equal(t, tt.wantFriend, ev.FriendUin)
			assert.Equal(t, int64(321), ev.Sequence)
			assert.Equal(t, "recalled a message", ev.Tip)
		})
	}
}

func TestGroupRecallProcessor(t *testing.T) {
	p, rec, uids := newTestPipeline(1001)
	uids.Add("u_author", 3003)
	uids.Add("u_admin", 4004)

	body := wire.Serialize(&wire.NotifyMessageBody{
		Type:     subGroupRecall,
		GroupUin: 5555,
		Recall: &wire.GroupRecall{
			OperatorUid: "u_admin",
			Messages: []*wire.RecalledMessage{
				{Sequence: 1, Time: 1700000000, Random: 9, AuthorUid: "u_author"},
				{Sequence: 2, Time: 1700000001, Random: 8, AuthorUid: "u_author"},
			},
			TipInfo: &wire.TipInfo{Tip: "admin recalled"},
		},
	})
	content := binary.BigEndian.AppendUint32(nil, 5555)
	content = append(content, 0)
	content = binary.BigEndian.AppendUint16(content, uint16(len(body)))
	content = append(content, body...)

	p.HandlePacket(pushPacket(MsgTypeEvent0x2DC, subGroupRecall, nil, content))
	p.Wait()

	require.Len(t, rec.events, 2)
	for i, e := range rec.events {
		ev := e.(event.GroupRecallEvent)
		assert.Equal(t, int64(5555), ev.GroupUin)
		assert.Equal(t, int64(3003), ev.AuthorUin)
		assert.Equal(t, int64(4004), ev.OperatorUin)
		assert.Equal(t, uint64(i+1), ev.Sequence)
		assert.Equal(t, "admin recalled", ev.Tip)
	}
}

func TestGroupRecallTruncated(t *testing.T) {
	p, rec, _ := newTestPipeline(1001)

	content := []byte{0, 0, 0, 1, 0, 0, 50, 1, 2}
	p.HandlePacket(pushPacket(MsgTypeEvent0x2DC, subGroupRecall, nil, content))
	p.Wait()

	assert.Empty(t, rec.events)
}

func TestMemberIncreaseProcessor(t *testing.T) {
	p, rec, uids := newTestPipeline(1001)
	uids.Add("u_new", 6006)

	content := wire.Serialize(&wire.GroupChange{GroupUin: 5555, MemberUid: "u_new", Operator: []byte("u_inviter"), IncreaseType: 130})
	p.HandlePacket(pushPacket(MsgTypeGroupMemberIncrease, 0, nil, content))
	p.Wait()

	require.Len(t, rec.events, 1)
	ev := rec.events[0].(event.GroupMemberIncreaseEvent)
	assert.Equal(t, int64(6006), ev.MemberUin)
	assert.Equal(t, "u_inviter", ev.InvitorUid)
	assert.Equal(t, uint32(130), ev.Type)
}

func TestRichTextProcessor(t *testing.T) {
	p, rec, uids := newTestPipeline(1001)

	msg := &wire.CommonMessage{
		Routing: &wire.RoutingHead{FromUin: 7007, FromUid: "u_sender", Group: &wire.GroupRouting{GroupCode: 5555, GroupCard: "card"}},
		Body: &wire.MessageBody{RichText: &wire.RichText{Elems: []*wire.Elem{
			{Text: &wire.TextElem{Str: "hello "}},
			{Kind: 2},
			{Text: &wire.TextElem{Str: "world"}},
		}}},
	}
	p.HandlePacket(pushPacket(MsgTypeGroupMessage, 0, msg, nil))
	p.Wait()

	require.Len(t, rec.events, 1)
	ev := rec.events[0].(event.MessageEvent)
	assert.Equal(t, event.GroupMessage, ev.Kind)
	assert.Equal(t, "hello world", ev.Text)
	assert.Equal(t, int64(5555), ev.GroupUin)
	assert.Equal(t, uint64(10), ev.Sequence)
	assert.Equal(t, int64(7007), uids.ResolveUin("u_sender"))
}

func TestKickHandler(t *testing.T) {
	p, rec, _ := newTestPipeline(1001)

	p.HandlePacket(protocol.NewResponsePacket(CmdKick, 0, 0, "", wire.Serialize(&wire.Kick{Uin: 1001, Title: "Offline", Tips: "logged in elsewhere"})))
	p.Wait()

	require.Len(t, rec.events, 1)
	ev := rec.events[0].(event.BotOfflineEvent)
	assert.Equal(t, "kicked", ev.Reason)
	assert.Equal(t, "logged in elsewhere", ev.Tips)
}

func TestUidCache(t *testing.T) {
	c := NewUidCache(2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("", 3)
	c.Add("c", 3)

	assert.Equal(t, 2, c.Len())
	assert.Zero(t, c.ResolveUin("a"), "oldest entry evicted")
	assert.Equal(t, int64(3), c.ResolveUin("c"))

	uid, ok := c.ResolveUid(2)
	assert.True(t, ok)
	assert.Equal(t, "b", uid)
}
