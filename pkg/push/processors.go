package push

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const (
	subFriendRecall     = 138
	subFriendRecallSelf = 139
	subGroupRecall      = 17
)

// Deps is what the built-in processors need from the bot context
type Deps struct {
	Bus  *event.Bus
	Uids *UidCache
	// SelfUin returns the logged-in account
	SelfUin func() int64
}

// RegisterDefaults installs the built-in processors
func RegisterDefaults(p *Pipeline, d Deps) {
	p.Register(MsgTypeEvent0x210, subFriendRecall, "friend_recall", true, d.friendRecall)
	p.Register(MsgTypeEvent0x210, subFriendRecallSelf, "friend_recall", true, d.friendRecall)
	p.Register(MsgTypeEvent0x2DC, subGroupRecall, "group_recall", true, d.groupRecall)
	p.RegisterAny(MsgTypeGroupMemberIncrease, "group_member_increase", true, d.groupMemberIncrease)
	p.RegisterAny(MsgTypeGroupMessage, "rich_text", false, d.richText)
	p.RegisterAny(MsgTypePrivateMessage, "rich_text", false, d.richText)
	p.RegisterAny(MsgTypeTempMessage, "rich_text", false, d.richText)
	p.HandleCommand(CmdKick, d.kick)
}

func pushTime(p *Push) time.Time {
	if c := p.Message.Content; c != nil && c.Timestamp != 0 {
		return time.Unix(int64(c.Timestamp), 0)
	}
	return time.Now()
}

func (d Deps) friendRecall(p *Push) (bool, error) {
	recall, err := wire.Deserialize[wire.FriendRecall](p.Content)
	if err != nil {
		return false, err
	}
	if recall.Info == nil {
		return false, fmt.Errorf("%w: friend recall without info", wire.ErrMalformed)
	}
	info := recall.Info

	fromUin := d.Uids.ResolveUin(info.FromUid)
	friendUin, friendUid := fromUin, info.FromUid
	// recalls of our own messages name the friend as the receiver
	if fromUin != 0 && fromUin == d.SelfUin() {
		friendUin, friendUid = d.Uids.ResolveUin(info.ToUid), info.ToUid
	}

	tip := ""
	if info.TipInfo != nil {
		tip = info.TipInfo.Tip
	}
	d.Bus.Post(event.FriendRecallEvent{
		FriendUin: friendUin,
		FriendUid: friendUid,
		Sequence:  info.Sequence,
		Tip:       tip,
		Time:      pushTime(p),
	})
	return true, nil
}

// groupRecall reads a 4-byte group uin, one skipped byte, then a notify
// body with a 2-byte length prefix
func (d Deps) groupRecall(p *Push) (bool, error) {
	content := p.Content
	if len(content) < 7 {
		return false, fmt.Errorf("%w: group recall content too short", wire.ErrMalformed)
	}
	n := int(binary.BigEndian.Uint16(content[5:7]))
	if len(content) < 7+n {
		return false, fmt.Errorf("%w: group recall body truncated", wire.ErrMalformed)
	}

	notify, err := wire.Deserialize[wire.NotifyMessageBody](content[7 : 7+n])
	if err != nil {
		return false, err
	}
	if notify.Recall == nil {
		return false, fmt.Errorf("%w: notify without recall", wire.ErrMalformed)
	}

	recall := notify.Recall
	tip := ""
	if recall.TipInfo != nil {
		tip = recall.TipInfo.Tip
	}
	var operatorUin int64
	if recall.OperatorUid != "" {
		operatorUin = d.Uids.ResolveUin(recall.OperatorUid)
	}

	for _, m := range recall.Messages {
		d.Bus.Post(event.GroupRecallEvent{
			GroupUin:    notify.GroupUin,
			AuthorUin:   d.Uids.ResolveUin(m.AuthorUid),
			AuthorUid:   m.AuthorUid,
			OperatorUin: operatorUin,
			OperatorUid: recall.OperatorUid,
			Sequence:    m.Sequence,
			Random:      m.Random,
			Tip:         tip,
			Time:        time.Unix(int64(m.Time), 0),
		})
	}
	return true, nil
}

func (d Deps) groupMemberIncrease(p *Push) (bool, error) {
	change, err := wire.Deserialize[wire.GroupChange](p.Content)
	if err != nil {
		return false, err
	}
	d.Bus.Post(event.GroupMemberIncreaseEvent{
		GroupUin:   change.GroupUin,
		MemberUin:  d.Uids.ResolveUin(change.MemberUid),
		MemberUid:  change.MemberUid,
		InvitorUid: string(change.Operator),
		Type:       change.IncreaseType,
		Time:       pushTime(p),
	})
	return true, nil
}

func (d Deps) richText(p *Push) (bool, error) {
	msg := p.Message
	if msg.Routing == nil {
		return false, fmt.Errorf("%w: message without routing head", wire.ErrMalformed)
	}
	routing := msg.Routing
	d.Uids.Add(routing.FromUid, routing.FromUin)

	ev := event.MessageEvent{
		FromUin:  routing.FromUin,
		FromUid:  routing.FromUid,
		Sequence: msg.Content.Sequence,
		Random:   msg.Content.Random,
		Time:     pushTime(p),
	}
	switch p.Type {
	case MsgTypeGroupMessage:
		ev.Kind = event.GroupMessage
		if g := routing.Group; g != nil {
			ev.GroupUin = g.GroupCode
			ev.GroupCard = g.GroupCard
		}
	case MsgTypeTempMessage:
		ev.Kind = event.TempMessage
	default:
		ev.Kind = event.FriendMessage
	}

	if msg.Body != nil && msg.Body.RichText != nil {
		var sb strings.Builder
		for _, e := range msg.Body.RichText.Elems {
			if e.Text != nil {
				sb.WriteString(e.Text.Str)
			}
		}
		ev.Text = sb.String()
	}

	d.Bus.Post(ev)
	return true, nil
}

func (d Deps) kick(pkt *protocol.SsoPacket) error {
	kick, err := wire.Deserialize[wire.Kick](pkt.Data())
	if err != nil {
		return err
	}
	d.Bus.Post(event.BotOfflineEvent{Reason: "kicked", Title: kick.Title, Tips: kick.Tips})
	return nil
}
