package service

import (
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const (
	OpC2CRecall   Operation = "C2CRecall"
	OpGroupRecall Operation = "GroupRecall"

	CmdC2CRecall   = "trpc.msg.msg_svc.MsgService.SsoC2CRecallMsg"
	CmdGroupRecall = "trpc.msg.msg_svc.MsgService.SsoGroupRecallMsg"

	recallType = 1

	// message ids of private messages carry this marker above the random
	c2cMessageIDMarker uint64 = 0x01000000 << 32
)

// C2CRecall withdraws a private message sent to TargetUid
type C2CRecall struct {
	TargetUid      string
	Sequence       uint64
	ClientSequence uint64
	Random         uint32
	Timestamp      uint32
}

func (C2CRecall) Operation() Operation { return OpC2CRecall }

// GroupRecall withdraws a group message by sequence
type GroupRecall struct {
	GroupUin int64
	Sequence uint64
}

func (GroupRecall) Operation() Operation { return OpGroupRecall }

// Recalled is the (empty) response of both recall operations
type Recalled struct{}

func buildC2CRecall(_ *Env, req C2CRecall) ([]byte, error) {
	return wire.Serialize(&wire.C2CRecallRequest{
		Type:      recallType,
		TargetUid: req.TargetUid,
		Info: &wire.C2CRecallInfo{
			Sequence:       req.Sequence,
			Random:         req.Random,
			MessageID:      c2cMessageIDMarker | uint64(req.Random),
			Timestamp:      req.Timestamp,
			ClientSequence: req.ClientSequence,
		},
		Settings: &wire.C2CRecallSettings{},
	}), nil
}

func buildGroupRecall(_ *Env, req GroupRecall) ([]byte, error) {
	return wire.Serialize(&wire.GroupRecallRequest{
		Type:     recallType,
		GroupUin: req.GroupUin,
		Info:     &wire.GroupRecallInfo{Sequence: req.Sequence},
		Field4:   &wire.GroupRecallField4{},
	}), nil
}

func parseRecalled[Req Event](*Env, Req, []byte) (*Recalled, error) {
	return &Recalled{}, nil
}

func messageDescriptors() []*Descriptor {
	return []*Descriptor{
		Define(CmdC2CRecall, protocol.RequestD2Auth, protocol.EncryptD2Key, protocol.All,
			buildC2CRecall, parseRecalled[C2CRecall]),
		Define(CmdGroupRecall, protocol.RequestD2Auth, protocol.EncryptD2Key, protocol.All,
			buildGroupRecall, parseRecalled[GroupRecall]),
	}
}
