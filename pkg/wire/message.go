package wire

// Recall requests

type C2CRecallRequest struct {
	Type      uint32
	TargetUid string
	Info      *C2CRecallInfo
	Settings  *C2CRecallSettings
	Field6    bool
}

func (m *C2CRecallRequest) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Type))
	b = appendString(b, 3, m.TargetUid)
	if m.Info != nil {
		b = appendMessage(b, 4, m.Info)
	}
	if m.Settings != nil {
		b = appendMessage(b, 5, m.Settings)
	}
	b = appendBool(b, 6, m.Field6)
	return b
}

func (m *C2CRecallRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Type = f.Uint32()
		case 3:
			m.TargetUid = f.String()
		case 4:
			m.Info = &C2CRecallInfo{}
			return f.Read(m.Info)
		case 5:
			m.Settings = &C2CRecallSettings{}
			return f.Read(m.Settings)
		case 6:
			m.Field6 = f.Bool()
		}
		return nil
	})
}

type C2CRecallInfo struct {
	Sequence       uint64
	Random         uint32
	MessageID      uint64
	Timestamp      uint32
	Field5         uint32
	ClientSequence uint64
}

func (m *C2CRecallInfo) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, m.Sequence)
	b = appendUint(b, 2, uint64(m.Random))
	b = appendUint(b, 3, m.MessageID)
	b = appendUint(b, 4, uint64(m.Timestamp))
	b = appendUint(b, 5, uint64(m.Field5))
	b = appendUint(b, 6, m.ClientSequence)
	return b
}

func (m *C2CRecallInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Sequence = f.Uint()
		case 2:
			m.Random = f.Uint32()
		case 3:
			m.MessageID = f.Uint()
		case 4:
			m.Timestamp = f.Uint32()
		case 5:
			m.Field5 = f.Uint32()
		case 6:
			m.ClientSequence = f.Uint()
		}
		return nil
	})
}

type C2CRecallSettings struct {
	Field1 bool
	Field2 bool
}

func (m *C2CRecallSettings) AppendWire(b []byte) []byte {
	b = appendBool(b, 1, m.Field1)
	b = appendBool(b, 2, m.Field2)
	return b
}

func (m *C2CRecallSettings) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Field1 = f.Bool()
		case 2:
			m.Field2 = f.Bool()
		}
		return nil
	})
}

type GroupRecallRequest struct {
	Type     uint32
	GroupUin int64
	Info     *GroupRecallInfo
	Field4   *GroupRecallField4
}

func (m *GroupRecallRequest) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Type))
	b = appendInt(b, 2, m.GroupUin)
	if m.Info != nil {
		b = appendMessage(b, 3, m.Info)
	}
	if m.Field4 != nil {
		b = appendMessage(b, 4, m.Field4)
	}
	return b
}

func (m *GroupRecallRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Type = f.Uint32()
		case 2:
			m.GroupUin = f.Int()
		case 3:
			m.Info = &GroupRecallInfo{}
			return f.Read(m.Info)
		case 4:
			m.Field4 = &GroupRecallField4{}
			return f.Read(m.Field4)
		}
		return nil
	})
}

type GroupRecallInfo struct {
	Sequence uint64
	Random   uint32
	Field3   uint32
}

func (m *GroupRecallInfo) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, m.Sequence)
	b = appendUint(b, 2, uint64(m.Random))
	b = appendUint(b, 3, uint64(m.Field3))
	return b
}

func (m *GroupRecallInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Sequence = f.Uint()
		case 2:
			m.Random = f.Uint32()
		case 3:
			m.Field3 = f.Uint32()
		}
		return nil
	})
}

type GroupRecallField4 struct {
	Field1 uint32
}

func (m *GroupRecallField4) AppendWire(b []byte) []byte {
	return appendUint(b, 1, uint64(m.Field1))
}

func (m *GroupRecallField4) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Field1 = f.Uint32()
		}
		return nil
	})
}

// Push envelope (trpc.msg.olpush.OlPushService.MsgPush)

type MsgPush struct {
	Message *CommonMessage
}

func (m *MsgPush) AppendWire(b []byte) []byte {
	if m.Message != nil {
		b = appendMessage(b, 1, m.Message)
	}
	return b
}

func (m *MsgPush) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Message = &CommonMessage{}
			return f.Read(m.Message)
		}
		return nil
	})
}

type CommonMessage struct {
	Routing *RoutingHead
	Content *ContentHead
	Body    *MessageBody
}

func (m *CommonMessage) AppendWire(b []byte) []byte {
	if m.Routing != nil {
		b = appendMessage(b, 1, m.Routing)
	}
	if m.Content != nil {
		b = appendMessage(b, 2, m.Content)
	}
	if m.Body != nil {
		b = appendMessage(b, 3, m.Body)
	}
	return b
}

func (m *CommonMessage) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Routing = &RoutingHead{}
			return f.Read(m.Routing)
		case 2:
			m.Content = &ContentHead{}
			return f.Read(m.Content)
		case 3:
			m.Body = &MessageBody{}
			return f.Read(m.Body)
		}
		return nil
	})
}

type RoutingHead struct {
	FromUin int64
	FromUid string
	ToUin   int64
	ToUid   string
	Group   *GroupRouting
}

func (m *RoutingHead) AppendWire(b []byte) []byte {
	b = appendInt(b, 1, m.FromUin)
	b = appendString(b, 2, m.FromUid)
	b = appendInt(b, 5, m.ToUin)
	b = appendString(b, 6, m.ToUid)
	if m.Group != nil {
		b = appendMessage(b, 8, m.Group)
	}
	return b
}

func (m *RoutingHead) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.FromUin = f.Int()
		case 2:
			m.FromUid = f.String()
		case 5:
			m.ToUin = f.Int()
		case 6:
			m.ToUid = f.String()
		case 8:
			m.Group = &GroupRouting{}
			return f.Read(m.Group)
		}
		return nil
	})
}

type GroupRouting struct {
	GroupCode int64
	GroupCard string
}

func (m *GroupRouting) AppendWire(b []byte) []byte {
	b = appendInt(b, 1, m.GroupCode)
	b = appendString(b, 4, m.GroupCard)
	return b
}

func (m *GroupRouting) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.GroupCode = f.Int()
		case 4:
			m.GroupCard = f.String()
		}
		return nil
	})
}

type ContentHead struct {
	Type      uint32
	SubType   uint32
	Random    uint32
	Sequence  uint64
	Timestamp uint32
}

func (m *ContentHead) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Type))
	b = appendUint(b, 2, uint64(m.SubType))
	b = appendUint(b, 4, uint64(m.Random))
	b = appendUint(b, 5, m.Sequence)
	b = appendUint(b, 6, uint64(m.Timestamp))
	return b
}

func (m *ContentHead) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Type = f.Uint32()
		case 2:
			m.SubType = f.Uint32()
		case 4:
			m.Random = f.Uint32()
		case 5:
			m.Sequence = f.Uint()
		case 6:
			m.Timestamp = f.Uint32()
		}
		return nil
	})
}

type MessageBody struct {
	RichText   *RichText
	MsgContent []byte
}

func (m *MessageBody) AppendWire(b []byte) []byte {
	if m.RichText != nil {
		b = appendMessage(b, 1, m.RichText)
	}
	b = appendBytes(b, 2, m.MsgContent)
	return b
}

func (m *MessageBody) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.RichText = &RichText{}
			return f.Read(m.RichText)
		case 2:
			m.MsgContent = f.Clone()
		}
		return nil
	})
}

type RichText struct {
	Elems []*Elem
}

func (m *RichText) AppendWire(b []byte) []byte {
	for _, e := range m.Elems {
		b = appendMessage(b, 2, e)
	}
	return b
}

func (m *RichText) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 2 {
			e := &Elem{}
			if err := f.Read(e); err != nil {
				return err
			}
			m.Elems = append(m.Elems, e)
		}
		return nil
	})
}

// Elem carries one message element; only text is decoded, other kinds are
// kept as their raw field number.
type Elem struct {
	Text *TextElem
	Kind uint32
}

func (m *Elem) AppendWire(b []byte) []byte {
	if m.Text != nil {
		b = appendMessage(b, 1, m.Text)
	}
	return b
}

func (m *Elem) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		m.Kind = uint32(f.Num)
		if f.Num == 1 {
			m.Text = &TextElem{}
			return f.Read(m.Text)
		}
		return nil
	})
}

type TextElem struct {
	Str string
}

func (m *TextElem) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.Str)
}

func (m *TextElem) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Str = f.String()
		}
		return nil
	})
}

// Notify bodies

type FriendRecall struct {
	Info *FriendRecallInfo
}

func (m *FriendRecall) AppendWire(b []byte) []byte {
	if m.Info != nil {
		b = appendMessage(b, 1, m.Info)
	}
	return b
}

func (m *FriendRecall) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Info = &FriendRecallInfo{}
			return f.Read(m.Info)
		}
		return nil
	})
}

type FriendRecallInfo struct {
	FromUid  string
	ToUid    string
	TipInfo  *TipInfo
	Sequence int64
}

func (m *FriendRecallInfo) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.FromUid)
	b = appendString(b, 2, m.ToUid)
	if m.TipInfo != nil {
		b = appendMessage(b, 13, m.TipInfo)
	}
	b = appendInt(b, 20, m.Sequence)
	return b
}

func (m *FriendRecallInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.FromUid = f.String()
		case 2:
			m.ToUid = f.String()
		case 13:
			m.TipInfo = &TipInfo{}
			return f.Read(m.TipInfo)
		case 20:
			m.Sequence = f.Int()
		}
		return nil
	})
}

type TipInfo struct {
	Tip string
}

func (m *TipInfo) AppendWire(b []byte) []byte {
	return appendString(b, 2, m.Tip)
}

func (m *TipInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 2 {
			m.Tip = f.String()
		}
		return nil
	})
}

type NotifyMessageBody struct {
	Type     uint32
	GroupUin int64
	Recall   *GroupRecall
}

func (m *NotifyMessageBody) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Type))
	b = appendInt(b, 4, m.GroupUin)
	if m.Recall != nil {
		b = appendMessage(b, 11, m.Recall)
	}
	return b
}

func (m *NotifyMessageBody) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Type = f.Uint32()
		case 4:
			m.GroupUin = f.Int()
		case 11:
			m.Recall = &GroupRecall{}
			return f.Read(m.Recall)
		}
		return nil
	})
}

type GroupRecall struct {
	OperatorUid string
	Messages    []*RecalledMessage
	TipInfo     *TipInfo
}

func (m *GroupRecall) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.OperatorUid)
	for _, msg := range m.Messages {
		b = appendMessage(b, 3, msg)
	}
	if m.TipInfo != nil {
		b = appendMessage(b, 9, m.TipInfo)
	}
	return b
}

func (m *GroupRecall) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.OperatorUid = f.String()
		case 3:
			msg := &RecalledMessage{}
			if err := f.Read(msg); err != nil {
				return err
			}
			m.Messages = append(m.Messages, msg)
		case 9:
			m.TipInfo = &TipInfo{}
			return f.Read(m.TipInfo)
		}
		return nil
	})
}

type RecalledMessage struct {
	Sequence  uint64
	Time      uint32
	Random    uint32
	AuthorUid string
}

func (m *RecalledMessage) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, m.Sequence)
	b = appendUint(b, 2, uint64(m.Time))
	b = appendUint(b, 3, uint64(m.Random))
	b = appendString(b, 6, m.AuthorUid)
	return b
}

func (m *RecalledMessage) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Sequence = f.Uint()
		case 2:
			m.Time = f.Uint32()
		case 3:
			m.Random = f.Uint32()
		case 6:
			m.AuthorUid = f.String()
		}
		return nil
	})
}

// GroupChange announces member increase and decrease
type GroupChange struct {
	GroupUin     int64
	Flag         uint32
	MemberUid    string
	DecreaseType uint32
	Operator     []byte
	IncreaseType uint32
}

func (m *GroupChange) AppendWire(b []byte) []byte {
	b = appendInt(b, 1, m.GroupUin)
	b = appendUint(b, 2, uint64(m.Flag))
	b = appendString(b, 3, m.MemberUid)
	b = appendUint(b, 4, uint64(m.DecreaseType))
	b = appendBytes(b, 5, m.Operator)
	b = appendUint(b, 6, uint64(m.IncreaseType))
	return b
}

func (m *GroupChange) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.GroupUin = f.Int()
		case 2:
			m.Flag = f.Uint32()
		case 3:
			m.MemberUid = f.String()
		case 4:
			m.DecreaseType = f.Uint32()
		case 5:
			m.Operator = f.Clone()
		case 6:
			m.IncreaseType = f.Uint32()
		}
		return nil
	})
}

// Kick is pushed when the server terminates the session
type Kick struct {
	Uin   int64
	Tips  string
	Title string
}

func (m *Kick) AppendWire(b []byte) []byte {
	b = appendInt(b, 1, m.Uin)
	b = appendString(b, 3, m.Tips)
	b = appendString(b, 4, m.Title)
	return b
}

func (m *Kick) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Uin = f.Int()
		case 3:
			m.Tips = f.String()
		case 4:
			m.Title = f.String()
		}
		return nil
	})
}
