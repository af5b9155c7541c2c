package wire

// SecInfo is the signature bundle attached to whitelisted commands
type SecInfo struct {
	Sign  []byte
	Token []byte
	Extra []byte
}

func (m *SecInfo) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.Sign)
	b = appendBytes(b, 2, m.Token)
	b = appendBytes(b, 3, m.Extra)
	return b
}

func (m *SecInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Sign = f.Clone()
		case 2:
			m.Token = f.Clone()
		case 3:
			m.Extra = f.Clone()
		}
		return nil
	})
}

// ReserveFields rides in the SSO head of every request and response
type ReserveFields struct {
	TraceParent string
	Uid         string
	MsgType     uint32
	SecInfo     *SecInfo
}

func (m *ReserveFields) AppendWire(b []byte) []byte {
	b = appendString(b, 15, m.TraceParent)
	b = appendString(b, 16, m.Uid)
	b = appendUint(b, 21, uint64(m.MsgType))
	if m.SecInfo != nil {
		b = appendMessage(b, 24, m.SecInfo)
	}
	return b
}

func (m *ReserveFields) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 15:
			m.TraceParent = f.String()
		case 16:
			m.Uid = f.String()
		case 21:
			m.MsgType = f.Uint32()
		case 24:
			m.SecInfo = &SecInfo{}
			return f.Read(m.SecInfo)
		}
		return nil
	})
}
