package protocol

// SsoPacket is the framed unit exchanged with the server. It is immutable
// once built; the sequence number is the correlation key.
type SsoPacket struct {
	command  string
	sequence uint32
	data     []byte
	retCode  int32
	extra    string
}

// NewSsoPacket builds an outbound packet. The sequence is assigned on send.
func NewSsoPacket(command string, data []byte) *SsoPacket {
	return &SsoPacket{command: command, data: data}
}

// NewResponsePacket builds a packet as decoded from the wire
func NewResponsePacket(command string, sequence uint32, retCode int32, extra string, data []byte) *SsoPacket {
	return &SsoPacket{
		command:  command,
		sequence: sequence,
		data:     data,
		retCode:  retCode,
		extra:    extra,
	}
}

func (p *SsoPacket) Command() string  { return p.command }
func (p *SsoPacket) Sequence() uint32 { return p.sequence }
func (p *SsoPacket) RetCode() int32   { return p.retCode }
func (p *SsoPacket) Extra() string    { return p.extra }

// Data returns the payload. Callers must not modify it.
func (p *SsoPacket) Data() []byte { return p.data }

// WithSequence returns a copy carrying seq
func (p *SsoPacket) WithSequence(seq uint32) *SsoPacket {
	c := *p
	c.sequence = seq
	return &c
}
