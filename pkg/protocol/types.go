package protocol

import (
	"strings"
)

// Frame limits
const (
	// MaxFrameSize bounds a single length-prefixed frame
	MaxFrameSize = 16 << 20

	// MaxInflatedSize bounds a decompressed body
	MaxInflatedSize = 4 * MaxFrameSize

	// LocaleID is zh_CN, the only locale the servers accept
	LocaleID = 2052
)

// RequestType is the protocol field of the outer service frame
type RequestType uint32

const (
	RequestD2Auth RequestType = 0x0C // carries the D2 ticket
	RequestSimple RequestType = 0x0D // carries the sequence
)

func (t RequestType) String() string {
	switch t {
	case RequestD2Auth:
		return "D2Auth"
	case RequestSimple:
		return "Simple"
	default:
		return "Unknown"
	}
}

// EncryptType selects the cipher for the SSO frame
type EncryptType uint8

const (
	EncryptNone  EncryptType = 0x00
	EncryptD2Key EncryptType = 0x01 // TEA keyed by the D2 key
	EncryptEmpty EncryptType = 0x02 // TEA keyed by sixteen zero bytes
)

func (t EncryptType) String() string {
	switch t {
	case EncryptNone:
		return "None"
	case EncryptD2Key:
		return "D2Key"
	case EncryptEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Response compression flags
const (
	CompressNone     uint32 = 0
	CompressZlib     uint32 = 1
	CompressNoneWith uint32 = 8
)

// Protocol is a set of client platforms. Single platforms are used as the
// active configuration; unions describe which platforms a service serves.
type Protocol uint8

const (
	Windows Protocol = 1 << iota
	MacOs
	Linux
	AndroidPhone
	AndroidPad

	PC      = Windows | MacOs | Linux
	Android = AndroidPhone | AndroidPad
	All     = PC | Android
)

var protocolNames = []struct {
	p    Protocol
	name string
}{
	{Windows, "windows"},
	{MacOs, "macos"},
	{Linux, "linux"},
	{AndroidPhone, "android_phone"},
	{AndroidPad, "android_pad"},
}

// Contains reports whether every platform in other is in p
func (p Protocol) Contains(other Protocol) bool {
	return other != 0 && p&other == other
}

// IsAndroid reports whether p is a mobile platform
func (p Protocol) IsAndroid() bool {
	return Android.Contains(p)
}

func (p Protocol) String() string {
	var names []string
	for _, n := range protocolNames {
		if p&n.p != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseProtocol accepts a single platform name as produced by String
func ParseProtocol(s string) (Protocol, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, n := range protocolNames {
		if n.name == s {
			return n.p, nil
		}
	}
	return 0, &ProtocolError{Op: "parse protocol", Reason: "unknown platform " + s}
}
