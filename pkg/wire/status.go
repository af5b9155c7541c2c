package wire

// Online registration (trpc.qq_new_tech.status_svc.StatusService.Register)

type RegisterRequest struct {
	Guid               string
	Type               uint32
	CurrentVersion     string
	LocaleID           uint32
	Online             *OnlineDeviceInfo
	SetMute            uint32
	RegisterVendorType uint32
	RegType            uint32
}

func (m *RegisterRequest) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Guid)
	b = appendUint(b, 2, uint64(m.Type))
	b = appendString(b, 3, m.CurrentVersion)
	b = appendUint(b, 5, uint64(m.LocaleID))
	if m.Online != nil {
		b = appendMessage(b, 6, m.Online)
	}
	b = appendUint(b, 7, uint64(m.SetMute))
	b = appendUint(b, 8, uint64(m.RegisterVendorType))
	b = appendUint(b, 9, uint64(m.RegType))
	return b
}

func (m *RegisterRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Guid = f.String()
		case 2:
			m.Type = f.Uint32()
		case 3:
			m.CurrentVersion = f.String()
		case 5:
			m.LocaleID = f.Uint32()
		case 6:
			m.Online = &OnlineDeviceInfo{}
			return f.Read(m.Online)
		case 7:
			m.SetMute = f.Uint32()
		case 8:
			m.RegisterVendorType = f.Uint32()
		case 9:
			m.RegType = f.Uint32()
		}
		return nil
	})
}

type OnlineDeviceInfo struct {
	User       string
	Os         string
	OsVer      string
	VendorName string
	OsLower    string
}

func (m *OnlineDeviceInfo) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.User)
	b = appendString(b, 2, m.Os)
	b = appendString(b, 3, m.OsVer)
	b = appendString(b, 4, m.VendorName)
	b = appendString(b, 5, m.OsLower)
	return b
}

func (m *OnlineDeviceInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.User = f.String()
		case 2:
			m.Os = f.String()
		case 3:
			m.OsVer = f.String()
		case 4:
			m.VendorName = f.String()
		case 5:
			m.OsLower = f.String()
		}
		return nil
	})
}

type RegisterResponse struct {
	Message   string
	Timestamp uint32
}

func (m *RegisterResponse) AppendWire(b []byte) []byte {
	b = appendString(b, 2, m.Message)
	b = appendUint(b, 3, uint64(m.Timestamp))
	return b
}

func (m *RegisterResponse) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 2:
			m.Message = f.String()
		case 3:
			m.Timestamp = f.Uint32()
		}
		return nil
	})
}

// Empty is a body with no fields
type Empty struct{}

func (m *Empty) AppendWire(b []byte) []byte { return b }

func (m *Empty) ReadWire(data []byte) error {
	return Range(data, func(Field) error { return nil })
}
