package wire

// Key exchange (trpc.login.ecdh.EcdhService.SsoKeyExchange)

type KeyExchangeRequest struct {
	PublicKey []byte
	Type      uint32
	Sealed    []byte // AES-GCM sealed KeyExchangePlain
	Timestamp uint32
	Digest    []byte // AES-GCM sealed request digest
}

func (m *KeyExchangeRequest) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.PublicKey)
	b = appendUint(b, 2, uint64(m.Type))
	b = appendBytes(b, 3, m.Sealed)
	b = appendUint(b, 4, uint64(m.Timestamp))
	b = appendBytes(b, 5, m.Digest)
	return b
}

func (m *KeyExchangeRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.PublicKey = f.Clone()
		case 2:
			m.Type = f.Uint32()
		case 3:
			m.Sealed = f.Clone()
		case 4:
			m.Timestamp = f.Uint32()
		case 5:
			m.Digest = f.Clone()
		}
		return nil
	})
}

type KeyExchangePlain struct {
	Uin  string
	Guid []byte
}

func (m *KeyExchangePlain) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Uin)
	b = appendBytes(b, 2, m.Guid)
	return b
}

func (m *KeyExchangePlain) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Uin = f.String()
		case 2:
			m.Guid = f.Clone()
		}
		return nil
	})
}

type KeyExchangeResponse struct {
	Sealed     []byte // AES-GCM sealed KeyExchangeResult
	PublicKey  []byte // server ephemeral key
	ServerTime uint32
}

func (m *KeyExchangeResponse) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.Sealed)
	b = appendBytes(b, 2, m.PublicKey)
	b = appendUint(b, 3, uint64(m.ServerTime))
	return b
}

func (m *KeyExchangeResponse) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Sealed = f.Clone()
		case 2:
			m.PublicKey = f.Clone()
		case 3:
			m.ServerTime = f.Uint32()
		}
		return nil
	})
}

type KeyExchangeResult struct {
	SessionKey    []byte
	SessionTicket []byte
	Expiry        uint32
}

func (m *KeyExchangeResult) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.SessionKey)
	b = appendBytes(b, 2, m.SessionTicket)
	b = appendUint(b, 3, uint64(m.Expiry))
	return b
}

func (m *KeyExchangeResult) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.SessionKey = f.Clone()
		case 2:
			m.SessionTicket = f.Clone()
		case 3:
			m.Expiry = f.Uint32()
		}
		return nil
	})
}

// NTLogin envelope

type NTLoginForward struct {
	SessionTicket []byte
	Buffer        []byte // desktop platforms
	Type          uint32
	SecBuffer     []byte // mobile platforms
}

func (m *NTLoginForward) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.SessionTicket)
	b = appendBytes(b, 3, m.Buffer)
	b = appendUint(b, 4, uint64(m.Type))
	b = appendBytes(b, 5, m.SecBuffer)
	return b
}

func (m *NTLoginForward) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.SessionTicket = f.Clone()
		case 3:
			m.Buffer = f.Clone()
		case 4:
			m.Type = f.Uint32()
		case 5:
			m.SecBuffer = f.Clone()
		}
		return nil
	})
}

type NTLoginCommon struct {
	Head *NTLoginHead
	Body []byte
}

func (m *NTLoginCommon) AppendWire(b []byte) []byte {
	if m.Head != nil {
		b = appendMessage(b, 1, m.Head)
	}
	b = appendBytes(b, 2, m.Body)
	return b
}

func (m *NTLoginCommon) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Head = &NTLoginHead{}
			return f.Read(m.Head)
		case 2:
			m.Body = f.Clone()
		}
		return nil
	})
}

// NTLoginAndroidCommon wraps the common envelope with an extra uin block
type NTLoginAndroidCommon struct {
	Common *NTLoginCommon
	Ext    *NTLoginAndroidExt
}

func (m *NTLoginAndroidCommon) AppendWire(b []byte) []byte {
	if m.Common != nil {
		b = appendMessage(b, 1, m.Common)
	}
	if m.Ext != nil {
		b = appendMessage(b, 2, m.Ext)
	}
	return b
}

func (m *NTLoginAndroidCommon) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Common = &NTLoginCommon{}
			return f.Read(m.Common)
		case 2:
			m.Ext = &NTLoginAndroidExt{}
			return f.Read(m.Ext)
		}
		return nil
	})
}

type NTLoginAndroidExt struct {
	Field1 uint32
	Uin    string
}

func (m *NTLoginAndroidExt) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Field1))
	b = appendString(b, 2, m.Uin)
	return b
}

func (m *NTLoginAndroidExt) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Field1 = f.Uint32()
		case 2:
			m.Uin = f.String()
		}
		return nil
	})
}

// Platform values carried in NTLoginClientInfo
const (
	PlatformUnknown uint32 = 0
	PlatformAndroid uint32 = 1
	PlatformWindows uint32 = 3
	PlatformMac     uint32 = 4
	PlatformLinux   uint32 = 5
)

type NTLoginHead struct {
	UserInfo   *NTLoginUserInfo
	ClientInfo *NTLoginClientInfo
	AppInfo    *NTLoginAppInfo
	SdkInfo    *NTLoginSdkInfo
	ErrorInfo  *NTLoginErrorInfo
	Cookie     *NTLoginCookie
}

func (m *NTLoginHead) AppendWire(b []byte) []byte {
	if m.UserInfo != nil {
		b = appendMessage(b, 1, m.UserInfo)
	}
	if m.ClientInfo != nil {
		b = appendMessage(b, 2, m.ClientInfo)
	}
	if m.AppInfo != nil {
		b = appendMessage(b, 3, m.AppInfo)
	}
	if m.SdkInfo != nil {
		b = appendMessage(b, 4, m.SdkInfo)
	}
	if m.ErrorInfo != nil {
		b = appendMessage(b, 5, m.ErrorInfo)
	}
	if m.Cookie != nil {
		b = appendMessage(b, 6, m.Cookie)
	}
	return b
}

func (m *NTLoginHead) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.UserInfo = &NTLoginUserInfo{}
			return f.Read(m.UserInfo)
		case 2:
			m.ClientInfo = &NTLoginClientInfo{}
			return f.Read(m.ClientInfo)
		case 3:
			m.AppInfo = &NTLoginAppInfo{}
			return f.Read(m.AppInfo)
		case 4:
			m.SdkInfo = &NTLoginSdkInfo{}
			return f.Read(m.SdkInfo)
		case 5:
			m.ErrorInfo = &NTLoginErrorInfo{}
			return f.Read(m.ErrorInfo)
		case 6:
			m.Cookie = &NTLoginCookie{}
			return f.Read(m.Cookie)
		}
		return nil
	})
}

type NTLoginUserInfo struct {
	Account string
}

func (m *NTLoginUserInfo) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.Account)
}

func (m *NTLoginUserInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Account = f.String()
		}
		return nil
	})
}

type NTLoginClientInfo struct {
	DeviceType string
	DeviceName string
	Platform   uint32
	Guid       []byte
}

func (m *NTLoginClientInfo) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.DeviceType)
	b = appendString(b, 2, m.DeviceName)
	b = appendUint(b, 3, uint64(m.Platform))
	b = appendBytes(b, 4, m.Guid)
	return b
}

func (m *NTLoginClientInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.DeviceType = f.String()
		case 2:
			m.DeviceName = f.String()
		case 3:
			m.Platform = f.Uint32()
		case 4:
			m.Guid = f.Clone()
		}
		return nil
	})
}

type NTLoginAppInfo struct {
	Version string
	AppID   uint32
	AppName string
	Qua     string
}

func (m *NTLoginAppInfo) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Version)
	b = appendUint(b, 2, uint64(m.AppID))
	b = appendString(b, 3, m.AppName)
	b = appendString(b, 4, m.Qua)
	return b
}

func (m *NTLoginAppInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Version = f.String()
		case 2:
			m.AppID = f.Uint32()
		case 3:
			m.AppName = f.String()
		case 4:
			m.Qua = f.String()
		}
		return nil
	})
}

type NTLoginSdkInfo struct {
	Version uint32
}

func (m *NTLoginSdkInfo) AppendWire(b []byte) []byte {
	return appendUint(b, 1, uint64(m.Version))
}

func (m *NTLoginSdkInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Version = f.Uint32()
		}
		return nil
	})
}

type NTLoginErrorInfo struct {
	ErrCode     uint32
	TipsTitle   string
	TipsContent string
	JumpURL     string
}

func (m *NTLoginErrorInfo) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.ErrCode))
	b = appendString(b, 2, m.TipsTitle)
	b = appendString(b, 3, m.TipsContent)
	b = appendString(b, 4, m.JumpURL)
	return b
}

func (m *NTLoginErrorInfo) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.ErrCode = f.Uint32()
		case 2:
			m.TipsTitle = f.String()
		case 3:
			m.TipsContent = f.String()
		case 4:
			m.JumpURL = f.String()
		}
		return nil
	})
}

type NTLoginCookie struct {
	Content string
}

func (m *NTLoginCookie) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.Content)
}

func (m *NTLoginCookie) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Content = f.String()
		}
		return nil
	})
}

// Password login bodies

type NTLoginIframe struct {
	Sig     string
	RandStr string
	Sid     string
}

func (m *NTLoginIframe) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.Sig)
	b = appendString(b, 2, m.RandStr)
	b = appendString(b, 3, m.Sid)
	return b
}

func (m *NTLoginIframe) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Sig = f.String()
		case 2:
			m.RandStr = f.String()
		case 3:
			m.Sid = f.String()
		}
		return nil
	})
}

type NTLoginProcess struct {
	NeedRemindCancelledStatus bool
}

func (m *NTLoginProcess) AppendWire(b []byte) []byte {
	return appendBool(b, 1, m.NeedRemindCancelledStatus)
}

func (m *NTLoginProcess) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.NeedRemindCancelledStatus = f.Bool()
		}
		return nil
	})
}

type PasswordLoginRequest struct {
	A1      []byte
	Iframe  *NTLoginIframe
	Process *NTLoginProcess
}

func (m *PasswordLoginRequest) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.A1)
	if m.Iframe != nil {
		b = appendMessage(b, 2, m.Iframe)
	}
	if m.Process != nil {
		b = appendMessage(b, 3, m.Process)
	}
	return b
}

func (m *PasswordLoginRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.A1 = f.Clone()
		case 2:
			m.Iframe = &NTLoginIframe{}
			return f.Read(m.Iframe)
		case 3:
			m.Process = &NTLoginProcess{}
			return f.Read(m.Process)
		}
		return nil
	})
}

type NTLoginTickets struct {
	A1    []byte
	A2    []byte
	D2    []byte
	D2Key []byte
}

func (m *NTLoginTickets) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.A1)
	b = appendBytes(b, 2, m.A2)
	b = appendBytes(b, 3, m.D2)
	b = appendBytes(b, 4, m.D2Key)
	return b
}

func (m *NTLoginTickets) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.A1 = f.Clone()
		case 2:
			m.A2 = f.Clone()
		case 3:
			m.D2 = f.Clone()
		case 4:
			m.D2Key = f.Clone()
		}
		return nil
	})
}

type NTLoginSecCheck struct {
	IframeURL string
}

func (m *NTLoginSecCheck) AppendWire(b []byte) []byte {
	return appendString(b, 1, m.IframeURL)
}

func (m *NTLoginSecCheck) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.IframeURL = f.String()
		}
		return nil
	})
}

// LoginResponse is shared by password, SMS and QR confirmation replies
type LoginResponse struct {
	Tickets  *NTLoginTickets
	SecCheck *NTLoginSecCheck
	Uid      string
}

func (m *LoginResponse) AppendWire(b []byte) []byte {
	if m.Tickets != nil {
		b = appendMessage(b, 1, m.Tickets)
	}
	if m.SecCheck != nil {
		b = appendMessage(b, 2, m.SecCheck)
	}
	b = appendString(b, 3, m.Uid)
	return b
}

func (m *LoginResponse) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.Tickets = &NTLoginTickets{}
			return f.Read(m.Tickets)
		case 2:
			m.SecCheck = &NTLoginSecCheck{}
			return f.Read(m.SecCheck)
		case 3:
			m.Uid = f.String()
		}
		return nil
	})
}

// SMSLoginRequest completes an unusual-device challenge
type SMSLoginRequest struct {
	A1   []byte
	Code string
}

func (m *SMSLoginRequest) AppendWire(b []byte) []byte {
	b = appendBytes(b, 1, m.A1)
	b = appendString(b, 2, m.Code)
	return b
}

func (m *SMSLoginRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.A1 = f.Clone()
		case 2:
			m.Code = f.String()
		}
		return nil
	})
}

// QR code login

type QRCodeRequest struct {
	AppID uint32
	Size  uint32
}

func (m *QRCodeRequest) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.AppID))
	b = appendUint(b, 2, uint64(m.Size))
	return b
}

func (m *QRCodeRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.AppID = f.Uint32()
		case 2:
			m.Size = f.Uint32()
		}
		return nil
	})
}

type QRCodeResponse struct {
	URL    string
	Sig    []byte
	Image  []byte
	Expiry uint32
}

func (m *QRCodeResponse) AppendWire(b []byte) []byte {
	b = appendString(b, 1, m.URL)
	b = appendBytes(b, 2, m.Sig)
	b = appendBytes(b, 3, m.Image)
	b = appendUint(b, 4, uint64(m.Expiry))
	return b
}

func (m *QRCodeResponse) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.URL = f.String()
		case 2:
			m.Sig = f.Clone()
		case 3:
			m.Image = f.Clone()
		case 4:
			m.Expiry = f.Uint32()
		}
		return nil
	})
}

// QR code scan states
const (
	QRStateConfirmed   uint32 = 1
	QRStateExpired     uint32 = 17
	QRStateWaitScan    uint32 = 48
	QRStateWaitConfirm uint32 = 53
	QRStateCancelled   uint32 = 54
)

type QRStateRequest struct {
	Sig []byte
}

func (m *QRStateRequest) AppendWire(b []byte) []byte {
	return appendBytes(b, 1, m.Sig)
}

func (m *QRStateRequest) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		if f.Num == 1 {
			m.Sig = f.Clone()
		}
		return nil
	})
}

type QRStateResponse struct {
	State   uint32
	Uin     int64
	Tickets *NTLoginTickets
	Uid     string
}

func (m *QRStateResponse) AppendWire(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.State))
	b = appendInt(b, 2, m.Uin)
	if m.Tickets != nil {
		b = appendMessage(b, 3, m.Tickets)
	}
	b = appendString(b, 4, m.Uid)
	return b
}

func (m *QRStateResponse) ReadWire(data []byte) error {
	return Range(data, func(f Field) error {
		switch f.Num {
		case 1:
			m.State = f.Uint32()
		case 2:
			m.Uin = f.Int()
		case 3:
			m.Tickets = &NTLoginTickets{}
			return f.Read(m.Tickets)
		case 4:
			m.Uid = f.String()
		}
		return nil
	})
}
