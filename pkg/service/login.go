package service

import (
	"time"

	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const (
	OpPasswordLogin Operation = "PasswordLogin"
	OpSMSLogin      Operation = "SMSLogin"
	OpFetchQRCode   Operation = "FetchQRCode"
	OpQueryQRState  Operation = "QueryQRState"

	CmdPasswordLogin = "trpc.login.ecdh.EcdhService.SsoNTLoginPasswordLogin"
	CmdSMSLogin      = "trpc.login.ecdh.EcdhService.SsoNTLoginPasswordLoginUnusualDevice"
	CmdFetchQRCode   = "trpc.login.ecdh.EcdhService.SsoNTLoginFetchQRCode"
	CmdQueryQRState  = "trpc.login.ecdh.EcdhService.SsoNTLoginQueryQRCodeState"

	qrCodeSize = 3
)

// Captcha is the solved proof-water challenge
type Captcha struct {
	Sig     string
	RandStr string
	Sid     string
}

// PasswordLogin logs in with the account password, optionally carrying a
// solved captcha
type PasswordLogin struct {
	Password string
	Captcha  *Captcha
}

func (PasswordLogin) Operation() Operation { return OpPasswordLogin }

// SMSLogin completes a new-device challenge with the code sent by SMS
type SMSLogin struct {
	Password string
	Code     string
}

func (SMSLogin) Operation() Operation { return OpSMSLogin }

func passwordBody(env *Env, req PasswordLogin) (*wire.PasswordLoginRequest, error) {
	a1, err := ClientA1(env, req.Password)
	if err != nil {
		return nil, err
	}
	body := &wire.PasswordLoginRequest{A1: a1}
	if c := req.Captcha; c != nil {
		body.Iframe = &wire.NTLoginIframe{Sig: c.Sig, RandStr: c.RandStr, Sid: c.Sid}
	}
	return body, nil
}

func buildPasswordLogin(env *Env, req PasswordLogin) ([]byte, error) {
	body, err := passwordBody(env, req)
	if err != nil {
		return nil, err
	}
	return encodeNTLogin(env, body)
}

func buildPasswordLoginAndroid(env *Env, req PasswordLogin) ([]byte, error) {
	body, err := passwordBody(env, req)
	if err != nil {
		return nil, err
	}
	body.Process = &wire.NTLoginProcess{NeedRemindCancelledStatus: true}
	return encodeNTLoginAndroid(env, body)
}

func buildSMSLogin(env *Env, req SMSLogin) ([]byte, error) {
	a1, err := ClientA1(env, req.Password)
	if err != nil {
		return nil, err
	}
	return encodeNTLogin(env, &wire.SMSLoginRequest{A1: a1, Code: req.Code})
}

func buildSMSLoginAndroid(env *Env, req SMSLogin) ([]byte, error) {
	a1, err := ClientA1(env, req.Password)
	if err != nil {
		return nil, err
	}
	return encodeNTLoginAndroid(env, &wire.SMSLoginRequest{A1: a1, Code: req.Code})
}

func parseLogin[Req Event](env *Env, _ Req, data []byte) (*LoginResult, error) {
	head, body, err := decodeNTLogin(env, data)
	if err != nil {
		return nil, err
	}
	return loginResult(head, body, true)
}

func parseLoginAndroid[Req Event](env *Env, _ Req, data []byte) (*LoginResult, error) {
	head, body, err := decodeNTLoginAndroid(env, data)
	if err != nil {
		return nil, err
	}
	return loginResult(head, body, false)
}

// FetchQRCode asks for a login QR code to be scanned by a logged-in device
type FetchQRCode struct{}

func (FetchQRCode) Operation() Operation { return OpFetchQRCode }

type QRCode struct {
	URL     string
	Sig     []byte
	Image   []byte
	Expires time.Time
}

// QueryQRState polls the scan state of a fetched code
type QueryQRState struct {
	Sig []byte
}

func (QueryQRState) Operation() Operation { return OpQueryQRState }

// QRState is the scan state; Uin, Uid and Tickets are set once confirmed
type QRState struct {
	State   uint32
	Uin     int64
	Uid     string
	Tickets *keystore.Tickets
}

func (s *QRState) Confirmed() bool { return s.State == wire.QRStateConfirmed }

func buildFetchQRCode(env *Env, _ FetchQRCode) ([]byte, error) {
	return wire.Serialize(&wire.QRCodeRequest{AppID: env.App.AppID, Size: qrCodeSize}), nil
}

func parseFetchQRCode(_ *Env, _ FetchQRCode, data []byte) (*QRCode, error) {
	resp, err := wire.Deserialize[wire.QRCodeResponse](data)
	if err != nil {
		return nil, err
	}
	return &QRCode{
		URL:     resp.URL,
		Sig:     resp.Sig,
		Image:   resp.Image,
		Expires: time.Now().Add(time.Duration(resp.Expiry) * time.Second),
	}, nil
}

func buildQueryQRState(_ *Env, req QueryQRState) ([]byte, error) {
	return wire.Serialize(&wire.QRStateRequest{Sig: req.Sig}), nil
}

func parseQueryQRState(_ *Env, _ QueryQRState, data []byte) (*QRState, error) {
	resp, err := wire.Deserialize[wire.QRStateResponse](data)
	if err != nil {
		return nil, err
	}
	state := &QRState{State: resp.State, Uin: resp.Uin, Uid: resp.Uid}
	if resp.State == wire.QRStateConfirmed && resp.Tickets != nil {
		state.Tickets = ticketsOf(resp.Tickets)
	}
	return state, nil
}

func loginDescriptors() []*Descriptor {
	return []*Descriptor{
		Define(CmdPasswordLogin, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.PC,
			buildPasswordLogin, parseLogin[PasswordLogin]),
		Define(CmdPasswordLogin, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.Android,
			buildPasswordLoginAndroid, parseLoginAndroid[PasswordLogin]),
		Define(CmdSMSLogin, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.PC,
			buildSMSLogin, parseLogin[SMSLogin]),
		Define(CmdSMSLogin, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.Android,
			buildSMSLoginAndroid, parseLoginAndroid[SMSLogin]),
		Define(CmdFetchQRCode, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.PC,
			buildFetchQRCode, parseFetchQRCode),
		Define(CmdQueryQRState, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.PC,
			buildQueryQRState, parseQueryQRState),
	}
}
