package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ZentaChain/ntlink/pkg/crypto"
	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

// LoginCode is the error code carried in the login envelope head
type LoginCode int32

const (
	LoginSuccess         LoginCode = 0
	LoginProofWater      LoginCode = 140022008
	LoginNewDevice       LoginCode = 140022010
	LoginUnusualDevice   LoginCode = 140022011
	LoginFrozen          LoginCode = 140022012
	LoginWrongPassword   LoginCode = 140022013
	LoginTooManyAttempts LoginCode = 140022015
	LoginPasswordRefused LoginCode = 140022016
	LoginAccountNotUin   LoginCode = 140022018
)

const (
	ntLoginForwardType = 1
	ntLoginSdkVersion  = 1
)

var loginCodeNames = map[LoginCode]string{
	LoginSuccess:         "success",
	LoginProofWater:      "proof_water",
	LoginNewDevice:       "new_device",
	LoginUnusualDevice:   "unusual_device",
	LoginFrozen:          "frozen",
	LoginWrongPassword:   "wrong_password",
	LoginTooManyAttempts: "too_many_attempts",
	LoginPasswordRefused: "password_refused",
	LoginAccountNotUin:   "account_not_uin",
}

func (c LoginCode) String() string {
	if name, ok := loginCodeNames[c]; ok {
		return name
	}
	return "code_" + strconv.FormatInt(int64(c), 10)
}

// NeedsSMS reports whether the code asks for device verification by SMS
func (c LoginCode) NeedsSMS() bool {
	return c == LoginNewDevice || c == LoginUnusualDevice
}

// LoginResult is the parsed outcome of any login step
type LoginResult struct {
	Code    LoginCode
	Title   string
	Message string
	JumpURL string

	// Set on success
	Uid     string
	Tickets *keystore.Tickets
}

var ErrNoSession = errors.New("key exchange session is not initialized")

func sessionOf(env *Env) (*keystore.KeyExchangeSession, error) {
	s, err := env.Keystore.KeyExchange()
	if err != nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func platformOf(p protocol.Protocol) uint32 {
	switch {
	case p == protocol.Windows:
		return wire.PlatformWindows
	case p == protocol.MacOs:
		return wire.PlatformMac
	case p == protocol.Linux:
		return wire.PlatformLinux
	case p.IsAndroid():
		return wire.PlatformAndroid
	}
	return wire.PlatformUnknown
}

func buildCommon(env *Env, body wire.Message) *wire.NTLoginCommon {
	ks := env.Keystore
	head := &wire.NTLoginHead{
		UserInfo: &wire.NTLoginUserInfo{Account: strconv.FormatInt(ks.Uin(), 10)},
		ClientInfo: &wire.NTLoginClientInfo{
			DeviceType: env.App.Os,
			DeviceName: ks.DeviceName(),
			Platform:   platformOf(env.Protocol()),
			Guid:       ks.Guid(),
		},
		AppInfo: &wire.NTLoginAppInfo{
			Version: env.App.Kernel,
			AppID:   env.App.AppID,
			AppName: env.App.PackageName,
			Qua:     env.App.Qua,
		},
		SdkInfo: &wire.NTLoginSdkInfo{Version: ntLoginSdkVersion},
		Cookie:  &wire.NTLoginCookie{Content: ks.Cookie()},
	}
	return &wire.NTLoginCommon{Head: head, Body: wire.Serialize(body)}
}

// encodeNTLogin seals the common envelope into Buffer (desktop platforms)
func encodeNTLogin(env *Env, body wire.Message) ([]byte, error) {
	session, err := sessionOf(env)
	if err != nil {
		return nil, err
	}

	sealed, err := crypto.AESEncryptGCM(wire.Serialize(buildCommon(env, body)), session.SessionKey)
	if err != nil {
		return nil, err
	}
	return wire.Serialize(&wire.NTLoginForward{
		SessionTicket: session.SessionTicket,
		Buffer:        sealed,
		Type:          ntLoginForwardType,
	}), nil
}

// encodeNTLoginAndroid wraps the common envelope with the uin extension and
// seals it into SecBuffer
func encodeNTLoginAndroid(env *Env, body wire.Message) ([]byte, error) {
	session, err := sessionOf(env)
	if err != nil {
		return nil, err
	}

	login := &wire.NTLoginAndroidCommon{
		Common: buildCommon(env, body),
		Ext:    &wire.NTLoginAndroidExt{Field1: 0, Uin: strconv.FormatInt(env.Keystore.Uin(), 10)},
	}
	sealed, err := crypto.AESEncryptGCM(wire.Serialize(login), session.SessionKey)
	if err != nil {
		return nil, err
	}
	return wire.Serialize(&wire.NTLoginForward{
		SessionTicket: session.SessionTicket,
		Type:          ntLoginForwardType,
		SecBuffer:     sealed,
	}), nil
}

// decodeNTLogin opens a desktop response and returns its head and body
func decodeNTLogin(env *Env, payload []byte) (*wire.NTLoginHead, []byte, error) {
	session, err := sessionOf(env)
	if err != nil {
		return nil, nil, err
	}

	forward, err := wire.Deserialize[wire.NTLoginForward](payload)
	if err != nil {
		return nil, nil, err
	}
	plain, err := crypto.AESDecryptGCM(forward.Buffer, session.SessionKey)
	if err != nil {
		return nil, nil, err
	}
	login, err := wire.Deserialize[wire.NTLoginCommon](plain)
	if err != nil {
		return nil, nil, err
	}
	if login.Head == nil {
		return nil, nil, fmt.Errorf("%w: login response without head", wire.ErrMalformed)
	}
	return login.Head, login.Body, nil
}

// decodeNTLoginAndroid opens a mobile response. A cookie in the head
// replaces the stored one.
func decodeNTLoginAndroid(env *Env, payload []byte) (*wire.NTLoginHead, []byte, error) {
	session, err := sessionOf(env)
	if err != nil {
		return nil, nil, err
	}

	forward, err := wire.Deserialize[wire.NTLoginForward](payload)
	if err != nil {
		return nil, nil, err
	}
	plain, err := crypto.AESDecryptGCM(forward.SecBuffer, session.SessionKey)
	if err != nil {
		return nil, nil, err
	}
	android, err := wire.Deserialize[wire.NTLoginAndroidCommon](plain)
	if err != nil {
		return nil, nil, err
	}
	if android.Common == nil || android.Common.Head == nil {
		return nil, nil, fmt.Errorf("%w: login response without head", wire.ErrMalformed)
	}

	head := android.Common.Head
	if head.Cookie != nil {
		env.Keystore.SetCookie(head.Cookie.Content)
	}
	return head, android.Common.Body, nil
}

// loginResult reads the shared login response body
func loginResult(head *wire.NTLoginHead, body []byte, desktop bool) (*LoginResult, error) {
	resp, err := wire.Deserialize[wire.LoginResponse](body)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Code: LoginSuccess}
	if info := head.ErrorInfo; info != nil && info.ErrCode != 0 {
		result.Code = LoginCode(info.ErrCode)
		result.Title = info.TipsTitle
		result.Message = info.TipsContent
		result.JumpURL = info.JumpURL
	}

	switch {
	case result.Code == LoginSuccess:
		if resp.Tickets == nil {
			return nil, fmt.Errorf("%w: successful login without tickets", wire.ErrMalformed)
		}
		result.Uid = resp.Uid
		result.Tickets = ticketsOf(resp.Tickets)
	case result.Code == LoginProofWater && desktop:
		// desktop servers put the captcha page in the body, mobile ones in the head
		result.JumpURL = ""
		if resp.SecCheck != nil {
			result.JumpURL = resp.SecCheck.IframeURL
		}
	}
	return result, nil
}

func ticketsOf(t *wire.NTLoginTickets) *keystore.Tickets {
	return &keystore.Tickets{A1: t.A1, A2: t.A2, D2: t.D2, D2Key: t.D2Key}
}
