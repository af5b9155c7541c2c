package login

// State is the position of a bot context in the login lifecycle
type State int

const (
	StateUnauthenticated State = iota
	StateKeyExchanging
	StateChallenged
	StateAuthenticated
	StateOnline
	StateReconnecting
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateKeyExchanging:
		return "key_exchanging"
	case StateChallenged:
		return "challenged"
	case StateAuthenticated:
		return "authenticated"
	case StateOnline:
		return "online"
	case StateReconnecting:
		return "reconnecting"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// Challenge says which credential the machine waits for in StateChallenged
type Challenge int

const (
	ChallengeNone Challenge = iota
	ChallengePassword
	ChallengeQRCode
	ChallengeSMS
	ChallengeCaptcha
)

func (c Challenge) String() string {
	switch c {
	case ChallengeNone:
		return "none"
	case ChallengePassword:
		return "password"
	case ChallengeQRCode:
		return "qrcode"
	case ChallengeSMS:
		return "sms"
	case ChallengeCaptcha:
		return "captcha"
	}
	return "unknown"
}

// Status is a snapshot of the machine
type Status struct {
	State     State
	Challenge Challenge
	// URL is the captcha or verification page while challenged
	URL string
}
