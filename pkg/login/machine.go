// Package login drives a bot context from unauthenticated to online: the
// session key exchange, password, captcha, SMS and QR code flows, and online
// registration after login or reconnection.
package login

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ZentaChain/ntlink/pkg/crypto"
	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/metrics"
	"github.com/ZentaChain/ntlink/pkg/service"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const defaultQRPollInterval = 2 * time.Second

// Machine is the login state machine of one bot context. At most one
// attempt runs at a time; a second caller gets ErrInProgress.
type Machine struct {
	dispatcher *service.Dispatcher
	keystore   *keystore.Keystore
	bus        *event.Bus
	store      keystore.Store
	metrics    *metrics.Metrics

	mu        sync.Mutex
	state     State
	challenge Challenge
	url       string
	password  string
	busy      bool
}

// New creates a machine in StateUnauthenticated. store may be nil, in which
// case refreshed tickets are only announced on the bus.
func New(d *service.Dispatcher, bus *event.Bus, store keystore.Store, m *metrics.Metrics) *Machine {
	return &Machine{
		dispatcher: d,
		keystore:   d.Env().Keystore,
		bus:        bus,
		store:      store,
		metrics:    m,
	}
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, Challenge: m.challenge, URL: m.url}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisposed {
		return ErrDisposed
	}
	if m.busy {
		return ErrInProgress
	}
	m.busy = true
	return nil
}

func (m *Machine) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

func (m *Machine) transition(s State, c Challenge, url string) {
	m.mu.Lock()
	if m.state == StateDisposed {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state, m.challenge, m.url = s, c, url
	m.mu.Unlock()

	if prev != s {
		log.Printf("🔄 [login] %s -> %s", prev, s)
	}
}

func (m *Machine) challenged(c Challenge) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateChallenged && m.challenge == c
}

// LoginPassword runs a password attempt. A *ChallengeError leaves the
// machine waiting for SubmitCaptcha or SubmitSMSCode.
func (m *Machine) LoginPassword(ctx context.Context, password string) error {
	if password == "" {
		return ErrNoPassword
	}
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	m.mu.Lock()
	m.password = password
	m.mu.Unlock()
	return m.passwordAttempt(ctx, nil)
}

// SubmitCaptcha retries the password attempt with a solved captcha
func (m *Machine) SubmitCaptcha(ctx context.Context, sig, randStr, sid string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if !m.challenged(ChallengeCaptcha) {
		return ErrNoChallenge
	}
	return m.passwordAttempt(ctx, &service.Captcha{Sig: sig, RandStr: randStr, Sid: sid})
}

// SubmitSMSCode completes a device verification challenge
func (m *Machine) SubmitSMSCode(ctx context.Context, code string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if !m.challenged(ChallengeSMS) {
		return ErrNoChallenge
	}
	if err := m.ensureKeyExchange(ctx); err != nil {
		m.attemptFailed(err)
		return err
	}

	m.mu.Lock()
	password := m.password
	m.mu.Unlock()

	result, err := service.SendEvent[*service.LoginResult](ctx, m.dispatcher, service.SMSLogin{Password: password, Code: code})
	if err != nil {
		m.attemptFailed(err)
		return err
	}
	return m.handleResult(ctx, result)
}

func (m *Machine) passwordAttempt(ctx context.Context, captcha *service.Captcha) error {
	if err := m.ensureKeyExchange(ctx); err != nil {
		m.attemptFailed(err)
		return err
	}

	m.mu.Lock()
	password := m.password
	m.mu.Unlock()

	m.transition(StateChallenged, ChallengePassword, "")
	result, err := service.SendEvent[*service.LoginResult](ctx, m.dispatcher, service.PasswordLogin{Password: password, Captcha: captcha})
	if err != nil {
		m.attemptFailed(err)
		return err
	}
	return m.handleResult(ctx, result)
}

// ensureKeyExchange runs SsoKeyExchange unless a live session exists.
// Every sealed login body depends on it.
func (m *Machine) ensureKeyExchange(ctx context.Context) error {
	if s, err := m.keystore.KeyExchange(); err == nil && (s.Expiry.IsZero() || time.Now().Before(s.Expiry)) {
		return nil
	}

	m.transition(StateKeyExchanging, ChallengeNone, "")
	ecdh, err := crypto.GenerateKeyPair(crypto.Prime256V1)
	if err != nil {
		return err
	}
	if _, err := service.SendEvent[*keystore.KeyExchangeSession](ctx, m.dispatcher, service.KeyExchange{Session: ecdh}); err != nil {
		return fmt.Errorf("key exchange: %w", err)
	}
	log.Printf("🔑 [login] session key established for %d", m.keystore.Uin())
	return nil
}

func (m *Machine) handleResult(ctx context.Context, r *service.LoginResult) error {
	switch {
	case r.Code == service.LoginSuccess:
		m.metrics.LoginAttempt("success")
		return m.authenticated(ctx, r.Uid, r.Tickets)

	case r.Code == service.LoginProofWater:
		m.metrics.LoginAttempt("captcha")
		m.transition(StateChallenged, ChallengeCaptcha, r.JumpURL)
		log.Printf("⚠️  [login] captcha required: %s", r.JumpURL)
		m.bus.Post(event.BotCaptchaEvent{URL: r.JumpURL})
		return &ChallengeError{Kind: ChallengeCaptcha, URL: r.JumpURL}

	case r.Code.NeedsSMS():
		m.metrics.LoginAttempt("sms")
		m.transition(StateChallenged, ChallengeSMS, r.JumpURL)
		log.Printf("⚠️  [login] device verification required (%s)", r.Code)
		m.bus.Post(event.BotSMSEvent{URL: r.JumpURL, Title: r.Title, Tips: r.Message})
		return &ChallengeError{Kind: ChallengeSMS, URL: r.JumpURL}
	}

	m.metrics.LoginAttempt("rejected")
	m.transition(StateUnauthenticated, ChallengeNone, "")
	log.Printf("❌ [login] rejected with %s: %s %s", r.Code, r.Title, r.Message)
	m.bus.Post(event.BotLoginFailedEvent{Code: int32(r.Code), Title: r.Title, Message: r.Message, JumpURL: r.JumpURL})
	return &LoginError{Code: r.Code, Title: r.Title, Message: r.Message, JumpURL: r.JumpURL}
}

func (m *Machine) attemptFailed(err error) {
	m.metrics.LoginAttempt("error")
	m.transition(StateUnauthenticated, ChallengeNone, "")
	log.Printf("❌ [login] attempt failed: %v", err)
}

// authenticated stores the ticket bundle and announces it for persistence
func (m *Machine) authenticated(ctx context.Context, uid string, tickets *keystore.Tickets) error {
	if tickets == nil {
		err := fmt.Errorf("%w: login succeeded without tickets", wire.ErrMalformed)
		m.attemptFailed(err)
		return err
	}

	m.keystore.SetTickets(*tickets)
	if uid != "" {
		m.keystore.SetUid(uid)
	}

	m.mu.Lock()
	m.password = ""
	m.mu.Unlock()
	m.transition(StateAuthenticated, ChallengeNone, "")
	log.Printf("✅ [login] authenticated %d (%s)", m.keystore.Uin(), m.keystore.Uid())

	m.persist(ctx)
	m.bus.Post(event.BotTicketRefreshEvent{Uin: m.keystore.Uin(), Uid: m.keystore.Uid()})
	return nil
}

func (m *Machine) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.keystore.Document()); err != nil {
		log.Printf("⚠️  [login] failed to persist keystore: %v", err)
	}
}

// Resume goes online with tickets loaded from a previous session
func (m *Machine) Resume(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if m.keystore.Tickets().Empty() {
		return ErrNotLoggedIn
	}
	m.transition(StateAuthenticated, ChallengeNone, "")
	return m.goOnline(ctx, "resume")
}

// GoOnline registers an authenticated session with the status service
func (m *Machine) GoOnline(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	switch m.State() {
	case StateAuthenticated, StateOnline:
	default:
		return ErrNotLoggedIn
	}
	return m.goOnline(ctx, "login")
}

func (m *Machine) goOnline(ctx context.Context, reason string) error {
	reg, err := service.SendEvent[*service.Registered](ctx, m.dispatcher, service.Register{})
	if err != nil {
		log.Printf("❌ [login] online registration failed: %v", err)
		return err
	}

	m.transition(StateOnline, ChallengeNone, "")
	log.Printf("✅ [login] %d online (%s), server time %d", m.keystore.Uin(), reason, reg.ServerTime)
	m.bus.Post(event.BotOnlineEvent{Reason: reason})
	return nil
}

// Disconnected moves a session holding tickets to StateReconnecting. Only
// a session that was online posts the offline event.
func (m *Machine) Disconnected() {
	m.mu.Lock()
	prev := m.state
	m.mu.Unlock()
	if prev != StateOnline && prev != StateAuthenticated {
		return
	}
	m.transition(StateReconnecting, ChallengeNone, "")
	if prev == StateOnline {
		m.bus.Post(event.BotOfflineEvent{Reason: "disconnected"})
	}
}

// Reconnected registers a session that held tickets before the fault
func (m *Machine) Reconnected(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if m.State() != StateReconnecting {
		return nil
	}
	return m.goOnline(ctx, "reconnect")
}

// Dispose moves to the terminal state and drops the session key. Further
// calls return ErrDisposed.
func (m *Machine) Dispose() {
	m.transition(StateDisposed, ChallengeNone, "")
	m.mu.Lock()
	m.password = ""
	m.mu.Unlock()
	m.keystore.SetKeyExchange(nil, nil)
}

// IsChallenge reports whether err asks for another credential
func IsChallenge(err error) (*ChallengeError, bool) {
	var ce *ChallengeError
	ok := errors.As(err, &ce)
	return ce, ok
}
