package login

import (
	"context"
	"log"
	"time"

	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/service"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

// FetchQRCode requests a login QR code and waits in ChallengeQRCode for it
// to be scanned
func (m *Machine) FetchQRCode(ctx context.Context) (*service.QRCode, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.end()

	code, err := service.SendEvent[*service.QRCode](ctx, m.dispatcher, service.FetchQRCode{})
	if err != nil {
		m.attemptFailed(err)
		return nil, err
	}

	m.transition(StateChallenged, ChallengeQRCode, code.URL)
	log.Printf("📷 [login] qr code ready, expires %s", code.Expires.Format(time.TimeOnly))
	m.bus.Post(event.BotQRCodeEvent{URL: code.URL, Image: code.Image, Expires: code.Expires})
	return code, nil
}

// WaitQRCode polls the scan state of code every interval until it is
// confirmed, expires or is cancelled. Cancelling ctx stops polling and
// leaves the challenge pending.
func (m *Machine) WaitQRCode(ctx context.Context, code *service.QRCode, interval time.Duration) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if !m.challenged(ChallengeQRCode) {
		return ErrNoChallenge
	}
	if interval <= 0 {
		interval = defaultQRPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last uint32
	for {
		if !code.Expires.IsZero() && time.Now().After(code.Expires) {
			m.qrFailed("expired")
			return ErrQRCodeExpired
		}

		st, err := service.SendEvent[*service.QRState](ctx, m.dispatcher, service.QueryQRState{Sig: code.Sig})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.attemptFailed(err)
			return err
		}

		switch st.State {
		case wire.QRStateConfirmed:
			m.metrics.LoginAttempt("success")
			if st.Uin != 0 {
				m.keystore.SetUin(st.Uin)
			}
			return m.authenticated(ctx, st.Uid, st.Tickets)
		case wire.QRStateExpired:
			m.qrFailed("expired")
			return ErrQRCodeExpired
		case wire.QRStateCancelled:
			m.qrFailed("cancelled")
			return ErrQRCodeCancelled
		}
		if st.State != last {
			log.Printf("📷 [login] qr code state %d", st.State)
			last = st.State
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Machine) qrFailed(reason string) {
	m.metrics.LoginAttempt("qrcode_" + reason)
	m.transition(StateUnauthenticated, ChallengeNone, "")
	log.Printf("⚠️  [login] qr code %s", reason)
}
