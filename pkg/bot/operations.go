package bot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/login"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/service"
)

// Login brings the bot online. Saved tickets are tried first; when they
// are refused and AutoReLogin is set, the bot falls back to the configured
// password, or to a QR code when no password is set.
//
// A *login.ChallengeError means the server wants a captcha or SMS code;
// answer it with SubmitCaptcha or SubmitSMSCode.
func (b *Bot) Login(ctx context.Context) error {
	if err := b.Connect(ctx); err != nil {
		return err
	}

	if !b.keystore.Tickets().Empty() {
		err := b.machine.Resume(ctx)
		if err == nil {
			return nil
		}
		if !b.cfg.AutoReLogin || !ticketsRefused(err) {
			return err
		}
		log.Printf("🔄 [bot] saved session refused (%v), logging in again", err)
		b.keystore.ClearTickets()
		if err := b.store.Save(ctx, b.keystore.Document()); err != nil {
			log.Printf("⚠️  [bot] failed to persist cleared tickets: %v", err)
		}
	}

	if b.cfg.Password != "" {
		if err := b.machine.LoginPassword(ctx, b.cfg.Password); err != nil {
			return err
		}
		return b.machine.GoOnline(ctx)
	}

	code, err := b.FetchQRCode(ctx)
	if err != nil {
		return err
	}
	log.Printf("📷 [bot] scan the QR code to log in: %s", code.URL)
	return b.WaitQRCode(ctx, code)
}

// ticketsRefused reports whether err means the saved session is dead
// rather than the network
func ticketsRefused(err error) bool {
	var se *protocol.ServiceError
	return errors.As(err, &se) || errors.Is(err, service.ErrRegisterRejected)
}

// SubmitCaptcha answers a captcha challenge and goes online on success
func (b *Bot) SubmitCaptcha(ctx context.Context, ticket, randStr, sid string) error {
	if err := b.machine.SubmitCaptcha(ctx, ticket, randStr, sid); err != nil {
		return err
	}
	return b.machine.GoOnline(ctx)
}

// SubmitSMSCode answers an SMS challenge and goes online on success
func (b *Bot) SubmitSMSCode(ctx context.Context, code string) error {
	if err := b.machine.SubmitSMSCode(ctx, code); err != nil {
		return err
	}
	return b.machine.GoOnline(ctx)
}

// FetchQRCode starts a QR code login
func (b *Bot) FetchQRCode(ctx context.Context) (*service.QRCode, error) {
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b.machine.FetchQRCode(ctx)
}

// WaitQRCode polls until code is confirmed, then goes online
func (b *Bot) WaitQRCode(ctx context.Context, code *service.QRCode) error {
	if err := b.machine.WaitQRCode(ctx, code, b.cfg.QRPollInterval); err != nil {
		return err
	}
	return b.machine.GoOnline(ctx)
}

// FriendMessage identifies a private message for recall
type FriendMessage struct {
	Sequence       uint64
	ClientSequence uint64
	Random         uint32
	Timestamp      uint32
}

// RecallFriendMessage withdraws a private message sent to friendUin. The
// friend's uid must have been seen in an earlier message.
func (b *Bot) RecallFriendMessage(ctx context.Context, friendUin int64, msg FriendMessage) error {
	if b.machine.State() != login.StateOnline {
		return ErrNotOnline
	}
	uid, ok := b.uids.ResolveUid(friendUin)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFriend, friendUin)
	}

	_, err := service.SendEvent[*service.Recalled](ctx, b.dispatcher, service.C2CRecall{
		TargetUid:      uid,
		Sequence:       msg.Sequence,
		ClientSequence: msg.ClientSequence,
		Random:         msg.Random,
		Timestamp:      msg.Timestamp,
	})
	return err
}

// RecallGroupMessage withdraws the group message with sequence
func (b *Bot) RecallGroupMessage(ctx context.Context, groupUin int64, sequence uint64) error {
	if b.machine.State() != login.StateOnline {
		return ErrNotOnline
	}
	_, err := service.SendEvent[*service.Recalled](ctx, b.dispatcher, service.GroupRecall{
		GroupUin: groupUin,
		Sequence: sequence,
	})
	return err
}

// Keystore returns the persisted document of the bot, for inspection
func (b *Bot) Keystore() *keystore.Document {
	return b.keystore.Document()
}
