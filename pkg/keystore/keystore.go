// Package keystore holds the account's identity and ticket bundle for one bot
// context, and persists it as a JSON document.
package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZentaChain/ntlink/pkg/crypto"
)

var (
	ErrNoKeyExchange = errors.New("key exchange session is not initialized")
	ErrNotFound      = errors.New("keystore document not found")
)

// Tickets is the credential bundle proving an authenticated session
type Tickets struct {
	A1       []byte `json:"a1,omitempty"`
	A2       []byte `json:"a2,omitempty"`
	D2       []byte `json:"d2,omitempty"`
	D2Key    []byte `json:"d2_key,omitempty"`
	TgtgtKey []byte `json:"tgtgt_key,omitempty"`
}

// Empty reports whether no session tickets have been issued yet
func (t Tickets) Empty() bool {
	return len(t.A2) == 0 && len(t.D2) == 0
}

func (t Tickets) clone() Tickets {
	return Tickets{
		A1:       append([]byte(nil), t.A1...),
		A2:       append([]byte(nil), t.A2...),
		D2:       append([]byte(nil), t.D2...),
		D2Key:    append([]byte(nil), t.D2Key...),
		TgtgtKey: append([]byte(nil), t.TgtgtKey...),
	}
}

// KeyExchangeSession is the result of SsoKeyExchange: an AES-GCM key that
// seals login bodies plus the ticket the server uses to find it again.
type KeyExchangeSession struct {
	SessionKey    []byte
	SessionTicket []byte
	Expiry        time.Time
}

// Document is the persisted form of a Keystore
type Document struct {
	Uin        int64     `json:"uin"`
	Uid        string    `json:"uid,omitempty"`
	Guid       []byte    `json:"guid"`
	DeviceName string    `json:"device_name"`
	Tickets    Tickets   `json:"tickets"`
	Cookie     string    `json:"cookie,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Sealed holds Tickets encrypted by a SealedStore; Tickets is then empty
	Sealed []byte `json:"sealed,omitempty"`
}

// Keystore is the mutable account state. It is only modified by the login
// machine and ticket refresh, and read by the packet codec on every send.
type Keystore struct {
	mu sync.RWMutex

	uin        int64
	uid        string
	guid       []byte
	deviceName string
	tickets    Tickets
	cookie     string

	exchange *KeyExchangeSession
	ecdh     *crypto.EcdhSession
}

// New creates a fresh keystore with a random device guid and TGTGT key
func New(uin int64, deviceName string) *Keystore {
	id := uuid.New()
	tgtgt := make([]byte, 16)
	if _, err := rand.Read(tgtgt); err != nil {
		copy(tgtgt, crypto.MD5(id[:]))
	}

	if deviceName == "" {
		deviceName = "ntlink-" + id.String()[:8]
	}

	return &Keystore{
		uin:        uin,
		guid:       id[:],
		deviceName: deviceName,
		tickets:    Tickets{TgtgtKey: tgtgt},
	}
}

// FromDocument rebuilds a keystore from its persisted form
func FromDocument(doc *Document) *Keystore {
	ks := &Keystore{
		uin:        doc.Uin,
		uid:        doc.Uid,
		guid:       append([]byte(nil), doc.Guid...),
		deviceName: doc.DeviceName,
		tickets:    doc.Tickets.clone(),
		cookie:     doc.Cookie,
	}
	if len(ks.guid) != 16 {
		id := uuid.New()
		ks.guid = id[:]
	}
	if len(ks.tickets.TgtgtKey) == 0 {
		ks.tickets.TgtgtKey = crypto.MD5(ks.guid)
	}
	return ks
}

// Document snapshots the persisted fields
func (k *Keystore) Document() *Document {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return &Document{
		Uin:        k.uin,
		Uid:        k.uid,
		Guid:       append([]byte(nil), k.guid...),
		DeviceName: k.deviceName,
		Tickets:    k.tickets.clone(),
		Cookie:     k.cookie,
		UpdatedAt:  time.Now().UTC(),
	}
}

func (k *Keystore) Uin() int64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.uin
}

func (k *Keystore) SetUin(uin int64) {
	k.mu.Lock()
	k.uin = uin
	k.mu.Unlock()
}

func (k *Keystore) Uid() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.uid
}

func (k *Keystore) SetUid(uid string) {
	k.mu.Lock()
	k.uid = uid
	k.mu.Unlock()
}

func (k *Keystore) Guid() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]byte(nil), k.guid...)
}

// GuidHex is the guid as sent in the SSO head
func (k *Keystore) GuidHex() string {
	return hex.EncodeToString(k.Guid())
}

func (k *Keystore) DeviceName() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.deviceName
}

func (k *Keystore) Tickets() Tickets {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tickets.clone()
}

// SetTickets replaces the issued tickets and keeps the local TGTGT key
func (k *Keystore) SetTickets(t Tickets) {
	k.mu.Lock()
	defer k.mu.Unlock()

	tgtgt := k.tickets.TgtgtKey
	k.tickets = t.clone()
	if len(k.tickets.TgtgtKey) == 0 {
		k.tickets.TgtgtKey = tgtgt
	}
}

// ClearTickets drops the session tickets, forcing a full login
func (k *Keystore) ClearTickets() {
	k.mu.Lock()
	k.tickets = Tickets{TgtgtKey: k.tickets.TgtgtKey}
	k.mu.Unlock()
}

func (k *Keystore) A2() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tickets.A2
}

func (k *Keystore) D2() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tickets.D2
}

func (k *Keystore) D2Key() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tickets.D2Key
}

func (k *Keystore) TgtgtKey() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tickets.TgtgtKey
}

func (k *Keystore) Cookie() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cookie
}

func (k *Keystore) SetCookie(cookie string) {
	k.mu.Lock()
	k.cookie = cookie
	k.mu.Unlock()
}

// KeyExchange returns the current session or ErrNoKeyExchange
func (k *Keystore) KeyExchange() (*KeyExchangeSession, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.exchange == nil {
		return nil, ErrNoKeyExchange
	}
	return k.exchange, nil
}

// SetKeyExchange installs the session together with the ECDH pair that
// produced it; the previous pair is discarded.
func (k *Keystore) SetKeyExchange(s *KeyExchangeSession, ecdh *crypto.EcdhSession) {
	k.mu.Lock()
	k.exchange = s
	k.ecdh = ecdh
	k.mu.Unlock()
}

func (k *Keystore) Ecdh() *crypto.EcdhSession {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.ecdh
}
