package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/ntlink/pkg/event"
	"github.com/ZentaChain/ntlink/pkg/keystore"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ntlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKeystoreStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Keystores()

	_, err := store.Load(ctx, 10001)
	assert.ErrorIs(t, err, keystore.ErrNotFound)

	ks := keystore.New(10001, "test-device")
	ks.SetUid("u_bot")
	ks.SetTickets(keystore.Tickets{D2: []byte("d2"), D2Key: []byte("0123456789abcdef")})
	require.NoError(t, store.Save(ctx, ks.Document()))

	doc, err := store.Load(ctx, 10001)
	require.NoError(t, err)
	restored := keystore.FromDocument(doc)
	assert.Equal(t, ks.Guid(), restored.Guid())
	assert.Equal(t, "u_bot", restored.Uid())
	assert.Equal(t, []byte("d2"), restored.D2())
	assert.Equal(t, ks.TgtgtKey(), restored.TgtgtKey())

	ks.SetCookie("cookie")
	require.NoError(t, store.Save(ctx, ks.Document()))
	doc, err = store.Load(ctx, 10001)
	require.NoError(t, err)
	assert.Equal(t, "cookie", doc.Cookie)

	uins, err := store.Uins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10001}, uins)
}

func TestKeystoreStoreLatest(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t).Keystores()

	first := keystore.New(10001, "a").Document()
	first.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, keystore.New(20002, "b").Document()))

	doc, err := store.Load(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20002), doc.Uin)

	ks, err := keystore.LoadOrCreate(ctx, store, 10001, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "a", ks.DeviceName())

	require.NoError(t, store.Delete(ctx, 10001))
	assert.ErrorIs(t, store.Delete(ctx, 10001), ErrNotFound)

	assert.Error(t, store.Save(ctx, &keystore.Document{}))
}

func TestJournalRecordsBusEvents(t *testing.T) {
	ctx := context.Background()
	journal := openTestDB(t).Journal()

	bus := event.NewBus(nil)
	detach := journal.Attach(bus)

	bus.Post(event.GroupRecallEvent{GroupUin: 5555, AuthorUin: 3003, Sequence: 77, Tip: "recalled"})
	bus.Post(event.FriendRecallEvent{FriendUin: 2002, Sequence: 12})
	bus.Post(event.MessageEvent{Text: "not journaled"})
	bus.Post(event.BotOnlineEvent{Reason: "login"})

	total, err := journal.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	recalls, err := journal.List(ctx, "group_recall", 10)
	require.NoError(t, err)
	require.Len(t, recalls, 1)
	assert.Equal(t, int64(5555), recalls[0].GroupUin)
	assert.Equal(t, int64(3003), recalls[0].PeerUin)
	assert.Equal(t, int64(77), recalls[0].Sequence)

	var payload event.GroupRecallEvent
	require.NoError(t, json.Unmarshal(recalls[0].Payload, &payload))
	assert.Equal(t, "recalled", payload.Tip)

	detach()
	bus.Post(event.BotOfflineEvent{Reason: "kicked"})
	total, err = journal.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestJournalListOrderAndPrune(t *testing.T) {
	ctx := context.Background()
	journal := openTestDB(t).Journal()

	base := time.Date(2025, 1, 27, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		journal.now = func() time.Time { return at }
		require.NoError(t, journal.Record(ctx, event.FriendRecallEvent{FriendUin: int64(i + 1)}))
	}

	entries, err := journal.List(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].PeerUin)
	assert.Equal(t, int64(2), entries[1].PeerUin)

	n, err := journal.Prune(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := journal.Count(ctx, "friend_recall")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
}
