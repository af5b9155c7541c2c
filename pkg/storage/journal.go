package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"

	"github.com/ZentaChain/ntlink/pkg/event"
)

// Entry is one journaled event
type Entry struct {
	ID         int64
	Name       string
	GroupUin   int64
	PeerUin    int64
	Sequence   int64
	Payload    []byte
	RecordedAt time.Time
}

// Journal records recall, membership and session events for audit
type Journal struct {
	db  *DB
	now func() time.Time
}

func (s *DB) Journal() *Journal {
	return &Journal{db: s, now: time.Now}
}

// Attach subscribes the journal to the bus and returns the unsubscribe
// function. Write failures are logged.
func (j *Journal) Attach(bus *event.Bus) func() {
	return bus.SubscribeAll(func(e event.Event) {
		if !journaled(e) {
			return
		}
		if err := j.Record(context.Background(), e); err != nil {
			log.Printf("⚠️  [storage] failed to journal %s: %v", e.Name(), err)
		}
	})
}

func journaled(e event.Event) bool {
	switch e.(type) {
	case event.FriendRecallEvent, event.GroupRecallEvent, event.GroupMemberIncreaseEvent,
		event.BotOnlineEvent, event.BotOfflineEvent, event.BotLoginFailedEvent:
		return true
	}
	return false
}

// indexOf pulls the columns the journal is queried by
func indexOf(e event.Event) (group, peer, seq int64) {
	switch ev := e.(type) {
	case event.FriendRecallEvent:
		return 0, ev.FriendUin, ev.Sequence
	case event.GroupRecallEvent:
		return ev.GroupUin, ev.AuthorUin, int64(ev.Sequence)
	case event.GroupMemberIncreaseEvent:
		return ev.GroupUin, ev.MemberUin, 0
	}
	return 0, 0, 0
}

// Record stores e with its JSON payload
func (j *Journal) Record(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	group, peer, seq := indexOf(e)
	_, err = j.db.db.ExecContext(ctx, `
		INSERT INTO events (name, group_uin, peer_uin, sequence, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Name(), group, peer, seq, payload, j.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. An empty name lists all.
func (j *Journal) List(ctx context.Context, name string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, name, group_uin, peer_uin, sequence, payload, recorded_at FROM events`
	args := []any{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY recorded_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var recorded int64
		if err := rows.Scan(&e.ID, &e.Name, &e.GroupUin, &e.PeerUin, &e.Sequence, &e.Payload, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.RecordedAt = time.Unix(0, recorded)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries named name, or all when empty
func (j *Journal) Count(ctx context.Context, name string) (int, error) {
	var count int
	var err error
	if name == "" {
		err = j.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	} else {
		err = j.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE name = ?`, name).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Prune deletes entries recorded before cutoff
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.db.ExecContext(ctx, `DELETE FROM events WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// RunRetention prunes entries older than ttl every interval until ctx is
// done
func (j *Journal) RunRetention(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.Prune(ctx, j.now().Add(-ttl))
			if err != nil {
				log.Printf("⚠️  [storage] %v", err)
				continue
			}
			if n > 0 {
				log.Printf("🧹 [storage] pruned %d journal entries", n)
			}
		}
	}
}
