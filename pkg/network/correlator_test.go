package network

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/ntlink/pkg/protocol"
)

func TestAllocateSequenceUnique(t *testing.T) {
	c := NewCorrelator(nil, nil)

	const workers, per = 8, 500
	var mu sync.Mutex
	seen := make(map[uint32]bool, workers*per)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint32, 0, per)
			for j := 0; j < per; j++ {
				local = append(local, c.AllocateSequence())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, s := range local {
				seen[s] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*per)
	assert.False(t, seen[0])
}

func TestAllocateSequenceSkipsZero(t *testing.T) {
	c := NewCorrelator(nil, nil)
	c.Seed(^uint32(0) - 1)

	assert.Equal(t, ^uint32(0), c.AllocateSequence())
	assert.Equal(t, uint32(1), c.AllocateSequence())
}

func TestDeliverCompletesExactlyOnce(t *testing.T) {
	var pushes []*protocol.SsoPacket
	c := NewCorrelator(func(p *protocol.SsoPacket) { pushes = append(pushes, p) }, nil)

	w, err := c.Register(7)
	require.NoError(t, err)

	resp := protocol.NewResponsePacket("svc.Cmd", 7, 0, "", []byte("ok"))
	c.Deliver(resp)
	c.Deliver(resp)

	got, err := c.Wait(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got.Data())
	assert.Zero(t, c.Pending())
	assert.Empty(t, pushes, "duplicate response must not be treated as a push")
}

func TestDeliverUnmatchedIsPush(t *testing.T) {
	var pushes []*protocol.SsoPacket
	c := NewCorrelator(func(p *protocol.SsoPacket) { pushes = append(pushes, p) }, nil)

	c.Deliver(protocol.NewResponsePacket("trpc.msg.olpush.OlPushService.MsgPush", 900, 0, "", nil))

	require.Len(t, pushes, 1)
	assert.Equal(t, uint32(900), pushes[0].Sequence())
}

func TestRegisterDuplicate(t *testing.T) {
	c := NewCorrelator(nil, nil)
	_, err := c.Register(3)
	require.NoError(t, err)

	_, err = c.Register(3)
	assert.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestWaitCancellation(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		wantErr error
	}{
		{
			name: "deadline",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 20*time.Millisecond)
			},
			wantErr: context.DeadlineExceeded,
		},
		{
			name: "cancelled",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pushes int
			c := NewCorrelator(func(*protocol.SsoPacket) { pushes++ }, nil)
			w, err := c.Register(11)
			require.NoError(t, err)

			ctx, cancel := tt.ctx()
			defer cancel()

			_, err = c.Wait(ctx, w)
			var cerr *CancellationError
			require.True(t, errors.As(err, &cerr), "err = %v", err)
			assert.Equal(t, uint32(11), cerr.Sequence)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, c.Pending())

			// a late response is now unsolicited
			c.Deliver(protocol.NewResponsePacket("svc.Cmd", 11, 0, "", nil))
			assert.Equal(t, 1, pushes)
		})
	}
}

func TestWaitPrefersReadyResult(t *testing.T) {
	c := NewCorrelator(nil, nil)
	w, err := c.Register(5)
	require.NoError(t, err)

	c.Deliver(protocol.NewResponsePacket("svc.Cmd", 5, 0, "", []byte("done")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// either branch may be chosen by select; the result must still win
	got, err := c.Wait(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, []byte("done"), got.Data())
}

func TestFaultAll(t *testing.T) {
	c := NewCorrelator(nil, nil)

	var waiters []*Waiter
	for seq := uint32(1); seq <= 3; seq++ {
		w, err := c.Register(seq)
		require.NoError(t, err)
		waiters = append(waiters, w)
	}

	cause := &ConnectionError{Err: errors.New("reset")}
	assert.Equal(t, 3, c.FaultAll(cause))
	assert.Zero(t, c.Pending())

	for _, w := range waiters {
		_, err := c.Wait(context.Background(), w)
		var cerr *ConnectionError
		assert.True(t, errors.As(err, &cerr))
	}

	assert.Zero(t, c.FaultAll(cause))
}
