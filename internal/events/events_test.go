package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	e := New(BidPlaced, "auction1", "user1", map[string]any{"amount": int64(100_000)})

	_, err := ulid.Parse(e.ID)
	require.NoError(t, err, "event id should be a valid ULID")
	require.Equal(t, BidPlaced, e.Type)
	require.Equal(t, "auction1", e.AuctionID)
	require.Equal(t, "user1", e.RecipientID)
	require.False(t, e.OccurredAt.IsZero())
}

func TestBus_Publish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		handlers  map[string]Handler
		wantCalls int64
		wantErr   bool
	}{
		{
			name:      "no_handlers",
			handlers:  map[string]Handler{},
			wantCalls: 0,
		},
		{
			name: "all_succeed",
			handlers: map[string]Handler{
				"a": func(context.Context, Event) error { return nil },
				"b": func(context.Context, Event) error { return nil },
			},
			wantCalls: 2,
		},
		{
			name: "failure_does_not_stop_others",
			handlers: map[string]Handler{
				"fails": func(context.Context, Event) error { return errors.New("push down") },
				"ok":    func(context.Context, Event) error { return nil },
			},
			wantCalls: 2,
			wantErr:   true,
		},
		{
			name: "panic_is_recovered",
			handlers: map[string]Handler{
				"panics": func(context.Context, Event) error { panic("boom") },
				"ok":     func(context.Context, Event) error { return nil },
			},
			wantCalls: 2,
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls int64
			bus := NewBus()
			for name, h := range tc.handlers {
				h := h
				bus.Subscribe(name, func(ctx context.Context, e Event) error {
					atomic.AddInt64(&calls, 1)
					return h(ctx, e)
				})
			}

			err := bus.Publish(context.Background(), New(AuctionClosed, "auction1", "", nil))
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantCalls, atomic.LoadInt64(&calls))
		})
	}
}

func TestCollector(t *testing.T) {
	t.Parallel()

	c := &Collector{}
	require.NoError(t, c.Publish(context.Background(), New(BidPlaced, "a1", "", nil)))
	require.NoError(t, c.Publish(context.Background(), New(Outbid, "a1", "u1", nil)))

	require.Len(t, c.Events(), 2)
	require.Len(t, c.OfType(Outbid), 1)
	require.Empty(t, c.OfType(AuctionWon))
}
