package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type names a domain event
type Type string

const (
	BidPlaced                   Type = "BID_PLACED"
	AutoBidExecuted             Type = "AUTO_BID_EXECUTED"
	Outbid                      Type = "OUTBID"
	AuctionWon                  Type = "AUCTION_WON"
	AuctionSold                 Type = "AUCTION_SOLD"
	AuctionNotSold              Type = "AUCTION_NOT_SOLD"
	AuctionNotSoldHighestBidder Type = "AUCTION_NOT_SOLD_HIGHEST_BIDDER"
	AuctionEndedParticipant     Type = "AUCTION_ENDED_PARTICIPANT"
	AuctionEndingSoon           Type = "AUCTION_ENDING_SOON"
	AuctionClosed               Type = "AUCTION_CLOSED"
)

// Event is a domain event. RecipientID is empty for broadcast events.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	AuctionID   string         `json:"auction_id"`
	RecipientID string         `json:"recipient_id,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// New builds an event with a time-sortable id
func New(eventType Type, auctionID, recipientID string, payload map[string]any) Event {
	return Event{
		ID:          ulid.Make().String(),
		Type:        eventType,
		AuctionID:   auctionID,
		RecipientID: recipientID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

// Publisher accepts domain events for delivery
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler consumes one event
type Handler func(ctx context.Context, event Event) error

type subscription struct {
	name    string
	handler Handler
}

// Bus delivers each event synchronously to every subscribed handler.
// Handlers must not rely on being called in any particular order.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a named handler
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: handler})
}

// Publish calls every handler. A failing or panicking handler does not stop the
// others; all failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := deliver(ctx, s, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, s subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked on %s: %v", s.name, event.Type, r)
		}
	}()
	if err := s.handler(ctx, event); err != nil {
		return fmt.Errorf("handler %s on %s: %w", s.name, event.Type, err)
	}
	return nil
}

// Collector is a Publisher that keeps every event in memory
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event
func (c *Collector) Publish(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// OfType filters recorded events by type
func (c *Collector) OfType(eventType Type) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
