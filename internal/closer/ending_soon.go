package closer

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/collection"

	"auction-engine/internal/events"
	"auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/utils"
)

// Window is a reminder sent when an auction has roughly Before left
type Window struct {
	Name      string
	Before    time.Duration
	Tolerance time.Duration
}

// DefaultWindows are the 15 and 5 minute reminders
var DefaultWindows = []Window{
	{Name: "15m", Before: 15 * time.Minute, Tolerance: 2 * time.Minute},
	{Name: "5m", Before: 5 * time.Minute, Tolerance: 2 * time.Minute},
}

// EndingSoonNotifier reminds participants of auctions that are about to end.
// Each (auction, window) pair is announced at most once.
type EndingSoonNotifier struct {
	repo      repository.AuctionDB
	publisher events.Publisher
	windows   []Window
	sent      *collection.Cache
	now       func() time.Time
}

// NewEndingSoonNotifier creates a notifier for the given windows
func NewEndingSoonNotifier(repo repository.AuctionDB, publisher events.Publisher, windows []Window, now func() time.Time) (*EndingSoonNotifier, error) {
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	var longest time.Duration
	for _, w := range windows {
		if w.Before+w.Tolerance > longest {
			longest = w.Before + w.Tolerance
		}
	}
	sent, err := collection.NewCache(longest+time.Minute, collection.WithName("ending-soon"))
	if err != nil {
		return nil, fmt.Errorf("notifier: failed to create throttle cache: %w", err)
	}

	return &EndingSoonNotifier{repo: repo, publisher: publisher, windows: windows, sent: sent, now: now}, nil
}

// Notify publishes AUCTION_ENDING_SOON for every auction inside a window and returns
// how many auctions were announced
func (n *EndingSoonNotifier) Notify(ctx context.Context) (int, error) {
	now := n.now()
	announced := 0

	for _, w := range n.windows {
		from := now.Add(w.Before - w.Tolerance)
		to := now.Add(w.Before + w.Tolerance)
		auctions, err := n.repo.FindActiveAuctionsEndingBetween(ctx, from, to)
		if err != nil {
			return announced, fmt.Errorf("notifier: failed to scan window %s: %w", w.Name, err)
		}

		for _, auction := range auctions {
			key := auction.AuctionID + "/" + w.Name
			if _, done := n.sent.Get(key); done {
				continue
			}
			n.announce(ctx, auction, w, now)
			n.sent.Set(key, struct{}{})
			announced++
		}
	}
	return announced, nil
}

func (n *EndingSoonNotifier) announce(ctx context.Context, auction models.Auction, w Window, now time.Time) {
	payload := map[string]any{
		"window":        w.Name,
		"ends_at":       auction.EndAt,
		"seconds_left":  int64(auction.EndAt.Sub(now) / time.Second),
		"current_price": auction.CurrentPrice,
	}

	recipients := []string{""}
	bids, err := n.repo.FindBidsOrderedByAmountDesc(ctx, auction.AuctionID)
	if err != nil {
		utils.Warn("EndingSoonNotifier: failed to load bidders", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
	}
	seen := map[string]bool{}
	for _, b := range bids {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			recipients = append(recipients, b.BidderID)
		}
	}

	for _, id := range recipients {
		if err := n.publisher.Publish(ctx, events.New(events.AuctionEndingSoon, auction.AuctionID, id, payload)); err != nil {
			utils.Warn("EndingSoonNotifier: event delivery failed", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
		}
	}
}
