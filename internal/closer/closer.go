package closer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/events"
	"auction-engine/internal/models"
	"auction-engine/internal/repository"
	"auction-engine/internal/settlement"
	"auction-engine/utils"
)

// Closer moves expired ACTIVE auctions to their terminal state
type Closer struct {
	repo       repository.AuctionDB
	dispatcher *settlement.Dispatcher
	publisher  events.Publisher
	now        func() time.Time
}

// Option configures a Closer
type Option func(c *Closer)

// WithPublisher sets where closing events go
func WithPublisher(p events.Publisher) Option {
	return func(c *Closer) {
		c.publisher = p
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Closer) {
		c.now = now
	}
}

// NewCloser creates a new Closer instance
func NewCloser(repo repository.AuctionDB, dispatcher *settlement.Dispatcher, opts ...Option) *Closer {
	c := &Closer{
		repo:       repo,
		dispatcher: dispatcher,
		publisher:  events.NewBus(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary counts the outcomes of one closing pass
type Summary struct {
	Scanned int
	Sold    int
	Unsold  int
	// Skipped auctions lost a version race and are reconsidered on the next pass
	Skipped int
	Failed  int
	Reports []settlement.Report
}

// ProcessEndedAuctions closes every auction whose end time has passed. A failure on one
// auction is logged and does not stop the others; only a failed scan is returned.
func (c *Closer) ProcessEndedAuctions(ctx context.Context) (Summary, error) {
	now := c.now()
	expired, err := c.repo.FindExpiredActiveAuctions(ctx, now)
	if err != nil {
		return Summary{}, fmt.Errorf("closer: failed to scan expired auctions: %w", err)
	}

	summary := Summary{Scanned: len(expired)}
	if len(expired) == 0 {
		return summary, nil
	}
	utils.Info("Closer: expired auctions found", map[string]any{"count": len(expired)})

	for _, auction := range expired {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		saved, report, err := c.safeCloseAuction(ctx, auction)
		switch {
		case errors.Is(err, biddingerrors.ErrConcurrencyConflict):
			summary.Skipped++
			utils.Info("Closer: auction changed during close, retrying next pass", map[string]any{
				"auction_id": auction.AuctionID,
			})
		case err != nil:
			summary.Failed++
			utils.Error("Closer: failed to close auction", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
		case saved.Status == models.StatusEndedSold:
			summary.Sold++
			summary.Reports = append(summary.Reports, report)
		default:
			summary.Unsold++
		}
	}

	return summary, nil
}

// safeCloseAuction keeps a panic while closing one auction from unwinding the batch
func (c *Closer) safeCloseAuction(ctx context.Context, auction models.Auction) (saved models.Auction, report settlement.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("closer: panic while closing auction %s: %v", auction.AuctionID, r)
		}
	}()
	return c.closeAuction(ctx, auction)
}

func (c *Closer) closeAuction(ctx context.Context, auction models.Auction) (models.Auction, settlement.Report, error) {
	highest, err := c.repo.FindHighestBid(ctx, auction.AuctionID)
	hasBids := true
	switch {
	case errors.Is(err, biddingerrors.ErrNoBids):
		hasBids = false
	case err != nil:
		return models.Auction{}, settlement.Report{}, err
	}

	sold := hasBids && auction.ReserveMet(highest.Amount)
	if sold {
		err = auction.EndSold(highest.BidderID, highest.Amount)
	} else {
		err = auction.EndUnsold()
	}
	if err != nil {
		return models.Auction{}, settlement.Report{}, err
	}

	saved, err := c.repo.SaveAuction(ctx, auction)
	if err != nil {
		return models.Auction{}, settlement.Report{}, err
	}

	participants, err := c.participants(ctx, auction.AuctionID)
	if err != nil {
		// the auction is already closed; only the participant notices are lost
		utils.Warn("Closer: failed to load participants", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
	}

	if !sold {
		c.announceUnsold(ctx, saved, highest, hasBids, participants)
		utils.Info("Closer: auction ended unsold", map[string]any{
			"auction_id": saved.AuctionID,
			"has_bids":   hasBids,
		})
		return saved, settlement.Report{}, nil
	}

	report := c.dispatcher.Dispatch(ctx, saved, highest)
	c.announceSold(ctx, saved, highest, participants)
	utils.Info("Closer: auction sold", map[string]any{
		"auction_id":  saved.AuctionID,
		"winner_id":   highest.BidderID,
		"final_price": highest.Amount,
		"settled":     report.OK(),
	})
	return saved, report, nil
}

// participants returns every distinct bidder with a priced bid
func (c *Closer) participants(ctx context.Context, auctionID string) ([]string, error) {
	bids, err := c.repo.FindBidsOrderedByAmountDesc(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(bids))
	var out []string
	for _, b := range bids {
		if !seen[b.BidderID] {
			seen[b.BidderID] = true
			out = append(out, b.BidderID)
		}
	}
	return out, nil
}

func (c *Closer) announceSold(ctx context.Context, auction models.Auction, winning models.Bid, participants []string) {
	c.publish(ctx, events.New(events.AuctionWon, auction.AuctionID, winning.BidderID, map[string]any{
		"final_price": winning.Amount,
		"seller_id":   auction.SellerID,
	}))
	c.publish(ctx, events.New(events.AuctionSold, auction.AuctionID, auction.SellerID, map[string]any{
		"final_price": winning.Amount,
		"winner_id":   winning.BidderID,
	}))
	for _, id := range participants {
		if id == winning.BidderID {
			continue
		}
		c.publish(ctx, events.New(events.AuctionEndedParticipant, auction.AuctionID, id, map[string]any{
			"final_price": winning.Amount,
		}))
	}
	c.publish(ctx, events.New(events.AuctionClosed, auction.AuctionID, "", map[string]any{
		"status":      string(auction.Status),
		"final_price": winning.Amount,
		"winner_id":   winning.BidderID,
	}))
}

func (c *Closer) announceUnsold(ctx context.Context, auction models.Auction, highest models.Bid, hasBids bool, participants []string) {
	payload := map[string]any{"bid_count": auction.BidCount}
	if hasBids {
		payload["highest_bid"] = highest.Amount
		payload["highest_bidder_id"] = highest.BidderID
		if auction.ReservePrice != nil {
			payload["reserve_price"] = *auction.ReservePrice
		}
	}
	c.publish(ctx, events.New(events.AuctionNotSold, auction.AuctionID, auction.SellerID, payload))

	if hasBids {
		c.publish(ctx, events.New(events.AuctionNotSoldHighestBidder, auction.AuctionID, highest.BidderID, map[string]any{
			"highest_bid": highest.Amount,
		}))
		for _, id := range participants {
			if id == highest.BidderID {
				continue
			}
			c.publish(ctx, events.New(events.AuctionEndedParticipant, auction.AuctionID, id, nil))
		}
	}

	c.publish(ctx, events.New(events.AuctionClosed, auction.AuctionID, "", map[string]any{
		"status": string(auction.Status),
	}))
}

func (c *Closer) publish(ctx context.Context, e events.Event) {
	if err := c.publisher.Publish(ctx, e); err != nil {
		utils.Warn("Closer: event delivery failed", map[string]any{
			"auction_id": e.AuctionID,
			"event":      string(e.Type),
			"error":      err.Error(),
		})
	}
}
