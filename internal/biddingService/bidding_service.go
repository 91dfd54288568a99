package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/events"
	"auction-engine/internal/models"
	"auction-engine/internal/pricing"
	"auction-engine/internal/repository"
	"auction-engine/internal/validator"
	"auction-engine/utils"
)

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo      repository.AuctionDB
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a BiddingService
type Option func(s *BiddingService)

// WithPublisher sets where bid events are published after each commit
func WithPublisher(p events.Publisher) Option {
	return func(s *BiddingService) {
		s.publisher = p
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) {
		s.now = now
	}
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:      repo,
		publisher: events.NewBus(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BidResult is the outcome of an accepted bid or auto-bid setup
type BidResult struct {
	Bid        models.Bid     `json:"bid"`
	IsHighest  bool           `json:"is_highest"`
	Auction    models.Auction `json:"auction"`
	Executions []models.Bid   `json:"executions,omitempty"`
}

// ListAuctionParams describes a new listing
type ListAuctionParams struct {
	SellerID     string
	Title        string
	StartPrice   int64
	HopePrice    int64
	ReservePrice *int64
	Duration     time.Duration
}

// ListAuction creates an ACTIVE auction starting now
func (s *BiddingService) ListAuction(ctx context.Context, p ListAuctionParams) (models.Auction, error) {
	if p.SellerID == "" || p.Title == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing seller or title", biddingerrors.ErrInvalidListing)
	}
	if p.StartPrice <= 0 || !pricing.IsHundredUnit(p.StartPrice) {
		return models.Auction{}, fmt.Errorf("service: %w - start price must be a positive multiple of %d", biddingerrors.ErrInvalidListing, pricing.BidUnit)
	}
	if p.Duration <= 0 {
		return models.Auction{}, fmt.Errorf("service: %w - non-positive duration", biddingerrors.ErrInvalidListing)
	}
	if p.ReservePrice != nil && *p.ReservePrice < p.StartPrice {
		return models.Auction{}, fmt.Errorf("service: %w - reserve price below start price", biddingerrors.ErrInvalidListing)
	}
	if _, err := s.repo.FindUserByID(ctx, p.SellerID); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to load seller %s: %w", p.SellerID, err)
	}

	auction := models.NewAuction(utils.GenerateID(), p.SellerID, p.Title, p.StartPrice, p.HopePrice, p.ReservePrice, p.Duration, s.now())
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}
	return auction, nil
}

// PlaceBid validates and records a manual bid. Standing auto-bids of other bidders
// respond within the same commit, so the returned IsHighest reflects the final state.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (BidResult, error) {
	if auctionID == "" || bidderID == "" {
		return BidResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}

	d, err := s.loadDraft(ctx, auctionID, bidderID)
	if err != nil {
		return BidResult{}, err
	}

	if err := validator.ValidateBid(d.auction, bidderID, amount, d.isFirstBid(), d.now); err != nil {
		s.logRejected("PlaceBid", auctionID, bidderID, amount, err)
		return BidResult{}, fmt.Errorf("service: %w", err)
	}

	bid := models.NewManualBid(utils.GenerateID(), auctionID, bidderID, amount, d.nextTimestamp())
	if err := d.place(bid); err != nil {
		return BidResult{}, fmt.Errorf("service: %w", err)
	}

	ceiling := amount
	var own *models.Bid
	if setting, ok := d.settingOf(bidderID); ok {
		own = &setting
		if setting.Ceiling() > ceiling {
			ceiling = setting.Ceiling()
		}
	}
	if err := d.resolve(trigger{bidderID: bidderID, ceiling: ceiling, setting: own}); err != nil {
		return BidResult{}, fmt.Errorf("service: auto-bid response failed for auction %s: %w", auctionID, err)
	}

	auction, err := s.repo.CommitBids(ctx, d.change())
	if err != nil {
		return BidResult{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}

	s.publishBids(ctx, auction, d)

	return BidResult{
		Bid:        bid,
		IsHighest:  d.highest != nil && d.highest.BidderID == bidderID,
		Auction:    auction,
		Executions: d.executions(),
	}, nil
}

// GetAuction returns a single auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	auction, err := s.repo.FindAuctionByID(ctx, auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// GetBidsForAuction returns all priced bids for an auction, highest first
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}
	if _, err := s.repo.FindAuctionByID(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	bids, err := s.repo.FindBidsOrderedByAmountDesc(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetHighestBid returns the current highest bid for an auction
func (s *BiddingService) GetHighestBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrInvalidBid)
	}

	bid, err := s.repo.FindHighestBid(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get highest bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// GetAuctionsByBidder returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByBidder(ctx context.Context, userID string) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", biddingerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}
	return auctions, nil
}

// CountDistinctBidders returns how many different users hold a priced bid
func (s *BiddingService) CountDistinctBidders(ctx context.Context, auctionID string) (int, error) {
	n, err := s.repo.CountDistinctBidders(ctx, auctionID)
	if err != nil {
		return 0, fmt.Errorf("service: failed to count bidders for auction %s: %w", auctionID, err)
	}
	return n, nil
}

// loadDraft reads the auction before the ledger; the ledger is append-only and the
// commit is version-checked, so a ledger read newer than the auction read can only
// lead to a rejected commit, never to an inconsistent one.
func (s *BiddingService) loadDraft(ctx context.Context, auctionID, bidderID string) (*draft, error) {
	auction, err := s.repo.FindAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if _, err := s.repo.FindUserByID(ctx, bidderID); err != nil {
		return nil, fmt.Errorf("service: failed to load bidder %s: %w", bidderID, err)
	}

	d := newDraft(auction, s.now())

	highest, err := s.repo.FindHighestBid(ctx, auctionID)
	switch {
	case err == nil:
		d.highest = &highest
	case errors.Is(err, biddingerrors.ErrNoBids):
	default:
		return nil, fmt.Errorf("service: failed to check highest bid: %w", err)
	}

	settings, err := s.repo.FindActiveAutoBidSettings(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load auto-bid settings: %w", err)
	}
	d.settings = settings

	return d, nil
}

func (s *BiddingService) publishBids(ctx context.Context, auction models.Auction, d *draft) {
	for _, b := range d.newBids {
		if b.IsSetting() {
			continue
		}
		eventType := events.BidPlaced
		if b.IsAutoBid {
			eventType = events.AutoBidExecuted
		}
		s.publish(ctx, events.New(eventType, auction.AuctionID, "", map[string]any{
			"bid_id":        b.BidID,
			"bidder_id":     b.BidderID,
			"amount":        b.Amount,
			"current_price": auction.CurrentPrice,
			"bid_count":     auction.BidCount,
		}))
	}

	for _, loser := range d.displacedLeaders() {
		s.publish(ctx, events.New(events.Outbid, auction.AuctionID, loser, map[string]any{
			"current_price": auction.CurrentPrice,
			"minimum_bid":   pricing.MinimumNextBid(auction.CurrentPrice),
		}))
	}
}

func (s *BiddingService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		utils.Warn("BiddingService: event delivery failed", map[string]any{
			"auction_id": e.AuctionID,
			"event":      string(e.Type),
			"error":      err.Error(),
		})
	}
}

func (s *BiddingService) logRejected(op, auctionID, bidderID string, amount int64, err error) {
	utils.Info(op+": bid rejected", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     amount,
		"error":      err.Error(),
	})
}
