package bidding

import (
	"context"
	"fmt"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/pricing"
	"auction-engine/internal/validator"
	"auction-engine/utils"
)

// trigger is the bidder whose action starts a proxy resolution
type trigger struct {
	bidderID string
	ceiling  int64
	// setting is the trigger's standing auto-bid, nil for a manual bidder without one
	setting *models.Bid
	setup   bool
}

// SetupAutoBid records or replaces a bidder's private ceiling and immediately resolves
// it against the other standing auto-bids
func (s *BiddingService) SetupAutoBid(ctx context.Context, auctionID, bidderID string, maxAmount int64) (BidResult, error) {
	if auctionID == "" || bidderID == "" {
		return BidResult{}, fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}

	d, err := s.loadDraft(ctx, auctionID, bidderID)
	if err != nil {
		return BidResult{}, err
	}

	if err := validator.ValidateCeiling(d.auction, bidderID, maxAmount, d.now); err != nil {
		s.logRejected("SetupAutoBid", auctionID, bidderID, maxAmount, err)
		return BidResult{}, fmt.Errorf("service: %w", err)
	}

	setting := models.NewAutoBidSetting(utils.GenerateID(), auctionID, bidderID, maxAmount, d.nextTimestamp())
	d.replaceSetting(setting)

	if err := d.resolve(trigger{bidderID: bidderID, ceiling: maxAmount, setting: &setting, setup: true}); err != nil {
		return BidResult{}, fmt.Errorf("service: auto-bid resolution failed for auction %s: %w", auctionID, err)
	}

	auction, err := s.repo.CommitBids(ctx, d.change())
	if err != nil {
		return BidResult{}, fmt.Errorf("service: failed to record auto-bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}

	utils.Info("SetupAutoBid: ceiling recorded", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"executions": len(d.executions()),
		"price":      auction.CurrentPrice,
	})

	s.publishBids(ctx, auction, d)

	return BidResult{
		Bid:        setting,
		IsHighest:  d.highest != nil && d.highest.BidderID == bidderID,
		Auction:    auction,
		Executions: d.executions(),
	}, nil
}

// CancelAutoBid withdraws the bidder's standing ceiling. Bids already executed stay.
func (s *BiddingService) CancelAutoBid(ctx context.Context, auctionID, bidderID string) error {
	if auctionID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", biddingerrors.ErrInvalidBid)
	}

	d, err := s.loadDraft(ctx, auctionID, bidderID)
	if err != nil {
		return err
	}
	if d.auction.Status != models.StatusActive {
		return fmt.Errorf("service: %w", biddingerrors.NewValidationError(biddingerrors.ErrNotActive))
	}

	setting, ok := d.settingOf(bidderID)
	if !ok {
		return fmt.Errorf("service: auction %s bidder %s: %w", auctionID, bidderID, biddingerrors.ErrAutoBidNotFound)
	}
	d.cancel = append(d.cancel, setting.BidID)

	if _, err := s.repo.CommitBids(ctx, d.change()); err != nil {
		return fmt.Errorf("service: failed to cancel auto-bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}
	return nil
}

// resolve runs English-auction proxy competition for the trigger against the strongest
// standing auto-bid of any other bidder
func (d *draft) resolve(t trigger) error {
	if d.isFirstBid() {
		if !t.setup {
			return nil
		}
		_, err := d.execute(t.bidderID, d.auction.StartPrice, t.ceiling)
		return err
	}

	if t.setup && d.highest.BidderID == t.bidderID {
		return nil
	}

	rival, ok := d.strongestRival(t.bidderID)
	if !ok {
		if !t.setup {
			return nil
		}
		_, err := d.execute(t.bidderID, pricing.MinimumNextBid(d.auction.CurrentPrice), t.ceiling)
		return err
	}

	switch {
	case t.ceiling > rival.Ceiling():
		return d.outbid(t.bidderID, t.ceiling, rival.BidderID, rival.Ceiling())
	case t.ceiling < rival.Ceiling():
		return d.outbid(rival.BidderID, rival.Ceiling(), t.bidderID, t.ceiling)
	default:
		incumbent := rival
		if t.setting != nil && t.setting.SetBefore(rival) {
			incumbent = *t.setting
		}
		if d.highest.BidderID == incumbent.BidderID && d.auction.CurrentPrice >= incumbent.Ceiling() {
			return nil
		}
		_, err := d.execute(incumbent.BidderID, incumbent.Ceiling(), incumbent.Ceiling())
		return err
	}
}

// outbid settles a head-to-head exchange the winner takes. The loser's forced bid at
// its ceiling is recorded only when it is legal and still leaves the winner room for a
// full increment above it; otherwise the winner bids directly against the current price.
func (d *draft) outbid(winner string, winnerCeiling int64, loser string, loserCeiling int64) error {
	step := loserCeiling + pricing.MinimumIncrement(loserCeiling)
	target := step
	if winnerCeiling < target {
		target = winnerCeiling
	}

	if loserCeiling >= d.floor() {
		if winnerCeiling >= step {
			if _, err := d.execute(loser, loserCeiling, loserCeiling); err != nil {
				return err
			}
		}
		_, err := d.execute(winner, target, winnerCeiling)
		return err
	}

	// the loser cannot raise any further
	if d.highest.BidderID == winner {
		return nil
	}
	_, err := d.execute(winner, target, winnerCeiling)
	return err
}
