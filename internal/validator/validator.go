package validator

import (
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/pricing"
)

// ValidateBid checks a candidate bid against an auction snapshot. Rules are applied in
// order and the first failure is returned as a *biddingerrors.ValidationError.
func ValidateBid(auction models.Auction, bidderID string, amount int64, isFirstBid bool, now time.Time) error {
	if err := validateCommon(auction, bidderID, amount, now); err != nil {
		return err
	}

	if isFirstBid {
		if amount < auction.StartPrice {
			return biddingerrors.NewValidationError(biddingerrors.ErrBelowMinimum).WithMinimum(auction.StartPrice)
		}
	} else if minimum := pricing.MinimumNextBid(auction.CurrentPrice); amount < minimum {
		return biddingerrors.NewValidationError(biddingerrors.ErrBelowMinimum).WithMinimum(minimum)
	}

	if maximum := pricing.MaximumAllowedBid(auction.CurrentPrice); amount > maximum {
		return biddingerrors.NewValidationError(biddingerrors.ErrAboveMaximum).WithMaximum(maximum)
	}

	return nil
}

// ValidateCeiling checks a proposed auto-bid ceiling. The ceiling is private and is not
// subject to the single-bid maximum; every bid placed from it is bounded by the ceiling.
func ValidateCeiling(auction models.Auction, bidderID string, maxAmount int64, now time.Time) error {
	if err := validateCommon(auction, bidderID, maxAmount, now); err != nil {
		return err
	}

	if minimum := pricing.MinimumNextBid(auction.CurrentPrice); maxAmount < minimum {
		return biddingerrors.NewValidationError(biddingerrors.ErrBelowMinimum).WithMinimum(minimum)
	}

	return nil
}

func validateCommon(auction models.Auction, bidderID string, amount int64, now time.Time) error {
	if amount <= 0 || !pricing.IsHundredUnit(amount) {
		return biddingerrors.NewValidationError(biddingerrors.ErrInvalidAmount)
	}
	if auction.Status != models.StatusActive {
		return biddingerrors.NewValidationError(biddingerrors.ErrNotActive)
	}
	if now.After(auction.EndAt) {
		return biddingerrors.NewValidationError(biddingerrors.ErrAuctionExpired)
	}
	if bidderID == auction.SellerID {
		return biddingerrors.NewValidationError(biddingerrors.ErrSelfBid)
	}
	return nil
}
