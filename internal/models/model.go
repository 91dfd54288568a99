package models

import (
	"fmt"
	"time"

	"auction-engine/internal/biddingerrors"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	StatusPending     AuctionStatus = "PENDING"
	StatusActive      AuctionStatus = "ACTIVE"
	StatusEndedSold   AuctionStatus = "ENDED_SOLD"
	StatusEndedUnsold AuctionStatus = "ENDED_UNSOLD"
	StatusCancelled   AuctionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is possible
func (s AuctionStatus) IsTerminal() bool {
	return s == StatusEndedSold || s == StatusEndedUnsold || s == StatusCancelled
}

// CanTransitionTo reports whether s -> next is a forward edge of the state machine
func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusEndedSold || next == StatusEndedUnsold || next == StatusCancelled
	default:
		return false
	}
}

// BidStatus marks whether a bid record is still in force
type BidStatus string

const (
	BidActive    BidStatus = "ACTIVE"
	BidCancelled BidStatus = "CANCELLED"
)

// User represents a participant in the auction
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Auction is a single listing and its bidding state. Prices are whole currency units.
type Auction struct {
	AuctionID       string        `json:"auction_id"`
	SellerID        string        `json:"seller_id"`
	Title           string        `json:"title"`
	StartPrice      int64         `json:"start_price"`
	CurrentPrice    int64         `json:"current_price"`
	HopePrice       int64         `json:"hope_price"`
	ReservePrice    *int64        `json:"reserve_price,omitempty"`
	Duration        time.Duration `json:"duration"`
	StartAt         time.Time     `json:"start_at"`
	EndAt           time.Time     `json:"end_at"`
	Status          AuctionStatus `json:"status"`
	BidCount        int           `json:"bid_count"`
	WinningBidderID *string       `json:"winning_bidder_id,omitempty"`
	FinalPrice      int64         `json:"final_price"`

	// Version is bumped by the store on every committed mutation
	Version int64 `json:"version"`
}

// NewAuction creates an ACTIVE auction whose end time is fixed at start + duration
func NewAuction(auctionID, sellerID, title string, startPrice, hopePrice int64, reservePrice *int64, duration time.Duration, startAt time.Time) Auction {
	return Auction{
		AuctionID:    auctionID,
		SellerID:     sellerID,
		Title:        title,
		StartPrice:   startPrice,
		CurrentPrice: startPrice,
		HopePrice:    hopePrice,
		ReservePrice: reservePrice,
		Duration:     duration,
		StartAt:      startAt,
		EndAt:        startAt.Add(duration),
		Status:       StatusActive,
	}
}

// IsOpenAt reports whether bids may still be accepted at the given instant
func (a Auction) IsOpenAt(now time.Time) bool {
	return a.Status == StatusActive && !now.After(a.EndAt)
}

// IsExpiredAt reports whether the closer should pick this auction up
func (a Auction) IsExpiredAt(now time.Time) bool {
	return a.Status == StatusActive && !a.EndAt.After(now)
}

// ReserveMet reports whether amount satisfies the seller's reserve, if any
func (a Auction) ReserveMet(amount int64) bool {
	return a.ReservePrice == nil || amount >= *a.ReservePrice
}

// ApplyBid records an accepted bid amount on the auction
func (a *Auction) ApplyBid(amount int64) error {
	if amount < a.CurrentPrice {
		return fmt.Errorf("auction %s: %w - %d below current price %d", a.AuctionID, biddingerrors.ErrPriceRegression, amount, a.CurrentPrice)
	}
	a.CurrentPrice = amount
	a.BidCount++
	return nil
}

// EndSold closes the auction with a winner
func (a *Auction) EndSold(winnerID string, finalPrice int64) error {
	if err := a.transition(StatusEndedSold); err != nil {
		return err
	}
	a.WinningBidderID = &winnerID
	a.FinalPrice = finalPrice
	return nil
}

// EndUnsold closes the auction without a winner
func (a *Auction) EndUnsold() error {
	if err := a.transition(StatusEndedUnsold); err != nil {
		return err
	}
	a.WinningBidderID = nil
	a.FinalPrice = 0
	return nil
}

// Cancel withdraws a listing that has not ended yet
func (a *Auction) Cancel() error {
	return a.transition(StatusCancelled)
}

func (a *Auction) transition(next AuctionStatus) error {
	if !a.Status.CanTransitionTo(next) {
		return fmt.Errorf("auction %s: %w - %s to %s", a.AuctionID, biddingerrors.ErrInvalidTransition, a.Status, next)
	}
	a.Status = next
	return nil
}

// Bid is one append-only record in an auction's ledger.
// An auto-bid setting has Amount 0 and only MaxAutoBidAmount set; an execution
// bid produced by proxy resolution has a real Amount and IsAutoBid set.
type Bid struct {
	BidID            string    `json:"bid_id"`
	AuctionID        string    `json:"auction_id"`
	BidderID         string    `json:"bidder_id"`
	Amount           int64     `json:"amount"`
	IsAutoBid        bool      `json:"is_auto_bid"`
	MaxAutoBidAmount *int64    `json:"-"`
	Status           BidStatus `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewManualBid builds a human bid record
func NewManualBid(bidID, auctionID, bidderID string, amount int64, at time.Time) Bid {
	return Bid{
		BidID:     bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Status:    BidActive,
		CreatedAt: at,
	}
}

// NewAutoBidSetting builds a standing proxy ceiling record
func NewAutoBidSetting(bidID, auctionID, bidderID string, maxAmount int64, at time.Time) Bid {
	return Bid{
		BidID:            bidID,
		AuctionID:        auctionID,
		BidderID:         bidderID,
		IsAutoBid:        true,
		MaxAutoBidAmount: &maxAmount,
		Status:           BidActive,
		CreatedAt:        at,
	}
}

// NewExecutionBid builds a bid placed by proxy resolution on behalf of bidderID
func NewExecutionBid(bidID, auctionID, bidderID string, amount, ceiling int64, at time.Time) Bid {
	return Bid{
		BidID:            bidID,
		AuctionID:        auctionID,
		BidderID:         bidderID,
		Amount:           amount,
		IsAutoBid:        true,
		MaxAutoBidAmount: &ceiling,
		Status:           BidActive,
		CreatedAt:        at,
	}
}

// IsSetting reports whether this record only stores a proxy ceiling
func (b Bid) IsSetting() bool {
	return b.IsAutoBid && b.Amount == 0
}

// IsActive reports whether the record has not been cancelled
func (b Bid) IsActive() bool {
	return b.Status == BidActive
}

// Ceiling returns the proxy ceiling, or 0 when none is set
func (b Bid) Ceiling() int64 {
	if b.MaxAutoBidAmount == nil {
		return 0
	}
	return *b.MaxAutoBidAmount
}

// Cancel marks a superseded auto-bid setting
func (b *Bid) Cancel() {
	b.Status = BidCancelled
}

// SetBefore orders auto-bid settings by setting time, earliest first
func (b Bid) SetBefore(other Bid) bool {
	if b.CreatedAt.Equal(other.CreatedAt) {
		return b.BidID < other.BidID
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// OutranksBid orders ledger entries: higher amount first, then earlier timestamp
func (b Bid) OutranksBid(other Bid) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.CreatedAt.Before(other.CreatedAt)
}
