package helpers

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs

// Amounts are accepted as JSON numbers or strings and must be whole currency units.
type PlaceBidRequest struct {
	BidderID string          `json:"bidder_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

type SetupAutoBidRequest struct {
	BidderID  string          `json:"bidder_id" binding:"required"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

type CreateAuctionRequest struct {
	SellerID        string           `json:"seller_id" binding:"required"`
	Title           string           `json:"title" binding:"required"`
	StartPrice      decimal.Decimal  `json:"start_price"`
	HopePrice       decimal.Decimal  `json:"hope_price"`
	ReservePrice    *decimal.Decimal `json:"reserve_price"`
	DurationMinutes int              `json:"duration_minutes" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	BidderID  string `json:"bidder_id"`
	Amount    int64  `json:"amount"`
	IsAutoBid bool   `json:"is_auto_bid"`
	CreatedAt string `json:"created_at"`
}

type PlaceBidResponse struct {
	Bid          BidResponse   `json:"bid"`
	IsHighest    bool          `json:"is_highest"`
	CurrentPrice int64         `json:"current_price"`
	BidCount     int           `json:"bid_count"`
	MinimumBid   int64         `json:"minimum_bid"`
	Executions   []BidResponse `json:"executions"`
}

type AuctionResponse struct {
	AuctionID       string  `json:"auction_id"`
	SellerID        string  `json:"seller_id"`
	Title           string  `json:"title"`
	StartPrice      int64   `json:"start_price"`
	CurrentPrice    int64   `json:"current_price"`
	HopePrice       int64   `json:"hope_price"`
	MinimumBid      int64   `json:"minimum_bid"`
	Status          string  `json:"status"`
	BidCount        int     `json:"bid_count"`
	BidderCount     int     `json:"bidder_count"`
	StartAt         string  `json:"start_at"`
	EndAt           string  `json:"end_at"`
	WinningBidderID *string `json:"winning_bidder_id,omitempty"`
	FinalPrice      int64   `json:"final_price,omitempty"`
}

// ParseAmount converts a client amount to whole currency units
func ParseAmount(field string, d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("%s must be a whole amount, got %s", field, d.String())
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%s must be positive, got %s", field, d.String())
	}
	if d.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, fmt.Errorf("%s is out of range", field)
	}
	return d.IntPart(), nil
}
