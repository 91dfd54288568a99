package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/internal/pricing"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code, message and any
// detail the client needs to correct the request
func MapErrorToHTTP(err error) (int, string, gin.H) {
	var verr *biddingerrors.ValidationError
	switch {
	case errors.Is(err, biddingerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found", nil
	case errors.Is(err, biddingerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found", nil
	case errors.Is(err, biddingerrors.ErrAutoBidNotFound):
		return http.StatusNotFound, "no active auto-bid", nil
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction", nil
	case errors.Is(err, biddingerrors.ErrUserNoBids):
		return http.StatusNotFound, "no auctions found for user", nil
	case errors.Is(err, biddingerrors.ErrConcurrencyConflict):
		return http.StatusConflict, "auction changed, retry with fresh state", gin.H{"retryable": true}
	case errors.As(err, &verr):
		return validationStatus(verr)
	case errors.Is(err, biddingerrors.ErrInvalidBid), errors.Is(err, biddingerrors.ErrInvalidListing):
		return http.StatusBadRequest, "invalid request details", nil
	default:
		return http.StatusInternalServerError, "internal server error", nil
	}
}

func validationStatus(verr *biddingerrors.ValidationError) (int, string, gin.H) {
	detail := gin.H{"reason": verr.Reason.Error(), "retryable": false}
	switch {
	case errors.Is(verr, biddingerrors.ErrBelowMinimum):
		detail["minimum_bid"] = verr.Minimum
		return http.StatusUnprocessableEntity, "bid amount too low", detail
	case errors.Is(verr, biddingerrors.ErrAboveMaximum):
		detail["maximum_bid"] = verr.Maximum
		return http.StatusUnprocessableEntity, "bid amount too high", detail
	case errors.Is(verr, biddingerrors.ErrNotActive), errors.Is(verr, biddingerrors.ErrAuctionExpired):
		return http.StatusUnprocessableEntity, "auction is closed for bidding", detail
	case errors.Is(verr, biddingerrors.ErrSelfBid):
		return http.StatusForbidden, "sellers cannot bid on their own auction", detail
	default:
		return http.StatusBadRequest, "invalid bid amount", detail
	}
}

// RespondError writes the mapped error and logs it
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, msg, detail := MapErrorToHTTP(err)
	utils.JSONErrorWithDetail(c, status, err, msg, detail)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["error"] = err.Error()
	fields["status"] = status
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": failed", fields)
		return
	}
	utils.Warn(handlerName+": rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// ToBidResponse hides the proxy ceiling that models.Bid carries
func ToBidResponse(b models.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		IsAutoBid: b.IsAutoBid,
		CreatedAt: b.CreatedAt.Format(time.RFC3339Nano),
	}
}

// ToBidResponses converts a list of bids
func ToBidResponses(bids []models.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, ToBidResponse(b))
	}
	return out
}

// ToAuctionResponse adds the next acceptable bid amount for open auctions
func ToAuctionResponse(a models.Auction, bidderCount int) AuctionResponse {
	minimum := a.StartPrice
	if a.BidCount > 0 {
		minimum = pricing.MinimumNextBid(a.CurrentPrice)
	}
	return AuctionResponse{
		AuctionID:       a.AuctionID,
		SellerID:        a.SellerID,
		Title:           a.Title,
		StartPrice:      a.StartPrice,
		CurrentPrice:    a.CurrentPrice,
		HopePrice:       a.HopePrice,
		MinimumBid:      minimum,
		Status:          string(a.Status),
		BidCount:        a.BidCount,
		BidderCount:     bidderCount,
		StartAt:         a.StartAt.Format(time.RFC3339),
		EndAt:           a.EndAt.Format(time.RFC3339),
		WinningBidderID: a.WinningBidderID,
		FinalPrice:      a.FinalPrice,
	}
}

// ToAuctionResponses converts a list of auctions without bidder counts
func ToAuctionResponses(auctions []models.Auction) []AuctionResponse {
	out := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, ToAuctionResponse(a, 0))
	}
	return out
}
