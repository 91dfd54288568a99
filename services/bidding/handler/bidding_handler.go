package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"
	"auction-engine/internal/pricing"
	"auction-engine/services/bidding/helpers"
	"auction-engine/utils"

	"github.com/gin-gonic/gin"
)

type BiddingServiceInterface interface {
	ListAuction(ctx context.Context, p bidding.ListAuctionParams) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (bidding.BidResult, error)
	SetupAutoBid(ctx context.Context, auctionID, bidderID string, maxAmount int64) (bidding.BidResult, error)
	CancelAutoBid(ctx context.Context, auctionID, bidderID string) error
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetHighestBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error)
	CountDistinctBidders(ctx context.Context, auctionID string) (int, error)
}

// LiveFeed upgrades a request to a realtime auction stream
type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request, auctionID, userID string)
}

type BiddingHandler struct {
	service BiddingServiceInterface
	feed    LiveFeed
}

func NewBiddingHandler(service BiddingServiceInterface, feed LiveFeed) *BiddingHandler {
	return &BiddingHandler{service: service, feed: feed}
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	params, err := toListAuctionParams(req)
	if err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.ListAuction(c.Request.Context(), params)
	if err != nil {
		helpers.RespondError(c, "CreateAuctionHandler", err, map[string]any{"seller_id": req.SellerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToAuctionResponse(auction, 0), "auction listed successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction listed successfully", map[string]any{
		"auction_id":  auction.AuctionID,
		"seller_id":   auction.SellerID,
		"start_price": auction.StartPrice,
		"end_at":      auction.EndAt,
	})
}

func toListAuctionParams(req helpers.CreateAuctionRequest) (bidding.ListAuctionParams, error) {
	start, err := helpers.ParseAmount("start_price", req.StartPrice)
	if err != nil {
		return bidding.ListAuctionParams{}, err
	}
	hope, err := helpers.ParseAmount("hope_price", req.HopePrice)
	if err != nil {
		return bidding.ListAuctionParams{}, err
	}
	params := bidding.ListAuctionParams{
		SellerID:   req.SellerID,
		Title:      req.Title,
		StartPrice: start,
		HopePrice:  hope,
		Duration:   time.Duration(req.DurationMinutes) * time.Minute,
	}
	if req.ReservePrice != nil {
		reserve, err := helpers.ParseAmount("reserve_price", *req.ReservePrice)
		if err != nil {
			return bidding.ListAuctionParams{}, err
		}
		params.ReservePrice = &reserve
	}
	return params, nil
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	bidders, err := h.service.CountDistinctBidders(c.Request.Context(), auctionID)
	if err != nil {
		helpers.RespondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponse(auction, bidders), "auction retrieved successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	amount, err := helpers.ParseAmount("amount", req.Amount)
	if err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	result, err := h.service.PlaceBid(c.Request.Context(), auctionID, req.BidderID, amount)
	if err != nil {
		helpers.RespondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"amount":     amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, toPlaceBidResponse(result), "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":     result.Bid.BidID,
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
		"amount":     amount,
		"is_highest": result.IsHighest,
	})
}

// SetupAutoBidHandler handles POST /auctions/:auction_id/auto-bids
func (h *BiddingHandler) SetupAutoBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.SetupAutoBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetupAutoBidHandler", err)
		return
	}
	maxAmount, err := helpers.ParseAmount("max_amount", req.MaxAmount)
	if err != nil {
		helpers.HandleBindError(c, "SetupAutoBidHandler", err)
		return
	}

	result, err := h.service.SetupAutoBid(c.Request.Context(), auctionID, req.BidderID, maxAmount)
	if err != nil {
		helpers.RespondError(c, "SetupAutoBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  req.BidderID,
			"max_amount": maxAmount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, toPlaceBidResponse(result), "auto-bid registered successfully")
	helpers.LogSuccess("SetupAutoBidHandler", "auto-bid registered successfully", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  req.BidderID,
		"executions": len(result.Executions),
	})
}

// CancelAutoBidHandler handles DELETE /auctions/:auction_id/auto-bids/:bidder_id
func (h *BiddingHandler) CancelAutoBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bidderID := c.Param("bidder_id")
	if err := h.service.CancelAutoBid(c.Request.Context(), auctionID, bidderID); err != nil {
		helpers.RespondError(c, "CancelAutoBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"bidder_id":  bidderID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID, "bidder_id": bidderID}, "auto-bid cancelled")
	helpers.LogSuccess("CancelAutoBidHandler", "auto-bid cancelled", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil && !errors.Is(err, biddingerrors.ErrNoBids) {
		helpers.RespondError(c, "GetBidsByAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetHighestBid(c.Request.Context(), auctionID)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"auction_id": auctionID})
			return
		}
		helpers.RespondError(c, "GetWinningBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"bidder_id":  bid.BidderID,
		"amount":     bid.Amount,
	})
}

// GetAuctionsByUserHandler handles GET /users/:user_id/auctions
func (h *BiddingHandler) GetAuctionsByUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	auctions, err := h.service.GetAuctionsByBidder(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, biddingerrors.ErrUserNoBids) {
		helpers.RespondError(c, "GetAuctionsByUserHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionResponses(auctions), "auctions retrieved successfully")
	helpers.LogSuccess("GetAuctionsByUserHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        userID,
		"auctions_count": len(auctions),
	})
}

// LiveAuctionHandler handles GET /ws/auctions/:auction_id?user_id=
func (h *BiddingHandler) LiveAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	if h.feed == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, errors.New("realtime feed disabled"), "realtime feed disabled")
		return
	}
	if _, err := h.service.GetAuction(c.Request.Context(), auctionID); err != nil {
		helpers.RespondError(c, "LiveAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	h.feed.ServeWS(c.Writer, c.Request, auctionID, c.Query("user_id"))
}

func toPlaceBidResponse(result bidding.BidResult) helpers.PlaceBidResponse {
	return helpers.PlaceBidResponse{
		Bid:          helpers.ToBidResponse(result.Bid),
		IsHighest:    result.IsHighest,
		CurrentPrice: result.Auction.CurrentPrice,
		BidCount:     result.Auction.BidCount,
		MinimumBid:   pricing.MinimumNextBid(result.Auction.CurrentPrice),
		Executions:   helpers.ToBidResponses(result.Executions),
	}
}
