package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/biddingerrors"
	model "auction-engine/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, router *gin.Engine, method, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func activeAuction(id string, now time.Time) model.Auction {
	return model.NewAuction(id, "seller", "lamp", 10_000, 20_000, nil, time.Hour, now)
}

// Test PlaceBidHandler
func TestPlaceBidHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions/:auction_id/bids", handler.PlaceBidHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		auctionID      string
		body           string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
		validate       func(t *testing.T, resp map[string]any)
	}{
		{
			name:      "success_numeric_amount",
			auctionID: "a-ok",
			body:      `{"bidder_id":"user1","amount":11000}`,
			mockSetup: func() {
				auction := activeAuction("a-ok", now)
				auction.CurrentPrice = 11_000
				auction.BidCount = 1
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-ok", "user1", int64(11_000)).
					Return(bidding.BidResult{
						Bid:       model.Bid{BidID: uuid.NewString(), AuctionID: "a-ok", BidderID: "user1", Amount: 11_000, CreatedAt: now},
						IsHighest: true,
						Auction:   auction,
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
			validate: func(t *testing.T, resp map[string]any) {
				data := resp["data"].(map[string]any)
				bid := data["bid"].(map[string]any)
				_, err := uuid.Parse(bid["bid_id"].(string))
				require.NoError(t, err)
				require.Equal(t, "user1", bid["bidder_id"])
				require.Equal(t, 11_000.0, bid["amount"])
				require.Equal(t, true, data["is_highest"])
				require.Equal(t, 12_000.0, data["minimum_bid"])
				require.Equal(t, 1.0, data["bid_count"])
			},
		},
		{
			name:      "success_string_amount",
			auctionID: "a-str",
			body:      `{"bidder_id":"user1","amount":"10000"}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-str", "user1", int64(10_000)).
					Return(bidding.BidResult{
						Bid:     model.Bid{BidID: uuid.NewString(), AuctionID: "a-str", BidderID: "user1", Amount: 10_000, CreatedAt: now},
						Auction: activeAuction("a-str", now),
					}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "bid placed successfully",
		},
		{
			name:           "invalid_json",
			auctionID:      "a-json",
			body:           `{invalid json}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "missing_bidder_id",
			auctionID:      "a-missing",
			body:           `{"amount":10000}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "fractional_amount",
			auctionID:      "a-frac",
			body:           `{"bidder_id":"user1","amount":10000.5}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:           "negative_amount",
			auctionID:      "a-neg",
			body:           `{"bidder_id":"user1","amount":-100}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name:      "below_minimum_reports_required_amount",
			auctionID: "a-low",
			body:      `{"bidder_id":"user1","amount":10000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-low", "user1", int64(10_000)).
					Return(bidding.BidResult{}, biddingerrors.NewValidationError(biddingerrors.ErrBelowMinimum).WithMinimum(12_000))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "bid amount too low",
			validate: func(t *testing.T, resp map[string]any) {
				require.Equal(t, 12_000.0, resp["minimum_bid"])
				require.Equal(t, false, resp["retryable"])
			},
		},
		{
			name:      "above_maximum_reports_limit",
			auctionID: "a-high",
			body:      `{"bidder_id":"user1","amount":90000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-high", "user1", int64(90_000)).
					Return(bidding.BidResult{}, biddingerrors.NewValidationError(biddingerrors.ErrAboveMaximum).WithMaximum(50_000))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "bid amount too high",
			validate: func(t *testing.T, resp map[string]any) {
				require.Equal(t, 50_000.0, resp["maximum_bid"])
			},
		},
		{
			name:      "not_hundred_unit",
			auctionID: "a-unit",
			body:      `{"bidder_id":"user1","amount":10050}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-unit", "user1", int64(10_050)).
					Return(bidding.BidResult{}, biddingerrors.NewValidationError(biddingerrors.ErrInvalidAmount))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid bid amount",
		},
		{
			name:      "seller_self_bid",
			auctionID: "a-self",
			body:      `{"bidder_id":"seller","amount":10000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-self", "seller", int64(10_000)).
					Return(bidding.BidResult{}, biddingerrors.NewValidationError(biddingerrors.ErrSelfBid))
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "sellers cannot bid",
		},
		{
			name:      "auction_closed",
			auctionID: "a-closed",
			body:      `{"bidder_id":"user1","amount":10000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-closed", "user1", int64(10_000)).
					Return(bidding.BidResult{}, biddingerrors.NewValidationError(biddingerrors.ErrNotActive))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedMsg:    "closed for bidding",
		},
		{
			name:      "concurrent_modification_is_retryable",
			auctionID: "a-race",
			body:      `{"bidder_id":"user1","amount":10000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-race", "user1", int64(10_000)).
					Return(bidding.BidResult{}, fmt.Errorf("service: %w - auction a-race", biddingerrors.ErrConcurrencyConflict))
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "retry with fresh state",
			validate: func(t *testing.T, resp map[string]any) {
				require.Equal(t, true, resp["retryable"])
			},
		},
		{
			name:      "auction_not_found",
			auctionID: "a-missing-auction",
			body:      `{"bidder_id":"user1","amount":10000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-missing-auction", "user1", int64(10_000)).
					Return(bidding.BidResult{}, biddingerrors.ErrAuctionNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "auction not found",
		},
		{
			name:      "service_generic_error",
			auctionID: "a-db",
			body:      `{"bidder_id":"user1","amount":10000}`,
			mockSetup: func() {
				mockService.EXPECT().
					PlaceBid(gomock.Any(), "a-db", "user1", int64(10_000)).
					Return(bidding.BidResult{}, errors.New("database failure"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "internal server error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.mockSetup()

			status, resp := performRequest(t, router, http.MethodPost, "/auctions/"+tc.auctionID+"/bids", tc.body)
			require.Equal(t, tc.expectedStatus, status)
			require.Contains(t, resp["message"], tc.expectedMsg)
			if tc.validate != nil {
				tc.validate(t, resp)
			}
		})
	}
}

// Test SetupAutoBidHandler and CancelAutoBidHandler
func TestAutoBidHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions/:auction_id/auto-bids", handler.SetupAutoBidHandler)
	router.DELETE("/auctions/:auction_id/auto-bids/:bidder_id", handler.CancelAutoBidHandler)

	now := time.Now().UTC()

	t.Run("setup_returns_executions", func(t *testing.T) {
		auction := activeAuction("auto1", now)
		auction.CurrentPrice = 51_000
		auction.BidCount = 3
		mockService.EXPECT().
			SetupAutoBid(gomock.Any(), "auto1", "b", int64(80_000)).
			Return(bidding.BidResult{
				Bid:       model.Bid{BidID: "setting", AuctionID: "auto1", BidderID: "b", IsAutoBid: true, CreatedAt: now},
				IsHighest: true,
				Auction:   auction,
				Executions: []model.Bid{
					{BidID: "x1", AuctionID: "auto1", BidderID: "a", Amount: 50_000, IsAutoBid: true, CreatedAt: now},
					{BidID: "x2", AuctionID: "auto1", BidderID: "b", Amount: 51_000, IsAutoBid: true, CreatedAt: now},
				},
			}, nil)

		status, resp := performRequest(t, router, http.MethodPost, "/auctions/auto1/auto-bids", `{"bidder_id":"b","max_amount":80000}`)
		require.Equal(t, http.StatusCreated, status)
		data := resp["data"].(map[string]any)
		require.Equal(t, 51_000.0, data["current_price"])
		execs := data["executions"].([]any)
		require.Len(t, execs, 2)
		require.Equal(t, "b", execs[1].(map[string]any)["bidder_id"])

		setting := data["bid"].(map[string]any)
		_, leaked := setting["max_amount"]
		require.False(t, leaked, "ceiling must not be exposed")
	})

	t.Run("setup_below_minimum", func(t *testing.T) {
		mockService.EXPECT().
			SetupAutoBid(gomock.Any(), "auto2", "b", int64(10_000)).
			Return(bidding.BidResult{}, biddingerrors.NewValidationError(biddingerrors.ErrBelowMinimum).WithMinimum(52_000))

		status, resp := performRequest(t, router, http.MethodPost, "/auctions/auto2/auto-bids", `{"bidder_id":"b","max_amount":10000}`)
		require.Equal(t, http.StatusUnprocessableEntity, status)
		require.Equal(t, 52_000.0, resp["minimum_bid"])
	})

	t.Run("setup_missing_ceiling", func(t *testing.T) {
		status, _ := performRequest(t, router, http.MethodPost, "/auctions/auto3/auto-bids", `{"bidder_id":"b"}`)
		require.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("cancel", func(t *testing.T) {
		mockService.EXPECT().CancelAutoBid(gomock.Any(), "auto1", "b").Return(nil)

		status, resp := performRequest(t, router, http.MethodDelete, "/auctions/auto1/auto-bids/b", "")
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "auto-bid cancelled", resp["message"])
	})

	t.Run("cancel_without_setting", func(t *testing.T) {
		mockService.EXPECT().CancelAutoBid(gomock.Any(), "auto1", "c").Return(biddingerrors.ErrAutoBidNotFound)

		status, resp := performRequest(t, router, http.MethodDelete, "/auctions/auto1/auto-bids/c", "")
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "no active auto-bid", resp["message"])
	})
}

// Test CreateAuctionHandler
func TestCreateAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auctions", handler.CreateAuctionHandler)

	now := time.Now().UTC()

	tests := []struct {
		name           string
		body           string
		mockSetup      func()
		expectedStatus int
	}{
		{
			name: "success_with_reserve",
			body: `{"seller_id":"s1","title":"lamp","start_price":10000,"hope_price":30000,"reserve_price":"20000","duration_minutes":60}`,
			mockSetup: func() {
				reserve := int64(20_000)
				mockService.EXPECT().
					ListAuction(gomock.Any(), bidding.ListAuctionParams{
						SellerID: "s1", Title: "lamp", StartPrice: 10_000, HopePrice: 30_000,
						ReservePrice: &reserve, Duration: time.Hour,
					}).
					Return(model.NewAuction("new1", "s1", "lamp", 10_000, 30_000, &reserve, time.Hour, now), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing_duration",
			body:           `{"seller_id":"s2","title":"lamp","start_price":10000,"hope_price":30000}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "fractional_reserve",
			body:           `{"seller_id":"s3","title":"lamp","start_price":10000,"hope_price":30000,"reserve_price":1.5,"duration_minutes":60}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "service_rejects_listing",
			body: `{"seller_id":"s4","title":"lamp","start_price":10050,"hope_price":30000,"duration_minutes":60}`,
			mockSetup: func() {
				mockService.EXPECT().
					ListAuction(gomock.Any(), gomock.Any()).
					Return(model.Auction{}, fmt.Errorf("service: %w - start price", biddingerrors.ErrInvalidListing))
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			status, resp := performRequest(t, router, http.MethodPost, "/auctions", tc.body)
			require.Equal(t, tc.expectedStatus, status)
			if status == http.StatusCreated {
				data := resp["data"].(map[string]any)
				require.Equal(t, "new1", data["auction_id"])
				require.Equal(t, "ACTIVE", data["status"])
				require.Equal(t, 10_000.0, data["minimum_bid"])
			}
		})
	}
}

// Test query handlers
func TestQueryHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	handler := NewBiddingHandler(mockService, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/:auction_id", handler.GetAuctionHandler)
	router.GET("/auctions/:auction_id/bids", handler.GetBidsByAuctionHandler)
	router.GET("/auctions/:auction_id/winning", handler.GetWinningBidHandler)
	router.GET("/users/:user_id/auctions", handler.GetAuctionsByUserHandler)

	now := time.Now().UTC()

	t.Run("auction_with_bidder_count", func(t *testing.T) {
		t.Parallel()
		auction := activeAuction("q1", now)
		auction.CurrentPrice = 30_000
		auction.BidCount = 4
		mockService.EXPECT().GetAuction(gomock.Any(), "q1").Return(auction, nil)
		mockService.EXPECT().CountDistinctBidders(gomock.Any(), "q1").Return(2, nil)

		status, resp := performRequest(t, router, http.MethodGet, "/auctions/q1", "")
		require.Equal(t, http.StatusOK, status)
		data := resp["data"].(map[string]any)
		require.Equal(t, 2.0, data["bidder_count"])
		require.Equal(t, 31_000.0, data["minimum_bid"])
	})

	t.Run("auction_not_found", func(t *testing.T) {
		t.Parallel()
		mockService.EXPECT().GetAuction(gomock.Any(), "q404").Return(model.Auction{}, biddingerrors.ErrAuctionNotFound)

		status, _ := performRequest(t, router, http.MethodGet, "/auctions/q404", "")
		require.Equal(t, http.StatusNotFound, status)
	})

	t.Run("bids_no_bids_is_empty_list", func(t *testing.T) {
		t.Parallel()
		mockService.EXPECT().GetBidsForAuction(gomock.Any(), "q2").Return(nil, biddingerrors.ErrNoBids)

		status, resp := performRequest(t, router, http.MethodGet, "/auctions/q2/bids", "")
		require.Equal(t, http.StatusOK, status)
		require.Len(t, resp["data"].([]any), 0)
	})

	t.Run("bids_large_list", func(t *testing.T) {
		t.Parallel()
		bids := make([]model.Bid, 1000)
		for i := range bids {
			bids[i] = model.Bid{
				BidID:     uuid.NewString(),
				AuctionID: "q3",
				BidderID:  fmt.Sprintf("user%d", i),
				Amount:    int64(1000-i) * 100,
				CreatedAt: now,
			}
		}
		mockService.EXPECT().GetBidsForAuction(gomock.Any(), "q3").Return(bids, nil)

		status, resp := performRequest(t, router, http.MethodGet, "/auctions/q3/bids", "")
		require.Equal(t, http.StatusOK, status)
		require.Len(t, resp["data"].([]any), 1000)
	})

	t.Run("winning_bid", func(t *testing.T) {
		t.Parallel()
		mockService.EXPECT().GetHighestBid(gomock.Any(), "q4").
			Return(model.Bid{BidID: "w", AuctionID: "q4", BidderID: "user2", Amount: 40_000, CreatedAt: now}, nil)

		status, resp := performRequest(t, router, http.MethodGet, "/auctions/q4/winning", "")
		require.Equal(t, http.StatusOK, status)
		data := resp["data"].(map[string]any)
		require.Equal(t, "user2", data["bidder_id"])
	})

	t.Run("winning_bid_none", func(t *testing.T) {
		t.Parallel()
		mockService.EXPECT().GetHighestBid(gomock.Any(), "q5").Return(model.Bid{}, biddingerrors.ErrNoBids)

		status, resp := performRequest(t, router, http.MethodGet, "/auctions/q5/winning", "")
		require.Equal(t, http.StatusNotFound, status)
		require.Equal(t, "no winning bid found", resp["message"])
	})

	t.Run("auctions_by_user", func(t *testing.T) {
		t.Parallel()
		mockService.EXPECT().GetAuctionsByBidder(gomock.Any(), "user1").
			Return([]model.Auction{activeAuction("q6", now), activeAuction("q7", now)}, nil)

		status, resp := performRequest(t, router, http.MethodGet, "/users/user1/auctions", "")
		require.Equal(t, http.StatusOK, status)
		require.Len(t, resp["data"].([]any), 2)
	})

	t.Run("auctions_by_user_none", func(t *testing.T) {
		t.Parallel()
		mockService.EXPECT().GetAuctionsByBidder(gomock.Any(), "user9").Return(nil, biddingerrors.ErrUserNoBids)

		status, resp := performRequest(t, router, http.MethodGet, "/users/user9/auctions", "")
		require.Equal(t, http.StatusOK, status)
		require.Len(t, resp["data"].([]any), 0)
	})
}

func TestLiveAuctionHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockBiddingServiceInterface(ctrl)
	feed := NewMockLiveFeed(ctrl)
	handler := NewBiddingHandler(mockService, feed)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/auctions/:auction_id", handler.LiveAuctionHandler)

	mockService.EXPECT().GetAuction(gomock.Any(), "live1").Return(activeAuction("live1", time.Now()), nil)
	feed.EXPECT().ServeWS(gomock.Any(), gomock.Any(), "live1", "user1").
		Do(func(w http.ResponseWriter, _ *http.Request, _, _ string) {
			w.WriteHeader(http.StatusAccepted)
		})

	req := httptest.NewRequest(http.MethodGet, "/ws/auctions/live1?user_id=user1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	mockService.EXPECT().GetAuction(gomock.Any(), "gone").Return(model.Auction{}, biddingerrors.ErrAuctionNotFound)
	req = httptest.NewRequest(http.MethodGet, "/ws/auctions/gone", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
