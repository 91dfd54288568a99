package validator

import (
	"errors"
	"testing"
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"

	"github.com/stretchr/testify/require"
)

func newActiveAuction(now time.Time) models.Auction {
	return models.NewAuction("auction1", "seller1", "camera", 100_000, 300_000, nil, time.Hour, now.Add(-time.Minute))
}

func TestValidateBid(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	active := newActiveAuction(now)

	withPrice := active
	withPrice.CurrentPrice = 100_000
	withPrice.BidCount = 1

	ended := active
	ended.Status = models.StatusEndedSold

	expired := active
	expired.EndAt = now.Add(-time.Second)

	tests := []struct {
		name        string
		auction     models.Auction
		bidderID    string
		amount      int64
		isFirstBid  bool
		expectedErr error
		minimum     int64
	}{
		{name: "first_bid_at_start_price", auction: active, bidderID: "user1", amount: 100_000, isFirstBid: true},
		{name: "not_hundred_unit", auction: active, bidderID: "user1", amount: 100_050, isFirstBid: true, expectedErr: biddingerrors.ErrInvalidAmount},
		{name: "not_hundred_unit_checked_before_status", auction: ended, bidderID: "user1", amount: 99, isFirstBid: true, expectedErr: biddingerrors.ErrInvalidAmount},
		{name: "not_active", auction: ended, bidderID: "user1", amount: 100_000, isFirstBid: true, expectedErr: biddingerrors.ErrNotActive},
		{name: "expired", auction: expired, bidderID: "user1", amount: 100_000, isFirstBid: true, expectedErr: biddingerrors.ErrAuctionExpired},
		{name: "self_bid", auction: active, bidderID: "seller1", amount: 100_000, isFirstBid: true, expectedErr: biddingerrors.ErrSelfBid},
		{name: "self_bid_any_amount", auction: withPrice, bidderID: "seller1", amount: 150_000, expectedErr: biddingerrors.ErrSelfBid},
		{name: "first_bid_below_start", auction: active, bidderID: "user1", amount: 90_000, isFirstBid: true, expectedErr: biddingerrors.ErrBelowMinimum, minimum: 100_000},
		{name: "subsequent_below_increment", auction: withPrice, bidderID: "user2", amount: 100_300, expectedErr: biddingerrors.ErrBelowMinimum, minimum: 101_000},
		{name: "subsequent_at_increment", auction: withPrice, bidderID: "user2", amount: 101_000},
		{name: "above_maximum", auction: withPrice, bidderID: "user2", amount: 400_100, expectedErr: biddingerrors.ErrAboveMaximum},
		{name: "at_maximum", auction: withPrice, bidderID: "user2", amount: 400_000},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateBid(tc.auction, tc.bidderID, tc.amount, tc.isFirstBid, now)
			if tc.expectedErr == nil {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expectedErr), "expected error: %v, got: %v", tc.expectedErr, err)
			require.True(t, errors.Is(err, biddingerrors.ErrValidationFailed))

			var vErr *biddingerrors.ValidationError
			require.True(t, errors.As(err, &vErr))
			require.Equal(t, tc.minimum, vErr.Minimum)
		})
	}
}

func TestValidateCeiling(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	auction := models.NewAuction("auction1", "seller1", "lamp", 10_000, 0, nil, time.Hour, now)

	require.NoError(t, ValidateCeiling(auction, "user1", 80_000, now))
	require.NoError(t, ValidateCeiling(auction, "user1", 11_000, now))

	err := ValidateCeiling(auction, "user1", 10_900, now)
	require.True(t, errors.Is(err, biddingerrors.ErrBelowMinimum))

	err = ValidateCeiling(auction, "seller1", 80_000, now)
	require.True(t, errors.Is(err, biddingerrors.ErrSelfBid))

	err = ValidateCeiling(auction, "user1", 80_050, now)
	require.True(t, errors.Is(err, biddingerrors.ErrInvalidAmount))
}
