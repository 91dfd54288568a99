package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinimumIncrement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price int64
		want  int64
	}{
		{name: "zero", price: 0, want: 500},
		{name: "just_below_10k", price: 9_999, want: 500},
		{name: "at_10k", price: 10_000, want: 1_000},
		{name: "just_below_1m", price: 999_999, want: 1_000},
		{name: "at_1m", price: 1_000_000, want: 5_000},
		{name: "just_below_10m", price: 9_999_999, want: 5_000},
		{name: "at_10m", price: 10_000_000, want: 10_000},
		{name: "huge", price: 5_000_000_000, want: 10_000},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, MinimumIncrement(tc.price))
		})
	}
}

func TestMaximumAllowedBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		price int64
		want  int64
	}{
		{name: "fixed_below_10k", price: 5_000, want: 50_000},
		{name: "just_below_10k", price: 9_999, want: 50_000},
		{name: "times_five_at_10k", price: 10_000, want: 50_000},
		{name: "times_five", price: 99_000, want: 495_000},
		{name: "times_four_at_100k", price: 100_000, want: 400_000},
		{name: "times_three_at_1m", price: 1_000_000, want: 3_000_000},
		{name: "times_two_at_10m", price: 10_000_000, want: 20_000_000},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, MaximumAllowedBid(tc.price))
		})
	}
}

func TestIsHundredUnit(t *testing.T) {
	t.Parallel()

	require.True(t, IsHundredUnit(0))
	require.True(t, IsHundredUnit(100))
	require.True(t, IsHundredUnit(101_000))
	require.False(t, IsHundredUnit(150))
	require.False(t, IsHundredUnit(100_301))
}

func TestMinimumNextBid(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(101_000), MinimumNextBid(100_000))
	require.Equal(t, int64(10_000), MinimumNextBid(9_500))
}
