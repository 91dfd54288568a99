package pricing

// BidUnit is the smallest step every bid amount must be a multiple of
const BidUnit int64 = 100

// MinimumIncrement returns the smallest allowed step above currentPrice
func MinimumIncrement(currentPrice int64) int64 {
	switch {
	case currentPrice < 10_000:
		return 500
	case currentPrice < 1_000_000:
		return 1_000
	case currentPrice < 10_000_000:
		return 5_000
	default:
		return 10_000
	}
}

// MinimumNextBid is currentPrice plus its tier increment
func MinimumNextBid(currentPrice int64) int64 {
	return currentPrice + MinimumIncrement(currentPrice)
}

// MaximumAllowedBid caps a single bid relative to currentPrice
func MaximumAllowedBid(currentPrice int64) int64 {
	switch {
	case currentPrice < 10_000:
		return 50_000
	case currentPrice < 100_000:
		return currentPrice * 5
	case currentPrice < 1_000_000:
		return currentPrice * 4
	case currentPrice < 10_000_000:
		return currentPrice * 3
	default:
		return currentPrice * 2
	}
}

// IsHundredUnit reports whether amount is a whole multiple of BidUnit
func IsHundredUnit(amount int64) bool {
	return amount%BidUnit == 0
}
