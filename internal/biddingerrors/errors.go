package biddingerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrAuctionNotFound     = errors.New("auction not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNoBids              = errors.New("no bids found for auction")
	ErrAutoBidNotFound     = errors.New("no active auto-bid for bidder")
	ErrUserNoBids          = errors.New("user has not placed any bids")
	ErrConcurrencyConflict = errors.New("auction was modified concurrently")
)

// business logic errors
var (
	ErrInvalidBid       = errors.New("invalid bid request")
	ErrInvalidListing   = errors.New("invalid auction listing")
	ErrValidationFailed = errors.New("bid validation failed")
	ErrInvalidAmount    = errors.New("bid amount must be a multiple of 100")
	ErrNotActive        = errors.New("auction is not active")
	ErrAuctionExpired   = errors.New("auction has ended")
	ErrSelfBid          = errors.New("cannot bid on own auction")
	ErrBelowMinimum     = errors.New("bid amount below minimum")
	ErrAboveMaximum     = errors.New("bid amount above maximum")
)

// domain invariant errors
var (
	ErrPriceRegression   = errors.New("price must not decrease")
	ErrInvalidTransition = errors.New("invalid auction status transition")
)

// settlement errors
var (
	ErrDownstreamResource = errors.New("downstream resource creation failed")
)

// ValidationError is a rejected bid with enough detail for the client to correct it
type ValidationError struct {
	Reason  error
	Minimum int64
	Maximum int64
}

// NewValidationError wraps one of the reason sentinels
func NewValidationError(reason error) *ValidationError {
	return &ValidationError{Reason: reason}
}

// WithMinimum records the lowest acceptable amount
func (e *ValidationError) WithMinimum(minimum int64) *ValidationError {
	e.Minimum = minimum
	return e
}

// WithMaximum records the highest acceptable amount
func (e *ValidationError) WithMaximum(maximum int64) *ValidationError {
	e.Maximum = maximum
	return e
}

func (e *ValidationError) Error() string {
	switch {
	case e.Minimum > 0:
		return fmt.Sprintf("%s: %s (minimum %d)", ErrValidationFailed, e.Reason, e.Minimum)
	case e.Maximum > 0:
		return fmt.Sprintf("%s: %s (maximum %d)", ErrValidationFailed, e.Reason, e.Maximum)
	default:
		return fmt.Sprintf("%s: %s", ErrValidationFailed, e.Reason)
	}
}

// Is matches ErrValidationFailed as well as the specific reason
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed || target == e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// IsRetryable reports whether the caller should re-fetch and resubmit
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
