package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionStore persists auction records
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction models.Auction) error
	FindAuctionByID(ctx context.Context, auctionID string) (models.Auction, error)
	// SaveAuction writes the auction if its Version still matches the stored one
	SaveAuction(ctx context.Context, auction models.Auction) (models.Auction, error)
	FindExpiredActiveAuctions(ctx context.Context, now time.Time) ([]models.Auction, error)
	FindActiveAuctionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Auction, error)
}

// BidLedger is the append-only bid store
type BidLedger interface {
	FindHighestBid(ctx context.Context, auctionID string) (models.Bid, error)
	FindBidsOrderedByAmountDesc(ctx context.Context, auctionID string) ([]models.Bid, error)
	FindActiveAutoBidSettings(ctx context.Context, auctionID string) ([]models.Bid, error)
	CountDistinctBidders(ctx context.Context, auctionID string) (int, error)
	GetAuctionsByBidder(ctx context.Context, bidderID string) ([]models.Auction, error)
	// CommitBids atomically applies a BidChange, see BidChange
	CommitBids(ctx context.Context, change BidChange) (models.Auction, error)
}

// UserDirectory resolves bidders and sellers
type UserDirectory interface {
	FindUserByID(ctx context.Context, userID string) (models.User, error)
}

// AuctionDB defines the storage interface for the auction system
type AuctionDB interface {
	AuctionStore
	BidLedger
	UserDirectory
}

// BidChange is one atomic unit of work against a single auction. Auction carries the
// mutated price and bid count, and its Version is the version the change was computed
// against; if the stored version differs nothing is written and
// ErrConcurrencyConflict is returned.
type BidChange struct {
	Auction      models.Auction
	NewBids      []models.Bid
	CancelBidIDs []string
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu           sync.RWMutex
	auctions     map[string]models.Auction // key: auctionID -> value: auction
	bids         map[string][]models.Bid   // key: auctionID -> value: ledger in insertion order
	users        map[string]models.User    // key: userID -> value: user
	userAuctions map[string][]string       // key: userID -> value: list of auctionIDs user has bid on
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:     make(map[string]models.Auction),
		bids:         make(map[string][]models.Bid),
		users:        make(map[string]models.User),
		userAuctions: make(map[string][]string),
	}
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: empty auction id")
	}
	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create auction %s: already exists", auction.AuctionID)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// FindAuctionByID returns the stored auction
func (r *MemoryRepo) FindAuctionByID(_ context.Context, auctionID string) (models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok {
		return models.Auction{}, fmt.Errorf("find auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return auction, nil
}

// SaveAuction writes the auction after a version check and bumps the version
func (r *MemoryRepo) SaveAuction(_ context.Context, auction models.Auction) (models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkVersionLocked(auction); err != nil {
		return models.Auction{}, fmt.Errorf("save auction %s: %w", auction.AuctionID, err)
	}

	auction.Version++
	r.auctions[auction.AuctionID] = auction
	return auction, nil
}

// FindExpiredActiveAuctions returns ACTIVE auctions whose end time is at or before now
func (r *MemoryRepo) FindExpiredActiveAuctions(_ context.Context, now time.Time) ([]models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []models.Auction
	for _, a := range r.auctions {
		if a.IsExpiredAt(now) {
			expired = append(expired, a)
		}
	}
	sortByEndAt(expired)
	return expired, nil
}

// FindActiveAuctionsEndingBetween returns ACTIVE auctions with from <= end_at <= to
func (r *MemoryRepo) FindActiveAuctionsEndingBetween(_ context.Context, from, to time.Time) ([]models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ending []models.Auction
	for _, a := range r.auctions {
		if a.Status == models.StatusActive && !a.EndAt.Before(from) && !a.EndAt.After(to) {
			ending = append(ending, a)
		}
	}
	sortByEndAt(ending)
	return ending, nil
}

// FindHighestBid returns the highest active priced bid for an auction
func (r *MemoryRepo) FindHighestBid(_ context.Context, auctionID string) (models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		highest models.Bid
		found   bool
	)
	for _, b := range r.bids[auctionID] {
		if b.IsSetting() || !b.IsActive() {
			continue
		}
		if !found || b.OutranksBid(highest) {
			highest = b
			found = true
		}
	}
	if !found {
		return models.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	return highest, nil
}

// FindBidsOrderedByAmountDesc returns priced bids, highest first; settings are excluded
func (r *MemoryRepo) FindBidsOrderedByAmountDesc(_ context.Context, auctionID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := make([]models.Bid, 0, len(r.bids[auctionID]))
	for _, b := range r.bids[auctionID] {
		if b.IsSetting() || !b.IsActive() {
			continue
		}
		bids = append(bids, b)
	}
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].OutranksBid(bids[j]) })
	return bids, nil
}

// FindActiveAutoBidSettings returns standing proxy settings, highest ceiling first,
// earliest setter first among equal ceilings
func (r *MemoryRepo) FindActiveAutoBidSettings(_ context.Context, auctionID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var settings []models.Bid
	for _, b := range r.bids[auctionID] {
		if b.IsSetting() && b.IsActive() {
			settings = append(settings, b)
		}
	}
	SortSettings(settings)
	return settings, nil
}

// CountDistinctBidders counts bidders with at least one priced bid
func (r *MemoryRepo) CountDistinctBidders(_ context.Context, auctionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, b := range r.bids[auctionID] {
		if b.IsSetting() {
			continue
		}
		seen[b.BidderID] = struct{}{}
	}
	return len(seen), nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, bidderID string) ([]models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs, ok := r.userAuctions[bidderID]
	if !ok || len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", bidderID, biddingerrors.ErrUserNoBids)
	}

	auctions := make([]models.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if a, exists := r.auctions[id]; exists {
			auctions = append(auctions, a)
		}
	}
	return auctions, nil
}

// CommitBids applies a BidChange under the write lock
func (r *MemoryRepo) CommitBids(_ context.Context, change BidChange) (models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	auction := change.Auction
	if err := r.checkVersionLocked(auction); err != nil {
		return models.Auction{}, fmt.Errorf("commit bids for auction %s: %w", auction.AuctionID, err)
	}

	ledger := r.bids[auction.AuctionID]
	cancelled := make(map[string]bool, len(change.CancelBidIDs))
	for _, id := range change.CancelBidIDs {
		cancelled[id] = true
	}

	// copy-on-write so a failed commit never leaves a partially cancelled ledger
	next := make([]models.Bid, 0, len(ledger)+len(change.NewBids))
	for _, b := range ledger {
		if cancelled[b.BidID] {
			b.Cancel()
			delete(cancelled, b.BidID)
		}
		next = append(next, b)
	}
	for id := range cancelled {
		return models.Auction{}, fmt.Errorf("commit bids for auction %s: cancel bid %s: %w", auction.AuctionID, id, biddingerrors.ErrAutoBidNotFound)
	}
	for _, b := range change.NewBids {
		if b.AuctionID != auction.AuctionID {
			return models.Auction{}, fmt.Errorf("commit bids for auction %s: bid %s belongs to auction %s", auction.AuctionID, b.BidID, b.AuctionID)
		}
		next = append(next, b)
	}

	auction.Version++
	r.auctions[auction.AuctionID] = auction
	r.bids[auction.AuctionID] = next
	for _, b := range change.NewBids {
		r.trackBidderLocked(b.BidderID, b.AuctionID)
	}
	return auction, nil
}

// FindUserByID returns a registered user
func (r *MemoryRepo) FindUserByID(_ context.Context, userID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, fmt.Errorf("find user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	return user, nil
}

// AddUser registers a user. Account management lives outside this service.
func (r *MemoryRepo) AddUser(user models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UserID] = user
}

// AddAuction stores an auction as-is. This method is intended for tests and seeding.
func (r *MemoryRepo) AddAuction(auction models.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction
}

func (r *MemoryRepo) checkVersionLocked(auction models.Auction) error {
	stored, ok := r.auctions[auction.AuctionID]
	if !ok {
		return biddingerrors.ErrAuctionNotFound
	}
	if stored.Version != auction.Version {
		return fmt.Errorf("%w - expected version %d, stored %d", biddingerrors.ErrConcurrencyConflict, auction.Version, stored.Version)
	}
	return nil
}

func (r *MemoryRepo) trackBidderLocked(bidderID, auctionID string) {
	for _, id := range r.userAuctions[bidderID] {
		if id == auctionID {
			return
		}
	}
	r.userAuctions[bidderID] = append(r.userAuctions[bidderID], auctionID)
}

// SortSettings orders auto-bid settings by ceiling desc, then by setting time
func SortSettings(settings []models.Bid) {
	sort.SliceStable(settings, func(i, j int) bool {
		if settings[i].Ceiling() != settings[j].Ceiling() {
			return settings[i].Ceiling() > settings[j].Ceiling()
		}
		return settings[i].SetBefore(settings[j])
	})
}

func sortByEndAt(auctions []models.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].EndAt.Equal(auctions[j].EndAt) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].EndAt.Before(auctions[j].EndAt)
	})
}
