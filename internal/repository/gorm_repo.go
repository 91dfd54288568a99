package repository

import (
	"context"
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
)

// auctionRecord is the persisted form of models.Auction
type auctionRecord struct {
	AuctionID       string  `gorm:"primaryKey;size:64"`
	SellerID        string  `gorm:"size:64;not null;index"`
	Title           string  `gorm:"size:255;not null"`
	StartPrice      int64   `gorm:"not null"`
	CurrentPrice    int64   `gorm:"not null"`
	HopePrice       int64   `gorm:"not null;default:0"`
	ReservePrice    *int64
	DurationSeconds int64     `gorm:"not null"`
	StartAt         time.Time `gorm:"not null"`
	EndAt           time.Time `gorm:"not null;index:idx_status_end,priority:2"`
	Status          string    `gorm:"size:16;not null;index:idx_status_end,priority:1"`
	BidCount        int       `gorm:"not null;default:0"`
	WinningBidderID *string   `gorm:"size:64"`
	FinalPrice      int64     `gorm:"not null;default:0"`
	Version         int64     `gorm:"not null;default:0"`
}

func (auctionRecord) TableName() string { return "auctions" }

// bidRecord is the persisted form of models.Bid
type bidRecord struct {
	BidID            string `gorm:"primaryKey;size:64"`
	AuctionID        string `gorm:"size:64;not null;index:idx_auction_amount,priority:1"`
	BidderID         string `gorm:"size:64;not null;index"`
	Amount           int64  `gorm:"not null;index:idx_auction_amount,priority:2"`
	IsAutoBid        bool   `gorm:"not null;default:false"`
	MaxAutoBidAmount *int64
	Status           string    `gorm:"size:16;not null"`
	CreatedAt        time.Time `gorm:"not null;precision:6;autoCreateTime:false"`
}

func (bidRecord) TableName() string { return "bids" }

type userRecord struct {
	UserID   string `gorm:"primaryKey;size:64"`
	Username string `gorm:"size:128;not null"`
}

func (userRecord) TableName() string { return "users" }

// MySQLOptions describes how to reach the relational store
type MySQLOptions struct {
	User     string
	Password string
	Addr     string
	Database string
	MaxOpen  int
	MaxIdle  int
	LogLevel string
}

// DSN renders the options as a go-sql-driver connection string
func (o MySQLOptions) DSN() string {
	cfg := driver.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = o.Addr
	cfg.DBName = o.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// GormRepo implements AuctionDB on a relational database through gorm
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo wraps an open gorm handle
func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// OpenMySQL connects to MySQL and applies pool limits
func OpenMySQL(opts MySQLOptions) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(opts.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(gormLogLevel(opts.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed on open mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed on get sql db")
	}
	if opts.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpen)
	}
	if opts.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdle)
	}
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}

// Migrate creates or updates the auctions, bids and users tables
func (r *GormRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&auctionRecord{}, &bidRecord{}, &userRecord{}); err != nil {
		return errors.Wrap(err, "failed on migrate")
	}
	return nil
}

// AddUser upserts a user
func (r *GormRepo) AddUser(ctx context.Context, user models.User) error {
	rec := userRecord{UserID: user.UserID, Username: user.Username}
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return errors.Wrap(err, "failed on save user")
	}
	return nil
}

// CreateAuction inserts a new auction
func (r *GormRepo) CreateAuction(ctx context.Context, auction models.Auction) error {
	rec := toAuctionRecord(auction)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return errors.Wrapf(err, "failed on create auction %s", auction.AuctionID)
	}
	return nil
}

// FindAuctionByID loads one auction
func (r *GormRepo) FindAuctionByID(ctx context.Context, auctionID string) (models.Auction, error) {
	return findAuction(r.db.WithContext(ctx), auctionID)
}

func findAuction(db *gorm.DB, auctionID string) (models.Auction, error) {
	var rec auctionRecord
	err := db.Where("auction_id = ?", auctionID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Auction{}, fmt.Errorf("find auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return models.Auction{}, errors.Wrapf(err, "failed on find auction %s", auctionID)
	}
	return rec.toModel(), nil
}

// SaveAuction writes the auction with an optimistic version check
func (r *GormRepo) SaveAuction(ctx context.Context, auction models.Auction) (models.Auction, error) {
	var saved models.Auction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = updateAuctionVersioned(tx, auction)
		return err
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("save auction %s: %w", auction.AuctionID, err)
	}
	return saved, nil
}

// updateAuctionVersioned issues UPDATE ... WHERE version = ? and reports a conflict
// when no row matched
func updateAuctionVersioned(tx *gorm.DB, auction models.Auction) (models.Auction, error) {
	rec := toAuctionRecord(auction)
	res := tx.Model(&auctionRecord{}).
		Where("auction_id = ? AND version = ?", auction.AuctionID, auction.Version).
		Updates(map[string]any{
			"current_price":     rec.CurrentPrice,
			"bid_count":         rec.BidCount,
			"status":            rec.Status,
			"winning_bidder_id": rec.WinningBidderID,
			"final_price":       rec.FinalPrice,
			"version":           auction.Version + 1,
		})
	if res.Error != nil {
		return models.Auction{}, errors.Wrap(res.Error, "failed on update auction")
	}
	if res.RowsAffected == 0 {
		stored, err := findAuction(tx, auction.AuctionID)
		if err != nil {
			return models.Auction{}, err
		}
		return models.Auction{}, fmt.Errorf("%w - expected version %d, stored %d", biddingerrors.ErrConcurrencyConflict, auction.Version, stored.Version)
	}
	auction.Version++
	return auction, nil
}

// FindExpiredActiveAuctions returns ACTIVE auctions with end_at <= now
func (r *GormRepo) FindExpiredActiveAuctions(ctx context.Context, now time.Time) ([]models.Auction, error) {
	var recs []auctionRecord
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", string(models.StatusActive), now).
		Order("end_at ASC, auction_id ASC").
		Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "failed on find expired auctions")
	}
	return toAuctionModels(recs), nil
}

// FindActiveAuctionsEndingBetween returns ACTIVE auctions with from <= end_at <= to
func (r *GormRepo) FindActiveAuctionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Auction, error) {
	var recs []auctionRecord
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_at >= ? AND end_at <= ?", string(models.StatusActive), from, to).
		Order("end_at ASC, auction_id ASC").
		Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "failed on find auctions ending soon")
	}
	return toAuctionModels(recs), nil
}

// pricedBids scopes a query to active bids with a real amount
func pricedBids(db *gorm.DB, auctionID string) *gorm.DB {
	return db.Model(&bidRecord{}).
		Where("auction_id = ? AND status = ? AND amount > 0", auctionID, string(models.BidActive))
}

// FindHighestBid returns the highest active priced bid
func (r *GormRepo) FindHighestBid(ctx context.Context, auctionID string) (models.Bid, error) {
	var rec bidRecord
	err := pricedBids(r.db.WithContext(ctx), auctionID).
		Order("amount DESC, created_at ASC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Bid{}, fmt.Errorf("get highest bid for auction %s: %w", auctionID, biddingerrors.ErrNoBids)
	}
	if err != nil {
		return models.Bid{}, errors.Wrapf(err, "failed on find highest bid for auction %s", auctionID)
	}
	return rec.toModel(), nil
}

// FindBidsOrderedByAmountDesc returns priced bids, highest first
func (r *GormRepo) FindBidsOrderedByAmountDesc(ctx context.Context, auctionID string) ([]models.Bid, error) {
	var recs []bidRecord
	if err := pricedBids(r.db.WithContext(ctx), auctionID).
		Order("amount DESC, created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed on list bids for auction %s", auctionID)
	}
	return toBidModels(recs), nil
}

// FindActiveAutoBidSettings returns standing proxy ceilings, strongest first
func (r *GormRepo) FindActiveAutoBidSettings(ctx context.Context, auctionID string) ([]models.Bid, error) {
	var recs []bidRecord
	if err := r.db.WithContext(ctx).
		Where("auction_id = ? AND status = ? AND is_auto_bid = ? AND amount = 0", auctionID, string(models.BidActive), true).
		Find(&recs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed on list auto-bids for auction %s", auctionID)
	}
	settings := toBidModels(recs)
	SortSettings(settings)
	return settings, nil
}

// CountDistinctBidders counts users holding at least one priced bid
func (r *GormRepo) CountDistinctBidders(ctx context.Context, auctionID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&bidRecord{}).
		Where("auction_id = ? AND amount > 0", auctionID).
		Distinct("bidder_id").
		Count(&count).Error; err != nil {
		return 0, errors.Wrapf(err, "failed on count bidders for auction %s", auctionID)
	}
	return int(count), nil
}

// GetAuctionsByBidder returns the auctions a user has placed priced bids on
func (r *GormRepo) GetAuctionsByBidder(ctx context.Context, bidderID string) ([]models.Auction, error) {
	db := r.db.WithContext(ctx)
	sub := db.Model(&bidRecord{}).Select("auction_id").Where("bidder_id = ?", bidderID)

	var recs []auctionRecord
	if err := db.Where("auction_id IN (?)", sub).Order("end_at ASC").Find(&recs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed on list auctions for user %s", bidderID)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", bidderID, biddingerrors.ErrUserNoBids)
	}
	return toAuctionModels(recs), nil
}

// CommitBids applies a BidChange in one transaction guarded by the auction version
func (r *GormRepo) CommitBids(ctx context.Context, change BidChange) (models.Auction, error) {
	var saved models.Auction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if saved, err = updateAuctionVersioned(tx, change.Auction); err != nil {
			return err
		}

		if len(change.CancelBidIDs) > 0 {
			res := tx.Model(&bidRecord{}).
				Where("auction_id = ? AND bid_id IN ? AND status = ?", change.Auction.AuctionID, change.CancelBidIDs, string(models.BidActive)).
				Update("status", string(models.BidCancelled))
			if res.Error != nil {
				return errors.Wrap(res.Error, "failed on cancel auto-bid")
			}
			if res.RowsAffected != int64(len(change.CancelBidIDs)) {
				return biddingerrors.ErrAutoBidNotFound
			}
		}

		if len(change.NewBids) == 0 {
			return nil
		}
		recs := make([]bidRecord, 0, len(change.NewBids))
		for _, b := range change.NewBids {
			if b.AuctionID != change.Auction.AuctionID {
				return fmt.Errorf("bid %s belongs to auction %s", b.BidID, b.AuctionID)
			}
			recs = append(recs, toBidRecord(b))
		}
		if err := tx.Create(&recs).Error; err != nil {
			return errors.Wrap(err, "failed on insert bids")
		}
		return nil
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("commit bids for auction %s: %w", change.Auction.AuctionID, err)
	}
	return saved, nil
}

// FindUserByID loads one user
func (r *GormRepo) FindUserByID(ctx context.Context, userID string) (models.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("find user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, errors.Wrapf(err, "failed on find user %s", userID)
	}
	return models.User{UserID: rec.UserID, Username: rec.Username}, nil
}

func toAuctionRecord(a models.Auction) auctionRecord {
	return auctionRecord{
		AuctionID:       a.AuctionID,
		SellerID:        a.SellerID,
		Title:           a.Title,
		StartPrice:      a.StartPrice,
		CurrentPrice:    a.CurrentPrice,
		HopePrice:       a.HopePrice,
		ReservePrice:    a.ReservePrice,
		DurationSeconds: int64(a.Duration / time.Second),
		StartAt:         a.StartAt.UTC(),
		EndAt:           a.EndAt.UTC(),
		Status:          string(a.Status),
		BidCount:        a.BidCount,
		WinningBidderID: a.WinningBidderID,
		FinalPrice:      a.FinalPrice,
		Version:         a.Version,
	}
}

func (r auctionRecord) toModel() models.Auction {
	return models.Auction{
		AuctionID:       r.AuctionID,
		SellerID:        r.SellerID,
		Title:           r.Title,
		StartPrice:      r.StartPrice,
		CurrentPrice:    r.CurrentPrice,
		HopePrice:       r.HopePrice,
		ReservePrice:    r.ReservePrice,
		Duration:        time.Duration(r.DurationSeconds) * time.Second,
		StartAt:         r.StartAt.UTC(),
		EndAt:           r.EndAt.UTC(),
		Status:          models.AuctionStatus(r.Status),
		BidCount:        r.BidCount,
		WinningBidderID: r.WinningBidderID,
		FinalPrice:      r.FinalPrice,
		Version:         r.Version,
	}
}

func toAuctionModels(recs []auctionRecord) []models.Auction {
	out := make([]models.Auction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out
}

func toBidRecord(b models.Bid) bidRecord {
	return bidRecord{
		BidID:            b.BidID,
		AuctionID:        b.AuctionID,
		BidderID:         b.BidderID,
		Amount:           b.Amount,
		IsAutoBid:        b.IsAutoBid,
		MaxAutoBidAmount: b.MaxAutoBidAmount,
		Status:           string(b.Status),
		CreatedAt:        b.CreatedAt.UTC(),
	}
}

func (r bidRecord) toModel() models.Bid {
	return models.Bid{
		BidID:            r.BidID,
		AuctionID:        r.AuctionID,
		BidderID:         r.BidderID,
		Amount:           r.Amount,
		IsAutoBid:        r.IsAutoBid,
		MaxAutoBidAmount: r.MaxAutoBidAmount,
		Status:           models.BidStatus(r.Status),
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func toBidModels(recs []bidRecord) []models.Bid {
	out := make([]models.Bid, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out
}
