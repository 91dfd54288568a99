package bidding

import (
	"time"

	"auction-engine/internal/models"
	"auction-engine/internal/pricing"
	"auction-engine/internal/repository"
	"auction-engine/utils"
)

// draft is the working copy of one auction while a bid operation is computed.
// Nothing reaches the store until the resulting BidChange is committed.
type draft struct {
	auction  models.Auction
	highest  *models.Bid
	settings []models.Bid
	newBids  []models.Bid
	cancel   []string
	now      time.Time
	seq      int

	// leaders tracks every bidder that held the lead during this operation
	leaders []string
}

func newDraft(auction models.Auction, now time.Time) *draft {
	return &draft{auction: auction, now: now}
}

func (d *draft) isFirstBid() bool {
	return d.highest == nil
}

// nextTimestamp hands out strictly increasing instants so ledger order survives a
// round trip through the store.
func (d *draft) nextTimestamp() time.Time {
	t := d.now.Add(time.Duration(d.seq) * time.Microsecond)
	d.seq++
	return t
}

// floor is the lowest legal amount for the next priced bid
func (d *draft) floor() int64 {
	if d.isFirstBid() {
		return d.auction.StartPrice
	}
	return pricing.MinimumNextBid(d.auction.CurrentPrice)
}

func (d *draft) place(bid models.Bid) error {
	if d.highest != nil && len(d.leaders) == 0 {
		d.leaders = append(d.leaders, d.highest.BidderID)
	}
	if err := d.auction.ApplyBid(bid.Amount); err != nil {
		return err
	}
	d.newBids = append(d.newBids, bid)
	d.highest = &bid
	d.leaders = append(d.leaders, bid.BidderID)
	return nil
}

// execute places a proxy bid for bidderID at the larger of desired and the floor,
// unless that would exceed the bidder's ceiling. It reports whether a bid was placed.
func (d *draft) execute(bidderID string, desired, ceiling int64) (bool, error) {
	amount := desired
	if f := d.floor(); amount < f {
		amount = f
	}
	if amount > ceiling {
		return false, nil
	}
	bid := models.NewExecutionBid(utils.GenerateID(), d.auction.AuctionID, bidderID, amount, ceiling, d.nextTimestamp())
	if err := d.place(bid); err != nil {
		return false, err
	}
	return true, nil
}

func (d *draft) settingOf(bidderID string) (models.Bid, bool) {
	for _, s := range d.settings {
		if s.BidderID == bidderID {
			return s, true
		}
	}
	return models.Bid{}, false
}

// replaceSetting cancels any standing setting of the same bidder and records the new one
func (d *draft) replaceSetting(setting models.Bid) {
	kept := d.settings[:0]
	for _, s := range d.settings {
		if s.BidderID == setting.BidderID {
			d.cancel = append(d.cancel, s.BidID)
			continue
		}
		kept = append(kept, s)
	}
	d.settings = append(kept, setting)
	repository.SortSettings(d.settings)
	d.newBids = append(d.newBids, setting)
}

// strongestRival returns the highest standing setting not owned by bidderID
func (d *draft) strongestRival(bidderID string) (models.Bid, bool) {
	for _, s := range d.settings {
		if s.BidderID != bidderID {
			return s, true
		}
	}
	return models.Bid{}, false
}

func (d *draft) executions() []models.Bid {
	var out []models.Bid
	for _, b := range d.newBids {
		if b.IsAutoBid && !b.IsSetting() {
			out = append(out, b)
		}
	}
	return out
}

// displacedLeaders returns bidders who led at some point and no longer do
func (d *draft) displacedLeaders() []string {
	if d.highest == nil {
		return nil
	}
	seen := map[string]bool{d.highest.BidderID: true}
	var out []string
	for _, id := range d.leaders {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (d *draft) change() repository.BidChange {
	return repository.BidChange{
		Auction:      d.auction,
		NewBids:      d.newBids,
		CancelBidIDs: d.cancel,
	}
}
