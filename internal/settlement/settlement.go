package settlement

import (
	"context"
	"fmt"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"
	"auction-engine/utils"
)

//go:generate mockgen -source=settlement.go -destination=mock_settlement.go -package=settlement

// TransactionCreator opens the payment record for a sold auction
type TransactionCreator interface {
	CreateTransactionFromAuction(ctx context.Context, auction models.Auction, winningBid models.Bid) error
}

// ConnectionCreator links seller and winner for the hand-over
type ConnectionCreator interface {
	CreateConnection(ctx context.Context, auctionID, winnerID string) (string, error)
}

// ChatRoomCreator opens the conversation between seller and winner
type ChatRoomCreator interface {
	CreateChatRoom(ctx context.Context, auction models.Auction, sellerID, winnerID string) (string, error)
}

// Report lists what was created for one sold auction and what failed
type Report struct {
	AuctionID    string
	Transaction  bool
	ConnectionID string
	ChatRoomID   string
	Failures     []error
}

// OK reports whether every downstream resource was created
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Dispatcher creates the post-sale resources. Each collaborator is called
// independently; one failing never stops the others.
type Dispatcher struct {
	transactions TransactionCreator
	connections  ConnectionCreator
	chats        ChatRoomCreator
}

// NewDispatcher creates a new Dispatcher instance
func NewDispatcher(transactions TransactionCreator, connections ConnectionCreator, chats ChatRoomCreator) *Dispatcher {
	return &Dispatcher{transactions: transactions, connections: connections, chats: chats}
}

// Dispatch runs after the auction has been committed as ENDED_SOLD
func (d *Dispatcher) Dispatch(ctx context.Context, auction models.Auction, winningBid models.Bid) Report {
	report := Report{AuctionID: auction.AuctionID}

	if err := attempt(func() error {
		return d.transactions.CreateTransactionFromAuction(ctx, auction, winningBid)
	}); err != nil {
		report.Failures = append(report.Failures, d.failed(auction.AuctionID, "transaction", err))
	} else {
		report.Transaction = true
	}

	var connectionID string
	if err := attempt(func() (err error) {
		connectionID, err = d.connections.CreateConnection(ctx, auction.AuctionID, winningBid.BidderID)
		return err
	}); err != nil {
		report.Failures = append(report.Failures, d.failed(auction.AuctionID, "connection", err))
	} else {
		report.ConnectionID = connectionID
	}

	var chatRoomID string
	if err := attempt(func() (err error) {
		chatRoomID, err = d.chats.CreateChatRoom(ctx, auction, auction.SellerID, winningBid.BidderID)
		return err
	}); err != nil {
		report.Failures = append(report.Failures, d.failed(auction.AuctionID, "chat room", err))
	} else {
		report.ChatRoomID = chatRoomID
	}

	return report
}

// attempt runs one collaborator call, turning a panic into an error
func attempt(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	return call()
}

func (d *Dispatcher) failed(auctionID, resource string, err error) error {
	wrapped := fmt.Errorf("settlement: %w - %s for auction %s: %v", biddingerrors.ErrDownstreamResource, resource, auctionID, err)
	utils.Error("Dispatcher: resource creation failed", map[string]any{
		"auction_id": auctionID,
		"resource":   resource,
		"error":      err.Error(),
	})
	return wrapped
}
