package settlement

import (
	"context"
	"sync"

	"auction-engine/internal/models"
	"auction-engine/utils"
)

// Transaction is the payment record opened for a sold auction
type Transaction struct {
	AuctionID string `json:"auction_id"`
	SellerID  string `json:"seller_id"`
	BuyerID   string `json:"buyer_id"`
	BidID     string `json:"bid_id"`
	Amount    int64  `json:"amount"`
}

// Resources is an in-memory implementation of every collaborator. Creation is
// keyed by auction, so repeated calls return the existing resource.
type Resources struct {
	mu           sync.Mutex
	transactions map[string]Transaction // key: auctionID
	connections  map[string]string      // key: auctionID -> value: connectionID
	chatRooms    map[string]string      // key: auctionID -> value: chatRoomID
}

// NewResources creates an empty resource store
func NewResources() *Resources {
	return &Resources{
		transactions: make(map[string]Transaction),
		connections:  make(map[string]string),
		chatRooms:    make(map[string]string),
	}
}

// CreateTransactionFromAuction records the sale
func (r *Resources) CreateTransactionFromAuction(_ context.Context, auction models.Auction, winningBid models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[auction.AuctionID]; exists {
		return nil
	}
	r.transactions[auction.AuctionID] = Transaction{
		AuctionID: auction.AuctionID,
		SellerID:  auction.SellerID,
		BuyerID:   winningBid.BidderID,
		BidID:     winningBid.BidID,
		Amount:    winningBid.Amount,
	}
	return nil
}

// CreateConnection returns the connection for the auction, creating it once
func (r *Resources) CreateConnection(_ context.Context, auctionID, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.connections[auctionID]; exists {
		return id, nil
	}
	id := utils.GenerateID()
	r.connections[auctionID] = id
	return id, nil
}

// CreateChatRoom returns the chat room for the auction, creating it once
func (r *Resources) CreateChatRoom(_ context.Context, auction models.Auction, _, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.chatRooms[auction.AuctionID]; exists {
		return id, nil
	}
	id := utils.GenerateID()
	r.chatRooms[auction.AuctionID] = id
	return id, nil
}

// Transaction returns the recorded sale for an auction
func (r *Resources) Transaction(auctionID string) (Transaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[auctionID]
	return tx, ok
}

// Counts returns how many transactions, connections and chat rooms exist
func (r *Resources) Counts() (transactions, connections, chatRooms int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transactions), len(r.connections), len(r.chatRooms)
}
