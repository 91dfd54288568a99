package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/models"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func soldAuction(t *testing.T) (models.Auction, models.Bid) {
	t.Helper()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auction := models.NewAuction("auction1", "seller", "Camera", 10_000, 0, nil, time.Hour, start)
	bid := models.NewManualBid("bid1", "auction1", "winner", 12_000, start.Add(time.Minute))
	require.NoError(t, auction.EndSold(bid.BidderID, bid.Amount))
	return auction, bid
}

// Tests Dispatch
func TestDispatcher_Dispatch(t *testing.T) {
	auction, bid := soldAuction(t)
	downstreamErr := errors.New("service unavailable")

	tests := []struct {
		name         string
		mockSetup    func(tx *MockTransactionCreator, conn *MockConnectionCreator, chat *MockChatRoomCreator)
		wantFailures int
		wantTx       bool
		wantConn     string
		wantChat     string
	}{
		{
			name: "all_created",
			mockSetup: func(tx *MockTransactionCreator, conn *MockConnectionCreator, chat *MockChatRoomCreator) {
				tx.EXPECT().CreateTransactionFromAuction(gomock.Any(), auction, bid).Return(nil)
				conn.EXPECT().CreateConnection(gomock.Any(), "auction1", "winner").Return("conn1", nil)
				chat.EXPECT().CreateChatRoom(gomock.Any(), auction, "seller", "winner").Return("chat1", nil)
			},
			wantTx:   true,
			wantConn: "conn1",
			wantChat: "chat1",
		},
		{
			name: "transaction_fails_others_still_run",
			mockSetup: func(tx *MockTransactionCreator, conn *MockConnectionCreator, chat *MockChatRoomCreator) {
				tx.EXPECT().CreateTransactionFromAuction(gomock.Any(), auction, bid).Return(downstreamErr)
				conn.EXPECT().CreateConnection(gomock.Any(), "auction1", "winner").Return("conn1", nil)
				chat.EXPECT().CreateChatRoom(gomock.Any(), auction, "seller", "winner").Return("chat1", nil)
			},
			wantFailures: 1,
			wantConn:     "conn1",
			wantChat:     "chat1",
		},
		{
			name: "chat_panics_is_reported",
			mockSetup: func(tx *MockTransactionCreator, conn *MockConnectionCreator, chat *MockChatRoomCreator) {
				tx.EXPECT().CreateTransactionFromAuction(gomock.Any(), auction, bid).Return(nil)
				conn.EXPECT().CreateConnection(gomock.Any(), "auction1", "winner").Return("conn1", nil)
				chat.EXPECT().CreateChatRoom(gomock.Any(), auction, "seller", "winner").DoAndReturn(
					func(context.Context, models.Auction, string, string) (string, error) {
						panic("chat client not initialised")
					})
			},
			wantFailures: 1,
			wantTx:       true,
			wantConn:     "conn1",
		},
		{
			name: "everything_fails",
			mockSetup: func(tx *MockTransactionCreator, conn *MockConnectionCreator, chat *MockChatRoomCreator) {
				tx.EXPECT().CreateTransactionFromAuction(gomock.Any(), auction, bid).Return(downstreamErr)
				conn.EXPECT().CreateConnection(gomock.Any(), "auction1", "winner").Return("", downstreamErr)
				chat.EXPECT().CreateChatRoom(gomock.Any(), auction, "seller", "winner").Return("", downstreamErr)
			},
			wantFailures: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			tx := NewMockTransactionCreator(ctrl)
			conn := NewMockConnectionCreator(ctrl)
			chat := NewMockChatRoomCreator(ctrl)
			tt.mockSetup(tx, conn, chat)

			report := NewDispatcher(tx, conn, chat).Dispatch(context.Background(), auction, bid)

			require.Equal(t, "auction1", report.AuctionID)
			require.Len(t, report.Failures, tt.wantFailures)
			require.Equal(t, tt.wantFailures == 0, report.OK())
			require.Equal(t, tt.wantTx, report.Transaction)
			require.Equal(t, tt.wantConn, report.ConnectionID)
			require.Equal(t, tt.wantChat, report.ChatRoomID)
			for _, err := range report.Failures {
				require.ErrorIs(t, err, biddingerrors.ErrDownstreamResource)
			}
		})
	}
}

func TestResources_Idempotent(t *testing.T) {
	t.Parallel()
	auction, bid := soldAuction(t)
	ctx := context.Background()

	resources := NewResources()
	dispatcher := NewDispatcher(resources, resources, resources)

	first := dispatcher.Dispatch(ctx, auction, bid)
	second := dispatcher.Dispatch(ctx, auction, bid)
	require.True(t, first.OK())
	require.Equal(t, first.ConnectionID, second.ConnectionID)
	require.Equal(t, first.ChatRoomID, second.ChatRoomID)

	transactions, connections, chats := resources.Counts()
	require.Equal(t, 1, transactions)
	require.Equal(t, 1, connections)
	require.Equal(t, 1, chats)

	tx, ok := resources.Transaction("auction1")
	require.True(t, ok)
	require.Equal(t, "winner", tx.BuyerID)
	require.Equal(t, int64(12_000), tx.Amount)
}
