package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPlaceBid_Rejections(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	open := env.createListing(t, "user-author", "100.00", 7)
	env.seedBid(t, open.ID, "user-first", "150.00", now)

	closedManually := env.seedListing(t, &domain.Listing{
		AuthorID: "user-author", Title: "Closed", Public: true, EndedManually: true,
		InitialPrice: dec("100.00"), DurationDays: 7,
		CreationTime: now, EndTime: now.Add(7 * 24 * time.Hour),
	})
	expired := env.seedListing(t, &domain.Listing{
		AuthorID: "user-author", Title: "Expired", Public: true,
		InitialPrice: dec("100.00"), DurationDays: 3,
		CreationTime: now.Add(-4 * 24 * time.Hour), EndTime: now.Add(-24 * time.Hour),
	})

	tests := []struct {
		name      string
		listingID string
		userID    string
		value     string
		wantErr   error
	}{
		{"missing_user", open.ID, "", "200.00", domain.ErrValidation},
		{"zero_value", open.ID, "user-b", "0", domain.ErrValidation},
		{"negative_value", open.ID, "user-b", "-10.00", domain.ErrValidation},
		{"unknown_listing", "listing-missing", "user-b", "200.00", domain.ErrNotFound},
		{"author_self_bid", open.ID, "user-author", "200.00", domain.ErrPermissionDenied},
		{"closed_manually", closedManually.ID, "user-b", "200.00", domain.ErrAuctionClosed},
		{"past_deadline", expired.ID, "user-b", "200.00", domain.ErrAuctionClosed},
		{"below_initial_price", open.ID, "user-b", "50.00", domain.ErrBidTooLow},
		{"equal_to_initial_price", open.ID, "user-b", "100.00", domain.ErrBidTooLow},
		{"below_current_highest", open.ID, "user-b", "140.00", domain.ErrBidTooLow},
		{"equal_to_current_highest", open.ID, "user-b", "150.00", domain.ErrBidTooLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.bids.PlaceBid(context.Background(), tc.listingID, tc.userID, dec(tc.value))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPlaceBid_FirstBidMustExceedInitialPrice(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, "user-author", "100.00", 7)

	_, err := env.bids.PlaceBid(context.Background(), listing.ID, "user-a", dec("50.00"))
	require.ErrorIs(t, err, domain.ErrBidTooLow)

	bid, err := env.bids.PlaceBid(context.Background(), listing.ID, "user-a", dec("150.00"))
	require.NoError(t, err)
	require.True(t, bid.Value.Equal(dec("150.00")))

	current, err := env.listings.CurrentBid(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, current.Value.Equal(dec("150.00")))
	require.Equal(t, "user-a", current.UserID)
}

func TestPlaceBid_CurrentBidMonotone(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, "user-author", "100.00", 7)
	ctx := context.Background()

	values := []string{"101.00", "120.00", "120.50", "300.00"}
	for i, v := range values {
		userID := fmt.Sprintf("user-%d", i)
		_, err := env.bids.PlaceBid(ctx, listing.ID, userID, dec(v))
		require.NoError(t, err)

		current, err := env.listings.CurrentBid(ctx, listing.ID)
		require.NoError(t, err)
		require.True(t, current.Value.Equal(dec(v)), "current bid must follow the latest admission")
	}
}

func TestPlaceBid_ReportsMinimumAcceptableValue(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, "user-author", "100.00", 7)
	env.seedBid(t, listing.ID, "user-a", "150.00", time.Now().UTC())

	_, err := env.bids.PlaceBid(context.Background(), listing.ID, "user-b", dec("140.00"))
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.Contains(t, err.Error(), "150.00")
}

func TestPlaceBid_ConcurrentAdmissionsSerialize(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, "user-author", "100.00", 7)
	ctx := context.Background()

	const bidders = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := make(map[string]*domain.Bid)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			value := decimal.NewFromInt(int64(101 + i))
			bid, err := env.bids.PlaceBid(ctx, listing.ID, userID, value)
			if err != nil {
				return
			}
			mu.Lock()
			admitted[userID] = bid
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// The top value always clears every admission check, so it must win.
	current, err := env.listings.CurrentBid(ctx, listing.ID)
	require.NoError(t, err)
	require.True(t, current.Value.Equal(decimal.NewFromInt(100+bidders)))

	// Replaying admitted bids in commit order must show strictly
	// increasing values: no bid was admitted against a stale highest.
	bids := make([]*domain.Bid, 0, len(admitted))
	for _, b := range admitted {
		bids = append(bids, b)
	}
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].CreationTime.Equal(bids[j].CreationTime) {
			return bids[i].CreationTime.Before(bids[j].CreationTime)
		}
		return bids[i].Value.LessThan(bids[j].Value)
	})
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Value.GreaterThan(bids[i-1].Value),
			"bid %s admitted without exceeding the previous highest %s",
			bids[i].Value, bids[i-1].Value)
	}
}

func TestPlaceBid_EmitsBidPlacedEvent(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, "user-author", "100.00", 7)

	_, err := env.bids.PlaceBid(context.Background(), listing.ID, "user-a", dec("150.00"))
	require.NoError(t, err)

	kinds := env.events.kinds()
	require.Equal(t, domain.EventBidPlaced, kinds[len(kinds)-1])
}

func TestPlaceBid_RejectionEmitsNothing(t *testing.T) {
	env := newTestEnv(t)
	listing := env.createListing(t, "user-author", "100.00", 7)
	before := len(env.events.kinds())

	_, err := env.bids.PlaceBid(context.Background(), listing.ID, "user-a", dec("50.00"))
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.Len(t, env.events.kinds(), before)
}
