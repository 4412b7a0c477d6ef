package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedListing(t *testing.T, s *Store, id string, public bool, end time.Time) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateListing(context.Background(), &domain.Listing{
		ID: id, AuthorID: "user-author", Title: id, Public: public,
		InitialPrice: decimal.New(100, 0), DurationDays: 7,
		CreationTime: now, EndTime: end,
	}))
}

func TestHighestBid_TieBreaksOnEarliestCreation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	seedListing(t, s, "listing-1", true, now.Add(24*time.Hour))

	value := decimal.New(200, 0)
	require.NoError(t, s.InsertBid(ctx, &domain.Bid{
		ID: "bid-late", ListingID: "listing-1", UserID: "user-late",
		Value: value, CreationTime: now,
	}))
	require.NoError(t, s.InsertBid(ctx, &domain.Bid{
		ID: "bid-early", ListingID: "listing-1", UserID: "user-early",
		Value: value, CreationTime: now.Add(-time.Minute),
	}))

	highest, err := s.HighestBid(ctx, "listing-1")
	require.NoError(t, err)
	require.Equal(t, "bid-early", highest.ID, "equal values resolve to the earliest bid")
}

func TestHighestBid_NoBids(t *testing.T) {
	s := NewStore()
	seedListing(t, s, "listing-1", true, time.Now().UTC().Add(24*time.Hour))

	_, err := s.HighestBid(context.Background(), "listing-1")
	require.ErrorIs(t, err, domain.ErrNoBids)
}

func TestListBids_OrderedByValueDescending(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()
	seedListing(t, s, "listing-1", true, now.Add(24*time.Hour))

	for i, v := range []int64{150, 300, 200} {
		require.NoError(t, s.InsertBid(ctx, &domain.Bid{
			ID: string(rune('a' + i)), ListingID: "listing-1", UserID: "user",
			Value: decimal.New(v, 0), CreationTime: now.Add(time.Duration(i) * time.Second),
		}))
	}

	bids, err := s.ListBids(ctx, "listing-1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.True(t, bids[0].Value.GreaterThan(bids[1].Value))
	require.True(t, bids[1].Value.GreaterThan(bids[2].Value))
}

func TestInsertBid_UnknownListing(t *testing.T) {
	s := NewStore()

	err := s.InsertBid(context.Background(), &domain.Bid{
		ID: "bid-1", ListingID: "listing-missing", UserID: "user",
		Value: decimal.New(100, 0), CreationTime: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActiveListings_Visibility(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	seedListing(t, s, "listing-public", true, now.Add(24*time.Hour))
	seedListing(t, s, "listing-private", false, now.Add(24*time.Hour))
	seedListing(t, s, "listing-finished", true, now.Add(-time.Hour))

	listings, err := s.ActiveListings(ctx, "")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "listing-public", listings[0].ID)

	// The author sees all of their own listings.
	listings, err = s.ActiveListings(ctx, "user-author")
	require.NoError(t, err)
	require.Len(t, listings, 3)
}

func TestWithListing_SerializesPerListing(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var inSection, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.WithListing(ctx, "listing-1", func(ctx context.Context) error {
				mu.Lock()
				inSection++
				if inSection > max {
					max = inSection
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inSection--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 1, max, "at most one caller inside the listing's critical section")
}

func TestToggleWatch(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedListing(t, s, "listing-1", true, time.Now().UTC().Add(24*time.Hour))

	watching, err := s.ToggleWatch(ctx, "user-a", "listing-1")
	require.NoError(t, err)
	require.True(t, watching)

	ids, err := s.WatchedListingIDs(ctx, "user-a")
	require.NoError(t, err)
	require.Equal(t, []string{"listing-1"}, ids)

	watching, err = s.ToggleWatch(ctx, "user-a", "listing-1")
	require.NoError(t, err)
	require.False(t, watching)

	ids, err = s.WatchedListingIDs(ctx, "user-a")
	require.NoError(t, err)
	require.Empty(t, ids)
}
