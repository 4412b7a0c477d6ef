package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/infrastructure/memory"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type testEnv struct {
	store      *memory.Store
	events     *recordingPublisher
	listings   *ListingService
	bids       *BidService
	closing    *ClosingService
	engagement *EngagementService
	scheduler  *CronCloseScheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	events := &recordingPublisher{}
	log := logger.NewNop()

	closing := NewClosingService(store, store, store, events, log)
	scheduler := NewCronCloseScheduler(store, closing, nil, "test-instance", time.Minute, log)
	closing.SetScheduler(scheduler)

	env := &testEnv{
		store:      store,
		events:     events,
		listings:   NewListingService(store, store, store, scheduler, events, log),
		bids:       NewBidService(store, store, store, events, log),
		closing:    closing,
		engagement: NewEngagementService(store, store, store, events, log),
		scheduler:  scheduler,
	}

	require.NoError(t, store.CreateCategory(context.Background(), &domain.Category{
		ID:   "category-electronics",
		Name: "electronics",
	}))
	return env
}

func (e *testEnv) createListing(t *testing.T, authorID string, price string, days int) *domain.Listing {
	t.Helper()
	listing, err := e.listings.CreateListing(context.Background(), authorID, CreateListingInput{
		Title:        "Vintage synthesizer",
		Description:  "Analog, lightly used",
		InitialPrice: dec(price),
		CategoryName: "electronics",
		DurationDays: days,
		Public:       true,
	})
	require.NoError(t, err)
	return listing
}

// seedListing inserts a listing directly into the store, bypassing the
// service, so tests can craft deadlines in the past.
func (e *testEnv) seedListing(t *testing.T, listing *domain.Listing) *domain.Listing {
	t.Helper()
	if listing.ID == "" {
		listing.ID = utils.GenerateID("listing")
	}
	if listing.CategoryID == "" {
		listing.CategoryID = "category-electronics"
	}
	require.NoError(t, e.store.CreateListing(context.Background(), listing))
	return listing
}

func (e *testEnv) seedBid(t *testing.T, listingID, userID, value string, at time.Time) *domain.Bid {
	t.Helper()
	bid := &domain.Bid{
		ID:           utils.GenerateID("bid"),
		ListingID:    listingID,
		UserID:       userID,
		Value:        dec(value),
		CreationTime: at,
	}
	require.NoError(t, e.store.InsertBid(context.Background(), bid))
	return bid
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
