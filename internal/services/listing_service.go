package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	maxTitleLen       = 64
	maxDescriptionLen = 1000
)

// ListingService is the ledger: the single write path for listing records
// and the read surface used by every other component.
type ListingService struct {
	listingRepo  domain.ListingRepository
	bidRepo      domain.BidRepository
	categoryRepo domain.CategoryRepository
	scheduler    domain.CloseScheduler
	eventPub     domain.EventPublisher
	log          logger.Logger
}

func NewListingService(
	listingRepo domain.ListingRepository,
	bidRepo domain.BidRepository,
	categoryRepo domain.CategoryRepository,
	scheduler domain.CloseScheduler,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *ListingService {
	return &ListingService{
		listingRepo:  listingRepo,
		bidRepo:      bidRepo,
		categoryRepo: categoryRepo,
		scheduler:    scheduler,
		eventPub:     eventPub,
		log:          log,
	}
}

type CreateListingInput struct {
	Title        string
	Description  string
	InitialPrice decimal.Decimal
	CategoryName string
	DurationDays int
	Public       bool
}

// CreateListing validates the input, fixes the end time at creation and
// schedules the deferred close at the deadline.
func (s *ListingService) CreateListing(ctx context.Context, authorID string, in CreateListingInput) (*domain.Listing, error) {
	if authorID == "" {
		return nil, fmt.Errorf("create listing: %w: missing author", domain.ErrValidation)
	}
	if in.Title == "" || len(in.Title) > maxTitleLen {
		return nil, fmt.Errorf("create listing: %w: title must be 1-%d characters", domain.ErrValidation, maxTitleLen)
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, fmt.Errorf("create listing: %w: description exceeds %d characters", domain.ErrValidation, maxDescriptionLen)
	}
	if !in.InitialPrice.IsPositive() {
		return nil, fmt.Errorf("create listing: %w: the price must be a positive value", domain.ErrValidation)
	}
	if !domain.ValidDuration(in.DurationDays) {
		return nil, fmt.Errorf("create listing: %w: duration must be one of %v days", domain.ErrValidation, domain.ListingDurations)
	}

	category, err := s.categoryRepo.GetCategoryByName(ctx, in.CategoryName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("create listing: %w: unknown category %q", domain.ErrValidation, in.CategoryName)
		}
		return nil, fmt.Errorf("create listing: %w", err)
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:           utils.GenerateID("listing"),
		AuthorID:     authorID,
		Title:        in.Title,
		Description:  in.Description,
		InitialPrice: in.InitialPrice,
		CategoryID:   category.ID,
		DurationDays: in.DurationDays,
		CreationTime: now,
		EndTime:      now.Add(time.Duration(in.DurationDays) * 24 * time.Hour),
		Public:       in.Public,
		UpdatedAt:    now,
	}

	if err := s.listingRepo.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	if err := s.scheduler.ScheduleClose(ctx, listing.ID, listing.EndTime); err != nil {
		return nil, fmt.Errorf("schedule close for listing %s: %w", listing.ID, err)
	}

	s.emit(ctx, &domain.Event{
		Kind:      domain.EventListingCreated,
		ListingID: listing.ID,
		UserID:    authorID,
		Timestamp: now,
	})

	s.log.Info("Listing created", "listing_id", listing.ID, "author_id", authorID, "end_time", listing.EndTime)
	return listing, nil
}

func (s *ListingService) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	return s.listingRepo.GetListing(ctx, listingID)
}

// SetVisibility flips the listing's public flag on the author's request.
// The end time was fixed at creation and an update never recomputes it.
func (s *ListingService) SetVisibility(ctx context.Context, listingID, actorID string, public bool) (*domain.Listing, error) {
	listing, err := s.listingRepo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.AuthorID != actorID {
		return nil, fmt.Errorf("update listing %s: %w: only the author may edit a listing", listingID, domain.ErrPermissionDenied)
	}

	now := time.Now().UTC()
	if err := s.listingRepo.UpdateVisibility(ctx, listingID, public, now); err != nil {
		return nil, err
	}
	listing.Public = public
	listing.UpdatedAt = now

	s.log.Info("Listing visibility updated", "listing_id", listingID, "public", public)
	return listing, nil
}

// Wins returns the listings the user has won, most recently ended first.
func (s *ListingService) Wins(ctx context.Context, userID string) ([]*domain.Listing, error) {
	if userID == "" {
		return nil, fmt.Errorf("wins: %w: missing user", domain.ErrValidation)
	}
	return s.listingRepo.WonListings(ctx, userID)
}

// CurrentBid returns the highest standing bid, or nil when none exists.
func (s *ListingService) CurrentBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	if _, err := s.listingRepo.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	bid, err := s.bidRepo.HighestBid(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrNoBids) {
			return nil, nil
		}
		return nil, err
	}
	return bid, nil
}

func (s *ListingService) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	if _, err := s.listingRepo.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return s.bidRepo.ListBids(ctx, listingID)
}

// ActiveListings returns public unfinished listings, plus the user's own
// when userID is non-empty, ordered ending soonest first.
func (s *ListingService) ActiveListings(ctx context.Context, userID string) ([]*domain.Listing, error) {
	return s.listingRepo.ActiveListings(ctx, userID)
}

func (s *ListingService) Search(ctx context.Context, query, userID string) ([]*domain.Listing, error) {
	if query == "" {
		return s.listingRepo.ActiveListings(ctx, userID)
	}
	return s.listingRepo.SearchListings(ctx, query, userID)
}

func (s *ListingService) ByCategory(ctx context.Context, categoryName string) ([]*domain.Listing, error) {
	if _, err := s.categoryRepo.GetCategoryByName(ctx, categoryName); err != nil {
		return nil, err
	}
	return s.listingRepo.ListingsByCategory(ctx, categoryName)
}

func (s *ListingService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("create category: %w: missing name", domain.ErrValidation)
	}
	category := &domain.Category{
		ID:   utils.GenerateID("category"),
		Name: name,
	}
	if err := s.categoryRepo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *ListingService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.ListCategories(ctx)
}

func (s *ListingService) emit(ctx context.Context, event *domain.Event) {
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "kind", event.Kind, "listing_id", event.ListingID, "error", err)
	}
}
