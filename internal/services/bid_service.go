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

// BidService is the admission engine: it decides whether a submitted bid
// is admissible against the listing's current state and commits it
// atomically.
type BidService struct {
	listingRepo domain.ListingRepository
	bidRepo     domain.BidRepository
	locker      domain.ListingLocker
	eventPub    domain.EventPublisher
	log         logger.Logger
}

func NewBidService(
	listingRepo domain.ListingRepository,
	bidRepo domain.BidRepository,
	locker domain.ListingLocker,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *BidService {
	return &BidService{
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		locker:      locker,
		eventPub:    eventPub,
		log:         log,
	}
}

// PlaceBid admits a bid when the listing is open and value strictly exceeds
// both the initial price and the current highest bid. The check and the
// insert run under the per-listing lock, so two concurrent bids cannot both
// pass the highest-bid comparison against a stale read. A failed admission
// is terminal; nothing is retried.
func (s *BidService) PlaceBid(ctx context.Context, listingID, userID string, value decimal.Decimal) (*domain.Bid, error) {
	if userID == "" {
		return nil, fmt.Errorf("place bid: %w: missing user", domain.ErrValidation)
	}
	if !value.IsPositive() {
		return nil, fmt.Errorf("place bid: %w: bid value must be positive", domain.ErrValidation)
	}

	var bid *domain.Bid
	err := s.locker.WithListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listingRepo.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		if listing.AuthorID == userID {
			return fmt.Errorf("place bid on listing %s: %w: authors cannot bid on their own listings", listingID, domain.ErrPermissionDenied)
		}
		if listing.Finished(time.Now().UTC()) {
			return fmt.Errorf("place bid on listing %s: %w", listingID, domain.ErrAuctionClosed)
		}

		// Minimum acceptable value: strictly above the initial price, and
		// strictly above the current highest bid when one exists.
		minimum := listing.InitialPrice
		highest, err := s.bidRepo.HighestBid(ctx, listingID)
		if err != nil && !errors.Is(err, domain.ErrNoBids) {
			return err
		}
		if highest != nil && highest.Value.GreaterThan(minimum) {
			minimum = highest.Value
		}
		if !value.GreaterThan(minimum) {
			return fmt.Errorf("place bid on listing %s: %w: bid must exceed %s", listingID, domain.ErrBidTooLow, minimum.StringFixed(2))
		}

		bid = &domain.Bid{
			ID:           utils.GenerateID("bid"),
			ListingID:    listingID,
			UserID:       userID,
			Value:        value,
			CreationTime: time.Now().UTC(),
		}
		return s.bidRepo.InsertBid(ctx, bid)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, &domain.Event{
		Kind:      domain.EventBidPlaced,
		ListingID: listingID,
		UserID:    userID,
		Value:     value.StringFixed(2),
		Timestamp: bid.CreationTime,
	})

	s.log.Info("Bid placed", "listing_id", listingID, "user_id", userID, "value", value.StringFixed(2))
	return bid, nil
}

func (s *BidService) emit(ctx context.Context, event *domain.Event) {
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "kind", event.Kind, "listing_id", event.ListingID, "error", err)
	}
}
