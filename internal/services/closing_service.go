package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// ClosingService is the auction closing state machine. OPEN transitions to
// CLOSED exactly once, either by the author's explicit request or by the
// scheduled task firing at the deadline; both paths converge on the same
// winner resolution and both respect the winner-already-set guard.
type ClosingService struct {
	listingRepo domain.ListingRepository
	bidRepo     domain.BidRepository
	locker      domain.ListingLocker
	scheduler   domain.CloseScheduler
	eventPub    domain.EventPublisher
	log         logger.Logger
}

func NewClosingService(
	listingRepo domain.ListingRepository,
	bidRepo domain.BidRepository,
	locker domain.ListingLocker,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *ClosingService {
	return &ClosingService{
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		locker:      locker,
		eventPub:    eventPub,
		log:         log,
	}
}

// SetScheduler wires the close scheduler after construction; the scheduler
// itself depends on this service to execute due jobs.
func (s *ClosingService) SetScheduler(scheduler domain.CloseScheduler) {
	s.scheduler = scheduler
}

// Close ends the listing on the author's request. The winner, when at least
// one bid exists, is the current highest bidder at the moment the close
// commits.
func (s *ClosingService) Close(ctx context.Context, listingID, actorID string) (*domain.Listing, error) {
	var closed *domain.Listing
	err := s.locker.WithListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listingRepo.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.AuthorID != actorID {
			return fmt.Errorf("close listing %s: %w: only the author may close a listing", listingID, domain.ErrPermissionDenied)
		}
		now := time.Now().UTC()
		if listing.Finished(now) {
			return fmt.Errorf("close listing %s: %w", listingID, domain.ErrAuctionClosed)
		}

		winnerID := listing.WinnerID
		if winnerID == "" {
			winnerID, err = s.resolveWinner(ctx, listingID)
			if err != nil {
				return err
			}
		}

		if err := s.listingRepo.UpdateClose(ctx, listingID, true, winnerID, now); err != nil {
			return err
		}
		listing.EndedManually = true
		listing.WinnerID = winnerID
		listing.UpdatedAt = now
		closed = listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.scheduler.CancelSchedule(ctx, listingID); err != nil {
		s.log.Error("Failed to cancel close schedule", "listing_id", listingID, "error", err)
	}

	s.emit(ctx, &domain.Event{
		Kind:      domain.EventListingClosed,
		ListingID: listingID,
		UserID:    closed.WinnerID,
		Timestamp: closed.UpdatedAt,
	})

	s.log.Info("Listing closed manually", "listing_id", listingID, "winner_id", closed.WinnerID)
	return closed, nil
}

// ScheduledClose resolves the winner when the deadline task fires. It is
// safe under at-least-once delivery: a listing already closed manually, a
// listing whose winner is already set, or a vanished listing all make the
// call a no-op. Lateness is not an error; the same logic applies whenever
// the task runs.
func (s *ClosingService) ScheduledClose(ctx context.Context, listingID string) error {
	var event *domain.Event
	err := s.locker.WithListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listingRepo.GetListing(ctx, listingID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.log.Warn("Scheduled close for missing listing", "listing_id", listingID)
				return nil
			}
			return err
		}
		if listing.EndedManually || listing.WinnerID != "" {
			return nil
		}

		winnerID, err := s.resolveWinner(ctx, listingID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if winnerID != "" {
			if err := s.listingRepo.UpdateClose(ctx, listingID, false, winnerID, now); err != nil {
				return err
			}
		}
		event = &domain.Event{
			Kind:      domain.EventListingClosed,
			ListingID: listingID,
			UserID:    winnerID,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return err
	}

	if event != nil {
		s.emit(ctx, event)
		s.log.Info("Listing closed by schedule", "listing_id", listingID, "winner_id", event.UserID)
	}
	return nil
}

// resolveWinner returns the user holding the current highest bid, or empty
// when the listing has no bids.
func (s *ClosingService) resolveWinner(ctx context.Context, listingID string) (string, error) {
	highest, err := s.bidRepo.HighestBid(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrNoBids) {
			return "", nil
		}
		return "", err
	}
	return highest.UserID, nil
}

func (s *ClosingService) emit(ctx context.Context, event *domain.Event) {
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "kind", event.Kind, "listing_id", event.ListingID, "error", err)
	}
}
