package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

const maxBodyLen = 250

// EngagementService covers the relations layered on the ledger: the
// watchlist and the question/answer thread of a listing.
type EngagementService struct {
	listingRepo  domain.ListingRepository
	questionRepo domain.QuestionRepository
	watchRepo    domain.WatchRepository
	eventPub     domain.EventPublisher
	log          logger.Logger
}

func NewEngagementService(
	listingRepo domain.ListingRepository,
	questionRepo domain.QuestionRepository,
	watchRepo domain.WatchRepository,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *EngagementService {
	return &EngagementService{
		listingRepo:  listingRepo,
		questionRepo: questionRepo,
		watchRepo:    watchRepo,
		eventPub:     eventPub,
		log:          log,
	}
}

// ToggleWatch flips the user's watch membership for the listing and reports
// the resulting state. Closed listings can still be watched and unwatched.
func (s *EngagementService) ToggleWatch(ctx context.Context, userID, listingID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("toggle watch: %w: missing user", domain.ErrValidation)
	}
	if _, err := s.listingRepo.GetListing(ctx, listingID); err != nil {
		return false, err
	}
	return s.watchRepo.ToggleWatch(ctx, userID, listingID)
}

func (s *EngagementService) Watchlist(ctx context.Context, userID string) ([]*domain.Listing, error) {
	if userID == "" {
		return nil, fmt.Errorf("watchlist: %w: missing user", domain.ErrValidation)
	}
	ids, err := s.watchRepo.WatchedListingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	listings := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		listing, err := s.listingRepo.GetListing(ctx, id)
		if err != nil {
			// Watched listing was hard-deleted; skip the stale entry.
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// AskQuestion posts a question against an open listing. Any authenticated
// user may ask, the listing's own author included.
func (s *EngagementService) AskQuestion(ctx context.Context, listingID, userID, body string) (*domain.Question, error) {
	if userID == "" {
		return nil, fmt.Errorf("ask question: %w: missing user", domain.ErrValidation)
	}
	if body == "" || len(body) > maxBodyLen {
		return nil, fmt.Errorf("ask question: %w: body must be 1-%d characters", domain.ErrValidation, maxBodyLen)
	}
	listing, err := s.listingRepo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Finished(time.Now().UTC()) {
		return nil, fmt.Errorf("ask question on listing %s: %w", listingID, domain.ErrAuctionClosed)
	}

	question := &domain.Question{
		ID:        utils.GenerateID("question"),
		ListingID: listingID,
		UserID:    userID,
		Body:      body,
		Time:      time.Now().UTC(),
	}
	if err := s.questionRepo.InsertQuestion(ctx, question); err != nil {
		return nil, fmt.Errorf("ask question on listing %s: %w", listingID, err)
	}

	s.emit(ctx, &domain.Event{
		Kind:      domain.EventQuestionAsked,
		ListingID: listingID,
		UserID:    userID,
		Timestamp: question.Time,
	})
	return question, nil
}

// AnswerQuestion posts the single answer to a question. Only the listing's
// author may answer, and only once.
func (s *EngagementService) AnswerQuestion(ctx context.Context, questionID, authorID, body string) (*domain.Answer, error) {
	if authorID == "" {
		return nil, fmt.Errorf("answer question: %w: missing user", domain.ErrValidation)
	}
	if body == "" || len(body) > maxBodyLen {
		return nil, fmt.Errorf("answer question: %w: body must be 1-%d characters", domain.ErrValidation, maxBodyLen)
	}
	question, err := s.questionRepo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listingRepo.GetListing(ctx, question.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.AuthorID != authorID {
		return nil, fmt.Errorf("answer question %s: %w: only the listing author may answer", questionID, domain.ErrPermissionDenied)
	}
	if question.Answer != nil {
		return nil, fmt.Errorf("answer question %s: %w", questionID, domain.ErrAlreadyAnswered)
	}

	answer := &domain.Answer{
		ID:         utils.GenerateID("answer"),
		QuestionID: questionID,
		AuthorID:   authorID,
		Body:       body,
		Time:       time.Now().UTC(),
	}
	if err := s.questionRepo.AttachAnswer(ctx, questionID, answer); err != nil {
		return nil, fmt.Errorf("answer question %s: %w", questionID, err)
	}

	s.emit(ctx, &domain.Event{
		Kind:      domain.EventAnswerPosted,
		ListingID: question.ListingID,
		UserID:    authorID,
		Timestamp: answer.Time,
	})
	return answer, nil
}

func (s *EngagementService) ListQuestions(ctx context.Context, listingID string) ([]*domain.Question, error) {
	if _, err := s.listingRepo.GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return s.questionRepo.QuestionsForListing(ctx, listingID)
}

func (s *EngagementService) emit(ctx context.Context, event *domain.Event) {
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.log.Error("Failed to publish event", "kind", event.Kind, "listing_id", event.ListingID, "error", err)
	}
}
