package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestToggleWatch_Involution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.createListing(t, "user-author", "100.00", 7)

	watching, err := env.engagement.ToggleWatch(ctx, "user-a", listing.ID)
	require.NoError(t, err)
	require.True(t, watching)

	watchlist, err := env.engagement.Watchlist(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, watchlist, 1)
	require.Equal(t, listing.ID, watchlist[0].ID)

	// Toggling again restores the original membership.
	watching, err = env.engagement.ToggleWatch(ctx, "user-a", listing.ID)
	require.NoError(t, err)
	require.False(t, watching)

	watchlist, err = env.engagement.Watchlist(ctx, "user-a")
	require.NoError(t, err)
	require.Empty(t, watchlist)
}

func TestToggleWatch_ClosedListingStillWatchable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	listing := env.seedListing(t, &domain.Listing{
		AuthorID: "user-author", Title: "Over", Public: true, EndedManually: true,
		InitialPrice: dec("100.00"), DurationDays: 7,
		CreationTime: now, EndTime: now.Add(7 * 24 * time.Hour),
	})

	watching, err := env.engagement.ToggleWatch(ctx, "user-a", listing.ID)
	require.NoError(t, err)
	require.True(t, watching)
}

func TestToggleWatch_UnknownListing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engagement.ToggleWatch(context.Background(), "user-a", "listing-missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAskQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.createListing(t, "user-author", "100.00", 7)

	question, err := env.engagement.AskQuestion(ctx, listing.ID, "user-a", "Does it ship abroad?")
	require.NoError(t, err)
	require.Equal(t, listing.ID, question.ListingID)
	require.Nil(t, question.Answer)

	// The listing's own author may ask too.
	_, err = env.engagement.AskQuestion(ctx, listing.ID, "user-author", "Bump: any takers?")
	require.NoError(t, err)

	questions, err := env.engagement.ListQuestions(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
}

func TestAskQuestion_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.createListing(t, "user-author", "100.00", 7)

	_, err := env.engagement.AskQuestion(ctx, listing.ID, "", "hello?")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.engagement.AskQuestion(ctx, listing.ID, "user-a", "")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.engagement.AskQuestion(ctx, listing.ID, "user-a", strings.Repeat("x", 251))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestAskQuestion_ClosedListingRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.createListing(t, "user-author", "100.00", 7)
	_, err := env.closing.Close(ctx, listing.ID, "user-author")
	require.NoError(t, err)

	_, err = env.engagement.AskQuestion(ctx, listing.ID, "user-a", "Too late?")
	require.ErrorIs(t, err, domain.ErrAuctionClosed)
}

func TestAnswerQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.createListing(t, "user-author", "100.00", 7)
	question, err := env.engagement.AskQuestion(ctx, listing.ID, "user-a", "Original box included?")
	require.NoError(t, err)

	// Only the listing author may answer.
	_, err = env.engagement.AnswerQuestion(ctx, question.ID, "user-a", "Yes")
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	answer, err := env.engagement.AnswerQuestion(ctx, question.ID, "user-author", "Yes, with manuals")
	require.NoError(t, err)
	require.Equal(t, question.ID, answer.QuestionID)

	// Exactly once.
	_, err = env.engagement.AnswerQuestion(ctx, question.ID, "user-author", "Actually no")
	require.ErrorIs(t, err, domain.ErrAlreadyAnswered)

	got, err := env.store.GetQuestion(ctx, question.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Answer)
	require.Equal(t, "Yes, with manuals", got.Answer.Body)
}

func TestAnswerQuestion_UnknownQuestion(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engagement.AnswerQuestion(context.Background(), "question-missing", "user-author", "Yes")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngagement_EmitsEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.createListing(t, "user-author", "100.00", 7)

	question, err := env.engagement.AskQuestion(ctx, listing.ID, "user-a", "Condition?")
	require.NoError(t, err)
	_, err = env.engagement.AnswerQuestion(ctx, question.ID, "user-author", "Mint")
	require.NoError(t, err)

	kinds := env.events.kinds()
	require.Equal(t, []domain.EventKind{
		domain.EventListingCreated,
		domain.EventQuestionAsked,
		domain.EventAnswerPosted,
	}, kinds)
}
