package domain

import (
	"context"
	"time"
)

// Repository interfaces
type ListingRepository interface {
	CreateListing(ctx context.Context, listing *Listing) error
	// GetListing returns ErrNotFound for an unknown id.
	GetListing(ctx context.Context, listingID string) (*Listing, error)
	// UpdateClose persists the terminal closing state of a listing.
	UpdateClose(ctx context.Context, listingID string, endedManually bool, winnerID string, updatedAt time.Time) error
	// UpdateVisibility persists a change to the listing's public flag.
	UpdateVisibility(ctx context.Context, listingID string, public bool, updatedAt time.Time) error
	// WonListings returns the listings whose winner is userID, most
	// recently ended first.
	WonListings(ctx context.Context, userID string) ([]*Listing, error)
	// ActiveListings returns public, unfinished listings ordered by end time
	// ascending, unioned with userID's own listings when userID is non-empty.
	ActiveListings(ctx context.Context, userID string) ([]*Listing, error)
	// SearchListings restricts the active set to listings whose title or
	// description contains query, case-insensitively.
	SearchListings(ctx context.Context, query, userID string) ([]*Listing, error)
	// ListingsByCategory filters the active set by exact category name.
	ListingsByCategory(ctx context.Context, categoryName string) ([]*Listing, error)
}

type BidRepository interface {
	InsertBid(ctx context.Context, bid *Bid) error
	// HighestBid returns ErrNoBids when the listing has no bids. Equal
	// values are resolved in favour of the earliest bid.
	HighestBid(ctx context.Context, listingID string) (*Bid, error)
	// ListBids returns bids ordered by value descending, earliest first
	// among equals.
	ListBids(ctx context.Context, listingID string) ([]*Bid, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *Category) error
	// GetCategoryByName returns ErrNotFound for an unknown name.
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
}

type QuestionRepository interface {
	InsertQuestion(ctx context.Context, question *Question) error
	GetQuestion(ctx context.Context, questionID string) (*Question, error)
	// AttachAnswer links an answer to a question exactly once; a second
	// attach returns ErrAlreadyAnswered.
	AttachAnswer(ctx context.Context, questionID string, answer *Answer) error
	QuestionsForListing(ctx context.Context, listingID string) ([]*Question, error)
}

type WatchRepository interface {
	// ToggleWatch adds the listing to the user's watch set if absent,
	// removes it if present, and reports the resulting membership.
	ToggleWatch(ctx context.Context, userID, listingID string) (bool, error)
	WatchedListingIDs(ctx context.Context, userID string) ([]string, error)
}

type CloseJobRepository interface {
	CreateJob(ctx context.Context, job *CloseJob) error
	DueJobs(ctx context.Context, before time.Time) ([]*CloseJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error
	CancelJobsForListing(ctx context.Context, listingID string) error
}

// ListingLocker serializes mutations scoped to a single listing. Bid
// admission and both closing paths run inside WithListing so concurrent
// callers observe each other's committed state.
type ListingLocker interface {
	WithListing(ctx context.Context, listingID string, fn func(ctx context.Context) error) error
}

// EventPublisher is the notification sink boundary. Implementations must
// never block core operations on delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

type EventHandler func(event *Event) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// CloseScheduler schedules the deferred close of a listing at its deadline.
// Delivery is at-least-once; the closing path must tolerate duplicate and
// late firings.
type CloseScheduler interface {
	ScheduleClose(ctx context.Context, listingID string, at time.Time) error
	CancelSchedule(ctx context.Context, listingID string) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
