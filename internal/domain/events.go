package domain

import "time"

type EventKind string

const (
	EventListingCreated EventKind = "listing_created"
	EventListingClosed  EventKind = "listing_closed"
	EventBidPlaced      EventKind = "bid_placed"
	EventQuestionAsked  EventKind = "question_asked"
	EventAnswerPosted   EventKind = "answer_posted"
)

// Event is the payload delivered to the notification sink. Dispatch is
// fire-and-forget: no core operation depends on its outcome.
type Event struct {
	Kind      EventKind `json:"kind"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id,omitempty"`
	Value     string    `json:"value,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
