package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingDurations are the allowed auction durations in days.
var ListingDurations = []int{3, 7, 14, 30}

// ValidDuration reports whether days is one of the allowed durations.
func ValidDuration(days int) bool {
	for _, d := range ListingDurations {
		if d == days {
			return true
		}
	}
	return false
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Listing struct {
	ID            string          `json:"id"`
	AuthorID      string          `json:"author_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	InitialPrice  decimal.Decimal `json:"initial_price"`
	CategoryID    string          `json:"category_id"`
	DurationDays  int             `json:"duration_days"`
	CreationTime  time.Time       `json:"creation_time"`
	EndTime       time.Time       `json:"end_time"`
	EndedManually bool            `json:"ended_manually"`
	Public        bool            `json:"public"`
	WinnerID      string          `json:"winner_id,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Finished reports whether the auction is over, either by manual close
// or because its deadline has passed.
func (l *Listing) Finished(now time.Time) bool {
	return l.EndedManually || now.After(l.EndTime)
}

// Valid reports whether the listing satisfies its structural invariants.
func (l *Listing) Valid() bool {
	return l.DurationDays > 0 &&
		!l.EndTime.Equal(l.CreationTime) &&
		l.InitialPrice.IsPositive()
}

type Bid struct {
	ID           string          `json:"id"`
	ListingID    string          `json:"listing_id"`
	UserID       string          `json:"user_id"`
	Value        decimal.Decimal `json:"value"`
	CreationTime time.Time       `json:"creation_time"`
}

// Outbids reports whether b takes ordering precedence over other:
// higher value wins, equal values go to the earlier bid.
func (b *Bid) Outbids(other *Bid) bool {
	if !b.Value.Equal(other.Value) {
		return b.Value.GreaterThan(other.Value)
	}
	return b.CreationTime.Before(other.CreationTime)
}

type Question struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	Time      time.Time `json:"time"`
	Answer    *Answer   `json:"answer,omitempty"`
}

type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	Time       time.Time `json:"time"`
}

type CloseJob struct {
	ID        string
	ListingID string
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)
