package domain

import "errors"

// Business errors. Services wrap these with context; callers and the HTTP
// layer match them with errors.Is.
var (
	ErrValidation       = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAuctionClosed    = errors.New("auction closed")
	ErrBidTooLow        = errors.New("bid too low")
	ErrAlreadyAnswered  = errors.New("question already answered")
)

// Repository-level errors.
var (
	ErrNoBids = errors.New("no bids for listing")
)
