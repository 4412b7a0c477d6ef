package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"auction-marketplace/internal/domain"

	"github.com/shopspring/decimal"
)

type MySQLBidRepository struct {
	db *sql.DB
}

func NewMySQLBidRepository(db *sql.DB) *MySQLBidRepository {
	return &MySQLBidRepository{db: db}
}

func (r *MySQLBidRepository) InsertBid(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, listing_id, user_id, value, creation_time)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query,
		bid.ID, bid.ListingID, bid.UserID, bid.Value.StringFixed(2), bid.CreationTime)
	return err
}

func (r *MySQLBidRepository) HighestBid(ctx context.Context, listingID string) (*domain.Bid, error) {
	query := `
        SELECT id, listing_id, user_id, value, creation_time
        FROM bids WHERE listing_id = ?
        ORDER BY value DESC, creation_time ASC
        LIMIT 1
    `
	bid, err := scanBid(dbFromContext(ctx, r.db).QueryRowContext(ctx, query, listingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("highest bid for listing %s: %w", listingID, domain.ErrNoBids)
		}
		return nil, err
	}
	return bid, nil
}

func (r *MySQLBidRepository) ListBids(ctx context.Context, listingID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, listing_id, user_id, value, creation_time
        FROM bids WHERE listing_id = ?
        ORDER BY value DESC, creation_time ASC
    `
	rows, err := dbFromContext(ctx, r.db).QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

func scanBid(row rowScanner) (*domain.Bid, error) {
	var bid domain.Bid
	var value string

	if err := row.Scan(&bid.ID, &bid.ListingID, &bid.UserID, &value, &bid.CreationTime); err != nil {
		return nil, err
	}

	var err error
	bid.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse bid value %q: %w", value, err)
	}
	return &bid, nil
}
