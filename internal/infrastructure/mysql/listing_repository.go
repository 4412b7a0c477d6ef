package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type MySQLListingRepository struct {
	db *sql.DB
}

func NewMySQLListingRepository(db *sql.DB) *MySQLListingRepository {
	return &MySQLListingRepository{db: db}
}

const listingColumns = `id, author_id, title, description, initial_price, category_id,
       duration_days, creation_time, end_time, ended_manually, public, winner_id, updated_at`

func (r *MySQLListingRepository) CreateListing(ctx context.Context, listing *domain.Listing) error {
	query := `
        INSERT INTO listings (` + listingColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query,
		listing.ID, listing.AuthorID, listing.Title, listing.Description,
		listing.InitialPrice.StringFixed(2), listing.CategoryID,
		listing.DurationDays, listing.CreationTime, listing.EndTime,
		listing.EndedManually, listing.Public, nullString(listing.WinnerID), listing.UpdatedAt)
	return err
}

func (r *MySQLListingRepository) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`

	listing, err := scanListing(dbFromContext(ctx, r.db).QueryRowContext(ctx, query, listingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("get listing %s: %w", listingID, domain.ErrNotFound)
		}
		return nil, err
	}
	return listing, nil
}

func (r *MySQLListingRepository) UpdateClose(ctx context.Context, listingID string, endedManually bool, winnerID string, updatedAt time.Time) error {
	query := `UPDATE listings SET ended_manually = ?, winner_id = ?, updated_at = ? WHERE id = ?`
	res, err := dbFromContext(ctx, r.db).ExecContext(ctx, query,
		endedManually, nullString(winnerID), updatedAt, listingID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update close for listing %s: %w", listingID, domain.ErrNotFound)
	}
	return nil
}

func (r *MySQLListingRepository) UpdateVisibility(ctx context.Context, listingID string, public bool, updatedAt time.Time) error {
	query := `UPDATE listings SET public = ?, updated_at = ? WHERE id = ?`
	res, err := dbFromContext(ctx, r.db).ExecContext(ctx, query, public, updatedAt, listingID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update visibility for listing %s: %w", listingID, domain.ErrNotFound)
	}
	return nil
}

func (r *MySQLListingRepository) WonListings(ctx context.Context, userID string) ([]*domain.Listing, error) {
	query := `
        SELECT ` + listingColumns + ` FROM listings
        WHERE winner_id = ?
        ORDER BY end_time DESC
    `
	return r.queryListings(ctx, query, userID)
}

func (r *MySQLListingRepository) ActiveListings(ctx context.Context, userID string) ([]*domain.Listing, error) {
	if userID == "" {
		query := `
            SELECT ` + listingColumns + ` FROM listings
            WHERE public = TRUE AND ended_manually = FALSE AND end_time > ?
            ORDER BY end_time ASC
        `
		return r.queryListings(ctx, query, time.Now().UTC())
	}
	query := `
        SELECT ` + listingColumns + ` FROM listings
        WHERE (public = TRUE AND ended_manually = FALSE AND end_time > ?) OR author_id = ?
        ORDER BY end_time ASC
    `
	return r.queryListings(ctx, query, time.Now().UTC(), userID)
}

func (r *MySQLListingRepository) SearchListings(ctx context.Context, query, userID string) ([]*domain.Listing, error) {
	pattern := "%" + query + "%"
	if userID == "" {
		q := `
            SELECT ` + listingColumns + ` FROM listings
            WHERE public = TRUE AND ended_manually = FALSE AND end_time > ?
              AND (LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))
            ORDER BY end_time ASC
        `
		return r.queryListings(ctx, q, time.Now().UTC(), pattern, pattern)
	}
	q := `
        SELECT ` + listingColumns + ` FROM listings
        WHERE (public = TRUE AND ended_manually = FALSE AND end_time > ?
               AND (LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)))
           OR author_id = ?
        ORDER BY end_time ASC
    `
	return r.queryListings(ctx, q, time.Now().UTC(), pattern, pattern, userID)
}

func (r *MySQLListingRepository) ListingsByCategory(ctx context.Context, categoryName string) ([]*domain.Listing, error) {
	query := `
        SELECT l.id, l.author_id, l.title, l.description, l.initial_price, l.category_id,
               l.duration_days, l.creation_time, l.end_time, l.ended_manually, l.public, l.winner_id, l.updated_at
        FROM listings l
        JOIN categories c ON c.id = l.category_id
        WHERE c.name = ? AND l.public = TRUE AND l.ended_manually = FALSE AND l.end_time > ?
        ORDER BY l.end_time ASC
    `
	return r.queryListings(ctx, query, categoryName, time.Now().UTC())
}

func (r *MySQLListingRepository) queryListings(ctx context.Context, query string, args ...interface{}) ([]*domain.Listing, error) {
	rows, err := dbFromContext(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	var price string
	var winner sql.NullString

	err := row.Scan(
		&listing.ID, &listing.AuthorID, &listing.Title, &listing.Description,
		&price, &listing.CategoryID, &listing.DurationDays,
		&listing.CreationTime, &listing.EndTime, &listing.EndedManually,
		&listing.Public, &winner, &listing.UpdatedAt)
	if err != nil {
		return nil, err
	}

	listing.InitialPrice, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse initial price %q: %w", price, err)
	}
	if winner.Valid {
		listing.WinnerID = winner.String
	}
	return &listing, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
