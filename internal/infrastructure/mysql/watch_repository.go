package mysql

import (
	"context"
	"database/sql"
)

type MySQLWatchRepository struct {
	db *sql.DB
}

func NewMySQLWatchRepository(db *sql.DB) *MySQLWatchRepository {
	return &MySQLWatchRepository{db: db}
}

// ToggleWatch deletes the membership row if present, inserts it otherwise.
// The delete-first form makes the toggle a single decision on the affected
// row count.
func (r *MySQLWatchRepository) ToggleWatch(ctx context.Context, userID, listingID string) (bool, error) {
	db := dbFromContext(ctx, r.db)

	res, err := db.ExecContext(ctx,
		`DELETE FROM watchers WHERE user_id = ? AND listing_id = ?`, userID, listingID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return false, nil
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO watchers (user_id, listing_id) VALUES (?, ?)`, userID, listingID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *MySQLWatchRepository) WatchedListingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := dbFromContext(ctx, r.db).QueryContext(ctx,
		`SELECT listing_id FROM watchers WHERE user_id = ? ORDER BY listing_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
