package mysql

import (
	"context"
	"database/sql"
	"time"

	"auction-marketplace/internal/domain"
)

type MySQLCloseJobRepository struct {
	db *sql.DB
}

func NewMySQLCloseJobRepository(db *sql.DB) *MySQLCloseJobRepository {
	return &MySQLCloseJobRepository{db: db}
}

func (r *MySQLCloseJobRepository) CreateJob(ctx context.Context, job *domain.CloseJob) error {
	query := `
        INSERT INTO close_jobs (id, listing_id, run_at, status, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query,
		job.ID, job.ListingID, job.RunAt, string(job.Status), job.CreatedAt)
	return err
}

func (r *MySQLCloseJobRepository) DueJobs(ctx context.Context, before time.Time) ([]*domain.CloseJob, error) {
	query := `
        SELECT id, listing_id, run_at, status, created_at
        FROM close_jobs
        WHERE status = 'pending' AND run_at <= ?
        ORDER BY run_at ASC
    `
	rows, err := dbFromContext(ctx, r.db).QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.CloseJob
	for rows.Next() {
		var job domain.CloseJob
		var status string

		if err := rows.Scan(&job.ID, &job.ListingID, &job.RunAt, &status, &job.CreatedAt); err != nil {
			return nil, err
		}
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (r *MySQLCloseJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	query := `UPDATE close_jobs SET status = ? WHERE id = ?`
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query, string(status), jobID)
	return err
}

func (r *MySQLCloseJobRepository) CancelJobsForListing(ctx context.Context, listingID string) error {
	query := `UPDATE close_jobs SET status = 'cancelled' WHERE listing_id = ? AND status = 'pending'`
	_, err := dbFromContext(ctx, r.db).ExecContext(ctx, query, listingID)
	return err
}
