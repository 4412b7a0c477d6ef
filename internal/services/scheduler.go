package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CronCloseScheduler persists close jobs and polls for due ones on a cron
// interval. Jobs are at-least-once: a job is only marked executed after the
// closing transition returns, and the transition itself is idempotent, so
// re-running after a crash or a late poll is harmless. When leader election
// is configured, only the leading instance processes jobs.
type CronCloseScheduler struct {
	cron         *cron.Cron
	repo         domain.CloseJobRepository
	closing      *ClosingService
	leader       domain.LeaderElection
	instanceID   string
	pollInterval time.Duration
	log          logger.Logger
}

func NewCronCloseScheduler(
	repo domain.CloseJobRepository,
	closing *ClosingService,
	leader domain.LeaderElection,
	instanceID string,
	pollInterval time.Duration,
	log logger.Logger,
) *CronCloseScheduler {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &CronCloseScheduler{
		cron:         cron.New(cron.WithSeconds()),
		repo:         repo,
		closing:      closing,
		leader:       leader,
		instanceID:   instanceID,
		pollInterval: pollInterval,
		log:          log,
	}
}

func (s *CronCloseScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting close scheduler", "poll_interval", s.pollInterval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.pollInterval), func() {
		s.processDueJobs(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronCloseScheduler) Stop() error {
	s.log.Info("Stopping close scheduler")
	s.cron.Stop()
	return nil
}

func (s *CronCloseScheduler) ScheduleClose(ctx context.Context, listingID string, at time.Time) error {
	job := &domain.CloseJob{
		ID:        utils.GenerateID("job"),
		ListingID: listingID,
		RunAt:     at,
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.CreateJob(ctx, job)
}

func (s *CronCloseScheduler) CancelSchedule(ctx context.Context, listingID string) error {
	return s.repo.CancelJobsForListing(ctx, listingID)
}

func (s *CronCloseScheduler) processDueJobs(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Failed to check leadership", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	jobs, err := s.repo.DueJobs(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("Failed to get due close jobs", "error", err)
		return
	}

	for _, job := range jobs {
		s.log.Info("Processing close job", "job_id", job.ID, "listing_id", job.ListingID, "run_at", job.RunAt)

		if err := s.closing.ScheduledClose(ctx, job.ListingID); err != nil {
			// Leave pending; the next poll retries.
			s.log.Error("Failed to execute close job", "job_id", job.ID, "error", err)
			continue
		}

		if err := s.repo.UpdateJobStatus(ctx, job.ID, domain.JobExecuted); err != nil {
			s.log.Error("Failed to mark close job executed", "job_id", job.ID, "error", err)
		}
	}
}
