package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"review-portal-backend/internal/jobs"
	"review-portal-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler. A job
// with an invalid schedule is logged and skipped.
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	schedules := []struct {
		name string
		spec string
	}{
		{jobs.JobReviewerDigest, cfg.ReviewerDigest},
		{jobs.JobUnassignedReport, cfg.UnassignedReport},
	}

	registered := 0
	for _, sched := range schedules {
		name := sched.name
		_, err := s.cron.AddFunc(sched.spec, func() {
			// Failures are logged and counted by the runner.
			_ = s.jobs.Run(name)
		})
		if err != nil {
			logger.Error("Failed to register job", "job", name, "schedule", sched.spec, "error", err)
			continue
		}
		registered++
		logger.Debug("Registered job", "job", name, "schedule", sched.spec)
	}

	logger.Info("Cron jobs registered", "count", registered)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
