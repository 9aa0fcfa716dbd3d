package jobs

import (
	"context"
	"fmt"
	"time"

	"review-portal-backend/internal/config"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/metrics"
	"review-portal-backend/internal/repository"
	"review-portal-backend/internal/service"
)

const (
	JobReviewerDigest   = "reviewer-digest"
	JobUnassignedReport = "unassigned-report"
)

// Names lists every job in the order RunAll executes them.
var Names = []string{JobReviewerDigest, JobUnassignedReport}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	profiles     repository.ProfileRepository
	applications repository.ApplicationRepository
	email        service.EmailService
	config       *config.Config
	timeout      time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(profiles repository.ProfileRepository, applications repository.ApplicationRepository, email service.EmailService, cfg *config.Config) *JobRunner {
	if email == nil {
		email = service.NewNoopEmailService()
	}
	return &JobRunner{
		profiles:     profiles,
		applications: applications,
		email:        email,
		config:       cfg,
		timeout:      5 * time.Minute,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// Run executes one job by name.
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobReviewerDigest:
		return jr.SendReviewerDigests()
	case JobUnassignedReport:
		return jr.SendUnassignedReport()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
}

// RunAll runs every job once (for manual execution). It keeps going after a
// failure and returns the first error.
func (jr *JobRunner) RunAll() error {
	var first error
	for _, name := range Names {
		if err := jr.Run(name); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// runWithRecovery wraps job execution with panic recovery, a timeout and
// run metrics.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}

		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.JobRuns.WithLabelValues(jobName, result).Inc()
		metrics.JobDuration.WithLabelValues(jobName).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}
