package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"review-portal-backend/internal/config"
	"review-portal-backend/internal/jobs"
	"review-portal-backend/internal/logger"
	"review-portal-backend/internal/repository/postgres"
	"review-portal-backend/internal/scheduler"
	"review-portal-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reviewer-digest', 'unassigned-report', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Review Portal Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(context.Background(), cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	var emailService service.EmailService
	switch cfg.EmailProvider() {
	case "sendgrid":
		emailService = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	case "ses":
		emailService, err = service.NewSESEmailService(context.Background(), cfg.SES.Region, cfg.SES.FromEmail, cfg.SES.FromName)
		if err != nil {
			logger.Error("Failed to initialize SES", "error", err)
			log.Fatalf("Failed to initialize SES: %v", err)
		}
	default:
		logger.Warn("No email provider configured, jobs will not send email")
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store.ProfileRepository, store.ApplicationRepository, emailService, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	if jobName == "all" {
		return jobRunner.RunAll()
	}
	for _, name := range jobs.Names {
		if name == jobName {
			return jobRunner.Run(name)
		}
	}

	logger.Error("Unknown job name", "job", jobName)
	fmt.Printf("Available jobs:\n")
	for _, name := range jobs.Names {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Printf("  - all\n")
	os.Exit(1)
	return nil
}
