package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Job is a named unit of periodic maintenance work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs maintenance jobs on cron expressions
type Scheduler struct {
	scheduler gocron.Scheduler
	parser    cron.Parser
}

// NewScheduler creates the maintenance scheduler
func NewScheduler() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.Local),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: scheduler,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}, nil
}

// Register adds a job on the given cron expression. The expression is
// validated up front so a bad config fails at startup, not at first run.
func (s *Scheduler) Register(job Job, cronExpr string) error {
	if _, err := s.parser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, job.Name(), err)
	}

	_, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			start := time.Now()
			log.Printf("▶️  [JOBS] Running job: %s", job.Name())
			if err := job.Run(context.Background()); err != nil {
				log.Printf("❌ [JOBS] Job %s failed: %v", job.Name(), err)
				return
			}
			log.Printf("✅ [JOBS] Job %s completed in %v", job.Name(), time.Since(start))
		}),
		gocron.WithName(job.Name()),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}

	log.Printf("📅 [JOBS] Registered job %s (cron: %s)", job.Name(), cronExpr)
	return nil
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.scheduler.Start()
	log.Println("⏰ [JOBS] Maintenance scheduler started")
}

// Stop shuts the scheduler down, waiting for running jobs
func (s *Scheduler) Stop() error {
	log.Println("⏹️  [JOBS] Stopping maintenance scheduler...")
	return s.scheduler.Shutdown()
}
