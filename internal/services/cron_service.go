package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/config"
)

// Job names accepted by RunJob
const (
	JobHorizonRoll    = "horizon_roll"
	JobCompleteStays  = "complete_stays"
	JobPayoutDispatch = "payout_dispatch"
	JobAuditCleanup   = "audit_cleanup"
)

// Errors returned by RunJob
var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job already running")
)

// auditRetention is how long audit_logs rows are kept
const auditRetention = 180 * 24 * time.Hour

// jobTimeout bounds a single run of a scheduled job
const jobTimeout = 10 * time.Minute

type cronJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) (int64, error)
	entryID  cron.EntryID
}

// CronService manages scheduled background jobs
type CronService struct {
	cron   *cron.Cron
	jobs   map[string]*cronJob
	logger *logrus.Logger
	// running serializes manual and scheduled runs of the same job
	running sync.Map
}

// NewCronService creates a new CronService. A nil service disables its job.
func NewCronService(cfg config.CronConfig, horizonEnabled bool, availability *AvailabilityService, bookings *BookingService, payouts *PayoutService, audit *AuditService, logger *logrus.Logger) *CronService {
	// Create cron with seconds precision
	s := &CronService{
		cron:   cron.New(cron.WithSeconds()),
		jobs:   make(map[string]*cronJob),
		logger: logger,
	}

	if availability != nil && horizonEnabled {
		s.register(JobHorizonRoll, cfg.HorizonSchedule, func(ctx context.Context) (int64, error) {
			n, err := availability.RollForward(ctx)
			return int64(n), err
		})
	}
	if bookings != nil {
		s.register(JobCompleteStays, cfg.CompletionSchedule, bookings.CompleteEnded)
	}
	if payouts != nil {
		s.register(JobPayoutDispatch, cfg.PayoutSchedule, func(ctx context.Context) (int64, error) {
			n, err := payouts.DispatchRequested(ctx)
			return int64(n), err
		})
	}
	if audit != nil {
		// "0 0 4 * * 0" = At 4:00 AM every Sunday
		s.register(JobAuditCleanup, "0 0 4 * * 0", func(ctx context.Context) (int64, error) {
			return audit.CleanupOldAuditLogs(ctx, auditRetention)
		})
	}

	return s
}

func (s *CronService) register(name, schedule string, run func(ctx context.Context) (int64, error)) {
	s.jobs[name] = &cronJob{name: name, schedule: schedule, run: run}
}

// Start schedules all registered jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	for _, name := range s.jobNames() {
		job := s.jobs[name]
		id, err := s.cron.AddFunc(job.schedule, func() { s.execute(job, "scheduled") })
		if err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", job.name, err)
		}
		job.entryID = id
		s.logger.WithFields(logrus.Fields{
			"job":      job.name,
			"schedule": job.schedule,
		}).Info("Scheduled job")
	}

	s.cron.Start()
	s.logger.Info("Cron service started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// RunJob runs a job immediately and returns the number of rows it touched
func (s *CronService) RunJob(name string) (int64, error) {
	job, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(job, "manual")
}

func (s *CronService) execute(job *cronJob, trigger string) (int64, error) {
	if _, busy := s.running.LoadOrStore(job.name, struct{}{}); busy {
		s.logger.WithField("job", job.name).Warn("Job already running, skipping")
		return 0, fmt.Errorf("%w: %s", ErrJobRunning, job.name)
	}
	defer s.running.Delete(job.name)

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	startTime := time.Now()
	log := s.logger.WithFields(logrus.Fields{
		"job":     job.name,
		"trigger": trigger,
	})
	log.Info("[CRON] Job started")

	affected, err := job.run(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Job failed")
		return affected, err
	}

	log.WithFields(logrus.Fields{
		"affected": affected,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Job finished")
	return affected, nil
}

func (s *CronService) jobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	jobs := make([]map[string]interface{}, 0, len(s.jobs))
	for _, name := range s.jobNames() {
		job := s.jobs[name]
		status := map[string]interface{}{
			"name":     job.name,
			"schedule": job.schedule,
		}
		if job.entryID != 0 {
			entry := s.cron.Entry(job.entryID)
			status["next_run"] = entry.Next
			status["prev_run"] = entry.Prev
		}
		jobs = append(jobs, status)
	}

	return map[string]interface{}{
		"running":   len(s.cron.Entries()) > 0,
		"job_count": len(jobs),
		"jobs":      jobs,
	}
}
