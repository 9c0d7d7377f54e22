package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Schedule holds the cron specs; an empty spec disables that job.
type Schedule struct {
	RefreshCron     string
	StaleCron       string
	CleanupCron     string
	HealthCron      string
	StaleAfter      time.Duration
	StaleBatchLimit int
}

// SyncScheduler runs the recurring restaurant maintenance jobs.
type SyncScheduler struct {
	cron     *cron.Cron
	schedule Schedule
	ctx      context.Context

	syncService     service.SyncService
	importerService service.ImporterService
	usageService    service.RateLimiterService
	healthService   service.HealthService
}

func NewSyncScheduler(
	ctx context.Context,
	schedule Schedule,
	syncService service.SyncService,
	importerService service.ImporterService,
	usageService service.RateLimiterService,
	healthService service.HealthService,
) *SyncScheduler {
	return &SyncScheduler{
		// overlapping runs of the same job are skipped
		cron:            cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule:        schedule,
		ctx:             ctx,
		syncService:     syncService,
		importerService: importerService,
		usageService:    usageService,
		healthService:   healthService,
	}
}

// Start registers every configured job and starts the cron runner.
func (s *SyncScheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"listings_refresh", s.schedule.RefreshCron, s.RunRefresh},
		{"stale_refresh", s.schedule.StaleCron, s.RunStaleRefresh},
		{"usage_cleanup", s.schedule.CleanupCron, s.RunUsageCleanup},
		{"health_check", s.schedule.HealthCron, s.RunHealthCheck},
	}

	for _, job := range jobs {
		if job.spec == "" {
			logger.Info("Scheduled job disabled", map[string]interface{}{
				"job": job.name,
			})
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			logger.Error("Failed to add cron job", err, map[string]interface{}{
				"job":  job.name,
				"spec": job.spec,
			})
			return err
		}
		logger.Info("Scheduled job registered", map[string]interface{}{
			"job":  job.name,
			"spec": job.spec,
		})
	}

	s.cron.Start()
	logger.Info("Sync scheduler started")
	return nil
}

// Stop stops the runner and waits for running jobs to return.
func (s *SyncScheduler) Stop() {
	logger.Info("Stopping sync scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Sync scheduler stopped")
}

func (s *SyncScheduler) RunRefresh() {
	logger.Info("Starting scheduled listings refresh")

	run, err := s.syncService.RefreshListings(s.ctx)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			logger.Warn("Scheduled refresh skipped, a sync is already running")
			return
		}
		logger.Error("Scheduled listings refresh failed", err)
		return
	}

	fields := map[string]interface{}{"run_id": run.RunID}
	if run.Summary != nil {
		fields["updated"] = run.Summary.Updated
		fields["failed"] = run.Summary.Failed
	}
	logger.Info("Scheduled listings refresh finished", fields)
}

// RunStaleRefresh only re-stamps lastVerified on stale rows; it makes no provider calls.
func (s *SyncScheduler) RunStaleRefresh() {
	touched, err := s.importerService.UpdateStaleRestaurants(s.schedule.StaleAfter, s.schedule.StaleBatchLimit)
	if err != nil {
		logger.Error("Scheduled stale refresh failed", err)
		return
	}
	logger.Info("Scheduled stale refresh finished", map[string]interface{}{
		"touched": touched,
	})
}

func (s *SyncScheduler) RunUsageCleanup() {
	deleted, err := s.usageService.CleanupOldUsage()
	if err != nil {
		logger.Error("Scheduled usage cleanup failed", err)
		return
	}
	logger.Info("Scheduled usage cleanup finished", map[string]interface{}{
		"deleted": deleted,
	})
}

func (s *SyncScheduler) RunHealthCheck() {
	status, err := s.healthService.CheckAndAlert()
	if err != nil {
		logger.Error("Failed to send health alert", err)
	}
	if status != nil && !status.Healthy {
		logger.Warn("Health check reported failures", map[string]interface{}{
			"checks": len(status.Checks),
		})
	}
}
