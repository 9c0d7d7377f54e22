package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSync struct {
	refreshes int
	err       error
}

func (f *fakeSync) ImportFromGooglePlaces(ctx context.Context, opts service.ImportOptions) (*service.ImportSummary, error) {
	return nil, errors.New("not scheduled")
}

func (f *fakeSync) RefreshListings(ctx context.Context) (*service.RefreshRun, error) {
	f.refreshes++
	if f.err != nil {
		return nil, f.err
	}
	return &service.RefreshRun{RunID: "run", Summary: &service.RefreshSummary{Updated: 2}}, nil
}

func (f *fakeSync) IsRunning() bool { return false }

type fakeImporter struct {
	service.ImporterService
	threshold time.Duration
	limit     int
}

func (f *fakeImporter) UpdateStaleRestaurants(threshold time.Duration, limit int) (int64, error) {
	f.threshold = threshold
	f.limit = limit
	return 3, nil
}

type fakeUsage struct {
	service.RateLimiterService
	cleanups int
}

func (f *fakeUsage) CleanupOldUsage() (int64, error) {
	f.cleanups++
	return 1, nil
}

type fakeHealth struct {
	alerts int
}

func (f *fakeHealth) Check() *service.HealthStatus { return &service.HealthStatus{Healthy: true} }

func (f *fakeHealth) CheckAndAlert() (*service.HealthStatus, error) {
	f.alerts++
	return &service.HealthStatus{Healthy: false, Checks: []service.HealthCheck{{Name: "database"}}}, errors.New("smtp down")
}

func newTestScheduler(schedule Schedule) (*SyncScheduler, *fakeSync, *fakeImporter, *fakeUsage, *fakeHealth) {
	syncSvc := &fakeSync{}
	importer := &fakeImporter{}
	usage := &fakeUsage{}
	health := &fakeHealth{}
	return NewSyncScheduler(context.Background(), schedule, syncSvc, importer, usage, health), syncSvc, importer, usage, health
}

func TestSyncScheduler_Jobs(t *testing.T) {
	s, syncSvc, importer, usage, health := newTestScheduler(Schedule{StaleAfter: 30 * 24 * time.Hour, StaleBatchLimit: 50})

	s.RunRefresh()
	assert.Equal(t, 1, syncSvc.refreshes)

	syncSvc.err = service.ErrSyncInProgress
	s.RunRefresh()
	assert.Equal(t, 2, syncSvc.refreshes)

	s.RunStaleRefresh()
	assert.Equal(t, 30*24*time.Hour, importer.threshold)
	assert.Equal(t, 50, importer.limit)

	s.RunUsageCleanup()
	assert.Equal(t, 1, usage.cleanups)

	s.RunHealthCheck()
	assert.Equal(t, 1, health.alerts)
}

func TestSyncScheduler_StartStop(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(Schedule{
		RefreshCron: "0 3 * * *",
		CleanupCron: "30 0 * * *",
		HealthCron:  "@hourly",
	})
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 3)
	s.Stop()
}

func TestSyncScheduler_InvalidSpec(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(Schedule{RefreshCron: "not a cron"})
	assert.Error(t, s.Start())
}
