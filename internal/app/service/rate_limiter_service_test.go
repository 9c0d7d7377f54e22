package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/ekaty/ekaty-backend/pkg/places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRateLimiterTest(t *testing.T, limit int) (*gorm.DB, *rateLimiterService) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	svc := NewRateLimiterService(repository.NewApiUsageRepository(testDB), limit).(*rateLimiterService)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC) }
	return testDB, svc
}

func TestRateLimiterService_QuotaBoundary(t *testing.T) {
	testDB, svc := setupRateLimiterTest(t, 5)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.CheckAndIncrementUsage(), "call %d", i+1)
	}

	err := svc.CheckAndIncrementUsage()
	assert.ErrorIs(t, err, places.ErrQuotaExceeded)
	assert.True(t, IsQuotaExceeded(err))

	var usage model.ApiUsage
	require.NoError(t, testDB.Where("date = ?", "2026-06-15").First(&usage).Error)
	assert.Equal(t, 5, usage.RequestCount)
}

func TestRateLimiterService_NewDayStartsFresh(t *testing.T) {
	_, svc := setupRateLimiterTest(t, 1)

	require.NoError(t, svc.CheckAndIncrementUsage())
	assert.Error(t, svc.CheckAndIncrementUsage())

	svc.now = func() time.Time { return time.Date(2026, 6, 16, 0, 0, 1, 0, time.UTC) }
	assert.NoError(t, svc.CheckAndIncrementUsage())
}

type failingUsageRepo struct{}

func (failingUsageRepo) FindOrCreateByDate(string) (*model.ApiUsage, error) {
	return nil, errors.New("connection refused")
}
func (failingUsageRepo) FindByDate(string) (*model.ApiUsage, error) {
	return nil, errors.New("connection refused")
}
func (failingUsageRepo) IncrementByDate(string) error { return errors.New("connection refused") }
func (failingUsageRepo) DeleteBefore(string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRateLimiterService_FailsOpenOnStorageError(t *testing.T) {
	svc := NewRateLimiterService(failingUsageRepo{}, 10)
	assert.NoError(t, svc.CheckAndIncrementUsage())
}

func TestRateLimiterService_GetUsageStats(t *testing.T) {
	_, svc := setupRateLimiterTest(t, 200)

	stats, err := svc.GetUsageStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RequestCount)
	assert.Equal(t, 200, stats.Remaining)

	for i := 0; i < 50; i++ {
		require.NoError(t, svc.CheckAndIncrementUsage())
	}

	stats, err = svc.GetUsageStats()
	require.NoError(t, err)
	assert.Equal(t, "2026-06-15", stats.Date)
	assert.Equal(t, 50, stats.RequestCount)
	assert.Equal(t, 200, stats.DailyLimit)
	assert.Equal(t, 150, stats.Remaining)
	assert.InDelta(t, 25.0, stats.PercentUsed, 0.001)
}

func TestRateLimiterService_CleanupOldUsage(t *testing.T) {
	testDB, svc := setupRateLimiterTest(t, 10)

	for _, date := range []string{"2026-04-01", "2026-05-15", "2026-05-16", "2026-06-15"} {
		require.NoError(t, testDB.Create(&model.ApiUsage{Date: date, RequestCount: 3}).Error)
	}

	deleted, err := svc.CleanupOldUsage()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []model.ApiUsage
	require.NoError(t, testDB.Order("date ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, "2026-05-16", remaining[0].Date)
}
