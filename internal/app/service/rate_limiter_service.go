package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/places"
)

const usageRetentionDays = 30

// RateLimiterService is the persisted daily quota shared by every process.
type RateLimiterService interface {
	CheckAndIncrementUsage() error
	GetUsageStats() (*model.UsageStats, error)
	CleanupOldUsage() (int64, error)
}

type rateLimiterService struct {
	usageRepo  repository.ApiUsageRepository
	dailyLimit int
	now        func() time.Time
}

func NewRateLimiterService(usageRepo repository.ApiUsageRepository, dailyLimit int) RateLimiterService {
	return &rateLimiterService{
		usageRepo:  usageRepo,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

func (s *rateLimiterService) today() string {
	return s.now().UTC().Format(model.UsageDateLayout)
}

// CheckAndIncrementUsage fails closed on quota and open on storage errors.
func (s *rateLimiterService) CheckAndIncrementUsage() error {
	date := s.today()

	usage, err := s.usageRepo.FindOrCreateByDate(date)
	if err != nil {
		logger.Warn("API usage check failed, allowing request", map[string]interface{}{
			"date":  date,
			"error": err.Error(),
		})
		return nil
	}

	if usage.RequestCount >= s.dailyLimit {
		logger.Warn("Daily API quota reached", map[string]interface{}{
			"date":        date,
			"count":       usage.RequestCount,
			"daily_limit": s.dailyLimit,
		})
		return fmt.Errorf("%w: %d/%d requests on %s", places.ErrQuotaExceeded, usage.RequestCount, s.dailyLimit, date)
	}

	if err := s.usageRepo.IncrementByDate(date); err != nil {
		logger.Warn("API usage increment failed, allowing request", map[string]interface{}{
			"date":  date,
			"error": err.Error(),
		})
	}
	return nil
}

func (s *rateLimiterService) GetUsageStats() (*model.UsageStats, error) {
	date := s.today()

	usage, err := s.usageRepo.FindByDate(date)
	if err != nil {
		return nil, err
	}

	count := 0
	if usage != nil {
		count = usage.RequestCount
	}
	remaining := s.dailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	var percent float64
	if s.dailyLimit > 0 {
		percent = float64(count) / float64(s.dailyLimit) * 100
	}

	return &model.UsageStats{
		Date:         date,
		RequestCount: count,
		DailyLimit:   s.dailyLimit,
		Remaining:    remaining,
		PercentUsed:  percent,
	}, nil
}

// CleanupOldUsage deletes rows older than 30 days.
func (s *rateLimiterService) CleanupOldUsage() (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -usageRetentionDays).Format(model.UsageDateLayout)

	deleted, err := s.usageRepo.DeleteBefore(cutoff)
	if err != nil {
		return 0, err
	}

	logger.Info("Cleaned up old API usage rows", map[string]interface{}{
		"before":  cutoff,
		"deleted": deleted,
	})
	return deleted, nil
}

// IsQuotaExceeded reports whether err is a quota breach.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, places.ErrQuotaExceeded)
}
