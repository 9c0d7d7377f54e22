package service

import (
	"fmt"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
)

const (
	quotaWarnPercent = 80.0
	quotaFailPercent = 90.0
)

// Pinger checks that the database answers.
type Pinger func() error

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Checks    []HealthCheck `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h *HealthStatus) failed() []HealthCheck {
	var out []HealthCheck
	for _, c := range h.Checks {
		if !c.Healthy {
			out = append(out, c)
		}
	}
	return out
}

type HealthService interface {
	Check() *HealthStatus
	CheckAndAlert() (*HealthStatus, error)
}

type healthService struct {
	ping       Pinger
	usage      RateLimiterService
	audit      AuditService
	alerts     AlertService
	maxSyncAge time.Duration
	now        func() time.Time
}

func NewHealthService(ping Pinger, usage RateLimiterService, audit AuditService, alerts AlertService, maxSyncAge time.Duration) HealthService {
	return &healthService{
		ping:       ping,
		usage:      usage,
		audit:      audit,
		alerts:     alerts,
		maxSyncAge: maxSyncAge,
		now:        time.Now,
	}
}

func (s *healthService) Check() *HealthStatus {
	status := &HealthStatus{Healthy: true, CheckedAt: s.now()}
	add := func(c HealthCheck) {
		status.Checks = append(status.Checks, c)
		if !c.Healthy {
			status.Healthy = false
		}
	}

	if err := s.ping(); err != nil {
		add(HealthCheck{Name: "database", Message: err.Error()})
	} else {
		add(HealthCheck{Name: "database", Healthy: true, Message: "ok"})
	}

	add(s.checkQuota())
	add(s.checkLastSync())
	return status
}

func (s *healthService) checkQuota() HealthCheck {
	stats, err := s.usage.GetUsageStats()
	if err != nil {
		return HealthCheck{Name: "api_quota", Message: err.Error()}
	}
	msg := fmt.Sprintf("%d/%d requests (%.1f%%)", stats.RequestCount, stats.DailyLimit, stats.PercentUsed)
	return HealthCheck{Name: "api_quota", Healthy: stats.PercentUsed < quotaFailPercent, Message: msg}
}

func (s *healthService) checkLastSync() HealthCheck {
	latest, err := s.audit.Latest(model.ActionPlacesImport, model.ActionListingsRefresh)
	if err != nil {
		return HealthCheck{Name: "last_sync", Message: err.Error()}
	}
	if latest == nil {
		return HealthCheck{Name: "last_sync", Healthy: true, Message: "no sync has run yet"}
	}
	age := s.now().Sub(latest.CreatedAt)
	msg := fmt.Sprintf("last %s %s ago", latest.Action, age.Round(time.Minute))
	if s.maxSyncAge > 0 && age > s.maxSyncAge {
		return HealthCheck{Name: "last_sync", Message: msg}
	}
	return HealthCheck{Name: "last_sync", Healthy: true, Message: msg}
}

// CheckAndAlert raises HEALTH_CHECK_FAILED for failed checks and
// API_QUOTA_WARNING once per usage day when usage passes the warning threshold.
func (s *healthService) CheckAndAlert() (*HealthStatus, error) {
	status := s.Check()

	if stats, err := s.usage.GetUsageStats(); err == nil && stats.PercentUsed >= quotaWarnPercent && !s.quotaWarned(stats.Date) {
		if err := s.alerts.SendAlert(model.ActionQuotaWarning,
			"Google Places quota warning",
			fmt.Sprintf("Google Places usage is at %.1f%% of the daily limit.", stats.PercentUsed),
			map[string]interface{}{
				"date":          stats.Date,
				"request_count": stats.RequestCount,
				"daily_limit":   stats.DailyLimit,
			}); err != nil {
			return status, err
		}
	}

	failed := status.failed()
	if len(failed) == 0 {
		return status, nil
	}

	details := make(map[string]interface{}, len(failed))
	for _, c := range failed {
		details[c.Name] = c.Message
	}
	err := s.alerts.SendAlert(model.ActionHealthCheckFailed,
		"Health check failed",
		fmt.Sprintf("%d health check(s) failed.", len(failed)),
		details)
	return status, err
}

// quotaWarned reports whether a quota warning was already raised for date.
func (s *healthService) quotaWarned(date string) bool {
	latest, err := s.audit.Latest(model.ActionQuotaWarning)
	if err != nil || latest == nil {
		return false
	}
	details, ok := latest.Changes["details"].(map[string]interface{})
	if !ok {
		return false
	}
	return fmt.Sprint(details["date"]) == date
}
