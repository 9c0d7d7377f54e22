package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type capturingMailer struct {
	to      []string
	subject []string
	body    []string
	err     error
}

func (m *capturingMailer) Send(to []string, subject, body string) error {
	m.to = to
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return m.err
}

func TestAlertService_RecordsAndMails(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	audit := NewAuditService(repository.NewAuditLogRepository(testDB))
	mailer := &capturingMailer{err: errors.New("smtp down")}
	alerts := NewAlertService(audit, mailer, []string{"ops@ekaty.test"})

	err = alerts.SendAlert(model.ActionHealthCheckFailed, "Health check failed", "Database unreachable.",
		map[string]interface{}{"database": "connection refused"})
	assert.Error(t, err)

	require.Len(t, mailer.subject, 1)
	assert.Equal(t, "[eKaty Alert] Health check failed", mailer.subject[0])
	assert.Contains(t, mailer.body[0], "Alert: HEALTH_CHECK_FAILED")
	assert.Contains(t, mailer.body[0], "database: connection refused")

	var entry model.AuditLog
	require.NoError(t, testDB.Where("action = ?", model.ActionHealthCheckFailed).First(&entry).Error)
	assert.Equal(t, model.EntitySystem, entry.Entity)
	assert.Equal(t, "Health check failed", entry.Changes["subject"])
}

func TestAlertService_NoMailer(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	alerts := NewAlertService(NewAuditService(repository.NewAuditLogRepository(testDB)), nil, nil)
	assert.NoError(t, alerts.SendAlert(model.ActionQuotaWarning, "s", "b", nil))
}

func setupHealthTest(t *testing.T, pingErr error, limit int) (*gorm.DB, *healthService, *capturingMailer, RateLimiterService) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	audit := NewAuditService(repository.NewAuditLogRepository(testDB))
	usage := NewRateLimiterService(repository.NewApiUsageRepository(testDB), limit)
	mailer := &capturingMailer{}
	alerts := NewAlertService(audit, mailer, []string{"ops@ekaty.test"})

	svc := NewHealthService(func() error { return pingErr }, usage, audit, alerts, 48*time.Hour).(*healthService)
	return testDB, svc, mailer, usage
}

func checkByName(status *HealthStatus, name string) HealthCheck {
	for _, c := range status.Checks {
		if c.Name == name {
			return c
		}
	}
	return HealthCheck{}
}

func TestHealthService_HealthyNoAlert(t *testing.T) {
	_, svc, mailer, _ := setupHealthTest(t, nil, 100)

	status, err := svc.CheckAndAlert()
	require.NoError(t, err)
	assert.True(t, status.Healthy)
	assert.Len(t, status.Checks, 3)
	assert.Empty(t, mailer.subject)
}

func TestHealthService_DatabaseDown(t *testing.T) {
	testDB, svc, mailer, _ := setupHealthTest(t, errors.New("connection refused"), 100)

	status, err := svc.CheckAndAlert()
	require.NoError(t, err)
	assert.False(t, status.Healthy)
	assert.False(t, checkByName(status, "database").Healthy)
	assert.Equal(t, []string{"[eKaty Alert] Health check failed"}, mailer.subject)

	var alerts int64
	require.NoError(t, testDB.Model(&model.AuditLog{}).
		Where("action = ?", model.ActionHealthCheckFailed).Count(&alerts).Error)
	assert.Equal(t, int64(1), alerts)
}

func TestHealthService_QuotaThresholds(t *testing.T) {
	_, svc, mailer, usage := setupHealthTest(t, nil, 10)

	for i := 0; i < 8; i++ {
		require.NoError(t, usage.CheckAndIncrementUsage())
	}
	status, err := svc.CheckAndAlert()
	require.NoError(t, err)
	assert.True(t, checkByName(status, "api_quota").Healthy)
	assert.Equal(t, []string{"[eKaty Alert] Google Places quota warning"}, mailer.subject)

	// same usage day: no second warning
	_, err = svc.CheckAndAlert()
	require.NoError(t, err)
	assert.Len(t, mailer.subject, 1)

	require.NoError(t, usage.CheckAndIncrementUsage())
	status = svc.Check()
	assert.False(t, checkByName(status, "api_quota").Healthy)
	assert.False(t, status.Healthy)
}

func TestHealthService_StaleSync(t *testing.T) {
	testDB, svc, _, _ := setupHealthTest(t, nil, 100)

	require.NoError(t, testDB.Create(&model.AuditLog{
		Action:    model.ActionPlacesImport,
		Entity:    model.EntitySystem,
		CreatedAt: time.Now().Add(-72 * time.Hour),
	}).Error)

	status := svc.Check()
	last := checkByName(status, "last_sync")
	assert.False(t, last.Healthy)
	assert.Contains(t, last.Message, model.ActionPlacesImport)

	svc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	assert.True(t, checkByName(svc.Check(), "last_sync").Healthy)
}

func TestHealthService_QuotaWarningNewDay(t *testing.T) {
	testDB, svc, mailer, usage := setupHealthTest(t, nil, 10)

	require.NoError(t, testDB.Create(&model.AuditLog{
		Action:  model.ActionQuotaWarning,
		Entity:  model.EntitySystem,
		Changes: map[string]interface{}{"details": map[string]interface{}{"date": "2020-01-01"}},
	}).Error)

	for i := 0; i < 8; i++ {
		require.NoError(t, usage.CheckAndIncrementUsage())
	}
	_, err := svc.CheckAndAlert()
	require.NoError(t, err)
	assert.Equal(t, []string{"[eKaty Alert] Google Places quota warning"}, mailer.subject)

	var warnings int64
	require.NoError(t, testDB.Model(&model.AuditLog{}).
		Where("action = ?", model.ActionQuotaWarning).Count(&warnings).Error)
	assert.Equal(t, int64(2), warnings)
}
