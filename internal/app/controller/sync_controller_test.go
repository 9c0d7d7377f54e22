package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/internal/db"
	ws "github.com/ekaty/ekaty-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncService struct {
	running     atomic.Bool
	imports     chan service.ImportOptions
	refreshes   chan struct{}
	importError error
}

func newFakeSyncService() *fakeSyncService {
	return &fakeSyncService{
		imports:   make(chan service.ImportOptions, 4),
		refreshes: make(chan struct{}, 4),
	}
}

func (f *fakeSyncService) ImportFromGooglePlaces(ctx context.Context, opts service.ImportOptions) (*service.ImportSummary, error) {
	f.imports <- opts
	return &service.ImportSummary{}, f.importError
}

func (f *fakeSyncService) RefreshListings(ctx context.Context) (*service.RefreshRun, error) {
	f.refreshes <- struct{}{}
	return &service.RefreshRun{}, nil
}

func (f *fakeSyncService) IsRunning() bool { return f.running.Load() }

type fakeUsage struct{ err error }

func (f fakeUsage) CheckAndIncrementUsage() error { return nil }
func (f fakeUsage) CleanupOldUsage() (int64, error) { return 0, nil }
func (f fakeUsage) GetUsageStats() (*model.UsageStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.UsageStats{Date: "2026-09-14", RequestCount: 120, DailyLimit: 45000, Remaining: 44880}, nil
}

func setupSyncControllerTest(t *testing.T, usage service.RateLimiterService) (*gin.Engine, *fakeSyncService, *SyncController, repository.AuditLogRepository) {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	auditRepo := repository.NewAuditLogRepository(testDB)
	syncSvc := newFakeSyncService()
	ctrl := NewSyncController(context.Background(), syncSvc, usage, service.NewAuditService(auditRepo), ws.NewProgressHub(), nil)

	router := gin.New()
	router.POST("/sync/import", ctrl.StartImport)
	router.POST("/sync/refresh", ctrl.StartRefresh)
	router.GET("/sync/status", ctrl.GetStatus)
	router.GET("/sync/usage", ctrl.GetUsage)
	router.GET("/audit-logs", ctrl.ListAuditLogs)

	return router, syncSvc, ctrl, auditRepo
}

func receive[T any](t *testing.T, ch <-chan T) T {
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("background run did not start")
	}
	var zero T
	return zero
}

func TestSyncController_StartImport(t *testing.T) {
	router, syncSvc, ctrl, _ := setupSyncControllerTest(t, fakeUsage{})

	w := doJSON(router, http.MethodPost, "/sync/import", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	opts := receive(t, syncSvc.imports)
	assert.True(t, opts.UpdateExisting)
	assert.False(t, opts.SkipDedup)

	w = doJSON(router, http.MethodPost, "/sync/import", map[string]bool{"update_existing": false, "skip_dedup": true})
	assert.Equal(t, http.StatusAccepted, w.Code)
	opts = receive(t, syncSvc.imports)
	assert.False(t, opts.UpdateExisting)
	assert.True(t, opts.SkipDedup)

	ctrl.Wait()
}

func TestSyncController_BackgroundFailureIsLogged(t *testing.T) {
	router, syncSvc, ctrl, _ := setupSyncControllerTest(t, fakeUsage{})
	syncSvc.importError = service.ErrNoRestaurantsFound

	w := doJSON(router, http.MethodPost, "/sync/import", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	receive(t, syncSvc.imports)
	ctrl.Wait()
}

func TestSyncController_ConflictWhileRunning(t *testing.T) {
	router, syncSvc, _, _ := setupSyncControllerTest(t, fakeUsage{})
	syncSvc.running.Store(true)

	for _, path := range []string{"/sync/import", "/sync/refresh"} {
		w := doJSON(router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "SYNC_IN_PROGRESS")
	}

	w := doJSON(router, http.MethodGet, "/sync/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running":true}`, w.Body.String())
}

func TestSyncController_StartRefresh(t *testing.T) {
	router, syncSvc, ctrl, _ := setupSyncControllerTest(t, fakeUsage{})

	w := doJSON(router, http.MethodPost, "/sync/refresh", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	receive(t, syncSvc.refreshes)
	ctrl.Wait()
}

func TestSyncController_GetUsage(t *testing.T) {
	router, _, _, _ := setupSyncControllerTest(t, fakeUsage{})

	w := doJSON(router, http.MethodGet, "/sync/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Usage model.UsageStats `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 120, body.Usage.RequestCount)

	router, _, _, _ = setupSyncControllerTest(t, fakeUsage{err: errors.New("db down")})
	w = doJSON(router, http.MethodGet, "/sync/usage", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSyncController_ListAuditLogs(t *testing.T) {
	router, _, _, auditRepo := setupSyncControllerTest(t, fakeUsage{})
	require.NoError(t, auditRepo.Create(&model.AuditLog{Action: model.ActionPlacesImport, Entity: model.EntitySystem}))
	require.NoError(t, auditRepo.Create(&model.AuditLog{Action: model.ActionRestaurantSync, Entity: model.EntityRestaurant, EntityID: "7"}))

	w := doJSON(router, http.MethodGet, "/audit-logs?entity=Restaurant", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"total":1`))
	assert.Contains(t, w.Body.String(), model.ActionRestaurantSync)
}
