package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	apperrors "github.com/ekaty/ekaty-backend/internal/errors"
	"github.com/ekaty/ekaty-backend/internal/middleware"
	ws "github.com/ekaty/ekaty-backend/internal/websocket"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
)

type SyncController struct {
	syncService  service.SyncService
	usageService service.RateLimiterService
	auditService service.AuditService
	hub          *ws.ProgressHub
	upgrader     gorillaws.Upgrader

	// background runs outlive the request
	baseCtx context.Context
	wg      sync.WaitGroup
}

func NewSyncController(
	baseCtx context.Context,
	syncService service.SyncService,
	usageService service.RateLimiterService,
	auditService service.AuditService,
	hub *ws.ProgressHub,
	allowedOrigins []string,
) *SyncController {
	return &SyncController{
		syncService:  syncService,
		usageService: usageService,
		auditService: auditService,
		hub:          hub,
		upgrader:     ws.NewUpgrader(allowedOrigins),
		baseCtx:      baseCtx,
	}
}

type StartImportRequest struct {
	UpdateExisting *bool `json:"update_existing"`
	SkipDedup      bool  `json:"skip_dedup"`
}

// StartImport launches a Google Places import in the background
// POST /api/v1/admin/sync/import
func (ctrl *SyncController) StartImport(c *gin.Context) {
	var req StartImportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid import options")
			return
		}
	}
	opts := service.ImportOptions{UpdateExisting: true, SkipDedup: req.SkipDedup}
	if req.UpdateExisting != nil {
		opts.UpdateExisting = *req.UpdateExisting
	}

	if !ctrl.start(c, service.SyncKindImport, func(ctx context.Context) error {
		_, err := ctrl.syncService.ImportFromGooglePlaces(ctx, opts)
		return err
	}) {
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":         "Import started",
		"kind":            service.SyncKindImport,
		"update_existing": opts.UpdateExisting,
		"skip_dedup":      opts.SkipDedup,
	})
}

// StartRefresh launches a full-catalog refresh in the background
// POST /api/v1/admin/sync/refresh
func (ctrl *SyncController) StartRefresh(c *gin.Context) {
	if !ctrl.start(c, service.SyncKindRefresh, func(ctx context.Context) error {
		_, err := ctrl.syncService.RefreshListings(ctx)
		return err
	}) {
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Refresh started",
		"kind":    service.SyncKindRefresh,
	})
}

func (ctrl *SyncController) start(c *gin.Context, kind string, run func(ctx context.Context) error) bool {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.syncService.IsRunning() {
		apperrors.Conflict(c, apperrors.SyncInProgress, "A sync run is already in progress")
		return false
	}

	actor, _ := middleware.GetUserEmail(c)
	log.Info("Sync run requested", map[string]interface{}{
		"kind":  kind,
		"actor": actor,
	})

	ctrl.wg.Add(1)
	go func() {
		defer ctrl.wg.Done()
		if err := run(ctrl.baseCtx); err != nil {
			if errors.Is(err, service.ErrSyncInProgress) {
				logger.Warn("Sync run skipped, another run holds the lock", map[string]interface{}{
					"kind": kind,
				})
				return
			}
			logger.Error("Background sync run failed", err, map[string]interface{}{
				"kind":  kind,
				"actor": actor,
			})
		}
	}()
	return true
}

// Wait blocks until background runs started by this controller finish.
func (ctrl *SyncController) Wait() {
	ctrl.wg.Wait()
}

// GetStatus reports whether a run is in progress
// GET /api/v1/admin/sync/status
func (ctrl *SyncController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running": ctrl.syncService.IsRunning(),
	})
}

// GetUsage returns today's provider quota usage
// GET /api/v1/admin/sync/usage
func (ctrl *SyncController) GetUsage(c *gin.Context) {
	stats, err := ctrl.usageService.GetUsageStats()
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to load usage stats", err)
		apperrors.ParseAndRespond(c, err, "usage")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"usage": stats,
	})
}

// ListAuditLogs pages through the audit ledger
// GET /api/v1/admin/audit-logs?action=&entity=&entity_id=&page=&page_size=
func (ctrl *SyncController) ListAuditLogs(c *gin.Context) {
	filter := repository.AuditLogFilter{
		Action:   c.Query("action"),
		Entity:   c.Query("entity"),
		EntityID: c.Query("entity_id"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	logs, total, err := ctrl.auditService.List(filter)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list audit logs", err)
		apperrors.ParseAndRespond(c, err, "audit")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": logs,
		"count":      len(logs),
		"total":      total,
	})
}

// StreamProgress upgrades to a websocket that receives sync progress events
// GET /api/v1/admin/sync/ws?token=
func (ctrl *SyncController) StreamProgress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	email, _ := middleware.GetUserEmail(c)
	ctrl.hub.Serve(conn, email)
}
