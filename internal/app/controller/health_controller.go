package controller

import (
	"net/http"

	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/gin-gonic/gin"
)

type HealthController struct {
	healthService service.HealthService
}

func NewHealthController(healthService service.HealthService) *HealthController {
	return &HealthController{
		healthService: healthService,
	}
}

// Liveness is the public probe
// GET /health
func (ctrl *HealthController) Liveness(c *gin.Context) {
	status := ctrl.healthService.Check()
	code := http.StatusOK
	text := "ok"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		text = "degraded"
	}
	c.JSON(code, gin.H{
		"status":     text,
		"checked_at": status.CheckedAt,
	})
}

// Detailed returns every check with its message
// GET /api/v1/admin/health
func (ctrl *HealthController) Detailed(c *gin.Context) {
	status := ctrl.healthService.Check()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
