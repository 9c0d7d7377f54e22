package router

import (
	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/internal/app/controller"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController       *controller.AuthController
	restaurantController *controller.RestaurantController
	syncController       *controller.SyncController
	healthController     *controller.HealthController
	authMiddleware       *middleware.AuthMiddleware
	config               *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	restaurantController *controller.RestaurantController,
	syncController *controller.SyncController,
	healthController *controller.HealthController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:       authController,
		restaurantController: restaurantController,
		syncController:       syncController,
		healthController:     healthController,
		authMiddleware:       authMiddleware,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.healthController.Liveness)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(service.RoleAdmin))
		{
			restaurants := admin.Group("/restaurants")
			{
				restaurants.GET("", r.restaurantController.ListRestaurants)
				restaurants.GET("/stats", r.restaurantController.CountBySource)
				restaurants.GET("/:id", r.restaurantController.GetRestaurant)
				restaurants.PUT("/:id", r.restaurantController.UpdateRestaurant)
				restaurants.PUT("/:id/overrides", r.restaurantController.UpdateOverrides)
			}

			sync := admin.Group("/sync")
			{
				sync.POST("/import", r.syncController.StartImport)
				sync.POST("/refresh", r.syncController.StartRefresh)
				sync.GET("/status", r.syncController.GetStatus)
				sync.GET("/usage", r.syncController.GetUsage)
				sync.GET("/ws", r.syncController.StreamProgress)
			}

			admin.GET("/audit-logs", r.syncController.ListAuditLogs)
			admin.GET("/health", r.healthController.Detailed)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
