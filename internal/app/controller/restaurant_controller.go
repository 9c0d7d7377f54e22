package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	apperrors "github.com/ekaty/ekaty-backend/internal/errors"
	"github.com/ekaty/ekaty-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type RestaurantController struct {
	restaurantService service.RestaurantService
}

func NewRestaurantController(restaurantService service.RestaurantService) *RestaurantController {
	return &RestaurantController{
		restaurantService: restaurantService,
	}
}

type UpdateOverridesRequest struct {
	Overrides map[string]bool `json:"overrides" binding:"required"`
}

// ListRestaurants lists restaurants with filters
// GET /api/v1/admin/restaurants?search=&source=&cuisine=&active=&featured=&page=&page_size=
func (ctrl *RestaurantController) ListRestaurants(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.RestaurantFilter{
		Search:  c.Query("search"),
		Source:  c.Query("source"),
		Cuisine: c.Query("cuisine"),
	}
	var err error
	if filter.Active, err = queryBool(c, "active"); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "active must be true or false")
		return
	}
	if filter.Featured, err = queryBool(c, "featured"); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "featured must be true or false")
		return
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	restaurants, total, err := ctrl.restaurantService.ListRestaurants(filter)
	if err != nil {
		log.Error("Failed to list restaurants", err)
		apperrors.ParseAndRespond(c, err, "list restaurants")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurants": restaurants,
		"count":       len(restaurants),
		"total":       total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
	})
}

// GetRestaurant returns one restaurant
// GET /api/v1/admin/restaurants/:id
func (ctrl *RestaurantController) GetRestaurant(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	restaurant, err := ctrl.restaurantService.GetRestaurant(id)
	if err != nil {
		ctrl.respondRestaurantError(c, err, "get restaurant")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant,
	})
}

// UpdateRestaurant edits fields and locks them against automated sync
// PUT /api/v1/admin/restaurants/:id
func (ctrl *RestaurantController) UpdateRestaurant(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var changes map[string]interface{}
	if err := c.ShouldBindJSON(&changes); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Request body must be a JSON object")
		return
	}

	actor, _ := middleware.GetUserEmail(c)
	restaurant, err := ctrl.restaurantService.UpdateRestaurant(id, changes, actor)
	if err != nil {
		ctrl.respondRestaurantError(c, err, "update restaurant")
		return
	}

	log.Info("Restaurant edited by admin", map[string]interface{}{
		"restaurant_id": id,
		"actor":         actor,
		"fields":        len(changes),
	})

	c.JSON(http.StatusOK, gin.H{
		"message":    "Restaurant updated",
		"restaurant": restaurant,
	})
}

// UpdateOverrides locks or unlocks fields
// PUT /api/v1/admin/restaurants/:id/overrides
func (ctrl *RestaurantController) UpdateOverrides(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "overrides must map field names to booleans")
		return
	}

	actor, _ := middleware.GetUserEmail(c)
	restaurant, err := ctrl.restaurantService.SetOverrides(id, req.Overrides, actor)
	if err != nil {
		ctrl.respondRestaurantError(c, err, "update restaurant overrides")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Overrides updated",
		"admin_overrides": restaurant.AdminOverrides,
		"restaurant":      restaurant,
	})
}

// CountBySource returns per-source totals
// GET /api/v1/admin/restaurants/stats
func (ctrl *RestaurantController) CountBySource(c *gin.Context) {
	counts, err := ctrl.restaurantService.CountBySource()
	if err != nil {
		apperrors.ParseAndRespond(c, err, "count restaurants")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sources": counts,
	})
}

func (ctrl *RestaurantController) respondRestaurantError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, service.ErrRestaurantNotFound):
		apperrors.NotFound(c, apperrors.RestaurantNotFound, "Restaurant not found")
	case errors.Is(err, service.ErrSlugImmutable):
		apperrors.BadRequest(c, apperrors.RestaurantSlugImmutable, err.Error())
	case errors.Is(err, service.ErrUnknownField):
		apperrors.BadRequest(c, apperrors.ValidationUnknownField, err.Error())
	case errors.Is(err, service.ErrInvalidFieldValue):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	case errors.Is(err, service.ErrNoChanges):
		apperrors.BadRequest(c, apperrors.RestaurantNoChanges, "No changes supplied")
	default:
		middleware.GetLoggerFromContext(c).Error("Restaurant request failed", err, map[string]interface{}{
			"context": context,
		})
		apperrors.ParseAndRespond(c, err, context)
	}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
