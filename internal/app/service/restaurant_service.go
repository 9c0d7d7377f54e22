package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrUnknownField       = errors.New("field cannot be edited")
	ErrSlugImmutable      = errors.New("slug cannot be changed")
	ErrInvalidFieldValue  = errors.New("invalid field value")
	ErrNoChanges          = errors.New("no changes supplied")
)

type RestaurantService interface {
	ListRestaurants(filter repository.RestaurantFilter) ([]model.Restaurant, int64, error)
	GetRestaurant(id uint) (*model.Restaurant, error)
	GetRestaurantBySlug(slug string) (*model.Restaurant, error)
	UpdateRestaurant(id uint, changes map[string]interface{}, actor string) (*model.Restaurant, error)
	SetOverrides(id uint, overrides map[string]bool, actor string) (*model.Restaurant, error)
	CountBySource() ([]repository.SourceCount, error)
}

type restaurantService struct {
	restaurantRepo repository.RestaurantRepository
	audit          AuditService
}

func NewRestaurantService(restaurantRepo repository.RestaurantRepository, audit AuditService) RestaurantService {
	return &restaurantService{
		restaurantRepo: restaurantRepo,
		audit:          audit,
	}
}

func (s *restaurantService) ListRestaurants(filter repository.RestaurantFilter) ([]model.Restaurant, int64, error) {
	return s.restaurantRepo.FindAll(filter)
}

func (s *restaurantService) GetRestaurant(id uint) (*model.Restaurant, error) {
	restaurant, err := s.restaurantRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	return restaurant, nil
}

func (s *restaurantService) GetRestaurantBySlug(slug string) (*model.Restaurant, error) {
	restaurant, err := s.restaurantRepo.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}
	return restaurant, nil
}

// UpdateRestaurant applies an administrator edit and locks every edited field
// against automated sync. lastVerified is left alone.
func (s *restaurantService) UpdateRestaurant(id uint, changes map[string]interface{}, actor string) (*model.Restaurant, error) {
	if len(changes) == 0 {
		return nil, ErrNoChanges
	}

	restaurant, err := s.GetRestaurant(id)
	if err != nil {
		return nil, err
	}

	edited := *restaurant
	fields := make([]string, 0, len(changes))
	for field, value := range changes {
		if field == model.FieldSlug {
			return nil, ErrSlugImmutable
		}
		if !model.IsEditableField(field) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if err := setField(&edited, field, value); err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	overrides := model.AdminOverrides{}
	for k, v := range restaurant.AdminOverrides {
		overrides[k] = v
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for _, field := range fields {
		value, _ := edited.FieldValue(field)
		updates[field] = value
		overrides[field] = true
	}
	updates["admin_overrides"] = overrides

	if err := s.restaurantRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}

	logger.Info("Restaurant edited by admin", map[string]interface{}{
		"restaurant_id": id,
		"actor":         actor,
		"fields":        fields,
	})
	s.audit.Record(model.ActionRestaurantAdminEdit, model.EntityRestaurant, entityID(restaurant), map[string]interface{}{
		"actor":  actor,
		"fields": fields,
		"values": changes,
	})

	return s.GetRestaurant(id)
}

// SetOverrides locks (true) or unlocks (false) fields without editing values.
func (s *restaurantService) SetOverrides(id uint, overrides map[string]bool, actor string) (*model.Restaurant, error) {
	if len(overrides) == 0 {
		return nil, ErrNoChanges
	}

	restaurant, err := s.GetRestaurant(id)
	if err != nil {
		return nil, err
	}

	next := model.AdminOverrides{}
	for k, v := range restaurant.AdminOverrides {
		if v {
			next[k] = true
		}
	}
	for field, locked := range overrides {
		if !model.IsEditableField(field) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if locked {
			next[field] = true
		} else {
			delete(next, field)
		}
	}

	if err := s.restaurantRepo.UpdateFields(id, map[string]interface{}{"admin_overrides": next}); err != nil {
		return nil, err
	}

	s.audit.Record(model.ActionRestaurantAdminEdit, model.EntityRestaurant, entityID(restaurant), map[string]interface{}{
		"actor":     actor,
		"overrides": overrides,
		"locked":    next.LockedFields(),
	})

	return s.GetRestaurant(id)
}

func (s *restaurantService) CountBySource() ([]repository.SourceCount, error) {
	return s.restaurantRepo.CountBySource()
}

// setField assigns a JSON-decoded value to one editable field.
func setField(r *model.Restaurant, field string, value interface{}) error {
	invalid := func() error {
		return fmt.Errorf("%w: %s", ErrInvalidFieldValue, field)
	}

	switch field {
	case model.FieldName:
		v, ok := value.(string)
		if !ok || strings.TrimSpace(v) == "" {
			return invalid()
		}
		r.Name = strings.TrimSpace(v)
	case model.FieldDescription, model.FieldAddress, model.FieldCity, model.FieldState, model.FieldZipCode,
		model.FieldPhone, model.FieldWebsite, model.FieldEmail, model.FieldCategories, model.FieldCuisineTypes,
		model.FieldHours, model.FieldPhotos, model.FieldLogoURL, model.FieldHeroImage:
		v, ok := value.(string)
		if !ok {
			return invalid()
		}
		*stringField(r, field) = v
	case model.FieldLatitude, model.FieldLongitude, model.FieldRating:
		v, ok := value.(float64)
		if !ok || math.IsNaN(v) {
			return invalid()
		}
		if field == model.FieldRating && (v < 0 || v > 5) {
			return invalid()
		}
		switch field {
		case model.FieldLatitude:
			r.Latitude = v
		case model.FieldLongitude:
			r.Longitude = v
		default:
			r.Rating = v
		}
	case model.FieldReviewCount:
		v, ok := value.(float64)
		if !ok || v < 0 || v != math.Trunc(v) {
			return invalid()
		}
		r.ReviewCount = int(v)
	case model.FieldFeatured, model.FieldVerified, model.FieldActive:
		v, ok := value.(bool)
		if !ok {
			return invalid()
		}
		switch field {
		case model.FieldFeatured:
			r.Featured = v
		case model.FieldVerified:
			r.Verified = v
		default:
			r.Active = v
		}
	case model.FieldPriceLevel:
		v, ok := value.(string)
		if !ok {
			return invalid()
		}
		switch level := model.PriceLevel(strings.ToUpper(v)); level {
		case model.PriceBudget, model.PriceModerate, model.PriceUpscale, model.PricePremium:
			r.PriceLevel = level
		default:
			return invalid()
		}
	case model.FieldMetadata:
		raw, err := json.Marshal(value)
		if err != nil {
			return invalid()
		}
		var meta model.RestaurantMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return invalid()
		}
		r.Metadata = meta
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func stringField(r *model.Restaurant, field string) *string {
	switch field {
	case model.FieldDescription:
		return &r.Description
	case model.FieldAddress:
		return &r.Address
	case model.FieldCity:
		return &r.City
	case model.FieldState:
		return &r.State
	case model.FieldZipCode:
		return &r.ZipCode
	case model.FieldPhone:
		return &r.Phone
	case model.FieldWebsite:
		return &r.Website
	case model.FieldEmail:
		return &r.Email
	case model.FieldCategories:
		return &r.Categories
	case model.FieldCuisineTypes:
		return &r.CuisineTypes
	case model.FieldHours:
		return &r.Hours
	case model.FieldPhotos:
		return &r.Photos
	case model.FieldLogoURL:
		return &r.LogoURL
	case model.FieldHeroImage:
		return &r.HeroImage
	}
	return nil
}
