package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"time"
)

// PriceLevel internal price bucket
type PriceLevel string

const (
	PriceBudget   PriceLevel = "BUDGET"
	PriceModerate PriceLevel = "MODERATE"
	PriceUpscale  PriceLevel = "UPSCALE"
	PricePremium  PriceLevel = "PREMIUM"
)

// Restaurant provenance tags
const (
	SourceGooglePlaces = "google_places"
	SourceManualSeed   = "manual_seed"
)

// Field keys shared by adminOverrides, update payloads and column names.
const (
	FieldName         = "name"
	FieldSlug         = "slug"
	FieldDescription  = "description"
	FieldAddress      = "address"
	FieldCity         = "city"
	FieldState        = "state"
	FieldZipCode      = "zip_code"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldPhone        = "phone"
	FieldWebsite      = "website"
	FieldEmail        = "email"
	FieldCategories   = "categories"
	FieldCuisineTypes = "cuisine_types"
	FieldHours        = "hours"
	FieldPriceLevel   = "price_level"
	FieldPhotos       = "photos"
	FieldLogoURL      = "logo_url"
	FieldHeroImage    = "hero_image"
	FieldFeatured     = "featured"
	FieldVerified     = "verified"
	FieldActive       = "active"
	FieldRating       = "rating"
	FieldReviewCount  = "review_count"
	FieldMetadata     = "metadata"
)

// AdminOverrides maps a field key to true when an administrator locked it.
type AdminOverrides map[string]bool

// IsLocked reports whether field is locked against automated sync.
func (o AdminOverrides) IsLocked(field string) bool {
	return o != nil && o[field]
}

// LockedFields returns the locked field keys in sorted order.
func (o AdminOverrides) LockedFields() []string {
	fields := make([]string, 0, len(o))
	for k, v := range o {
		if v {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	return fields
}

// Value implements driver.Valuer
func (o AdminOverrides) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (o *AdminOverrides) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan AdminOverrides")
	}
	out := AdminOverrides{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*o = out
	return nil
}

// RestaurantMetadata carries provider fields that have no column of their own.
// It is stored for display and debugging and never drives sync decisions.
type RestaurantMetadata struct {
	PlaceID           string          `json:"place_id,omitempty"`
	GoogleURL         string          `json:"google_url,omitempty"`
	GoogleRating      float64         `json:"google_rating,omitempty"`
	GoogleReviewCount int             `json:"google_review_count,omitempty"`
	BusinessStatus    string          `json:"business_status,omitempty"`
	Types             []string        `json:"types,omitempty"`
	EditorialSummary  string          `json:"editorial_summary,omitempty"`
	LastSyncedAt      *time.Time      `json:"last_synced_at,omitempty"`
	Reviews           []ReviewSnippet `json:"reviews,omitempty"`
}

// ReviewSnippet is one provider review kept for display.
type ReviewSnippet struct {
	Author string `json:"author"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// SameContent compares two metadata values ignoring LastSyncedAt.
func (m RestaurantMetadata) SameContent(other RestaurantMetadata) bool {
	m.LastSyncedAt = nil
	other.LastSyncedAt = nil
	if len(m.Types) == 0 {
		m.Types = nil
	}
	if len(other.Types) == 0 {
		other.Types = nil
	}
	if len(m.Reviews) == 0 {
		m.Reviews = nil
	}
	if len(other.Reviews) == 0 {
		other.Reviews = nil
	}
	return reflect.DeepEqual(m, other)
}

// Value implements driver.Valuer
func (m RestaurantMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *RestaurantMetadata) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return errors.New("failed to scan RestaurantMetadata")
	}
	out := RestaurantMetadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported column type")
	}
}

type Restaurant struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Slug         string     `gorm:"uniqueIndex;type:varchar(120);not null" json:"slug"` // public URL key, never changes after create
	Description  string     `gorm:"type:text" json:"description"`
	Address      string     `gorm:"type:text" json:"address"`
	City         string     `gorm:"type:varchar(100)" json:"city"`
	State        string     `gorm:"type:varchar(20)" json:"state"`
	ZipCode      string     `gorm:"type:varchar(10)" json:"zip_code"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Phone        string     `gorm:"type:varchar(30)" json:"phone"`
	Website      string     `gorm:"type:text" json:"website"`
	Email        string     `gorm:"type:varchar(255)" json:"email"`
	Categories   string     `gorm:"type:text" json:"categories"`    // comma-joined
	CuisineTypes string     `gorm:"type:text" json:"cuisine_types"` // comma-joined
	Hours        string     `gorm:"type:text" json:"hours"`         // JSON keyed by weekday
	PriceLevel   PriceLevel `gorm:"type:varchar(20);default:'MODERATE'" json:"price_level"`
	Photos       string     `gorm:"type:text" json:"photos"` // comma-joined URLs
	LogoURL      string     `gorm:"type:text" json:"logo_url"`
	HeroImage    string     `gorm:"type:text" json:"hero_image"`
	Featured     bool       `gorm:"default:false;index" json:"featured"`
	Verified     bool       `gorm:"default:false" json:"verified"`
	Active       bool       `gorm:"index" json:"active"`
	Rating       float64    `json:"rating"`
	ReviewCount  int        `json:"review_count"`

	Source         string             `gorm:"type:varchar(50);index" json:"source"`
	SourceID       *string            `gorm:"type:varchar(255);index" json:"source_id"`
	Metadata       RestaurantMetadata `gorm:"type:text" json:"metadata"`
	AdminOverrides AdminOverrides     `gorm:"type:text" json:"admin_overrides"`

	LastVerified *time.Time `gorm:"index" json:"last_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

// SourceKey returns the provider identifier or "" when none is set.
func (r *Restaurant) SourceKey() string {
	if r.SourceID == nil {
		return ""
	}
	return *r.SourceID
}

// FieldValue returns the value stored under a field key, or false for unknown keys.
func (r *Restaurant) FieldValue(field string) (interface{}, bool) {
	switch field {
	case FieldName:
		return r.Name, true
	case FieldDescription:
		return r.Description, true
	case FieldAddress:
		return r.Address, true
	case FieldCity:
		return r.City, true
	case FieldState:
		return r.State, true
	case FieldZipCode:
		return r.ZipCode, true
	case FieldLatitude:
		return r.Latitude, true
	case FieldLongitude:
		return r.Longitude, true
	case FieldPhone:
		return r.Phone, true
	case FieldWebsite:
		return r.Website, true
	case FieldEmail:
		return r.Email, true
	case FieldCategories:
		return r.Categories, true
	case FieldCuisineTypes:
		return r.CuisineTypes, true
	case FieldHours:
		return r.Hours, true
	case FieldPriceLevel:
		return r.PriceLevel, true
	case FieldPhotos:
		return r.Photos, true
	case FieldLogoURL:
		return r.LogoURL, true
	case FieldHeroImage:
		return r.HeroImage, true
	case FieldFeatured:
		return r.Featured, true
	case FieldVerified:
		return r.Verified, true
	case FieldActive:
		return r.Active, true
	case FieldRating:
		return r.Rating, true
	case FieldReviewCount:
		return r.ReviewCount, true
	case FieldMetadata:
		return r.Metadata, true
	}
	return nil, false
}

// SyncableFields are the fields an automated sync may write. Slug, email and
// hero image are owned by the first insert or by administrators.
var SyncableFields = []string{
	FieldName,
	FieldDescription,
	FieldAddress,
	FieldCity,
	FieldState,
	FieldZipCode,
	FieldLatitude,
	FieldLongitude,
	FieldPhone,
	FieldWebsite,
	FieldCategories,
	FieldCuisineTypes,
	FieldHours,
	FieldPriceLevel,
	FieldPhotos,
	FieldLogoURL,
	FieldFeatured,
	FieldVerified,
	FieldActive,
	FieldRating,
	FieldReviewCount,
	FieldMetadata,
}

// EditableFields are the fields an administrator may edit or lock.
var EditableFields = append(append([]string{}, SyncableFields...), FieldEmail, FieldHeroImage)

// IsEditableField reports whether field can be edited or locked by an administrator.
func IsEditableField(field string) bool {
	for _, f := range EditableFields {
		if f == field {
			return true
		}
	}
	return false
}

// FullyProtected reports whether every syncable field is locked.
func (r *Restaurant) FullyProtected() bool {
	for _, f := range SyncableFields {
		if !r.AdminOverrides.IsLocked(f) {
			return false
		}
	}
	return true
}
