package errors

// Error codes returned in the "error" field of every JSON error body.
// Format: CATEGORY_SPECIFIC_DETAIL

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthNotConfigured      = "AUTH_NOT_CONFIGURED"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"
	ValidationRequired     = "VALIDATION_REQUIRED"
	ValidationUnknownField = "VALIDATION_UNKNOWN_FIELD"

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Restaurant (RESTAURANT_) ====================
	RestaurantNotFound      = "RESTAURANT_NOT_FOUND"
	RestaurantSlugImmutable = "RESTAURANT_SLUG_IMMUTABLE"
	RestaurantNoChanges     = "RESTAURANT_NO_CHANGES"

	// ==================== Sync (SYNC_) ====================
	SyncInProgress      = "SYNC_IN_PROGRESS"
	SyncQuotaExceeded   = "SYNC_QUOTA_EXCEEDED"
	SyncNoRestaurants   = "SYNC_NO_RESTAURANTS"
	SyncMissingAPIKey   = "SYNC_MISSING_API_KEY"
	SyncProviderFailure = "SYNC_PROVIDER_FAILURE"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
