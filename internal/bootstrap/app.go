package bootstrap

import (
	"context"

	"github.com/ekaty/ekaty-backend/config"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/internal/app/service"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/ekaty/ekaty-backend/internal/storage"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/mailer"
	"github.com/ekaty/ekaty-backend/pkg/places"
	pkgredis "github.com/ekaty/ekaty-backend/pkg/redis"
	"gorm.io/gorm"
)

// Options selects the optional parts of the service graph.
type Options struct {
	// RequirePlaces fails New with places.ErrMissingAPIKey when no key is configured.
	RequirePlaces bool
	// UploadReports stores run summaries in S3 when a bucket is configured.
	UploadReports bool
	// UseLock takes the Redis run lock when Redis is configured.
	UseLock bool
	// Progress receives sync progress events; nil discards them.
	Progress service.ProgressPublisher
}

// App is the wired service graph shared by the server and the command line tools.
type App struct {
	Config *config.Config
	DB     *gorm.DB

	// Places is nil when no API key is configured.
	Places *places.Client

	RestaurantRepo repository.RestaurantRepository
	UsageRepo      repository.ApiUsageRepository
	AuditRepo      repository.AuditLogRepository

	Usage       service.RateLimiterService
	Audit       service.AuditService
	Alerts      service.AlertService
	Transformer *service.RestaurantTransformer
	Importer    service.ImporterService
	Refresher   service.ListingRefreshService
	Sync        service.SyncService
	Restaurants service.RestaurantService
	Auth        service.AuthService
	Health      service.HealthService
}

// New wires repositories and services over gdb.
func New(cfg *config.Config, gdb *gorm.DB, opts Options) (*App, error) {
	app := &App{
		Config:         cfg,
		DB:             gdb,
		RestaurantRepo: repository.NewRestaurantRepository(gdb),
		UsageRepo:      repository.NewApiUsageRepository(gdb),
		AuditRepo:      repository.NewAuditLogRepository(gdb),
	}

	app.Usage = service.NewRateLimiterService(app.UsageRepo, cfg.GooglePlaces.DailyLimit)
	app.Audit = service.NewAuditService(app.AuditRepo)

	var mail service.Mailer
	if cfg.SMTP.Enabled() {
		mail = mailer.New(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Password: cfg.SMTP.Password,
		})
	}
	app.Alerts = service.NewAlertService(app.Audit, mail, cfg.SMTP.Recipients)

	var fetcher interface {
		service.PlacesFetcher
		service.DetailFetcher
		service.PhotoURLBuilder
	}
	client, err := places.NewClient(PlacesConfig(&cfg.GooglePlaces), app.Usage)
	switch {
	case err == nil:
		app.Places = client
		fetcher = client
	case opts.RequirePlaces:
		return nil, err
	default:
		logger.Warn("Google Places API key not configured, sync runs will fail")
		fetcher = unconfiguredPlaces{}
	}

	app.Transformer = service.NewRestaurantTransformer(fetcher)
	app.Importer = service.NewImporterService(app.RestaurantRepo, app.Audit)
	app.Refresher = service.NewListingRefreshService(
		app.RestaurantRepo,
		app.Importer,
		app.Transformer,
		fetcher,
		app.Audit,
		cfg.GooglePlaces.RefreshDelay,
	)

	deps := service.SyncDeps{
		Fetcher:     fetcher,
		Transformer: app.Transformer,
		Importer:    app.Importer,
		Refresher:   app.Refresher,
		Audit:       app.Audit,
		Usage:       app.Usage,
		LockTTL:     cfg.Sync.LockTTL,
		Progress:    opts.Progress,
	}
	if opts.UseLock && cfg.Redis.Enabled() {
		if err := pkgredis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, sync runs are only guarded in-process", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			deps.Lock = pkgredis.NewRunLock(pkgredis.GetClient())
		}
	}
	if opts.UploadReports && cfg.S3.Enabled() {
		deps.Reports = storage.NewReportStorage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
	}
	app.Sync = service.NewSyncService(deps)

	app.Restaurants = service.NewRestaurantService(app.RestaurantRepo, app.Audit)
	app.Auth = service.NewAuthService(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	app.Health = service.NewHealthService(func() error { return db.Ping(gdb) }, app.Usage, app.Audit, app.Alerts, cfg.Sync.MaxSyncAge)

	return app, nil
}

// Close releases connections opened by New.
func (a *App) Close() {
	if err := pkgredis.Close(); err != nil {
		logger.Warn("Failed to close Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// PlacesConfig maps the environment settings onto the places client config.
func PlacesConfig(cfg *config.GooglePlacesConfig) places.Config {
	return places.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		DailyLimit:     cfg.DailyLimit,
		SearchRadius:   cfg.SearchRadius,
		PageTokenDelay: cfg.PageTokenDelay,
		DetailDelay:    cfg.DetailDelay,
		PointDelay:     cfg.PointDelay,
		Timeout:        cfg.Timeout,
	}
}

// unconfiguredPlaces stands in for the client when no API key is set.
type unconfiguredPlaces struct{}

func (unconfiguredPlaces) FetchAllKatyRestaurants(ctx context.Context) ([]places.Place, error) {
	return nil, places.ErrMissingAPIKey
}

func (unconfiguredPlaces) FetchDetailedRestaurantData(ctx context.Context, candidates []places.Place, onProgress places.ProgressFunc) ([]places.Place, error) {
	return candidates, places.ErrMissingAPIKey
}

func (unconfiguredPlaces) FetchPlaceDetails(ctx context.Context, placeID string) (*places.Place, error) {
	return nil, places.ErrMissingAPIKey
}

func (unconfiguredPlaces) GetPhotoURL(photoReference string, maxWidth, maxHeight int) string {
	return places.BuildPhotoURL(places.DefaultBaseURL, "", photoReference, maxWidth, maxHeight)
}
