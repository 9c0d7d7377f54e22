package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/places"
	"github.com/google/uuid"
)

const syncLockKey = "ekaty:sync:lock"

var (
	ErrSyncInProgress     = errors.New("a restaurant sync is already running")
	ErrNoRestaurantsFound = errors.New("no restaurants discovered")
)

// PlacesFetcher is the subset of the places client the import pipeline drives.
type PlacesFetcher interface {
	FetchAllKatyRestaurants(ctx context.Context) ([]places.Place, error)
	FetchDetailedRestaurantData(ctx context.Context, candidates []places.Place, onProgress places.ProgressFunc) ([]places.Place, error)
}

// RunLock serialises sync runs across processes.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ProgressPublisher receives sync progress events.
type ProgressPublisher interface {
	Publish(event ProgressEvent)
}

// ReportUploader stores a finished run summary and returns its location.
type ReportUploader interface {
	UploadReport(ctx context.Context, name string, report interface{}) (string, error)
}

type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Kind    string `json:"kind"`
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Name    string `json:"name,omitempty"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`
}

const (
	SyncKindImport  = "import"
	SyncKindRefresh = "refresh"
)

type ImportOptions struct {
	UpdateExisting bool
	SkipDedup      bool
}

type ImportSummary struct {
	RunID       string            `json:"run_id"`
	Discovered  int               `json:"discovered"`
	Transformed int               `json:"transformed"`
	Import      *ImportResult     `json:"import"`
	Errors      []string          `json:"errors,omitempty"`
	Dedup       *DedupResult      `json:"dedup,omitempty"`
	Usage       *model.UsageStats `json:"usage,omitempty"`
	ReportURL   string            `json:"report_url,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

type RefreshRun struct {
	RunID     string          `json:"run_id"`
	Summary   *RefreshSummary `json:"summary"`
	Errors    []string        `json:"errors,omitempty"`
	ReportURL string          `json:"report_url,omitempty"`
}

type SyncService interface {
	ImportFromGooglePlaces(ctx context.Context, opts ImportOptions) (*ImportSummary, error)
	RefreshListings(ctx context.Context) (*RefreshRun, error)
	IsRunning() bool
}

// SyncDeps wires the sync pipeline. Lock, Progress, Reports and Usage are optional.
type SyncDeps struct {
	Fetcher     PlacesFetcher
	Transformer *RestaurantTransformer
	Importer    ImporterService
	Refresher   ListingRefreshService
	Audit       AuditService
	Usage       RateLimiterService
	Lock        RunLock
	LockTTL     time.Duration
	Progress    ProgressPublisher
	Reports     ReportUploader
}

type syncService struct {
	deps    SyncDeps
	running atomic.Bool
}

func NewSyncService(deps SyncDeps) SyncService {
	if deps.LockTTL <= 0 {
		deps.LockTTL = 2 * time.Hour
	}
	return &syncService{deps: deps}
}

func (s *syncService) IsRunning() bool {
	return s.running.Load()
}

// begin claims the in-process flag and, when configured, the shared lock.
// A lock backend error is logged and the run proceeds.
func (s *syncService) begin(ctx context.Context) (func(), error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}

	if s.deps.Lock != nil {
		acquired, err := s.deps.Lock.Acquire(ctx, syncLockKey, s.deps.LockTTL)
		switch {
		case err != nil:
			logger.Warn("Sync lock unavailable, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
		case !acquired:
			s.running.Store(false)
			return nil, ErrSyncInProgress
		default:
			return func() {
				if err := s.deps.Lock.Release(context.Background(), syncLockKey); err != nil {
					logger.Warn("Failed to release sync lock", map[string]interface{}{
						"error": err.Error(),
					})
				}
				s.running.Store(false)
			}, nil
		}
	}

	return func() { s.running.Store(false) }, nil
}

func (s *syncService) publish(event ProgressEvent) {
	if s.deps.Progress != nil {
		s.deps.Progress.Publish(event)
	}
}

func (s *syncService) progressFunc(runID, kind, phase string) places.ProgressFunc {
	return func(current, total int, name string) {
		s.publish(ProgressEvent{RunID: runID, Kind: kind, Phase: phase, Current: current, Total: total, Name: name})
	}
}

// ImportFromGooglePlaces runs discovery, detail fetch, transform, import and
// dedup. Discovery failure or an empty discovery aborts the run; everything
// after that is per-record.
func (s *syncService) ImportFromGooglePlaces(ctx context.Context, opts ImportOptions) (*ImportSummary, error) {
	release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &ImportSummary{RunID: uuid.New().String(), StartedAt: time.Now()}
	log := logger.WithContext(map[string]interface{}{"run_id": summary.RunID})
	fail := func(err error) (*ImportSummary, error) {
		summary.FinishedAt = time.Now()
		s.deps.Audit.Record(model.ActionRestaurantSyncFailed, model.EntitySystem, summary.RunID, map[string]interface{}{
			"kind":       SyncKindImport,
			"error":      err.Error(),
			"discovered": summary.Discovered,
		})
		s.publish(ProgressEvent{RunID: summary.RunID, Kind: SyncKindImport, Phase: "failed", Done: true, Error: err.Error()})
		return summary, err
	}

	log.Info("Starting Google Places import", map[string]interface{}{
		"update_existing": opts.UpdateExisting,
		"skip_dedup":      opts.SkipDedup,
	})
	s.publish(ProgressEvent{RunID: summary.RunID, Kind: SyncKindImport, Phase: "discovery"})

	discovered, err := s.deps.Fetcher.FetchAllKatyRestaurants(ctx)
	summary.Discovered = len(discovered)
	if err != nil {
		return fail(fmt.Errorf("discovery failed: %w", err))
	}
	if len(discovered) == 0 {
		return fail(ErrNoRestaurantsFound)
	}

	detailed, err := s.deps.Fetcher.FetchDetailedRestaurantData(ctx, discovered,
		s.progressFunc(summary.RunID, SyncKindImport, "details"))
	if err != nil {
		if ctx.Err() != nil {
			return fail(err)
		}
		log.Warn("Detail fetch stopped early, importing what was collected", map[string]interface{}{
			"error": err.Error(),
		})
	}

	restaurants := s.deps.Transformer.TransformAll(detailed)
	summary.Transformed = len(restaurants)

	s.publish(ProgressEvent{RunID: summary.RunID, Kind: SyncKindImport, Phase: "import", Total: len(restaurants)})
	summary.Import = s.deps.Importer.ImportRestaurants(restaurants, opts.UpdateExisting)
	summary.Errors = Messages(summary.Import.Errors)

	if !opts.SkipDedup {
		s.publish(ProgressEvent{RunID: summary.RunID, Kind: SyncKindImport, Phase: "dedup"})
		dedup, err := s.deps.Importer.DeduplicateRestaurants()
		if err != nil {
			log.Error("Deduplication failed", err)
		}
		summary.Dedup = dedup
	}

	if s.deps.Usage != nil {
		if usage, err := s.deps.Usage.GetUsageStats(); err == nil {
			summary.Usage = usage
		}
	}

	summary.FinishedAt = time.Now()
	summary.ReportURL = s.uploadReport(ctx, "import", summary)

	changes := map[string]interface{}{
		"discovered": summary.Discovered,
		"created":    summary.Import.Created,
		"updated":    summary.Import.Updated,
		"unchanged":  summary.Import.Unchanged,
		"skipped":    summary.Import.Skipped,
		"failed":     summary.Import.Failed,
		"errors":     summary.Errors,
	}
	if summary.Dedup != nil {
		changes["duplicates_removed"] = summary.Dedup.Removed
	}
	s.deps.Audit.Record(model.ActionPlacesImport, model.EntitySystem, summary.RunID, changes)
	s.publish(ProgressEvent{RunID: summary.RunID, Kind: SyncKindImport, Phase: "done", Done: true})

	log.Info("Google Places import finished", changes)
	return summary, nil
}

// RefreshListings runs the full-catalog refresh under the sync lock.
func (s *syncService) RefreshListings(ctx context.Context) (*RefreshRun, error) {
	release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	run := &RefreshRun{RunID: uuid.New().String()}
	s.publish(ProgressEvent{RunID: run.RunID, Kind: SyncKindRefresh, Phase: "refresh"})

	summary, err := s.deps.Refresher.RefreshAllListings(ctx, s.progressFunc(run.RunID, SyncKindRefresh, "refresh"))
	run.Summary = summary
	if summary != nil {
		run.Errors = Messages(summary.Errors)
		run.ReportURL = s.uploadReport(ctx, "refresh", run)
	}

	event := ProgressEvent{RunID: run.RunID, Kind: SyncKindRefresh, Phase: "done", Done: true}
	if err != nil {
		event.Phase = "failed"
		event.Error = err.Error()
	}
	s.publish(event)
	return run, err
}

func (s *syncService) uploadReport(ctx context.Context, name string, report interface{}) string {
	if s.deps.Reports == nil {
		return ""
	}
	location, err := s.deps.Reports.UploadReport(ctx, name, report)
	if err != nil {
		logger.Warn("Failed to upload sync report", map[string]interface{}{
			"report": name,
			"error":  err.Error(),
		})
		return ""
	}
	return location
}
