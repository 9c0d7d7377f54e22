package service

import (
	"context"
	"errors"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"github.com/ekaty/ekaty-backend/pkg/places"
	"golang.org/x/time/rate"
)

// DetailFetcher fetches one place's details from the provider.
type DetailFetcher interface {
	FetchPlaceDetails(ctx context.Context, placeID string) (*places.Place, error)
}

type RefreshSummary struct {
	Total      int         `json:"total"`
	Updated    int         `json:"updated"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Protected  int         `json:"protected"`
	NoSourceID int         `json:"no_source_id"`
	Errors     []SyncError `json:"-"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

type ListingRefreshService interface {
	RefreshAllListings(ctx context.Context, onProgress places.ProgressFunc) (*RefreshSummary, error)
}

type listingRefreshService struct {
	restaurantRepo repository.RestaurantRepository
	importer       ImporterService
	transformer    *RestaurantTransformer
	fetcher        DetailFetcher
	audit          AuditService
	limiter        *rate.Limiter
}

func NewListingRefreshService(
	restaurantRepo repository.RestaurantRepository,
	importer ImporterService,
	transformer *RestaurantTransformer,
	fetcher DetailFetcher,
	audit AuditService,
	delay time.Duration,
) ListingRefreshService {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &listingRefreshService{
		restaurantRepo: restaurantRepo,
		importer:       importer,
		transformer:    transformer,
		fetcher:        fetcher,
		audit:          audit,
		limiter:        rate.NewLimiter(limit, 1),
	}
}

// RefreshAllListings re-fetches every active provider-sourced restaurant and
// applies the non-locked fields that changed. Per-restaurant failures are
// collected; quota exhaustion, a missing API key and cancellation end the run
// early with the partial summary.
func (s *listingRefreshService) RefreshAllListings(ctx context.Context, onProgress places.ProgressFunc) (*RefreshSummary, error) {
	summary := &RefreshSummary{StartedAt: time.Now()}

	rows, err := s.restaurantRepo.FindActiveBySource(model.SourceGooglePlaces)
	if err != nil {
		return nil, err
	}
	summary.Total = len(rows)

	logger.Info("Refreshing listings", map[string]interface{}{
		"total": summary.Total,
	})

	var runErr error
	for i := range rows {
		row := &rows[i]
		if onProgress != nil {
			onProgress(i+1, len(rows), row.Name)
		}

		if runErr = s.refreshOne(ctx, row, summary); runErr != nil {
			break
		}
	}

	summary.FinishedAt = time.Now()
	changes := map[string]interface{}{
		"total":        summary.Total,
		"updated":      summary.Updated,
		"skipped":      summary.Skipped,
		"failed":       summary.Failed,
		"protected":    summary.Protected,
		"no_source_id": summary.NoSourceID,
		"errors":       Messages(summary.Errors),
	}
	if runErr != nil {
		// an aborted run must not count as the last successful sync
		changes["kind"] = SyncKindRefresh
		changes["error"] = runErr.Error()
		s.audit.Record(model.ActionRestaurantSyncFailed, model.EntitySystem, "", changes)
	} else {
		s.audit.Record(model.ActionListingsRefresh, model.EntitySystem, "", changes)
	}

	logger.Info("Listing refresh finished", map[string]interface{}{
		"updated":      summary.Updated,
		"skipped":      summary.Skipped,
		"failed":       summary.Failed,
		"protected":    summary.Protected,
		"no_source_id": summary.NoSourceID,
	})
	return summary, runErr
}

// refreshOne returns an error only when the whole run must stop.
func (s *listingRefreshService) refreshOne(ctx context.Context, row *model.Restaurant, summary *RefreshSummary) error {
	sourceID := row.SourceKey()
	if sourceID == "" {
		summary.NoSourceID++
		return nil
	}
	if row.FullyProtected() {
		summary.Protected++
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	fail := func(stage SyncStage, err error) {
		summary.Failed++
		summary.Errors = append(summary.Errors, SyncError{Name: row.Name, SourceID: sourceID, Stage: stage, Err: err})
		logger.Error("Failed to refresh restaurant", err, map[string]interface{}{
			"restaurant_id": row.ID,
			"name":          row.Name,
			"stage":         string(stage),
		})
	}

	detail, err := s.fetcher.FetchPlaceDetails(ctx, sourceID)
	if err != nil {
		fail(StageFetch, err)
		if errors.Is(err, places.ErrQuotaExceeded) || errors.Is(err, places.ErrMissingAPIKey) || ctx.Err() != nil {
			return err
		}
		return nil
	}

	fresh, err := s.transformer.Transform(*detail)
	if err != nil {
		fail(StageTransform, err)
		return nil
	}

	_, changed, err := s.importer.ApplyUpdate(row, fresh)
	if err != nil {
		fail(StageUpdate, err)
		return nil
	}
	if len(changed) == 0 {
		summary.Skipped++
	} else {
		summary.Updated++
	}
	return nil
}
