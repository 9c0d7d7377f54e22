package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/pkg/logger"
)

const maxSlugAttempts = 1000

var ErrSlugExhausted = errors.New("no free slug suffix")

// ImportOutcome is what happened to one incoming record.
type ImportOutcome string

const (
	OutcomeCreated   ImportOutcome = "created"
	OutcomeUpdated   ImportOutcome = "updated"
	OutcomeUnchanged ImportOutcome = "unchanged"
	OutcomeSkipped   ImportOutcome = "skipped"
)

type ImportResult struct {
	Created     int                `json:"created"`
	Updated     int                `json:"updated"`
	Unchanged   int                `json:"unchanged"`
	Skipped     int                `json:"skipped"`
	Failed      int                `json:"failed"`
	Restaurants []model.Restaurant `json:"-"`
	Errors      []SyncError        `json:"-"`
}

type DedupResult struct {
	Scanned    int    `json:"scanned"`
	Removed    int    `json:"removed"`
	RemovedIDs []uint `json:"removed_ids"`
}

type ImporterService interface {
	ImportRestaurant(incoming *model.Restaurant, updateExisting bool) (*model.Restaurant, ImportOutcome, error)
	ImportRestaurants(incoming []model.Restaurant, updateExisting bool) *ImportResult
	ApplyUpdate(existing *model.Restaurant, incoming *model.Restaurant) (*model.Restaurant, []string, error)
	DeduplicateRestaurants() (*DedupResult, error)
	UpdateStaleRestaurants(threshold time.Duration, limit int) (int64, error)
}

type importerService struct {
	restaurantRepo repository.RestaurantRepository
	audit          AuditService
	now            func() time.Time
}

func NewImporterService(restaurantRepo repository.RestaurantRepository, audit AuditService) ImporterService {
	return &importerService{
		restaurantRepo: restaurantRepo,
		audit:          audit,
		now:            time.Now,
	}
}

// findExisting matches by sourceId first, then by slug. A slug row that belongs
// to a different provider id is a collision, not a match.
func (s *importerService) findExisting(incoming *model.Restaurant) (*model.Restaurant, error) {
	if sourceID := incoming.SourceKey(); sourceID != "" {
		existing, err := s.restaurantRepo.FindBySourceID(sourceID)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	slug := incoming.Slug
	if slug == "" {
		slug = GenerateSlug(incoming.Name)
	}
	existing, err := s.restaurantRepo.FindBySlug(slug)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.SourceKey() != "" && incoming.SourceKey() != "" {
		return nil, nil
	}
	return existing, nil
}

func (s *importerService) ImportRestaurant(incoming *model.Restaurant, updateExisting bool) (*model.Restaurant, ImportOutcome, error) {
	existing, err := s.findExisting(incoming)
	if err != nil {
		return nil, "", SyncError{Name: incoming.Name, SourceID: incoming.SourceKey(), Stage: StageLookup, Err: err}
	}

	if existing == nil {
		created, err := s.create(incoming)
		if err != nil {
			s.recordFailure(incoming, StageCreate, err)
			return nil, "", SyncError{Name: incoming.Name, SourceID: incoming.SourceKey(), Stage: StageCreate, Err: err}
		}
		return created, OutcomeCreated, nil
	}

	if !updateExisting {
		logger.Debug("Restaurant exists, update disabled", map[string]interface{}{
			"restaurant_id": existing.ID,
			"slug":          existing.Slug,
		})
		return existing, OutcomeSkipped, nil
	}

	updated, changed, err := s.ApplyUpdate(existing, incoming)
	if err != nil {
		s.recordFailure(incoming, StageUpdate, err)
		return nil, "", SyncError{Name: incoming.Name, SourceID: incoming.SourceKey(), Stage: StageUpdate, Err: err}
	}
	if len(changed) == 0 {
		return existing, OutcomeUnchanged, nil
	}
	return updated, OutcomeUpdated, nil
}

func (s *importerService) create(incoming *model.Restaurant) (*model.Restaurant, error) {
	base := incoming.Slug
	if base == "" {
		base = GenerateSlug(incoming.Name)
	}
	slug, err := s.uniqueSlug(base)
	if err != nil {
		return nil, err
	}

	record := *incoming
	record.ID = 0
	record.Slug = slug
	record.AdminOverrides = model.AdminOverrides{}
	now := s.now()
	record.LastVerified = &now

	if err := s.restaurantRepo.Create(&record); err != nil {
		return nil, err
	}

	logger.Info("Created restaurant", map[string]interface{}{
		"restaurant_id": record.ID,
		"slug":          record.Slug,
		"source_id":     record.SourceKey(),
	})
	s.audit.Record(model.ActionRestaurantSync, model.EntityRestaurant, entityID(&record), map[string]interface{}{
		"operation": string(OutcomeCreated),
		"slug":      record.Slug,
		"source":    record.Source,
	})
	return &record, nil
}

// uniqueSlug appends -1, -2, ... to base until no row holds it.
func (s *importerService) uniqueSlug(base string) (string, error) {
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		exists, err := s.restaurantRepo.SlugExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", fmt.Errorf("%w: %s", ErrSlugExhausted, base)
}

// ApplyUpdate writes the syncable fields of incoming that differ from existing
// and are not locked in existing's adminOverrides. The slug is never touched.
// When nothing differs no write happens and changed is empty.
func (s *importerService) ApplyUpdate(existing *model.Restaurant, incoming *model.Restaurant) (*model.Restaurant, []string, error) {
	updates, changed := diffSyncable(existing, incoming)

	if existing.SourceKey() == "" && incoming.SourceKey() != "" {
		updates["source_id"] = incoming.SourceKey()
		updates["source"] = incoming.Source
		changed = append(changed, "source_id")
	}

	if len(changed) == 0 {
		return existing, nil, nil
	}

	now := s.now()
	updates["last_verified"] = now
	updates["updated_at"] = now

	if err := s.restaurantRepo.UpdateFields(existing.ID, updates); err != nil {
		return nil, nil, err
	}

	updated, err := s.restaurantRepo.FindByID(existing.ID)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Updated restaurant", map[string]interface{}{
		"restaurant_id": existing.ID,
		"slug":          existing.Slug,
		"fields":        changed,
	})
	s.audit.Record(model.ActionRestaurantSync, model.EntityRestaurant, entityID(existing), map[string]interface{}{
		"operation": string(OutcomeUpdated),
		"fields":    changed,
		"protected": existing.AdminOverrides.LockedFields(),
	})
	return updated, changed, nil
}

func diffSyncable(existing, incoming *model.Restaurant) (map[string]interface{}, []string) {
	updates := make(map[string]interface{})
	var changed []string
	for _, field := range model.SyncableFields {
		if existing.AdminOverrides.IsLocked(field) {
			continue
		}
		oldValue, _ := existing.FieldValue(field)
		newValue, _ := incoming.FieldValue(field)
		if field == model.FieldMetadata {
			if existing.Metadata.SameContent(incoming.Metadata) {
				continue
			}
		} else if oldValue == newValue {
			continue
		}
		updates[field] = newValue
		changed = append(changed, field)
	}
	return updates, changed
}

// ImportRestaurants imports each record in isolation; one failure never stops the batch.
func (s *importerService) ImportRestaurants(incoming []model.Restaurant, updateExisting bool) *ImportResult {
	result := &ImportResult{}
	for i := range incoming {
		record := &incoming[i]
		persisted, outcome, err := s.ImportRestaurant(record, updateExisting)
		if err != nil {
			result.Failed++
			var syncErr SyncError
			if !errors.As(err, &syncErr) {
				syncErr = SyncError{Name: record.Name, SourceID: record.SourceKey(), Stage: StageUpdate, Err: err}
			}
			result.Errors = append(result.Errors, syncErr)
			logger.Error("Failed to import restaurant", err, map[string]interface{}{
				"name":      record.Name,
				"source_id": record.SourceKey(),
			})
			continue
		}

		switch outcome {
		case OutcomeCreated:
			result.Created++
		case OutcomeUpdated:
			result.Updated++
		case OutcomeUnchanged:
			result.Unchanged++
		case OutcomeSkipped:
			result.Skipped++
			continue
		}
		result.Restaurants = append(result.Restaurants, *persisted)
	}

	logger.Info("Restaurant import finished", map[string]interface{}{
		"created":   result.Created,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	})
	return result
}

// DeduplicateRestaurants keeps the earliest-created row per sourceId (or
// lowercased name when there is none) and deletes the rest.
func (s *importerService) DeduplicateRestaurants() (*DedupResult, error) {
	rows, err := s.restaurantRepo.FindAllOrderedByCreation()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]uint, len(rows))
	var duplicates []uint
	for _, r := range rows {
		key := dedupKey(&r)
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, r.ID)
			continue
		}
		seen[key] = r.ID
	}

	result := &DedupResult{Scanned: len(rows), RemovedIDs: duplicates}
	if len(duplicates) == 0 {
		return result, nil
	}

	removed, err := s.restaurantRepo.DeleteByIDs(duplicates)
	if err != nil {
		return nil, err
	}
	result.Removed = int(removed)

	logger.Info("Removed duplicate restaurants", map[string]interface{}{
		"scanned": result.Scanned,
		"removed": result.Removed,
	})
	s.audit.Record(model.ActionRestaurantDedup, model.EntitySystem, "", map[string]interface{}{
		"scanned":     result.Scanned,
		"removed":     result.Removed,
		"removed_ids": duplicates,
	})
	return result, nil
}

func dedupKey(r *model.Restaurant) string {
	if id := r.SourceKey(); id != "" {
		return "source:" + id
	}
	return "name:" + strings.ToLower(strings.TrimSpace(r.Name))
}

// UpdateStaleRestaurants bumps lastVerified on the oldest provider rows
// without re-fetching them.
func (s *importerService) UpdateStaleRestaurants(threshold time.Duration, limit int) (int64, error) {
	now := s.now()
	stale, err := s.restaurantRepo.FindStale(model.SourceGooglePlaces, now.Add(-threshold), limit)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(stale))
	for _, r := range stale {
		ids = append(ids, r.ID)
	}
	touched, err := s.restaurantRepo.TouchLastVerified(ids, now)
	if err != nil {
		return 0, err
	}

	logger.Info("Marked stale restaurants verified", map[string]interface{}{
		"count": touched,
	})
	return touched, nil
}

func (s *importerService) recordFailure(incoming *model.Restaurant, stage SyncStage, err error) {
	s.audit.Record(model.ActionRestaurantSyncFailed, model.EntityRestaurant, incoming.SourceKey(), map[string]interface{}{
		"name":  incoming.Name,
		"stage": string(stage),
		"error": err.Error(),
	})
}

func entityID(r *model.Restaurant) string {
	return strconv.FormatUint(uint64(r.ID), 10)
}
