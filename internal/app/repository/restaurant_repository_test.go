package repository

import (
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRestaurantTest(t *testing.T) (*gorm.DB, RestaurantRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	return testDB, NewRestaurantRepository(testDB)
}

func sourceID(s string) *string { return &s }

func TestRestaurantRepository_CreateAndFind(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	r := &model.Restaurant{
		Name:           "Pappasito's Cantina",
		Slug:           "pappasitos-cantina",
		Source:         model.SourceGooglePlaces,
		SourceID:       sourceID("ChIJp"),
		PriceLevel:     model.PriceModerate,
		AdminOverrides: model.AdminOverrides{model.FieldPhone: true},
		Metadata: model.RestaurantMetadata{
			PlaceID: "ChIJp",
			Types:   []string{"restaurant", "bar"},
		},
	}
	require.NoError(t, repo.Create(r))
	assert.NotZero(t, r.ID)

	bySource, err := repo.FindBySourceID("ChIJp")
	require.NoError(t, err)
	require.NotNil(t, bySource)
	assert.Equal(t, r.ID, bySource.ID)
	assert.True(t, bySource.AdminOverrides.IsLocked(model.FieldPhone))
	assert.Equal(t, []string{"restaurant", "bar"}, bySource.Metadata.Types)

	bySlug, err := repo.FindBySlug("pappasitos-cantina")
	require.NoError(t, err)
	require.NotNil(t, bySlug)

	missing, err := repo.FindBySourceID("nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.FindBySlug("nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.FindByID(999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRestaurantRepository_SlugIsUnique(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	require.NoError(t, repo.Create(&model.Restaurant{Name: "One", Slug: "dup"}))
	err := repo.Create(&model.Restaurant{Name: "Two", Slug: "dup"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	exists, err := repo.SlugExists("dup")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists("free")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRestaurantRepository_InactiveIsPersisted(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	closed := &model.Restaurant{Name: "Closed", Slug: "closed", Active: false, Source: model.SourceGooglePlaces}
	open := &model.Restaurant{Name: "Open", Slug: "open", Active: true, Source: model.SourceGooglePlaces}
	require.NoError(t, repo.Create(closed))
	require.NoError(t, repo.Create(open))

	active, err := repo.FindActiveBySource(model.SourceGooglePlaces)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "open", active[0].Slug)
}

func TestRestaurantRepository_UpdateFields(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	r := &model.Restaurant{Name: "Old", Slug: "old"}
	require.NoError(t, repo.Create(r))

	require.NoError(t, repo.UpdateFields(r.ID, map[string]interface{}{
		model.FieldName:     "New",
		model.FieldMetadata: model.RestaurantMetadata{PlaceID: "p"},
	}))

	stored, err := repo.FindByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", stored.Name)
	assert.Equal(t, "old", stored.Slug)
	assert.Equal(t, "p", stored.Metadata.PlaceID)

	err = repo.UpdateFields(4242, map[string]interface{}{model.FieldName: "x"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRestaurantRepository_FindAllFilters(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	yes := true
	rows := []*model.Restaurant{
		{Name: "Alpha Tacos", Slug: "alpha", CuisineTypes: "Mexican", Source: model.SourceGooglePlaces, Active: true, Featured: true},
		{Name: "Beta Sushi", Slug: "beta", CuisineTypes: "Sushi, Japanese", Source: model.SourceGooglePlaces, Active: true},
		{Name: "Gamma Tacos", Slug: "gamma", CuisineTypes: "Mexican", Source: model.SourceManualSeed},
	}
	for _, r := range rows {
		require.NoError(t, repo.Create(r))
	}

	found, total, err := repo.FindAll(RestaurantFilter{Search: "tacos"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Alpha Tacos", found[0].Name)

	_, total, err = repo.FindAll(RestaurantFilter{Source: model.SourceGooglePlaces, Active: &yes})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	found, total, err = repo.FindAll(RestaurantFilter{Cuisine: "japanese"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "beta", found[0].Slug)

	found, _, err = repo.FindAll(RestaurantFilter{Featured: &yes})
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, total, err = repo.FindAll(RestaurantFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, found, 1)
	assert.Equal(t, "Gamma Tacos", found[0].Name)
}

func TestRestaurantRepository_FindStaleOrdering(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	older := now.Add(-90 * 24 * time.Hour)
	old := now.Add(-40 * 24 * time.Hour)
	fresh := now.Add(-time.Hour)

	rows := []*model.Restaurant{
		{Name: "Old", Slug: "old", Source: model.SourceGooglePlaces, LastVerified: &old},
		{Name: "Fresh", Slug: "fresh", Source: model.SourceGooglePlaces, LastVerified: &fresh},
		{Name: "Never", Slug: "never", Source: model.SourceGooglePlaces},
		{Name: "Older", Slug: "older", Source: model.SourceGooglePlaces, LastVerified: &older},
	}
	for _, r := range rows {
		require.NoError(t, repo.Create(r))
	}

	stale, err := repo.FindStale(model.SourceGooglePlaces, now.Add(-30*24*time.Hour), 0)
	require.NoError(t, err)
	slugs := make([]string, 0, len(stale))
	for _, r := range stale {
		slugs = append(slugs, r.Slug)
	}
	assert.Equal(t, []string{"never", "older", "old"}, slugs)

	touched, err := repo.TouchLastVerified([]uint{rows[0].ID}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), touched)

	stored, err := repo.FindByID(rows[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.LastVerified.Equal(now))
}

func TestRestaurantRepository_DeleteByIDs(t *testing.T) {
	_, repo := setupRestaurantTest(t)

	a := &model.Restaurant{Name: "A", Slug: "a"}
	b := &model.Restaurant{Name: "B", Slug: "b"}
	require.NoError(t, repo.Create(a))
	require.NoError(t, repo.Create(b))

	deleted, err := repo.DeleteByIDs([]uint{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteByIDs(nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	all, err := repo.FindAllOrderedByCreation()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].Slug)
}
