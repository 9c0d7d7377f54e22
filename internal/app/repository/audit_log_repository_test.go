package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAuditLogRepository(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAuditLogRepository(testDB)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	entries := []*model.AuditLog{
		{Action: model.ActionRestaurantSync, Entity: model.EntityRestaurant, EntityID: "1", CreatedAt: base},
		{Action: model.ActionPlacesImport, Entity: model.EntitySystem, CreatedAt: base.Add(time.Hour),
			Changes: datatypes.JSONMap{"created": float64(3)}},
		{Action: model.ActionListingsRefresh, Entity: model.EntitySystem, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(e))
	}

	latest, err := repo.FindLatestByActions(model.ActionPlacesImport, model.ActionListingsRefresh)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, model.ActionListingsRefresh, latest.Action)

	none, err := repo.FindLatestByActions(model.ActionHealthCheckFailed)
	require.NoError(t, err)
	assert.Nil(t, none)

	list, total, err := repo.FindAll(AuditLogFilter{Entity: model.EntitySystem})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, model.ActionListingsRefresh, list[0].Action)
	// JSONMap decodes numbers as json.Number
	assert.Equal(t, json.Number("3"), list[1].Changes["created"])

	list, _, err = repo.FindAll(AuditLogFilter{Action: model.ActionRestaurantSync, EntityID: "1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAuditLog_IsImmutable(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	entry := &model.AuditLog{Action: model.ActionRestaurantSync}
	require.NoError(t, NewAuditLogRepository(testDB).Create(entry))

	entry.Action = "TAMPERED"
	err = testDB.Save(entry).Error
	assert.ErrorIs(t, err, model.ErrAuditLogImmutable)
}
