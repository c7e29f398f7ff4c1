package repository

import (
	"net/http"
	"testing"

	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func seedPublication(t *testing.T, db *gorm.DB, plan *models.Plan, description string) *models.Publication {
	t.Helper()
	pub := &models.Publication{
		SharedPlanID: plan.ID,
		AuthorID:     plan.AuthorID,
		AuthorName:   plan.AuthorName,
		Description:  description,
		City:         plan.City,
		PlanSnapshot: datatypes.NewJSONType(plan.Snapshot()),
	}
	require.NoError(t, NewPublicationRepository(db).Create(t.Context(), pub))
	return pub
}

func TestPublicationRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewPublicationRepository(db)
	ctx := t.Context()
	ana, bo := seedUser(t, db, "ana"), seedUser(t, db, "bo")

	first := seedPublication(t, db, seedPlan(t, db, ana, "Paris", true), "one")
	second := seedPublication(t, db, seedPlan(t, db, bo, "Rome", true), "two")

	all, err := repo.List(ctx, 0, 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	others, err := repo.List(ctx, 0, ana.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, bo.ID, others[0].AuthorID)

	mine, err := repo.List(ctx, ana.ID, ana.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	rome, err := repo.ListByCity(ctx, "ROM", 0, 10, 0)
	require.NoError(t, err)
	require.Len(t, rome, 1)
	assert.Equal(t, "Rome", rome[0].PlanSnapshot.Data().City)

	ordered, err := repo.GetByIDs(ctx, []uint{second.ID, 999, first.ID})
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, second.ID, ordered[0].ID)
}

func TestPublicationRepository_DeleteBySharedPlan(t *testing.T) {
	db := newTestDB(t)
	repo := NewPublicationRepository(db)
	ctx := t.Context()
	ana := seedUser(t, db, "ana")
	plan := seedPlan(t, db, ana, "Paris", true)
	pub := seedPublication(t, db, plan, "trip")

	ids, err := repo.DeleteBySharedPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{pub.ID}, ids)

	_, err = repo.GetByID(ctx, pub.ID)
	assert.Equal(t, http.StatusNotFound, models.StatusFor(err))

	ids, err = repo.DeleteBySharedPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPublicationRepository_SnapshotIsIndependentOfPlan(t *testing.T) {
	db := newTestDB(t)
	repo := NewPublicationRepository(db)
	plans := NewPlanRepository(db)
	ctx := t.Context()
	ana := seedUser(t, db, "ana")
	plan := seedPlan(t, db, ana, "Paris", true)
	pub := seedPublication(t, db, plan, "trip")

	require.NoError(t, plans.UpdateFields(ctx, plan.ID, map[string]any{"city": "Nice"}))

	got, err := repo.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.PlanSnapshot.Data().City)
}
