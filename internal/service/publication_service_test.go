package service

import (
	"context"
	"testing"

	"wanderplan/internal/featureflags"
	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicationService_PublishSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")
	plan := env.seedPlan(t, ana.ID, "Vienna", true)
	_, err := env.plans.SaveItinerary(ctx, plan.ID, ana.ID, []DayInput{
		{Date: "01/06/2025", Places: []PlaceInput{{ID: "v1", Name: "Belvedere"}}},
	})
	require.NoError(t, err)

	_, err = env.publications.PublishPlan(ctx, plan.ID, bo.ID, "mine now")
	assertAppError(t, err, models.CodeForbidden)

	pub, err := env.publications.PublishPlan(ctx, plan.ID, ana.ID, "  three days  ")
	require.NoError(t, err)
	assert.Equal(t, "three days", pub.Description)
	assert.Equal(t, "ana", pub.Author)
	assert.Equal(t, "Vienna", pub.PlanSnapshot.City)
	assert.Equal(t, 1, pub.PlanSnapshot.DaysCount)
	assert.Equal(t, []uint{pub.ID}, env.index.indexed)

	// Later plan edits do not reach the snapshot.
	_, err = env.plans.SaveItinerary(ctx, plan.ID, ana.ID, []DayInput{
		{Date: "05/06/2025", Places: []PlaceInput{}},
		{Date: "06/06/2025", Places: []PlaceInput{}},
	})
	require.NoError(t, err)

	detail, err := env.publications.Detail(ctx, pub.ID, bo.ID)
	require.NoError(t, err)
	require.Len(t, detail.PlanSnapshot.Itinerary, 1)
	assert.Equal(t, "01/06/2025", detail.PlanSnapshot.Itinerary[0].Date)
	assert.Equal(t, "Belvedere", detail.PlanSnapshot.Itinerary[0].Places[0].Name)
}

func TestPublicationService_Feed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	for _, u := range []models.User{ana, bo, ana} {
		plan := env.seedPlan(t, u.ID, "Madrid", true)
		_, err := env.publications.PublishPlan(ctx, plan.ID, u.ID, "")
		require.NoError(t, err)
	}

	all, err := env.publications.Feed(ctx, 0, 0, 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	others, err := env.publications.Feed(ctx, ana.ID, 0, 20, 0)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, bo.ID, others[0].AuthorID)

	mine, err := env.publications.Feed(ctx, ana.ID, ana.ID, 20, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestPublicationService_ByCity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	var boPub uint
	for _, tc := range []struct {
		user models.User
		city string
	}{{ana, "New York"}, {bo, "York"}, {bo, "Paris"}} {
		plan := env.seedPlan(t, tc.user.ID, tc.city, true)
		pub, err := env.publications.PublishPlan(ctx, plan.ID, tc.user.ID, "")
		require.NoError(t, err)
		if tc.city == "York" {
			boPub = pub.ID
		}
	}

	hits, err := env.publications.ByCity(ctx, "YORK", 0, 20, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = env.publications.ByCity(ctx, "york", ana.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, boPub, hits[0].ID)

	_, err = env.publications.ByCity(ctx, "", 0, 20, 0)
	assertValidationError(t, err)
}

func TestPublicationService_ByCityUsesIndexWhenEnabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	plan := env.seedPlan(t, ana.ID, "Nice", true)
	pub, err := env.publications.PublishPlan(ctx, plan.ID, ana.ID, "")
	require.NoError(t, err)

	var asked string
	env.index.searchFn = func(_ context.Context, city string, _ uint, _, _ int) ([]uint, error) {
		asked = city
		return []uint{pub.ID, 4242}, nil
	}
	svc := NewPublicationService(env.pubsRepo, env.plansRepo, env.profilesRepo, env.plans, env.index,
		flagsStub{featureflags.SearchIndex: true})

	hits, err := svc.ByCity(ctx, "nic", 0, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, "nic", asked)
	require.Len(t, hits, 1, "ids missing from the database are skipped")
	assert.Equal(t, pub.ID, hits[0].ID)

	// An index failure falls back to SQL.
	env.index.searchFn = nil
	hits, err = svc.ByCity(ctx, "nic", 0, 20, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestPublicationService_Clone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")
	plan := env.seedPlan(t, ana.ID, "Prague", false)
	pub, err := env.publications.PublishPlan(ctx, plan.ID, ana.ID, "")
	require.NoError(t, err)

	res, err := env.publications.ClonePublication(ctx, pub.ID, bo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ClonedCount)
	assert.NotZero(t, res.PlanID)

	res, err = env.publications.ClonePublication(ctx, pub.ID, bo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ClonedCount, "publication cloners are deduplicated")

	source, err := env.plans.GetPlan(ctx, plan.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, source.ClonedCount, "plan cloners are not")

	detail, err := env.publications.Detail(ctx, pub.ID, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, []UserRef{{UserID: bo.ID, Username: "bo"}}, detail.ClonedBy)

	assert.Len(t, env.notificationsFor(t, ana.ID), 2)
}

func TestPublicationService_CloneAfterPlanGone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")
	plan := env.seedPlan(t, ana.ID, "Prague", false)
	pub, err := env.publications.PublishPlan(ctx, plan.ID, ana.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.db.Delete(&models.Plan{}, plan.ID).Error)

	_, err = env.publications.ClonePublication(ctx, pub.ID, bo.ID)
	assertAppError(t, err, models.CodeNotFound)
}
