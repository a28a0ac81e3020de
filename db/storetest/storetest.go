// Package storetest holds behaviour every planner.Store implementation must
// share, so the Mongo store and the in-memory store can be checked alike.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
	"wayfarer/planner"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) planner.Store

// Run exercises newStore against the shared store contract.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s planner.Store)
	}{
		{"PlanSequence", testPlanSequence},
		{"Places", testPlaces},
		{"Activities", testActivities},
		{"PlaceReferences", testPlaceReferences},
		{"DayActivities", testDayActivities},
		{"Plans", testPlans},
		{"ListPlans", testListPlans},
		{"NotFound", testNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var day1 = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func insertPlace(t *testing.T, s planner.Store, name string) models.Place {
	t.Helper()
	p := models.Place{Name: name, Latitude: 48.86, Longitude: 2.33}
	require.NoError(t, s.InsertPlace(context.Background(), &p))
	require.False(t, p.ID.IsZero())
	return p
}

func insertActivity(t *testing.T, s planner.Store, name string, place primitive.ObjectID, subs ...primitive.ObjectID) models.Activity {
	t.Helper()
	a := models.Activity{
		Name:          name,
		Type:          models.ActivityAttraction,
		StartDateTime: day1.Add(9 * time.Hour),
		EndDateTime:   day1.Add(11 * time.Hour),
		Place:         place,
		Cost:          12.5,
		SubActivities: subs,
	}
	require.NoError(t, s.InsertActivity(context.Background(), &a))
	require.False(t, a.ID.IsZero())
	return a
}

func testPlanSequence(t *testing.T, s planner.Store) {
	ctx := context.Background()
	max, err := s.MaxPlanID(ctx)
	require.NoError(t, err)
	assert.Zero(t, max)

	for want := 1; want <= 3; want++ {
		got, err := s.NextPlanID(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, s.InsertPlan(ctx, &models.Plan{PlanID: 2, Name: "two"}))
	max, err = s.MaxPlanID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, max)
}

func testPlaces(t *testing.T, s planner.Store) {
	ctx := context.Background()
	a := insertPlace(t, s, "Louvre")
	b := insertPlace(t, s, "Orsay")

	got, err := s.GetPlaces(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	a.Description = "museum"
	require.NoError(t, s.UpdatePlace(ctx, &a))
	got, err = s.GetPlaces(ctx, []primitive.ObjectID{a.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "museum", got[0].Description)

	n, err := s.DeletePlaces(ctx, []primitive.ObjectID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.DeletePlaces(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testActivities(t *testing.T, s planner.Store) {
	ctx := context.Background()
	place := insertPlace(t, s, "Louvre")
	sub := insertActivity(t, s, "Mona Lisa", place.ID)
	parent := insertActivity(t, s, "Louvre", place.ID, sub.ID)

	got, err := s.GetActivity(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Louvre", got.Name)
	assert.Equal(t, []primitive.ObjectID{sub.ID}, got.SubActivities)
	assert.True(t, got.StartDateTime.Equal(parent.StartDateTime))

	got.IsVisited = true
	require.NoError(t, s.UpdateActivity(ctx, got))
	again, err := s.GetActivity(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, again.IsVisited)

	parents, err := s.ParentActivities(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{parent.ID}, parents)
	parents, err = s.ParentActivities(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, parents)

	require.NoError(t, s.PullSubActivity(ctx, sub.ID))
	again, err = s.GetActivity(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, again.SubActivities)

	list, err := s.GetActivities(ctx, []primitive.ObjectID{parent.ID, sub.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := s.DeleteActivities(ctx, []primitive.ObjectID{parent.ID, sub.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testPlaceReferences(t *testing.T, s planner.Store) {
	ctx := context.Background()
	shared := insertPlace(t, s, "Eiffel Tower")
	a := insertActivity(t, s, "Morning", shared.ID)
	b := insertActivity(t, s, "Evening", shared.ID)

	n, err := s.CountPlaceReferences(ctx, shared.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountPlaceReferences(ctx, shared.ID, []primitive.ObjectID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountPlaceReferences(ctx, shared.ID, []primitive.ObjectID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDayActivities(t *testing.T, s planner.Store) {
	ctx := context.Background()
	place := insertPlace(t, s, "Louvre")
	first := insertActivity(t, s, "first", place.ID)
	last := insertActivity(t, s, "last", place.ID)
	middle := insertActivity(t, s, "middle", place.ID)

	d := models.Day{Day: 1, Date: day1, Activities: []primitive.ObjectID{first.ID}}
	require.NoError(t, s.InsertDay(ctx, &d))
	require.NoError(t, s.InsertDayActivity(ctx, d.ID, last.ID, 99))
	require.NoError(t, s.InsertDayActivity(ctx, d.ID, middle.ID, 1))

	days, err := s.GetDays(ctx, []primitive.ObjectID{d.ID})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, []primitive.ObjectID{first.ID, middle.ID, last.ID}, days[0].Activities)

	require.NoError(t, s.UpdateDayWeather(ctx, d.ID, "Clear: clear sky", 21.5))
	containing, err := s.DaysContainingActivity(ctx, middle.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{d.ID}, containing)

	require.NoError(t, s.PullDayActivity(ctx, middle.ID))
	days, err = s.GetDays(ctx, []primitive.ObjectID{d.ID})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, []primitive.ObjectID{first.ID, last.ID}, days[0].Activities)
	assert.Equal(t, "Clear: clear sky", days[0].Weather)
	assert.InDelta(t, 21.5, days[0].Temperature, 1e-9)

	n, err := s.DeleteDays(ctx, []primitive.ObjectID{d.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testPlans(t *testing.T, s planner.Store) {
	ctx := context.Background()
	d := models.Day{Day: 1, Date: day1}
	require.NoError(t, s.InsertDay(ctx, &d))

	p := models.Plan{PlanID: 7, Name: "Paris", StartingDate: day1, EndingDate: day1, DayList: []primitive.ObjectID{d.ID}, DayCount: 1, Cost: 100}
	require.NoError(t, s.InsertPlan(ctx, &p))
	require.ErrorIs(t, s.InsertPlan(ctx, &models.Plan{PlanID: 7}), models.ErrConflict)

	got, err := s.GetPlan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.Name)
	assert.Equal(t, []primitive.ObjectID{d.ID}, got.DayList)

	ids, err := s.PlanIDsForDays(ctx, []primitive.ObjectID{d.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, ids)

	name := "Paris and Lyon"
	cost := 0.0
	updated, err := s.UpdatePlan(ctx, 7, models.PlanPatch{Name: &name, Cost: &cost})
	require.NoError(t, err)
	assert.Equal(t, "Paris and Lyon", updated.Name)
	assert.Zero(t, updated.Cost)
	assert.Equal(t, 1, updated.DayCount)

	require.NoError(t, s.DeletePlan(ctx, 7))
	_, err = s.GetPlan(ctx, 7)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testListPlans(t *testing.T, s planner.Store) {
	ctx := context.Background()
	for id := 1; id <= 5; id++ {
		require.NoError(t, s.InsertPlan(ctx, &models.Plan{PlanID: id, Name: "trip", StartingDate: day1, EndingDate: day1}))
	}

	page, err := s.ListPlans(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 5, page[0].PlanID)
	assert.Equal(t, 4, page[1].PlanID)

	page, err = s.ListPlans(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 1, page[0].PlanID)

	page, err = s.ListPlans(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testNotFound(t *testing.T, s planner.Store) {
	ctx := context.Background()
	missing := primitive.NewObjectID()

	_, err := s.GetActivity(ctx, missing)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.UpdateActivity(ctx, &models.Activity{ID: missing}), models.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePlace(ctx, &models.Place{ID: missing}), models.ErrNotFound)
	assert.ErrorIs(t, s.InsertDayActivity(ctx, missing, primitive.NewObjectID(), 0), models.ErrNotFound)
	assert.ErrorIs(t, s.UpdateDayWeather(ctx, missing, "Rain", 9), models.ErrNotFound)
	_, err = s.GetPlan(ctx, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.UpdatePlan(ctx, 404, models.PlanPatch{})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.DeletePlan(ctx, 404), models.ErrNotFound)
}
