package planner

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/db/memstore"
	"wayfarer/models"
)

func newService(t *testing.T, opts ...Option) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return New(store, opts...), store
}

func activityNames(acts []models.ActivityDocument) []string {
	names := make([]string, 0, len(acts))
	for _, a := range acts {
		names = append(names, a.Name)
	}
	return names
}

func TestIngestFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	in := parisPlan()

	created, err := svc.Ingest(ctx, in)
	require.NoError(t, err)
	require.Equal(t, 1, created.PlanID)
	require.NotEmpty(t, created.ID)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)

	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.DayCount, got.DayCount)
	assert.Equal(t, in.Cost, got.Cost)
	assert.True(t, in.StartingDate.Equal(got.StartingDate.Time))
	assert.True(t, in.EndingDate.Equal(got.EndingDate.Time))
	require.Len(t, got.DayList, len(in.DayList))

	for i, wantDay := range in.DayList {
		gotDay := got.DayList[i]
		assert.Equal(t, wantDay.Day, gotDay.Day)
		assert.True(t, wantDay.Date.Equal(gotDay.Date.Time))
		assert.Equal(t, wantDay.Cost, gotDay.Cost)
		assert.Equal(t, created.DayList[i].ID, gotDay.ID)
		require.Len(t, gotDay.Activities, len(wantDay.Activities))
		for j, want := range wantDay.Activities {
			act := gotDay.Activities[j]
			assert.Equal(t, want.Name, act.Name)
			assert.Equal(t, want.Type, act.Type)
			assert.Equal(t, want.Cost, act.Cost)
			assert.True(t, want.StartDateTime.Equal(act.StartDateTime.Time))
			assert.True(t, want.EndDateTime.Equal(act.EndDateTime.Time))
			require.NotNil(t, act.Place)
			assert.Equal(t, want.Place.Name, act.Place.Name)
			assert.Equal(t, *want.Place.Latitude, *act.Place.Latitude)
			assert.Len(t, act.SubActivities, len(want.SubActivities))
			for k, sub := range want.SubActivities {
				assert.Equal(t, sub.Name, act.SubActivities[k].Name)
				assert.Equal(t, sub.Place.Name, act.SubActivities[k].Place.Name)
			}
		}
	}
}

func TestIngestDeduplicatesPlacesByNameAndCoordinates(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	doc := planDoc("Dedup",
		dayDoc(1,
			activityDoc("Morning", 1, 9, placeDoc("Central Station", 52.3791, 4.9003)),
			activityDoc("Evening", 1, 18, placeDoc("Central Station", 52.3791, 4.9003)),
			activityDoc("Elsewhere", 1, 20, placeDoc("Central Station", 51.9244, 4.4690)),
		),
	)

	created, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)

	acts := created.DayList[0].Activities
	assert.Equal(t, acts[0].Place.ID, acts[1].Place.ID, "same name and coordinates share a place")
	assert.NotEqual(t, acts[0].Place.ID, acts[2].Place.ID, "same name at other coordinates stays distinct")

	places, _, _, _ := store.Counts()
	assert.Equal(t, 2, places)
}

func TestIngestRejectsInvalidDocumentWithoutWrites(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	doc := parisPlan()
	doc.DayList[0].Activities[1].Cost = -0.01

	_, err := svc.Ingest(ctx, doc)
	require.ErrorIs(t, err, models.ErrValidation)

	places, activities, days, plans := store.Counts()
	assert.Zero(t, places+activities+days+plans)
}

func TestIngestCompensatesPartialWrites(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memstore.New(), failAfter: 1}
	svc := New(store)

	_, err := svc.Ingest(ctx, parisPlan())
	require.ErrorIs(t, err, errInjected)

	places, activities, days, plans := store.Counts()
	assert.Zero(t, places, "places")
	assert.Zero(t, activities, "activities")
	assert.Zero(t, days, "days")
	assert.Zero(t, plans, "plans")
}

func TestSequentialPlanIDsAreContiguous(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Ingest(ctx, flatPlan("seed"))
	require.NoError(t, err)

	prevMax, err := svc.MaxPlanID(ctx)
	require.NoError(t, err)

	const n = 5
	for i := 1; i <= n; i++ {
		name := "shell"
		plan, err := svc.CreateEmptyPlan(ctx, models.PlanPatch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, prevMax+i, plan.PlanID)
	}

	max, err := svc.MaxPlanID(ctx)
	require.NoError(t, err)
	assert.Equal(t, prevMax+n, max)
}

func TestConcurrentPlanCreationYieldsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	const n = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  []int
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan, err := svc.CreateEmptyPlan(ctx, models.PlanPatch{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids = append(ids, plan.PlanID)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Ints(ids)
	require.Len(t, ids, n)
	for i := range ids {
		assert.Equal(t, i+1, ids[i])
	}
}

func TestDeleteActivityKeepsSharedPlaceUntilLastReference(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	doc := planDoc("Shared",
		dayDoc(1,
			activityDoc("A1", 1, 9, placeDoc("Harbour", 1, 1)),
			activityDoc("A2", 1, 12, placeDoc("Harbour", 1, 1)),
		),
	)
	created, err := svc.Ingest(ctx, doc)
	require.NoError(t, err)
	a1 := created.DayList[0].Activities[0]
	a2 := created.DayList[0].Activities[1]
	require.Equal(t, a1.Place.ID, a2.Place.ID)

	res, err := svc.DeleteActivity(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedPlaces)
	places, _, _, _ := store.Counts()
	assert.Equal(t, 1, places)

	res, err = svc.DeleteActivity(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedPlaces)
	places, activities, _, _ := store.Counts()
	assert.Zero(t, places)
	assert.Zero(t, activities)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Empty(t, got.DayList[0].Activities)
}

func TestDeleteActivityRemovesSubActivities(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	created, err := svc.Ingest(ctx, parisPlan())
	require.NoError(t, err)

	louvre := created.DayList[0].Activities[0]
	res, err := svc.DeleteActivity(ctx, louvre.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedSubActivities)
	assert.Equal(t, 2, res.DeletedPlaces)

	_, activities, _, _ := store.Counts()
	assert.Equal(t, 3, activities)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lunch"}, activityNames(got.DayList[0].Activities))
}

func TestDeleteActivityRejectsMalformedAndUnknownIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.DeleteActivity(ctx, "not-an-id")
	require.ErrorIs(t, err, models.ErrInvalidID)

	_, err = svc.DeleteActivity(ctx, "64b7f9a2e4b0c1a2b3c4d5e6")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeletePlanCascades(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Cascade"))
	require.NoError(t, err)

	res, err := svc.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, models.DeletePlanResult{DeletedDays: 2, DeletedActivities: 4, DeletedPlaces: 4}, res)

	_, err = svc.Fetch(ctx, created.PlanID)
	require.ErrorIs(t, err, models.ErrNotFound)

	places, activities, days, plans := store.Counts()
	assert.Zero(t, places+activities+days+plans)
}

func TestDeletePlanKeepsPlacesReferencedByOtherPlans(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	first, err := svc.Ingest(ctx, flatPlan("First"))
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, flatPlan("Second"))
	require.NoError(t, err)

	// Point one of the second plan's activities at a place of the first plan.
	borrowed := first.DayList[0].Activities[0].Place
	repl := activityDoc("Borrowed", 1, 9, &models.PlaceDocument{
		ID: borrowed.ID, Name: borrowed.Name, Latitude: borrowed.Latitude, Longitude: borrowed.Longitude,
	})
	_, err = svc.UpdateActivity(ctx, second.PlanID, 1, second.DayList[0].Activities[0].ID, &repl)
	require.NoError(t, err)

	res, err := svc.DeletePlan(ctx, first.PlanID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DeletedPlaces)

	got, err := svc.Fetch(ctx, second.PlanID)
	require.NoError(t, err)
	require.NotNil(t, got.DayList[0].Activities[0].Place)
	assert.Equal(t, borrowed.ID, got.DayList[0].Activities[0].Place.ID)

	places, _, _, plans := store.Counts()
	assert.Equal(t, 4, places)
	assert.Equal(t, 1, plans)
}

func TestDeletePlanUnknown(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.DeletePlan(context.Background(), 42)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestAppendActivityOrdersByStartTime(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Append"))
	require.NoError(t, err)

	noon := activityDoc("Noon", 1, 12, placeDoc("Market", 20, 20))
	out, err := svc.AppendActivity(ctx, created.PlanID, 1, &noon)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.NotEmpty(t, out.Place.ID)

	late := activityDoc("Late", 1, 22, placeDoc("Bar", 21, 21))
	_, err = svc.AppendActivity(ctx, created.PlanID, 1, &late)
	require.NoError(t, err)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "Noon", "A2", "Late"}, activityNames(got.DayList[0].Activities))
	assert.Equal(t, []string{"A3", "A4"}, activityNames(got.DayList[1].Activities))
}

func TestAppendActivityDayOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Range"))
	require.NoError(t, err)

	act := activityDoc("Nowhere", 3, 9, placeDoc("Void", 0, 0))
	_, err = svc.AppendActivity(ctx, created.PlanID, 3, &act)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateActivityReplacesPlace(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Update"))
	require.NoError(t, err)
	target := created.DayList[1].Activities[0]

	repl := activityDoc("Museum", 2, 11, placeDoc("Rijksmuseum", 52.36, 4.885))
	repl.IsVisited = true
	updated, err := svc.UpdateActivity(ctx, created.PlanID, 2, target.ID, &repl)
	require.NoError(t, err)
	assert.Equal(t, target.ID, updated.ID.Hex())
	assert.NotEqual(t, target.Place.ID, updated.Place.Hex())

	// the old place had no other reference
	places, _, _, _ := store.Counts()
	assert.Equal(t, 4, places)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	act := got.DayList[1].Activities[0]
	assert.Equal(t, "Museum", act.Name)
	assert.True(t, act.IsVisited)
	assert.Equal(t, "Rijksmuseum", act.Place.Name)
}

func TestUpdateActivityEditsPlaceInPlace(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Edit"))
	require.NoError(t, err)
	target := created.DayList[0].Activities[1]

	place := *target.Place
	place.Name = "Renamed"
	repl := activityDoc(target.Name, 1, 15, &place)
	updated, err := svc.UpdateActivity(ctx, created.PlanID, 0, target.ID, &repl)
	require.NoError(t, err)
	assert.Equal(t, target.Place.ID, updated.Place.Hex())

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.DayList[0].Activities[1].Place.Name)
}

func TestUpdateActivityValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Invalid"))
	require.NoError(t, err)
	target := created.DayList[0].Activities[0]

	repl := activityDoc("Bad", 1, 9, placeDoc("P", 1, 1))
	repl.Cost = -0.01
	_, err = svc.UpdateActivity(ctx, created.PlanID, 1, target.ID, &repl)
	require.ErrorIs(t, err, models.ErrValidation)

	repl.Cost = 0
	_, err = svc.UpdateActivity(ctx, created.PlanID, 7, target.ID, &repl)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.UpdateActivity(ctx, created.PlanID, 1, "xyz", &repl)
	require.ErrorIs(t, err, models.ErrInvalidID)
}

func TestUpdatePlanPatchesFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Patch"))
	require.NoError(t, err)

	name := "Renamed trip"
	cost := 0.0
	plan, err := svc.UpdatePlan(ctx, created.PlanID, models.PlanPatch{Name: &name, Cost: &cost})
	require.NoError(t, err)
	assert.Equal(t, name, plan.Name)
	assert.Zero(t, plan.Cost)
	assert.Equal(t, 2, plan.DayCount)

	negative := -0.01
	_, err = svc.UpdatePlan(ctx, created.PlanID, models.PlanPatch{Cost: &negative})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UpdatePlan(ctx, 999, models.PlanPatch{Name: &name})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestListPlansNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	for i := 0; i < 3; i++ {
		_, err := svc.CreateEmptyPlan(ctx, models.PlanPatch{})
		require.NoError(t, err)
	}

	page, err := svc.ListPlans(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].PlanID)
	assert.Equal(t, 2, page[1].PlanID)

	page, err = svc.ListPlans(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 1, page[0].PlanID)
}

func TestCacheServesFetchAndIsInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	cache := newRecordingCache()
	svc, _ := newService(t, WithCache(cache))
	created, err := svc.Ingest(ctx, flatPlan("Cached"))
	require.NoError(t, err)

	_, err = svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	_, ok := cache.GetPlan(ctx, created.PlanID)
	require.True(t, ok)

	_, err = svc.DeleteActivity(ctx, created.DayList[0].Activities[0].ID)
	require.NoError(t, err)
	_, ok = cache.GetPlan(ctx, created.PlanID)
	assert.False(t, ok)
	assert.Contains(t, cache.invalidated, created.PlanID)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Len(t, got.DayList[0].Activities, 1)
}

func TestDeletingSubActivityInvalidatesParentPlan(t *testing.T) {
	ctx := context.Background()
	cache := newRecordingCache()
	events := &recordingEvents{}
	svc, _ := newService(t, WithCache(cache), WithEvents(events))
	created, err := svc.Ingest(ctx, parisPlan())
	require.NoError(t, err)

	before, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	require.Len(t, before.DayList[0].Activities[0].SubActivities, 1)

	res, err := svc.DeleteActivity(ctx, created.DayList[0].Activities[0].SubActivities[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedSubActivities)
	assert.Contains(t, cache.invalidated, created.PlanID)
	assert.Equal(t, []models.PlanEventType{models.PlanCreated, models.PlanUpdated}, events.kinds(created.PlanID))

	after, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Empty(t, after.DayList[0].Activities[0].SubActivities)
}

func TestRefreshWeather(t *testing.T) {
	ctx := context.Background()
	weather := stubWeather{byDate: map[string]models.Forecast{
		tripStart.Format("2006-01-02"): {Summary: "Clear", Temperature: 21.5},
	}}
	svc, _ := newService(t, WithWeather(weather))
	created, err := svc.Ingest(ctx, flatPlan("Weather"))
	require.NoError(t, err)

	got, err := svc.RefreshWeather(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, "Clear", got.DayList[0].Weather)
	assert.Equal(t, 21.5, got.DayList[0].Temperature)
	assert.Empty(t, got.DayList[1].Weather, "day outside the forecast window is untouched")
}

func TestRefreshWeatherWithoutProvider(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.RefreshWeather(context.Background(), 1)
	require.ErrorIs(t, err, ErrNoWeatherProvider)
}

func TestDayIndex(t *testing.T) {
	cases := map[int]int{-3: 0, 0: 0, 1: 0, 2: 1, 10: 9}
	for in, want := range cases {
		assert.Equal(t, want, DayIndex(in), "day %d", in)
	}
}

func TestFetchSkipsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	created, err := svc.Ingest(ctx, flatPlan("Dangling"))
	require.NoError(t, err)

	dayID, err := models.ParseObjectID(created.DayList[1].ID)
	require.NoError(t, err)
	_, err = store.DeleteDays(ctx, []primitive.ObjectID{dayID})
	require.NoError(t, err)

	got, err := svc.Fetch(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Len(t, got.DayList, 1)
}

func TestPlanChangesAreAnnounced(t *testing.T) {
	ctx := context.Background()
	events := &recordingEvents{}
	svc, _ := newService(t, WithEvents(events))

	created, err := svc.Ingest(ctx, flatPlan("Announced"))
	require.NoError(t, err)
	name := "Renamed"
	_, err = svc.UpdatePlan(ctx, created.PlanID, models.PlanPatch{Name: &name})
	require.NoError(t, err)
	_, err = svc.DeleteActivity(ctx, created.DayList[1].Activities[0].ID)
	require.NoError(t, err)
	_, err = svc.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)

	assert.Equal(t, []models.PlanEventType{
		models.PlanCreated,
		models.PlanUpdated,
		models.PlanUpdated,
		models.PlanDeleted,
	}, events.kinds(created.PlanID))

	_, err = svc.DeletePlan(ctx, created.PlanID)
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Len(t, events.kinds(created.PlanID), 4, "failed changes are not announced")
}
