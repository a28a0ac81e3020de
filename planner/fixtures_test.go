package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wayfarer/db/memstore"
	"wayfarer/models"
)

var _ Store = (*memstore.Store)(nil)

var tripStart = time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)

func coord(v float64) *float64 { return &v }

func placeDoc(name string, lat, lng float64) *models.PlaceDocument {
	return &models.PlaceDocument{Name: name, Latitude: coord(lat), Longitude: coord(lng)}
}

func activityDoc(name string, day, hour int, place *models.PlaceDocument, subs ...models.ActivityDocument) models.ActivityDocument {
	start := tripStart.AddDate(0, 0, day-1).Add(time.Duration(hour) * time.Hour)
	if subs == nil {
		subs = []models.ActivityDocument{}
	}
	return models.ActivityDocument{
		Name:          name,
		Type:          models.ActivityAttraction,
		StartDateTime: models.NewFlexTime(start),
		EndDateTime:   models.NewFlexTime(start.Add(time.Hour)),
		Place:         place,
		Cost:          12.5,
		SubActivities: subs,
	}
}

func dayDoc(day int, activities ...models.ActivityDocument) models.DayDocument {
	if activities == nil {
		activities = []models.ActivityDocument{}
	}
	return models.DayDocument{
		Day:        day,
		Date:       models.NewFlexTime(tripStart.AddDate(0, 0, day-1)),
		Activities: activities,
		Cost:       25,
	}
}

func planDoc(name string, days ...models.DayDocument) *models.PlanDocument {
	return &models.PlanDocument{
		Name:         name,
		StartingDate: models.NewFlexTime(tripStart),
		EndingDate:   models.NewFlexTime(tripStart.AddDate(0, 0, len(days)-1)),
		DayList:      days,
		DayCount:     len(days),
		Cost:         50,
	}
}

// parisPlan has two days of two activities each; the first activity carries
// one sub-activity.
func parisPlan() *models.PlanDocument {
	return planDoc("Paris",
		dayDoc(1,
			activityDoc("Louvre", 1, 9, placeDoc("Louvre", 48.8606, 2.3376),
				activityDoc("Mona Lisa", 1, 10, placeDoc("Salle des Etats", 48.8600, 2.3370))),
			activityDoc("Lunch", 1, 13, placeDoc("Le Fumoir", 48.8610, 2.3410)),
		),
		dayDoc(2,
			activityDoc("Eiffel Tower", 2, 10, placeDoc("Eiffel Tower", 48.8584, 2.2945)),
			activityDoc("Dinner", 2, 19, placeDoc("Chez Janou", 48.8570, 2.3660)),
		),
	)
}

// flatPlan has two days of two activities, each at its own place.
func flatPlan(name string) *models.PlanDocument {
	return planDoc(name,
		dayDoc(1,
			activityDoc("A1", 1, 9, placeDoc(name+" P1", 10, 10)),
			activityDoc("A2", 1, 14, placeDoc(name+" P2", 11, 11)),
		),
		dayDoc(2,
			activityDoc("A3", 2, 9, placeDoc(name+" P3", 12, 12)),
			activityDoc("A4", 2, 14, placeDoc(name+" P4", 13, 13)),
		),
	)
}

// failingStore fails InsertDay after the first failAfter successful calls.
type failingStore struct {
	*memstore.Store
	failAfter int
	calls     int
}

var errInjected = errors.New("injected failure")

func (f *failingStore) InsertDay(ctx context.Context, d *models.Day) error {
	f.calls++
	if f.calls > f.failAfter {
		return errInjected
	}
	return f.Store.InsertDay(ctx, d)
}

type recordingCache struct {
	mu          sync.Mutex
	docs        map[int]*models.PlanDocument
	invalidated []int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{docs: make(map[int]*models.PlanDocument)}
}

func (c *recordingCache) GetPlan(_ context.Context, planID int) (*models.PlanDocument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[planID]
	return doc, ok
}

func (c *recordingCache) SetPlan(_ context.Context, doc *models.PlanDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[doc.PlanID] = doc
}

func (c *recordingCache) InvalidatePlan(_ context.Context, planIDs ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range planIDs {
		delete(c.docs, id)
		c.invalidated = append(c.invalidated, id)
	}
}

type stubWeather struct {
	byDate map[string]models.Forecast
}

func (w stubWeather) Forecast(_ context.Context, _, _ float64, date models.FlexTime) (models.Forecast, error) {
	fc, ok := w.byDate[date.Format("2006-01-02")]
	if !ok {
		return models.Forecast{}, fmt.Errorf("%w: no forecast", models.ErrNotFound)
	}
	return fc, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.PlanEvent
}

func (e *recordingEvents) Emit(_ context.Context, evt models.PlanEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *recordingEvents) kinds(planID int) []models.PlanEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.PlanEventType
	for _, evt := range e.events {
		if evt.PlanID == planID {
			out = append(out, evt.Type)
		}
	}
	return out
}
