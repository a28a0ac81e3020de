package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
)

const compensationTimeout = 10 * time.Second

// placeKey identifies a place within one document. Same-named places at
// different coordinates are distinct.
type placeKey struct {
	name     string
	lat, lng float64
}

func keyOf(p *models.PlaceDocument) placeKey {
	k := placeKey{name: p.Name}
	if p.Latitude != nil {
		k.lat = *p.Latitude
	}
	if p.Longitude != nil {
		k.lng = *p.Longitude
	}
	return k
}

// written records what one multi-step write created, for compensation.
type written struct {
	places     []primitive.ObjectID
	activities []primitive.ObjectID
	days       []primitive.ObjectID
	planID     int
}

// Ingest validates doc and persists it bottom-up: places, sub-activities,
// activities, days, then the plan. The returned document carries the assigned
// identities. A failure at any step removes every record already written.
func (s *Service) Ingest(ctx context.Context, doc *models.PlanDocument) (*models.PlanDocument, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var (
		w   written
		out *models.PlanDocument
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		w = written{}
		var err error
		out, err = s.ingest(ctx, doc, &w)
		return err
	})
	if err != nil {
		s.compensate(ctx, &w)
		return nil, fmt.Errorf("ingest plan: %w", err)
	}

	s.changed(ctx, models.PlanCreated, out.PlanID)
	s.log.Info().
		Int("planId", out.PlanID).
		Int("days", len(out.DayList)).
		Int("activities", out.ActivityCount()).
		Int("places", len(w.places)).
		Msg("plan ingested")
	return out, nil
}

func (s *Service) ingest(ctx context.Context, doc *models.PlanDocument, w *written) (*models.PlanDocument, error) {
	places := make(map[placeKey]primitive.ObjectID)
	for _, p := range doc.Places() {
		if _, err := s.resolvePlace(ctx, p, places, w); err != nil {
			return nil, err
		}
	}

	out := *doc
	out.DayList = make([]models.DayDocument, len(doc.DayList))
	dayIDs := make([]primitive.ObjectID, 0, len(doc.DayList))
	for i := range doc.DayList {
		in := &doc.DayList[i]
		dayOut := *in
		dayOut.Activities = make([]models.ActivityDocument, len(in.Activities))
		activityIDs := make([]primitive.ObjectID, 0, len(in.Activities))
		for j := range in.Activities {
			rec, aOut, err := s.persistActivity(ctx, &in.Activities[j], places, w)
			if err != nil {
				return nil, err
			}
			activityIDs = append(activityIDs, rec.ID)
			dayOut.Activities[j] = aOut
		}

		day := models.Day{
			Day:         in.Day,
			Date:        in.Date.Time,
			Activities:  activityIDs,
			Weather:     in.Weather,
			Temperature: in.Temperature,
			Cost:        in.Cost,
		}
		if err := s.store.InsertDay(ctx, &day); err != nil {
			return nil, err
		}
		w.days = append(w.days, day.ID)
		dayIDs = append(dayIDs, day.ID)
		dayOut.ID = day.ID.Hex()
		out.DayList[i] = dayOut
	}

	plan := models.Plan{
		Name:         doc.Name,
		StartingDate: doc.StartingDate.Time,
		EndingDate:   doc.EndingDate.Time,
		DayList:      dayIDs,
		DayCount:     doc.DayCount,
		Cost:         doc.Cost,
	}
	if err := s.insertPlan(ctx, &plan); err != nil {
		return nil, err
	}
	w.planID = plan.PlanID
	out.ID = plan.ID.Hex()
	out.PlanID = plan.PlanID
	return &out, nil
}

// persistActivity stores a's sub-activities, then a itself, and returns the
// record together with a copy of a carrying the new identities.
func (s *Service) persistActivity(ctx context.Context, a *models.ActivityDocument, places map[placeKey]primitive.ObjectID, w *written) (models.Activity, models.ActivityDocument, error) {
	out := *a
	out.SubActivities = make([]models.ActivityDocument, 0, len(a.SubActivities))
	subIDs := make([]primitive.ObjectID, 0, len(a.SubActivities))
	for i := range a.SubActivities {
		sub, subOut, err := s.persistActivity(ctx, &a.SubActivities[i], places, w)
		if err != nil {
			return models.Activity{}, models.ActivityDocument{}, err
		}
		subIDs = append(subIDs, sub.ID)
		out.SubActivities = append(out.SubActivities, subOut)
	}

	placeID, err := s.resolvePlace(ctx, a.Place, places, w)
	if err != nil {
		return models.Activity{}, models.ActivityDocument{}, err
	}
	rec := activityFromDocument(a, placeID, subIDs)
	if err := s.store.InsertActivity(ctx, &rec); err != nil {
		return models.Activity{}, models.ActivityDocument{}, err
	}
	w.activities = append(w.activities, rec.ID)

	place := *a.Place
	place.ID = placeID.Hex()
	out.Place = &place
	out.ID = rec.ID.Hex()
	return rec, out, nil
}

// resolvePlace returns the identity already issued for p's key, storing a new
// place record on first sight.
func (s *Service) resolvePlace(ctx context.Context, p *models.PlaceDocument, places map[placeKey]primitive.ObjectID, w *written) (primitive.ObjectID, error) {
	key := keyOf(p)
	if id, ok := places[key]; ok {
		return id, nil
	}
	rec := placeFromDocument(p)
	if err := s.store.InsertPlace(ctx, &rec); err != nil {
		return primitive.NilObjectID, err
	}
	w.places = append(w.places, rec.ID)
	places[key] = rec.ID
	return rec.ID, nil
}

// compensate deletes what a failed write left behind. Deleting records a
// rolled-back transaction never committed is a no-op.
func (s *Service) compensate(ctx context.Context, w *written) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs []error
	if w.planID != 0 {
		if err := s.store.DeletePlan(ctx, w.planID); err != nil && !errors.Is(err, models.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if _, err := s.store.DeleteDays(ctx, w.days); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.store.DeleteActivities(ctx, w.activities); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.store.DeletePlaces(ctx, w.places); err != nil {
		errs = append(errs, err)
	}

	var ev *zerolog.Event
	if len(errs) > 0 {
		ev = s.log.Error().Err(errors.Join(errs...))
	} else {
		ev = s.log.Warn()
	}
	ev.Int("places", len(w.places)).
		Int("activities", len(w.activities)).
		Int("days", len(w.days)).
		Int("planId", w.planID).
		Msg("partial write compensated")
}

func placeFromDocument(p *models.PlaceDocument) models.Place {
	rec := models.Place{Name: p.Name, Description: p.Description}
	if p.Latitude != nil {
		rec.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		rec.Longitude = *p.Longitude
	}
	return rec
}

func activityFromDocument(a *models.ActivityDocument, placeID primitive.ObjectID, subIDs []primitive.ObjectID) models.Activity {
	return models.Activity{
		Name:          a.Name,
		Type:          a.Type,
		StartDateTime: a.StartDateTime.Time,
		EndDateTime:   a.EndDateTime.Time,
		Place:         placeID,
		Cost:          a.Cost,
		Description:   a.Description,
		IsVisited:     a.IsVisited,
		SubActivities: subIDs,
	}
}
