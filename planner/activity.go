package planner

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
)

// dayOf resolves the plan's day for a client-supplied 1-based day number.
func (s *Service) dayOf(ctx context.Context, planID, dayNumber int) (*models.Day, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	idx := DayIndex(dayNumber)
	if idx >= len(plan.DayList) {
		return nil, fmt.Errorf("%w: plan %d has no day %d", models.ErrNotFound, planID, idx+1)
	}
	days, err := s.store.GetDays(ctx, plan.DayList[idx:idx+1])
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: day %s", models.ErrNotFound, plan.DayList[idx].Hex())
	}
	return &days[0], nil
}

// AppendActivity stores a new activity, with its place and sub-activities,
// and inserts it into the day's schedule ahead of the first activity that
// starts later.
func (s *Service) AppendActivity(ctx context.Context, planID, dayNumber int, doc *models.ActivityDocument) (*models.ActivityDocument, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	day, err := s.dayOf(ctx, planID, dayNumber)
	if err != nil {
		return nil, err
	}
	position, err := s.schedulePosition(ctx, day, doc.StartDateTime)
	if err != nil {
		return nil, err
	}

	var (
		w   written
		out models.ActivityDocument
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		w = written{}
		places := make(map[placeKey]primitive.ObjectID)
		rec, aOut, err := s.persistActivity(ctx, doc, places, &w)
		if err != nil {
			return err
		}
		out = aOut
		return s.store.InsertDayActivity(ctx, day.ID, rec.ID, position)
	})
	if err != nil {
		s.compensate(ctx, &w)
		return nil, fmt.Errorf("append activity: %w", err)
	}

	s.changed(ctx, models.PlanUpdated, planID)
	s.log.Info().Int("planId", planID).Int("day", day.Day).Str("activity", out.ID).Int("position", position).Msg("activity appended")
	return &out, nil
}

// schedulePosition returns the index of the first activity in day that starts
// after start, or the list length.
func (s *Service) schedulePosition(ctx context.Context, day *models.Day, start models.FlexTime) (int, error) {
	if len(day.Activities) == 0 {
		return 0, nil
	}
	current, err := s.store.GetActivities(ctx, day.Activities)
	if err != nil {
		return 0, err
	}
	starts := make(map[primitive.ObjectID]models.FlexTime, len(current))
	for _, a := range current {
		starts[a.ID] = models.NewFlexTime(a.StartDateTime)
	}
	for i, id := range day.Activities {
		if t, ok := starts[id]; ok && t.After(start.Time) {
			return i, nil
		}
	}
	return len(day.Activities), nil
}

// UpdateActivity replaces an activity's fields. A replacement place carrying
// an _id updates that place record; otherwise a new place is stored and the
// previous one is dropped if nothing else references it. The activity keeps
// its identity and its sub-activities.
func (s *Service) UpdateActivity(ctx context.Context, planID, dayNumber int, activityHex string, repl *models.ActivityDocument) (*models.Activity, error) {
	activityID, err := models.ParseObjectID(activityHex)
	if err != nil {
		return nil, err
	}
	if err := repl.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.dayOf(ctx, planID, dayNumber); err != nil {
		return nil, err
	}
	current, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	updated := activityFromDocument(repl, current.Place, current.SubActivities)
	updated.ID = current.ID

	var created primitive.ObjectID
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		created = primitive.NilObjectID
		place := placeFromDocument(repl.Place)
		if repl.Place.ID != "" {
			id, err := models.ParseObjectID(repl.Place.ID)
			if err != nil {
				return err
			}
			place.ID = id
			if err := s.store.UpdatePlace(ctx, &place); err != nil {
				return err
			}
		} else {
			if err := s.store.InsertPlace(ctx, &place); err != nil {
				return err
			}
			created = place.ID
		}
		updated.Place = place.ID

		if err := s.store.UpdateActivity(ctx, &updated); err != nil {
			return err
		}
		if updated.Place == current.Place {
			return nil
		}
		refs, err := s.store.CountPlaceReferences(ctx, current.Place, nil)
		if err != nil {
			return err
		}
		if refs == 0 {
			_, err = s.store.DeletePlaces(ctx, []primitive.ObjectID{current.Place})
		}
		return err
	})
	if err != nil {
		if !created.IsZero() {
			s.compensate(ctx, &written{places: []primitive.ObjectID{created}})
		}
		return nil, fmt.Errorf("update activity: %w", err)
	}

	s.invalidateActivity(ctx, activityID, planID)
	s.log.Info().Int("planId", planID).Str("activity", activityHex).Msg("activity updated")
	return &updated, nil
}

// DeleteActivity removes an activity and its sub-activities, drops it from
// every day and parent activity, and deletes each of their places that no
// surviving activity references.
func (s *Service) DeleteActivity(ctx context.Context, activityHex string) (models.DeleteActivityResult, error) {
	var res models.DeleteActivityResult
	activityID, err := models.ParseObjectID(activityHex)
	if err != nil {
		return res, err
	}
	activity, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return res, err
	}
	subs, err := s.store.GetActivities(ctx, activity.SubActivities)
	if err != nil {
		return res, err
	}

	removed := []primitive.ObjectID{activity.ID}
	candidates := []primitive.ObjectID{activity.Place}
	for _, sub := range subs {
		removed = append(removed, sub.ID)
		candidates = append(candidates, sub.Place)
	}
	candidates = uniqueIDs(candidates)

	// Plans are resolved before the day and parent references are pulled.
	plans, err := s.plansContaining(ctx, activityID)
	if err != nil {
		return res, err
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		res = models.DeleteActivityResult{}
		var orphaned []primitive.ObjectID
		for _, placeID := range candidates {
			refs, err := s.store.CountPlaceReferences(ctx, placeID, removed)
			if err != nil {
				return err
			}
			if refs == 0 {
				orphaned = append(orphaned, placeID)
			}
		}

		n, err := s.store.DeleteActivities(ctx, removed)
		if err != nil {
			return err
		}
		if n > 0 {
			res.DeletedSubActivities = n - 1
		}
		if res.DeletedPlaces, err = s.store.DeletePlaces(ctx, orphaned); err != nil {
			return err
		}
		if err := s.store.PullDayActivity(ctx, activityID); err != nil {
			return err
		}
		return s.store.PullSubActivity(ctx, activityID)
	})
	if err != nil {
		return models.DeleteActivityResult{}, fmt.Errorf("delete activity: %w", err)
	}

	s.changed(ctx, models.PlanUpdated, plans...)
	s.log.Info().
		Str("activity", activityHex).
		Int("deletedSubActivities", res.DeletedSubActivities).
		Int("deletedPlaces", res.DeletedPlaces).
		Msg("activity deleted")
	return res, nil
}

// plansContaining returns the plans whose days list activityID directly or
// through a parent activity.
func (s *Service) plansContaining(ctx context.Context, activityID primitive.ObjectID) ([]int, error) {
	parents, err := s.store.ParentActivities(ctx, activityID)
	if err != nil {
		return nil, err
	}
	var days []primitive.ObjectID
	for _, id := range append([]primitive.ObjectID{activityID}, parents...) {
		found, err := s.store.DaysContainingActivity(ctx, id)
		if err != nil {
			return nil, err
		}
		days = append(days, found...)
	}
	plans, err := s.store.PlanIDsForDays(ctx, uniqueIDs(days))
	if err != nil {
		return nil, err
	}
	return uniqueInts(plans), nil
}

// invalidateActivity reports a change to every plan containing activityID,
// along with the extra plans given.
func (s *Service) invalidateActivity(ctx context.Context, activityID primitive.ObjectID, extra ...int) {
	plans, err := s.plansContaining(ctx, activityID)
	if err != nil {
		s.log.Warn().Err(err).Str("activity", activityID.Hex()).Msg("resolving plans for cache invalidation")
	}
	s.changed(ctx, models.PlanUpdated, uniqueInts(append(extra, plans...))...)
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func uniqueInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
