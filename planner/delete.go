package planner

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
)

// DeletePlan removes a plan with all of its days and activities. Its places
// are removed too, except those an activity of another plan still references.
func (s *Service) DeletePlan(ctx context.Context, planID int) (models.DeletePlanResult, error) {
	var res models.DeletePlanResult
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return res, err
	}
	g, err := s.loadGraph(ctx, plan)
	if err != nil {
		return res, err
	}
	activities := g.activityIDs()
	places := make([]primitive.ObjectID, 0, len(g.places))
	for id := range g.places {
		places = append(places, id)
	}
	places = uniqueIDs(places)

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		res = models.DeletePlanResult{}
		var orphaned []primitive.ObjectID
		for _, placeID := range places {
			refs, err := s.store.CountPlaceReferences(ctx, placeID, activities)
			if err != nil {
				return err
			}
			if refs == 0 {
				orphaned = append(orphaned, placeID)
			}
		}

		var err error
		if res.DeletedActivities, err = s.store.DeleteActivities(ctx, activities); err != nil {
			return err
		}
		if res.DeletedDays, err = s.store.DeleteDays(ctx, plan.DayList); err != nil {
			return err
		}
		if res.DeletedPlaces, err = s.store.DeletePlaces(ctx, orphaned); err != nil {
			return err
		}
		return s.store.DeletePlan(ctx, planID)
	})
	if err != nil {
		return models.DeletePlanResult{}, fmt.Errorf("delete plan %d: %w", planID, err)
	}

	s.changed(ctx, models.PlanDeleted, planID)
	s.log.Info().
		Int("planId", planID).
		Int("deletedDays", res.DeletedDays).
		Int("deletedActivities", res.DeletedActivities).
		Int("deletedPlaces", res.DeletedPlaces).
		Msg("plan deleted")
	return res, nil
}
