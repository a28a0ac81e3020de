package maps

import (
	"context"
	"errors"

	"wayfarer/models"
)

// Router resolves a single leg.
type Router interface {
	Route(ctx context.Context, leg models.TravelLeg) (models.TravelLeg, error)
}

// Pairs lists the legs between consecutive located activities of each day.
// Consecutive activities at the same coordinates need no travel and are
// skipped.
func Pairs(doc *models.PlanDocument) []models.TravelLeg {
	var legs []models.TravelLeg
	for _, day := range doc.DayList {
		var prev *models.PlaceDocument
		for i := range day.Activities {
			p := day.Activities[i].Place
			if p == nil || p.Latitude == nil || p.Longitude == nil {
				continue
			}
			if prev != nil && (*prev.Latitude != *p.Latitude || *prev.Longitude != *p.Longitude) {
				legs = append(legs, models.TravelLeg{
					Day:     day.Day,
					From:    prev.Name,
					To:      p.Name,
					FromLat: *prev.Latitude,
					FromLng: *prev.Longitude,
					ToLat:   *p.Latitude,
					ToLng:   *p.Longitude,
				})
			}
			prev = p
		}
	}
	return legs
}

// Legs routes every pair in doc. Pairs the provider cannot route are left out.
func Legs(ctx context.Context, r Router, doc *models.PlanDocument) ([]models.TravelLeg, error) {
	pairs := Pairs(doc)
	out := make([]models.TravelLeg, 0, len(pairs))
	for _, p := range pairs {
		leg, err := r.Route(ctx, p)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, leg)
	}
	return out, nil
}

// LegPlanner adapts a Router to the plan-level lookup the suggestion service uses.
type LegPlanner struct {
	Router Router
}

func (p LegPlanner) Legs(ctx context.Context, doc *models.PlanDocument) ([]models.TravelLeg, error) {
	return Legs(ctx, p.Router, doc)
}
