package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
)

// maxExpandDepth stops expansion of malformed sub-activity chains.
const maxExpandDepth = 8

// planGraph is every record reachable from one plan.
type planGraph struct {
	plan       *models.Plan
	days       map[primitive.ObjectID]models.Day
	activities map[primitive.ObjectID]models.Activity
	places     map[primitive.ObjectID]models.Place
}

// Fetch returns the fully expanded plan identified by planID.
func (s *Service) Fetch(ctx context.Context, planID int) (*models.PlanDocument, error) {
	if doc, ok := s.cache.GetPlan(ctx, planID); ok {
		return doc, nil
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	g, err := s.loadGraph(ctx, plan)
	if err != nil {
		return nil, err
	}
	doc := g.document()
	s.cache.SetPlan(ctx, doc)
	return doc, nil
}

// loadGraph joins the plan's days, their activities at every nesting level,
// and the places those activities reference.
func (s *Service) loadGraph(ctx context.Context, plan *models.Plan) (*planGraph, error) {
	g := &planGraph{
		plan:       plan,
		days:       make(map[primitive.ObjectID]models.Day),
		activities: make(map[primitive.ObjectID]models.Activity),
		places:     make(map[primitive.ObjectID]models.Place),
	}

	days, err := s.store.GetDays(ctx, plan.DayList)
	if err != nil {
		return nil, err
	}
	var pending []primitive.ObjectID
	for _, d := range days {
		g.days[d.ID] = d
		pending = append(pending, d.Activities...)
	}

	for depth := 0; len(pending) > 0 && depth < maxExpandDepth; depth++ {
		batch, err := s.store.GetActivities(ctx, pending)
		if err != nil {
			return nil, err
		}
		pending = pending[:0]
		for _, a := range batch {
			g.activities[a.ID] = a
		}
		for _, a := range batch {
			for _, sub := range a.SubActivities {
				if _, seen := g.activities[sub]; !seen {
					pending = append(pending, sub)
				}
			}
		}
	}

	placeIDs := make([]primitive.ObjectID, 0, len(g.activities))
	for _, a := range g.activities {
		placeIDs = append(placeIDs, a.Place)
	}
	places, err := s.store.GetPlaces(ctx, placeIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range places {
		g.places[p.ID] = p
	}

	if missing := len(plan.DayList) - len(g.days); missing > 0 {
		s.log.Warn().Int("planId", plan.PlanID).Int("missingDays", missing).Msg("plan references missing days")
	}
	return g, nil
}

// document rebuilds the nested shape in stored order. Dangling references
// are skipped.
func (g *planGraph) document() *models.PlanDocument {
	p := g.plan
	doc := &models.PlanDocument{
		ID:           p.ID.Hex(),
		PlanID:       p.PlanID,
		Name:         p.Name,
		StartingDate: models.NewFlexTime(p.StartingDate),
		EndingDate:   models.NewFlexTime(p.EndingDate),
		DayList:      make([]models.DayDocument, 0, len(p.DayList)),
		DayCount:     p.DayCount,
		Cost:         p.Cost,
	}
	for _, id := range p.DayList {
		d, ok := g.days[id]
		if !ok {
			continue
		}
		doc.DayList = append(doc.DayList, g.dayDocument(d))
	}
	return doc
}

func (g *planGraph) dayDocument(d models.Day) models.DayDocument {
	out := models.DayDocument{
		ID:          d.ID.Hex(),
		Day:         d.Day,
		Date:        models.NewFlexTime(d.Date),
		Activities:  g.activityDocuments(d.Activities, 0),
		Weather:     d.Weather,
		Temperature: d.Temperature,
		Cost:        d.Cost,
	}
	return out
}

func (g *planGraph) activityDocuments(ids []primitive.ObjectID, depth int) []models.ActivityDocument {
	out := make([]models.ActivityDocument, 0, len(ids))
	if depth >= maxExpandDepth {
		return out
	}
	for _, id := range ids {
		a, ok := g.activities[id]
		if !ok {
			continue
		}
		doc := models.ActivityDocument{
			ID:            a.ID.Hex(),
			Name:          a.Name,
			Type:          a.Type,
			StartDateTime: models.NewFlexTime(a.StartDateTime),
			EndDateTime:   models.NewFlexTime(a.EndDateTime),
			Cost:          a.Cost,
			Description:   a.Description,
			IsVisited:     a.IsVisited,
			SubActivities: g.activityDocuments(a.SubActivities, depth+1),
		}
		if p, ok := g.places[a.Place]; ok {
			doc.Place = placeDocument(p)
		}
		out = append(out, doc)
	}
	return out
}

// activityIDs lists every activity in the graph, sub-activities included.
func (g *planGraph) activityIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(g.activities))
	for id := range g.activities {
		ids = append(ids, id)
	}
	return ids
}

// firstLocated returns the place of the first activity of d that has one.
func (g *planGraph) firstLocated(d models.Day) (models.Place, bool) {
	for _, id := range d.Activities {
		a, ok := g.activities[id]
		if !ok {
			continue
		}
		if p, ok := g.places[a.Place]; ok {
			return p, true
		}
	}
	return models.Place{}, false
}

func placeDocument(p models.Place) *models.PlaceDocument {
	lat, lng := p.Latitude, p.Longitude
	return &models.PlaceDocument{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Latitude:    &lat,
		Longitude:   &lng,
		Description: p.Description,
	}
}
