// Package memstore keeps the plan collections in process memory. It mirrors
// the Mongo store's semantics and backs tests and local runs without a database.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
)

// Store is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	seq        int
	places     map[primitive.ObjectID]models.Place
	activities map[primitive.ObjectID]models.Activity
	days       map[primitive.ObjectID]models.Day
	plans      map[int]models.Plan
}

func New() *Store {
	return &Store{
		places:     make(map[primitive.ObjectID]models.Place),
		activities: make(map[primitive.ObjectID]models.Activity),
		days:       make(map[primitive.ObjectID]models.Day),
		plans:      make(map[int]models.Plan),
	}
}

// WithTransaction runs fn directly; memory writes are not rolled back.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) NextPlanID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *Store) MaxPlanID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for id := range s.plans {
		if id > max {
			max = id
		}
	}
	return max, nil
}

// Counts returns the number of stored places, activities, days and plans.
func (s *Store) Counts() (places, activities, days, plans int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.places), len(s.activities), len(s.days), len(s.plans)
}

func (s *Store) InsertPlace(ctx context.Context, p *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.places[p.ID] = *p
	return nil
}

func (s *Store) UpdatePlace(ctx context.Context, p *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[p.ID]; !ok {
		return fmt.Errorf("place %s: %w", p.ID.Hex(), models.ErrNotFound)
	}
	s.places[p.ID] = *p
	return nil
}

func (s *Store) GetPlaces(ctx context.Context, ids []primitive.ObjectID) ([]models.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Place, 0, len(ids))
	for _, id := range dedupe(ids) {
		if p, ok := s.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) DeletePlaces(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range dedupe(ids) {
		if _, ok := s.places[id]; ok {
			delete(s.places, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertActivity(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.activities[a.ID] = cloneActivity(*a)
	return nil
}

func (s *Store) GetActivity(ctx context.Context, id primitive.ObjectID) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, fmt.Errorf("activity %s: %w", id.Hex(), models.ErrNotFound)
	}
	a = cloneActivity(a)
	return &a, nil
}

func (s *Store) GetActivities(ctx context.Context, ids []primitive.ObjectID) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Activity, 0, len(ids))
	for _, id := range dedupe(ids) {
		if a, ok := s.activities[id]; ok {
			out = append(out, cloneActivity(a))
		}
	}
	return out, nil
}

func (s *Store) UpdateActivity(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; !ok {
		return fmt.Errorf("activity %s: %w", a.ID.Hex(), models.ErrNotFound)
	}
	s.activities[a.ID] = cloneActivity(*a)
	return nil
}

func (s *Store) DeleteActivities(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range dedupe(ids) {
		if _, ok := s.activities[id]; ok {
			delete(s.activities, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountPlaceReferences(ctx context.Context, placeID primitive.ObjectID, exclude []primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, a := range s.activities {
		if a.Place == placeID && !slices.Contains(exclude, id) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ParentActivities(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []primitive.ObjectID
	for key, a := range s.activities {
		if slices.Contains(a.SubActivities, id) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *Store) PullSubActivity(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, a := range s.activities {
		if slices.Contains(a.SubActivities, id) {
			a.SubActivities = remove(a.SubActivities, id)
			s.activities[key] = a
		}
	}
	return nil
}

func (s *Store) InsertDay(ctx context.Context, d *models.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	s.days[d.ID] = cloneDay(*d)
	return nil
}

func (s *Store) GetDays(ctx context.Context, ids []primitive.ObjectID) ([]models.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Day, 0, len(ids))
	for _, id := range dedupe(ids) {
		if d, ok := s.days[id]; ok {
			out = append(out, cloneDay(d))
		}
	}
	return out, nil
}

func (s *Store) InsertDayActivity(ctx context.Context, dayID, activityID primitive.ObjectID, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[dayID]
	if !ok {
		return fmt.Errorf("day %s: %w", dayID.Hex(), models.ErrNotFound)
	}
	if position < 0 || position > len(d.Activities) {
		position = len(d.Activities)
	}
	d.Activities = slices.Insert(slices.Clone(d.Activities), position, activityID)
	s.days[dayID] = d
	return nil
}

func (s *Store) UpdateDayWeather(ctx context.Context, dayID primitive.ObjectID, weather string, temperature float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.days[dayID]
	if !ok {
		return fmt.Errorf("day %s: %w", dayID.Hex(), models.ErrNotFound)
	}
	d.Weather = weather
	d.Temperature = temperature
	s.days[dayID] = d
	return nil
}

func (s *Store) DaysContainingActivity(ctx context.Context, activityID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []primitive.ObjectID
	for id, d := range s.days {
		if slices.Contains(d.Activities, activityID) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) PullDayActivity(ctx context.Context, activityID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.days {
		if slices.Contains(d.Activities, activityID) {
			d.Activities = remove(d.Activities, activityID)
			s.days[id] = d
		}
	}
	return nil
}

func (s *Store) DeleteDays(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range dedupe(ids) {
		if _, ok := s.days[id]; ok {
			delete(s.days, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertPlan(ctx context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plans[p.PlanID]; exists {
		return fmt.Errorf("plan %d: %w", p.PlanID, models.ErrConflict)
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.PlanID > s.seq {
		s.seq = p.PlanID
	}
	s.plans[p.PlanID] = clonePlan(*p)
	return nil
}

func (s *Store) GetPlan(ctx context.Context, planID int) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, fmt.Errorf("plan %d: %w", planID, models.ErrNotFound)
	}
	p = clonePlan(p)
	return &p, nil
}

func (s *Store) PlanIDsForDays(ctx context.Context, dayIDs []primitive.ObjectID) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for id, p := range s.plans {
		for _, d := range dayIDs {
			if slices.Contains(p.DayList, d) {
				out = append(out, id)
				break
			}
		}
	}
	sort.Ints(out)
	return out, nil
}

func (s *Store) ListPlans(ctx context.Context, skip, limit int) ([]models.PlanSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	out := []models.PlanSummary{}
	for i := skip; i < len(ids) && len(out) < limit; i++ {
		p := s.plans[ids[i]]
		out = append(out, models.PlanSummary{
			PlanID:       p.PlanID,
			Name:         p.Name,
			StartingDate: p.StartingDate,
			EndingDate:   p.EndingDate,
			DayCount:     p.DayCount,
			Cost:         p.Cost,
		})
	}
	return out, nil
}

func (s *Store) UpdatePlan(ctx context.Context, planID int, patch models.PlanPatch) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, fmt.Errorf("plan %d: %w", planID, models.ErrNotFound)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.StartingDate != nil {
		p.StartingDate = patch.StartingDate.Time
	}
	if patch.EndingDate != nil {
		p.EndingDate = patch.EndingDate.Time
	}
	if patch.DayCount != nil {
		p.DayCount = *patch.DayCount
	}
	if patch.Cost != nil {
		p.Cost = *patch.Cost
	}
	s.plans[planID] = p
	out := clonePlan(p)
	return &out, nil
}

func (s *Store) DeletePlan(ctx context.Context, planID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[planID]; !ok {
		return fmt.Errorf("plan %d: %w", planID, models.ErrNotFound)
	}
	delete(s.plans, planID)
	return nil
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func remove(ids []primitive.ObjectID, target primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func cloneActivity(a models.Activity) models.Activity {
	a.SubActivities = slices.Clone(a.SubActivities)
	return a
}

func cloneDay(d models.Day) models.Day {
	d.Activities = slices.Clone(d.Activities)
	return d
}

func clonePlan(p models.Plan) models.Plan {
	p.DayList = slices.Clone(p.DayList)
	return p
}
