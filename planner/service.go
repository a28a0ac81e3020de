// Package planner assembles nested plan documents into the place, activity,
// day and plan collections and expands them back on read.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"wayfarer/models"
)

// planIDAttempts bounds retries when a freshly issued planId is already taken.
const planIDAttempts = 3

// Service is the plan assembly service.
type Service struct {
	store   Store
	cache   Cache
	events  Events
	weather WeatherProvider
	log     zerolog.Logger
}

type Option func(*Service)

// WithCache serves fetches from c and invalidates it on every mutation.
func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithEvents announces plan changes to e.
func WithEvents(e Events) Option {
	return func(s *Service) {
		if e != nil {
			s.events = e
		}
	}
}

func WithWeather(w WeatherProvider) Option {
	return func(s *Service) { s.weather = w }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cache:  nopCache{},
		events: nopEvents{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxPlanID returns the highest planId currently assigned to a stored plan.
// Plan ids are never reused, so after a delete or a failed ingest this can be
// lower than the last id the counter handed out.
func (s *Service) MaxPlanID(ctx context.Context) (int, error) {
	return s.store.MaxPlanID(ctx)
}

// ListPlans returns plan summaries, newest planId first. page is 1-based.
func (s *Service) ListPlans(ctx context.Context, page, limit int) ([]models.PlanSummary, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.store.ListPlans(ctx, (page-1)*limit, limit)
}

// CreateEmptyPlan stores a plan shell with no days and a fresh planId.
func (s *Service) CreateEmptyPlan(ctx context.Context, shell models.PlanPatch) (*models.Plan, error) {
	if err := shell.Validate(); err != nil {
		return nil, err
	}
	plan := &models.Plan{}
	if shell.Name != nil {
		plan.Name = *shell.Name
	}
	if shell.StartingDate != nil {
		plan.StartingDate = shell.StartingDate.Time
	}
	if shell.EndingDate != nil {
		plan.EndingDate = shell.EndingDate.Time
	}
	if shell.DayCount != nil {
		plan.DayCount = *shell.DayCount
	}
	if shell.Cost != nil {
		plan.Cost = *shell.Cost
	}
	if err := s.insertPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	s.changed(ctx, models.PlanCreated, plan.PlanID)
	s.log.Info().Int("planId", plan.PlanID).Msg("empty plan created")
	return plan, nil
}

// UpdatePlan applies a field-level update to a plan record.
func (s *Service) UpdatePlan(ctx context.Context, planID int, patch models.PlanPatch) (*models.Plan, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	plan, err := s.store.UpdatePlan(ctx, planID, patch)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, models.PlanUpdated, planID)
	return plan, nil
}

// changed drops the cached documents of planIDs and announces the change.
func (s *Service) changed(ctx context.Context, kind models.PlanEventType, planIDs ...int) {
	s.cache.InvalidatePlan(ctx, planIDs...)
	now := time.Now().UTC()
	for _, id := range planIDs {
		s.events.Emit(ctx, models.PlanEvent{Type: kind, PlanID: id, At: now})
	}
}

// insertPlan assigns the next planId and stores plan, drawing a new id if the
// unique index reports the issued one as taken.
func (s *Service) insertPlan(ctx context.Context, plan *models.Plan) error {
	var err error
	for attempt := 0; attempt < planIDAttempts; attempt++ {
		plan.PlanID, err = s.store.NextPlanID(ctx)
		if err != nil {
			return err
		}
		err = s.store.InsertPlan(ctx, plan)
		if !errors.Is(err, models.ErrConflict) {
			return err
		}
		s.log.Warn().Int("planId", plan.PlanID).Msg("plan id already taken, drawing another")
	}
	return err
}

// DayIndex converts the client's 1-based day number into a dayList index;
// numbers <= 0 select the first day.
func DayIndex(dayNumber int) int {
	if dayNumber <= 0 {
		return 0
	}
	return dayNumber - 1
}
