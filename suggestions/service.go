package suggestions

import (
	"context"
	"fmt"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"wayfarer/metrics"
	"wayfarer/models"
	"wayfarer/utils"
)

// LegPlanner computes travel legs between a plan's consecutive activities.
type LegPlanner interface {
	Legs(ctx context.Context, doc *models.PlanDocument) ([]models.TravelLeg, error)
}

type Service struct {
	model   Model
	legs    LegPlanner
	timeout time.Duration
	backoff time.Duration
	log     zerolog.Logger
}

type Option func(*Service)

func WithLegPlanner(l LegPlanner) Option {
	return func(s *Service) { s.legs = l }
}

// WithTimeout bounds each generation, retry included.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithRetryBackoff sets the wait before the single retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) { s.backoff = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(model Model, opts ...Option) *Service {
	s := &Service{
		model:   model,
		timeout: 60 * time.Second,
		backoff: 2 * time.Second,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate drafts a new plan from free text.
func (s *Service) Generate(ctx context.Context, request string) (*models.PlanDocument, error) {
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("%w: prompt: required", models.ErrValidation)
	}
	return s.run(ctx, "generate", generatePrompt(request))
}

// Modify revises plan according to free text, informing the model of the
// travel time between consecutive activities when a leg planner is set.
func (s *Service) Modify(ctx context.Context, request string, plan *models.PlanDocument) (*models.PlanDocument, error) {
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("%w: prompt: required", models.ErrValidation)
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: plan: required", models.ErrValidation)
	}

	var legs []models.TravelLeg
	if s.legs != nil {
		var err error
		legs, err = s.legs.Legs(ctx, plan)
		if err != nil {
			s.log.Warn().Err(err).Int("planId", plan.PlanID).Msg("travel legs unavailable, modifying without them")
			legs = nil
		}
	}
	prompt, err := modifyPrompt(request, plan, legs)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "modify", prompt)
}

// run calls the model once, and once more after the backoff if the call
// failed or produced an unusable document.
func (s *Service) run(ctx context.Context, kind, prompt string) (*models.PlanDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	attempt := 0
	var doc *models.PlanDocument
	op := func() error {
		attempt++
		raw, err := s.model.Complete(ctx, prompt)
		if err != nil {
			metrics.GenerationAttempts.WithLabelValues(kind, "error").Inc()
			s.log.Warn().Err(err).Str("kind", kind).Int("attempt", attempt).Msg("generation attempt failed")
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		doc, err = decodePlan(raw)
		if err != nil {
			metrics.GenerationAttempts.WithLabelValues(kind, "malformed").Inc()
			s.log.Warn().Err(err).Str("kind", kind).Int("attempt", attempt).Msg("generation produced an unusable plan")
			return err
		}
		metrics.GenerationAttempts.WithLabelValues(kind, "ok").Inc()
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.backoff), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("%w: %s after %d attempt(s): %v", models.ErrGenerationFailed, kind, attempt, err)
	}

	s.log.Info().
		Str("kind", kind).
		Int("attempts", attempt).
		Int("days", len(doc.DayList)).
		Dur("took", time.Since(start)).
		Msg("plan generated")
	return doc, nil
}

// decodePlan turns model output into a validated plan document.
func decodePlan(raw string) (*models.PlanDocument, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = utils.CollapseWhitespace(body)
	if body == "" {
		return nil, errEmptyResponse
	}
	doc, err := models.DecodePlanDocument([]byte(body))
	if err != nil {
		return nil, err
	}
	if doc.DayCount == 0 {
		doc.DayCount = len(doc.DayList)
	}
	return doc, nil
}
