package planner

import (
	"context"
	"errors"
	"fmt"

	"wayfarer/models"
)

var ErrNoWeatherProvider = fmt.Errorf("%w: no weather provider configured", models.ErrUnavailable)

// RefreshWeather asks the weather provider for each day's forecast at the
// day's first located activity and stores the result on the day. Days
// outside the provider's forecast window keep their current values.
func (s *Service) RefreshWeather(ctx context.Context, planID int) (*models.PlanDocument, error) {
	if s.weather == nil {
		return nil, ErrNoWeatherProvider
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	g, err := s.loadGraph(ctx, plan)
	if err != nil {
		return nil, err
	}

	updated := 0
	for _, dayID := range plan.DayList {
		day, ok := g.days[dayID]
		if !ok {
			continue
		}
		place, ok := g.firstLocated(day)
		if !ok {
			continue
		}
		fc, err := s.weather.Forecast(ctx, place.Latitude, place.Longitude, models.NewFlexTime(day.Date))
		if errors.Is(err, models.ErrNotFound) {
			s.log.Debug().Int("planId", planID).Int("day", day.Day).Msg("no forecast for day")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("forecast for day %d: %w", day.Day, err)
		}
		if err := s.store.UpdateDayWeather(ctx, day.ID, fc.Summary, fc.Temperature); err != nil {
			return nil, err
		}
		updated++
	}

	s.changed(ctx, models.PlanUpdated, planID)
	s.log.Info().Int("planId", planID).Int("days", updated).Msg("weather refreshed")
	return s.Fetch(ctx, planID)
}
