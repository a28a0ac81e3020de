// Package weather fetches daily forecasts from an OpenWeatherMap-compatible API.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"wayfarer/models"
)

// Client reads the 5 day / 3 hour forecast endpoint.
type Client struct {
	client *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{client: c, apiKey: apiKey}
}

type forecastResponse struct {
	Message any `json:"message"`
	List    []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Forecast returns the forecast entry for date closest to midday UTC. Dates
// the provider has no entries for report models.ErrNotFound.
func (c *Client) Forecast(ctx context.Context, lat, lng float64, date models.FlexTime) (models.Forecast, error) {
	var out, failure forecastResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lng, 'f', -1, 64),
			"units": "metric",
			"appid": c.apiKey,
		}).
		SetResult(&out).
		SetError(&failure).
		Get("/forecast")
	if err != nil {
		return models.Forecast{}, fmt.Errorf("forecast request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return models.Forecast{}, fmt.Errorf("forecast status %d: %v", resp.StatusCode(), failure.Message)
	}

	y, m, d := date.UTC().Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	best := -1
	var bestGap time.Duration
	for i, entry := range out.List {
		at := time.Unix(entry.Dt, 0).UTC()
		if ey, em, ed := at.Date(); ey != y || em != m || ed != d {
			continue
		}
		gap := at.Sub(noon)
		if gap < 0 {
			gap = -gap
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return models.Forecast{}, fmt.Errorf("%w: no forecast for %s", models.ErrNotFound, noon.Format("2006-01-02"))
	}

	entry := out.List[best]
	fc := models.Forecast{Temperature: entry.Main.Temp}
	if len(entry.Weather) > 0 {
		fc.Summary = entry.Weather[0].Main
		if desc := entry.Weather[0].Description; desc != "" && !strings.EqualFold(desc, fc.Summary) {
			fc.Summary += ": " + desc
		}
	}
	return fc, nil
}
