// Package maps computes travel legs between a plan's activities using a
// directions provider.
package maps

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"wayfarer/models"
)

const DefaultMode = "driving"

// Client calls a Google-compatible directions endpoint.
type Client struct {
	client *resty.Client
	apiKey string
	mode   string
}

func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Client{client: c, apiKey: apiKey, mode: DefaultMode}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

func latLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// Route returns the first route's distance and duration between two points.
// A provider answer of ZERO_RESULTS reports models.ErrNotFound.
func (c *Client) Route(ctx context.Context, leg models.TravelLeg) (models.TravelLeg, error) {
	var out directionsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origin":      latLng(leg.FromLat, leg.FromLng),
			"destination": latLng(leg.ToLat, leg.ToLng),
			"mode":        c.mode,
			"key":         c.apiKey,
		}).
		SetResult(&out).
		Get("/directions/json")
	if err != nil {
		return leg, fmt.Errorf("directions request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return leg, fmt.Errorf("directions status %d", resp.StatusCode())
	}
	switch out.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return leg, fmt.Errorf("%w: no route from %s to %s", models.ErrNotFound, leg.From, leg.To)
	default:
		return leg, fmt.Errorf("directions: %s %s", out.Status, out.ErrorMessage)
	}
	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return leg, fmt.Errorf("%w: empty route from %s to %s", models.ErrNotFound, leg.From, leg.To)
	}

	route := out.Routes[0]
	leg.Summary = route.Summary
	leg.Mode = c.mode
	leg.DistanceMeters, leg.DurationSeconds = 0, 0
	for _, l := range route.Legs {
		leg.DistanceMeters += l.Distance.Value
		leg.DurationSeconds += l.Duration.Value
	}
	return leg, nil
}
