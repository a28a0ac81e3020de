package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout is accepted for calendar-only fields such as a day's date.
const dateLayout = "2006-01-02"

// FlexTime is a timestamp that decodes from either an RFC 3339 instant or a
// bare YYYY-MM-DD date, and encodes as RFC 3339 in UTC.
type FlexTime struct {
	time.Time
}

// NewFlexTime wraps t.
func NewFlexTime(t time.Time) FlexTime { return FlexTime{Time: t} }

// ParseFlexTime parses s with the layouts FlexTime accepts.
func ParseFlexTime(s string) (FlexTime, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return FlexTime{Time: t.UTC()}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return FlexTime{}, fmt.Errorf("unsupported time %q", s)
	}
	return FlexTime{Time: t}, nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.UTC().Format(time.RFC3339Nano))
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	if s == "" {
		*f = FlexTime{}
		return nil
	}
	parsed, err := ParseFlexTime(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// PlaceDocument is the nested wire shape of a place.
type PlaceDocument struct {
	ID          string   `json:"_id,omitempty"`
	Name        string   `json:"name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description string   `json:"description,omitempty"`
}

// ActivityDocument is the nested wire shape of an activity and, recursively,
// of its sub-activities.
type ActivityDocument struct {
	ID            string             `json:"_id,omitempty"`
	Name          string             `json:"name"`
	Type          ActivityType       `json:"type"`
	StartDateTime FlexTime           `json:"startDateTime"`
	EndDateTime   FlexTime           `json:"endDateTime"`
	Place         *PlaceDocument     `json:"place"`
	Cost          float64            `json:"cost"`
	Description   string             `json:"description,omitempty"`
	IsVisited     bool               `json:"isVisited"`
	SubActivities []ActivityDocument `json:"subActivities"`
}

// DayDocument is the nested wire shape of a day.
type DayDocument struct {
	ID          string             `json:"_id,omitempty"`
	Day         int                `json:"day"`
	Date        FlexTime           `json:"date"`
	Activities  []ActivityDocument `json:"activities"`
	Weather     string             `json:"weather,omitempty"`
	Temperature float64            `json:"temperature"`
	Cost        float64            `json:"cost"`
}

// PlanDocument is the full nested plan: the ingest input and the fetch output.
type PlanDocument struct {
	ID           string        `json:"_id,omitempty"`
	PlanID       int           `json:"planId,omitempty"`
	Name         string        `json:"name"`
	StartingDate FlexTime      `json:"startingDate"`
	EndingDate   FlexTime      `json:"endingDate"`
	DayList      []DayDocument `json:"dayList"`
	DayCount     int           `json:"dayCount"`
	Cost         float64       `json:"cost"`
}

// DecodePlanDocument parses and validates an ingest document.
func DecodePlanDocument(data []byte) (*PlanDocument, error) {
	var doc PlanDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed plan document: %v", ErrValidation, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeActivityDocument parses and validates a single activity.
func DecodeActivityDocument(data []byte) (*ActivityDocument, error) {
	var doc ActivityDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed activity document: %v", ErrValidation, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Places returns every place reachable from the document in visiting order:
// days, then activities, then each activity's sub-activities before itself.
func (d *PlanDocument) Places() []*PlaceDocument {
	var out []*PlaceDocument
	for i := range d.DayList {
		for j := range d.DayList[i].Activities {
			out = d.DayList[i].Activities[j].collectPlaces(out)
		}
	}
	return out
}

func (a *ActivityDocument) collectPlaces(out []*PlaceDocument) []*PlaceDocument {
	for i := range a.SubActivities {
		out = a.SubActivities[i].collectPlaces(out)
	}
	if a.Place != nil {
		out = append(out, a.Place)
	}
	return out
}

// ActivityCount returns the number of top-level activities across all days.
func (d *PlanDocument) ActivityCount() int {
	n := 0
	for _, day := range d.DayList {
		n += len(day.Activities)
	}
	return n
}
