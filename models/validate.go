package models

import (
	"fmt"
	"strings"
)

// MaxActivityDepth bounds activity nesting: an activity may hold
// sub-activities, a sub-activity may not hold its own.
const MaxActivityDepth = 2

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(p, "; "))
}

// Validate checks the structural and field-level rules an ingest document must
// satisfy before anything is written.
func (d *PlanDocument) Validate() error {
	var p problems
	if d.Cost < 0 {
		p.addf("cost: must be >= 0")
	}
	if d.DayCount < 0 {
		p.addf("dayCount: must be >= 0")
	}
	if d.DayList == nil {
		p.addf("dayList: required")
	}
	for i := range d.DayList {
		d.DayList[i].validate(fmt.Sprintf("dayList[%d]", i), &p)
	}
	return p.err()
}

func (d *DayDocument) validate(path string, p *problems) {
	if d.Day < 1 {
		p.addf("%s.day: must be >= 1", path)
	}
	if d.Date.IsZero() {
		p.addf("%s.date: required", path)
	}
	if d.Cost < 0 {
		p.addf("%s.cost: must be >= 0", path)
	}
	if d.Activities == nil {
		p.addf("%s.activities: required", path)
	}
	for i := range d.Activities {
		d.Activities[i].validate(fmt.Sprintf("%s.activities[%d]", path, i), 1, p)
	}
}

// Validate checks a standalone activity, as supplied to append or update.
func (a *ActivityDocument) Validate() error {
	var p problems
	a.validate("activity", 1, &p)
	return p.err()
}

func (a *ActivityDocument) validate(path string, depth int, p *problems) {
	if strings.TrimSpace(a.Name) == "" {
		p.addf("%s.name: required", path)
	}
	if !a.Type.Valid() {
		p.addf("%s.type: unknown activity type %d", path, int(a.Type))
	}
	if a.StartDateTime.IsZero() {
		p.addf("%s.startDateTime: required", path)
	}
	if a.EndDateTime.IsZero() {
		p.addf("%s.endDateTime: required", path)
	}
	if a.Cost < 0 {
		p.addf("%s.cost: must be >= 0", path)
	}
	if a.Place == nil {
		p.addf("%s.place: required", path)
	} else {
		a.Place.validate(path+".place", p)
	}
	if len(a.SubActivities) > 0 && depth >= MaxActivityDepth {
		p.addf("%s.subActivities: nesting deeper than %d levels", path, MaxActivityDepth)
		return
	}
	for i := range a.SubActivities {
		a.SubActivities[i].validate(fmt.Sprintf("%s.subActivities[%d]", path, i), depth+1, p)
	}
}

func (pl *PlaceDocument) validate(path string, p *problems) {
	if strings.TrimSpace(pl.Name) == "" {
		p.addf("%s.name: required", path)
	}
	switch {
	case pl.Latitude == nil:
		p.addf("%s.latitude: required", path)
	case *pl.Latitude < -90 || *pl.Latitude > 90:
		p.addf("%s.latitude: out of range", path)
	}
	switch {
	case pl.Longitude == nil:
		p.addf("%s.longitude: required", path)
	case *pl.Longitude < -180 || *pl.Longitude > 180:
		p.addf("%s.longitude: out of range", path)
	}
}

// Validate checks the fields a plan patch sets.
func (p PlanPatch) Validate() error {
	var pr problems
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		pr.addf("name: must not be empty")
	}
	if p.DayCount != nil && *p.DayCount < 0 {
		pr.addf("dayCount: must be >= 0")
	}
	if p.Cost != nil && *p.Cost < 0 {
		pr.addf("cost: must be >= 0")
	}
	return pr.err()
}
