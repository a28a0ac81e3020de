package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType is the category code stored on an activity.
type ActivityType int

const (
	ActivityRestaurant ActivityType = 10
	ActivityHotel      ActivityType = 20
	ActivityAttraction ActivityType = 30
	ActivityFlight     ActivityType = 40
	ActivityOther      ActivityType = 50
)

var activityTypeNames = map[ActivityType]string{
	ActivityRestaurant: "Restaurant",
	ActivityHotel:      "Hotel",
	ActivityAttraction: "Attraction",
	ActivityFlight:     "Flight",
	ActivityOther:      "Other",
}

// Valid reports whether t is one of the known category codes.
func (t ActivityType) Valid() bool {
	_, ok := activityTypeNames[t]
	return ok
}

func (t ActivityType) String() string {
	if name, ok := activityTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Place is a geocoded point of interest. Places may be shared by several activities.
type Place struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Latitude    float64            `json:"latitude" bson:"latitude"`
	Longitude   float64            `json:"longitude" bson:"longitude"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
}

// Activity is a scheduled event at one place. SubActivities reference
// activities of the same shape that the parent owns for deletion purposes.
type Activity struct {
	ID            primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name          string               `json:"name" bson:"name"`
	Type          ActivityType         `json:"type" bson:"type"`
	StartDateTime time.Time            `json:"startDateTime" bson:"startDateTime"`
	EndDateTime   time.Time            `json:"endDateTime" bson:"endDateTime"`
	Place         primitive.ObjectID   `json:"place" bson:"place"`
	Cost          float64              `json:"cost" bson:"cost"`
	Description   string               `json:"description,omitempty" bson:"description,omitempty"`
	IsVisited     bool                 `json:"isVisited" bson:"isVisited"`
	SubActivities []primitive.ObjectID `json:"subActivities" bson:"subActivities"`
}

// Day is one calendar day of a plan. Cost is a stored total, not derived.
type Day struct {
	ID          primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Day         int                  `json:"day" bson:"day"`
	Date        time.Time            `json:"date" bson:"date"`
	Activities  []primitive.ObjectID `json:"activities" bson:"activities"`
	Weather     string               `json:"weather,omitempty" bson:"weather,omitempty"`
	Temperature float64              `json:"temperature" bson:"temperature"`
	Cost        float64              `json:"cost" bson:"cost"`
}

// Plan is the trip aggregate. PlanID is the sequence-assigned public identifier
// and is distinct from the storage identity.
type Plan struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	PlanID       int                  `json:"planId" bson:"planId"`
	Name         string               `json:"name" bson:"name"`
	StartingDate time.Time            `json:"startingDate" bson:"startingDate"`
	EndingDate   time.Time            `json:"endingDate" bson:"endingDate"`
	DayList      []primitive.ObjectID `json:"dayList" bson:"dayList"`
	DayCount     int                  `json:"dayCount" bson:"dayCount"`
	Cost         float64              `json:"cost" bson:"cost"`
}

// PlanPatch carries the plan fields a field-level update may change.
// Nil fields are left untouched.
type PlanPatch struct {
	Name         *string   `json:"name,omitempty"`
	StartingDate *FlexTime `json:"startingDate,omitempty"`
	EndingDate   *FlexTime `json:"endingDate,omitempty"`
	DayCount     *int      `json:"dayCount,omitempty"`
	Cost         *float64  `json:"cost,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p PlanPatch) Empty() bool {
	return p.Name == nil && p.StartingDate == nil && p.EndingDate == nil && p.DayCount == nil && p.Cost == nil
}

// PlanSummary is the listing view of a plan.
type PlanSummary struct {
	PlanID       int       `json:"planId" bson:"planId"`
	Name         string    `json:"name" bson:"name"`
	StartingDate time.Time `json:"startingDate" bson:"startingDate"`
	EndingDate   time.Time `json:"endingDate" bson:"endingDate"`
	DayCount     int       `json:"dayCount" bson:"dayCount"`
	Cost         float64   `json:"cost" bson:"cost"`
}

// TravelLeg is the computed route between two consecutive activities of a day.
type TravelLeg struct {
	Day             int     `json:"day"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	DistanceMeters  int     `json:"distanceMeters"`
	DurationSeconds int     `json:"durationSeconds"`
	Summary         string  `json:"summary,omitempty"`
	Mode            string  `json:"mode"`
	FromLat         float64 `json:"-"`
	FromLng         float64 `json:"-"`
	ToLat           float64 `json:"-"`
	ToLng           float64 `json:"-"`
}

// Forecast is a single-day weather summary.
type Forecast struct {
	Summary     string  `json:"summary"`
	Temperature float64 `json:"temperature"`
}

// DeleteActivityResult reports what a single-activity deletion removed.
type DeleteActivityResult struct {
	DeletedSubActivities int `json:"deletedSubActivities"`
	DeletedPlaces        int `json:"deletedPlaces"`
}

// DeletePlanResult reports what a plan deletion removed.
type DeletePlanResult struct {
	DeletedDays       int `json:"deletedDays"`
	DeletedActivities int `json:"deletedActivities"`
	DeletedPlaces     int `json:"deletedPlaces"`
}

// PlanEventType names the kind of change a PlanEvent announces.
type PlanEventType string

const (
	PlanCreated PlanEventType = "plan.created"
	PlanUpdated PlanEventType = "plan.updated"
	PlanDeleted PlanEventType = "plan.deleted"
)

// PlanEvent is published after a change to a stored plan commits.
type PlanEvent struct {
	Type   PlanEventType `json:"type"`
	PlanID int           `json:"planId"`
	At     time.Time     `json:"at"`
}
