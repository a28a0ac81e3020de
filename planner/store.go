package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"wayfarer/models"
)

// Store persists the four plan collections. Lookups by a list of identities
// return the records found in any order; single-record lookups and updates
// report models.ErrNotFound when nothing matches.
type Store interface {
	// WithTransaction runs fn so that its writes commit or abort together when
	// the backing store supports it; otherwise fn runs as is.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// NextPlanID atomically advances the plan identifier sequence.
	NextPlanID(ctx context.Context) (int, error)
	// MaxPlanID returns the highest planId currently stored, or 0.
	MaxPlanID(ctx context.Context) (int, error)

	InsertPlace(ctx context.Context, p *models.Place) error
	UpdatePlace(ctx context.Context, p *models.Place) error
	GetPlaces(ctx context.Context, ids []primitive.ObjectID) ([]models.Place, error)
	DeletePlaces(ctx context.Context, ids []primitive.ObjectID) (int, error)

	InsertActivity(ctx context.Context, a *models.Activity) error
	GetActivity(ctx context.Context, id primitive.ObjectID) (*models.Activity, error)
	GetActivities(ctx context.Context, ids []primitive.ObjectID) ([]models.Activity, error)
	UpdateActivity(ctx context.Context, a *models.Activity) error
	DeleteActivities(ctx context.Context, ids []primitive.ObjectID) (int, error)
	// CountPlaceReferences counts activities pointing at placeID, ignoring
	// the activities listed in exclude.
	CountPlaceReferences(ctx context.Context, placeID primitive.ObjectID, exclude []primitive.ObjectID) (int, error)
	// ParentActivities returns the activities whose subActivities hold id.
	ParentActivities(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error)
	// PullSubActivity removes id from every activity's subActivities.
	PullSubActivity(ctx context.Context, id primitive.ObjectID) error

	InsertDay(ctx context.Context, d *models.Day) error
	GetDays(ctx context.Context, ids []primitive.ObjectID) ([]models.Day, error)
	// InsertDayActivity places activityID at position in the day's list;
	// a position past the end appends.
	InsertDayActivity(ctx context.Context, dayID, activityID primitive.ObjectID, position int) error
	UpdateDayWeather(ctx context.Context, dayID primitive.ObjectID, weather string, temperature float64) error
	DaysContainingActivity(ctx context.Context, activityID primitive.ObjectID) ([]primitive.ObjectID, error)
	// PullDayActivity removes activityID from every day's list.
	PullDayActivity(ctx context.Context, activityID primitive.ObjectID) error
	DeleteDays(ctx context.Context, ids []primitive.ObjectID) (int, error)

	InsertPlan(ctx context.Context, p *models.Plan) error
	GetPlan(ctx context.Context, planID int) (*models.Plan, error)
	PlanIDsForDays(ctx context.Context, dayIDs []primitive.ObjectID) ([]int, error)
	ListPlans(ctx context.Context, skip, limit int) ([]models.PlanSummary, error)
	UpdatePlan(ctx context.Context, planID int, patch models.PlanPatch) (*models.Plan, error)
	DeletePlan(ctx context.Context, planID int) error
}

// Cache holds expanded plan documents keyed by planId. Implementations log
// their own failures; a miss is never an error.
type Cache interface {
	GetPlan(ctx context.Context, planID int) (*models.PlanDocument, bool)
	SetPlan(ctx context.Context, doc *models.PlanDocument)
	InvalidatePlan(ctx context.Context, planIDs ...int)
}

// WeatherProvider reports the expected weather at a location on a date.
type WeatherProvider interface {
	Forecast(ctx context.Context, lat, lng float64, date models.FlexTime) (models.Forecast, error)
}

// Events receives a notice for each committed plan change.
type Events interface {
	Emit(ctx context.Context, evt models.PlanEvent)
}

type nopEvents struct{}

func (nopEvents) Emit(context.Context, models.PlanEvent) {}

type nopCache struct{}

func (nopCache) GetPlan(context.Context, int) (*models.PlanDocument, bool) { return nil, false }
func (nopCache) SetPlan(context.Context, *models.PlanDocument)            {}
func (nopCache) InvalidatePlan(context.Context, ...int)                   {}
