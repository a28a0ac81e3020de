package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validActivity() ActivityDocument {
	return ActivityDocument{
		Name:          "Louvre",
		Type:          ActivityAttraction,
		StartDateTime: NewFlexTime(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)),
		EndDateTime:   NewFlexTime(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)),
		Place:         &PlaceDocument{Name: "Louvre", Latitude: ptr(48.8606), Longitude: ptr(2.3376)},
	}
}

func validPlan() *PlanDocument {
	return &PlanDocument{
		Name:         "Paris",
		StartingDate: NewFlexTime(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		EndingDate:   NewFlexTime(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		DayCount:     1,
		DayList: []DayDocument{{
			Day:        1,
			Date:       NewFlexTime(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
			Activities: []ActivityDocument{validActivity()},
		}},
	}
}

func TestParseFlexTime(t *testing.T) {
	got, err := ParseFlexTime("2025-09-10")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)))

	got, err = ParseFlexTime("2025-09-10T14:30:00+02:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 9, 10, 12, 30, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, got.Location())

	_, err = ParseFlexTime("10/09/2025")
	assert.Error(t, err)
}

func TestFlexTimeJSON(t *testing.T) {
	var holder struct {
		At FlexTime `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2025-09-10"}`), &holder))
	out, err := json.Marshal(holder)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2025-09-10T00:00:00Z"}`, string(out))

	holder.At = FlexTime{}
	require.NoError(t, json.Unmarshal([]byte(`{"at":null}`), &holder))
	assert.True(t, holder.At.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"at":1725926400}`), &holder))
}

func TestValidateAcceptsMinimalPlan(t *testing.T) {
	assert.NoError(t, validPlan().Validate())

	empty := validPlan()
	empty.DayList = []DayDocument{}
	assert.NoError(t, empty.Validate(), "a plan with no days is allowed")
}

func TestValidateCosts(t *testing.T) {
	zero := validPlan()
	zero.Cost = 0
	zero.DayList[0].Activities[0].Cost = 0
	assert.NoError(t, zero.Validate())

	negative := validPlan()
	negative.DayList[0].Activities[0].Cost = -0.01
	err := negative.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "dayList[0].activities[0].cost")

	planCost := validPlan()
	planCost.Cost = -0.01
	err = planCost.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "cost: must be >= 0")
	assert.NotContains(t, err.Error(), "dayList")

	dayCost := validPlan()
	dayCost.DayList[0].Cost = -0.01
	err = dayCost.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "dayList[0].cost")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	doc := validPlan()
	doc.DayList[0].Day = 0
	a := &doc.DayList[0].Activities[0]
	a.Name = " "
	a.Type = 15
	a.Place.Latitude = ptr(91.0)
	a.Place.Longitude = nil

	err := doc.Validate()
	require.ErrorIs(t, err, ErrValidation)
	for _, want := range []string{
		"dayList[0].day",
		"activities[0].name",
		"unknown activity type 15",
		"place.latitude: out of range",
		"place.longitude: required",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateNestingDepth(t *testing.T) {
	doc := validPlan()
	sub := validActivity()
	sub.Name = "Mona Lisa"
	doc.DayList[0].Activities[0].SubActivities = []ActivityDocument{sub}
	require.NoError(t, doc.Validate())

	deeper := validActivity()
	doc.DayList[0].Activities[0].SubActivities[0].SubActivities = []ActivityDocument{deeper}
	err := doc.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "nesting deeper than 2 levels")
}

func TestDecodePlanDocument(t *testing.T) {
	_, err := DecodePlanDocument([]byte(`{"name":`))
	require.ErrorIs(t, err, ErrValidation)

	_, err = DecodePlanDocument([]byte(`{"name":"x","cost":0}`))
	require.ErrorIs(t, err, ErrValidation, "dayList is required")

	doc, err := DecodePlanDocument([]byte(`{"name":"x","startingDate":"2025-05-01","endingDate":"2025-05-02","dayList":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Name)
}

func TestDecodeActivityDocument(t *testing.T) {
	doc, err := DecodeActivityDocument([]byte(`{"name":"Dinner","type":10,
		"startDateTime":"2025-05-01T19:00:00Z","endDateTime":"2025-05-01T21:00:00Z",
		"place":{"name":"Bistro","latitude":48.85,"longitude":2.35},"cost":60}`))
	require.NoError(t, err)
	assert.Equal(t, ActivityRestaurant, doc.Type)
	assert.Equal(t, "Restaurant", doc.Type.String())

	_, err = DecodeActivityDocument([]byte(`{"name":"Dinner","type":10}`))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlacesVisitOrder(t *testing.T) {
	doc := validPlan()
	sub := validActivity()
	sub.Place = &PlaceDocument{Name: "Mona Lisa room", Latitude: ptr(48.86), Longitude: ptr(2.33)}
	doc.DayList[0].Activities[0].SubActivities = []ActivityDocument{sub}

	var names []string
	for _, p := range doc.Places() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Mona Lisa room", "Louvre"}, names)
	assert.Equal(t, 1, doc.ActivityCount())
}

func TestPlanPatch(t *testing.T) {
	assert.True(t, PlanPatch{}.Empty())
	assert.False(t, PlanPatch{Cost: ptr(10.0)}.Empty())
	assert.NoError(t, PlanPatch{Cost: ptr(0.0)}.Validate())
	assert.ErrorIs(t, PlanPatch{Name: ptr("")}.Validate(), ErrValidation)
	assert.ErrorIs(t, PlanPatch{DayCount: ptr(-1)}.Validate(), ErrValidation)
}

func TestParseObjectID(t *testing.T) {
	_, err := ParseObjectID("not-hex")
	assert.ErrorIs(t, err, ErrInvalidID)

	id, err := ParseObjectID("65f1c2a9e4b0a1b2c3d4e5f6")
	require.NoError(t, err)
	assert.Equal(t, "65f1c2a9e4b0a1b2c3d4e5f6", id.Hex())
}
