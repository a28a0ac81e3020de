package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/models"
)

func TestPlanPDF(t *testing.T) {
	lat, lng := 41.3874, 2.1686
	start := time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)
	doc := &models.PlanDocument{
		PlanID:       12,
		Name:         "Barcelona à la carte",
		StartingDate: models.NewFlexTime(start),
		EndingDate:   models.NewFlexTime(start.AddDate(0, 0, 1)),
		DayCount:     2,
		Cost:         240,
		DayList: []models.DayDocument{
			{
				Day: 1, Date: models.NewFlexTime(start), Weather: "Clear", Temperature: 27, Cost: 120,
				Activities: []models.ActivityDocument{{
					Name:          "Sagrada Família",
					Type:          models.ActivityAttraction,
					StartDateTime: models.NewFlexTime(start),
					EndDateTime:   models.NewFlexTime(start.Add(2 * time.Hour)),
					Place:         &models.PlaceDocument{Name: "Basílica", Latitude: &lat, Longitude: &lng},
					Cost:          26,
					SubActivities: []models.ActivityDocument{{
						Name:          "Tower climb",
						Type:          models.ActivityOther,
						StartDateTime: models.NewFlexTime(start.Add(time.Hour)),
						EndDateTime:   models.NewFlexTime(start.Add(90 * time.Minute)),
						Place:         &models.PlaceDocument{Name: "Nativity tower", Latitude: &lat, Longitude: &lng},
					}},
				}},
			},
			{Day: 2, Date: models.NewFlexTime(start.AddDate(0, 0, 1)), Activities: []models.ActivityDocument{}},
		},
	}

	out, err := PlanPDF(doc, "http://localhost:8080/plan/12")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", formatDate(models.FlexTime{}))
	assert.Equal(t, "Wed 10 Sep 2025", formatDate(models.NewFlexTime(time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC))))
}
