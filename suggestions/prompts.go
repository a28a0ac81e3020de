package suggestions

import (
	"encoding/json"
	"fmt"
	"strings"

	"wayfarer/models"
)

const planRules = `Rules:
- Answer with one JSON object following the response schema and nothing else.
- Every activity has a place with a real name and its latitude and longitude.
- Activity type is one of 10 (restaurant), 20 (hotel), 30 (attraction), 40 (flight), 50 (other).
- Times are RFC 3339. Costs are non-negative numbers in the traveller's currency.
- Days are numbered from 1 and listed in order; activities within a day are ordered by start time.
- Sub-activities may appear under an activity but never under another sub-activity.`

func generatePrompt(request string) string {
	return fmt.Sprintf("You are a travel planner. Draft a day-by-day trip plan for this request:\n%s\n\n%s",
		strings.TrimSpace(request), planRules)
}

func modifyPrompt(request string, plan *models.PlanDocument, legs []models.TravelLeg) (string, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("You are a travel planner. Revise the existing trip plan below according to this request:\n")
	b.WriteString(strings.TrimSpace(request))
	b.WriteString("\n\nExisting plan:\n")
	b.Write(planJSON)
	if len(legs) > 0 {
		legsJSON, err := json.Marshal(legs)
		if err != nil {
			return "", err
		}
		b.WriteString("\n\nTravel between consecutive activities (distance in meters, duration in seconds):\n")
		b.Write(legsJSON)
		b.WriteString("\nAvoid schedules where an activity starts before the traveller can arrive from the previous one.")
	}
	b.WriteString("\n\nReturn the complete revised plan, keeping unchanged days and activities as they are.\n\n")
	b.WriteString(planRules)
	return b.String(), nil
}
