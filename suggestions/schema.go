package suggestions

import "google.golang.org/genai"

func placeSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString},
			"latitude":    {Type: genai.TypeNumber},
			"longitude":   {Type: genai.TypeNumber},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"name", "latitude", "longitude"},
	}
}

func activitySchema(withChildren bool) *genai.Schema {
	s := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name": {Type: genai.TypeString},
			"type": {
				Type:        genai.TypeInteger,
				Description: "10 restaurant, 20 hotel, 30 attraction, 40 flight, 50 other",
			},
			"startDateTime": {Type: genai.TypeString, Format: "date-time"},
			"endDateTime":   {Type: genai.TypeString, Format: "date-time"},
			"place":         placeSchema(),
			"cost":          {Type: genai.TypeNumber},
			"description":   {Type: genai.TypeString},
			"isVisited":     {Type: genai.TypeBoolean},
		},
		Required: []string{"name", "type", "startDateTime", "endDateTime", "place", "cost"},
	}
	if withChildren {
		s.Properties["subActivities"] = &genai.Schema{Type: genai.TypeArray, Items: activitySchema(false)}
	}
	return s
}

// PlanSchema is the response schema the model must follow: the ingest
// document shape with sub-activities one level deep.
func PlanSchema() *genai.Schema {
	day := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"day":         {Type: genai.TypeInteger},
			"date":        {Type: genai.TypeString, Format: "date-time"},
			"weather":     {Type: genai.TypeString},
			"temperature": {Type: genai.TypeNumber},
			"cost":        {Type: genai.TypeNumber},
			"activities":  {Type: genai.TypeArray, Items: activitySchema(true)},
		},
		Required: []string{"day", "date", "cost", "activities"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":         {Type: genai.TypeString},
			"startingDate": {Type: genai.TypeString, Format: "date-time"},
			"endingDate":   {Type: genai.TypeString, Format: "date-time"},
			"dayCount":     {Type: genai.TypeInteger},
			"cost":         {Type: genai.TypeNumber},
			"dayList":      {Type: genai.TypeArray, Items: day},
		},
		Required: []string{"name", "startingDate", "endingDate", "dayCount", "cost", "dayList"},
	}
}
