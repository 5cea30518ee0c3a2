package tourPlan

import "google.golang.org/genai"

func stringSchema() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func stringListSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: stringSchema()}
}

// planSchema mirrors types.TourPlan so the model answers with parseable JSON.
var planSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"mainTitle":         stringSchema(),
		"marketingSubtitle": stringSchema(),
		"departureInfo":     stringSchema(),
		"highlights":        stringListSchema(),
		"days": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"day":         {Type: genai.TypeInteger},
					"title":       stringSchema(),
					"description": stringSchema(),
					"timeline": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"time":     stringSchema(),
								"activity": stringSchema(),
							},
							Required: []string{"time", "activity"},
						},
					},
					"meals": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"breakfast": stringSchema(),
							"lunch":     stringSchema(),
							"dinner":    stringSchema(),
						},
						Required: []string{"breakfast", "lunch", "dinner"},
					},
					"accommodation": stringSchema(),
					"imageUrl":      stringSchema(),
					"imagePosition": {Type: genai.TypeString, Enum: []string{"left", "right", "bottom"}},
					"imageCount":    {Type: genai.TypeInteger},
				},
				Required: []string{"day", "title", "description", "timeline", "meals", "accommodation", "imageUrl"},
			},
		},
		"costIncludes":   stringListSchema(),
		"costExcludes":   stringListSchema(),
		"precautions":    stringListSchema(),
		"suggestedItems": stringListSchema(),
		"countryCity":    stringSchema(),
		"flightInfo": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"departure": stringSchema(),
				"return":    stringSchema(),
			},
		},
	},
	Required: []string{"mainTitle", "marketingSubtitle", "departureInfo", "highlights", "days",
		"costIncludes", "costExcludes", "precautions", "suggestedItems"},
}
