package tourPlan

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// wireDay accepts numbers the model sometimes emits as floats ("day": 1.0).
type wireDay struct {
	types.DayPlan
	Day           float64 `json:"day"`
	ImagePosition string  `json:"imagePosition"`
	ImageCount    float64 `json:"imageCount"`
}

type wirePlan struct {
	types.TourPlan
	Days []wireDay `json:"days"`
}

func cleanJSONResponse(txt string) string {
	s := strings.TrimSpace(txt)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parsePlan decodes the model output. Anything that is not a JSON object is
// reported as an empty response.
func parsePlan(txt string) (*types.TourPlan, error) {
	jsonStr := cleanJSONResponse(txt)
	if jsonStr == "" {
		return nil, types.ErrEmptyResponse
	}
	var wire wirePlan
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, fmt.Errorf("%w: failed to parse plan JSON: %w", types.ErrEmptyResponse, err)
	}

	plan := wire.TourPlan
	plan.Days = make([]types.DayPlan, 0, len(wire.Days))
	for _, wd := range wire.Days {
		d := wd.DayPlan
		d.Day = int(math.Round(wd.Day))
		d.ImagePosition = types.ImagePosition(strings.ToLower(strings.TrimSpace(wd.ImagePosition)))
		d.ImageCount = int(math.Round(wd.ImageCount))
		plan.Days = append(plan.Days, d)
	}
	return &plan, nil
}

// normalizePlan fills layout defaults and renumbers days contiguously from 1
// in ascending order of the day number the model produced.
func normalizePlan(plan *types.TourPlan) {
	sort.SliceStable(plan.Days, func(i, j int) bool { return plan.Days[i].Day < plan.Days[j].Day })
	for i := range plan.Days {
		d := &plan.Days[i]
		d.Day = i + 1
		if !d.ImagePosition.Valid() {
			d.ImagePosition = types.DefaultImagePosition
		}
		if d.ImageCount == 0 {
			d.ImageCount = types.DefaultImageCount
		}
		d.ImageCount = types.ClampImageCount(d.ImageCount)
		if d.Timeline == nil {
			d.Timeline = []types.TimelineEntry{}
		}
		d.CustomImages = nil
	}
	plan.Highlights = nonNil(plan.Highlights)
	plan.CostIncludes = nonNil(plan.CostIncludes)
	plan.CostExcludes = nonNil(plan.CostExcludes)
	plan.Precautions = nonNil(plan.Precautions)
	plan.SuggestedItems = nonNil(plan.SuggestedItems)
	plan.CountryCity = strings.TrimSpace(plan.CountryCity)
	if plan.FlightInfo != nil && plan.FlightInfo.Departure == "" && plan.FlightInfo.Return == "" {
		plan.FlightInfo = nil
	}
}

func validatePlan(plan *types.TourPlan, category types.TourType) error {
	if strings.TrimSpace(plan.MainTitle) == "" {
		return fmt.Errorf("%w: plan has no main title", types.ErrMalformedPlan)
	}
	if len(plan.Days) == 0 {
		return fmt.Errorf("%w: plan has no days", types.ErrMalformedPlan)
	}
	if category == types.TourTypeDomestic && len(plan.Days) > types.MaxDomesticDays {
		return fmt.Errorf("%w: domestic plan has %d days, at most %d allowed",
			types.ErrMalformedPlan, len(plan.Days), types.MaxDomesticDays)
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
