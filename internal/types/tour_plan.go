package types

import (
	"fmt"
	"strings"
)

// --- ENUM Types ---

// TourType selects the instruction profile used to generate a plan.
type TourType string

const (
	TourTypeDomestic      TourType = "domestic"      // 1-4 day domestic group tour
	TourTypeInternational TourType = "international" // Includes destination and flight legs
)

// ParseTourType validates a raw category value coming from a request.
func ParseTourType(s string) (TourType, error) {
	switch TourType(strings.ToLower(strings.TrimSpace(s))) {
	case TourTypeDomestic:
		return TourTypeDomestic, nil
	case TourTypeInternational:
		return TourTypeInternational, nil
	default:
		return "", fmt.Errorf("%w: unknown tour category %q", ErrValidation, s)
	}
}

// Label is the human readable product category used in prompts.
func (t TourType) Label() string {
	if t == TourTypeInternational {
		return "國外團體旅遊"
	}
	return "國內團體旅遊"
}

// ImagePosition controls where a day's images are laid out relative to its text.
type ImagePosition string

const (
	ImagePositionLeft   ImagePosition = "left"
	ImagePositionRight  ImagePosition = "right"
	ImagePositionBottom ImagePosition = "bottom"
)

const (
	DefaultImagePosition = ImagePositionRight
	DefaultImageCount    = 1
	MaxImagesPerDay      = 4
	MaxDomesticDays      = 4
)

// Valid reports whether p is one of the three layout literals.
func (p ImagePosition) Valid() bool {
	switch p {
	case ImagePositionLeft, ImagePositionRight, ImagePositionBottom:
		return true
	}
	return false
}

// ParseImagePosition validates a raw layout directive.
func ParseImagePosition(s string) (ImagePosition, error) {
	p := ImagePosition(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: image position must be left, right or bottom, got %q", ErrValidation, s)
	}
	return p, nil
}

// ClampImageCount forces n into [1, MaxImagesPerDay].
func ClampImageCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxImagesPerDay {
		return MaxImagesPerDay
	}
	return n
}

// --- Plan aggregate ---

type FlightInfo struct {
	Departure string `json:"departure"`
	Return    string `json:"return"`
}

type TimelineEntry struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
}

type Meals struct {
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
}

// DayPlan is one ordinal entry of a TourPlan.
type DayPlan struct {
	Day           int             `json:"day"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Timeline      []TimelineEntry `json:"timeline"`
	Meals         Meals           `json:"meals"`
	Accommodation string          `json:"accommodation"`
	ImageURL      string          `json:"imageUrl"` // keyword/seed for placeholder images
	ImagePosition ImagePosition   `json:"imagePosition"`
	ImageCount    int             `json:"imageCount"`
	CustomImages  []ImageBlob     `json:"customImages,omitempty"`
}

// TourPlan is the full itinerary document produced per generation request.
type TourPlan struct {
	MainTitle         string      `json:"mainTitle"`
	MarketingSubtitle string      `json:"marketingSubtitle"`
	DepartureInfo     string      `json:"departureInfo"`
	FlightInfo        *FlightInfo `json:"flightInfo,omitempty"`
	CountryCity       string      `json:"countryCity,omitempty"`
	Highlights        []string    `json:"highlights"`
	Days              []DayPlan   `json:"days"`
	CostIncludes      []string    `json:"costIncludes"`
	CostExcludes      []string    `json:"costExcludes"`
	Precautions       []string    `json:"precautions"`
	SuggestedItems    []string    `json:"suggestedItems"`
}

// Clone returns a deep copy. Editors rely on it for copy-on-write updates.
func (p *TourPlan) Clone() *TourPlan {
	if p == nil {
		return nil
	}
	out := *p
	if p.FlightInfo != nil {
		fi := *p.FlightInfo
		out.FlightInfo = &fi
	}
	out.Highlights = cloneStrings(p.Highlights)
	out.CostIncludes = cloneStrings(p.CostIncludes)
	out.CostExcludes = cloneStrings(p.CostExcludes)
	out.Precautions = cloneStrings(p.Precautions)
	out.SuggestedItems = cloneStrings(p.SuggestedItems)
	out.Days = make([]DayPlan, len(p.Days))
	for i := range p.Days {
		out.Days[i] = p.Days[i].Clone()
	}
	return &out
}

// Clone returns a deep copy of the day.
func (d DayPlan) Clone() DayPlan {
	out := d
	if d.Timeline != nil {
		out.Timeline = make([]TimelineEntry, len(d.Timeline))
		copy(out.Timeline, d.Timeline)
	}
	if d.CustomImages != nil {
		out.CustomImages = make([]ImageBlob, len(d.CustomImages))
		copy(out.CustomImages, d.CustomImages)
	}
	return out
}

// DayIndex returns the slice index of the day with ordinal n, or -1.
func (p *TourPlan) DayIndex(n int) int {
	if p == nil {
		return -1
	}
	for i := range p.Days {
		if p.Days[i].Day == n {
			return i
		}
	}
	return -1
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
