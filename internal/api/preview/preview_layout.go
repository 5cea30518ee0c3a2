package preview

import (
	"fmt"

	dayImages "github.com/FACorreiaa/go-tour-itinerary-studio/internal/api/day_images"
	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

const (
	domesticBadge      = "Premium Domestic Journey"
	internationalBadge = "Global Discovery | %s"
	fallbackDest       = "Luxury Tour"
	footerDisclaimer   = "* 行程內容供參考，實際以合約及行前說明會資料為準 *"
	footerBrand        = "Eagle AI Studio Itinerary Engine"
)

// Placement is where a day's images sit relative to its text.
type Placement string

const (
	PlacementSide   Placement = "side"
	PlacementBottom Placement = "bottom"
)

// Layout is the printable projection of a plan.
type Layout struct {
	Category       types.TourType `json:"category"`
	Header         Header         `json:"header"`
	Info           InfoBar        `json:"info"`
	Highlights     []Highlight    `json:"highlights"`
	Days           []DayBlock     `json:"days"`
	CostIncludes   []string       `json:"costIncludes"`
	CostExcludes   []string       `json:"costExcludes"`
	Precautions    []string       `json:"precautions"`
	SuggestedItems []string       `json:"suggestedItems"`
	Footer         Footer         `json:"footer"`
}

type Header struct {
	Badge    string `json:"badge"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type InfoBar struct {
	Departure string            `json:"departure"`
	Flight    *types.FlightInfo `json:"flight,omitempty"`
}

type Highlight struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// DayBlock lays out one day. Side placement stacks images top to bottom in
// a column, Mirrored puts that column on the left. Bottom placement puts
// them in a grid of Columns below the text.
type DayBlock struct {
	Day           int                   `json:"day"`
	Label         string                `json:"label"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Timeline      []types.TimelineEntry `json:"timeline"`
	Meals         types.Meals           `json:"meals"`
	Accommodation string                `json:"accommodation"`
	Placement     Placement             `json:"placement"`
	Mirrored      bool                  `json:"mirrored"`
	Columns       int                   `json:"columns"`
	Images        []types.ImageBlob     `json:"images"`
}

type Footer struct {
	Disclaimer string `json:"disclaimer"`
	Brand      string `json:"brand"`
}

// Renderer projects plans into layouts. It never touches the network.
type Renderer struct {
	placeholders dayImages.Placeholders
}

func NewRenderer(placeholders dayImages.Placeholders) *Renderer {
	return &Renderer{placeholders: placeholders}
}

// Render is deterministic for a given plan and category and does not modify plan.
func (r *Renderer) Render(plan *types.TourPlan, category types.TourType) Layout {
	l := Layout{
		Category: category,
		Header: Header{
			Badge:    badge(plan, category),
			Title:    plan.MainTitle,
			Subtitle: plan.MarketingSubtitle,
		},
		Info:           InfoBar{Departure: plan.DepartureInfo},
		Highlights:     make([]Highlight, len(plan.Highlights)),
		Days:           make([]DayBlock, len(plan.Days)),
		CostIncludes:   copyStrings(plan.CostIncludes),
		CostExcludes:   copyStrings(plan.CostExcludes),
		Precautions:    copyStrings(plan.Precautions),
		SuggestedItems: copyStrings(plan.SuggestedItems),
		Footer:         Footer{Disclaimer: footerDisclaimer, Brand: footerBrand},
	}
	if plan.FlightInfo != nil {
		fi := *plan.FlightInfo
		l.Info.Flight = &fi
	}
	for i, h := range plan.Highlights {
		l.Highlights[i] = Highlight{Number: fmt.Sprintf("%02d", i+1), Text: h}
	}
	for i, d := range plan.Days {
		l.Days[i] = r.dayBlock(d)
	}
	return l
}

func badge(plan *types.TourPlan, category types.TourType) string {
	if category == types.TourTypeDomestic {
		return domesticBadge
	}
	dest := plan.CountryCity
	if dest == "" {
		dest = fallbackDest
	}
	return fmt.Sprintf(internationalBadge, dest)
}

func (r *Renderer) dayBlock(d types.DayPlan) DayBlock {
	images := r.selectImages(d)
	b := DayBlock{
		Day:           d.Day,
		Label:         fmt.Sprintf("DAY %d", d.Day),
		Title:         d.Title,
		Description:   d.Description,
		Timeline:      append([]types.TimelineEntry{}, d.Timeline...),
		Meals:         d.Meals,
		Accommodation: d.Accommodation,
		Images:        images,
	}
	switch d.ImagePosition {
	case types.ImagePositionBottom:
		b.Placement = PlacementBottom
		b.Columns = min(types.ClampImageCount(d.ImageCount), len(images))
	case types.ImagePositionLeft:
		b.Placement = PlacementSide
		b.Mirrored = true
		b.Columns = 1
	default:
		b.Placement = PlacementSide
		b.Columns = 1
	}
	return b
}

// selectImages shows at most imageCount custom images. Days without any
// fall back to placeholders, so a count above the stored images only shows
// fewer images.
func (r *Renderer) selectImages(d types.DayPlan) []types.ImageBlob {
	count := types.ClampImageCount(d.ImageCount)
	if len(d.CustomImages) > 0 {
		n := min(count, len(d.CustomImages))
		return append([]types.ImageBlob{}, d.CustomImages[:n]...)
	}
	return r.placeholders.Images(d, count)
}

func copyStrings(in []string) []string {
	return append([]string{}, in...)
}
