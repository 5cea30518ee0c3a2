package dayImages

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// slotStyles varies the prompt per image so same-day images don't repeat.
var slotStyles = [types.MaxImagesPerDay]string{
	"scenic panorama",
	"local atmosphere",
	"close-up detail",
	"golden hour",
}

const descriptionExcerptRunes = 160

func generateImagePrompt(day types.DayPlan, slot int, trip Trip) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(day.Title))
	if excerpt := excerpt(day.Description, descriptionExcerptRunes); excerpt != "" {
		b.WriteString(". ")
		b.WriteString(excerpt)
	}
	if kw := strings.TrimSpace(day.ImageURL); kw != "" {
		fmt.Fprintf(&b, ". Keywords: %s", kw)
	}
	if trip.Category == types.TourTypeInternational {
		dest := strings.TrimSpace(trip.CountryCity)
		if dest == "" {
			dest = "overseas destination"
		}
		fmt.Fprintf(&b, ". International group tour in %s", dest)
	} else {
		b.WriteString(". Domestic group tour in Taiwan")
	}
	fmt.Fprintf(&b, ". Professional travel photography, %s, no text, no watermark.", slotStyles[slot%len(slotStyles)])
	return b.String()
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
