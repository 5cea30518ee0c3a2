package dayImages

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// Placeholders builds deterministic stock-photo URLs. The same day and slot
// always map to the same URL so re-renders stay visually stable.
type Placeholders struct {
	BaseURL string
	Width   int
	Height  int
}

func (p Placeholders) URL(day types.DayPlan, slot int) string {
	return fmt.Sprintf("%s/%s/%d/%d", strings.TrimRight(p.BaseURL, "/"), url.PathEscape(seed(day, slot)), p.Width, p.Height)
}

func (p Placeholders) Image(day types.DayPlan, slot int) types.ImageBlob {
	return types.ImageBlob{Source: types.ImageSourcePlaceholder, URL: p.URL(day, slot)}
}

// Images returns count placeholders for day, count clamped to [1,4].
func (p Placeholders) Images(day types.DayPlan, count int) []types.ImageBlob {
	count = types.ClampImageCount(count)
	out := make([]types.ImageBlob, count)
	for i := range out {
		out[i] = p.Image(day, i)
	}
	return out
}

func seed(day types.DayPlan, slot int) string {
	keyword := strings.TrimSpace(day.ImageURL)
	if keyword == "" {
		keyword = strings.TrimSpace(day.Title)
	}
	keyword = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-', r == '_':
			return '-'
		}
		return -1
	}, keyword)
	if keyword == "" {
		keyword = "tour"
	}
	return fmt.Sprintf("%s-%d-%d", keyword, day.Day, slot)
}
