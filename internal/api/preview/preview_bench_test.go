package preview

import (
	"testing"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

func BenchmarkRender(b *testing.B) {
	r := NewRenderer(testPlaceholders)
	plan := &types.TourPlan{MainTitle: "bench", Days: make([]types.DayPlan, 4)}
	for i := range plan.Days {
		plan.Days[i] = types.DayPlan{Day: i + 1, Title: "day", ImagePosition: types.ImagePositionBottom, ImageCount: 4}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Render(plan, types.TourTypeDomestic)
	}
}

func BenchmarkRenderHTML(b *testing.B) {
	r := NewRenderer(testPlaceholders)
	plan := &types.TourPlan{MainTitle: "bench", Days: []types.DayPlan{{Day: 1, ImagePosition: types.ImagePositionRight, ImageCount: 2}}}
	layout := r.Render(plan, types.TourTypeInternational)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RenderHTML(layout, HTMLOptions{Standalone: true}); err != nil {
			b.Fatal(err)
		}
	}
}
