package preview

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/itinerary.html
var templateFS embed.FS

var itineraryTemplate = template.Must(template.ParseFS(templateFS, "templates/itinerary.html"))

type HTMLOptions struct {
	// Standalone adds a print button for the downloadable export.
	Standalone bool
}

type htmlDay struct {
	Block  DayBlock
	Images []template.URL
}

type htmlPage struct {
	Layout     Layout
	Days       []htmlDay
	Standalone bool
}

// RenderHTML renders a self-contained document: styles are inlined and
// generated images are embedded as data URLs.
func RenderHTML(layout Layout, opts HTMLOptions) ([]byte, error) {
	page := htmlPage{Layout: layout, Standalone: opts.Standalone, Days: make([]htmlDay, len(layout.Days))}
	for i, d := range layout.Days {
		page.Days[i] = htmlDay{Block: d, Images: imageURLs(d)}
	}
	var buf bytes.Buffer
	if err := itineraryTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render itinerary html: %w", err)
	}
	return buf.Bytes(), nil
}

// imageURLs whitelists the URL schemes images are stored with. html/template
// would otherwise neutralise data: URLs.
func imageURLs(d DayBlock) []template.URL {
	out := make([]template.URL, 0, len(d.Images))
	for _, img := range d.Images {
		switch {
		case strings.HasPrefix(img.URL, "data:image/"),
			strings.HasPrefix(img.URL, "https://"),
			strings.HasPrefix(img.URL, "http://"):
			out = append(out, template.URL(img.URL))
		}
	}
	return out
}
