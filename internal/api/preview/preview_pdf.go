package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

type PDFOptions struct {
	// FontPath is a UTF-8 TrueType font. Without it the core Helvetica font
	// is used and only plans written in cp1252 text can be exported.
	FontPath string
}

type pdfLabels struct {
	Highlights  string
	Days        string
	Includes    string
	Excludes    string
	Precautions string
	Suggested   string
	Meals       string
	Stay        string
	Disclaimer  string
}

var unicodeLabels = pdfLabels{
	Highlights:  "行程特色亮點",
	Days:        "精選每日行程",
	Includes:    "【費用包含】",
	Excludes:    "【費用不包含】",
	Precautions: "行前注意事項",
	Suggested:   "Suggested Items",
	Meals:       "早：%s  午：%s  晚：%s",
	Stay:        "住宿：",
}

var latinLabels = pdfLabels{
	Highlights:  "Highlights",
	Days:        "Daily Itinerary",
	Includes:    "Cost includes",
	Excludes:    "Cost excludes",
	Precautions: "Precautions",
	Suggested:   "Suggested Items",
	Meals:       "Breakfast: %s  Lunch: %s  Dinner: %s",
	Stay:        "Accommodation: ",
	Disclaimer:  "* Itinerary for reference only. The contract and pre-departure briefing prevail. *",
}

const (
	pageMargin  = 15.0
	sideColumnW = 58.0
	columnGap   = 6.0
	lineH       = 6.0

	sideImageH   = sideColumnW * 9 / 16
	sideImageGap = 3.0
)

type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	family string
	tr     func(string) string
	labels pdfLabels
	images int
	// unencodable is set when the core font met text it has no glyphs for.
	unencodable bool
}

func newPDFWriter(opts PDFOptions) *pdfWriter {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	w := &pdfWriter{pdf: pdf, family: "Helvetica", tr: func(s string) string { return s }, labels: unicodeLabels}
	if opts.FontPath != "" {
		pdf.AddUTF8Font("itinerary", "", opts.FontPath)
		pdf.AddUTF8Font("itinerary", "B", opts.FontPath)
		w.family = "itinerary"
		return w
	}
	cp1252 := pdf.UnicodeTranslatorFromDescriptor("")
	w.labels = latinLabels
	w.tr = func(s string) string {
		if !encodable(s) {
			w.unencodable = true
		}
		return cp1252(s)
	}
	return w
}

// RenderPDF produces the printable itinerary. Embedded images are drawn;
// remote placeholders are drawn as framed boxes since rendering never fetches.
// Without a configured font, text outside cp1252 fails with ErrFontRequired
// instead of printing unreadable glyphs.
func RenderPDF(layout Layout, opts PDFOptions) ([]byte, error) {
	w := newPDFWriter(opts)
	pdf := w.pdf
	pdf.SetTitle(layout.Header.Title, true)
	pdf.AddPage()

	w.header(layout.Header)
	w.info(layout.Info)
	w.highlights(layout.Highlights)
	w.heading(w.labels.Days)
	for _, d := range layout.Days {
		w.day(d)
	}
	w.list(w.labels.Includes, layout.CostIncludes)
	w.list(w.labels.Excludes, layout.CostExcludes)
	w.list(w.labels.Precautions, layout.Precautions)
	w.list(w.labels.Suggested, layout.SuggestedItems)
	w.footer(layout.Footer)

	if w.unencodable {
		return nil, fmt.Errorf("%w: itinerary text needs glyphs the built-in font lacks, set export.pdfFontPath to a UTF-8 TrueType font such as Noto Sans TC", types.ErrFontRequired)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to build itinerary pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write itinerary pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *pdfWriter) contentWidth() float64 {
	pageW, _ := w.pdf.GetPageSize()
	return pageW - 2*pageMargin
}

func (w *pdfWriter) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) header(h Header) {
	w.pdf.SetFillColor(15, 23, 42)
	w.pdf.SetTextColor(255, 255, 255)
	w.font("B", 8)
	w.pdf.CellFormat(0, 7, w.tr(strings.ToUpper(h.Badge)), "", 1, "L", true, 0, "")
	w.font("B", 22)
	w.pdf.MultiCell(0, 10, w.tr(h.Title), "", "L", true)
	w.font("", 13)
	w.pdf.MultiCell(0, 7, w.tr(h.Subtitle), "", "L", true)
	w.pdf.SetTextColor(15, 23, 42)
	w.pdf.Ln(6)
}

func (w *pdfWriter) info(info InfoBar) {
	w.label("DEPARTURE")
	w.font("B", 12)
	w.pdf.MultiCell(0, lineH, w.tr(info.Departure), "", "L", false)
	if info.Flight != nil {
		w.label("OUTBOUND")
		w.font("", 11)
		w.pdf.MultiCell(0, lineH, w.tr(info.Flight.Departure), "", "L", false)
		w.label("INBOUND")
		w.font("", 11)
		w.pdf.MultiCell(0, lineH, w.tr(info.Flight.Return), "", "L", false)
	}
	w.pdf.Ln(4)
}

func (w *pdfWriter) label(s string) {
	w.pdf.SetTextColor(148, 163, 184)
	w.font("B", 7)
	w.pdf.CellFormat(0, 5, w.tr(s), "", 1, "L", false, 0, "")
	w.pdf.SetTextColor(15, 23, 42)
}

func (w *pdfWriter) heading(s string) {
	w.pdf.Ln(2)
	w.font("B", 16)
	w.pdf.CellFormat(0, 10, w.tr(s), "B", 1, "L", false, 0, "")
	w.pdf.Ln(3)
}

func (w *pdfWriter) highlights(hs []Highlight) {
	w.heading(w.labels.Highlights)
	for _, h := range hs {
		w.pdf.SetTextColor(37, 99, 235)
		w.font("B", 12)
		w.pdf.CellFormat(10, lineH+1, h.Number, "", 0, "L", false, 0, "")
		w.pdf.SetTextColor(15, 23, 42)
		w.font("B", 11)
		w.pdf.MultiCell(0, lineH+1, w.tr(h.Text), "", "L", false)
	}
	w.pdf.Ln(4)
}

func (w *pdfWriter) day(d DayBlock) {
	_, pageH := w.pdf.GetPageSize()
	if w.pdf.GetY() > pageH-90 {
		w.pdf.AddPage()
	}
	if d.Placement == PlacementBottom {
		w.dayText(d, pageMargin, w.contentWidth())
		w.imageGrid(d)
		w.pdf.Ln(8)
		return
	}

	// The side column is drawn before the text, so it must fit on this page.
	if w.pdf.GetY()+sideColumnHeight(len(d.Images)) > pageH-pageMargin {
		w.pdf.AddPage()
	}
	top, page := w.pdf.GetY(), w.pdf.PageNo()
	textW := w.contentWidth() - sideColumnW - columnGap
	textX, imageX := pageMargin, pageMargin+textW+columnGap
	if d.Mirrored {
		imageX, textX = pageMargin, pageMargin+sideColumnW+columnGap
	}
	imagesBottom := w.imageColumn(d, imageX, top)

	w.pdf.SetLeftMargin(textX)
	w.pdf.SetRightMargin(pageMargin + (w.contentWidth() - textW - (textX - pageMargin)))
	w.pdf.SetXY(textX, top)
	w.dayText(d, textX, textW)
	w.pdf.SetMargins(pageMargin, pageMargin, pageMargin)

	if w.pdf.PageNo() == page && w.pdf.GetY() < imagesBottom {
		w.pdf.SetY(imagesBottom)
	}
	w.pdf.SetX(pageMargin)
	w.pdf.Ln(8)
}

func sideColumnHeight(n int) float64 {
	return float64(n) * (sideImageH + sideImageGap)
}

func (w *pdfWriter) dayText(d DayBlock, x, width float64) {
	w.pdf.SetX(x)
	w.pdf.SetFillColor(37, 99, 235)
	w.pdf.SetTextColor(255, 255, 255)
	w.font("B", 8)
	w.pdf.CellFormat(16, 6, d.Label, "", 0, "C", true, 0, "")
	w.pdf.SetTextColor(15, 23, 42)
	w.font("B", 14)
	w.pdf.MultiCell(width-16, 7, " "+w.tr(d.Title), "", "L", false)
	w.pdf.SetX(x)
	w.font("", 10)
	w.pdf.MultiCell(width, 5, w.tr(d.Description), "", "L", false)
	w.pdf.Ln(1)
	for _, e := range d.Timeline {
		w.pdf.SetX(x)
		w.pdf.SetTextColor(37, 99, 235)
		w.font("B", 9)
		w.pdf.CellFormat(16, 5, w.tr(e.Time), "", 0, "L", false, 0, "")
		w.pdf.SetTextColor(15, 23, 42)
		w.font("", 9)
		w.pdf.MultiCell(width-16, 5, w.tr(e.Activity), "", "L", false)
	}
	w.pdf.SetX(x)
	w.font("", 9)
	meals := fmt.Sprintf(w.labels.Meals, d.Meals.Breakfast, d.Meals.Lunch, d.Meals.Dinner)
	w.pdf.MultiCell(width, 5, w.tr(meals), "", "L", false)
	w.pdf.SetX(x)
	w.font("B", 10)
	w.pdf.MultiCell(width, 6, w.tr(w.labels.Stay+d.Accommodation), "", "L", false)
}

func (w *pdfWriter) imageColumn(d DayBlock, x, y float64) float64 {
	for _, img := range d.Images {
		w.image(img, x, y, sideColumnW, sideImageH)
		y += sideImageH + sideImageGap
	}
	return y
}

func (w *pdfWriter) imageGrid(d DayBlock) {
	cols := max(d.Columns, 1)
	cellW := (w.contentWidth() - float64(cols-1)*4) / float64(cols)
	cellH := cellW * 9 / 16
	_, pageH := w.pdf.GetPageSize()
	y := w.pdf.GetY() + 4
	for i, img := range d.Images {
		col := i % cols
		if col == 0 && i > 0 {
			y += cellH + 4
		}
		if y+cellH > pageH-pageMargin {
			w.pdf.AddPage()
			y = w.pdf.GetY()
		}
		w.image(img, pageMargin+float64(col)*(cellW+4), y, cellW, cellH)
	}
	if len(d.Images) > 0 {
		w.pdf.SetY(y + cellH + 2)
	}
}

func (w *pdfWriter) image(img types.ImageBlob, x, y, width, height float64) {
	if data, imageType, ok := embedded(img); ok {
		w.images++
		name := fmt.Sprintf("img%d", w.images)
		opts := gofpdf.ImageOptions{ImageType: imageType}
		w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if w.pdf.Ok() {
			w.pdf.ImageOptions(name, x, y, width, height, false, opts, 0, "")
			return
		}
		w.pdf.ClearError()
	}
	w.pdf.SetDrawColor(203, 213, 225)
	w.pdf.SetFillColor(241, 245, 249)
	w.pdf.Rect(x, y, width, height, "FD")
}

// embedded decodes a data: URL in a format gofpdf can place.
func embedded(img types.ImageBlob) ([]byte, string, bool) {
	rest, ok := strings.CutPrefix(img.URL, "data:")
	if !ok {
		return nil, "", false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", false
	}
	var imageType string
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/jpeg", "image/jpg":
		imageType = "JPG"
	case "image/png":
		imageType = "PNG"
	case "image/gif":
		imageType = "GIF"
	default:
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", false
	}
	return data, imageType, true
}

func (w *pdfWriter) list(title string, items []string) {
	if len(items) == 0 {
		return
	}
	w.font("B", 11)
	w.pdf.CellFormat(0, 8, w.tr(title), "", 1, "L", false, 0, "")
	w.font("", 9)
	for _, it := range items {
		w.pdf.MultiCell(0, 5, w.tr("• "+it), "", "L", false)
	}
	w.pdf.Ln(3)
}

func (w *pdfWriter) footer(f Footer) {
	w.pdf.Ln(6)
	w.pdf.SetTextColor(148, 163, 184)
	w.font("", 7)
	disclaimer := f.Disclaimer
	if w.labels.Disclaimer != "" {
		disclaimer = w.labels.Disclaimer
	}
	w.pdf.CellFormat(0, 5, w.tr(disclaimer), "T", 1, "C", false, 0, "")
	w.font("B", 7)
	w.pdf.CellFormat(0, 5, w.tr(f.Brand), "", 1, "C", false, 0, "")
}

// cp1252Extras are the characters cp1252 places in the 0x80-0x9F range.
const cp1252Extras = "€‚ƒ„…†‡ˆ‰Š‹ŒŽ‘’“”•–—˜™š›œžŸ"

func encodable(s string) bool {
	for _, r := range s {
		if r < 0x80 || (r >= 0xA0 && r <= 0xFF) || strings.ContainsRune(cp1252Extras, r) {
			continue
		}
		return false
	}
	return true
}
