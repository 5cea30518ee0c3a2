package planEditor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-tour-itinerary-studio/internal/types"
)

// CommandType tags a Command on the wire.
type CommandType string

const (
	CmdSetMainTitle         CommandType = "set_main_title"
	CmdSetMarketingSubtitle CommandType = "set_marketing_subtitle"
	CmdSetDepartureInfo     CommandType = "set_departure_info"
	CmdSetDayTitle          CommandType = "set_day_title"
	CmdSetDayDescription    CommandType = "set_day_description"
	CmdSetImagePosition     CommandType = "set_image_position"
	CmdSetImageCount        CommandType = "set_image_count"
	CmdSetTimelineEntry     CommandType = "set_timeline_entry"
	CmdAddTimelineEntry     CommandType = "add_timeline_entry"
	CmdRemoveTimelineEntry  CommandType = "remove_timeline_entry"
	CmdSetMeals             CommandType = "set_meals"
	CmdSetAccommodation     CommandType = "set_accommodation"
	CmdSetCustomImages      CommandType = "set_custom_images"
	CmdSetHighlight         CommandType = "set_highlight"
)

// Command is one typed edit. apply receives a private copy of the plan.
type Command interface {
	Type() CommandType
	apply(p *types.TourPlan) error
}

// Apply runs cmd against a deep copy of plan. The input plan is never
// modified; on error the copy is dropped.
func Apply(plan *types.TourPlan, cmd Command) (*types.TourPlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: no plan to edit", types.ErrInvalidTransition)
	}
	next := plan.Clone()
	if err := cmd.apply(next); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Type(), err)
	}
	return next, nil
}

// ApplyAll applies cmds in order and fails as a unit.
func ApplyAll(plan *types.TourPlan, cmds []Command) (*types.TourPlan, error) {
	next := plan
	for _, cmd := range cmds {
		var err error
		if next, err = Apply(next, cmd); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// --- plan level ---

type SetMainTitle struct {
	Value string `json:"value"`
}

func (SetMainTitle) Type() CommandType { return CmdSetMainTitle }
func (c SetMainTitle) apply(p *types.TourPlan) error {
	p.MainTitle = c.Value
	return nil
}

type SetMarketingSubtitle struct {
	Value string `json:"value"`
}

func (SetMarketingSubtitle) Type() CommandType { return CmdSetMarketingSubtitle }
func (c SetMarketingSubtitle) apply(p *types.TourPlan) error {
	p.MarketingSubtitle = c.Value
	return nil
}

type SetDepartureInfo struct {
	Value string `json:"value"`
}

func (SetDepartureInfo) Type() CommandType { return CmdSetDepartureInfo }
func (c SetDepartureInfo) apply(p *types.TourPlan) error {
	p.DepartureInfo = c.Value
	return nil
}

type SetHighlight struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

func (SetHighlight) Type() CommandType { return CmdSetHighlight }
func (c SetHighlight) apply(p *types.TourPlan) error {
	if c.Index < 0 || c.Index >= len(p.Highlights) {
		return fmt.Errorf("%w: highlight index %d out of range", types.ErrValidation, c.Index)
	}
	p.Highlights[c.Index] = c.Value
	return nil
}

// --- day level ---

func dayOf(p *types.TourPlan, n int) (*types.DayPlan, error) {
	i := p.DayIndex(n)
	if i < 0 {
		return nil, fmt.Errorf("%w: day %d does not exist", types.ErrValidation, n)
	}
	return &p.Days[i], nil
}

type SetDayTitle struct {
	Day   int    `json:"day"`
	Value string `json:"value"`
}

func (SetDayTitle) Type() CommandType { return CmdSetDayTitle }
func (c SetDayTitle) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.Title = c.Value
	return nil
}

type SetDayDescription struct {
	Day   int    `json:"day"`
	Value string `json:"value"`
}

func (SetDayDescription) Type() CommandType { return CmdSetDayDescription }
func (c SetDayDescription) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.Description = c.Value
	return nil
}

type SetImagePosition struct {
	Day      int                 `json:"day"`
	Position types.ImagePosition `json:"position"`
}

func (SetImagePosition) Type() CommandType { return CmdSetImagePosition }
func (c SetImagePosition) apply(p *types.TourPlan) error {
	pos, err := types.ParseImagePosition(string(c.Position))
	if err != nil {
		return err
	}
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.ImagePosition = pos
	return nil
}

// SetImageCount only changes how many images are displayed. Fetching images
// for a larger count is an explicit regenerate.
type SetImageCount struct {
	Day   int `json:"day"`
	Count int `json:"count"`
}

func (SetImageCount) Type() CommandType { return CmdSetImageCount }
func (c SetImageCount) apply(p *types.TourPlan) error {
	if c.Count < 1 || c.Count > types.MaxImagesPerDay {
		return fmt.Errorf("%w: image count must be between 1 and %d", types.ErrValidation, types.MaxImagesPerDay)
	}
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.ImageCount = c.Count
	return nil
}

type SetTimelineEntry struct {
	Day   int                 `json:"day"`
	Index int                 `json:"index"`
	Entry types.TimelineEntry `json:"entry"`
}

func (SetTimelineEntry) Type() CommandType { return CmdSetTimelineEntry }
func (c SetTimelineEntry) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	if c.Index < 0 || c.Index >= len(d.Timeline) {
		return fmt.Errorf("%w: timeline index %d out of range", types.ErrValidation, c.Index)
	}
	d.Timeline[c.Index] = c.Entry
	return nil
}

// AddTimelineEntry inserts before Index, or appends when Index is nil.
type AddTimelineEntry struct {
	Day   int                 `json:"day"`
	Index *int                `json:"index,omitempty"`
	Entry types.TimelineEntry `json:"entry"`
}

func (AddTimelineEntry) Type() CommandType { return CmdAddTimelineEntry }
func (c AddTimelineEntry) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	at := len(d.Timeline)
	if c.Index != nil {
		at = *c.Index
	}
	if at < 0 || at > len(d.Timeline) {
		return fmt.Errorf("%w: timeline index %d out of range", types.ErrValidation, at)
	}
	timeline := make([]types.TimelineEntry, 0, len(d.Timeline)+1)
	timeline = append(timeline, d.Timeline[:at]...)
	timeline = append(timeline, c.Entry)
	d.Timeline = append(timeline, d.Timeline[at:]...)
	return nil
}

type RemoveTimelineEntry struct {
	Day   int `json:"day"`
	Index int `json:"index"`
}

func (RemoveTimelineEntry) Type() CommandType { return CmdRemoveTimelineEntry }
func (c RemoveTimelineEntry) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	if c.Index < 0 || c.Index >= len(d.Timeline) {
		return fmt.Errorf("%w: timeline index %d out of range", types.ErrValidation, c.Index)
	}
	timeline := make([]types.TimelineEntry, 0, len(d.Timeline)-1)
	timeline = append(timeline, d.Timeline[:c.Index]...)
	d.Timeline = append(timeline, d.Timeline[c.Index+1:]...)
	return nil
}

type SetMeals struct {
	Day   int         `json:"day"`
	Meals types.Meals `json:"meals"`
}

func (SetMeals) Type() CommandType { return CmdSetMeals }
func (c SetMeals) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.Meals = c.Meals
	return nil
}

type SetAccommodation struct {
	Day   int    `json:"day"`
	Value string `json:"value"`
}

func (SetAccommodation) Type() CommandType { return CmdSetAccommodation }
func (c SetAccommodation) apply(p *types.TourPlan) error {
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.Accommodation = c.Value
	return nil
}

// SetCustomImages replaces a day's images. With SyncCount the display count
// follows the new image list, as it does for uploads.
type SetCustomImages struct {
	Day       int               `json:"day"`
	Images    []types.ImageBlob `json:"images"`
	SyncCount bool              `json:"sync_count,omitempty"`
}

func (SetCustomImages) Type() CommandType { return CmdSetCustomImages }
func (c SetCustomImages) apply(p *types.TourPlan) error {
	if len(c.Images) > types.MaxImagesPerDay {
		return fmt.Errorf("%w: at most %d images per day", types.ErrValidation, types.MaxImagesPerDay)
	}
	for i, img := range c.Images {
		if !strings.HasPrefix(img.URL, "data:image/") && !strings.HasPrefix(img.URL, "https://") && !strings.HasPrefix(img.URL, "http://") {
			return fmt.Errorf("%w: image %d must be an image data URL or http(s) URL", types.ErrValidation, i)
		}
	}
	d, err := dayOf(p, c.Day)
	if err != nil {
		return err
	}
	d.CustomImages = append([]types.ImageBlob(nil), c.Images...)
	if c.SyncCount && len(c.Images) > 0 {
		d.ImageCount = len(c.Images)
	}
	return nil
}

// --- wire format ---

type envelope struct {
	Type CommandType `json:"type"`
}

// DecodeCommand decodes a {"type": "...", ...} tagged command.
func DecodeCommand(raw json.RawMessage) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed command: %w", types.ErrValidation, err)
	}
	var (
		cmd Command
		err error
	)
	switch env.Type {
	case CmdSetMainTitle:
		cmd, err = decodeInto[SetMainTitle](raw)
	case CmdSetMarketingSubtitle:
		cmd, err = decodeInto[SetMarketingSubtitle](raw)
	case CmdSetDepartureInfo:
		cmd, err = decodeInto[SetDepartureInfo](raw)
	case CmdSetDayTitle:
		cmd, err = decodeInto[SetDayTitle](raw)
	case CmdSetDayDescription:
		cmd, err = decodeInto[SetDayDescription](raw)
	case CmdSetImagePosition:
		cmd, err = decodeInto[SetImagePosition](raw)
	case CmdSetImageCount:
		cmd, err = decodeInto[SetImageCount](raw)
	case CmdSetTimelineEntry:
		cmd, err = decodeInto[SetTimelineEntry](raw)
	case CmdAddTimelineEntry:
		cmd, err = decodeInto[AddTimelineEntry](raw)
	case CmdRemoveTimelineEntry:
		cmd, err = decodeInto[RemoveTimelineEntry](raw)
	case CmdSetMeals:
		cmd, err = decodeInto[SetMeals](raw)
	case CmdSetAccommodation:
		cmd, err = decodeInto[SetAccommodation](raw)
	case CmdSetCustomImages:
		cmd, err = decodeInto[SetCustomImages](raw)
	case CmdSetHighlight:
		cmd, err = decodeInto[SetHighlight](raw)
	default:
		return nil, fmt.Errorf("%w: unknown command type %q", types.ErrValidation, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrValidation, env.Type, err)
	}
	return cmd, nil
}

// DecodeCommands decodes a batch, failing on the first bad entry.
func DecodeCommands(raws []json.RawMessage) ([]Command, error) {
	cmds := make([]Command, 0, len(raws))
	for i, raw := range raws {
		cmd, err := DecodeCommand(raw)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func decodeInto[T Command](raw json.RawMessage) (Command, error) {
	var c T
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return c, nil
}
