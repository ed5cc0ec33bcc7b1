// internal/builder/session.go
//
// Builder surface: one author's editing session.
//
// Context
//   A Session wraps the form Document with the view state the canvas needs:
//   device, zoom, palette visibility, the bound form id, and the preview
//   wizard.  Field operations act on the document's active step.  Nothing is
//   written to storage here; publishing is a separate, explicit action.
//
// Notes
//   •  Zoom is kept in tenths so repeated steps never drift.
//   •  A Session is not safe for concurrent use.  Manager.Do serialises
//      access per author.
//
//------------------------------------------------------------------------------

package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/formstep/internal/form"
)

// DefaultTitle is the title of a new, empty form.
const DefaultTitle = "Untitled Form"

// Zoom bounds in tenths.
const (
	zoomMin     = 5
	zoomMax     = 15
	zoomDefault = 10
)

// ErrBadPatternType rejects anything but "", "email" and "phone".
var ErrBadPatternType = errors.New("pattern type must be email, phone or empty")

// Payload is what a palette drag carries to the canvas.
type Payload struct {
	Type form.FieldType `json:"type"`
}

// View is the JSON shape of a session for the builder UI.
type View struct {
	FormID       string              `json:"formId,omitempty"`
	Title        string              `json:"title"`
	Steps        []form.Step         `json:"steps"`
	ActiveStep   int                 `json:"activeStep"`
	Selected     *form.Selection     `json:"selected,omitempty"`
	Device       form.Device         `json:"device"`
	Zoom         float64             `json:"zoom"`
	CanvasWidth  int                 `json:"canvasWidth"`
	ShowAdvanced bool                `json:"showAdvanced"`
	Palette      []form.PaletteEntry `json:"palette"`
}

// Session is one author's working state.
type Session struct {
	Doc    *form.Document
	FormID string

	device       form.Device
	zoomTenths   int
	showAdvanced bool
	preview      *form.Wizard
}

// NewSession returns a blank session: one empty step, DefaultTitle,
// desktop view at 100 %.
func NewSession(ids form.IDSource) *Session {
	d := form.NewDocument(ids)
	d.Title = DefaultTitle
	return &Session{Doc: d, device: form.DeviceDesktop, zoomTenths: zoomDefault}
}

// OpenSession loads a stored form for editing.
func OpenSession(f form.Form, ids form.IDSource) *Session {
	s := NewSession(ids)
	s.Doc = form.FromForm(f, ids)
	s.FormID = f.ID
	return s
}

// View snapshots the session.
func (s *Session) View() View {
	snap := s.Doc.Snapshot()
	v := View{
		FormID:       s.FormID,
		Title:        snap.Title,
		Steps:        snap.Steps,
		ActiveStep:   s.Doc.ActiveStep,
		Device:       s.device,
		Zoom:         s.Zoom(),
		CanvasWidth:  s.CanvasWidth(),
		ShowAdvanced: s.showAdvanced,
		Palette:      s.Palette(),
	}
	if s.Doc.Selected != nil {
		sel := *s.Doc.Selected
		v.Selected = &sel
	}
	return v
}

// -----------------------------------------------------------------------------
// Palette and drag/drop
// -----------------------------------------------------------------------------

// Palette lists the draggable field types currently on show.
func (s *Session) Palette() []form.PaletteEntry { return form.Palette(s.showAdvanced) }

// ShowAdvanced toggles the advanced palette group.
func (s *Session) ShowAdvanced(on bool) { s.showAdvanced = on }

// DragStart builds the payload for a palette entry.
func (s *Session) DragStart(t form.FieldType) (Payload, error) {
	if !t.Valid() {
		return Payload{}, fmt.Errorf("%w: %q", form.ErrUnknownType, t)
	}
	return Payload{Type: t}, nil
}

// Drop adds a field of the payload's type to the active step.
func (s *Session) Drop(p Payload) (form.Field, error) {
	return s.Doc.AddField(s.Doc.ActiveStep, p.Type)
}

// -----------------------------------------------------------------------------
// Field editing on the active step
// -----------------------------------------------------------------------------

// Select marks field idx of the active step as selected.
func (s *Session) Select(idx int) error { return s.Doc.Select(s.Doc.ActiveStep, idx) }

// Reorder moves a field within the active step.
func (s *Session) Reorder(from, to int) error {
	return s.Doc.ReorderFields(s.Doc.ActiveStep, from, to)
}

// Remove deletes field idx from the active step.
func (s *Session) Remove(idx int) error { return s.Doc.RemoveField(s.Doc.ActiveStep, idx) }

// Edit applies fn to a copy of the field's config and stores the result.
func (s *Session) Edit(idx int, fn func(*form.FieldConfig)) error {
	f, err := s.Doc.Field(s.Doc.ActiveStep, idx)
	if err != nil {
		return err
	}
	cfg := f.Config
	fn(&cfg)
	return s.Doc.UpdateFieldConfig(s.Doc.ActiveStep, idx, cfg)
}

// SetPatternType sets a preset pattern and clears any custom one.
func (s *Session) SetPatternType(idx int, pt form.PatternType) error {
	if !validPatternType(pt) {
		return ErrBadPatternType
	}
	return s.Edit(idx, func(c *form.FieldConfig) { *c = c.WithPatternType(pt) })
}

func validPatternType(pt form.PatternType) bool {
	switch pt {
	case form.PatternNone, form.PatternEmail, form.PatternPhone:
		return true
	}
	return false
}

// FieldEdit is a batch of changes to one field's config.  Nil members are
// left alone.
type FieldEdit struct {
	Config      json.RawMessage // partial FieldConfig JSON
	OptionsCSV  *string
	Pattern     *string
	PatternType *form.PatternType
}

// Apply builds the complete new config from e and stores it with a single
// UpdateFieldConfig.  On any error the field is unchanged.  Changes apply
// in order: config, options, pattern, pattern type.
func (s *Session) Apply(idx int, e FieldEdit) error {
	f, err := s.Doc.Field(s.Doc.ActiveStep, idx)
	if err != nil {
		return err
	}
	if e.PatternType != nil && !validPatternType(*e.PatternType) {
		return ErrBadPatternType
	}

	next := f.Config.Clone()
	if len(e.Config) > 0 {
		if next, err = MergeConfig(next, e.Config); err != nil {
			return err
		}
	}
	if e.OptionsCSV != nil {
		next.Options = ParseOptions(*e.OptionsCSV)
	}
	if e.Pattern != nil {
		next = next.WithPattern(*e.Pattern)
	}
	if e.PatternType != nil {
		next = next.WithPatternType(*e.PatternType)
	}
	return s.Doc.UpdateFieldConfig(s.Doc.ActiveStep, idx, next)
}

// MergeConfig overlays the members present in raw onto base.  Setting a
// non-empty pattern clears patternType and the other way round; raw may
// not set both.
func MergeConfig(base form.FieldConfig, raw json.RawMessage) (form.FieldConfig, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(raw, &present); err != nil {
		return base, fmt.Errorf("%w: %w", form.ErrBadConfig, err)
	}
	next := base.Clone()
	if err := json.Unmarshal(raw, &next); err != nil {
		return base, fmt.Errorf("%w: %w", form.ErrBadConfig, err)
	}

	_, setPattern := present["pattern"]
	_, setType := present["patternType"]
	setPattern = setPattern && next.Pattern != ""
	setType = setType && next.PatternType != form.PatternNone
	switch {
	case setPattern && setType:
		return base, fmt.Errorf("%w: pattern and patternType are exclusive", form.ErrBadConfig)
	case setPattern:
		next.PatternType = form.PatternNone
	case setType:
		next.Pattern = ""
	}
	return next, nil
}

// SetPattern sets a custom pattern and clears any preset one.
func (s *Session) SetPattern(idx int, expr string) error {
	return s.Edit(idx, func(c *form.FieldConfig) { *c = c.WithPattern(expr) })
}

// SetOptionsCSV replaces the choice list from comma-separated text.
func (s *Session) SetOptionsCSV(idx int, csv string) error {
	opts := ParseOptions(csv)
	return s.Edit(idx, func(c *form.FieldConfig) { c.Options = opts })
}

// ParseOptions splits on commas, trims, and drops empty entries.
func ParseOptions(csv string) []string {
	out := []string{}
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// View state
// -----------------------------------------------------------------------------

// SetDevice switches the canvas width preset.
func (s *Session) SetDevice(d form.Device) { s.device = form.ParseDevice(string(d)) }

// Device returns the current preset.
func (s *Session) Device() form.Device { return s.device }

// CanvasWidth is the canvas width in pixels for the current device.
func (s *Session) CanvasWidth() int {
	switch s.device {
	case form.DeviceTablet:
		return 500
	case form.DeviceMobile:
		return 375
	default:
		return 700
	}
}

// Zoom returns the canvas scale.
func (s *Session) Zoom() float64 { return float64(s.zoomTenths) / 10 }

// ZoomIn grows the scale by 0.1 up to 1.5.
func (s *Session) ZoomIn() { s.setTenths(s.zoomTenths + 1) }

// ZoomOut shrinks the scale by 0.1 down to 0.5.
func (s *Session) ZoomOut() { s.setTenths(s.zoomTenths - 1) }

// SetZoom rounds z to a tenth and clamps it into [0.5, 1.5].
func (s *Session) SetZoom(z float64) {
	t := int(z*10 + 0.5)
	if z < 0 {
		t = zoomMin
	}
	s.setTenths(t)
}

func (s *Session) setTenths(t int) {
	s.zoomTenths = max(zoomMin, min(zoomMax, t))
}

// -----------------------------------------------------------------------------
// Preview
// -----------------------------------------------------------------------------

// Preview starts a fresh preview of the current document.  Submissions are
// logged and never stored.
func (s *Session) Preview() *form.Wizard {
	s.preview = form.NewWizard(s.Doc.Snapshot(), form.ConsumerFunc(previewConsumer))
	return s.preview
}

// PreviewWizard returns the running preview, starting one when needed.
func (s *Session) PreviewWizard() *form.Wizard {
	if s.preview == nil {
		return s.Preview()
	}
	return s.preview
}

func previewConsumer(_ context.Context, f form.Form, r form.Response) error {
	zap.S().Infow("preview submission", "title", f.Title, "values", len(r))
	return nil
}
