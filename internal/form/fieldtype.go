// internal/form/fieldtype.go
//
// Field-type catalog.
//
// Context
// -------
// Every field on a form carries one of the tags below.  The set is closed:
// the renderer and the rule deriver switch over it exhaustively, and a tag
// outside the set is treated as "unknown" (renders nothing, seeds an empty
// configuration).  The palette order is the order authors see in the
// builder.
package form

// FieldType is the tag stored in Field.Type.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeDropdown FieldType = "dropdown"
	TypeCheckbox FieldType = "checkbox"
	TypeDate     FieldType = "date"
	TypeRadio    FieldType = "radio"

	TypeFile      FieldType = "file"
	TypeSignature FieldType = "signature"
	TypeSlider    FieldType = "slider"
	TypeRating    FieldType = "rating"
	TypeColor     FieldType = "color"
	TypeSwitch    FieldType = "switch"
	TypeTime      FieldType = "time"
	TypeSection   FieldType = "section"
	TypeRepeater  FieldType = "repeater"
	TypeMatrix    FieldType = "matrix"
	TypeRichText  FieldType = "richtext"
)

// PaletteEntry is one draggable item in the builder palette.
type PaletteEntry struct {
	Type  FieldType `json:"type"`
	Label string    `json:"label"`
}

var basicPalette = []PaletteEntry{
	{TypeText, "Text Input"},
	{TypeTextarea, "Textarea"},
	{TypeDropdown, "Dropdown"},
	{TypeCheckbox, "Checkbox"},
	{TypeDate, "Date Picker"},
	{TypeRadio, "Radio Buttons"},
}

var advancedPalette = []PaletteEntry{
	{TypeFile, "File Upload"},
	{TypeSignature, "Signature"},
	{TypeSlider, "Slider"},
	{TypeRating, "Rating"},
	{TypeColor, "Color Picker"},
	{TypeSwitch, "Switch"},
	{TypeTime, "Time Picker"},
	{TypeSection, "Section Header"},
	{TypeRepeater, "Repeater"},
	{TypeMatrix, "Matrix/Grid"},
	{TypeRichText, "Rich Text Editor"},
}

// Palette returns the basic entries, followed by the advanced ones when
// advanced is true.  The result is a fresh slice.
func Palette(advanced bool) []PaletteEntry {
	out := make([]PaletteEntry, 0, len(basicPalette)+len(advancedPalette))
	out = append(out, basicPalette...)
	if advanced {
		out = append(out, advancedPalette...)
	}
	return out
}

// Valid reports whether t is a registered tag.
func (t FieldType) Valid() bool {
	return t.Basic() || t.Advanced()
}

// Basic reports whether t belongs to the always-visible palette.
func (t FieldType) Basic() bool { return inPalette(basicPalette, t) }

// Advanced reports whether t sits behind the palette's advanced toggle.
func (t FieldType) Advanced() bool { return inPalette(advancedPalette, t) }

// Label is the palette caption, or the raw tag for unknown types.
func (t FieldType) Label() string {
	for _, p := range basicPalette {
		if p.Type == t {
			return p.Label
		}
	}
	for _, p := range advancedPalette {
		if p.Type == t {
			return p.Label
		}
	}
	return string(t)
}

// HasLength reports whether length bounds and patterns apply to t.
func (t FieldType) HasLength() bool { return t == TypeText || t == TypeTextarea }

// HasOptions reports whether t renders a choice list.
func (t FieldType) HasOptions() bool { return t == TypeDropdown || t == TypeRadio }

func inPalette(p []PaletteEntry, t FieldType) bool {
	for _, e := range p {
		if e.Type == t {
			return true
		}
	}
	return false
}

// DefaultConfig returns the seed configuration for a freshly dropped field.
// It is total: an unknown tag yields the zero FieldConfig.
func DefaultConfig(t FieldType) FieldConfig {
	switch t {
	case TypeText:
		return FieldConfig{Label: "Text"}
	case TypeTextarea:
		return FieldConfig{Label: "Textarea"}
	case TypeDropdown:
		return FieldConfig{Label: "Dropdown", Options: []string{"Option 1", "Option 2"}}
	case TypeRadio:
		return FieldConfig{Label: "Radio", Options: []string{"Option 1", "Option 2"}}
	case TypeCheckbox:
		return FieldConfig{Label: "Checkbox"}
	case TypeDate:
		return FieldConfig{Label: "Date"}
	case TypeSlider:
		return FieldConfig{Label: t.Label(), Min: f64Ptr(0), Max: f64Ptr(100), Step: f64Ptr(1)}
	case TypeMatrix:
		return FieldConfig{
			Label:   t.Label(),
			Rows:    []string{"Row 1", "Row 2"},
			Columns: []string{"Column 1", "Column 2"},
		}
	case TypeFile, TypeSignature, TypeRating, TypeColor, TypeSwitch, TypeTime,
		TypeSection, TypeRepeater, TypeRichText:
		return FieldConfig{Label: t.Label()}
	default:
		return FieldConfig{}
	}
}

func f64Ptr(f float64) *float64 { return &f }
