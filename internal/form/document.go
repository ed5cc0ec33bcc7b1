// internal/form/document.go
//
// Forms subsystem: the editable document.
//
// Context
//   A Document is the builder's working copy of a form.  It owns the step
//   list, the active step pointer, and the current field selection.  Every
//   mutation builds a fresh slice for the step it touches and swaps it in,
//   so a Form returned by Snapshot is never changed behind the caller's back
//   and a failed call leaves the document exactly as it was.
//
// Invariants
//   •  len(Steps) ≥ 1 at all times.
//   •  0 ≤ ActiveStep < len(Steps).
//   •  Field ids are unique within the document.
//   •  Selected, when non-nil, points at an existing field.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
)

var (
	ErrStepOutOfRange  = errors.New("step index out of range")
	ErrFieldOutOfRange = errors.New("field index out of range")
	ErrUnknownType     = errors.New("unknown field type")
)

// Selection points at one field in the document.
type Selection struct {
	Step  int `json:"step"`
	Field int `json:"field"`
}

// Document is not safe for concurrent use; builder sessions guard it.
type Document struct {
	Title      string
	Steps      []Step
	ActiveStep int
	Selected   *Selection

	ids IDSource
}

// NewDocument returns a document with one empty step.  ids may be nil, in
// which case a clock-seeded Counter is used.
func NewDocument(ids IDSource) *Document {
	if ids == nil {
		ids = NewCounter(nil)
	}
	return &Document{
		Steps: []Step{{Name: "Step 1", Fields: []Field{}}},
		ids:   ids,
	}
}

// FromForm opens a stored form for editing.  A form without steps gets the
// default first step.
func FromForm(f Form, ids IDSource) *Document {
	d := NewDocument(ids)
	d.Title = f.Title
	if len(f.Steps) > 0 {
		d.Steps = f.Clone().Steps
	}
	if c, ok := d.ids.(*Counter); ok {
		for _, s := range d.Steps {
			for _, fld := range s.Fields {
				c.Observe(fld.ID)
			}
		}
	}
	return d
}

// Snapshot returns a deep copy of the document as a Form.  ID and Creator
// are left for the caller.
func (d *Document) Snapshot() Form {
	return Form{Title: d.Title, Steps: d.Steps}.Clone()
}

// Clone returns an independent copy sharing the same IDSource.
func (d *Document) Clone() *Document {
	c := &Document{
		Title:      d.Title,
		Steps:      Form{Steps: d.Steps}.Clone().Steps,
		ActiveStep: d.ActiveStep,
		ids:        d.ids,
	}
	if d.Selected != nil {
		sel := *d.Selected
		c.Selected = &sel
	}
	return c
}

// FieldCount returns the number of fields across every step.
func (d *Document) FieldCount() int {
	return Form{Steps: d.Steps}.FieldCount()
}

// Field returns a copy of the field at (step, idx).
func (d *Document) Field(step, idx int) (Field, error) {
	if err := d.checkField(step, idx); err != nil {
		return Field{}, err
	}
	f := d.Steps[step].Fields[idx]
	f.Config = f.Config.Clone()
	return f, nil
}

// -----------------------------------------------------------------------------
// Field operations
// -----------------------------------------------------------------------------

// AddField appends a field of type t with its default configuration to
// step and selects it.
func (d *Document) AddField(step int, t FieldType) (Field, error) {
	if err := d.checkStep(step); err != nil {
		return Field{}, err
	}
	if !t.Valid() {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	f := Field{ID: d.nextID(), Type: t, Config: DefaultConfig(t)}

	old := d.Steps[step].Fields
	fields := make([]Field, len(old), len(old)+1)
	copy(fields, old)
	fields = append(fields, f)
	d.replaceFields(step, fields)

	d.Selected = &Selection{Step: step, Field: len(fields) - 1}
	return f, nil
}

// UpdateFieldConfig replaces the configuration at (step, idx) wholesale.
// Callers merge partial edits beforehand.
func (d *Document) UpdateFieldConfig(step, idx int, cfg FieldConfig) error {
	if err := d.checkField(step, idx); err != nil {
		return err
	}
	if err := CheckConfig(cfg); err != nil {
		return err
	}

	fields := append([]Field(nil), d.Steps[step].Fields...)
	fields[idx].Config = cfg.Clone()
	d.replaceFields(step, fields)
	return nil
}

// RemoveField deletes the field at (step, idx).  A selection on that field
// is cleared; a selection after it in the same step shifts down.
func (d *Document) RemoveField(step, idx int) error {
	if err := d.checkField(step, idx); err != nil {
		return err
	}

	old := d.Steps[step].Fields
	fields := make([]Field, 0, len(old)-1)
	fields = append(fields, old[:idx]...)
	fields = append(fields, old[idx+1:]...)
	d.replaceFields(step, fields)

	if s := d.Selected; s != nil && s.Step == step {
		switch {
		case s.Field == idx:
			d.Selected = nil
		case s.Field > idx:
			d.Selected = &Selection{Step: step, Field: s.Field - 1}
		}
	}
	return nil
}

// ReorderFields moves the field at from to position to within step.  It is
// a no-op when from == to or either index falls outside the step.  The
// selection follows the field it pointed at.
func (d *Document) ReorderFields(step, from, to int) error {
	if err := d.checkStep(step); err != nil {
		return err
	}
	old := d.Steps[step].Fields
	if from == to || from < 0 || to < 0 || from >= len(old) || to >= len(old) {
		return nil
	}

	var selectedID int64
	selectedHere := d.Selected != nil && d.Selected.Step == step
	if selectedHere {
		selectedID = old[d.Selected.Field].ID
	}

	moved := old[from]
	fields := make([]Field, 0, len(old))
	fields = append(fields, old[:from]...)
	fields = append(fields, old[from+1:]...)
	fields = append(fields[:to], append([]Field{moved}, fields[to:]...)...)
	d.replaceFields(step, fields)

	if selectedHere {
		for i, f := range fields {
			if f.ID == selectedID {
				d.Selected = &Selection{Step: step, Field: i}
				break
			}
		}
	}
	return nil
}

// Select marks (step, idx) as the field shown in the configuration panel.
func (d *Document) Select(step, idx int) error {
	if err := d.checkField(step, idx); err != nil {
		return err
	}
	d.Selected = &Selection{Step: step, Field: idx}
	return nil
}

// ClearSelection drops the current selection.
func (d *Document) ClearSelection() { d.Selected = nil }

// -----------------------------------------------------------------------------
// Step operations
// -----------------------------------------------------------------------------

// AddStep appends an empty step named "Step N" where N is the new count.
func (d *Document) AddStep() Step {
	s := Step{Name: fmt.Sprintf("Step %d", len(d.Steps)+1), Fields: []Field{}}
	steps := make([]Step, len(d.Steps), len(d.Steps)+1)
	copy(steps, d.Steps)
	d.Steps = append(steps, s)
	return s
}

// RemoveStep deletes step idx and reports whether anything changed.  The
// last remaining step is never removed.  ActiveStep is clamped into range.
func (d *Document) RemoveStep(idx int) bool {
	if len(d.Steps) <= 1 || idx < 0 || idx >= len(d.Steps) {
		return false
	}

	steps := make([]Step, 0, len(d.Steps)-1)
	steps = append(steps, d.Steps[:idx]...)
	steps = append(steps, d.Steps[idx+1:]...)
	d.Steps = steps

	if d.ActiveStep > len(d.Steps)-1 {
		d.ActiveStep = len(d.Steps) - 1
	}
	if s := d.Selected; s != nil {
		switch {
		case s.Step == idx:
			d.Selected = nil
		case s.Step > idx:
			d.Selected = &Selection{Step: s.Step - 1, Field: s.Field}
		}
	}
	return true
}

// RenameStep sets the display name of step idx.
func (d *Document) RenameStep(idx int, name string) error {
	if err := d.checkStep(idx); err != nil {
		return err
	}
	steps := append([]Step(nil), d.Steps...)
	steps[idx].Name = name
	d.Steps = steps
	return nil
}

// SetActiveStep moves the builder canvas to step idx.
func (d *Document) SetActiveStep(idx int) error {
	if err := d.checkStep(idx); err != nil {
		return err
	}
	d.ActiveStep = idx
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// nextID draws from the IDSource until it gets an id not already in use.
func (d *Document) nextID() int64 {
	for {
		id := d.ids.NextID()
		if !d.hasID(id) {
			return id
		}
	}
}

func (d *Document) hasID(id int64) bool {
	for _, s := range d.Steps {
		for _, f := range s.Fields {
			if f.ID == id {
				return true
			}
		}
	}
	return false
}

func (d *Document) replaceFields(step int, fields []Field) {
	steps := append([]Step(nil), d.Steps...)
	steps[step].Fields = fields
	d.Steps = steps
}

func (d *Document) checkStep(step int) error {
	if step < 0 || step >= len(d.Steps) {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, step)
	}
	return nil
}

func (d *Document) checkField(step, idx int) error {
	if err := d.checkStep(step); err != nil {
		return err
	}
	if idx < 0 || idx >= len(d.Steps[step].Fields) {
		return fmt.Errorf("%w: step %d field %d", ErrFieldOutOfRange, step, idx)
	}
	return nil
}
