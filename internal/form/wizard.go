// internal/form/wizard.go
//
// Forms subsystem: multi-step fill state machine.
//
// Context
//   A Wizard walks one respondent (or the builder preview) through a form.
//   It holds the current step index, the values collected so far, and the
//   messages from the last failed check.  The same Wizard serves the builder
//   preview and the public page; only the Consumer differs.
//
// Workflow
//   •  Advance merges posted values, validates the current step, and moves
//      forward only when every field passes.
//   •  Retreat moves back without validation.
//   •  Submit is legal on the last step only.  It validates every step,
//      builds the Response, hands it to the Consumer, and enters the
//      terminal Submitted state.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ResponderEmailKey is the optional top-level respondent address.
const ResponderEmailKey = "responderEmail"

var (
	ErrNotLastStep      = errors.New("submit is only allowed from the last step")
	ErrAlreadySubmitted = errors.New("response already submitted")
)

// Response is one respondent's values keyed by ResponseKey, plus an optional
// ResponderEmailKey entry.
type Response map[string]any

// Consumer receives a finished Response.
type Consumer interface {
	Consume(ctx context.Context, f Form, r Response) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, f Form, r Response) error

// Consume implements Consumer.
func (fn ConsumerFunc) Consume(ctx context.Context, f Form, r Response) error {
	return fn(ctx, f, r)
}

// State is the wizard's display state.
type State int

const (
	StateFilling State = iota
	StateSubmitted
)

func (s State) String() string {
	if s == StateSubmitted {
		return "submitted"
	}
	return "filling"
}

// Wizard is not safe for concurrent use.
type Wizard struct {
	Form   Form
	Step   int
	Values map[string]any
	Errors map[string]string
	State  State

	consumer Consumer
}

// NewWizard starts at step 0 with no values.  c may be nil, in which case
// Submit only changes state.
func NewWizard(f Form, c Consumer) *Wizard {
	return &Wizard{
		Form:     f,
		Values:   make(map[string]any),
		Errors:   make(map[string]string),
		consumer: c,
	}
}

// Restore resumes at step with previously collected values.  The step is
// clamped into range.
func (w *Wizard) Restore(step int, values map[string]any) {
	w.Step = w.clamp(step)
	w.Merge(values)
}

// Merge copies values over the collected ones.  Keys that do not belong to
// the form are ignored.
func (w *Wizard) Merge(values map[string]any) {
	for k, v := range values {
		if k == ResponderEmailKey || w.knownKey(k) {
			w.Values[k] = v
		}
	}
}

// StepCount returns the number of steps, never less than one.
func (w *Wizard) StepCount() int {
	if n := len(w.Form.Steps); n > 0 {
		return n
	}
	return 1
}

// IsLast reports whether the current step is the final one.
func (w *Wizard) IsLast() bool { return w.Step >= w.StepCount()-1 }

// Advance merges values and moves to the next step if the current one
// validates.  It reports whether the index changed or the step passed on
// the last page.
func (w *Wizard) Advance(values map[string]any) bool {
	if w.State == StateSubmitted {
		return false
	}
	w.Merge(values)
	w.Errors = ValidateStep(w.Form, w.Step, w.Values)
	if len(w.Errors) > 0 {
		return false
	}
	w.Step = w.clamp(w.Step + 1)
	return true
}

// Retreat merges values and moves one step back, stopping at zero.
func (w *Wizard) Retreat(values map[string]any) {
	if w.State == StateSubmitted {
		return
	}
	w.Merge(values)
	w.Errors = make(map[string]string)
	w.Step = w.clamp(w.Step - 1)
}

// Submit finishes the wizard.  On a validation failure it returns a
// *ValidationError and parks on the first failing step.
func (w *Wizard) Submit(ctx context.Context, values map[string]any) (Response, error) {
	if w.State == StateSubmitted {
		return nil, ErrAlreadySubmitted
	}
	if !w.IsLast() {
		return nil, ErrNotLastStep
	}
	w.Merge(values)

	w.Errors = ValidateAll(w.Form, w.Values)
	if err := asValidationError(w.Form, w.Errors); err != nil {
		w.Step = w.firstFailingStep()
		return nil, err
	}

	resp := w.Response()
	if w.consumer != nil {
		if err := w.consumer.Consume(ctx, w.Form, resp); err != nil {
			return nil, fmt.Errorf("consume response: %w", err)
		}
	}
	w.State = StateSubmitted
	return resp, nil
}

// Response builds the Response from the collected values.  Section headers
// hold no value and unknown types are skipped.
func (w *Wizard) Response() Response {
	r := make(Response)
	for si, s := range w.Form.Steps {
		for fi, fld := range s.Fields {
			if !fld.Type.Valid() || fld.Type == TypeSection {
				continue
			}
			key := ResponseKey(si, fi)
			v, ok := w.Values[key]
			switch {
			case fld.Type == TypeCheckbox || fld.Type == TypeSwitch:
				r[key] = truthy(v)
			case !ok || v == nil:
				r[key] = ""
			default:
				r[key] = v
			}
		}
	}
	if email, ok := w.Values[ResponderEmailKey].(string); ok && strings.TrimSpace(email) != "" {
		r[ResponderEmailKey] = strings.TrimSpace(email)
	}
	return r
}

func (w *Wizard) firstFailingStep() int {
	for si, s := range w.Form.Steps {
		for fi := range s.Fields {
			if _, bad := w.Errors[ResponseKey(si, fi)]; bad {
				return si
			}
		}
	}
	return w.Step
}

func (w *Wizard) clamp(step int) int {
	switch {
	case step < 0:
		return 0
	case step > w.StepCount()-1:
		return w.StepCount() - 1
	default:
		return step
	}
}

func (w *Wizard) knownKey(k string) bool {
	var si, fi int
	if _, err := fmt.Sscanf(k, "step%d_field%d", &si, &fi); err != nil {
		return false
	}
	if ResponseKey(si, fi) != k {
		return false
	}
	return si >= 0 && si < len(w.Form.Steps) && fi >= 0 && fi < len(w.Form.Steps[si].Fields)
}
