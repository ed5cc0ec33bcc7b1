package form

import (
	"context"
	"errors"
	"testing"
)

func twoStepForm() Form {
	return Form{
		ID:    "abc12345",
		Title: "Signup",
		Steps: []Step{
			{Name: "Step 1", Fields: []Field{{ID: 1, Type: TypeText, Config: FieldConfig{Label: "Name", Required: true}}}},
			{Name: "Step 2", Fields: []Field{{ID: 2, Type: TypeCheckbox, Config: FieldConfig{Label: "Agree"}}}},
		},
	}
}

func TestAdvanceBlockedByRequired(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)

	if w.Advance(map[string]any{"step0_field0": ""}) {
		t.Fatal("advance should fail with empty required field")
	}
	if w.Step != 0 {
		t.Fatalf("Step = %d, want 0", w.Step)
	}
	if w.Errors["step0_field0"] != MsgRequired {
		t.Fatalf("errors = %v", w.Errors)
	}

	if !w.Advance(map[string]any{"step0_field0": "Alice"}) {
		t.Fatalf("advance should pass, errors = %v", w.Errors)
	}
	if w.Step != 1 {
		t.Fatalf("Step = %d, want 1", w.Step)
	}
	if len(w.Errors) != 0 {
		t.Fatalf("errors not cleared: %v", w.Errors)
	}
}

func TestRetreatClampsAtZero(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)
	w.Retreat(nil)
	if w.Step != 0 {
		t.Fatalf("Step = %d", w.Step)
	}
	w.Restore(9, nil)
	if w.Step != 1 {
		t.Fatalf("Restore should clamp, Step = %d", w.Step)
	}
	w.Retreat(nil)
	if w.Step != 0 {
		t.Fatalf("Step = %d", w.Step)
	}
}

func TestSubmitOnlyFromLastStep(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)
	if _, err := w.Submit(context.Background(), nil); !errors.Is(err, ErrNotLastStep) {
		t.Fatalf("want ErrNotLastStep, got %v", err)
	}
}

func TestSubmitEmitsResponse(t *testing.T) {
	var got Response
	consumer := ConsumerFunc(func(_ context.Context, f Form, r Response) error {
		if f.ID != "abc12345" {
			t.Errorf("consumer got form %q", f.ID)
		}
		got = r
		return nil
	})

	w := NewWizard(twoStepForm(), consumer)
	w.Advance(map[string]any{"step0_field0": "Alice", ResponderEmailKey: " a@b.co "})
	resp, err := w.Submit(context.Background(), map[string]any{"step1_field0": true, "bogus": "x"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if w.State != StateSubmitted {
		t.Fatalf("state = %v", w.State)
	}
	if resp["step0_field0"] != "Alice" || resp["step1_field0"] != true || resp[ResponderEmailKey] != "a@b.co" {
		t.Fatalf("response = %v", resp)
	}
	if _, ok := resp["bogus"]; ok {
		t.Fatal("unknown keys must not reach the response")
	}
	if len(got) != len(resp) {
		t.Fatalf("consumer saw %v", got)
	}

	if _, err := w.Submit(context.Background(), nil); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit: %v", err)
	}
}

func TestSubmitParksOnFirstFailingStep(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)
	w.Restore(1, nil)

	_, err := w.Submit(context.Background(), nil)
	if !IsValidationError(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Map()["step0_field0"] != MsgRequired {
		t.Fatalf("fields = %+v", ve)
	}
	if w.Step != 0 {
		t.Fatalf("Step = %d, want 0", w.Step)
	}
	if w.State != StateFilling {
		t.Fatal("failed submit must not finish the wizard")
	}
}

func TestConsumerErrorKeepsWizardOpen(t *testing.T) {
	boom := errors.New("disk full")
	w := NewWizard(twoStepForm(), ConsumerFunc(func(context.Context, Form, Response) error { return boom }))
	w.Restore(1, map[string]any{"step0_field0": "Bob"})

	if _, err := w.Submit(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("want wrapped consumer error, got %v", err)
	}
	if w.State != StateFilling {
		t.Fatal("state changed despite consumer failure")
	}
}
