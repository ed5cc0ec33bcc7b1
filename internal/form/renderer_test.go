package form

import (
	"context"
	"strings"
	"testing"
)

func TestRenderFirstStep(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)
	w.Advance(nil) // produce a required error

	out, err := Render(w, RenderOptions{Device: DeviceMobile, CSRFToken: "tok", AskEmail: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		`max-width:375px`,
		`Step 1 of 2`,
		`name="step0_field0"`,
		`name="responderEmail"`,
		`name="csrf_token" value="tok"`,
		`name="current_step" value="0"`,
		`value="next"`,
		MsgRequired,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("output missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, `value="back"`) || strings.Contains(html, `value="submit"`) {
		t.Fatalf("first step should only offer next:\n%s", html)
	}
}

func TestRenderLastStep(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)
	w.Restore(1, nil)

	out, err := Render(w, RenderOptions{AskEmail: true})
	if err != nil {
		t.Fatal(err)
	}
	html := string(out)
	if !strings.Contains(html, `value="back"`) || !strings.Contains(html, `value="submit"`) {
		t.Fatalf("last step should offer back and submit:\n%s", html)
	}
	if strings.Contains(html, `name="responderEmail"`) {
		t.Fatal("responder email belongs to the first step only")
	}
	if !strings.Contains(html, `max-width:100%`) {
		t.Fatal("default device should be desktop width")
	}
}

func TestRenderSkipsUnknownTypes(t *testing.T) {
	f := Form{Title: "T", Steps: []Step{{Fields: []Field{
		{ID: 1, Type: "hologram", Config: FieldConfig{Label: "Ghost"}},
		{ID: 2, Type: TypeText, Config: FieldConfig{Label: "<b>Name</b>"}},
	}}}}

	out, err := Render(NewWizard(f, nil), RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	html := string(out)
	if strings.Contains(html, "Ghost") {
		t.Fatal("unknown field type should render nothing")
	}
	if !strings.Contains(html, "&lt;b&gt;Name&lt;/b&gt;") {
		t.Fatal("labels must be escaped")
	}
}

func TestRenderEveryRegisteredType(t *testing.T) {
	var fields []Field
	for i, p := range Palette(true) {
		fields = append(fields, Field{ID: int64(i + 1), Type: p.Type, Config: DefaultConfig(p.Type)})
	}
	out, err := Render(NewWizard(Form{Title: "All", Steps: []Step{{Fields: fields}}}, nil), RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	html := string(out)
	for _, p := range Palette(true) {
		if p.Type == TypeSection {
			continue
		}
		if !strings.Contains(html, "field-"+string(p.Type)) {
			t.Fatalf("no markup for %s", p.Type)
		}
	}
	if !strings.Contains(html, `type="range" min="0" max="100" step="1"`) {
		t.Fatal("slider bounds missing")
	}
}

func TestRenderSubmittedShowsThanks(t *testing.T) {
	w := NewWizard(twoStepForm(), nil)
	w.Restore(1, map[string]any{"step0_field0": "Ann"})
	if _, err := w.Submit(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	out, _ := Render(w, RenderOptions{})
	if !strings.Contains(string(out), NoticeThanks) {
		t.Fatalf("missing thanks notice: %s", out)
	}
	if strings.Contains(string(out), "<form") {
		t.Fatal("terminal state should not render inputs")
	}
}

func TestParseDevice(t *testing.T) {
	if ParseDevice(" Tablet ") != DeviceTablet || ParseDevice("watch") != DeviceDesktop {
		t.Fatal("ParseDevice mismatch")
	}
	if DeviceTablet.Width() != "700px" {
		t.Fatalf("tablet width = %s", DeviceTablet.Width())
	}
}
