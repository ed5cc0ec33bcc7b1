package builder

import (
	"context"
	"errors"
	"reflect"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/yanizio/formstep/internal/form"
)

type seqIDs struct{ n int64 }

func (s *seqIDs) NextID() int64 { s.n++; return s.n }

func TestDragDropTargetsActiveStep(t *testing.T) {
	s := NewSession(&seqIDs{})
	if s.Doc.Title != DefaultTitle {
		t.Fatalf("title = %q", s.Doc.Title)
	}
	s.Doc.AddStep()
	if err := s.Doc.SetActiveStep(1); err != nil {
		t.Fatal(err)
	}

	p, err := s.DragStart(form.TypeRating)
	if err != nil {
		t.Fatalf("DragStart: %v", err)
	}
	f, err := s.Drop(p)
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if len(s.Doc.Steps[0].Fields) != 0 || len(s.Doc.Steps[1].Fields) != 1 {
		t.Fatalf("field landed on wrong step: %+v", s.Doc.Steps)
	}
	if f.Type != form.TypeRating {
		t.Fatalf("type = %s", f.Type)
	}

	if _, err := s.DragStart("hologram"); !errors.Is(err, form.ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

func TestPaletteToggle(t *testing.T) {
	s := NewSession(&seqIDs{})
	if n := len(s.Palette()); n != 6 {
		t.Fatalf("basic palette = %d", n)
	}
	s.ShowAdvanced(true)
	if n := len(s.Palette()); n != 17 {
		t.Fatalf("full palette = %d", n)
	}
}

func TestEditHelpers(t *testing.T) {
	s := NewSession(&seqIDs{})
	_, _ = s.Drop(Payload{Type: form.TypeText})
	_, _ = s.Drop(Payload{Type: form.TypeDropdown})

	if err := s.Edit(0, func(c *form.FieldConfig) { c.Label = "Email"; c.Required = true }); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPattern(0, `^a`); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPatternType(0, form.PatternEmail); err != nil {
		t.Fatal(err)
	}
	cfg := s.Doc.Steps[0].Fields[0].Config
	if cfg.Label != "Email" || !cfg.Required || cfg.PatternType != form.PatternEmail || cfg.Pattern != "" {
		t.Fatalf("config = %+v", cfg)
	}
	if err := s.SetPatternType(0, "zip"); !errors.Is(err, ErrBadPatternType) {
		t.Fatalf("want ErrBadPatternType, got %v", err)
	}

	if err := s.SetOptionsCSV(1, " a, b,,c ,"); err != nil {
		t.Fatal(err)
	}
	if got := s.Doc.Steps[0].Fields[1].Config.Options; !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("options = %q", got)
	}

	if err := s.Edit(5, func(*form.FieldConfig) {}); !errors.Is(err, form.ErrFieldOutOfRange) {
		t.Fatalf("want ErrFieldOutOfRange, got %v", err)
	}
}

func TestParseOptionsEmpty(t *testing.T) {
	if got := ParseOptions(" , ,"); len(got) != 0 {
		t.Fatalf("got %q", got)
	}
}

func TestZoomAndDevice(t *testing.T) {
	s := NewSession(&seqIDs{})
	for i := 0; i < 10; i++ {
		s.ZoomIn()
	}
	if s.Zoom() != 1.5 {
		t.Fatalf("zoom max = %v", s.Zoom())
	}
	for i := 0; i < 20; i++ {
		s.ZoomOut()
	}
	if s.Zoom() != 0.5 {
		t.Fatalf("zoom min = %v", s.Zoom())
	}
	s.SetZoom(0.74)
	if s.Zoom() != 0.7 {
		t.Fatalf("zoom = %v", s.Zoom())
	}
	s.SetZoom(9)
	if s.Zoom() != 1.5 {
		t.Fatalf("zoom = %v", s.Zoom())
	}

	widths := map[form.Device]int{form.DeviceDesktop: 700, form.DeviceTablet: 500, form.DeviceMobile: 375, "watch": 700}
	for d, want := range widths {
		s.SetDevice(d)
		if got := s.CanvasWidth(); got != want {
			t.Fatalf("%s width = %d, want %d", d, got, want)
		}
	}
}

func TestReorderActiveStepOnly(t *testing.T) {
	s := NewSession(&seqIDs{})
	for i := 0; i < 3; i++ {
		_, _ = s.Drop(Payload{Type: form.TypeText})
	}
	if err := s.Reorder(2, 0); err != nil {
		t.Fatal(err)
	}
	ids := []int64{}
	for _, f := range s.Doc.Steps[0].Fields {
		ids = append(ids, f.ID)
	}
	if !reflect.DeepEqual(ids, []int64{3, 1, 2}) {
		t.Fatalf("order = %v", ids)
	}
}

func TestPreviewDoesNotTouchDocument(t *testing.T) {
	s := NewSession(&seqIDs{})
	_, _ = s.Drop(Payload{Type: form.TypeText})

	w := s.PreviewWizard()
	if s.PreviewWizard() != w {
		t.Fatal("preview should persist across calls")
	}
	if _, err := w.Submit(context.Background(), map[string]any{"step0_field0": "x"}); err != nil {
		t.Fatalf("preview submit: %v", err)
	}
	if w.State != form.StateSubmitted {
		t.Fatalf("state = %v", w.State)
	}
	if s.Preview() == w {
		t.Fatal("Preview should restart")
	}
}

func TestOpenSessionKeepsID(t *testing.T) {
	f := form.Form{ID: "abc", Title: "Stored", Steps: []form.Step{{Name: "S", Fields: []form.Field{{ID: 40, Type: form.TypeText}}}}}
	s := OpenSession(f, form.NewCounter(nil))
	if s.FormID != "abc" || s.Doc.Title != "Stored" {
		t.Fatalf("session = %+v", s)
	}
	v := s.View()
	if v.FormID != "abc" || v.CanvasWidth != 700 || v.Zoom != 1 || len(v.Steps) != 1 {
		t.Fatalf("view = %+v", v)
	}
}

func TestManagerPerOwner(t *testing.T) {
	m := NewManager(2)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do("alice", func(s *Session) error {
				_, err := s.Drop(Payload{Type: form.TypeText})
				return err
			})
		}()
	}
	wg.Wait()

	_ = m.Do("alice", func(s *Session) error {
		if n := s.Doc.FieldCount(); n != 20 {
			t.Errorf("fields = %d", n)
		}
		return nil
	})
	_ = m.Do("bob", func(s *Session) error {
		if n := s.Doc.FieldCount(); n != 0 {
			t.Errorf("bob sees alice's fields: %d", n)
		}
		return nil
	})

	m.Reset("alice")
	_ = m.Do("alice", func(s *Session) error {
		if s.Doc.FieldCount() != 0 || s.FormID != "" {
			t.Errorf("reset left state behind")
		}
		return nil
	})

	m.Forget("bob")
	if m.Len() != 1 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestManagerUUIDFieldIDs(t *testing.T) {
	m := NewManager(4, WithFieldIDs(form.IDsUUID))
	var ids []int64
	err := m.Do("alice", func(s *Session) error {
		for i := 0; i < 3; i++ {
			p, err := s.DragStart(form.TypeText)
			if err != nil {
				return err
			}
			f, err := s.Drop(p)
			if err != nil {
				return err
			}
			ids = append(ids, f.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	// Clock-seeded ids sit near the current Unix millisecond; random ones
	// spread over 53 bits.
	now := time.Now().UnixMilli()
	for _, id := range ids {
		if id <= 0 || (id >= now-60_000 && id <= now+60_000) {
			t.Fatalf("ids = %v look clock-seeded", ids)
		}
	}
	if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
		t.Fatalf("ids = %v", ids)
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	s := NewSession(&seqIDs{})
	p, _ := s.DragStart(form.TypeText)
	if _, err := s.Drop(p); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Doc.Field(0, 0)

	bogus := form.PatternType("bogus")
	err := s.Apply(0, FieldEdit{
		Config:      json.RawMessage(`{"label":"X"}`),
		OptionsCSV:  strPtr("a,b"),
		PatternType: &bogus,
	})
	if !errors.Is(err, ErrBadPatternType) {
		t.Fatalf("want ErrBadPatternType, got %v", err)
	}
	after, _ := s.Doc.Field(0, 0)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("field changed on failed edit: %+v", after)
	}

	err = s.Apply(0, FieldEdit{Config: json.RawMessage(`{"label":"X","minLength":-1}`)})
	if !errors.Is(err, form.ErrBadConfig) {
		t.Fatalf("want ErrBadConfig, got %v", err)
	}
	if f, _ := s.Doc.Field(0, 0); f.Config.Label != before.Config.Label {
		t.Fatalf("label = %q", f.Config.Label)
	}

	email := form.PatternEmail
	err = s.Apply(0, FieldEdit{Config: json.RawMessage(`{"label":"Mail"}`), OptionsCSV: strPtr(" a, ,b"), PatternType: &email})
	if err != nil {
		t.Fatal(err)
	}
	f, _ := s.Doc.Field(0, 0)
	if f.Config.Label != "Mail" || f.Config.PatternType != form.PatternEmail || !reflect.DeepEqual(f.Config.Options, []string{"a", "b"}) {
		t.Fatalf("config = %+v", f.Config)
	}
}

func TestMergeConfigKeepsPatternsExclusive(t *testing.T) {
	base := form.FieldConfig{Label: "L"}.WithPatternType(form.PatternEmail)

	got, err := MergeConfig(base, json.RawMessage(`{"pattern":"^a"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Pattern != "^a" || got.PatternType != form.PatternNone {
		t.Fatalf("custom pattern should clear the preset: %+v", got)
	}

	got, err = MergeConfig(form.FieldConfig{Pattern: "^a"}, json.RawMessage(`{"patternType":"phone"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Pattern != "" || got.PatternType != form.PatternPhone {
		t.Fatalf("preset should clear the custom pattern: %+v", got)
	}

	if _, err := MergeConfig(base, json.RawMessage(`{"pattern":"^a","patternType":"email"}`)); !errors.Is(err, form.ErrBadConfig) {
		t.Fatalf("both set: want ErrBadConfig, got %v", err)
	}
	if _, err := MergeConfig(base, json.RawMessage(`[1]`)); !errors.Is(err, form.ErrBadConfig) {
		t.Fatalf("non-object: want ErrBadConfig, got %v", err)
	}
	if base.PatternType != form.PatternEmail || base.Pattern != "" {
		t.Fatalf("base mutated: %+v", base)
	}
}

func strPtr(s string) *string { return &s }
