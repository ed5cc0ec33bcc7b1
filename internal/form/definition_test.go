package form

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfigTotalAndDeterministic(t *testing.T) {
	for _, p := range Palette(true) {
		a, b := DefaultConfig(p.Type), DefaultConfig(p.Type)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("%s: repeated calls differ: %+v vs %+v", p.Type, a, b)
		}
		if a.Label == "" {
			t.Fatalf("%s: default label empty", p.Type)
		}
	}
	if !reflect.DeepEqual(DefaultConfig("hologram"), FieldConfig{}) {
		t.Fatal("unknown type should seed an empty config")
	}
	if got := DefaultConfig(TypeRadio).Options; len(got) != 2 || got[0] != "Option 1" {
		t.Fatalf("radio options = %v", got)
	}
}

func TestPaletteSplit(t *testing.T) {
	if n := len(Palette(false)); n != 6 {
		t.Fatalf("basic palette has %d entries", n)
	}
	if n := len(Palette(true)); n != 17 {
		t.Fatalf("full palette has %d entries", n)
	}
	if !TypeMatrix.Advanced() || TypeMatrix.Basic() || FieldType("x").Valid() {
		t.Fatal("type classification mismatch")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	doc := `title: Contact
steps:
  - fields:
      - type: text
        config:
          label: Name
          required: true
          minLength: 2
      - type: dropdown
        config:
          label: Topic
          options: [Sales, Support]
`
	if err := os.WriteFile(filepath.Join(dir, "contact.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	forms, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(forms) != 1 {
		t.Fatalf("got %d forms", len(forms))
	}
	f := forms[0]
	if f.ID != "contact" || f.Steps[0].Name != "Step 1" {
		t.Fatalf("defaults not applied: %+v", f)
	}
	if f.Steps[0].Fields[0].ID == f.Steps[0].Fields[1].ID {
		t.Fatal("field ids must be unique")
	}
	if *f.Steps[0].Fields[0].Config.MinLength != 2 {
		t.Fatal("minLength lost")
	}

	missing, err := LoadDir(filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("missing dir: %v %v", missing, err)
	}
}

func TestLoadFileRejectsUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "title: Bad\nsteps:\n  - fields:\n      - type: hologram\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestLabelMapFallsBackToKey(t *testing.T) {
	f := Form{Steps: []Step{
		{Fields: []Field{{Type: TypeText, Config: FieldConfig{Label: "Name"}}}},
		{Fields: []Field{{Type: TypeText}}},
	}}
	m := f.LabelMap()
	if m["step0_field0"] != "Name" || m["step1_field0"] != "step1_field0" {
		t.Fatalf("labels = %v", m)
	}
}
