// internal/form/definition.go
//
// Forms subsystem: document types and YAML loader.
//
// Context
//   A form is an ordered list of steps, each an ordered list of fields.  The
//   same structs travel three ways: JSON into the key-value store (the tags
//   below are the persisted shape), JSON over the builder API, and YAML from
//   seed files read at boot.  Field order inside a step drives render order
//   and the positional response keys (see ResponseKey).
//
// Workflow
//   •  Form → Step → Field → FieldConfig mirror the stored JSON.
//   •  LoadFile parses one YAML document and checks structural rules.
//   •  LoadDir walks a directory of “*.yaml” files and returns every form.
//      A document without an id takes its file stem.
//   •  CheckConfig applies struct-tag validation to a single FieldConfig.
//
// Style
//   Comments use full sentences, two spaces after periods, and Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Form is a published (or publishable) document.  ID is the storage key
// suffix and is never serialized into the body.
type Form struct {
	ID      string `json:"-" yaml:"id,omitempty"`
	Title   string `json:"title" yaml:"title"`
	Steps   []Step `json:"steps" yaml:"steps"`
	Creator string `json:"creator" yaml:"creator,omitempty"`
}

// Step is one page of the wizard.
type Step struct {
	Name   string  `json:"stepName" yaml:"stepName"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field is a single input definition.  ID is unique within its form.
type Field struct {
	ID     int64       `json:"id" yaml:"id"`
	Type   FieldType   `json:"type" yaml:"type"`
	Config FieldConfig `json:"config" yaml:"config"`
}

// PatternType selects a built-in pattern.  Empty means none.
type PatternType string

const (
	PatternNone  PatternType = ""
	PatternEmail PatternType = "email"
	PatternPhone PatternType = "phone"
)

// FieldConfig is the per-field settings record.  Members that do not apply
// to a type are simply left empty.  Length bounds are pointers so "unset"
// and zero stay distinct.
type FieldConfig struct {
	Label       string      `json:"label" yaml:"label"`
	Required    bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options     []string    `json:"options,omitempty" yaml:"options,omitempty"`
	MinLength   *int        `json:"minLength,omitempty" yaml:"minLength,omitempty" validate:"omitempty,gte=0"`
	MaxLength   *int        `json:"maxLength,omitempty" yaml:"maxLength,omitempty" validate:"omitempty,gte=0"`
	PatternType PatternType `json:"patternType,omitempty" yaml:"patternType,omitempty" validate:"omitempty,oneof=email phone"`
	Pattern     string      `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min         *float64    `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64    `json:"max,omitempty" yaml:"max,omitempty"`
	Step        *float64    `json:"step,omitempty" yaml:"step,omitempty" validate:"omitempty,gt=0"`
	Accept      string      `json:"accept,omitempty" yaml:"accept,omitempty"`
	Columns     []string    `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows        []string    `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// WithPatternType returns a copy using the built-in pattern pt.  Any custom
// pattern is cleared.
func (c FieldConfig) WithPatternType(pt PatternType) FieldConfig {
	c.PatternType = pt
	c.Pattern = ""
	return c
}

// WithPattern returns a copy using the custom expression expr.  Any
// built-in pattern type is cleared.
func (c FieldConfig) WithPattern(expr string) FieldConfig {
	c.Pattern = expr
	c.PatternType = PatternNone
	return c
}

// Clone deep-copies the slices and pointers in c.
func (c FieldConfig) Clone() FieldConfig {
	c.Options = cloneStrings(c.Options)
	c.Columns = cloneStrings(c.Columns)
	c.Rows = cloneStrings(c.Rows)
	if c.MinLength != nil {
		c.MinLength = intPtr(*c.MinLength)
	}
	if c.MaxLength != nil {
		c.MaxLength = intPtr(*c.MaxLength)
	}
	if c.Min != nil {
		c.Min = f64Ptr(*c.Min)
	}
	if c.Max != nil {
		c.Max = f64Ptr(*c.Max)
	}
	if c.Step != nil {
		c.Step = f64Ptr(*c.Step)
	}
	return c
}

// Clone deep-copies f.
func (f Form) Clone() Form {
	out := f
	out.Steps = make([]Step, len(f.Steps))
	for i, s := range f.Steps {
		out.Steps[i] = s.clone()
	}
	return out
}

func (s Step) clone() Step {
	out := Step{Name: s.Name, Fields: make([]Field, len(s.Fields))}
	for i, f := range s.Fields {
		f.Config = f.Config.Clone()
		out.Fields[i] = f
	}
	return out
}

// FieldCount returns the number of fields across every step.
func (f Form) FieldCount() int {
	n := 0
	for _, s := range f.Steps {
		n += len(s.Fields)
	}
	return n
}

// ResponseKey is the positional key a value is stored under in a Response.
func ResponseKey(step, field int) string {
	return fmt.Sprintf("step%d_field%d", step, field)
}

// LabelMap maps every positional response key to the field's current label,
// falling back to the key itself when the label is blank.
func (f Form) LabelMap() map[string]string {
	m := make(map[string]string, f.FieldCount())
	for si, s := range f.Steps {
		for fi, fld := range s.Fields {
			key := ResponseKey(si, fi)
			if fld.Config.Label != "" {
				m[key] = fld.Config.Label
			} else {
				m[key] = key
			}
		}
	}
	return m
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func intPtr(n int) *int { return &n }

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

var validate = validator.New()

// ErrBadConfig wraps every CheckConfig failure.
var ErrBadConfig = errors.New("invalid field config")

// CheckConfig validates the struct tags on c, the min/max relationship,
// and that at most one of Pattern and PatternType is set.
func CheckConfig(c FieldConfig) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	if c.Pattern != "" && c.PatternType != PatternNone {
		return fmt.Errorf("%w: pattern and patternType are exclusive", ErrBadConfig)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return fmt.Errorf("%w: minLength greater than maxLength", ErrBadConfig)
	}
	return nil
}

// checkForm enforces structural rules on a loaded document.  The label in
// every error names the source so seed-file mistakes are easy to find.
func checkForm(f *Form, src string) error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("form %s: missing title", src)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("form %s: must have at least one step", src)
	}

	seen := make(map[int64]struct{})
	for si := range f.Steps {
		s := &f.Steps[si]
		if s.Name == "" {
			s.Name = fmt.Sprintf("Step %d", si+1)
		}
		for fi := range s.Fields {
			fld := &s.Fields[fi]
			if !fld.Type.Valid() {
				return fmt.Errorf("form %s: step %d field %d has unknown type %q", src, si, fi, fld.Type)
			}
			if fld.ID == 0 {
				fld.ID = int64(len(seen) + 1)
				for {
					if _, dup := seen[fld.ID]; !dup {
						break
					}
					fld.ID++
				}
			}
			if _, dup := seen[fld.ID]; dup {
				return fmt.Errorf("form %s: duplicate field id %d", src, fld.ID)
			}
			seen[fld.ID] = struct{}{}
			if err := CheckConfig(fld.Config); err != nil {
				return fmt.Errorf("form %s: step %d field %d: %w", src, si, fi, err)
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// LoadFile parses one YAML document and validates its structure.  When the
// document carries no id, the file stem is used.
func LoadFile(path string) (*Form, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}

	var f Form
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}
	if f.ID == "" {
		f.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := checkForm(&f, path); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadDir loads every “*.yaml” file below dir.  A missing directory yields
// no forms and no error.
func LoadDir(dir string) ([]*Form, error) {
	var out []*Form
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		f, err := LoadFile(path)
		if err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return out, nil
}
