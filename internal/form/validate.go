// internal/form/validate.go
//
// Forms subsystem: rule derivation and value checks.
//
// Context
//   Each field's configuration implies a small rule set: required, length
//   bounds, and one pattern.  RulesFor derives that set without side effects,
//   and RuleSet.Check applies it to one submitted value.  The wizard calls
//   ValidateStep before moving forward and ValidateAll before submitting.
//
// Workflow
//   •  RulesFor compiles (and caches) the pattern.  A custom expression that
//      does not compile is kept as a per-field error, never a panic.
//   •  Check runs required, minLength, maxLength, then pattern, and returns
//      the first message that applies.  Empty values skip everything but the
//      required rule.
//   •  ValidateStep returns response-key → message for one step.
//
// Notes
//   Built-in patterns take precedence over a custom pattern when a stored
//   document carries both.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure so the page can render a
// field-level message.  Name is the response key.
type ErrorField struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ValidationError wraps []ErrorField and satisfies the error interface.
// Callers tell user input errors apart from system failures with errors.As
// or IsValidationError.
type ValidationError struct{ Fields []ErrorField }

func (ve *ValidationError) Error() string { return "form validation failed" }

// Map returns the failures keyed by field name.
func (ve *ValidationError) Map() map[string]string {
	m := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		m[f.Name] = f.Message
	}
	return m
}

// -----------------------------------------------------------------------------
// Messages and built-in patterns
// -----------------------------------------------------------------------------

const (
	MsgRequired      = "This field is required."
	MsgInvalidFormat = "Invalid format"
	MsgInvalidEmail  = "Invalid email address"
	MsgInvalidPhone  = "Invalid phone number"
	MsgBrokenPattern = "Invalid pattern configuration"
	msgMinLengthFmt  = "Minimum %d characters"
	msgMaxLengthFmt  = "Maximum %d characters"
	emailExpr        = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	phoneExpr        = `^\+?[0-9]{10,15}$`
)

var (
	emailRe = regexp.MustCompile(emailExpr)
	phoneRe = regexp.MustCompile(phoneExpr)
)

// patternCache holds compiled custom expressions (or their compile errors).
var patternCache sync.Map // string → compiled

type compiled struct {
	re  *regexp.Regexp
	err error
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	if c, ok := patternCache.Load(expr); ok {
		cc := c.(compiled)
		return cc.re, cc.err
	}
	re, err := regexp.Compile(expr)
	patternCache.Store(expr, compiled{re: re, err: err})
	return re, err
}

// -----------------------------------------------------------------------------
// Rule sets
// -----------------------------------------------------------------------------

// RuleSet is the derived validation contract for one field.
type RuleSet struct {
	Type      FieldType
	Required  bool
	MinLength *int
	MaxLength *int

	pattern    *regexp.Regexp
	patternMsg string
	patternErr error
}

// RulesFor derives the rule set for a field of type t configured by cfg.
func RulesFor(t FieldType, cfg FieldConfig) RuleSet {
	rs := RuleSet{Type: t, Required: cfg.Required}
	if !t.HasLength() {
		return rs
	}

	rs.MinLength = cfg.MinLength
	rs.MaxLength = cfg.MaxLength

	switch {
	case cfg.PatternType == PatternEmail:
		rs.pattern, rs.patternMsg = emailRe, MsgInvalidEmail
	case cfg.PatternType == PatternPhone:
		rs.pattern, rs.patternMsg = phoneRe, MsgInvalidPhone
	case cfg.Pattern != "":
		re, err := compilePattern(cfg.Pattern)
		if err != nil {
			rs.patternErr = fmt.Errorf("pattern %q: %w", cfg.Pattern, err)
		}
		rs.pattern, rs.patternMsg = re, MsgInvalidFormat
	}
	return rs
}

// HasPattern reports whether a pattern rule (valid or broken) is present.
func (rs RuleSet) HasPattern() bool { return rs.pattern != nil || rs.patternErr != nil }

// PatternMessage is the message shown when the pattern does not match.
func (rs RuleSet) PatternMessage() string { return rs.patternMsg }

// Err exposes a custom pattern that failed to compile.
func (rs RuleSet) Err() error { return rs.patternErr }

// Check validates one value and returns "" or the first violation message.
func (rs RuleSet) Check(value any) string {
	if rs.Required && !present(rs.Type, value) {
		return MsgRequired
	}

	s, isString := value.(string)
	if !isString || s == "" || !rs.Type.HasLength() {
		return ""
	}

	n := utf8.RuneCountInString(s)
	if rs.MinLength != nil && n < *rs.MinLength {
		return fmt.Sprintf(msgMinLengthFmt, *rs.MinLength)
	}
	if rs.MaxLength != nil && n > *rs.MaxLength {
		return fmt.Sprintf(msgMaxLengthFmt, *rs.MaxLength)
	}

	if rs.patternErr != nil {
		return MsgBrokenPattern
	}
	if rs.pattern != nil && !rs.pattern.MatchString(s) {
		return rs.patternMsg
	}
	return ""
}

// present implements the "required" notion per type.  Toggles count only
// when switched on; everything else must be non-blank.
func present(t FieldType, value any) bool {
	if t == TypeCheckbox || t == TypeSwitch {
		return truthy(value)
	}
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				return true
			}
		}
		return false
	case bool:
		return v
	default:
		return strings.TrimSpace(fmt.Sprint(v)) != ""
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "false", "0", "off":
			return false
		}
		return true
	case []string:
		return len(v) > 0 && truthy(v[0])
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Form-level helpers
// -----------------------------------------------------------------------------

// ValidateStep checks every field of step against values and returns the
// failures keyed by response key.  An empty map means the step passes.
// Unknown field types carry no rules.
func ValidateStep(f Form, step int, values map[string]any) map[string]string {
	errs := make(map[string]string)
	if step < 0 || step >= len(f.Steps) {
		return errs
	}
	for fi, fld := range f.Steps[step].Fields {
		if !fld.Type.Valid() {
			continue
		}
		key := ResponseKey(step, fi)
		if msg := RulesFor(fld.Type, fld.Config).Check(values[key]); msg != "" {
			errs[key] = msg
		}
	}
	return errs
}

// ValidateAll runs ValidateStep over every step and merges the results.
func ValidateAll(f Form, values map[string]any) map[string]string {
	errs := make(map[string]string)
	for si := range f.Steps {
		for k, msg := range ValidateStep(f, si, values) {
			errs[k] = msg
		}
	}
	return errs
}

// asValidationError converts a key → message map to a *ValidationError with
// fields in form order, or nil when errs is empty.
func asValidationError(f Form, errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}
	ve := &ValidationError{}
	for si, s := range f.Steps {
		for fi := range s.Fields {
			key := ResponseKey(si, fi)
			if msg, ok := errs[key]; ok {
				ve.Fields = append(ve.Fields, ErrorField{Name: key, Message: msg})
			}
		}
	}
	return ve
}
