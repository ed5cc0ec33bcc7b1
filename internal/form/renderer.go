// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Render turns the wizard's current step into plain, accessible HTML.  The
//   switch in writeField covers every registered field type; a tag outside
//   the set renders nothing.  Validation hints (required, minlength,
//   maxlength, pattern) are attached as HTML5 attributes so the browser can
//   pre-check, but the server re-checks on every post.
//
// Workflow
//   •  Render writes a wrapper sized for the requested device, the progress
//      line, the step's fields, hidden meta inputs, and the navigation
//      buttons that match the wizard's position.
//   •  A wizard in the Submitted state renders the thank-you notice instead.
//   •  RenderNotice renders the fixed informational states (not found,
//      closed, already submitted).
//
// Style
//   Output HTML is deliberately plain so themes can style via class hooks.
//   Each input gets id="fld-{key}" and sits in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
)

// Device selects the render width.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceTablet  Device = "tablet"
	DeviceMobile  Device = "mobile"
)

// ParseDevice maps a user string to a Device, defaulting to desktop.
func ParseDevice(s string) Device {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceTablet:
		return DeviceTablet
	case DeviceMobile:
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// Width is the CSS max-width of the rendered form.
func (d Device) Width() string {
	switch d {
	case DeviceTablet:
		return "700px"
	case DeviceMobile:
		return "375px"
	default:
		return "100%"
	}
}

// Navigation actions posted by the rendered buttons.
const (
	ActionNext   = "next"
	ActionBack   = "back"
	ActionSubmit = "submit"
)

// Fixed notices.
const (
	NoticeThanks          = "Thank you for your response!"
	NoticeNotFoundTitle   = "Form not found."
	NoticeClosedTitle     = "Form Closed"
	NoticeClosedBody      = "This form is no longer accepting responses."
	NoticeSubmittedTitle  = "Thank You!"
	NoticeSubmittedBody   = "You have already responded to this form."
	NoticePreviewAccepted = "Form submitted (preview only, nothing was saved)."
)

// RenderOptions bundles parameters influencing HTML output.
type RenderOptions struct {
	// Action is the form's POST target.  Empty posts to the current URL.
	Action string
	// Device selects the wrapper width.
	Device Device
	// CSRFToken is embedded as a hidden input when non-empty.
	CSRFToken string
	// AskEmail adds the optional responder email input on the first step.
	AskEmail bool
	// ThanksMessage replaces NoticeThanks in the Submitted state.
	ThanksMessage string
}

// Render returns the markup for the wizard's current position.
func Render(w *Wizard, opts RenderOptions) (template.HTML, error) {
	if w.State == StateSubmitted {
		msg := opts.ThanksMessage
		if msg == "" {
			msg = NoticeThanks
		}
		return RenderNotice(w.Form.Title, msg, opts.Device), nil
	}
	if w.Step < 0 || w.Step >= w.StepCount() {
		return "", fmt.Errorf("render: step %d outside form %q", w.Step, w.Form.ID)
	}

	var buf bytes.Buffer
	openWrapper(&buf, opts.Device)

	buf.WriteString(`<h2 class="form-title">` + html.EscapeString(w.Form.Title) + `</h2>` + "\n")
	fmt.Fprintf(&buf, `<p class="form-progress">Step %d of %d</p>`+"\n", w.Step+1, w.StepCount())

	action := ""
	if opts.Action != "" {
		action = ` action="` + html.EscapeString(opts.Action) + `"`
	}
	buf.WriteString(`<form method="post" enctype="multipart/form-data"` + action + `>` + "\n")

	var fields []Field
	if len(w.Form.Steps) > 0 {
		step := w.Form.Steps[w.Step]
		buf.WriteString(`<h3 class="step-name">` + html.EscapeString(step.Name) + `</h3>` + "\n")
		fields = step.Fields
	}

	if opts.AskEmail && w.Step == 0 {
		email, _ := w.Values[ResponderEmailKey].(string)
		buf.WriteString(`<div class="form-field">` + "\n")
		buf.WriteString(`<label for="fld-` + ResponderEmailKey + `">Your email (optional)</label>` + "\n")
		buf.WriteString(`<input id="fld-` + ResponderEmailKey + `" name="` + ResponderEmailKey + `" type="email" value="` + html.EscapeString(email) + `">` + "\n")
		buf.WriteString(`</div>` + "\n")
	}

	for fi := range fields {
		key := ResponseKey(w.Step, fi)
		writeField(&buf, key, &fields[fi], w.Values[key], w.Errors[key])
	}

	buf.WriteString(`<input type="hidden" name="current_step" value="` + strconv.Itoa(w.Step) + `">` + "\n")
	if opts.CSRFToken != "" {
		buf.WriteString(`<input type="hidden" name="csrf_token" value="` + html.EscapeString(opts.CSRFToken) + `">` + "\n")
	}

	buf.WriteString(`<div class="form-nav">` + "\n")
	if w.Step > 0 {
		buf.WriteString(`<button type="submit" name="action" value="` + ActionBack + `" formnovalidate>Back</button>` + "\n")
	}
	if w.IsLast() {
		buf.WriteString(`<button type="submit" name="action" value="` + ActionSubmit + `">Submit</button>` + "\n")
	} else {
		buf.WriteString(`<button type="submit" name="action" value="` + ActionNext + `">Next</button>` + "\n")
	}
	buf.WriteString(`</div>` + "\n")

	buf.WriteString(`</form>` + "\n")
	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// RenderNotice renders a fixed informational state with no inputs.
func RenderNotice(title, message string, d Device) template.HTML {
	var buf bytes.Buffer
	openWrapper(&buf, d)
	if title != "" {
		buf.WriteString(`<h2 class="form-title">` + html.EscapeString(title) + `</h2>` + "\n")
	}
	buf.WriteString(`<p class="form-notice">` + html.EscapeString(message) + `</p>` + "\n")
	buf.WriteString(`</div>`)
	return template.HTML(buf.String())
}

func openWrapper(buf *bytes.Buffer, d Device) {
	if d == "" {
		d = DeviceDesktop
	}
	buf.WriteString(`<div class="formstep-form device-` + string(d) + `" style="max-width:` + d.Width() + `;margin:0 auto">` + "\n")
}

// -----------------------------------------------------------------------------
// Field markup
// -----------------------------------------------------------------------------

// writeField emits HTML for one field.  Unknown types write nothing.
func writeField(buf *bytes.Buffer, key string, f *Field, val any, errMsg string) {
	if !f.Type.Valid() {
		return
	}
	c := &f.Config
	id := "fld-" + key
	idAttr := `id="` + id + `"`
	nameAttr := `name="` + key + `"`
	label := html.EscapeString(c.Label)
	if c.Required {
		label += ` <span class="required">*</span>`
	}

	if f.Type == TypeSection {
		buf.WriteString(`<div class="form-section">` + "\n")
		buf.WriteString(`<h4>` + html.EscapeString(c.Label) + `</h4>` + "\n")
		writeDescription(buf, c)
		buf.WriteString(`</div>` + "\n")
		return
	}

	buf.WriteString(`<div class="form-field field-` + string(f.Type) + `">` + "\n")
	buf.WriteString(`<label for="` + id + `">` + label + `</label>` + "\n")

	switch f.Type {
	case TypeText:
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="text"`)
		writeTextAttrs(buf, f)
		writeValueAttr(buf, val)
		buf.WriteString(`>` + "\n")

	case TypeTextarea, TypeRichText:
		class := ""
		if f.Type == TypeRichText {
			class = ` class="richtext"`
		}
		buf.WriteString(`<textarea ` + idAttr + ` ` + nameAttr + class)
		writeTextAttrs(buf, f)
		buf.WriteString(`>` + html.EscapeString(scalar(val)) + `</textarea>` + "\n")

	case TypeDropdown:
		buf.WriteString(`<select ` + idAttr + ` ` + nameAttr + requiredAttr(c) + `>` + "\n")
		buf.WriteString(`<option value="">Select...</option>` + "\n")
		cur := scalar(val)
		for _, opt := range c.Options {
			sel := ""
			if cur == opt {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt) + `"` + sel + `>` + html.EscapeString(opt) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	case TypeCheckbox, TypeSwitch:
		role := ""
		if f.Type == TypeSwitch {
			role = ` role="switch"`
		}
		checked := ""
		if truthy(val) {
			checked = ` checked`
		}
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="checkbox" value="true"` + role + checked + requiredAttr(c) + `>` + "\n")

	case TypeDate, TypeTime, TypeColor:
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="` + string(f.Type) + `"` + requiredAttr(c))
		writeValueAttr(buf, val)
		buf.WriteString(`>` + "\n")

	case TypeRadio:
		writeChoices(buf, key, c.Options, scalar(val), c.Required)

	case TypeRating:
		writeChoices(buf, key, []string{"1", "2", "3", "4", "5"}, scalar(val), c.Required)

	case TypeSlider:
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="range"`)
		if c.Min != nil {
			buf.WriteString(` min="` + formatNum(*c.Min) + `"`)
		}
		if c.Max != nil {
			buf.WriteString(` max="` + formatNum(*c.Max) + `"`)
		}
		if c.Step != nil {
			buf.WriteString(` step="` + formatNum(*c.Step) + `"`)
		}
		writeValueAttr(buf, val)
		buf.WriteString(`>` + "\n")

	case TypeFile:
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="file"`)
		if c.Accept != "" {
			buf.WriteString(` accept="` + html.EscapeString(c.Accept) + `"`)
		}
		buf.WriteString(requiredAttr(c) + `>` + "\n")
		if s := scalar(val); strings.HasPrefix(s, "data:") {
			buf.WriteString(`<input type="hidden" ` + nameAttr + ` value="` + html.EscapeString(s) + `">` + "\n")
			buf.WriteString(`<span class="file-attached">File attached</span>` + "\n")
		}

	case TypeSignature:
		// signature.js draws on the canvas and copies a PNG data URI into
		// the hidden input.  Without scripts an image upload stands in.
		buf.WriteString(`<canvas class="signature-pad" data-target="` + id + `" width="400" height="150"></canvas>` + "\n")
		buf.WriteString(`<button type="button" class="signature-clear" data-target="` + id + `">Clear</button>` + "\n")
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="hidden" value="` + html.EscapeString(scalar(val)) + `">` + "\n")
		buf.WriteString(`<noscript><input ` + nameAttr + ` type="file" accept="image/png,image/jpeg"></noscript>` + "\n")

	case TypeRepeater:
		items := list(val)
		items = append(items, "")
		for i, item := range items {
			buf.WriteString(`<input id="` + id + `-` + strconv.Itoa(i) + `" ` + nameAttr + ` type="text" value="` + html.EscapeString(item) + `">` + "\n")
		}

	case TypeMatrix:
		chosen := make(map[string]bool)
		for _, s := range list(val) {
			chosen[s] = true
		}
		buf.WriteString(`<table class="matrix">` + "\n<tr><th></th>")
		for _, col := range c.Columns {
			buf.WriteString(`<th>` + html.EscapeString(col) + `</th>`)
		}
		buf.WriteString("</tr>\n")
		for _, row := range c.Rows {
			buf.WriteString(`<tr><th>` + html.EscapeString(row) + `</th>`)
			for _, col := range c.Columns {
				cell := row + ": " + col
				checked := ""
				if chosen[cell] {
					checked = ` checked`
				}
				buf.WriteString(`<td><input ` + nameAttr + ` type="checkbox" value="` + html.EscapeString(cell) + `"` + checked + `></td>`)
			}
			buf.WriteString("</tr>\n")
		}
		buf.WriteString(`</table>` + "\n")
	}

	writeDescription(buf, c)
	buf.WriteString(`<span class="error" aria-live="polite">` + html.EscapeString(errMsg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
}

// writeTextAttrs adds placeholder, required, length, and pattern hints.
func writeTextAttrs(buf *bytes.Buffer, f *Field) {
	c := &f.Config
	if c.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(c.Placeholder) + `"`)
	}
	buf.WriteString(requiredAttr(c))
	if c.MinLength != nil {
		buf.WriteString(` minlength="` + strconv.Itoa(*c.MinLength) + `"`)
	}
	if c.MaxLength != nil {
		buf.WriteString(` maxlength="` + strconv.Itoa(*c.MaxLength) + `"`)
	}
	if f.Type == TypeText {
		switch {
		case c.PatternType == PatternEmail:
			buf.WriteString(` pattern="` + html.EscapeString(strings.Trim(emailExpr, "^$")) + `"`)
		case c.PatternType == PatternPhone:
			buf.WriteString(` pattern="` + html.EscapeString(strings.Trim(phoneExpr, "^$")) + `"`)
		}
	}
}

func writeChoices(buf *bytes.Buffer, key string, opts []string, cur string, required bool) {
	for i, opt := range opts {
		optID := fmt.Sprintf("fld-%s-%d", key, i)
		checked := ""
		if cur == opt {
			checked = ` checked`
		}
		req := ""
		if required {
			req = ` required`
		}
		buf.WriteString(`<div class="radio-option">` + "\n")
		buf.WriteString(`<input id="` + optID + `" name="` + key + `" type="radio" value="` + html.EscapeString(opt) + `"` + checked + req + `>` + "\n")
		buf.WriteString(`<label for="` + optID + `">` + html.EscapeString(opt) + `</label>` + "\n")
		buf.WriteString(`</div>` + "\n")
	}
}

func writeDescription(buf *bytes.Buffer, c *FieldConfig) {
	if c.Description != "" {
		buf.WriteString(`<small class="description">` + html.EscapeString(c.Description) + `</small>` + "\n")
	}
}

func writeValueAttr(buf *bytes.Buffer, val any) {
	if s := scalar(val); s != "" {
		buf.WriteString(` value="` + html.EscapeString(s) + `"`)
	}
}

func requiredAttr(c *FieldConfig) string {
	if c.Required {
		return ` required`
	}
	return ""
}

// scalar flattens a collected value for single-valued inputs.
func scalar(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// list flattens a collected value for multi-valued inputs, dropping blanks.
func list(val any) []string {
	var raw []string
	switch v := val.(type) {
	case string:
		raw = []string{v}
	case []string:
		raw = v
	case []any:
		for _, e := range v {
			raw = append(raw, fmt.Sprint(e))
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatNum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
