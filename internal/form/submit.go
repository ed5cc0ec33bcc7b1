// internal/form/submit.go
//
// Forms subsystem: request decoding helpers.
//
// Context
//   Handlers want one call that turns a POST body into the value map the
//   wizard works with.  ParseValues does that per field type: toggles become
//   booleans, multi-valued inputs become []string, and uploaded files become
//   data URIs so a Response stays a plain JSON document.
//
//------------------------------------------------------------------------------

package form

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// MaxUploadBytes caps one uploaded file.
const MaxUploadBytes = 5 << 20

// ErrUploadTooLarge is returned when a file exceeds MaxUploadBytes.
var ErrUploadTooLarge = errors.New("uploaded file too large")

// ParseValues decodes the posted fields of step from r.  Only keys that
// belong to step (plus the responder email) are returned.
func ParseValues(r *http.Request, f Form, step int) (map[string]any, error) {
	if err := parseBody(r); err != nil {
		return nil, err
	}

	out := make(map[string]any)
	if email, ok := r.PostForm[ResponderEmailKey]; ok && len(email) > 0 {
		out[ResponderEmailKey] = strings.TrimSpace(email[0])
	}
	if step < 0 || step >= len(f.Steps) {
		return out, nil
	}

	for fi, fld := range f.Steps[step].Fields {
		key := ResponseKey(step, fi)
		raw := r.PostForm[key]

		switch fld.Type {
		case TypeCheckbox, TypeSwitch:
			out[key] = len(raw) > 0 && truthy(raw[0])
		case TypeRepeater, TypeMatrix:
			out[key] = list(raw)
		case TypeFile, TypeSignature:
			uri, err := uploadedDataURI(r, key)
			if err != nil {
				return nil, err
			}
			switch {
			case uri != "":
				out[key] = uri
			case len(raw) > 0:
				out[key] = raw[0]
			default:
				out[key] = ""
			}
			if fld.Type == TypeSignature && !IsImageDataURI(scalar(out[key])) {
				out[key] = ""
			}
		case TypeSection:
		default:
			if !fld.Type.Valid() {
				continue
			}
			if len(raw) > 0 {
				out[key] = raw[0]
			} else {
				out[key] = ""
			}
		}
	}
	return out, nil
}

// IsImageDataURI reports whether s is a base64 data: URI holding a PNG or
// JPEG image, the only shapes a drawn or uploaded signature may take.
func IsImageDataURI(s string) bool {
	for _, p := range []string{"data:image/png;base64,", "data:image/jpeg;base64,"} {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// PostedStep reads the hidden current_step input.  Missing or malformed
// values read as zero.
func PostedStep(r *http.Request) int {
	n, err := strconv.Atoi(r.FormValue("current_step"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// PostedAction reads the navigation button value, defaulting to next.
func PostedAction(r *http.Request) string {
	switch a := r.FormValue("action"); a {
	case ActionBack, ActionSubmit:
		return a
	default:
		return ActionNext
	}
}

// NormalizeValues converts values decoded from JSON (where arrays arrive
// as []any) back to the shapes the wizard produces.
func NormalizeValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case []any:
			s := make([]string, 0, len(t))
			for _, e := range t {
				s = append(s, fmt.Sprint(e))
			}
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}

// IsValidationError reports whether err came from a failed step check.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func parseBody(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(MaxUploadBytes * 4); err != nil {
			return fmt.Errorf("parse multipart: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

func uploadedDataURI(r *http.Request, key string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	files := r.MultipartForm.File[key]
	if len(files) == 0 || files[0].Size == 0 {
		return "", nil
	}
	fh := files[0]
	if fh.Size > MaxUploadBytes {
		return "", fmt.Errorf("%w: %s", ErrUploadTooLarge, fh.Filename)
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if len(data) > MaxUploadBytes {
		return "", fmt.Errorf("%w: %s", ErrUploadTooLarge, fh.Filename)
	}

	ctype := fh.Header.Get("Content-Type")
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return "data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
