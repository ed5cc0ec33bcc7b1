// internal/store/repository.go
//
// Typed access to the key-value store.
//
// Context
// -------
// The Repository owns the storage schema.  Form-scoped keys:
//
//	form_<id>            → {"title", "steps", "creator"}
//	responses_<id>       → [Response, …] (append-only)
//	form_closed_<id>     → "1" while the form rejects submissions
//
// Visitor-scoped keys (see Visitor):
//
//	form_submitted_<id>  → "1" once this visitor submitted
//	form_data_<id>       → in-progress values
//	lastFormId, user, theme
//
// Every read tolerates missing or malformed JSON by treating it as absent.
// Decoded forms are cached in an LRU; concurrent misses for one id share a
// single load through singleflight.
//
// Notes
// -----
//   - Response appends are read-modify-write under a process-wide mutex.  Two
//     processes sharing one SQL table can still interleave appends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/formstep/internal/cache"
	"github.com/yanizio/formstep/internal/form"
)

// Key prefixes and auxiliary keys.
const (
	PrefixForm      = "form_"
	PrefixResponses = "responses_"
	PrefixClosed    = "form_closed_"
	PrefixSubmitted = "form_submitted_"
	PrefixDraft     = "form_data_"

	KeyLastFormID = "lastFormId"
	KeyUser       = "user"
	KeyTheme      = "theme"

	flagOn = "1"
)

// ErrNotFound is returned when a form id has no (readable) document.
var ErrNotFound = errors.New("form not found")

// Summary is one row of the "my forms" list.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Creator   string `json:"creator"`
	Steps     int    `json:"steps"`
	Fields    int    `json:"fields"`
	Responses int    `json:"responses"`
	Closed    bool   `json:"closed"`
}

// Repository is safe for concurrent use.
type Repository struct {
	kv    KV
	forms *cache.LRU[string, form.Form]
	sfg   singleflight.Group

	appendMu sync.Mutex
}

// NewRepository wraps kv.  cacheSize < 1 defaults to 256 forms.
func NewRepository(kv KV, cacheSize int) *Repository {
	if cacheSize < 1 {
		cacheSize = 256
	}
	return &Repository{kv: kv, forms: cache.New[string, form.Form](cacheSize)}
}

// KV exposes the underlying store.
func (r *Repository) KV() KV { return r.kv }

// -----------------------------------------------------------------------------
// Forms
// -----------------------------------------------------------------------------

// SaveForm writes f under form_<f.ID>.
func (r *Repository) SaveForm(ctx context.Context, f form.Form) error {
	if f.ID == "" {
		return errors.New("save form: empty id")
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode form %s: %w", f.ID, err)
	}
	r.forms.Remove(f.ID)
	if err := r.kv.Set(ctx, PrefixForm+f.ID, string(raw)); err != nil {
		return err
	}
	r.forms.Add(f.ID, f.Clone())
	return nil
}

// LoadForm returns the form stored under id, or ErrNotFound when the key
// is missing or does not decode.
func (r *Repository) LoadForm(ctx context.Context, id string) (form.Form, error) {
	if id == "" {
		return form.Form{}, ErrNotFound
	}
	if f, ok := r.forms.Get(id); ok {
		return f.Clone(), nil
	}

	v, err, _ := r.sfg.Do(id, func() (any, error) {
		if f, ok := r.forms.Get(id); ok {
			return f, nil
		}
		f, err := r.readForm(ctx, id)
		if err != nil {
			return form.Form{}, err
		}
		r.forms.Add(id, f)
		return f, nil
	})
	if err != nil {
		return form.Form{}, err
	}
	return v.(form.Form).Clone(), nil
}

func (r *Repository) readForm(ctx context.Context, id string) (form.Form, error) {
	raw, ok, err := r.kv.Get(ctx, PrefixForm+id)
	if err != nil {
		return form.Form{}, err
	}
	if !ok {
		return form.Form{}, ErrNotFound
	}
	f, ok := decodeForm(raw)
	if !ok {
		zap.S().Warnw("malformed form document", "form", id)
		return form.Form{}, ErrNotFound
	}
	f.ID = id
	return f, nil
}

// decodeForm accepts only JSON objects that carry a steps array.
func decodeForm(raw string) (form.Form, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return form.Form{}, false
	}
	if _, ok := probe["steps"]; !ok {
		return form.Form{}, false
	}
	var f form.Form
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return form.Form{}, false
	}
	return f, true
}

// DeleteForm removes the form together with its responses and flags.
func (r *Repository) DeleteForm(ctx context.Context, id string) error {
	r.forms.Remove(id)
	for _, k := range []string{PrefixForm + id, PrefixResponses + id, PrefixSubmitted + id, PrefixClosed + id} {
		if err := r.kv.Remove(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// ListForms returns the forms visible to creator: those it owns plus those
// with no recorded creator.  Malformed entries are skipped.  Results are
// ordered by id.
func (r *Repository) ListForms(ctx context.Context, creator string) ([]Summary, error) {
	keys, err := r.kv.KeysWithPrefix(ctx, PrefixForm)
	if err != nil {
		return nil, err
	}

	out := []Summary{}
	for _, k := range keys {
		if isFlagKey(k) {
			continue
		}
		id := strings.TrimPrefix(k, PrefixForm)
		f, err := r.LoadForm(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if f.Creator != "" && f.Creator != creator {
			continue
		}

		responses, err := r.Responses(ctx, id)
		if err != nil {
			return nil, err
		}
		closed, err := r.IsClosed(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{
			ID:        id,
			Title:     f.Title,
			Creator:   f.Creator,
			Steps:     len(f.Steps),
			Fields:    f.FieldCount(),
			Responses: len(responses),
			Closed:    closed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// isFlagKey reports keys that share the form_ prefix but hold flags or
// drafts rather than documents.
func isFlagKey(k string) bool {
	return strings.HasPrefix(k, PrefixClosed) ||
		strings.HasPrefix(k, PrefixSubmitted) ||
		strings.HasPrefix(k, PrefixDraft)
}

// -----------------------------------------------------------------------------
// Responses and the closed flag
// -----------------------------------------------------------------------------

// Responses returns the stored responses for id.  Missing or malformed data
// yields an empty list.
func (r *Repository) Responses(ctx context.Context, id string) ([]form.Response, error) {
	raw, ok, err := r.kv.Get(ctx, PrefixResponses+id)
	if err != nil {
		return nil, err
	}
	out := []form.Response{}
	if !ok {
		return out, nil
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		zap.S().Warnw("malformed response list", "form", id, "error", err)
		return out, nil
	}
	for _, m := range decoded {
		if m != nil {
			out = append(out, form.Response(form.NormalizeValues(m)))
		}
	}
	return out, nil
}

// AppendResponse adds resp to the list for id and returns the new length.
func (r *Repository) AppendResponse(ctx context.Context, id string, resp form.Response) (int, error) {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	list, err := r.Responses(ctx, id)
	if err != nil {
		return 0, err
	}
	list = append(list, resp)

	raw, err := json.Marshal(list)
	if err != nil {
		return 0, fmt.Errorf("encode responses %s: %w", id, err)
	}
	if err := r.kv.Set(ctx, PrefixResponses+id, string(raw)); err != nil {
		return 0, err
	}
	return len(list), nil
}

// SetClosed toggles the closed flag for id.
func (r *Repository) SetClosed(ctx context.Context, id string, closed bool) error {
	if closed {
		return r.kv.Set(ctx, PrefixClosed+id, flagOn)
	}
	return r.kv.Remove(ctx, PrefixClosed+id)
}

// IsClosed reports whether id rejects new submissions.
func (r *Repository) IsClosed(ctx context.Context, id string) (bool, error) {
	_, ok, err := r.kv.Get(ctx, PrefixClosed+id)
	return ok, err
}
