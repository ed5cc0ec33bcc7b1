package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yanizio/formstep/internal/form"
)

// Theme is the stored UI preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrBadTheme rejects anything but light or dark.
var ErrBadTheme = errors.New("theme must be light or dark")

// Visitor is the per-browser slice of the store: the flags and drafts a
// single respondent or author owns.  Keys keep their plain names inside a
// visitor_<id>/ namespace.
type Visitor struct {
	ID string
	kv KV
}

// Visitor returns the scoped view for visitor id.
func (r *Repository) Visitor(id string) *Visitor {
	return &Visitor{ID: id, kv: NewPrefixed(r.kv, "visitor_"+id+"/")}
}

// HasSubmitted reports whether this visitor already answered formID.
func (v *Visitor) HasSubmitted(ctx context.Context, formID string) (bool, error) {
	_, ok, err := v.kv.Get(ctx, PrefixSubmitted+formID)
	return ok, err
}

// MarkSubmitted records that this visitor answered formID.
func (v *Visitor) MarkSubmitted(ctx context.Context, formID string) error {
	return v.kv.Set(ctx, PrefixSubmitted+formID, flagOn)
}

// LoadDraft returns the saved in-progress values for formID, or nil when
// there are none or they do not decode.
func (v *Visitor) LoadDraft(ctx context.Context, formID string) (map[string]any, error) {
	raw, ok, err := v.kv.Get(ctx, PrefixDraft+formID)
	if err != nil || !ok {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, nil
	}
	return form.NormalizeValues(m), nil
}

// SaveDraft overwrites the in-progress values for formID.
func (v *Visitor) SaveDraft(ctx context.Context, formID string, values map[string]any) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", formID, err)
	}
	return v.kv.Set(ctx, PrefixDraft+formID, string(raw))
}

// ClearDraft drops the in-progress values for formID.
func (v *Visitor) ClearDraft(ctx context.Context, formID string) error {
	return v.kv.Remove(ctx, PrefixDraft+formID)
}

// LastFormID is the id of the most recent form this visitor published.
func (v *Visitor) LastFormID(ctx context.Context) (string, error) {
	id, _, err := v.kv.Get(ctx, KeyLastFormID)
	return id, err
}

// SetLastFormID records the most recent published id.
func (v *Visitor) SetLastFormID(ctx context.Context, id string) error {
	return v.kv.Set(ctx, KeyLastFormID, id)
}

type storedUser struct {
	Email string `json:"email"`
}

// User returns the signed-in email, or "" when signed out.
func (v *Visitor) User(ctx context.Context) (string, error) {
	raw, ok, err := v.kv.Get(ctx, KeyUser)
	if err != nil || !ok {
		return "", err
	}
	var u storedUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return "", nil
	}
	return u.Email, nil
}

// SetUser signs email in.
func (v *Visitor) SetUser(ctx context.Context, email string) error {
	raw, _ := json.Marshal(storedUser{Email: email})
	return v.kv.Set(ctx, KeyUser, string(raw))
}

// ClearUser signs the visitor out.
func (v *Visitor) ClearUser(ctx context.Context) error {
	return v.kv.Remove(ctx, KeyUser)
}

// Theme returns the stored preference, light when unset or unreadable.
func (v *Visitor) Theme(ctx context.Context) (Theme, error) {
	raw, ok, err := v.kv.Get(ctx, KeyTheme)
	if err != nil {
		return ThemeLight, err
	}
	if ok && Theme(raw) == ThemeDark {
		return ThemeDark, nil
	}
	return ThemeLight, nil
}

// SetTheme stores t.
func (v *Visitor) SetTheme(ctx context.Context, t Theme) error {
	if t != ThemeLight && t != ThemeDark {
		return ErrBadTheme
	}
	return v.kv.Set(ctx, KeyTheme, string(t))
}
