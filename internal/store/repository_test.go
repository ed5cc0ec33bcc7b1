package store

import (
	"context"
	"errors"
	"testing"

	"github.com/yanizio/formstep/internal/form"
)

func sampleForm(id, creator string) form.Form {
	return form.Form{
		ID:      id,
		Title:   "T",
		Creator: creator,
		Steps: []form.Step{{
			Name: "Step 1",
			Fields: []form.Field{{
				ID:     1,
				Type:   form.TypeText,
				Config: form.FieldConfig{Label: "Name", Required: true},
			}},
		}},
	}
}

func TestFormRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	repo := NewRepository(kv, 4)

	if err := repo.SaveForm(ctx, sampleForm("abc", "a@x.io")); err != nil {
		t.Fatalf("SaveForm: %v", err)
	}

	// A fresh repository bypasses the cache and decodes from the KV.
	got, err := NewRepository(kv, 4).LoadForm(ctx, "abc")
	if err != nil {
		t.Fatalf("LoadForm: %v", err)
	}
	if got.ID != "abc" || got.Title != "T" || got.FieldCount() != 1 {
		t.Fatalf("unexpected form %+v", got)
	}
	cfg := got.Steps[0].Fields[0].Config
	if cfg.Label != "Name" || !cfg.Required {
		t.Fatalf("config lost: %+v", cfg)
	}

	raw, _, _ := kv.Get(ctx, "form_abc")
	if raw != `{"title":"T","steps":[{"stepName":"Step 1","fields":[{"id":1,"type":"text","config":{"label":"Name","required":true}}]}],"creator":"a@x.io"}` {
		t.Fatalf("stored shape changed: %s", raw)
	}
}

func TestMalformedDataReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Set(ctx, "form_bad", "{not json")
	_ = kv.Set(ctx, "form_num", "1")
	_ = kv.Set(ctx, "responses_bad", "oops")
	repo := NewRepository(kv, 4)

	for _, id := range []string{"bad", "num", "missing"} {
		if _, err := repo.LoadForm(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", id, err)
		}
	}
	resp, err := repo.Responses(ctx, "bad")
	if err != nil || len(resp) != 0 {
		t.Fatalf("responses = %v, %v", resp, err)
	}
}

func TestListFormsFiltersByCreator(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	repo := NewRepository(kv, 4)

	_ = repo.SaveForm(ctx, sampleForm("b1", "me@x.io"))
	_ = repo.SaveForm(ctx, sampleForm("a1", ""))
	_ = repo.SaveForm(ctx, sampleForm("c1", "other@x.io"))
	_ = repo.SetClosed(ctx, "b1", true)
	_ = kv.Set(ctx, "form_broken", "[")
	if _, err := repo.AppendResponse(ctx, "b1", form.Response{"step0_field0": "x"}); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListForms(ctx, "me@x.io")
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a1" || list[1].ID != "b1" {
		t.Fatalf("list = %+v", list)
	}
	if !list[1].Closed || list[1].Responses != 1 || list[1].Fields != 1 {
		t.Fatalf("summary = %+v", list[1])
	}
}

func TestAppendAndDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	repo := NewRepository(kv, 4)
	_ = repo.SaveForm(ctx, sampleForm("f1", ""))

	for i := 1; i <= 2; i++ {
		n, err := repo.AppendResponse(ctx, "f1", form.Response{"step0_field0": "v"})
		if err != nil || n != i {
			t.Fatalf("append %d: n=%d err=%v", i, n, err)
		}
	}
	_ = repo.SetClosed(ctx, "f1", true)
	_ = kv.Set(ctx, "form_submitted_f1", "1")

	if err := repo.DeleteForm(ctx, "f1"); err != nil {
		t.Fatal(err)
	}
	keys, _ := kv.KeysWithPrefix(ctx, "")
	if len(keys) != 0 {
		t.Fatalf("leftover keys: %v", keys)
	}
	if _, err := repo.LoadForm(ctx, "f1"); !errors.Is(err, ErrNotFound) {
		t.Fatal("deleted form still cached")
	}
}

func TestClosedToggle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryKV(), 4)

	_ = repo.SetClosed(ctx, "x", true)
	if c, _ := repo.IsClosed(ctx, "x"); !c {
		t.Fatal("should be closed")
	}
	_ = repo.SetClosed(ctx, "x", false)
	if c, _ := repo.IsClosed(ctx, "x"); c {
		t.Fatal("should be open")
	}
}

func TestVisitorScope(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	repo := NewRepository(kv, 4)
	alice, bob := repo.Visitor("alice"), repo.Visitor("bob")

	_ = alice.MarkSubmitted(ctx, "f1")
	if ok, _ := alice.HasSubmitted(ctx, "f1"); !ok {
		t.Fatal("alice flag missing")
	}
	if ok, _ := bob.HasSubmitted(ctx, "f1"); ok {
		t.Fatal("flag leaked across visitors")
	}

	_ = alice.SaveDraft(ctx, "f1", map[string]any{"step0_field0": "hi", "step0_field1": []string{"a"}})
	d, err := alice.LoadDraft(ctx, "f1")
	if err != nil || d["step0_field0"] != "hi" {
		t.Fatalf("draft = %v, %v", d, err)
	}
	if s, ok := d["step0_field1"].([]string); !ok || s[0] != "a" {
		t.Fatalf("draft arrays not normalized: %#v", d["step0_field1"])
	}
	_ = alice.ClearDraft(ctx, "f1")
	if d, _ := alice.LoadDraft(ctx, "f1"); d != nil {
		t.Fatalf("draft not cleared: %v", d)
	}

	if th, _ := alice.Theme(ctx); th != ThemeLight {
		t.Fatalf("default theme = %s", th)
	}
	if err := alice.SetTheme(ctx, "purple"); !errors.Is(err, ErrBadTheme) {
		t.Fatalf("want ErrBadTheme, got %v", err)
	}
	_ = alice.SetTheme(ctx, ThemeDark)
	if th, _ := alice.Theme(ctx); th != ThemeDark {
		t.Fatalf("theme = %s", th)
	}

	_ = alice.SetUser(ctx, "a@x.io")
	if u, _ := alice.User(ctx); u != "a@x.io" {
		t.Fatalf("user = %q", u)
	}
	_ = alice.ClearUser(ctx)
	if u, _ := alice.User(ctx); u != "" {
		t.Fatalf("user after clear = %q", u)
	}

	// Visitor keys never show up as forms.
	list, _ := repo.ListForms(ctx, "")
	if len(list) != 0 {
		t.Fatalf("visitor keys listed as forms: %+v", list)
	}
}
