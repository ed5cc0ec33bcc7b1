package httpapi

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formstep/internal/export"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/store"
)

func (a *api) listForms(w http.ResponseWriter, r *http.Request) {
	list, err := a.Repo.ListForms(r.Context(), currentUser(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

// ownedForm loads {id} and checks the caller may manage it: forms without
// a creator are open to everyone.
func (a *api) ownedForm(w http.ResponseWriter, r *http.Request) (form.Form, bool) {
	f, err := a.Repo.LoadForm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return form.Form{}, false
	}
	if f.Creator != "" && f.Creator != currentUser(r) {
		writeError(w, r, http.StatusForbidden, msgNotOwner)
		return form.Form{}, false
	}
	return f, true
}

func (a *api) deleteForm(w http.ResponseWriter, r *http.Request) {
	f, ok := a.ownedForm(w, r)
	if !ok {
		return
	}
	if err := a.Repo.DeleteForm(r.Context(), f.ID); err != nil {
		a.fail(w, r, err)
		return
	}
	_ = a.visitor(r).ClearDraft(r.Context(), f.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) setClosed(w http.ResponseWriter, r *http.Request) {
	f, ok := a.ownedForm(w, r)
	if !ok {
		return
	}
	var body struct {
		Closed bool `json:"closed"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := a.Repo.SetClosed(r.Context(), f.ID, body.Closed); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, body)
}

type responsesBody struct {
	Labels    map[string]string `json:"labels"`
	Responses []form.Response   `json:"responses"`
}

func (a *api) responses(w http.ResponseWriter, r *http.Request) {
	f, ok := a.ownedForm(w, r)
	if !ok {
		return
	}
	list, err := a.Repo.Responses(r.Context(), f.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, responsesBody{Labels: f.LabelMap(), Responses: list})
}

// exportResponses serves the responses of {id} as a download in format.
func (a *api) exportResponses(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { a.writeExport(w, r, format) }
}

func (a *api) writeExport(w http.ResponseWriter, r *http.Request, format export.Format) {
	f, err := a.Repo.LoadForm(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		a.fail(w, r, export.ErrNotPublished)
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if f.Creator != "" && f.Creator != currentUser(r) {
		writeError(w, r, http.StatusForbidden, msgNotOwner)
		return
	}

	list, err := a.Repo.Responses(r.Context(), f.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tbl, err := export.Rows(f, list)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, tbl); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(f.ID, format)+`"`)
	_, _ = w.Write(buf.Bytes())
}

// editForm loads a stored form into the caller's builder session.  The
// next publish overwrites it under the same id.
func (a *api) editForm(w http.ResponseWriter, r *http.Request) {
	f, ok := a.ownedForm(w, r)
	if !ok {
		return
	}
	a.Builders.Open(a.owner(r), f)
	a.builderView(w, r)
}
