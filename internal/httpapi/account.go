package httpapi

import (
	"errors"
	"net/http"

	"github.com/yanizio/formstep/internal/auth"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/store"
)

type userBody struct {
	Email string `json:"email"`
}

func (a *api) login(w http.ResponseWriter, r *http.Request) { a.signIn(w, r, auth.Login) }

func (a *api) register(w http.ResponseWriter, r *http.Request) { a.signIn(w, r, auth.Register) }

func (a *api) signIn(w http.ResponseWriter, r *http.Request, fn func(auth.Credentials) (string, error)) {
	var c auth.Credentials
	if !decode(w, r, &c) {
		return
	}
	email, err := fn(c)
	if errors.Is(err, auth.ErrMissingCredentials) {
		writeError(w, r, http.StatusBadRequest, auth.MsgMissing)
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.visitor(r).SetUser(r.Context(), email); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, userBody{Email: email})
}

// logout also discards the builder session and share link, so the next
// person on this browser does not inherit a form bound to the old account.
func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.visitor(r).ClearUser(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Builders.Forget(a.owner(r))
	a.Publisher.Forget(a.owner(r))
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) me(w http.ResponseWriter, r *http.Request) {
	email := currentUser(r)
	if email == "" {
		writeError(w, r, http.StatusUnauthorized, msgSignInNeeded)
		return
	}
	writeJSON(w, r, http.StatusOK, userBody{Email: email})
}

func (a *api) palette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, form.Palette(r.URL.Query().Get("advanced") == "1"))
}

type themeBody struct {
	Theme store.Theme `json:"theme"`
}

func (a *api) getTheme(w http.ResponseWriter, r *http.Request) {
	t, err := a.visitor(r).Theme(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, themeBody{Theme: t})
}

func (a *api) putTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if !decode(w, r, &body) {
		return
	}
	if err := a.visitor(r).SetTheme(r.Context(), body.Theme); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, body)
}
