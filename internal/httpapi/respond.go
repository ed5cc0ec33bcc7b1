package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/yanizio/formstep/internal/builder"
	"github.com/yanizio/formstep/internal/export"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/logger"
	"github.com/yanizio/formstep/internal/publish"
	"github.com/yanizio/formstep/internal/store"
)

// Messages returned by the JSON API.
const (
	msgBadBody      = "Malformed request body."
	msgLastStep     = "A form needs at least one step."
	msgNotOwner     = "This form belongs to someone else."
	msgInternal     = "Something went wrong."
	msgSignInNeeded = "Please sign in first."
)

var errLastStep = errors.New(msgLastStep)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// fail maps err onto a status code.  Unknown errors are logged and hidden.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pe *publish.PreconditionError
		ve *form.ValidationError
	)
	switch {
	case errors.As(err, &pe):
		writeError(w, r, http.StatusBadRequest, pe.Reason)
	case errors.As(err, &ve):
		writeJSON(w, r, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Fields: ve.Map()})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, form.NoticeNotFoundTitle)
	case errors.Is(err, export.ErrNotPublished):
		writeError(w, r, http.StatusNotFound, export.MsgNotPublished)
	case errors.Is(err, errLastStep):
		writeError(w, r, http.StatusConflict, msgLastStep)
	case errors.Is(err, export.ErrNoResponses):
		writeError(w, r, http.StatusNotFound, export.MsgNoResponses)
	case errors.Is(err, form.ErrStepOutOfRange),
		errors.Is(err, form.ErrFieldOutOfRange),
		errors.Is(err, form.ErrUnknownType),
		errors.Is(err, form.ErrBadConfig),
		errors.Is(err, builder.ErrBadPatternType),
		errors.Is(err, store.ErrBadTheme):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Errorw("request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

// decode reads a JSON body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, msgBadBody)
		return false
	}
	return true
}
