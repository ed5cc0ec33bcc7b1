// internal/httpapi/builder.go
//
// Builder JSON API.
//
// Context
//   Every route operates on the caller's builder.Session, looked up by the
//   visitor id and run under the session's lock.  Mutating routes answer
//   with the full builder.View so the UI can redraw from one payload.
//   Field indices in paths refer to the active step.
//
//------------------------------------------------------------------------------

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formstep/internal/builder"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/publish"
)

func (a *api) builderRoutes(r chi.Router) {
	r.Get("/", a.builderView)
	r.Post("/reset", a.builderReset)
	r.Put("/title", a.builderTitle)
	r.Put("/view", a.builderViewState)

	r.Post("/fields", a.fieldDrop)
	r.Post("/fields/reorder", a.fieldReorder)
	r.Put("/fields/{idx}", a.fieldEdit)
	r.Delete("/fields/{idx}", a.fieldRemove)
	r.Post("/select", a.fieldSelect)

	r.Post("/steps", a.stepAdd)
	r.Put("/steps/active", a.stepActivate)
	r.Put("/steps/{idx}", a.stepRename)
	r.Delete("/steps/{idx}", a.stepRemove)

	r.Post("/publish", a.publish)
	r.Get("/link", a.link)
}

// withSession runs fn under the session lock and answers with the view.
func (a *api) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(*builder.Session) error) {
	var view builder.View
	err := a.Builders.Do(a.owner(r), func(s *builder.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		view = s.View()
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, status, view)
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "index must be a number")
		return 0, false
	}
	return n, true
}

func (a *api) builderView(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, http.StatusOK, func(*builder.Session) error { return nil })
}

func (a *api) builderReset(w http.ResponseWriter, r *http.Request) {
	a.Builders.Reset(a.owner(r))
	a.Publisher.Forget(a.owner(r))
	a.builderView(w, r)
}

func (a *api) builderTitle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error {
		s.Doc.Title = body.Title
		return nil
	})
}

type viewState struct {
	Device       *form.Device `json:"device"`
	Zoom         *float64     `json:"zoom"`
	ZoomStep     string       `json:"zoomStep"` // "in" or "out"
	ShowAdvanced *bool        `json:"showAdvanced"`
}

func (a *api) builderViewState(w http.ResponseWriter, r *http.Request) {
	var body viewState
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error {
		if body.Device != nil {
			s.SetDevice(*body.Device)
		}
		if body.Zoom != nil {
			s.SetZoom(*body.Zoom)
		}
		switch body.ZoomStep {
		case "in":
			s.ZoomIn()
		case "out":
			s.ZoomOut()
		}
		if body.ShowAdvanced != nil {
			s.ShowAdvanced(*body.ShowAdvanced)
		}
		return nil
	})
}

// -----------------------------------------------------------------------------
// Fields
// -----------------------------------------------------------------------------

func (a *api) fieldDrop(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type form.FieldType `json:"type"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusCreated, func(s *builder.Session) error {
		p, err := s.DragStart(body.Type)
		if err != nil {
			return err
		}
		_, err = s.Drop(p)
		return err
	})
}

// fieldEditBody is a partial edit.  Config members present in the body
// overwrite the stored ones; absent members are kept; null clears a bound.
type fieldEditBody struct {
	Config      json.RawMessage   `json:"config"`
	OptionsCSV  *string           `json:"optionsCsv"`
	PatternType *form.PatternType `json:"patternType"`
	Pattern     *string           `json:"pattern"`
}

func (a *api) fieldEdit(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var body fieldEditBody
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error {
		return s.Apply(idx, builder.FieldEdit{
			Config:      body.Config,
			OptionsCSV:  body.OptionsCSV,
			Pattern:     body.Pattern,
			PatternType: body.PatternType,
		})
	})
}

func (a *api) fieldRemove(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error { return s.Remove(idx) })
}

func (a *api) fieldReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error { return s.Reorder(body.From, body.To) })
}

func (a *api) fieldSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index *int `json:"index"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error {
		if body.Index == nil {
			s.Doc.ClearSelection()
			return nil
		}
		return s.Select(*body.Index)
	})
}

// -----------------------------------------------------------------------------
// Steps
// -----------------------------------------------------------------------------

func (a *api) stepAdd(w http.ResponseWriter, r *http.Request) {
	a.withSession(w, r, http.StatusCreated, func(s *builder.Session) error {
		s.Doc.AddStep()
		return nil
	})
}

// stepRemove answers 400 for an index outside the document and 409 when
// idx names the only step.
func (a *api) stepRemove(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error {
		if idx < 0 || idx >= len(s.Doc.Steps) {
			return fmt.Errorf("%w: %d", form.ErrStepOutOfRange, idx)
		}
		if !s.Doc.RemoveStep(idx) {
			return errLastStep
		}
		return nil
	})
}

func (a *api) stepActivate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error { return s.Doc.SetActiveStep(body.Index) })
}

func (a *api) stepRename(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.withSession(w, r, http.StatusOK, func(s *builder.Session) error { return s.Doc.RenameStep(idx, body.Name) })
}

// -----------------------------------------------------------------------------
// Publishing
// -----------------------------------------------------------------------------

type publishBody struct {
	publish.Result
	Link publish.Link `json:"link"`
}

func (a *api) publish(w http.ResponseWriter, r *http.Request) {
	var res publish.Result
	err := a.Builders.Do(a.owner(r), func(s *builder.Session) error {
		var err error
		res, err = a.Publisher.Publish(r.Context(), publish.Request{
			Author:  currentUser(r),
			Visitor: a.visitor(r),
			FormID:  s.FormID,
			Doc:     s.Doc,
			Origin:  a.origin(r),
		})
		if err != nil {
			return err
		}
		s.FormID = res.ID
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	link, _ := a.Publisher.Link(a.owner(r))
	writeJSON(w, r, http.StatusOK, publishBody{Result: res, Link: link})
}

func (a *api) link(w http.ResponseWriter, r *http.Request) {
	link, ok := a.Publisher.Link(a.owner(r))
	if !ok {
		writeError(w, r, http.StatusNotFound, "Nothing published yet.")
		return
	}
	writeJSON(w, r, http.StatusOK, link)
}
