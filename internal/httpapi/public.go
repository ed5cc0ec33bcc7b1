// internal/httpapi/public.go
//
// Respondent pages and the builder preview.
//
// Workflow (POST /form/{id})
// --------------------------
//  1. Load the form.  Missing → "not found" page.  Closed or already
//     submitted from this visitor → fixed notice, nothing stored.
//  2. Check the CSRF token bound to the form id.
//  3. Rebuild the wizard from the visitor's draft plus the posted step.
//  4. back / next / submit.  Every navigation rewrites the draft.  A
//     successful submit appends the response, sets the submitted flag,
//     and clears the draft.
//
// Notes
// -----
//   - The wizard is rebuilt on every request.  The hidden current_step is
//     the only navigation state carried by the browser.
//   - The preview keeps its wizard in the builder session and never writes
//     to the store.
package httpapi

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/formstep/internal/builder"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/logger"
	"github.com/yanizio/formstep/internal/metrics"
	"github.com/yanizio/formstep/internal/store"
	"github.com/yanizio/formstep/internal/ua"
)

const (
	msgExpired       = "This page expired. Please reload the form and try again."
	msgPreviewBanner = "Preview: submissions are not saved."
	previewTokenID   = "preview:"
)

// device picks ?device= when given, else the agent's class.
func device(r *http.Request, agent ua.Info) form.Device {
	if d := r.URL.Query().Get("device"); d != "" {
		return form.ParseDevice(d)
	}
	return agent.Device
}

func reject(reason string) { metrics.SubmissionsRejectedTotal.WithLabelValues(reason).Inc() }

// gate loads the form and renders the terminal states.  ok is false when
// the response has been written.
func (a *api) gate(w http.ResponseWriter, r *http.Request, d form.Device) (form.Form, *store.Visitor, bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	f, err := a.Repo.LoadForm(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		reject("not_found")
		a.notice(w, r, http.StatusNotFound, "", form.NoticeNotFoundTitle, d)
		return f, nil, false
	}
	if err != nil {
		a.failPage(w, r, err)
		return f, nil, false
	}

	closed, err := a.Repo.IsClosed(ctx, id)
	if err != nil {
		a.failPage(w, r, err)
		return f, nil, false
	}
	if closed {
		reject("closed")
		a.notice(w, r, http.StatusConflict, form.NoticeClosedTitle, form.NoticeClosedBody, d)
		return f, nil, false
	}

	v := a.visitor(r)
	done, err := v.HasSubmitted(ctx, id)
	if err != nil {
		a.failPage(w, r, err)
		return f, nil, false
	}
	if done {
		reject("submitted")
		a.notice(w, r, http.StatusConflict, form.NoticeSubmittedTitle, form.NoticeSubmittedBody, d)
		return f, nil, false
	}
	return f, v, true
}

func (a *api) publicForm(w http.ResponseWriter, r *http.Request) {
	d := device(r, ua.Parse(r.UserAgent()))
	f, v, ok := a.gate(w, r, d)
	if !ok {
		return
	}

	wz := form.NewWizard(f, nil)
	draft, err := v.LoadDraft(r.Context(), f.ID)
	if err != nil {
		a.failPage(w, r, err)
		return
	}
	wz.Restore(0, draft)
	a.renderWizard(w, r, http.StatusOK, wz, d, f.ID, true, "")
}

func (a *api) publicSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agent := ua.Parse(r.UserAgent())
	d := device(r, agent)
	f, v, ok := a.gate(w, r, d)
	if !ok {
		return
	}

	step := form.PostedStep(r)
	values, err := form.ParseValues(r, f, step)
	if err != nil {
		if errors.Is(err, form.ErrUploadTooLarge) {
			reject("upload")
			a.notice(w, r, http.StatusRequestEntityTooLarge, f.Title, "The uploaded file is too large.", d)
			return
		}
		reject("bad_body")
		a.notice(w, r, http.StatusBadRequest, f.Title, msgExpired, d)
		return
	}
	if !form.VerifyToken(f.ID, r.PostFormValue("csrf_token")) {
		reject("csrf")
		a.notice(w, r, http.StatusForbidden, f.Title, msgExpired, d)
		return
	}

	draft, err := v.LoadDraft(ctx, f.ID)
	if err != nil {
		a.failPage(w, r, err)
		return
	}
	wz := form.NewWizard(f, a.persist(v, agent))
	wz.Restore(step, draft)

	status := http.StatusOK
	switch form.PostedAction(r) {
	case form.ActionBack:
		wz.Retreat(values)
	case form.ActionSubmit:
		_, err := wz.Submit(ctx, values)
		switch {
		case err == nil:
		case form.IsValidationError(err):
			reject("validation")
			status = http.StatusUnprocessableEntity
		case errors.Is(err, form.ErrNotLastStep):
			wz.Merge(values)
			status = http.StatusBadRequest
		default:
			a.failPage(w, r, err)
			return
		}
	default:
		if !wz.Advance(values) {
			status = http.StatusUnprocessableEntity
		}
	}

	// Crawlers that follow the form get no draft written for them.
	if wz.State != form.StateSubmitted && !agent.IsBot {
		if err := v.SaveDraft(ctx, f.ID, wz.Values); err != nil {
			logger.FromContext(ctx).Warnw("draft save failed", "form", f.ID, "error", err)
		}
	}
	a.renderWizard(w, r, status, wz, d, f.ID, true, "")
}

// persist is the public consumer: store the response, flag the visitor,
// drop the draft.
func (a *api) persist(v *store.Visitor, agent ua.Info) form.Consumer {
	return form.ConsumerFunc(func(ctx context.Context, f form.Form, resp form.Response) error {
		n, err := a.Repo.AppendResponse(ctx, f.ID, resp)
		if err != nil {
			return err
		}
		if err := v.MarkSubmitted(ctx, f.ID); err != nil {
			return err
		}
		if err := v.ClearDraft(ctx, f.ID); err != nil {
			logger.FromContext(ctx).Warnw("draft clear failed", "form", f.ID, "error", err)
		}
		metrics.ResponsesSubmittedTotal.Inc()
		logger.FromContext(ctx).Infow("response stored", "form", f.ID, "count", n,
			"browser", agent.Browser, "os", agent.OS, "device", agent.Device)
		return nil
	})
}

// -----------------------------------------------------------------------------
// Preview
// -----------------------------------------------------------------------------

func (a *api) previewStart(w http.ResponseWriter, r *http.Request) {
	var (
		wz *form.Wizard
		d  form.Device
	)
	_ = a.Builders.Do(a.owner(r), func(s *builder.Session) error {
		wz = s.Preview()
		d = s.Device()
		return nil
	})
	a.renderWizard(w, r, http.StatusOK, wz, d, previewTokenID+a.owner(r), false, msgPreviewBanner)
}

func (a *api) previewStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID := previewTokenID + a.owner(r)
	status := http.StatusOK

	var (
		wz *form.Wizard
		d  form.Device
	)
	err := a.Builders.Do(a.owner(r), func(s *builder.Session) error {
		wz = s.PreviewWizard()
		d = s.Device()

		values, err := form.ParseValues(r, wz.Form, form.PostedStep(r))
		if err != nil {
			return err
		}
		if !form.VerifyToken(tokenID, r.PostFormValue("csrf_token")) {
			status = http.StatusForbidden
			return nil
		}
		wz.Step = form.PostedStep(r)
		if wz.Step >= wz.StepCount() {
			wz.Step = wz.StepCount() - 1
		}

		switch form.PostedAction(r) {
		case form.ActionBack:
			wz.Retreat(values)
		case form.ActionSubmit:
			if _, err := wz.Submit(ctx, values); err != nil {
				if !form.IsValidationError(err) && !errors.Is(err, form.ErrNotLastStep) && !errors.Is(err, form.ErrAlreadySubmitted) {
					return err
				}
				status = http.StatusUnprocessableEntity
			}
		default:
			if !wz.Advance(values) {
				status = http.StatusUnprocessableEntity
			}
		}
		return nil
	})
	if err != nil {
		a.failPage(w, r, err)
		return
	}
	if status == http.StatusForbidden {
		a.notice(w, r, status, "", msgExpired, d)
		return
	}
	a.renderWizard(w, r, status, wz, d, tokenID, false, msgPreviewBanner)
}

// -----------------------------------------------------------------------------
// Rendering helpers
// -----------------------------------------------------------------------------

func (a *api) renderWizard(w http.ResponseWriter, r *http.Request, status int, wz *form.Wizard, d form.Device, tokenID string, public bool, banner string) {
	tok, err := form.GenerateToken(tokenID)
	if err != nil {
		a.failPage(w, r, err)
		return
	}
	opts := form.RenderOptions{Device: d, CSRFToken: tok, AskEmail: public}
	if !public {
		opts.ThanksMessage = form.NoticePreviewAccepted
	}
	body, err := form.Render(wz, opts)
	if err != nil {
		a.failPage(w, r, err)
		return
	}
	a.writePage(w, r, status, page{Title: wz.Form.Title, Banner: banner, Body: body, NoIndex: !public})
}

func (a *api) notice(w http.ResponseWriter, r *http.Request, status int, title, msg string, d form.Device) {
	a.writePage(w, r, status, page{Title: title, Body: form.RenderNotice(title, msg, d), NoIndex: true})
}

func (a *api) failPage(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Errorw("page failed", "path", r.URL.Path, "error", err)
	a.writePage(w, r, http.StatusInternalServerError, page{Body: template.HTML(`<p class="form-notice">` + msgInternal + `</p>`)})
}
