// internal/httpapi/api.go
//
// HTTP surface.
//
// Context
// -------
// One chi router serves three audiences:
//
//   - the builder UI, through the JSON API under /api (sessions are keyed
//     by the visitor cookie),
//   - respondents, through the server-rendered pages under /form/{id},
//   - operators, through /metrics.
//
// Middleware order: request id → real ip → recoverer → access log →
// security headers → https redirect → visitor cookie → signed-in user.
//
// Notes
// -----
//   - Handlers never touch the KV directly; everything goes through
//     store.Repository or a store.Visitor.
//   - JSON responses use go-chi/render.  Errors are {"error": "..."}.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/formstep/internal/auth"
	"github.com/yanizio/formstep/internal/builder"
	"github.com/yanizio/formstep/internal/export"
	"github.com/yanizio/formstep/internal/middleware"
	"github.com/yanizio/formstep/internal/publish"
	"github.com/yanizio/formstep/internal/session"
	"github.com/yanizio/formstep/internal/store"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Repo      *store.Repository
	Builders  *builder.Manager
	Publisher *publish.Publisher
	Log       *zap.SugaredLogger

	// PublicURL overrides the origin used in share links.  Empty means
	// derive it from the request.
	PublicURL  string
	ForceHTTPS bool
}

type api struct {
	Deps
}

// New builds the root handler.
func New(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.S()
	}
	a := &api{Deps: d}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestLog(d.Log))
	r.Use(middleware.Security)
	r.Use(middleware.ForceHTTPS(d.ForceHTTPS))

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/assets/*", assets())

	r.Group(func(r chi.Router) {
		r.Use(session.Middleware, a.loadUser)

		r.Get("/", a.index)
		r.Get("/form/{id}", a.publicForm)
		r.Post("/form/{id}", a.publicSubmit)
		r.Get("/builder/preview", a.previewStart)
		r.Post("/builder/preview", a.previewStep)

		r.Route("/api", func(r chi.Router) {
			r.Post("/login", a.login)
			r.Post("/register", a.register)
			r.Post("/logout", a.logout)
			r.Get("/me", a.me)

			r.Get("/palette", a.palette)
			r.Get("/theme", a.getTheme)
			r.Put("/theme", a.putTheme)

			r.Route("/builder", a.builderRoutes)

			r.Get("/forms", a.listForms)
			r.Route("/forms/{id}", func(r chi.Router) {
				r.Delete("/", a.deleteForm)
				r.Put("/closed", a.setClosed)
				r.Get("/responses", a.responses)
				r.Get("/export.xlsx", a.exportResponses(export.FormatXLSX))
				r.Get("/export.csv", a.exportResponses(export.FormatCSV))
				r.Post("/edit", a.editForm)
			})
		})
	})
	return r
}

// loadUser puts the visitor's signed-in email on the context.
func (a *api) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := a.visitor(r).User(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		ctx := r.Context()
		if email != "" {
			ctx = auth.WithUser(ctx, email)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// visitor returns the store slice for the request's visitor cookie.
func (a *api) visitor(r *http.Request) *store.Visitor {
	id, _ := session.Visitor(r.Context())
	return a.Repo.Visitor(id)
}

func (a *api) owner(r *http.Request) string {
	id, _ := session.Visitor(r.Context())
	return id
}

func currentUser(r *http.Request) string {
	email, _ := auth.User(r.Context())
	return email
}

// origin is scheme://host for share links.
func (a *api) origin(r *http.Request) string {
	if a.PublicURL != "" {
		return strings.TrimRight(a.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
