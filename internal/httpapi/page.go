package httpapi

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yanizio/formstep/internal/head"
	"github.com/yanizio/formstep/internal/logger"
	"github.com/yanizio/formstep/internal/store"
)

//go:embed assets
var assetFS embed.FS

// assets serves the page scripts under /assets/.  They are separate files
// because the CSP forbids inline script.
func assets() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="utf-8">
{{.Head}}<script src="/assets/signature.js" defer></script>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;background:#fff;color:#1d1d1f}
body.theme-dark{background:#1d1d1f;color:#f5f5f7}
.form-field{margin:0 0 1rem}.form-field label{display:block;font-weight:600}
.error{color:#c62828;font-size:.9em}.banner{background:#fff3cd;color:#664d03;padding:.5rem 1rem;margin-bottom:1rem}
.form-nav{display:flex;gap:.5rem;justify-content:flex-end}
</style>
</head>
<body class="theme-{{.Theme}}">
{{if .Banner}}<div class="banner">{{.Banner}}</div>{{end}}
{{.Body}}
</body>
</html>
`))

type page struct {
	Title   string
	Theme   store.Theme
	Banner  string
	Body    template.HTML
	NoIndex bool

	Head template.HTML
}

// writePage wraps body in the site shell using the visitor's theme.
// Title and meta tags come from a head.Builder.
func (a *api) writePage(w http.ResponseWriter, r *http.Request, status int, p page) {
	if p.Theme == "" {
		t, err := a.visitor(r).Theme(r.Context())
		if err != nil {
			logger.FromContext(r.Context()).Warnw("theme unreadable", "error", err)
		}
		p.Theme = t
	}
	h := head.New()
	h.SetTitle(p.Title)
	h.Meta("color-scheme", string(p.Theme))
	if p.NoIndex {
		h.NoIndex()
	} else if p.Title != "" {
		h.Property("og:title", p.Title)
	}
	p.Head = h.Render()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, p); err != nil {
		logger.FromContext(r.Context()).Errorw("page render failed", "error", err)
	}
}

var indexTmpl = template.Must(template.New("index").Parse(`<h1>My forms</h1>
{{if .}}<ul>
{{range .}}<li><a href="/form/{{.ID}}">{{.Title}}</a> ({{.Responses}} responses{{if .Closed}}, closed{{end}})</li>
{{end}}</ul>{{else}}<p>No forms yet.</p>{{end}}
`))

func (a *api) index(w http.ResponseWriter, r *http.Request) {
	list, err := a.Repo.ListForms(r.Context(), currentUser(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var body strings.Builder
	if err := indexTmpl.Execute(&body, list); err != nil {
		a.fail(w, r, err)
		return
	}
	a.writePage(w, r, http.StatusOK, page{Body: template.HTML(body.String())})
}
