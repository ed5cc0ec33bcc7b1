// internal/head/builder.go
//
// The Builder collects the tags that go inside a page's <head>.  It is
// scoped to one render call: handlers push a title and meta tags, then the
// page shell emits Render() verbatim.
//
// Features
// --------
//   - SetTitle        – single <title> tag (last call wins).
//   - Meta, Property  – name= / property= meta tags, deduplicated by key
//     (last value wins, first position kept).
//   - NoIndex         – robots "noindex, nofollow" for pages that must not
//     be crawled (previews, notices).
//
// All values are escaped here; callers pass plain strings.
package head

import (
	"html/template"
	"strings"
)

// DefaultTitle is used when no title was set.
const DefaultTitle = "Formstep"

type tag struct {
	attr    string // "name" or "property"
	key     string
	content string
}

// Builder is not safe for concurrent use.
type Builder struct {
	title string
	tags  []tag
	index map[string]int
}

// New returns a builder seeded with the charset-independent defaults every
// page carries.
func New() *Builder {
	b := &Builder{index: make(map[string]int)}
	b.Meta("viewport", "width=device-width, initial-scale=1")
	return b
}

// SetTitle overrides the page <title>.  Blank titles are ignored.
func (b *Builder) SetTitle(t string) {
	if t = strings.TrimSpace(t); t != "" {
		b.title = t
	}
}

// Title returns the effective title text.
func (b *Builder) Title() string {
	if b.title == "" {
		return DefaultTitle
	}
	return b.title
}

// Meta sets <meta name=key content=value>.
func (b *Builder) Meta(key, value string) { b.set("name", key, value) }

// Property sets <meta property=key content=value> (Open Graph).
func (b *Builder) Property(key, value string) { b.set("property", key, value) }

// NoIndex asks crawlers to skip the page.
func (b *Builder) NoIndex() { b.Meta("robots", "noindex, nofollow") }

func (b *Builder) set(attr, key, value string) {
	k := attr + ":" + key
	if i, ok := b.index[k]; ok {
		b.tags[i].content = value
		return
	}
	b.index[k] = len(b.tags)
	b.tags = append(b.tags, tag{attr: attr, key: key, content: value})
}

// Render returns the <title> followed by every meta tag in insertion order.
func (b *Builder) Render() template.HTML {
	var sb strings.Builder
	sb.WriteString("<title>")
	sb.WriteString(template.HTMLEscapeString(b.Title()))
	sb.WriteString("</title>\n")
	for _, t := range b.tags {
		sb.WriteString(`<meta ` + t.attr + `="` + template.HTMLEscapeString(t.key) +
			`" content="` + template.HTMLEscapeString(t.content) + `">` + "\n")
	}
	return template.HTML(sb.String())
}
