// internal/publish/publish.go
//
// Publishing: turn a builder document into a stored form and a share link.
//
// Context
// -------
// Publish checks the document, picks an id, writes form_<id> and the
// visitor's lastFormId, and returns the long link at once.  When a
// Shortener is configured the short link is fetched in the background.
//
// Workflow
// --------
//  1. Precondition check: title, at least one field.  Nothing is written
//     when either fails.
//  2. Id: the builder's current form id, else the visitor's lastFormId,
//     else eight random base36 characters.  A candidate is only reused
//     while its form still exists and belongs to the same author (or to
//     nobody).
//  3. SaveForm + SetLastFormID.
//  4. Each publish bumps a process-wide generation and cancels the
//     previous shortening goroutine for the same owner.  Only a result
//     whose generation is still current may update the owner's Link.
//
// Notes
// -----
// • Shortening failures keep the long link and set Link.Notice.
// • Close cancels everything in flight and waits for the goroutines.
package publish

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/metrics"
	"github.com/yanizio/formstep/internal/store"
)

// Messages shown to the author.
const (
	MsgTitleRequired = "Form title is required."
	MsgNoFields      = "Add at least one field before publishing."
	MsgShortenFailed = "Could not shorten the link. Showing original link."
	idLength         = 8
	idAlphabet       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// ErrPrecondition is wrapped by every *PreconditionError.
var ErrPrecondition = errors.New("publish precondition failed")

// PreconditionError carries the message for a refused publish.
type PreconditionError struct{ Reason string }

func (e *PreconditionError) Error() string { return e.Reason }
func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// Shortener is satisfied by *shorten.Client.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// Request is one publish action.
type Request struct {
	Author  string         // creator email, may be empty
	Visitor *store.Visitor // owner of lastFormId and of the Link slot
	FormID  string         // id already bound to the builder session, if any
	Doc     *form.Document
	Origin  string // scheme://host, no trailing slash required
}

// Result is returned synchronously by Publish.
type Result struct {
	ID         string `json:"id"`
	ShareLink  string `json:"shareLink"`
	Generation uint64 `json:"generation"`
}

// Link is the owner's current share link.  Pending is true while a short
// link is being fetched.
type Link struct {
	FormID     string `json:"formId"`
	URL        string `json:"url"`
	LongURL    string `json:"longUrl"`
	ShortURL   string `json:"shortUrl,omitempty"`
	Pending    bool   `json:"pending"`
	Notice     string `json:"notice,omitempty"`
	Generation uint64 `json:"generation"`
}

type linkState struct {
	link   Link
	cancel context.CancelFunc
}

// Publisher is safe for concurrent use.
type Publisher struct {
	repo  *store.Repository
	short Shortener

	mu    sync.Mutex
	links map[string]*linkState
	gen   atomic.Uint64
	wg    sync.WaitGroup

	newID func() (string, error)
}

// New returns a Publisher.  short may be nil to disable shortening.
func New(repo *store.Repository, short Shortener) *Publisher {
	return &Publisher{
		repo:  repo,
		short: short,
		links: make(map[string]*linkState),
		newID: randomID,
	}
}

// Publish stores req.Doc and returns its id and long link.
func (p *Publisher) Publish(ctx context.Context, req Request) (Result, error) {
	if req.Doc == nil || strings.TrimSpace(req.Doc.Title) == "" {
		metrics.PublishRejectedTotal.Inc()
		return Result{}, &PreconditionError{Reason: MsgTitleRequired}
	}
	if req.Doc.FieldCount() == 0 {
		metrics.PublishRejectedTotal.Inc()
		return Result{}, &PreconditionError{Reason: MsgNoFields}
	}
	if req.Visitor == nil {
		return Result{}, errors.New("publish: no visitor")
	}

	id, err := p.resolveID(ctx, req)
	if err != nil {
		return Result{}, err
	}

	f := req.Doc.Snapshot()
	f.ID = id
	f.Creator = req.Author
	if err := p.repo.SaveForm(ctx, f); err != nil {
		return Result{}, err
	}
	if err := req.Visitor.SetLastFormID(ctx, id); err != nil {
		return Result{}, err
	}
	metrics.FormsPublishedTotal.Inc()

	long := ShareLink(req.Origin, id)
	gen := p.gen.Add(1)
	p.startShorten(req.Visitor.ID, Link{FormID: id, URL: long, LongURL: long, Generation: gen})

	zap.S().Infow("form published", "form", id, "fields", f.FieldCount(), "generation", gen)
	return Result{ID: id, ShareLink: long, Generation: gen}, nil
}

func (p *Publisher) resolveID(ctx context.Context, req Request) (string, error) {
	for _, candidate := range []func() (string, error){
		func() (string, error) { return req.FormID, nil },
		func() (string, error) { return req.Visitor.LastFormID(ctx) },
	} {
		id, err := candidate()
		if err != nil {
			return "", err
		}
		if id == "" {
			continue
		}
		ok, err := p.reusable(ctx, id, req.Author)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	return p.newID()
}

// reusable reports whether id may be overwritten by author: the form must
// still exist and must not belong to someone else.  A deleted id is never
// revived, so flags left under it cannot leak onto a new form.
func (p *Publisher) reusable(ctx context.Context, id, author string) (bool, error) {
	f, err := p.repo.LoadForm(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Creator == "" || f.Creator == author, nil
}

func (p *Publisher) startShorten(owner string, link Link) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old := p.links[owner]; old != nil && old.cancel != nil {
		old.cancel()
	}
	st := &linkState{link: link}
	p.links[owner] = st
	if p.short == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.link.Pending = true

	p.wg.Add(1)
	go p.shorten(ctx, owner, link.Generation, link.LongURL)
}

func (p *Publisher) shorten(ctx context.Context, owner string, gen uint64, long string) {
	defer p.wg.Done()

	short, err := p.short.Shorten(ctx, long)

	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.links[owner]
	if st == nil || st.link.Generation != gen {
		metrics.ShortenTotal.WithLabelValues("stale").Inc()
		return
	}
	st.cancel()
	st.cancel = nil
	st.link.Pending = false

	if err != nil {
		metrics.ShortenTotal.WithLabelValues("error").Inc()
		zap.S().Warnw("shorten failed", "form", st.link.FormID, "error", err)
		st.link.Notice = MsgShortenFailed
		return
	}
	metrics.ShortenTotal.WithLabelValues("ok").Inc()
	st.link.ShortURL = short
	st.link.URL = short
}

// Link returns the owner's current share link.
func (p *Publisher) Link(owner string) (Link, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.links[owner]
	if !ok {
		return Link{}, false
	}
	return st.link, true
}

// Forget drops the owner's link, cancelling any shortening in flight.
func (p *Publisher) Forget(owner string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st := p.links[owner]; st != nil && st.cancel != nil {
		st.cancel()
	}
	delete(p.links, owner)
}

// Wait blocks until every shortening goroutine has returned.
func (p *Publisher) Wait() { p.wg.Wait() }

// Close cancels all in-flight shortening and waits for it to finish.
func (p *Publisher) Close() {
	p.mu.Lock()
	for _, st := range p.links {
		if st.cancel != nil {
			st.cancel()
		}
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// ShareLink builds <origin>/form/<id>.
func ShareLink(origin, id string) string {
	return strings.TrimRight(origin, "/") + "/form/" + id
}

func randomID() (string, error) {
	base := big.NewInt(int64(len(idAlphabet)))
	var b strings.Builder
	b.Grow(idLength)
	for i := 0; i < idLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String(), nil
}
