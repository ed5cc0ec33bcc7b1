package builder

import (
	"sync"

	"github.com/yanizio/formstep/internal/cache"
	"github.com/yanizio/formstep/internal/form"
	"github.com/yanizio/formstep/internal/metrics"
)

// Manager keeps one Session per owner.  The least recently used sessions
// are dropped once capacity is reached.
type Manager struct {
	mu       sync.Mutex
	sessions *cache.LRU[string, *entry]
	ids      func() form.IDSource
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithFieldIDs makes every new session number its fields with a source of
// kind (form.IDsCounter or form.IDsUUID).
func WithFieldIDs(kind string) Option {
	return func(m *Manager) {
		m.ids = func() form.IDSource { return form.NewIDSource(kind) }
	}
}

// NewManager holds up to capacity sessions (1024 when capacity < 1).
// Unless an option says otherwise each session gets its own clock-seeded
// Counter.
func NewManager(capacity int, opts ...Option) *Manager {
	if capacity < 1 {
		capacity = 1024
	}
	m := &Manager{
		sessions: cache.New[string, *entry](capacity),
		ids:      func() form.IDSource { return form.NewCounter(nil) },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) get(owner string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions.Get(owner); ok {
		return e
	}
	e := &entry{s: NewSession(m.ids())}
	m.sessions.Add(owner, e)
	metrics.ActiveBuilderSessions.Set(float64(m.sessions.Len()))
	return e
}

// Do runs fn with exclusive access to owner's session, creating a blank
// one on first use.
func (m *Manager) Do(owner string, fn func(*Session) error) error {
	e := m.get(owner)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// Open replaces owner's session with one editing f.
func (m *Manager) Open(owner string, f form.Form) {
	m.replace(owner, OpenSession(f, m.ids()))
}

// Reset replaces owner's session with a blank one.
func (m *Manager) Reset(owner string) {
	m.replace(owner, NewSession(m.ids()))
}

func (m *Manager) replace(owner string, s *Session) {
	e := m.get(owner)
	e.mu.Lock()
	e.s = s
	e.mu.Unlock()
}

// Forget drops owner's session, e.g. when the owner signs out.
func (m *Manager) Forget(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Remove(owner)
	metrics.ActiveBuilderSessions.Set(float64(m.sessions.Len()))
}

// Len reports the number of live sessions.
func (m *Manager) Len() int { return m.sessions.Len() }
