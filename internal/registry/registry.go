// Package registry keeps the live drawing sessions of the server. Sessions
// are bounded by an LRU; an evicted or unknown session whose state was
// persisted is rebuilt on the next request.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/aoi-drawing/internal/catalogue"
	"github.com/mohammed-shakir/aoi-drawing/internal/params"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist"
	"github.com/mohammed-shakir/aoi-drawing/internal/session"
)

// Entry is one client's session with its form context. Callers hold the
// lock for the whole handling of an event, taken through Acquire. An entry
// evicted while locked stays parked and is readmitted on its next lookup,
// so an id never has two live entries.
type Entry struct {
	mu      sync.Mutex
	reg     *Registry
	retired atomic.Bool

	ID       string
	Session  *session.Session
	Recorder *session.Recorder
	Store    *persist.Adapter

	// Params is the parameter set of the selected service.
	Params params.Set
	// Values holds the form values of the non-geometry parameters.
	Values map[string]string
	// View is the visible restriction subset handed to the session; nil
	// until the catalogue has loaded.
	View *catalogue.View
	// ViewGen is the catalogue generation View was built from.
	ViewGen uint64
	// YearFrom and YearTo bound the visible restriction polygons; zero
	// shows them all.
	YearFrom, YearTo int
}

func (e *Entry) Lock() { e.mu.Lock() }

func (e *Entry) Unlock() {
	e.mu.Unlock()
	if e.retired.Load() && e.reg != nil {
		e.reg.release(e)
	}
}

// Retired reports whether the entry has left the registry. A retired
// entry must not take further events.
func (e *Entry) Retired() bool { return e.retired.Load() }

// Factory builds the entry for id. rebuild is true when the id was not
// live and its persisted state should be restored.
type Factory func(ctx context.Context, id string, rebuild bool) *Entry

// Probe reports whether anything is persisted for id.
type Probe func(ctx context.Context, id string) bool

type Option func(*Registry)

func WithProbe(p Probe) Option { return func(r *Registry) { r.probe = p } }

func WithLogger(l *slog.Logger) Option { return func(r *Registry) { r.log = l } }

type Registry struct {
	factory Factory
	probe   Probe
	log     *slog.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, *Entry]

	parkMu sync.Mutex
	parked map[string]*Entry
}

func New(capacity int, factory Factory, opts ...Option) (*Registry, error) {
	if factory == nil {
		return nil, errors.New("registry: factory is required")
	}
	if capacity <= 0 {
		capacity = 1024
	}
	r := &Registry{factory: factory, log: slog.Default(), parked: map[string]*Entry{}}
	for _, o := range opts {
		o(r)
	}
	c, err := lru.NewWithEvict[string, *Entry](capacity, func(id string, e *Entry) {
		r.log.Debug("session evicted", "session_id", id)
		e.retired.Store(true)
		r.parkMu.Lock()
		r.parked[id] = e
		r.parkMu.Unlock()
		r.release(e)
	})
	if err != nil {
		return nil, err
	}
	r.cache = c
	return r, nil
}

// Create registers a fresh session under a new random id.
func (r *Registry) Create(ctx context.Context) *Entry {
	id := uuid.NewString()
	e := r.factory(ctx, id, false)
	e.reg = r
	r.mu.Lock()
	r.cache.Add(id, e)
	r.mu.Unlock()
	return e
}

// Get returns the live entry for id. A parked entry is readmitted;
// otherwise the entry is rebuilt from persisted state when the probe finds
// some.
func (r *Registry) Get(ctx context.Context, id string) (*Entry, bool) {
	if e, ok := r.cache.Get(id); ok {
		return e, true
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.cache.Get(id); ok {
		return e, true
	}
	if e := r.unpark(id); e != nil {
		r.cache.Add(id, e)
		r.log.DebugContext(ctx, "session readmitted", "session_id", id)
		return e, true
	}
	if r.probe == nil || !r.probe(ctx, id) {
		return nil, false
	}
	e := r.factory(ctx, id, true)
	e.reg = r
	r.cache.Add(id, e)
	r.log.InfoContext(ctx, "session rebuilt", "session_id", id)
	return e, true
}

// Acquire returns the live entry for id with its lock held. An entry
// retired between lookup and locking is dropped and looked up again.
func (r *Registry) Acquire(ctx context.Context, id string) (*Entry, bool) {
	for {
		e, ok := r.Get(ctx, id)
		if !ok {
			return nil, false
		}
		e.Lock()
		if !e.Retired() {
			return e, true
		}
		e.Unlock()
	}
}

func (r *Registry) unpark(id string) *Entry {
	r.parkMu.Lock()
	defer r.parkMu.Unlock()
	e, ok := r.parked[id]
	if !ok {
		return nil
	}
	delete(r.parked, id)
	e.retired.Store(false)
	return e
}

// release drops a parked entry once no one holds it.
func (r *Registry) release(e *Entry) {
	r.parkMu.Lock()
	defer r.parkMu.Unlock()
	if r.parked[e.ID] != e || !e.mu.TryLock() {
		return
	}
	delete(r.parked, e.ID)
	e.mu.Unlock()
}

// Remove forgets the live entry. Persisted state is kept.
func (r *Registry) Remove(id string) {
	r.cache.Remove(id)
}

func (r *Registry) Len() int { return r.cache.Len() }
