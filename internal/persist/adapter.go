// Package persist stores drawing state and form values for one client
// scope, restoring them on the next visit.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

// KV is the storage backend. Get reports ok=false for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// MultiGetter is implemented by backends that read several keys in one
// round trip.
type MultiGetter interface {
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
}

type Option func(*Adapter)

func WithTTL(d time.Duration) Option { return func(a *Adapter) { a.ttl = d } }

// WithOpTimeout bounds each storage call; 0 uses the caller's context as is.
func WithOpTimeout(d time.Duration) Option { return func(a *Adapter) { a.opTimeout = d } }

func WithLogger(l *slog.Logger) Option { return func(a *Adapter) { a.log = l } }

type Adapter struct {
	kv        KV
	scope     string
	ttl       time.Duration
	opTimeout time.Duration
	log       *slog.Logger
}

func New(kv KV, scope string, opts ...Option) *Adapter {
	a := &Adapter{kv: kv, scope: scope, log: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ForScope returns an adapter sharing the backend and options.
func (a *Adapter) ForScope(scope string) *Adapter {
	cp := *a
	cp.scope = scope
	return &cp
}

func (a *Adapter) Scope() string { return a.scope }

// Save writes the drawing snapshot.
func (a *Adapter) Save(ctx context.Context, snap model.Snapshot) error {
	if snap.Polygons == nil {
		snap.Polygons = [][][]float64{}
	}
	return a.SaveValue(ctx, KeyDrawingState, snap)
}

// Restore returns nil when nothing is stored or the stored value cannot
// be decoded. It never fails.
func (a *Adapter) Restore(ctx context.Context) *model.Snapshot {
	var snap model.Snapshot
	if !a.LoadValue(ctx, KeyDrawingState, &snap) {
		return nil
	}
	for i, poly := range snap.Polygons {
		if _, err := model.RingFromPairs(poly); err != nil {
			a.log.DebugContext(ctx, "discarding malformed drawing state",
				"scope", a.scope, "polygon", i, "err", err)
			return nil
		}
	}
	return &snap
}

func (a *Adapter) SaveValue(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	ctx, cancel := a.opContext(ctx)
	defer cancel()
	if err := a.kv.Set(ctx, Key(a.scope, name), b, a.ttl); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// LoadValue decodes the stored value into dst and reports whether it did.
// Storage errors and undecodable values both read as absent.
func (a *Adapter) LoadValue(ctx context.Context, name string, dst any) bool {
	ctx, cancel := a.opContext(ctx)
	defer cancel()

	b, ok, err := a.kv.Get(ctx, Key(a.scope, name))
	if err != nil {
		a.log.WarnContext(ctx, "storage read failed", "scope", a.scope, "key", name, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		a.log.DebugContext(ctx, "ignoring corrupt stored value", "scope", a.scope, "key", name, "err", err)
		return false
	}
	return true
}

// Stored reports whether any of names holds a value in the scope.
func (a *Adapter) Stored(ctx context.Context, names ...string) bool {
	ctx, cancel := a.opContext(ctx)
	defer cancel()

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = Key(a.scope, n)
	}
	if mg, ok := a.kv.(MultiGetter); ok {
		found, err := mg.MGet(ctx, keys)
		if err != nil {
			a.log.WarnContext(ctx, "storage read failed", "scope", a.scope, "err", err)
			return false
		}
		return len(found) > 0
	}
	for _, k := range keys {
		if _, ok, err := a.kv.Get(ctx, k); err == nil && ok {
			return true
		}
	}
	return false
}

func (a *Adapter) Clear(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, Key(a.scope, n))
	}
	ctx, cancel := a.opContext(ctx)
	defer cancel()
	if err := a.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("clear %v: %w", names, err)
	}
	return nil
}

// ClearAll drops every stored value of the scope.
func (a *Adapter) ClearAll(ctx context.Context) error {
	return a.Clear(ctx, allKeys...)
}

func (a *Adapter) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.opTimeout)
}
