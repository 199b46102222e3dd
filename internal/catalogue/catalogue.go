// Package catalogue loads the restriction footprints once, filters them by
// survey year and colours them for the year legend.
package catalogue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry/h3index"
)

type Option func(*Catalogue)

func WithLogger(l *slog.Logger) Option { return func(c *Catalogue) { c.log = l } }

// WithIndex sets the H3 resolution and memo size of the views.
func WithIndex(res, memoSize int) Option {
	return func(c *Catalogue) {
		c.res = res
		c.memoSize = memoSize
	}
}

type Catalogue struct {
	src      Source
	log      *slog.Logger
	res      int
	memoSize int

	// serialises fetches so concurrent callers share one round trip
	loadMu sync.Mutex

	mu               sync.RWMutex
	loaded           bool
	gen              uint64
	polys            []model.RestrictionPolygon
	minYear, maxYear int
}

func New(src Source, opts ...Option) *Catalogue {
	c := &Catalogue{
		src:      src,
		log:      slog.Default(),
		res:      h3index.DefaultRes,
		memoSize: h3index.DefaultMemoSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load fetches the footprints on first use and returns the cached set
// afterwards. A failed fetch leaves the catalogue empty and returns a
// *FetchError; the next call tries again.
func (c *Catalogue) Load(ctx context.Context) ([]model.RestrictionPolygon, error) {
	if c.Available() {
		return c.All(), nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.Available() {
		return c.All(), nil
	}
	if err := c.fetch(ctx); err != nil {
		return nil, err
	}
	return c.All(), nil
}

// Reload fetches the footprints again even when a set is cached. A failed
// fetch keeps the previous set.
func (c *Catalogue) Reload(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.fetch(ctx)
}

// Generation counts successful fetches. Views built under an older
// generation are stale.
func (c *Catalogue) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// fetch must be called with loadMu held.
func (c *Catalogue) fetch(ctx context.Context) error {
	recs, err := c.src.Fetch(ctx)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{Err: err}
		}
		outcome := "error"
		if fe.Maintenance() {
			outcome = "maintenance"
		}
		observability.ObserveCatalogueFetch(outcome)
		c.log.WarnContext(ctx, "restriction catalogue unavailable",
			"status", fe.Status, "maintenance", fe.Maintenance(), "err", fe.Err)
		return fe
	}

	polys := make([]model.RestrictionPolygon, 0, len(recs))
	for _, r := range recs {
		if p, ok := r.Polygon(len(polys)); ok {
			polys = append(polys, p)
		}
	}

	c.mu.Lock()
	c.polys = polys
	c.loaded = true
	c.gen++
	c.minYear, c.maxYear = yearBounds(polys)
	gen := c.gen
	c.mu.Unlock()

	observability.ObserveCatalogueFetch("ok")
	c.log.InfoContext(ctx, "restriction catalogue loaded",
		"polygons", len(polys), "skipped", len(recs)-len(polys), "generation", gen)
	return nil
}

// Available reports whether a load has succeeded.
func (c *Catalogue) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Ready satisfies the readiness probe.
func (c *Catalogue) Ready() bool { return c.Available() }

// Len is the number of loaded footprints.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.polys)
}

// All returns a copy of the cached set.
func (c *Catalogue) All() []model.RestrictionPolygon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.RestrictionPolygon, len(c.polys))
	copy(out, c.polys)
	return out
}

// YearBounds seeds the year range slider. ok is false before a load or
// when the catalogue is empty.
func (c *Catalogue) YearBounds() (minYear, maxYear int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.polys) == 0 {
		return 0, 0, false
	}
	return c.minYear, c.maxYear, true
}

// FilterByYearRange returns the footprints with minYear <= year <= maxYear
// without touching the cache.
func (c *Catalogue) FilterByYearRange(minYear, maxYear int) []model.RestrictionPolygon {
	sel := c.selectYears(minYear, maxYear)
	out := make([]model.RestrictionPolygon, len(sel))
	for i, p := range sel {
		out[i] = *p
	}
	return out
}

// View builds the indexed visible subset for [minYear, maxYear]. Its
// polygons point into the cache, so the same footprint keeps the same
// identity across views.
func (c *Catalogue) View(minYear, maxYear int) (*View, error) {
	return newView(c.selectYears(minYear, maxYear), minYear, maxYear, c.res, c.memoSize)
}

// FullView spans every loaded year. An unloaded catalogue yields an empty view.
func (c *Catalogue) FullView() (*View, error) {
	lo, hi, ok := c.YearBounds()
	if !ok {
		return newView(nil, 0, 0, c.res, c.memoSize)
	}
	return c.View(lo, hi)
}

func (c *Catalogue) selectYears(minYear, maxYear int) []*model.RestrictionPolygon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.RestrictionPolygon
	for i := range c.polys {
		if y := c.polys[i].Year; y >= minYear && y <= maxYear {
			out = append(out, &c.polys[i])
		}
	}
	return out
}

func yearBounds(polys []model.RestrictionPolygon) (lo, hi int) {
	for i, p := range polys {
		if i == 0 || p.Year < lo {
			lo = p.Year
		}
		if i == 0 || p.Year > hi {
			hi = p.Year
		}
	}
	return lo, hi
}
