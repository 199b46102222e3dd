// Package api exposes drawing sessions over HTTP. Each request is one map
// event; the answer carries the session view and the map effects the
// client must apply.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/aoi-drawing/internal/catalogue"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/router"
	"github.com/mohammed-shakir/aoi-drawing/internal/logger"
	"github.com/mohammed-shakir/aoi-drawing/internal/params"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist"
	"github.com/mohammed-shakir/aoi-drawing/internal/quote"
	"github.com/mohammed-shakir/aoi-drawing/internal/registry"
	"github.com/mohammed-shakir/aoi-drawing/internal/session"
)

const (
	MsgMaintenance   = "Restriction polygons are unavailable while the service is under maintenance."
	MsgLoadFailed    = "Restriction polygons could not be loaded."
	MsgBasketAdded   = "The service was added to the basket."
	MsgBasketFailed  = "The service could not be added to the basket."
	MsgQuoteFailed   = "The cost could not be calculated."
	MsgNoService     = "Select a service first."
	MsgUnknownParam  = "Unknown geometry parameter."
	MsgNotFound      = "session not found"
	MsgInvalidBody   = "invalid request body"
	MsgUpstreamError = "upstream request failed"
)

type Deps struct {
	Catalogue *catalogue.Catalogue
	Params    params.Source
	Quote     *quote.Client
	// Store is the persistence adapter; every session gets its own scope.
	Store    *persist.Adapter
	Notifier session.Notifier
	Log      *slog.Logger

	SessionCapacity int
	TooltipTTL      time.Duration
	// RestoreRevalidate re-binds restored polygons to a footprint.
	RestoreRevalidate bool
}

type Handler struct {
	d   Deps
	reg *registry.Registry
}

func New(d Deps) (*Handler, error) {
	if d.Catalogue == nil || d.Params == nil || d.Quote == nil || d.Store == nil {
		return nil, errors.New("api: catalogue, params, quote and store are required")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.TooltipTTL <= 0 {
		d.TooltipTTL = 1200 * time.Millisecond
	}
	h := &Handler{d: d}
	reg, err := registry.New(d.SessionCapacity, h.newEntry,
		registry.WithProbe(h.persisted),
		registry.WithLogger(d.Log))
	if err != nil {
		return nil, err
	}
	h.reg = reg
	return h, nil
}

// Routes mounts the session and restriction endpoints on r.
// Sessions is the number of sessions held in memory.
func (h *Handler) Sessions() int { return h.reg.Len() }

func (h *Handler) Routes(r chi.Router) {
	r.Get("/restrictions", h.restrictions)

	r.Post("/sessions", h.create)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.event(h.view))
		r.Post("/service", h.event(h.selectService))
		r.Post("/parameter", h.event(h.selectParameter))
		r.Post("/years", h.event(h.setYears))

		r.Post("/draw/start", h.event(h.drawStart))
		r.Post("/draw/vertex", h.event(h.drawVertex))
		r.Post("/draw/hover", h.event(h.drawHover))
		r.Post("/draw/complete", h.event(h.drawComplete))
		r.Post("/draw/cancel", h.event(h.drawCancel))

		r.Post("/edit/start", h.event(h.editStart))
		r.Post("/edit/vertex", h.event(h.editVertex))
		r.Post("/edit/commit", h.event(h.editCommit))
		r.Post("/edit/cancel", h.event(h.editCancel))

		r.Delete("/polygons", h.event(h.deleteAll))
		r.Delete("/polygons/{index}", h.event(h.deleteOne))
		r.Post("/restore", h.event(h.restore))
		r.Get("/wire", h.wire)

		r.Get("/form", h.getForm)
		r.Post("/form", h.event(h.updateForm))
		r.Post("/quote", h.event(h.quote))
		r.Post("/basket", h.event(h.basket))
	})
}

// SessionView is the client-facing state of a session.
type SessionView struct {
	ID                  string                   `json:"id"`
	State               string                   `json:"state"`
	Service             string                   `json:"service,omitempty"`
	Parameter           *model.GeometryParameter `json:"parameter,omitempty"`
	AwaitingPick        bool                     `json:"awaitingPick"`
	SelectedRestriction *int                     `json:"selectedRestriction,omitempty"`
	Polygons            [][][]float64            `json:"polygons"`
	Sketch              [][]float64              `json:"sketch,omitempty"`
	AreaHa              string                   `json:"areaHa"`
	ConfirmDisabled     bool                     `json:"confirmDisabled"`
	DrawingEnabled      bool                     `json:"drawingEnabled"`
	YearFrom            int                      `json:"yearFrom,omitempty"`
	YearTo              int                      `json:"yearTo,omitempty"`
}

type Response struct {
	State       SessionView          `json:"state"`
	Effects     []session.Effect     `json:"effects"`
	Outcome     session.Outcome      `json:"outcome,omitempty"`
	Calculation *persist.Calculation `json:"calculation,omitempty"`
}

func viewOf(e *registry.Entry) SessionView {
	s := e.Session
	snap := s.Snapshot()
	v := SessionView{
		ID:              e.ID,
		State:           s.State().String(),
		Service:         e.Params.Service,
		AwaitingPick:    s.AwaitingPick(),
		Polygons:        snap.Polygons,
		AreaHa:          s.Measure().Formatted(),
		ConfirmDisabled: s.ConfirmDisabled(),
		DrawingEnabled:  s.DrawingEnabled(),
		YearFrom:        e.YearFrom,
		YearTo:          e.YearTo,
	}
	if p, ok := s.Parameter(); ok {
		v.Parameter = &p
	}
	if sel := s.Selected(); sel != nil {
		id := sel.ID
		v.SelectedRestriction = &id
	}
	if sk := s.Sketch(); len(sk) > 0 {
		v.Sketch = sk.Pairs()
	}
	return v
}

// result is what an event handler reports back to event.
type result struct {
	outcome session.Outcome
	calc    *persist.Calculation
	status  int
	err     string
}

func fail(status int, msg string) result { return result{status: status, err: msg} }

type eventFunc func(ctx context.Context, e *registry.Entry, r *http.Request) result

// event resolves the session, serialises the event behind its lock and
// writes the view with the drained effects.
func (h *Handler) event(fn eventFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctx := logger.WithSession(r.Context(), id)
		e, ok := h.reg.Acquire(ctx, id)
		if !ok {
			router.WriteError(w, http.StatusNotFound, MsgNotFound)
			return
		}
		defer e.Unlock()
		if p, ok := e.Session.Parameter(); ok {
			ctx = logger.WithParameter(ctx, p.Title)
		}
		res := fn(ctx, e, r)
		if res.err != "" {
			router.WriteError(w, res.status, res.err)
			return
		}
		status := res.status
		if status == 0 {
			status = http.StatusOK
		}
		router.WriteJSON(w, status, Response{
			State:       viewOf(e),
			Effects:     e.Recorder.Drain(),
			Outcome:     res.outcome,
			Calculation: res.calc,
		})
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	e := h.reg.Create(r.Context())
	e.Lock()
	defer e.Unlock()
	ctx := logger.WithSession(r.Context(), e.ID)
	h.refreshRestrictions(ctx, e)
	router.WriteJSON(w, http.StatusCreated, Response{
		State:   viewOf(e),
		Effects: e.Recorder.Drain(),
	})
}

func (h *Handler) view(_ context.Context, _ *registry.Entry, _ *http.Request) result {
	return result{}
}

func (h *Handler) wire(w http.ResponseWriter, r *http.Request) {
	e, ok := h.reg.Acquire(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		router.WriteError(w, http.StatusNotFound, MsgNotFound)
		return
	}
	defer e.Unlock()
	value, ok := e.Session.Wire()
	router.WriteJSON(w, http.StatusOK, map[string]any{"wire": value, "available": ok})
}

// newEntry builds the session for id. A rebuilt session reloads its
// service parameters and restores the persisted drawing.
func (h *Handler) newEntry(ctx context.Context, id string, rebuild bool) *registry.Entry {
	ctx = logger.WithSession(ctx, id)
	store := h.d.Store.ForScope(id)
	rec := session.NewRecorder(h.d.TooltipTTL)
	opts := []session.Option{
		session.WithLogger(h.d.Log),
		session.WithSaver(formSaver{store: store}),
	}
	if h.d.Notifier != nil {
		opts = append(opts, session.WithNotifier(h.d.Notifier))
	}
	e := &registry.Entry{
		ID:       id,
		Recorder: rec,
		Store:    store,
		Session:  session.New(id, rec, nil, opts...),
		Values:   map[string]string{},
	}
	if !rebuild {
		return e
	}

	h.refreshRestrictions(ctx, e)
	if uuid, ok := store.LoadSelectedService(ctx); ok {
		set, err := h.d.Params.Fetch(ctx, uuid)
		if err != nil {
			h.d.Log.WarnContext(ctx, "service parameters not reloaded", "service", uuid, "err", err)
		} else {
			e.Params = set
		}
	}
	h.restoreDrawing(ctx, e)
	rec.Drain()
	return e
}

// persisted reports whether a drawing or a selected service is stored
// for id.
func (h *Handler) persisted(ctx context.Context, id string) bool {
	return h.d.Store.ForScope(id).Stored(ctx, persist.KeyDrawingState, persist.KeySelectedService)
}

// refreshRestrictions loads the catalogue if needed and hands the
// session the visible subset. A failed load is shown as a notice.
func (h *Handler) refreshRestrictions(ctx context.Context, e *registry.Entry) {
	if _, err := h.d.Catalogue.Load(ctx); err != nil {
		var fe *catalogue.FetchError
		if errors.As(err, &fe) && fe.Maintenance() {
			e.Recorder.Notify(MsgMaintenance)
		} else {
			e.Recorder.Notify(MsgLoadFailed)
		}
		return
	}
	v, err := h.visible(e.YearFrom, e.YearTo)
	if err != nil {
		h.d.Log.WarnContext(ctx, "restriction view not built", "err", err)
		return
	}
	e.View = v
	e.ViewGen = h.d.Catalogue.Generation()
	e.Session.SetRestrictions(v)
}

// staleView reports whether the entry has no view or one built before the
// last catalogue refresh.
func (h *Handler) staleView(e *registry.Entry) bool {
	return e.View == nil || e.ViewGen != h.d.Catalogue.Generation()
}

func (h *Handler) visible(from, to int) (*catalogue.View, error) {
	if from == 0 && to == 0 {
		return h.d.Catalogue.FullView()
	}
	lo, hi, ok := h.d.Catalogue.YearBounds()
	if !ok {
		return h.d.Catalogue.FullView()
	}
	if from == 0 {
		from = lo
	}
	if to == 0 {
		to = hi
	}
	return h.d.Catalogue.View(from, to)
}

func (h *Handler) restoreDrawing(ctx context.Context, e *registry.Entry) session.Outcome {
	return e.Session.Restore(ctx, e.Store.Restore(ctx), e.Params.GeometryByTitle, h.d.RestoreRevalidate)
}

// formSaver persists the drawing snapshot and mirrors the polygons into
// the per-parameter form values.
type formSaver struct {
	store *persist.Adapter
}

func (f formSaver) Save(ctx context.Context, snap model.Snapshot) error {
	if err := f.store.Save(ctx, snap); err != nil {
		return err
	}
	if snap.CurrentParameterTitle == "" {
		return nil
	}
	vals := f.store.LoadParameterValues(ctx, nil)
	if vals == nil {
		vals = persist.ParameterValues{}
	}
	vals[snap.CurrentParameterTitle] = snap.Polygons
	return f.store.SaveParameterValues(ctx, vals)
}
