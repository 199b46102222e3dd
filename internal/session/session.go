// Package session implements the drawing session state machine: the set of
// user polygons of the current geometry parameter, restriction selection,
// vertex and edit validation, eviction and area bookkeeping.
//
// A Session is not safe for concurrent use. Callers serialise events per
// session, the way a map widget delivers them one at a time.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/observability"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry"
)

type State int

const (
	StateIdle State = iota
	StateReady
	StateDrawing
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateDrawing:
		return "drawing"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// Outcome reports what a transition did. Rejections are outcomes, not errors.
type Outcome string

const (
	OutcomeIgnored             Outcome = "ignored"
	OutcomeParameterSelected   Outcome = "parameter_selected"
	OutcomeSwitched            Outcome = "switched"
	OutcomeDrawStarted         Outcome = "draw_started"
	OutcomeUnavailable         Outcome = "restrictions_unavailable"
	OutcomeRestrictionSelected Outcome = "restriction_selected"
	OutcomeProbeMissed         Outcome = "probe_missed"
	OutcomeVertexAccepted      Outcome = "vertex_accepted"
	OutcomeVertexRejected      Outcome = "vertex_rejected"
	OutcomeSketchReset         Outcome = "sketch_reset"
	OutcomeHover               Outcome = "hover"
	OutcomeCommitted           Outcome = "committed"
	OutcomeCancelled           Outcome = "cancelled"
	OutcomeEditStarted         Outcome = "edit_started"
	OutcomeEditAccepted        Outcome = "edit_accepted"
	OutcomeEditRejected        Outcome = "edit_rejected"
	OutcomeEditCommitted       Outcome = "edit_committed"
	OutcomeDeleted             Outcome = "deleted"
	OutcomeCleared             Outcome = "cleared"
	OutcomeRestored            Outcome = "restored"
)

// User-facing messages shown in the error tooltip.
const (
	MsgStartInside     = "Drawing can only start inside one of the restriction polygons."
	MsgDrawInside      = "You can only draw inside the selected polygon."
	MsgEditOutside     = "Polygons cannot be edited outside the selected area."
	MsgEditedOutside   = "The edited polygon must stay inside the restricted area."
	MsgNoRestrictions  = "Restriction polygons are unavailable, drawing inside an area cannot start."
	MsgNothingToSubmit = "Draw at least one polygon first."
)

// Restrictions is the visible restriction set.
type Restrictions interface {
	Len() int
	Locate(p model.GeoPoint) *model.RestrictionPolygon
	LocateRing(r model.Ring) *model.RestrictionPolygon
}

// Saver persists snapshots after every committed change.
type Saver interface {
	Save(ctx context.Context, snap model.Snapshot) error
}

// Change describes a committed mutation of the polygon set.
type Change struct {
	SessionID    string
	Op           string
	Parameter    string
	Polygons     [][][]float64
	AreaHectares float64
	At           time.Time
}

// Notifier receives committed changes. It must not block.
type Notifier interface {
	Changed(ctx context.Context, ch Change)
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.log = l } }

func WithSaver(sv Saver) Option { return func(s *Session) { s.saver = sv } }

func WithNotifier(n Notifier) Option { return func(s *Session) { s.notifier = n } }

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

type Session struct {
	id       string
	log      *slog.Logger
	m        Map
	restr    Restrictions
	saver    Saver
	notifier Notifier
	now      func() time.Time

	state        State
	param        *model.GeometryParameter
	awaitingPick bool
	selected     *model.RestrictionPolygon
	hovered      *model.RestrictionPolygon
	sketch       model.Ring
	polys        []model.UserPolygon
	measure      geometry.Measure

	drawingEnabled  bool
	confirmDisabled bool
}

// New starts an idle session rendering through m. restr may be nil until
// the catalogue is loaded.
func New(id string, m Map, restr Restrictions, opts ...Option) *Session {
	s := &Session{
		id:              id,
		log:             slog.Default(),
		m:               m,
		restr:           restr,
		now:             time.Now,
		confirmDisabled: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State { return s.state }

// AwaitingPick reports whether the next draw click is a restriction probe.
func (s *Session) AwaitingPick() bool { return s.awaitingPick }

func (s *Session) Parameter() (model.GeometryParameter, bool) {
	if s.param == nil {
		return model.GeometryParameter{}, false
	}
	return *s.param, true
}

func (s *Session) Selected() *model.RestrictionPolygon { return s.selected }

func (s *Session) Hovered() *model.RestrictionPolygon { return s.hovered }

func (s *Session) Sketch() model.Ring { return s.sketch.Clone() }

// Polygons returns a copy of the committed set, oldest first.
func (s *Session) Polygons() []model.UserPolygon {
	out := make([]model.UserPolygon, len(s.polys))
	for i, p := range s.polys {
		out[i] = model.UserPolygon{Ring: p.Ring.Clone(), Restriction: p.Restriction, Original: p.Original.Clone()}
	}
	return out
}

func (s *Session) Len() int { return len(s.polys) }

func (s *Session) Measure() geometry.Measure { return s.measure }

// ConfirmDisabled is true while no polygon is committed.
func (s *Session) ConfirmDisabled() bool { return s.confirmDisabled }

func (s *Session) DrawingEnabled() bool { return s.drawingEnabled }

// SetRestrictions replaces the visible restriction set. Back-references
// already stamped on polygons are kept.
func (s *Session) SetRestrictions(r Restrictions) { s.restr = r }

// Snapshot is the persisted form of the session.
func (s *Session) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		IsDrawingEnabled: s.drawingEnabled,
		Polygons:         make([][][]float64, 0, len(s.polys)),
	}
	for _, p := range s.polys {
		snap.Polygons = append(snap.Polygons, p.Ring.Pairs())
	}
	if s.param != nil {
		snap.CurrentParameterTitle = s.param.Title
	}
	return snap
}

// Wire renders the first committed polygon for the cost and basket calls.
func (s *Session) Wire() (string, bool) {
	if len(s.polys) == 0 {
		return "", false
	}
	return geometry.FormatWire(s.polys[0].Ring), true
}

func (s *Session) rings() []model.Ring {
	out := make([]model.Ring, len(s.polys))
	for i, p := range s.polys {
		out[i] = p.Ring
	}
	return out
}

func (s *Session) restrictionsAvailable() bool {
	return s.restr != nil && s.restr.Len() > 0
}

func (s *Session) locate(p model.GeoPoint) *model.RestrictionPolygon {
	if s.restr == nil {
		return nil
	}
	return s.restr.Locate(p)
}

func (s *Session) recompute() {
	s.measure = geometry.Recompute(s.rings())
}

func (s *Session) render() {
	s.m.RenderPolygons(s.Polygons())
}

// committed finishes a mutation of the polygon set: area, rendering,
// persistence and notification.
func (s *Session) committed(ctx context.Context, op string) {
	s.recompute()
	s.render()
	observability.ObserveDrawnArea(s.measure.Hectares())
	s.persist(ctx)
	if s.notifier != nil {
		snap := s.Snapshot()
		s.notifier.Changed(ctx, Change{
			SessionID:    s.id,
			Op:           op,
			Parameter:    snap.CurrentParameterTitle,
			Polygons:     snap.Polygons,
			AreaHectares: s.measure.Hectares(),
			At:           s.now(),
		})
	}
}

func (s *Session) persist(ctx context.Context) {
	if s.saver == nil {
		return
	}
	if err := s.saver.Save(ctx, s.Snapshot()); err != nil {
		s.log.WarnContext(ctx, "drawing state not saved", "err", err)
	}
}

func (s *Session) transition(ctx context.Context, op string, out Outcome) Outcome {
	observability.ObserveTransition(op)
	s.log.DebugContext(ctx, "session transition",
		"op", op, "outcome", string(out), "state", s.state.String())
	return out
}

func (s *Session) reject(ctx context.Context, kind string, out Outcome, at model.GeoPoint) Outcome {
	observability.ObserveRejection(kind)
	s.log.DebugContext(ctx, "drawing rejected",
		"kind", kind, "at", at.String())
	return out
}
