package session

import (
	"time"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
)

// Map is the rendering side of the session. Implementations translate
// these calls into widget updates; they never hold session state.
type Map interface {
	RenderPolygons(polys []model.UserPolygon)
	RenderSketch(vertices model.Ring)
	// HighlightRestriction marks the selected footprint; nil clears it.
	HighlightRestriction(r *model.RestrictionPolygon)
	// HoverRestriction marks the footprint under the cursor; nil clears it.
	HoverRestriction(r *model.RestrictionPolygon)
	// ShowError shows a transient tooltip at a map position.
	ShowError(msg string, at model.GeoPoint)
	// Notify shows a non-blocking notice that is not tied to a position.
	Notify(msg string)
	// RearmDraw cycles the draw tool so an aborted sketch starts over.
	RearmDraw()
	DisableEditToolbar()
	SetDrawControl(enabled bool)
}

type EffectKind string

const (
	EffectRenderPolygons   EffectKind = "render_polygons"
	EffectRenderSketch     EffectKind = "render_sketch"
	EffectHighlight        EffectKind = "highlight_restriction"
	EffectHover            EffectKind = "hover_restriction"
	EffectError            EffectKind = "error_tooltip"
	EffectNotice           EffectKind = "notice"
	EffectRearm            EffectKind = "rearm_draw"
	EffectDisableEditTools EffectKind = "disable_edit_toolbar"
	EffectDrawControl      EffectKind = "draw_control"
)

// Effect is one recorded map instruction.
type Effect struct {
	Kind          EffectKind      `json:"kind"`
	Message       string          `json:"message,omitempty"`
	At            *model.GeoPoint `json:"at,omitempty"`
	TTLMillis     int64           `json:"ttlMs,omitempty"`
	RestrictionID *int            `json:"restrictionId,omitempty"`
	Enabled       *bool           `json:"enabled,omitempty"`
	Polygons      [][][]float64   `json:"polygons,omitempty"`
}

// Recorder is a Map that queues effects for a remote renderer.
type Recorder struct {
	tooltipTTL time.Duration
	effects    []Effect
}

// NewRecorder stamps error tooltips with ttl, the auto-dismiss delay.
func NewRecorder(ttl time.Duration) *Recorder {
	return &Recorder{tooltipTTL: ttl}
}

// Drain returns the queued effects and empties the queue.
func (r *Recorder) Drain() []Effect {
	out := r.effects
	r.effects = nil
	if out == nil {
		out = []Effect{}
	}
	return out
}

func (r *Recorder) RenderPolygons(polys []model.UserPolygon) {
	pairs := make([][][]float64, len(polys))
	for i, p := range polys {
		pairs[i] = p.Ring.Pairs()
	}
	r.push(Effect{Kind: EffectRenderPolygons, Polygons: pairs})
}

func (r *Recorder) RenderSketch(vertices model.Ring) {
	r.push(Effect{Kind: EffectRenderSketch, Polygons: [][][]float64{vertices.Pairs()}})
}

func (r *Recorder) HighlightRestriction(rp *model.RestrictionPolygon) {
	r.push(Effect{Kind: EffectHighlight, RestrictionID: restrictionID(rp)})
}

func (r *Recorder) HoverRestriction(rp *model.RestrictionPolygon) {
	r.push(Effect{Kind: EffectHover, RestrictionID: restrictionID(rp)})
}

func (r *Recorder) ShowError(msg string, at model.GeoPoint) {
	r.push(Effect{Kind: EffectError, Message: msg, At: &at, TTLMillis: r.tooltipTTL.Milliseconds()})
}

func (r *Recorder) Notify(msg string) {
	r.push(Effect{Kind: EffectNotice, Message: msg})
}

func (r *Recorder) RearmDraw() { r.push(Effect{Kind: EffectRearm}) }

func (r *Recorder) DisableEditToolbar() { r.push(Effect{Kind: EffectDisableEditTools}) }

func (r *Recorder) SetDrawControl(enabled bool) {
	r.push(Effect{Kind: EffectDrawControl, Enabled: &enabled})
}

func (r *Recorder) push(e Effect) {
	// consecutive renders of the same kind collapse to the latest
	if n := len(r.effects); n > 0 && (e.Kind == EffectRenderPolygons || e.Kind == EffectRenderSketch) &&
		r.effects[n-1].Kind == e.Kind {
		r.effects[n-1] = e
		return
	}
	r.effects = append(r.effects, e)
}

func restrictionID(rp *model.RestrictionPolygon) *int {
	if rp == nil {
		return nil
	}
	id := rp.ID
	return &id
}
