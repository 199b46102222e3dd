package session

import (
	"context"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry"
)

// StartDraw enters Drawing from Ready. The first click of the sketch is a
// restriction probe.
func (s *Session) StartDraw(ctx context.Context) Outcome {
	if s.state != StateReady || s.param == nil {
		return OutcomeIgnored
	}
	if s.param.MustBeInside && !s.restrictionsAvailable() {
		s.m.Notify(MsgNoRestrictions)
		return s.reject(ctx, "restrictions_unavailable", OutcomeUnavailable, model.GeoPoint{})
	}
	if !s.drawingEnabled {
		s.drawingEnabled = true
		s.m.SetDrawControl(true)
	}
	s.state = StateDrawing
	s.sketch = nil
	s.awaitingPick = true
	return s.transition(ctx, "draw_start", OutcomeDrawStarted)
}

// PlaceVertex handles a click while Drawing.
func (s *Session) PlaceVertex(ctx context.Context, p model.GeoPoint) Outcome {
	if s.state != StateDrawing || s.param == nil {
		return OutcomeIgnored
	}

	if s.awaitingPick {
		return s.probe(ctx, p)
	}

	if s.param.MustBeInside && s.selected != nil && !geometry.Contains(s.selected.Ring, p) {
		s.m.ShowError(MsgDrawInside, p)
		if len(s.sketch) == 0 {
			// nothing valid to roll back to: start the sketch over
			s.resetSketch()
			return s.reject(ctx, "vertex_outside", OutcomeSketchReset, p)
		}
		s.m.RenderSketch(s.sketch)
		return s.reject(ctx, "vertex_outside", OutcomeVertexRejected, p)
	}

	s.sketch = append(s.sketch, p)
	s.m.RenderSketch(s.sketch)
	return s.transition(ctx, "vertex", OutcomeVertexAccepted)
}

// probe consumes the first click of a sketch. A hit selects the footprint
// and keeps the click as the first vertex.
func (s *Session) probe(ctx context.Context, p model.GeoPoint) Outcome {
	if r := s.locate(p); r != nil {
		s.awaitingPick = false
		s.selected = r
		s.m.HighlightRestriction(r)
		s.sketch = append(s.sketch[:0], p)
		s.m.RenderSketch(s.sketch)
		return s.transition(ctx, "probe", OutcomeRestrictionSelected)
	}

	if s.param.MustBeInside {
		s.m.ShowError(MsgStartInside, p)
		s.resetSketch()
		return s.reject(ctx, "probe_outside", OutcomeProbeMissed, p)
	}

	s.awaitingPick = false
	s.sketch = append(s.sketch[:0], p)
	s.m.RenderSketch(s.sketch)
	return s.transition(ctx, "vertex", OutcomeVertexAccepted)
}

// resetSketch drops every placed vertex and re-arms the draw tool. The
// tool cycle ends the draw, so the selection is released and the next
// click probes again.
func (s *Session) resetSketch() {
	s.sketch = nil
	s.clearSelection()
	s.awaitingPick = true
	s.m.RenderSketch(nil)
	s.m.RearmDraw()
}

// Hover highlights the footprint under the cursor while Drawing. It never
// changes the selected footprint.
func (s *Session) Hover(ctx context.Context, p model.GeoPoint) Outcome {
	if s.state != StateDrawing {
		return OutcomeIgnored
	}
	r := s.locate(p)
	if r != s.hovered {
		s.hovered = r
		s.m.HoverRestriction(r)
	}
	return OutcomeHover
}

// Complete commits the sketch. Sketches with fewer than three distinct
// vertices are ignored and drawing continues.
func (s *Session) Complete(ctx context.Context) Outcome {
	if s.state != StateDrawing || s.param == nil || s.awaitingPick {
		return OutcomeIgnored
	}
	if geometry.Distinct(s.sketch) < 3 {
		return OutcomeIgnored
	}

	if s.param.Bounded() {
		for len(s.polys) >= s.param.MaxCount {
			s.polys = s.polys[1:]
		}
	}

	var stamp *model.RestrictionPolygon
	if s.param.MustBeInside {
		stamp = s.selected
	}
	ring := s.sketch.Clone()
	s.polys = append(s.polys, model.UserPolygon{Ring: ring, Restriction: stamp, Original: ring.Clone()})
	s.confirmDisabled = false

	s.endDraw()
	s.committed(ctx, "committed")
	return s.transition(ctx, "commit", OutcomeCommitted)
}

// Cancel aborts the sketch; no partial polygon survives.
func (s *Session) Cancel(ctx context.Context) Outcome {
	if s.state != StateDrawing {
		return OutcomeIgnored
	}
	s.endDraw()
	s.recompute()
	return s.transition(ctx, "draw_cancel", OutcomeCancelled)
}

// endDraw returns to Ready and releases the selection.
func (s *Session) endDraw() {
	s.state = StateReady
	s.sketch = nil
	s.awaitingPick = false
	s.clearSelection()
	if s.hovered != nil {
		s.hovered = nil
		s.m.HoverRestriction(nil)
	}
	s.m.RenderSketch(nil)
	if len(s.polys) == 0 {
		s.confirmDisabled = true
	}
}

func (s *Session) clearSelection() {
	if s.selected != nil {
		s.selected = nil
		s.m.HighlightRestriction(nil)
	}
}
