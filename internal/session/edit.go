package session

import (
	"context"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/geometry"
)

// Edit replaces the ring of the committed polygon at Index.
type Edit struct {
	Index int        `json:"index"`
	Ring  model.Ring `json:"ring"`
}

// StartEdit enters Editing and records the current coordinates of every
// polygon as its last valid shape.
func (s *Session) StartEdit(ctx context.Context) Outcome {
	if s.state != StateReady || len(s.polys) == 0 {
		return OutcomeIgnored
	}
	for i := range s.polys {
		s.polys[i].Original = s.polys[i].Ring.Clone()
	}
	s.state = StateEditing
	return s.transition(ctx, "edit_start", OutcomeEditStarted)
}

// EditVertex validates a dragged vertex. The whole ring is checked against
// the polygon's own stamped footprint, not the current selection. A
// violation disables the edit toolbar, which reverts every unsaved edit.
func (s *Session) EditVertex(ctx context.Context, e Edit) Outcome {
	if s.state != StateEditing || !s.editable(e) {
		return OutcomeIgnored
	}
	p := &s.polys[e.Index]
	if bad, outside := s.violation(p, e.Ring); outside {
		s.revertAll()
		s.m.DisableEditToolbar()
		s.m.ShowError(MsgEditOutside, geometry.BoundsCenter(e.Ring))
		s.state = StateReady
		s.recompute()
		s.render()
		return s.reject(ctx, "edit_outside", OutcomeEditRejected, bad)
	}

	p.Ring = e.Ring.Clone()
	p.Original = e.Ring.Clone()
	s.committed(ctx, "edited")
	return s.transition(ctx, "edit_vertex", OutcomeEditAccepted)
}

// CommitEdit saves the edit session. Edits whose ring leaves the stamped
// footprint are reverted to the last valid shape; the others are kept.
func (s *Session) CommitEdit(ctx context.Context, edits []Edit) Outcome {
	if s.state != StateEditing {
		return OutcomeIgnored
	}

	rejected := false
	for _, e := range edits {
		if !s.editable(e) {
			continue
		}
		p := &s.polys[e.Index]
		if bad, outside := s.violation(p, e.Ring); outside {
			if !rejected {
				s.m.DisableEditToolbar()
				s.m.ShowError(MsgEditedOutside, geometry.BoundsCenter(e.Ring))
			}
			rejected = true
			p.Ring = p.Original.Clone()
			s.reject(ctx, "edit_outside", OutcomeEditRejected, bad)
			continue
		}
		p.Ring = e.Ring.Clone()
		p.Original = e.Ring.Clone()
	}

	s.state = StateReady
	s.committed(ctx, "edited")
	if rejected {
		return OutcomeEditRejected
	}
	return s.transition(ctx, "edit_commit", OutcomeEditCommitted)
}

// CancelEdit leaves Editing and restores the last valid shapes.
func (s *Session) CancelEdit(ctx context.Context) Outcome {
	if s.state != StateEditing {
		return OutcomeIgnored
	}
	s.revertAll()
	s.state = StateReady
	s.recompute()
	s.render()
	return s.transition(ctx, "edit_cancel", OutcomeCancelled)
}

// editable reports whether e targets a committed polygon and keeps at
// least three distinct vertices.
func (s *Session) editable(e Edit) bool {
	return e.Index >= 0 && e.Index < len(s.polys) && geometry.Distinct(e.Ring) >= 3
}

// violation returns the first vertex of ring outside the polygon's stamped
// footprint. Polygons without a footprint accept any shape.
func (s *Session) violation(p *model.UserPolygon, ring model.Ring) (model.GeoPoint, bool) {
	if p.Restriction == nil {
		return model.GeoPoint{}, false
	}
	return geometry.FirstOutside(ring, p.Restriction.Ring)
}

func (s *Session) revertAll() {
	for i := range s.polys {
		if s.polys[i].Original != nil {
			s.polys[i].Ring = s.polys[i].Original.Clone()
		}
	}
}
