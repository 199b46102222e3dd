package session

import (
	"context"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist"
)

// SelectParameter makes p the current geometry parameter and shows the
// draw control. Choosing a different parameter cancels any sketch or edit
// in progress and clears the previous one's polygons. Re-selecting the
// current parameter while Drawing or Editing is ignored.
func (s *Session) SelectParameter(ctx context.Context, p model.GeometryParameter) Outcome {
	same := s.param != nil && s.param.Title == p.Title
	if same && (s.state == StateDrawing || s.state == StateEditing) {
		return OutcomeIgnored
	}
	if s.param != nil && !same {
		hadPolygons := len(s.polys) > 0
		if s.hovered != nil {
			s.m.HoverRestriction(nil)
		}
		s.clear()
		if hadPolygons && s.notifier != nil {
			s.notifyCleared(ctx)
		}
	}
	s.param = &p
	s.state = StateReady
	if !s.drawingEnabled {
		s.drawingEnabled = true
		s.m.SetDrawControl(true)
	}
	s.persist(ctx)
	return s.transition(ctx, "select_parameter", OutcomeParameterSelected)
}

// Switch handles a service or parameter change: any sketch is dropped,
// every committed polygon is cleared and the draw control removed.
func (s *Session) Switch(ctx context.Context) Outcome {
	hadPolygons := len(s.polys) > 0
	s.clear()
	s.param = nil
	s.state = StateIdle
	if s.drawingEnabled {
		s.drawingEnabled = false
		s.m.SetDrawControl(false)
	}
	s.persist(ctx)
	if hadPolygons && s.notifier != nil {
		s.notifyCleared(ctx)
	}
	return s.transition(ctx, "switch", OutcomeSwitched)
}

func (s *Session) clear() {
	s.sketch = nil
	s.awaitingPick = false
	s.clearSelection()
	s.hovered = nil
	s.polys = nil
	s.confirmDisabled = true
	s.recompute()
	s.render()
	s.m.RenderSketch(nil)
}

func (s *Session) notifyCleared(ctx context.Context) {
	s.notifier.Changed(ctx, Change{
		SessionID: s.id,
		Op:        "cleared",
		Polygons:  [][][]float64{},
		At:        s.now(),
	})
}

// Delete removes the committed polygon at index.
func (s *Session) Delete(ctx context.Context, index int) Outcome {
	if s.state == StateIdle || s.state == StateDrawing {
		return OutcomeIgnored
	}
	if index < 0 || index >= len(s.polys) {
		return OutcomeIgnored
	}
	s.polys = append(s.polys[:index:index], s.polys[index+1:]...)
	if len(s.polys) == 0 {
		s.confirmDisabled = true
	}
	s.committed(ctx, "deleted")
	return s.transition(ctx, "delete", OutcomeDeleted)
}

// DeleteAll removes every committed polygon.
func (s *Session) DeleteAll(ctx context.Context) Outcome {
	if s.state == StateIdle || s.state == StateDrawing {
		return OutcomeIgnored
	}
	s.polys = nil
	s.confirmDisabled = true
	s.committed(ctx, "cleared")
	return s.transition(ctx, "delete_all", OutcomeCleared)
}

// Lookup resolves a parameter title to its constraints.
type Lookup func(title string) (model.GeometryParameter, bool)

// Restore rebuilds the session from a snapshot. The set is cut to the most
// recent MaxCount polygons. Restored polygons carry no footprint unless
// revalidate is set, in which case each polygon of a must-be-inside
// parameter is bound to the first visible footprint holding all of its
// vertices and dropped when there is none.
func (s *Session) Restore(ctx context.Context, snap *model.Snapshot, lookup Lookup, revalidate bool) Outcome {
	if snap == nil || lookup == nil || s.state == StateDrawing || s.state == StateEditing {
		return OutcomeIgnored
	}
	p, ok := lookup(snap.CurrentParameterTitle)
	if !ok {
		return OutcomeIgnored
	}

	pairs := persist.TailSlice(snap.Polygons, p.MaxCount)
	polys := make([]model.UserPolygon, 0, len(pairs))
	dropped := 0
	for _, pr := range pairs {
		ring, err := model.RingFromPairs(pr)
		if err != nil || len(ring) == 0 {
			dropped++
			continue
		}
		up := model.UserPolygon{Ring: ring, Original: ring.Clone()}
		if revalidate && p.MustBeInside {
			if s.restr == nil {
				dropped++
				continue
			}
			r := s.restr.LocateRing(ring)
			if r == nil {
				dropped++
				continue
			}
			up.Restriction = r
		}
		polys = append(polys, up)
	}
	if dropped > 0 {
		s.log.InfoContext(ctx, "restored polygons dropped", "dropped", dropped, "kept", len(polys))
	}

	s.sketch = nil
	s.clearSelection()
	s.param = &p
	s.polys = polys
	s.state = StateReady
	s.confirmDisabled = len(polys) == 0
	if snap.IsDrawingEnabled != s.drawingEnabled {
		s.drawingEnabled = snap.IsDrawingEnabled
		s.m.SetDrawControl(s.drawingEnabled)
	}
	s.recompute()
	s.render()
	return s.transition(ctx, "restore", OutcomeRestored)
}
