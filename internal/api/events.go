package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/router"
	"github.com/mohammed-shakir/aoi-drawing/internal/registry"
	"github.com/mohammed-shakir/aoi-drawing/internal/session"
)

func (h *Handler) selectService(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var body struct {
		UUID string `json:"uuid"`
	}
	if err := router.DecodeJSON(r, &body); err != nil || strings.TrimSpace(body.UUID) == "" {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	set, err := h.d.Params.Fetch(ctx, body.UUID)
	if err != nil {
		h.d.Log.WarnContext(ctx, "service parameters unavailable", "service", body.UUID, "err", err)
		return fail(http.StatusBadGateway, MsgUpstreamError)
	}

	out := e.Session.Switch(ctx)
	e.Params = set
	e.Values = map[string]string{}
	if err := e.Store.SaveSelectedService(ctx, set.Service); err != nil {
		h.d.Log.WarnContext(ctx, "selected service not saved", "err", err)
	}
	return result{outcome: out}
}

func (h *Handler) selectParameter(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var body struct {
		Title string `json:"title"`
	}
	if err := router.DecodeJSON(r, &body); err != nil {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	p, ok := e.Params.GeometryByTitle(body.Title)
	if !ok {
		return fail(http.StatusBadRequest, MsgUnknownParam)
	}
	return result{outcome: e.Session.SelectParameter(ctx, p)}
}

func (h *Handler) setYears(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := router.DecodeJSON(r, &body); err != nil || (body.To != 0 && body.To < body.From) {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	e.YearFrom, e.YearTo = body.From, body.To
	h.refreshRestrictions(ctx, e)
	return result{}
}

func (h *Handler) drawStart(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	if p, ok := e.Session.Parameter(); ok && p.MustBeInside && h.staleView(e) {
		h.refreshRestrictions(ctx, e)
	}
	return result{outcome: e.Session.StartDraw(ctx)}
}

func (h *Handler) drawVertex(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var p model.GeoPoint
	if err := router.DecodeJSON(r, &p); err != nil {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	return result{outcome: e.Session.PlaceVertex(ctx, p)}
}

func (h *Handler) drawHover(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var p model.GeoPoint
	if err := router.DecodeJSON(r, &p); err != nil {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	return result{outcome: e.Session.Hover(ctx, p)}
}

func (h *Handler) drawComplete(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	return result{outcome: e.Session.Complete(ctx)}
}

func (h *Handler) drawCancel(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	return result{outcome: e.Session.Cancel(ctx)}
}

func (h *Handler) editStart(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	return result{outcome: e.Session.StartEdit(ctx)}
}

func (h *Handler) editVertex(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var ed session.Edit
	if err := router.DecodeJSON(r, &ed); err != nil {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	return result{outcome: e.Session.EditVertex(ctx, ed)}
}

func (h *Handler) editCommit(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var body struct {
		Edits []session.Edit `json:"edits"`
	}
	if err := router.DecodeJSON(r, &body); err != nil {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	return result{outcome: e.Session.CommitEdit(ctx, body.Edits)}
}

func (h *Handler) editCancel(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	return result{outcome: e.Session.CancelEdit(ctx)}
}

func (h *Handler) deleteAll(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	return result{outcome: e.Session.DeleteAll(ctx)}
}

func (h *Handler) deleteOne(ctx context.Context, e *registry.Entry, r *http.Request) result {
	idx, err := router.ParseIndex(chi.URLParam(r, "index"))
	if err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	return result{outcome: e.Session.Delete(ctx, idx)}
}

func (h *Handler) restore(ctx context.Context, e *registry.Entry, _ *http.Request) result {
	if h.staleView(e) {
		h.refreshRestrictions(ctx, e)
	}
	return result{outcome: h.restoreDrawing(ctx, e)}
}
