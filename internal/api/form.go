package api

import (
	"context"
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/router"
	"github.com/mohammed-shakir/aoi-drawing/internal/params"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist"
	"github.com/mohammed-shakir/aoi-drawing/internal/quote"
	"github.com/mohammed-shakir/aoi-drawing/internal/registry"
	"github.com/mohammed-shakir/aoi-drawing/internal/session"
)

// FormView is the stored order form of a session.
type FormView struct {
	Service         string                  `json:"service,omitempty"`
	ParameterValues persist.ParameterValues `json:"parameterValues,omitempty"`
	Values          map[string]string       `json:"values"`
	Comment         string                  `json:"comment"`
	Files           []persist.FileRef       `json:"files"`
	Calculation     *persist.Calculation    `json:"calculation,omitempty"`
	Accordion       map[string]bool         `json:"accordion,omitempty"`
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	e, ok := h.reg.Acquire(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		router.WriteError(w, http.StatusNotFound, MsgNotFound)
		return
	}
	defer e.Unlock()

	ctx := r.Context()
	st := e.Store
	out := FormView{
		Service:         e.Params.Service,
		ParameterValues: st.LoadParameterValues(ctx, e.Params.MaxCount),
		Values:          e.Values,
		Comment:         st.LoadComment(ctx),
		Files:           st.LoadFiles(ctx),
		Accordion:       st.LoadAccordion(ctx),
	}
	if out.Files == nil {
		out.Files = []persist.FileRef{}
	}
	if calc, ok := st.LoadCalculation(ctx); ok {
		out.Calculation = &calc
	}
	router.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) updateForm(ctx context.Context, e *registry.Entry, r *http.Request) result {
	var body struct {
		Values    map[string]string  `json:"values"`
		Comment   *string            `json:"comment"`
		Files     *[]persist.FileRef `json:"files"`
		Accordion map[string]bool    `json:"accordion"`
	}
	if err := router.DecodeJSON(r, &body); err != nil {
		return fail(http.StatusBadRequest, MsgInvalidBody)
	}
	for title := range body.Values {
		if p, ok := e.Params.Find(title); !ok || p.Type == params.KindGeometry {
			return fail(http.StatusBadRequest, "unknown form value "+title)
		}
	}
	maps.Copy(e.Values, body.Values)

	st := e.Store
	var errs []error
	if body.Comment != nil {
		errs = append(errs, st.SaveComment(ctx, *body.Comment))
	}
	if body.Files != nil {
		errs = append(errs, st.SaveFiles(ctx, *body.Files))
	}
	if body.Accordion != nil {
		errs = append(errs, st.SaveAccordion(ctx, body.Accordion))
	}
	for _, err := range errs {
		if err != nil {
			h.d.Log.WarnContext(ctx, "form state not saved", "err", err)
		}
	}
	return result{}
}

func (h *Handler) quote(ctx context.Context, e *registry.Entry, r *http.Request) result {
	if e.Params.Service == "" {
		return fail(http.StatusBadRequest, MsgNoService)
	}
	if e.Session.Len() == 0 {
		e.Recorder.Notify(session.MsgNothingToSubmit)
		return result{outcome: session.OutcomeIgnored}
	}

	wire, ok := e.Session.Wire()
	values := quote.BuildParameters(e.Params, wire, ok, e.Values, quote.ForCost)
	calc, err := h.d.Quote.Calculate(ctx, e.Params.Service, values)
	if err != nil {
		h.d.Log.WarnContext(ctx, "cost calculation failed", "service", e.Params.Service, "err", err)
		e.Recorder.Notify(MsgQuoteFailed)
		return fail(http.StatusBadGateway, MsgUpstreamError)
	}

	st := e.Store
	if err := st.SaveCalculation(ctx, calc); err != nil {
		h.d.Log.WarnContext(ctx, "calculation not saved", "err", err)
	}
	open := st.LoadAccordion(ctx)
	if open == nil {
		open = map[string]bool{}
	}
	open["calculation"], open["checkout"] = true, true
	if err := st.SaveAccordion(ctx, open); err != nil {
		h.d.Log.WarnContext(ctx, "accordion state not saved", "err", err)
	}
	return result{calc: &calc}
}

// basket submits the order and, once accepted, forgets the whole form.
func (h *Handler) basket(ctx context.Context, e *registry.Entry, r *http.Request) result {
	if e.Params.Service == "" {
		return fail(http.StatusBadRequest, MsgNoService)
	}
	if e.Session.Len() == 0 {
		e.Recorder.Notify(session.MsgNothingToSubmit)
		return result{outcome: session.OutcomeIgnored}
	}

	st := e.Store
	wire, ok := e.Session.Wire()
	req := quote.BasketRequest{
		Parameters: quote.BuildParameters(e.Params, wire, ok, e.Values, quote.ForBasket),
		Files:      quote.FileNames(st.LoadFiles(ctx)),
	}
	if c := st.LoadComment(ctx); c != "" {
		req.Comment = &c
	}
	if err := h.d.Quote.AddToBasket(ctx, e.Params.Service, req); err != nil {
		h.d.Log.WarnContext(ctx, "basket submission failed", "service", e.Params.Service, "err", err)
		e.Recorder.Notify(MsgBasketFailed)
		return fail(http.StatusBadGateway, MsgUpstreamError)
	}

	out := e.Session.Switch(ctx)
	e.Params = params.Set{}
	e.Values = map[string]string{}
	if err := st.ClearAll(ctx); err != nil {
		h.d.Log.WarnContext(ctx, "form state not cleared", "err", err)
	}
	e.Recorder.Notify(MsgBasketAdded)
	return result{outcome: out}
}
