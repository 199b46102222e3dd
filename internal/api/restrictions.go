package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/aoi-drawing/internal/catalogue"
	"github.com/mohammed-shakir/aoi-drawing/internal/core/router"
)

type yearBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// RestrictionsView is the styled visible subset with its legend.
type RestrictionsView struct {
	Polygons []catalogue.StyledPolygon `json:"polygons"`
	Legend   *catalogue.Legend         `json:"legend,omitempty"`
	Years    *yearBounds               `json:"years,omitempty"`
}

func (h *Handler) restrictions(w http.ResponseWriter, r *http.Request) {
	from, to, err := router.ParseYearRange(r)
	if err != nil {
		router.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var bbox *orb.Bound
	if raw := strings.TrimSpace(r.URL.Query().Get("bbox")); raw != "" {
		bb, err := router.ParseBBox(raw)
		if err != nil {
			router.WriteError(w, http.StatusBadRequest, "invalid bbox: "+err.Error())
			return
		}
		b := router.Bound(bb)
		bbox = &b
	}

	if _, err := h.d.Catalogue.Load(r.Context()); err != nil {
		msg := MsgLoadFailed
		var fe *catalogue.FetchError
		if errors.As(err, &fe) && fe.Maintenance() {
			msg = MsgMaintenance
		}
		router.WriteError(w, http.StatusBadGateway, msg)
		return
	}

	v, err := h.visible(from, to)
	if err != nil {
		router.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := RestrictionsView{Polygons: v.Styled(bbox)}
	if lg, ok := v.Legend(); ok {
		out.Legend = &lg
	}
	if lo, hi, ok := h.d.Catalogue.YearBounds(); ok {
		out.Years = &yearBounds{Min: lo, Max: hi}
	}
	router.WriteJSON(w, http.StatusOK, out)
}
