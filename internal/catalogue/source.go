package catalogue

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/upstream"
)

// Record is one footprint as served by the backend. Coordinates holds
// rings of [lng, lat] pairs; only the outer ring is used.
type Record struct {
	Year        int           `json:"year"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Polygon converts the outer ring to [lat, lng] order. ok is false when
// no usable vertex remains.
func (r Record) Polygon(id int) (model.RestrictionPolygon, bool) {
	if len(r.Coordinates) == 0 {
		return model.RestrictionPolygon{}, false
	}
	outer := r.Coordinates[0]
	ring := make(model.Ring, 0, len(outer))
	for _, c := range outer {
		if len(c) < 2 {
			continue
		}
		ring = append(ring, model.GeoPoint{Lat: c[1], Lng: c[0]})
	}
	if len(ring) == 0 {
		return model.RestrictionPolygon{}, false
	}
	return model.RestrictionPolygon{ID: id, Year: r.Year, Ring: ring}, true
}

// Source fetches the raw restriction records.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// FetchError reports a failed catalogue load. Status is 0 for network
// and decode failures.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("restriction fetch failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("restriction fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Maintenance reports a server-side failure, shown to users as a
// maintenance notice rather than a generic load error.
func (e *FetchError) Maintenance() bool { return e.Status >= http.StatusInternalServerError }

type HTTPSource struct {
	client *upstream.Client
	url    string
}

func NewHTTPSource(c *upstream.Client, url string) *HTTPSource {
	return &HTTPSource{client: c, url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]Record, error) {
	var out []Record
	if err := s.client.GetJSON(ctx, s.url, &out); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{Status: upstream.StatusCode(err), Err: err}
	}
	return out, nil
}
