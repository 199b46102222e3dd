// Package params reads a service's configurable parameters and derives
// the geometry constraints the drawing session enforces.
package params

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/upstream"
)

type Kind string

const (
	KindGeometry Kind = "GEOMETRY"
	KindCheckbox Kind = "CHECKBOX"
	KindCount    Kind = "COUNT"
	KindCombobox Kind = "COMBOBOX"
	KindString   Kind = "STRING"
)

type Restrictions struct {
	// Count bounds the polygons of a geometry parameter; 0 is unbounded.
	Count        int             `json:"count,omitempty"`
	MustBeInside bool            `json:"mustBeInside,omitempty"`
	DefaultValue json.RawMessage `json:"defaultValue,omitempty"`
}

type Parameter struct {
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Type         Kind         `json:"parametersType"`
	Restrictions Restrictions `json:"restrictions"`
}

// Geometry reports the drawing constraints of a GEOMETRY parameter.
func (p Parameter) Geometry() (model.GeometryParameter, bool) {
	if p.Type != KindGeometry {
		return model.GeometryParameter{}, false
	}
	return model.GeometryParameter{
		Title:        p.Title,
		MaxCount:     max(p.Restrictions.Count, 0),
		MustBeInside: p.Restrictions.MustBeInside,
	}, true
}

// DefaultValue renders the initial form value of a non-geometry parameter.
func (p Parameter) DefaultValue() string {
	raw := p.Restrictions.DefaultValue
	switch p.Type {
	case KindCheckbox:
		var b bool
		_ = json.Unmarshal(raw, &b)
		return strconv.FormatBool(b)
	case KindCombobox:
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) == nil {
			if len(list) == 0 {
				return ""
			}
			return scalar(list[0])
		}
		return scalar(raw)
	case KindCount, KindString:
		return scalar(raw)
	default:
		return ""
	}
}

func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Set is the ordered parameter list of one service.
type Set struct {
	Service    string      `json:"service"`
	Parameters []Parameter `json:"parameters"`
}

// Order lists GEOMETRY parameters first, keeping the relative order
// inside each group.
func Order(ps []Parameter) []Parameter {
	out := make([]Parameter, 0, len(ps))
	for _, p := range ps {
		if p.Type == KindGeometry {
			out = append(out, p)
		}
	}
	for _, p := range ps {
		if p.Type != KindGeometry {
			out = append(out, p)
		}
	}
	return out
}

func (s Set) Find(title string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Title == title {
			return p, true
		}
	}
	return Parameter{}, false
}

func (s Set) Geometry() []model.GeometryParameter {
	var out []model.GeometryParameter
	for _, p := range s.Parameters {
		if g, ok := p.Geometry(); ok {
			out = append(out, g)
		}
	}
	return out
}

func (s Set) GeometryByTitle(title string) (model.GeometryParameter, bool) {
	p, ok := s.Find(title)
	if !ok {
		return model.GeometryParameter{}, false
	}
	return p.Geometry()
}

// MaxCount returns the polygon bound of title, 0 when unbounded or unknown.
func (s Set) MaxCount(title string) int {
	g, _ := s.GeometryByTitle(title)
	return g.MaxCount
}

type Source interface {
	Fetch(ctx context.Context, serviceUUID string) (Set, error)
}

type HTTPSource struct {
	client *upstream.Client
	base   string
}

// NewHTTPSource queries base?uuid=<service>.
func NewHTTPSource(c *upstream.Client, base string) *HTTPSource {
	return &HTTPSource{client: c, base: base}
}

func (s *HTTPSource) Fetch(ctx context.Context, serviceUUID string) (Set, error) {
	if strings.TrimSpace(serviceUUID) == "" {
		return Set{}, fmt.Errorf("service uuid is required")
	}
	var body struct {
		Parameters []Parameter `json:"parameters"`
	}
	u := s.base + "?uuid=" + url.QueryEscape(serviceUUID)
	if err := s.client.GetJSON(ctx, u, &body); err != nil {
		return Set{}, fmt.Errorf("fetch parameters of %s: %w", serviceUUID, err)
	}
	return Set{Service: serviceUUID, Parameters: Order(body.Parameters)}, nil
}
