// Package quote talks to the cost-calculation and basket endpoints of a
// service, sending the drawn area together with the other parameter values.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/aoi-drawing/internal/params"
	"github.com/mohammed-shakir/aoi-drawing/internal/persist"
	"github.com/mohammed-shakir/aoi-drawing/internal/upstream"
)

var ErrNoServiceUUID = errors.New("service uuid is required")

// Value is one entry of the parameters array. Value is omitted for a
// geometry parameter when nothing is drawn.
type Value struct {
	Title string  `json:"title"`
	Value *string `json:"value,omitempty"`
}

// Purpose selects which parameter kinds carry a value.
type Purpose int

const (
	ForCost Purpose = iota
	ForBasket
)

// BuildParameters renders every parameter of set. Geometry parameters get
// wire, the first committed polygon; the others take values[title] when
// present and their default otherwise. The basket only carries checkbox
// and count values besides the geometry.
func BuildParameters(set params.Set, wire string, hasWire bool, values map[string]string, purpose Purpose) []Value {
	out := make([]Value, 0, len(set.Parameters))
	for _, p := range set.Parameters {
		v := Value{Title: p.Title}
		switch p.Type {
		case params.KindGeometry:
			if hasWire {
				v.Value = &wire
			}
		case params.KindCheckbox, params.KindCount:
			s := valueOf(p, values)
			v.Value = &s
		case params.KindString, params.KindCombobox:
			if purpose == ForCost {
				s := valueOf(p, values)
				v.Value = &s
			}
		}
		out = append(out, v)
	}
	return out
}

func valueOf(p params.Parameter, values map[string]string) string {
	if s, ok := values[p.Title]; ok {
		return s
	}
	return p.DefaultValue()
}

// BasketRequest is the add-to-basket body. Files holds upload file names.
type BasketRequest struct {
	Parameters []Value  `json:"parameters"`
	Files      []string `json:"files"`
	Comment    *string  `json:"comment"`
}

type Client struct {
	up        *upstream.Client
	costURL   string
	basketURL string
}

func New(up *upstream.Client, costURL, basketURL string) *Client {
	return &Client{up: up, costURL: costURL, basketURL: basketURL}
}

// Calculate posts the parameters array and returns the quoted cost and
// lead time in days.
func (c *Client) Calculate(ctx context.Context, serviceUUID string, values []Value) (persist.Calculation, error) {
	if strings.TrimSpace(serviceUUID) == "" {
		return persist.Calculation{}, ErrNoServiceUUID
	}
	var calc persist.Calculation
	u := c.costURL + "?uuid=" + url.QueryEscape(serviceUUID)
	if err := c.up.PostJSON(ctx, u, values, &calc); err != nil {
		return persist.Calculation{}, fmt.Errorf("calculate cost of %s: %w", serviceUUID, err)
	}
	return calc, nil
}

// AddToBasket submits the order. The answer body is plain text and is
// not interpreted.
func (c *Client) AddToBasket(ctx context.Context, serviceUUID string, req BasketRequest) error {
	if strings.TrimSpace(serviceUUID) == "" {
		return ErrNoServiceUUID
	}
	if req.Parameters == nil {
		req.Parameters = []Value{}
	}
	if req.Files == nil {
		req.Files = []string{}
	}
	u := c.basketURL + "?service_uuid=" + url.QueryEscape(serviceUUID)
	if err := c.up.PostJSON(ctx, u, req, nil); err != nil {
		return fmt.Errorf("add %s to basket: %w", serviceUUID, err)
	}
	return nil
}

// FileNames extracts the fileName query value of each upload link,
// skipping links without one.
func FileNames(files []persist.FileRef) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		name := f.Name
		if i := strings.Index(f.ID, "fileName="); i >= 0 {
			name = f.ID[i+len("fileName="):]
			if j := strings.IndexByte(name, '&'); j >= 0 {
				name = name[:j]
			}
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
