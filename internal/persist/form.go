package persist

import "context"

// ParameterValues maps a geometry parameter title to its polygons as
// [lat, lng] pairs.
type ParameterValues map[string][][][]float64

// Calculation is the last cost quote shown to the user.
type Calculation struct {
	Cost float64 `json:"cost"`
	Days int     `json:"days"`
}

// FileRef describes an uploaded attachment.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TailSlice keeps the most recent maxCount polygons. maxCount <= 0 keeps all.
func TailSlice(polys [][][]float64, maxCount int) [][][]float64 {
	if maxCount <= 0 || len(polys) <= maxCount {
		return polys
	}
	return polys[len(polys)-maxCount:]
}

func (a *Adapter) SaveParameterValues(ctx context.Context, v ParameterValues) error {
	return a.SaveValue(ctx, KeyParameterValues, v)
}

// LoadParameterValues applies the per-title bound returned by maxCount.
func (a *Adapter) LoadParameterValues(ctx context.Context, maxCount func(title string) int) ParameterValues {
	var v ParameterValues
	if !a.LoadValue(ctx, KeyParameterValues, &v) {
		return nil
	}
	if maxCount != nil {
		for title, polys := range v {
			v[title] = TailSlice(polys, maxCount(title))
		}
	}
	return v
}

func (a *Adapter) SaveSelectedService(ctx context.Context, uuid string) error {
	return a.SaveValue(ctx, KeySelectedService, uuid)
}

func (a *Adapter) LoadSelectedService(ctx context.Context) (string, bool) {
	var s string
	ok := a.LoadValue(ctx, KeySelectedService, &s)
	return s, ok
}

func (a *Adapter) SaveCalculation(ctx context.Context, c Calculation) error {
	return a.SaveValue(ctx, KeyCalculation, c)
}

func (a *Adapter) LoadCalculation(ctx context.Context) (Calculation, bool) {
	var c Calculation
	ok := a.LoadValue(ctx, KeyCalculation, &c)
	return c, ok
}

func (a *Adapter) SaveComment(ctx context.Context, s string) error {
	return a.SaveValue(ctx, KeyComment, s)
}

func (a *Adapter) LoadComment(ctx context.Context) string {
	var s string
	_ = a.LoadValue(ctx, KeyComment, &s)
	return s
}

func (a *Adapter) SaveFiles(ctx context.Context, files []FileRef) error {
	return a.SaveValue(ctx, KeyUploadedFiles, files)
}

func (a *Adapter) LoadFiles(ctx context.Context) []FileRef {
	var f []FileRef
	_ = a.LoadValue(ctx, KeyUploadedFiles, &f)
	return f
}

// SaveAccordion stores which form sections are open.
func (a *Adapter) SaveAccordion(ctx context.Context, open map[string]bool) error {
	return a.SaveValue(ctx, KeyAccordionState, open)
}

func (a *Adapter) LoadAccordion(ctx context.Context) map[string]bool {
	var m map[string]bool
	_ = a.LoadValue(ctx, KeyAccordionState, &m)
	return m
}
