package catalogue

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammed-shakir/aoi-drawing/internal/core/model"
	"github.com/mohammed-shakir/aoi-drawing/internal/upstream"
)

// square returns a record in [lng, lat] order around (lat, lng).
func square(year int, lat, lng, half float64) Record {
	return Record{Year: year, Coordinates: [][][]float64{{
		{lng - half, lat - half},
		{lng + half, lat - half},
		{lng + half, lat + half},
		{lng - half, lat + half},
		{lng - half, lat - half},
	}}}
}

type fakeSource struct {
	calls atomic.Int32
	recs  []Record
	err   error
}

func (f *fakeSource) Fetch(context.Context) ([]Record, error) {
	f.calls.Add(1)
	return f.recs, f.err
}

func TestLoad_IsIdempotent(t *testing.T) {
	src := &fakeSource{recs: []Record{square(2010, 55, 37, 0.1), square(2016, 56, 38, 0.1)}}
	c := New(src)
	ctx := context.Background()

	first, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.calls.Load() != 1 {
		t.Fatalf("fetches=%d want 1", src.calls.Load())
	}
	if len(first) != 2 || len(second) != 2 || first[1].Year != second[1].Year {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
}

func TestLoad_ConcurrentCallersShareOneFetch(t *testing.T) {
	src := &fakeSource{recs: []Record{square(2010, 55, 37, 0.1)}}
	c := New(src)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Load(context.Background())
		}()
	}
	wg.Wait()
	if src.calls.Load() != 1 {
		t.Fatalf("fetches=%d want 1", src.calls.Load())
	}
}

func TestLoad_SwapsToLatLngAndUsesOuterRing(t *testing.T) {
	rec := square(2010, 55, 37, 0.1)
	rec.Coordinates = append(rec.Coordinates, [][]float64{{0, 0}, {1, 1}, {1, 0}})
	c := New(&fakeSource{recs: []Record{rec, {Year: 2011}}})

	got, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("empty record must be skipped, got %d", len(got))
	}
	if p := got[0].Ring[0]; math.Abs(p.Lat-54.9) > 1e-9 || math.Abs(p.Lng-36.9) > 1e-9 {
		t.Fatalf("first vertex=%+v want lat=54.9 lng=36.9", p)
	}
	if len(got[0].Ring) != 5 {
		t.Fatalf("ring len=%d want outer ring only", len(got[0].Ring))
	}
}

func TestFilterByYearRange_InclusiveAndNonMutating(t *testing.T) {
	c := New(&fakeSource{recs: []Record{
		square(2010, 55, 37, 0.1),
		square(2016, 55, 38, 0.1),
		square(2021, 55, 39, 0.1),
	}})
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := c.FilterByYearRange(2015, 2020)
	if len(got) != 1 || got[0].Year != 2016 {
		t.Fatalf("filtered=%+v want only 2016", got)
	}
	if edge := c.FilterByYearRange(2016, 2021); len(edge) != 2 {
		t.Fatalf("bounds must be inclusive, got %d", len(edge))
	}

	got[0].Year = 1999
	if len(c.All()) != 3 || c.FilterByYearRange(2016, 2016)[0].Year != 2016 {
		t.Fatalf("filter result must not alias the cache")
	}

	lo, hi, ok := c.YearBounds()
	if !ok || lo != 2010 || hi != 2021 {
		t.Fatalf("bounds=%d..%d ok=%v", lo, hi, ok)
	}
}

func TestLoad_FailureLeavesCatalogueEmptyAndRetries(t *testing.T) {
	src := &fakeSource{err: &FetchError{Status: http.StatusInternalServerError, Err: errors.New("boom")}}
	c := New(src)

	_, err := c.Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) || !fe.Maintenance() {
		t.Fatalf("err=%v want maintenance FetchError", err)
	}
	if c.Available() || len(c.All()) != 0 {
		t.Fatalf("catalogue must stay empty after a failed load")
	}
	if _, _, ok := c.YearBounds(); ok {
		t.Fatalf("no bounds expected")
	}

	v, err := c.FullView()
	if err != nil || v.Len() != 0 || v.Locate(model.GeoPoint{Lat: 55, Lng: 37}) != nil {
		t.Fatalf("empty view expected, err=%v", err)
	}

	src.err = nil
	src.recs = []Record{square(2010, 55, 37, 0.1)}
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("retry Load: %v", err)
	}
	if src.calls.Load() != 2 {
		t.Fatalf("fetches=%d want 2", src.calls.Load())
	}
}

func TestView_LocateKeepsIdentity(t *testing.T) {
	c := New(&fakeSource{recs: []Record{square(2010, 55, 37, 0.1), square(2016, 55.05, 37.05, 0.1)}})
	_, _ = c.Load(context.Background())

	full, err := c.FullView()
	if err != nil {
		t.Fatalf("FullView: %v", err)
	}
	// both squares contain this point; the first loaded wins
	hit := full.Locate(model.GeoPoint{Lat: 55.02, Lng: 37.02})
	if hit == nil || hit.Year != 2010 {
		t.Fatalf("hit=%+v want 2010", hit)
	}

	narrow, _ := c.View(2010, 2010)
	if again := narrow.Locate(model.GeoPoint{Lat: 55.02, Lng: 37.02}); again != hit {
		t.Fatalf("same footprint must keep its identity across views")
	}
	if miss := narrow.Locate(model.GeoPoint{Lat: 10, Lng: 10}); miss != nil {
		t.Fatalf("unexpected hit %+v", miss)
	}
}

func TestView_LocateRing(t *testing.T) {
	c := New(&fakeSource{recs: []Record{square(2010, 55, 37, 0.1)}})
	_, _ = c.Load(context.Background())
	v, _ := c.FullView()

	inside := model.Ring{{Lat: 55, Lng: 37}, {Lat: 55.05, Lng: 37}, {Lat: 55, Lng: 37.05}}
	if v.LocateRing(inside) == nil {
		t.Fatalf("expected containing footprint")
	}
	straddling := append(inside.Clone(), model.GeoPoint{Lat: 56, Lng: 37})
	if v.LocateRing(straddling) != nil {
		t.Fatalf("ring with an outside vertex must not bind")
	}
}

func TestView_StyledAndLegend(t *testing.T) {
	c := New(&fakeSource{recs: []Record{
		square(2010, 55, 37, 0.1),
		square(2020, 60, 40, 0.1),
	}})
	_, _ = c.Load(context.Background())
	v, _ := c.FullView()

	styled := v.Styled(nil)
	if len(styled) != 2 || styled[0].Color != "rgb(255,0,0)" || styled[1].Color != "rgb(0,0,255)" {
		t.Fatalf("styled=%+v", styled)
	}
	if styled[0].Label != "Survey year: 2010" {
		t.Fatalf("label=%q", styled[0].Label)
	}

	lg, ok := v.Legend()
	if !ok || lg.MinLabel != "2010" || lg.MaxLabel != "2020" || lg.From != "rgb(255,0,0)" {
		t.Fatalf("legend=%+v ok=%v", lg, ok)
	}

	b := geometryBound(55, 37, 0.5)
	if got := v.Styled(&b); len(got) != 1 || got[0].Year != 2010 {
		t.Fatalf("bbox filter=%+v", got)
	}
}

func TestHTTPSource_MapsStatus(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get_geo_json/" {
			http.NotFound(w, r)
			return
		}
		if s := int(status.Load()); s != http.StatusOK {
			w.WriteHeader(s)
			return
		}
		_, _ = w.Write([]byte(`[{"year":2016,"coordinates":[[[37,55],[37.1,55],[37.1,55.1],[37,55.1]]]}]`))
	}))
	defer srv.Close()

	cfg := upstream.DefaultConfig("restrictions-test")
	cfg.MaxRetries = 0
	cfg.InitialInterval = time.Millisecond
	src := NewHTTPSource(upstream.New(nil, cfg), srv.URL+"/api/get_geo_json/")

	_, err := src.Fetch(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusInternalServerError || !fe.Maintenance() {
		t.Fatalf("err=%v want 500 FetchError", err)
	}

	status.Store(http.StatusNotFound)
	_, err = src.Fetch(context.Background())
	if !errors.As(err, &fe) || fe.Maintenance() {
		t.Fatalf("err=%v want non-maintenance FetchError", err)
	}

	status.Store(http.StatusOK)
	recs, err := src.Fetch(context.Background())
	if err != nil || len(recs) != 1 || recs[0].Year != 2016 {
		t.Fatalf("recs=%+v err=%v", recs, err)
	}
}

func TestReload_SwapsSetAndKeepsItOnFailure(t *testing.T) {
	src := &fakeSource{recs: []Record{square(2010, 55, 37, 0.1)}}
	c := New(src)
	ctx := context.Background()

	if _, err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Generation() != 1 {
		t.Fatalf("generation=%d want 1", c.Generation())
	}

	src.recs = []Record{square(2010, 55, 37, 0.1), square(2020, 56, 38, 0.1)}
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if c.Len() != 2 || c.Generation() != 2 {
		t.Fatalf("len=%d gen=%d want 2/2", c.Len(), c.Generation())
	}
	if _, hi, _ := c.YearBounds(); hi != 2020 {
		t.Fatalf("max year=%d want 2020", hi)
	}

	src.err = &FetchError{Status: http.StatusServiceUnavailable, Err: errors.New("down")}
	if err := c.Reload(ctx); err == nil {
		t.Fatalf("expected reload error")
	}
	if !c.Available() || c.Len() != 2 || c.Generation() != 2 {
		t.Fatalf("failed reload must keep the previous set")
	}
	if _, err := c.Load(ctx); err != nil {
		t.Fatalf("Load after failed reload: %v", err)
	}
	if src.calls.Load() != 3 {
		t.Fatalf("fetches=%d want 3", src.calls.Load())
	}
}
