package registry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/style"
)

func TestFind(t *testing.T) {
	r := New()
	hidden, _ := r.Add(points(geojson.Properties{"city": "Cairo Hidden"}), "hidden", style.Partial{})
	_ = r.SetVisible(hidden, false)
	first, _ := r.Add(points(
		geojson.Properties{"city": "Alexandria"},
		geojson.Properties{"city": "Cairo", "pop": 9500000.0},
		geojson.Properties{"city": nil},
	), "first", style.Partial{})
	second, _ := r.Add(points(geojson.Properties{"city": "New Cairo"}), "second", style.Partial{})

	tests := []struct {
		name      string
		field     string
		value     string
		wantLayer string
		wantIndex int
		wantOK    bool
	}{
		{"case-insensitive substring", "city", "cair", first, 1, true},
		{"upper-case query", "city", "CAIRO", first, 1, true},
		{"later layer", "city", "new", second, 0, true},
		{"no match", "city", "giza", "", 0, false},
		{"missing field", "country", "egypt", "", 0, false},
		{"number stringified", "pop", "9500", first, 1, true},
		{"null stringified", "city", "null", first, 2, true},
		{"hidden layers skipped", "city", "hidden", "", 0, false},
		{"empty value", "city", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := r.Find(tt.field, tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ok=%v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Layer != tt.wantLayer || m.Index != tt.wantIndex {
				t.Errorf("match=%s#%d, want %s#%d", m.Layer, m.Index, tt.wantLayer, tt.wantIndex)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"x", "x"},
		{true, "true"},
		{1.0, "1"},
		{30.05, "30.05"},
		{-0.5, "-0.5"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%v)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZoomTo(t *testing.T) {
	r := New()
	_, _ = r.Add(points(geojson.Properties{"name": "a"}), "p", style.Partial{})
	m, ok := r.Find("name", "a")
	if !ok {
		t.Fatal("no match")
	}
	r.ZoomTo(m)
	if v := r.Viewport(); v.Zoom != PointZoom {
		t.Errorf("zoom=%d, want %d", v.Zoom, PointZoom)
	}
}

func TestActivate(t *testing.T) {
	square := func(x0, y0, x1, y1 float64) orb.Polygon {
		return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
	}
	layer := func(name string, g orb.Geometry) *geojson.FeatureCollection {
		fc := geojson.NewFeatureCollection()
		f := geojson.NewFeature(g)
		f.Properties["name"] = name
		fc.Append(f)
		return fc
	}

	r := New()
	bottom, _ := r.Add(layer("bottom", square(0, 0, 10, 10)), "bottom", style.Partial{})
	top, _ := r.Add(layer("top", square(4, 4, 6, 6)), "top", style.Partial{})
	_, _ = r.Add(layer("road", orb.LineString{{20, 0}, {20, 10}}), "road", style.Partial{})

	ch := r.Events().Subscribe()
	defer r.Events().Unsubscribe(ch)

	m, ok := r.Activate(orb.Point{5, 5}, 0)
	if !ok || m.Layer != top {
		t.Fatalf("match=%+v, want top layer", m)
	}
	ev := <-ch
	if ev.Action != ActionActivated || ev.Properties["name"] != "top" {
		t.Errorf("event=%+v", ev)
	}

	if m, ok := r.Activate(orb.Point{1, 1}, 0); !ok || m.Layer != bottom {
		t.Errorf("match=%+v, want bottom layer", m)
	}

	_ = r.SetVisible(top, false)
	if m, ok := r.Activate(orb.Point{5, 5}, 0); !ok || m.Layer != bottom {
		t.Errorf("match=%+v, hidden layers must not be activated", m)
	}

	if m, ok := r.Activate(orb.Point{20.05, 5}, 0.1); !ok || m.Name != "road" {
		t.Errorf("match=%+v, want road within tolerance", m)
	}
	if _, ok := r.Activate(orb.Point{50, 50}, 0.1); ok {
		t.Error("expected no feature far away")
	}
}
