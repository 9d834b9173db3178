package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/export"
	"github.com/joeblew999/geoview/internal/normalize"
	"github.com/joeblew999/geoview/internal/registry"
)

const pointJSON = `{"type":"Feature","geometry":{"type":"Point","coordinates":[31.2357,30.0444]},"properties":{"name":"Cairo"}}`

// twoLayerZip is a Shapefile bundle with a points and a polygons layer.
func twoLayerZip(t *testing.T) []byte {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))
	fc.Append(geojson.NewFeature(orb.Point{3, 4}))
	fc.Append(geojson.NewFeature(orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}))
	f, err := export.Shapefile("bundle", fc)
	if err != nil {
		t.Fatal(err)
	}
	return f.Data
}

func TestIngestBatch(t *testing.T) {
	reg := registry.New()
	svc := New(reg, WithMaxFileSize(1024))

	results := svc.Ingest(context.Background(), []Upload{
		{Name: "cairo.geojson", Data: []byte(pointJSON)},
		{Name: "photo.png", Data: []byte("png")},
		{Name: "huge.csv", Data: []byte(strings.Repeat("x", 2048))},
		{Name: "broken.geojson", Data: []byte(`{"type":`)},
		{Name: "places.csv", Data: []byte("name,lat,lon\nA,30,31\n")},
	})

	want := []Status{StatusSuccess, StatusError, StatusError, StatusError, StatusSuccess}
	if len(results) != len(want) {
		t.Fatalf("results=%d, want %d", len(results), len(want))
	}
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("%s: status=%s, want %s (%s)", r.File, r.Status, want[i], r.Message)
		}
	}
	if reg.Len() != 2 {
		t.Errorf("layers=%d, want 2", reg.Len())
	}

	var unsupported *normalize.UnsupportedFormatError
	if !errors.As(results[1].Err, &unsupported) || !strings.Contains(results[1].Message, ".png") {
		t.Errorf("png: %v", results[1].Err)
	}
	var tooLarge *TooLargeError
	if !errors.As(results[2].Err, &tooLarge) {
		t.Errorf("huge: %v, want *TooLargeError", results[2].Err)
	}
	var formatErr *normalize.FormatError
	if !errors.As(results[3].Err, &formatErr) {
		t.Errorf("broken: %v, want *FormatError", results[3].Err)
	}

	layer, _ := reg.Get(results[0].LayerID)
	if layer.Name != "cairo" {
		t.Errorf("name=%q, want cairo", layer.Name)
	}
}

func TestIngestCancelled(t *testing.T) {
	reg := registry.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := New(reg).Ingest(ctx, []Upload{{Name: "a.geojson", Data: []byte(pointJSON)}})
	if results[0].Status != StatusError || !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("result=%+v", results[0])
	}
	if reg.Len() != 0 {
		t.Error("cancelled batch added a layer")
	}
}

func TestPickAndMerge(t *testing.T) {
	reg := registry.New()
	svc := New(reg)

	r := svc.Ingest(context.Background(), []Upload{{Name: "bundle.zip", Data: twoLayerZip(t)}})[0]
	if r.Status != StatusCandidates || r.Token == "" {
		t.Fatalf("result=%+v", r)
	}
	if len(r.Candidates) != 2 || r.Candidates[0].Name != "points" || r.Candidates[0].Count != 2 {
		t.Fatalf("candidates=%+v", r.Candidates)
	}
	if reg.Len() != 0 {
		t.Fatal("candidates added before a pick")
	}

	id, err := svc.Pick(r.Token, 1)
	if err != nil {
		t.Fatal(err)
	}
	if layer, _ := reg.Get(id); layer.Name != "polygons" {
		t.Errorf("picked name=%q", layer.Name)
	}
	if _, err := svc.Pick(r.Token, 5); err == nil {
		t.Error("out of range pick accepted")
	}

	merged, err := svc.Merge(r.Token)
	if err != nil {
		t.Fatal(err)
	}
	layer, _ := reg.Get(merged)
	if layer.Name != "bundle" || len(layer.Data.Features) != 3 {
		t.Errorf("merged=%q with %d features", layer.Name, len(layer.Data.Features))
	}
	if _, err := svc.Merge(r.Token); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("second merge: %v, want ErrUnknownToken", err)
	}
}

func TestPendingIsBounded(t *testing.T) {
	svc := New(registry.New())
	data := twoLayerZip(t)
	var first string
	for i := 0; i <= maxPending; i++ {
		r := svc.Ingest(context.Background(), []Upload{{Name: "bundle.zip", Data: data}})[0]
		if i == 0 {
			first = r.Token
		}
	}
	if _, ok := svc.Pending(first); ok {
		t.Error("oldest candidate set kept past the bound")
	}
}

func TestLayerName(t *testing.T) {
	tests := map[string]string{
		"cities.geojson":       "cities",
		"dir/roads.zip":        "roads",
		`C:\data\tracks.gpx`:   "tracks",
		"noext":                "noext",
		".hidden":              ".hidden",
		"archive.tar.topojson": "archive.tar",
	}
	for in, want := range tests {
		if got := LayerName(in); got != want {
			t.Errorf("LayerName(%q)=%q, want %q", in, got, want)
		}
	}
}
