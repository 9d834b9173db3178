package geodata

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// LatLon is a map position in degrees.
type LatLon struct {
	Lat float64 `json:"lat" yaml:"lat" doc:"Latitude in degrees"`
	Lon float64 `json:"lon" yaml:"lon" doc:"Longitude in degrees"`
}

// Viewport is the visible map window.
type Viewport struct {
	Center LatLon `json:"center" yaml:"center" doc:"Map center"`
	Zoom   int    `json:"zoom" yaml:"zoom" doc:"Zoom level" minimum:"0" maximum:"22"`
}

// FitOptions describes the map the viewport is fitted to.
type FitOptions struct {
	Width   int // map width in pixels
	Height  int // map height in pixels
	Padding int // pixels kept free on every side
	MaxZoom int
}

// DefaultFitOptions matches the browser map the viewer targets.
var DefaultFitOptions = FitOptions{Width: 1280, Height: 720, Padding: 50, MaxZoom: 16}

const (
	tileSize = 256
	// maxLat is the latitude where web mercator becomes a square.
	maxLat = 85.0511287798
)

// Fit returns the viewport that shows b with the given padding, at the
// highest whole zoom level not above MaxZoom. A degenerate bound (a single
// point) lands on MaxZoom. Latitudes are clamped to the mercator range.
func Fit(b orb.Bound, opts FitOptions) Viewport {
	lo := project.Point(clampLat(b.Min), project.WGS84.ToMercator)
	hi := project.Point(clampLat(b.Max), project.WGS84.ToMercator)
	mid := project.Point(orb.Point{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2}, project.Mercator.ToWGS84)
	if !finite(mid[0]) || !finite(mid[1]) {
		return Viewport{}
	}

	world := 2 * orb.EarthRadius * math.Pi
	availW := float64(opts.Width - 2*opts.Padding)
	availH := float64(opts.Height - 2*opts.Padding)
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}

	zoom := 0
	for z := opts.MaxZoom; z >= 0; z-- {
		px := tileSize * math.Exp2(float64(z)) / world
		if (hi[0]-lo[0])*px <= availW && (hi[1]-lo[1])*px <= availH {
			zoom = z
			break
		}
	}

	return Viewport{Center: LatLon{Lat: mid[1], Lon: mid[0]}, Zoom: zoom}
}

func clampLat(p orb.Point) orb.Point {
	p[1] = math.Max(-maxLat, math.Min(maxLat, p[1]))
	return p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
