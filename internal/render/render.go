// Package render turns attached layers into vector tile handles.
//
// A Handle owns a private copy of the layer data with its style baked in. It
// serves Mapbox Vector Tiles on demand and describes itself as a MapLibre
// style fragment, so the browser map only needs a tile URL per layer.
package render

import (
	"errors"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/registry"
	"github.com/joeblew999/geoview/internal/style"
)

// ErrDetached is returned by a handle after its layer was hidden, restyled
// or removed.
var ErrDetached = errors.New("render handle detached")

// SourceLayer is the layer name inside every generated tile.
const SourceLayer = "features"

// MaxZoom is the deepest zoom a tile is produced for.
const MaxZoom = 22

// TileRenderer attaches layers as tile handles.
type TileRenderer struct {
	cacheSize int
}

// Option configures a TileRenderer.
type Option func(*TileRenderer)

// WithCacheSize bounds the encoded tiles kept per handle.
func WithCacheSize(n int) Option {
	return func(r *TileRenderer) { r.cacheSize = n }
}

// New creates a TileRenderer.
func New(opts ...Option) *TileRenderer {
	r := &TileRenderer{cacheSize: 512}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ registry.Renderer = (*TileRenderer)(nil)

// Attach builds a handle over a copy of data.
func (r *TileRenderer) Attach(id string, data *geojson.FeatureCollection, st style.Descriptor) (registry.Handle, error) {
	if data == nil {
		return nil, errors.New("render: nil collection")
	}
	h := &Handle{
		id:        id,
		style:     st,
		data:      geodata.Clone(data),
		cacheSize: r.cacheSize,
		tiles:     map[tileKey][]byte{},
	}
	h.bound, h.hasBound = geodata.Bounds(h.data)
	log.Debug().Str("layer", id).Int("features", len(h.data.Features)).Msg("Render handle attached")
	return h, nil
}

// Detach releases a handle. Later tile requests on it fail with ErrDetached.
func (r *TileRenderer) Detach(h registry.Handle) {
	rh, ok := h.(*Handle)
	if !ok {
		return
	}
	rh.mu.Lock()
	rh.detached = true
	rh.tiles = nil
	rh.mu.Unlock()
	log.Debug().Str("layer", rh.id).Msg("Render handle detached")
}

// Bounds reports the extent the handle covers.
func (r *TileRenderer) Bounds(h registry.Handle) (orb.Bound, bool) {
	rh, ok := h.(*Handle)
	if !ok {
		return orb.Bound{}, false
	}
	return rh.bound, rh.hasBound
}

// Handle is one attached layer.
type Handle struct {
	id       string
	style    style.Descriptor
	data     *geojson.FeatureCollection
	bound    orb.Bound
	hasBound bool

	mu        sync.Mutex
	detached  bool
	cacheSize int
	tiles     map[tileKey][]byte
}

// ID returns the layer id the handle was attached for.
func (h *Handle) ID() string { return h.id }

// Style returns the style baked into the handle.
func (h *Handle) Style() style.Descriptor { return h.style }

// Detached reports whether the handle was released.
func (h *Handle) Detached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detached
}
