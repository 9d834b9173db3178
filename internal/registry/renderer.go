package registry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/style"
)

// Handle is a renderer's representation of one visible layer. The registry
// stores it but never looks inside.
type Handle any

// Renderer builds and tears down the on-map presence of layers. The style is
// baked into the handle; a restyle asks for a new handle.
type Renderer interface {
	Attach(id string, data *geojson.FeatureCollection, st style.Descriptor) (Handle, error)
	Detach(h Handle)
	Bounds(h Handle) (orb.Bound, bool)
}

// boundsOnly is the renderer used when none is configured. Its handle is
// the layer's bounding box.
type boundsOnly struct{}

type boundHandle struct {
	bound orb.Bound
	ok    bool
}

func (boundsOnly) Attach(_ string, data *geojson.FeatureCollection, _ style.Descriptor) (Handle, error) {
	b, ok := geodata.Bounds(data)
	return &boundHandle{bound: b, ok: ok}, nil
}

func (boundsOnly) Detach(Handle) {}

func (boundsOnly) Bounds(h Handle) (orb.Bound, bool) {
	bh, ok := h.(*boundHandle)
	if !ok {
		return orb.Bound{}, false
	}
	return bh.bound, bh.ok
}
