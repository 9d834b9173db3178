package registry

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/geoview/internal/geodata"
)

// indexEntry is one feature of a visible layer in the spatial index.
type indexEntry struct {
	layer   string
	order   int
	feature int
	geom    orb.Geometry
	bounds  rtreego.Rect
}

func (e *indexEntry) Bounds() rtreego.Rect { return e.bounds }

const minTolerance = 1e-9

type spatialIndex struct {
	tree *rtreego.Rtree
}

// buildIndex loads every non-empty geometry of the visible layers.
func (r *Registry) buildIndex() *spatialIndex {
	var objs []rtreego.Spatial
	for order, id := range r.order {
		rec := r.layers[id]
		if !rec.Visible {
			continue
		}
		for i, f := range rec.Data.Features {
			if f.Geometry == nil || geodata.IsEmpty(f.Geometry) {
				continue
			}
			b := f.Geometry.Bound()
			rect, err := rtreego.NewRectFromPoints(rtreego.Point{b.Min[0], b.Min[1]}, rtreego.Point{b.Max[0], b.Max[1]})
			if err != nil {
				continue
			}
			objs = append(objs, &indexEntry{layer: id, order: order, feature: i, geom: f.Geometry, bounds: rect})
		}
	}
	return &spatialIndex{tree: rtreego.NewTree(2, 25, 50, objs...)}
}

// Activate finds the topmost visible feature within tolerance degrees of
// pt and announces it on the event bus. Later layers and later features
// draw on top of earlier ones.
func (r *Registry) Activate(pt orb.Point, tolerance float64) (Match, bool) {
	// rtreego treats touching rectangles as disjoint.
	if tolerance <= 0 {
		tolerance = minTolerance
	}

	r.mu.Lock()
	if r.index == nil || r.indexDirty {
		r.index = r.buildIndex()
		r.indexDirty = false
	}
	hits := r.index.tree.SearchIntersect(rtreego.Point{pt[0], pt[1]}.ToRect(tolerance))

	entries := make([]*indexEntry, 0, len(hits))
	for _, h := range hits {
		e := h.(*indexEntry)
		if touches(e.geom, pt, tolerance) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].order != entries[j].order {
			return entries[i].order > entries[j].order
		}
		return entries[i].feature > entries[j].feature
	})

	var m Match
	found := len(entries) > 0
	if found {
		top := entries[0]
		rec := r.layers[top.layer]
		m = Match{Layer: top.layer, Name: rec.Name, Index: top.feature, Feature: rec.Data.Features[top.feature]}
	}
	r.mu.Unlock()

	if found {
		r.bus.Publish(Event{Action: ActionActivated, Layer: m.Layer, Name: m.Name, Properties: m.Feature.Properties.Clone()})
	}
	return m, found
}

// touches reports whether g covers pt or lies within tol of it.
func touches(g orb.Geometry, pt orb.Point, tol float64) bool {
	switch g := g.(type) {
	case orb.Polygon:
		if planar.PolygonContains(g, pt) {
			return true
		}
	case orb.MultiPolygon:
		if planar.MultiPolygonContains(g, pt) {
			return true
		}
	case orb.Collection:
		for _, m := range g {
			if m != nil && !geodata.IsEmpty(m) && touches(m, pt, tol) {
				return true
			}
		}
		return false
	}
	return planar.DistanceFrom(g, pt) <= tol
}
