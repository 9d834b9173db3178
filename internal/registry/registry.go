// Package registry holds the ordered set of layers backing the map.
//
// A Registry owns each layer's data, style and visibility. The configured
// Renderer owns the handles. Every operation holds the registry lock for its
// whole duration, so readers never see a half-applied change.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/style"
	"github.com/joeblew999/geoview/internal/validate"
)

var (
	// ErrNotFound is returned by operations that need an existing layer.
	ErrNotFound = errors.New("layer not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("registry closed")
)

// Layer is a copy of one registry record. Data is shared with the registry
// and must not be modified.
type Layer struct {
	ID      string
	Name    string
	Data    *geojson.FeatureCollection
	Style   style.Descriptor
	Visible bool
}

type record struct {
	Layer
	handle Handle
}

// Registry is the layer store for one map.
type Registry struct {
	mu       sync.RWMutex
	renderer Renderer
	bus      *EventBus
	fit      geodata.FitOptions
	viewport geodata.Viewport

	layers map[string]*record
	order  []string
	seq    uint64
	closed bool

	index      *spatialIndex
	indexDirty bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithRenderer sets the renderer that receives attach and detach calls.
func WithRenderer(r Renderer) Option {
	return func(reg *Registry) { reg.renderer = r }
}

// WithEventBus publishes changes on b.
func WithEventBus(b *EventBus) Option {
	return func(reg *Registry) { reg.bus = b }
}

// WithFit sets the map size used when fitting the viewport to a layer.
func WithFit(opts geodata.FitOptions) Option {
	return func(reg *Registry) { reg.fit = opts }
}

// WithViewport sets the initial viewport.
func WithViewport(v geodata.Viewport) Option {
	return func(reg *Registry) { reg.viewport = v }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		renderer: boundsOnly{},
		bus:      NewEventBus(),
		fit:      geodata.DefaultFitOptions,
		layers:   make(map[string]*record),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns the bus the registry publishes on.
func (r *Registry) Events() *EventBus { return r.bus }

// Close detaches every handle and empties the registry. Later mutations
// fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.clearLocked()
	r.closed = true
}

// newID mints an identifier that is never reused: the sequence number
// guarantees uniqueness, the random suffix keeps ids from different
// processes apart.
func (r *Registry) newID() string {
	r.seq++
	return fmt.Sprintf("layer_%d_%s", r.seq, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Add validates data, resolves its style and stores it as a new visible
// layer. The registry takes ownership of data. When the layer has bounds
// the viewport is fitted to them.
func (r *Registry) Add(data *geojson.FeatureCollection, name string, override style.Partial) (string, error) {
	if err := validate.Collection(data); err != nil {
		return "", err
	}
	st := style.Resolve(override)
	if err := st.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	id := r.newID()
	h, err := r.renderer.Attach(id, data, st)
	if err != nil {
		return "", fmt.Errorf("attach %s: %w", id, err)
	}

	rec := &record{Layer: Layer{ID: id, Name: name, Data: data, Style: st, Visible: true}, handle: h}
	r.layers[id] = rec
	r.order = append(r.order, id)
	r.indexDirty = true

	if b, ok := r.renderer.Bounds(h); ok {
		r.viewport = geodata.Fit(b, r.fit)
		r.bus.Publish(Event{Action: ActionViewport})
	}

	metrics.LayersActive.Set(float64(len(r.layers)))
	metrics.LayerOpsTotal.WithLabelValues(string(ActionAdded)).Inc()
	log.Info().Str("layer", id).Str("name", name).Int("features", len(data.Features)).Msg("Layer added")
	r.bus.Publish(Event{Action: ActionAdded, Layer: id, Name: name})
	return id, nil
}

// SetVisible shows or hides a layer. Showing attaches a fresh handle,
// hiding detaches it. Absent ids are ignored.
func (r *Registry) SetVisible(id string, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	rec, ok := r.layers[id]
	if !ok || rec.Visible == visible {
		return nil
	}

	action := ActionHidden
	if visible {
		h, err := r.renderer.Attach(id, rec.Data, rec.Style)
		if err != nil {
			return fmt.Errorf("attach %s: %w", id, err)
		}
		rec.handle = h
		action = ActionShown
	} else {
		r.renderer.Detach(rec.handle)
		rec.handle = nil
	}
	rec.Visible = visible
	r.indexDirty = true

	metrics.LayerOpsTotal.WithLabelValues(string(action)).Inc()
	log.Debug().Str("layer", id).Bool("visible", visible).Msg("Layer visibility changed")
	r.bus.Publish(Event{Action: action, Layer: id, Name: rec.Name})
	return nil
}

// Restyle merges p over the layer's current style. A visible layer gets a
// new handle built before the old one is detached; if building fails the
// layer keeps its old style and handle. The id never changes.
func (r *Registry) Restyle(id string, p style.Partial) (style.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return style.Descriptor{}, ErrClosed
	}

	rec, ok := r.layers[id]
	if !ok {
		return style.Descriptor{}, ErrNotFound
	}

	st := style.Merge(rec.Style, p)
	if err := st.Validate(); err != nil {
		return rec.Style, err
	}
	if rec.Visible {
		h, err := r.renderer.Attach(id, rec.Data, st)
		if err != nil {
			return rec.Style, fmt.Errorf("attach %s: %w", id, err)
		}
		old := rec.handle
		rec.handle = h
		r.renderer.Detach(old)
	}
	rec.Style = st

	metrics.LayerOpsTotal.WithLabelValues(string(ActionRestyled)).Inc()
	log.Debug().Str("layer", id).Str("color", st.Color).Msg("Layer restyled")
	r.bus.Publish(Event{Action: ActionRestyled, Layer: id, Name: rec.Name})
	return st, nil
}

// Remove detaches and deletes a layer. Absent ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeLocked(id) {
		metrics.LayersActive.Set(float64(len(r.layers)))
		metrics.LayerOpsTotal.WithLabelValues(string(ActionRemoved)).Inc()
		log.Info().Str("layer", id).Msg("Layer removed")
		r.bus.Publish(Event{Action: ActionRemoved, Layer: id})
	}
}

func (r *Registry) removeLocked(id string) bool {
	rec, ok := r.layers[id]
	if !ok {
		return false
	}
	if rec.handle != nil {
		r.renderer.Detach(rec.handle)
	}
	delete(r.layers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.indexDirty = true
	return true
}

// Clear removes every layer.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.order)
	r.clearLocked()
	metrics.LayersActive.Set(0)
	metrics.LayerOpsTotal.WithLabelValues(string(ActionCleared)).Inc()
	log.Info().Int("layers", n).Msg("Registry cleared")
	r.bus.Publish(Event{Action: ActionCleared})
}

func (r *Registry) clearLocked() {
	for _, id := range append([]string(nil), r.order...) {
		r.removeLocked(id)
	}
}

// Get returns a copy of one layer.
func (r *Registry) Get(id string) (Layer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.layers[id]
	if !ok {
		return Layer{}, false
	}
	return rec.Layer, true
}

// Handle returns the renderer handle of a visible layer.
func (r *Registry) Handle(id string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.layers[id]
	if !ok || rec.handle == nil {
		return nil, false
	}
	return rec.handle, true
}

// List returns every layer in display order.
func (r *Registry) List() []Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Layer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.layers[id].Layer)
	}
	return out
}

// Len returns the number of layers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Viewport returns the current map view.
func (r *Registry) Viewport() geodata.Viewport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewport
}

// SetViewport replaces the current map view.
func (r *Registry) SetViewport(v geodata.Viewport) {
	r.mu.Lock()
	r.viewport = v
	r.mu.Unlock()
	r.bus.Publish(Event{Action: ActionViewport})
}
