package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"

	"github.com/joeblew999/geoview/internal/metrics"
	"github.com/joeblew999/geoview/internal/registry"
)

// DefaultKey is the store slot used when none is configured.
const DefaultKey = "gisLayers"

// Codec moves the registry in and out of one store slot.
type Codec struct {
	reg   *registry.Registry
	store Store
	key   string
	now   func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithKey sets the store slot.
func WithKey(key string) Option {
	return func(c *Codec) { c.key = key }
}

// WithClock sets the time source for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec binds a registry to a store.
func NewCodec(reg *registry.Registry, store Store, opts ...Option) *Codec {
	c := &Codec{reg: reg, store: store, key: DefaultKey, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the store slot.
func (c *Codec) Key() string { return c.key }

// Snapshot captures every layer, visible or not, in display order, plus the
// current viewport.
func (c *Codec) Snapshot() *Snapshot {
	layers := c.reg.List()
	s := &Snapshot{
		Version:   Version,
		Timestamp: c.now().UTC(),
		Viewport:  c.reg.Viewport(),
		Layers:    make([]Entry, 0, len(layers)),
	}
	for _, l := range layers {
		s.Layers = append(s.Layers, Entry{Name: l.Name, Data: l.Data, Style: l.Style, Visible: l.Visible})
	}
	return s
}

// Save writes the current snapshot to the store and returns it.
func (c *Codec) Save(ctx context.Context) (*Snapshot, error) {
	s := c.Snapshot()
	data, err := Encode(s)
	if err == nil {
		err = c.store.Put(ctx, c.key, data)
	}
	metrics.SessionOpsTotal.WithLabelValues("save", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, &PersistenceError{Op: "save", Key: c.key, Err: err}
	}
	log.Info().Str("key", c.key).Int("layers", len(s.Layers)).Msg("Session saved")
	return s, nil
}

// LoadReport summarizes a restore.
type LoadReport struct {
	Found   bool     `json:"found"`
	Loaded  int      `json:"loaded"`
	Skipped []string `json:"skipped,omitempty"`
}

// Load reads the slot and restores it. An empty slot is not an error. A
// snapshot that cannot be decoded at all leaves the registry untouched and
// returns a *PersistenceError.
func (c *Codec) Load(ctx context.Context) (LoadReport, error) {
	data, err := c.store.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		metrics.SessionOpsTotal.WithLabelValues("load", "empty").Inc()
		return LoadReport{}, nil
	}
	if err != nil {
		metrics.SessionOpsTotal.WithLabelValues("load", "error").Inc()
		return LoadReport{}, &PersistenceError{Op: "load", Key: c.key, Err: err}
	}
	return c.Restore(data)
}

// Restore clears the registry and replays a snapshot. Entries that fail to
// decode or validate are logged and skipped; the rest still load.
func (c *Codec) Restore(data []byte) (LoadReport, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		metrics.SessionOpsTotal.WithLabelValues("load", "error").Inc()
		log.Error().Err(err).Str("key", c.key).Msg("Saved session is corrupt, ignoring it")
		return LoadReport{}, &PersistenceError{Op: "load", Key: c.key, Err: err}
	}

	c.reg.Clear()
	report := LoadReport{Found: true}
	for i, msg := range raw.Layers {
		if err := c.restoreEntry(msg); err != nil {
			reason := fmt.Sprintf("layer %d: %v", i, err)
			log.Warn().Str("key", c.key).Int("entry", i).Err(err).Msg("Skipping saved layer")
			report.Skipped = append(report.Skipped, reason)
			continue
		}
		report.Loaded++
	}
	if raw.Viewport != nil {
		c.reg.SetViewport(*raw.Viewport)
	}

	metrics.SessionOpsTotal.WithLabelValues("load", "ok").Inc()
	log.Info().Str("key", c.key).Int("loaded", report.Loaded).Int("skipped", len(report.Skipped)).Msg("Session loaded")
	return report, nil
}

func (c *Codec) restoreEntry(msg json.RawMessage) error {
	var e rawEntry
	if err := json.Unmarshal(msg, &e); err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(e.Data)
	if err != nil {
		return err
	}
	for _, f := range fc.Features {
		if f != nil && f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
	}
	id, err := c.reg.Add(fc, e.Name, e.Style)
	if err != nil {
		return err
	}
	if e.Visible != nil && !*e.Visible {
		if err := c.reg.SetVisible(id, false); err != nil {
			c.reg.Remove(id)
			return err
		}
	}
	return nil
}

// Discard deletes the saved snapshot.
func (c *Codec) Discard(ctx context.Context) error {
	err := c.store.Delete(ctx, c.key)
	metrics.SessionOpsTotal.WithLabelValues("discard", metrics.Outcome(err)).Inc()
	if err != nil {
		return &PersistenceError{Op: "discard", Key: c.key, Err: err}
	}
	log.Info().Str("key", c.key).Msg("Session discarded")
	return nil
}
