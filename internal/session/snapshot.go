// Package session saves the registry to a store and rebuilds it from there.
//
// A snapshot is the only persisted state. Loading clears the registry and
// replays every saved layer through the registry's Add, so render and
// viewport side effects happen again in the saved order.
package session

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/style"
)

// Version is written into every snapshot.
const Version = "1"

// Snapshot is the persisted form of the registry.
type Snapshot struct {
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Viewport  geodata.Viewport `json:"viewport"`
	Layers    []Entry          `json:"layers"`
}

// Entry is one saved layer.
type Entry struct {
	Name    string                     `json:"name"`
	Data    *geojson.FeatureCollection `json:"data"`
	Style   style.Descriptor           `json:"style"`
	Visible bool                       `json:"visible"`
}

// Encode renders a snapshot as JSON. Property keys come out sorted, so
// encoding the same registry twice differs only in the timestamp.
func Encode(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// rawSnapshot defers entry decoding so one bad entry cannot spoil the rest.
type rawSnapshot struct {
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Viewport  *geodata.Viewport `json:"viewport"`
	Layers    []json.RawMessage `json:"layers"`
}

// rawEntry takes the style as a Partial so missing fields fall back to the
// default and numeric strings are accepted.
type rawEntry struct {
	Name    string          `json:"name"`
	Data    json.RawMessage `json:"data"`
	Style   style.Partial   `json:"style"`
	Visible *bool           `json:"visible"`
}
