package normalize

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geoview/internal/geodata"
)

// decodeWKT reads one geometry literal per line. Lines that fail to parse
// are reported as warnings; blank lines are ignored.
func decodeWKT(data []byte, opts Options) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	props := opts.WKTProperties
	if props == nil {
		props = func(line string, _ orb.Geometry) geojson.Properties {
			return geojson.Properties{"wkt": line}
		}
	}

	res := &Result{}
	fc := geojson.NewFeatureCollection()

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := string(bytes.TrimSpace(sc.Bytes()))
		if line == "" {
			continue
		}
		g, err := wkt.Unmarshal(tidyCollection(line))
		if err == nil && geodata.IsEmpty(g) {
			err = fmt.Errorf("empty geometry")
		}
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		f := geojson.NewFeature(g)
		if p := props(line, g); p != nil {
			f.Properties = p
		}
		fc.Append(f)
	}
	if err := sc.Err(); err != nil {
		return nil, formatErr(FormatWKT, err)
	}

	if len(fc.Features) == 0 {
		return nil, schemaErr(FormatWKT, "no line holds a valid geometry")
	}
	res.Collection = fc
	return res, nil
}

var (
	collectionOpen = regexp.MustCompile(`(?i)^GEOMETRYCOLLECTION\s*\(\s*`)
	memberBreak    = regexp.MustCompile(`\)\s*,\s*([A-Za-z])`)
)

// tidyCollection drops the whitespace orb's collection splitter cannot
// handle: after the keyword and between members.
func tidyCollection(line string) string {
	if !collectionOpen.MatchString(line) {
		return line
	}
	line = collectionOpen.ReplaceAllString(line, "GEOMETRYCOLLECTION(")
	return memberBreak.ReplaceAllString(line, "),$1")
}
