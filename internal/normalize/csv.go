package normalize

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	latColumns = []string{"lat", "latitude", "y"}
	lonColumns = []string{"lon", "lng", "long", "longitude", "x"}
)

// decodeCSV turns each row with finite coordinates into a Point. The row's
// cells become properties: numeric cells as numbers, empty cells as null.
func decodeCSV(data []byte) (*geojson.FeatureCollection, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, schemaErr(FormatCSV, "no header row")
	}
	if err != nil {
		return nil, formatErr(FormatCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	latIdx := findColumn(header, latColumns)
	lonIdx := findColumn(header, lonColumns)
	if latIdx < 0 || lonIdx < 0 {
		return nil, schemaErr(FormatCSV, "no latitude/longitude columns in header %v", header)
	}

	fc := geojson.NewFeatureCollection()
	rows := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, formatErr(FormatCSV, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rows++

		lat, ok1 := finite(cell(row, latIdx))
		lon, ok2 := finite(cell(row, lonIdx))
		if !ok1 || !ok2 {
			continue
		}

		f := geojson.NewFeature(orb.Point{lon, lat})
		for i, name := range header {
			if name == "" {
				continue
			}
			f.Properties[name] = typedCell(cell(row, i))
		}
		fc.Append(f)
	}

	if len(fc.Features) == 0 {
		if rows == 0 {
			return nil, schemaErr(FormatCSV, "no data rows")
		}
		return nil, schemaErr(FormatCSV, "no row has valid coordinates")
	}
	return fc, nil
}

// findColumn returns the first header matching any candidate, ignoring case.
func findColumn(header, candidates []string) int {
	for i, h := range header {
		for _, c := range candidates {
			if strings.EqualFold(h, c) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func finite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func typedCell(s string) any {
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if v, ok := finite(s); ok && looksNumeric(s) {
		return v
	}
	return s
}

// looksNumeric rejects strings ParseFloat accepts but a spreadsheet would
// not treat as numbers, such as "Inf", "0x1p-2" or "1_000".
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}

// sniffDelimiter picks the most frequent of , ; tab | in the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
