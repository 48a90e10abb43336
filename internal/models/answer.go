package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizedAnswer is a submitted value or answer key coerced into a
// comparable form. Numbers, numeric strings and booleans compare as numbers,
// everything else compares as trimmed text.
type NormalizedAnswer struct {
	Present bool
	Numeric bool
	Number  float64
	Text    string
}

// NormalizeAnswer coerces a raw JSON value. Absent values, JSON null and
// blank strings are reported as not present.
func NormalizeAnswer(raw []byte) NormalizedAnswer {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return NormalizedAnswer{}
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		// Not JSON, treat the bytes as text.
		return normalizeText(string(trimmed))
	}

	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return NormalizedAnswer{Present: true, Text: val.String()}
		}
		return NormalizedAnswer{Present: true, Numeric: true, Number: f, Text: val.String()}
	case string:
		return normalizeText(val)
	case bool:
		if val {
			return NormalizedAnswer{Present: true, Numeric: true, Number: 1, Text: "true"}
		}
		return NormalizedAnswer{Present: true, Numeric: true, Number: 0, Text: "false"}
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return NormalizedAnswer{Present: true, Text: string(trimmed)}
		}
		return NormalizedAnswer{Present: true, Text: buf.String()}
	}
}

func normalizeText(s string) NormalizedAnswer {
	s = strings.TrimSpace(s)
	if s == "" {
		return NormalizedAnswer{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return NormalizedAnswer{Present: true, Numeric: true, Number: f, Text: s}
	}
	return NormalizedAnswer{Present: true, Text: s}
}

// Equal compares two normalized values. Values that are not present never match.
func (a NormalizedAnswer) Equal(b NormalizedAnswer) bool {
	if !a.Present || !b.Present {
		return false
	}
	if a.Numeric && b.Numeric {
		return a.Number == b.Number
	}
	return a.Text == b.Text
}

// Index returns the value as an option index when it is a whole, non-negative number.
func (a NormalizedAnswer) Index() (int, bool) {
	if !a.Present || !a.Numeric || a.Number < 0 || a.Number != math.Trunc(a.Number) {
		return 0, false
	}
	return int(a.Number), true
}
