// Package lenient holds JSON scalar types that accept whatever an upstream
// happens to send instead of failing the whole document.
package lenient

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// String accepts any JSON scalar. Numbers and booleans keep their textual
// form; null, objects and arrays decode to "".
type String string

func (s *String) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*s = String(x)
	case float64:
		*s = String(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*s = String(strconv.FormatBool(x))
	default:
		*s = ""
	}
	return nil
}

// Int accepts a JSON number or a numeric string, truncating fractions.
// Anything else decodes to 0.
type Int int

func (n *Int) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			*n = 0
			return nil
		}
		f = parsed
	default:
		*n = 0
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = Int(f)
	return nil
}
