package model

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is a number that may be unknown. Unknown is distinct from zero: a
// statistic nobody reported stays unknown through arithmetic instead of
// silently becoming 0.
type Value struct {
	n     float64
	known bool
}

// Unknown is the value of a statistic with no defined source.
var Unknown = Value{}

// Known wraps a defined number. NaN and infinities are treated as unknown.
func Known(n float64) Value {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Unknown
	}
	return Value{n: n, known: true}
}

// IsKnown reports whether v carries a number.
func (v Value) IsKnown() bool { return v.known }

// Float64 returns the number and whether it is known.
func (v Value) Float64() (float64, bool) { return v.n, v.known }

// Or returns the number or fallback when unknown.
func (v Value) Or(fallback float64) float64 {
	if !v.known {
		return fallback
	}
	return v.n
}

// Add is unknown when either side is unknown.
func (v Value) Add(o Value) Value {
	if !v.known || !o.known {
		return Unknown
	}
	return Known(v.n + o.n)
}

// Sub is unknown when either side is unknown.
func (v Value) Sub(o Value) Value {
	if !v.known || !o.known {
		return Unknown
	}
	return Known(v.n - o.n)
}

// Mul is unknown when either side is unknown.
func (v Value) Mul(o Value) Value {
	if !v.known || !o.known {
		return Unknown
	}
	return Known(v.n * o.n)
}

// Div returns unknown when either side is unknown or the divisor is zero.
func (v Value) Div(o Value) Value {
	if !v.known || !o.known || o.n == 0 {
		return Unknown
	}
	return Known(v.n / o.n)
}

// Max returns the larger of two values, ignoring unknown operands.
func (v Value) Max(o Value) Value {
	switch {
	case !v.known:
		return o
	case !o.known:
		return v
	case o.n > v.n:
		return o
	default:
		return v
	}
}

// ClampMin raises a known value to at least floor.
func (v Value) ClampMin(floor float64) Value {
	if v.known && v.n < floor {
		return Known(floor)
	}
	return v
}

// Round rounds half away from zero.
func (v Value) Round() Value {
	if !v.known {
		return Unknown
	}
	return Known(math.Round(v.n))
}

// String prints the shortest decimal form, or "unknown".
func (v Value) String() string {
	if !v.known {
		return "unknown"
	}
	return strconv.FormatFloat(v.n, 'f', -1, 64)
}

// MarshalJSON encodes unknown as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.known {
		return []byte("null"), nil
	}
	return json.Marshal(v.n)
}

// UnmarshalJSON decodes null as unknown.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unknown
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Known(n)
	return nil
}
