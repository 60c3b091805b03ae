package models

import (
	"encoding/json"
	"math"
)

// Ratio is a derived metric that may be undefined (division by zero, missing
// counters). Undefined values are stored as NaN and encode to JSON null.
type Ratio float64

// Undefined is the value used for ratios that cannot be computed.
var Undefined = Ratio(math.NaN())

// Defined reports whether the ratio holds a finite value.
func (r Ratio) Defined() bool {
	f := float64(r)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float64 returns the raw value, NaN included.
func (r Ratio) Float64() float64 {
	return float64(r)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}
