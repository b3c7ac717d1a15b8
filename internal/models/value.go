package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a single metric cell. Measures arrive from the API as strings,
// locally computed test metrics are numbers.
type Value struct {
	str   string
	num   float64
	isNum bool
}

// String wraps a textual metric value.
func String(s string) Value {
	return Value{str: s}
}

// Number wraps a numeric metric value.
func Number(f float64) Value {
	return Value{num: f, isNum: true}
}

// Int wraps an integer metric value.
func Int(n int) Value {
	return Number(float64(n))
}

// IsNumber reports whether the value was stored as a number.
func (v Value) IsNumber() bool {
	return v.isNum
}

// IsZero reports whether the value is the empty cell.
func (v Value) IsZero() bool {
	return !v.isNum && v.str == ""
}

// String formats the value the way it is written to the table.
func (v Value) String() string {
	if v.isNum {
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return ""
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.str
}

// Float returns the numeric reading of the value. String values are parsed;
// ok is false when the value is not numeric.
func (v Value) Float() (float64, bool) {
	if v.isNum {
		return v.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MarshalJSON keeps numbers as JSON numbers and strings as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isNum {
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	}
	return json.Marshal(v.str)
}

// UnmarshalJSON accepts a JSON number, string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Number(f)
	return nil
}
