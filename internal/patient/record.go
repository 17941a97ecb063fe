package patient

import (
	"math"
	"sort"
)

// DaysPerMonth is the average month length used to derive age in months.
const DaysPerMonth = 30.4375

// Record is a flat mapping from clinical field name to value.
//
// Values are float64 (numeric), bool or string (categorical). A missing key or a
// nil value means the finding was not recorded, which is distinct from false or zero.
type Record map[string]any

// Get returns the value for field and whether it is present.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Bool returns the field as a bool. Absent or non-bool values return false.
func (r Record) Bool(field string) bool {
	v, ok := r.Get(field)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Number returns the field as float64 and whether it was present and numeric.
func (r Record) Number(field string) (float64, bool) {
	v, ok := r.Get(field)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// String returns the field as a string and whether it was present and categorical.
func (r Record) String(field string) (string, bool) {
	v, ok := r.Get(field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Keys returns the present field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k, v := range r {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Normalize returns a copy of the record with every integer kind converted to
// float64 and the derived age fields filled in when they were not supplied.
func Normalize(r Record) Record {
	out := make(Record, len(r)+2)
	for k, v := range r {
		if v == nil {
			continue
		}
		if f, ok := ToFloat(v); ok {
			out[k] = f
			continue
		}
		out[k] = v
	}

	if days, ok := out.Number("age_days"); ok {
		if _, has := out.Get("age_months"); !has {
			out["age_months"] = days / DaysPerMonth
		}
		if _, has := out.Get("age_years"); !has {
			out["age_years"] = days / 365.0
		}
	}

	return out
}

// ToFloat converts any Go numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Whole floors a value to the whole unit used for comparison.
func Whole(v float64) float64 {
	return math.Floor(v)
}
