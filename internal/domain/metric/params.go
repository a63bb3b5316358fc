package metric

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parameter keys understood by the built-in metrics.
const (
	ParamPosLabel         = "pos_label"
	ParamK                = "K"
	ParamClasses          = "classes"
	ParamOverlapThreshold = "overlap_threshold"
	ParamUseElevenPoint   = "use_eleven_point"
)

// Params carries the keyword parameters of a metric specification. Values
// arrive from JSON or YAML, so accessors accept strings and numbers alike.
type Params map[string]any

// Has reports whether key is set.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns key rendered as a label. Integral numbers render without a
// fractional part so that 1, 1.0 and "1" name the same class.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return formatNumber(f), true
		}
		return t.String(), true
	case float64:
		return formatNumber(t), true
	case float32:
		return formatNumber(float64(t)), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Float returns key as a float64.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s=%v: %w", key, v, ErrInvalidParam)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%s=%q: %w", key, t, ErrInvalidParam)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s has type %T: %w", key, v, ErrInvalidParam)
	}
}

// Int returns key as an int; fractional values are rejected.
func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s=%v is not an integer: %w", key, f, ErrInvalidParam)
	}
	return int(f), nil
}

// Bool returns key as a bool.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("%s=%q: %w", key, t, ErrInvalidParam)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%s has type %T: %w", key, v, ErrInvalidParam)
	}
}

// Strings returns key as a list of labels.
func (p Params) Strings(key string) ([]string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch t := v.(type) {
	case []string:
		return t, true, nil
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, _ := Params{"v": e}.String("v")
			out[i] = s
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("%s has type %T: %w", key, v, ErrInvalidParam)
	}
}

// Without returns a copy of p minus the given keys.
func (p Params) Without(keys ...string) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
