// Package score holds metric results through their transform and normalize
// lifecycle and serializes them for output.
package score

import (
	"fmt"
	"math"

	"github.com/usnistgov/dval/internal/domain/transform"
)

// Score is one of Raw, Transformed or Normalized. Each state carries only the
// fields that are valid in it.
type Score interface {
	// Record flattens the score for serialization.
	Record() Record
	// Key returns the (target, metric) pair the score belongs to.
	Key() (target, metric string)

	isScore()
}

// Raw is a freshly computed metric value.
type Raw struct {
	Target   string
	Metric   string
	Value    float64
	Baseline *float64 // nil when no baseline was supplied
}

// Transformed has been mapped onto [0,1] by its metric's transformation.
type Transformed struct {
	Raw
	TransformedValue    float64
	TransformedBaseline *float64 // nil when no usable baseline was transformed
	Orientation         transform.Orientation
}

// Normalized is expressed relative to its transformed baseline.
type Normalized struct {
	Transformed
	NormalizedValue float64
}

// New returns a Raw score. baseline may be nil.
func New(target, metric string, value float64, baseline *float64) Raw {
	return Raw{Target: target, Metric: metric, Value: value, Baseline: baseline}
}

func (Raw) isScore()         {}
func (Transformed) isScore() {}
func (Normalized) isScore()  {}

func (r Raw) Key() (string, string) { return r.Target, r.Metric }

func (r Raw) Record() Record {
	return Record{
		Target:           r.Target,
		Metric:           r.Metric,
		RawValue:         finite(r.Value),
		BaselineRawValue: finitePtr(r.Baseline),
	}
}

func (t Transformed) Record() Record {
	rec := t.Raw.Record()
	rec.TransformedValue = finite(t.TransformedValue)
	rec.TransformedBaselineValue = finitePtr(t.TransformedBaseline)
	return rec
}

func (n Normalized) Record() Record {
	rec := n.Transformed.Record()
	rec.NormalizedValue = finite(n.NormalizedValue)
	return rec
}

// TransformNormalize advances s as far as its data allows and returns the
// resulting state. A Raw score whose metric has a transformation becomes
// Transformed, and Normalized when the baseline is present and neither the
// raw nor the transformed baseline is zero. Scores already past Raw are
// returned unchanged, so the step is idempotent.
//
// The returned error is diagnostic only: it explains why the score stopped
// short (transform.ErrNoTransformation or transform.ErrOutOfDomain) and the
// returned Score is always usable.
func TransformNormalize(s Score, reg *transform.Registry) (Score, error) {
	raw, ok := s.(Raw)
	if !ok {
		return s, nil
	}
	tr, ok := reg.Lookup(raw.Metric)
	if !ok {
		return raw, fmt.Errorf("%s: %w", raw.Metric, transform.ErrNoTransformation)
	}
	v, err := tr.Apply(raw.Value)
	if err != nil {
		return raw, fmt.Errorf("%s value: %w", raw.Metric, err)
	}
	out := Transformed{Raw: raw, TransformedValue: v, Orientation: tr.Orientation}
	if raw.Baseline == nil {
		return out, nil
	}
	tb, err := tr.Apply(*raw.Baseline)
	if err != nil {
		return out, fmt.Errorf("%s baseline: %w", raw.Metric, err)
	}
	out.TransformedBaseline = &tb
	if *raw.Baseline == 0 || tb == 0 {
		return out, nil
	}
	return Normalized{Transformed: out, NormalizedValue: Normalize(v, tb, tr.Orientation)}, nil
}

// Normalize expresses v relative to a non-zero baseline b.
func Normalize(v, b float64, o transform.Orientation) float64 {
	if o == transform.Cost {
		return (b - v) / math.Abs(b)
	}
	return (v - b) / math.Abs(b)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finitePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return finite(*v)
}
