package transform

import (
	"fmt"

	"github.com/usnistgov/dval/internal/domain/metric"
)

// Registry maps metric names to transformations. Metrics without an entry are
// not transformable. A Registry is immutable once built.
type Registry struct {
	byName map[string]Transformation
}

// NewRegistry builds a registry. Names are folded like metric names.
func NewRegistry(entries map[string]Transformation) *Registry {
	r := &Registry{byName: make(map[string]Transformation, len(entries))}
	for name, t := range entries {
		r.byName[metric.CanonicalName(name)] = t
	}
	return r
}

var defaultRegistry = NewRegistry(Builtins())

// Default returns the registry of built-in metric transformations.
func Default() *Registry { return defaultRegistry }

// Builtins returns the built-in table. rSquared, jaccardSimilarityScore,
// precisionAtTopK, object detection AP and cross-entropy have no entry.
func Builtins() map[string]Transformation {
	return map[string]Transformation{
		metric.MetricAccuracy:                    Unit(Benefit),
		metric.MetricF1:                          Unit(Benefit),
		metric.MetricF1Micro:                     Unit(Benefit),
		metric.MetricF1Macro:                     Unit(Benefit),
		metric.MetricRocAuc:                      Unit(Benefit),
		metric.MetricRocAucMicro:                 Unit(Benefit),
		metric.MetricRocAucMacro:                 Unit(Benefit),
		metric.MetricNormalizedMutualInformation: Unit(Benefit),
		metric.MetricPrecision:                   Unit(Benefit),
		metric.MetricRecall:                      Unit(Benefit),
		metric.MetricMeanSquaredError:            PositiveLine(Cost),
		metric.MetricRootMeanSquaredError:        PositiveLine(Cost),
		metric.MetricRootMeanSquaredErrorAvg:     PositiveLine(Cost),
		metric.MetricMeanAbsoluteError:           PositiveLine(Cost),
	}
}

// Lookup returns the transformation registered for name.
func (r *Registry) Lookup(name string) (Transformation, bool) {
	t, ok := r.byName[metric.CanonicalName(name)]
	return t, ok
}

// Transform looks up name and applies its transformation to x.
func (r *Registry) Transform(name string, x float64) (float64, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrNoTransformation)
	}
	return t.Apply(x)
}
