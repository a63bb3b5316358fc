package metric

import (
	"fmt"
	"sort"
	"sync"
)

// Func computes one metric over aligned ground truth and predictions.
type Func func(truth, pred Frame, params Params) (float64, error)

// Registry maps metric names to their functions. Lookups fold case and
// underscores. A Registry is immutable once built and safe for concurrent use.
type Registry struct {
	funcs map[string]entry
	names []string
}

type entry struct {
	name string
	fn   Func
}

// NewRegistry builds a registry from name -> function pairs.
func NewRegistry(funcs map[string]Func) (*Registry, error) {
	r := &Registry{funcs: make(map[string]entry, len(funcs))}
	for name, fn := range funcs {
		if fn == nil {
			return nil, fmt.Errorf("metric %q has no function: %w", name, ErrInvalidParam)
		}
		key := CanonicalName(name)
		if prev, dup := r.funcs[key]; dup {
			return nil, fmt.Errorf("metric %q collides with %q: %w", name, prev.name, ErrInvalidParam)
		}
		r.funcs[key] = entry{name: name, fn: fn}
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of built-in metrics.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(Builtins())
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Builtins returns a fresh copy of the built-in metric table, for callers
// that want to extend it before building their own Registry.
func Builtins() map[string]Func {
	return map[string]Func{
		MetricAccuracy:                        Accuracy,
		MetricF1:                              F1,
		MetricF1Micro:                         F1Micro,
		MetricF1Macro:                         F1Macro,
		MetricRocAuc:                          RocAuc,
		MetricRocAucMicro:                     RocAucMicro,
		MetricRocAucMacro:                     RocAucMacro,
		MetricMeanSquaredError:                MeanSquaredError,
		MetricRootMeanSquaredError:            RootMeanSquaredError,
		MetricRootMeanSquaredErrorAvg:         RootMeanSquaredErrorAvg,
		MetricMeanAbsoluteError:               MeanAbsoluteError,
		MetricRSquared:                        RSquared,
		MetricNormalizedMutualInformation:     NormalizedMutualInformation,
		MetricJaccardSimilarityScore:          JaccardSimilarity,
		MetricPrecisionAtTopK:                 PrecisionAtTopK,
		MetricObjectDetectionAP:               ObjectDetectionAP,
		MetricObjectDetectionAveragePrecision: ObjectDetectionAP,
		MetricPrecision:                       Precision,
		MetricRecall:                          Recall,
		MetricCrossEntropy:                    CrossEntropy,
		MetricCrossEntropyNonBinarized:        CrossEntropyNonBinarized,
	}
}

// Resolve returns the function registered under name.
func (r *Registry) Resolve(name string) (Func, error) {
	e, ok := r.funcs[CanonicalName(name)]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrUnknownMetric)
	}
	return e.fn, nil
}

// IsKnown reports whether name resolves.
func (r *Registry) IsKnown(name string) bool {
	_, ok := r.funcs[CanonicalName(name)]
	return ok
}

// Canonical returns the registered spelling of name.
func (r *Registry) Canonical(name string) (string, bool) {
	e, ok := r.funcs[CanonicalName(name)]
	return e.name, ok
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
