package evaluate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/usnistgov/dval/internal/domain/metric"
	"github.com/usnistgov/dval/internal/domain/score"
	"github.com/usnistgov/dval/internal/domain/transform"
	"github.com/usnistgov/dval/pkg/logger"
)

// Data is the aligned input of one evaluation run.
type Data struct {
	// TargetNames fixes target order, including the column order of joint metrics.
	TargetNames []string
	Truth       map[string]metric.Frame
	Pred        map[string]metric.Frame
}

// Baselines holds reference raw values keyed by metric name. Lookups fold
// names like the metric registry does; an exact key wins over folded ones.
type Baselines map[string]float64

// Validate rejects keys that fold to the same metric name.
func (b Baselines) Validate() error {
	seen := make(map[string]string, len(b))
	for _, k := range slices.Sorted(maps.Keys(b)) {
		canon := metric.CanonicalName(k)
		if prev, dup := seen[canon]; dup {
			return fmt.Errorf("baselines %q and %q name the same metric: %w", prev, k, metric.ErrInvalidParam)
		}
		seen[canon] = k
	}
	return nil
}

func (b Baselines) lookup(name string) *float64 {
	if v, ok := b[name]; ok {
		return &v
	}
	want := metric.CanonicalName(name)
	for _, k := range slices.Sorted(maps.Keys(b)) {
		if metric.CanonicalName(k) == want {
			v := b[k]
			return &v
		}
	}
	return nil
}

// Status classifies a single metric computation.
type Status string

// Computation statuses.
const (
	StatusOK      Status = "ok"
	StatusUnknown Status = "unknown"
	StatusFailed  Status = "failed"
)

// Outcome describes one metric computation, reported to the Observer.
type Outcome struct {
	Target   string
	Metric   string
	Status   Status
	Score    score.Score // nil unless Status is StatusOK
	Err      error       // computation error, or the reason the score stopped short
	Duration time.Duration
}

// Observer receives an Outcome for every attempted computation.
type Observer interface {
	Observe(ctx context.Context, o Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, o Outcome)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, o Outcome) { f(ctx, o) }

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMetricRegistry replaces the built-in metric registry.
func WithMetricRegistry(r *metric.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithTransformRegistry replaces the built-in transformation registry.
func WithTransformRegistry(r *transform.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.transforms = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an observer for computation outcomes.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithCrossEntropy appends a crossEntropyNonBinarized score for every target
// after the requested specs.
func WithCrossEntropy(enabled bool) Option {
	return func(e *Engine) { e.crossEntropy = enabled }
}

// WithDefaultParams supplies parameters for every spec that does not set them.
func WithDefaultParams(p metric.Params) Option {
	return func(e *Engine) {
		for k, v := range p {
			e.defaults[k] = v
		}
	}
}

// Engine evaluates metric specs. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	metrics      *metric.Registry
	transforms   *transform.Registry
	logger       logger.Logger
	observers    []Observer
	crossEntropy bool
	defaults     metric.Params
}

// New creates an Engine with the built-in registries.
func New(opts ...Option) *Engine {
	e := &Engine{
		metrics:    metric.Default(),
		transforms: transform.Default(),
		logger:     logger.Discard(),
		defaults:   metric.Params{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Metrics returns the metric registry in use.
func (e *Engine) Metrics() *metric.Registry { return e.metrics }

// Evaluate applies every spec to data and returns the scores in spec order,
// targets in TargetNames order. A failing spec is skipped and its error is
// collected; the returned error, if any, is a *multierror.Error listing every
// failure alongside the partial Set.
func (e *Engine) Evaluate(ctx context.Context, data Data, specs []Spec, baselines Baselines) (*score.Set, error) {
	if len(data.TargetNames) == 0 {
		return score.NewSet(), ErrNoTargets
	}

	var (
		scores []score.Score
		errs   *multierror.Error
	)
	for _, requested := range specs {
		if err := ctx.Err(); err != nil {
			return score.NewSet(scores...), multierror.Append(errs, err)
		}
		spec, err := requested.normalize()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("spec %q: %w", requested.Name, err))
			continue
		}
		produced, err := e.evaluateSpec(ctx, data, spec, baselines.lookup(spec.Name))
		scores = append(scores, produced...)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if e.crossEntropy {
		spec := Spec{Name: metric.MetricCrossEntropyNonBinarized}
		produced, err := e.evaluateSpec(ctx, data, spec, nil)
		scores = append(scores, produced...)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return score.NewSet(scores...), errs.ErrorOrNil()
}

func (e *Engine) evaluateSpec(ctx context.Context, data Data, spec Spec, baseline *float64) ([]score.Score, error) {
	name, ok := e.metrics.Canonical(spec.Name)
	if !ok {
		e.logger.Warn(ctx, "unknown metric, skipping",
			logger.String("metric", spec.Name),
			logger.Strings("available", e.metrics.Names()),
		)
		err := fmt.Errorf("resolve %q: %w", spec.Name, metric.ErrUnknownMetric)
		var target string
		if spec.Applicability == AllTargets {
			target = AllTargetsName
		}
		e.notify(ctx, Outcome{Target: target, Metric: spec.Name, Status: StatusUnknown, Err: err})
		return nil, err
	}
	fn, err := e.metrics.Resolve(name)
	if err != nil {
		return nil, err
	}
	params := e.withDefaults(spec.Params)

	switch spec.Applicability {
	case AllTargets:
		truth, pred, err := joint(data)
		if err != nil {
			return nil, fmt.Errorf("%s over %s: %w", name, AllTargetsName, err)
		}
		sc, err := e.compute(ctx, fn, name, AllTargetsName, truth, pred, params, baseline)
		if err != nil {
			return nil, err
		}
		return []score.Score{sc}, nil
	case PerTarget:
		var (
			out  []score.Score
			errs *multierror.Error
		)
		for _, target := range data.TargetNames {
			sc, err := e.compute(ctx, fn, name, target, data.Truth[target], data.Pred[target], params, baseline)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			out = append(out, sc)
		}
		return out, errs.ErrorOrNil()
	default:
		return nil, fmt.Errorf("%s: applicability %d: %w", name, spec.Applicability, metric.ErrInvalidParam)
	}
}

func (e *Engine) compute(ctx context.Context, fn metric.Func, name, target string, truth, pred metric.Frame, params metric.Params, baseline *float64) (score.Score, error) {
	start := time.Now()
	value, err := fn(truth, pred, params)
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s on %s: %w", name, target, err)
		e.logger.Error(ctx, "metric failed",
			logger.String("metric", name),
			logger.String("target", target),
			logger.Error(err),
		)
		e.notify(ctx, Outcome{Target: target, Metric: name, Status: StatusFailed, Err: err, Duration: elapsed})
		return nil, err
	}

	sc, reason := score.TransformNormalize(score.New(target, name, value, baseline), e.transforms)
	switch {
	case errors.Is(reason, transform.ErrOutOfDomain):
		e.logger.Warn(ctx, "score outside transformation domain",
			logger.String("metric", name),
			logger.String("target", target),
			logger.Float64("value", value),
			logger.Error(reason),
		)
	case reason != nil:
		e.logger.Debug(ctx, "score not transformed",
			logger.String("metric", name),
			logger.String("target", target),
			logger.Error(reason),
		)
	}
	e.logger.Debug(ctx, "metric computed",
		logger.String("metric", name),
		logger.String("target", target),
		logger.Float64("value", value),
		logger.Any("elapsed", elapsed),
	)
	e.notify(ctx, Outcome{Target: target, Metric: name, Status: StatusOK, Score: sc, Err: reason, Duration: elapsed})
	return sc, nil
}

func (e *Engine) withDefaults(p metric.Params) metric.Params {
	if len(e.defaults) == 0 {
		return p
	}
	out := make(metric.Params, len(e.defaults)+len(p))
	for k, v := range e.defaults {
		out[k] = v
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (e *Engine) notify(ctx context.Context, o Outcome) {
	for _, obs := range e.observers {
		obs.Observe(ctx, o)
	}
}

// joint assembles row-major matrices with one column per target, taking
// column 0 of each target's frames in TargetNames order.
func joint(data Data) (metric.Frame, metric.Frame, error) {
	var n int
	truthCols := make([][]string, len(data.TargetNames))
	predCols := make([][]string, len(data.TargetNames))
	for j, target := range data.TargetNames {
		t, p := data.Truth[target], data.Pred[target]
		if j == 0 {
			n = len(t)
		}
		if len(t) != n || len(p) != n {
			return nil, nil, fmt.Errorf("target %s has %d/%d rows, want %d: %w", target, len(t), len(p), n, metric.ErrLengthMismatch)
		}
		var err error
		if truthCols[j], err = t.Column(0); err != nil {
			return nil, nil, fmt.Errorf("target %s truth: %w", target, err)
		}
		if predCols[j], err = p.Column(0); err != nil {
			return nil, nil, fmt.Errorf("target %s predictions: %w", target, err)
		}
	}

	truth := make(metric.Frame, n)
	pred := make(metric.Frame, n)
	for i := 0; i < n; i++ {
		truth[i] = make(metric.Row, len(truthCols))
		pred[i] = make(metric.Row, len(predCols))
		for j := range truthCols {
			truth[i][j] = truthCols[j][i]
			pred[i][j] = predCols[j][i]
		}
	}
	return truth, pred, nil
}
