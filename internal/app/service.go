// Package service provides the scoring service behind the HTTP API and the
// job runner.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/usnistgov/dval/internal/domain/evaluate"
	"github.com/usnistgov/dval/internal/domain/metric"
	"github.com/usnistgov/dval/internal/domain/score"
	"github.com/usnistgov/dval/internal/domain/transform"
	"github.com/usnistgov/dval/pkg/logger"
	"github.com/usnistgov/dval/pkg/metrics"
)

// Run outcomes recorded in metrics.
const (
	outcomeOK      = "ok"
	outcomePartial = "partial"
	outcomeFailed  = "failed"
)

// Response is the result of one scoring run.
type Response struct {
	RunID  string     `json:"runId"`
	Scores *score.Set `json:"scores"`
	// Errors lists the specs that produced no score, one entry per failure.
	Errors []string `json:"errors,omitempty"`
}

// Service scores requests. It is safe for concurrent use.
type Service struct {
	logger       logger.Logger
	params       metric.Params
	crossEntropy bool

	engine   *evaluate.Engine
	engineCE *evaluate.Engine
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCrossEntropy scores crossEntropyNonBinarized on every run, whether or
// not the request asks for it.
func WithCrossEntropy(enabled bool) Option {
	return func(s *Service) { s.crossEntropy = enabled }
}

// WithOverlapThreshold sets the default IoU threshold for object detection.
func WithOverlapThreshold(t float64) Option {
	return func(s *Service) { s.params[metric.ParamOverlapThreshold] = t }
}

// WithElevenPoint selects 11-point interpolated AP by default.
func WithElevenPoint(enabled bool) Option {
	return func(s *Service) { s.params[metric.ParamUseElevenPoint] = enabled }
}

// New constructs a Service over the built-in metric and transformation registries.
func New(opts ...Option) *Service {
	s := &Service{
		logger: logger.Discard(),
		params: metric.Params{},
	}
	for _, opt := range opts {
		opt(s)
	}

	base := []evaluate.Option{
		evaluate.WithMetricRegistry(metric.Default()),
		evaluate.WithTransformRegistry(transform.Default()),
		evaluate.WithLogger(s.logger),
		evaluate.WithDefaultParams(s.params),
		evaluate.WithObserver(evaluate.ObserverFunc(s.observe)),
	}
	s.engine = evaluate.New(append(base, evaluate.WithCrossEntropy(s.crossEntropy))...)
	s.engineCE = evaluate.New(append(base, evaluate.WithCrossEntropy(true))...)
	return s
}

// Metrics lists the metric names the service can compute.
func (s *Service) Metrics() []string {
	return s.engine.Metrics().Names()
}

// Score runs every requested metric. Failing specs do not abort the run:
// they are reported in Response.Errors next to the scores that succeeded.
// An error is returned only for a request that cannot be evaluated at all.
func (s *Service) Score(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID))
	start := time.Now()

	engine := s.engine
	if req.ScoreCrossEntropy {
		engine = s.engineCE
	}

	data := req.data()
	log.Info(ctx, "scoring run started",
		logger.Int("targets", len(data.TargetNames)),
		logger.Int("metrics", len(req.Metrics)),
	)

	set, err := engine.Evaluate(ctx, data, req.Metrics, req.baselines())
	elapsed := float64(time.Since(start).Milliseconds())

	resp := &Response{RunID: runID, Scores: set}
	if err != nil {
		var merr *multierror.Error
		if !errors.As(err, &merr) || ctx.Err() != nil {
			metrics.RecordEvaluation(outcomeFailed, elapsed)
			metrics.RecordErrorByComponent("engine", "run")
			log.Error(ctx, "scoring run failed", logger.Error(err))
			return nil, err
		}
		for _, e := range merr.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
	}

	outcome := outcomeOK
	if len(resp.Errors) > 0 {
		outcome = outcomePartial
	}
	metrics.RecordEvaluation(outcome, elapsed)
	log.Info(ctx, "scoring run finished",
		logger.String("outcome", outcome),
		logger.Int("scores", set.Len()),
		logger.Int("failures", len(resp.Errors)),
		logger.Float64("duration_ms", elapsed),
	)
	return resp, nil
}

// observe mirrors engine outcomes into Prometheus.
func (s *Service) observe(ctx context.Context, o evaluate.Outcome) {
	ms := float64(o.Duration.Microseconds()) / 1000
	if err := metrics.RecordMetricEvaluation(o.Metric, string(o.Status), ms); err != nil {
		s.logger.Debug(ctx, "metric evaluation not recorded", logger.Error(err))
	}
	if o.Status != evaluate.StatusOK {
		metrics.RecordErrorByComponent("metric", string(o.Status))
		return
	}
	if errors.Is(o.Err, transform.ErrOutOfDomain) {
		metrics.RecordOutOfDomain(o.Metric)
	}
	switch o.Score.(type) {
	case score.Normalized:
		metrics.RecordScoreStage(metrics.StageNormalized)
	case score.Transformed:
		metrics.RecordScoreStage(metrics.StageTransformed)
	default:
		metrics.RecordScoreStage(metrics.StageRaw)
	}
}
