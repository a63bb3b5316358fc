package evaluate_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hashicorp/go-multierror"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"

	"github.com/usnistgov/dval/internal/domain/evaluate"
	"github.com/usnistgov/dval/internal/domain/metric"
	"github.com/usnistgov/dval/internal/domain/score"
)

func classificationData() evaluate.Data {
	return evaluate.Data{
		TargetNames: []string{"a", "b"},
		Truth: map[string]metric.Frame{
			"a": metric.ColumnFrame("1", "0", "1", "1"),
			"b": metric.ColumnFrame("x", "y", "x", "y"),
		},
		Pred: map[string]metric.Frame{
			"a": metric.ColumnFrame("1", "0", "0", "1"),
			"b": metric.ColumnFrame("x", "y", "y", "y"),
		},
	}
}

func regressionData() evaluate.Data {
	return evaluate.Data{
		TargetNames: []string{"a", "b"},
		Truth: map[string]metric.Frame{
			"a": metric.ColumnFrame("1", "2", "3"),
			"b": metric.ColumnFrame("0", "0", "0"),
		},
		Pred: map[string]metric.Frame{
			"a": metric.ColumnFrame("1", "2", "4"),
			"b": metric.ColumnFrame("1", "1", "1"),
		},
	}
}

type recorder struct {
	mu       sync.Mutex
	outcomes []evaluate.Outcome
}

func (r *recorder) Observe(_ context.Context, o evaluate.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func TestEvaluatePerTarget(t *testing.T) {
	Convey("Given a per-target accuracy spec", t, func() {
		ctx := context.Background()
		rec := &recorder{}
		engine := evaluate.New(evaluate.WithObserver(rec))

		set, err := engine.Evaluate(ctx, classificationData(), []evaluate.Spec{{Name: "accuracy"}}, nil)
		So(err, ShouldBeNil)
		So(set.Len(), ShouldEqual, 2)

		Convey("Scores follow target order", func() {
			records := set.Records()
			So(records[0].Target, ShouldEqual, "a")
			So(records[1].Target, ShouldEqual, "b")
			So(*records[0].RawValue, ShouldEqual, 0.75)
			So(*records[1].RawValue, ShouldEqual, 0.75)
		})

		Convey("Scores without a baseline stop at Transformed", func() {
			sc, ok := set.Get("a", metric.MetricAccuracy)
			So(ok, ShouldBeTrue)
			_, transformed := sc.(score.Transformed)
			So(transformed, ShouldBeTrue)
		})

		Convey("The observer sees every computation", func() {
			So(rec.outcomes, ShouldHaveLength, 2)
			So(rec.outcomes[0].Status, ShouldEqual, evaluate.StatusOK)
			So(rec.outcomes[0].Score, ShouldNotBeNil)
		})
	})

	Convey("Given a baseline for the metric", t, func() {
		engine := evaluate.New()
		set, err := engine.Evaluate(context.Background(), classificationData(),
			[]evaluate.Spec{{Name: "ACCURACY"}}, evaluate.Baselines{"accuracy": 0.5})
		So(err, ShouldBeNil)

		sc, ok := set.Get("b", metric.MetricAccuracy)
		So(ok, ShouldBeTrue)
		norm, isNorm := sc.(score.Normalized)
		So(isNorm, ShouldBeTrue)
		So(norm.NormalizedValue, ShouldAlmostEqual, 0.5)
	})
}

func TestEvaluateAllTargets(t *testing.T) {
	Convey("Given a joint RMSE spec", t, func() {
		spec := evaluate.Spec{Name: "rootMeanSquaredErrorAvg", Applicability: evaluate.AllTargets}
		set, err := evaluate.New().Evaluate(context.Background(), regressionData(), []evaluate.Spec{spec}, nil)
		So(err, ShouldBeNil)
		So(set.Len(), ShouldEqual, 1)

		sc, ok := set.Get(evaluate.AllTargetsName, metric.MetricRootMeanSquaredErrorAvg)
		So(ok, ShouldBeTrue)
		So(*sc.Record().RawValue, ShouldAlmostEqual, 0.7886751345948129, 1e-12)
	})

	Convey("Given applicability requested through params", t, func() {
		spec := evaluate.Spec{
			Name:   "rootMeanSquaredErrorAvg",
			Params: metric.Params{"applicabilityToTarget": "allTargets"},
		}
		set, err := evaluate.New().Evaluate(context.Background(), regressionData(), []evaluate.Spec{spec}, nil)
		So(err, ShouldBeNil)
		So(set.Contains(evaluate.AllTargetsName, metric.MetricRootMeanSquaredErrorAvg), ShouldBeTrue)
	})

	Convey("Given a single-column metric applied jointly", t, func() {
		data := classificationData()
		data.Pred["b"] = metric.ColumnFrame("y", "x", "y", "x")
		data.Pred["a"] = data.Truth["a"]
		spec := evaluate.Spec{Name: "accuracy", Applicability: evaluate.AllTargets}
		set, err := evaluate.New().Evaluate(context.Background(), data, []evaluate.Spec{spec}, nil)

		So(errors.Is(err, metric.ErrInvalidParam), ShouldBeTrue)
		So(set.Contains(evaluate.AllTargetsName, metric.MetricAccuracy), ShouldBeFalse)
	})

	Convey("Given targets of different lengths", t, func() {
		data := regressionData()
		data.Pred["b"] = metric.ColumnFrame("1", "1")
		spec := evaluate.Spec{Name: "rootMeanSquaredErrorAvg", Applicability: evaluate.AllTargets}
		set, err := evaluate.New().Evaluate(context.Background(), data, []evaluate.Spec{spec}, nil)
		So(errors.Is(err, metric.ErrLengthMismatch), ShouldBeTrue)
		So(set.Len(), ShouldEqual, 0)
	})
}

func TestEvaluateFailures(t *testing.T) {
	Convey("Given an unknown metric among valid ones", t, func() {
		rec := &recorder{}
		specs := []evaluate.Spec{{Name: "balancedAccuracy"}, {Name: "accuracy"}}
		set, err := evaluate.New(evaluate.WithObserver(rec)).Evaluate(context.Background(), classificationData(), specs, nil)

		So(errors.Is(err, metric.ErrUnknownMetric), ShouldBeTrue)
		So(set.Len(), ShouldEqual, 2)
		So(rec.outcomes[0].Status, ShouldEqual, evaluate.StatusUnknown)
	})

	Convey("Given a detection batch also scored with a label metric", t, func() {
		data := evaluate.Data{
			TargetNames: []string{"boxes"},
			Truth:       map[string]metric.Frame{"boxes": {{"img", "1", "2", "3", "4"}}},
			Pred:        map[string]metric.Frame{"boxes": {{"img", "1", "2", "3", "4", "0.9"}}},
		}
		specs := []evaluate.Spec{{Name: "accuracy"}, {Name: "objectDetectionAP"}}
		set, err := evaluate.New().Evaluate(context.Background(), data, specs, nil)

		So(err, ShouldNotBeNil)
		var merr *multierror.Error
		So(errors.As(err, &merr), ShouldBeTrue)
		So(merr.Errors, ShouldHaveLength, 1)
		So(errors.Is(err, metric.ErrInvalidParam), ShouldBeTrue)
		So(set.Contains("boxes", metric.MetricObjectDetectionAP), ShouldBeTrue)
		So(set.Contains("boxes", metric.MetricAccuracy), ShouldBeFalse)
	})

	Convey("Given a malformed detection batch", t, func() {
		data := evaluate.Data{
			TargetNames: []string{"boxes", "labels"},
			Truth: map[string]metric.Frame{
				"boxes":  {{"img", "1", "2", "3"}},
				"labels": metric.ColumnFrame("x"),
			},
			Pred: map[string]metric.Frame{
				"boxes":  {{"img", "1", "2", "3", "4", "0.9"}},
				"labels": metric.ColumnFrame("x"),
			},
		}
		set, err := evaluate.New().Evaluate(context.Background(), data, []evaluate.Spec{{Name: "objectDetectionAP"}}, nil)

		So(err, ShouldNotBeNil)
		So(set.Contains("boxes", metric.MetricObjectDetectionAP), ShouldBeFalse)
	})

	Convey("Given an unknown metric", t, func() {
		rec := &recorder{}
		specs := []evaluate.Spec{{Name: "nope"}, {Name: "nope", Applicability: evaluate.AllTargets}}
		_, err := evaluate.New(evaluate.WithObserver(rec)).Evaluate(context.Background(), classificationData(), specs, nil)

		So(errors.Is(err, metric.ErrUnknownMetric), ShouldBeTrue)
		So(rec.outcomes, ShouldHaveLength, 2)
		So(rec.outcomes[0].Target, ShouldBeEmpty)
		So(rec.outcomes[1].Target, ShouldEqual, evaluate.AllTargetsName)
	})

	Convey("Given no targets", t, func() {
		_, err := evaluate.New().Evaluate(context.Background(), evaluate.Data{}, nil, nil)
		So(errors.Is(err, evaluate.ErrNoTargets), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		set, err := evaluate.New().Evaluate(ctx, classificationData(), []evaluate.Spec{{Name: "accuracy"}}, nil)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
		So(set.Len(), ShouldEqual, 0)
	})
}

func TestBaselines(t *testing.T) {
	Convey("Given baselines whose keys fold to one metric", t, func() {
		b := evaluate.Baselines{"f1": 0.2, "F1": 0.4}
		So(errors.Is(b.Validate(), metric.ErrInvalidParam), ShouldBeTrue)

		Convey("The exact spelling still wins", func() {
			specs := []evaluate.Spec{{Name: "F1"}}
			set, err := evaluate.New().Evaluate(context.Background(), classificationData(), specs, evaluate.Baselines{"f1": 0.2, "F1": 0.4})
			So(err, ShouldBeNil)
			sc, ok := set.Get("a", metric.MetricF1)
			So(ok, ShouldBeTrue)
			So(*sc.Record().BaselineRawValue, ShouldEqual, 0.4)
		})
	})

	Convey("Given distinct baselines", t, func() {
		So(evaluate.Baselines{"f1": 0.2, "accuracy": 0.4}.Validate(), ShouldBeNil)
	})
}

func TestCrossEntropyAddOn(t *testing.T) {
	Convey("Given cross-entropy scoring enabled", t, func() {
		engine := evaluate.New(evaluate.WithCrossEntropy(true))
		set, err := engine.Evaluate(context.Background(), classificationData(), []evaluate.Spec{{Name: "accuracy"}}, nil)
		So(err, ShouldBeNil)
		So(set.Len(), ShouldEqual, 4)

		records := set.Records()
		So(records[2].Metric, ShouldEqual, metric.MetricCrossEntropyNonBinarized)
		So(records[2].Target, ShouldEqual, "a")
		So(*records[2].RawValue, ShouldAlmostEqual, 100.0/6, 1e-9)
	})
}

func TestDefaultParams(t *testing.T) {
	Convey("Given engine-wide parameters", t, func() {
		data := evaluate.Data{
			TargetNames: []string{"boxes"},
			Truth:       map[string]metric.Frame{"boxes": {{"img", "0", "0", "10", "10"}}},
			Pred:        map[string]metric.Frame{"boxes": {{"img", "0", "0", "10", "5", "0.9"}}},
		}
		specs := []evaluate.Spec{{Name: "objectDetectionAP"}}

		Convey("They apply when the spec is silent", func() {
			engine := evaluate.New(evaluate.WithDefaultParams(metric.Params{metric.ParamOverlapThreshold: 0.3}))
			set, err := engine.Evaluate(context.Background(), data, specs, nil)
			So(err, ShouldBeNil)
			So(*set.Records()[0].RawValue, ShouldEqual, 1)
		})

		Convey("The spec overrides them", func() {
			engine := evaluate.New(evaluate.WithDefaultParams(metric.Params{metric.ParamOverlapThreshold: 0.3}))
			strict := []evaluate.Spec{{Name: "objectDetectionAP", Params: metric.Params{metric.ParamOverlapThreshold: 0.9}}}
			set, err := engine.Evaluate(context.Background(), data, strict, nil)
			So(err, ShouldBeNil)
			So(*set.Records()[0].RawValue, ShouldEqual, 0)
		})
	})
}

func TestSpecDecoding(t *testing.T) {
	Convey("Given a JSON spec with applicabilityToTarget", t, func() {
		var s evaluate.Spec
		err := json.Unmarshal([]byte(`{"metric": "f1", "params": {"pos_label": 1, "applicabilityToTarget": "allTargets"}}`), &s)
		So(err, ShouldBeNil)
		So(s.Name, ShouldEqual, "f1")
		So(s.Applicability, ShouldEqual, evaluate.AllTargets)
		So(s.Params.Has("applicabilityToTarget"), ShouldBeFalse)
		label, ok := s.Params.String("pos_label")
		So(ok, ShouldBeTrue)
		So(label, ShouldEqual, "1")
	})

	Convey("Given a YAML spec", t, func() {
		var s evaluate.Spec
		err := yaml.Unmarshal([]byte("metric: precisionAtTopK\nparams:\n  K: 5\napplicability: allTargets\n"), &s)
		So(err, ShouldBeNil)
		So(s.Applicability, ShouldEqual, evaluate.AllTargets)
		k, err := s.Params.Int("K", 20)
		So(err, ShouldBeNil)
		So(k, ShouldEqual, 5)
	})

	Convey("Given an unknown applicability", t, func() {
		var s evaluate.Spec
		err := json.Unmarshal([]byte(`{"metric": "f1", "applicability": "sometimes"}`), &s)
		So(errors.Is(err, metric.ErrInvalidParam), ShouldBeTrue)
	})
}
