package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/usnistgov/dval/internal/app"
)

const regressionJob = `
targets: [height, weight]
truth:
  height: [1, 2, 3]
  weight: [0, 0, 0]
predictions:
  height: [1, 2, 4]
  weight: [1, 1, 1]
metrics:
  - metric: rootMeanSquaredError
  - metric: rootMeanSquaredErrorAvg
    params:
      applicabilityToTarget: allTargets
  - metric: rSquared
baselines:
  rootMeanSquaredError: 2
`

const detectionJob = `
truth:
  boxes:
    - [img1, "10,10,50,50"]
    - [img2, "0,0,20,20"]
predictions:
  boxes:
    - [img1, "12,12,48,52", 0.9]
    - [img2, "0,0,20,8", 0.8]
metrics:
  - metric: objectDetectionAP
  - metric: object_detection_average_precision
    params:
      overlap_threshold: 0.1
`

func TestServiceIntegration(t *testing.T) {
	Convey("Given a YAML regression job", t, func() {
		ctx := context.Background()
		req, err := service.DecodeRequest([]byte(regressionJob), service.FormatYAML)
		So(err, ShouldBeNil)

		resp, err := service.New().Score(ctx, req)
		So(err, ShouldBeNil)
		So(resp.Errors, ShouldBeEmpty)

		Convey("Then per-target and joint scores follow spec order", func() {
			records := resp.Scores.Records()
			So(records, ShouldHaveLength, 5)
			So(records[0].Target, ShouldEqual, "height")
			So(records[1].Target, ShouldEqual, "weight")
			So(records[2].Target, ShouldEqual, "allTargets")
			So(records[3].Metric, ShouldEqual, "rSquared")
		})

		Convey("And RMSE against its baseline is normalized", func() {
			rmse, ok := resp.Scores.Get("weight", "rootMeanSquaredError")
			So(ok, ShouldBeTrue)
			rec := rmse.Record()
			So(*rec.RawValue, ShouldEqual, 1)
			So(rec.NormalizedValue, ShouldNotBeNil)
		})

		Convey("And constant truth gives a zero R squared for imperfect predictions", func() {
			r2, ok := resp.Scores.Get("weight", "rSquared")
			So(ok, ShouldBeTrue)
			So(*r2.Record().RawValue, ShouldEqual, 0)
		})
	})

	Convey("Given a YAML detection job", t, func() {
		req, err := service.DecodeRequest([]byte(detectionJob), service.FormatYAML)
		So(err, ShouldBeNil)

		resp, err := service.New().Score(context.Background(), req)
		So(err, ShouldBeNil)
		So(resp.Errors, ShouldBeEmpty)

		Convey("Then the default threshold misses the second image", func() {
			ap, ok := resp.Scores.Get("boxes", "objectDetectionAP")
			So(ok, ShouldBeTrue)
			So(*ap.Record().RawValue, ShouldAlmostEqual, 0.5)
		})

		Convey("And a per-spec threshold overrides the default", func() {
			ap, ok := resp.Scores.Get("boxes", "object_detection_average_precision")
			So(ok, ShouldBeTrue)
			So(*ap.Record().RawValue, ShouldAlmostEqual, 1)
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a shared service", t, func() {
		svc := service.New()
		const workers = 16

		Convey("When many goroutines score concurrently", func() {
			var wg sync.WaitGroup
			ids := make([]string, workers)
			errs := make([]error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					doc := fmt.Sprintf(`{"truth": {"t": [%d, 1]}, "predictions": {"t": [1, 1]}, "metrics": [{"metric": "accuracy"}]}`, i%2)
					req, err := service.DecodeRequest([]byte(doc), service.FormatJSON)
					if err != nil {
						errs[i] = err
						return
					}
					resp, err := svc.Score(context.Background(), req)
					if err != nil {
						errs[i] = err
						return
					}
					ids[i] = resp.RunID
				}(i)
			}
			wg.Wait()

			Convey("Then all runs succeed with distinct ids", func() {
				seen := map[string]bool{}
				for i := 0; i < workers; i++ {
					So(errs[i], ShouldBeNil)
					So(seen[ids[i]], ShouldBeFalse)
					seen[ids[i]] = true
				}
			})
		})
	})
}
