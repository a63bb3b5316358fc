package metric_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/usnistgov/dval/internal/domain/metric"
)

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		reg := metric.Default()

		Convey("Names fold case and underscores", func() {
			for _, name := range []string{"f1_macro", "F1Macro", "f1macro", " F1_MACRO "} {
				So(reg.IsKnown(name), ShouldBeTrue)
				canon, ok := reg.Canonical(name)
				So(ok, ShouldBeTrue)
				So(canon, ShouldEqual, metric.MetricF1Macro)
			}
		})

		Convey("Both object detection spellings resolve", func() {
			So(reg.IsKnown("objectDetectionAP"), ShouldBeTrue)
			So(reg.IsKnown("objectDetectionAveragePrecision"), ShouldBeTrue)
		})

		Convey("Resolved functions compute", func() {
			fn, err := reg.Resolve("ACCURACY")
			So(err, ShouldBeNil)
			v, err := fn(metric.ColumnFrame("a", "b"), metric.ColumnFrame("a", "a"), nil)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0.5)
		})

		Convey("Unknown names fail without panicking", func() {
			So(reg.IsKnown("balancedAccuracy"), ShouldBeFalse)
			_, err := reg.Resolve("balancedAccuracy")
			So(errors.Is(err, metric.ErrUnknownMetric), ShouldBeTrue)
		})

		Convey("Names lists every built-in", func() {
			So(reg.Names(), ShouldHaveLength, len(metric.Builtins()))
			So(reg.Names(), ShouldContain, metric.MetricCrossEntropyNonBinarized)
		})
	})

	Convey("Given a custom table", t, func() {
		Convey("Colliding names are rejected", func() {
			_, err := metric.NewRegistry(map[string]metric.Func{
				"myScore":  metric.Accuracy,
				"my_score": metric.Accuracy,
			})
			So(errors.Is(err, metric.ErrInvalidParam), ShouldBeTrue)
		})

		Convey("Nil functions are rejected", func() {
			_, err := metric.NewRegistry(map[string]metric.Func{"empty": nil})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClasses(t *testing.T) {
	Convey("Given numeric labels", t, func() {
		So(metric.Classes([]string{"10", "9", "1"}, []string{"2"}), ShouldResemble, []string{"1", "2", "9", "10"})
	})

	Convey("Given mixed labels", t, func() {
		So(metric.Classes([]string{"b", "10", "a", "9"}), ShouldResemble, []string{"10", "9", "a", "b"})
	})
}
