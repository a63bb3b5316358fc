package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()
			So(err, ShouldBeNil)
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf)), ShouldBeNil)

		Convey("When logging with fields", func() {
			Get().With(String("run_id", "r-1")).Info(context.Background(), "scored",
				String("metric", "f1Macro"),
				Float64("value", 0.5),
				Bool("normalized", true),
			)

			Convey("Then the record carries every field and the call site", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "scored")
				So(rec["run_id"], ShouldEqual, "r-1")
				So(rec["metric"], ShouldEqual, "f1Macro")
				So(rec["value"], ShouldEqual, 0.5)
				So(rec["normalized"], ShouldEqual, true)
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters a record", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(context.Background(), "dropped")
			So(buf.Len(), ShouldEqual, 0)
			So(SetLevelString("info"), ShouldBeNil)
		})
	})
}

func TestLoggerNamed(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then named loggers can be derived", func() {
			named := Named("engine")
			So(named, ShouldNotBeNil)
			named.Debug(context.Background(), "test message")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " ERROR "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestDiscard(t *testing.T) {
	Convey("Given the discard logger", t, func() {
		l := Discard()
		So(func() {
			l.Error(context.Background(), "nothing", Error(context.Canceled))
			l.Named("x").With(Int("n", 1)).Warn(context.Background(), "nothing")
		}, ShouldNotPanic)
	})
}
