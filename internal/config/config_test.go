package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/usnistgov/dval/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.OverlapThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.ScoreCrossEntropy, convey.ShouldBeFalse)
			convey.So(cfg.ReadTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.WriteTimeout(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid fields", t, func() {
		ctx := context.Background()
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"unknown format":    func(c *config.Config) { c.LogFormat = "xml" },
			"negative overlap":  func(c *config.Config) { c.OverlapThreshold = -0.1 },
			"overlap above one": func(c *config.Config) { c.OverlapThreshold = 1.5 },
			"zero timeout":      func(c *config.Config) { c.ReadTimeoutMS = 0 },
			"zero body limit":   func(c *config.Config) { c.MaxRequestBytes = 0 },
		}
		for _, mutate := range cases {
			cfg := config.New(ctx)
			mutate(cfg)
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		}
	})

	convey.Convey("Given job mode without an address", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = ""
		cfg.JobPath = "job.yaml"
		convey.So(cfg.Validate(), convey.ShouldBeNil)
	})
}
