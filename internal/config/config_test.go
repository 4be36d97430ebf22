package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/slopewatch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.PollInterval(), convey.ShouldEqual, 1500*time.Millisecond)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.HistoryCap, convey.ShouldEqual, 30)
			convey.So(cfg.CombinedURL(), convey.ShouldEqual, "http://localhost:5000/api/combined")
			convey.So(cfg.LandslideURL(), convey.ShouldEqual, "http://localhost:5000/api/landslide")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_URLs(t *testing.T) {
	convey.Convey("Given upstream URLs with and without slashes", t, func() {
		cfg := config.New()
		cfg.UpstreamURL = "http://pi.local:5000/"
		cfg.CombinedPath = "api/combined"

		convey.Convey("Then endpoints are joined with exactly one slash", func() {
			convey.So(cfg.CombinedURL(), convey.ShouldEqual, "http://pi.local:5000/api/combined")
			convey.So(cfg.LandslideURL(), convey.ShouldEqual, "http://pi.local:5000/api/landslide")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"empty upstream", func(c *config.Config) { c.UpstreamURL = " " }},
			{"zero interval", func(c *config.Config) { c.PollIntervalMS = 0 }},
			{"negative timeout", func(c *config.Config) { c.RequestTimeoutMS = -1 }},
			{"zero cap", func(c *config.Config) { c.HistoryCap = 0 }},
			{"inverted thresholds", func(c *config.Config) { c.RiskMediumThreshold = 80 }},
			{"zero chart width", func(c *config.Config) { c.ChartWidth = 0 }},
		}

		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
