package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/slopewatch/internal/adapters/mqtt"
	service "github.com/okian/slopewatch/internal/app"
	"github.com/okian/slopewatch/internal/dashboard"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func upstream() *httptest.Server {
	var n atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/combined", func(w http.ResponseWriter, _ *http.Request) {
		i := n.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"timestamp":"t%d","landslide":20,"flood":40,"combined":65}`, i)
	})
	mux.HandleFunc("/api/landslide", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"labels":["a","b"],"soil1":[610,620],"soil2":[600,605],"tilt":[3,4],"vibration":[0,0],"rain":[1,0],"landslide_danger":"Low"}`)
	})
	return httptest.NewServer(mux)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it exposes both dashboards without polling", func() {
			So(svc, ShouldNotBeNil)
			view, ok := svc.View(dashboard.Combined)
			So(ok, ShouldBeTrue)
			So(view.Sequence, ShouldEqual, uint64(0))
			_, ok = svc.View("unknown")
			So(ok, ShouldBeFalse)
			_, ok = svc.Board(dashboard.Landslide)
			So(ok, ShouldBeTrue)
			So(svc.Hub(), ShouldNotBeNil)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service pointed at a test upstream", t, func() {
		srv := upstream()
		defer srv.Close()

		svc := service.New(
			service.WithUpstream(srv.URL+"/api/combined", srv.URL+"/api/landslide"),
			service.WithInterval(20*time.Millisecond),
			service.WithRequestTimeout(time.Second),
			service.WithHistoryCap(5),
			service.WithRiskThresholds(25, 50),
		)
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then both dashboards fill their buffers up to the cap", func() {
				So(waitFor(func() bool {
					v, _ := svc.View(dashboard.Combined)
					return v.Series[dashboard.SeriesCombined].Len() == 5
				}), ShouldBeTrue)

				v, _ := svc.View(dashboard.Combined)
				So(v.Indicators[dashboard.SeriesLandslide].Severity, ShouldEqual, risk.SeverityLow)
				So(v.Indicators[dashboard.SeriesFlood].Severity, ShouldEqual, risk.SeverityMedium)
				So(v.Indicators[dashboard.SeriesCombined].Severity, ShouldEqual, risk.SeverityHigh)

				So(waitFor(func() bool {
					l, _ := svc.View(dashboard.Landslide)
					return l.Sequence > 0
				}), ShouldBeTrue)
				l, _ := svc.View(dashboard.Landslide)
				So(l.Series[dashboard.SeriesSoil1].Values[0], ShouldEqual, 620.0)
				So(l.Labels[dashboard.TextRainStatus], ShouldEqual, risk.LabelNoRain)
			})

			Convey("And the boards mirror what was drawn", func() {
				So(waitFor(func() bool {
					b, _ := svc.Board(dashboard.Combined)
					return b.Snapshot().Redraws > 0
				}), ShouldBeTrue)
			})

			Convey("And stats report the running state", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["historyCap"], ShouldEqual, 5)
				So(stats["mqttEnabled"], ShouldEqual, false)
				So(stats["dashboards"], ShouldContainKey, dashboard.Landslide)
			})

			Convey("When stopping the service", func() {
				svc.Stop()

				Convey("Then it is marked as stopped and no longer polls", func() {
					So(svc.GetStats()["started"], ShouldEqual, false)
					before, _ := svc.View(dashboard.Combined)
					time.Sleep(60 * time.Millisecond)
					after, _ := svc.View(dashboard.Combined)
					So(after.Sequence, ShouldEqual, before.Sequence)
				})
			})
		})
	})
}

func TestService_UnreachableBroker(t *testing.T) {
	Convey("Given a service configured with an unreachable MQTT broker", t, func() {
		srv := upstream()
		defer srv.Close()

		svc := service.New(
			service.WithUpstream(srv.URL+"/api/combined", srv.URL+"/api/landslide"),
			service.WithMQTT(mqtt.ClientConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test"}, ""),
		)
		defer svc.Stop()

		Convey("When starting", func() {
			err := svc.Start(context.Background())

			Convey("Then the dashboards still run without the publisher", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["mqttEnabled"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Restart(t *testing.T) {
	Convey("Given a service that was started and stopped", t, func() {
		srv := upstream()
		defer srv.Close()

		svc := service.New(
			service.WithUpstream(srv.URL+"/api/combined", srv.URL+"/api/landslide"),
			service.WithInterval(20*time.Millisecond),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		So(waitFor(func() bool {
			v, _ := svc.View(dashboard.Combined)
			return v.Sequence > 0
		}), ShouldBeTrue)
		svc.Stop()
		first, _ := svc.View(dashboard.Combined)

		Convey("When it is started again", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			Reset(svc.Stop)
			live := httptest.NewServer(svc.Live())
			defer live.Close()

			Convey("Then polling resumes and viewers can connect", func() {
				So(waitFor(func() bool {
					v, _ := svc.View(dashboard.Combined)
					return v.Sequence > first.Sequence
				}), ShouldBeTrue)

				url := "ws" + strings.TrimPrefix(live.URL, "http")
				conn, _, err := websocket.DefaultDialer.Dial(url, nil)
				So(err, ShouldBeNil)
				defer func() { _ = conn.Close() }()
				_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				_, msg, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				So(len(msg), ShouldBeGreaterThan, 0)
				So(svc.Hub().Clients(), ShouldEqual, 1)
			})

			Convey("And it stops cleanly a second time", func() {
				So(svc.Stop, ShouldNotPanic)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}
