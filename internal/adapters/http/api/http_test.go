package api_test

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/slopewatch/internal/adapters/http/api"
	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/internal/dashboard"
	"github.com/okian/slopewatch/internal/domain/history"
	"github.com/okian/slopewatch/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

// mockDependencies serves one combined board with a drawn flood chart and an
// empty landslide chart.
type mockDependencies struct {
	board *render.Board
}

func newMockDependencies() *mockDependencies {
	b := render.NewBoard(dashboard.Combined)
	s := history.New(dashboard.SeriesFlood)
	s.Append("10:00:00", 12)
	s.Append("10:00:01", 48)
	b.Chart(dashboard.SeriesFlood).Redraw(s.Snapshot())
	b.Chart(dashboard.SeriesLandslide)
	b.Indicator(dashboard.SeriesFlood).SetRisk(risk.NewClassifier().Read(risk.Number(48)))
	return &mockDependencies{board: b}
}

func (m *mockDependencies) View(name string) (dashboard.Snapshot, bool) {
	if name != dashboard.Combined {
		return dashboard.Snapshot{}, false
	}
	snap := m.board.Snapshot()
	return dashboard.Snapshot{
		Dashboard:  name,
		Series:     snap.Charts,
		Indicators: snap.Indicators,
		Sequence:   2,
	}, true
}

func (m *mockDependencies) Board(name string) (*render.Board, bool) {
	if name != dashboard.Combined {
		return nil, false
	}
	return m.board, true
}

func (m *mockDependencies) Live() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := newMockDependencies()
		statsProvider := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		server := api.NewServer(deps, statsProvider, api.WithChartSize(300, 150))
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then the health endpoint exposes metrics", func() {
				w := serve(mux, "GET", "/healthz")
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And the stats endpoint is accessible", func() {
				w := serve(mux, "GET", "/stats")
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And a known view is returned as JSON", func() {
				w := serve(mux, "GET", "/api/view/combined")
				So(w.Code, ShouldEqual, http.StatusOK)

				var view dashboard.Snapshot
				So(json.NewDecoder(w.Body).Decode(&view), ShouldBeNil)
				So(view.Dashboard, ShouldEqual, dashboard.Combined)
				So(view.Series[dashboard.SeriesFlood].Values, ShouldResemble, []float64{12, 48})
				So(view.Indicators[dashboard.SeriesFlood].Severity, ShouldEqual, risk.SeverityMedium)
			})

			Convey("And an unknown view is a 404", func() {
				w := serve(mux, "GET", "/api/view/tsunami")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "not_found")
			})

			Convey("And a drawn chart renders as PNG at the configured size", func() {
				w := serve(mux, "GET", "/charts/combined/flood.png")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				img, err := png.Decode(w.Body)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 300)
			})

			Convey("And size can be overridden per request", func() {
				w := serve(mux, "GET", "/charts/combined/flood.png?mini=1&w=160&h=80")
				So(w.Code, ShouldEqual, http.StatusOK)
				img, err := png.Decode(w.Body)
				So(err, ShouldBeNil)
				So(img.Bounds().Dy(), ShouldEqual, 80)
			})

			Convey("And an empty chart has no content", func() {
				w := serve(mux, "GET", "/charts/combined/landslide.png")
				So(w.Code, ShouldEqual, http.StatusNoContent)
			})

			Convey("And unknown charts are 404s", func() {
				So(serve(mux, "GET", "/charts/combined/tilt.png").Code, ShouldEqual, http.StatusNotFound)
				So(serve(mux, "GET", "/charts/tsunami/flood.png").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And a chart path without the png suffix is rejected", func() {
				w := serve(mux, "GET", "/charts/combined/flood")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And the websocket route reaches the live handler", func() {
				w := serve(mux, "GET", "/ws")
				So(w.Code, ShouldEqual, http.StatusTeapot)
			})

			Convey("And the root catches nothing else", func() {
				w := serve(mux, "GET", "/unknown")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And the dashboard page is served", func() {
				w := serve(mux, "GET", "/dashboard")
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, `data-dashboard="combined"`)
				So(body, ShouldContainSubstring, `data-text="rain_status"`)
				So(body, ShouldContainSubstring, "/ws")
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-cache")
			})

			Convey("And the dashboard page rejects writes", func() {
				w := serve(mux, "POST", "/dashboard")
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling health check request", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return OK status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"started":    true,
				"historyCap": 30,
				"dashboards": map[string]interface{}{
					"landslide": map[string]interface{}{"bufferLengths": map[string]int{"tilt": 4}},
				},
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["started"], ShouldEqual, true)
				So(response["historyCap"], ShouldEqual, 30.0)
			})
		})

		Convey("When asking for one dashboard", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest("GET", "/stats?dashboard=landslide", nil))

			Convey("Then only its counters are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Cache-Control"), ShouldEqual, "no-store")
				var response map[string]map[string]float64
				So(json.NewDecoder(w.Body).Decode(&response), ShouldBeNil)
				So(response["bufferLengths"]["tilt"], ShouldEqual, 4.0)
			})
		})

		Convey("When asking for an unknown dashboard", func() {
			w := httptest.NewRecorder()
			handler.HandleStats(w, httptest.NewRequest("GET", "/stats?dashboard=volcano", nil))

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "volcano")
			})
		})

		Convey("When using a method other than GET", func() {
			req := httptest.NewRequest("POST", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it is not found", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
