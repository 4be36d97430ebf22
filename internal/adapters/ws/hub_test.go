package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/internal/adapters/ws"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func readMessage(conn *websocket.Conn) (ws.Message, map[string]any, error) {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return ws.Message{}, nil, err
	}
	var m ws.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return ws.Message{}, nil, err
	}
	payload, _ := m.Payload.(map[string]any)
	return m, payload, nil
}

func TestHub(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	Convey("Given a running hub behind a test server", t, func() {
		board := render.NewBoard("landslide")
		board.Text("rain_status").SetText(risk.LabelNoRain)

		hub := ws.NewHub(ws.WithBoards(board))
		board.Subscribe(hub)

		ctx, cancel := context.WithCancel(context.Background())
		go hub.Run(ctx)
		srv := httptest.NewServer(hub)
		Reset(func() {
			srv.Close()
			cancel()
		})

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		Reset(func() { _ = conn.Close() })

		So(waitFor(func() bool { return hub.Clients() == 1 }), ShouldBeTrue)

		Convey("When a viewer connects", func() {
			m, _, err := readMessage(conn)

			Convey("Then it is greeted with the current board state", func() {
				So(err, ShouldBeNil)
				So(m.Type, ShouldEqual, render.KindText)
				So(m.Dashboard, ShouldEqual, "landslide")
				So(m.Name, ShouldEqual, "rain_status")
				So(m.Payload, ShouldEqual, risk.LabelNoRain)
			})
		})

		Convey("When an indicator is redrawn", func() {
			_, _, err := readMessage(conn)
			So(err, ShouldBeNil)

			board.Indicator("landslide_danger").SetRisk(risk.NewClassifier().Read(risk.Number(75)))
			m, payload, err := readMessage(conn)

			Convey("Then the viewer receives it", func() {
				So(err, ShouldBeNil)
				So(m.Type, ShouldEqual, render.KindIndicator)
				So(m.Name, ShouldEqual, "landslide_danger")
				So(payload["text"], ShouldEqual, "75")
				So(payload["severity"], ShouldEqual, "high")
			})
		})

		Convey("When the viewer disconnects", func() {
			_ = conn.Close()

			Convey("Then it is unregistered", func() {
				So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
			})
		})

		Convey("When the hub stops", func() {
			cancel()

			Convey("Then every viewer is disconnected", func() {
				So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
			})
		})
	})
}

func TestFromEvent(t *testing.T) {
	Convey("Given a text redraw event", t, func() {
		m := ws.FromEvent(render.Event{Dashboard: "landslide", Name: "rain_status", Kind: render.KindText, Text: "Raining"})

		Convey("Then the payload is the label", func() {
			So(m.Payload, ShouldEqual, "Raining")
			So(m.Type, ShouldEqual, render.KindText)
		})
	})
}
