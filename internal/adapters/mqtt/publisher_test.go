package mqtt_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/slopewatch/internal/adapters/mqtt"
	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeBroker struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, _ := payload.([]byte)
	b.msgs = append(b.msgs, published{topic: topic, qos: qos, retained: retained, payload: data})
	return doneToken{err: b.err}
}

func (b *fakeBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

func TestFormatTopic(t *testing.T) {
	Convey("Given a topic pattern with placeholders", t, func() {
		got := mqtt.FormatTopic("slopewatch/{dashboard}/{indicator}", "combined", "flood")

		Convey("Then both are replaced", func() {
			So(got, ShouldEqual, "slopewatch/combined/flood")
		})

		Convey("And a fixed topic is left alone", func() {
			So(mqtt.FormatTopic("alerts", "combined", "flood"), ShouldEqual, "alerts")
		})
	})
}

func TestPublisher(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	Convey("Given a publisher on a fake broker", t, func() {
		broker := &fakeBroker{}
		pub := mqtt.NewPublisher(broker, "slopewatch/{dashboard}/{indicator}")
		board := render.NewBoard("combined", render.WithListener(pub))

		ctx, cancel := context.WithCancel(context.Background())
		go pub.Start(ctx)
		Reset(cancel)

		Convey("When an indicator changes", func() {
			board.Indicator("flood").SetRisk(risk.NewClassifier().Read(risk.Number(64.25)))

			Convey("Then one QoS 1, non-retained message is published", func() {
				deadline := time.Now().Add(2 * time.Second)
				for broker.count() == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(broker.count(), ShouldEqual, 1)

				m := broker.msgs[0]
				So(m.topic, ShouldEqual, "slopewatch/combined/flood")
				So(m.qos, ShouldEqual, byte(1))
				So(m.retained, ShouldBeFalse)

				var body map[string]any
				So(json.Unmarshal(m.payload, &body), ShouldBeNil)
				So(body["text"], ShouldEqual, "64.3")
				So(body["severity"], ShouldEqual, "high")
				So(body["value"], ShouldEqual, 64.25)
			})
		})

		Convey("When charts or labels change", func() {
			board.Text("rain_status").SetText("Raining")
			time.Sleep(20 * time.Millisecond)

			Convey("Then nothing is published", func() {
				So(broker.count(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a broker that rejects publishes", t, func() {
		broker := &fakeBroker{err: errors.New("not authorized")}
		pub := mqtt.NewPublisher(broker, "alerts")

		Convey("When publishing directly", func() {
			err := pub.Publish(mqtt.IndicatorMessage{Dashboard: "landslide", Indicator: "landslide_danger"})

			Convey("Then ErrPublish is returned", func() {
				So(errors.Is(err, mqtt.ErrPublish), ShouldBeTrue)
			})
		})
	})
}
