package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/slopewatch/internal/domain/model"
	"github.com/okian/slopewatch/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeCombined(t *testing.T) {
	Convey("Given combined payloads", t, func() {
		Convey("When the payload is well formed", func() {
			s, err := model.DecodeCombined([]byte(`{"timestamp":"t1","landslide":5,"flood":2,"combined":7}`))

			Convey("Then all three values are extracted", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, model.CombinedSample{Label: "t1", Landslide: 5, Flood: 2, Combined: 7})
			})
		})

		Convey("When the timestamp is numeric", func() {
			s, err := model.DecodeCombined([]byte(`{"timestamp":1700000000,"landslide":1,"flood":1,"combined":1}`))

			Convey("Then its literal text becomes the label", func() {
				So(err, ShouldBeNil)
				So(s.Label, ShouldEqual, "1700000000")
			})
		})

		Convey("When the upstream falls back to its idle payload", func() {
			s, err := model.DecodeCombined([]byte(`{"landslide":0,"flood":0,"combined":0,"timestamp":"NA"}`))

			Convey("Then it is still a valid sample", func() {
				So(err, ShouldBeNil)
				So(s.Label, ShouldEqual, "NA")
			})
		})

		Convey("When the payload carries a truthy error marker", func() {
			for _, body := range []string{
				`{"error":true}`,
				`{"error":"sensor offline","timestamp":"t1","landslide":5,"flood":2,"combined":7}`,
				`{"error":{"code":1}}`,
				`{"error":1}`,
			} {
				_, err := model.DecodeCombined([]byte(body))
				So(errors.Is(err, model.ErrUpstreamError), ShouldBeTrue)
			}
		})

		Convey("When the error marker is falsy", func() {
			for _, body := range []string{
				`{"error":false,"timestamp":"t1","landslide":5,"flood":2,"combined":7}`,
				`{"error":null,"timestamp":"t1","landslide":5,"flood":2,"combined":7}`,
				`{"error":"","timestamp":"t1","landslide":5,"flood":2,"combined":7}`,
			} {
				_, err := model.DecodeCombined([]byte(body))
				So(err, ShouldBeNil)
			}
		})

		Convey("When the body is not JSON", func() {
			_, err := model.DecodeCombined([]byte(`<html>502 Bad Gateway</html>`))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, model.ErrMalformedPayload), ShouldBeTrue)
			})
		})

		Convey("When fields are missing or not numeric", func() {
			for _, body := range []string{
				`{}`,
				`null`,
				`{"landslide":5,"flood":2,"combined":7}`,
				`{"timestamp":"t1","flood":2,"combined":7}`,
				`{"timestamp":"t1","landslide":"high","flood":2,"combined":7}`,
				`{"timestamp":"t1","landslide":5,"flood":true,"combined":7}`,
			} {
				_, err := model.DecodeCombined([]byte(body))
				So(errors.Is(err, model.ErrShapeMismatch), ShouldBeTrue)
			}
		})
	})
}

func TestDecodeLandslide(t *testing.T) {
	Convey("Given landslide payloads", t, func() {
		valid := `{
			"labels": ["10:00:00", "10:00:01"],
			"soil1": [610, 620],
			"soil2": [600, 605],
			"tilt": [1200, 1300],
			"vibration": [0, 1],
			"rain": [0, 1],
			"landslide_danger": 42
		}`

		Convey("When the payload is well formed", func() {
			s, err := model.DecodeLandslide([]byte(valid))

			Convey("Then only the last element of each array is used", func() {
				So(err, ShouldBeNil)
				So(s.Label, ShouldEqual, "10:00:01")
				So(s.Soil1, ShouldEqual, 620.0)
				So(s.Soil2, ShouldEqual, 605.0)
				So(s.Tilt, ShouldEqual, 1300.0)
				So(s.Vibration, ShouldEqual, 1.0)
				So(s.Rain.Truthy(), ShouldBeTrue)
				So(risk.RainLabel(s.Rain), ShouldEqual, risk.LabelRaining)
				f, _ := s.Danger.Float()
				So(f, ShouldEqual, 42.0)
			})
		})

		Convey("When landslide_danger is categorical", func() {
			s, err := model.DecodeLandslide([]byte(`{"labels":["a"],"soil1":[1],"soil2":[1],"tilt":[1],"vibration":[1],"rain":[false],"landslide_danger":"high"}`))

			Convey("Then it is kept as a category", func() {
				So(err, ShouldBeNil)
				So(s.Danger.Kind(), ShouldEqual, risk.KindText)
				So(risk.RainLabel(s.Rain), ShouldEqual, risk.LabelNoRain)
			})
		})

		Convey("When the payload is error marked", func() {
			_, err := model.DecodeLandslide([]byte(`{"error":true}`))

			Convey("Then it is rejected as an upstream error", func() {
				So(errors.Is(err, model.ErrUpstreamError), ShouldBeTrue)
			})
		})

		Convey("When an array is empty or missing", func() {
			for _, body := range []string{
				`{"labels":[],"soil1":[1],"soil2":[1],"tilt":[1],"vibration":[1],"rain":[1],"landslide_danger":1}`,
				`{"labels":["a"],"soil2":[1],"tilt":[1],"vibration":[1],"rain":[1],"landslide_danger":1}`,
				`{"labels":["a"],"soil1":[1],"soil2":[1],"tilt":[],"vibration":[1],"rain":[1],"landslide_danger":1}`,
				`{"labels":["a"],"soil1":[1],"soil2":[1],"tilt":[1],"vibration":[1],"rain":[],"landslide_danger":1}`,
				`{"labels":["a"],"soil1":[1],"soil2":[1],"tilt":[1],"vibration":[1],"rain":[1]}`,
				`{"labels":["a"],"soil1":["wet"],"soil2":[1],"tilt":[1],"vibration":[1],"rain":[1],"landslide_danger":1}`,
			} {
				_, err := model.DecodeLandslide([]byte(body))
				So(errors.Is(err, model.ErrShapeMismatch), ShouldBeTrue)
			}
		})

		Convey("When an array holds the wrong JSON type", func() {
			_, err := model.DecodeLandslide([]byte(`{"labels":"a"}`))

			Convey("Then it is malformed", func() {
				So(errors.Is(err, model.ErrMalformedPayload), ShouldBeTrue)
			})
		})
	})
}

func TestPayloadEncoding(t *testing.T) {
	Convey("Given a combined payload built in code", t, func() {
		p := model.CombinedPayload{
			Timestamp: "t9",
			Landslide: risk.Number(12.5),
			Flood:     risk.Number(3),
			Combined:  risk.Number(7.75),
		}

		Convey("When it is encoded and decoded again", func() {
			data, err := json.Marshal(p)
			So(err, ShouldBeNil)
			s, err := model.DecodeCombined(data)

			Convey("Then the sample matches and no error marker is written", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldNotContainSubstring, "error")
				So(s.Combined, ShouldEqual, 7.75)
			})
		})
	})
}
