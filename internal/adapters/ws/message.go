package ws

import (
	"github.com/okian/slopewatch/internal/adapters/render"
)

// Message is what viewers receive for every redraw.
type Message struct {
	Type      render.Kind `json:"type"`
	Dashboard string      `json:"dashboard"`
	Name      string      `json:"name"`
	Payload   any         `json:"payload"`
}

// FromEvent converts a redraw event to a message.
func FromEvent(ev render.Event) Message {
	m := Message{Type: ev.Kind, Dashboard: ev.Dashboard, Name: ev.Name}
	switch ev.Kind {
	case render.KindChart:
		if ev.Chart != nil {
			m.Payload = ev.Chart
		}
	case render.KindIndicator:
		if ev.Reading != nil {
			m.Payload = ev.Reading
		}
	case render.KindText:
		m.Payload = ev.Text
	}
	return m
}

// fromSnapshot lists one message per surface currently shown on a board.
func fromSnapshot(s render.Snapshot) []Message {
	msgs := make([]Message, 0, len(s.Charts)+len(s.Indicators)+len(s.Texts))
	for name, c := range s.Charts {
		msgs = append(msgs, Message{Type: render.KindChart, Dashboard: s.Dashboard, Name: name, Payload: c})
	}
	for name, r := range s.Indicators {
		msgs = append(msgs, Message{Type: render.KindIndicator, Dashboard: s.Dashboard, Name: name, Payload: r})
	}
	for name, t := range s.Texts {
		msgs = append(msgs, Message{Type: render.KindText, Dashboard: s.Dashboard, Name: name, Payload: t})
	}
	return msgs
}
