package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/slopewatch/internal/adapters/render"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
	"github.com/okian/slopewatch/pkg/metrics"
)

// Topic placeholders.
const (
	PlaceholderDashboard = "{dashboard}"
	PlaceholderIndicator = "{indicator}"
)

const (
	qos            = 1
	queueSize      = 64
	publishTimeout = 5 * time.Second
)

// Publishing is the part of a paho client the publisher needs.
type Publishing interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// IndicatorMessage is the JSON body published for each indicator change.
type IndicatorMessage struct {
	Dashboard string        `json:"dashboard"`
	Indicator string        `json:"indicator"`
	Value     risk.Value    `json:"value"`
	Text      string        `json:"text"`
	Severity  risk.Severity `json:"severity"`
	At        time.Time     `json:"at"`
}

// Publisher forwards indicator redraws to the broker. Other redraw kinds
// are ignored.
type Publisher struct {
	client Publishing
	topic  string
	queue  chan IndicatorMessage
	logger logger.Logger
}

// Option applies a configuration option to a Publisher.
type Option func(*Publisher)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPublisher creates a publisher writing to topic, a pattern that may hold
// the {dashboard} and {indicator} placeholders.
func NewPublisher(client Publishing, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		topic:  topic,
		queue:  make(chan IndicatorMessage, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("mqtt")
	}
	return p
}

// OnRender implements render.Listener. It only queues; Start publishes.
func (p *Publisher) OnRender(ev render.Event) {
	if ev.Kind != render.KindIndicator || ev.Reading == nil {
		return
	}
	msg := IndicatorMessage{
		Dashboard: ev.Dashboard,
		Indicator: ev.Name,
		Value:     ev.Reading.Value,
		Text:      ev.Reading.Text,
		Severity:  ev.Reading.Severity,
		At:        ev.At,
	}
	select {
	case p.queue <- msg:
	default:
		metrics.RecordMQTTPublish(false)
	}
}

// Start publishes queued messages until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info(ctx, "mqtt publisher started", logger.String("topic", p.topic))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "mqtt publisher stopped")
			return
		case msg := <-p.queue:
			if err := p.Publish(msg); err != nil {
				p.logger.Warn(ctx, "mqtt publish failed", logger.Error(err))
			}
		}
	}
}

// Publish sends one message and waits for the broker acknowledgement.
func (p *Publisher) Publish(msg IndicatorMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		metrics.RecordMQTTPublish(false)
		return fmt.Errorf("%w: encode: %w", ErrPublish, err)
	}

	topic := FormatTopic(p.topic, msg.Dashboard, msg.Indicator)
	token := p.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		metrics.RecordMQTTPublish(false)
		return fmt.Errorf("%w: %s: timed out", ErrPublish, topic)
	}
	if err := token.Error(); err != nil {
		metrics.RecordMQTTPublish(false)
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	metrics.RecordMQTTPublish(true)
	return nil
}

// FormatTopic fills the placeholders of pattern.
func FormatTopic(pattern, dashboard, indicator string) string {
	return strings.NewReplacer(
		PlaceholderDashboard, dashboard,
		PlaceholderIndicator, indicator,
	).Replace(pattern)
}
