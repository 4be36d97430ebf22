package dashboard

import (
	"time"

	"github.com/okian/slopewatch/internal/domain/history"
	"github.com/okian/slopewatch/internal/domain/risk"
	"github.com/okian/slopewatch/pkg/logger"
)

// DefaultInterval is the poll period of both dashboards.
const DefaultInterval = 1500 * time.Millisecond

type options struct {
	interval   time.Duration
	cap        int
	classifier *risk.Classifier
	logger     logger.Logger
	now        func() time.Time
}

func defaultOptions() options {
	return options{
		interval:   DefaultInterval,
		cap:        history.DefaultCap,
		classifier: risk.NewClassifier(),
		now:        time.Now,
	}
}

// Option applies a configuration option to a dashboard.
type Option func(*options)

// WithInterval sets the poll period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithCap sets the history window of every series.
func WithCap(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cap = n
		}
	}
}

// WithClassifier sets the classifier used for indicators.
func WithClassifier(c *risk.Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
