// Package dashboard runs the poll-and-render loops that keep the combined and
// landslide views current.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/slopewatch/internal/adapters/source"
	"github.com/okian/slopewatch/internal/domain/model"
	"github.com/okian/slopewatch/pkg/logger"
	"github.com/okian/slopewatch/pkg/metrics"
)

// Handler turns a response body into an update. Prepare must not mutate
// anything; the returned func does, and is only called for the newest
// response.
type Handler interface {
	Prepare(body []byte) (apply func(), err error)
}

// Stats counts poll cycles by result.
type Stats struct {
	Issued      uint64    `json:"issued"`
	Applied     uint64    `json:"applied"`
	Stale       uint64    `json:"stale"`
	Failed      uint64    `json:"failed"`
	LastSeq     uint64    `json:"last_applied_seq"`
	LastApplied time.Time `json:"last_applied_at"`
}

// Poller issues one fetch per tick and applies responses in sequence order.
type Poller struct {
	name     string
	fetcher  source.Fetcher
	handler  Handler
	interval time.Duration
	now      func() time.Time
	logger   logger.Logger

	seq     atomic.Uint64
	applied atomic.Uint64
	stale   atomic.Uint64
	failed  atomic.Uint64

	mu        sync.Mutex
	lastSeq   uint64
	lastApply time.Time
}

func newPoller(name string, f source.Fetcher, h Handler, o options) *Poller {
	return &Poller{
		name:     name,
		fetcher:  f,
		handler:  h,
		interval: o.interval,
		now:      o.now,
		logger:   o.logger,
	}
}

// Run polls until ctx is cancelled. The first cycle starts immediately. A
// cycle never waits for the previous one; Run returns once every in-flight
// cycle has finished.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info(ctx, "poller started", logger.Duration("interval", p.interval))
	p.launch(ctx, &wg)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "poller stopped")
			return
		case <-ticker.C:
			p.launch(ctx, &wg)
		}
	}
}

func (p *Poller) launch(ctx context.Context, wg *sync.WaitGroup) {
	seq := p.seq.Add(1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.cycle(ctx, seq)
	}()
}

func (p *Poller) cycle(ctx context.Context, seq uint64) metrics.Outcome {
	metrics.AddPollInflight(p.name, 1)
	defer metrics.AddPollInflight(p.name, -1)

	start := time.Now()
	body, err := p.fetcher.Fetch(ctx)
	metrics.RecordPollLatency(p.name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return p.finish(ctx, seq, metrics.OutcomeTransportError, err)
	}

	apply, err := p.handler.Prepare(body)
	if err != nil {
		return p.finish(ctx, seq, outcomeOf(err), err)
	}

	p.mu.Lock()
	if seq <= p.lastSeq {
		p.mu.Unlock()
		return p.finish(ctx, seq, metrics.OutcomeStale, nil)
	}
	apply()
	p.lastSeq = seq
	p.lastApply = p.now()
	p.mu.Unlock()

	return p.finish(ctx, seq, metrics.OutcomeApplied, nil)
}

func (p *Poller) finish(ctx context.Context, seq uint64, outcome metrics.Outcome, err error) metrics.Outcome {
	metrics.RecordPollCycle(p.name, outcome)
	switch outcome {
	case metrics.OutcomeApplied:
		p.applied.Add(1)
	case metrics.OutcomeStale:
		p.stale.Add(1)
		p.logger.Debug(ctx, "discarded late response", logger.Uint64("seq", seq))
	default:
		p.failed.Add(1)
		p.logger.Debug(ctx, "poll cycle skipped",
			logger.Uint64("seq", seq),
			logger.String("outcome", string(outcome)),
			logger.Error(err),
		)
	}
	return outcome
}

// Stats returns the cycle counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Issued:      p.seq.Load(),
		Applied:     p.applied.Load(),
		Stale:       p.stale.Load(),
		Failed:      p.failed.Load(),
		LastSeq:     p.lastSeq,
		LastApplied: p.lastApply,
	}
}

// view runs fn with the last applied sequence while holding the apply lock,
// so fn observes either all of a cycle or none of it.
func (p *Poller) view(fn func(seq uint64, at time.Time)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.lastSeq, p.lastApply)
}

func outcomeOf(err error) metrics.Outcome {
	switch {
	case errors.Is(err, model.ErrUpstreamError):
		return metrics.OutcomeUpstreamError
	case errors.Is(err, model.ErrShapeMismatch):
		return metrics.OutcomeShapeMismatch
	default:
		return metrics.OutcomeMalformed
	}
}
