package simsource

import (
	"math/rand/v2"
	"time"
)

// Generator produces a bounded random walk of sensor readings.
type Generator struct {
	rng  *rand.Rand
	last Reading
}

// NewGenerator creates a generator. The same seed yields the same walk.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		last: Reading{
			Soil1:    620,
			Soil2:    610,
			Rain:     0,
			Distance: 120,
			AZ:       16384,
		},
	}
}

// Next returns the reading following the previous one, stamped at now.
func (g *Generator) Next(now time.Time) Reading {
	r := g.last
	r.Timestamp = now.Format(time.TimeOnly)
	r.Soil1 = clampInt(r.Soil1+g.step(15), 400, 900)
	r.Soil2 = clampInt(r.Soil2+g.step(15), 400, 900)
	r.Rain = clampInt(r.Rain+g.step(60), 0, 1023)
	r.Distance = clampFloat(r.Distance+float64(g.step(6)), 5, 200)
	r.AX = clampInt(g.step(18000), -32768, 32767)
	r.AY = clampInt(g.step(18000), -32768, 32767)
	r.AZ = clampInt(16384+g.step(400), -32768, 32767)
	r.Vib1, r.Vib2 = g.flag(0.05), g.flag(0.05)
	g.last = r
	return r
}

// step returns a uniform integer in [-span, span].
func (g *Generator) step(span int) int {
	return g.rng.IntN(2*span+1) - span
}

func (g *Generator) flag(p float64) int {
	if g.rng.Float64() < p {
		return 1
	}
	return 0
}

func clampInt(v, lo, hi int) int { return min(max(v, lo), hi) }

func clampFloat(v, lo, hi float64) float64 { return min(max(v, lo), hi) }
