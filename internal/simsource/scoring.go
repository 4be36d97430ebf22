package simsource

import "math"

// Rule-based scoring constants.
const (
	soilBaseline      = 600
	soilWeight        = 0.05
	rainHeavy         = 500
	rainHeavyBonus    = 15
	vibrationBonus    = 10
	tiltLimit         = 15000
	tiltBonus         = 15
	floodDistanceSpan = 100
	floodDistanceRate = 0.6
	floodRainBaseline = 400
	floodRainWeight   = 0.05
	maxRisk           = 100
)

// Reading is one raw sensor sample.
type Reading struct {
	Timestamp string  `json:"timestamp"`
	Soil1     int     `json:"soil1"`
	Soil2     int     `json:"soil2"`
	Rain      int     `json:"rain"`
	Vib1      int     `json:"vib1"`
	Vib2      int     `json:"vib2"`
	Distance  float64 `json:"distance"`
	AX        int     `json:"ax"`
	AY        int     `json:"ay"`
	AZ        int     `json:"az"`
}

// Vibrating reports whether either vibration switch fired.
func (r Reading) Vibrating() bool { return r.Vib1 == 1 || r.Vib2 == 1 }

// Tilt is the larger horizontal acceleration magnitude.
func (r Reading) Tilt() int { return max(abs(r.AX), abs(r.AY)) }

// Scores are the three risk values derived from a reading.
type Scores struct {
	Landslide float64 `json:"landslide"`
	Flood     float64 `json:"flood"`
	Combined  float64 `json:"combined"`
}

// LandslideRisk scores saturated soil, heavy rain, vibration and tilt.
func LandslideRisk(r Reading) float64 {
	risk := math.Max(0, float64(r.Soil1-soilBaseline))*soilWeight +
		math.Max(0, float64(r.Soil2-soilBaseline))*soilWeight
	if r.Rain > rainHeavy {
		risk += rainHeavyBonus
	}
	if r.Vibrating() {
		risk += vibrationBonus
	}
	if abs(r.AX) > tiltLimit || abs(r.AY) > tiltLimit {
		risk += tiltBonus
	}
	return math.Min(risk, maxRisk)
}

// FloodRisk scores the water level distance and rain.
func FloodRisk(r Reading) float64 {
	var risk float64
	if r.Distance > 0 {
		risk += math.Max(0, floodDistanceSpan-r.Distance) * floodDistanceRate
	}
	risk += math.Max(0, float64(r.Rain-floodRainBaseline)) * floodRainWeight
	return math.Min(risk, maxRisk)
}

// Score derives all three risks. Combined is the mean of the other two.
func Score(r Reading) Scores {
	s := Scores{Landslide: LandslideRisk(r), Flood: FloodRisk(r)}
	s.Combined = (s.Landslide + s.Flood) / 2
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
