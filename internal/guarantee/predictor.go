// Package guarantee implements the dynamic guarantee-ratio (omega)
// predictor: a smoothed estimator of the platform-wide work/active ratio
// that CostCalculator uses each window. Grounded on the original Python
// GuaranteePredictor (simple moving-average with smoothing toward the
// observed ratio), restated per spec.md §4.4.
//
// The predictor is a pure function of its history once constructed: it
// performs no I/O and is safe to call only from a single writer (the batch
// processor), per spec.md §5.
package guarantee

// Predictor tracks omega and the bounded history of (work, active)
// aggregate pairs used to re-estimate it each window.
type Predictor struct {
	omega float64

	history   []pair
	capacity  int
	smoothing float64
	omegaMin  float64
	omegaMax  float64
}

type pair struct {
	totalWork   float64
	totalActive float64
}

// Config configures a new Predictor. A non-positive HistoryCap falls back to
// 50; every other field is used as given, zero included.
type Config struct {
	InitialOmega float64
	OmegaMin     float64
	OmegaMax     float64
	Smoothing    float64 // alpha
	HistoryCap   int      // H
}

// DefaultConfig returns the spec.md §6 default predictor configuration.
func DefaultConfig() Config {
	return Config{
		InitialOmega: 0.25,
		OmegaMin:     0.05,
		OmegaMax:     0.9,
		Smoothing:    0.2,
		HistoryCap:   50,
	}
}

// New creates a Predictor from the given configuration.
func New(cfg Config) *Predictor {
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = 50
	}
	return &Predictor{
		omega:     clamp(cfg.InitialOmega, cfg.OmegaMin, cfg.OmegaMax),
		capacity:  cfg.HistoryCap,
		smoothing: cfg.Smoothing,
		omegaMin:  cfg.OmegaMin,
		omegaMax:  cfg.OmegaMax,
	}
}

// Predict returns the current omega, always within [omegaMin, omegaMax].
func (p *Predictor) Predict() float64 {
	return p.omega
}

// Update appends a (totalWork, totalActive) observation, evicting the
// oldest if over capacity, recomputes the average work/active ratio across
// history, and smooths omega toward it:
//
//	omega <- (1-alpha)*omega_prev + alpha*avg_ratio
//
// then clamps to [omegaMin, omegaMax]. If history is empty or every active
// value is zero, omega is left unchanged (beyond the no-op smoothing step).
func (p *Predictor) Update(totalWork, totalActive float64) {
	p.history = append(p.history, pair{totalWork, totalActive})
	if len(p.history) > p.capacity {
		p.history = p.history[len(p.history)-p.capacity:]
	}

	avgRatio, ok := p.averageRatio()
	if !ok {
		avgRatio = p.omega
	}

	p.omega = (1-p.smoothing)*p.omega + p.smoothing*avgRatio
	p.omega = clamp(p.omega, p.omegaMin, p.omegaMax)
}

// averageRatio returns the mean of work/active across history entries with
// active > 0. ok is false when there are no such entries.
func (p *Predictor) averageRatio() (avg float64, ok bool) {
	var sum float64
	var n int
	for _, h := range p.history {
		if h.totalActive <= 0 {
			continue
		}
		sum += h.totalWork / h.totalActive
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
