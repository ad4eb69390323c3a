// Package drift detects feature distribution drift with the population stability index.
package drift

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

// Defaults used when a Detector is built without options.
const (
	DefaultThreshold = 0.2
	DefaultBins      = 10

	smoothing = 1e-6
)

var (
	// ErrEmptySample is returned when PSI is asked to compare an empty distribution.
	ErrEmptySample = errors.New("drift: empty sample")

	// ErrInvalidSample is returned for samples holding NaN or infinite values,
	// or whose range is too wide to bin.
	ErrInvalidSample = errors.New("drift: invalid sample")
)

// validate checks a sample is non-empty and finite.
func validate(sample []float64) error {
	if len(sample) == 0 {
		return ErrEmptySample
	}
	for _, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %v", ErrInvalidSample, v)
		}
	}
	return nil
}

// PSI computes the population stability index of actual against expected.
// Bins are equal-width over the range of expected; actual values outside that
// range are not counted.
func PSI(expected, actual []float64, bins int) (float64, error) {
	if err := validate(expected); err != nil {
		return 0, err
	}
	if err := validate(actual); err != nil {
		return 0, err
	}
	n := max(2, min(bins, len(expected)))

	lo, hi := slices.Min(expected), slices.Max(expected)
	if lo == hi {
		pad := max(0.5, math.Abs(lo)*1e-9)
		lo, hi = lo-pad, hi+pad
	}
	if width := (hi - lo) / float64(n); math.IsInf(width, 0) || width == 0 {
		return 0, fmt.Errorf("%w: range [%v, %v] cannot be binned", ErrInvalidSample, lo, hi)
	}

	e := histogram(expected, lo, hi, n)
	a := histogram(actual, lo, hi, n)
	normalize(e)
	normalize(a)

	var psi float64
	for i := range e {
		psi += (e[i] - a[i]) * math.Log(e[i]/a[i])
	}
	return psi, nil
}

// histogram counts values into n bins over [lo, hi]; the last bin is closed.
func histogram(values []float64, lo, hi float64, n int) []float64 {
	counts := make([]float64, n)
	width := (hi - lo) / float64(n)
	for _, v := range values {
		if v < lo || v > hi || math.IsNaN(v) {
			continue
		}
		idx := int((v - lo) / width)
		idx = max(0, min(idx, n-1))
		counts[idx]++
	}
	return counts
}

func normalize(counts []float64) {
	var total float64
	for i := range counts {
		counts[i] += smoothing
		total += counts[i]
	}
	for i := range counts {
		counts[i] /= total
	}
}

// Detector scores samples against a baseline distribution.
type Detector struct {
	mu        sync.RWMutex
	threshold float64
	bins      int
	baseline  []float64
	last      float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithThreshold sets the PSI above which a sample is drifted.
func WithThreshold(threshold float64) Option {
	return func(d *Detector) {
		if threshold > 0 {
			d.threshold = threshold
		}
	}
}

// WithBins sets the histogram bin count.
func WithBins(bins int) Option {
	return func(d *Detector) {
		if bins >= 2 {
			d.bins = bins
		}
	}
}

// NewDetector creates a Detector without a baseline.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{threshold: DefaultThreshold, bins: DefaultBins}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetBaseline stores the reference distribution.
func (d *Detector) SetBaseline(sample []float64) error {
	if err := validate(sample); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseline = slices.Clone(sample)
	return nil
}

// HasBaseline reports whether a baseline is set.
func (d *Detector) HasBaseline() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.baseline != nil
}

// Evaluate scores sample against the baseline. Without a baseline the sample
// becomes the baseline and scores zero.
func (d *Detector) Evaluate(sample []float64) (score float64, drifted bool, err error) {
	if err := validate(sample); err != nil {
		return 0, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.baseline == nil {
		d.baseline = slices.Clone(sample)
		d.last = 0
		return 0, false, nil
	}
	score, err = PSI(d.baseline, sample, d.bins)
	if err != nil {
		return 0, false, err
	}
	d.last = score
	return score, score > d.threshold, nil
}

// Last returns the most recent score, zero before any evaluation.
func (d *Detector) Last() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Threshold returns the configured drift threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}
