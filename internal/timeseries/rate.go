package timeseries

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cardiacam/cardiacam/internal/errs"
)

// RateEstimator estimates the sample rate (Hz) of a timestamp vector
type RateEstimator interface {
	// Name returns the estimator name
	Name() string
	// Estimate returns the sample rate in Hz
	Estimate(t []float64) (float64, error)
}

// Registry holds available rate estimators
var rateRegistry = make(map[string]RateEstimator)

// RegisterRateEstimator adds an estimator to the registry
func RegisterRateEstimator(name string, e RateEstimator) {
	rateRegistry[name] = e
}

// GetRateEstimator returns an estimator by name
func GetRateEstimator(name string) (RateEstimator, error) {
	if e, ok := rateRegistry[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unknown rate estimator: %s (available: %s)", name, strings.Join(ListRateEstimators(), ", "))
}

// ListRateEstimators returns the registered estimator names, sorted
func ListRateEstimators() []string {
	names := make([]string, 0, len(rateRegistry))
	for name := range rateRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterRateEstimator("span", SpanRate{})
	RegisterRateEstimator("local", LocalRate{Index: -1})
}

// SpanRate estimates the mean rate over the whole series: (n-1)/(t[n-1]-t[0])
type SpanRate struct{}

// Name returns the estimator name
func (SpanRate) Name() string { return "span" }

// Estimate returns the mean sample rate
func (SpanRate) Estimate(t []float64) (float64, error) {
	if len(t) < 2 {
		return 0, errs.InsufficientData("rate", "need 2 samples to estimate a rate, have %d", len(t))
	}
	span := t[len(t)-1] - t[0]
	if span <= 0 {
		return 0, errs.Format("rate", "non-positive time span %g", span)
	}
	return float64(len(t)-1) / span, nil
}

// LocalRate estimates the rate from one pair of consecutive samples, chosen
// away from the start of the capture where timing jitters. A negative Index
// selects the middle of the series; other indices are clamped into range.
type LocalRate struct {
	Index int
}

// Name returns the estimator name
func (LocalRate) Name() string { return "local" }

// Estimate returns 1/(t[k+1]-t[k])
func (l LocalRate) Estimate(t []float64) (float64, error) {
	if len(t) < 2 {
		return 0, errs.InsufficientData("rate", "need 2 samples to estimate a rate, have %d", len(t))
	}
	k := l.Index
	if k < 0 {
		k = (len(t) - 1) / 2
	}
	if k > len(t)-2 {
		k = len(t) - 2
	}
	dt := t[k+1] - t[k]
	if dt <= 0 {
		return 0, errs.Format("rate", "non-positive sample interval %g at index %d", dt, k)
	}
	return 1 / dt, nil
}

// NewRateEstimator returns the named estimator configured with localIndex
// where it applies
func NewRateEstimator(name string, localIndex int) (RateEstimator, error) {
	e, err := GetRateEstimator(name)
	if err != nil {
		return nil, err
	}
	if _, ok := e.(LocalRate); ok {
		return LocalRate{Index: localIndex}, nil
	}
	return e, nil
}
