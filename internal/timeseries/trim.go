package timeseries

import (
	"fmt"
	"math"
	"sort"

	"github.com/cardiacam/cardiacam/internal/errs"
)

const trimStage = "trim"

// TrimMode selects how TrimOptions.Lead and Trail are interpreted
type TrimMode string

const (
	TrimByTime    TrimMode = "time"    // Seconds, cut on the timestamps
	TrimByRate    TrimMode = "rate"    // Seconds, converted to sample counts with the estimated rate
	TrimBySamples TrimMode = "samples" // Sample counts
)

// TrimOptions configures transient removal
type TrimOptions struct {
	Lead      float64
	Trail     float64
	Mode      TrimMode
	Estimator RateEstimator // Used by TrimByRate; SpanRate when nil
}

// Trim drops the capture-startup and end-of-capture transients.
//
//   - TrimByTime keeps the samples with t[0]+Lead <= t < t[n-1]-Trail.
//   - TrimByRate drops round(Lead·rate) leading and round(Trail·rate)
//     trailing samples, the rate coming from opts.Estimator.
//   - TrimBySamples drops round(Lead) leading and round(Trail) trailing
//     samples.
//
// In every mode a zero Trail keeps the last sample, so a zero transient
// returns the series unchanged. The time interval is otherwise half-open and
// would exclude t[n-1] itself.
//
// It fails with an InsufficientDataError when nothing would remain.
func Trim(ts *TimeSeries, opts TrimOptions) (*TimeSeries, error) {
	if opts.Lead < 0 || opts.Trail < 0 {
		return nil, errs.Format(trimStage, "negative transient (lead %g, trail %g)", opts.Lead, opts.Trail)
	}

	lo, hi, err := trimBounds(ts, opts)
	if err != nil {
		return nil, err
	}

	if hi <= lo {
		return nil, errs.NewWithDetails(errs.KindInsufficientData, trimStage,
			fmt.Sprintf("trimming lead %g and trail %g (%s) leaves no samples of %d", opts.Lead, opts.Trail, opts.Mode, ts.Len()),
			map[string]interface{}{"samples": ts.Len(), "span_s": ts.Span()})
	}

	return ts.Slice(lo, hi), nil
}

func trimBounds(ts *TimeSeries, opts TrimOptions) (int, int, error) {
	n := ts.Len()

	switch opts.Mode {
	case TrimByTime, "":
		lo := sort.SearchFloat64s(ts.T, ts.Start()+opts.Lead)
		hi := n
		if opts.Trail > 0 {
			hi = sort.SearchFloat64s(ts.T, ts.End()-opts.Trail)
		}
		return lo, hi, nil

	case TrimByRate:
		est := opts.Estimator
		if est == nil {
			est = SpanRate{}
		}
		rate, err := est.Estimate(ts.T)
		if err != nil {
			return 0, 0, errs.WithStage(err, trimStage)
		}
		return countBounds(n, opts.Lead*rate, opts.Trail*rate)

	case TrimBySamples:
		return countBounds(n, opts.Lead, opts.Trail)

	default:
		return 0, 0, errs.Format(trimStage, "unknown trim mode %q", opts.Mode)
	}
}

func countBounds(n int, lead, trail float64) (int, int, error) {
	l := math.Round(lead)
	r := math.Round(trail)
	if l >= float64(n) || r >= float64(n) {
		return 0, 0, nil
	}
	return int(l), n - int(r), nil
}
