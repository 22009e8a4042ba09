package timeseries

import (
	"github.com/cardiacam/cardiacam/internal/errs"
)

const excludeStage = "exclude"

// Range is a half-open [Start, End) time interval in seconds
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t lies in the range
func (r Range) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// Exclude drops every sample whose timestamp falls in one of ranges. It is
// used to cut known glitches out of a capture before differentiation.
func Exclude(ts *TimeSeries, ranges []Range) (*TimeSeries, error) {
	if len(ranges) == 0 {
		return ts.Slice(0, ts.Len()), nil
	}
	for i, r := range ranges {
		if !(r.End > r.Start) {
			return nil, errs.Format(excludeStage, "range %d [%g, %g) is empty", i, r.Start, r.End)
		}
	}

	keep := make([]int, 0, ts.Len())
	for i, t := range ts.T {
		excluded := false
		for _, r := range ranges {
			if r.Contains(t) {
				excluded = true
				break
			}
		}
		if !excluded {
			keep = append(keep, i)
		}
	}

	if len(keep) == 0 {
		return nil, errs.InsufficientData(excludeStage, "excluded ranges cover all %d samples", ts.Len())
	}

	return ts.Select(keep), nil
}
