package config

import (
	"fmt"

	"github.com/cardiacam/cardiacam/internal/utils"
)

// Pipeline modes
const (
	ModeSeparate = "separate" // One ICA run per region
	ModeCombined = "combined" // One ICA run on the channel-wise sum of all regions
)

// Transient trim modes
const (
	TrimTime    = "time"    // Lead/Trail are seconds, cut on timestamps
	TrimRate    = "rate"    // Lead/Trail are seconds, converted to counts with the estimated rate
	TrimSamples = "samples" // Lead/Trail are sample counts
)

// Sample-rate estimators
const (
	RateSpan  = "span"  // (n-1) / (t[n-1] - t[0])
	RateLocal = "local" // 1 / (t[k+1] - t[k]) away from the start-up jitter
)

// Convergence policies
const (
	PolicyWarn  = "warn"  // Log and continue with the last iterate
	PolicyAbort = "abort" // Fail the run
)

var defaultRegionNames = []string{"forehead", "cheek"}

// RegionName returns the configured name of region i
func (c *PipelineConfig) RegionName(i int) string {
	if i < len(c.RegionNames) && c.RegionNames[i] != "" {
		return c.RegionNames[i]
	}
	if i < len(defaultRegionNames) {
		return defaultRegionNames[i]
	}
	return fmt.Sprintf("region%d", i)
}

// InitialMatrix returns the warm start for the first ICA run, or nil for a
// seeded random start
func (c *ICAConfig) InitialMatrix() [][]float64 {
	if len(c.WarmStart) > 0 {
		return c.WarmStart
	}
	if c.UseDefaultWarmStart {
		return utils.DefaultWarmStartSlice()
	}
	return nil
}

// AbortOnNonConvergence reports whether an ICA iteration cap is fatal
func (c *ICAConfig) AbortOnNonConvergence() bool {
	return c.ConvergencePolicy == PolicyAbort
}
