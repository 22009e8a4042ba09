// Package pipeline wires the conditioning stages, the ICA engine and the
// canonicalizer into one run over a loaded capture.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardiacam/cardiacam/internal/config"
	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/ica"
	"github.com/cardiacam/cardiacam/internal/logging"
	"github.com/cardiacam/cardiacam/internal/timeseries"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

const icaStage = "ica"

// RegionResult holds the canonical components of one RGB region
type RegionResult struct {
	Name       string
	Unmixing   *mat.Dense // U = K·W after canonicalization
	Order      ica.Order  // Reordering applied to the raw ICA output
	S          *mat.Dense // Components, one row per output timestamp
	Iterations int
	Converged  bool
}

// Result is the outcome of one pipeline run
type Result struct {
	RunID      string
	Mode       string
	T          []float64 // Output timestamps, shared by every region
	Regions    []RegionResult
	Gap        *timeseries.GapReport // Irregular sampling in the input, nil if uniform
	SampleRate float64               // Estimated after transient removal (Hz)
}

// Blocks returns the component matrices in region order, for the writer
func (r *Result) Blocks() []mat.Matrix {
	blocks := make([]mat.Matrix, len(r.Regions))
	for i := range r.Regions {
		blocks[i] = r.Regions[i].S
	}
	return blocks
}

// Pipeline runs trim → exclude → differentiate → ICA → canonicalize
type Pipeline struct {
	cfg       config.PipelineConfig
	icaCfg    config.ICAConfig
	separator ica.Separator
	estimator timeseries.RateEstimator
}

// New creates a pipeline from validated configuration
func New(cfg config.PipelineConfig, icaCfg config.ICAConfig) (*Pipeline, error) {
	sep, err := ica.GetSeparator(icaCfg.Separator)
	if err != nil {
		return nil, err
	}

	estimator, err := timeseries.NewRateEstimator(cfg.Transient.RateEstimator, cfg.Transient.LocalIndex)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		icaCfg:    icaCfg,
		separator: sep,
		estimator: estimator,
	}, nil
}

// Run processes one capture, logging through logging.Ctx(ctx). Every fatal
// error is an *errs.Error naming the stage that raised it; context
// cancellation is returned as is.
func (p *Pipeline) Run(ctx context.Context, ts *timeseries.TimeSeries) (*Result, error) {
	logger := logging.Ctx(ctx)

	if ts == nil || ts.Len() == 0 {
		return nil, errs.InsufficientData("load", "empty time series")
	}
	if ts.Regions() == 0 || ts.Channels()%utils.ChannelsPerRegion != 0 {
		return nil, errs.Format("load", "%d channels do not form RGB triples", ts.Channels())
	}
	if !ts.Finite() {
		return nil, errs.Format("load", "time series holds non-finite values")
	}

	gap := timeseries.DetectGap(ts.T)

	trimmed, err := timeseries.Trim(ts, timeseries.TrimOptions{
		Lead:      p.cfg.Transient.Lead,
		Trail:     p.cfg.Transient.Trail,
		Mode:      timeseries.TrimMode(p.cfg.Transient.Mode),
		Estimator: p.estimator,
	})
	if err != nil {
		return nil, errs.WithStage(err, "trim")
	}

	rate, err := p.estimator.Estimate(trimmed.T)
	if err != nil {
		return nil, errs.WithStage(err, "rate")
	}
	logger.Info("after transient removal",
		"samples", trimmed.Len(),
		"start_s", trimmed.Start(),
		"end_s", trimmed.End(),
		"rate_hz", rate)

	excluded, err := timeseries.Exclude(trimmed, toRanges(p.cfg.Exclude))
	if err != nil {
		return nil, errs.WithStage(err, "exclude")
	}
	if dropped := trimmed.Len() - excluded.Len(); dropped > 0 {
		logger.Info("excluded samples", "samples", dropped, "ranges", len(p.cfg.Exclude))
	}

	diff, err := timeseries.Differentiate(excluded)
	if err != nil {
		return nil, errs.WithStage(err, "differentiate")
	}

	var regions []RegionResult
	switch p.cfg.Mode {
	case config.ModeCombined:
		regions, err = p.runCombined(ctx, diff)
	default:
		regions, err = p.runSeparate(ctx, diff)
	}
	if err != nil {
		return nil, err
	}

	mode := p.cfg.Mode
	if mode == "" {
		mode = config.ModeSeparate
	}

	return &Result{
		RunID:      logging.RunID(ctx),
		Mode:       mode,
		T:          diff.T,
		Regions:    regions,
		Gap:        gap,
		SampleRate: rate,
	}, nil
}

// runSeparate estimates one unmixing matrix per region
func (p *Pipeline) runSeparate(ctx context.Context, diff *timeseries.TimeSeries) ([]RegionResult, error) {
	init := ica.MatrixFromRows(p.icaCfg.InitialMatrix())

	regions := make([]RegionResult, 0, diff.Regions())
	for i := 0; i < diff.Regions(); i++ {
		name := p.cfg.RegionName(i)
		rctx := logging.WithRegion(ctx, name)
		x := diff.Region(i)

		out, order, err := p.unmix(rctx, x, init)
		if err != nil {
			return nil, err
		}

		regions = append(regions, RegionResult{
			Name:       name,
			Unmixing:   out.Unmixing(),
			Order:      order,
			S:          out.S,
			Iterations: out.Iterations,
			Converged:  out.Converged,
		})

		if p.cfg.ChainWarmStart {
			init = mat.DenseCopyOf(out.W)
		}
	}
	return regions, nil
}

// runCombined estimates one unmixing matrix on the channel-wise sum of all
// regions and applies it to each region's centered data
func (p *Pipeline) runCombined(ctx context.Context, diff *timeseries.TimeSeries) ([]RegionResult, error) {
	init := ica.MatrixFromRows(p.icaCfg.InitialMatrix())
	cctx := logging.WithRegion(ctx, "combined")

	out, order, err := p.unmix(cctx, diff.SumRegions(), init)
	if err != nil {
		return nil, err
	}
	u := out.Unmixing()

	regions := make([]RegionResult, 0, diff.Regions())
	for i := 0; i < diff.Regions(); i++ {
		s, err := ica.Unmix(u, diff.Region(i))
		if err != nil {
			return nil, errs.WithStage(err, "unmix")
		}
		regions = append(regions, RegionResult{
			Name:       p.cfg.RegionName(i),
			Unmixing:   u,
			Order:      order,
			S:          s,
			Iterations: out.Iterations,
			Converged:  out.Converged,
		})
	}
	return regions, nil
}

// unmix runs the separator on x and canonicalizes the result, applying the
// convergence policy
func (p *Pipeline) unmix(ctx context.Context, x *mat.Dense, init *mat.Dense) (*ica.MixingResult, ica.Order, error) {
	logger := logging.Ctx(ctx)

	opts := ica.Options{
		Components: p.icaCfg.Components,
		Init:       init,
		MaxIter:    p.icaCfg.MaxIter,
		Tol:        p.icaCfg.Tol,
		Algorithm:  ica.Algorithm(p.icaCfg.Algorithm),
		Contrast:   p.icaCfg.Contrast,
		Seed:       p.icaCfg.Seed,
	}

	res, err := p.separator.Separate(ctx, x, opts)
	if err != nil {
		if !errors.Is(err, errs.ErrConvergence) || res == nil {
			return nil, ica.Order{}, errs.WithStage(err, icaStage)
		}
		if p.icaCfg.AbortOnNonConvergence() {
			return nil, ica.Order{}, errs.WithStage(err, icaStage)
		}
		logger.Warn("ICA did not converge, continuing with last iterate",
			"iterations", res.Iterations,
			"tolerance", opts.Tol,
			"error", err)
	} else {
		logger.Debug("ICA converged", "iterations", res.Iterations)
	}

	out, order, err := ica.Canonicalize(res, x, logger)
	if err != nil {
		return nil, ica.Order{}, err
	}
	return out, order, nil
}

func toRanges(trs []config.TimeRange) []timeseries.Range {
	if len(trs) == 0 {
		return nil
	}
	ranges := make([]timeseries.Range, len(trs))
	for i, r := range trs {
		ranges[i] = timeseries.Range{Start: r.Start, End: r.End}
	}
	return ranges
}

// String summarizes the result for logs
func (r *Result) String() string {
	return fmt.Sprintf("run %s: %d samples, %d regions, mode %s", r.RunID, len(r.T), len(r.Regions), r.Mode)
}
