// Command rgb2ica extracts the cardiac pulse from RGB traces of facial
// regions. It reads a whitespace separated table (timestamp, then RGB triples
// per region), unmixes every region into three independent components in
// canonical order and writes the timestamp followed by each region's
// components, one row per sample.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cardiacam/cardiacam/internal/compression"
	"github.com/cardiacam/cardiacam/internal/config"
	"github.com/cardiacam/cardiacam/internal/logging"
	"github.com/cardiacam/cardiacam/internal/output"
	"github.com/cardiacam/cardiacam/internal/pipeline"
	"github.com/cardiacam/cardiacam/internal/queue"
	"github.com/cardiacam/cardiacam/internal/timeseries"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
)

const (
	publishTimeout = 30 * time.Second
	outputFileMode = 0o644
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds the command line flags
type options struct {
	configPath string
	input      string
	output     string
	mode       string
	lead       float64
	trail      float64
	set        map[string]bool // Flags given explicitly
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("rgb2ica", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{set: make(map[string]bool)}
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.input, "input", "-", "Input table ('-' for stdin, .sz for snappy)")
	fs.StringVar(&opts.output, "output", "-", "Output table ('-' for stdout, .sz for snappy)")
	fs.StringVar(&opts.mode, "mode", "", "Override pipeline.mode (separate, combined)")
	fs.Float64Var(&opts.lead, "lead", 0, "Override pipeline.transient.lead")
	fs.Float64Var(&opts.trail, "trail", 0, "Override pipeline.transient.trail")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// run executes one conversion and returns the process exit code
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	// 1. Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Invalid options: %v\n", err)
		return 1
	}

	// 2. Initialize logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	logging.SetGlobal(logger)

	runID := logging.NewRunID()
	ctx = logging.WithLogger(logging.WithRunID(ctx, runID), logger)
	logger = logging.Ctx(ctx)
	logger.Debug("rgb2ica starting", "version", Version, "commit", GitCommit)

	// 3. Load input
	ts, err := loadInput(opts.input, stdin, logger)
	if err != nil {
		logger.Error("Failed to load input", "error", err)
		return 1
	}

	// 4. Run pipeline
	p, err := pipeline.New(cfg.Pipeline, cfg.ICA)
	if err != nil {
		logger.Error("Failed to create pipeline", "error", err)
		return 1
	}
	res, err := p.Run(ctx, ts)
	if err != nil {
		logger.Error("Pipeline failed", "error", err)
		return 1
	}

	// 5. Write output
	if err := writeOutput(opts.output, stdout, cfg.Output.Precision, res); err != nil {
		logger.Error("Failed to write output", "error", err)
		return 1
	}
	logger.Info("wrote components", "samples", len(res.T), "regions", len(res.Regions), "output", opts.output)

	// 6. Publish
	if cfg.Publish.Enabled {
		if err := publish(ctx, cfg.Publish, res, logger); err != nil {
			logger.Error("Failed to publish result", "error", err)
			return 1
		}
	}

	return 0
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.set["mode"] {
		cfg.Pipeline.Mode = opts.mode
	}
	if opts.set["lead"] {
		cfg.Pipeline.Transient.Lead = opts.lead
	}
	if opts.set["trail"] {
		cfg.Pipeline.Transient.Trail = opts.trail
	}
}

func loadInput(path string, stdin io.Reader, logger *logging.Logger) (*timeseries.TimeSeries, error) {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = file.Close() }()
		r = file
	}

	ts, _, err := timeseries.Load(compression.ForPath(path).NewReader(r), logger)
	return ts, err
}

// writeOutput writes the component table to path, or to stdout for "-".
// Files are written to a temporary sibling and renamed into place, so a
// failed run never leaves a truncated or partial output file.
func writeOutput(path string, stdout io.Writer, precision int, res *pipeline.Result) error {
	if path == "-" {
		return writeTable(stdout, path, precision, res)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeTable(tmp, path, precision, res); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(outputFileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// writeTable encodes res onto w, compressed according to the name path
func writeTable(w io.Writer, path string, precision int, res *pipeline.Result) error {
	cw := compression.ForPath(path).NewWriter(w)
	if err := output.NewWriter(cw, precision).Write(res.T, res.Blocks()...); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

func publish(ctx context.Context, cfg config.PublishConfig, res *pipeline.Result, logger *logging.Logger) error {
	pub, err := queue.NewPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n, err := pipeline.Publish(ctx, pub, res, cfg.Subject, cfg.BatchSize)
	if err != nil {
		return err
	}
	logger.Info("published result", "type", cfg.Type, "subject", cfg.Subject, "messages", n)
	return nil
}
