package timeseries

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/logging"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

const loadStage = "load"

// maxLineBytes bounds a single input row
const maxLineBytes = 1 << 20

// Load parses a whitespace separated table: one row per sample, the
// timestamp in seconds first, then the channel values in RGB triples. Blank
// lines and lines starting with '#' are ignored.
//
// Irregular sampling is not fatal: it is logged once at warn level and
// described by the returned GapReport (nil when sampling is uniform).
func Load(r io.Reader, logger *logging.Logger) (*TimeSeries, *GapReport, error) {
	if logger == nil {
		logger = logging.Global()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		t       []float64
		data    []float64
		columns int
		lineNo  int
	)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if columns == 0 {
			columns = len(fields)
			if columns < 1+utils.ChannelsPerRegion || (columns-1)%utils.ChannelsPerRegion != 0 {
				return nil, nil, errs.Format(loadStage,
					"line %d: %d channel columns, expected a positive multiple of %d",
					lineNo, columns-1, utils.ChannelsPerRegion)
			}
		} else if len(fields) != columns {
			return nil, nil, errs.Format(loadStage,
				"line %d: %d columns, expected %d", lineNo, len(fields), columns)
		}

		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, nil, errs.Format(loadStage, "line %d column %d: %q is not a number", lineNo, i+1, f)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, errs.Format(loadStage, "line %d column %d: %q is not finite", lineNo, i+1, f)
			}
			if i == 0 {
				t = append(t, v)
			} else {
				data = append(data, v)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errs.Wrap(errs.KindFormat, loadStage, "failed to read input", err)
	}

	if len(t) == 0 {
		return nil, nil, errs.Format(loadStage, "no samples in input")
	}

	ts, err := New(t, mat.NewDense(len(t), columns-1, data))
	if err != nil {
		return nil, nil, errs.WithStage(err, loadStage)
	}

	logger.Info("loaded samples",
		"samples", ts.Len(),
		"regions", ts.Regions(),
		"start_s", ts.Start(),
		"end_s", ts.End())

	gap := DetectGap(ts.T)
	if gap != nil {
		logger.Warn("sample rate is not uniform",
			"gap_index", gap.Index,
			"gap_time_s", gap.Time,
			"gap_excess_s", gap.Excess,
			"delta_spread_s", gap.Spread)
	}

	return ts, gap, nil
}
