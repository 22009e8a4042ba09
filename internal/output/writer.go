// Package output writes separated components as aligned text rows.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/cardiacam/cardiacam/internal/errs"
	"github.com/cardiacam/cardiacam/internal/utils"
	"gonum.org/v1/gonum/mat"
)

const writeStage = "write"

// Writer emits one line per sample: the timestamp followed by every block's
// columns, space separated
type Writer struct {
	w         io.Writer
	precision int
}

// NewWriter creates a writer formatting values with precision significant
// digits. Precisions below utils.MinPrecision are raised to it.
func NewWriter(w io.Writer, precision int) *Writer {
	if precision < utils.MinPrecision {
		precision = utils.MinPrecision
	}
	return &Writer{w: w, precision: precision}
}

// Write validates that every block has one row per timestamp and then writes
// all rows. On an AlignmentError nothing is written.
func (wr *Writer) Write(t []float64, blocks ...mat.Matrix) error {
	if len(t) == 0 {
		return errs.InsufficientData(writeStage, "no samples to write")
	}
	for i, b := range blocks {
		if b == nil {
			return errs.Alignment(writeStage, "component block %d is missing", i)
		}
		if r, _ := b.Dims(); r != len(t) {
			return errs.NewWithDetails(errs.KindAlignment, writeStage,
				fmt.Sprintf("component block %d has %d rows for %d timestamps", i, r, len(t)),
				map[string]interface{}{"block": i, "rows": r, "timestamps": len(t)})
		}
	}

	bw := bufio.NewWriter(wr.w)
	buf := make([]byte, 0, 512)
	for i, ts := range t {
		buf = buf[:0]
		buf = strconv.AppendFloat(buf, ts, 'g', wr.precision, 64)
		for _, b := range blocks {
			_, c := b.Dims()
			for j := 0; j < c; j++ {
				buf = append(buf, ' ')
				buf = strconv.AppendFloat(buf, b.At(i, j), 'g', wr.precision, 64)
			}
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
