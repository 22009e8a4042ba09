package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cardiacam/cardiacam/internal/ica"
	"github.com/cardiacam/cardiacam/internal/queue"
	"github.com/cardiacam/cardiacam/internal/timeseries"
)

// Subject suffixes under the configured publish subject
const (
	SummarySuffix    = ".summary"
	ComponentsSuffix = ".components"
)

// Summary is the message published once per run
type Summary struct {
	RunID      string                `json:"run_id"`
	Mode       string                `json:"mode"`
	Samples    int                   `json:"samples"`
	Start      float64               `json:"start_s"`
	End        float64               `json:"end_s"`
	SampleRate float64               `json:"sample_rate_hz"`
	Gap        *timeseries.GapReport `json:"gap,omitempty"`
	Regions    []RegionSummary       `json:"regions"`
}

// RegionSummary describes the unmixing of one region
type RegionSummary struct {
	Name       string      `json:"name"`
	Unmixing   [][]float64 `json:"unmixing"`
	Order      ica.Order   `json:"order"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// ComponentBatch carries consecutive output rows: the timestamp followed by
// every region's components, as in the text output
type ComponentBatch struct {
	RunID  string      `json:"run_id"`
	Offset int         `json:"offset"`
	Rows   [][]float64 `json:"rows"`
}

// NewSummary builds the summary message of r
func NewSummary(r *Result) Summary {
	s := Summary{
		RunID:      r.RunID,
		Mode:       r.Mode,
		Samples:    len(r.T),
		SampleRate: r.SampleRate,
		Gap:        r.Gap,
		Regions:    make([]RegionSummary, len(r.Regions)),
	}
	if len(r.T) > 0 {
		s.Start = r.T[0]
		s.End = r.T[len(r.T)-1]
	}
	for i, reg := range r.Regions {
		s.Regions[i] = RegionSummary{
			Name:       reg.Name,
			Unmixing:   ica.MatrixRows(reg.Unmixing),
			Order:      reg.Order,
			Iterations: reg.Iterations,
			Converged:  reg.Converged,
		}
	}
	return s
}

// Batches splits the output rows of r into messages of at most batchSize rows
func Batches(r *Result, batchSize int) []ComponentBatch {
	if batchSize < 1 {
		batchSize = len(r.T)
	}

	var batches []ComponentBatch
	for lo := 0; lo < len(r.T); lo += batchSize {
		hi := lo + batchSize
		if hi > len(r.T) {
			hi = len(r.T)
		}
		rows := make([][]float64, 0, hi-lo)
		for i := lo; i < hi; i++ {
			row := []float64{r.T[i]}
			for _, reg := range r.Regions {
				row = append(row, reg.S.RawRowView(i)...)
			}
			rows = append(rows, row)
		}
		batches = append(batches, ComponentBatch{RunID: r.RunID, Offset: lo, Rows: rows})
	}
	return batches
}

// Publish sends the summary of r to <subject>.summary and its component rows
// to <subject>.components. It returns the number of messages published.
func Publish(ctx context.Context, pub queue.Publisher, r *Result, subject string, batchSize int) (int, error) {
	summary, err := json.Marshal(NewSummary(r))
	if err != nil {
		return 0, fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := pub.Publish(ctx, subject+SummarySuffix, summary); err != nil {
		return 0, err
	}

	batches := Batches(r, batchSize)
	messages := make([]queue.BatchMessage, 0, len(batches))
	for _, b := range batches {
		data, err := json.Marshal(b)
		if err != nil {
			return 1, fmt.Errorf("failed to encode component batch at row %d: %w", b.Offset, err)
		}
		messages = append(messages, queue.BatchMessage{Subject: subject + ComponentsSuffix, Data: data})
	}

	n, err := pub.PublishBatch(ctx, messages)
	if err != nil {
		return 1 + n, err
	}
	if n != len(messages) {
		return 1 + n, fmt.Errorf("published %d of %d component batches", n, len(messages))
	}
	return 1 + n, nil
}
