// Package ica separates multichannel time series into independent
// components and fixes the permutation and sign ambiguity of the result.
//
// The relationship between the input X (samples × channels), the matrices of
// a MixingResult and the sources is
//
//	S = (X − mean(X)) · K · W = (X − mean(X)) · U
//
// where K whitens the centered data and W separates the whitened data.
package ica

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Algorithm selects the FastICA fixed-point update
type Algorithm string

const (
	Parallel  Algorithm = "parallel"  // Symmetric update of all components
	Deflation Algorithm = "deflation" // One component at a time
)

// Options configures one separation
type Options struct {
	Components int        // Number of components to extract
	Init       *mat.Dense // Optional Components×Components initial W (warm start)
	MaxIter    int        // Iteration cap
	Tol        float64    // Convergence tolerance on the change of W
	Algorithm  Algorithm  // Fixed-point update (default: Parallel)
	Contrast   string     // Nonlinearity name (default: exp)
	Seed       int64      // Seed for the random initial W when Init is nil
}

// DefaultOptions returns options matching the reference behavior for RGB
func DefaultOptions() Options {
	return Options{
		Components: 3,
		MaxIter:    40000,
		Tol:        1e-14,
		Algorithm:  Parallel,
		Contrast:   "exp",
	}
}

// MixingResult is the outcome of one ICA run
type MixingResult struct {
	K          *mat.Dense // Whitening matrix, channels×components
	W          *mat.Dense // Separating matrix, components×components
	S          *mat.Dense // Sources, samples×components
	Iterations int        // Fixed-point iterations performed
	Converged  bool       // Whether Tol was met within MaxIter
}

// Unmixing returns U = K·W
func (r *MixingResult) Unmixing() *mat.Dense {
	var u mat.Dense
	u.Mul(r.K, r.W)
	return &u
}

// Components returns the number of separated components
func (r *MixingResult) Components() int {
	_, c := r.W.Dims()
	return c
}

// Separator is the ICA engine boundary. Implementations return the last
// iterate together with a ConvergenceError when the iteration cap is reached,
// leaving the decision to proceed to the caller.
type Separator interface {
	// Name returns the separator name
	Name() string
	// Separate unmixes x (samples × channels)
	Separate(ctx context.Context, x mat.Matrix, opts Options) (*MixingResult, error)
}

// Registry holds available separators
var separatorRegistry = make(map[string]Separator)

// RegisterSeparator adds a separator to the registry
func RegisterSeparator(name string, s Separator) {
	separatorRegistry[name] = s
}

// GetSeparator returns a separator by name
func GetSeparator(name string) (Separator, error) {
	if s, ok := separatorRegistry[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown separator: %s (available: %s)", name, strings.Join(ListSeparators(), ", "))
}

// ListSeparators returns the registered separator names, sorted
func ListSeparators() []string {
	names := make([]string, 0, len(separatorRegistry))
	for name := range separatorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatrixFromRows builds a dense matrix from row slices, or nil for no rows
func MatrixFromRows(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

// MatrixRows returns m as row slices, for logging and serialization
func MatrixRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = make([]float64, c)
		for j := range rows[i] {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}
