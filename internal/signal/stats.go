// Package signal implements the preprocessing and spectral routines shared by
// the analyzers. Every function degrades to zeros or an unfiltered copy on
// short, empty or constant input instead of failing.
package signal

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Epsilon guards divisions by a standard deviation or a mean.
const Epsilon = 1e-6

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Std returns the population standard deviation, or 0 for fewer than two samples.
func Std(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	v := stat.PopVariance(x, nil)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Sqrt(v)
}

// CV is the coefficient of variation std/|mean|; 0 when the mean vanishes.
func CV(x []float64) float64 {
	m := math.Abs(Mean(x))
	if m < Epsilon {
		return 0
	}
	return Std(x) / m
}

// Max returns the largest element, or 0 for an empty series.
func Max(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Max(x)
}

// Min returns the smallest element, or 0 for an empty series.
func Min(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Min(x)
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Diff returns the first difference x[i+1]-x[i].
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}
	return out
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
