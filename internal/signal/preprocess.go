package signal

import (
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/samarth/internal/geom"
)

// Velocity returns the mean Euclidean displacement between matched points,
// scaled by frameRate. It is 0 when previous is absent or does not match.
func Velocity(current, previous []geom.Point2D, frameRate float64) float64 {
	if len(previous) == 0 || len(previous) != len(current) {
		return 0
	}
	var total float64
	for i := range current {
		total += geom.Distance(current[i], previous[i])
	}
	return total / float64(len(current)) * frameRate
}

// RejectOutliers drops samples deviating more than 3σ from the mean on
// either axis. When fewer than minKeep samples would survive, the input is
// returned unchanged.
func RejectOutliers(x, y []float64, minKeep int) ([]float64, []float64) {
	if len(x) != len(y) || len(x) == 0 {
		return x, y
	}
	mx, sx := Mean(x), Std(x)
	my, sy := Mean(y), Std(y)

	keptX := make([]float64, 0, len(x))
	keptY := make([]float64, 0, len(y))
	for i := range x {
		if sx > 0 && abs(x[i]-mx) > 3*sx {
			continue
		}
		if sy > 0 && abs(y[i]-my) > 3*sy {
			continue
		}
		keptX = append(keptX, x[i])
		keptY = append(keptY, y[i])
	}
	if len(keptX) < minKeep {
		return x, y
	}
	return keptX, keptY
}

// Normalize rescales to zero mean and unit variance.
func Normalize(series []float64) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}
	m, s := Mean(series), Std(series)
	for i, v := range series {
		out[i] = (v - m) / (s + Epsilon)
	}
	return out
}

// Hann returns a Hann-windowed copy of series.
func Hann(series []float64) []float64 {
	out := make([]float64, len(series))
	copy(out, series)
	if len(out) < 2 {
		return out
	}
	return window.Hann(out)
}

// PeriodicHann returns the n-point periodic (DFT-even) Hann window, the
// symmetric n+1 window without its final sample.
func PeriodicHann(n int) []float64 {
	if n < 1 {
		return nil
	}
	ones := make([]float64, n+1)
	for i := range ones {
		ones[i] = 1
	}
	return window.Hann(ones)[:n]
}

// SavitzkyGolay smooths series with a least-squares polynomial of order
// polyorder over an odd window, mirroring the series at both ends. The
// window shrinks to fit short input; if it cannot exceed polyorder the
// series is returned unchanged.
func SavitzkyGolay(series []float64, windowLen, polyorder int) []float64 {
	out := make([]float64, len(series))
	copy(out, series)

	if windowLen > len(series) {
		windowLen = len(series)
	}
	if windowLen%2 == 0 {
		windowLen--
	}
	if windowLen <= polyorder || windowLen < 3 {
		return out
	}

	coeffs, ok := savgolCoeffs(windowLen, polyorder)
	if !ok {
		return out
	}

	half := windowLen / 2
	n := len(series)
	for i := 0; i < n; i++ {
		var acc float64
		for k := -half; k <= half; k++ {
			acc += coeffs[k+half] * series[mirrorIndex(i+k, n)]
		}
		out[i] = acc
	}
	return out
}

// savgolCoeffs returns the centre-point smoothing weights, the first row of
// (AᵀA)⁻¹Aᵀ for the Vandermonde matrix A over offsets -half..half.
func savgolCoeffs(windowLen, polyorder int) ([]float64, bool) {
	half := windowLen / 2
	cols := polyorder + 1

	a := mat.NewDense(windowLen, cols, nil)
	for r := 0; r < windowLen; r++ {
		x := float64(r - half)
		v := 1.0
		for c := 0; c < cols; c++ {
			a.Set(r, c, v)
			v *= x
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, false
	}
	var h mat.Dense
	h.Mul(&inv, a.T())

	coeffs := make([]float64, windowLen)
	for i := range coeffs {
		coeffs[i] = h.At(0, i)
	}
	return coeffs, true
}

func mirrorIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
