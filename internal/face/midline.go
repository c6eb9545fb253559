package face

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/samarth/internal/geom"
	"github.com/ayusman/samarth/internal/signal"
)

// Line is the fitted facial midline x = Slope·y + Intercept.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// Midline fits x as a linear function of y by least squares. When the
// points do not span any height it falls back to a vertical line through
// the mean x.
func Midline(points []geom.Point2D) Line {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	if len(points) < 2 || signal.Std(ys) < signal.Epsilon {
		return Line{Intercept: signal.Mean(xs)}
	}
	intercept, slope := stat.LinearRegression(ys, xs, nil, false)
	if !signal.Finite(slope) || !signal.Finite(intercept) {
		return Line{Intercept: signal.Mean(xs)}
	}
	return Line{Slope: slope, Intercept: intercept}
}

// frame is an orthonormal basis aligned with the midline: u runs down the
// face and n points toward +x.
type frame struct {
	origin geom.Point2D
	u, n   geom.Point2D
}

func newFrame(l Line) frame {
	norm := math.Hypot(l.Slope, 1)
	return frame{
		origin: geom.Point2D{X: l.Intercept, Y: 0},
		u:      geom.Point2D{X: l.Slope / norm, Y: 1 / norm},
		n:      geom.Point2D{X: 1 / norm, Y: -l.Slope / norm},
	}
}

// along is the coordinate of p along the midline.
func (f frame) along(p geom.Point2D) float64 {
	return (p.X-f.origin.X)*f.u.X + (p.Y-f.origin.Y)*f.u.Y
}

// across is the signed distance of p from the midline, negative on the -x side.
func (f frame) across(p geom.Point2D) float64 {
	return (p.X-f.origin.X)*f.n.X + (p.Y-f.origin.Y)*f.n.Y
}

// split assigns points to the two sides of the midline, dropping points
// that lie on it.
func (f frame) split(points []geom.Point2D) (left, right []geom.Point2D) {
	for _, p := range points {
		switch d := f.across(p); {
		case d < -signal.Epsilon:
			left = append(left, p)
		case d > signal.Epsilon:
			right = append(right, p)
		}
	}
	return left, right
}
