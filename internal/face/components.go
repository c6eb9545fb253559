package face

import (
	"math"

	"github.com/ayusman/samarth/internal/geom"
	"github.com/ayusman/samarth/internal/signal"
)

// EyeMetrics explains the eye symmetry score.
type EyeMetrics struct {
	VerticalAlignment    float64 `json:"vertical_alignment"`
	AreaRatio            float64 `json:"area_ratio"`
	MidlineDistanceRatio float64 `json:"midline_distance_ratio"`
	LeftArea             float64 `json:"left_area"`
	RightArea            float64 `json:"right_area"`
}

// MouthMetrics explains the mouth symmetry score.
type MouthMetrics struct {
	CenterDeviation float64 `json:"center_deviation"`
	CornerAlignment float64 `json:"corner_alignment"`
	DroopRatio      float64 `json:"droop_ratio"`
}

// JawMetrics explains the jaw symmetry score.
type JawMetrics struct {
	ChinDeviation   float64 `json:"chin_deviation"`
	LeftAngleDeg    float64 `json:"left_angle_deg"`
	RightAngleDeg   float64 `json:"right_angle_deg"`
	AngleDifference float64 `json:"angle_difference"`
	ContourRatio    float64 `json:"contour_ratio"`
}

// EyebrowMetrics explains the eyebrow symmetry score.
type EyebrowMetrics struct {
	VerticalAlignment    float64 `json:"vertical_alignment"`
	MidlineDistanceRatio float64 `json:"midline_distance_ratio"`
	HeightRatio          float64 `json:"height_ratio"`
	LeftHeight           float64 `json:"left_height"`
	RightHeight          float64 `json:"right_height"`
}

// ratio compares two magnitudes as min/max; two vanishing values are equal.
func ratio(a, b float64) float64 {
	a, b = math.Abs(a), math.Abs(b)
	hi := math.Max(a, b)
	if hi < signal.Epsilon {
		return 1
	}
	return math.Min(a, b) / hi
}

// closeness maps an offset to 1 at zero and 0 at scale or beyond.
func closeness(offset, scale float64) float64 {
	if scale < signal.Epsilon {
		return 0
	}
	return 1 - math.Min(1, math.Abs(offset)/scale)
}

// polygonArea is the shoelace area of a closed contour.
func polygonArea(points []geom.Point2D) float64 {
	var s float64
	for i := range points {
		j := (i + 1) % len(points)
		s += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(s) / 2
}

// pathLength sums consecutive segment lengths.
func pathLength(points []geom.Point2D) float64 {
	var l float64
	for i := 1; i < len(points); i++ {
		l += geom.Distance(points[i-1], points[i])
	}
	return l
}

func (a *Analyzer) eyeSymmetry(f frame, left, right []geom.Point2D) (float64, EyeMetrics) {
	lc, rc := geom.Centroid(left), geom.Centroid(right)
	spacing := geom.Distance(lc, rc)

	m := EyeMetrics{
		VerticalAlignment:    closeness(f.along(lc)-f.along(rc), spacing),
		LeftArea:             polygonArea(left),
		RightArea:            polygonArea(right),
		MidlineDistanceRatio: ratio(f.across(lc), f.across(rc)),
	}
	m.AreaRatio = ratio(m.LeftArea, m.RightArea)

	w := a.cfg.Eye
	score := w.VerticalAlignment*m.VerticalAlignment + w.AreaRatio*m.AreaRatio + w.MidlineDistance*m.MidlineDistanceRatio
	return signal.Clamp(score, 0, 1), m
}

// Mouth corners sit at these positions of the mouth list.
const (
	mouthLeftCorner  = 0
	mouthRightCorner = 10
)

func (a *Analyzer) mouthSymmetry(f frame, mouth []geom.Point2D) (float64, MouthMetrics) {
	if len(mouth) <= mouthRightCorner {
		return 0, MouthMetrics{}
	}
	lc, rc := mouth[mouthLeftCorner], mouth[mouthRightCorner]
	halfWidth := geom.Distance(lc, rc) / 2

	var m MouthMetrics
	if halfWidth > signal.Epsilon {
		m.CenterDeviation = math.Abs(f.across(geom.Centroid(mouth))) / halfWidth
	}
	m.CornerAlignment = closeness(f.along(lc)-f.along(rc), halfWidth)

	left, right := f.split(mouth)
	if len(left) > 0 && len(right) > 0 && halfWidth > signal.Epsilon {
		dl := meanAlong(f, left)
		dr := meanAlong(f, right)
		m.DroopRatio = math.Min(1, math.Abs(dl-dr)/halfWidth)
	}

	w := a.cfg.Mouth
	score := w.CenterDeviation*(1-math.Min(1, m.CenterDeviation)) +
		w.CornerAlignment*m.CornerAlignment +
		w.Droop*(1-m.DroopRatio)
	return signal.Clamp(score, 0, 1), m
}

func meanAlong(f frame, points []geom.Point2D) float64 {
	var s float64
	for _, p := range points {
		s += f.along(p)
	}
	return s / float64(len(points))
}

// Chin position in the jawline list.
const jawChin = 10

func (a *Analyzer) jawSymmetry(f frame, jaw []geom.Point2D) (float64, JawMetrics) {
	if len(jaw) <= jawChin {
		return 0, JawMetrics{}
	}
	chin := jaw[jawChin]
	first, last := jaw[0], jaw[len(jaw)-1]
	halfWidth := geom.Distance(first, last) / 2

	m := JawMetrics{
		ChinDeviation: 1,
		LeftAngleDeg:  angleToMidline(f, chin, first),
		RightAngleDeg: angleToMidline(f, chin, last),
	}
	if halfWidth > signal.Epsilon {
		m.ChinDeviation = math.Min(1, math.Abs(f.across(chin))/halfWidth)
	}
	m.AngleDifference = math.Abs(m.LeftAngleDeg - m.RightAngleDeg)

	left, right := f.split(jaw)
	m.ContourRatio = ratio(pathLength(left), pathLength(right))

	w := a.cfg.Jaw
	score := w.ChinDeviation*(1-m.ChinDeviation) +
		w.AngleDiff*closeness(m.AngleDifference, a.cfg.JawAngleToleranceDeg) +
		w.ContourRatio*m.ContourRatio
	return signal.Clamp(score, 0, 1), m
}

// angleToMidline is the angle in degrees between chin→end and the midline
// direction.
func angleToMidline(f frame, chin, end geom.Point2D) float64 {
	vx, vy := end.X-chin.X, end.Y-chin.Y
	l := math.Hypot(vx, vy)
	if l < signal.Epsilon {
		return 0
	}
	c := signal.Clamp((vx*f.u.X+vy*f.u.Y)/l, -1, 1)
	return math.Acos(c) * 180 / math.Pi
}

func (a *Analyzer) eyebrowSymmetry(f frame, leftBrow, rightBrow, leftEye, rightEye []geom.Point2D) (float64, EyebrowMetrics) {
	lb, rb := geom.Centroid(leftBrow), geom.Centroid(rightBrow)
	spacing := geom.Distance(lb, rb)

	m := EyebrowMetrics{
		VerticalAlignment:    closeness(f.along(lb)-f.along(rb), spacing),
		MidlineDistanceRatio: ratio(f.across(lb), f.across(rb)),
		LeftHeight:           f.along(geom.Centroid(leftEye)) - f.along(lb),
		RightHeight:          f.along(geom.Centroid(rightEye)) - f.along(rb),
	}
	m.HeightRatio = ratio(m.LeftHeight, m.RightHeight)

	w := a.cfg.Eyebrow
	score := w.VerticalAlignment*m.VerticalAlignment + w.MidlineDistance*m.MidlineDistanceRatio + w.HeightRatio*m.HeightRatio
	return signal.Clamp(score, 0, 1), m
}
