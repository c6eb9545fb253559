package eye

import (
	"fmt"
	"math"

	"github.com/ayusman/samarth/internal/geom"
	"github.com/ayusman/samarth/internal/signal"
)

// Summary aggregates a Temporal buffer.
type Summary struct {
	FrameCount         int         `json:"frame_count"`
	MeanVelocity       float64     `json:"mean_velocity"`
	PeakVelocity       float64     `json:"peak_velocity"`
	SaccadeCount       int         `json:"saccade_count"`
	FixationCount      int         `json:"fixation_count"`
	BlinkCount         int         `json:"blink_count"`
	MovementSmoothness float64     `json:"movement_smoothness"`
	Accuracy           float64     `json:"accuracy"`
	AverageEAR         float64     `json:"average_ear"`
	EARSymmetry        float64     `json:"ear_symmetry"`
	DataQuality        DataQuality `json:"data_quality"`
}

// DataQuality flags recordings whose numbers are not physiologically plausible.
type DataQuality struct {
	Valid     bool     `json:"valid"`
	BlinkRate float64  `json:"blink_rate"`
	Issues    []string `json:"issues,omitempty"`
}

// ClassifySaccades flags each frame whose 3-frame neighbourhood shows a
// saccade: the frame itself exceeds the threshold, the neighbourhood spans
// more than half of it, or the neighbourhood peaks above 1.5 times it.
func (a *Analyzer) ClassifySaccades(velocities []float64) []bool {
	th := a.cfg.SaccadeVelocity
	out := make([]bool, len(velocities))
	for i, v := range velocities {
		lo, hi := max(0, i-1), min(len(velocities), i+2)
		win := velocities[lo:hi]
		span := signal.Max(win) - signal.Min(win)
		out[i] = v > th || span > th/2 || signal.Max(win) > 1.5*th
	}
	return out
}

// ClassifyFixations flags frames slower than the fixation velocity.
func (a *Analyzer) ClassifyFixations(velocities []float64) []bool {
	th := a.cfg.FixationVelocity()
	out := make([]bool, len(velocities))
	for i, v := range velocities {
		out[i] = v < th
	}
	return out
}

// RisingEdges counts false-to-true transitions, treating the start as false.
func RisingEdges(flags []bool) int {
	n := 0
	prev := false
	for _, f := range flags {
		if f && !prev {
			n++
		}
		prev = f
	}
	return n
}

// Summarize computes the per-sequence statistics.
func (a *Analyzer) Summarize(t *Temporal) Summary {
	s := Summary{FrameCount: t.Len(), Accuracy: a.cfg.BaselineAccuracy}
	if t.Len() == 0 {
		s.DataQuality = DataQuality{Valid: true}
		return s
	}

	open := make([]float64, 0, t.Len())
	for i, v := range t.Velocities {
		if !t.Blinks[i] {
			open = append(open, v)
		}
	}
	s.MeanVelocity = signal.Mean(open)
	s.PeakVelocity = signal.Max(open)

	saccades := a.ClassifySaccades(t.Velocities)
	fixations := a.fixationFrames(t)
	s.SaccadeCount = RisingEdges(saccades)
	s.FixationCount = RisingEdges(fixations)
	s.BlinkCount = RisingEdges(t.Blinks)

	smoothed := signal.SavitzkyGolay(t.Velocities, a.cfg.SmoothingWindow, a.cfg.SmoothingOrder)
	s.MovementSmoothness = signal.Std(smoothed)
	s.Accuracy = a.accuracy(t, fixations)

	ears := t.EAR()
	s.AverageEAR = signal.Mean(ears)
	var asym float64
	for i := range t.LeftEARs {
		asym += math.Abs(t.LeftEARs[i] - t.RightEARs[i])
	}
	s.EARSymmetry = asym / float64(t.Len())

	s.DataQuality = a.dataQuality(s)
	return s
}

// fixationFrames are slow frames that are not blinks.
func (a *Analyzer) fixationFrames(t *Temporal) []bool {
	fix := a.ClassifyFixations(t.Velocities)
	for i := range fix {
		if t.Blinks[i] {
			fix[i] = false
		}
	}
	return fix
}

// accuracy refines the baseline with the positional stability of fixation
// frames (70%) and the consistency of their velocities (30%).
func (a *Analyzer) accuracy(t *Temporal, fixations []bool) (acc float64) {
	base := a.cfg.BaselineAccuracy
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("accuracy fell back to baseline", "panic", r)
			acc = base
		}
	}()

	var pos []geom.Point2D
	var vel []float64
	for i, f := range fixations {
		if f {
			pos = append(pos, t.Centers[i])
			vel = append(vel, t.Velocities[i])
		}
	}
	if len(pos) < 2 {
		return base
	}

	c := geom.Centroid(pos)
	var dispersion float64
	for _, p := range pos {
		dispersion += geom.Distance(p, c)
	}
	dispersion /= float64(len(pos))

	scale := a.cfg.DispersionScale
	if scale <= 0 {
		scale = 1
	}
	stability := 1 / (1 + dispersion/scale)
	consistency := 1 / (1 + signal.CV(vel))
	combined := 0.7*stability + 0.3*consistency

	acc = base + (combined-0.5)*50
	if !signal.Finite(acc) {
		return base
	}
	return signal.Clamp(acc, a.cfg.AccuracyMin, a.cfg.AccuracyMax)
}

func (a *Analyzer) dataQuality(s Summary) DataQuality {
	q := DataQuality{Valid: true}
	if s.FrameCount > 0 {
		q.BlinkRate = float64(s.BlinkCount) / float64(s.FrameCount)
	}
	if q.BlinkRate > a.cfg.MaxBlinkRate {
		q.Issues = append(q.Issues, fmt.Sprintf("blink rate %.2f exceeds %.2f", q.BlinkRate, a.cfg.MaxBlinkRate))
	}
	if s.PeakVelocity > a.cfg.MaxPlausibleVelocity {
		q.Issues = append(q.Issues, fmt.Sprintf("peak velocity %.0f exceeds %.0f", s.PeakVelocity, a.cfg.MaxPlausibleVelocity))
	}
	q.Valid = len(q.Issues) == 0
	return q
}
