package speech

import (
	"math"

	"github.com/ayusman/samarth/internal/signal"
)

const (
	formantContours = 3

	// Speech frames are louder than this share of the loudest frame.
	segmentRatio = 0.1
	// Pauses are quieter than this share of the loudest frame.
	pauseRatio = 0.2

	stressWindow = 0.2 // seconds
	stressPitch  = 0.6
	stressVolume = 0.4
)

// segments returns the runs of frames whose energy exceeds segmentRatio of
// the loudest frame. A run still open at the end closes on the last frame.
func (f *frames) segments() []Segment {
	threshold := segmentRatio * signal.Max(f.rms)
	if threshold <= ampFloor*segmentRatio {
		return nil
	}
	var out []Segment
	add := func(start, end int) {
		s, e := f.frameTime(start), f.frameTime(end)
		if e > s {
			out = append(out, Segment{Start: s, End: e, Type: "speech"})
		}
	}
	start := -1
	for i, v := range f.rms {
		switch {
		case v > threshold && start < 0:
			start = i
		case v <= threshold && start >= 0:
			add(start, i-1)
			start = -1
		}
	}
	if start >= 0 {
		add(start, len(f.rms)-1)
	}
	return out
}

// confidenceSeries is the frame energy scaled to [0, 1].
func (f *frames) confidenceSeries() []float64 {
	lo, hi := signal.Min(f.rms), signal.Max(f.rms)
	out := make([]float64, len(f.rms))
	if hi-lo < signal.Epsilon {
		return out
	}
	for i, v := range f.rms {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// stressSeries weighs the pitch and energy variability of the frames within
// stressWindow around each frame.
func (f *frames) stressSeries() []float64 {
	half := int(math.Round(stressWindow*f.sr/float64(f.cfg.HopLength))) / 2
	half = max(half, 1)
	out := make([]float64, f.count)
	for i := range out {
		lo, hi := max(0, i-half), min(f.count, i+half+1)
		var pitches []float64
		for j := lo; j < hi && j < len(f.lag); j++ {
			if f.lag[j] > 0 {
				pitches = append(pitches, f.sr/f.lag[j])
			}
		}
		pitchVar := 0.0
		if len(pitches) > 1 {
			pitchVar = signal.CV(pitches)
		}
		out[i] = clip01(stressPitch*pitchVar + stressVolume*signal.CV(f.rms[lo:hi]))
	}
	return out
}

// hesitationSeries marks single quiet frames between louder neighbours and
// smooths the marks over three frames.
func (f *frames) hesitationSeries() []float64 {
	n := len(f.rms)
	out := make([]float64, n)
	if n < 3 {
		return out
	}
	threshold := pauseRatio * signal.Max(f.rms)
	marks := make([]float64, n)
	for i := 1; i < n-1; i++ {
		if f.rms[i-1] > threshold && f.rms[i] <= threshold && f.rms[i+1] > threshold {
			marks[i] = 1
		}
	}
	for i := range out {
		var s float64
		for j := max(0, i-1); j <= min(n-1, i+1); j++ {
			s += marks[j]
		}
		out[i] = s / 3
	}
	return out
}
