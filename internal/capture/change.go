package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ChangeMeter measures how much of a frame differs from the previous one,
// so repeated frames can be told apart from real motion.
type ChangeMeter struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

const (
	// BlurSize is the Gaussian kernel applied before differencing.
	BlurSize = 21
	// DiffThreshold is the per-pixel intensity change that counts.
	DiffThreshold = 25
)

// NewChangeMeter creates a meter. A frame counts as changed when more than
// threshold percent of its pixels differ; 0 means any change at all.
func NewChangeMeter(threshold float64) *ChangeMeter {
	if threshold < 0 {
		threshold = 0
	}
	return &ChangeMeter{threshold: threshold, prevGray: gocv.NewMat()}
}

// Measure compares frame with the previous one and reports whether it
// changed and by what percentage of pixels. The first frame after a reset
// is the baseline and reports no change.
func (m *ChangeMeter) Measure(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100
	blurred.CopyTo(&m.prevGray)
	return changed > m.threshold, changed
}

// Reset forgets the baseline frame.
func (m *ChangeMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prevGray.Close()
	m.prevGray = gocv.NewMat()
	m.initialized = false
}

// Close releases the baseline frame.
func (m *ChangeMeter) Close() {
	m.Reset()
}
