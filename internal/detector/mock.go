package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/samarth/internal/geom"
)

// MockProvider is a test implementation of the Provider interface.
// Results can be fixed or queued: a queued sequence is consumed one entry
// per call, which lets tests replay a clip frame by frame.
type MockProvider struct {
	mu        sync.Mutex
	faces     []*FaceLandmarks
	hands     [][]HandLandmarks
	poses     []*PoseLandmarks
	faceFixed bool
	handFixed bool
	poseFixed bool
	err       error
	calls     int
}

// NewMockProvider creates a new MockProvider instance.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// SetFace makes every DetectFace call return face.
func (m *MockProvider) SetFace(face *FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = []*FaceLandmarks{face}
	m.faceFixed = true
}

// QueueFaces makes successive DetectFace calls return faces in order.
// A nil entry simulates a frame without a face.
func (m *MockProvider) QueueFaces(faces ...*FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = append(m.faces, faces...)
	m.faceFixed = false
}

// SetHands makes every DetectHands call return hands.
func (m *MockProvider) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = [][]HandLandmarks{hands}
	m.handFixed = true
}

// QueueHands makes successive DetectHands calls return one hand set each.
func (m *MockProvider) QueueHands(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = append(m.hands, frames...)
	m.handFixed = false
}

// SetPose makes every DetectPose call return pose.
func (m *MockProvider) SetPose(pose *PoseLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = []*PoseLandmarks{pose}
	m.poseFixed = true
}

// QueuePoses makes successive DetectPose calls return poses in order.
func (m *MockProvider) QueuePoses(poses ...*PoseLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = append(m.poses, poses...)
	m.poseFixed = false
}

// SetError sets the error that will be returned by every Detect call.
func (m *MockProvider) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many Detect calls were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// DetectFace returns the configured face or error.
func (m *MockProvider) DetectFace(frame *gocv.Mat) (*FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.faces) == 0 {
		return nil, nil
	}
	face := m.faces[0]
	if !m.faceFixed {
		m.faces = m.faces[1:]
	}
	return face.Clone(), nil
}

// DetectHands returns the configured hands or error.
func (m *MockProvider) DetectHands(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.hands) == 0 {
		return nil, nil
	}
	hands := m.hands[0]
	if !m.handFixed {
		m.hands = m.hands[1:]
	}
	return hands, nil
}

// DetectPose returns the configured pose or error.
func (m *MockProvider) DetectPose(frame *gocv.Mat) (*PoseLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.poses) == 0 {
		return nil, nil
	}
	pose := m.poses[0]
	if !m.poseFixed {
		m.poses = m.poses[1:]
	}
	return pose, nil
}

// Close is a no-op for the mock provider.
func (m *MockProvider) Close() error {
	return nil
}

// FaceCenterX is the vertical symmetry axis of SymmetricFaceLandmarks.
const FaceCenterX = 320.0

// SymmetricFaceLandmarks returns a 640x480 face mesh whose regions are exact
// mirror images about x = FaceCenterX. Points not used by any region sit
// on the axis.
func SymmetricFaceLandmarks() *FaceLandmarks {
	const cx = FaceCenterX
	pts := make([]geom.Point3D, NumFaceLandmarks)
	for i := range pts {
		pts[i] = geom.Point3D{X: cx, Y: 240}
	}

	for i, idx := range faceRegions[RegionMidline] {
		pts[idx] = geom.Point3D{X: cx, Y: 120 + float64(i)*12}
	}

	// Eyes: ellipse with the corners at list positions 0 and 8.
	left := faceRegions[RegionLeftEye]
	right := faceRegions[RegionRightEye]
	for k := range left {
		theta := math.Pi * float64(k) / 8
		p := geom.Point3D{X: cx - 60 + 22*math.Cos(theta), Y: 200 + 8*math.Sin(theta)}
		pts[left[k]] = p
		pts[right[k]] = mirror(p, cx)
	}

	leftBrow := faceRegions[RegionLeftEyebrow]
	rightBrow := faceRegions[RegionRightEyebrow]
	for k := range leftBrow {
		p := geom.Point3D{
			X: cx - 90 + 60*float64(k)/9,
			Y: 175 - 8*math.Sin(math.Pi*float64(k)/9),
		}
		pts[leftBrow[k]] = p
		pts[rightBrow[k]] = mirror(p, cx)
	}

	// Mouth: corners, then lower and upper lip halves mirrored about the axis.
	mouth := map[int]geom.Point3D{
		61:  {X: cx - 35, Y: 320},
		291: {X: cx + 35, Y: 320},
		17:  {X: cx, Y: 332},
		0:   {X: cx, Y: 308},
	}
	lowerLeft := []int{146, 91, 181, 84}
	lowerRight := []int{375, 321, 405, 314}
	upperLeft := []int{185, 40, 39, 37}
	upperRight := []int{409, 270, 269, 267}
	for k := range lowerLeft {
		f := float64(k+1) / 5
		dx := 35 * (1 - f)
		dy := 12 * math.Sqrt(1-(dx/35)*(dx/35))
		mouth[lowerLeft[k]] = geom.Point3D{X: cx - dx, Y: 320 + dy}
		mouth[lowerRight[k]] = geom.Point3D{X: cx + dx, Y: 320 + dy}
		mouth[upperLeft[k]] = geom.Point3D{X: cx - dx, Y: 320 - dy}
		mouth[upperRight[k]] = geom.Point3D{X: cx + dx, Y: 320 - dy}
	}
	for idx, p := range mouth {
		pts[idx] = p
	}

	// Jaw: half ellipse from ear to ear through the chin at list position 10.
	jaw := faceRegions[RegionJawline]
	for i, idx := range jaw {
		phi := math.Pi * float64(i) / float64(len(jaw)-1)
		pts[idx] = geom.Point3D{X: cx - 130*math.Cos(phi), Y: 250 + 140*math.Sin(phi)}
	}

	for i, idx := range faceRegions[RegionNose] {
		pts[idx] = geom.Point3D{X: cx, Y: 215 + float64(i)*8}
	}

	return &FaceLandmarks{Points: pts}
}

func mirror(p geom.Point3D, axis float64) geom.Point3D {
	return geom.Point3D{X: 2*axis - p.X, Y: p.Y, Z: p.Z}
}

// Pose geometry used by the preset builders.
const (
	poseShoulderY = 400.0
	poseNeckLen   = 140.0
	poseNoseDepth = 40.0
)

// PosePreset returns an upright pose tilted by tiltDeg (positive leans the
// head toward +x) and turned by turnDeg (positive turns right).
func PosePreset(tiltDeg, turnDeg float64) *PoseLandmarks {
	const cx = FaceCenterX
	tilt := tiltDeg * math.Pi / 180
	turn := turnDeg * math.Pi / 180

	pose := &PoseLandmarks{}
	pose.Points[PoseLeftShoulder] = geom.Point3D{X: cx - 80, Y: poseShoulderY}
	pose.Points[PoseRightShoulder] = geom.Point3D{X: cx + 80, Y: poseShoulderY}

	earMid := geom.Point3D{
		X: cx + poseNeckLen*math.Sin(tilt),
		Y: poseShoulderY - poseNeckLen*math.Cos(tilt),
	}
	pose.Points[PoseLeftEar] = geom.Point3D{X: earMid.X - 35, Y: earMid.Y}
	pose.Points[PoseRightEar] = geom.Point3D{X: earMid.X + 35, Y: earMid.Y}
	pose.Points[PoseNose] = geom.Point3D{
		X: earMid.X + poseNoseDepth*math.Sin(turn),
		Y: earMid.Y + 10,
		Z: -poseNoseDepth * math.Cos(turn),
	}
	return pose
}

// OpenHandLandmarks returns an open right hand in pixel coordinates with
// the wrist at wrist.
func OpenHandLandmarks(wrist geom.Point2D) HandLandmarks {
	// Offsets from the wrist for an open palm, fingers pointing up.
	offsets := [NumHandLandmarks][2]float64{
		Wrist:     {0, 0},
		ThumbCMC:  {20, -20},
		ThumbMCP:  {48, -40},
		ThumbIP:   {72, -60},
		ThumbTip:  {92, -80},
		IndexMCP:  {20, -48},
		IndexPIP:  {28, -100},
		IndexDIP:  {32, -140},
		IndexTip:  {32, -180},
		MiddleMCP: {0, -56},
		MiddlePIP: {0, -112},
		MiddleDIP: {0, -160},
		MiddleTip: {0, -208},
		RingMCP:   {-20, -48},
		RingPIP:   {-28, -100},
		RingDIP:   {-32, -140},
		RingTip:   {-32, -180},
		PinkyMCP:  {-40, -40},
		PinkyPIP:  {-52, -80},
		PinkyDIP:  {-60, -120},
		PinkyTip:  {-64, -152},
	}

	hand := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i, off := range offsets {
		hand.Points[i] = geom.Point3D{X: wrist.X + off[0], Y: wrist.Y + off[1]}
	}
	return hand
}
