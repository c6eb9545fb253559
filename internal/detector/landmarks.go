// Package detector provides landmark provider interfaces and the face, hand
// and pose landmark sets consumed by the analyzers.
package detector

import "github.com/ayusman/samarth/internal/geom"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist            = 0
	ThumbCMC         = 1
	ThumbMCP         = 2
	ThumbIP          = 3
	ThumbTip         = 4
	IndexMCP         = 5
	IndexPIP         = 6
	IndexDIP         = 7
	IndexTip         = 8
	MiddleMCP        = 9
	MiddlePIP        = 10
	MiddleDIP        = 11
	MiddleTip        = 12
	RingMCP          = 13
	RingPIP          = 14
	RingDIP          = 15
	RingTip          = 16
	PinkyMCP         = 17
	PinkyPIP         = 18
	PinkyDIP         = 19
	PinkyTip         = 20
	NumHandLandmarks = 21
)

// Pose landmark indices used by the neck analyzer.
const (
	PoseNose          = 0
	PoseLeftEar       = 7
	PoseRightEar      = 8
	PoseLeftShoulder  = 11
	PoseRightShoulder = 12
	NumPoseLandmarks  = 33
)

// NumFaceLandmarks is the size of the MediaPipe face mesh.
const NumFaceLandmarks = 468

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumHandLandmarks]geom.Point3D `json:"points"`
	Handedness string                         `json:"handedness"` // "Left" or "Right"
	Score      float64                        `json:"score"`
}

// PalmCenter averages the wrist and the four finger bases.
func (h *HandLandmarks) PalmCenter() geom.Point2D {
	return geom.Centroid([]geom.Point2D{
		h.Points[Wrist].XY(),
		h.Points[IndexMCP].XY(),
		h.Points[MiddleMCP].XY(),
		h.Points[RingMCP].XY(),
		h.Points[PinkyMCP].XY(),
	})
}

// PoseLandmarks represents the 33 body landmarks detected by MediaPipe Pose.
type PoseLandmarks struct {
	Points [NumPoseLandmarks]geom.Point3D `json:"points"`
}

// FaceRegion names a fixed group of face mesh indices.
type FaceRegion string

const (
	RegionLeftEye      FaceRegion = "left_eye"
	RegionRightEye     FaceRegion = "right_eye"
	RegionLeftEyebrow  FaceRegion = "left_eyebrow"
	RegionRightEyebrow FaceRegion = "right_eyebrow"
	RegionMouth        FaceRegion = "mouth"
	RegionJawline      FaceRegion = "jawline"
	RegionNose         FaceRegion = "nose"
	RegionMidline      FaceRegion = "midline"
)

// Face mesh index lists. Order is canonical: analyzers address points by
// their position inside a list.
var faceRegions = map[FaceRegion][]int{
	RegionLeftEye:      {33, 246, 161, 160, 159, 158, 157, 173, 133, 155, 154, 153, 145, 144, 163, 7},
	RegionRightEye:     {362, 398, 384, 385, 386, 387, 388, 466, 263, 249, 390, 373, 374, 380, 381, 382},
	RegionLeftEyebrow:  {70, 63, 105, 66, 107, 55, 65, 52, 53, 46},
	RegionRightEyebrow: {300, 293, 334, 296, 336, 285, 295, 282, 283, 276},
	RegionMouth:        {61, 146, 91, 181, 84, 17, 314, 405, 321, 375, 291, 409, 270, 269, 267, 0, 37, 39, 40, 185},
	RegionJawline:      {234, 93, 132, 58, 172, 136, 150, 149, 176, 148, 152, 377, 400, 378, 379, 365, 397, 288, 361, 323, 454},
	RegionNose:         {1, 2, 4, 5, 6, 19, 94, 168, 195, 197},
	RegionMidline:      {10, 151, 9, 8, 168, 6, 197, 195, 5, 4, 1, 19, 94, 2, 164, 0, 17, 18, 200, 199, 175, 152},
}

// ChinIndex is the mesh index of the chin tip.
const ChinIndex = 152

// SymmetryRegions lists the seven regions extracted for symmetry analysis.
var SymmetryRegions = []FaceRegion{
	RegionLeftEye, RegionRightEye,
	RegionLeftEyebrow, RegionRightEyebrow,
	RegionMouth, RegionJawline, RegionNose,
}

// RegionIndices returns a copy of the index list for a region.
func RegionIndices(r FaceRegion) []int {
	idx := faceRegions[r]
	out := make([]int, len(idx))
	copy(out, idx)
	return out
}

// FaceLandmarks is a full face mesh in pixel coordinates.
type FaceLandmarks struct {
	Points []geom.Point3D `json:"points"`
}

// Valid reports whether the mesh has every point the regions address.
func (f *FaceLandmarks) Valid() bool {
	return f != nil && len(f.Points) >= NumFaceLandmarks
}

// Region returns the points of a named region in canonical order.
// Returns nil if the mesh is incomplete.
func (f *FaceLandmarks) Region(r FaceRegion) []geom.Point3D {
	if !f.Valid() {
		return nil
	}
	idx := faceRegions[r]
	out := make([]geom.Point3D, len(idx))
	for i, j := range idx {
		out[i] = f.Points[j]
	}
	return out
}

// Clone returns a deep copy of the mesh.
func (f *FaceLandmarks) Clone() *FaceLandmarks {
	if f == nil {
		return nil
	}
	out := &FaceLandmarks{Points: make([]geom.Point3D, len(f.Points))}
	copy(out.Points, f.Points)
	return out
}
