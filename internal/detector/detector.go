package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// FaceDetector returns the face mesh found in a frame, or nil when no face is visible.
type FaceDetector interface {
	DetectFace(frame *gocv.Mat) (*FaceLandmarks, error)
}

// HandDetector returns every hand found in a frame.
// Returns an empty slice if no hands are detected.
type HandDetector interface {
	DetectHands(frame *gocv.Mat) ([]HandLandmarks, error)
}

// PoseDetector returns the body pose found in a frame, or nil when nobody is visible.
type PoseDetector interface {
	DetectPose(frame *gocv.Mat) (*PoseLandmarks, error)
}

// Provider is a landmark provider covering all three modalities.
// Implementations are pure functions of the frame they are given.
type Provider interface {
	FaceDetector
	HandDetector
	PoseDetector

	// Close releases any resources held by the provider.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `toml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `toml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `toml:"min_tracking_confidence"`

	// PythonPath overrides the interpreter used for the MediaPipe service.
	PythonPath string `toml:"python"`

	// ScriptPath overrides the location of landmark_service.py.
	ScriptPath string `toml:"script"`

	// IdleSeconds stops the subprocess after a period without requests.
	IdleSeconds int `toml:"idle_seconds"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleSeconds:     30,
	}
}

// ErrUnavailable is returned by Unavailable for every request.
var ErrUnavailable = errors.New("landmark provider unavailable")

// Unavailable is a Provider that fails every request. It stands in when the
// MediaPipe service cannot be started so that audio analysis keeps working.
type Unavailable struct {
	Reason error
}

func (u Unavailable) err() error {
	if u.Reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Reason)
}

func (u Unavailable) DetectFace(*gocv.Mat) (*FaceLandmarks, error)  { return nil, u.err() }
func (u Unavailable) DetectHands(*gocv.Mat) ([]HandLandmarks, error) { return nil, u.err() }
func (u Unavailable) DetectPose(*gocv.Mat) (*PoseLandmarks, error)  { return nil, u.err() }
func (u Unavailable) Close() error                                   { return nil }
