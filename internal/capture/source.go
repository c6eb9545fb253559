// Package capture decodes recorded clips and still images into gocv frames.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("source is not open")

// ErrEmptyImage is returned when image bytes decode to nothing.
var ErrEmptyImage = errors.New("image is empty or not decodable")

// Source yields the frames of a recording in order. ReadFrame returns io.EOF
// after the last frame. The caller closes every returned Mat.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	// FPS is the nominal frame rate of the recording.
	FPS() float64
	IsOpen() bool
}

// fileSource reads a video file through OpenCV.
type fileSource struct {
	path        string
	fallbackFPS float64
	capture     *gocv.VideoCapture
	mu          sync.Mutex
	running     bool
	fps         float64
}

// NewFileSource creates a Source for the video at path. fallbackFPS is used
// when the container does not report a frame rate.
func NewFileSource(path string, fallbackFPS float64) Source {
	return &fileSource{path: path, fallbackFPS: fallbackFPS, fps: fallbackFPS}
}

func (s *fileSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.VideoCaptureFile(s.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", s.path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video %s: unsupported or unreadable", s.path)
	}

	if fps := capture.Get(gocv.VideoCaptureFPS); fps > 0 && fps < 1000 {
		s.fps = fps
	}
	s.capture = capture
	s.running = true
	return nil
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	s.running = false
	return err
}

func (s *fileSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}
	return &mat, nil
}

func (s *fileSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *fileSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// DecodeImage decodes JPEG/PNG bytes into a BGR frame.
func DecodeImage(data []byte) (*gocv.Mat, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyImage
	}
	return &mat, nil
}

// ReadImageFile loads a still image from disk.
func ReadImageFile(path string) (*gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("read image %s: %w", path, ErrEmptyImage)
	}
	return &mat, nil
}
