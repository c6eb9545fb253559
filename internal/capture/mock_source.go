package capture

import (
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back in-memory frames for testing.
type MockSource struct {
	frames  []*gocv.Mat
	fps     float64
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
}

// NewMockSource returns a source over frames. With loop set it never ends.
func NewMockSource(frames []*gocv.Mat, fps float64, loop bool) *MockSource {
	return &MockSource{frames: frames, fps: fps, loop: loop}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}
	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, io.EOF
		}
		s.index = 0
	}

	// Clone so callers may close what they receive.
	frame := s.frames[s.index].Clone()
	s.index++
	return &frame, nil
}

func (s *MockSource) FPS() float64 { return s.fps }

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
