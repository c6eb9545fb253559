package testsupport

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// Frame size of the synthetic images.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// Frame draws a grey frame with a bright disc whose horizontal position
// depends on i. Frames with different i%20 differ visibly; equal i give
// identical frames.
func Frame(i int) gocv.Mat {
	return FrameAt(FrameWidth/2 + ((i%20)-10)*12)
}

// FrameAt draws the disc centred at column x.
func FrameAt(x int) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
	gocv.Circle(&m, image.Pt(x, FrameHeight/2), 60, color.RGBA{R: 230, G: 200, B: 180, A: 255}, -1)
	return m
}

// JPEG encodes Frame(0).
func JPEG(t testing.TB) []byte {
	t.Helper()
	return FrameJPEG(t, 0)
}

// FrameJPEG encodes Frame(i).
func FrameJPEG(t testing.TB, i int) []byte {
	t.Helper()
	return encodeJPEG(t, Frame(i))
}

// FrameAtJPEG encodes FrameAt(x).
func FrameAtJPEG(t testing.TB, x int) []byte {
	t.Helper()
	return encodeJPEG(t, FrameAt(x))
}

func encodeJPEG(t testing.TB, m gocv.Mat) []byte {
	t.Helper()
	defer m.Close()
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...)
}

// WriteVideo writes n synthetic frames as an MJPG AVI and returns its path.
func WriteVideo(t testing.TB, n int, fps float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")
	w, err := gocv.VideoWriterFile(path, "MJPG", fps, FrameWidth, FrameHeight, true)
	if err != nil {
		t.Skipf("video writer unavailable: %v", err)
	}
	defer w.Close()
	if !w.IsOpened() {
		t.Skip("video writer unavailable")
	}
	for i := 0; i < n; i++ {
		m := Frame(i)
		err := w.Write(m)
		m.Close()
		if err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}
	return path
}
