// Package testsupport builds synthetic recordings and frames shared
// by the package tests.
package testsupport

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/ayusman/samarth/internal/audio"
)

// Tone is a pure sine at freq Hz.
func Tone(freq, seconds float64, sampleRate int, amp float64) *audio.Clip {
	n := int(seconds * float64(sampleRate))
	y := make([]float64, n)
	for i := range y {
		y[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return audio.NewMono(y, sampleRate)
}

// Syllables is a 220 Hz tone shaped into raised-cosine bursts of 0.1 s at
// rate bursts per second.
func Syllables(rate, seconds float64, sampleRate int) *audio.Clip {
	clip := Tone(220, seconds, sampleRate, 0.5)
	period := 1 / rate
	y := clip.Channels[0]
	for i := range y {
		ph := math.Mod(float64(i)/float64(sampleRate), period)
		g := 0.0
		if ph < 0.1 {
			s := math.Sin(math.Pi * ph / 0.1)
			g = s * s
		}
		y[i] *= g
	}
	return clip
}

// WriteWAV encodes clip into a temporary file and returns its path.
func WriteWAV(t testing.TB, clip *audio.Clip) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := audio.EncodeFile(path, clip); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}
