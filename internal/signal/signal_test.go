package signal

import (
	"math"
	"testing"

	"github.com/ayusman/samarth/internal/geom"
)

const epsilon = 1e-9

func sine(n int, freq, rate, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestVelocity(t *testing.T) {
	t.Run("missing previous frame yields zero", func(t *testing.T) {
		cur := []geom.Point2D{{X: 1, Y: 1}}
		if v := Velocity(cur, nil, 30); v != 0 {
			t.Errorf("expected 0, got %f", v)
		}
	})

	t.Run("mismatched point sets yield zero", func(t *testing.T) {
		cur := []geom.Point2D{{X: 1}, {X: 2}}
		prev := []geom.Point2D{{X: 0}}
		if v := Velocity(cur, prev, 30); v != 0 {
			t.Errorf("expected 0, got %f", v)
		}
	})

	t.Run("mean displacement scaled by frame rate", func(t *testing.T) {
		prev := []geom.Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}}
		cur := []geom.Point2D{{X: 3, Y: 4}, {X: 13, Y: 14}}
		if v := Velocity(cur, prev, 30); math.Abs(v-150) > epsilon {
			t.Errorf("expected 150, got %f", v)
		}
	})
}

func TestRejectOutliers(t *testing.T) {
	t.Run("drops a far outlier", func(t *testing.T) {
		x := make([]float64, 40)
		y := make([]float64, 40)
		for i := range x {
			x[i] = float64(i % 3)
			y[i] = float64(i % 2)
		}
		x[20] = 500

		fx, fy := RejectOutliers(x, y, 30)
		if len(fx) != 39 || len(fy) != 39 {
			t.Fatalf("expected 39 samples, got %d/%d", len(fx), len(fy))
		}
		for _, v := range fx {
			if v == 500 {
				t.Error("outlier survived")
			}
		}
	})

	t.Run("falls back when too few samples remain", func(t *testing.T) {
		x := make([]float64, 40)
		y := make([]float64, 40)
		x[0] = 1000

		fx, _ := RejectOutliers(x, y, 40)
		if len(fx) != 40 {
			t.Errorf("expected unfiltered series of 40, got %d", len(fx))
		}
	})

	t.Run("constant input is kept", func(t *testing.T) {
		x := []float64{5, 5, 5, 5}
		fx, _ := RejectOutliers(x, x, 2)
		if len(fx) != 4 {
			t.Errorf("expected 4 samples, got %d", len(fx))
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("zero mean unit variance", func(t *testing.T) {
		out := Normalize([]float64{1, 2, 3, 4, 5})
		if math.Abs(Mean(out)) > 1e-9 {
			t.Errorf("expected zero mean, got %f", Mean(out))
		}
		if math.Abs(Std(out)-1) > 1e-5 {
			t.Errorf("expected unit std, got %f", Std(out))
		}
	})

	t.Run("constant series becomes zeros", func(t *testing.T) {
		for _, v := range Normalize([]float64{7, 7, 7}) {
			if v != 0 {
				t.Errorf("expected 0, got %f", v)
			}
		}
	})

	t.Run("empty series", func(t *testing.T) {
		if len(Normalize(nil)) != 0 {
			t.Error("expected empty output")
		}
	})
}

func TestBandEdges(t *testing.T) {
	tests := []struct {
		name              string
		low, high, rate   float64
		wantLow, wantHigh float64
	}{
		{"tremor band at 30 fps", 0.5, 20, 30, 0.5 / 15, 0.99},
		{"collapsed band widened", 5, 5, 30, 5.0 / 15, 5.0/15 + 0.01},
		{"band pinned at the top", 15, 15, 30, 0.98, 0.99},
		{"tiny low cutoff clamped", 0.0001, 1, 30, 0.01, 1.0 / 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := bandEdges(tt.low, tt.high, tt.rate)
			if math.Abs(low-tt.wantLow) > 1e-9 || math.Abs(high-tt.wantHigh) > 1e-9 {
				t.Errorf("expected (%f, %f), got (%f, %f)", tt.wantLow, tt.wantHigh, low, high)
			}
		})
	}
}

func TestBandpass(t *testing.T) {
	t.Run("short input returned unfiltered", func(t *testing.T) {
		in := []float64{1, 2}
		out := Bandpass(in, 0.5, 20, 30, 4)
		if len(out) != 2 || out[0] != 1 || out[1] != 2 {
			t.Errorf("expected copy of input, got %v", out)
		}
	})

	t.Run("passes in-band sine", func(t *testing.T) {
		in := sine(300, 5, 30, 1)
		out := Bandpass(in, 0.5, 20, 30, 4)
		ratio := rms(out[50:250]) / rms(in[50:250])
		if ratio < 0.8 || ratio > 1.2 {
			t.Errorf("expected in-band gain near 1, got %f", ratio)
		}
	})

	t.Run("attenuates slow drift", func(t *testing.T) {
		in := sine(300, 0.05, 30, 10)
		out := Bandpass(in, 0.5, 20, 30, 4)
		if rms(out[50:250]) > 0.3*rms(in[50:250]) {
			t.Errorf("drift not attenuated: %f vs %f", rms(out[50:250]), rms(in[50:250]))
		}
	})

	t.Run("constant input stays finite", func(t *testing.T) {
		in := []float64{3, 3, 3, 3, 3, 3, 3, 3}
		for _, v := range Bandpass(in, 0.5, 20, 30, 4) {
			if !Finite(v) {
				t.Fatalf("non-finite output %f", v)
			}
		}
	})
}

func TestHann(t *testing.T) {
	out := Hann([]float64{1, 1, 1, 1, 1})
	if math.Abs(out[0]) > epsilon || math.Abs(out[4]) > epsilon {
		t.Errorf("expected zero endpoints, got %v", out)
	}
	if math.Abs(out[2]-1) > epsilon {
		t.Errorf("expected unit center, got %f", out[2])
	}
}

func TestPeriodicHann(t *testing.T) {
	got := PeriodicHann(4)
	want := []float64{0, 0.5, 1, 0.5}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
	if PeriodicHann(0) != nil {
		t.Error("expected nil window for n = 0")
	}
}

func TestSavitzkyGolay(t *testing.T) {
	t.Run("preserves a quadratic", func(t *testing.T) {
		in := make([]float64, 20)
		for i := range in {
			x := float64(i)
			in[i] = 0.5*x*x - 3*x + 2
		}
		out := SavitzkyGolay(in, 5, 2)
		for i := 2; i < len(in)-2; i++ {
			if math.Abs(out[i]-in[i]) > 1e-6 {
				t.Errorf("index %d: expected %f, got %f", i, in[i], out[i])
			}
		}
	})

	t.Run("too short to smooth", func(t *testing.T) {
		in := []float64{1, 9}
		out := SavitzkyGolay(in, 5, 2)
		if out[0] != 1 || out[1] != 9 {
			t.Errorf("expected unchanged input, got %v", out)
		}
	})

	t.Run("reduces noise", func(t *testing.T) {
		in := make([]float64, 50)
		for i := range in {
			if i%2 == 0 {
				in[i] = 1
			} else {
				in[i] = -1
			}
		}
		if Std(SavitzkyGolay(in, 5, 2)) >= Std(in) {
			t.Error("expected smoothing to reduce spread")
		}
	})
}

func TestSpectrumFFT(t *testing.T) {
	t.Run("peak at signal frequency", func(t *testing.T) {
		sig := sine(64, 10*30.0/64, 30, 1)
		spec := SpectrumFFT(sig, 30)
		if spec.Len() != 32 {
			t.Fatalf("expected 32 bins, got %d", spec.Len())
		}
		best := 0
		for i := range spec.Mags {
			if spec.Mags[i] > spec.Mags[best] {
				best = i
			}
		}
		if best != 10 {
			t.Errorf("expected peak at bin 10, got %d", best)
		}
		if spec.Freqs[0] != 0 || math.Abs(spec.Freqs[31]-15) > epsilon {
			t.Errorf("unexpected axis bounds %f..%f", spec.Freqs[0], spec.Freqs[31])
		}
	})

	t.Run("single sample yields empty spectrum", func(t *testing.T) {
		if SpectrumFFT([]float64{1}, 30).Len() != 0 {
			t.Error("expected empty spectrum")
		}
	})
}

func TestSpectrumWelch(t *testing.T) {
	t.Run("segment length", func(t *testing.T) {
		if WelchSegment(90) != 45 || WelchSegment(1000) != 256 {
			t.Errorf("unexpected segment lengths %d, %d", WelchSegment(90), WelchSegment(1000))
		}
	})

	t.Run("peak near signal frequency", func(t *testing.T) {
		spec := SpectrumWelch(sine(300, 5, 30, 1), 30, 0)
		best := 0
		for i := range spec.Mags {
			if spec.Mags[i] > spec.Mags[best] {
				best = i
			}
		}
		if math.Abs(spec.Freqs[best]-5) > 0.5 {
			t.Errorf("expected peak near 5 Hz, got %f", spec.Freqs[best])
		}
	})

	t.Run("too short", func(t *testing.T) {
		if SpectrumWelch([]float64{1, 2, 3}, 30, 0).Len() != 0 {
			t.Error("expected empty spectrum")
		}
	})
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name     string
		mags     []float64
		height   float64
		prom     float64
		distance int
		want     []int
	}{
		{"flat spectrum", []float64{1, 1, 1, 1}, 0, 0, 1, nil},
		{"too short", []float64{0, 1}, 0, 0, 1, nil},
		{"two peaks", []float64{0, 1, 0, 2, 0}, 0, 0, 1, []int{1, 3}},
		{"height filter", []float64{0, 1, 0, 10, 0}, 0.2, 0, 1, []int{3}},
		{"distance keeps taller", []float64{0, 5, 0, 9, 0}, 0, 0, 3, []int{3}},
		{"plateau resolves to middle", []float64{0, 2, 2, 2, 0}, 0, 0, 1, []int{2}},
		{"prominence filter", []float64{0, 10, 9, 9.5, 0}, 0, 0.2, 1, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.mags, tt.height, tt.prom, tt.distance)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestStrongestIn(t *testing.T) {
	spec := Spectrum{
		Freqs: []float64{0, 1, 2, 3, 4, 5},
		Mags:  []float64{0, 9, 0, 4, 0, 8},
	}
	if got := StrongestIn(spec, []int{1, 3, 5}, 2, 10); got != 5 {
		t.Errorf("expected bin 5, got %d", got)
	}
	if got := StrongestIn(spec, []int{1}, 2, 10); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestStats(t *testing.T) {
	if Mean(nil) != 0 || Std(nil) != 0 || Max(nil) != 0 || Min(nil) != 0 {
		t.Error("expected zero statistics for empty input")
	}
	if CV([]float64{0, 0}) != 0 {
		t.Error("expected zero CV for zero mean")
	}
	if Clamp(math.NaN(), 0, 1) != 0 || Clamp(2, 0, 1) != 1 {
		t.Error("unexpected clamp result")
	}
	if d := Diff([]float64{1, 4, 9}); len(d) != 2 || d[0] != 3 || d[1] != 5 {
		t.Errorf("unexpected diff %v", d)
	}
}
