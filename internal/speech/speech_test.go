package speech

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/ayusman/samarth/internal/audio"
	"github.com/ayusman/samarth/internal/testsupport"
)

func inUnit(t *testing.T, name string, v float64) {
	t.Helper()
	if v < 0 || v > 1 || math.IsNaN(v) {
		t.Errorf("%s: expected a value in [0, 1], got %f", name, v)
	}
}

func TestAnalyze_Tone(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res := a.Analyze(context.Background(), testsupport.Tone(220, 2, 16000, 0.5))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if math.Abs(res.Duration-2) > 1e-9 {
		t.Errorf("expected 2 s, got %f", res.Duration)
	}

	p := res.Features.Pitch
	if math.Abs(p.Mean-220) > 3 {
		t.Errorf("expected pitch near 220 Hz, got %f", p.Mean)
	}
	if p.VoicedRatio < 0.9 {
		t.Errorf("expected a voiced tone, got ratio %f", p.VoicedRatio)
	}
	if p.Stability < 0.95 || p.Jitter > 0.01 {
		t.Errorf("expected a stable pitch, got %+v", p)
	}

	v := res.Features.Volume
	if v.MeanDB < -15 || v.MeanDB > -5 {
		t.Errorf("expected about -9 dB, got %f", v.MeanDB)
	}
	if res.Features.Voice.HNR <= 5 {
		t.Errorf("expected a harmonic voice, got HNR %f", res.Features.Voice.HNR)
	}

	m := res.Metrics
	for name, val := range map[string]float64{
		"clarity":        m.Clarity,
		"volume control": m.VolumeControl,
		"confidence":     m.Emotion.Confidence,
		"hesitation":     m.Emotion.Hesitation,
		"stress":         m.Emotion.Stress,
	} {
		inUnit(t, name, val)
	}
	if m.OverallScore < 0 || m.OverallScore > 100 {
		t.Errorf("overall score out of range: %f", m.OverallScore)
	}

	r := res.Risks
	for name, val := range map[string]float64{
		"parkinsons":       r.Parkinsons,
		"als":              r.ALS,
		"ataxic":           r.Ataxic,
		"essential tremor": r.EssentialTremor,
		"spastic":          r.Spastic,
	} {
		inUnit(t, name, val)
	}

	ts := res.TimeSeries
	if len(ts.Times) == 0 || len(ts.Times) > DefaultConfig().MaxContourPoints {
		t.Errorf("unexpected contour length %d", len(ts.Times))
	}
	if len(ts.Pitch) != len(ts.Times) || len(ts.VolumeDB) != len(ts.Times) {
		t.Error("contours must share the time axis")
	}
	if len(ts.Formants) != 3 {
		t.Fatalf("expected 3 formant contours, got %d", len(ts.Formants))
	}
	for k, c := range ts.Formants {
		if len(c) != len(ts.Times) {
			t.Errorf("formant %d has %d points, want %d", k, len(c), len(ts.Times))
		}
	}
	for name, c := range map[string][]float64{
		"confidence": ts.Emotion.Confidence,
		"stress":     ts.Emotion.Stress,
		"hesitation": ts.Emotion.Hesitation,
	} {
		if len(c) != len(ts.Times) {
			t.Errorf("%s has %d points, want %d", name, len(c), len(ts.Times))
		}
		for _, v := range c {
			inUnit(t, name, v)
		}
	}
	if len(ts.Segments) != 1 || ts.Segments[0].Start != 0 {
		t.Errorf("a steady tone is one segment from the start, got %+v", ts.Segments)
	}
}

func TestAnalyze_SpeechSegments(t *testing.T) {
	const sr = 16000
	tone := testsupport.Tone(220, 1, sr, 0.5).Channels[0]
	y := make([]float64, 0, 3*sr)
	y = append(y, tone...)
	y = append(y, make([]float64, sr)...)
	y = append(y, tone...)

	a := NewAnalyzer(DefaultConfig(), nil)
	res := a.Analyze(context.Background(), audio.NewMono(y, sr))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	segs := res.TimeSeries.Segments
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %+v", segs)
	}
	near := func(name string, got, want float64) {
		t.Helper()
		if math.Abs(got-want) > 0.1 {
			t.Errorf("%s = %.3f, want %.1f", name, got, want)
		}
	}
	near("first start", segs[0].Start, 0)
	near("first end", segs[0].End, 1)
	near("second start", segs[1].Start, 2)
	near("second end", segs[1].End, 3)
	for _, s := range segs {
		if s.Type != "speech" {
			t.Errorf("segment type = %q", s.Type)
		}
	}

	// Confidence tracks the energy: loud in the tones, zero in the gap.
	ts := res.TimeSeries
	for i, tm := range ts.Times {
		c := ts.Emotion.Confidence[i]
		switch {
		case tm > 0.2 && tm < 0.8 && c < 0.9:
			t.Errorf("confidence at %.2fs = %.2f inside the tone", tm, c)
		case tm > 1.2 && tm < 1.8 && c > 0.01:
			t.Errorf("confidence at %.2fs = %.2f inside the gap", tm, c)
		}
	}
}

func TestHesitationSeries(t *testing.T) {
	f := &frames{rms: []float64{1, 1, 0, 1, 1, 0, 0, 1}}
	f.count = len(f.rms)

	got := f.hesitationSeries()
	want := []float64{0, 1.0 / 3, 1.0 / 3, 1.0 / 3, 0, 0, 0, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("hesitation = %v, want %v", got, want)
		}
	}
}

func TestAnalyze_Syllables(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res := a.Analyze(context.Background(), testsupport.Syllables(4, 3, 16000))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	r := res.Features.Rhythm
	if r.SyllablesPerSecond < 3.5 || r.SyllablesPerSecond > 4.5 {
		t.Errorf("expected about 4 syllables/s, got %f (%d peaks)", r.SyllablesPerSecond, r.SyllableCount)
	}
	if r.Regularity < 0.9 {
		t.Errorf("expected a regular rhythm, got %f", r.Regularity)
	}
	if math.Abs(r.Variability+r.Regularity-1) > 1e-12 {
		t.Errorf("variability must complement regularity: %+v", r)
	}
	if math.Abs(r.Tempo-r.SyllablesPerSecond*60) > 1e-9 {
		t.Errorf("tempo must be syllables per minute: %+v", r)
	}

	fl := res.Features.Fluency
	if fl.PauseRate <= 0 || len(fl.PauseDurations) == 0 {
		t.Fatalf("expected onsets to be found, got %+v", fl)
	}
	if fl.AveragePause < 0.05 || fl.AveragePause > 0.5 {
		t.Errorf("unexpected average pause %f", fl.AveragePause)
	}
	inUnit(t, "fluency score", fl.Score)
	if fl.PalilaliaScore < 0.3 {
		t.Errorf("expected the repeating envelope to score, got %f", fl.PalilaliaScore)
	}

	if math.Abs(res.Features.Pitch.Mean-220) > 3 {
		t.Errorf("expected pitch near 220 Hz, got %f", res.Features.Pitch.Mean)
	}
	if res.Features.Volume.StdDB <= 1 {
		t.Errorf("expected gated volume to vary, got %f dB", res.Features.Volume.StdDB)
	}
}

func TestAnalyze_Silence(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	res := a.Analyze(context.Background(), audio.NewMono(make([]float64, 16000), 16000))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Features.Pitch != (Pitch{}) {
		t.Errorf("expected no pitch, got %+v", res.Features.Pitch)
	}
	if res.Features.Rhythm.SyllableCount != 0 {
		t.Errorf("expected no syllables, got %d", res.Features.Rhythm.SyllableCount)
	}
	if !reflect.DeepEqual(res.Features.Fluency, Fluency{}) {
		t.Errorf("expected empty fluency, got %+v", res.Features.Fluency)
	}
	if res.Features.Clarity > 1e-6 {
		t.Errorf("expected no clarity, got %f", res.Features.Clarity)
	}
	if len(res.TimeSeries.Segments) != 0 {
		t.Errorf("expected no speech segments, got %+v", res.TimeSeries.Segments)
	}
}

func TestAnalyze_NoAudio(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	for name, clip := range map[string]*audio.Clip{
		"nil":         nil,
		"empty":       audio.NewMono(nil, 16000),
		"no rate":     audio.NewMono([]float64{0.1, 0.2}, 0),
		"no channels": {SampleRate: 16000},
	} {
		t.Run(name, func(t *testing.T) {
			res := a.Analyze(context.Background(), clip)
			if res.Success || res.Error != NoAudioError {
				t.Errorf("expected %q, got %+v", NoAudioError, res)
			}
		})
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := a.Analyze(ctx, testsupport.Tone(220, 1, 16000, 0.5))
	if res.Success || !strings.Contains(res.Error, "cancelled") {
		t.Errorf("expected a cancelled result, got %+v", res)
	}
}

func TestExtract_RecoversToZero(t *testing.T) {
	got := extract(nil, "pitch", func() Pitch { panic("boom") })
	if got != (Pitch{}) {
		t.Errorf("expected zero pitch, got %+v", got)
	}
	if v := extract(nil, "clarity", func() float64 { return 0.5 }); v != 0.5 {
		t.Errorf("expected pass-through, got %f", v)
	}
}

func TestComposites(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	feat := Features{
		Pitch:        Pitch{Stability: 0.8, Std: 25},
		Volume:       Volume{MeanDB: -30, StdDB: 10, Variation: 0.25},
		Fluency:      Fluency{PauseRate: 1, AveragePause: 1, WordsPerMinute: 150},
		Articulation: Articulation{Precision: 0.5, Formation: 0.5, ConsonantPrecision: 0.5, VowelFormation: 0.5},
		Rhythm:       Rhythm{WordsPerMinute: 120},
		Clarity:      0.6,
	}
	m := a.Composites(feat)

	near := func(name string, got, want float64) {
		t.Helper()
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s: expected %f, got %f", name, want, got)
		}
	}
	// norm volume = (−30+90)/80 = 0.75
	near("confidence", m.Emotion.Confidence, 0.4*0.75+0.4*0.8+0.2*0.75)
	near("hesitation", m.Emotion.Hesitation, (0.5+0.5)/2)
	near("stress", m.Emotion.Stress, (0.5+0.5)/2)
	near("volume control", m.VolumeControl, 0.5)
	near("speech rate", m.SpeechRate, 120)
	near("articulation", m.ArticulationScore, 50)
	near("overall", m.OverallScore, (0.6+1+0.5+m.Emotion.Confidence)/4*100)

	t.Run("overall is clamped", func(t *testing.T) {
		feat.Fluency.WordsPerMinute = 1500
		feat.Clarity = 1
		feat.Volume.StdDB = 0
		if got := a.Composites(feat).OverallScore; got != 100 {
			t.Errorf("expected 100, got %f", got)
		}
	})
}

func TestNeurologicalIndicatorsAndRisks(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	ind := a.NeurologicalIndicators(Features{})
	want := []string{IndicatorAbnormalRhythm, IndicatorArticulationDifficulty, IndicatorDysprosody}
	if !reflect.DeepEqual(ind.Flagged, want) {
		t.Errorf("expected flags %v, got %v", want, ind.Flagged)
	}
	if math.Abs(ind.Dysprosody-0.75) > 1e-9 || ind.ArticulationDifficulty != 1 {
		t.Errorf("unexpected indicators %+v", ind)
	}
	if math.Abs(ind.VoiceQualityIssues-0.5) > 1e-9 || ind.BreathingPatterns != 0 {
		t.Errorf("unexpected voice indicators %+v", ind)
	}

	r := DisorderRisksFor(Features{}, ind)
	if r.Parkinsons != 0 || r.EssentialTremor != 0 {
		t.Errorf("expected no tremor-driven risk, got %+v", r)
	}
	if math.Abs(r.ALS-0.4) > 1e-9 {
		t.Errorf("expected ALS 0.4, got %f", r.ALS)
	}
	if math.Abs(r.Spastic-0.5) > 1e-9 {
		t.Errorf("expected spastic 0.5, got %f", r.Spastic)
	}
	if math.Abs(r.Ataxic-ind.AbnormalRhythm/4) > 1e-9 {
		t.Errorf("expected ataxic %f, got %f", ind.AbnormalRhythm/4, r.Ataxic)
	}
}

func TestPickPeaks(t *testing.T) {
	x := []float64{0, 0, 1, 0, 0, 0, 0.05, 0, 0, 0.9, 0.8, 0}
	got := pickPeaks(x, 1, 1, 3, 4, 1, 0.07)
	want := []int{2, 9}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMelFilterbank(t *testing.T) {
	bank := melFilterbank(40, 2048, 16000)
	if len(bank) != 40 {
		t.Fatalf("expected 40 filters, got %d", len(bank))
	}
	for m, w := range bank {
		var nonzero int
		for _, v := range w {
			if v < 0 {
				t.Fatalf("filter %d has a negative weight", m)
			}
			if v > 0 {
				nonzero++
			}
		}
		if nonzero == 0 {
			t.Errorf("filter %d is empty", m)
		}
	}
}

func TestDCTMatrix_Orthonormal(t *testing.T) {
	d := dctMatrix(13, 40)
	for i := range d {
		for j := range d {
			var dot float64
			for k := range d[i] {
				dot += d[i][k] * d[j][k]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Fatalf("rows %d,%d: dot %f, want %f", i, j, dot, want)
			}
		}
	}
}

func TestPalilalia(t *testing.T) {
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 0.3
	}
	if s := palilalia(flat); s != 0 {
		t.Errorf("expected 0 for a flat envelope, got %f", s)
	}

	periodic := make([]float64, 100)
	for i := range periodic {
		periodic[i] = math.Max(0, math.Sin(2*math.Pi*float64(i)/10))
	}
	if s := palilalia(periodic); s < 0.5 {
		t.Errorf("expected a strong repeat score, got %f", s)
	}
}

func TestSpectralHelpers(t *testing.T) {
	freqs := []float64{0, 100, 200, 300}
	if c := spectralCentroid([]float64{0, 1, 0, 1}, freqs); c != 200 {
		t.Errorf("expected centroid 200, got %f", c)
	}
	if r := spectralRolloff([]float64{1, 1, 1, 1}, freqs, 0.85); r != 300 {
		t.Errorf("expected rolloff 300, got %f", r)
	}
	if f := spectralFlatness([]float64{2, 2, 2, 2}); math.Abs(f-1) > 1e-12 {
		t.Errorf("expected flat spectrum, got %f", f)
	}
	if z := zeroCrossingRate([]float64{1, -1, 1, -1}); z != 0.75 {
		t.Errorf("expected 0.75, got %f", z)
	}
}
