// Package speech extracts prosody, fluency, articulation and voice quality
// features from a recording and scores them against neuromotor speech
// patterns.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/samarth/internal/audio"
	"github.com/ayusman/samarth/internal/signal"
)

// NoAudioError is reported for empty recordings.
const NoAudioError = "No audio data"

// Emotion holds the affect composites.
type Emotion struct {
	Confidence float64 `json:"confidence"`
	Hesitation float64 `json:"hesitation"`
	Stress     float64 `json:"stress"`
}

// Metrics are the headline speech scores.
type Metrics struct {
	Clarity           float64 `json:"clarity"`
	SpeechRate        float64 `json:"speech_rate"`
	VolumeControl     float64 `json:"volume_control"`
	PitchStability    float64 `json:"pitch_stability"`
	ArticulationScore float64 `json:"articulation_score"`
	Emotion           Emotion `json:"emotion"`
	OverallScore      float64 `json:"overall_score"`
}

// Indicators are the neurological speech indicators in [0, 1]. Flagged
// lists those at or above their configured threshold.
type Indicators struct {
	Dysprosody             float64  `json:"dysprosody"`
	ArticulationDifficulty float64  `json:"articulation_difficulty"`
	AbnormalRhythm         float64  `json:"abnormal_rhythm"`
	VoiceQualityIssues     float64  `json:"voice_quality_issues"`
	BreathingPatterns      float64  `json:"breathing_patterns"`
	Flagged                []string `json:"flagged"`
}

// DisorderRisks are heuristic pattern scores in [0, 1].
type DisorderRisks struct {
	Parkinsons      float64 `json:"parkinsons"`
	ALS             float64 `json:"als"`
	Ataxic          float64 `json:"ataxic"`
	EssentialTremor float64 `json:"essential_tremor"`
	Spastic         float64 `json:"spastic"`
}

// TimeSeries holds downsampled per-frame contours. Unvoiced frames have a
// pitch of 0.
type TimeSeries struct {
	Times    []float64 `json:"times"`
	Pitch    []float64 `json:"pitch"`
	VolumeDB []float64 `json:"volume_db"`

	// Formants holds the first three MFCC contours on the same time axis.
	Formants [][]float64   `json:"formants"`
	Emotion  EmotionSeries `json:"emotion"`

	// Segments are taken at full frame resolution.
	Segments []Segment `json:"speech_segments"`
}

// EmotionSeries tracks the emotion indicators over time.
type EmotionSeries struct {
	Confidence []float64 `json:"confidence"`
	Stress     []float64 `json:"stress"`
	Hesitation []float64 `json:"hesitation"`
}

// Segment is a stretch of the recording with speech energy.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Type  string  `json:"type"`
}

// Result is the speech analysis output.
type Result struct {
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Duration   float64        `json:"duration"`
	Metrics    *Metrics       `json:"metrics,omitempty"`
	Features   *Features      `json:"features,omitempty"`
	Indicators *Indicators    `json:"neurological_indicators,omitempty"`
	Risks      *DisorderRisks `json:"disorder_risks,omitempty"`
	TimeSeries *TimeSeries    `json:"time_series,omitempty"`
}

// Analyzer scores recordings. It keeps no state between calls.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// NewAnalyzer creates a speech analyzer.
func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, logger: logger}
}

// extract runs fn and substitutes the zero value if it panics.
func extract[T any](logger *slog.Logger, name string, fn func() T) (out T) {
	if logger == nil {
		logger = slog.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("speech feature extraction failed", "feature", name, "panic", r)
			var zero T
			out = zero
		}
	}()
	return fn()
}

// Analyze downmixes clip to mono, extracts every feature group in parallel
// and derives the composite scores.
func (a *Analyzer) Analyze(ctx context.Context, clip *audio.Clip) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("speech analysis failed", "panic", r)
			res = Result{Success: false, Error: fmt.Sprintf("Analysis failed: %v", r)}
		}
	}()

	y := clip.Mono()
	if len(y) == 0 || clip.SampleRate <= 0 {
		return Result{Success: false, Error: NoAudioError}
	}
	y = sanitize(y)
	sr := float64(clip.SampleRate)
	f := newFrames(y, sr, a.cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return extract(a.logger, "spectrogram", func() error { return f.spectrogram(gctx) })
	})
	g.Go(func() error {
		return extract(a.logger, "periodicity", func() error { return f.periodicity(gctx) })
	})
	if err := g.Wait(); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("Analysis cancelled: %v", err)}
	}

	var feat Features
	g, gctx = errgroup.WithContext(ctx)
	run := func(body func()) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			body()
			return nil
		})
	}
	run(func() { feat.Pitch = extract(a.logger, "pitch", f.pitch) })
	run(func() { feat.Volume = extract(a.logger, "volume", f.volume) })
	run(func() { feat.Rhythm = extract(a.logger, "rhythm", f.rhythm) })
	run(func() { feat.Fluency = extract(a.logger, "fluency", f.fluency) })
	run(func() { feat.Articulation = extract(a.logger, "articulation", f.articulation) })
	run(func() { feat.Voice = extract(a.logger, "voice quality", f.voice) })
	run(func() { feat.Clarity = extract(a.logger, "clarity", f.clarity) })
	if err := g.Wait(); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("Analysis cancelled: %v", err)}
	}

	metrics := a.Composites(feat)
	ind := a.NeurologicalIndicators(feat)
	risks := DisorderRisksFor(feat, ind)
	ts := a.timeSeries(f)

	return Result{
		Success:    true,
		Duration:   f.duration(),
		Metrics:    &metrics,
		Features:   &feat,
		Indicators: &ind,
		Risks:      &risks,
		TimeSeries: ts,
	}
}

func sanitize(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		if signal.Finite(v) {
			out[i] = v
		}
	}
	return out
}

// Composites derives the headline metrics from the features.
func (a *Analyzer) Composites(feat Features) Metrics {
	c := a.cfg
	p, v, fl, ar := feat.Pitch, feat.Volume, feat.Fluency, feat.Articulation

	m := Metrics{
		Clarity:        feat.Clarity,
		SpeechRate:     feat.Rhythm.WordsPerMinute,
		VolumeControl:  1 - math.Min(1, v.StdDB/20),
		PitchStability: p.Stability,
	}
	m.ArticulationScore = 100 * signal.Mean([]float64{
		ar.Precision, ar.Formation, ar.ConsonantPrecision, ar.VowelFormation,
	})

	normVolume := clip01((v.MeanDB - c.VolumeMinDB) / (c.VolumeMaxDB - c.VolumeMinDB))
	m.Emotion.Confidence = clip01(0.4*normVolume + 0.4*p.Stability + 0.2*(1-v.Variation))
	m.Emotion.Hesitation = (math.Min(1, fl.PauseRate/2) + math.Min(1, fl.AveragePause/c.MaxPause)) / 2
	m.Emotion.Stress = (math.Min(1, p.Std/50) + math.Min(1, v.StdDB/20)) / 2

	overall := signal.Mean([]float64{
		feat.Clarity,
		fl.WordsPerMinute / c.TargetRate,
		m.VolumeControl,
		m.Emotion.Confidence,
	}) * 100
	m.OverallScore = signal.Clamp(overall, 0, 100)
	return m
}

// NeurologicalIndicators scores the five speech indicators and flags those
// reaching their threshold.
func (a *Analyzer) NeurologicalIndicators(feat Features) Indicators {
	p, r, fl, ar, vq := feat.Pitch, feat.Rhythm, feat.Fluency, feat.Articulation, feat.Voice
	mean := func(xs ...float64) float64 { return clip01(signal.Mean(xs)) }

	ind := Indicators{
		Dysprosody: mean(
			1-p.Stability,
			p.Jitter*10,
			1-r.Regularity,
			math.Abs(r.SyllablesPerSecond-4)/4,
		),
		ArticulationDifficulty: mean(1-ar.ConsonantPrecision, 1-ar.VowelFormation, 1-ar.Precision),
		AbnormalRhythm: mean(
			1-r.Regularity,
			math.Min(1, fl.AveragePause),
			math.Abs(fl.WordsPerMinute-a.cfg.TargetRate)/a.cfg.TargetRate,
		),
		VoiceQualityIssues: mean(vq.Breathiness, 1-math.Min(1, vq.HNR/20)),
		BreathingPatterns:  mean(vq.Breathiness, math.Min(1, fl.PauseRate)),
	}

	scores := map[string]float64{
		IndicatorDysprosody:             ind.Dysprosody,
		IndicatorArticulationDifficulty: ind.ArticulationDifficulty,
		IndicatorAbnormalRhythm:         ind.AbnormalRhythm,
		IndicatorVoiceQualityIssues:     ind.VoiceQualityIssues,
		IndicatorBreathingPatterns:      ind.BreathingPatterns,
	}
	ind.Flagged = []string{}
	for name, th := range a.cfg.IndicatorThresholds {
		if s, ok := scores[name]; ok && s >= th {
			ind.Flagged = append(ind.Flagged, name)
		}
	}
	sort.Strings(ind.Flagged)
	return ind
}

// DisorderRisksFor scores the dysarthria patterns. Voice tremor, pitch
// tremor, nasality and voiced/unvoiced balance are not measured and
// contribute 0 to their means.
func DisorderRisksFor(feat Features, ind Indicators) DisorderRisks {
	p, v, r, fl, ar, vq := feat.Pitch, feat.Volume, feat.Rhythm, feat.Fluency, feat.Articulation, feat.Voice
	mean := func(xs ...float64) float64 { return clip01(signal.Mean(xs)) }
	const unmeasured = 0

	return DisorderRisks{
		Parkinsons: mean(
			p.Jitter*5, unmeasured, vq.Breathiness, v.Shimmer*5,
			unmeasured, v.AmplitudeDecay, r.Acceleration*0.5, ar.SlurredSpeech*0.5,
		),
		ALS: mean(
			ar.SlurredSpeech, 1-ar.ConsonantPrecision, vq.Breathiness,
			ind.BreathingPatterns, ind.ArticulationDifficulty,
		),
		Ataxic: mean(
			r.Variability, ind.AbnormalRhythm, ar.SlurredSpeech*0.5, p.Variability*0.75,
		),
		EssentialTremor: mean(unmeasured, unmeasured, r.Variability*0.5, p.Jitter*2),
		Spastic: mean(
			1-ar.VowelFormation, 1-r.Regularity, fl.PauseVariability,
			unmeasured, ind.VoiceQualityIssues,
		),
	}
}

func (a *Analyzer) timeSeries(f *frames) *TimeSeries {
	n := f.count
	step := 1
	if limit := a.cfg.MaxContourPoints; limit > 0 && n > limit {
		step = (n + limit - 1) / limit
	}
	db := f.decibels()
	confidence := f.confidenceSeries()
	stress := extract(a.logger, "stress series", f.stressSeries)
	hesitation := extract(a.logger, "hesitation series", f.hesitationSeries)
	at := func(xs []float64, i int) float64 {
		if i < len(xs) {
			return xs[i]
		}
		return 0
	}

	ts := &TimeSeries{Formants: make([][]float64, formantContours)}
	for i := 0; i < n; i += step {
		pitch := 0.0
		if i < len(f.lag) && f.lag[i] > 0 {
			pitch = f.sr / f.lag[i]
		}
		ts.Times = append(ts.Times, f.frameTime(i))
		ts.Pitch = append(ts.Pitch, pitch)
		ts.VolumeDB = append(ts.VolumeDB, db[i])
		for k := range ts.Formants {
			v := 0.0
			if k < len(f.mfcc) {
				v = at(f.mfcc[k], i)
			}
			ts.Formants[k] = append(ts.Formants[k], v)
		}
		ts.Emotion.Confidence = append(ts.Emotion.Confidence, at(confidence, i))
		ts.Emotion.Stress = append(ts.Emotion.Stress, at(stress, i))
		ts.Emotion.Hesitation = append(ts.Emotion.Hesitation, at(hesitation, i))
	}
	ts.Segments = extract(a.logger, "speech segments", f.segments)
	if ts.Segments == nil {
		ts.Segments = []Segment{}
	}
	return ts
}
