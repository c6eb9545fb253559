package speech

import (
	"math"

	"github.com/ayusman/samarth/internal/signal"
)

// Pitch summarizes the fundamental frequency over voiced frames.
type Pitch struct {
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Stability   float64 `json:"stability"`
	Variability float64 `json:"variability"`
	Jitter      float64 `json:"jitter"`
	VoicedRatio float64 `json:"voiced_ratio"`
}

// Volume summarizes frame loudness in dB.
type Volume struct {
	MeanDB         float64 `json:"mean"`
	StdDB          float64 `json:"std"`
	Variation      float64 `json:"variation"`
	MinDB          float64 `json:"min"`
	MaxDB          float64 `json:"max"`
	Shimmer        float64 `json:"shimmer"`
	AmplitudeDecay float64 `json:"amplitude_decay"`
}

// Rhythm describes syllable-like energy peaks.
type Rhythm struct {
	SyllableCount      int     `json:"syllable_count"`
	SyllablesPerSecond float64 `json:"syllables_per_second"`
	WordsPerMinute     float64 `json:"words_per_minute"`
	Regularity         float64 `json:"regularity"`
	Variability        float64 `json:"rhythm_variability"`
	Tempo              float64 `json:"tempo"`
	BeatConsistency    float64 `json:"beat_consistency"`
	Acceleration       float64 `json:"acceleration"`
}

// Fluency describes the gaps between onsets.
type Fluency struct {
	PauseDurations   []float64 `json:"pause_durations,omitempty"`
	AveragePause     float64   `json:"average_pause"`
	PauseRate        float64   `json:"pause_rate"`
	LongPauses       int       `json:"long_pauses"`
	WordCount        float64   `json:"word_count"`
	WordsPerMinute   float64   `json:"words_per_minute"`
	Score            float64   `json:"fluency_score"`
	PauseVariability float64   `json:"pause_variability"`
	PalilaliaScore   float64   `json:"palilalia_score"`
}

// Articulation is derived from the MFCC trajectories.
type Articulation struct {
	Clarity            float64 `json:"clarity"`
	Precision          float64 `json:"precision"`
	Formation          float64 `json:"formation"`
	ConsonantPrecision float64 `json:"consonant_precision"`
	VowelFormation     float64 `json:"vowel_formation"`
	SlurredSpeech      float64 `json:"slurred_speech"`
}

// Voice holds voice quality measures.
type Voice struct {
	Breathiness  float64 `json:"breathiness"`
	HNR          float64 `json:"harmonics_to_noise"`
	QualityScore float64 `json:"quality_score"`
}

// Features bundles every extractor output.
type Features struct {
	Pitch        Pitch        `json:"pitch"`
	Volume       Volume       `json:"volume"`
	Rhythm       Rhythm       `json:"rhythm"`
	Fluency      Fluency      `json:"fluency"`
	Articulation Articulation `json:"articulation"`
	Voice        Voice        `json:"voice_quality"`
	Clarity      float64      `json:"clarity"`
}

func clip01(v float64) float64 {
	return signal.Clamp(v, 0, 1)
}

// relativeDrop is (first-second)/first clamped to [0, 1].
func relativeDrop(first, second float64) float64 {
	if first <= 0 {
		return 0
	}
	return clip01((first - second) / first)
}

func (f *frames) pitch() Pitch {
	var f0, periods []float64
	var jitterSum float64
	var pairs int
	prev := 0.0
	for _, lag := range f.lag {
		if lag <= 0 {
			prev = 0
			continue
		}
		f0 = append(f0, f.sr/lag)
		period := lag / f.sr
		periods = append(periods, period)
		if prev > 0 {
			jitterSum += math.Abs(period - prev)
			pairs++
		}
		prev = period
	}
	if len(f0) == 0 {
		return Pitch{}
	}

	p := Pitch{
		Mean:        signal.Mean(f0),
		Std:         signal.Std(f0),
		VoicedRatio: float64(len(f0)) / float64(f.count),
	}
	p.Variability = p.Std / p.Mean
	p.Stability = clip01(1 - p.Variability)
	if pairs > 0 {
		p.Jitter = jitterSum / float64(pairs) / signal.Mean(periods)
	}
	return p
}

func (f *frames) decibels() []float64 {
	db := make([]float64, len(f.rms))
	top := math.Inf(-1)
	for i, v := range f.rms {
		db[i] = 20 * math.Log10(math.Max(ampFloor, v))
		top = math.Max(top, db[i])
	}
	for i := range db {
		db[i] = math.Max(db[i], top-f.cfg.TopDB)
	}
	return db
}

// active returns the indices of frames louder than 5% of the loudest.
func (f *frames) active() []int {
	loudest := signal.Max(f.rms)
	var idx []int
	for i, v := range f.rms {
		if v > ampFloor && v >= 0.05*loudest {
			idx = append(idx, i)
		}
	}
	return idx
}

func (f *frames) volume() Volume {
	db := f.decibels()
	if len(db) == 0 {
		return Volume{}
	}
	v := Volume{
		MeanDB: signal.Mean(db),
		StdDB:  signal.Std(db),
		MinDB:  signal.Min(db),
		MaxDB:  signal.Max(db),
	}
	if r := v.MaxDB - v.MinDB; r > 0 {
		v.Variation = v.StdDB / r
	}

	act := f.active()
	if len(act) < 2 {
		return v
	}
	amps := make([]float64, len(act))
	var delta float64
	var pairs int
	for j, i := range act {
		amps[j] = f.rms[i]
		if j > 0 && act[j-1] == i-1 {
			delta += math.Abs(f.rms[i] - f.rms[i-1])
			pairs++
		}
	}
	if pairs > 0 {
		v.Shimmer = delta / float64(pairs) / signal.Mean(amps)
	}
	third := len(amps) / 3
	if third > 0 {
		v.AmplitudeDecay = relativeDrop(signal.Mean(amps[:third]), signal.Mean(amps[len(amps)-third:]))
	}
	return v
}

// envelopePeaks returns frames that are local maxima of the RMS envelope
// above half its mean. Plateaus count once, at their first frame.
func (f *frames) envelopePeaks() []int {
	gate := 0.5 * signal.Mean(f.rms)
	var peaks []int
	for i := 1; i+1 < len(f.rms); i++ {
		v := f.rms[i]
		if v > gate && v > f.rms[i-1] && v >= f.rms[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

func (f *frames) rhythm() Rhythm {
	dur := f.duration()
	if dur <= 0 {
		return Rhythm{}
	}
	peaks := f.envelopePeaks()
	r := Rhythm{SyllableCount: len(peaks)}
	r.SyllablesPerSecond = float64(len(peaks)) / dur
	r.WordsPerMinute = float64(len(peaks)) / 1.5 * 60 / dur
	r.Tempo = r.SyllablesPerSecond * 60

	if len(peaks) > 1 {
		intervals := make([]float64, len(peaks)-1)
		for i := range intervals {
			intervals[i] = f.frameTime(peaks[i+1]) - f.frameTime(peaks[i])
		}
		r.Regularity = clip01(1 - signal.CV(intervals))
		if h := len(intervals) / 2; h >= 2 {
			r.Acceleration = relativeDrop(signal.Mean(intervals[:h]), signal.Mean(intervals[len(intervals)-h:]))
		}
	}
	r.Variability = 1 - r.Regularity
	r.BeatConsistency = r.Variability
	return r
}

func (f *frames) fluency() Fluency {
	dur := f.duration()
	onsets := f.onsets()
	if len(onsets) <= 1 || dur <= 0 {
		return Fluency{}
	}
	pauses := signal.Diff(onsets)
	fl := Fluency{
		PauseDurations:   pauses,
		AveragePause:     signal.Mean(pauses),
		PauseRate:        float64(len(pauses)) / dur,
		WordCount:        math.Max(float64(len(onsets))/2, 1),
		PauseVariability: signal.CV(pauses),
	}
	for _, p := range pauses {
		if p > f.cfg.MinPause {
			fl.LongPauses++
		}
	}
	fl.WordsPerMinute = fl.WordCount / (dur / 60)
	fl.Score = clip01(1 - fl.AveragePause/f.cfg.MaxPause)
	if len(f.y) > int(f.sr) {
		fl.PalilaliaScore = palilalia(f.rms)
	}
	return fl
}

// palilalia scores the strongest repeat of the energy envelope: the highest
// autocorrelation peak above 0.5, rescaled to [0, 1].
func palilalia(env []float64) float64 {
	ac := autocorrelation(env)
	best := 0.0
	for k := 1; k+1 < len(ac); k++ {
		if ac[k] > 0.5 && ac[k] >= ac[k-1] && ac[k] >= ac[k+1] {
			best = math.Max(best, ac[k])
		}
	}
	return clip01(math.Max(0, best-0.5) * 2)
}

// mfccClarity is the mean standard deviation of the MFCC trajectories.
func (f *frames) mfccClarity() float64 {
	if len(f.mfcc) == 0 {
		return 0
	}
	var s float64
	for _, c := range f.mfcc {
		s += signal.Std(c)
	}
	return s / float64(len(f.mfcc))
}

func (f *frames) articulation() Articulation {
	if len(f.mfcc) == 0 || f.count < 2 {
		return Articulation{}
	}
	clarity := f.mfccClarity()

	var precision float64
	for _, c := range f.mfcc {
		precision += signal.Mean(absAll(signal.Diff(c)))
	}
	precision /= float64(len(f.mfcc))

	centroids := make([]float64, len(f.mag))
	for i, row := range f.mag {
		centroids[i] = spectralCentroid(row, f.freqs)
	}
	consonant := signal.Mean(centroids) / (f.sr / 4)

	var vowel float64
	k := min(3, len(f.mfcc))
	for _, c := range f.mfcc[:k] {
		vowel += 1 - signal.Std(c)/(signal.Mean(absAll(c))+1e-6)
	}
	vowel /= float64(k)

	return Articulation{
		Clarity:            clarity,
		Precision:          clip01(precision / 10),
		Formation:          clip01(clarity / 20),
		ConsonantPrecision: clip01(consonant),
		VowelFormation:     clip01(vowel),
		SlurredSpeech:      1 - clip01(precision/15),
	}
}

func absAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	return out
}

func (f *frames) voice() Voice {
	if len(f.mag) == 0 {
		return Voice{}
	}
	flat := make([]float64, len(f.mag))
	for i, row := range f.mag {
		flat[i] = spectralFlatness(row)
	}
	v := Voice{Breathiness: signal.Mean(flat)}

	var hnr []float64
	for i, lag := range f.lag {
		if lag <= 0 {
			continue
		}
		r := signal.Clamp(f.strength[i], 1e-6, 1-1e-6)
		hnr = append(hnr, 10*math.Log10(r/(1-r)))
	}
	v.HNR = signal.Mean(hnr)
	v.QualityScore = clip01(1 - v.Breathiness)
	return v
}

// clarity blends MFCC spread, spectral contrast, zero-crossing rate,
// rolloff and envelope variation.
func (f *frames) clarity() float64 {
	if len(f.mag) == 0 {
		return 0
	}
	nyquist := f.sr / 2
	contrast := make([]float64, len(f.mag))
	rolloff := make([]float64, len(f.mag))
	zcr := make([]float64, len(f.mag))
	for i, row := range f.mag {
		contrast[i] = spectralContrast(row, f.freqs, nyquist)
		rolloff[i] = spectralRolloff(row, f.freqs, 0.85)
		zcr[i] = zeroCrossingRate(f.frame(i))
	}

	w := f.cfg.Clarity
	score := w.MFCC*clip01(f.mfccClarity()/15) +
		w.Contrast*clip01(signal.Mean(contrast)/30) +
		w.ZCR*clip01(signal.Mean(zcr)*50) +
		w.Rolloff*clip01(signal.Mean(rolloff)/nyquist) +
		w.Envelope*clip01(signal.Std(f.rms)/(signal.Mean(f.rms)+1e-6))
	return clip01(math.Pow(score, f.cfg.ClarityExponent))
}
