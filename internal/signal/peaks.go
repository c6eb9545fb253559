package signal

import "sort"

// FindPeaks returns the indices of local maxima in mags whose height
// exceeds heightRatio·max and whose prominence exceeds prominenceRatio·max,
// keeping the taller of any two peaks closer than minDistance bins.
// Flat tops resolve to their middle sample. Endpoints are never peaks.
func FindPeaks(mags []float64, heightRatio, prominenceRatio float64, minDistance int) []int {
	if len(mags) < 3 {
		return nil
	}
	top := Max(mags)
	if top <= 0 || !Finite(top) {
		return nil
	}

	var peaks []int
	for _, p := range localMaxima(mags) {
		if mags[p] > heightRatio*top {
			peaks = append(peaks, p)
		}
	}

	peaks = selectByDistance(mags, peaks, minDistance)

	kept := peaks[:0]
	for _, p := range peaks {
		if prominence(mags, p) > prominenceRatio*top {
			kept = append(kept, p)
		}
	}
	return kept
}

func localMaxima(x []float64) []int {
	var out []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
			i = ahead
		}
	}
	return out
}

// selectByDistance drops peaks closer than distance to a taller peak.
func selectByDistance(x []float64, peaks []int, distance int) []int {
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] > x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for _, i := range order {
		if !keep[i] {
			continue
		}
		for j := i - 1; j >= 0 && peaks[i]-peaks[j] < distance; j-- {
			keep[j] = false
		}
		for j := i + 1; j < len(peaks) && peaks[j]-peaks[i] < distance; j++ {
			keep[j] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// prominence is the height of a peak above the higher of the two minima
// separating it from taller terrain on either side.
func prominence(x []float64, peak int) float64 {
	h := x[peak]

	leftMin := h
	for i := peak; i >= 0 && x[i] <= h; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
		}
	}
	rightMin := h
	for i := peak; i < len(x) && x[i] <= h; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return h - base
}

// StrongestIn returns the index in peaks with the largest magnitude whose
// frequency lies within [lo, hi], or -1.
func StrongestIn(spec Spectrum, peaks []int, lo, hi float64) int {
	best := -1
	for _, p := range peaks {
		if p < 0 || p >= spec.Len() {
			continue
		}
		f := spec.Freqs[p]
		if f < lo || f > hi {
			continue
		}
		if best < 0 || spec.Mags[p] > spec.Mags[best] {
			best = p
		}
	}
	return best
}
