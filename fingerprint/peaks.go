package fingerprint

// Peak is a spectral local maximum: a (time_frame, freq_bin) coordinate.
// Peaks are transient, in-memory only.
type Peak struct {
	TimeFrame uint32
	FreqBin   uint32
}

// ExtractPeaks finds points in the spectrogram that are local maxima within
// a square neighborhood of side 2*PeakNeighborhood+1 and whose magnitude
// clears AmpMinDB. Ties within a neighborhood are broken deterministically:
// a candidate only counts as a peak if no other cell in its neighborhood
// strictly exceeds it, and among cells equal to the neighborhood max, the
// earliest in row-major (time_frame, then freq_bin) order wins.
func ExtractPeaks(spec [][]float64) []Peak {
	if len(spec) == 0 {
		return nil
	}
	numBins := len(spec)
	numFrames := len(spec[0])

	var peaks []Peak
	for t := 0; t < numFrames; t++ {
		for f := 0; f < numBins; f++ {
			val := spec[f][t]
			if val < AmpMinDB {
				continue
			}
			if isNeighborhoodWinner(spec, f, t, numBins, numFrames) {
				peaks = append(peaks, Peak{TimeFrame: uint32(t), FreqBin: uint32(f)})
			}
		}
	}
	return peaks
}

// isNeighborhoodWinner reports whether (f, t) is the row-major-earliest
// cell attaining the maximum value within its square neighborhood.
func isNeighborhoodWinner(spec [][]float64, f, t, numBins, numFrames int) bool {
	val := spec[f][t]

	fLo, fHi := f-PeakNeighborhood, f+PeakNeighborhood
	tLo, tHi := t-PeakNeighborhood, t+PeakNeighborhood
	if fLo < 0 {
		fLo = 0
	}
	if fHi >= numBins {
		fHi = numBins - 1
	}
	if tLo < 0 {
		tLo = 0
	}
	if tHi >= numFrames {
		tHi = numFrames - 1
	}

	for nt := tLo; nt <= tHi; nt++ {
		for nf := fLo; nf <= fHi; nf++ {
			if nt == t && nf == f {
				continue
			}
			other := spec[nf][nt]
			if other > val {
				return false
			}
			if other == val {
				// earlier in row-major (time, then freq) order wins
				if nt < t || (nt == t && nf < f) {
					return false
				}
			}
		}
	}
	return true
}
