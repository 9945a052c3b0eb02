package fingerprint

// Fingerprint runs the spectrogram -> peak -> landmark pipeline over every
// channel of a decoded recording and unions the resulting hash sets. Channel
// order never shows up in the result: it's a set union, so cross-channel
// duplicate hashes collapse the same way within-channel duplicates do.
func Fingerprint(channels [][]float64) []HashEntry {
	seen := make(map[HashEntry]struct{})
	var out []HashEntry

	for _, channel := range channels {
		spec := Spectrogram(channel)
		peaks := ExtractPeaks(spec)
		for _, entry := range BuildLandmarks(peaks) {
			if _, dup := seen[entry]; dup {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}

	return out
}
