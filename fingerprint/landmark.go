package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
)

// HashEntry is a persisted (or about-to-be-persisted) fingerprint hash: a
// compact identifier for a landmark pair, labeled with the anchor peak's
// time frame.
type HashEntry struct {
	Hash       string
	AnchorTime uint32
}

// BuildLandmarks pairs peaks within a fan-out window into landmark hashes,
// following the exact scheme song-recognition's sibling projects use for
// their own SHA-1 fingerprints: sort by time, fan each anchor out to its
// next FanValue neighbors bounded by Δt, hash the ASCII triple.
//
// Peaks need not be pre-sorted; BuildLandmarks sorts a copy. The result set
// is deduplicated: identical (hash, anchor_time) pairs collapse to one.
func BuildLandmarks(peaks []Peak) []HashEntry {
	sorted := make([]Peak, len(peaks))
	copy(sorted, peaks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TimeFrame != sorted[j].TimeFrame {
			return sorted[i].TimeFrame < sorted[j].TimeFrame
		}
		return sorted[i].FreqBin < sorted[j].FreqBin
	})

	seen := make(map[HashEntry]struct{})
	var out []HashEntry

	for i := range sorted {
		anchor := sorted[i]
		limit := i + 1 + FanValue
		if limit > len(sorted) {
			limit = len(sorted)
		}
		for j := i + 1; j < limit; j++ {
			target := sorted[j]
			delta := target.TimeFrame - anchor.TimeFrame
			if delta < MinHashTimeDelta || delta > MaxHashTimeDelta {
				continue
			}

			entry := HashEntry{
				Hash:       landmarkHash(anchor.FreqBin, target.FreqBin, delta),
				AnchorTime: anchor.TimeFrame,
			}
			if _, dup := seen[entry]; dup {
				continue
			}
			seen[entry] = struct{}{}
			out = append(out, entry)
		}
	}

	return out
}

func landmarkHash(f1, f2, delta uint32) string {
	input := fmt.Sprintf("%d|%d|%d", f1, f2, delta)
	sum := sha1.Sum([]byte(input))
	hexSum := hex.EncodeToString(sum[:])
	return hexSum[:FingerprintReduction]
}
