// Package align converts raw hash hits returned by a HashIndex query into a
// recording identification via offset histogramming.
package align

import (
	"encoding/hex"
	"math"

	"soundmark/fingerprint"
	"soundmark/index"
)

// Match is the outcome of a successful alignment.
type Match struct {
	RecordingID    int64
	Name           string
	Confidence     int
	OffsetFrames   int64
	OffsetSeconds  float64
	ContentHashHex string
}

// bucket identifies one (recording, offset) cell of the tally.
type bucket struct {
	recordingID int64
	offsetDelta int64
}

// Align builds a tally over (recording_id, offset_delta) pairs from hits and
// returns the mode, resolved to a Recording via idx. Returns (nil, nil) when
// there is no match: either no hits were supplied, or the winning
// recording_id no longer resolves.
//
// True matches cluster tightly on one δ because stored and query anchor
// times advance together; unrelated hashes scatter across many δ values, so
// the histogram's mode is the maximum-likelihood alignment.
func Align(idx index.HashIndex, hits []index.Hit, sampleRate int) (*Match, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	tally := make(map[bucket]int)
	var order []bucket // first-encountered order, for deterministic tie-break

	for _, h := range hits {
		b := bucket{recordingID: h.RecordingID, offsetDelta: h.OffsetDelta}
		if _, seen := tally[b]; !seen {
			order = append(order, b)
		}
		tally[b]++
	}

	var best bucket
	bestCount := 0
	for _, b := range order {
		if tally[b] > bestCount {
			bestCount = tally[b]
			best = b
		}
	}

	if bestCount == 0 {
		return nil, nil
	}

	rec, err := idx.GetRecordingByID(best.recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	hop := float64(fingerprint.WindowSize) * fingerprint.OverlapRatio
	offsetSeconds := round5(float64(best.offsetDelta) * hop / float64(sampleRate))

	return &Match{
		RecordingID:    rec.ID,
		Name:           rec.Name,
		Confidence:     bestCount,
		OffsetFrames:   best.offsetDelta,
		OffsetSeconds:  offsetSeconds,
		ContentHashHex: hex.EncodeToString(rec.ContentHash[:]),
	}, nil
}

func round5(v float64) float64 {
	const scale = 1e5
	return math.Round(v*scale) / scale
}
