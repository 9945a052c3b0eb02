// Package fingerprint implements the spectrogram -> peak -> landmark -> hash
// pipeline that turns a channel of PCM samples into a set of fingerprint
// hashes for a recording.
package fingerprint

// These parameters form part of the hash contract: changing any of them
// invalidates hashes already persisted in an index built under the old
// values, since corpus and query must agree bit-for-bit.
const (
	// WindowSize is the STFT frame length, in samples.
	WindowSize = 4096

	// OverlapRatio determines the hop between successive frames.
	OverlapRatio = 0.5

	// HopSize is the number of samples between successive frames.
	HopSize = int(WindowSize * OverlapRatio)

	// dBFloor is the lower bound |X|² is clamped to before the log, to
	// avoid log(0).
	dBFloor = 1e-10

	// AmpMinDB is the absolute amplitude floor, in decibels, a point must
	// clear to be considered a peak.
	AmpMinDB = 10.0

	// PeakNeighborhood is the half-width (in bins/frames) of the square
	// neighborhood a candidate must dominate to count as a local max.
	PeakNeighborhood = 20

	// FanValue bounds how many downstream peaks an anchor pairs with.
	FanValue = 15

	// MinHashTimeDelta and MaxHashTimeDelta bound Δt (in frames) for a
	// valid landmark pair.
	MinHashTimeDelta = 0
	MaxHashTimeDelta = 200

	// FingerprintReduction is the hex-character prefix length of the
	// stored hash (20 hex chars = 10 effective bytes of the SHA-1 digest).
	FingerprintReduction = 20
)
