// Package index persists recordings and their fingerprint hashes, and
// serves the bulk hash lookups the aligner needs.
package index

import "soundmark/fingerprint"

// Recording is a persisted reference recording.
type Recording struct {
	ID            int64
	Name          string
	ContentHash   [20]byte
	Fingerprinted bool
}

// Hit is a raw match returned by ReturnMatches: a hash found in the index
// belonged to RecordingID at some stored anchor time; OffsetDelta is that
// stored anchor time minus the query's anchor time for the same hash.
type Hit struct {
	RecordingID int64
	OffsetDelta int64
}

// HashIndex is the persistence interface the Engine and Aligner depend on.
// Implementations must guarantee: every hash row references an existing
// recording, content_hash is unique, and a recording is never observable as
// fingerprinted=true until every one of its hashes has been committed.
type HashIndex interface {
	GetRecordings() ([]Recording, error)
	LookupContentHash(contentHash [20]byte) (bool, error)
	InsertRecording(name string, contentHash [20]byte) (int64, error)
	InsertHashes(recordingID int64, hashes []fingerprint.HashEntry) error
	SetFingerprinted(recordingID int64) error
	ReturnMatches(query []fingerprint.HashEntry) ([]Hit, error)
	GetRecordingByID(recordingID int64) (*Recording, error)
	DeleteHashes(recordingID int64) error
	Close() error
}
