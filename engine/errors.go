package engine

import "errors"

// ErrEmptyAudio is returned (unwrapped) when a decoded stream is shorter than
// fingerprint.WindowSize; per spec this yields an empty hash set rather than
// aborting indexing, but RecognizeSamples reports it since a query this
// short can never match anything.
var ErrEmptyAudio = errors.New("engine: audio shorter than one fingerprint window")
