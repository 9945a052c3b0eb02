// Package engine is the public façade: index a file or directory of audio
// (in parallel), and recognize an unknown clip against the indexed corpus.
package engine

import (
	"fmt"
	"runtime"
	"sync"

	"soundmark/align"
	"soundmark/audioio"
	"soundmark/fingerprint"
	"soundmark/index"
	"soundmark/soundlog"
)

// Option configures an Engine at construction, following the functional
// options pattern the rest of the retrieval pack's service constructors use.
type Option func(*Engine)

// WithLogger injects a logging sink. Defaults to soundlog.NewDefault().
func WithLogger(l soundlog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithWorkers sets the worker pool size used by IndexDirectory. Values <= 0
// are clamped to 1. Defaults to runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLimitSeconds truncates every decoded recording (and query file/mic
// capture) to its first n seconds. 0 means no limit. Defaults to 0.
func WithLimitSeconds(n float64) Option {
	return func(e *Engine) { e.limitSeconds = n }
}

// Engine owns the HashIndex handle exclusively; Fingerprinter is stateless
// and reused by both indexing and recognition.
type Engine struct {
	idx          index.HashIndex
	log          soundlog.Logger
	workers      int
	limitSeconds float64
}

// New constructs an Engine over an already-open HashIndex.
func New(idx index.HashIndex, opts ...Option) *Engine {
	e := &Engine{
		idx:     idx,
		log:     soundlog.NewDefault(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	return e
}

// IndexFile decodes, fingerprints, and persists path. If content_hash is
// already known and fingerprinted, the call is a documented no-op
// (DuplicateContent is not an error).
func (e *Engine) IndexFile(path, name string) error {
	outcome, err := e.fingerprintFile(path, name)
	if err != nil {
		return err
	}
	if outcome.skipped {
		e.log.Infof("skip %s: content already indexed", path)
		return nil
	}
	return e.persist(outcome)
}

// fingerprintOutcome is the CPU-bound result of decoding + fingerprinting
// one file, before any persistence happens. It carries everything the
// single-consumer persist step needs.
type fingerprintOutcome struct {
	path        string
	name        string
	contentHash [20]byte
	hashes      []fingerprint.HashEntry
	skipped     bool
}

func (e *Engine) fingerprintFile(path, name string) (fingerprintOutcome, error) {
	decoded, err := audioio.Decode(path, e.limitSeconds)
	if err != nil {
		return fingerprintOutcome{}, soundlog.WrapError(e.log, "decode "+path, err)
	}

	known, err := e.idx.LookupContentHash(decoded.ContentHash)
	if err != nil {
		return fingerprintOutcome{}, soundlog.WrapError(e.log, "lookup content hash for "+path, err)
	}
	if known {
		return fingerprintOutcome{path: path, skipped: true}, nil
	}

	if name == "" {
		name = audioio.PathToName(path)
	}

	hashes := fingerprint.Fingerprint(decoded.Channels)
	return fingerprintOutcome{
		path:        path,
		name:        name,
		contentHash: decoded.ContentHash,
		hashes:      hashes,
	}, nil
}

// persist is the single-consumer step that owns the HashIndex handle: it
// inserts the recording, bulk-inserts its hashes, and only then flips
// fingerprinted. A failure between insert_recording and set_fingerprinted
// leaves the row at fingerprinted=false, which LookupContentHash treats as
// "not yet indexed" so a later run can redo it.
func (e *Engine) persist(o fingerprintOutcome) error {
	recordingID, err := e.idx.InsertRecording(o.name, o.contentHash)
	if err == index.ErrDuplicateContent {
		return e.resumePartial(o)
	}
	if err != nil {
		return soundlog.WrapError(e.log, "insert recording for "+o.path, err)
	}

	return e.persistHashes(recordingID, o)
}

// resumePartial handles InsertRecording reporting a duplicate content_hash.
// Either another worker is concurrently indexing the same content and
// already owns a fingerprinted row (nothing to do here), or the duplicate
// is a leftover from a prior run that crashed between insert_recording and
// set_fingerprinted: LookupContentHash only recognizes fingerprinted=true
// rows as known, so that leftover's content_hash keeps reaching this point
// on every later run. Find the existing row; if it is still unfingerprinted,
// reuse its id and redo the hash insert rather than discarding this worker's
// freshly computed hashes.
func (e *Engine) resumePartial(o fingerprintOutcome) error {
	recordings, err := e.idx.GetRecordings()
	if err != nil {
		return soundlog.WrapError(e.log, "resume lookup for "+o.path, err)
	}

	for _, r := range recordings {
		if r.ContentHash != o.contentHash {
			continue
		}
		if r.Fingerprinted {
			// Another worker already finished this content; no-op.
			return nil
		}
		e.log.Infof("resuming partial fingerprint for %s (recording %d)", o.path, r.ID)
		return e.persistHashes(r.ID, o)
	}

	return fmt.Errorf("persist %s: duplicate content hash but no matching recording found", o.path)
}

func (e *Engine) persistHashes(recordingID int64, o fingerprintOutcome) error {
	if err := e.idx.DeleteHashes(recordingID); err != nil {
		return soundlog.WrapError(e.log, "delete stale hashes for "+o.path, err)
	}
	if err := e.idx.InsertHashes(recordingID, o.hashes); err != nil {
		return soundlog.WrapError(e.log, "insert hashes for "+o.path, err)
	}
	if err := e.idx.SetFingerprinted(recordingID); err != nil {
		return soundlog.WrapError(e.log, "set fingerprinted for "+o.path, err)
	}

	e.log.Infof("indexed %s (%d hashes)", o.path, len(o.hashes))
	return nil
}

// IndexSummary reports the outcome of an IndexDirectory run.
type IndexSummary struct {
	Indexed int
	Skipped int
	Failed  int
}

// IndexDirectory enumerates files under dir matching extensions, fingerprints
// the remainder in parallel across a bounded worker pool, and persists
// results serially as they arrive. A per-file failure is logged and isolated
// rather than aborting the run.
func (e *Engine) IndexDirectory(dir string, extensions []string) (IndexSummary, error) {
	files, err := audioio.FindFiles(dir, extensions)
	if err != nil {
		return IndexSummary{}, fmt.Errorf("enumerate %s: %w", dir, err)
	}
	if len(files) == 0 {
		return IndexSummary{}, nil
	}

	type result struct {
		outcome fingerprintOutcome
		err     error
	}

	jobs := make(chan audioio.FileMatch, len(files))
	results := make(chan result, len(files))

	workers := e.workers
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcome, err := e.fingerprintFile(job.Path, "")
				results <- result{outcome: outcome, err: err}
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var summary IndexSummary
	for r := range results {
		if r.err != nil {
			e.log.Errorf("index failed: %v", r.err)
			summary.Failed++
			continue
		}
		if r.outcome.skipped {
			summary.Skipped++
			continue
		}
		if err := e.persist(r.outcome); err != nil {
			e.log.Errorf("persist failed: %v", err)
			summary.Failed++
			continue
		}
		summary.Indexed++
	}

	return summary, nil
}

// Recognize dispatches on the QuerySource's variant, fingerprints the
// resulting samples, and aligns against the indexed corpus.
func (e *Engine) Recognize(src QuerySource) (*align.Match, error) {
	samples := src.samples
	sampleRate := src.sampleRate

	switch src.kind {
	case sourceFile:
		decoded, err := audioio.Decode(src.path, e.limitSeconds)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", src.path, err)
		}
		samples = mixToMono(decoded.Channels)
		sampleRate = decoded.SampleRate
	case sourceMic:
		var err error
		samples, sampleRate, err = audioio.CaptureMic(src.micSeconds)
		if err != nil {
			return nil, fmt.Errorf("recognize mic: %w", err)
		}
		if e.limitSeconds > 0 {
			if limit := int(e.limitSeconds * float64(sampleRate)); len(samples) > limit {
				samples = samples[:limit]
			}
		}
	}

	return e.RecognizeSamples(samples, sampleRate)
}

// RecognizeSamples fingerprints a single-channel sample buffer and returns
// the best-aligned match, or nil if there is none.
func (e *Engine) RecognizeSamples(samples []float64, sampleRate int) (*align.Match, error) {
	if len(samples) < fingerprint.WindowSize {
		return nil, ErrEmptyAudio
	}

	query := fingerprint.Fingerprint([][]float64{samples})
	hits, err := e.idx.ReturnMatches(query)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	return align.Align(e.idx, hits, sampleRate)
}

func mixToMono(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		return channels[0]
	}
	n := len(channels[0])
	out := make([]float64, n)
	for _, ch := range channels {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(channels))
	}
	return out
}
