package engine

import (
	"fmt"
	"path/filepath"
	"testing"

	"soundmark/audioio"
	"soundmark/fingerprint"
	"soundmark/index"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *index.SQLiteIndex) {
	t.Helper()
	idx, err := index.NewSQLiteIndex(":memory:")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return New(idx, opts...), idx
}

func TestSelfRecognition(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := sineSamples(440, 44100, 3.0)
	if err := writeMonoWAV(path, samples, 44100); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := e.IndexFile(path, "tone"); err != nil {
		t.Fatalf("index: %v", err)
	}

	match, err := e.Recognize(File(path))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if match == nil {
		t.Fatalf("expected a match")
	}
	if match.Name != "tone" {
		t.Fatalf("expected match name 'tone', got %q", match.Name)
	}

	hop := float64(4096) * 0.5
	maxOffset := hop / 44100
	if match.OffsetSeconds < -maxOffset || match.OffsetSeconds > maxOffset {
		t.Fatalf("expected offset near 0, got %v", match.OffsetSeconds)
	}
}

// TestOffsetRecognition covers spec.md §8 scenario 2: a query extracted from
// the middle of a longer recording must align to its true offset, with the
// winning offset bucket dominating the runner-up by at least 5x. The
// recording is built from 30 one-second tones at distinct frequencies (not
// one sustained tone) so that the same landmark hash doesn't recur at
// distant, unrelated anchor times across the whole file — the condition
// that previously broke ReturnMatches when a hash recurred at several query
// anchor times.
func TestOffsetRecognition(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")

	const sampleRate = 44100
	full := make([]float64, 0, sampleRate*30)
	for sec := 0; sec < 30; sec++ {
		freq := 300 + float64(sec)*17
		full = append(full, sineSamples(freq, sampleRate, 1.0)...)
	}
	if err := writeMonoWAV(path, full, sampleRate); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := e.IndexFile(path, "song"); err != nil {
		t.Fatalf("index: %v", err)
	}

	start := 10 * sampleRate
	end := 15 * sampleRate
	query := append([]float64(nil), full[start:end]...)

	match, err := e.RecognizeSamples(query, sampleRate)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if match == nil {
		t.Fatalf("expected a match")
	}
	if match.Name != "song" {
		t.Fatalf("expected match name 'song', got %q", match.Name)
	}
	if match.OffsetSeconds < 9.95 || match.OffsetSeconds > 10.05 {
		t.Fatalf("expected offset within +-0.05s of 10.0, got %v", match.OffsetSeconds)
	}

	queryHashes := fingerprint.Fingerprint([][]float64{query})
	hits, err := e.idx.ReturnMatches(queryHashes)
	if err != nil {
		t.Fatalf("return matches: %v", err)
	}
	tally := make(map[int64]int)
	for _, h := range hits {
		tally[h.OffsetDelta]++
	}
	var best, second int
	for _, count := range tally {
		switch {
		case count > best:
			second = best
			best = count
		case count > second:
			second = count
		}
	}
	if second > 0 && best < second*5 {
		t.Fatalf("expected winning offset to beat the runner-up by >=5x, got best=%d second=%d", best, second)
	}
}

func TestDedupSkipsSecondIndex(t *testing.T) {
	e, idx := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := sineSamples(440, 44100, 2.0)
	if err := writeMonoWAV(path, samples, 44100); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := e.IndexFile(path, "tone"); err != nil {
		t.Fatalf("first index: %v", err)
	}
	if err := e.IndexFile(path, "tone"); err != nil {
		t.Fatalf("second index: %v", err)
	}

	recs, err := idx.GetRecordings()
	if err != nil {
		t.Fatalf("get recordings: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 recording after duplicate index, got %d", len(recs))
	}
}

// TestResumesPartiallyFingerprintedRecording covers the prior-crash case
// spec.md §4.5/§7 call out: a recording row exists with fingerprinted=false
// and no hashes (as if a previous run died between insert_recording and
// set_fingerprinted). A later IndexFile call over the same content must
// complete that row rather than getting stuck forever behind
// ErrDuplicateContent.
func TestResumesPartiallyFingerprintedRecording(t *testing.T) {
	e, idx := newTestEngine(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := sineSamples(440, 44100, 2.0)
	if err := writeMonoWAV(path, samples, 44100); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	decoded, err := audioio.Decode(path, 0)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	partialID, err := idx.InsertRecording("tone", decoded.ContentHash)
	if err != nil {
		t.Fatalf("seed partial recording: %v", err)
	}

	if err := e.IndexFile(path, "tone"); err != nil {
		t.Fatalf("resume index: %v", err)
	}

	recs, err := idx.GetRecordings()
	if err != nil {
		t.Fatalf("get recordings: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 recording after resume, got %d", len(recs))
	}
	if recs[0].ID != partialID {
		t.Fatalf("expected resumed recording to reuse id %d, got %d", partialID, recs[0].ID)
	}
	if !recs[0].Fingerprinted {
		t.Fatalf("expected resumed recording to be marked fingerprinted")
	}

	match, err := e.Recognize(File(path))
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if match == nil {
		t.Fatalf("expected the resumed recording to be recognizable")
	}
}

func TestNoMatchAgainstUnrelatedIndex(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()

	tonePath := filepath.Join(dir, "tone.wav")
	if err := writeMonoWAV(tonePath, sineSamples(440, 44100, 3.0), 44100); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := e.IndexFile(tonePath, "tone"); err != nil {
		t.Fatalf("index: %v", err)
	}

	noise := make([]float64, 44100*5)
	seed := uint64(12345)
	for i := range noise {
		seed = seed*6364136223846793005 + 1442695040888963407
		noise[i] = (float64(seed>>40) / float64(1<<24)) - 1
	}

	match, err := e.RecognizeSamples(noise, 44100)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match against unrelated noise, got %+v", match)
	}
}

func TestTruncationLimitsDecodedSamples(t *testing.T) {
	e, _ := newTestEngine(t, WithLimitSeconds(2))
	dir := t.TempDir()
	path := filepath.Join(dir, "long.wav")

	if err := writeMonoWAV(path, sineSamples(440, 44100, 5.0), 44100); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	// Fingerprint before indexing: once the file is indexed, fingerprintFile
	// reports it as already known and returns no hashes.
	limited, err := e.fingerprintFile(path, "long")
	if err != nil {
		t.Fatalf("fingerprint limited: %v", err)
	}
	if err := e.IndexFile(path, "long"); err != nil {
		t.Fatalf("index: %v", err)
	}

	fullEngine, _ := newTestEngine(t)
	full, err := fullEngine.fingerprintFile(path, "long")
	if err != nil {
		t.Fatalf("fingerprint full: %v", err)
	}

	if len(limited.hashes) >= len(full.hashes) {
		t.Fatalf("expected truncated fingerprint to have fewer hashes than full: %d vs %d", len(limited.hashes), len(full.hashes))
	}
}

func TestIndexDirectoryParallel(t *testing.T) {
	e, idx := newTestEngine(t, WithWorkers(4))
	dir := t.TempDir()

	freqs := []float64{220, 330, 440, 550, 660, 770, 880, 990}
	for i, f := range freqs {
		path := filepath.Join(dir, fmt.Sprintf("song-%d.wav", i))
		if err := writeMonoWAV(path, sineSamples(f, 44100, 2.0), 44100); err != nil {
			t.Fatalf("write fixture %d: %v", i, err)
		}
	}

	summary, err := e.IndexDirectory(dir, []string{".wav"})
	if err != nil {
		t.Fatalf("index directory: %v", err)
	}
	if summary.Indexed != len(freqs) {
		t.Fatalf("expected %d indexed, got %d (failed=%d skipped=%d)", len(freqs), summary.Indexed, summary.Failed, summary.Skipped)
	}

	recs, err := idx.GetRecordings()
	if err != nil {
		t.Fatalf("get recordings: %v", err)
	}
	if len(recs) != len(freqs) {
		t.Fatalf("expected %d recordings, got %d", len(freqs), len(recs))
	}
	for _, r := range recs {
		if !r.Fingerprinted {
			t.Fatalf("recording %d not marked fingerprinted", r.ID)
		}
	}
}

func TestRecognizeSamplesBelowWindowSizeIsEmptyAudio(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.RecognizeSamples(make([]float64, 10), 44100)
	if err != ErrEmptyAudio {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}
