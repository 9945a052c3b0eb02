// Package audioio implements the decoder and file-enumeration collaborators
// spec'd only as interfaces: turning a file on disk into normalized PCM
// channels plus a content hash, and walking a directory for candidate audio
// files.
package audioio

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Decoded is the result of decoding one audio file.
type Decoded struct {
	Channels    [][]float64
	SampleRate  int
	ContentHash [20]byte
}

// DecodeError wraps a failure to read or decode an audio file.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads path, decodes it to one or more channels of PCM normalized to
// [-1, 1], and computes a content hash over the raw file bytes (not the
// decoded samples). If limitSeconds > 0, each channel is truncated to the
// first limitSeconds of audio.
func Decode(path string, limitSeconds float64) (Decoded, error) {
	contentHash, err := hashFile(path)
	if err != nil {
		return Decoded{}, &DecodeError{Path: path, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	var channels [][]float64
	var sampleRate int

	switch ext {
	case ".wav":
		channels, sampleRate, err = decodeWAV(path)
	case ".mp3":
		channels, sampleRate, err = decodeMP3(path)
	default:
		err = fmt.Errorf("unsupported extension %q", ext)
	}
	if err != nil {
		return Decoded{}, &DecodeError{Path: path, Err: err}
	}

	if limitSeconds > 0 {
		limit := int(limitSeconds * float64(sampleRate))
		for i, ch := range channels {
			if len(ch) > limit {
				channels[i] = ch[:limit]
			}
		}
	}

	return Decoded{Channels: channels, SampleRate: sampleRate, ContentHash: contentHash}, nil
}

func hashFile(path string) ([20]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [20]byte{}, err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return [20]byte{}, err
	}
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

func decodeWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}

	format := decoder.Format()
	sampleRate := int(format.SampleRate)
	numChannels := format.NumChannels
	if numChannels == 0 {
		numChannels = 1
	}

	buf := &audio.IntBuffer{
		Format: format,
		Data:   make([]int, 8192),
	}

	var frames [][]int
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return nil, 0, err
		}
		if n > 0 {
			frames = append(frames, append([]int(nil), buf.Data[:n]...))
		}
		if err == io.EOF || n < len(buf.Data) {
			break
		}
	}

	bitDepth := decoder.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	maxVal := float64(int(1) << (bitDepth - 1))

	channels := make([][]float64, numChannels)
	for c := range channels {
		channels[c] = make([]float64, 0)
	}

	for _, frame := range frames {
		for i, v := range frame {
			c := i % numChannels
			channels[c] = append(channels[c], float64(v)/maxVal)
		}
	}

	return channels, sampleRate, nil
}

func decodeMP3(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}

	sampleRate := decoder.SampleRate()
	raw, err := io.ReadAll(decoder)
	if err != nil && err != io.EOF {
		return nil, 0, err
	}

	// go-mp3 always decodes to interleaved 16-bit stereo PCM.
	const numChannels = 2
	numSamples := len(raw) / 2 / numChannels
	left := make([]float64, numSamples)
	right := make([]float64, numSamples)

	for i := 0; i < numSamples; i++ {
		base := i * 4
		l := int16(binary.LittleEndian.Uint16(raw[base : base+2]))
		r := int16(binary.LittleEndian.Uint16(raw[base+2 : base+4]))
		left[i] = float64(l) / 32768.0
		right[i] = float64(r) / 32768.0
	}

	return [][]float64{left, right}, sampleRate, nil
}
