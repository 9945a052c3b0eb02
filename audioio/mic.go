package audioio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// micSampleRate matches the rate the rest of the corpus's microphone
// recorders standardize on.
const micSampleRate = 44100

// CaptureMic blocks for seconds, recording a single mono channel from the
// default input device, normalized to [-1, 1]. This is a single blocking
// capture-then-return call, not a stream: streaming/incremental recognition
// is out of scope.
func CaptureMic(seconds float64) ([]float64, int, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, 0, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	numFrames := int(seconds * micSampleRate)
	buffer := make([]float32, numFrames)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(micSampleRate), len(buffer), &buffer)
	if err != nil {
		return nil, 0, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, 0, fmt.Errorf("start input stream: %w", err)
	}
	if err := stream.Read(); err != nil {
		stream.Stop()
		return nil, 0, fmt.Errorf("read input stream: %w", err)
	}
	if err := stream.Stop(); err != nil {
		return nil, 0, fmt.Errorf("stop input stream: %w", err)
	}

	samples := make([]float64, numFrames)
	for i, v := range buffer {
		samples[i] = float64(v)
	}

	return samples, micSampleRate, nil
}
