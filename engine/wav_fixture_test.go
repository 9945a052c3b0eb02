package engine

import (
	"encoding/binary"
	"math"
	"os"
)

// writeMonoWAV writes a minimal 16-bit PCM mono WAV file, the same header
// layout song-recognition's sibling projects hand-roll for their own WAV
// I/O, for use as a synthetic test fixture.
func writeMonoWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const bitsPerSample = 16
	byteRate := sampleRate * bitsPerSample / 8
	blockAlign := bitsPerSample / 8
	dataSize := len(samples) * 2

	write := func(v any) { binary.Write(f, binary.LittleEndian, v) }

	f.WriteString("RIFF")
	write(uint32(36 + dataSize))
	f.WriteString("WAVE")

	f.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1)) // mono
	write(uint32(sampleRate))
	write(uint32(byteRate))
	write(uint16(blockAlign))
	write(uint16(bitsPerSample))

	f.WriteString("data")
	write(uint32(dataSize))

	for _, s := range samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		write(int16(math.Round(s * 32767)))
	}

	return nil
}

func sineSamples(freq float64, sampleRate int, seconds float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)) * 0.8
	}
	return out
}
