package audio

import (
	"bytes"
	"encoding/binary"

	"github.com/faiface/beep"
)

// PCMStreamer plays mono little-endian PCM16 as a beep stream.
type PCMStreamer struct {
	data []int16
	pos  int
}

func NewPCMStreamer(b []byte) *PCMStreamer {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return &PCMStreamer{data: samples}
}

func (s *PCMStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= len(s.data) {
			return i, i > 0
		}
		val := float64(s.data[s.pos]) / 32768.0
		samples[i][0] = val
		samples[i][1] = val
		s.pos++
	}
	return len(samples), true
}

func (s *PCMStreamer) Err() error { return nil }

// Resample converts mono PCM16 from one sample rate to another.
func Resample(pcm []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate == toRate || len(pcm) < 2 {
		return pcm, nil
	}

	resampler := beep.Resample(3, beep.SampleRate(fromRate), beep.SampleRate(toRate), NewPCMStreamer(pcm))

	buf := new(bytes.Buffer)
	buf.Grow(len(pcm) * toRate / fromRate)
	samples := make([][2]float64, 1024)

	for {
		n, ok := resampler.Stream(samples)
		for i := 0; i < n; i++ {
			mono := (samples[i][0] + samples[i][1]) / 2.0
			if err := binary.Write(buf, binary.LittleEndian, int16(clamp(mono)*32767)); err != nil {
				return nil, err
			}
		}
		if !ok {
			break
		}
	}

	return buf.Bytes(), nil
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
