// Package audio collects the spoken part of agent responses.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/codewandler/agentrun-go/events"
	"github.com/smallnest/ringbuffer"
)

// ErrBufferFull is returned when response audio arrives faster than it is read.
var ErrBufferFull = errors.New("audio buffer full")

const (
	// DefaultSampleRate is assumed for response audio that does not state one.
	DefaultSampleRate = 24_000
	bytesPerSample    = 2
)

// Buffer receives base64 PCM16 chunks from response events and plays them
// back as a continuous stream at a fixed output rate.
type Buffer struct {
	rb         *ringbuffer.RingBuffer
	sampleRate int
}

// NewBuffer returns a buffer that holds up to capacity of mono audio at
// sampleRate. Writers block while it is full and readers while it is empty.
func NewBuffer(sampleRate int, capacity time.Duration) *Buffer {
	size := ChunkSize(sampleRate, capacity, bytesPerSample, 1)
	return &Buffer{
		rb:         ringbuffer.New(size).SetBlocking(true),
		sampleRate: sampleRate,
	}
}

func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Write appends PCM16 that is already at the buffer's sample rate.
func (b *Buffer) Write(pcm []byte) (int, error) {
	return b.rb.Write(pcm)
}

// WriteChunk decodes a response audio chunk and appends it, resampling when
// its rate differs from the buffer's. It never blocks: audio that does not
// fit is dropped and reported as ErrBufferFull.
func (b *Buffer) WriteChunk(ra *events.ResponseAudio) error {
	if ra == nil || ra.Content == "" {
		return nil
	}
	pcm, err := base64.StdEncoding.DecodeString(ra.Content)
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}

	from := ra.SampleRate
	if from == 0 {
		from = DefaultSampleRate
	}
	if pcm, err = Resample(pcm, from, b.sampleRate); err != nil {
		return fmt.Errorf("resample audio: %w", err)
	}

	free := b.rb.Free()
	if len(pcm) <= free {
		_, err = b.Write(pcm)
		return err
	}

	// Keep whole samples.
	free -= free % bytesPerSample
	if free > 0 {
		if _, err := b.Write(pcm[:free]); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: dropped %d bytes", ErrBufferFull, len(pcm)-free)
}

// Reader returns a reader that yields chunks covering latency each.
func (b *Buffer) Reader(latency time.Duration) io.Reader {
	return NewFixedChunkReader(b.rb, ChunkSize(b.sampleRate, latency, bytesPerSample, 1))
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return b.rb.Length()
}

// Reset drops everything buffered, e.g. when playback is interrupted.
func (b *Buffer) Reset() {
	b.rb.Reset()
}

// Close ends the stream; readers drain what is left and then get io.EOF.
func (b *Buffer) Close() {
	b.rb.CloseWriter()
}

// WAVHeader returns the 44 byte RIFF header for dataLen bytes of PCM16.
func WAVHeader(dataLen, sampleRate, channels int) []byte {
	blockAlign := channels * bytesPerSample
	byteRate := sampleRate * blockAlign

	h := make([]byte, 44)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], uint32(36+dataLen))
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], 1)
	binary.LittleEndian.PutUint16(h[22:], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:], 16)
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], uint32(dataLen))
	return h
}

// WriteWAV writes pcm as a complete WAV file.
func WriteWAV(w io.Writer, pcm []byte, sampleRate, channels int) error {
	if _, err := w.Write(WAVHeader(len(pcm), sampleRate, channels)); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
