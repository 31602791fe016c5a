package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/codewandler/agentrun-go/events"
	"github.com/stretchr/testify/require"
)

func pcm(n int) []byte {
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(int16(i%200-100)*100))
	}
	return b
}

func TestWAVHeader(t *testing.T) {
	h := WAVHeader(1000, 24_000, 1)
	require.Len(t, h, 44)
	require.Equal(t, "RIFF", string(h[0:4]))
	require.Equal(t, uint32(1036), binary.LittleEndian.Uint32(h[4:]))
	require.Equal(t, "WAVE", string(h[8:12]))
	require.Equal(t, "fmt ", string(h[12:16]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(h[22:]))
	require.Equal(t, uint32(24_000), binary.LittleEndian.Uint32(h[24:]))
	require.Equal(t, uint32(48_000), binary.LittleEndian.Uint32(h[28:]))
	require.Equal(t, "data", string(h[36:40]))
	require.Equal(t, uint32(1000), binary.LittleEndian.Uint32(h[40:]))

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm(10), 24_000, 1))
	require.Equal(t, 44+20, buf.Len())
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := pcm(480)
	out, err := Resample(in, 24_000, 24_000)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestResampleChangesLength(t *testing.T) {
	in := pcm(2400)
	out, err := Resample(in, 24_000, 8_000)
	require.NoError(t, err)
	require.InDelta(t, len(in)/3, len(out), 200)
	require.Zero(t, len(out)%2)
}

func TestFixedChunkReader(t *testing.T) {
	r := NewFixedChunkReader(bytes.NewReader(make([]byte, 25)), 10)
	buf := make([]byte, 10)

	var sizes []int
	for {
		n, err := r.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, n)
	}
	require.Equal(t, []int{10, 10, 5}, sizes)

	_, err := NewFixedChunkReader(bytes.NewReader(nil), 10).Read(make([]byte, 5))
	require.Error(t, err)
}

func TestBufferWriteChunkAndRead(t *testing.T) {
	b := NewBuffer(24_000, time.Second)
	data := pcm(480)

	require.NoError(t, b.WriteChunk(&events.ResponseAudio{
		Content:    base64.StdEncoding.EncodeToString(data),
		SampleRate: 24_000,
	}))
	require.NoError(t, b.WriteChunk(&events.ResponseAudio{Transcript: "no audio"}))
	require.Equal(t, len(data), b.Len())
	b.Close()

	var got bytes.Buffer
	_, err := got.ReadFrom(b.Reader(10 * time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, data, got.Bytes())
}

func TestBufferWriteChunkDropsOverflow(t *testing.T) {
	b := NewBuffer(24_000, 10*time.Millisecond)
	capacity := ChunkSize(24_000, 10*time.Millisecond, 2, 1)

	err := b.WriteChunk(&events.ResponseAudio{
		Content:    base64.StdEncoding.EncodeToString(pcm(24_000)),
		SampleRate: 24_000,
	})
	require.ErrorIs(t, err, ErrBufferFull)
	require.Equal(t, capacity, b.Len())

	// A full buffer still returns at once.
	err = b.WriteChunk(&events.ResponseAudio{Content: base64.StdEncoding.EncodeToString(pcm(10))})
	require.ErrorIs(t, err, ErrBufferFull)
	require.Equal(t, capacity, b.Len())
}

func TestBufferRejectsInvalidBase64(t *testing.T) {
	b := NewBuffer(24_000, time.Second)
	require.Error(t, b.WriteChunk(&events.ResponseAudio{Content: "%%%"}))
}

func TestBufferReset(t *testing.T) {
	b := NewBuffer(24_000, time.Second)
	_, err := b.Write(pcm(100))
	require.NoError(t, err)
	b.Reset()
	require.Zero(t, b.Len())
}
