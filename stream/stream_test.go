package stream

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUtf8Decoder_SplitAcrossChunkBoundary(t *testing.T) {
	// "é" is 0xC3 0xA9 in UTF-8; split the two bytes across two chunks.
	full := []byte("caf\xc3\xa9")
	var d Utf8Decoder

	out1 := d.Decode(full[:4]) // "caf" + first byte of é
	out2 := d.Decode(full[4:]) // second byte of é

	assert.Equal(t, "caf", out1)
	assert.Equal(t, "é", out2)
}

func TestUtf8Decoder_FlushReplacesIncompleteSequence(t *testing.T) {
	var d Utf8Decoder
	d.Decode([]byte{0xC3}) // first byte of a 2-byte sequence, never completed
	flushed := d.Flush()
	assert.Equal(t, "�", flushed)
}

func TestSSEWriter_FramesDataAndDone(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(&buf)

	require.NoError(t, w.WriteData(`{"x":1}`))
	require.NoError(t, w.WriteDone())

	assert.Equal(t, "data: {\"x\":1}\n\ndata: [DONE]\n\n", buf.String())
}

func TestSSEWriter_NamedEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(&buf)
	require.NoError(t, w.WriteEvent("message_start", `{"type":"message_start"}`))
	assert.Equal(t, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n", buf.String())
}

type instantDelay struct{ calls int }

func (d *instantDelay) Wait(ctx context.Context) error {
	d.calls++
	return ctx.Err()
}

func TestPseudoStreamer_ChunksFixedSize(t *testing.T) {
	p := NewPseudoStreamer(4, nil)
	chunks := p.Chunks("hello world")
	assert.Equal(t, []string{"hell", "o wo", "rld"}, chunks)
}

func TestPseudoStreamer_EachInvokesPerChunkAndDelays(t *testing.T) {
	delay := &instantDelay{}
	p := NewPseudoStreamer(3, delay)

	var seen []string
	err := p.Each(context.Background(), "abcdef", func(chunk string, index, total int) error {
		seen = append(seen, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, seen)
	assert.Equal(t, 1, delay.calls) // delay fires between chunks, not after the last
}

func TestPseudoStreamer_CancellationStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	delay := &instantDelay{}
	p := NewPseudoStreamer(1, delay)

	count := 0
	err := p.Each(ctx, "abc", func(chunk string, index, total int) error {
		count++
		return nil
	})

	assert.Error(t, err)
	assert.Less(t, count, 3)
}

func TestPseudoStreamer_DoesNotSplitMultiByteRunes(t *testing.T) {
	p := NewPseudoStreamer(2, nil)
	chunks := p.Chunks("a😀bc")
	joined := strings.Join(chunks, "")
	assert.Equal(t, "a😀bc", joined)
}
