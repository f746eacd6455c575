// Package stream implements the streaming transport of spec.md §4.H: a
// UTF-8-safe chunk decoder, an SSE framer, and a pseudo-stream generator for
// upstreams that only return a fully buffered response.
package stream

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Utf8Decoder reassembles UTF-8 text across arbitrary byte-chunk
// boundaries. It carries at most 3 pending bytes between calls to Decode —
// the maximum length of an incomplete UTF-8 sequence.
type Utf8Decoder struct {
	pending []byte
}

// Decode returns the longest valid UTF-8 prefix of pending+chunk, and
// retains any incomplete trailing sequence (at most 3 bytes) for the next
// call.
func (d *Utf8Decoder) Decode(chunk []byte) string {
	buf := append(d.pending, chunk...)
	d.pending = nil

	valid := len(buf)
	for i := 1; i <= 3 && i <= len(buf); i++ {
		tail := buf[len(buf)-i:]
		if !utf8.FullRune(tail) && utf8.RuneStart(tail[0]) {
			valid = len(buf) - i
			break
		}
	}

	d.pending = append(d.pending, buf[valid:]...)
	return string(buf[:valid])
}

// Flush returns any remaining pending bytes, substituting
// utf8.RuneError for sequences that never completed (EOF case, spec.md
// §4.H).
func (d *Utf8Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return out
}

// SSEWriter frames payloads as Server-Sent Events: "data: <payload>\n\n"
// (spec.md §4.H), optionally preceded by an "event: <name>" line.
type SSEWriter struct {
	w       io.Writer
	flusher flusher
}

// flusher mirrors http.Flusher without importing net/http, so SSEWriter can
// wrap any io.Writer (including non-HTTP writers in tests).
type flusher interface {
	Flush()
}

func NewSSEWriter(w io.Writer) *SSEWriter {
	sw := &SSEWriter{w: w}
	if f, ok := w.(flusher); ok {
		sw.flusher = f
	}
	return sw
}

// WriteData writes a bare data frame.
func (s *SSEWriter) WriteData(payload string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

// WriteEvent writes a named event frame.
func (s *SSEWriter) WriteEvent(event, payload string) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

// WriteDone writes the OpenAI chat-completions terminal sentinel.
func (s *SSEWriter) WriteDone() error {
	return s.WriteData("[DONE]")
}

func (s *SSEWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

const defaultChunkSize = 30

// PseudoStreamer chunks a fully buffered string into fixed-size slices with
// an inter-chunk delay, so a non-streaming upstream can still be presented
// to the client as an SSE-compatible sequence (spec.md §4.H). Every
// suspension point (the delay) is a context-cancellation point.
type PseudoStreamer struct {
	ChunkSize int
	Delay     Delayer
}

// Delayer abstracts the inter-chunk sleep so tests can run without real
// wall-clock delay.
type Delayer interface {
	Wait(ctx context.Context) error
}

func NewPseudoStreamer(chunkSize int, delay Delayer) *PseudoStreamer {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &PseudoStreamer{ChunkSize: chunkSize, Delay: delay}
}

// Chunks slices text into fixed-size runs of runes (not bytes, to avoid
// splitting a multi-byte UTF-8 rune across chunks).
func (p *PseudoStreamer) Chunks(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(runes); i += p.ChunkSize {
		end := i + p.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// Each invokes emit once per chunk of text, waiting Delay between chunks.
// It stops and returns ctx.Err() if the context is cancelled during a
// delay.
func (p *PseudoStreamer) Each(ctx context.Context, text string, emit func(chunk string, index, total int) error) error {
	chunks := p.Chunks(text)
	for i, c := range chunks {
		if err := emit(c, i, len(chunks)); err != nil {
			return err
		}
		if i < len(chunks)-1 && p.Delay != nil {
			if err := p.Delay.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
