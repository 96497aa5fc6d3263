package stream

import (
	"io"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/windmark/prism/provider"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	// maxEmptyReads bounds consecutive zero-byte, nil-error reads. The
	// io.Reader contract permits them, but a body stuck returning them
	// would otherwise spin Recv forever.
	maxEmptyReads = 100
)

// deltaPaths are the known homes of the text fragment inside one frame,
// tried in order. Typed Anthropic-style events are handled before these.
var deltaPaths = []string{
	"choices.0.delta.content",
	"message.content",
	"token.text",
}

// Normalizer turns one raw provider stream into canonical DeltaChunk
// events. It is pull-driven: the next upstream read happens only after the
// previous chunk has been handed to the consumer, so a slow consumer
// applies backpressure instead of growing a buffer.
//
// Chunks come out in the exact order their source lines decoded. The
// terminal chunk (Done=true) is emitted exactly once; after it, Recv
// returns io.EOF.
type Normalizer struct {
	body io.ReadCloser
	dec  textDecoder

	buf        []byte
	pending    string
	queue      []provider.DeltaChunk
	emptyReads int

	model       string
	accumulated string

	terminated bool // sentinel or done flag seen, or input exhausted
	closed     bool
}

// NewNormalizer wraps the raw response body of a streaming provider call.
// The caller owns the normalizer and must Close it.
func NewNormalizer(body io.ReadCloser) *Normalizer {
	return &Normalizer{
		body: body,
		buf:  make([]byte, 4096),
	}
}

// Recv returns the next canonical chunk. It blocks on the upstream read
// when no decoded chunk is queued. After the terminal chunk it returns
// io.EOF.
func (n *Normalizer) Recv() (provider.DeltaChunk, error) {
	for {
		if len(n.queue) > 0 {
			chunk := n.queue[0]
			n.queue = n.queue[1:]
			return chunk, nil
		}
		if n.terminated {
			return provider.DeltaChunk{}, io.EOF
		}

		nr, err := n.body.Read(n.buf)
		if nr > 0 {
			n.emptyReads = 0
			n.pending += n.dec.decode(n.buf[:nr])
			n.drainLines()
		}
		switch {
		case err != nil:
			if err != io.EOF {
				// an upstream reset mid-stream is handled like an abrupt
				// close: salvage the tail rather than drop it
				slog.Debug("stream read ended abnormally", slog.String("error", err.Error()))
			}
			n.finish()
		case nr == 0:
			n.emptyReads++
			if n.emptyReads >= maxEmptyReads {
				slog.Debug("stream stalled on zero-byte reads")
				n.finish()
			}
		}
	}
}

// Close releases the upstream connection. Any not-yet-consumed queued
// chunks remain readable; further reads are not issued.
func (n *Normalizer) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	n.terminated = true
	return n.body.Close()
}

// drainLines extracts every complete line from the pending buffer and
// classifies it. A frame spanning multiple physical reads stays buffered
// until its line separator arrives.
func (n *Normalizer) drainLines() {
	for !n.terminated {
		idx := strings.IndexByte(n.pending, '\n')
		if idx < 0 {
			return
		}
		line := n.pending[:idx]
		n.pending = n.pending[idx+1:]
		n.handleLine(line)
	}
}

// finish runs the end-of-input path: flush the decoder, process whatever
// remains buffered (including a line that never got its separator), then
// emit the terminal chunk unless a sentinel already did.
func (n *Normalizer) finish() {
	n.pending += n.dec.flush()
	n.drainLines()
	if !n.terminated && n.pending != "" {
		n.handleLine(n.pending)
		n.pending = ""
	}
	if !n.terminated {
		n.terminate()
	}
}

func (n *Normalizer) terminate() {
	n.terminated = true
	n.queue = append(n.queue, provider.DeltaChunk{Done: true, Model: n.model})
}

func (n *Normalizer) handleLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	payload := line
	if strings.HasPrefix(payload, dataPrefix) {
		payload = strings.TrimSpace(strings.TrimPrefix(payload, dataPrefix))
		if payload == doneSentinel {
			n.terminate()
			return
		}
	}
	if payload == "" || strings.HasPrefix(payload, ":") || strings.HasPrefix(payload, "event:") {
		// SSE comments and event-name lines carry no payload
		return
	}

	if !gjson.Valid(payload) {
		n.recoverLine(payload)
		return
	}
	n.handleObject(payload)
}

func (n *Normalizer) handleObject(payload string) {
	obj := gjson.Parse(payload)

	if model := obj.Get("model"); model.Exists() && model.String() != "" {
		n.model = model.String()
	}

	// Anthropic-style typed events
	switch obj.Get("type").String() {
	case "message_stop":
		n.terminate()
		return
	case "message_start":
		if model := obj.Get("message.model"); model.Exists() {
			n.model = model.String()
		}
		return
	case "content_block_delta":
		n.emit(obj.Get("delta.text").String())
		return
	case "ping", "content_block_start", "content_block_stop", "message_delta":
		return
	}

	for _, path := range deltaPaths {
		if delta := obj.Get(path); delta.Exists() {
			n.emit(delta.String())
			if obj.Get("done").Bool() {
				n.terminate()
			}
			return
		}
	}

	// full-text delivery: diff against what was already emitted
	if full := obj.Get("generated_text"); full.Exists() && full.Type == gjson.String {
		text := full.String()
		if strings.HasPrefix(text, n.accumulated) {
			n.emit(text[len(n.accumulated):])
		} else {
			n.emit(text)
		}
		return
	}

	if obj.Get("done").Bool() {
		n.terminate()
	}
}

func (n *Normalizer) recoverLine(payload string) {
	if fragment, ok := recoverDelta(payload); ok {
		n.emit(fragment)
	}
}

func (n *Normalizer) emit(content string) {
	if content == "" {
		return
	}
	n.accumulated += content
	n.queue = append(n.queue, provider.DeltaChunk{Content: content, Model: n.model})
}
