package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// StreamDecoder converts a newline-delimited JSON byte stream into discrete
// messages. Data arrives in arbitrary chunks; the decoder buffers the trailing
// incomplete line between calls. Lines that fail to parse are dropped with a
// warning so one bad line never tears down the stream.
type StreamDecoder struct {
	buf    bytes.Buffer
	logger *slog.Logger
}

// NewStreamDecoder creates a stream decoder. A nil logger uses slog.Default.
func NewStreamDecoder(logger *slog.Logger) *StreamDecoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamDecoder{logger: logger}
}

// Feed appends data to the internal buffer and returns all complete messages
// now available, in stream order.
func (d *StreamDecoder) Feed(data []byte) []Message {
	d.buf.Write(data)

	var msgs []Message
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := make([]byte, idx)
		copy(line, raw[:idx])
		d.buf.Next(idx + 1)

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			d.logger.Warn("dropping unparseable line", "err", err, "len", len(line))
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// Buffered returns the number of bytes held for the next Feed.
func (d *StreamDecoder) Buffered() int {
	return d.buf.Len()
}

// DecodeFrame parses a single frame as one message (frame-oriented transports).
func DecodeFrame(frame []byte) (Message, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return Message{}, fmt.Errorf("empty frame")
	}
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	return msg, nil
}

// Encode serializes a message to its JSON wire form.
func Encode(msg Message) ([]byte, error) {
	bs, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return bs, nil
}

// EncodeLine serializes a message with the trailing newline stream transports use.
func EncodeLine(msg Message) ([]byte, error) {
	bs, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	return append(bs, '\n'), nil
}
