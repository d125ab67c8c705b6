package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultBufferSize is the size of a single read.
	DefaultBufferSize = 1024
	// MaxFrameSize bounds the bytes retained while waiting for a frame to complete.
	MaxFrameSize = 16 * 1024 * 1024
)

// Decoder accumulates partial reads and yields complete messages in order.
// It is not safe for concurrent use.
type Decoder struct {
	chunk        []byte
	pending      []byte
	maxFrameSize int
}

// NewDecoder creates a decoder reading bufferSize bytes at a time.
func NewDecoder(bufferSize int) *Decoder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Decoder{chunk: make([]byte, bufferSize), maxFrameSize: MaxFrameSize}
}

// WithMaxFrameSize overrides MaxFrameSize.
func (d *Decoder) WithMaxFrameSize(size int) *Decoder {
	if size > 0 {
		d.maxFrameSize = size
	}
	return d
}

// Feed appends raw bytes to the receive buffer.
func (d *Decoder) Feed(data []byte) {
	d.pending = append(d.pending, data...)
}

// ReadFrom performs a single read of up to the buffer size and feeds the bytes.
// Bytes read are retained even when err is not nil.
func (d *Decoder) ReadFrom(r io.Reader) (int, error) {
	n, err := r.Read(d.chunk)
	if n > 0 {
		d.Feed(d.chunk[:n])
	}
	return n, err
}

// Next returns the next complete message, or nil when more bytes are needed.
// Malformed input discards the whole receive buffer.
func (d *Decoder) Next() (*Message, error) {
	d.pending = bytes.TrimLeft(d.pending, " \t\r\n")
	if len(d.pending) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(d.pending))
	var raw json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			if len(d.pending) > d.maxFrameSize {
				size := len(d.pending)
				d.Reset()
				return nil, fmt.Errorf("%w: frame exceeds %d bytes (%d buffered)", ErrInvalidMessage, d.maxFrameSize, size)
			}
			return nil, nil
		}
		d.Reset()
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	consumed := int(decoder.InputOffset())
	d.pending = append(d.pending[:0:0], d.pending[consumed:]...)
	return Decode(raw)
}

// Buffered returns the number of retained bytes.
func (d *Decoder) Buffered() int {
	return len(d.pending)
}

// Reset discards the receive buffer.
func (d *Decoder) Reset() {
	d.pending = nil
}
