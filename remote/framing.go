package remote

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameBytes guards against a corrupt or hostile length prefix making
// ReadFrame allocate without bound.
const maxFrameBytes = 64 << 20

// FrameWriter writes length-prefixed frames: a 4-byte big-endian length
// followed by that many payload bytes. One FrameWriter is owned by exactly
// one goroutine at a time (the client actor's loop), matching the "write
// half is owned by the actor, never shared" invariant (spec §5).
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter { return &FrameWriter{w: w} }

func (f *FrameWriter) WriteFrame(payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := f.w.Write(header[:]); err != nil {
		return fmt.Errorf("remote: write frame header: %w", err)
	}
	if _, err := f.w.Write(payload); err != nil {
		return fmt.Errorf("remote: write frame payload: %w", err)
	}
	return nil
}

// FrameReader reads frames written by a FrameWriter. It is only ever read
// from the receive loop's sibling task (spec §5 "read half").
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader { return &FrameReader{r: bufio.NewReader(r)} }

func (f *FrameReader) ReadFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(f.r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameBytes {
		return nil, fmt.Errorf("remote: frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		return nil, fmt.Errorf("remote: read frame payload: %w", err)
	}
	return payload, nil
}
