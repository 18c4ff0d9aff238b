package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/marsipan/internal/protocol"
)

const Terminator byte = 0

var (
	ErrFrameTooLarge = errors.New("frame: frame too large")
	ErrShortFrame    = errors.New("frame: stream ended inside a frame")
)

// Limits constrains frame read/write memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrameBytes: 1024 * 1024,
	}
}

// Reader splits a byte stream into NUL-terminated frames. Incomplete input
// stays buffered until its terminator arrives.
type Reader struct {
	br     *bufio.Reader
	limits Limits
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxFrameBytes <= 0 {
		limits = DefaultLimits()
	}
	return &Reader{br: bufio.NewReader(r), limits: limits}
}

// ReadFrame returns the next frame, terminator included. The returned slice is
// owned by the caller. Bare NUL padding between frames is skipped.
func (r *Reader) ReadFrame() ([]byte, error) {
	for {
		frame, err := r.readOne()
		if err != nil {
			return nil, err
		}
		if len(frame) == 1 {
			continue
		}
		return frame, nil
	}
}

// ReadMessage reads and decodes the next frame.
func (r *Reader) ReadMessage() (protocol.Message, error) {
	frame, err := r.ReadFrame()
	if err != nil {
		return protocol.Message{}, err
	}
	return protocol.Decode(frame)
}

func (r *Reader) readOne() ([]byte, error) {
	var out []byte
	for {
		chunk, err := r.br.ReadSlice(Terminator)
		if len(out)+len(chunk) > r.limits.MaxFrameBytes {
			return nil, fmt.Errorf("%w: limit=%d", ErrFrameTooLarge, r.limits.MaxFrameBytes)
		}
		out = append(out, chunk...)
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(out) > 0 {
				return nil, ErrShortFrame
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}

// WriteMessage encodes msg as one frame.
func WriteMessage(w io.Writer, msg protocol.Message, limits Limits) error {
	out, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	if limits.MaxFrameBytes > 0 && len(out) > limits.MaxFrameBytes {
		return fmt.Errorf("%w: size=%d limit=%d", ErrFrameTooLarge, len(out), limits.MaxFrameBytes)
	}
	_, err = w.Write(out)
	return err
}
