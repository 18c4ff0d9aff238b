package frame

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/danmuck/marsipan/internal/protocol"
)

func TestReadFrameSplitsStream(t *testing.T) {
	stream := "dAmnServer 0.3\n\x00ping\n\n\x00recv chat:x\n\nmsg main\nfrom=bob\n\nhello\x00\x00"
	r := NewReader(iotest.OneByteReader(strings.NewReader(stream)), DefaultLimits())

	want := []string{
		"dAmnServer 0.3\n\x00",
		"ping\n\n\x00",
		"recv chat:x\n\nmsg main\nfrom=bob\n\nhello\x00",
	}
	for _, w := range want {
		got, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if string(got) != w {
			t.Fatalf("expected %q, got %q", w, got)
		}
	}
	if _, err := r.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadFrameShortFrame(t *testing.T) {
	r := NewReader(strings.NewReader("ping\n\x00pong\n"), DefaultLimits())
	if _, err := r.ReadFrame(); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if _, err := r.ReadFrame(); !errors.Is(err, ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	big := strings.Repeat("x", 64) + "\x00"
	r := NewReader(strings.NewReader(big), Limits{MaxFrameBytes: 16})
	if _, err := r.ReadFrame(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestReadFrameLargerThanBuffer(t *testing.T) {
	body := strings.Repeat("y", 10000)
	stream := "recv chat:x\n\nmsg main\nfrom=bob\n\n" + body + "\x00"
	r := NewReader(strings.NewReader(stream), DefaultLimits())
	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	sub, err := msg.Body.Submessage()
	if err != nil {
		t.Fatalf("submessage: %v", err)
	}
	if sub.Body.Text() != body {
		t.Fatalf("body mismatch: len=%d", len(sub.Body.Text()))
	}
}

func TestReadMessagePropagatesDecodeError(t *testing.T) {
	r := NewReader(strings.NewReader("9bad\n\x00"), DefaultLimits())
	if _, err := r.ReadMessage(); !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestWriteMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := protocol.NewSend("chat:x", "hi")
	if err := WriteMessage(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write message: %v", err)
	}
	out, err := NewReader(&buf, DefaultLimits()).ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if out.Name != "send" || out.Arg() != "chat:x" || !bytes.Equal(out.Body, in.Body) {
		t.Fatalf("round-trip mismatch: %#v", out)
	}
}

func TestWriteMessageTooLarge(t *testing.T) {
	msg := protocol.NewSend("chat:x", strings.Repeat("z", 100))
	err := WriteMessage(io.Discard, msg, Limits{MaxFrameBytes: 32})
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}
