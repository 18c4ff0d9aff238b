// Package sendtest records outbound chat messages in place of a delivery
// queue.
package sendtest

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/marsipan/internal/delivery"
	"github.com/danmuck/marsipan/internal/protocol"
)

// Sent is one recorded message with its scheduled instant.
type Sent struct {
	Handle delivery.Handle
	Msg    protocol.Message
	At     time.Time
}

// Recorder implements the handler-facing responder. Cancel removes a recorded
// message so Texts reflects what would still be delivered.
type Recorder struct {
	mu       sync.Mutex
	now      time.Time
	next     delivery.Handle
	sent     []Sent
	Canceled []delivery.Handle
}

func New(now time.Time) *Recorder {
	return &Recorder{now: now}
}

func (r *Recorder) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// Advance moves the recorder's clock.
func (r *Recorder) Advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = r.now.Add(d)
}

func (r *Recorder) Push(msg protocol.Message) delivery.Handle {
	return r.ScheduleAt(msg, r.Now())
}

func (r *Recorder) Schedule(msg protocol.Message, d time.Duration) delivery.Handle {
	return r.ScheduleAt(msg, r.Now().Add(d))
}

func (r *Recorder) ScheduleAt(msg protocol.Message, at time.Time) delivery.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.sent = append(r.sent, Sent{Handle: r.next, Msg: msg, At: at})
	return r.next
}

func (r *Recorder) Cancel(h delivery.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.sent {
		if s.Handle == h {
			r.sent = append(r.sent[:i], r.sent[i+1:]...)
			r.Canceled = append(r.Canceled, h)
			return true
		}
	}
	return false
}

// Sent returns the pending messages in scheduling order.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Reset drops every recorded message.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
	r.Canceled = nil
}

// Texts returns the rendered chat text of every pending message.
func (r *Recorder) Texts(t testing.TB) []string {
	t.Helper()
	sent := r.Sent()
	out := make([]string, 0, len(sent))
	for _, s := range sent {
		sub, err := s.Msg.Body.Submessage()
		if err != nil {
			t.Fatalf("recorded message has no submessage body: %v", err)
		}
		out = append(out, sub.Body.Text())
	}
	return out
}
