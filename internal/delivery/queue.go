// Package delivery implements the scheduled delivery queue: the single
// ordering authority for outbound traffic.
//
// Entries are ordered by (deadline, sequence). One timer is armed for the
// earliest deadline and rearmed whenever the head changes.
package delivery

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/danmuck/marsipan/internal/protocol"
)

// Handle identifies one scheduled entry for cancellation. Handles come from a
// per-queue sequence and are never reused.
type Handle uint64

type entry struct {
	at    time.Time
	seq   Handle
	msg   protocol.Message
	index int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is safe for use from multiple goroutines; the bridge drives it from a
// single reactor goroutine.
type Queue struct {
	clock Clock

	mu       sync.Mutex
	entries  entryHeap
	byHandle map[Handle]*entry
	nextSeq  Handle
	timer    Timer
	armedFor *entry
	wake     chan struct{}
}

func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = RealClock{}
	}
	return &Queue{
		clock:    clock,
		byHandle: make(map[Handle]*entry),
		wake:     make(chan struct{}, 1),
	}
}

// Now reports the queue clock's current time.
func (q *Queue) Now() time.Time {
	return q.clock.Now()
}

// Push schedules msg for immediate delivery.
func (q *Queue) Push(msg protocol.Message) Handle {
	return q.ScheduleAt(msg, q.clock.Now())
}

// Schedule delivers msg after delay.
func (q *Queue) Schedule(msg protocol.Message, delay time.Duration) Handle {
	return q.ScheduleAt(msg, q.clock.Now().Add(delay))
}

// ScheduleAt delivers msg at instant at. Entries sharing an instant keep
// insertion order.
func (q *Queue) ScheduleAt(msg protocol.Message, at time.Time) Handle {
	q.mu.Lock()
	q.nextSeq++
	e := &entry{at: at, seq: q.nextSeq, msg: msg}
	heap.Push(&q.entries, e)
	q.byHandle[e.seq] = e
	q.rearmLocked()
	q.mu.Unlock()
	q.poke()
	return e.seq
}

// Cancel removes a not-yet-delivered entry. It reports false when the handle
// was already delivered, cancelled or never issued.
func (q *Queue) Cancel(h Handle) bool {
	q.mu.Lock()
	e, ok := q.byHandle[h]
	if !ok {
		q.mu.Unlock()
		return false
	}
	delete(q.byHandle, h)
	heap.Remove(&q.entries, e.index)
	q.rearmLocked()
	q.mu.Unlock()
	q.poke()
	return true
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// C returns the channel of the timer armed for the current head, or nil when
// the queue is empty. Selecting on it and then calling Pop is the reactor's
// delivery step. Wake reports when C may have changed.
func (q *Queue) C() <-chan time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer == nil {
		return nil
	}
	return q.timer.C()
}

// Wake signals after every schedule or cancel.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Pop removes the head entry after its timer fired and rearms for the next
// one. Popping an empty queue is a programming error.
func (q *Queue) Pop() protocol.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() protocol.Message {
	if len(q.entries) == 0 {
		panic("delivery: timer fired with empty queue")
	}
	e := heap.Pop(&q.entries).(*entry)
	delete(q.byHandle, e.seq)
	q.armedFor = nil
	q.timer = nil
	q.rearmLocked()
	return e.msg
}

// Next blocks until the earliest entry is due and returns its payload. It
// yields messages in non-decreasing deadline order.
func (q *Queue) Next(ctx context.Context) (protocol.Message, error) {
	for {
		ch := q.C()
		select {
		case <-ctx.Done():
			return protocol.Message{}, ctx.Err()
		case <-q.wake:
			// head changed; re-read the timer
		case <-ch:
			if msg, ok := q.popDue(ch); ok {
				return msg, nil
			}
		}
	}
}

// popDue pops the head only if fired still belongs to the current timer; a
// concurrent schedule or cancel may have replaced it.
func (q *Queue) popDue(fired <-chan time.Time) (protocol.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.timer == nil || q.timer.C() != fired {
		return protocol.Message{}, false
	}
	return q.popLocked(), true
}

// rearmLocked points the single timer at the current head. The timer is left
// alone when the head did not change.
func (q *Queue) rearmLocked() {
	if len(q.entries) == 0 {
		if q.timer != nil {
			q.timer.Stop()
		}
		q.timer = nil
		q.armedFor = nil
		return
	}
	head := q.entries[0]
	if q.timer != nil && q.armedFor == head {
		return
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	d := head.at.Sub(q.clock.Now())
	if d < 0 {
		d = 0
	}
	q.timer = q.clock.NewTimer(d)
	q.armedFor = head
}

func (q *Queue) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
