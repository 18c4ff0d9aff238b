package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/marsipan/internal/event"
	"github.com/danmuck/marsipan/internal/hooks"
	"github.com/danmuck/marsipan/internal/store"
	"github.com/danmuck/marsipan/internal/testutil/sendtest"
	"github.com/danmuck/marsipan/internal/testutil/testlog"
)

var t0 = time.Date(2026, 10, 16, 10, 20, 0, 0, time.UTC)

type harness struct {
	t   *testing.T
	reg *hooks.Registry
	out *sendtest.Recorder
}

func newHarness(t *testing.T, st store.Store) *harness {
	t.Helper()
	testlog.Start(t)
	reg := hooks.NewRegistry("marsipan", st)
	reg.Apply(Default(reg.Allocator()))
	return &harness{t: t, reg: reg, out: sendtest.New(t0)}
}

// say dispatches one message and returns only the replies it produced.
func (h *harness) say(sender, content string) []string {
	h.t.Helper()
	h.out.Reset()
	h.send(sender, content)
	return h.out.Texts(h.t)
}

// send dispatches without clearing earlier recorded messages.
func (h *harness) send(sender, content string) {
	h.reg.Dispatch(context.Background(), event.Event{
		Kind:     event.KindMessage,
		Chatroom: "chat:devintesting",
		Sender:   sender,
		Content:  content,
	}, h.out)
}

func (h *harness) join(sender string) []string {
	h.t.Helper()
	h.out.Reset()
	h.reg.Dispatch(context.Background(), event.Event{
		Kind:     event.KindJoin,
		Chatroom: "chat:devintesting",
		Sender:   sender,
	}, h.out)
	return h.out.Texts(h.t)
}

func expectTexts(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestAboutAndCommands(t *testing.T) {
	h := newHarness(t, nil)
	got := h.say("bob", "!about")
	if len(got) != 1 || !strings.HasPrefix(got[0], "\U0001F370 <b>marsipan v"+Version+"</b> built with go") {
		t.Fatalf("unexpected about reply %q", got)
	}
	expectTexts(t, h.say("bob", "marsipan: commands"),
		"bob: Commands are: about, commands, echo, foo, ping, setwelcome, sleep, wakeup, wordwar")
}

func TestEcho(t *testing.T) {
	h := newHarness(t, nil)
	expectTexts(t, h.say("bob", "!echo hello there"), "hello there")
	expectTexts(t, h.say("bob", "!echo"))
	expectTexts(t, h.say("bob", "echo hello"))
}

func TestHighlightTriggerArgs(t *testing.T) {
	h := newHarness(t, store.NewMemory())
	expectTexts(t, h.say("bob", "marsipan: echo hello there"), "hello there")
	expectTexts(t, h.say("bob", "marsipan: echo"))

	expectTexts(t, h.say("bob", "marsipan: sleep 5"), "Sleeping for 5 seconds. ZZZzzz...", "Waking up!")
	h.send("bob", "marsipan: wakeup")
	expectTexts(t, h.out.Texts(t), "Sleeping for 5 seconds. ZZZzzz...", "Ok, I'm awake!")

	got := h.say("bob", "marsipan: wordwar at :30 for 10")
	if len(got) != 3 || !strings.HasPrefix(got[2], "bob: Scheduled war with ID #") {
		t.Fatalf("unexpected wordwar replies %q", got)
	}
	expectTexts(t, h.say("alice", "marsipan: setwelcome Hi there"), "alice: Welcome saved.")
	expectTexts(t, h.join("alice"), "Hi there")
}

func TestFooBarToggle(t *testing.T) {
	h := newHarness(t, nil)
	expectTexts(t, h.say("bob", "!bar"))
	expectTexts(t, h.say("bob", "!foo"), "Disabling !foo and enabling !bar")
	expectTexts(t, h.say("bob", "!foo"))
	expectTexts(t, h.say("bob", "!bar"), "Disabling !bar and enabling !foo")
	expectTexts(t, h.say("bob", "!foo"), "Disabling !foo and enabling !bar")
}

func TestSleepAndWakeup(t *testing.T) {
	h := newHarness(t, nil)
	expectTexts(t, h.say("bob", "!sleep"))
	expectTexts(t, h.say("bob", "!sleep soon"), "That doesn't look like a number.")
	expectTexts(t, h.say("bob", "!wakeup"), "I wasn't sleeping!")

	got := h.say("bob", "!sleep 5")
	expectTexts(t, got, "Sleeping for 5 seconds. ZZZzzz...", "Waking up!")
	if at := h.out.Sent()[1].At; !at.Equal(t0.Add(5 * time.Second)) {
		t.Fatalf("expected wake at +5s, got %v", at)
	}
	wake := h.out.Sent()[1].Handle

	h.send("bob", "!wakeup")
	if len(h.out.Canceled) != 1 || h.out.Canceled[0] != wake {
		t.Fatalf("expected pending wake %d cancelled, got %v", wake, h.out.Canceled)
	}
	expectTexts(t, h.out.Texts(t), "Sleeping for 5 seconds. ZZZzzz...", "Ok, I'm awake!")
	expectTexts(t, h.say("bob", "!wakeup"), "I wasn't sleeping!")
}

func TestPingProbe(t *testing.T) {
	h := newHarness(t, nil)
	base := h.reg.MessageHandlers()
	expectTexts(t, h.say("bob", "!ping"), "\U0001F514?")
	if h.reg.MessageHandlers() != base+1 {
		t.Fatalf("expected probe hook registered")
	}
	h.out.Advance(42 * time.Millisecond)
	expectTexts(t, h.say("alice", "unrelated"))
	expectTexts(t, h.say("otherbot", "\U0001F514?"), "\U0001F514! (42ms)")
	if h.reg.MessageHandlers() != base {
		t.Fatalf("expected probe hook to unregister itself")
	}
	expectTexts(t, h.say("otherbot", "\U0001F514?"))
}

func TestWelcome(t *testing.T) {
	h := newHarness(t, store.NewMemory())
	expectTexts(t, h.join("alice"))
	expectTexts(t, h.say("alice", "!setwelcome Hi Alice!"), "alice: Welcome saved.")
	expectTexts(t, h.join("Alice"), "Hi Alice!")
	expectTexts(t, h.join("bob"))
	expectTexts(t, h.say("alice", "!setwelcome"), "alice: Welcome cleared.")
	expectTexts(t, h.join("alice"))
}

func TestWelcomeWithoutStore(t *testing.T) {
	h := newHarness(t, nil)
	expectTexts(t, h.join("alice"))
	expectTexts(t, h.say("alice", "!setwelcome hey"), "alice: Welcomes are not enabled.")
}

func TestParseWar(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		args       string
		start, end time.Time
		err        error
	}{
		{"at :30 for 10", t0.Add(10 * time.Minute), t0.Add(20 * time.Minute), nil},
		{"at :15 for 5", t0.Add(55 * time.Minute), t0.Add(60 * time.Minute), nil},
		{"at :20 for 0", t0.Add(time.Hour), t0.Add(time.Hour), nil},
		{"at :05 for 59", t0.Add(45 * time.Minute), t0.Add(104 * time.Minute), nil},
		{"at :30 for 60", time.Time{}, time.Time{}, errWarTooLong},
		{"at 30 for 5", time.Time{}, time.Time{}, errWarSyntax},
		{"at :61 for 5", time.Time{}, time.Time{}, errWarSyntax},
		{"at :30 for -5", time.Time{}, time.Time{}, errWarSyntax},
		{"at :30", time.Time{}, time.Time{}, errWarSyntax},
	}
	for _, tc := range cases {
		start, end, err := parseWar(tc.args, t0)
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q: expected err %v, got %v", tc.args, tc.err, err)
		}
		if tc.err != nil {
			continue
		}
		if !start.Equal(tc.start) || !end.Equal(tc.end) {
			t.Fatalf("%q: expected %v-%v, got %v-%v", tc.args, tc.start, tc.end, start, end)
		}
	}
}

func TestWordWarFlow(t *testing.T) {
	h := newHarness(t, nil)
	expectTexts(t, h.say("bob", "!wordwar at :30 for 99"), "bob: Too many minutes.")
	expectTexts(t, h.say("bob", "!wordwar tomorrow"), "bob: I don't understand.")

	got := h.say("bob", "!wordwar at :30 for 10")
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %q", got)
	}
	if got[0] != "bob: <b>START WRITING!</b>" || got[1] != "bob: <b>STOP WRITING!</b>" {
		t.Fatalf("unexpected war announcements %q", got)
	}
	if !strings.HasPrefix(got[2], "bob: Scheduled war with ID #") {
		t.Fatalf("unexpected confirmation %q", got[2])
	}
	id := strings.TrimSuffix(strings.TrimPrefix(got[2], "bob: Scheduled war with ID #"), ".")
	sent := h.out.Sent()
	if !sent[0].At.Equal(t0.Add(10*time.Minute)) || !sent[1].At.Equal(t0.Add(20*time.Minute)) {
		t.Fatalf("unexpected schedule %v %v", sent[0].At, sent[1].At)
	}
	startMsg, endMsg := sent[0].Handle, sent[1].Handle

	h.out.Advance(time.Minute)
	h.send("alice", "!in")
	if len(h.out.Canceled) != 2 || h.out.Canceled[0] != startMsg || h.out.Canceled[1] != endMsg {
		t.Fatalf("expected original announcements cancelled, got %v", h.out.Canceled)
	}
	expectTexts(t, h.out.Texts(t),
		"bob: Scheduled war with ID #"+id+".",
		"bob, alice: <b>START WRITING!</b>",
		"bob, alice: <b>STOP WRITING!</b>",
		"alice: You've been added to war #"+id+".",
	)
	if at := h.out.Sent()[1].At; !at.Equal(t0.Add(10 * time.Minute)) {
		t.Fatalf("rescheduled start moved: %v", at)
	}
	expectTexts(t, h.say("alice", "!in"))

	h.out.Advance(10 * time.Minute)
	expectTexts(t, h.say("carol", "!in"))
	if contains(h.reg.Commands(), "in") {
		t.Fatalf("expected in hook to expire, got %v", h.reg.Commands())
	}
}

func TestWordWarClosesAtStart(t *testing.T) {
	h := newHarness(t, nil)
	got := h.say("bob", "!wordwar at :30 for 10")
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %q", got)
	}
	h.out.Advance(10 * time.Minute)
	expectTexts(t, h.say("alice", "!in"))
	if len(h.out.Canceled) != 0 {
		t.Fatalf("announcements must not be touched at start, got %v", h.out.Canceled)
	}
	if contains(h.reg.Commands(), "in") {
		t.Fatalf("expected in hook to expire at start, got %v", h.reg.Commands())
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
