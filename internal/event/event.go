// Package event classifies inbound "recv" packets into typed chat events.
package event

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/marsipan/internal/protocol"
)

var (
	// ErrUnclassified marks packets that carry no event for handlers. Callers
	// drop them silently.
	ErrUnclassified = errors.New("event: unclassified packet")
	// ErrMissingChatroom means a recv packet had no chatroom argument, which the
	// server never sends. Callers treat it as fatal for the connection.
	ErrMissingChatroom = errors.New("event: recv without chatroom")
)

type Kind int

const (
	KindJoin Kind = iota + 1
	KindPart
	KindMessage
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindPart:
		return "part"
	case KindMessage:
		return "msg"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// Event is one classified chat occurrence. Content is empty for joins and
// parts.
type Event struct {
	Kind     Kind
	Chatroom string
	Sender   string
	Content  string
}

// Classify maps a decoded "recv" packet to an Event. Packets from self are not
// events.
func Classify(msg protocol.Message, self string) (Event, error) {
	if msg.Name != "recv" {
		return Event{}, fmt.Errorf("%w: packet %q", ErrUnclassified, msg.Name)
	}
	if msg.Body == nil {
		return Event{}, fmt.Errorf("%w: recv without body", ErrUnclassified)
	}
	sub, err := msg.Body.Submessage()
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrUnclassified, err)
	}

	var ev Event
	switch sub.Name {
	case "msg":
		ev.Kind = KindMessage
	case "action":
		ev.Kind = KindAction
	case "join":
		ev.Kind = KindJoin
	case "part":
		ev.Kind = KindPart
	default:
		return Event{}, fmt.Errorf("%w: recv %q", ErrUnclassified, sub.Name)
	}
	if !msg.HasArgument() || len(msg.Argument) == 0 {
		return Event{}, ErrMissingChatroom
	}
	ev.Chatroom = msg.Arg()

	switch ev.Kind {
	case KindMessage, KindAction:
		from, ok := sub.Attr("from")
		if !ok {
			return Event{}, fmt.Errorf("%w: %s without from", ErrUnclassified, sub.Name)
		}
		ev.Sender = from
		ev.Content = sub.Body.Text()
	default:
		if !sub.HasArgument() {
			return Event{}, fmt.Errorf("%w: %s without user", ErrUnclassified, sub.Name)
		}
		ev.Sender = sub.Arg()
	}

	if ev.Sender == "" {
		return Event{}, fmt.Errorf("%w: empty sender", ErrUnclassified)
	}
	if strings.EqualFold(ev.Sender, self) {
		return Event{}, fmt.Errorf("%w: own %s", ErrUnclassified, sub.Name)
	}
	return ev, nil
}

// Args returns Content without its first word: the argument text of a
// command such as "!echo hi there".
func (e Event) Args() string {
	_, rest := Word(e.Content)
	return rest
}

// Word splits s at the first space into the first word and the rest.
func Word(s string) (string, string) {
	word, rest, _ := strings.Cut(s, " ")
	return word, rest
}
