package protocol

import (
	"sort"
	"strings"
)

// Message is one decoded dAmn packet.
//
// Argument is nil when the header line carries no argument and non-nil (possibly
// empty) when the header is "name <arg>\n". Body is nil when the packet ends in a
// bare NUL; otherwise it holds the body bytes including the terminating NUL.
type Message struct {
	Name     string
	Argument []byte
	Attrs    map[string]string
	Body     Body
}

// Submessage is the grammar parsed out of a message body. Name is empty for the
// attrs-only form.
type Submessage = Message

// Attr returns the attribute value for key.
func (m Message) Attr(key string) (string, bool) {
	v, ok := m.Attrs[key]
	return v, ok
}

// HasAttr reports whether key is present with exactly value.
func (m Message) HasAttr(key, value string) bool {
	v, ok := m.Attrs[key]
	return ok && v == value
}

// Arg returns the argument as a string ("" when absent).
func (m Message) Arg() string {
	return string(m.Argument)
}

// HasArgument reports whether the header line carried an argument.
func (m Message) HasArgument() bool {
	return m.Argument != nil
}

// Bytes returns the wire encoding of m. Invalid messages yield nil.
func (m Message) Bytes() []byte {
	out, err := Marshal(m)
	if err != nil {
		return nil
	}
	return out
}

// String renders m for debug logs.
func (m Message) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	if m.Argument != nil {
		b.WriteByte(' ')
		b.Write(m.Argument)
	}
	keys := m.attrKeys()
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m.Attrs[k])
	}
	if m.Body != nil {
		b.WriteString(" body=")
		b.WriteString(strings.TrimRight(string(m.Body), "\x00"))
	}
	return b.String()
}

func (m Message) attrKeys() []string {
	keys := make([]string, 0, len(m.Attrs))
	for k := range m.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewSend builds the outbound chat message for chatroom:
//
//	send <chatroom>\n\nmsg main\n\n<text>\0
//
// NUL bytes in text are dropped.
func NewSend(chatroom, text string) Message {
	text = strings.ReplaceAll(text, "\x00", "")
	body := make([]byte, 0, len("msg main\n\n")+len(text)+1)
	body = append(body, "msg main\n\n"...)
	body = append(body, text...)
	body = append(body, 0)
	return Message{
		Name:     "send",
		Argument: []byte(chatroom),
		Body:     body,
	}
}

// MustParse decodes a static protocol literal and panics if it is malformed.
func MustParse(s string) Message {
	msg, err := Decode([]byte(s))
	if err != nil {
		panic("protocol: bad literal " + strings.ReplaceAll(s, "\x00", `\0`) + ": " + err.Error())
	}
	return msg
}
