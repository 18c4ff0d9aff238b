package protocol

import (
	"bytes"
	"fmt"
	"io"
)

// Encode writes msg to w using the dAmn wire format. Attribute lines are
// written in key order.
func Encode(w io.Writer, msg Message) error {
	out, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Marshal returns the wire encoding of msg.
func Marshal(msg Message) ([]byte, error) {
	if err := Validate(msg); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if msg.Name != "" {
		buf.WriteString(msg.Name)
		if msg.Argument != nil {
			buf.WriteByte(' ')
			buf.Write(msg.Argument)
		}
		buf.WriteByte('\n')
	}
	for _, k := range msg.attrKeys() {
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(msg.Attrs[k])
		buf.WriteByte('\n')
	}
	if msg.Body == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte('\n')
		buf.Write(msg.Body)
	}
	return buf.Bytes(), nil
}

// Validate checks that msg can be encoded so that Decode yields it back.
// Name may only be empty for the attrs-only submessage form.
func Validate(msg Message) error {
	if msg.Name == "" {
		if len(msg.Attrs) == 0 {
			return fmt.Errorf("%w: empty name", ErrInvalidMessage)
		}
		if msg.Argument != nil {
			return fmt.Errorf("%w: argument without name", ErrInvalidMessage)
		}
	}
	for i := 0; i < len(msg.Name); i++ {
		if !isAlpha(msg.Name[i]) {
			return fmt.Errorf("%w: name %q", ErrInvalidMessage, msg.Name)
		}
	}
	if bytes.ContainsAny(msg.Argument, "\n\x00") {
		return fmt.Errorf("%w: argument contains newline or NUL", ErrInvalidMessage)
	}
	for k, v := range msg.Attrs {
		if k == "" {
			return fmt.Errorf("%w: empty attribute key", ErrInvalidMessage)
		}
		for i := 0; i < len(k); i++ {
			if !isAlnum(k[i]) {
				return fmt.Errorf("%w: attribute key %q", ErrInvalidMessage, k)
			}
		}
		if bytes.ContainsAny([]byte(v), "\n\x00") {
			return fmt.Errorf("%w: attribute %q value contains newline or NUL", ErrInvalidMessage, k)
		}
	}
	if msg.Body != nil {
		n := len(msg.Body)
		if n == 0 || msg.Body[n-1] != 0 {
			return fmt.Errorf("%w: body must end in NUL", ErrInvalidMessage)
		}
		if bytes.IndexByte(msg.Body[:n-1], 0) >= 0 {
			return fmt.Errorf("%w: body contains interior NUL", ErrInvalidMessage)
		}
	}
	return nil
}
