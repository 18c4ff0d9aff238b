package protocol

import (
	"bytes"

	"github.com/danmuck/marsipan/internal/tablump"
)

// Body is the raw byte blob backing a message body, terminating NUL included.
type Body []byte

// Submessage re-parses the body with the submessage grammar.
func (b Body) Submessage() (Submessage, error) {
	return DecodeSubmessage(b)
}

// Raw returns the body with the trailing NUL and one preceding newline removed.
func (b Body) Raw() []byte {
	out := bytes.TrimSuffix([]byte(b), []byte{0})
	return bytes.TrimSuffix(out, []byte{'\n'})
}

// Text returns the human-readable body: tablumps rendered and literal runs
// entity-decoded. Bad entities fall back to raw text with a logged warning.
func (b Body) Text() string {
	if b == nil {
		return ""
	}
	return tablump.Decode(b.Raw())
}
