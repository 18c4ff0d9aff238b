package protocol

import "bytes"

// Decode parses one complete frame (ending at its NUL terminator). The whole
// frame must be consumed, so input must be a single frame as returned by
// frame.Reader: "ping\n\x00\x00" is two frames on the wire and fails here with
// ErrTrailingBytes.
func Decode(frame []byte) (Message, error) {
	p := parser{buf: frame}
	msg, err := p.packet(false)
	if err != nil {
		return Message{}, err
	}
	if p.pos != len(p.buf) {
		return Message{}, p.fail(ErrTrailingBytes, "")
	}
	return msg, nil
}

// DecodeSubmessage parses b with the submessage grammar: attrs-only first, then
// a full message.
func DecodeSubmessage(b []byte) (Submessage, error) {
	p := parser{buf: b}
	msg, err := p.packet(true)
	if err != nil {
		return Message{}, err
	}
	if p.pos != len(p.buf) {
		return Message{}, p.fail(ErrTrailingBytes, "")
	}
	return msg, nil
}

type parser struct {
	buf []byte
	pos int
}

func (p *parser) fail(err error, reason string) error {
	return &DecodeError{Offset: p.pos, Reason: reason, Err: err}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.buf)
}

// packet is the single grammar routine for top-level messages and nested
// bodies. With sub set, the attrs-only alternative is tried first.
func (p *parser) packet(sub bool) (Message, error) {
	if sub {
		start := p.pos
		if attrs := p.attrs(); len(attrs) > 0 {
			msg := Message{Attrs: attrs}
			if p.eof() {
				return msg, nil
			}
			body, err := p.body()
			if err == nil {
				msg.Body = body
				return msg, nil
			}
		}
		p.pos = start
	}

	name, arg, err := p.header()
	if err != nil {
		return Message{}, err
	}
	msg := Message{Name: name, Argument: arg, Attrs: p.attrs()}
	body, err := p.body()
	if err != nil {
		return Message{}, err
	}
	msg.Body = body
	return msg, nil
}

// header := NAME (' ' ARGUMENT)? '\n'
func (p *parser) header() (string, []byte, error) {
	start := p.pos
	for !p.eof() && isAlpha(p.buf[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		if p.eof() {
			return "", nil, p.fail(ErrMissingTerminator, "empty packet")
		}
		return "", nil, p.fail(ErrMalformed, "expected packet name")
	}
	name := string(p.buf[start:p.pos])
	if p.eof() {
		return "", nil, p.fail(ErrMissingTerminator, "header")
	}

	var arg []byte
	switch p.buf[p.pos] {
	case '\n':
	case ' ':
		p.pos++
		end := bytes.IndexByte(p.buf[p.pos:], '\n')
		if end < 0 {
			return "", nil, p.fail(ErrMissingTerminator, "header argument")
		}
		raw := p.buf[p.pos : p.pos+end]
		if bytes.IndexByte(raw, 0) >= 0 {
			return "", nil, p.fail(ErrMalformed, "NUL in header argument")
		}
		arg = append(make([]byte, 0, len(raw)), raw...)
		p.pos += end
	default:
		return "", nil, p.fail(ErrMalformed, "bad header delimiter")
	}
	p.pos++ // '\n'
	return name, arg, nil
}

// attrs consumes ATTR*. A partially matched attribute line is not consumed.
func (p *parser) attrs() map[string]string {
	var out map[string]string
	for {
		key, value, ok := p.attr()
		if !ok {
			return out
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[key] = value
	}
}

// attr := KEY '=' VALUE '\n'
func (p *parser) attr() (string, string, bool) {
	start := p.pos
	i := p.pos
	for i < len(p.buf) && isAlnum(p.buf[i]) {
		i++
	}
	if i == start || i >= len(p.buf) || p.buf[i] != '=' {
		return "", "", false
	}
	keyEnd := i
	i++
	end := bytes.IndexByte(p.buf[i:], '\n')
	if end < 0 {
		return "", "", false
	}
	value := p.buf[i : i+end]
	if bytes.IndexByte(value, 0) >= 0 {
		return "", "", false
	}
	p.pos = i + end + 1
	return string(p.buf[start:keyEnd]), string(value), true
}

// body := '\n' BYTES-UNTIL-NUL NUL | NUL
func (p *parser) body() (Body, error) {
	if p.eof() {
		return nil, p.fail(ErrMissingTerminator, "")
	}
	switch p.buf[p.pos] {
	case 0:
		p.pos++
		return nil, nil
	case '\n':
		p.pos++
		end := bytes.IndexByte(p.buf[p.pos:], 0)
		if end < 0 {
			return nil, p.fail(ErrMissingTerminator, "body")
		}
		raw := p.buf[p.pos : p.pos+end+1]
		p.pos += end + 1
		return append(make(Body, 0, len(raw)), raw...), nil
	default:
		return nil, p.fail(ErrMalformed, "expected attribute, body or NUL")
	}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}
