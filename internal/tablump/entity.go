package tablump

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"
)

var ErrBadEntity = errors.New("tablump: malformed HTML entity")

// maxEntityLen bounds the scan for the terminating ';'.
const maxEntityLen = 32

// DecodeEntities decodes HTML character references in s. Every '&' must start
// a well-formed reference terminated by ';'.
func DecodeEntities(s string) (string, error) {
	if !strings.Contains(s, "&") {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		amp := strings.IndexByte(s[i:], '&')
		if amp < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+amp])
		i += amp

		limit := min(len(s), i+maxEntityLen)
		semi := strings.IndexByte(s[i+1:limit], ';')
		if semi < 0 {
			return "", fmt.Errorf("%w at %d", ErrBadEntity, i)
		}
		ref := s[i+1 : i+1+semi]
		r, err := decodeRef(ref)
		if err != nil {
			return "", fmt.Errorf("%w at %d: %q", ErrBadEntity, i, ref)
		}
		b.WriteString(r)
		i += semi + 2
	}
	return b.String(), nil
}

func decodeRef(ref string) (string, error) {
	if ref == "" {
		return "", ErrBadEntity
	}
	if ref[0] == '#' {
		num := ref[1:]
		base := 10
		if strings.HasPrefix(num, "x") || strings.HasPrefix(num, "X") {
			num = num[1:]
			base = 16
		}
		if num == "" {
			return "", ErrBadEntity
		}
		n, err := strconv.ParseUint(num, base, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return "", ErrBadEntity
		}
		return string(rune(n)), nil
	}
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return "", ErrBadEntity
		}
	}
	entity := "&" + ref + ";"
	decoded := html.UnescapeString(entity)
	// html also accepts legacy references without ';', so "&ampx;" would come
	// back as "&x;".
	if decoded == entity || strings.HasSuffix(decoded, ref[len(ref)-1:]+";") {
		return "", ErrBadEntity
	}
	return decoded, nil
}
