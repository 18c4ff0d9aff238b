// Package tablump parses and renders dAmn tablumps, the tab-delimited inline
// markup embedded in message bodies.
//
// The tag set is closed. Alternatives are tried in a fixed order and every tag
// name is followed by a mandatory tab, so "&b\t" can never match "&bcode\t".
package tablump

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog/log"
)

// Kind identifies one tablump form.
type Kind int

const (
	KindA Kind = iota + 1
	KindCloseA
	KindAbbr
	KindCloseAbbr
	KindAcro
	KindCloseAcro
	KindAvatar
	KindB
	KindCloseB
	KindBcode
	KindCloseBcode
	KindBr
	KindCode
	KindCloseCode
	KindDev
	KindEmbed
	KindCloseEmbed
	KindEmote
	KindI
	KindCloseI
	KindIframe
	KindCloseIframe
	KindImg
	KindLi
	KindCloseLi
	KindLink
	KindOl
	KindCloseOl
	KindP
	KindCloseP
	KindS
	KindCloseS
	KindSub
	KindCloseSub
	KindSup
	KindCloseSup
	KindThumb
	KindU
	KindCloseU
	KindUl
	KindCloseUl
)

type pattern struct {
	name  string
	kind  Kind
	arity int
}

// patterns is the ordered alternative list; first match wins.
var patterns = []pattern{
	{"a", KindA, 2},
	{"/a", KindCloseA, 0},
	{"abbr", KindAbbr, 1},
	{"/abbr", KindCloseAbbr, 0},
	{"acro", KindAcro, 1},
	{"/acro", KindCloseAcro, 0},
	{"avatar", KindAvatar, 2},
	{"b", KindB, 0},
	{"/b", KindCloseB, 0},
	{"bcode", KindBcode, 0},
	{"/bcode", KindCloseBcode, 0},
	{"br", KindBr, 0},
	{"code", KindCode, 0},
	{"/code", KindCloseCode, 0},
	{"dev", KindDev, 2},
	{"embed", KindEmbed, 3},
	{"/embed", KindCloseEmbed, 0},
	{"emote", KindEmote, 5},
	{"i", KindI, 0},
	{"/i", KindCloseI, 0},
	{"iframe", KindIframe, 3},
	{"/iframe", KindCloseIframe, 0},
	{"img", KindImg, 3},
	{"li", KindLi, 0},
	{"/li", KindCloseLi, 0},
	{"link", KindLink, -1},
	{"ol", KindOl, 0},
	{"/ol", KindCloseOl, 0},
	{"p", KindP, 0},
	{"/p", KindCloseP, 0},
	{"s", KindS, 0},
	{"/s", KindCloseS, 0},
	{"sub", KindSub, 0},
	{"/sub", KindCloseSub, 0},
	{"sup", KindSup, 0},
	{"/sup", KindCloseSup, 0},
	{"thumb", KindThumb, 6},
	{"u", KindU, 0},
	{"/u", KindCloseU, 0},
	{"ul", KindUl, 0},
	{"/ul", KindCloseUl, 0},
}

// String returns the tag name as it appears on the wire.
func (k Kind) String() string {
	for _, p := range patterns {
		if p.kind == k {
			return p.name
		}
	}
	return "unknown"
}

// Tag is a parsed tablump with its tab-terminated arguments. A link without a
// title carries a single argument.
type Tag struct {
	Kind Kind
	Args []string
}

// Token is either a literal run (Tag == nil) or a tag.
type Token struct {
	Text []byte
	Tag  *Tag
}

// Parse tokenizes src. Adjacent literal runs are coalesced; a '&' that starts
// no known tag is literal.
func Parse(src []byte) []Token {
	var (
		out     []Token
		literal []byte
	)
	flush := func() {
		if len(literal) > 0 {
			out = append(out, Token{Text: literal})
			literal = nil
		}
	}
	for pos := 0; pos < len(src); {
		if src[pos] != '&' {
			end := bytes.IndexByte(src[pos:], '&')
			if end < 0 {
				end = len(src) - pos
			}
			literal = append(literal, src[pos:pos+end]...)
			pos += end
			continue
		}
		tag, n, ok := matchTag(src[pos:])
		if !ok {
			literal = append(literal, '&')
			pos++
			continue
		}
		flush()
		out = append(out, Token{Tag: tag})
		pos += n
	}
	flush()
	return out
}

func matchTag(src []byte) (*Tag, int, bool) {
	for _, p := range patterns {
		prefix := "&" + p.name + "\t"
		if !bytes.HasPrefix(src, []byte(prefix)) {
			continue
		}
		rest := src[len(prefix):]
		if p.kind == KindLink {
			if tag, n, ok := matchLink(rest); ok {
				return tag, len(prefix) + n, true
			}
			continue
		}
		args, n, ok := takeArgs(rest, p.arity)
		if !ok {
			continue
		}
		return &Tag{Kind: p.kind, Args: args}, len(prefix) + n, true
	}
	return nil, 0, false
}

// matchLink handles "&link\thref\t&\t" (no title) and
// "&link\thref\ttitle\t&\t".
func matchLink(src []byte) (*Tag, int, bool) {
	args, n, ok := takeArgs(src, 2)
	if !ok {
		return nil, 0, false
	}
	if args[1] == "&" {
		return &Tag{Kind: KindLink, Args: args[:1]}, n, true
	}
	if !bytes.HasPrefix(src[n:], []byte("&\t")) {
		return nil, 0, false
	}
	return &Tag{Kind: KindLink, Args: args}, n + 2, true
}

func takeArgs(src []byte, arity int) ([]string, int, bool) {
	if arity == 0 {
		return nil, 0, true
	}
	args := make([]string, 0, arity)
	n := 0
	for i := 0; i < arity; i++ {
		end := bytes.IndexByte(src[n:], '\t')
		if end < 0 {
			return nil, 0, false
		}
		args = append(args, string(src[n:n+end]))
		n += end + 1
	}
	return args, n, true
}

func (t Tag) arg(i int) string {
	if i < len(t.Args) {
		return t.Args[i]
	}
	return ""
}

// String renders the tag.
func (t Tag) String() string {
	switch t.Kind {
	case KindA:
		return `<a href="` + t.arg(0) + `" title="` + t.arg(1) + `">`
	case KindAbbr:
		return `<abbr title="` + t.arg(0) + `">`
	case KindCloseAbbr:
		return "</abbr>"
	case KindAcro:
		return `<acronym title="` + t.arg(0) + `">`
	case KindCloseAcro:
		return "</acronym>"
	case KindAvatar:
		return ":icon" + t.arg(0) + ":"
	case KindBr:
		return "<br/>"
	case KindDev:
		return ":dev" + t.arg(1) + ":"
	case KindEmbed:
		return `<embed src="` + t.arg(0) + `">`
	case KindEmote:
		return t.arg(0)
	case KindIframe:
		return `<iframe src="` + t.arg(0) + `">`
	case KindImg:
		return `<img src="` + t.arg(0) + `" />`
	case KindLink:
		if len(t.Args) > 1 {
			return t.Args[0] + " (" + t.Args[1] + ")"
		}
		return t.arg(0)
	case KindThumb:
		return ":thumb" + t.arg(0) + ":"
	}
	// Remaining kinds map onto plain HTML elements of the same name.
	name := t.Kind.String()
	if strings.HasPrefix(name, "/") {
		return "</" + name[1:] + ">"
	}
	return "<" + name + ">"
}

// Render turns tokens into text. Literal runs are entity-decoded; a run with
// a bad entity is kept raw and a warning is logged.
func Render(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		if tok.Tag != nil {
			b.WriteString(tok.Tag.String())
			continue
		}
		raw := string(tok.Text)
		decoded, err := DecodeEntities(raw)
		if err != nil {
			log.Warn().Err(err).Str("text", raw).Msg("tablump entity decode failed")
			b.WriteString(raw)
			continue
		}
		b.WriteString(decoded)
	}
	return b.String()
}

// Decode is Render(Parse(src)).
func Decode(src []byte) string {
	return Render(Parse(src))
}
