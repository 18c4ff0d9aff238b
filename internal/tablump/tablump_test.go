package tablump

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/marsipan/internal/testutil/testlog"
)

func TestDecodeBold(t *testing.T) {
	testlog.Start(t)
	got := Decode([]byte("plain &b\ttext&/b\tmore"))
	if got != "plain <b>text</b>more" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestParseCoalescesLiterals(t *testing.T) {
	testlog.Start(t)
	tokens := Parse([]byte("a & b &zz\tc&b\t"))
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %#v", len(tokens), tokens)
	}
	if string(tokens[0].Text) != "a & b &zz\tc" || tokens[0].Tag != nil {
		t.Fatalf("unexpected literal token %#v", tokens[0])
	}
	if tokens[1].Tag == nil || tokens[1].Tag.Kind != KindB {
		t.Fatalf("expected bold tag, got %#v", tokens[1])
	}
}

func TestPrefixTagsDoNotOverlap(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		src  string
		want Kind
	}{
		{"&b\t", KindB},
		{"&bcode\t", KindBcode},
		{"&br\t", KindBr},
		{"&s\t", KindS},
		{"&sub\t", KindSub},
		{"&sup\t", KindSup},
		{"&/sub\t", KindCloseSub},
		{"&i\t", KindI},
		{"&img\ta\tb\tc\t", KindImg},
		{"&a\thref\ttitle\t", KindA},
		{"&abbr\tx\t", KindAbbr},
	}
	for _, tc := range cases {
		tokens := Parse([]byte(tc.src))
		if len(tokens) != 1 || tokens[0].Tag == nil || tokens[0].Tag.Kind != tc.want {
			t.Fatalf("%q: expected %v, got %#v", tc.src, tc.want, tokens)
		}
	}
}

func TestPartialTagFallsBackToLiteral(t *testing.T) {
	testlog.Start(t)
	// img needs three tab-terminated arguments.
	got := Decode([]byte("&img\tsrc\t"))
	if got != "&img\tsrc\t" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		src  string
		want string
	}{
		{"&a\thttp://x\tX\tgo&/a\t", `<a href="http://x" title="X">go</a>`},
		{"&abbr\tlong\tA&/abbr\t", `<abbr title="long">A</abbr>`},
		{"&acro\tlong\tA&/acro\t", `<acronym title="long">A</acronym>`},
		{"&avatar\tbob\t1\t", ":iconbob:"},
		{"&dev\t~\tbob\t", ":devbob:"},
		{"&embed\tsrc\t1\t2\t&/embed\t", `<embed src="src"></embed>`},
		{"&iframe\tsrc\t1\t2\t&/iframe\t", `<iframe src="src"></iframe>`},
		{"&img\tsrc\t1\t2\t", `<img src="src" />`},
		{"&emote\t:)\t15\t15\tsmile\tfile\t", ":)"},
		{"&thumb\t123\ta\tb\tc\td\te\t", ":thumb123:"},
		{"&br\t", "<br/>"},
		{"&bcode\tx&/bcode\t", "<bcode>x</bcode>"},
		{"&code\tx&/code\t", "<code>x</code>"},
		{"&ul\t&li\tx&/li\t&/ul\t", "<ul><li>x</li></ul>"},
		{"&ol\t&/ol\t&p\t&/p\t", "<ol></ol><p></p>"},
		{"&i\t&/i\t&u\t&/u\t&s\t&/s\t", "<i></i><u></u><s></s>"},
		{"&sub\t&/sub\t&sup\t&/sup\t", "<sub></sub><sup></sup>"},
		{"&link\thttp://x\t&\t", "http://x"},
		{"&link\thttp://x\tsite\t&\t", "http://x (site)"},
	}
	for _, tc := range cases {
		if got := Decode([]byte(tc.src)); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.src, tc.want, got)
		}
	}
}

func TestLinkArgs(t *testing.T) {
	testlog.Start(t)
	tokens := Parse([]byte("&link\thttp://x\tsite\t&\t"))
	want := []Token{{Tag: &Tag{Kind: KindLink, Args: []string{"http://x", "site"}}}}
	if !reflect.DeepEqual(tokens, want) {
		t.Fatalf("expected %#v, got %#v", want, tokens)
	}
	// A titled link missing its closing "&\t" is not a link.
	if got := Decode([]byte("&link\thttp://x\tsite\t")); got != "&link\thttp://x\tsite\t" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestLiteralEntities(t *testing.T) {
	testlog.Start(t)
	got := Decode([]byte("&lt;3 &amp; &#233;&#x41;&b\t&quot;"))
	if got != "<3 & éA<b>\"" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestBadEntityFallsBackToRaw(t *testing.T) {
	testlog.Start(t)
	if got := Decode([]byte("fish & chips &amp;")); got != "fish & chips &amp;" {
		t.Fatalf("unexpected render %q", got)
	}
}

func TestDecodeEntitiesErrors(t *testing.T) {
	testlog.Start(t)
	for _, s := range []string{"&", "&;", "&nosuch;", "&#;", "&#xZZ;", "&ampx;", "&lt"} {
		if _, err := DecodeEntities(s); !errors.Is(err, ErrBadEntity) {
			t.Fatalf("%q: expected ErrBadEntity, got %v", s, err)
		}
	}
	got, err := DecodeEntities("a &gt; b")
	if err != nil || got != "a > b" {
		t.Fatalf("unexpected decode %q, %v", got, err)
	}
}
