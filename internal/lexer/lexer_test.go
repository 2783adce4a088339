package lexer_test

import (
	"testing"

	"github.com/nomad-lang/nomadc/internal/lexer"
)

func collect(src string) []lexer.Token {
	lx := lexer.New(src)
	var toks []lexer.Token
	for {
		tok := lx.NextToken()
		toks = append(toks, tok)
		if tok.Kind == lexer.EOF {
			return toks
		}
	}
}

func kinds(toks []lexer.Token) []lexer.Kind {
	ks := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func assertKinds(t *testing.T, src string, want []lexer.Kind) {
	t.Helper()
	got := kinds(collect(src))
	if len(got) != len(want) {
		t.Fatalf("lexing %q: got %d tokens %v, want %d %v", src, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lexing %q: token %d = %v, want %v", src, i, got[i], want[i])
		}
	}
}

func TestIndentTokenOncePerLine(t *testing.T) {
	src := "func main() -> int:\n    return 42"
	toks := collect(src)
	var indents int
	for _, tok := range toks {
		if tok.Kind == lexer.INDENT {
			indents++
		}
	}
	if indents != 2 {
		t.Fatalf("expected 2 indent tokens, got %d", indents)
	}
	// first indent has width 0, second has width 4
	var widths []string
	for _, tok := range toks {
		if tok.Kind == lexer.INDENT {
			widths = append(widths, tok.Value)
		}
	}
	if widths[0] != "0" || widths[1] != "4" {
		t.Fatalf("unexpected indent widths %v", widths)
	}
}

func TestBlankAndCommentLinesProduceNoIndent(t *testing.T) {
	src := "var x = 1\n\n// a comment\nvar y = 2"
	toks := collect(src)
	var indents int
	for _, tok := range toks {
		if tok.Kind == lexer.INDENT {
			indents++
		}
	}
	if indents != 2 {
		t.Fatalf("expected 2 indent tokens (blank/comment lines excluded), got %d", indents)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	assertKinds(t, "func x", []lexer.Kind{lexer.INDENT, lexer.KwFunc, lexer.IDENT, lexer.EOF})
}

func TestNumberLexemes(t *testing.T) {
	lx := lexer.New("3.14")
	indent := lx.NextToken()
	if indent.Kind != lexer.INDENT {
		t.Fatalf("expected indent token first")
	}
	tok := lx.NextToken()
	if tok.Kind != lexer.NUMBER || tok.Raw != "3.14" {
		t.Fatalf("got %+v, want NUMBER 3.14", tok)
	}
}

func TestOperatorGreedyLongestMatch(t *testing.T) {
	assertKinds(t, "a += 1", []lexer.Kind{lexer.INDENT, lexer.IDENT, lexer.OpPlusAssign, lexer.NUMBER, lexer.EOF})
	assertKinds(t, "a++", []lexer.Kind{lexer.INDENT, lexer.IDENT, lexer.OpIncrement, lexer.EOF})
	assertKinds(t, "a <= b", []lexer.Kind{lexer.INDENT, lexer.IDENT, lexer.OpLe, lexer.IDENT, lexer.EOF})
}

func TestStringEscapes(t *testing.T) {
	lx := lexer.New(`"a\nb"`)
	lx.NextToken() // indent
	tok := lx.NextToken()
	if tok.Kind != lexer.STRING || tok.Value != "a\nb" {
		t.Fatalf("got %+v, want STRING a\\nb", tok)
	}
}

func TestUnterminatedStringIsAnError(t *testing.T) {
	lx := lexer.New(`"abc`)
	lx.NextToken() // indent
	lx.NextToken() // string
	if len(lx.Errors) != 1 || lx.Errors[0].Kind != lexer.ErrUnterminatedString {
		t.Fatalf("expected one unterminated-string error, got %v", lx.Errors)
	}
}

func TestTabIndentIsRejected(t *testing.T) {
	lx := lexer.New("\tvar x = 1")
	lx.NextToken()
	if len(lx.Errors) != 1 || lx.Errors[0].Kind != lexer.ErrTabIndent {
		t.Fatalf("expected one tab-indent error, got %v", lx.Errors)
	}
}

func TestArrayPatternPipePunctuation(t *testing.T) {
	assertKinds(t, "[head|tail]", []lexer.Kind{
		lexer.INDENT, lexer.LBracket, lexer.IDENT, lexer.Pipe, lexer.IDENT, lexer.RBracket, lexer.EOF,
	})
}
