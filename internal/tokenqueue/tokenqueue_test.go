package tokenqueue_test

import (
	"testing"

	"github.com/nomad-lang/nomadc/internal/lexer"
	"github.com/nomad-lang/nomadc/internal/tokenqueue"
)

func TestExpectIndentThenContent(t *testing.T) {
	q := tokenqueue.New(lexer.New("var x = 7"))
	width, ok := q.NextIndent()
	if !ok || width != 0 {
		t.Fatalf("NextIndent() = %d, %v, want 0, true", width, ok)
	}
	if _, err := q.ExpectIndent(); err != nil {
		t.Fatalf("ExpectIndent: %v", err)
	}
	tok, err := q.Expect(lexer.KwVar)
	if err != nil || tok.Kind != lexer.KwVar {
		t.Fatalf("Expect(KwVar) = %+v, %v", tok, err)
	}
	name, err := q.ExpectIdentifier()
	if err != nil || name.Value != "x" {
		t.Fatalf("ExpectIdentifier() = %+v, %v", name, err)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	q := tokenqueue.New(lexer.New("var x"))
	q.ExpectIndent()
	first := q.Peek(0)
	second := q.Peek(0)
	if first.Kind != second.Kind {
		t.Fatalf("Peek is not idempotent: %v != %v", first, second)
	}
	if q.Pop().Kind != lexer.KwVar {
		t.Fatalf("expected var token after peeking")
	}
}

func TestPushFrontRestoresToken(t *testing.T) {
	q := tokenqueue.New(lexer.New("var x"))
	q.ExpectIndent()
	tok := q.Pop()
	q.PushFront(tok)
	if got := q.Pop(); got.Kind != tok.Kind {
		t.Fatalf("PushFront did not restore token: got %v want %v", got, tok)
	}
}

func TestPopNeverConsumesEOF(t *testing.T) {
	q := tokenqueue.New(lexer.New(""))
	first := q.Pop()
	second := q.Pop()
	if first.Kind != lexer.EOF || second.Kind != lexer.EOF {
		t.Fatalf("expected EOF repeatedly, got %v then %v", first, second)
	}
}

func TestNextIndentFalseMidStatement(t *testing.T) {
	q := tokenqueue.New(lexer.New("var x = 7"))
	q.ExpectIndent()
	q.Pop() // var
	q.Pop() // x
	q.Pop() // =
	if _, ok := q.NextIndent(); ok {
		t.Fatalf("expected NextIndent to be false mid-statement")
	}
}
