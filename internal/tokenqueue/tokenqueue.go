// Package tokenqueue provides a bounded, rewindable buffer over a lexer's
// token stream. It is the parser's sole lookahead window (spec §9: at most
// two tokens of lookahead, e.g. an indent marker then an `else`).
package tokenqueue

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// Error is a span-carrying parse-time error raised by Expect* on mismatch.
type Error struct {
	Message string
	Span    lexer.Span
}

func (e *Error) Error() string { return e.Message }

// ToDiagnostic converts a queue error into the shared diagnostic type.
func (e *Error) ToDiagnostic(code diag.Code) diag.Diagnostic {
	return diag.Diagnostic{
		Stage:   diag.StageParser,
		Code:    code,
		Message: e.Message,
		Span:    e.Span.ToDiag(),
	}
}

// Queue buffers tokens pulled from a Lexer, including the INDENT markers
// the lexer emits at every non-blank logical line. Ordinary content
// lookahead (Peek/Pop) skips past INDENT markers transparently; callers
// that care about indentation use NextIndent/ExpectIndent, which inspect
// the raw, unskipped stream.
type Queue struct {
	lx  *lexer.Lexer
	buf []lexer.Token
	idx int
}

// New wraps lx in a Queue.
func New(lx *lexer.Lexer) *Queue {
	return &Queue{lx: lx}
}

func (q *Queue) fill(n int) {
	for len(q.buf)-q.idx <= n {
		q.buf = append(q.buf, q.lx.NextToken())
	}
}

// contentIndex returns the raw buffer index of the k-th upcoming non-INDENT
// token (k=0 is the next one).
func (q *Queue) contentIndex(k int) int {
	i := q.idx
	seen := 0
	for {
		q.fill(i - q.idx)
		if q.buf[i].Kind != lexer.INDENT {
			if seen == k {
				return i
			}
			seen++
		}
		if q.buf[i].Kind == lexer.EOF {
			return i
		}
		i++
	}
}

// Peek looks at the k-th upcoming content token without consuming it.
func (q *Queue) Peek(k int) lexer.Token {
	i := q.contentIndex(k)
	return q.buf[i]
}

// Pop consumes and returns the next content token. EOF is never consumed:
// repeated calls at end of input keep returning EOF.
func (q *Queue) Pop() lexer.Token {
	i := q.contentIndex(0)
	tok := q.buf[i]
	if tok.Kind == lexer.EOF {
		q.idx = i
		return tok
	}
	q.idx = i + 1
	return tok
}

// PushFront restores one token to the front of the content stream. Used for
// the parser's single-slot rewind (spec §9: at most two tokens of
// lookahead, i.e. never more than one token needs to be pushed back).
func (q *Queue) PushFront(tok lexer.Token) {
	head := make([]lexer.Token, 0, len(q.buf)-q.idx+1)
	head = append(head, tok)
	head = append(head, q.buf[q.idx:]...)
	q.buf = head
	q.idx = 0
}

// PopIf consumes and returns the next content token if predicate holds for
// it, reporting whether it did.
func (q *Queue) PopIf(predicate func(lexer.Token) bool) (lexer.Token, bool) {
	tok := q.Peek(0)
	if !predicate(tok) {
		return lexer.Token{}, false
	}
	return q.Pop(), true
}

// Expect consumes the next content token, failing unless it has kind k.
func (q *Queue) Expect(k lexer.Kind) (lexer.Token, error) {
	tok := q.Peek(0)
	if tok.Kind != k {
		return lexer.Token{}, q.unexpected(tok, k.String())
	}
	return q.Pop(), nil
}

// ExpectIdentifier consumes an IDENT token.
func (q *Queue) ExpectIdentifier() (lexer.Token, error) {
	return q.Expect(lexer.IDENT)
}

// ExpectString consumes a STRING token.
func (q *Queue) ExpectString() (lexer.Token, error) {
	return q.Expect(lexer.STRING)
}

// ExpectOperator consumes the next token if it is one of the operator kinds
// in allowed; otherwise fails.
func (q *Queue) ExpectOperator(allowed ...lexer.Kind) (lexer.Token, error) {
	tok := q.Peek(0)
	for _, k := range allowed {
		if tok.Kind == k {
			return q.Pop(), nil
		}
	}
	return lexer.Token{}, q.unexpected(tok, "operator")
}

func (q *Queue) unexpected(tok lexer.Token, want string) error {
	if tok.Kind == lexer.EOF {
		return &Error{Message: "unexpected end of file, wanted " + want, Span: tok.Span}
	}
	return &Error{Message: fmt.Sprintf("unexpected token %s, wanted %s", tok, want), Span: tok.Span}
}

// NextIndent reports the indentation width of the upcoming logical line, if
// the queue is currently positioned exactly at a line boundary (i.e. the
// next raw token is an INDENT marker). ok is false mid-statement, where no
// indent marker is pending.
func (q *Queue) NextIndent() (width int, ok bool) {
	q.fill(0)
	tok := q.buf[q.idx]
	if tok.Kind != lexer.INDENT {
		return 0, false
	}
	return parseIndentWidth(tok), true
}

// ExpectIndent consumes the upcoming INDENT marker and returns its width,
// failing if the queue is not positioned at a line boundary.
func (q *Queue) ExpectIndent() (int, error) {
	q.fill(0)
	tok := q.buf[q.idx]
	if tok.Kind != lexer.INDENT {
		return 0, &Error{Message: "expected indentation", Span: tok.Span}
	}
	q.idx++
	return parseIndentWidth(tok), nil
}

func parseIndentWidth(tok lexer.Token) int {
	width := 0
	for _, r := range tok.Value {
		if r < '0' || r > '9' {
			break
		}
		width = width*10 + int(r-'0')
	}
	return width
}
