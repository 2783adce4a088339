// Package parser builds a Nomad module's AST by recursive descent over
// statements and precedence climbing over expressions (spec §4.3). It is
// non-recovering: the first error it hits terminates parsing.
package parser

import (
	"strconv"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
	"github.com/nomad-lang/nomadc/internal/tokenqueue"
)

// Error is a terminal parse error carrying the diagnostic code and span
// needed to report it without further context.
type Error struct {
	Code    diag.Code
	Message string
	Span    lexer.Span
}

func (e *Error) Error() string { return e.Message }

// ToDiagnostic converts a parse error into the shared diagnostic type.
func (e *Error) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:   diag.StageParser,
		Severity: diag.SeverityError,
		Code:    e.Code,
		Message: e.Message,
		Span:    e.Span.ToDiag(),
	}
}

// Parser consumes a token queue and produces an *ast.Module. It carries no
// error-accumulator: the first error returned by any parse* method
// propagates straight back to the caller (spec §4.3.3).
type Parser struct {
	tq   *tokenqueue.Queue
	last lexer.Span // span of the most recently consumed token
}

// New creates a Parser over src.
func New(src string) *Parser {
	return &Parser{tq: tokenqueue.New(lexer.New(src))}
}

func wrapQueueErr(err error) error {
	if qe, ok := err.(*tokenqueue.Error); ok {
		return &Error{Code: diag.CodeParserUnexpectedToken, Message: qe.Message, Span: qe.Span}
	}
	return err
}

func (p *Parser) pop() lexer.Token {
	tok := p.tq.Pop()
	p.last = tok.Span
	return tok
}

func (p *Parser) peek(k int) lexer.Token { return p.tq.Peek(k) }

func (p *Parser) popIf(pred func(lexer.Token) bool) (lexer.Token, bool) {
	tok, ok := p.tq.PopIf(pred)
	if ok {
		p.last = tok.Span
	}
	return tok, ok
}

func (p *Parser) pushFront(tok lexer.Token) { p.tq.PushFront(tok) }

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	tok, err := p.tq.Expect(k)
	if err != nil {
		return tok, wrapQueueErr(err)
	}
	p.last = tok.Span
	return tok, nil
}

func (p *Parser) expectIdentifier() (lexer.Token, error) {
	tok, err := p.tq.ExpectIdentifier()
	if err != nil {
		return tok, wrapQueueErr(err)
	}
	p.last = tok.Span
	return tok, nil
}

func (p *Parser) expectString() (lexer.Token, error) {
	tok, err := p.tq.ExpectString()
	if err != nil {
		return tok, wrapQueueErr(err)
	}
	p.last = tok.Span
	return tok, nil
}

func (p *Parser) expectOperator(allowed ...lexer.Kind) (lexer.Token, error) {
	tok, err := p.tq.ExpectOperator(allowed...)
	if err != nil {
		return tok, wrapQueueErr(err)
	}
	p.last = tok.Span
	return tok, nil
}

func (p *Parser) nextIndent() (int, bool) { return p.tq.NextIndent() }

func (p *Parser) expectIndent() (int, error) {
	w, err := p.tq.ExpectIndent()
	if err != nil {
		return 0, wrapQueueErr(err)
	}
	return w, nil
}

func (p *Parser) isNext(k lexer.Kind) bool { return p.peek(0).Kind == k }

// pos is the end of the most recently consumed token, standing in for the
// original implementation's `tq.pos()` cursor.
func (p *Parser) pos() lexer.Span { return p.last }

func (p *Parser) errorf(code diag.Code, span lexer.Span, msg string) error {
	return &Error{Code: code, Message: msg, Span: span}
}

func (p *Parser) unexpected(tok lexer.Token) error {
	if tok.Kind == lexer.EOF {
		return p.errorf(diag.CodeParserUnexpectedEOF, tok.Span, "unexpected end of file")
	}
	return p.errorf(diag.CodeParserUnexpectedToken, tok.Span, "unexpected token "+tok.String())
}

// ParseModule parses a full compilation unit, named name, and returns its
// AST, or the first error encountered.
func ParseModule(src, name string) (*ast.Module, error) {
	p := New(src)
	return p.parseModule(name)
}

func (p *Parser) parseModule(name string) (*ast.Module, error) {
	start, _ := p.nextIndent()
	_ = start
	var stmts []ast.Statement
	for {
		if p.isNext(lexer.EOF) {
			break
		}
		lvl, ok := p.nextIndent()
		if !ok {
			return nil, p.unexpected(p.peek(0))
		}
		if _, err := p.expectIndent(); err != nil {
			return nil, err
		}
		if p.isNext(lexer.EOF) {
			break
		}
		stmt, err := p.parseTopStatement(lvl)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	span := lexer.Span{}
	if len(stmts) > 0 {
		span = stmts[0].Span().Merge(stmts[len(stmts)-1].Span())
	}
	return ast.NewModule(name, stmts, span), nil
}

// parseType parses a possibly-pointer primitive or nominal type name (spec
// §3.3); array/slice element types are parsed by their bracketed forms
// where they occur (var declarations, arguments).
func (p *Parser) parseType() (ast.Type, error) {
	if _, ok := p.popIf(func(t lexer.Token) bool { return t.Kind == lexer.OpStar }); ok {
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ast.Pointer{Inner: inner}, nil
	}
	if _, ok := p.popIf(func(t lexer.Token) bool { return t.Kind == lexer.LBracket }); ok {
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracket); err != nil {
			return nil, err
		}
		return ast.Slice{Element: elem}, nil
	}
	tok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	return namedType(tok.Value), nil
}

var primitiveNames = map[string]ast.PrimitiveKind{
	"int": ast.Int, "uint": ast.UInt, "float": ast.Float, "bool": ast.Bool,
	"char": ast.Char, "string": ast.StringPrim, "void": ast.Void, "voidptr": ast.VoidPtr,
}

// namedType resolves a bare identifier into a Primitive when it names one
// of the built-in scalar types, otherwise a forward StructType reference
// (the resolver disambiguates struct vs. union by name once every
// declaration has been registered).
func namedType(name string) ast.Type {
	if kind, ok := primitiveNames[name]; ok {
		return ast.Primitive{Kind: kind}
	}
	return ast.StructType{Name: name}
}

// parseOptionalType parses `: Type` if present, else nil (meaning: let the
// resolver infer from the initializer).
func (p *Parser) parseOptionalType() (ast.Type, error) {
	if !p.isNext(lexer.Colon) {
		return nil, nil
	}
	p.pop()
	return p.parseType()
}

func parseNumberLiteral(raw string, span lexer.Span) (ast.Expression, error) {
	isFloat := false
	for _, r := range raw {
		if r == '.' || r == 'e' || r == 'E' {
			isFloat = true
			break
		}
	}
	if isFloat {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &Error{Code: diag.CodeParserInvalidFloat, Message: "invalid floating point literal " + raw, Span: span}
		}
		return ast.NewFloatLiteral(v, span), nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &Error{Code: diag.CodeParserInvalidInteger, Message: "invalid integer literal " + raw, Span: span}
	}
	return ast.NewIntLiteral(v, span), nil
}
