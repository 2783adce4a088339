package parser

import (
	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// Precedence values follow the original implementation's convention: higher
// binds tighter, and a non-binary expression's implicit precedence is 0 so
// the rotation check (spec §4.3.2) always lets the first operator attach.
const (
	precOr = (iota + 1) * 100
	precAnd
	precComparison
	precSum
	precProduct
)

var binaryPrecedence = map[lexer.Kind]int{
	lexer.OpOr:      precOr,
	lexer.OpAnd:     precAnd,
	lexer.OpEq:      precComparison,
	lexer.OpNotEq:   precComparison,
	lexer.OpLt:      precComparison,
	lexer.OpLe:      precComparison,
	lexer.OpGt:      precComparison,
	lexer.OpGe:      precComparison,
	lexer.OpPlus:    precSum,
	lexer.OpMinus:   precSum,
	lexer.OpStar:    precProduct,
	lexer.OpSlash:   precProduct,
	lexer.OpPercent: precProduct,
}

var assignOps = map[lexer.Kind]bool{
	lexer.OpAssign:        true,
	lexer.OpPlusAssign:    true,
	lexer.OpMinusAssign:   true,
	lexer.OpStarAssign:    true,
	lexer.OpSlashAssign:   true,
	lexer.OpPercentAssign: true,
}

// exprPrecedence is the precedence spec's rotation rule compares against:
// 0 for anything that isn't itself a BinaryOp (spec §4.3.2).
func exprPrecedence(e ast.Expression) int {
	if b, ok := e.(*ast.BinaryOp); ok {
		return binaryPrecedence[b.Op]
	}
	return 0
}

func isExprContinuer(k lexer.Kind) bool {
	if _, ok := binaryPrecedence[k]; ok {
		return true
	}
	return assignOps[k] || k == lexer.OpNot || k == lexer.OpIncrement || k == lexer.OpDecrement
}

func (p *Parser) isEndOfExpression() bool {
	return !isExprContinuer(p.peek(0).Kind)
}

// parseExpression parses one expression (spec §4.3.2), applying the
// left-associative rotation invariant when chaining binary operators.
func (p *Parser) parseExpression(indentLevel int) (ast.Expression, error) {
	tok := p.pop()
	lhs, err := p.parsePrimary(indentLevel, tok)
	if err != nil {
		return nil, err
	}

	if p.isEndOfExpression() {
		return lhs, nil
	}

	next := p.peek(0)
	switch {
	case next.Kind == lexer.OpIncrement || next.Kind == lexer.OpDecrement:
		p.pop()
		op := lexer.OpPlusAssign
		if next.Kind == lexer.OpDecrement {
			op = lexer.OpMinusAssign
		}
		one := ast.NewIntLiteral(1, next.Span)
		return ast.NewAssignment(op, lhs, one, lhs.Span().Merge(next.Span)), nil
	case assignOps[next.Kind]:
		p.pop()
		value, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		return ast.NewAssignment(next.Kind, lhs, value, lhs.Span().Merge(value.Span())), nil
	case binaryPrecedence[next.Kind] != 0:
		return p.parseBinaryOpRhs(indentLevel, lhs)
	default:
		return nil, p.unexpected(next)
	}
}

// parseBinaryOpRhs implements the rotation invariant: the right-hand parse
// is re-associated whenever its outermost operator binds no tighter than
// the one just consumed (spec §4.3.2).
func (p *Parser) parseBinaryOpRhs(indentLevel int, lhs ast.Expression) (ast.Expression, error) {
	for {
		if p.isEndOfExpression() {
			return lhs, nil
		}
		prec, ok := binaryPrecedence[p.peek(0).Kind]
		if !ok || prec < exprPrecedence(lhs) {
			return lhs, nil
		}

		opTok := p.pop()
		rhs, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}

		if rbin, ok := rhs.(*ast.BinaryOp); ok && binaryPrecedence[rbin.Op] <= prec {
			inner := ast.NewBinaryOp(opTok.Kind, lhs, rbin.Left, lhs.Span().Merge(rbin.Left.Span()))
			lhs = ast.NewBinaryOp(rbin.Op, inner, rbin.Right, inner.Span().Merge(rbin.Right.Span()))
		} else {
			lhs = ast.NewBinaryOp(opTok.Kind, lhs, rhs, lhs.Span().Merge(rhs.Span()))
		}
	}
}

func (p *Parser) parsePrimary(indentLevel int, tok lexer.Token) (ast.Expression, error) {
	switch tok.Kind {
	case lexer.LParen:
		inner, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return ast.NewParen(inner, tok.Span.Merge(p.pos())), nil

	case lexer.IDENT:
		return p.parseIdentifierExpr(indentLevel, tok)

	case lexer.STRING:
		return ast.NewStringLiteral(tok.Value, tok.Span), nil

	case lexer.NUMBER:
		return parseNumberLiteral(tok.Raw, tok.Span)

	case lexer.KwTrue:
		return ast.NewBoolLiteral(true, tok.Span), nil
	case lexer.KwFalse:
		return ast.NewBoolLiteral(false, tok.Span), nil

	case lexer.LBracket:
		return p.parseArrayExpr(indentLevel, tok)

	case lexer.At:
		return p.parseLambda(indentLevel, tok)

	case lexer.KwLet:
		return p.parseLetExpr(indentLevel, tok)

	case lexer.KwMatch:
		return p.parseMatchExpr(indentLevel, tok)

	case lexer.OpMinus, lexer.OpNot, lexer.OpIncrement, lexer.OpDecrement:
		operand, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(tok.Kind, operand, tok.Span.Merge(operand.Span())), nil

	default:
		if _, isOp := binaryPrecedence[tok.Kind]; isOp || assignOps[tok.Kind] {
			return nil, p.errorf(diag.CodeParserInvalidUnaryOperator, tok.Span, "invalid unary operator "+tok.String())
		}
		return nil, p.unexpected(tok)
	}
}

// parseIdentifierExpr handles the four forms an identifier can start (spec
// §4.3.2): call, object construction, member-access/call chain, or a bare
// name reference, then folds any trailing `.`/`(` chain left-associatively.
func (p *Parser) parseIdentifierExpr(indentLevel int, tok lexer.Token) (ast.Expression, error) {
	var head ast.Expression
	switch {
	case p.isNext(lexer.LParen):
		args, err := p.parseCallArgs(indentLevel)
		if err != nil {
			return nil, err
		}
		head = ast.NewCall(ast.NewNameRef(tok.Value, tok.Span), args, tok.Span.Merge(p.pos()))
	case p.isNext(lexer.LBrace):
		fields, err := p.parseObjectFields(indentLevel)
		if err != nil {
			return nil, err
		}
		head = ast.NewObjectConstruction(tok.Value, fields, tok.Span.Merge(p.pos()))
	default:
		head = ast.NewNameRef(tok.Value, tok.Span)
	}
	return p.parsePostfixChain(indentLevel, head, tok.Span)
}

// parsePostfixChain folds `.name`, `.name(args)` and `(args)` suffixes onto
// head left-associatively (spec's DOMAIN STACK member-access-chain
// addition).
func (p *Parser) parsePostfixChain(indentLevel int, head ast.Expression, start lexer.Span) (ast.Expression, error) {
	for {
		switch {
		case p.isNext(lexer.OpDot):
			p.pop()
			nameTok, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			head = ast.NewMemberAccess(head, nameTok.Value, start.Merge(p.pos()))
		case p.isNext(lexer.LParen):
			args, err := p.parseCallArgs(indentLevel)
			if err != nil {
				return nil, err
			}
			head = ast.NewCall(head, args, start.Merge(p.pos()))
		default:
			return head, nil
		}
	}
}

func (p *Parser) parseCallArgs(indentLevel int) ([]ast.Expression, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.isNext(lexer.RParen) {
		e, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !p.isNext(lexer.Comma) {
			break
		}
		p.pop()
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseObjectFields(indentLevel int) ([]ast.FieldInit, error) {
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var fields []ast.FieldInit
	for !p.isNext(lexer.RBrace) {
		nameTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		value, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.FieldInit{Name: nameTok.Value, Value: value})
		if !p.isNext(lexer.Comma) {
			break
		}
		p.pop()
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseArrayExpr parses `[head|tail]` (array pattern, identified by a
// two-token lookahead of IDENT then `|`), `[e for name in iterable]` (array
// generator), or `[e1, e2, ...]` (array literal).
func (p *Parser) parseArrayExpr(indentLevel int, start lexer.Token) (ast.Expression, error) {
	if p.peek(0).Kind == lexer.IDENT && p.peek(1).Kind == lexer.Pipe {
		headTok := p.pop()
		p.pop() // |
		tailTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracket); err != nil {
			return nil, err
		}
		return ast.NewArrayPattern(headTok.Value, tailTok.Value, start.Span.Merge(p.pos())), nil
	}

	if p.isNext(lexer.RBracket) {
		p.pop()
		return ast.NewArrayLiteral(nil, start.Span.Merge(p.pos())), nil
	}

	first, err := p.parseExpression(indentLevel)
	if err != nil {
		return nil, err
	}

	if p.isNext(lexer.KwFor) {
		p.pop()
		binderTok, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.KwIn); err != nil {
			return nil, err
		}
		iterable, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracket); err != nil {
			return nil, err
		}
		return ast.NewArrayGenerator(binderTok.Value, iterable, first, start.Span.Merge(p.pos())), nil
	}

	elements := []ast.Expression{first}
	for p.isNext(lexer.Comma) {
		p.pop()
		if p.isNext(lexer.RBracket) {
			break
		}
		e, err := p.parseExpression(indentLevel)
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return ast.NewArrayLiteral(elements, start.Span.Merge(p.pos())), nil
}

// parseLambda parses `@(args) => expr`.
func (p *Parser) parseLambda(indentLevel int, start lexer.Token) (ast.Expression, error) {
	params, err := p.parseArgumentList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.OpFatArrow); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(indentLevel)
	if err != nil {
		return nil, err
	}
	return ast.NewLambda(params, body, start.Span.Merge(body.Span())), nil
}

// parseLetExpr parses `let name = value in body`.
func (p *Parser) parseLetExpr(indentLevel int, start lexer.Token) (ast.Expression, error) {
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.OpAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(indentLevel)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwIn); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(indentLevel)
	if err != nil {
		return nil, err
	}
	return ast.NewLetExpr(nameTok.Value, value, body, start.Span.Merge(body.Span())), nil
}

// parseMatchExpr parses the expression form of match, sharing its case
// grammar with the statement form (spec §3.2).
func (p *Parser) parseMatchExpr(indentLevel int, start lexer.Token) (ast.Expression, error) {
	subject, err := p.parseExpression(indentLevel)
	if err != nil {
		return nil, err
	}
	cases, err := p.parseMatchCases(indentLevel)
	if err != nil {
		return nil, err
	}
	return ast.NewMatchExpr(subject, cases, start.Span.Merge(p.pos())), nil
}
