package ast

import "github.com/nomad-lang/nomadc/internal/lexer"

// ImportStmt is a top-level `import "path"`.
type ImportStmt struct {
	Path string
	span lexer.Span
}

func NewImportStmt(path string, span lexer.Span) *ImportStmt {
	return &ImportStmt{Path: path, span: span}
}

func (s *ImportStmt) Span() lexer.Span { return s.span }
func (s *ImportStmt) stmtNode()        {}

// VarStmt declares one or more variables, each with its own initializer; the
// language's multi-var declaration forms (`var a = 1, b = 2`, or a bare `var`
// followed by one `name = value` per indented line) keep each binding as its
// own VarDecl so the resolver can annotate them independently.
type VarStmt struct {
	Decls []*VarDecl
	span  lexer.Span
}

func NewVarStmt(decls []*VarDecl, span lexer.Span) *VarStmt {
	return &VarStmt{Decls: decls, span: span}
}

func (s *VarStmt) Span() lexer.Span { return s.span }
func (s *VarStmt) stmtNode()        {}

// FuncStmt wraps a free function or method declaration as a statement, so
// function declarations can appear both at module scope and nested inside
// another function body (spec §3.2 nested functions).
type FuncStmt struct {
	Decl *FuncDecl
	span lexer.Span
}

func NewFuncStmt(decl *FuncDecl, span lexer.Span) *FuncStmt {
	return &FuncStmt{Decl: decl, span: span}
}

func (s *FuncStmt) Span() lexer.Span { return s.span }
func (s *FuncStmt) stmtNode()        {}

// ExternalFuncStmt declares a function implemented outside the module (the
// four fixed ARC runtime entry points and any other `extern` signature).
type ExternalFuncStmt struct {
	Sig  *FunctionSignature
	span lexer.Span
}

func NewExternalFuncStmt(sig *FunctionSignature, span lexer.Span) *ExternalFuncStmt {
	return &ExternalFuncStmt{Sig: sig, span: span}
}

func (s *ExternalFuncStmt) Span() lexer.Span { return s.span }
func (s *ExternalFuncStmt) stmtNode()        {}

// StructStmt wraps a StructDecl as a statement.
type StructStmt struct {
	Decl *StructDecl
	span lexer.Span
}

func NewStructStmt(decl *StructDecl, span lexer.Span) *StructStmt {
	return &StructStmt{Decl: decl, span: span}
}

func (s *StructStmt) Span() lexer.Span { return s.span }
func (s *StructStmt) stmtNode()        {}

// UnionStmt wraps a UnionDecl as a statement.
type UnionStmt struct {
	Decl *UnionDecl
	span lexer.Span
}

func NewUnionStmt(decl *UnionDecl, span lexer.Span) *UnionStmt {
	return &UnionStmt{Decl: decl, span: span}
}

func (s *UnionStmt) Span() lexer.Span { return s.span }
func (s *UnionStmt) stmtNode()        {}

// WhileStmt is a `while cond: body` loop.
type WhileStmt struct {
	Cond Expression
	Body *Block
	span lexer.Span
}

func NewWhileStmt(cond Expression, body *Block, span lexer.Span) *WhileStmt {
	return &WhileStmt{Cond: cond, Body: body, span: span}
}

func (s *WhileStmt) Span() lexer.Span { return s.span }
func (s *WhileStmt) stmtNode()        {}

// IfStmt is `if cond: then` with an optional `else` branch, which is itself
// either a Block (final else) or a nested *IfStmt wrapped in a Block of one
// statement (else-if chains), matching how the parser builds the chain.
type IfStmt struct {
	Cond Expression
	Then *Block
	Else *Block
	span lexer.Span
}

func NewIfStmt(cond Expression, then, els *Block, span lexer.Span) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els, span: span}
}

func (s *IfStmt) Span() lexer.Span { return s.span }
func (s *IfStmt) stmtNode()        {}

// ReturnStmt is `return expr` or a bare `return` (Value is nil, function
// must have Void return type, spec §9 Open Question (c)).
type ReturnStmt struct {
	Value Expression
	span  lexer.Span
}

func NewReturnStmt(value Expression, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, span: span}
}

func (s *ReturnStmt) Span() lexer.Span { return s.span }
func (s *ReturnStmt) stmtNode()        {}

// MatchStmt is `match subject: case ...` used as a statement (as opposed to
// MatchExpr, the expression form that yields a value).
type MatchStmt struct {
	Subject Expression
	Cases   []*MatchCase
	span    lexer.Span
}

func NewMatchStmt(subject Expression, cases []*MatchCase, span lexer.Span) *MatchStmt {
	return &MatchStmt{Subject: subject, Cases: cases, span: span}
}

func (s *MatchStmt) Span() lexer.Span { return s.span }
func (s *MatchStmt) stmtNode()        {}

// ExpressionStmt lifts an Expression (most commonly a Call or Assignment)
// to statement position.
type ExpressionStmt struct {
	Expr Expression
	span lexer.Span
}

func NewExpressionStmt(expr Expression, span lexer.Span) *ExpressionStmt {
	return &ExpressionStmt{Expr: expr, span: span}
}

func (s *ExpressionStmt) Span() lexer.Span { return s.span }
func (s *ExpressionStmt) stmtNode()        {}
