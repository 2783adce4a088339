// Package ast defines the typed tree of declarations, statements and
// expressions produced by the parser and annotated in place by the
// resolver (spec §3.4).
package ast

import "github.com/nomad-lang/nomadc/internal/lexer"

// Node is implemented by every AST node; every node carries a non-empty
// span (spec §3.4 invariants).
type Node interface {
	Span() lexer.Span
}

// Statement is implemented by every statement-level node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is implemented by every expression-level node. Every
// expression carries a type annotation written exactly once by the
// resolver (spec §3.4 lifecycle).
type Expression interface {
	Node
	exprNode()
	Type() Type
	SetType(Type)
}

// typeSlot is embedded by every Expression implementation to provide the
// Type()/SetType() pair without repeating the field and methods everywhere.
type typeSlot struct{ typ Type }

func (t *typeSlot) Type() Type {
	if t.typ == nil {
		return Unknown{}
	}
	return t.typ
}

func (t *typeSlot) SetType(ty Type) { t.typ = ty }

// Module is the top-level compilation unit: a name and an ordered list of
// top-level statements (spec §3.4).
type Module struct {
	Name  string
	Stmts []Statement
	span  lexer.Span
}

func NewModule(name string, stmts []Statement, span lexer.Span) *Module {
	return &Module{Name: name, Stmts: stmts, span: span}
}

func (m *Module) Span() lexer.Span { return m.span }

// Block is an indented or single-line sequence of statements.
type Block struct {
	Stmts []Statement
	span  lexer.Span
}

func NewBlock(stmts []Statement, span lexer.Span) *Block {
	return &Block{Stmts: stmts, span: span}
}

func (b *Block) Span() lexer.Span { return b.span }

// Argument is one parameter of a FunctionSignature or UnionCase.
type Argument struct {
	Name  string
	Typ   Type
	Const bool
	Mode  PassMode
	span  lexer.Span
}

func NewArgument(name string, typ Type, isConst bool, span lexer.Span) *Argument {
	return &Argument{Name: name, Typ: typ, Const: isConst, Mode: PassModeFor(typ), span: span}
}

func (a *Argument) Span() lexer.Span { return a.span }

// FunctionSignature is a function's name, return type and ordered
// arguments (spec §3.4).
type FunctionSignature struct {
	Name       string
	ReturnType Type
	Args       []*Argument
	span       lexer.Span
}

func NewFunctionSignature(name string, ret Type, args []*Argument, span lexer.Span) *FunctionSignature {
	return &FunctionSignature{Name: name, ReturnType: ret, Args: args, span: span}
}

func (f *FunctionSignature) Span() lexer.Span { return f.span }

// IsMethod reports whether the signature's first argument is named "self",
// the only legal position for it (spec §3.4 invariants).
func (f *FunctionSignature) IsMethod() bool {
	return len(f.Args) > 0 && f.Args[0].Name == "self"
}

// VarDecl is one name/type/initializer triple inside a var/const statement.
type VarDecl struct {
	Name   string
	Typ    Type
	Const  bool
	Public bool
	Init   Expression
	span   lexer.Span
}

func NewVarDecl(name string, typ Type, isConst, public bool, init Expression, span lexer.Span) *VarDecl {
	return &VarDecl{Name: name, Typ: typ, Const: isConst, Public: public, Init: init, span: span}
}

func (v *VarDecl) Span() lexer.Span { return v.span }

// StructDecl is a product type: a name, its fields (as VarDecls with
// initializers) and its methods.
type StructDecl struct {
	Name    string
	Public  bool
	Vars    []*VarDecl
	Methods []*FuncDecl
	span    lexer.Span
}

func NewStructDecl(name string, public bool, vars []*VarDecl, methods []*FuncDecl, span lexer.Span) *StructDecl {
	return &StructDecl{Name: name, Public: public, Vars: vars, Methods: methods, span: span}
}

func (s *StructDecl) Span() lexer.Span { return s.span }

// DeclaredType returns the nominal Struct(name) type for s.
func (s *StructDecl) DeclaredType() Type { return StructType{Name: s.Name} }

// UnionCase is one named, optionally-parameterized variant of a Union.
type UnionCase struct {
	Name string
	Vars []*Argument
	span lexer.Span
}

func NewUnionCase(name string, vars []*Argument, span lexer.Span) *UnionCase {
	return &UnionCase{Name: name, Vars: vars, span: span}
}

func (c *UnionCase) Span() lexer.Span { return c.span }

// UnionDecl is a tagged sum type: a name, ordered cases and methods.
type UnionDecl struct {
	Name    string
	Public  bool
	Cases   []*UnionCase
	Methods []*FuncDecl
	span    lexer.Span
}

func NewUnionDecl(name string, public bool, cases []*UnionCase, methods []*FuncDecl, span lexer.Span) *UnionDecl {
	return &UnionDecl{Name: name, Public: public, Cases: cases, Methods: methods, span: span}
}

func (u *UnionDecl) Span() lexer.Span { return u.span }

// DeclaredType returns the nominal Union(name) type for u.
func (u *UnionDecl) DeclaredType() Type { return UnionType{Name: u.Name} }

// CaseByName finds a case by name, or nil.
func (u *UnionDecl) CaseByName(name string) *UnionCase {
	for _, c := range u.Cases {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MatchCase is one `caseName(bindings...): body` arm of a match.
type MatchCase struct {
	CaseName string
	Bindings []string
	Body     *Block
	span     lexer.Span
}

func NewMatchCase(caseName string, bindings []string, body *Block, span lexer.Span) *MatchCase {
	return &MatchCase{CaseName: caseName, Bindings: bindings, Body: body, span: span}
}

func (c *MatchCase) Span() lexer.Span { return c.span }

// FuncDecl is a free function or a struct/union method (distinguished by
// Sig.IsMethod()).
type FuncDecl struct {
	Sig    *FunctionSignature
	Body   *Block
	Public bool
	Owner  string // enclosing struct/union name, "" for free functions
	span   lexer.Span
}

func NewFuncDecl(sig *FunctionSignature, body *Block, public bool, owner string, span lexer.Span) *FuncDecl {
	return &FuncDecl{Sig: sig, Body: body, Public: public, Owner: owner, span: span}
}

func (f *FuncDecl) Span() lexer.Span { return f.span }

// MangledName is the codegen-level symbol for f: "Owner::name" for methods,
// "name" for free functions (spec §4.6.1).
func (f *FuncDecl) MangledName() string {
	if f.Owner == "" {
		return f.Sig.Name
	}
	return f.Owner + "::" + f.Sig.Name
}
