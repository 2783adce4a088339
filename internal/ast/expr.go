package ast

import "github.com/nomad-lang/nomadc/internal/lexer"

// IntLiteral is an integer constant.
type IntLiteral struct {
	typeSlot
	Value int64
	span  lexer.Span
}

func NewIntLiteral(value int64, span lexer.Span) *IntLiteral {
	return &IntLiteral{Value: value, span: span}
}

func (e *IntLiteral) Span() lexer.Span { return e.span }
func (e *IntLiteral) exprNode()        {}

// FloatLiteral is a floating-point constant.
type FloatLiteral struct {
	typeSlot
	Value float64
	span  lexer.Span
}

func NewFloatLiteral(value float64, span lexer.Span) *FloatLiteral {
	return &FloatLiteral{Value: value, span: span}
}

func (e *FloatLiteral) Span() lexer.Span { return e.span }
func (e *FloatLiteral) exprNode()        {}

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	typeSlot
	Value bool
	span  lexer.Span
}

func NewBoolLiteral(value bool, span lexer.Span) *BoolLiteral {
	return &BoolLiteral{Value: value, span: span}
}

func (e *BoolLiteral) Span() lexer.Span { return e.span }
func (e *BoolLiteral) exprNode()        {}

// StringLiteral is a double-quoted string constant, escapes already
// resolved by the lexer.
type StringLiteral struct {
	typeSlot
	Value string
	span  lexer.Span
}

func NewStringLiteral(value string, span lexer.Span) *StringLiteral {
	return &StringLiteral{Value: value, span: span}
}

func (e *StringLiteral) Span() lexer.Span { return e.span }
func (e *StringLiteral) exprNode()        {}

// ArrayLiteral is `[e1, e2, ...]`, owned (heap-allocated, ARC-managed) by
// default (spec §9 Open Question (a)).
type ArrayLiteral struct {
	typeSlot
	Elements []Expression
	span     lexer.Span
}

func NewArrayLiteral(elements []Expression, span lexer.Span) *ArrayLiteral {
	return &ArrayLiteral{Elements: elements, span: span}
}

func (e *ArrayLiteral) Span() lexer.Span { return e.span }
func (e *ArrayLiteral) exprNode()        {}

// ArrayGenerator is `[expr for name in iterable]`.
type ArrayGenerator struct {
	typeSlot
	Binder   string
	Iterable Expression
	Body     Expression
	span     lexer.Span
}

func NewArrayGenerator(binder string, iterable, body Expression, span lexer.Span) *ArrayGenerator {
	return &ArrayGenerator{Binder: binder, Iterable: iterable, Body: body, span: span}
}

func (e *ArrayGenerator) Span() lexer.Span { return e.span }
func (e *ArrayGenerator) exprNode()        {}

// ArrayPattern is the `[head|tail]` destructuring form, legal only as the
// left-hand side of a let-binding or match-style decomposition.
type ArrayPattern struct {
	typeSlot
	Head string
	Tail string
	span lexer.Span
}

func NewArrayPattern(head, tail string, span lexer.Span) *ArrayPattern {
	return &ArrayPattern{Head: head, Tail: tail, span: span}
}

func (e *ArrayPattern) Span() lexer.Span { return e.span }
func (e *ArrayPattern) exprNode()        {}

// UnaryOp is a prefix operator applied to one operand (`-`, `!`, `++`, `--`).
type UnaryOp struct {
	typeSlot
	Op      lexer.Kind
	Operand Expression
	span    lexer.Span
}

func NewUnaryOp(op lexer.Kind, operand Expression, span lexer.Span) *UnaryOp {
	return &UnaryOp{Op: op, Operand: operand, span: span}
}

func (e *UnaryOp) Span() lexer.Span { return e.span }
func (e *UnaryOp) exprNode()        {}

// BinaryOp is an infix operator application, built by precedence climbing
// (spec §4.3).
type BinaryOp struct {
	typeSlot
	Op    lexer.Kind
	Left  Expression
	Right Expression
	span  lexer.Span
}

func NewBinaryOp(op lexer.Kind, left, right Expression, span lexer.Span) *BinaryOp {
	return &BinaryOp{Op: op, Left: left, Right: right, span: span}
}

func (e *BinaryOp) Span() lexer.Span { return e.span }
func (e *BinaryOp) exprNode()        {}

// Paren is a parenthesized subexpression, kept as its own node so the
// formatter and codegen need not guess precedence back out of a flattened
// tree.
type Paren struct {
	typeSlot
	Inner Expression
	span  lexer.Span
}

func NewParen(inner Expression, span lexer.Span) *Paren {
	return &Paren{Inner: inner, span: span}
}

func (e *Paren) Span() lexer.Span { return e.span }
func (e *Paren) exprNode()        {}

// Call is `callee(args...)`, where callee is most commonly a NameRef or a
// MemberAccess (method call).
type Call struct {
	typeSlot
	Callee Expression
	Args   []Expression
	span   lexer.Span
}

func NewCall(callee Expression, args []Expression, span lexer.Span) *Call {
	return &Call{Callee: callee, Args: args, span: span}
}

func (e *Call) Span() lexer.Span { return e.span }
func (e *Call) exprNode()        {}

// NameRef is a bare identifier reference, resolved by the resolver to a
// local, parameter, or free function/global.
type NameRef struct {
	typeSlot
	Name string
	span lexer.Span
}

func NewNameRef(name string, span lexer.Span) *NameRef {
	return &NameRef{Name: name, span: span}
}

func (e *NameRef) Span() lexer.Span { return e.span }
func (e *NameRef) exprNode()        {}

// FieldInit is one `name: value` pair inside an ObjectConstruction.
type FieldInit struct {
	Name  string
	Value Expression
}

// ObjectConstruction is `TypeName{field: value, ...}`, building a struct
// value field-by-field.
type ObjectConstruction struct {
	typeSlot
	TypeName string
	Fields   []FieldInit
	span     lexer.Span
}

func NewObjectConstruction(typeName string, fields []FieldInit, span lexer.Span) *ObjectConstruction {
	return &ObjectConstruction{TypeName: typeName, Fields: fields, span: span}
}

func (e *ObjectConstruction) Span() lexer.Span { return e.span }
func (e *ObjectConstruction) exprNode()        {}

// MemberAccess is `receiver.name`, chained left-associatively by the parser
// to express field access and method lookup (spec §4.3 member chains).
type MemberAccess struct {
	typeSlot
	Receiver Expression
	Name     string
	span     lexer.Span
}

func NewMemberAccess(receiver Expression, name string, span lexer.Span) *MemberAccess {
	return &MemberAccess{Receiver: receiver, Name: name, span: span}
}

func (e *MemberAccess) Span() lexer.Span { return e.span }
func (e *MemberAccess) exprNode()        {}

// NestedFunction is a function declared inside another function's body and
// referenced as an expression (e.g. assigned to a variable or returned).
type NestedFunction struct {
	typeSlot
	Decl *FuncDecl
	span lexer.Span
}

func NewNestedFunction(decl *FuncDecl, span lexer.Span) *NestedFunction {
	return &NestedFunction{Decl: decl, span: span}
}

func (e *NestedFunction) Span() lexer.Span { return e.span }
func (e *NestedFunction) exprNode()        {}

// MatchExpr is the expression form of match: every case's body must yield a
// value of the same type (spec §3.2).
type MatchExpr struct {
	typeSlot
	Subject Expression
	Cases   []*MatchCase
	span    lexer.Span
}

func NewMatchExpr(subject Expression, cases []*MatchCase, span lexer.Span) *MatchExpr {
	return &MatchExpr{Subject: subject, Cases: cases, span: span}
}

func (e *MatchExpr) Span() lexer.Span { return e.span }
func (e *MatchExpr) exprNode()        {}

// Lambda is an anonymous function literal closing over its enclosing scope.
type Lambda struct {
	typeSlot
	Params []*Argument
	Body   Expression
	span   lexer.Span
}

func NewLambda(params []*Argument, body Expression, span lexer.Span) *Lambda {
	return &Lambda{Params: params, Body: body, span: span}
}

func (e *Lambda) Span() lexer.Span { return e.span }
func (e *Lambda) exprNode()        {}

// LetExpr is `let name = value in body`, a binding expression distinct from
// the statement-level var declaration.
type LetExpr struct {
	typeSlot
	Name  string
	Value Expression
	Body  Expression
	span  lexer.Span
}

func NewLetExpr(name string, value, body Expression, span lexer.Span) *LetExpr {
	return &LetExpr{Name: name, Value: value, Body: body, span: span}
}

func (e *LetExpr) Span() lexer.Span { return e.span }
func (e *LetExpr) exprNode()        {}

// ArrayToSliceConversion wraps an owned Array expression with an explicit
// conversion to Slice; inserted by the resolver, never by the parser (spec
// §9 Open Question (a)).
type ArrayToSliceConversion struct {
	typeSlot
	Inner Expression
	span  lexer.Span
}

func NewArrayToSliceConversion(inner Expression, span lexer.Span) *ArrayToSliceConversion {
	return &ArrayToSliceConversion{Inner: inner, span: span}
}

func (e *ArrayToSliceConversion) Span() lexer.Span { return e.span }
func (e *ArrayToSliceConversion) exprNode()        {}

// Assignment is `target = value` or a compound form (`+=`, etc.), used as an
// expression so it can appear as the sole content of an ExpressionStmt.
type Assignment struct {
	typeSlot
	Op     lexer.Kind
	Target Expression
	Value  Expression
	span   lexer.Span
}

func NewAssignment(op lexer.Kind, target, value Expression, span lexer.Span) *Assignment {
	return &Assignment{Op: op, Target: target, Value: value, span: span}
}

func (e *Assignment) Span() lexer.Span { return e.span }
func (e *Assignment) exprNode()        {}
