package resolver

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// resolveExpr type-annotates expr in place (spec §3.4: every expression
// carries a type written exactly once) and returns the node to use in its
// parent's place — usually expr itself, occasionally a wrapper the resolver
// inserts (ArrayToSliceConversion).
func (r *Resolver) resolveExpr(expr ast.Expression) (ast.Expression, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		e.SetType(ast.Primitive{Kind: ast.Int})
		return e, nil

	case *ast.FloatLiteral:
		e.SetType(ast.Primitive{Kind: ast.Float})
		return e, nil

	case *ast.BoolLiteral:
		e.SetType(ast.Primitive{Kind: ast.Bool})
		return e, nil

	case *ast.StringLiteral:
		e.SetType(ast.Primitive{Kind: ast.StringPrim})
		return e, nil

	case *ast.ArrayLiteral:
		return r.resolveArrayLiteral(e)

	case *ast.ArrayGenerator:
		return r.resolveArrayGenerator(e)

	case *ast.ArrayPattern:
		return r.resolveArrayPattern(e)

	case *ast.UnaryOp:
		return r.resolveUnaryOp(e)

	case *ast.BinaryOp:
		return r.resolveBinaryOp(e)

	case *ast.Paren:
		inner, err := r.resolveExpr(e.Inner)
		if err != nil {
			return nil, err
		}
		e.Inner = inner
		e.SetType(inner.Type())
		return e, nil

	case *ast.Call:
		return r.resolveCall(e)

	case *ast.NameRef:
		return r.resolveNameRef(e)

	case *ast.ObjectConstruction:
		return r.resolveObjectConstruction(e)

	case *ast.MemberAccess:
		return r.resolveMemberAccess(e)

	case *ast.NestedFunction:
		return r.resolveNestedFunctionExpr(e)

	case *ast.MatchExpr:
		return r.resolveMatchExprNode(e)

	case *ast.Lambda:
		return r.resolveLambda(e)

	case *ast.LetExpr:
		return r.resolveLetExpr(e)

	case *ast.Assignment:
		return r.resolveAssignment(e)

	case *ast.ArrayToSliceConversion:
		// Only ever produced by the resolver itself; re-resolving is a no-op.
		return e, nil

	default:
		return nil, fmt.Errorf("resolver: unsupported expression %T", expr)
	}
}

func (r *Resolver) resolveArrayLiteral(e *ast.ArrayLiteral) (ast.Expression, error) {
	if len(e.Elements) == 0 {
		e.SetType(ast.Array{Element: ast.Unknown{}, Length: 0})
		return e, nil
	}
	first, err := r.resolveExpr(e.Elements[0])
	if err != nil {
		return nil, err
	}
	e.Elements[0] = first
	elemType := first.Type()
	for i := 1; i < len(e.Elements); i++ {
		el, err := r.resolveExpr(e.Elements[i])
		if err != nil {
			return nil, err
		}
		el, err = r.coerce(el, elemType)
		if err != nil {
			return nil, err
		}
		e.Elements[i] = el
	}
	e.SetType(ast.Array{Element: elemType, Length: len(e.Elements)})
	return e, nil
}

func (r *Resolver) resolveArrayGenerator(e *ast.ArrayGenerator) (ast.Expression, error) {
	iter, err := r.resolveExpr(e.Iterable)
	if err != nil {
		return nil, err
	}
	e.Iterable = iter

	var elemType ast.Type
	switch it := iter.Type().(type) {
	case ast.Array:
		elemType = it.Element
	case ast.Slice:
		elemType = it.Element
	default:
		return nil, &Error{Code: diag.CodeTypeError, Message: "for-generator source must be an array or slice", Span: e.Iterable.Span()}
	}

	r.pushScope()
	defer r.popScope()
	if err := r.declare(e.Binder, elemType, true, e.Span()); err != nil {
		return nil, err
	}
	body, err := r.resolveExpr(e.Body)
	if err != nil {
		return nil, err
	}
	e.Body = body
	e.SetType(ast.Array{Element: body.Type(), Length: -1})
	return e, nil
}

// resolveArrayPattern treats `[head|tail]` in expression position as a cons
// constructor: Head and Tail must already name bindings in scope, Head's
// type must equal Tail's element type, and the result is a new owned array
// with Head prepended onto Tail (an Open Question resolution: the parser
// produces this shape only in expression position, never as an
// irrefutable destructuring pattern, so "construct" is the only sense that
// type-checks).
func (r *Resolver) resolveArrayPattern(e *ast.ArrayPattern) (ast.Expression, error) {
	headEntry, ok := r.lookup(e.Head)
	if !ok {
		return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown name " + e.Head, Span: e.Span()}
	}
	tailEntry, ok := r.lookup(e.Tail)
	if !ok {
		return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown name " + e.Tail, Span: e.Span()}
	}

	var tailElem ast.Type
	switch t := tailEntry.Typ.(type) {
	case ast.Array:
		tailElem = t.Element
	case ast.Slice:
		tailElem = t.Element
	default:
		return nil, &Error{Code: diag.CodeTypeError, Message: e.Tail + " is not an array or slice", Span: e.Span()}
	}
	if !ast.Equal(headEntry.Typ, tailElem) {
		return nil, &Error{Code: diag.CodeTypeError, Message: "head type does not match tail element type", Span: e.Span()}
	}
	e.SetType(ast.Array{Element: headEntry.Typ, Length: -1})
	return e, nil
}

func (r *Resolver) resolveUnaryOp(e *ast.UnaryOp) (ast.Expression, error) {
	operand, err := r.resolveExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	e.Operand = operand
	switch e.Op {
	case lexer.OpMinus:
		if !ast.IsNumeric(operand.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "unary - requires a numeric operand", Span: e.Span()}
		}
		e.SetType(operand.Type())
	case lexer.OpNot:
		if !ast.IsBool(operand.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "unary ! requires a bool operand", Span: e.Span()}
		}
		e.SetType(ast.Primitive{Kind: ast.Bool})
	case lexer.OpIncrement, lexer.OpDecrement:
		if !ast.IsNumeric(operand.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "++/-- requires a numeric operand", Span: e.Span()}
		}
		e.SetType(operand.Type())
	default:
		return nil, &Error{Code: diag.CodeTypeError, Message: "invalid unary operator " + e.Op.String(), Span: e.Span()}
	}
	return e, nil
}

func (r *Resolver) resolveBinaryOp(e *ast.BinaryOp) (ast.Expression, error) {
	left, err := r.resolveExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := r.resolveExpr(e.Right)
	if err != nil {
		return nil, err
	}
	e.Left, e.Right = left, right

	switch e.Op {
	case lexer.OpPlus:
		if isStringType(left.Type()) && isStringType(right.Type()) {
			e.SetType(ast.Primitive{Kind: ast.StringPrim})
			return e, nil
		}
		fallthrough
	case lexer.OpMinus, lexer.OpStar, lexer.OpSlash, lexer.OpPercent:
		if !ast.IsNumeric(left.Type()) || !ast.Equal(left.Type(), right.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "arithmetic operands must share a numeric type", Span: e.Span()}
		}
		e.SetType(left.Type())

	case lexer.OpEq, lexer.OpNotEq:
		if !ast.Equal(left.Type(), right.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "== and != require operands of the same type", Span: e.Span()}
		}
		e.SetType(ast.Primitive{Kind: ast.Bool})

	case lexer.OpLt, lexer.OpLe, lexer.OpGt, lexer.OpGe:
		if !ast.IsNumeric(left.Type()) || !ast.Equal(left.Type(), right.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "comparison operands must share a numeric type", Span: e.Span()}
		}
		e.SetType(ast.Primitive{Kind: ast.Bool})

	case lexer.OpAnd, lexer.OpOr:
		if !ast.IsBool(left.Type()) || !ast.IsBool(right.Type()) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "&& and || require bool operands", Span: e.Span()}
		}
		e.SetType(ast.Primitive{Kind: ast.Bool})

	default:
		return nil, &Error{Code: diag.CodeTypeError, Message: "invalid binary operator " + e.Op.String(), Span: e.Span()}
	}
	return e, nil
}

func isStringType(t ast.Type) bool {
	p, ok := t.(ast.Primitive)
	return ok && p.Kind == ast.StringPrim
}

func (r *Resolver) resolveNameRef(e *ast.NameRef) (ast.Expression, error) {
	if entry, ok := r.lookup(e.Name); ok {
		e.SetType(entry.Typ)
		return e, nil
	}
	if sig, ok := r.funcs[e.Name]; ok {
		e.SetType(ast.FuncType{Return: sig.ReturnType, Args: typesOf(sig.Args)})
		return e, nil
	}
	return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown name " + e.Name, Span: e.Span()}
}

// resolveMemberAccess handles both struct field access and unbound method
// references (`v.field`, `v.method`); the latter's type is the method's
// signature with the receiving `self` argument stripped, ready for
// resolveCall to match against call-site arguments.
func (r *Resolver) resolveMemberAccess(e *ast.MemberAccess) (ast.Expression, error) {
	recv, err := r.resolveExpr(e.Receiver)
	if err != nil {
		return nil, err
	}
	e.Receiver = recv

	name, _, ok := structOrUnionName(recv.Type())
	if !ok {
		return nil, &Error{Code: diag.CodeTypeError, Message: "member access requires a struct or union receiver", Span: e.Span()}
	}

	if ft, err := r.fieldType(name, e.Name, e.Span()); err == nil {
		e.SetType(ft)
		return e, nil
	}

	if sig, ok := r.funcs[name+"::"+e.Name]; ok {
		args := sig.Args
		if sig.IsMethod() {
			args = args[1:]
		}
		e.SetType(ast.FuncType{Return: sig.ReturnType, Args: typesOf(args)})
		return e, nil
	}

	return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown member " + e.Name + " on " + name, Span: e.Span()}
}

// resolveCall type-checks a call expression, routing method calls (callee is
// a MemberAccess on a struct/union receiver) through the mangled function
// table and plain calls through either a free-function NameRef or a
// first-class function value (Lambda, NestedFunction, parameter of FuncType).
func (r *Resolver) resolveCall(e *ast.Call) (ast.Expression, error) {
	if ma, ok := e.Callee.(*ast.MemberAccess); ok {
		recv, err := r.resolveExpr(ma.Receiver)
		if err != nil {
			return nil, err
		}
		ma.Receiver = recv
		if ownerName, _, ok := structOrUnionName(recv.Type()); ok {
			if sig, ok := r.funcs[ownerName+"::"+ma.Name]; ok {
				return r.finishCall(e, sig, sig.IsMethod())
			}
		}
	}

	callee, err := r.resolveExpr(e.Callee)
	if err != nil {
		return nil, err
	}
	e.Callee = callee

	ft, ok := callee.Type().(ast.FuncType)
	if !ok {
		return nil, &Error{Code: diag.CodeTypeError, Message: "callee is not a function", Span: e.Span()}
	}
	if len(ft.Args) != len(e.Args) {
		return nil, &Error{Code: diag.CodeTypeError, Message: "wrong number of call arguments", Span: e.Span()}
	}
	for i, arg := range e.Args {
		ra, err := r.resolveExpr(arg)
		if err != nil {
			return nil, err
		}
		ra, err = r.coerce(ra, ft.Args[i])
		if err != nil {
			return nil, err
		}
		e.Args[i] = ra
	}
	e.SetType(ft.Return)
	return e, nil
}

// finishCall resolves e's arguments against sig, skipping the implicit self
// argument when skipSelf is set, then sets e's type to sig's return type.
func (r *Resolver) finishCall(e *ast.Call, sig *ast.FunctionSignature, skipSelf bool) (ast.Expression, error) {
	wantArgs := sig.Args
	if skipSelf {
		wantArgs = wantArgs[1:]
	}
	if len(wantArgs) != len(e.Args) {
		return nil, &Error{Code: diag.CodeTypeError, Message: "wrong number of call arguments to " + sig.Name, Span: e.Span()}
	}
	for i, arg := range e.Args {
		ra, err := r.resolveExpr(arg)
		if err != nil {
			return nil, err
		}
		ra, err = r.coerce(ra, wantArgs[i].Typ)
		if err != nil {
			return nil, err
		}
		e.Args[i] = ra
	}
	e.SetType(sig.ReturnType)
	return e, nil
}

// resolveObjectConstruction matches TypeName{field: value, ...} against
// either a struct's declared fields or a union case's declared variables
// (spec §3.2: case constructors are referenced by case name alone).
func (r *Resolver) resolveObjectConstruction(e *ast.ObjectConstruction) (ast.Expression, error) {
	if sd, ok := r.structs[e.TypeName]; ok {
		for i, f := range e.Fields {
			want, err := r.fieldType(sd.Name, f.Name, e.Span())
			if err != nil {
				return nil, err
			}
			v, err := r.resolveExpr(f.Value)
			if err != nil {
				return nil, err
			}
			v, err = r.coerce(v, want)
			if err != nil {
				return nil, err
			}
			e.Fields[i].Value = v
		}
		e.SetType(ast.StructType{Name: sd.Name})
		return e, nil
	}

	if ud, c := r.findUnionCase(e.TypeName); c != nil {
		fieldsByName := make(map[string]*ast.Argument, len(c.Vars))
		for _, v := range c.Vars {
			fieldsByName[v.Name] = v
		}
		for i, f := range e.Fields {
			arg, ok := fieldsByName[f.Name]
			if !ok {
				return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown field " + f.Name + " on case " + e.TypeName, Span: e.Span()}
			}
			v, err := r.resolveExpr(f.Value)
			if err != nil {
				return nil, err
			}
			v, err = r.coerce(v, arg.Typ)
			if err != nil {
				return nil, err
			}
			e.Fields[i].Value = v
		}
		e.SetType(ast.UnionType{Name: ud.Name})
		return e, nil
	}

	return nil, &Error{Code: diag.CodeUnknownType, Message: "unknown struct or union case " + e.TypeName, Span: e.Span()}
}

func (r *Resolver) resolveNestedFunctionExpr(e *ast.NestedFunction) (ast.Expression, error) {
	ft, err := r.funcTypeOf(e.Decl.Sig)
	if err != nil {
		return nil, err
	}
	if err := r.registerFuncSignature("", e.Decl.Sig); err != nil {
		return nil, err
	}
	if err := r.resolveFuncDecl(e.Decl); err != nil {
		return nil, err
	}
	e.SetType(ft)
	return e, nil
}

// resolveMatch is shared by the statement and expression forms of match: it
// resolves the subject once, then resolves every case body in a scope
// seeded with that case's bindings bound to the matched case's field types.
// When wantValue is set, every case body must yield the same type, which
// becomes the match's own type (resolveMatchCommon returns it; resolveMatch
// discards it and reports only the error).
func (r *Resolver) resolveMatch(subject ast.Expression, cases []*ast.MatchCase, setSubject func(ast.Expression), wantValue bool) error {
	_, err := r.resolveMatchCommon(subject, cases, setSubject, wantValue)
	return err
}

func (r *Resolver) resolveMatchCommon(subject ast.Expression, cases []*ast.MatchCase, setSubject func(ast.Expression), wantValue bool) (ast.Type, error) {
	sub, err := r.resolveExpr(subject)
	if err != nil {
		return nil, err
	}
	setSubject(sub)

	unionName, isUnion, ok := structOrUnionName(sub.Type())
	if !ok || !isUnion {
		return nil, &Error{Code: diag.CodeTypeError, Message: "match subject must be a union value", Span: subject.Span()}
	}
	ud, ok := r.unions[unionName]
	if !ok {
		return nil, &Error{Code: diag.CodeUnknownType, Message: "unknown union " + unionName, Span: subject.Span()}
	}

	var resultType ast.Type
	for _, c := range cases {
		uc := ud.CaseByName(c.CaseName)
		if uc == nil {
			return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown case " + c.CaseName + " on " + unionName, Span: c.Span()}
		}
		if len(c.Bindings) != len(uc.Vars) {
			return nil, &Error{Code: diag.CodeTypeError, Message: "case " + c.CaseName + " binds the wrong number of names", Span: c.Span()}
		}
		r.pushScope()
		for i, bindName := range c.Bindings {
			if bindName == "_" {
				continue
			}
			if err := r.declare(bindName, uc.Vars[i].Typ, true, c.Span()); err != nil {
				r.popScope()
				return nil, err
			}
		}
		err := r.resolveBlockStmts(c.Body)
		r.popScope()
		if err != nil {
			return nil, err
		}
		if wantValue {
			bodyType := lastExprType(c.Body)
			if resultType == nil {
				resultType = bodyType
			} else if !ast.Equal(resultType, bodyType) {
				return nil, &Error{Code: diag.CodeTypeError, Message: "match case bodies must yield the same type", Span: c.Span()}
			}
		}
	}
	return resultType, nil
}

// lastExprType extracts the value type of a match-expression case body,
// which the parser always ends with a single ExpressionStmt.
func lastExprType(b *ast.Block) ast.Type {
	if len(b.Stmts) == 0 {
		return ast.Primitive{Kind: ast.Void}
	}
	if es, ok := b.Stmts[len(b.Stmts)-1].(*ast.ExpressionStmt); ok {
		return es.Expr.Type()
	}
	return ast.Primitive{Kind: ast.Void}
}

func (r *Resolver) resolveMatchExprNode(e *ast.MatchExpr) (ast.Expression, error) {
	resultType, err := r.resolveMatchCommon(e.Subject, e.Cases, func(s ast.Expression) { e.Subject = s }, true)
	if err != nil {
		return nil, err
	}
	if resultType == nil {
		return nil, &Error{Code: diag.CodeTypeError, Message: "match expression has no cases", Span: e.Span()}
	}
	e.SetType(resultType)
	return e, nil
}

func (r *Resolver) resolveLambda(e *ast.Lambda) (ast.Expression, error) {
	r.pushScope()
	defer r.popScope()

	argTypes := make([]ast.Type, len(e.Params))
	for i, p := range e.Params {
		pt, err := r.resolveTypeRef(p.Typ, p.Span())
		if err != nil {
			return nil, err
		}
		p.Typ = pt
		argTypes[i] = pt
		if err := r.declare(p.Name, pt, p.Const, p.Span()); err != nil {
			return nil, err
		}
	}

	body, err := r.resolveExpr(e.Body)
	if err != nil {
		return nil, err
	}
	e.Body = body
	e.SetType(ast.FuncType{Return: body.Type(), Args: argTypes})
	return e, nil
}

func (r *Resolver) resolveLetExpr(e *ast.LetExpr) (ast.Expression, error) {
	value, err := r.resolveExpr(e.Value)
	if err != nil {
		return nil, err
	}
	e.Value = value

	r.pushScope()
	defer r.popScope()
	if err := r.declare(e.Name, value.Type(), false, e.Span()); err != nil {
		return nil, err
	}
	body, err := r.resolveExpr(e.Body)
	if err != nil {
		return nil, err
	}
	e.Body = body
	e.SetType(body.Type())
	return e, nil
}

func (r *Resolver) resolveAssignment(e *ast.Assignment) (ast.Expression, error) {
	target, err := r.resolveExpr(e.Target)
	if err != nil {
		return nil, err
	}
	e.Target = target

	if nr, ok := e.Target.(*ast.NameRef); ok {
		if entry, found := r.lookup(nr.Name); found && entry.Const {
			return nil, &Error{Code: diag.CodeTypeError, Message: "cannot assign to const " + nr.Name, Span: e.Span()}
		}
	}

	value, err := r.resolveExpr(e.Value)
	if err != nil {
		return nil, err
	}
	value, err = r.coerce(value, target.Type())
	if err != nil {
		return nil, err
	}
	e.Value = value

	if e.Op != lexer.OpAssign && !ast.IsNumeric(target.Type()) {
		return nil, &Error{Code: diag.CodeTypeError, Message: "compound assignment requires a numeric target", Span: e.Span()}
	}

	e.SetType(target.Type())
	return e, nil
}

// coerce adapts expr to want when they already match, or when want is a
// Slice over expr's Array element type (spec §9 Open Question (a): array
// literals are owned by default, conversion to Slice is always explicit —
// the resolver inserts that explicit conversion at every use site that
// demands a Slice, so callers never have to write it out by hand).
func (r *Resolver) coerce(expr ast.Expression, want ast.Type) (ast.Expression, error) {
	if want == nil || ast.IsUnknown(want) {
		return expr, nil
	}
	if ast.Equal(expr.Type(), want) {
		return expr, nil
	}
	if arr, ok := expr.Type().(ast.Array); ok {
		if sl, ok := want.(ast.Slice); ok && ast.Equal(arr.Element, sl.Element) {
			conv := ast.NewArrayToSliceConversion(expr, expr.Span())
			conv.SetType(sl)
			return conv, nil
		}
	}
	return nil, &Error{Code: diag.CodeTypeError, Message: fmt.Sprintf("cannot use %s as %s", expr.Type(), want), Span: expr.Span()}
}
