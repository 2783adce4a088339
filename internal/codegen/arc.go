package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// isFreshValue reports whether expr evaluates to a heap reference with no
// other owner yet, so a caller storing it into a new owning slot can skip
// the retain a copy of an existing reference would need (spec §4.6.4:
// arc_inc_ref fires when an *existing* owning value is copied, not when a
// fresh one is produced). Constructions are fresh by definition; so is
// whatever a call, a let-expression or a match-expression hands back, since
// each of those already guarantees its result carries exactly one
// unshared reference by the time it reaches its caller.
func isFreshValue(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.ObjectConstruction, *ast.ArrayLiteral, *ast.ArrayGenerator, *ast.ArrayPattern,
		*ast.Call, *ast.LetExpr, *ast.MatchExpr:
		return true
	default:
		return false
	}
}

// exprAliasesName reports whether expr is exactly a reference to one of
// names, the shape that hands a scope-local owned value back out as the
// enclosing expression's result (`let x = ... in x`, `match s: C(v): v`).
// Such a value needs a retain before its scope's locals are released, or
// the release would drop the last reference to the value being returned.
func exprAliasesName(expr ast.Expression, names []string) bool {
	nr, ok := expr.(*ast.NameRef)
	if !ok {
		return false
	}
	for _, n := range names {
		if nr.Name == n {
			return true
		}
	}
	return false
}

// pushScope opens a new lexical scope for ARC bookkeeping: every owned
// local declared until the matching popScope is tracked here rather than
// in the enclosing scope (spec §4.6.4: decrements dominate every exit path
// of every scope, not just the function's).
func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, nil)
}

// popScope closes the innermost scope, returning the owned local names
// declared in it (in declaration order) for the caller to release.
func (g *Generator) popScope() []string {
	n := len(g.scopes)
	top := g.scopes[n-1]
	g.scopes = g.scopes[:n-1]
	return top
}

// trackOwned registers name as an ARC-owned slot in the innermost open
// scope, if t is an owned type. Untracked (non-owned) locals are ordinary
// stack values with nothing for ARC to do at scope exit.
func (g *Generator) trackOwned(name string, t ast.Type) {
	if !isOwned(t) || len(g.scopes) == 0 {
		return
	}
	top := len(g.scopes) - 1
	g.scopes[top] = append(g.scopes[top], name)
}

// emitArcOp retains or releases val (a value of source type t and LLVM type
// llvmType) by unwrapping it down to the i8* arc_alloc returned it and
// calling into the runtime (spec §4.6.4). Struct and union values are
// already pointers; arrays are unwrapped to their owned data pointer first.
func (g *Generator) emitArcOp(op string, t ast.Type, llvmType, val string) error {
	switch tt := t.(type) {
	case ast.StructType, ast.UnionType:
		cast := g.nextReg()
		g.emit(fmt.Sprintf("  %s = bitcast %s %s to i8*", cast, llvmType, val))
		g.emit(fmt.Sprintf("  call void @%s(i8* %s)", op, cast))
	case ast.Array:
		elemLLVM, err := g.mapType(tt.Element)
		if err != nil {
			return err
		}
		data := g.nextReg()
		g.emit(fmt.Sprintf("  %s = extractvalue %s %s, 0", data, llvmType, val))
		cast := g.nextReg()
		g.emit(fmt.Sprintf("  %s = bitcast %s* %s to i8*", cast, elemLLVM, data))
		g.emit(fmt.Sprintf("  call void @%s(i8* %s)", op, cast))
	}
	return nil
}

// releaseScope emits arc_dec_ref for every owned local in names, in reverse
// declaration order, reading each one's current slot value so a release
// following a reassignment drops the value actually stored there.
func (g *Generator) releaseScope(names []string) error {
	for i := len(names) - 1; i >= 0; i-- {
		lv, ok := g.locals[names[i]]
		if !ok {
			continue
		}
		typ, err := g.mapType(lv.typ)
		if err != nil {
			return err
		}
		cur := g.nextReg()
		g.emit(fmt.Sprintf("  %s = load %s, %s* %s", cur, typ, typ, lv.reg))
		if err := g.emitArcOp("arc_dec_ref", lv.typ, typ, cur); err != nil {
			return err
		}
	}
	return nil
}

// releaseAllScopes releases every owned local across every currently open
// scope, innermost first, so a `return` can unwind the whole enclosing
// scope chain at once rather than just its immediate block.
func (g *Generator) releaseAllScopes() error {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if err := g.releaseScope(g.scopes[i]); err != nil {
			return err
		}
	}
	return nil
}
