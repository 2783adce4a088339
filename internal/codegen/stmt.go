package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

func (g *Generator) genBlock(b *ast.Block) error {
	for _, stmt := range b.Stmts {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.VarStmt:
		for _, d := range s.Decls {
			if err := g.genLocalVarDecl(d); err != nil {
				return err
			}
		}
		return nil

	case *ast.FuncStmt:
		// Nested functions are lowered as ordinary top-level functions under
		// their mangled name; the resolver has already bound the enclosing
		// name to a FuncType so call sites resolve to @<name>.
		if err := g.genFunctionSig(s.Decl); err != nil {
			return err
		}
		return g.genFunction(s.Decl)

	case *ast.WhileStmt:
		return g.genWhile(s)

	case *ast.IfStmt:
		return g.genIf(s)

	case *ast.ReturnStmt:
		return g.genReturn(s)

	case *ast.MatchStmt:
		_, err := g.genMatch(s.Subject, s.Cases, nil)
		return err

	case *ast.ExpressionStmt:
		_, _, err := g.genExpr(s.Expr)
		return err

	case *ast.ExternalFuncStmt, *ast.StructStmt, *ast.UnionStmt, *ast.ImportStmt:
		return nil

	default:
		return fmt.Errorf("codegen: unsupported statement %T", stmt)
	}
}

func (g *Generator) genLocalVarDecl(d *ast.VarDecl) error {
	typ, err := g.mapType(d.Typ)
	if err != nil {
		return err
	}
	slot := g.nextReg()
	g.emit(fmt.Sprintf("  %s = alloca %s", slot, typ))

	if d.Init != nil {
		val, _, err := g.genExpr(d.Init)
		if err != nil {
			return err
		}
		// A fresh construction (or a call/let/match result, which already
		// carries a clean unshared reference) needs no retain; a copy of an
		// existing owned value being stored into this new slot does (spec
		// §4.6.4).
		if isOwned(d.Typ) && !isFreshValue(d.Init) {
			if err := g.emitArcOp("arc_inc_ref", d.Typ, typ, val); err != nil {
				return err
			}
		}
		g.emit(fmt.Sprintf("  store %s %s, %s* %s", typ, val, typ, slot))
	}

	g.locals[d.Name] = localVar{reg: slot, typ: d.Typ}
	g.trackOwned(d.Name, d.Typ)
	return nil
}

func (g *Generator) genWhile(s *ast.WhileStmt) error {
	condLabel := g.nextLabel("while.cond")
	bodyLabel := g.nextLabel("while.body")
	endLabel := g.nextLabel("while.end")

	g.emit(fmt.Sprintf("  br label %%%s", condLabel))
	g.startBlock(condLabel)
	condVal, _, err := g.genExpr(s.Cond)
	if err != nil {
		return err
	}
	g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", condVal, bodyLabel, endLabel))

	g.startBlock(bodyLabel)
	g.pushScope()
	if err := g.genBlock(s.Body); err != nil {
		return err
	}
	bodyScope := g.popScope()
	if !blockHasTerminator(s.Body) {
		if err := g.releaseScope(bodyScope); err != nil {
			return err
		}
		g.emit(fmt.Sprintf("  br label %%%s", condLabel))
	}

	g.startBlock(endLabel)
	return nil
}

func (g *Generator) genIf(s *ast.IfStmt) error {
	condVal, _, err := g.genExpr(s.Cond)
	if err != nil {
		return err
	}

	thenLabel := g.nextLabel("if.then")
	endLabel := g.nextLabel("if.end")
	elseLabel := endLabel
	if s.Else != nil {
		elseLabel = g.nextLabel("if.else")
	}

	g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", condVal, thenLabel, elseLabel))

	g.startBlock(thenLabel)
	g.pushScope()
	if err := g.genBlock(s.Then); err != nil {
		return err
	}
	thenScope := g.popScope()
	if !blockHasTerminator(s.Then) {
		if err := g.releaseScope(thenScope); err != nil {
			return err
		}
		g.emit(fmt.Sprintf("  br label %%%s", endLabel))
	}

	if s.Else != nil {
		g.startBlock(elseLabel)
		g.pushScope()
		if err := g.genBlock(s.Else); err != nil {
			return err
		}
		elseScope := g.popScope()
		if !blockHasTerminator(s.Else) {
			if err := g.releaseScope(elseScope); err != nil {
				return err
			}
			g.emit(fmt.Sprintf("  br label %%%s", endLabel))
		}
	}

	g.startBlock(endLabel)
	return nil
}

// genReturn lowers a return statement. A returned value that aliases an
// existing owned local is retained before the enclosing scopes are
// released, so that release doesn't drop the last reference to the value
// being handed back to the caller (spec §4.6.4: arc_inc_ref on return of a
// heap-owned value; decrements dominate every exit path of every scope).
func (g *Generator) genReturn(s *ast.ReturnStmt) error {
	if s.Value == nil {
		if err := g.releaseAllScopes(); err != nil {
			return err
		}
		g.emit("  ret void")
		return nil
	}
	val, typ, err := g.genExpr(s.Value)
	if err != nil {
		return err
	}
	if isOwned(s.Value.Type()) && !isFreshValue(s.Value) {
		if err := g.emitArcOp("arc_inc_ref", s.Value.Type(), typ, val); err != nil {
			return err
		}
	}
	if err := g.releaseAllScopes(); err != nil {
		return err
	}
	g.emit(fmt.Sprintf("  ret %s %s", typ, val))
	return nil
}
