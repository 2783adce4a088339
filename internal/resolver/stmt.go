package resolver

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
)

// resolveBlockStmts resolves every statement of b in the caller's current
// scope (callers that need a fresh scope, e.g. if/while bodies, push one
// first).
func (r *Resolver) resolveBlockStmts(b *ast.Block) error {
	for _, stmt := range b.Stmts {
		if err := r.resolveStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.VarStmt:
		for _, d := range s.Decls {
			if err := r.resolveVarDecl(d); err != nil {
				return err
			}
		}
		return nil

	case *ast.FuncStmt:
		// A function declared inside another function's body (spec §3.2
		// nested functions): bind its name to a FuncType in the enclosing
		// scope before resolving its body, so it can call itself.
		sig := s.Decl.Sig
		ft, err := r.funcTypeOf(sig)
		if err != nil {
			return err
		}
		if err := r.declare(sig.Name, ft, true, s.Span()); err != nil {
			return err
		}
		if err := r.registerFuncSignature("", sig); err != nil {
			return err
		}
		return r.resolveFuncDecl(s.Decl)

	case *ast.StructStmt:
		return fmt.Errorf("resolver: nested struct declarations are not supported")

	case *ast.UnionStmt:
		return fmt.Errorf("resolver: nested union declarations are not supported")

	case *ast.ExternalFuncStmt:
		return r.registerFuncSignature("", s.Sig)

	case *ast.WhileStmt:
		cond, err := r.resolveExpr(s.Cond)
		if err != nil {
			return err
		}
		if !ast.IsBool(cond.Type()) {
			return &Error{Code: diag.CodeTypeError, Message: "while condition must be bool", Span: s.Cond.Span()}
		}
		s.Cond = cond
		r.pushScope()
		defer r.popScope()
		return r.resolveBlockStmts(s.Body)

	case *ast.IfStmt:
		cond, err := r.resolveExpr(s.Cond)
		if err != nil {
			return err
		}
		if !ast.IsBool(cond.Type()) {
			return &Error{Code: diag.CodeTypeError, Message: "if condition must be bool", Span: s.Cond.Span()}
		}
		s.Cond = cond

		r.pushScope()
		err = r.resolveBlockStmts(s.Then)
		r.popScope()
		if err != nil {
			return err
		}

		if s.Else != nil {
			r.pushScope()
			err = r.resolveBlockStmts(s.Else)
			r.popScope()
			if err != nil {
				return err
			}
		}
		return nil

	case *ast.ReturnStmt:
		if s.Value == nil {
			if !ast.Equal(r.currentFuncReturn, ast.Primitive{Kind: ast.Void}) {
				return &Error{Code: diag.CodeTypeError, Message: "bare return requires void return type", Span: s.Span()}
			}
			return nil
		}
		v, err := r.resolveExpr(s.Value)
		if err != nil {
			return err
		}
		v, err = r.coerce(v, r.currentFuncReturn)
		if err != nil {
			return err
		}
		s.Value = v
		return nil

	case *ast.MatchStmt:
		return r.resolveMatch(s.Subject, s.Cases, func(subject ast.Expression) { s.Subject = subject }, false)

	case *ast.ExpressionStmt:
		e, err := r.resolveExpr(s.Expr)
		if err != nil {
			return err
		}
		s.Expr = e
		return nil

	default:
		return fmt.Errorf("resolver: unsupported statement %T", stmt)
	}
}

// funcTypeOf builds the structural FuncType for a signature whose argument
// and return types are already resolved (or about to be, for recursive
// nested functions the return type must be written explicitly).
func (r *Resolver) funcTypeOf(sig *ast.FunctionSignature) (ast.Type, error) {
	ret, err := r.resolveTypeRef(sig.ReturnType, sig.Span())
	if err != nil {
		return nil, err
	}
	args := make([]ast.Type, 0, len(sig.Args))
	for _, a := range sig.Args {
		at, err := r.resolveTypeRef(a.Typ, a.Span())
		if err != nil {
			return nil, err
		}
		args = append(args, at)
	}
	return ast.FuncType{Return: ret, Args: args}, nil
}

// blockReturns reports whether every control-flow path through b ends in a
// return statement (spec §9 Open Question (c): non-Void functions require
// explicit return on every path).
func blockReturns(b *ast.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	return stmtAlwaysReturns(b.Stmts[len(b.Stmts)-1])
}

func stmtAlwaysReturns(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.IfStmt:
		return s.Else != nil && blockReturns(s.Then) && blockReturns(s.Else)
	case *ast.MatchStmt:
		if len(s.Cases) == 0 {
			return false
		}
		for _, c := range s.Cases {
			if !blockReturns(c.Body) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
