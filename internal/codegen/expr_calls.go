package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// genCall lowers a call expression, routing method calls (callee is a
// MemberAccess naming a method rather than a field) to genMethodCall and
// everything else through a computed function-pointer call.
func (g *Generator) genCall(e *ast.Call) (string, string, error) {
	if ma, ok := e.Callee.(*ast.MemberAccess); ok {
		if structName, ok2 := receiverStructName(ma.Receiver.Type()); ok2 {
			if _, isField := g.structFields[structName][ma.Name]; !isField {
				return g.genMethodCall(ma, e)
			}
		}
	}

	calleeVal, calleeTyp, err := g.genExpr(e.Callee)
	if err != nil {
		return "", "", err
	}
	argText, err := g.genCallArgs(e.Args)
	if err != nil {
		return "", "", err
	}

	retType, err := g.mapType(e.Type())
	if err != nil {
		return "", "", err
	}
	return g.emitCall(retType, fmt.Sprintf("%s %s", calleeTyp, calleeVal), argText)
}

// genMethodCall dispatches statically to `Owner::method`, passing the
// receiver as the implicit first (self) argument (spec §3.2, §4.6.1
// mangled names).
func (g *Generator) genMethodCall(ma *ast.MemberAccess, e *ast.Call) (string, string, error) {
	recvVal, recvTyp, err := g.genExpr(ma.Receiver)
	if err != nil {
		return "", "", err
	}
	// The callee's `self` parameter owns a reference for the duration of
	// the call (released at its own return), so the receiver is retained
	// here unless it's already an uncontested fresh value (spec §4.6.4:
	// arc_inc_ref on a heap-typed argument passed by value).
	if isOwned(ma.Receiver.Type()) && !isFreshValue(ma.Receiver) {
		if err := g.emitArcOp("arc_inc_ref", ma.Receiver.Type(), recvTyp, recvVal); err != nil {
			return "", "", err
		}
	}
	structName, _ := receiverStructName(ma.Receiver.Type())
	mangled := mangledLLVMName(structName + "::" + ma.Name)

	argText := recvTyp + " " + recvVal
	rest, err := g.genCallArgs(e.Args)
	if err != nil {
		return "", "", err
	}
	if rest != "" {
		argText += ", " + rest
	}

	retType, err := g.mapType(e.Type())
	if err != nil {
		return "", "", err
	}
	return g.emitCall(retType, "@"+mangled, argText)
}

func (g *Generator) genCallArgs(args []ast.Expression) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		val, typ, err := g.genExpr(a)
		if err != nil {
			return "", err
		}
		// The callee's parameter owns a reference for the duration of the
		// call (released at its own return), so a heap-typed argument that
		// copies an existing value is retained here (spec §4.6.4: arc_inc_ref
		// on a heap-typed argument passed by value).
		if isOwned(a.Type()) && !isFreshValue(a) {
			if err := g.emitArcOp("arc_inc_ref", a.Type(), typ, val); err != nil {
				return "", err
			}
		}
		parts[i] = typ + " " + val
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out, nil
}

func (g *Generator) emitCall(retType, callee, argText string) (string, string, error) {
	if retType == "void" {
		g.emit(fmt.Sprintf("  call void %s(%s)", callee, argText))
		return "", "void", nil
	}
	reg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call %s %s(%s)", reg, retType, callee, argText))
	return reg, retType, nil
}

// genLambda lifts an anonymous function literal to a freestanding top-level
// function and returns its address as a function-pointer value, the same
// strategy the original implementation's closure lowering uses for capture-
// free lambdas (spec §3.2 Non-goals: lambdas never capture mutable state).
func (g *Generator) genLambda(e *ast.Lambda) (string, string, error) {
	name := fmt.Sprintf("lambda.%d", g.regCounter)
	g.regCounter++

	sig := ast.NewFunctionSignature(name, e.Body.Type(), e.Params, e.Span())
	decl := ast.NewFuncDecl(sig, bodyAsBlock(e.Body), false, "", e.Span())

	if err := g.genFunctionSig(decl); err != nil {
		return "", "", err
	}
	if err := g.genFunction(decl); err != nil {
		return "", "", err
	}

	typ, err := g.mapType(e.Type())
	if err != nil {
		return "", "", err
	}
	return "@" + name, typ, nil
}

// bodyAsBlock wraps a single expression as the one-statement block a
// lambda's body lowers to: `return <expr>`.
func bodyAsBlock(body ast.Expression) *ast.Block {
	ret := ast.NewReturnStmt(body, body.Span())
	return ast.NewBlock([]ast.Statement{ret}, body.Span())
}

func (g *Generator) genNestedFunctionExpr(e *ast.NestedFunction) (string, string, error) {
	if err := g.genFunctionSig(e.Decl); err != nil {
		return "", "", err
	}
	if err := g.genFunction(e.Decl); err != nil {
		return "", "", err
	}
	typ, err := g.mapType(e.Type())
	if err != nil {
		return "", "", err
	}
	return "@" + mangledLLVMName(e.Decl.MangledName()), typ, nil
}
