package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// genFunctionSig validates that fd's signature lowers cleanly, the
// equivalent of the original implementation's gen_function_sig forward
// declaration pass: it runs before any body is lowered so a type error in
// one function's signature is reported before time is spent lowering
// another function's body that calls it, and so every mangled name is
// known before genFunction ever needs to resolve a forward call.
func (g *Generator) genFunctionSig(fd *ast.FuncDecl) error {
	if _, err := g.mapType(fd.Sig.ReturnType); err != nil {
		return err
	}
	for _, a := range fd.Sig.Args {
		if _, err := g.mapType(a.Typ); err != nil {
			return err
		}
	}
	return nil
}

// genFunction lowers one function/method body (spec §4.5), mirroring the
// teacher's genFunction: save and restore generator state around the body
// so nested/lambda-lifted functions can be generated without clobbering the
// enclosing function's context.
func (g *Generator) genFunction(fd *ast.FuncDecl) error {
	savedLocals := g.locals
	savedScopes := g.scopes
	savedFunc := g.currentFunc
	savedRegs, savedLabels := g.regCounter, g.labelCounter
	defer func() {
		g.locals = savedLocals
		g.scopes = savedScopes
		g.currentFunc = savedFunc
		g.regCounter, g.labelCounter = savedRegs, savedLabels
	}()

	g.locals = make(map[string]localVar)
	g.scopes = nil
	g.pushScope()
	g.regCounter, g.labelCounter = 0, 0

	ret, err := g.mapType(fd.Sig.ReturnType)
	if err != nil {
		return err
	}
	argDecls := make([]string, len(fd.Sig.Args))
	for i, a := range fd.Sig.Args {
		at, err := g.mapType(a.Typ)
		if err != nil {
			return err
		}
		argDecls[i] = at + " %" + sanitizeName(a.Name) + ".in"
	}
	mangled := mangledLLVMName(fd.MangledName())

	g.currentFunc = &funcContext{mangledName: mangled, returnType: fd.Sig.ReturnType}

	g.emit(fmt.Sprintf("define %s @%s(%s) {", ret, mangled, joinArgs(argDecls)))
	g.startBlock("entry")

	for _, a := range fd.Sig.Args {
		at, err := g.mapType(a.Typ)
		if err != nil {
			return err
		}
		slot := g.nextReg()
		g.emit(fmt.Sprintf("  %s = alloca %s", slot, at))
		g.emit(fmt.Sprintf("  store %s %%%s.in, %s* %s", at, sanitizeName(a.Name), at, slot))
		g.locals[a.Name] = localVar{reg: slot, typ: a.Typ}
		// An owned-type argument is passed already retained by the caller
		// (genCallArgs/genMethodCall), so this function now owns that
		// reference and must release it on every exit path.
		g.trackOwned(a.Name, a.Typ)
	}

	if err := g.genBlock(fd.Body); err != nil {
		return err
	}

	rootScope := g.popScope()
	if ast.Equal(fd.Sig.ReturnType, ast.Primitive{Kind: ast.Void}) && !blockHasTerminator(fd.Body) {
		if err := g.releaseScope(rootScope); err != nil {
			return err
		}
		g.emit("  ret void")
	}

	g.emit("}")
	g.emit("")
	return nil
}

// blockHasTerminator reports whether b's final statement already lowers to
// a terminator instruction, so genFunction doesn't emit a second `ret void`
// (spec §9 Open Question (c): implicit `ret void` fallthrough is legal and
// required for Void functions, but only once).
func blockHasTerminator(b *ast.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	switch b.Stmts[len(b.Stmts)-1].(type) {
	case *ast.ReturnStmt:
		return true
	default:
		return false
	}
}
