package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// Generate lowers a fully resolved module to LLVM IR text (spec §4.5). The
// module must already have passed through the resolver: every expression
// carries a concrete type and no ast.Unknown remains.
func Generate(mod *ast.Module) (string, error) {
	g := NewGenerator()
	return g.generate(mod)
}

func (g *Generator) generate(mod *ast.Module) (string, error) {
	g.emitModuleHeader(mod.Name)
	g.emitRuntimeDeclarations()

	for _, stmt := range mod.Stmts {
		if s, ok := stmt.(*ast.StructStmt); ok {
			if err := g.genStructType(s.Decl); err != nil {
				return "", err
			}
		}
	}
	for _, stmt := range mod.Stmts {
		if s, ok := stmt.(*ast.UnionStmt); ok {
			if err := g.genUnionType(s.Decl); err != nil {
				return "", err
			}
		}
	}

	// Two-pass function emission (spec §4.5, grounded on the original
	// implementation's gen_function_sig/gen_function split): every
	// signature is forward-declared before any body is lowered, so mutually
	// recursive and out-of-order calls resolve.
	var funcs []*ast.FuncDecl
	for _, stmt := range mod.Stmts {
		switch s := stmt.(type) {
		case *ast.FuncStmt:
			funcs = append(funcs, s.Decl)
		case *ast.StructStmt:
			funcs = append(funcs, s.Decl.Methods...)
		case *ast.UnionStmt:
			funcs = append(funcs, s.Decl.Methods...)
		case *ast.ExternalFuncStmt:
			if err := g.genExternDecl(s.Sig); err != nil {
				return "", err
			}
		}
	}
	for _, fd := range funcs {
		if err := g.genFunctionSig(fd); err != nil {
			return "", err
		}
	}
	for _, fd := range funcs {
		if err := g.genFunction(fd); err != nil {
			return "", err
		}
	}

	g.emitGlobals()
	return g.builder.String(), nil
}

func (g *Generator) emitModuleHeader(name string) {
	g.emit("; ModuleID = '" + sanitizeName(name) + "'")
	g.emit("source_filename = \"" + name + "\"")
	g.emit("target triple = \"x86_64-unknown-linux-gnu\"")
	g.emit("")
}

// emitRuntimeDeclarations declares the fixed four-function ARC runtime ABI
// plus memcpy (spec §6.3, grounded on original_source/src/codegen/builtin.rs
// and .../llvmbackend/function.rs's add_libc_functions).
func (g *Generator) emitRuntimeDeclarations() {
	g.emit("; ARC runtime declarations")
	g.emit("declare i8* @arc_alloc(i64)")
	g.emit("declare void @arc_inc_ref(i8*)")
	g.emit("declare void @arc_dec_ref(i8*)")
	g.emit("declare i8* @concat(i8*, i64, i8*, i64)")
	g.emit("declare i8* @memcpy(i8*, i8*, i64)")
	g.emit("")
}

func (g *Generator) genExternDecl(sig *ast.FunctionSignature) error {
	ret, err := g.mapType(sig.ReturnType)
	if err != nil {
		return err
	}
	args := make([]string, len(sig.Args))
	for i, a := range sig.Args {
		at, err := g.mapType(a.Typ)
		if err != nil {
			return err
		}
		args[i] = at
	}
	g.emit(fmt.Sprintf("declare %s @%s(%s)", ret, sig.Name, joinArgs(args)))
	return nil
}

// genStructType emits the named aggregate type for a struct declaration and
// records its field-name-to-index map for later GEP lowering.
func (g *Generator) genStructType(sd *ast.StructDecl) error {
	if g.structTypes[sd.Name] {
		return nil
	}
	g.structTypes[sd.Name] = true

	fieldIdx := make(map[string]int, len(sd.Vars))
	fieldTypes := make([]string, len(sd.Vars))
	for i, v := range sd.Vars {
		ft, err := g.mapType(v.Typ)
		if err != nil {
			return err
		}
		fieldTypes[i] = ft
		fieldIdx[v.Name] = i
	}
	g.structFields[sd.Name] = fieldIdx

	g.emitGlobal(fmt.Sprintf("%%struct.%s = type { %s }", sanitizeName(sd.Name), joinArgs(fieldTypes)))
	return nil
}

// genUnionType emits the `{ i32 tag, payload }` tagged-union aggregate
// (spec §3.3), sized to the largest case's field tuple and recording each
// case's discriminator.
func (g *Generator) genUnionType(ud *ast.UnionDecl) error {
	if g.unionTypes[ud.Name] {
		return nil
	}
	g.unionTypes[ud.Name] = true

	caseIdx := make(map[string]int, len(ud.Cases))
	var widestPayload string
	widestSize := -1
	for i, c := range ud.Cases {
		caseIdx[c.Name] = i
		fieldTypes := make([]string, len(c.Vars))
		fieldGoTypes := make([]ast.Type, len(c.Vars))
		fieldIdx := make(map[string]int, len(c.Vars))
		for j, v := range c.Vars {
			ft, err := g.mapType(v.Typ)
			if err != nil {
				return err
			}
			fieldTypes[j] = ft
			fieldGoTypes[j] = v.Typ
			fieldIdx[v.Name] = j
		}
		g.unionCaseOwner[c.Name] = ud.Name
		g.unionCaseFieldIdx[c.Name] = fieldIdx
		g.unionCaseFieldType[c.Name] = fieldTypes
		g.unionCaseFieldGoType[c.Name] = fieldGoTypes

		payload := "{ " + joinArgs(fieldTypes) + " }"
		if len(c.Vars) > widestSize {
			widestSize = len(c.Vars)
			widestPayload = payload
		}
	}
	g.unionCases[ud.Name] = caseIdx
	if widestPayload == "" {
		widestPayload = "{}"
	}
	g.unionPayloadType[ud.Name] = widestPayload

	g.emitGlobal(fmt.Sprintf("%%union.%s = type { i32, %s }", sanitizeName(ud.Name), widestPayload))
	return nil
}
