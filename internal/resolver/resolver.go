package resolver

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// Resolver owns the type table, function table and scope stack described by
// spec §4.4. It is non-recovering: the first error returned by any
// resolve* method propagates straight back to the caller, matching the
// parser's failure model (spec §4.3.3, §7).
type Resolver struct {
	structs map[string]*ast.StructDecl
	unions  map[string]*ast.UnionDecl
	funcs   map[string]*ast.FunctionSignature // "name" or "Owner::name"

	scopes []map[string]scopeEntry

	currentFuncReturn ast.Type
}

// New creates an empty Resolver.
func New() *Resolver {
	return &Resolver{
		structs: make(map[string]*ast.StructDecl),
		unions:  make(map[string]*ast.UnionDecl),
		funcs:   make(map[string]*ast.FunctionSignature),
	}
}

// Resolve annotates every node of mod in place, returning the first error
// encountered (spec §4.4).
func Resolve(mod *ast.Module) error {
	r := New()
	return r.resolveModule(mod)
}

func (r *Resolver) resolveModule(mod *ast.Module) error {
	r.pushScope() // module-level (global) scope

	if err := r.registerTypeNames(mod); err != nil {
		return err
	}
	if err := r.registerSignatures(mod); err != nil {
		return err
	}
	return r.resolveBodies(mod)
}

// registerTypeNames is pass 1: every Struct/Union name is registered before
// any field, signature or body is resolved, so forward references between
// declarations (spec §9: cyclic union variants) are legal.
func (r *Resolver) registerTypeNames(mod *ast.Module) error {
	for _, stmt := range mod.Stmts {
		switch s := stmt.(type) {
		case *ast.StructStmt:
			if err := r.declareTypeName(s.Decl.Name, s.Span()); err != nil {
				return err
			}
			r.structs[s.Decl.Name] = s.Decl
		case *ast.UnionStmt:
			if err := r.declareTypeName(s.Decl.Name, s.Span()); err != nil {
				return err
			}
			r.unions[s.Decl.Name] = s.Decl
		}
	}
	return nil
}

func (r *Resolver) declareTypeName(name string, span lexer.Span) error {
	if _, exists := r.structs[name]; exists {
		return &Error{Code: diag.CodeRedefinitionOfStruct, Message: "redefinition of type " + name, Span: span}
	}
	if _, exists := r.unions[name]; exists {
		return &Error{Code: diag.CodeRedefinitionOfStruct, Message: "redefinition of type " + name, Span: span}
	}
	return nil
}

// registerSignatures is pass 2: field types, case field types and every
// function/method/extern signature are resolved and entered into the
// function table, now that every type name is known.
func (r *Resolver) registerSignatures(mod *ast.Module) error {
	for _, stmt := range mod.Stmts {
		switch s := stmt.(type) {
		case *ast.StructStmt:
			if err := r.registerStructSignature(s.Decl); err != nil {
				return err
			}
		case *ast.UnionStmt:
			if err := r.registerUnionSignature(s.Decl); err != nil {
				return err
			}
		case *ast.FuncStmt:
			if err := r.registerFuncSignature("", s.Decl.Sig); err != nil {
				return err
			}
		case *ast.ExternalFuncStmt:
			if err := r.registerFuncSignature("", s.Sig); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) registerStructSignature(sd *ast.StructDecl) error {
	for _, v := range sd.Vars {
		if v.Typ != nil {
			rt, err := r.resolveTypeRef(v.Typ, v.Span())
			if err != nil {
				return err
			}
			v.Typ = rt
		}
	}
	for _, m := range sd.Methods {
		if err := r.registerFuncSignature(sd.Name, m.Sig); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) registerUnionSignature(ud *ast.UnionDecl) error {
	for _, c := range ud.Cases {
		for _, v := range c.Vars {
			rt, err := r.resolveTypeRef(v.Typ, v.Span())
			if err != nil {
				return err
			}
			v.Typ = rt
		}
	}
	for _, m := range ud.Methods {
		if err := r.registerFuncSignature(ud.Name, m.Sig); err != nil {
			return err
		}
	}
	return nil
}

// registerFuncSignature resolves sig's argument/return types and enters it
// into the function table under its mangled name (spec §4.6.1).
func (r *Resolver) registerFuncSignature(owner string, sig *ast.FunctionSignature) error {
	mangled := sig.Name
	if owner != "" {
		mangled = owner + "::" + sig.Name
	}
	if _, exists := r.funcs[mangled]; exists {
		return &Error{Code: diag.CodeRedefinitionOfFunction, Message: "redefinition of function " + mangled, Span: sig.Span()}
	}

	for _, a := range sig.Args {
		if a.Name == "self" {
			continue // self's type is the already-concrete owner type the parser filled in
		}
		rt, err := r.resolveTypeRef(a.Typ, a.Span())
		if err != nil {
			return err
		}
		a.Typ = rt
	}
	rt, err := r.resolveTypeRef(sig.ReturnType, sig.Span())
	if err != nil {
		return err
	}
	sig.ReturnType = rt

	r.funcs[mangled] = sig
	return nil
}

// resolveTypeRef validates and disambiguates a type written in source.
// Parser emits ast.StructType{Name} for every identifier type it cannot
// classify as a primitive until the type table is fully built; resolveTypeRef
// re-tags it as UnionType when that is what the name actually names.
func (r *Resolver) resolveTypeRef(t ast.Type, span lexer.Span) (ast.Type, error) {
	switch v := t.(type) {
	case nil:
		return ast.Unknown{}, nil
	case ast.Unknown:
		return v, nil
	case ast.Primitive:
		return v, nil
	case ast.Pointer:
		inner, err := r.resolveTypeRef(v.Inner, span)
		if err != nil {
			return nil, err
		}
		return ast.Pointer{Inner: inner}, nil
	case ast.Array:
		elem, err := r.resolveTypeRef(v.Element, span)
		if err != nil {
			return nil, err
		}
		return ast.Array{Element: elem, Length: v.Length}, nil
	case ast.Slice:
		elem, err := r.resolveTypeRef(v.Element, span)
		if err != nil {
			return nil, err
		}
		return ast.Slice{Element: elem}, nil
	case ast.StructType:
		if _, ok := r.structs[v.Name]; ok {
			return v, nil
		}
		if _, ok := r.unions[v.Name]; ok {
			return ast.UnionType{Name: v.Name}, nil
		}
		return nil, &Error{Code: diag.CodeUnknownType, Message: "unknown type " + v.Name, Span: span}
	case ast.UnionType:
		if _, ok := r.unions[v.Name]; !ok {
			return nil, &Error{Code: diag.CodeUnknownType, Message: "unknown type " + v.Name, Span: span}
		}
		return v, nil
	case ast.FuncType:
		ret, err := r.resolveTypeRef(v.Return, span)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Type, len(v.Args))
		for i, a := range v.Args {
			at, err := r.resolveTypeRef(a, span)
			if err != nil {
				return nil, err
			}
			args[i] = at
		}
		return ast.FuncType{Return: ret, Args: args}, nil
	default:
		return v, nil
	}
}

// resolveBodies is pass 3: struct/union field initializers and method
// bodies, top-level var initializers, and free function bodies.
func (r *Resolver) resolveBodies(mod *ast.Module) error {
	for _, stmt := range mod.Stmts {
		switch s := stmt.(type) {
		case *ast.StructStmt:
			if err := r.resolveStructDecl(s.Decl); err != nil {
				return err
			}
		case *ast.UnionStmt:
			if err := r.resolveUnionDecl(s.Decl); err != nil {
				return err
			}
		case *ast.VarStmt:
			for _, d := range s.Decls {
				if err := r.resolveVarDecl(d); err != nil {
					return err
				}
			}
		case *ast.FuncStmt:
			if err := r.resolveFuncDecl(s.Decl); err != nil {
				return err
			}
		case *ast.ExternalFuncStmt, *ast.ImportStmt:
			// no body to resolve
		default:
			return fmt.Errorf("resolver: unsupported top-level statement %T", stmt)
		}
	}
	return nil
}

func (r *Resolver) resolveStructDecl(sd *ast.StructDecl) error {
	for _, v := range sd.Vars {
		if err := r.resolveVarDecl(v); err != nil {
			return err
		}
	}
	for _, m := range sd.Methods {
		if err := r.resolveFuncDecl(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveUnionDecl(ud *ast.UnionDecl) error {
	for _, m := range ud.Methods {
		if err := r.resolveFuncDecl(m); err != nil {
			return err
		}
	}
	return nil
}

// resolveVarDecl resolves d's initializer, infers d.Typ from it when no
// explicit type was written (spec §4.4 point 4), and declares d's name in
// the current scope. Used for both top-level globals and struct/union
// fields: both share the "name = initializer, type optional" shape.
func (r *Resolver) resolveVarDecl(d *ast.VarDecl) error {
	init, err := r.resolveExpr(d.Init)
	if err != nil {
		return err
	}
	if d.Typ != nil && !ast.IsUnknown(d.Typ) {
		rt, err := r.resolveTypeRef(d.Typ, d.Span())
		if err != nil {
			return err
		}
		init, err = r.coerce(init, rt)
		if err != nil {
			return err
		}
		d.Typ = rt
	} else {
		d.Typ = init.Type()
	}
	d.Init = init
	return r.declare(d.Name, d.Typ, d.Const, d.Span())
}

// resolveFuncDecl resolves one function/method body in a fresh scope seeded
// with its arguments, and checks its return-path invariant (spec §4.4 point
// 5, §9 Open Question (c)).
func (r *Resolver) resolveFuncDecl(fd *ast.FuncDecl) error {
	r.pushScope()
	defer r.popScope()

	for _, a := range fd.Sig.Args {
		if err := r.declare(a.Name, a.Typ, a.Const, a.Span()); err != nil {
			return err
		}
	}

	prevReturn := r.currentFuncReturn
	r.currentFuncReturn = fd.Sig.ReturnType
	defer func() { r.currentFuncReturn = prevReturn }()

	if err := r.resolveBlockStmts(fd.Body); err != nil {
		return err
	}

	if !ast.Equal(fd.Sig.ReturnType, ast.Primitive{Kind: ast.Void}) {
		if !blockReturns(fd.Body) {
			return &Error{Code: diag.CodeTypeError, Message: "function " + fd.Sig.Name + " does not return on every path", Span: fd.Span()}
		}
	}
	return nil
}

// typesOf projects an Argument slice down to its types, in order.
func typesOf(args []*ast.Argument) []ast.Type {
	out := make([]ast.Type, len(args))
	for i, a := range args {
		out[i] = a.Typ
	}
	return out
}

// structOrUnionName extracts the nominal name of t (looking through one
// level of Pointer), reporting whether t names a struct or
// union at all, and whether that name is a union.
func structOrUnionName(t ast.Type) (name string, isUnion bool, ok bool) {
	switch v := t.(type) {
	case ast.StructType:
		return v.Name, false, true
	case ast.UnionType:
		return v.Name, true, true
	case ast.Pointer:
		return structOrUnionName(v.Inner)
	default:
		return "", false, false
	}
}

// fieldType looks up a struct field's resolved type by name.
func (r *Resolver) fieldType(structName, fieldName string, span lexer.Span) (ast.Type, error) {
	sd, ok := r.structs[structName]
	if !ok {
		return nil, &Error{Code: diag.CodeUnknownType, Message: "unknown type " + structName, Span: span}
	}
	for _, v := range sd.Vars {
		if v.Name == fieldName {
			return v.Typ, nil
		}
	}
	return nil, &Error{Code: diag.CodeUnknownName, Message: "unknown field " + fieldName + " on " + structName, Span: span}
}

// findUnionCase searches every registered union for a case named caseName
// (spec §3.4: union case constructors are referenced by case name alone,
// e.g. `Ok{v: 3}`, not `R::Ok{...}`).
func (r *Resolver) findUnionCase(caseName string) (*ast.UnionDecl, *ast.UnionCase) {
	for _, ud := range r.unions {
		if c := ud.CaseByName(caseName); c != nil {
			return ud, c
		}
	}
	return nil, nil
}
