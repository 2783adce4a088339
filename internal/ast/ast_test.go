package ast_test

import (
	"testing"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

func TestExpressionTypeDefaultsToUnknown(t *testing.T) {
	lit := ast.NewIntLiteral(7, lexer.Span{})
	if !ast.IsUnknown(lit.Type()) {
		t.Fatalf("fresh literal should carry Unknown until resolved, got %v", lit.Type())
	}
	lit.SetType(ast.Primitive{Kind: ast.Int})
	if ast.IsUnknown(lit.Type()) {
		t.Fatalf("SetType did not stick")
	}
}

func TestFuncDeclMangledName(t *testing.T) {
	sig := ast.NewFunctionSignature("area", ast.Primitive{Kind: ast.Float}, nil, lexer.Span{})
	free := ast.NewFuncDecl(sig, ast.NewBlock(nil, lexer.Span{}), true, "", lexer.Span{})
	if free.MangledName() != "area" {
		t.Fatalf("free function mangled name = %q, want area", free.MangledName())
	}
	method := ast.NewFuncDecl(sig, ast.NewBlock(nil, lexer.Span{}), true, "Circle", lexer.Span{})
	if method.MangledName() != "Circle::area" {
		t.Fatalf("method mangled name = %q, want Circle::area", method.MangledName())
	}
}

func TestFunctionSignatureIsMethod(t *testing.T) {
	self := ast.NewArgument("self", ast.Pointer{Inner: ast.StructType{Name: "Circle"}}, false, lexer.Span{})
	sig := ast.NewFunctionSignature("area", ast.Primitive{Kind: ast.Float}, []*ast.Argument{self}, lexer.Span{})
	if !sig.IsMethod() {
		t.Fatalf("expected signature with leading self argument to be a method")
	}
	other := ast.NewArgument("x", ast.Primitive{Kind: ast.Int}, false, lexer.Span{})
	sig2 := ast.NewFunctionSignature("add", ast.Primitive{Kind: ast.Int}, []*ast.Argument{other}, lexer.Span{})
	if sig2.IsMethod() {
		t.Fatalf("expected signature without self argument to not be a method")
	}
}

func TestUnionCaseByName(t *testing.T) {
	some := ast.NewUnionCase("Some", []*ast.Argument{ast.NewArgument("value", ast.Primitive{Kind: ast.Int}, false, lexer.Span{})}, lexer.Span{})
	none := ast.NewUnionCase("None", nil, lexer.Span{})
	u := ast.NewUnionDecl("Option", true, []*ast.UnionCase{some, none}, nil, lexer.Span{})
	if u.CaseByName("Some") != some {
		t.Fatalf("CaseByName(Some) did not find the case")
	}
	if u.CaseByName("Missing") != nil {
		t.Fatalf("CaseByName(Missing) should be nil")
	}
}

func TestPassModeForAggregatesVsScalars(t *testing.T) {
	if ast.PassModeFor(ast.Primitive{Kind: ast.Int}) != ast.ByValue {
		t.Fatalf("int should pass by value")
	}
	if ast.PassModeFor(ast.StructType{Name: "Circle"}) != ast.ByPtr {
		t.Fatalf("struct should pass by pointer")
	}
	if ast.PassModeFor(ast.Slice{Element: ast.Primitive{Kind: ast.Int}}) != ast.ByPtr {
		t.Fatalf("slice should pass by pointer")
	}
}

func TestTypeEqual(t *testing.T) {
	a := ast.Array{Element: ast.Primitive{Kind: ast.Int}, Length: 3}
	b := ast.Array{Element: ast.Primitive{Kind: ast.Int}, Length: 3}
	c := ast.Array{Element: ast.Primitive{Kind: ast.Int}, Length: 4}
	if !ast.Equal(a, b) {
		t.Fatalf("expected equal arrays to compare equal")
	}
	if ast.Equal(a, c) {
		t.Fatalf("expected arrays of differing length to compare unequal")
	}
}
