package parser_test

import (
	"testing"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/parser"
)

func parseOneStatement(t *testing.T, src string) ast.Statement {
	t.Helper()
	mod, err := parser.ParseModule(src, "test")
	if err != nil {
		t.Fatalf("ParseModule(%q): %v", src, err)
	}
	if len(mod.Stmts) != 1 {
		t.Fatalf("ParseModule(%q) = %d statements, want 1", src, len(mod.Stmts))
	}
	return mod.Stmts[0]
}

func TestParseSimpleVar(t *testing.T) {
	stmt := parseOneStatement(t, "var x = 7")
	vs, ok := stmt.(*ast.VarStmt)
	if !ok || len(vs.Decls) != 1 {
		t.Fatalf("got %#v, want one VarDecl", stmt)
	}
	v := vs.Decls[0]
	if v.Name != "x" || v.Const || v.Public {
		t.Fatalf("unexpected decl %#v", v)
	}
	if lit, ok := v.Init.(*ast.IntLiteral); !ok || lit.Value != 7 {
		t.Fatalf("init = %#v, want IntLiteral(7)", v.Init)
	}
}

func TestParseMultipleVarCommaSeparated(t *testing.T) {
	stmt := parseOneStatement(t, "pub var x = 7, z = 888")
	vs := stmt.(*ast.VarStmt)
	if len(vs.Decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(vs.Decls))
	}
	if vs.Decls[0].Name != "x" || !vs.Decls[0].Public {
		t.Fatalf("unexpected first decl %#v", vs.Decls[0])
	}
	if vs.Decls[1].Name != "z" {
		t.Fatalf("unexpected second decl %#v", vs.Decls[1])
	}
}

func TestParseMultipleVarIndented(t *testing.T) {
	src := "var\n    x = 7\n    z = 888"
	stmt := parseOneStatement(t, src)
	vs := stmt.(*ast.VarStmt)
	if len(vs.Decls) != 2 || vs.Decls[0].Name != "x" || vs.Decls[1].Name != "z" {
		t.Fatalf("got %#v", vs.Decls)
	}
}

func TestParseWhileSingleLine(t *testing.T) {
	stmt := parseOneStatement(t, "while 1: print(\"true\")")
	ws, ok := stmt.(*ast.WhileStmt)
	if !ok || len(ws.Body.Stmts) != 1 {
		t.Fatalf("got %#v", stmt)
	}
}

func TestParseIfElse(t *testing.T) {
	src := "if 1:\n    print(\"true\")\nelse:\n    print(\"false\")"
	stmt := parseOneStatement(t, src)
	is, ok := stmt.(*ast.IfStmt)
	if !ok {
		t.Fatalf("got %#v, want *ast.IfStmt", stmt)
	}
	if len(is.Then.Stmts) != 1 || is.Else == nil || len(is.Else.Stmts) != 1 {
		t.Fatalf("unexpected if/else shape: %#v", is)
	}
}

func TestParseElseIf(t *testing.T) {
	src := "if 1:\n    print(\"true\")\nelse if 0:\n    print(\"nada\")"
	stmt := parseOneStatement(t, src)
	is := stmt.(*ast.IfStmt)
	if is.Else == nil || len(is.Else.Stmts) != 1 {
		t.Fatalf("expected else-if wrapped as a nested IfStmt, got %#v", is.Else)
	}
	if _, ok := is.Else.Stmts[0].(*ast.IfStmt); !ok {
		t.Fatalf("expected nested *ast.IfStmt in else-if chain, got %#v", is.Else.Stmts[0])
	}
}

func TestParseFuncWithArgsAndReturnType(t *testing.T) {
	src := "pub func blaat(x: int, const y: int) -> int:\n    print(\"true\")\n    return 5"
	stmt := parseOneStatement(t, src)
	fs, ok := stmt.(*ast.FuncStmt)
	if !ok {
		t.Fatalf("got %#v, want *ast.FuncStmt", stmt)
	}
	sig := fs.Decl.Sig
	if sig.Name != "blaat" || len(sig.Args) != 2 || !fs.Decl.Public {
		t.Fatalf("unexpected signature %#v", sig)
	}
	if sig.Args[1].Name != "y" || !sig.Args[1].Const {
		t.Fatalf("unexpected second argument %#v", sig.Args[1])
	}
	if len(fs.Decl.Body.Stmts) != 2 {
		t.Fatalf("unexpected body length: %#v", fs.Decl.Body.Stmts)
	}
}

func TestParseStructWithMethods(t *testing.T) {
	src := "pub struct Blaat:\n    var x = 7, y = 9\n    pub const z = 99\n\n    pub func foo(self):\n        print(\"foo\")\n\n    func bar(self):\n        print(\"bar\")"
	stmt := parseOneStatement(t, src)
	ss, ok := stmt.(*ast.StructStmt)
	if !ok {
		t.Fatalf("got %#v, want *ast.StructStmt", stmt)
	}
	s := ss.Decl
	if s.Name != "Blaat" || len(s.Vars) != 3 || len(s.Methods) != 2 {
		t.Fatalf("unexpected struct shape %#v", s)
	}
	if !s.Methods[0].Public || s.Methods[1].Public {
		t.Fatalf("unexpected method visibility: %#v", s.Methods)
	}
	selfArg := s.Methods[0].Sig.Args[0]
	if selfArg.Name != "self" {
		t.Fatalf("expected leading self argument, got %#v", selfArg)
	}
	if st, ok := selfArg.Typ.(ast.StructType); !ok {
		t.Fatalf("expected self argument to have a struct type, got %#v", selfArg.Typ)
	} else if st.Name != "Blaat" {
		t.Fatalf("expected self to have type Blaat, got %#v", st)
	}
}

func TestParseUnionWithCasesAndMethod(t *testing.T) {
	src := "pub union Blaat:\n    Foo(x: int, y: int)\n    Bar, Baz\n\n    pub func foo(self):\n        print(\"foo\")"
	stmt := parseOneStatement(t, src)
	us, ok := stmt.(*ast.UnionStmt)
	if !ok {
		t.Fatalf("got %#v, want *ast.UnionStmt", stmt)
	}
	u := us.Decl
	if u.Name != "Blaat" || !u.Public || len(u.Cases) != 3 || len(u.Methods) != 1 {
		t.Fatalf("unexpected union shape %#v", u)
	}
	if u.Cases[0].Name != "Foo" || len(u.Cases[0].Vars) != 2 {
		t.Fatalf("unexpected Foo case %#v", u.Cases[0])
	}
	if u.Cases[1].Name != "Bar" || len(u.Cases[1].Vars) != 0 {
		t.Fatalf("unexpected Bar case %#v", u.Cases[1])
	}
}

func TestParseMatchStatement(t *testing.T) {
	src := "match bla:\n    Foo(x, y): print(\"foo\")\n    Bar:\n        print(\"bar\")"
	stmt := parseOneStatement(t, src)
	ms, ok := stmt.(*ast.MatchStmt)
	if !ok || len(ms.Cases) != 2 {
		t.Fatalf("got %#v, want *ast.MatchStmt with 2 cases", stmt)
	}
	if ms.Cases[0].CaseName != "Foo" || len(ms.Cases[0].Bindings) != 2 {
		t.Fatalf("unexpected first case %#v", ms.Cases[0])
	}
	if ms.Cases[1].CaseName != "Bar" || len(ms.Cases[1].Bindings) != 0 {
		t.Fatalf("unexpected second case %#v", ms.Cases[1])
	}
}

func TestParseBinaryPrecedenceRotation(t *testing.T) {
	stmt := parseOneStatement(t, "var x = 2 * 3 + 4")
	vs := stmt.(*ast.VarStmt)
	top, ok := vs.Decls[0].Init.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("got %#v, want top-level +", vs.Decls[0].Init)
	}
	if top.Op.String() != "+" {
		t.Fatalf("top operator = %s, want +", top.Op)
	}
	left, ok := top.Left.(*ast.BinaryOp)
	if !ok || left.Op.String() != "*" {
		t.Fatalf("left operand = %#v, want (2 * 3)", top.Left)
	}
}

func TestParseLeftAssociativity(t *testing.T) {
	stmt := parseOneStatement(t, "var x = 5 - 3 - 1")
	vs := stmt.(*ast.VarStmt)
	top := vs.Decls[0].Init.(*ast.BinaryOp)
	left, ok := top.Left.(*ast.BinaryOp)
	if !ok {
		t.Fatalf("expected left-leaning tree, got %#v", top)
	}
	if _, ok := left.Left.(*ast.IntLiteral); !ok {
		t.Fatalf("expected innermost left operand to be 5, got %#v", left.Left)
	}
	if _, ok := top.Right.(*ast.IntLiteral); !ok {
		t.Fatalf("expected outermost right operand to be a literal, got %#v", top.Right)
	}
}

func TestParseMemberAccessChain(t *testing.T) {
	stmt := parseOneStatement(t, "a.b.c()")
	es := stmt.(*ast.ExpressionStmt)
	call, ok := es.Expr.(*ast.Call)
	if !ok {
		t.Fatalf("got %#v, want *ast.Call", es.Expr)
	}
	member, ok := call.Callee.(*ast.MemberAccess)
	if !ok || member.Name != "c" {
		t.Fatalf("callee = %#v, want MemberAccess(c)", call.Callee)
	}
	inner, ok := member.Receiver.(*ast.MemberAccess)
	if !ok || inner.Name != "b" {
		t.Fatalf("receiver = %#v, want MemberAccess(b)", member.Receiver)
	}
}

func TestParseObjectConstruction(t *testing.T) {
	stmt := parseOneStatement(t, "var c = Circle{radius: 1}")
	vs := stmt.(*ast.VarStmt)
	oc, ok := vs.Decls[0].Init.(*ast.ObjectConstruction)
	if !ok || oc.TypeName != "Circle" || len(oc.Fields) != 1 || oc.Fields[0].Name != "radius" {
		t.Fatalf("got %#v", vs.Decls[0].Init)
	}
}

func TestParsePostfixIncrementRewritesToCompoundAssign(t *testing.T) {
	stmt := parseOneStatement(t, "x++")
	es := stmt.(*ast.ExpressionStmt)
	asn, ok := es.Expr.(*ast.Assignment)
	if !ok {
		t.Fatalf("got %#v, want *ast.Assignment", es.Expr)
	}
	if asn.Op.String() != "+=" {
		t.Fatalf("op = %s, want +=", asn.Op)
	}
}

func TestParseArrayPattern(t *testing.T) {
	stmt := parseOneStatement(t, "var x = [head|tail]")
	vs := stmt.(*ast.VarStmt)
	pat, ok := vs.Decls[0].Init.(*ast.ArrayPattern)
	if !ok || pat.Head != "head" || pat.Tail != "tail" {
		t.Fatalf("got %#v", vs.Decls[0].Init)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	stmt := parseOneStatement(t, "var x = [1, 2, 3]")
	vs := stmt.(*ast.VarStmt)
	lit, ok := vs.Decls[0].Init.(*ast.ArrayLiteral)
	if !ok || len(lit.Elements) != 3 {
		t.Fatalf("got %#v", vs.Decls[0].Init)
	}
}

func TestParseArrayGenerator(t *testing.T) {
	stmt := parseOneStatement(t, "var x = [y for y in xs]")
	vs := stmt.(*ast.VarStmt)
	gen, ok := vs.Decls[0].Init.(*ast.ArrayGenerator)
	if !ok || gen.Binder != "y" {
		t.Fatalf("got %#v", vs.Decls[0].Init)
	}
}

func TestParseLambda(t *testing.T) {
	stmt := parseOneStatement(t, "var add = @(x: int, y: int) => x + y")
	vs := stmt.(*ast.VarStmt)
	lam, ok := vs.Decls[0].Init.(*ast.Lambda)
	if !ok || len(lam.Params) != 2 {
		t.Fatalf("got %#v", vs.Decls[0].Init)
	}
}

func TestParseLetExpr(t *testing.T) {
	stmt := parseOneStatement(t, "var x = let y = 1 in y + 1")
	vs := stmt.(*ast.VarStmt)
	let, ok := vs.Decls[0].Init.(*ast.LetExpr)
	if !ok || let.Name != "y" {
		t.Fatalf("got %#v", vs.Decls[0].Init)
	}
}

func TestParseImport(t *testing.T) {
	stmt := parseOneStatement(t, `import "std/io"`)
	im, ok := stmt.(*ast.ImportStmt)
	if !ok || im.Path != "std/io" {
		t.Fatalf("got %#v", stmt)
	}
}

func TestParseExternFunc(t *testing.T) {
	stmt := parseOneStatement(t, "extern func arc_alloc(size: int) -> voidptr")
	ef, ok := stmt.(*ast.ExternalFuncStmt)
	if !ok || ef.Sig.Name != "arc_alloc" {
		t.Fatalf("got %#v", stmt)
	}
}

func TestParseErrorOnSelfNotFirst(t *testing.T) {
	_, err := parser.ParseModule("func blaat(x: int, self):\n    return 0", "test")
	if err == nil {
		t.Fatalf("expected an error for self not in first position")
	}
}

func TestParseErrorOnUnexpectedToken(t *testing.T) {
	_, err := parser.ParseModule("var = 7", "test")
	if err == nil {
		t.Fatalf("expected an error for a missing identifier")
	}
}

// TestScenarioUnterminatedExpressionReportsUnexpectedEOF mirrors the
// parse-error end-to-end scenario: an expression left dangling at EOF
// surfaces as Parser/UnexpectedEOF, with a span pointing at the EOF token
// rather than the last real token consumed.
func TestScenarioUnterminatedExpressionReportsUnexpectedEOF(t *testing.T) {
	_, err := parser.ParseModule("var x = (1 +\n", "test")
	if err == nil {
		t.Fatalf("expected a parse error for an expression left open at EOF")
	}
	pe, ok := err.(*parser.Error)
	if !ok {
		t.Fatalf("got %T, want *parser.Error", err)
	}
	if pe.Code != diag.CodeParserUnexpectedEOF {
		t.Fatalf("Code = %v, want %v", pe.Code, diag.CodeParserUnexpectedEOF)
	}
	d := pe.ToDiagnostic()
	if d.Stage != diag.StageParser {
		t.Fatalf("Stage = %v, want %v", d.Stage, diag.StageParser)
	}
}
