package resolver_test

import (
	"testing"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/parser"
	"github.com/nomad-lang/nomadc/internal/resolver"
)

func resolveModule(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := parser.ParseModule(src, "test")
	if err != nil {
		t.Fatalf("ParseModule(%q): %v", src, err)
	}
	if err := resolver.Resolve(mod); err != nil {
		t.Fatalf("Resolve(%q): %v", src, err)
	}
	return mod
}

func resolveErr(t *testing.T, src string) error {
	t.Helper()
	mod, err := parser.ParseModule(src, "test")
	if err != nil {
		t.Fatalf("ParseModule(%q): %v", src, err)
	}
	return resolver.Resolve(mod)
}

func TestResolveInfersVarTypeFromIntLiteral(t *testing.T) {
	mod := resolveModule(t, "var x = 7")
	vs := mod.Stmts[0].(*ast.VarStmt)
	pt, ok := vs.Decls[0].Typ.(ast.Primitive)
	if !ok || pt.Kind != ast.Int {
		t.Fatalf("Typ = %#v, want Primitive{Int}", vs.Decls[0].Typ)
	}
}

func TestResolveInfersVarTypeFromFloatLiteral(t *testing.T) {
	mod := resolveModule(t, "var x = 1.5")
	vs := mod.Stmts[0].(*ast.VarStmt)
	pt, ok := vs.Decls[0].Typ.(ast.Primitive)
	if !ok || pt.Kind != ast.Float {
		t.Fatalf("Typ = %#v, want Primitive{Float}", vs.Decls[0].Typ)
	}
}

func TestResolveBindsNameReferenceToDeclaredVar(t *testing.T) {
	mod := resolveModule(t, "var x = 7\nvar y = x")
	vs := mod.Stmts[1].(*ast.VarStmt)
	nr, ok := vs.Decls[0].Init.(*ast.NameRef)
	if !ok {
		t.Fatalf("Init = %#v, want *ast.NameRef", vs.Decls[0].Init)
	}
	pt, ok := nr.Type().(ast.Primitive)
	if !ok || pt.Kind != ast.Int {
		t.Fatalf("NameRef.Type() = %#v, want Primitive{Int}", nr.Type())
	}
}

func TestResolveUnknownNameIsError(t *testing.T) {
	if err := resolveErr(t, "var y = x"); err == nil {
		t.Fatal("want error for unknown name x")
	}
}

func TestResolveRedefinitionOfVariableIsError(t *testing.T) {
	if err := resolveErr(t, "var x = 1\nvar x = 2"); err == nil {
		t.Fatal("want error for redefined x")
	}
}

func TestResolveRedefinitionOfStructIsError(t *testing.T) {
	src := "struct Point:\n    var x = 0, y = 0\n\nstruct Point:\n    var z = 0"
	if err := resolveErr(t, src); err == nil {
		t.Fatal("want error for redefined struct Point")
	}
}

func TestResolveFunctionCallBindsReturnType(t *testing.T) {
	src := "func one() -> int:\n    return 1\n\nvar x = one()"
	mod := resolveModule(t, src)
	vs := mod.Stmts[1].(*ast.VarStmt)
	pt, ok := vs.Decls[0].Init.Type().(ast.Primitive)
	if !ok || pt.Kind != ast.Int {
		t.Fatalf("call result type = %#v, want Primitive{Int}", vs.Decls[0].Init.Type())
	}
}

func TestResolveForwardReferenceBetweenFunctions(t *testing.T) {
	src := "func even(n: int) -> bool:\n    return n == 0\n\nfunc caller() -> bool:\n    return even(4)"
	resolveModule(t, src)
}

func TestResolveStructFieldAccess(t *testing.T) {
	src := "struct Point:\n    var x = 0, y = 0\n\nvar p = Point{x: 1, y: 2}\nvar x2 = p.x"
	mod := resolveModule(t, src)
	vs := mod.Stmts[2].(*ast.VarStmt)
	pt, ok := vs.Decls[0].Init.Type().(ast.Primitive)
	if !ok || pt.Kind != ast.Int {
		t.Fatalf("p.x type = %#v, want Primitive{Int}", vs.Decls[0].Init.Type())
	}
}

func TestResolveSelfTypeInMethod(t *testing.T) {
	src := "struct Point:\n    var x = 0, y = 0\n\n    func sum(self) -> int:\n        return self.x + self.y"
	mod := resolveModule(t, src)
	sd := mod.Stmts[0].(*ast.StructStmt).Decl
	selfArg := sd.Methods[0].Sig.Args[0]
	ut, ok := selfArg.Typ.(ast.StructType)
	if !ok || ut.Name != "Point" {
		t.Fatalf("self type = %#v, want StructType{Point}", selfArg.Typ)
	}
}

func TestResolveUnionCaseConstructionAndMatch(t *testing.T) {
	src := "union Shape:\n    Circle(radius: int)\n    Square(side: int)\n\n" +
		"func main() -> int:\n    var s = Circle{radius: 3}\n" +
		"    match s:\n        Circle(r): var a = r\n        Square(side): var b = side\n    return 0"
	resolveModule(t, src)
}

func TestResolveMismatchedReturnTypeIsError(t *testing.T) {
	src := "func bad() -> int:\n    return true"
	if err := resolveErr(t, src); err == nil {
		t.Fatal("want error for bool returned from int function")
	}
}

func TestResolveArrayGeneratorBindsElementType(t *testing.T) {
	src := "var xs = [1, 2, 3]\nvar ys = [y + 1 for y in xs]"
	mod := resolveModule(t, src)
	vs := mod.Stmts[1].(*ast.VarStmt)
	arr, ok := vs.Decls[0].Init.Type().(ast.Slice)
	if !ok {
		if a, ok := vs.Decls[0].Init.Type().(ast.Array); ok {
			if pt, ok := a.Element.(ast.Primitive); !ok || pt.Kind != ast.Int {
				t.Fatalf("element type = %#v, want Primitive{Int}", a.Element)
			}
			return
		}
		t.Fatalf("generator type = %#v, want Array or Slice of int", vs.Decls[0].Init.Type())
	}
	if pt, ok := arr.Element.(ast.Primitive); !ok || pt.Kind != ast.Int {
		t.Fatalf("element type = %#v, want Primitive{Int}", arr.Element)
	}
}

func TestResolveLetExprBindsBodyType(t *testing.T) {
	mod := resolveModule(t, "var x = let y = 1 in y + 1")
	vs := mod.Stmts[0].(*ast.VarStmt)
	pt, ok := vs.Decls[0].Init.Type().(ast.Primitive)
	if !ok || pt.Kind != ast.Int {
		t.Fatalf("let expr type = %#v, want Primitive{Int}", vs.Decls[0].Init.Type())
	}
}
