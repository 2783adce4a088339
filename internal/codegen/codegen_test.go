package codegen_test

import (
	"strings"
	"testing"

	"github.com/nomad-lang/nomadc/internal/codegen"
	"github.com/nomad-lang/nomadc/internal/parser"
	"github.com/nomad-lang/nomadc/internal/resolver"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	mod, err := parser.ParseModule(src, "test")
	if err != nil {
		t.Fatalf("ParseModule(%q): %v", src, err)
	}
	if err := resolver.Resolve(mod); err != nil {
		t.Fatalf("Resolve(%q): %v", src, err)
	}
	ir, err := codegen.Generate(mod)
	if err != nil {
		t.Fatalf("Generate(%q): %v", src, err)
	}
	if problems := codegen.Verify(ir); len(problems) > 0 {
		t.Fatalf("Verify(%q) found problems: %v\nIR:\n%s", src, problems, ir)
	}
	return ir
}

func TestGenerateEmitsRuntimeDeclarations(t *testing.T) {
	ir := generate(t, "func main() -> int:\n    return 0")
	for _, want := range []string{
		"declare i8* @arc_alloc(i64)",
		"declare void @arc_inc_ref(i8*)",
		"declare void @arc_dec_ref(i8*)",
		"declare i8* @concat(i8*, i64, i8*, i64)",
	} {
		if !strings.Contains(ir, want) {
			t.Fatalf("IR missing %q:\n%s", want, ir)
		}
	}
}

func TestGenerateStructAssignmentRetainsAndReleases(t *testing.T) {
	src := "struct Point:\n    var x = 0\n\n" +
		"func main() -> int:\n    var a = Point{x: 1}\n    var b = Point{x: 2}\n    a = b\n    return a.x"
	ir := generate(t, src)
	if !strings.Contains(ir, "call void @arc_inc_ref(") {
		t.Fatalf("assigning an existing struct value into another slot should retain it, got:\n%s", ir)
	}
	if !strings.Contains(ir, "call void @arc_dec_ref(") {
		t.Fatalf("overwriting an owned slot should release its old value, got:\n%s", ir)
	}
}

func TestGenerateReturnReleasesOwnedLocalOnScopeExit(t *testing.T) {
	src := "struct Point:\n    var x = 0\n\n" +
		"func main() -> int:\n    var p = Point{x: 1}\n    return p.x"
	ir := generate(t, src)
	if !strings.Contains(ir, "call void @arc_dec_ref(") {
		t.Fatalf("a heap-owned local still in scope at return should be released, got:\n%s", ir)
	}
}

func TestGenerateReturnOfOwnedLocalRetainsBeforeReleasing(t *testing.T) {
	src := "struct Point:\n    var x = 0\n\n" +
		"func make() -> Point:\n    var p = Point{x: 1}\n    return p"
	ir := generate(t, src)
	if !strings.Contains(ir, "call void @arc_inc_ref(") {
		t.Fatalf("returning a local that is also released at scope exit should retain it first, got:\n%s", ir)
	}
	if !strings.Contains(ir, "call void @arc_dec_ref(") {
		t.Fatalf("want the scope-exit release alongside the retain, got:\n%s", ir)
	}
}

func TestGenerateMethodCallRetainsReceiver(t *testing.T) {
	src := "struct Point:\n    var x = 0\n\n    func get(self) -> int:\n        return self.x\n\n" +
		"func main() -> int:\n    var p = Point{x: 5}\n    return p.get()"
	ir := generate(t, src)
	if !strings.Contains(ir, "call void @arc_inc_ref(") {
		t.Fatalf("passing an existing struct as a method receiver should retain it, got:\n%s", ir)
	}
}

func TestGenerateFunctionSignatureAndReturn(t *testing.T) {
	ir := generate(t, "func main() -> int:\n    return 42")
	if !strings.Contains(ir, "define i64 @main()") {
		t.Fatalf("IR missing main definition:\n%s", ir)
	}
	if !strings.Contains(ir, "ret i64 42") {
		t.Fatalf("IR missing return of 42:\n%s", ir)
	}
}

func TestGenerateVoidFunctionFallsThroughToRetVoid(t *testing.T) {
	ir := generate(t, "func log() -> void:\n    var x = 1")
	if !strings.Contains(ir, "ret void") {
		t.Fatalf("IR missing implicit ret void:\n%s", ir)
	}
}

func TestGenerateStructTypeAndFieldAccess(t *testing.T) {
	src := "struct Point:\n    var x = 0, y = 0\n\n" +
		"func main() -> int:\n    var p = Point{x: 1, y: 2}\n    return p.x"
	ir := generate(t, src)
	if !strings.Contains(ir, "%struct.Point = type { i64, i64 }") {
		t.Fatalf("IR missing struct type:\n%s", ir)
	}
}

func TestGenerateUnionTypeAndMatch(t *testing.T) {
	src := "union Shape:\n    Circle(radius: int)\n    Square(side: int)\n\n" +
		"func area(s: Shape) -> int:\n" +
		"    match s:\n" +
		"        Circle(r): return r\n" +
		"        Square(side): return side\n\n" +
		"func main() -> int:\n    return area(Circle{radius: 3})"
	ir := generate(t, src)
	if !strings.Contains(ir, "%union.Shape = type { i32,") {
		t.Fatalf("IR missing union type:\n%s", ir)
	}
	if !strings.Contains(ir, "icmp eq i32") {
		t.Fatalf("IR missing discriminator check:\n%s", ir)
	}
}

func TestGenerateBinaryArithmetic(t *testing.T) {
	ir := generate(t, "func main() -> int:\n    var x = 2 + 3 * 4\n    return x")
	if !strings.Contains(ir, "mul") || !strings.Contains(ir, "add") {
		t.Fatalf("IR missing arithmetic ops:\n%s", ir)
	}
}

func TestGenerateShortCircuitAnd(t *testing.T) {
	ir := generate(t, "func main() -> bool:\n    return true && false")
	if !strings.Contains(ir, "phi i1") {
		t.Fatalf("IR missing short-circuit phi:\n%s", ir)
	}
}

func TestGenerateWhileLoop(t *testing.T) {
	src := "func main() -> int:\n    var i = 0\n    while i < 3:\n        i += 1\n    return i"
	ir := generate(t, src)
	if !strings.Contains(ir, "br i1") {
		t.Fatalf("IR missing loop condition branch:\n%s", ir)
	}
}

func TestGenerateArrayLiteralAndGenerator(t *testing.T) {
	src := "func main() -> int:\n    var xs = [1, 2, 3]\n    var ys = [y + 1 for y in xs]\n    return 0"
	generate(t, src)
}

func TestGenerateArrayPatternCons(t *testing.T) {
	src := "func main() -> int:\n    var xs = [1, 2, 3]\n    var h = 0\n    var ys = [h|xs]\n    return 0"
	generate(t, src)
}

func TestGenerateLetExprAndLambda(t *testing.T) {
	src := "func main() -> int:\n    var add = @(x: int, y: int) => x + y\n    return let z = 1 in z + 1"
	generate(t, src)
}

func TestGenerateCompoundAssignment(t *testing.T) {
	src := "func main() -> int:\n    var x = 1\n    x += 2\n    x *= 3\n    return x"
	ir := generate(t, src)
	if !strings.Contains(ir, "store i64") {
		t.Fatalf("IR missing stores for compound assignment:\n%s", ir)
	}
}

func TestVerifyCatchesUndefinedRegister(t *testing.T) {
	ir := "define i32 @main() {\nentry:\n  ret i32 %r99\n}\n"
	problems := codegen.Verify(ir)
	if len(problems) == 0 {
		t.Fatal("Verify should flag a reference to an undefined register")
	}
}

func TestVerifyCatchesUndefinedLabel(t *testing.T) {
	ir := "define i32 @main() {\nentry:\n  br label %nope\n}\n"
	problems := codegen.Verify(ir)
	if len(problems) == 0 {
		t.Fatal("Verify should flag a branch to an undefined label")
	}
}

func TestVerifyAcceptsWellFormedIR(t *testing.T) {
	ir := "define i32 @main() {\nentry:\n  %r0 = add i32 1, 2\n  br label %done\ndone:\n  ret i32 %r0\n}\n"
	if problems := codegen.Verify(ir); len(problems) != 0 {
		t.Fatalf("Verify flagged well-formed IR: %v", problems)
	}
}
