package codegen

import (
	"fmt"
	"strconv"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// genExpr lowers expr to an SSA value (or an immediate constant for
// literals) and returns both the value text and its LLVM type spelling,
// since almost every caller needs the pair together (a store, a call
// argument, a return).
func (g *Generator) genExpr(expr ast.Expression) (string, string, error) {
	typ, err := g.mapType(expr.Type())
	if err != nil {
		return "", "", err
	}

	switch e := expr.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(e.Value, 10), typ, nil

	case *ast.FloatLiteral:
		return strconv.FormatFloat(e.Value, 'e', -1, 64), typ, nil

	case *ast.BoolLiteral:
		if e.Value {
			return "1", typ, nil
		}
		return "0", typ, nil

	case *ast.StringLiteral:
		return g.genStringLiteral(e)

	case *ast.Paren:
		return g.genExpr(e.Inner)

	case *ast.NameRef:
		return g.genNameRef(e)

	case *ast.UnaryOp:
		return g.genUnaryOp(e)

	case *ast.BinaryOp:
		return g.genBinaryOp(e)

	case *ast.Call:
		return g.genCall(e)

	case *ast.MemberAccess:
		return g.genMemberAccess(e)

	case *ast.ObjectConstruction:
		return g.genObjectConstruction(e)

	case *ast.ArrayLiteral:
		return g.genArrayLiteral(e)

	case *ast.ArrayGenerator:
		return g.genArrayGenerator(e)

	case *ast.ArrayPattern:
		return g.genArrayPattern(e)

	case *ast.ArrayToSliceConversion:
		return g.genExpr(e.Inner)

	case *ast.Assignment:
		return g.genAssignment(e)

	case *ast.LetExpr:
		return g.genLetExpr(e)

	case *ast.Lambda:
		return g.genLambda(e)

	case *ast.NestedFunction:
		return g.genNestedFunctionExpr(e)

	case *ast.MatchExpr:
		val, err := g.genMatch(e.Subject, e.Cases, e)
		return val, typ, err

	default:
		return "", "", fmt.Errorf("codegen: unsupported expression %T", expr)
	}
}

func (g *Generator) genStringLiteral(e *ast.StringLiteral) (string, string, error) {
	name := fmt.Sprintf("@.str.%d", g.regCounter)
	g.regCounter++
	escaped, n := escapeStringForLLVM(e.Value)
	if !g.globalNames[name] {
		g.emitGlobal(fmt.Sprintf("%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"", name, n+1, escaped))
		g.globalNames[name] = true
	}
	ptr := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds [%d x i8], [%d x i8]* %s, i64 0, i64 0", ptr, n+1, n+1, name))
	return ptr, "i8*", nil
}

func escapeStringForLLVM(s string) (string, int) {
	out := ""
	n := 0
	for _, r := range []byte(s) {
		switch {
		case r == '\\':
			out += "\\5C"
		case r == '"':
			out += "\\22"
		case r >= 32 && r < 127:
			out += string(r)
		default:
			out += fmt.Sprintf("\\%02X", r)
		}
		n++
	}
	return out, n
}

// genNameRef loads a local/parameter binding, or materializes a free
// function reference as its symbol address.
func (g *Generator) genNameRef(e *ast.NameRef) (string, string, error) {
	if lv, ok := g.locals[e.Name]; ok {
		typ, err := g.mapType(lv.typ)
		if err != nil {
			return "", "", err
		}
		reg := g.nextReg()
		g.emit(fmt.Sprintf("  %s = load %s, %s* %s", reg, typ, typ, lv.reg))
		return reg, typ, nil
	}
	typ, err := g.mapType(e.Type())
	if err != nil {
		return "", "", err
	}
	return "@" + mangledLLVMName(e.Name), typ, nil
}

func (g *Generator) genUnaryOp(e *ast.UnaryOp) (string, string, error) {
	val, typ, err := g.genExpr(e.Operand)
	if err != nil {
		return "", "", err
	}
	switch e.Op {
	case lexer.OpMinus:
		reg := g.nextReg()
		if typ == "double" {
			g.emit(fmt.Sprintf("  %s = fsub double 0.0, %s", reg, val))
		} else {
			g.emit(fmt.Sprintf("  %s = sub %s 0, %s", reg, typ, val))
		}
		return reg, typ, nil
	case lexer.OpNot:
		reg := g.nextReg()
		g.emit(fmt.Sprintf("  %s = xor i1 %s, 1", reg, val))
		return reg, "i1", nil
	default:
		return "", "", fmt.Errorf("codegen: unsupported unary operator %s", e.Op)
	}
}

var intBinOp = map[lexer.Kind]string{
	lexer.OpPlus: "add", lexer.OpMinus: "sub", lexer.OpStar: "mul",
	lexer.OpSlash: "sdiv", lexer.OpPercent: "srem",
}
var floatBinOp = map[lexer.Kind]string{
	lexer.OpPlus: "fadd", lexer.OpMinus: "fsub", lexer.OpStar: "fmul", lexer.OpSlash: "fdiv",
}
var intCmpOp = map[lexer.Kind]string{
	lexer.OpEq: "eq", lexer.OpNotEq: "ne", lexer.OpLt: "slt",
	lexer.OpLe: "sle", lexer.OpGt: "sgt", lexer.OpGe: "sge",
}
var floatCmpOp = map[lexer.Kind]string{
	lexer.OpEq: "oeq", lexer.OpNotEq: "one", lexer.OpLt: "olt",
	lexer.OpLe: "ole", lexer.OpGt: "ogt", lexer.OpGe: "oge",
}

func (g *Generator) genBinaryOp(e *ast.BinaryOp) (string, string, error) {
	if e.Op == lexer.OpPlus && isStringType(e.Left.Type()) {
		return g.genStringConcat(e)
	}
	if e.Op == lexer.OpAnd || e.Op == lexer.OpOr {
		return g.genShortCircuit(e)
	}

	lval, ltyp, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	rval, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}

	isFloat := ltyp == "double"
	reg := g.nextReg()

	if op, ok := intCmpOp[e.Op]; ok {
		if isFloat {
			g.emit(fmt.Sprintf("  %s = fcmp %s double %s, %s", reg, floatCmpOp[e.Op], lval, rval))
		} else {
			g.emit(fmt.Sprintf("  %s = icmp %s %s %s, %s", reg, op, ltyp, lval, rval))
		}
		return reg, "i1", nil
	}

	if isFloat {
		g.emit(fmt.Sprintf("  %s = %s double %s, %s", reg, floatBinOp[e.Op], lval, rval))
	} else {
		g.emit(fmt.Sprintf("  %s = %s %s %s, %s", reg, intBinOp[e.Op], ltyp, lval, rval))
	}
	return reg, ltyp, nil
}

// genShortCircuit lowers && and || with branches rather than eager
// evaluation, the same short-circuit contract as the source language's
// boolean operators (spec §4.1).
func (g *Generator) genShortCircuit(e *ast.BinaryOp) (string, string, error) {
	lval, _, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	lhsLabel := g.currentLabel
	rhsLabel := g.nextLabel("sc.rhs")
	endLabel := g.nextLabel("sc.end")

	if e.Op == lexer.OpAnd {
		g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", lval, rhsLabel, endLabel))
	} else {
		g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", lval, endLabel, rhsLabel))
	}

	g.startBlock(rhsLabel)
	rval, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	rhsEndLabel := g.currentLabel
	g.emit(fmt.Sprintf("  br label %%%s", endLabel))

	g.startBlock(endLabel)
	reg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = phi i1 [ %s, %%%s ], [ %s, %%%s ]", reg, lval, lhsLabel, rval, rhsEndLabel))
	return reg, "i1", nil
}

func (g *Generator) genStringConcat(e *ast.BinaryOp) (string, string, error) {
	lval, _, err := g.genExpr(e.Left)
	if err != nil {
		return "", "", err
	}
	rval, _, err := g.genExpr(e.Right)
	if err != nil {
		return "", "", err
	}
	llen := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i64 @strlen(i8* %s)", llen, lval))
	rlen := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i64 @strlen(i8* %s)", rlen, rval))
	reg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i8* @concat(i8* %s, i64 %s, i8* %s, i64 %s)", reg, lval, llen, rval, rlen))
	return reg, "i8*", nil
}

func isStringType(t ast.Type) bool {
	p, ok := t.(ast.Primitive)
	return ok && p.Kind == ast.StringPrim
}
