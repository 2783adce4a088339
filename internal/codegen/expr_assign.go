package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// compoundOp maps a compound-assignment token to the binary operator it
// abbreviates, so genAssignment can reuse the ordinary arithmetic tables.
var compoundOp = map[lexer.Kind]lexer.Kind{
	lexer.OpPlusAssign:    lexer.OpPlus,
	lexer.OpMinusAssign:   lexer.OpMinus,
	lexer.OpStarAssign:    lexer.OpStar,
	lexer.OpSlashAssign:   lexer.OpSlash,
	lexer.OpPercentAssign: lexer.OpPercent,
}

// assignAddr resolves an assignment target to the address to store into and
// its LLVM type, covering the two lvalue shapes the resolver allows: a plain
// name and a struct field access.
func (g *Generator) assignAddr(target ast.Expression) (string, string, error) {
	switch t := target.(type) {
	case *ast.NameRef:
		lv, ok := g.locals[t.Name]
		if !ok {
			return "", "", fmt.Errorf("codegen: unknown assignment target %s", t.Name)
		}
		typ, err := g.mapType(lv.typ)
		if err != nil {
			return "", "", err
		}
		return lv.reg, typ, nil

	case *ast.MemberAccess:
		recvVal, _, err := g.genExpr(t.Receiver)
		if err != nil {
			return "", "", err
		}
		structName, _ := receiverStructName(t.Receiver.Type())
		idx, ok := g.structFields[structName][t.Name]
		if !ok {
			return "", "", fmt.Errorf("codegen: %s is not an assignable field of %s", t.Name, structName)
		}
		fieldType, err := g.mapType(t.Type())
		if err != nil {
			return "", "", err
		}
		structType := "%struct." + sanitizeName(structName)
		gep := g.nextReg()
		g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", gep, structType, structType, recvVal, idx))
		return gep, fieldType, nil

	default:
		return "", "", fmt.Errorf("codegen: unsupported assignment target %T", target)
	}
}

// genAssignment lowers both plain (`=`) and compound (`+=`, `-=`, ...)
// assignment, storing to the resolved lvalue address and yielding the stored
// value as the expression's own result.
func (g *Generator) genAssignment(e *ast.Assignment) (string, string, error) {
	addr, typ, err := g.assignAddr(e.Target)
	if err != nil {
		return "", "", err
	}

	if e.Op == lexer.OpAssign {
		val, _, err := g.genExpr(e.Value)
		if err != nil {
			return "", "", err
		}

		targetType := e.Target.Type()
		owned := isOwned(targetType)
		// Retain the incoming value before releasing the old one so a
		// self-assignment (`x = x`) never sees the refcount touch zero
		// between the two (spec §4.6.4: assignment both retains the new
		// owner and releases the one it replaces).
		if owned && !isFreshValue(e.Value) {
			if err := g.emitArcOp("arc_inc_ref", targetType, typ, val); err != nil {
				return "", "", err
			}
		}
		if owned {
			old := g.nextReg()
			g.emit(fmt.Sprintf("  %s = load %s, %s* %s", old, typ, typ, addr))
			if err := g.emitArcOp("arc_dec_ref", targetType, typ, old); err != nil {
				return "", "", err
			}
		}

		g.emit(fmt.Sprintf("  store %s %s, %s* %s", typ, val, typ, addr))
		return val, typ, nil
	}

	op, ok := compoundOp[e.Op]
	if !ok {
		return "", "", fmt.Errorf("codegen: unsupported assignment operator %s", e.Op)
	}
	cur := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load %s, %s* %s", cur, typ, typ, addr))
	rhs, _, err := g.genExpr(e.Value)
	if err != nil {
		return "", "", err
	}

	isFloat := typ == "double"
	result := g.nextReg()
	if isFloat {
		g.emit(fmt.Sprintf("  %s = %s double %s, %s", result, floatBinOp[op], cur, rhs))
	} else {
		g.emit(fmt.Sprintf("  %s = %s %s %s, %s", result, intBinOp[op], typ, cur, rhs))
	}
	g.emit(fmt.Sprintf("  store %s %s, %s* %s", typ, result, typ, addr))
	return result, typ, nil
}

// genLetExpr lowers `let name = value in body` as an alloca-and-store
// followed by inline evaluation of body in the same block.
func (g *Generator) genLetExpr(e *ast.LetExpr) (string, string, error) {
	val, typ, err := g.genExpr(e.Value)
	if err != nil {
		return "", "", err
	}
	slot := g.nextReg()
	g.emit(fmt.Sprintf("  %s = alloca %s", slot, typ))
	valueType := e.Value.Type()
	if isOwned(valueType) && !isFreshValue(e.Value) {
		if err := g.emitArcOp("arc_inc_ref", valueType, typ, val); err != nil {
			return "", "", err
		}
	}
	g.emit(fmt.Sprintf("  store %s %s, %s* %s", typ, val, typ, slot))

	prev, hadPrev := g.locals[e.Name]
	g.locals[e.Name] = localVar{reg: slot, typ: valueType}
	g.pushScope()
	g.trackOwned(e.Name, valueType)

	bodyVal, bodyTyp, err := g.genExpr(e.Body)
	scope := g.popScope()

	if hadPrev {
		g.locals[e.Name] = prev
	} else {
		delete(g.locals, e.Name)
	}
	if err != nil {
		return "", "", err
	}

	// `let x = ... in x` hands the binding's own value back out: retain it
	// before the binding's scope is released, the same escape pattern as a
	// return of a heap-owned value (spec §4.6.4).
	if isOwned(e.Body.Type()) && exprAliasesName(e.Body, []string{e.Name}) {
		if err := g.emitArcOp("arc_inc_ref", e.Body.Type(), bodyTyp, bodyVal); err != nil {
			return "", "", err
		}
	}
	if err := g.releaseScope(scope); err != nil {
		return "", "", err
	}
	return bodyVal, bodyTyp, nil
}

// genMatch lowers a match over union cases as a chain of discriminator
// checks (mirroring the teacher's genEnumMatch): one check/body block pair
// per case, binding each case's positional fields before its body runs. When
// expr is non-nil (the statement form passes nil) the case bodies' shared
// result type is materialized through a result alloca, matching the
// teacher's resultAlloca pattern for match-as-expression.
func (g *Generator) genMatch(subject ast.Expression, cases []*ast.MatchCase, expr ast.Expression) (string, error) {
	subjectVal, _, err := g.genExpr(subject)
	if err != nil {
		return "", err
	}
	unionName, ok := receiverStructName(subject.Type())
	if !ok {
		return "", fmt.Errorf("codegen: match subject is not a union value")
	}
	unionLLVM := "%union." + sanitizeName(unionName)

	var resultLLVM string
	var resultAlloca string
	if expr != nil {
		resultLLVM, err = g.mapType(expr.Type())
		if err != nil {
			return "", err
		}
		if resultLLVM != "void" {
			resultAlloca = g.nextReg()
			g.emit(fmt.Sprintf("  %s = alloca %s", resultAlloca, resultLLVM))
		}
	}

	tagGep := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 0", tagGep, unionLLVM, unionLLVM, subjectVal))
	tagVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load i32, i32* %s", tagVal, tagGep))

	checkLabels := make([]string, len(cases))
	bodyLabels := make([]string, len(cases))
	for i := range cases {
		checkLabels[i] = g.nextLabel("match.check")
		bodyLabels[i] = g.nextLabel("match.body")
	}
	endLabel := g.nextLabel("match.end")

	g.emit(fmt.Sprintf("  br label %%%s", checkLabels[0]))

	for i, c := range cases {
		nextLabel := endLabel
		if i+1 < len(checkLabels) {
			nextLabel = checkLabels[i+1]
		}

		g.startBlock(checkLabels[i])
		discriminator := g.unionCases[unionName][c.CaseName]
		cmp := g.nextReg()
		g.emit(fmt.Sprintf("  %s = icmp eq i32 %s, %d", cmp, tagVal, discriminator))
		g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", cmp, bodyLabels[i], nextLabel))

		g.startBlock(bodyLabels[i])
		g.pushScope()
		restore := g.bindCaseFields(c, unionName, subjectVal)

		bodyVal, bodyTyp, trailingExpr, err := g.genCaseBody(c.Body)
		caseScope := g.popScope()
		restore()
		if err != nil {
			return "", err
		}

		hadVal := trailingExpr != nil
		if expr != nil && resultLLVM != "void" && hadVal {
			g.emit(fmt.Sprintf("  store %s %s, %s* %s", bodyTyp, bodyVal, bodyTyp, resultAlloca))
		}
		if !blockHasTerminator(c.Body) {
			// A case arm that hands back one of its own bound fields
			// (`Ok(v): v`) needs that field retained before the case's
			// scope is released, the same escape pattern return/let use.
			if hadVal && isOwned(trailingExpr.Type()) && exprAliasesName(trailingExpr, c.Bindings) {
				if err := g.emitArcOp("arc_inc_ref", trailingExpr.Type(), bodyTyp, bodyVal); err != nil {
					return "", err
				}
			}
			if err := g.releaseScope(caseScope); err != nil {
				return "", err
			}
			g.emit(fmt.Sprintf("  br label %%%s", endLabel))
		}
	}

	g.startBlock(endLabel)
	if expr != nil && resultLLVM != "void" {
		result := g.nextReg()
		g.emit(fmt.Sprintf("  %s = load %s, %s* %s", result, resultLLVM, resultLLVM, resultAlloca))
		return result, nil
	}
	return "", nil
}

// bindCaseFields binds a case's positional field names (spec: bindings are
// positional, independent of the field names used at construction) into
// locals for the duration of the case body, returning a restore func.
func (g *Generator) bindCaseFields(c *ast.MatchCase, unionName, subjectVal string) func() {
	fieldTypes := g.unionCaseFieldType[c.CaseName]
	payloadType := g.unionPayloadType[unionName]
	unionLLVM := "%union." + sanitizeName(unionName)

	type saved struct {
		name string
		had  bool
		prev localVar
	}
	var restores []saved

	if len(c.Bindings) == 0 {
		return func() {}
	}

	payloadGep := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 1", payloadGep, unionLLVM, unionLLVM, subjectVal))
	casePayloadPtr := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast %s* %s to { %s }*", casePayloadPtr, payloadType, payloadGep, joinArgs(fieldTypes)))

	for i, name := range c.Bindings {
		if i >= len(fieldTypes) {
			break
		}
		ft := fieldTypes[i]
		fieldGep := g.nextReg()
		g.emit(fmt.Sprintf("  %s = getelementptr inbounds { %s }, { %s }* %s, i32 0, i32 %d", fieldGep, joinArgs(fieldTypes), joinArgs(fieldTypes), casePayloadPtr, i))

		slot := g.nextReg()
		g.emit(fmt.Sprintf("  %s = alloca %s", slot, ft))
		val := g.nextReg()
		g.emit(fmt.Sprintf("  %s = load %s, %s* %s", val, ft, ft, fieldGep))
		g.emit(fmt.Sprintf("  store %s %s, %s* %s", ft, val, ft, slot))

		prev, had := g.locals[name]
		restores = append(restores, saved{name: name, had: had, prev: prev})
		fieldGoType := g.unionCaseFieldGoType[c.CaseName][i]
		g.locals[name] = localVar{reg: slot, typ: fieldGoType}
		g.trackOwned(name, fieldGoType)
	}

	return func() {
		for _, r := range restores {
			if r.had {
				g.locals[r.name] = r.prev
			} else {
				delete(g.locals, r.name)
			}
		}
	}
}

// genCaseBody runs a case's block and reports its trailing expression
// statement, if any, both its generated value and the source expression
// itself, so genMatch can check whether that value aliases one of the
// case's own bindings before releasing them.
func (g *Generator) genCaseBody(b *ast.Block) (string, string, ast.Expression, error) {
	for i, stmt := range b.Stmts {
		isLast := i == len(b.Stmts)-1
		if isLast {
			if es, ok := stmt.(*ast.ExpressionStmt); ok {
				val, typ, err := g.genExpr(es.Expr)
				return val, typ, es.Expr, err
			}
		}
		if err := g.genStmt(stmt); err != nil {
			return "", "", nil, err
		}
	}
	return "", "", nil, nil
}
