package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// heapAlloc emits the `getelementptr null, 1 | ptrtoint` idiom to compute
// sizeof(llvmType), allocates that many bytes through the ARC runtime, and
// bitcasts the result to llvmType* (spec §6.3: every struct/union value is
// an arc_alloc'd heap object).
func (g *Generator) heapAlloc(llvmType string) (string, error) {
	sizeReg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = ptrtoint %s* getelementptr (%s, %s* null, i32 1) to i64", sizeReg, llvmType, llvmType, llvmType))
	memReg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i8* @arc_alloc(i64 %s)", memReg, sizeReg))
	objReg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast i8* %s to %s*", objReg, memReg, llvmType))
	return objReg, nil
}

// genObjectConstruction lowers `TypeName{field: value, ...}` to a heap
// allocation followed by one store per field (spec §3.2).
func (g *Generator) genObjectConstruction(e *ast.ObjectConstruction) (string, string, error) {
	if fieldIdx, ok := g.structFields[e.TypeName]; ok {
		return g.genStructConstruction(e, fieldIdx)
	}
	if unionName, ok := g.unionCaseOwner[e.TypeName]; ok {
		return g.genUnionConstruction(e, unionName)
	}
	return "", "", fmt.Errorf("codegen: unknown struct or union case %s", e.TypeName)
}

func (g *Generator) genStructConstruction(e *ast.ObjectConstruction, fieldIdx map[string]int) (string, string, error) {
	structType := "%struct." + sanitizeName(e.TypeName)
	obj, err := g.heapAlloc(structType)
	if err != nil {
		return "", "", err
	}

	for _, f := range e.Fields {
		idx, ok := fieldIdx[f.Name]
		if !ok {
			return "", "", fmt.Errorf("codegen: unknown field %s on %s", f.Name, e.TypeName)
		}
		val, valType, err := g.genExpr(f.Value)
		if err != nil {
			return "", "", err
		}
		if isOwned(f.Value.Type()) && !isFreshValue(f.Value) {
			if err := g.emitArcOp("arc_inc_ref", f.Value.Type(), valType, val); err != nil {
				return "", "", err
			}
		}
		gep := g.nextReg()
		g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", gep, structType, structType, obj, idx))
		g.emit(fmt.Sprintf("  store %s %s, %s* %s", valType, val, valType, gep))
	}

	return obj, structType + "*", nil
}

func (g *Generator) genUnionConstruction(e *ast.ObjectConstruction, unionName string) (string, string, error) {
	unionType := "%union." + sanitizeName(unionName)
	obj, err := g.heapAlloc(unionType)
	if err != nil {
		return "", "", err
	}

	discriminator := g.unionCases[unionName][e.TypeName]
	discPtr := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 0", discPtr, unionType, unionType, obj))
	g.emit(fmt.Sprintf("  store i32 %d, i32* %s", discriminator, discPtr))

	payloadTypes := g.unionCaseFieldType[e.TypeName]
	caseType := "{ " + joinArgs(payloadTypes) + " }"
	widestPayloadType := g.unionPayloadType[unionName]
	payloadPtr := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 1", payloadPtr, unionType, unionType, obj))
	castPtr := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast %s* %s to %s*", castPtr, widestPayloadType, payloadPtr, caseType))

	fieldIdx := g.unionCaseFieldIdx[e.TypeName]
	for _, f := range e.Fields {
		idx, ok := fieldIdx[f.Name]
		if !ok {
			return "", "", fmt.Errorf("codegen: unknown field %s on case %s", f.Name, e.TypeName)
		}
		val, valType, err := g.genExpr(f.Value)
		if err != nil {
			return "", "", err
		}
		if isOwned(f.Value.Type()) && !isFreshValue(f.Value) {
			if err := g.emitArcOp("arc_inc_ref", f.Value.Type(), valType, val); err != nil {
				return "", "", err
			}
		}
		gep := g.nextReg()
		g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", gep, caseType, caseType, castPtr, idx))
		g.emit(fmt.Sprintf("  store %s %s, %s* %s", valType, val, valType, gep))
	}

	return obj, unionType + "*", nil
}

// genArrayLiteral allocates an owned `{data, length}` pair and stores every
// element (spec §9 Open Question (a): array literals are owned by default).
func (g *Generator) genArrayLiteral(e *ast.ArrayLiteral) (string, string, error) {
	arrType := e.Type().(ast.Array)
	elemType, err := g.mapType(arrType.Element)
	if err != nil {
		return "", "", err
	}
	n := len(e.Elements)

	sizeReg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = mul i64 %d, ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64)", sizeReg, n, elemType, elemType, elemType))
	memReg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i8* @arc_alloc(i64 %s)", memReg, sizeReg))
	dataReg := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast i8* %s to %s*", dataReg, memReg, elemType))

	for i, el := range e.Elements {
		val, _, err := g.genExpr(el)
		if err != nil {
			return "", "", err
		}
		if isOwned(arrType.Element) && !isFreshValue(el) {
			if err := g.emitArcOp("arc_inc_ref", arrType.Element, elemType, val); err != nil {
				return "", "", err
			}
		}
		gep := g.nextReg()
		g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i64 %d", gep, elemType, elemType, dataReg, i))
		g.emit(fmt.Sprintf("  store %s %s, %s* %s", elemType, val, elemType, gep))
	}

	pairType := "{" + elemType + "*, i64}"
	pair := g.nextReg()
	g.emit(fmt.Sprintf("  %s = insertvalue %s undef, %s* %s, 0", pair, pairType, elemType, dataReg))
	full := g.nextReg()
	g.emit(fmt.Sprintf("  %s = insertvalue %s %s, i64 %d, 1", full, pairType, pair, n))
	return full, pairType, nil
}

// sequenceElement reports the element type of an Array or Slice.
func sequenceElement(t ast.Type) (ast.Type, bool) {
	switch v := t.(type) {
	case ast.Array:
		return v.Element, true
	case ast.Slice:
		return v.Element, true
	default:
		return nil, false
	}
}

// genArrayGenerator lowers `[body for binder in iterable]` as a counted
// while loop that fills a freshly allocated owned array the same length as
// the source sequence.
func (g *Generator) genArrayGenerator(e *ast.ArrayGenerator) (string, string, error) {
	srcVal, srcType, err := g.genExpr(e.Iterable)
	if err != nil {
		return "", "", err
	}
	srcElemGoType, _ := sequenceElement(e.Iterable.Type())
	srcElemType, err := g.mapType(srcElemGoType)
	if err != nil {
		return "", "", err
	}

	resultType := e.Type().(ast.Array)
	elemType, err := g.mapType(resultType.Element)
	if err != nil {
		return "", "", err
	}

	srcData := g.nextReg()
	g.emit(fmt.Sprintf("  %s = extractvalue %s %s, 0", srcData, srcType, srcVal))
	srcLen := g.nextReg()
	g.emit(fmt.Sprintf("  %s = extractvalue %s %s, 1", srcLen, srcType, srcVal))

	dstSize := g.nextReg()
	g.emit(fmt.Sprintf("  %s = mul i64 %s, ptrtoint (%s* getelementptr (%s, %s* null, i32 1) to i64)", dstSize, srcLen, elemType, elemType, elemType))
	dstMem := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i8* @arc_alloc(i64 %s)", dstMem, dstSize))
	dstData := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast i8* %s to %s*", dstData, dstMem, elemType))

	idxSlot := g.nextReg()
	g.emit(fmt.Sprintf("  %s = alloca i64", idxSlot))
	g.emit(fmt.Sprintf("  store i64 0, i64* %s", idxSlot))

	condLabel := g.nextLabel("gen.cond")
	bodyLabel := g.nextLabel("gen.body")
	endLabel := g.nextLabel("gen.end")

	g.emit(fmt.Sprintf("  br label %%%s", condLabel))
	g.startBlock(condLabel)
	idxVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load i64, i64* %s", idxVal, idxSlot))
	cmpVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = icmp slt i64 %s, %s", cmpVal, idxVal, srcLen))
	g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", cmpVal, bodyLabel, endLabel))

	g.startBlock(bodyLabel)
	srcGep := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i64 %s", srcGep, srcElemType, srcElemType, srcData, idxVal))
	elemVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load %s, %s* %s", elemVal, srcElemType, srcElemType, srcGep))

	binderSlot := g.nextReg()
	g.emit(fmt.Sprintf("  %s = alloca %s", binderSlot, srcElemType))
	g.emit(fmt.Sprintf("  store %s %s, %s* %s", srcElemType, elemVal, srcElemType, binderSlot))
	g.locals[e.Binder] = localVar{reg: binderSlot, typ: srcElemGoType}

	bodyVal, _, err := g.genExpr(e.Body)
	if err != nil {
		return "", "", err
	}
	delete(g.locals, e.Binder)

	if isOwned(resultType.Element) && !isFreshValue(e.Body) {
		if err := g.emitArcOp("arc_inc_ref", resultType.Element, elemType, bodyVal); err != nil {
			return "", "", err
		}
	}

	dstGep := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i64 %s", dstGep, elemType, elemType, dstData, idxVal))
	g.emit(fmt.Sprintf("  store %s %s, %s* %s", elemType, bodyVal, elemType, dstGep))

	nextIdx := g.nextReg()
	g.emit(fmt.Sprintf("  %s = add i64 %s, 1", nextIdx, idxVal))
	g.emit(fmt.Sprintf("  store i64 %s, i64* %s", nextIdx, idxSlot))
	g.emit(fmt.Sprintf("  br label %%%s", condLabel))

	g.startBlock(endLabel)
	pairType := "{" + elemType + "*, i64}"
	pair := g.nextReg()
	g.emit(fmt.Sprintf("  %s = insertvalue %s undef, %s* %s, 0", pair, pairType, elemType, dstData))
	full := g.nextReg()
	g.emit(fmt.Sprintf("  %s = insertvalue %s %s, i64 %s, 1", full, pairType, pair, srcLen))
	return full, pairType, nil
}

// genArrayPattern lowers the cons-constructor reading of `[head|tail]`
// (resolver decision, see resolver/expr.go): allocate a new owned array one
// element longer than Tail, store Head at index 0, and memcpy Tail's
// backing buffer into the remainder.
func (g *Generator) genArrayPattern(e *ast.ArrayPattern) (string, string, error) {
	headLocal, ok := g.locals[e.Head]
	if !ok {
		return "", "", fmt.Errorf("codegen: unknown name %s", e.Head)
	}
	tailLocal, ok := g.locals[e.Tail]
	if !ok {
		return "", "", fmt.Errorf("codegen: unknown name %s", e.Tail)
	}

	elemType, err := g.mapType(headLocal.typ)
	if err != nil {
		return "", "", err
	}
	tailType, err := g.mapType(tailLocal.typ)
	if err != nil {
		return "", "", err
	}

	headVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load %s, %s* %s", headVal, elemType, elemType, headLocal.reg))
	// headVal is always a read of an existing slot, never a fresh
	// construction, so the new array's copy of it is always retained.
	if isOwned(headLocal.typ) {
		if err := g.emitArcOp("arc_inc_ref", headLocal.typ, elemType, headVal); err != nil {
			return "", "", err
		}
	}
	tailVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load %s, %s* %s", tailVal, tailType, tailType, tailLocal.reg))

	tailData := g.nextReg()
	g.emit(fmt.Sprintf("  %s = extractvalue %s %s, 0", tailData, tailType, tailVal))
	tailLen := g.nextReg()
	g.emit(fmt.Sprintf("  %s = extractvalue %s %s, 1", tailLen, tailType, tailVal))

	newLen := g.nextReg()
	g.emit(fmt.Sprintf("  %s = add i64 %s, 1", newLen, tailLen))
	elemSize := g.nextReg()
	g.emit(fmt.Sprintf("  %s = ptrtoint %s* getelementptr (%s, %s* null, i32 1) to i64", elemSize, elemType, elemType, elemType))
	totalSize := g.nextReg()
	g.emit(fmt.Sprintf("  %s = mul i64 %s, %s", totalSize, newLen, elemSize))
	mem := g.nextReg()
	g.emit(fmt.Sprintf("  %s = call i8* @arc_alloc(i64 %s)", mem, totalSize))
	newData := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast i8* %s to %s*", newData, mem, elemType))

	g.emit(fmt.Sprintf("  store %s %s, %s* %s", elemType, headVal, elemType, newData))
	restDst := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i64 1", restDst, elemType, elemType, newData))
	restDstBytes := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast %s* %s to i8*", restDstBytes, elemType, restDst))
	tailDataBytes := g.nextReg()
	g.emit(fmt.Sprintf("  %s = bitcast %s* %s to i8*", tailDataBytes, elemType, tailData))
	tailBytes := g.nextReg()
	g.emit(fmt.Sprintf("  %s = mul i64 %s, %s", tailBytes, tailLen, elemSize))
	g.emit(fmt.Sprintf("  call i8* @memcpy(i8* %s, i8* %s, i64 %s)", restDstBytes, tailDataBytes, tailBytes))

	// memcpy only duplicates the element pointers themselves; when those
	// elements are owned, the new array needs its own reference to each one
	// it now shares with tail (spec §4.6.4).
	if elemGoType, ok := sequenceElement(tailLocal.typ); ok && isOwned(elemGoType) {
		if err := g.retainCopiedRange(restDst, elemType, elemGoType, tailLen); err != nil {
			return "", "", err
		}
	}

	pairType := "{" + elemType + "*, i64}"
	pair := g.nextReg()
	g.emit(fmt.Sprintf("  %s = insertvalue %s undef, %s* %s, 0", pair, pairType, elemType, newData))
	full := g.nextReg()
	g.emit(fmt.Sprintf("  %s = insertvalue %s %s, i64 %s, 1", full, pairType, pair, newLen))
	return full, pairType, nil
}

// retainCopiedRange walks the count owned elements starting at data and
// retains each one, for a destination array that now shares ownership of a
// source array's backing elements after a raw memcpy.
func (g *Generator) retainCopiedRange(data, elemType string, elemGoType ast.Type, count string) error {
	idxSlot := g.nextReg()
	g.emit(fmt.Sprintf("  %s = alloca i64", idxSlot))
	g.emit(fmt.Sprintf("  store i64 0, i64* %s", idxSlot))

	condLabel := g.nextLabel("retain.cond")
	bodyLabel := g.nextLabel("retain.body")
	doneLabel := g.nextLabel("retain.done")

	g.emit(fmt.Sprintf("  br label %%%s", condLabel))
	g.startBlock(condLabel)
	idxVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load i64, i64* %s", idxVal, idxSlot))
	cmp := g.nextReg()
	g.emit(fmt.Sprintf("  %s = icmp slt i64 %s, %s", cmp, idxVal, count))
	g.emit(fmt.Sprintf("  br i1 %s, label %%%s, label %%%s", cmp, bodyLabel, doneLabel))

	g.startBlock(bodyLabel)
	elemGep := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i64 %s", elemGep, elemType, elemType, data, idxVal))
	elemVal := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load %s, %s* %s", elemVal, elemType, elemType, elemGep))
	if err := g.emitArcOp("arc_inc_ref", elemGoType, elemType, elemVal); err != nil {
		return err
	}
	nextIdx := g.nextReg()
	g.emit(fmt.Sprintf("  %s = add i64 %s, 1", nextIdx, idxVal))
	g.emit(fmt.Sprintf("  store i64 %s, i64* %s", nextIdx, idxSlot))
	g.emit(fmt.Sprintf("  br label %%%s", condLabel))

	g.startBlock(doneLabel)
	return nil
}
