package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// receiverStructName extracts the nominal struct/union name addressed by a
// receiver type, looking through one level of Pointer.
func receiverStructName(t ast.Type) (string, bool) {
	switch v := t.(type) {
	case ast.StructType:
		return v.Name, true
	case ast.UnionType:
		return v.Name, true
	case ast.Pointer:
		return receiverStructName(v.Inner)
	default:
		return "", false
	}
}

// genMemberAccess lowers `receiver.field` to a GEP-then-load sequence, or
// materializes a bound method reference when Name names a method rather
// than a field (spec §3.2: method values can be passed around like any
// other function value).
func (g *Generator) genMemberAccess(e *ast.MemberAccess) (string, string, error) {
	recvVal, _, err := g.genExpr(e.Receiver)
	if err != nil {
		return "", "", err
	}

	structName, _ := receiverStructName(e.Receiver.Type())

	idx, ok := g.structFields[structName][e.Name]
	if !ok {
		// Not a field: a bound method reference. resolveCall handles the
		// actual dispatch directly off the receiver, so a bare member access
		// to a method only needs to produce a stable function pointer value.
		typ, err := g.mapType(e.Type())
		if err != nil {
			return "", "", err
		}
		return "@" + mangledLLVMName(structName+"::"+e.Name), typ, nil
	}

	fieldType, err := g.mapType(e.Type())
	if err != nil {
		return "", "", err
	}
	structType := "%struct." + sanitizeName(structName)
	gep := g.nextReg()
	g.emit(fmt.Sprintf("  %s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d", gep, structType, structType, recvVal, idx))
	load := g.nextReg()
	g.emit(fmt.Sprintf("  %s = load %s, %s* %s", load, fieldType, fieldType, gep))
	return load, fieldType, nil
}
