package codegen

import (
	"fmt"

	"github.com/nomad-lang/nomadc/internal/ast"
)

// mapType converts a resolved Nomad type to its LLVM IR spelling (spec
// §4.5): structs and unions are pointers to named aggregates, arrays are
// `{data, length}` pairs over an owned element buffer, slices are the same
// pair over a borrowed one.
func (g *Generator) mapType(t ast.Type) (string, error) {
	switch v := t.(type) {
	case nil:
		return "void", nil
	case ast.Unknown:
		return "", fmt.Errorf("codegen: unresolved type reached codegen")
	case ast.Primitive:
		return mapPrimitive(v.Kind), nil
	case ast.Pointer:
		inner, err := g.mapType(v.Inner)
		if err != nil {
			return "", err
		}
		return inner + "*", nil
	case ast.Array:
		elem, err := g.mapType(v.Element)
		if err != nil {
			return "", err
		}
		return "{" + elem + "*, i64}", nil
	case ast.Slice:
		elem, err := g.mapType(v.Element)
		if err != nil {
			return "", err
		}
		return "{" + elem + "*, i64}", nil
	case ast.StructType:
		return "%struct." + sanitizeName(v.Name) + "*", nil
	case ast.UnionType:
		return "%union." + sanitizeName(v.Name) + "*", nil
	case ast.FuncType:
		ret, err := g.mapType(v.Return)
		if err != nil {
			return "", err
		}
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			at, err := g.mapType(a)
			if err != nil {
				return "", err
			}
			args[i] = at
		}
		return ret + " (" + joinArgs(args) + ")*", nil
	default:
		return "", fmt.Errorf("codegen: unsupported type %T", t)
	}
}

func mapPrimitive(kind ast.PrimitiveKind) string {
	switch kind {
	case ast.Int:
		return "i64"
	case ast.UInt:
		return "i64"
	case ast.Float:
		return "double"
	case ast.Bool:
		return "i1"
	case ast.Char:
		return "i32"
	case ast.StringPrim:
		return "i8*"
	case ast.Void:
		return "void"
	case ast.VoidPtr:
		return "i8*"
	default:
		return "i64"
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

// isOwned reports whether a value of type t holds an ARC-managed heap
// allocation (spec §4.5 ARC discipline): struct and union values are
// always heap objects; arrays are owned buffers; slices merely borrow one.
func isOwned(t ast.Type) bool {
	switch t.(type) {
	case ast.StructType, ast.UnionType, ast.Array:
		return true
	default:
		return false
	}
}
