package ast

import "fmt"

// PassMode is the argument-passing convention derived once from a Type and
// carried on the AST so codegen never has to re-derive it (spec §9).
type PassMode int

const (
	ByValue PassMode = iota
	ByPtr
)

// Type is the closed set of type-variants named in spec §3.3, realized as
// a Go interface with small value-type implementations rather than a
// tagged enum: idiomatic Go prefers this to a Rust-style sum type.
type Type interface {
	typeTag()
	String() string
}

// PassMode derives the calling convention for a value of type t: ByValue
// for primitives and pointer-sized types, ByPtr for aggregates.
func PassModeFor(t Type) PassMode {
	switch t.(type) {
	case StructType, UnionType, Array, Slice:
		return ByPtr
	default:
		return ByValue
	}
}

// PrimitiveKind enumerates the scalar primitive types.
type PrimitiveKind int

const (
	Int PrimitiveKind = iota
	UInt
	Float
	Bool
	Char
	StringPrim
	Void
	VoidPtr
)

var primitiveNames = map[PrimitiveKind]string{
	Int: "int", UInt: "uint", Float: "float", Bool: "bool",
	Char: "char", StringPrim: "string", Void: "void", VoidPtr: "voidptr",
}

// Primitive is one of Int, UInt, Float, Bool, Char, String, Void, VoidPtr.
type Primitive struct{ Kind PrimitiveKind }

func (Primitive) typeTag() {}
func (p Primitive) String() string { return primitiveNames[p.Kind] }

// Unknown is the "not yet inferred" sentinel (spec §9). After resolution no
// AST node may carry it.
type Unknown struct{}

func (Unknown) typeTag()       {}
func (Unknown) String() string { return "<unknown>" }

// IsUnknown reports whether t is the Unknown sentinel.
func IsUnknown(t Type) bool {
	_, ok := t.(Unknown)
	return ok || t == nil
}

// Pointer is Type::Pointer(inner).
type Pointer struct{ Inner Type }

func (Pointer) typeTag()         {}
func (p Pointer) String() string { return "*" + p.Inner.String() }

// Array is Type::Array(element, length?); Length is -1 when unknown.
type Array struct {
	Element Type
	Length  int
}

func (Array) typeTag() {}
func (a Array) String() string {
	if a.Length < 0 {
		return fmt.Sprintf("[%s]", a.Element)
	}
	return fmt.Sprintf("[%s; %d]", a.Element, a.Length)
}

// Slice is Type::Slice(element): a {data pointer, length} pair.
type Slice struct{ Element Type }

func (Slice) typeTag()         {}
func (s Slice) String() string { return "[" + s.Element.String() + "]" }

// StructType is a nominal reference to a struct declaration.
type StructType struct{ Name string }

func (StructType) typeTag()         {}
func (s StructType) String() string { return s.Name }

// UnionType is a nominal reference to a union declaration.
type UnionType struct{ Name string }

func (UnionType) typeTag()         {}
func (u UnionType) String() string { return u.Name }

// FuncType is structural: Type::Func(return, [argument-types]).
type FuncType struct {
	Return Type
	Args   []Type
}

func (FuncType) typeTag() {}
func (f FuncType) String() string {
	s := "func("
	for i, a := range f.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ") -> " + f.Return.String()
}

// Equal reports structural equality of two types, used by the resolver for
// arithmetic-operand and return-type checks (spec §4.4).
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av.Kind == bv.Kind
	case Pointer:
		bv, ok := b.(Pointer)
		return ok && Equal(av.Inner, bv.Inner)
	case Array:
		bv, ok := b.(Array)
		return ok && av.Length == bv.Length && Equal(av.Element, bv.Element)
	case Slice:
		bv, ok := b.(Slice)
		return ok && Equal(av.Element, bv.Element)
	case StructType:
		bv, ok := b.(StructType)
		return ok && av.Name == bv.Name
	case UnionType:
		bv, ok := b.(UnionType)
		return ok && av.Name == bv.Name
	case FuncType:
		bv, ok := b.(FuncType)
		if !ok || len(av.Args) != len(bv.Args) || !Equal(av.Return, bv.Return) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	case Unknown:
		_, ok := b.(Unknown)
		return ok
	default:
		return false
	}
}

// IsNumeric reports whether t is Int, UInt or Float.
func IsNumeric(t Type) bool {
	p, ok := t.(Primitive)
	return ok && (p.Kind == Int || p.Kind == UInt || p.Kind == Float)
}

// IsBool reports whether t is Bool.
func IsBool(t Type) bool {
	p, ok := t.(Primitive)
	return ok && p.Kind == Bool
}
