package bytecode

import (
	"fmt"

	"github.com/zinc-lang/zinc/lang/types"
)

// TypeTag is the one-byte discriminant of a serialized Type (§6 "Bytecode
// artifact": "Types are serialized as a recursive tag-union").
type TypeTag uint8

const (
	TagUnit TypeTag = iota
	TagBool
	TagInt
	TagField
	TagString
	TagArray
	TagTuple
	TagStruct
	TagEnum
	TagContract
)

// Type is the artifact-serializable shape of a lang/types.Type: unlike the
// in-memory semantic type, it carries no nominal UniqueID (a bytecode
// artifact crosses process boundaries, so struct/enum identity is by name
// plus shape) and drops Function entirely (functions are never a runtime
// value; a Call's target is a plain address).
type Type struct {
	Tag      TypeTag
	Signed   bool   // TagInt
	Bits     int    // TagInt
	Element  *Type  // TagArray
	Size     int    // TagArray
	Elements []Type // TagTuple
	Name     string // TagStruct, TagEnum, TagContract
	Fields   []Field
	Variants []Variant
}

// Field is one named, typed component of a struct or contract storage type.
type Field struct {
	Name string
	Type Type
}

// Variant is one named, valued arm of an enum type.
type Variant struct {
	Name  string
	Value int64
}

// FromSemantic lowers a resolved lang/types.Type into its serializable form.
func FromSemantic(t types.Type) Type {
	switch tt := t.(type) {
	case types.UnitType:
		return Type{Tag: TagUnit}
	case types.BoolType:
		return Type{Tag: TagBool}
	case types.IntSignedType:
		return Type{Tag: TagInt, Signed: true, Bits: tt.Bits}
	case types.IntUnsignedType:
		return Type{Tag: TagInt, Signed: false, Bits: tt.Bits}
	case types.FieldType:
		return Type{Tag: TagField}
	case types.StringType:
		return Type{Tag: TagString}
	case types.ArrayType:
		elem := FromSemantic(tt.Element)
		return Type{Tag: TagArray, Element: &elem, Size: tt.Size}
	case types.TupleType:
		elems := make([]Type, len(tt.Elements))
		for i, e := range tt.Elements {
			elems[i] = FromSemantic(e)
		}
		return Type{Tag: TagTuple, Elements: elems}
	case *types.StructureType:
		fields := make([]Field, len(tt.Fields))
		for i, f := range tt.Fields {
			fields[i] = Field{Name: f.Name, Type: FromSemantic(f.Type)}
		}
		return Type{Tag: TagStruct, Name: tt.Name, Fields: fields}
	case *types.EnumerationType:
		variants := make([]Variant, len(tt.Variants))
		for i, v := range tt.Variants {
			variants[i] = Variant{Name: v.Name, Value: v.Value}
		}
		return Type{Tag: TagEnum, Name: tt.Name, Variants: variants}
	case *types.ContractType:
		fields := make([]Field, len(tt.Storage))
		for i, f := range tt.Storage {
			fields[i] = Field{Name: f.Name, Type: FromSemantic(f.Type)}
		}
		return Type{Tag: TagContract, Name: tt.Name, Fields: fields}
	default:
		// Function values never reach the artifact; a call target is a
		// plain address, never a first-class Type.
		panic(fmt.Sprintf("bytecode: %T has no serializable artifact type", t))
	}
}

func (t Type) String() string {
	switch t.Tag {
	case TagUnit:
		return "()"
	case TagBool:
		return "bool"
	case TagInt:
		if t.Signed {
			return fmt.Sprintf("i%d", t.Bits)
		}
		return fmt.Sprintf("u%d", t.Bits)
	case TagField:
		return "field"
	case TagString:
		return "str"
	case TagArray:
		return fmt.Sprintf("[%s; %d]", t.Element, t.Size)
	case TagTuple:
		s := "("
		for i, e := range t.Elements {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	case TagStruct, TagEnum, TagContract:
		return t.Name
	default:
		return "?"
	}
}

// Size returns the number of evaluation/data-stack scalar slots a value of
// type t occupies, mirroring lang/ir.Size for the artifact-level Type.
func Size(t Type) int {
	switch t.Tag {
	case TagUnit, TagString, TagContract:
		return 0
	case TagBool, TagInt, TagField, TagEnum:
		return 1
	case TagArray:
		return t.Size * Size(*t.Element)
	case TagTuple:
		total := 0
		for _, e := range t.Elements {
			total += Size(e)
		}
		return total
	case TagStruct:
		total := 0
		for _, f := range t.Fields {
			total += Size(f.Type)
		}
		return total
	default:
		return 0
	}
}
