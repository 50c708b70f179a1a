package avro

import "fmt"

// Kind names an Avro primitive type.
type Kind string

// Primitive kinds. Bytes is a separate descriptor variant.
const (
	KindNull    Kind = "null"
	KindBoolean Kind = "boolean"
	KindInt     Kind = "int"
	KindLong    Kind = "long"
	KindFloat   Kind = "float"
	KindDouble  Kind = "double"
	KindString  Kind = "string"
)

// Schema is a Type Descriptor: the permissible shape of a value.
//
// The set of implementations is closed: PrimitiveSchema, EnumSchema,
// BytesSchema, RecordSchema, ArraySchema, MapSchema and UnionSchema.
type Schema interface {
	// Type returns the Avro type name ("record", "string", ...).
	Type() string

	schema()
}

// PrimitiveSchema describes null, boolean, int, long, float, double and string.
type PrimitiveSchema struct {
	Kind        Kind
	LogicalType string
}

// EnumSchema describes an Avro enum.
type EnumSchema struct {
	Name    string
	Symbols []string
}

// BytesSchema describes an Avro bytes value.
type BytesSchema struct {
	LogicalType string
	Precision   int
	Scale       int
}

// Field is one declared field of a record.
type Field struct {
	Name     string
	Nullable bool
	Type     Schema
}

// RecordSchema describes an Avro record. Fields keep declaration order.
type RecordSchema struct {
	Name   string
	Fields []*Field

	index map[string]int
}

// ArraySchema describes an Avro array.
type ArraySchema struct {
	Items Schema
}

// MapSchema describes an Avro map. Keys are always strings.
type MapSchema struct {
	Values Schema
}

// UnionSchema describes an Avro union. At most one member is null.
type UnionSchema struct {
	Types []Schema
}

func (*PrimitiveSchema) schema() {}
func (*EnumSchema) schema()      {}
func (*BytesSchema) schema()     {}
func (*RecordSchema) schema()    {}
func (*ArraySchema) schema()     {}
func (*MapSchema) schema()       {}
func (*UnionSchema) schema()     {}

// Type implements Schema.
func (s *PrimitiveSchema) Type() string { return string(s.Kind) }

// Type implements Schema.
func (*EnumSchema) Type() string { return "enum" }

// Type implements Schema.
func (*BytesSchema) Type() string { return "bytes" }

// Type implements Schema.
func (*RecordSchema) Type() string { return "record" }

// Type implements Schema.
func (*ArraySchema) Type() string { return "array" }

// Type implements Schema.
func (*MapSchema) Type() string { return "map" }

// Type implements Schema.
func (*UnionSchema) Type() string { return "union" }

// Primitive returns a descriptor for the given primitive kind.
func Primitive(kind Kind) *PrimitiveSchema {
	return &PrimitiveSchema{Kind: kind}
}

// NewRecordSchema builds a record descriptor from fields in declaration order.
func NewRecordSchema(name string, fields ...*Field) *RecordSchema {
	r := &RecordSchema{Name: name, Fields: fields}
	r.reindex()
	return r
}

// NewField builds a record field. Nullable is derived from the type.
func NewField(name string, t Schema) *Field {
	return &Field{Name: name, Nullable: IsNullable(t), Type: t}
}

// Field returns the declared field with the given name.
func (s *RecordSchema) Field(name string) (*Field, bool) {
	if s.index == nil {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return nil, false
	}
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.Fields[i], true
}

func (s *RecordSchema) reindex() {
	s.index = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		s.index[f.Name] = i
	}
}

// NonNull returns the union members that are not null, in declaration order.
func (s *UnionSchema) NonNull() []Schema {
	out := make([]Schema, 0, len(s.Types))
	for _, t := range s.Types {
		if !IsNull(t) {
			out = append(out, t)
		}
	}
	return out
}

// Member resolves the union branch named the way goavro names it: the
// primitive type name, the full name of a named type, "array" or "map".
func (s *UnionSchema) Member(name string) (Schema, bool) {
	for _, t := range s.Types {
		if BranchName(t) == name {
			return t, true
		}
	}
	for _, t := range s.Types {
		if t.Type() == name {
			return t, true
		}
	}
	return nil, false
}

// BranchName returns the name goavro uses for t as a union branch. Logical
// types are suffixed, e.g. "long.timestamp-millis".
func BranchName(t Schema) string {
	switch s := t.(type) {
	case *RecordSchema:
		return s.Name
	case *EnumSchema:
		return s.Name
	case *PrimitiveSchema:
		if s.LogicalType != "" {
			return string(s.Kind) + "." + s.LogicalType
		}
		return string(s.Kind)
	case *BytesSchema:
		if s.LogicalType != "" {
			return "bytes." + s.LogicalType
		}
		return "bytes"
	case *ArraySchema, *MapSchema, *UnionSchema:
		return t.Type()
	default:
		panic(fmt.Sprintf("avro: unexpected schema type %T", t))
	}
}

// IsNull reports whether t is the primitive null type.
func IsNull(t Schema) bool {
	p, ok := t.(*PrimitiveSchema)
	return ok && p.Kind == KindNull
}

// IsNullable reports whether a value of type t may be null.
func IsNullable(t Schema) bool {
	switch s := t.(type) {
	case *UnionSchema:
		return len(s.NonNull()) < len(s.Types)
	default:
		return IsNull(t)
	}
}
