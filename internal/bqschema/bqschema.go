// Package bqschema converts Avro record schemas into BigQuery table schemas.
package bqschema

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/avro"
)

// BigQuery column types.
const (
	TypeString  = "STRING"
	TypeInteger = "INTEGER"
	TypeFloat   = "FLOAT"
	TypeBoolean = "BOOLEAN"
	TypeBytes   = "BYTES"
	TypeRecord  = "RECORD"
)

// BigQuery column modes. Scalar columns carry no mode.
const (
	ModeNullable = "NULLABLE"
	ModeRepeated = "REPEATED"
)

// Field is one BigQuery column descriptor. Fields is nil when the column
// carries no nested list; a record whose fields were all dropped has an
// empty, non-nil Fields and still renders "fields":[].
type Field struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Mode   string  `json:"mode,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// MarshalJSON renders the descriptor, keeping an empty nested field list.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.Fields == nil || len(f.Fields) > 0 {
		type plain Field
		return json.Marshal(plain(f))
	}
	return json.Marshal(struct {
		Name   string  `json:"name"`
		Type   string  `json:"type"`
		Mode   string  `json:"mode,omitempty"`
		Fields []Field `json:"fields"`
	}{f.Name, f.Type, f.Mode, f.Fields})
}

// Convert converts a record schema into BigQuery column descriptors, one per
// top-level field. Anything other than a record fails with errors.ErrNotRecord.
func Convert(s avro.Schema) ([]Field, error) {
	rec, ok := s.(*avro.RecordSchema)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", errors.ErrNotRecord, s.Type())
	}
	c := &converter{active: make(map[*avro.RecordSchema]bool)}
	return c.record(rec)
}

// Document converts s and renders the result as a JSON array.
func Document(s avro.Schema) ([]byte, error) {
	fields, err := Convert(s)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bigquery schema: %w", err)
	}
	return doc, nil
}

// converter tracks the records being converted so a recursive schema fails
// instead of recursing forever.
type converter struct {
	active map[*avro.RecordSchema]bool
}

func (c *converter) record(rec *avro.RecordSchema) ([]Field, error) {
	if c.active[rec] {
		return nil, &errors.UnsupportedTypeError{
			Field:  rec.Name,
			Type:   "record",
			Reason: "recursive record",
		}
	}
	c.active[rec] = true
	defer delete(c.active, rec)
	return c.fields(rec.Fields)
}

// fields drops fields declared as plain null and converts the rest.
func (c *converter) fields(fields []*avro.Field) ([]Field, error) {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if avro.IsNull(f.Type) {
			continue
		}
		converted, err := c.field(f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func (c *converter) field(name string, s avro.Schema) (Field, error) {
	switch t := s.(type) {
	case *avro.PrimitiveSchema, *avro.EnumSchema, *avro.BytesSchema:
		typ, err := typeFor(name, s)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: typ}, nil
	case *avro.RecordSchema:
		nested, err := c.record(t)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: TypeRecord, Mode: ModeNullable, Fields: nested}, nil
	case *avro.ArraySchema:
		return c.array(name, t)
	case *avro.MapSchema:
		nested, err := c.fields([]*avro.Field{
			avro.NewField("key", avro.Primitive(avro.KindString)),
			avro.NewField("value", t.Values),
		})
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: TypeRecord, Mode: ModeRepeated, Fields: nested}, nil
	case *avro.UnionSchema:
		member, err := collapse(name, t)
		if err != nil {
			return Field{}, err
		}
		return c.field(name, member)
	default:
		panic(fmt.Sprintf("bqschema: unexpected schema type %T", s))
	}
}

// array flattens only a direct record element. Any other element, a union
// holding a record included, keeps just its type name and REPEATED mode.
func (c *converter) array(name string, a *avro.ArraySchema) (Field, error) {
	items := a.Items
	if rec, ok := items.(*avro.RecordSchema); ok {
		nested, err := c.record(rec)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: name, Type: TypeRecord, Mode: ModeRepeated, Fields: nested}, nil
	}

	typ, err := typeFor(name, items)
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name, Type: typ, Mode: ModeRepeated}, nil
}

// collapse resolves a union to its first non-null member. Unions with more
// than one non-null member are narrowed to that member; see NarrowedUnions.
func collapse(name string, u *avro.UnionSchema) (avro.Schema, error) {
	members := u.NonNull()
	if len(members) == 0 {
		return nil, &errors.UnsupportedTypeError{
			Field:  name,
			Type:   "union",
			Reason: "union of only nulls",
		}
	}
	return members[0], nil
}

// typeFor maps a scalar schema to its BigQuery type, looking through unions
// to their first non-null member.
func typeFor(name string, s avro.Schema) (string, error) {
	switch t := s.(type) {
	case *avro.PrimitiveSchema:
		switch t.Kind {
		case avro.KindBoolean:
			return TypeBoolean, nil
		case avro.KindInt, avro.KindLong:
			return TypeInteger, nil
		case avro.KindFloat, avro.KindDouble:
			return TypeFloat, nil
		case avro.KindString:
			return TypeString, nil
		}
	case *avro.EnumSchema:
		return TypeString, nil
	case *avro.BytesSchema:
		return TypeBytes, nil
	case *avro.RecordSchema:
		return TypeRecord, nil
	case *avro.UnionSchema:
		member, err := collapse(name, t)
		if err != nil {
			return "", err
		}
		return typeFor(name, member)
	case *avro.ArraySchema, *avro.MapSchema:
	default:
		panic(fmt.Sprintf("bqschema: unexpected schema type %T", s))
	}
	return "", &errors.UnsupportedTypeError{Field: name, Type: s.Type()}
}

// NarrowedUnion names a field whose union had several non-null members and
// was converted using only the first.
type NarrowedUnion struct {
	Path    string
	Kept    string
	Dropped []string
}

// NarrowedUnions lists every union in rec that Convert narrows to its first
// non-null member, so callers can surface the lost type information.
func NarrowedUnions(rec *avro.RecordSchema) []NarrowedUnion {
	var out []NarrowedUnion
	seen := make(map[*avro.RecordSchema]bool)
	walkNarrowed(rec, "", seen, &out)
	return out
}

func walkNarrowed(s avro.Schema, path string, seen map[*avro.RecordSchema]bool, out *[]NarrowedUnion) {
	switch t := s.(type) {
	case *avro.RecordSchema:
		if seen[t] {
			return
		}
		seen[t] = true
		for _, f := range t.Fields {
			walkNarrowed(f.Type, joinPath(path, f.Name), seen, out)
		}
		delete(seen, t)
	case *avro.ArraySchema:
		walkNarrowed(t.Items, path, seen, out)
	case *avro.MapSchema:
		walkNarrowed(t.Values, joinPath(path, "value"), seen, out)
	case *avro.UnionSchema:
		members := t.NonNull()
		if len(members) > 1 {
			n := NarrowedUnion{Path: path, Kept: avro.BranchName(members[0])}
			for _, m := range members[1:] {
				n.Dropped = append(n.Dropped, avro.BranchName(m))
			}
			*out = append(*out, n)
		}
		if len(members) > 0 {
			walkNarrowed(members[0], path, seen, out)
		}
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
