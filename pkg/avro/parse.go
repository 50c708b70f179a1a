package avro

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/avrobq/internal/errors"
)

// Codec pairs a parsed record descriptor with the goavro codec that decodes
// data written with it. Build one per run and pass it down explicitly.
type Codec struct {
	Schema *RecordSchema
	Goavro *goavro.Codec
}

// NewCodec parses schema text into a Codec. The top-level type must be a record.
func NewCodec(text []byte) (*Codec, error) {
	codec, err := goavro.NewCodec(string(text))
	if err != nil {
		return nil, fmt.Errorf("invalid avro schema: %w", err)
	}
	rec, err := ParseRecord(text)
	if err != nil {
		return nil, err
	}
	return &Codec{Schema: rec, Goavro: codec}, nil
}

// ParseRecord parses schema text whose top-level type must be a record.
func ParseRecord(text []byte) (*RecordSchema, error) {
	s, err := Parse(text)
	if err != nil {
		return nil, err
	}
	rec, ok := s.(*RecordSchema)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", errors.ErrNotRecord, s.Type())
	}
	return rec, nil
}

// Parse parses Avro schema JSON into a Type Descriptor.
func Parse(text []byte) (Schema, error) {
	var raw any
	if err := json.Unmarshal(text, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode avro schema: %w", err)
	}
	p := &parser{named: make(map[string]Schema)}
	return p.parse(raw, "")
}

type parser struct {
	named map[string]Schema
}

func (p *parser) parse(raw any, namespace string) (Schema, error) {
	switch v := raw.(type) {
	case string:
		return p.reference(v, namespace)
	case []any:
		return p.union(v, namespace)
	case map[string]any:
		return p.complex(v, namespace)
	default:
		return nil, fmt.Errorf("invalid avro schema node: %v", raw)
	}
}

func (p *parser) reference(name, namespace string) (Schema, error) {
	switch name {
	case "null", "boolean", "int", "long", "float", "double", "string":
		return Primitive(Kind(name)), nil
	case "bytes":
		return &BytesSchema{}, nil
	case "fixed":
		return nil, &errors.UnsupportedTypeError{Type: "fixed"}
	}
	if s, ok := p.named[fullName(name, namespace)]; ok {
		return s, nil
	}
	if s, ok := p.named[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown avro type: %s", name)
}

func (p *parser) union(members []any, namespace string) (Schema, error) {
	u := &UnionSchema{Types: make([]Schema, 0, len(members))}
	nulls := 0
	for _, m := range members {
		t, err := p.parse(m, namespace)
		if err != nil {
			return nil, err
		}
		if IsNull(t) {
			nulls++
		}
		u.Types = append(u.Types, t)
	}
	if nulls > 1 {
		return nil, fmt.Errorf("avro union has %d null members", nulls)
	}
	return u, nil
}

func (p *parser) complex(m map[string]any, namespace string) (Schema, error) {
	typ, _ := m["type"].(string)
	logical, _ := m["logicalType"].(string)

	switch typ {
	case "null", "boolean", "int", "long", "float", "double", "string":
		return &PrimitiveSchema{Kind: Kind(typ), LogicalType: logical}, nil
	case "bytes":
		return &BytesSchema{
			LogicalType: logical,
			Precision:   intAttr(m, "precision"),
			Scale:       intAttr(m, "scale"),
		}, nil
	case "fixed":
		name, _ := m["name"].(string)
		return nil, &errors.UnsupportedTypeError{Type: "fixed", Field: name}
	case "enum":
		return p.enum(m, namespace)
	case "record", "error":
		return p.record(m, namespace)
	case "array":
		items, err := p.parse(m["items"], namespace)
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		return &ArraySchema{Items: items}, nil
	case "map":
		values, err := p.parse(m["values"], namespace)
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
		return &MapSchema{Values: values}, nil
	case "":
		// {"type": {...}} wraps another schema node.
		if inner, ok := m["type"]; ok {
			return p.parse(inner, namespace)
		}
		return nil, fmt.Errorf("avro schema node has no type")
	default:
		return p.reference(typ, namespace)
	}
}

func (p *parser) enum(m map[string]any, namespace string) (Schema, error) {
	name, ns := p.name(m, namespace)
	e := &EnumSchema{Name: fullName(name, ns)}
	if symbols, ok := m["symbols"].([]any); ok {
		for _, s := range symbols {
			if sym, ok := s.(string); ok {
				e.Symbols = append(e.Symbols, sym)
			}
		}
	}
	p.named[e.Name] = e
	return e, nil
}

func (p *parser) record(m map[string]any, namespace string) (Schema, error) {
	name, ns := p.name(m, namespace)
	rec := &RecordSchema{Name: fullName(name, ns)}
	// Registered before the fields so recursive references resolve.
	p.named[rec.Name] = rec

	rawFields, _ := m["fields"].([]any)
	rec.Fields = make([]*Field, 0, len(rawFields))
	for _, rf := range rawFields {
		fm, ok := rf.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %s: invalid field %v", rec.Name, rf)
		}
		fname, _ := fm["name"].(string)
		t, err := p.parse(fm["type"], ns)
		if err != nil {
			return nil, fmt.Errorf("record %s field %s: %w", rec.Name, fname, err)
		}
		rec.Fields = append(rec.Fields, NewField(fname, t))
	}
	rec.reindex()
	return rec, nil
}

// name returns a named type's short name and effective namespace.
func (p *parser) name(m map[string]any, enclosing string) (string, string) {
	name, _ := m["name"].(string)
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:], name[:i]
	}
	if ns, ok := m["namespace"].(string); ok {
		return name, ns
	}
	return name, enclosing
}

func fullName(name, namespace string) string {
	if namespace == "" || strings.Contains(name, ".") {
		return name
	}
	return namespace + "." + name
}

func intAttr(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}
