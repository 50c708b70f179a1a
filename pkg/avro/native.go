package avro

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/jittakal/avrobq/internal/errors"
)

// RecordFromNative converts a datum decoded by goavro into a *Record paired
// with schema.
func RecordFromNative(native any, schema *RecordSchema) (*Record, error) {
	v, err := fromNative(native, schema, schema.Name)
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

// FromNative converts a datum decoded by goavro into a Value paired with s.
//
// goavro's logical-type conversions are undone so the value carries the
// Avro wire representation, map entries are sorted by key, and record
// fields that decoded to nil are left absent.
func FromNative(native any, s Schema) (Value, error) {
	return fromNative(native, s, "")
}

func fromNative(native any, s Schema, path string) (Value, error) {
	switch t := s.(type) {
	case *PrimitiveSchema:
		return primitiveFromNative(native, t, path)
	case *EnumSchema:
		sym, ok := native.(string)
		if !ok {
			return nil, mismatch(path, "enum", native)
		}
		return Enum(sym), nil
	case *BytesSchema:
		return bytesFromNative(native, t, path)
	case *RecordSchema:
		m, ok := native.(map[string]any)
		if !ok {
			return nil, mismatch(path, "record", native)
		}
		rec := NewRecord(t)
		for _, f := range t.Fields {
			fv, present := m[f.Name]
			if !present || fv == nil {
				continue
			}
			v, err := fromNative(fv, f.Type, join(path, f.Name))
			if err != nil {
				return nil, err
			}
			if _, isNull := v.(Null); isNull {
				continue
			}
			rec.Set(f.Name, v)
		}
		return rec, nil
	case *ArraySchema:
		items, ok := native.([]any)
		if !ok {
			return nil, mismatch(path, "array", native)
		}
		arr := make(Array, 0, len(items))
		for i, item := range items {
			v, err := fromNative(item, t.Items, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case *MapSchema:
		m, ok := native.(map[string]any)
		if !ok {
			return nil, mismatch(path, "map", native)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Map, 0, len(keys))
		for _, k := range keys {
			v, err := fromNative(m[k], t.Values, fmt.Sprintf("%s[%q]", path, k))
			if err != nil {
				return nil, err
			}
			out = append(out, MapEntry{Key: k, Value: v})
		}
		return out, nil
	case *UnionSchema:
		return unionFromNative(native, t, path)
	default:
		panic(fmt.Sprintf("avro: unexpected schema type %T", s))
	}
}

func unionFromNative(native any, u *UnionSchema, path string) (Value, error) {
	if native == nil {
		return Null{}, nil
	}
	// goavro wraps non-null union values as {"branch": value}.
	if m, ok := native.(map[string]any); ok && len(m) == 1 {
		for branch, inner := range m {
			if member, found := u.Member(branch); found {
				return fromNative(inner, member, path)
			}
		}
	}
	// Unwrapped datum: accept the first member it fits.
	for _, member := range u.NonNull() {
		if v, err := fromNative(native, member, path); err == nil {
			return v, nil
		}
	}
	return nil, mismatch(path, "union", native)
}

func primitiveFromNative(native any, p *PrimitiveSchema, path string) (Value, error) {
	switch p.Kind {
	case KindNull:
		if native != nil {
			return nil, mismatch(path, "null", native)
		}
		return Null{}, nil
	case KindBoolean:
		if b, ok := native.(bool); ok {
			return Boolean(b), nil
		}
	case KindInt:
		switch v := native.(type) {
		case int32:
			return Int(v), nil
		case int:
			return Int(v), nil
		case time.Time:
			// date: days since the unix epoch.
			return Int(v.UTC().Unix() / 86400), nil
		case time.Duration:
			// time-millis
			return Int(v.Milliseconds()), nil
		}
	case KindLong:
		switch v := native.(type) {
		case int64:
			return Long(v), nil
		case int32:
			return Long(v), nil
		case int:
			return Long(v), nil
		case time.Time:
			if p.LogicalType == "timestamp-micros" || p.LogicalType == "local-timestamp-micros" {
				return Long(v.UnixMicro()), nil
			}
			return Long(v.UnixMilli()), nil
		case time.Duration:
			// time-micros
			return Long(v.Microseconds()), nil
		}
	case KindFloat:
		if f, ok := native.(float32); ok {
			return Float(f), nil
		}
	case KindDouble:
		switch v := native.(type) {
		case float64:
			return Double(v), nil
		case float32:
			return Double(v), nil
		}
	case KindString:
		switch v := native.(type) {
		case string:
			return String(v), nil
		case []byte:
			return String(v), nil
		}
	}
	return nil, mismatch(path, string(p.Kind), native)
}

func bytesFromNative(native any, b *BytesSchema, path string) (Value, error) {
	switch v := native.(type) {
	case []byte:
		return Bytes(v), nil
	case string:
		return Bytes(v), nil
	case *big.Rat:
		return Bytes(decimalBytes(v, b.Scale)), nil
	}
	return nil, mismatch(path, "bytes", native)
}

// decimalBytes renders r as the big-endian two's-complement unscaled value
// the decimal logical type stores on the wire.
func decimalBytes(r *big.Rat, scale int) []byte {
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)))
	unscaled := new(big.Int).Quo(scaled.Num(), scaled.Denom())

	if unscaled.Sign() >= 0 {
		out := unscaled.Bytes()
		if len(out) == 0 || out[0]&0x80 != 0 {
			out = append([]byte{0}, out...)
		}
		return out
	}

	// Two's complement of a negative value over the minimal byte width.
	n := (unscaled.BitLen() + 8) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(n*8))
	out := new(big.Int).Add(mod, unscaled).Bytes()
	for len(out) < n {
		out = append([]byte{0xff}, out...)
	}
	return out
}

func mismatch(path, want string, got any) error {
	if path == "" {
		path = "<root>"
	}
	return &errors.ValidationError{
		Field:  path,
		Reason: fmt.Sprintf("expected %s, got %T", want, got),
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
