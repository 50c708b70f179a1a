// Package jsonrow renders Avro records as single-line JSON text for
// warehouse bulk loads.
package jsonrow

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jittakal/avrobq/pkg/avro"
)

const hexDigits = "0123456789ABCDEF"

// Build renders rec as one line of JSON text.
//
// Fields follow the schema's declaration order and only fields present in
// the record are emitted. The output is complete even when it is larger
// than any row limit; size policy belongs to the caller.
func Build(rec *avro.Record) string {
	return string(Append(nil, rec))
}

// Append appends the JSON rendering of v to dst and returns the extended buffer.
func Append(dst []byte, v avro.Value) []byte {
	switch t := v.(type) {
	case *avro.Record:
		return appendRecord(dst, t)
	case avro.Array:
		dst = append(dst, '[')
		for i, item := range t {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = Append(dst, item)
		}
		return append(dst, ']')
	case avro.Map:
		dst = append(dst, '[')
		for i, entry := range t {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, `{"key": `...)
			dst = AppendString(dst, entry.Key)
			dst = append(dst, `, "value": `...)
			dst = Append(dst, entry.Value)
			dst = append(dst, '}')
		}
		return append(dst, ']')
	case avro.String:
		return AppendString(dst, string(t))
	case avro.Enum:
		return AppendString(dst, string(t))
	case avro.Float:
		return appendFloat(dst, float64(t), 32)
	case avro.Double:
		return appendFloat(dst, float64(t), 64)
	case avro.Bytes:
		return appendBytes(dst, t)
	case avro.Boolean:
		return strconv.AppendBool(dst, bool(t))
	case avro.Int:
		return strconv.AppendInt(dst, int64(t), 10)
	case avro.Long:
		return strconv.AppendInt(dst, int64(t), 10)
	case avro.Null:
		return append(dst, "null"...)
	default:
		panic(fmt.Sprintf("jsonrow: unexpected value type %T", v))
	}
}

func appendRecord(dst []byte, rec *avro.Record) []byte {
	schema := rec.Schema()
	if schema == nil {
		panic("jsonrow: record has no schema")
	}

	dst = append(dst, '{')
	count := 0
	for _, f := range schema.Fields {
		v, ok := rec.Get(f.Name)
		if !ok {
			continue
		}
		if count > 0 {
			dst = append(dst, ", "...)
		}
		count++
		dst = AppendString(dst, f.Name)
		dst = append(dst, ": "...)
		dst = Append(dst, v)
	}
	return append(dst, '}')
}

// AppendString appends s as a quoted JSON string.
//
// Besides the usual escapes, '/' becomes "\/" and every character in
// U+0000–U+001F, U+007F–U+009F and U+2000–U+20FF becomes \uXXXX with
// uppercase hex digits.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for _, r := range s {
		switch r {
		case '"':
			dst = append(dst, `\"`...)
		case '\\':
			dst = append(dst, `\\`...)
		case '\b':
			dst = append(dst, `\b`...)
		case '\f':
			dst = append(dst, `\f`...)
		case '\n':
			dst = append(dst, `\n`...)
		case '\r':
			dst = append(dst, `\r`...)
		case '\t':
			dst = append(dst, `\t`...)
		case '/':
			dst = append(dst, `\/`...)
		default:
			if needsUnicodeEscape(r) {
				dst = append(dst, '\\', 'u',
					hexDigits[r>>12&0xF], hexDigits[r>>8&0xF],
					hexDigits[r>>4&0xF], hexDigits[r&0xF])
			} else {
				dst = append(dst, string(r)...)
			}
		}
	}
	return append(dst, '"')
}

func needsUnicodeEscape(r rune) bool {
	return (r >= 0x0000 && r <= 0x001F) ||
		(r >= 0x007F && r <= 0x009F) ||
		(r >= 0x2000 && r <= 0x20FF)
}

// appendFloat writes NaN as null and everything else as an unquoted number
// the way encoding/json formats floats. Infinities have no JSON number form
// and are written as the quoted strings BigQuery accepts, unlike the bare
// Infinity tokens older Hadoop jobs emitted, which no JSON parser reads.
func appendFloat(dst []byte, f float64, bits int) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, "null"...)
	case math.IsInf(f, 1):
		return append(dst, `"Infinity"`...)
	case math.IsInf(f, -1):
		return append(dst, `"-Infinity"`...)
	}

	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	dst = strconv.AppendFloat(dst, f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(dst)
		if n >= 4 && dst[n-4] == 'e' && dst[n-3] == '-' && dst[n-2] == '0' {
			dst[n-2] = dst[n-1]
			dst = dst[:n-1]
		}
	}
	return dst
}

// appendBytes writes {"bytes": "..."} with every byte appended as a single
// character and no escaping. Bytes from 0x80 up are sign-extended into
// U+FF80–U+FFFF; downstream loaders read this exact form.
func appendBytes(dst []byte, b []byte) []byte {
	dst = append(dst, `{"bytes": "`...)
	for _, c := range b {
		dst = append(dst, string(rune(uint16(int16(int8(c)))))...)
	}
	return append(dst, `"}`...)
}
