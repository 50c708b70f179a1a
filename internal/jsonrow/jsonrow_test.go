package jsonrow

import (
	"math"
	"strings"
	"testing"

	"github.com/jaswdr/faker"

	"github.com/jittakal/avrobq/pkg/avro"
)

func userSchema() *avro.RecordSchema {
	return avro.NewRecordSchema("User",
		avro.NewField("id", avro.Primitive(avro.KindInt)),
		avro.NewField("name", &avro.UnionSchema{Types: []avro.Schema{
			avro.Primitive(avro.KindNull),
			avro.Primitive(avro.KindString),
		}}),
		avro.NewField("tags", &avro.ArraySchema{Items: avro.Primitive(avro.KindString)}),
	)
}

func TestBuild_EndToEnd(t *testing.T) {
	rec := avro.NewRecord(userSchema()).
		Set("id", avro.Int(7)).
		Set("name", avro.String("Al")).
		Set("tags", avro.Array{avro.String("a"), avro.String("b")})

	got := Build(rec)
	want := `{"id": 7, "name": "Al", "tags": ["a", "b"]}`
	if got != want {
		t.Errorf("Build() = %s, want %s", got, want)
	}
}

func TestBuild_FieldOrderFollowsSchema(t *testing.T) {
	rec := avro.NewRecord(userSchema()).
		Set("tags", avro.Array{}).
		Set("name", avro.String("x")).
		Set("id", avro.Int(1))

	got := Build(rec)
	want := `{"id": 1, "name": "x", "tags": []}`
	if got != want {
		t.Errorf("Build() = %s, want %s", got, want)
	}
}

func TestBuild_AbsentFieldsOmitted(t *testing.T) {
	tests := []struct {
		name string
		rec  *avro.Record
		want string
	}{
		{
			name: "nullable field absent",
			rec:  avro.NewRecord(userSchema()).Set("id", avro.Int(1)).Set("tags", avro.Array{}),
			want: `{"id": 1, "tags": []}`,
		},
		{
			name: "first field absent",
			rec:  avro.NewRecord(userSchema()).Set("name", avro.String("n")),
			want: `{"name": "n"}`,
		},
		{
			name: "all fields absent",
			rec:  avro.NewRecord(userSchema()),
			want: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.rec)
			if got != tt.want {
				t.Errorf("Build() = %s, want %s", got, tt.want)
			}
			if strings.Contains(got, ",,") || strings.Contains(got, ", }") || strings.Contains(got, "{, ") {
				t.Errorf("Build() produced an empty slot: %s", got)
			}
		})
	}
}

func TestAppend_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		value avro.Value
		want  string
	}{
		{"null", avro.Null{}, `null`},
		{"true", avro.Boolean(true), `true`},
		{"false", avro.Boolean(false), `false`},
		{"int", avro.Int(-42), `-42`},
		{"long", avro.Long(9007199254740993), `9007199254740993`},
		{"double", avro.Double(1.5), `1.5`},
		{"double integral", avro.Double(3), `3`},
		{"double small", avro.Double(1e-7), `1e-7`},
		{"double large", avro.Double(1e21), `1e+21`},
		{"float", avro.Float(0.1), `0.1`},
		{"double NaN", avro.Double(math.NaN()), `null`},
		{"float NaN", avro.Float(float32(math.NaN())), `null`},
		{"double +Inf", avro.Double(math.Inf(1)), `"Infinity"`},
		{"double -Inf", avro.Double(math.Inf(-1)), `"-Infinity"`},
		{"enum", avro.Enum("RED"), `"RED"`},
		{"string", avro.String("plain"), `"plain"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Append(nil, tt.value))
			if got != tt.want {
				t.Errorf("Append() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAppendString_Escaping(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"quotes and newline", "He said \"hi\"\n", `"He said \"hi\"\n"`},
		{"forward slash", "a/b", `"a\/b"`},
		{"backslash", `c:\tmp`, `"c:\\tmp"`},
		{"short escapes", "\b\f\r\t", `"\b\f\r\t"`},
		{"control char", "\x01", `"\u0001"`},
		{"unit separator", "\x1f", `"\u001F"`},
		{"delete", "\x7f", `"\u007F"`},
		{"c1 control", "\u0085", `"\u0085"`},
		{"general punctuation", "\u2028", `"\u2028"`},
		{"euro sign", "\u20AC", `"\u20AC"`},
		{"latin passes", "café", `"café"`},
		{"astral passes", "😀", `"😀"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(AppendString(nil, tt.in))
			if got != tt.want {
				t.Errorf("AppendString(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestAppend_Bytes(t *testing.T) {
	tests := []struct {
		name  string
		value avro.Bytes
		want  string
	}{
		{"ascii", avro.Bytes("abc"), `{"bytes": "abc"}`},
		{"not escaped", avro.Bytes("a\"/\n"), "{\"bytes\": \"a\"/\n\"}"},
		{"empty", avro.Bytes{}, `{"bytes": ""}`},
		{"high byte sign extended", avro.Bytes{0xC3}, `{"bytes": "` + string(rune(0xFFC3)) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Append(nil, tt.value))
			if got != tt.want {
				t.Errorf("Append() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppend_MapAndNested(t *testing.T) {
	inner := avro.NewRecordSchema("Item", avro.NewField("title", avro.Primitive(avro.KindString)))
	outer := avro.NewRecordSchema("Outer",
		avro.NewField("attrs", &avro.MapSchema{Values: avro.Primitive(avro.KindLong)}),
		avro.NewField("items", &avro.ArraySchema{Items: inner}),
	)

	rec := avro.NewRecord(outer).
		Set("attrs", avro.Map{
			{Key: "a/b", Value: avro.Long(1)},
			{Key: "c", Value: avro.Null{}},
		}).
		Set("items", avro.Array{
			avro.NewRecord(inner).Set("title", avro.String("t1")),
			avro.NewRecord(inner),
		})

	got := Build(rec)
	want := `{"attrs": [{"key": "a\/b", "value": 1}, {"key": "c", "value": null}], "items": [{"title": "t1"}, {}]}`
	if got != want {
		t.Errorf("Build() = %s, want %s", got, want)
	}
}

func TestAppend_EmptyMap(t *testing.T) {
	if got := string(Append(nil, avro.Map{})); got != "[]" {
		t.Errorf("Append(empty map) = %s, want []", got)
	}
}

func TestAppend_PanicsOnRecordWithoutSchema(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for record without schema")
		}
	}()
	Append(nil, &avro.Record{})
}

func TestBuild_Idempotent(t *testing.T) {
	fake := faker.New()
	schema := avro.NewRecordSchema("Doc",
		avro.NewField("title", avro.Primitive(avro.KindString)),
		avro.NewField("body", avro.Primitive(avro.KindString)),
		avro.NewField("score", avro.Primitive(avro.KindDouble)),
		avro.NewField("labels", &avro.MapSchema{Values: avro.Primitive(avro.KindString)}),
	)

	for i := 0; i < 50; i++ {
		rec := avro.NewRecord(schema).
			Set("labels", avro.Map{{Key: fake.Lorem().Word(), Value: avro.String(fake.Internet().URL())}}).
			Set("score", avro.Double(fake.Float64(4, -1000, 1000))).
			Set("body", avro.String(fake.Lorem().Paragraph(2))).
			Set("title", avro.String(fake.Lorem().Sentence(5)))

		first := Build(rec)
		second := Build(rec)
		if first != second {
			t.Fatalf("Build() not idempotent:\n%s\n%s", first, second)
		}
		if !strings.HasPrefix(first, `{"title": `) {
			t.Errorf("Build() does not start with the first declared field: %s", first)
		}
		if strings.Contains(first, "/") && !strings.Contains(first, `\/`) {
			t.Errorf("Build() left a forward slash unescaped: %s", first)
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	rec := avro.NewRecord(userSchema()).
		Set("id", avro.Int(7)).
		Set("name", avro.String("Al \"the\" builder/maker")).
		Set("tags", avro.Array{avro.String("a"), avro.String("b"), avro.String("c")})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(rec)
	}
}
