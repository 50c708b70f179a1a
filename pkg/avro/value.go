package avro

// Value is a Typed Value: one decoded Avro datum tagged with its kind.
//
// The set of implementations is closed: Null, Boolean, Int, Long, Float,
// Double, String, Enum, Bytes, Array, Map and *Record.
type Value interface {
	value()
}

// Null is the Avro null value.
type Null struct{}

// Boolean is an Avro boolean.
type Boolean bool

// Int is a 32-bit Avro int.
type Int int32

// Long is a 64-bit Avro long.
type Long int64

// Float is a 32-bit Avro float.
type Float float32

// Double is a 64-bit Avro double.
type Double float64

// String is an Avro string.
type String string

// Enum is an Avro enum symbol.
type Enum string

// Bytes is an Avro bytes blob.
type Bytes []byte

// Array is an Avro array in element order.
type Array []Value

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   string
	Value Value
}

// Map is an Avro map in iteration order.
type Map []MapEntry

func (Null) value()    {}
func (Boolean) value() {}
func (Int) value()     {}
func (Long) value()    {}
func (Float) value()   {}
func (Double) value()  {}
func (String) value()  {}
func (Enum) value()    {}
func (Bytes) value()   {}
func (Array) value()   {}
func (Map) value()     {}
func (*Record) value() {}

// Record is a decoded Avro record paired with its schema. Only fields that
// were present in the datum are stored; insertion order is kept.
type Record struct {
	schema *RecordSchema
	names  []string
	values map[string]Value
}

// NewRecord returns an empty record for the given schema.
func NewRecord(schema *RecordSchema) *Record {
	return &Record{
		schema: schema,
		values: make(map[string]Value, len(schema.Fields)),
	}
}

// Schema returns the record's schema.
func (r *Record) Schema() *RecordSchema {
	return r.schema
}

// Set stores a field value. A nil value removes the field.
func (r *Record) Set(name string, v Value) *Record {
	if v == nil {
		r.Delete(name)
		return r
	}
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = v
	return r
}

// Delete removes a field.
func (r *Record) Delete(name string) {
	if _, exists := r.values[name]; !exists {
		return
	}
	delete(r.values, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i:i], r.names[i+1:]...)
			break
		}
	}
}

// Get returns a field value and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the present field names in insertion order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of present fields.
func (r *Record) Len() int {
	return len(r.names)
}
