// Package avro holds the Type Descriptor and Typed Value model the converters
// work on.
//
// Schemas are parsed from Avro schema JSON with Parse, and values are built
// from goavro's native decoding with FromNative. Both models are closed sets:
// consumers switch over the concrete types and treat anything else as a
// programming error.
package avro
