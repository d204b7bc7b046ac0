// Package serializer converts application-defined record values to and from
// the byte arrays the storage engine works with.
//
// Two implementations are provided:
//
//   - JSON (NewJSONSerializer): the default. It additionally implements the
//     IFieldCodec capability, i.e. it can read and write single record
//     fields by dotted key path without knowing the record type. This is
//     what key-path extraction, auto-increment key injection and secondary
//     index maintenance rely on.
//
//   - GOB (NewGOBSerializer): Go's binary gob format. More compact for
//     Go-native types, but opaque: no field access, therefore only usable
//     for stores without a key path and without indexes.
//
// The capability split follows the same pattern as feature detection
// elsewhere in the codebase: callers type-assert to IFieldCodec and report
// an explicit error instead of failing in surprising ways at write time.
package serializer
