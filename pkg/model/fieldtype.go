package model

import "fmt"

// FieldType is a primitive wire type used by message fields and command
// parameters.
type FieldType string

const (
	// TypeU8 is an unsigned 8-bit integer.
	TypeU8 FieldType = "u8"

	// TypeU16 is an unsigned 16-bit integer.
	TypeU16 FieldType = "u16"

	// TypeU32 is an unsigned 32-bit integer.
	TypeU32 FieldType = "u32"

	// TypeU64 is an unsigned 64-bit integer.
	TypeU64 FieldType = "u64"

	// TypeI8 is a signed 8-bit integer.
	TypeI8 FieldType = "i8"

	// TypeI16 is a signed 16-bit integer.
	TypeI16 FieldType = "i16"

	// TypeI32 is a signed 32-bit integer.
	TypeI32 FieldType = "i32"

	// TypeI64 is a signed 64-bit integer.
	TypeI64 FieldType = "i64"

	// TypeF32 is a 32-bit float.
	TypeF32 FieldType = "f32"

	// TypeF64 is a 64-bit float.
	TypeF64 FieldType = "f64"

	// TypeBool is a boolean.
	TypeBool FieldType = "bool"

	// TypeU8Array is a variable-length byte array. Command parameters
	// only; a parameter of this type implies a companion length field.
	TypeU8Array FieldType = "u8[]"
)

// DefaultFieldType is assumed for message fields that omit a type.
const DefaultFieldType = TypeU32

// Size returns the serialized size of the type in bytes. Variable-length
// and unknown types have no fixed size and return 0.
func (t FieldType) Size() int {
	switch t {
	case TypeU8, TypeI8, TypeBool:
		return 1
	case TypeU16, TypeI16:
		return 2
	case TypeU32, TypeI32, TypeF32:
		return 4
	case TypeU64, TypeI64, TypeF64:
		return 8
	default:
		return 0
	}
}

// IsArray returns true for the variable-length byte array type.
func (t FieldType) IsArray() bool {
	return t == TypeU8Array
}

// ValidateMessageField checks that the type may be used by a message field.
func (t FieldType) ValidateMessageField() error {
	switch t {
	case TypeU8, TypeU16, TypeU32, TypeU64,
		TypeI8, TypeI16, TypeI32, TypeI64,
		TypeF32, TypeF64, TypeBool:
		return nil
	default:
		return fmt.Errorf("invalid message field type: %s", t)
	}
}

// ValidateParam checks that the type may be used by a command parameter.
func (t FieldType) ValidateParam() error {
	if t == TypeU8Array {
		return nil
	}
	if err := t.ValidateMessageField(); err != nil {
		return fmt.Errorf("invalid parameter type: %s", t)
	}
	return nil
}
