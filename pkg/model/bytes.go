package model

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ByteValue is a byte-valued configuration scalar (opcode codes, sync
// bytes). Configuration may write it as an integer or as a "0xNN" style
// string; both decode to the numeric value. The value is kept as a wide
// integer so out-of-range declarations survive decoding and are reported
// by the validator instead of being silently truncated.
type ByteValue int

// UnmarshalYAML decodes an integer or a string integer literal
// (base prefixes 0x, 0o and 0b are accepted).
func (b *ByteValue) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*b = ByteValue(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid byte value")
	}
	n, ok := parseByteString(s)
	if !ok {
		return fmt.Errorf("invalid byte value %q", s)
	}
	*b = ByteValue(n)
	return nil
}

// InRange returns true when the value fits a single byte.
func (b ByteValue) InRange() bool {
	return b >= 0 && b <= 0xFF
}

// ParseByte interprets a raw document value as a byte: integers are used
// as-is, strings are parsed as integer literals ("0xNN" included).
// ok is false when the value is not a byte in [0, 255].
func ParseByte(v any) (int, bool) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case uint64:
		if x > 0xFF {
			return 0, false
		}
		n = int(x)
	case ByteValue:
		n = int(x)
	case string:
		var ok bool
		n, ok = parseByteString(x)
		if !ok {
			return 0, false
		}
	default:
		return 0, false
	}
	if n < 0 || n > 0xFF {
		return 0, false
	}
	return n, true
}

func parseByteString(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
