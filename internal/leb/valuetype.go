package leb

import "fmt"

// ValueType is the closed enumeration of wasm core value types, bijective
// with its one-byte wire encoding.
type ValueType byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeV128      ValueType = 0x7b
	ValueTypeFuncRef   ValueType = 0x70
	ValueTypeExternRef ValueType = 0x6f
)

// ToByte returns the wire byte for v, erroring if v isn't one of the closed
// set of known value types.
func (v ValueType) ToByte() (byte, error) {
	switch v {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128,
		ValueTypeFuncRef, ValueTypeExternRef:
		return byte(v), nil
	default:
		return 0, fmt.Errorf("leb: unknown value type %#x", byte(v))
	}
}

// String names v for diagnostics.
func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncRef:
		return "funcref"
	case ValueTypeExternRef:
		return "externref"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(v))
	}
}

// ValueTypeFromByte is the inverse of ValueType.ToByte; it errors on any byte
// outside the closed set.
func ValueTypeFromByte(b byte) (ValueType, error) {
	switch ValueType(b) {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128,
		ValueTypeFuncRef, ValueTypeExternRef:
		return ValueType(b), nil
	default:
		return 0, fmt.Errorf("leb: unknown value type byte %#x", b)
	}
}
