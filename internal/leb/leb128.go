// Package leb implements the LEB128 variable-length integer codec and the
// wasm ValueType byte codec shared by the module editor and the plugin SDK.
package leb

import "fmt"

const continuationBit = 0x80
const signBit = 0x40
const payloadMask = 0x7f

// EncodeUint32 encodes v as unsigned LEB128, always emitting at least one byte.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 encodes v as unsigned LEB128, always emitting at least one byte.
func EncodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & payloadMask)
		v >>= 7
		if v != 0 {
			out = append(out, b|continuationBit)
			continue
		}
		out = append(out, b)
		return out
	}
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 encodes v as signed LEB128: stop when the remaining value is 0
// with the sign bit of the last emitted byte clear, or -1 with it set.
func EncodeInt64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & payloadMask)
		v >>= 7
		signBitSet := b&signBit != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|continuationBit)
	}
}

// LoadUint32 decodes an unsigned LEB128 value from the front of buf, returning
// the value, the number of bytes consumed, and an error on overlong or
// out-of-range encodings.
func LoadUint32(buf []byte) (uint32, uint64, error) {
	v, n, err := LoadUint64(buf)
	if err != nil {
		return 0, n, err
	}
	if n > 5 {
		return 0, n, fmt.Errorf("leb128: overlong uint32 encoding (%d bytes)", n)
	}
	if v > 0xffffffff {
		return 0, n, fmt.Errorf("leb128: value %d overflows uint32", v)
	}
	return uint32(v), n, nil
}

// LoadUint64 decodes an unsigned LEB128 value from the front of buf.
func LoadUint64(buf []byte) (uint64, uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if shift >= 64 {
			return 0, 0, fmt.Errorf("leb128: overlong uint64 encoding")
		}
		payload := uint64(b & payloadMask)
		if shift == 63 && payload > 1 {
			return 0, 0, fmt.Errorf("leb128: uint64 encoding overflows 64 bits")
		}
		result |= payload << shift
		if b&continuationBit == 0 {
			return result, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("leb128: truncated uint64 encoding")
}

// LoadInt32 decodes a signed LEB128 value from the front of buf.
func LoadInt32(buf []byte) (int32, uint64, error) {
	v, n, err := LoadInt64(buf)
	if err != nil {
		return 0, n, err
	}
	if v > 0x7fffffff || v < -0x80000000 {
		return 0, n, fmt.Errorf("leb128: value %d overflows int32", v)
	}
	return int32(v), n, nil
}

// LoadInt64 decodes a signed LEB128 value from the front of buf.
func LoadInt64(buf []byte) (int64, uint64, error) {
	var result int64
	var shift uint
	var b byte
	var i int
	for i = 0; i < len(buf); i++ {
		b = buf[i]
		if shift >= 64 {
			return 0, 0, fmt.Errorf("leb128: overlong int64 encoding")
		}
		payload := int64(b & payloadMask)
		result |= payload << shift
		shift += 7
		if b&continuationBit == 0 {
			break
		}
	}
	if i == len(buf) && b&continuationBit != 0 {
		return 0, 0, fmt.Errorf("leb128: truncated int64 encoding")
	}
	if shift < 64 && b&signBit != 0 {
		result |= -1 << shift
	}
	return result, uint64(i + 1), nil
}
