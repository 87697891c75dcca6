package leb

import (
	"bytes"
	"testing"
)

func TestEncodeUint32(t *testing.T) {
	for _, c := range []struct {
		input    uint32
		expected []byte
	}{
		{input: 0, expected: []byte{0x00}},
		{input: 127, expected: []byte{0x7f}},
		{input: 128, expected: []byte{0x80, 0x01}},
		{input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
	} {
		got := EncodeUint32(c.input)
		if !bytes.Equal(got, c.expected) {
			t.Errorf("EncodeUint32(%d) = %x, want %x", c.input, got, c.expected)
		}
	}
}

func TestEncodeInt32(t *testing.T) {
	for _, c := range []struct {
		input    int32
		expected []byte
	}{
		{input: -1, expected: []byte{0x7f}},
		{input: -128, expected: []byte{0x80, 0x7f}},
		{input: 0, expected: []byte{0x00}},
		{input: 624485, expected: []byte{0xe5, 0x8e, 0x26}},
	} {
		got := EncodeInt32(c.input)
		if !bytes.Equal(got, c.expected) {
			t.Errorf("EncodeInt32(%d) = %x, want %x", c.input, got, c.expected)
		}
	}
}

func TestLoadUint32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 4, 16256, 624485, 165675008, 0xffffffff} {
		encoded := EncodeUint32(v)
		decoded, n, err := LoadUint32(encoded)
		if err != nil {
			t.Fatalf("LoadUint32(%x): %v", encoded, err)
		}
		if decoded != v {
			t.Errorf("LoadUint32(%x) = %d, want %d", encoded, decoded, v)
		}
		if int(n) != len(encoded) {
			t.Errorf("LoadUint32(%x) consumed %d bytes, want %d", encoded, n, len(encoded))
		}
	}
}

func TestLoadUint32Overlong(t *testing.T) {
	_, _, err := LoadUint32([]byte{0x83, 0x80, 0x80, 0x80, 0x80, 0x00})
	if err == nil {
		t.Error("expected overlong encoding to error")
	}
}

func TestLoadInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 19, 127, -127, 129, -129} {
		encoded := EncodeInt32(v)
		decoded, n, err := LoadInt32(encoded)
		if err != nil {
			t.Fatalf("LoadInt32(%x): %v", encoded, err)
		}
		if decoded != v {
			t.Errorf("LoadInt32(%x) = %d, want %d", encoded, decoded, v)
		}
		if int(n) != len(encoded) {
			t.Errorf("LoadInt32(%x) consumed %d bytes, want %d", encoded, n, len(encoded))
		}
	}
}

func TestValueTypeRoundTrip(t *testing.T) {
	all := []ValueType{
		ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64,
		ValueTypeV128, ValueTypeFuncRef, ValueTypeExternRef,
	}
	for _, v := range all {
		b, err := v.ToByte()
		if err != nil {
			t.Fatalf("ToByte(%v): %v", v, err)
		}
		back, err := ValueTypeFromByte(b)
		if err != nil {
			t.Fatalf("ValueTypeFromByte(%#x): %v", b, err)
		}
		if back != v {
			t.Errorf("round trip %v -> %#x -> %v", v, b, back)
		}
	}
}

func TestValueTypeFromByteUnknown(t *testing.T) {
	if _, err := ValueTypeFromByte(0x00); err == nil {
		t.Error("expected error for unknown value type byte")
	}
}
