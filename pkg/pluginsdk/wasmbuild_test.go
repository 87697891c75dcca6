package pluginsdk

import (
	"bytes"
	"testing"

	"github.com/lunatic-run/plugin/internal/leb"
)

func TestLocalEncode(t *testing.T) {
	l := Local{Count: 3, Type: leb.ValueTypeI32}
	got := l.Encode()
	want := [5]byte{3, 0, 0, 0, 0x7f}
	if got != want {
		t.Fatalf("Encode() = %v, want %v", got, want)
	}
}

func TestEncodeLocals(t *testing.T) {
	locals := []Local{
		{Count: 1, Type: leb.ValueTypeI32},
		{Count: 2, Type: leb.ValueTypeI64},
	}
	got := EncodeLocals(locals)
	want := []byte{1, 0, 0, 0, 0x7f, 2, 0, 0, 0, 0x7e}
	if !bytes.Equal(got, want) {
		t.Fatalf("EncodeLocals() = % x, want % x", got, want)
	}
}

func TestPluginBuilder(t *testing.T) {
	b := NewPluginBuilder()

	typeIdx := b.AddFunctionType(FunctionType{
		Params:  []leb.ValueType{leb.ValueTypeI32},
		Results: []leb.ValueType{leb.ValueTypeI32},
	})
	if typeIdx != 0 {
		t.Fatalf("AddFunctionType() = %d, want 0", typeIdx)
	}

	funcIdx := b.AddFunction(typeIdx, []Local{{Count: 1, Type: leb.ValueTypeI32}}, []byte{0x20, 0x00, 0x0b})
	if funcIdx != 0 {
		t.Fatalf("AddFunction() = %d, want 0", funcIdx)
	}

	b.AddFunctionExport("my_func", funcIdx)

	if len(b.Types()) != 1 {
		t.Fatalf("Types() length = %d, want 1", len(b.Types()))
	}
	if b.FunctionCount() != 1 {
		t.Fatalf("FunctionCount() = %d, want 1", b.FunctionCount())
	}
	if b.ExportCount() != 1 {
		t.Fatalf("ExportCount() = %d, want 1", b.ExportCount())
	}
	name, gotFuncIdx := b.Export(0)
	if name != "my_func" || gotFuncIdx != funcIdx {
		t.Fatalf("Export(0) = (%q, %d), want (\"my_func\", %d)", name, gotFuncIdx, funcIdx)
	}
}

func TestEncodeLEB128Uint32(t *testing.T) {
	cases := []struct {
		in   uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, c := range cases {
		if got := EncodeLEB128Uint32(c.in); !bytes.Equal(got, c.want) {
			t.Errorf("EncodeLEB128Uint32(%d) = % x, want % x", c.in, got, c.want)
		}
	}
}

func TestEncodeLEB128Int32(t *testing.T) {
	cases := []struct {
		in   int32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{-1, []byte{0x7f}},
		{-128, []byte{0x80, 0x7f}},
	}
	for _, c := range cases {
		if got := EncodeLEB128Int32(c.in); !bytes.Equal(got, c.want) {
			t.Errorf("EncodeLEB128Int32(%d) = % x, want % x", c.in, got, c.want)
		}
	}
}
