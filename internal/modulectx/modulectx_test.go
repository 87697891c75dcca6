package modulectx

import (
	"bytes"
	"testing"

	"github.com/lunatic-run/plugin/internal/leb"
)

func appendSec(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = append(out, leb.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

// buildSampleModule hand-assembles a module with a type, import, function,
// memory, export and code section, in canonical order, so this package's own
// Encode output can be compared against it byte-for-byte.
func buildSampleModule() []byte {
	out := append([]byte{}, wasmMagic...)
	out = append(out, wasmVersion...)

	types := append(leb.EncodeUint32(1), 0x60, 0x00, 0x01, 0x7f) // T0 ()->(i32)
	out = appendSec(out, sectionType, types)

	var imports []byte
	imports = append(imports, leb.EncodeUint32(1)...)
	imports = append(imports, encodeName("env")...)
	imports = append(imports, encodeName("get")...)
	imports = append(imports, 0x00) // func
	imports = append(imports, leb.EncodeUint32(0)...)
	out = appendSec(out, sectionImport, imports)

	funcs := append(leb.EncodeUint32(1), leb.EncodeUint32(0)...)
	out = appendSec(out, sectionFunction, funcs)

	mem := append([]byte{0x00}, leb.EncodeUint32(1)...)
	out = appendSec(out, sectionMemory, append(leb.EncodeUint32(1), mem...))

	var exports []byte
	exports = append(exports, leb.EncodeUint32(2)...)
	exports = append(exports, encodeName("memory")...)
	exports = append(exports, byte(ExportMemory))
	exports = append(exports, leb.EncodeUint32(0)...)
	exports = append(exports, encodeName("run")...)
	exports = append(exports, byte(ExportFunc))
	exports = append(exports, leb.EncodeUint32(1)...) // func index 1 (after the 1 import)
	out = appendSec(out, sectionExport, exports)

	body := []byte{0x41, 0x2a, 0x0b} // i32.const 42; end
	entry := append(leb.EncodeUint32(0), body...)
	code := append(leb.EncodeUint32(1), leb.EncodeUint32(uint32(len(entry)))...)
	code = append(code, entry...)
	out = appendSec(out, sectionCode, code)

	return out
}

func TestParseEncodeRoundTrip(t *testing.T) {
	original := buildSampleModule()

	ctx, err := Parse(original)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(ctx.Types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(ctx.Types))
	}
	if len(ctx.Imports) != 1 || ctx.ImportFuncCount != 1 {
		t.Fatalf("expected 1 func import, got %d imports, funcCount=%d", len(ctx.Imports), ctx.ImportFuncCount)
	}
	if idx, ok := ctx.FunctionByName("run"); !ok || idx != 1 {
		t.Fatalf("expected run at func index 1, got (%d, %v)", idx, ok)
	}

	reencoded, err := ctx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(original, reencoded) {
		t.Fatalf("round trip mismatch:\noriginal: % x\nreencoded: % x", original, reencoded)
	}
}

func TestAddFunctionIsAdditive(t *testing.T) {
	// Minimal module: just the header, no sections.
	base := append(append([]byte{}, wasmMagic...), wasmVersion...)
	ctx, err := Parse(base)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	typeIdx := ctx.AddFunctionType(nil, []leb.ValueType{leb.ValueTypeI32})
	funcIdx := ctx.AddFunction(typeIdx, nil, []byte{0x41, 0x07, 0x0b}) // i32.const 7; end
	ctx.AddFunctionExport("answer", funcIdx)

	encoded, err := ctx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	reparsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	idx, ok := reparsed.FunctionByName("answer")
	if !ok || idx != 0 {
		t.Fatalf("expected exported function 'answer' at index 0, got (%d, %v)", idx, ok)
	}
	if len(reparsed.Code) != 1 {
		t.Fatalf("expected 1 code entry, got %d", len(reparsed.Code))
	}
}

func TestParseRejectsUnsupportedCompositeType(t *testing.T) {
	out := append(append([]byte{}, wasmMagic...), wasmVersion...)
	// Type section with a count of 1 and a tag byte that isn't 0x60.
	types := append(leb.EncodeUint32(1), 0x5f)
	out = appendSec(out, sectionType, types)

	_, err := Parse(out)
	if err == nil {
		t.Fatal("expected error for unsupported composite type")
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

// TestEncodeCanonicalOrderSurvivesInterleavedCustomSections builds a module
// where a custom section sits between the table section and the start
// section in source order — legal per the wasm spec, since custom sections
// may appear anywhere. Encode must still place table/start/element/data in
// their canonical slots; the custom section landing at the end is the only
// permitted reordering (see DESIGN.md's Open Question on custom-section
// placement).
func TestEncodeCanonicalOrderSurvivesInterleavedCustomSections(t *testing.T) {
	out := append([]byte{}, wasmMagic...)
	out = append(out, wasmVersion...)

	table := append([]byte{0x70}, append([]byte{0x00}, leb.EncodeUint32(0)...)...)
	out = appendSec(out, sectionTable, append(leb.EncodeUint32(1), table...))

	out = appendSec(out, sectionCustom, append(encodeName("mid"), 0xde, 0xad))

	out = appendSec(out, sectionStart, leb.EncodeUint32(0))

	elem := append(leb.EncodeUint32(0), leb.EncodeUint32(0)...)
	out = appendSec(out, sectionElement, append(leb.EncodeUint32(1), elem...))

	data := append(leb.EncodeUint32(0), append(leb.EncodeUint32(0), leb.EncodeUint32(0)...)...)
	out = appendSec(out, sectionData, append(leb.EncodeUint32(1), data...))

	ctx, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	encoded, err := ctx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	ids := sectionIDsInOrder(t, encoded)
	wantBeforeCustom := []byte{sectionTable, sectionStart, sectionElement, sectionData}
	idx := 0
	sawCustom := false
	for _, id := range ids {
		if id == sectionCustom {
			sawCustom = true
			continue
		}
		if sawCustom {
			t.Fatalf("standard section %#x emitted after custom section; order = %v", id, ids)
		}
		if idx >= len(wantBeforeCustom) || id != wantBeforeCustom[idx] {
			t.Fatalf("unexpected section order %v, want %v before the custom section", ids, wantBeforeCustom)
		}
		idx++
	}
	if idx != len(wantBeforeCustom) {
		t.Fatalf("missing standard sections: got order %v, want %v", ids, wantBeforeCustom)
	}

	if _, err := Parse(encoded); err != nil {
		t.Fatalf("re-parsing Encode output: %v", err)
	}
}

// sectionIDsInOrder walks a module's section stream (after the 8-byte
// header) and returns the section ids in encounter order.
func sectionIDsInOrder(t *testing.T, module []byte) []byte {
	t.Helper()
	b := module[8:]
	var ids []byte
	for len(b) > 0 {
		id := b[0]
		b = b[1:]
		size, n, err := leb.LoadUint32(b)
		if err != nil {
			t.Fatalf("reading section size: %v", err)
		}
		b = b[n:]
		if uint32(len(b)) < size {
			t.Fatalf("truncated section %#x", id)
		}
		b = b[size:]
		ids = append(ids, id)
	}
	return ids
}
