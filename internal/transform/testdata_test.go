package transform

import (
	"github.com/lunatic-run/plugin/internal/leb"
)

// buildModule assembles a minimal, hand-written wasm binary with no
// sections it doesn't need: optional imports from "lunatic_plugin", a
// single memory export, and a single defined function named
// "lunatic_transform_module" whose body is exactly bodyOps.
//
// This exists because no WAT-to-wasm toolchain is available in this
// module's dependency set; fixtures are assembled at the byte level
// instead, the same way tetratelabs-wazero's own binary tests do.
func buildModule(withHostImports bool, bodyOps []byte) []byte {
	return buildModuleWithLocals(withHostImports, nil, bodyOps)
}

// localGroup is one compressed locals declaration in a function body: count
// repetitions of a single value type.
type localGroup struct {
	Count uint32
	Type  byte
}

// buildModuleWithLocals is buildModule generalized to declare locals ahead
// of bodyOps, for fixtures (like the XOR transform) whose body needs a loop
// counter.
func buildModuleWithLocals(withHostImports bool, locals []localGroup, bodyOps []byte) []byte {
	var out []byte
	out = append(out, 0x00, 0x61, 0x73, 0x6d) // magic
	out = append(out, 0x01, 0x00, 0x00, 0x00) // version

	// Type section: T0 ()->(i32) input_size, T1 (i32)->() read_input,
	// T2 (i32,i32)->() write_output, T3 ()->() transform entry point.
	var types []byte
	types = append(types, leb.EncodeUint32(4)...)
	types = append(types, 0x60, 0x00, 0x01, 0x7f) // T0
	types = append(types, 0x60, 0x01, 0x7f, 0x00) // T1
	types = append(types, 0x60, 0x02, 0x7f, 0x7f, 0x00) // T2
	types = append(types, 0x60, 0x00, 0x00) // T3
	out = appendSec(out, 1, types)

	importFuncCount := 0
	if withHostImports {
		var imports []byte
		imports = append(imports, leb.EncodeUint32(3)...)
		imports = append(imports, encodeImport("lunatic_plugin", "input_size", 0)...)
		imports = append(imports, encodeImport("lunatic_plugin", "read_input", 1)...)
		imports = append(imports, encodeImport("lunatic_plugin", "write_output", 2)...)
		out = appendSec(out, 2, imports)
		importFuncCount = 3
	}

	// Function section: one defined function of type T3 (the transform
	// entry point).
	var funcs []byte
	funcs = append(funcs, leb.EncodeUint32(1)...)
	funcs = append(funcs, leb.EncodeUint32(3)...) // type index 3
	out = appendSec(out, 3, funcs)

	// Memory section: one memory, min 1 page.
	mem := []byte{0x00}
	mem = append(mem, leb.EncodeUint32(1)...)
	out = appendSec(out, 5, append(leb.EncodeUint32(1), mem...))

	// Export section: memory and the transform entry point.
	var exports []byte
	exports = append(exports, leb.EncodeUint32(2)...)
	exports = append(exports, encodeExport("memory", 0x02, 0)...)
	exports = append(exports, encodeExport("lunatic_transform_module", 0x00, uint32(importFuncCount))...)
	out = appendSec(out, 7, exports)

	// Code section.
	var body []byte
	body = append(body, leb.EncodeUint32(uint32(len(locals)))...)
	for _, l := range locals {
		body = append(body, leb.EncodeUint32(l.Count)...)
		body = append(body, l.Type)
	}
	body = append(body, bodyOps...)
	var code []byte
	code = append(code, leb.EncodeUint32(1)...)
	code = append(code, leb.EncodeUint32(uint32(len(body)))...)
	code = append(code, body...)
	out = appendSec(out, 10, code)

	return out
}

// buildEmptyModule is a module with no functions or exports at all, used to
// exercise the skip-if-missing-export path.
func buildEmptyModule() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	return out
}

// buildModuleWithDataInit is buildModule(true, bodyOps) plus one active data
// segment initializing memory at offset 0 with data, appended after the code
// section (legal canonical position for section id 11).
func buildModuleWithDataInit(bodyOps []byte, data []byte) []byte {
	out := buildModule(true, bodyOps)

	var payload []byte
	payload = append(payload, leb.EncodeUint32(1)...) // one segment
	payload = append(payload, 0x00)                   // flags: active, memory index 0
	payload = append(payload, 0x41)                    // i32.const
	payload = append(payload, leb.EncodeInt32(0)...)   // offset 0
	payload = append(payload, 0x0b)                    // end
	payload = append(payload, leb.EncodeUint32(uint32(len(data)))...)
	payload = append(payload, data...)

	return appendSec(out, 11, payload)
}

// prependHeaderBody is S1's transform: read the input at offset 4 (leaving
// the 4-byte header data-initialized at offset 0 untouched) and write out
// [header ++ input].
var prependHeaderBody = []byte{
	0x41, 0x04, // i32.const 4          (dest_ptr for read_input)
	0x10, 0x01, // call $read_input
	0x41, 0x00, // i32.const 0          (ptr for write_output)
	0x10, 0x00, // call $input_size
	0x41, 0x04, // i32.const 4
	0x6a,       // i32.add
	0x10, 0x02, // call $write_output
	0x0b, // end
}

// i32const encodes an i32.const instruction for v. Values outside -64..63
// need a real multi-byte signed LEB128 encoding, not a single raw byte —
// prependHeaderBody's literal 0x04/0x00 operands get away with inlining
// because they're small; appendByteBody and buildXorBody push byte values
// and an XOR key outside that range, so they go through this helper.
func i32const(v int32) []byte {
	return append([]byte{0x41}, leb.EncodeInt32(v)...)
}

// appendByteBody is S3's transform shape generalized to any literal byte:
// read the input into memory at 0, store b at offset input_size(), then
// write out [input ++ b].
func appendByteBody(b byte) []byte {
	var out []byte
	out = append(out, i32const(0)...) // dest_ptr for read_input
	out = append(out, 0x10, 0x01)     // call $read_input
	out = append(out, 0x10, 0x00)     // call $input_size (store address = input_len)
	out = append(out, i32const(int32(b))...)
	out = append(out, 0x3a, 0x00, 0x00) // i32.store8 align=0 offset=0
	out = append(out, i32const(0)...)   // ptr for write_output
	out = append(out, 0x10, 0x00)       // call $input_size
	out = append(out, i32const(1)...)
	out = append(out, 0x6a)       // i32.add
	out = append(out, 0x10, 0x02) // call $write_output
	out = append(out, 0x0b)       // end
	return out
}

// xorKey is S4's literal XOR key.
const xorKey = 0x42

// buildXorBody is S4's transform: XOR every input byte with xorKey in
// place, then write the (same-length) result back out. Needs two locals:
// 0 = loop counter i, 1 = input length.
func buildXorBody() []byte {
	var out []byte
	out = append(out, i32const(0)...)
	out = append(out, 0x10, 0x01) // call $read_input (copy input to memory at 0)
	out = append(out, 0x10, 0x00) // call $input_size
	out = append(out, 0x21, 0x01) // local.set 1 (len = input_size())
	out = append(out, i32const(0)...)
	out = append(out, 0x21, 0x00)       // local.set 0 (i = 0)
	out = append(out, 0x02, 0x40)       // block
	out = append(out, 0x03, 0x40)       // loop
	out = append(out, 0x20, 0x00)       // local.get 0 (i)
	out = append(out, 0x20, 0x01)       // local.get 1 (len)
	out = append(out, 0x4f)             // i32.ge_u
	out = append(out, 0x0d, 0x01)       // br_if 1 (i >= len: break out of block)
	out = append(out, 0x20, 0x00)       // local.get 0 (store addr = i)
	out = append(out, 0x20, 0x00)       // local.get 0 (load addr = i)
	out = append(out, 0x2d, 0x00, 0x00) // i32.load8_u align=0 offset=0
	out = append(out, i32const(xorKey)...)
	out = append(out, 0x73)             // i32.xor
	out = append(out, 0x3a, 0x00, 0x00) // i32.store8 align=0 offset=0
	out = append(out, 0x20, 0x00)       // local.get 0
	out = append(out, i32const(1)...)
	out = append(out, 0x6a)       // i32.add
	out = append(out, 0x21, 0x00) // local.set 0 (i = i + 1)
	out = append(out, 0x0c, 0x00) // br 0 (continue loop)
	out = append(out, 0x0b)       // end loop
	out = append(out, 0x0b)       // end block
	out = append(out, i32const(0)...)
	out = append(out, 0x20, 0x01) // local.get 1 (len)
	out = append(out, 0x10, 0x02) // call $write_output
	out = append(out, 0x0b)       // end
	return out
}

var xorBody = buildXorBody()

// xorBodyLocals declares the two i32 locals xorBody references.
var xorBodyLocals = []localGroup{{Count: 2, Type: 0x7f}}

func appendSec(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = append(out, leb.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func encodeImport(module, name string, typeIdx uint32) []byte {
	var out []byte
	out = append(out, leb.EncodeUint32(uint32(len(module)))...)
	out = append(out, module...)
	out = append(out, leb.EncodeUint32(uint32(len(name)))...)
	out = append(out, name...)
	out = append(out, 0x00) // func import kind
	out = append(out, leb.EncodeUint32(typeIdx)...)
	return out
}

func encodeExport(name string, kind byte, index uint32) []byte {
	var out []byte
	out = append(out, leb.EncodeUint32(uint32(len(name)))...)
	out = append(out, name...)
	out = append(out, kind)
	out = append(out, leb.EncodeUint32(index)...)
	return out
}
