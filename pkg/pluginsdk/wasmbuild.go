package pluginsdk

import (
	"encoding/binary"

	"github.com/lunatic-run/plugin/internal/leb"
)

// TypeIndex is a type-safe index into a module's type section, as returned
// by PluginBuilder.AddFunctionType.
type TypeIndex uint32

// FuncIndex is a type-safe index into a module's function section, as
// returned by PluginBuilder.AddFunction.
type FuncIndex uint32

// FunctionType is a WebAssembly function signature: parameter and result
// value types, reusing the same closed ValueType enum the host's module
// editor speaks (internal/leb.ValueType) rather than a second duplicate
// enum, since both sides of the transform boundary live in one Go module.
type FunctionType struct {
	Params  []leb.ValueType
	Results []leb.ValueType
}

// Local is one locals declaration for a function body a plugin is
// assembling.
type Local struct {
	Count uint32
	Type  leb.ValueType
}

// Encode serializes a Local to the SDK's fixed 5-byte format: a 4-byte
// little-endian count followed by the one-byte value type. This is the
// plugin-author-facing contract, distinct from the wasm binary format's own
// LEB128-prefixed locals vector that internal/modulectx reads and writes on
// the host side; modulectx.Parse does not read this 5-byte form.
func (l Local) Encode() [5]byte {
	var out [5]byte
	binary.LittleEndian.PutUint32(out[:4], l.Count)
	out[4] = byte(l.Type)
	return out
}

// EncodeLocals serializes a slice of locals with Local.Encode, in order.
func EncodeLocals(locals []Local) []byte {
	out := make([]byte, 0, len(locals)*5)
	for _, l := range locals {
		enc := l.Encode()
		out = append(out, enc[:]...)
	}
	return out
}

type builtFunction struct {
	Type   TypeIndex
	Locals []Local
	Body   []byte
}

type builtExport struct {
	Name string
	Func FuncIndex
}

// PluginBuilder accumulates function types, bodies, and exports for a new
// module a transform plugin is assembling, mirroring the shape of the
// host's own module editor (internal/modulectx.ModuleContext) on the
// plugin's side of the wasm boundary — a plugin has no access to that
// internal package, so it builds up the same three tables here and is
// responsible for serializing them into the bytes it returns from its
// registered TransformFunc.
type PluginBuilder struct {
	types     []FunctionType
	functions []builtFunction
	exports   []builtExport
}

// NewPluginBuilder returns an empty builder.
func NewPluginBuilder() *PluginBuilder {
	return &PluginBuilder{}
}

// AddFunctionType appends a function signature and returns its index.
func (b *PluginBuilder) AddFunctionType(ft FunctionType) TypeIndex {
	idx := TypeIndex(len(b.types))
	b.types = append(b.types, ft)
	return idx
}

// AddFunction appends a function body under typeIdx and returns its index.
func (b *PluginBuilder) AddFunction(typeIdx TypeIndex, locals []Local, body []byte) FuncIndex {
	idx := FuncIndex(len(b.functions))
	b.functions = append(b.functions, builtFunction{Type: typeIdx, Locals: locals, Body: body})
	return idx
}

// AddFunctionExport records a name for an already-added function.
func (b *PluginBuilder) AddFunctionExport(name string, funcIdx FuncIndex) {
	b.exports = append(b.exports, builtExport{Name: name, Func: funcIdx})
}

// Types returns the function types added so far.
func (b *PluginBuilder) Types() []FunctionType {
	return append([]FunctionType(nil), b.types...)
}

// FunctionCount is the number of functions added so far.
func (b *PluginBuilder) FunctionCount() int {
	return len(b.functions)
}

// Function returns the type, locals, and body recorded for funcIdx.
func (b *PluginBuilder) Function(funcIdx FuncIndex) (typeIdx TypeIndex, locals []Local, body []byte) {
	f := b.functions[funcIdx]
	return f.Type, f.Locals, f.Body
}

// ExportCount is the number of exports added so far.
func (b *PluginBuilder) ExportCount() int {
	return len(b.exports)
}

// Export returns the name and function index recorded at position i.
func (b *PluginBuilder) Export(i int) (name string, funcIdx FuncIndex) {
	e := b.exports[i]
	return e.Name, e.Func
}

// EncodeLEB128Uint32 encodes v as unsigned LEB128, for plugin authors
// assembling raw section bytes (vector counts, type/function indices) by
// hand. It is the same codec internal/leb uses on the host side.
func EncodeLEB128Uint32(v uint32) []byte {
	return leb.EncodeUint32(v)
}

// EncodeLEB128Int32 encodes v as signed LEB128.
func EncodeLEB128Int32(v int32) []byte {
	return leb.EncodeInt32(v)
}
