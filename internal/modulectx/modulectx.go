// Package modulectx parses a wasm binary into a structured, additively
// editable form and re-encodes it in canonical section order, preserving
// every section it does not itself model.
package modulectx

import (
	"bytes"
	"fmt"

	"github.com/lunatic-run/plugin/internal/leb"
)

// Section ids per the wasm core binary format.
const (
	sectionCustom    = 0
	sectionType      = 1
	sectionImport    = 2
	sectionFunction  = 3
	sectionTable     = 4
	sectionMemory    = 5
	sectionGlobal    = 6
	sectionExport    = 7
	sectionStart     = 8
	sectionElement   = 9
	sectionCode      = 10
	sectionData      = 11
	sectionDataCount = 12
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}
var wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}

// FunctionType is an ordered list of parameter value types and an ordered
// list of result value types.
type FunctionType struct {
	Params  []leb.ValueType
	Results []leb.ValueType
}

// TypeIndex and FuncIndex are distinct newtypes over an unsigned 32-bit
// index; they are never interchanged.
type TypeIndex uint32
type FuncIndex uint32

// Local is a (count, value type) pair, the module editor's internal shape.
// Its wire encoding is the standard LEB128-count-prefixed run, distinct from
// the plugin SDK's fixed 4-byte+1-byte external contract (pkg/pluginsdk).
type Local struct {
	Count uint32
	Type  leb.ValueType
}

// ImportEntityKind is the tag of an import's referent.
type ImportEntityKind byte

const (
	ImportFunc ImportEntityKind = iota
	ImportTable
	ImportMemory
	ImportGlobal
	ImportTag
)

// TableType is a wasm table's element type and limits.
type TableType struct {
	ElemType leb.ValueType
	Min      uint32
	Max      *uint32
}

// MemoryType is a wasm memory's page limits.
type MemoryType struct {
	Min uint32
	Max *uint32
}

// GlobalType is a wasm global's value type and mutability.
type GlobalType struct {
	Type    leb.ValueType
	Mutable bool
}

// TagType references the function type of a wasm exception tag.
type TagType struct {
	TypeIndex uint32
}

// ImportEntity is the tagged referent of an import: a function-type index,
// table type, memory type, global type, or tag type.
type ImportEntity struct {
	Kind          ImportEntityKind
	FuncTypeIndex uint32
	Table         TableType
	Memory        MemoryType
	Global        GlobalType
	Tag           TagType
}

// Import is a parsed `{module, name, entity}` import entry.
type Import struct {
	Module string
	Name   string
	Entity ImportEntity
}

// ExportKind is the tag of an export's referent.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
	ExportTag
)

// Export is either a function export added through AddFunctionExport or one
// parsed from the original module (any kind).
type Export struct {
	Name  string
	Kind  ExportKind
	Index uint32
}

// Code is a function body: its locals, structurally, and its operator bytes
// verbatim (from the first operator through the trailing `end`, inclusive).
type Code struct {
	Locals []Local
	Body   []byte
}

// RawSection is an opaque section this editor does not model structurally,
// captured as its payload bytes (without the id/size header) and re-emitted
// verbatim in canonical position.
type RawSection struct {
	ID   byte
	Data []byte
}

// ModuleContext is the parsed, additively-editable mid-form of a wasm
// module.
type ModuleContext struct {
	Types           []FunctionType
	Imports         []Import
	ImportFuncCount uint32
	Functions       []TypeIndex
	Code            []Code
	Exports         []Export
	RawSections     []RawSection
	FunctionNames   map[string]FuncIndex
}

// Parse traverses module's sections in file order, translating recognised
// sections into structured form and capturing everything else as a raw,
// opaque byte range. It fails fatally if the type section contains any
// composite form other than a plain function type.
func Parse(module []byte) (*ModuleContext, error) {
	if len(module) < 8 || !bytes.Equal(module[:4], wasmMagic) || !bytes.Equal(module[4:8], wasmVersion) {
		return nil, fmt.Errorf("modulectx: not a wasm binary (bad magic/version header)")
	}

	ctx := &ModuleContext{FunctionNames: map[string]FuncIndex{}}
	rest := module[8:]
	for len(rest) > 0 {
		id := rest[0]
		size, n, err := leb.LoadUint32(rest[1:])
		if err != nil {
			return nil, fmt.Errorf("modulectx: reading section %d size: %w", id, err)
		}
		payloadStart := 1 + int(n)
		payloadEnd := payloadStart + int(size)
		if payloadEnd > len(rest) {
			return nil, fmt.Errorf("modulectx: section %d payload exceeds module length", id)
		}
		payload := rest[payloadStart:payloadEnd]
		rest = rest[payloadEnd:]

		switch id {
		case sectionType:
			types, err := decodeTypeSection(payload)
			if err != nil {
				return nil, err
			}
			ctx.Types = types
		case sectionImport:
			imports, funcCount, err := decodeImportSection(payload)
			if err != nil {
				return nil, fmt.Errorf("modulectx: import section: %w", err)
			}
			ctx.Imports = imports
			ctx.ImportFuncCount = funcCount
		case sectionFunction:
			fns, err := decodeFunctionSection(payload)
			if err != nil {
				return nil, fmt.Errorf("modulectx: function section: %w", err)
			}
			ctx.Functions = fns
		case sectionExport:
			exports, err := decodeExportSection(payload)
			if err != nil {
				return nil, fmt.Errorf("modulectx: export section: %w", err)
			}
			ctx.Exports = exports
			for _, e := range exports {
				if e.Kind == ExportFunc {
					ctx.FunctionNames[e.Name] = FuncIndex(e.Index)
				}
			}
		case sectionCode:
			code, err := decodeCodeSection(payload)
			if err != nil {
				return nil, fmt.Errorf("modulectx: code section: %w", err)
			}
			ctx.Code = code
		case sectionTable, sectionMemory, sectionGlobal, sectionStart,
			sectionElement, sectionData, sectionDataCount, sectionCustom:
			ctx.RawSections = append(ctx.RawSections, RawSection{ID: id, Data: payload})
		default:
			// Unknown section ids are preserved the same way as known raw ones.
			ctx.RawSections = append(ctx.RawSections, RawSection{ID: id, Data: payload})
		}
	}
	return ctx, nil
}

// AddFunctionType appends a new function type and returns its index.
func (m *ModuleContext) AddFunctionType(params, results []leb.ValueType) TypeIndex {
	idx := TypeIndex(len(m.Types))
	m.Types = append(m.Types, FunctionType{Params: params, Results: results})
	return idx
}

// AddFunction appends a new defined function (locals + body) and returns its
// function index, accounting for the imported-function index space.
func (m *ModuleContext) AddFunction(typeIdx TypeIndex, locals []Local, body []byte) FuncIndex {
	funcIdx := FuncIndex(m.ImportFuncCount) + FuncIndex(len(m.Functions))
	m.Functions = append(m.Functions, typeIdx)
	m.Code = append(m.Code, Code{Locals: locals, Body: body})
	return funcIdx
}

// AddFunctionExport appends a new function export. No uniqueness check is
// performed; new exports are not indexed into FunctionNames since they are
// never looked up before emit.
func (m *ModuleContext) AddFunctionExport(name string, funcIdx FuncIndex) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: ExportFunc, Index: uint32(funcIdx)})
}

// FunctionByName returns the function index of a pre-existing (parsed)
// function export.
func (m *ModuleContext) FunctionByName(name string) (FuncIndex, bool) {
	idx, ok := m.FunctionNames[name]
	return idx, ok
}
