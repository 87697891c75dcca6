package modulectx

import (
	"fmt"

	"github.com/lunatic-run/plugin/internal/leb"
)

const funcTypeTag = 0x60

func decodeValTypeVec(b []byte) ([]leb.ValueType, []byte, error) {
	count, n, err := leb.LoadUint32(b)
	if err != nil {
		return nil, nil, err
	}
	b = b[n:]
	out := make([]leb.ValueType, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) == 0 {
			return nil, nil, fmt.Errorf("modulectx: truncated value-type vector")
		}
		vt, err := leb.ValueTypeFromByte(b[0])
		if err != nil {
			return nil, nil, err
		}
		out = append(out, vt)
		b = b[1:]
	}
	return out, b, nil
}

func decodeTypeSection(payload []byte) ([]FunctionType, error) {
	count, n, err := leb.LoadUint32(payload)
	if err != nil {
		return nil, err
	}
	b := payload[n:]
	types := make([]FunctionType, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) == 0 || b[0] != funcTypeTag {
			return nil, fmt.Errorf("modulectx: unsupported composite type in module (want functype 0x60)")
		}
		b = b[1:]
		params, rest, err := decodeValTypeVec(b)
		if err != nil {
			return nil, err
		}
		b = rest
		results, rest, err := decodeValTypeVec(b)
		if err != nil {
			return nil, err
		}
		b = rest
		types = append(types, FunctionType{Params: params, Results: results})
	}
	return types, nil
}

func decodeName(b []byte) (string, []byte, error) {
	n, consumed, err := leb.LoadUint32(b)
	if err != nil {
		return "", nil, err
	}
	b = b[consumed:]
	if uint32(len(b)) < n {
		return "", nil, fmt.Errorf("modulectx: truncated name")
	}
	return string(b[:n]), b[n:], nil
}

func decodeLimits(b []byte) (min uint32, max *uint32, rest []byte, err error) {
	if len(b) == 0 {
		return 0, nil, nil, fmt.Errorf("modulectx: truncated limits")
	}
	flags := b[0]
	b = b[1:]
	min, n, err := leb.LoadUint32(b)
	if err != nil {
		return 0, nil, nil, err
	}
	b = b[n:]
	if flags&0x01 != 0 {
		m, n, err := leb.LoadUint32(b)
		if err != nil {
			return 0, nil, nil, err
		}
		b = b[n:]
		max = &m
	}
	return min, max, b, nil
}

func decodeImportSection(payload []byte) ([]Import, uint32, error) {
	count, n, err := leb.LoadUint32(payload)
	if err != nil {
		return nil, 0, err
	}
	b := payload[n:]
	imports := make([]Import, 0, count)
	var funcCount uint32
	for i := uint32(0); i < count; i++ {
		mod, rest, err := decodeName(b)
		if err != nil {
			return nil, 0, err
		}
		b = rest
		name, rest, err := decodeName(b)
		if err != nil {
			return nil, 0, err
		}
		b = rest
		if len(b) == 0 {
			return nil, 0, fmt.Errorf("modulectx: truncated import descriptor")
		}
		kind := b[0]
		b = b[1:]
		var entity ImportEntity
		switch kind {
		case 0x00: // function
			idx, n, err := leb.LoadUint32(b)
			if err != nil {
				return nil, 0, err
			}
			b = b[n:]
			entity = ImportEntity{Kind: ImportFunc, FuncTypeIndex: idx}
			funcCount++
		case 0x01: // table
			if len(b) == 0 {
				return nil, 0, fmt.Errorf("modulectx: truncated table import")
			}
			elem, err := leb.ValueTypeFromByte(b[0])
			if err != nil {
				return nil, 0, err
			}
			b = b[1:]
			min, max, rest, err := decodeLimits(b)
			if err != nil {
				return nil, 0, err
			}
			b = rest
			entity = ImportEntity{Kind: ImportTable, Table: TableType{ElemType: elem, Min: min, Max: max}}
		case 0x02: // memory
			min, max, rest, err := decodeLimits(b)
			if err != nil {
				return nil, 0, err
			}
			b = rest
			entity = ImportEntity{Kind: ImportMemory, Memory: MemoryType{Min: min, Max: max}}
		case 0x03: // global
			if len(b) < 2 {
				return nil, 0, fmt.Errorf("modulectx: truncated global import")
			}
			vt, err := leb.ValueTypeFromByte(b[0])
			if err != nil {
				return nil, 0, err
			}
			mutable := b[1] != 0
			b = b[2:]
			entity = ImportEntity{Kind: ImportGlobal, Global: GlobalType{Type: vt, Mutable: mutable}}
		case 0x04: // tag
			if len(b) == 0 {
				return nil, 0, fmt.Errorf("modulectx: truncated tag import")
			}
			b = b[1:] // attribute byte, always 0
			idx, n, err := leb.LoadUint32(b)
			if err != nil {
				return nil, 0, err
			}
			b = b[n:]
			entity = ImportEntity{Kind: ImportTag, Tag: TagType{TypeIndex: idx}}
		default:
			return nil, 0, fmt.Errorf("modulectx: unknown import kind %#x", kind)
		}
		imports = append(imports, Import{Module: mod, Name: name, Entity: entity})
	}
	return imports, funcCount, nil
}

func decodeFunctionSection(payload []byte) ([]TypeIndex, error) {
	count, n, err := leb.LoadUint32(payload)
	if err != nil {
		return nil, err
	}
	b := payload[n:]
	out := make([]TypeIndex, 0, count)
	for i := uint32(0); i < count; i++ {
		idx, n, err := leb.LoadUint32(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]
		out = append(out, TypeIndex(idx))
	}
	return out, nil
}

func decodeExportSection(payload []byte) ([]Export, error) {
	count, n, err := leb.LoadUint32(payload)
	if err != nil {
		return nil, err
	}
	b := payload[n:]
	out := make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		name, rest, err := decodeName(b)
		if err != nil {
			return nil, err
		}
		b = rest
		if len(b) == 0 {
			return nil, fmt.Errorf("modulectx: truncated export")
		}
		kind := ExportKind(b[0])
		b = b[1:]
		idx, n, err := leb.LoadUint32(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]
		out = append(out, Export{Name: name, Kind: kind, Index: idx})
	}
	return out, nil
}

func decodeCodeSection(payload []byte) ([]Code, error) {
	count, n, err := leb.LoadUint32(payload)
	if err != nil {
		return nil, err
	}
	b := payload[n:]
	out := make([]Code, 0, count)
	for i := uint32(0); i < count; i++ {
		bodySize, n, err := leb.LoadUint32(b)
		if err != nil {
			return nil, err
		}
		b = b[n:]
		if uint32(len(b)) < bodySize {
			return nil, fmt.Errorf("modulectx: truncated function body")
		}
		entry := b[:bodySize]
		b = b[bodySize:]

		localsCount, n, err := leb.LoadUint32(entry)
		if err != nil {
			return nil, err
		}
		entry = entry[n:]
		locals := make([]Local, 0, localsCount)
		for j := uint32(0); j < localsCount; j++ {
			c, n, err := leb.LoadUint32(entry)
			if err != nil {
				return nil, err
			}
			entry = entry[n:]
			if len(entry) == 0 {
				return nil, fmt.Errorf("modulectx: truncated locals entry")
			}
			vt, err := leb.ValueTypeFromByte(entry[0])
			if err != nil {
				return nil, err
			}
			entry = entry[1:]
			locals = append(locals, Local{Count: c, Type: vt})
		}
		out = append(out, Code{Locals: locals, Body: entry})
	}
	return out, nil
}

// --- encoding ---

func encodeValTypeVec(types []leb.ValueType) []byte {
	out := leb.EncodeUint32(uint32(len(types)))
	for _, t := range types {
		b, _ := t.ToByte()
		out = append(out, b)
	}
	return out
}

func encodeName(s string) []byte {
	out := leb.EncodeUint32(uint32(len(s)))
	return append(out, s...)
}

func encodeLimits(min uint32, max *uint32) []byte {
	if max == nil {
		out := []byte{0x00}
		return append(out, leb.EncodeUint32(min)...)
	}
	out := []byte{0x01}
	out = append(out, leb.EncodeUint32(min)...)
	out = append(out, leb.EncodeUint32(*max)...)
	return out
}

func encodeTypeSection(types []FunctionType) []byte {
	out := leb.EncodeUint32(uint32(len(types)))
	for _, t := range types {
		out = append(out, funcTypeTag)
		out = append(out, encodeValTypeVec(t.Params)...)
		out = append(out, encodeValTypeVec(t.Results)...)
	}
	return out
}

func encodeImportSection(imports []Import) []byte {
	out := leb.EncodeUint32(uint32(len(imports)))
	for _, imp := range imports {
		out = append(out, encodeName(imp.Module)...)
		out = append(out, encodeName(imp.Name)...)
		switch imp.Entity.Kind {
		case ImportFunc:
			out = append(out, 0x00)
			out = append(out, leb.EncodeUint32(imp.Entity.FuncTypeIndex)...)
		case ImportTable:
			out = append(out, 0x01)
			b, _ := imp.Entity.Table.ElemType.ToByte()
			out = append(out, b)
			out = append(out, encodeLimits(imp.Entity.Table.Min, imp.Entity.Table.Max)...)
		case ImportMemory:
			out = append(out, 0x02)
			out = append(out, encodeLimits(imp.Entity.Memory.Min, imp.Entity.Memory.Max)...)
		case ImportGlobal:
			out = append(out, 0x03)
			b, _ := imp.Entity.Global.Type.ToByte()
			out = append(out, b)
			if imp.Entity.Global.Mutable {
				out = append(out, 0x01)
			} else {
				out = append(out, 0x00)
			}
		case ImportTag:
			out = append(out, 0x04, 0x00)
			out = append(out, leb.EncodeUint32(imp.Entity.Tag.TypeIndex)...)
		}
	}
	return out
}

func encodeFunctionSection(functions []TypeIndex) []byte {
	out := leb.EncodeUint32(uint32(len(functions)))
	for _, idx := range functions {
		out = append(out, leb.EncodeUint32(uint32(idx))...)
	}
	return out
}

func encodeExportSection(exports []Export) []byte {
	out := leb.EncodeUint32(uint32(len(exports)))
	for _, e := range exports {
		out = append(out, encodeName(e.Name)...)
		out = append(out, byte(e.Kind))
		out = append(out, leb.EncodeUint32(e.Index)...)
	}
	return out
}

func encodeCodeSection(code []Code) []byte {
	out := leb.EncodeUint32(uint32(len(code)))
	for _, c := range code {
		var entry []byte
		entry = append(entry, leb.EncodeUint32(uint32(len(c.Locals)))...)
		for _, l := range c.Locals {
			entry = append(entry, leb.EncodeUint32(l.Count)...)
			b, _ := l.Type.ToByte()
			entry = append(entry, b)
		}
		entry = append(entry, c.Body...)
		out = append(out, leb.EncodeUint32(uint32(len(entry)))...)
		out = append(out, entry...)
	}
	return out
}

func appendSection(module []byte, id byte, payload []byte) []byte {
	module = append(module, id)
	module = append(module, leb.EncodeUint32(uint32(len(payload)))...)
	return append(module, payload...)
}

// Encode composes the module in canonical section order: type, import,
// function, table, memory, global, export, start, element, data-count, code,
// data, custom/other. Sections with no content are omitted. Sections this
// editor does not model round-trip byte-for-byte, each in their own original
// relative order, but a custom section interleaved between two standard
// sections in the source module never blocks either from reaching its
// canonical bucket (see DESIGN.md's Open Question on custom-section
// placement: only their position relative to *other* custom/unknown
// sections is preserved, not their position relative to standard sections).
func (m *ModuleContext) Encode() ([]byte, error) {
	out := append([]byte{}, wasmMagic...)
	out = append(out, wasmVersion...)

	if len(m.Types) > 0 {
		out = appendSection(out, sectionType, encodeTypeSection(m.Types))
	}
	if len(m.Imports) > 0 {
		out = appendSection(out, sectionImport, encodeImportSection(m.Imports))
	}
	if len(m.Functions) > 0 {
		out = appendSection(out, sectionFunction, encodeFunctionSection(m.Functions))
	}

	remaining := m.RawSections
	var matched []RawSection

	matched, remaining = partition(remaining, func(id byte) bool {
		return id == sectionTable || id == sectionMemory || id == sectionGlobal
	})
	for _, s := range matched {
		out = appendSection(out, s.ID, s.Data)
	}

	if len(m.Exports) > 0 {
		out = appendSection(out, sectionExport, encodeExportSection(m.Exports))
	}

	matched, remaining = partition(remaining, func(id byte) bool { return id == sectionStart })
	for _, s := range matched {
		out = appendSection(out, s.ID, s.Data)
	}

	matched, remaining = partition(remaining, func(id byte) bool { return id == sectionElement })
	for _, s := range matched {
		out = appendSection(out, s.ID, s.Data)
	}

	matched, remaining = partition(remaining, func(id byte) bool { return id == sectionDataCount })
	for _, s := range matched {
		out = appendSection(out, s.ID, s.Data)
	}

	if len(m.Code) > 0 {
		out = appendSection(out, sectionCode, encodeCodeSection(m.Code))
	}

	matched, remaining = partition(remaining, func(id byte) bool { return id == sectionData })
	for _, s := range matched {
		out = appendSection(out, s.ID, s.Data)
	}

	// Everything left (custom sections and any unmodeled/unknown ids) in
	// original relative order.
	for _, s := range remaining {
		out = appendSection(out, s.ID, s.Data)
	}

	return out, nil
}

// partition splits sections into those matching predicate and those that
// don't, each retaining their original relative order. Unlike a prefix scan,
// this finds every matching section regardless of what precedes it — custom
// sections interleaved among standard ones (legal per the wasm spec) must
// not block a later table/start/element/datacount/data section from landing
// in its canonical bucket.
func partition(sections []RawSection, match func(id byte) bool) (matched, rest []RawSection) {
	for _, s := range sections {
		if match(s.ID) {
			matched = append(matched, s)
		} else {
			rest = append(rest, s)
		}
	}
	return matched, rest
}
