package lifecycle

import (
	"github.com/lunatic-run/plugin/internal/leb"
)

// buildHookModule builds a minimal module exporting "memory" (if withMemory)
// and a single function named export, with body bodyOps. moduleHook selects
// the function's type: process hooks take one i64 pid argument, module hooks
// take (ptr i32, len i32), matching the dispatcher's buildArgs contract.
func buildHookModule(export string, withMemory, moduleHook bool, bodyOps []byte) []byte {
	var out []byte
	out = append(out, 0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)

	var types []byte
	types = append(types, leb.EncodeUint32(1)...)
	if moduleHook {
		types = append(types, 0x60, 0x02, 0x7f, 0x7f, 0x00) // (i32,i32)->()
	} else {
		types = append(types, 0x60, 0x01, 0x7e, 0x00) // (i64)->()
	}
	out = appendSec(out, 1, types)

	funcs := append(leb.EncodeUint32(1), leb.EncodeUint32(0)...)
	out = appendSec(out, 3, funcs)

	if withMemory {
		mem := append([]byte{0x00}, leb.EncodeUint32(1)...)
		out = appendSec(out, 5, append(leb.EncodeUint32(1), mem...))
	}

	exportCount := uint32(1)
	var exports []byte
	if withMemory {
		exportCount = 2
	}
	exports = append(exports, leb.EncodeUint32(exportCount)...)
	if withMemory {
		exports = append(exports, encodeExport("memory", 0x02, 0)...)
	}
	exports = append(exports, encodeExport(export, 0x00, 0)...)
	out = appendSec(out, 7, exports)

	body := append(leb.EncodeUint32(0), bodyOps...)
	code := append(leb.EncodeUint32(1), leb.EncodeUint32(uint32(len(body)))...)
	code = append(code, body...)
	out = appendSec(out, 10, code)

	return out
}

func appendSec(out []byte, id byte, payload []byte) []byte {
	out = append(out, id)
	out = append(out, leb.EncodeUint32(uint32(len(payload)))...)
	return append(out, payload...)
}

func encodeExport(name string, kind byte, index uint32) []byte {
	var out []byte
	out = append(out, leb.EncodeUint32(uint32(len(name)))...)
	out = append(out, name...)
	out = append(out, kind)
	out = append(out, leb.EncodeUint32(index)...)
	return out
}
