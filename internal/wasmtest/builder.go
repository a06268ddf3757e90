// Package wasmtest builds tiny wasm modules that speak the wrap ABI, for tests.
package wasmtest

// Builder assembles a module importing functions from "wrap" and exporting
// memory and a single _wrap_invoke(method_len, args_len, env_len) -> i32.
// All imported function parameters and results are i32.
type Builder struct {
	imports   []hostImport
	index     map[string]uint32
	data      []segment
	body      []byte
	locals    uint32
	memPages  uint32
	skipEntry bool
}

type hostImport struct {
	name    string
	params  int
	results int
}

type segment struct {
	offset uint32
	bytes  []byte
}

// Local indexes of _wrap_invoke parameters.
const (
	MethodLen uint32 = 0
	ArgsLen   uint32 = 1
	EnvLen    uint32 = 2
)

func New() *Builder {
	return &Builder{index: make(map[string]uint32), memPages: 1}
}

// Import declares a host function and returns its function index.
func (b *Builder) Import(name string, params, results int) uint32 {
	if idx, ok := b.index[name]; ok {
		return idx
	}
	idx := uint32(len(b.imports))
	b.imports = append(b.imports, hostImport{name: name, params: params, results: results})
	b.index[name] = idx
	return idx
}

// Locals adds n extra i32 locals after the three parameters.
func (b *Builder) Locals(n uint32) *Builder {
	b.locals = n
	return b
}

// Data places bytes in memory at offset.
func (b *Builder) Data(offset uint32, data []byte) *Builder {
	b.data = append(b.data, segment{offset: offset, bytes: data})
	return b
}

// Code appends instructions to the _wrap_invoke body.
func (b *Builder) Code(instrs ...[]byte) *Builder {
	for _, in := range instrs {
		b.body = append(b.body, in...)
	}
	return b
}

// WithoutEntry omits the _wrap_invoke export.
func (b *Builder) WithoutEntry() *Builder {
	b.skipEntry = true
	return b
}

// Build generates the module bytes.
func (b *Builder) Build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	wasm = appendSection(wasm, 0x01, b.typeSection())
	if len(b.imports) > 0 {
		wasm = appendSection(wasm, 0x02, b.importSection())
	}
	if !b.skipEntry {
		// one function using the last type
		wasm = appendSection(wasm, 0x03, append(uleb(1), uleb(uint32(len(b.imports)))...))
	}
	wasm = appendSection(wasm, 0x05, append([]byte{0x01, 0x00}, uleb(b.memPages)...))
	wasm = appendSection(wasm, 0x07, b.exportSection())
	if !b.skipEntry {
		wasm = appendSection(wasm, 0x0a, b.codeSection())
	}
	if len(b.data) > 0 {
		wasm = appendSection(wasm, 0x0b, b.dataSection())
	}
	return wasm
}

func (b *Builder) typeSection() []byte {
	section := uleb(uint32(len(b.imports) + 1))
	for _, imp := range b.imports {
		section = append(section, funcType(imp.params, imp.results)...)
	}
	return append(section, funcType(3, 1)...)
}

func (b *Builder) importSection() []byte {
	section := uleb(uint32(len(b.imports)))
	for i, imp := range b.imports {
		section = append(section, name("wrap")...)
		section = append(section, name(imp.name)...)
		section = append(section, 0x00)
		section = append(section, uleb(uint32(i))...)
	}
	return section
}

func (b *Builder) exportSection() []byte {
	count := uint32(1)
	if !b.skipEntry {
		count++
	}
	section := uleb(count)
	section = append(section, name("memory")...)
	section = append(section, 0x02, 0x00)
	if !b.skipEntry {
		section = append(section, name("_wrap_invoke")...)
		section = append(section, 0x00)
		section = append(section, uleb(uint32(len(b.imports)))...)
	}
	return section
}

func (b *Builder) codeSection() []byte {
	var fn []byte
	if b.locals > 0 {
		fn = append(fn, uleb(1)...)
		fn = append(fn, uleb(b.locals)...)
		fn = append(fn, 0x7f)
	} else {
		fn = append(fn, uleb(0)...)
	}
	fn = append(fn, b.body...)
	fn = append(fn, 0x0b)

	section := uleb(1)
	section = append(section, uleb(uint32(len(fn)))...)
	return append(section, fn...)
}

func (b *Builder) dataSection() []byte {
	section := uleb(uint32(len(b.data)))
	for _, seg := range b.data {
		section = append(section, 0x00)
		section = append(section, I32Const(int32(seg.offset))...)
		section = append(section, 0x0b)
		section = append(section, uleb(uint32(len(seg.bytes)))...)
		section = append(section, seg.bytes...)
	}
	return section
}

func funcType(params, results int) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(params))...)
	for range params {
		out = append(out, 0x7f)
	}
	out = append(out, uleb(uint32(results))...)
	for range results {
		out = append(out, 0x7f)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, uleb(uint32(len(section)))...)
	return append(wasm, section...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
