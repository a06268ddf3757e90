package hostapi

import (
	"sync"

	"github.com/wippyai/wrap-client/errors"
)

// Handle is an opaque reference to a value owned by an API. 0 is never valid.
type Handle uint32

// Kind tags what a handle refers to.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBuilder
	KindClient
	KindWasmWrapper
	KindPluginWrapper
	KindWasmPackage
	KindPluginPackage
	KindResolver
	KindStaticResolver
	KindExtendableResolver
)

func (k Kind) String() string {
	switch k {
	case KindBuilder:
		return "builder"
	case KindClient:
		return "client"
	case KindWasmWrapper:
		return "wasm wrapper"
	case KindPluginWrapper:
		return "plugin wrapper"
	case KindWasmPackage:
		return "wasm package"
	case KindPluginPackage:
		return "plugin package"
	case KindResolver:
		return "resolver"
	case KindStaticResolver:
		return "static resolver"
	case KindExtendableResolver:
		return "extendable resolver"
	default:
		return "invalid"
	}
}

// table is an in-memory handle table with a free list.
type table struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	kind  Kind
	valid bool
}

func newTable() *table {
	return &table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// create stores a value and returns its handle.
func (t *table) create(kind Kind, value any) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.InvalidInput(errors.PhaseBoundary, "api closed")
	}

	e := entry{kind: kind, value: value, valid: true}

	if len(t.freeList) > 0 {
		handle := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = e
		return handle, nil
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries)), nil
}

// get retrieves a value whose kind is one of kinds.
func (t *table) get(handle Handle, kinds ...Kind) (any, Kind, error) {
	if handle == 0 {
		return nil, KindInvalid, errors.InvalidHandle(0, kindsString(kinds))
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return nil, KindInvalid, errors.InvalidHandle(uint32(handle), kindsString(kinds))
	}
	e := t.entries[idx]
	for _, k := range kinds {
		if e.kind == k {
			return e.value, e.kind, nil
		}
	}
	return nil, e.kind, errors.InvalidHandle(uint32(handle), kindsString(kinds))
}

// drop removes a handle and returns its value.
func (t *table) drop(handle Handle) (any, bool) {
	if handle == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return nil, false
	}

	e := &t.entries[idx]
	if !e.valid {
		return nil, false
	}

	value := e.value
	e.valid = false
	e.value = nil
	e.kind = KindInvalid
	t.freeList = append(t.freeList, handle)
	return value, true
}

// live returns the number of valid handles.
func (t *table) live() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

func (t *table) close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.entries = nil
	t.freeList = nil
}

func kindsString(kinds []Kind) string {
	switch len(kinds) {
	case 0:
		return "handle"
	case 1:
		return kinds[0].String()
	}
	s := kinds[0].String()
	for _, k := range kinds[1:] {
		s += " or " + k.String()
	}
	return s
}
