package wasmtest

func I32Const(v int32) []byte { return append([]byte{0x41}, sleb(v)...) }
func LocalGet(i uint32) []byte { return append([]byte{0x20}, uleb(i)...) }
func LocalSet(i uint32) []byte { return append([]byte{0x21}, uleb(i)...) }
func Call(fn uint32) []byte    { return append([]byte{0x10}, uleb(fn)...) }

var (
	If          = []byte{0x04, 0x40}
	End         = []byte{0x0b}
	Return      = []byte{0x0f}
	Unreachable = []byte{0x00}
)
