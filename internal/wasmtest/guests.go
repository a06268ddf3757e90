package wasmtest

// Memory layout used by the canned guests.
const (
	methodAt  = 0
	argsAt    = 1024
	scratchAt = 2048
	staticAt  = 4096
)

func (b *Builder) readArgs() *Builder {
	fn := b.Import("__wrap_invoke_args", 2, 0)
	return b.Code(I32Const(methodAt), I32Const(argsAt), Call(fn))
}

func (b *Builder) result(ptr int32, lenLocal uint32) *Builder {
	fn := b.Import("__wrap_invoke_result", 2, 0)
	return b.Code(I32Const(ptr), LocalGet(lenLocal), Call(fn))
}

func ok() []byte { return I32Const(1) }

// EchoArgs returns its args unchanged.
func EchoArgs() []byte {
	b := New()
	b.readArgs().result(argsAt, ArgsLen).Code(ok())
	return b.Build()
}

// EchoMethod returns the invoked method name.
func EchoMethod() []byte {
	b := New()
	b.readArgs().result(methodAt, MethodLen).Code(ok())
	return b.Build()
}

// EchoEnv returns the msgpack env it was invoked with.
func EchoEnv() []byte {
	b := New()
	load := b.Import("__wrap_load_env", 1, 0)
	b.Code(I32Const(scratchAt), Call(load))
	b.result(scratchAt, EnvLen).Code(ok())
	return b.Build()
}

// FailWithMethod reports an invocation error whose message is the method name.
func FailWithMethod() []byte {
	b := New()
	b.readArgs()
	fail := b.Import("__wrap_invoke_error", 2, 0)
	b.Code(I32Const(methodAt), LocalGet(MethodLen), Call(fail), I32Const(0))
	return b.Build()
}

// Abort calls __wrap_abort with msg and file at line 7, column 3.
func Abort(msg, file string) []byte {
	b := New()
	abort := b.Import("__wrap_abort", 6, 0)
	b.Data(staticAt, []byte(msg+file))
	b.Code(
		I32Const(staticAt), I32Const(int32(len(msg))),
		I32Const(staticAt+int32(len(msg))), I32Const(int32(len(file))),
		I32Const(7), I32Const(3),
		Call(abort),
		ok(),
	)
	return b.Build()
}

// Trap executes unreachable.
func Trap() []byte {
	b := New()
	b.Code(Unreachable)
	return b.Build()
}

// OutOfBounds asks the host to read past the end of memory.
func OutOfBounds() []byte {
	b := New()
	res := b.Import("__wrap_invoke_result", 2, 0)
	b.Code(I32Const(65000), I32Const(4096), Call(res), ok())
	return b.Build()
}

// NoEntry exports memory but not _wrap_invoke.
func NoEntry() []byte {
	return New().WithoutEntry().Build()
}

// Subinvoke treats its args as a URI and invokes the same method there with
// empty args. The sub-result is returned, or the sub-error reported.
func Subinvoke() []byte {
	const status uint32 = 3
	b := New().Locals(1)
	b.readArgs()
	sub := b.Import("__wrap_subinvoke", 6, 1)
	resLen := b.Import("__wrap_subinvoke_result_len", 0, 1)
	res := b.Import("__wrap_subinvoke_result", 1, 0)
	errLen := b.Import("__wrap_subinvoke_error_len", 0, 1)
	errData := b.Import("__wrap_subinvoke_error", 1, 0)
	result := b.Import("__wrap_invoke_result", 2, 0)
	fail := b.Import("__wrap_invoke_error", 2, 0)

	b.Code(
		I32Const(argsAt), LocalGet(ArgsLen),
		I32Const(methodAt), LocalGet(MethodLen),
		I32Const(0), I32Const(0),
		Call(sub), LocalSet(status),

		LocalGet(status), If,
		I32Const(scratchAt), Call(res),
		I32Const(scratchAt), Call(resLen), Call(result),
		I32Const(1), Return,
		End,

		I32Const(scratchAt), Call(errData),
		I32Const(scratchAt), Call(errLen), Call(fail),
		I32Const(0),
	)
	return b.Build()
}

// Implementations treats its args as an interface URI and returns the
// msgpack list of implementations, or empty bytes when there are none.
func Implementations() []byte {
	const found uint32 = 3
	b := New().Locals(1)
	b.readArgs()
	get := b.Import("__wrap_getImplementations", 2, 1)
	n := b.Import("__wrap_getImplementations_result_len", 0, 1)
	data := b.Import("__wrap_getImplementations_result", 1, 0)
	result := b.Import("__wrap_invoke_result", 2, 0)

	b.Code(
		I32Const(argsAt), LocalGet(ArgsLen), Call(get), LocalSet(found),
		LocalGet(found), If,
		I32Const(scratchAt), Call(data),
		I32Const(scratchAt), Call(n), Call(result),
		End,
		ok(),
	)
	return b.Build()
}

// DebugLog logs its args through __wrap_debug_log and echoes them.
func DebugLog() []byte {
	b := New()
	b.readArgs()
	log := b.Import("__wrap_debug_log", 2, 0)
	b.Code(I32Const(argsAt), LocalGet(ArgsLen), Call(log))
	b.result(argsAt, ArgsLen).Code(ok())
	return b.Build()
}
