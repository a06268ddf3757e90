package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wrap-client/codec"
	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/uri"
)

var (
	i32  = api.ValueTypeI32
	none = []api.ValueType{}
)

func sig(n int) []api.ValueType {
	out := make([]api.ValueType, n)
	for i := range out {
		out[i] = i32
	}
	return out
}

// instantiateHost exports the wrap ABI. Every function reads its call state
// from the context passed to _wrap_invoke.
func instantiateHost(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	b := r.NewHostModuleBuilder(hostModule)

	define := func(name string, fn api.GoModuleFunc, params, results []api.ValueType) {
		b = b.NewFunctionBuilder().WithGoModuleFunction(fn, params, results).Export(name)
	}

	define(fnInvokeArgs, hostInvokeArgs, sig(2), none)
	define(fnInvokeResult, hostInvokeResult, sig(2), none)
	define(fnInvokeError, hostInvokeError, sig(2), none)
	define(fnAbort, hostAbort, sig(6), none)
	define(fnLoadEnv, hostLoadEnv, sig(1), none)
	define(fnSubinvoke, hostSubinvoke, sig(6), sig(1))
	define(fnSubinvokeResultLen, lenOf(func(st *callState) []byte { return st.subResult }), none, sig(1))
	define(fnSubinvokeResult, writeOf(func(st *callState) []byte { return st.subResult }), sig(1), none)
	define(fnSubinvokeErrorLen, lenOf(func(st *callState) []byte { return st.subError }), none, sig(1))
	define(fnSubinvokeError, writeOf(func(st *callState) []byte { return st.subError }), sig(1), none)
	define(fnGetImplementations, hostGetImplementations, sig(2), sig(1))
	define(fnImplementationsLen, lenOf(func(st *callState) []byte { return st.impls }), none, sig(1))
	define(fnImplementationsData, writeOf(func(st *callState) []byte { return st.impls }), sig(1), none)
	define(fnDebugLog, hostDebugLog, sig(2), none)

	return b.Instantiate(ctx)
}

func mustState(ctx context.Context) *callState {
	st := stateFrom(ctx)
	if st == nil {
		panic(errors.NotInitialized(errors.PhaseEngine, "wrap call state"))
	}
	return st
}

// read copies len bytes at ptr out of guest memory.
func read(st *callState, mod api.Module, ptr, n uint32) []byte {
	if n == 0 {
		return nil
	}
	view, ok := mod.Memory().Read(ptr, n)
	if !ok {
		st.trap = errors.New(errors.PhaseEngine, errors.KindInvalidData).
			Detail("memory read out of range: ptr=%d len=%d", ptr, n).
			Build()
		panic(st.trap)
	}
	out := make([]byte, n)
	copy(out, view)
	return out
}

func write(st *callState, mod api.Module, ptr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	if !mod.Memory().Write(ptr, data) {
		st.trap = errors.New(errors.PhaseEngine, errors.KindInvalidData).
			Detail("memory write out of range: ptr=%d len=%d", ptr, len(data)).
			Build()
		panic(st.trap)
	}
}

func hostInvokeArgs(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	write(st, mod, api.DecodeU32(stack[0]), st.method)
	write(st, mod, api.DecodeU32(stack[1]), st.args)
}

func hostInvokeResult(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	st.result = read(st, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
}

func hostInvokeError(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	st.errMsg = read(st, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	st.failed = true
}

func hostAbort(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	msg := read(st, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	file := read(st, mod, api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	st.abort = errors.Abort(string(msg), string(file), api.DecodeU32(stack[4]), api.DecodeU32(stack[5]))
	panic(st.abort)
}

func hostLoadEnv(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	write(st, mod, api.DecodeU32(stack[0]), st.env)
}

func hostSubinvoke(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	rawURI := read(st, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	method := read(st, mod, api.DecodeU32(stack[2]), api.DecodeU32(stack[3]))
	args := read(st, mod, api.DecodeU32(stack[4]), api.DecodeU32(stack[5]))

	st.subResult, st.subError = nil, nil
	stack[0] = 0

	if st.invoker == nil {
		st.subError = []byte("sub-invocation is not available")
		return
	}
	target, err := uri.Parse(string(rawURI))
	if err != nil {
		st.subError = []byte(err.Error())
		return
	}

	Logger().Debug("subinvoke",
		zap.Stringer("from", st.uri),
		zap.Stringer("to", target),
		zap.ByteString("method", method))

	out, err := st.invoker.Invoke(ctx, target, string(method), args, nil)
	if err != nil {
		st.subError = []byte(err.Error())
		return
	}
	st.subResult = out
	stack[0] = 1
}

func hostGetImplementations(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	rawURI := read(st, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))

	st.impls = nil
	stack[0] = 0

	if st.invoker == nil {
		return
	}
	iface, err := uri.Parse(string(rawURI))
	if err != nil {
		return
	}
	impls := st.invoker.Implementations(iface)
	if len(impls) == 0 {
		return
	}
	encoded, err := codec.Marshal(uri.Strings(impls))
	if err != nil {
		return
	}
	st.impls = encoded
	stack[0] = 1
}

func hostDebugLog(ctx context.Context, mod api.Module, stack []uint64) {
	st := mustState(ctx)
	msg := read(st, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1]))
	Logger().Debug("guest", zap.Stringer("uri", st.uri), zap.ByteString("msg", msg))
}

func lenOf(get func(*callState) []byte) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = api.EncodeU32(uint32(len(get(mustState(ctx)))))
	}
}

func writeOf(get func(*callState) []byte) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		st := mustState(ctx)
		write(st, mod, api.DecodeU32(stack[0]), get(st))
	}
}
