package wrap

import (
	"context"
	"sync"

	"github.com/wippyai/wrap-client/uri"
)

// Invoker is the capability modules receive for sub-invocations and
// interface discovery. The client implements it.
type Invoker interface {
	Invoke(ctx context.Context, u uri.URI, method string, args []byte, env *Env) ([]byte, error)
	Implementations(iface uri.URI) []uri.URI
}

// Invocation is a single method call against a resolved wrapper.
type Invocation struct {
	URI    uri.URI
	Method string
	Args   []byte
	Env    Env
}

// Wrapper is an invokable module. The variants are *WasmWrapper and
// *PluginWrapper; the set is closed.
type Wrapper interface {
	Invoke(ctx context.Context, inv Invocation, invoker Invoker) ([]byte, error)
	wrapper()
}

// BytecodeModule is the engine side of a WasmWrapper. Implementations must
// be safe for concurrent Invoke calls.
type BytecodeModule interface {
	Invoke(ctx context.Context, inv Invocation, invoker Invoker) ([]byte, error)
}

// WasmWrapper wraps a bytecode module.
type WasmWrapper struct {
	module BytecodeModule
}

func NewWasmWrapper(m BytecodeModule) *WasmWrapper {
	return &WasmWrapper{module: m}
}

// Module returns the underlying bytecode module handle.
func (w *WasmWrapper) Module() BytecodeModule {
	return w.module
}

func (w *WasmWrapper) Invoke(ctx context.Context, inv Invocation, invoker Invoker) ([]byte, error) {
	return w.module.Invoke(ctx, inv, invoker)
}

func (*WasmWrapper) wrapper() {}

// PluginModule is a natively implemented module. Method bodies read the
// environment through the module's EnvHolder, not from the call.
type PluginModule interface {
	Invoke(ctx context.Context, method string, args []byte, invoker Invoker) ([]byte, error)
}

// PluginFunc adapts a function to PluginModule.
type PluginFunc func(ctx context.Context, method string, args []byte, invoker Invoker) ([]byte, error)

func (f PluginFunc) Invoke(ctx context.Context, method string, args []byte, invoker Invoker) ([]byte, error) {
	return f(ctx, method, args, invoker)
}

// PluginWrapper wraps a plugin module together with its environment slot.
// Calls on one PluginWrapper are serialized because the environment slot
// is per module, not per call. A plugin must not sub-invoke its own wrapper.
type PluginWrapper struct {
	module PluginModule
	env    EnvHolder
	mu     sync.Mutex
}

// NewPluginWrapper wraps m. If m implements EnvHolder (usually by embedding
// EnvSlot) it receives the environment directly.
func NewPluginWrapper(m PluginModule) *PluginWrapper {
	holder, ok := m.(EnvHolder)
	if !ok {
		holder = &EnvSlot{}
	}
	return &PluginWrapper{module: m, env: holder}
}

// Module returns the underlying plugin module.
func (w *PluginWrapper) Module() PluginModule {
	return w.module
}

// SetEnv replaces the module's environment from outside a call.
func (w *PluginWrapper) SetEnv(env Env) {
	w.env.SetEnv(env)
}

// Env returns the module's current environment.
func (w *PluginWrapper) Env() Env {
	return w.env.Env()
}

// EnvValue returns the serialized JSON of one key of the module's environment.
func (w *PluginWrapper) EnvValue(key string) ([]byte, bool) {
	return w.env.Env().Value(key)
}

func (w *PluginWrapper) Invoke(ctx context.Context, inv Invocation, invoker Invoker) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.env.SetEnv(inv.Env)
	return w.module.Invoke(ctx, inv.Method, inv.Args, invoker)
}

func (*PluginWrapper) wrapper() {}

// WrapperKind names the variant of w for logs and diagnostics.
func WrapperKind(w Wrapper) string {
	switch w.(type) {
	case *WasmWrapper:
		return "wasm"
	case *PluginWrapper:
		return "plugin"
	default:
		return "unknown"
	}
}
