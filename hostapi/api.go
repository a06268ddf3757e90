package hostapi

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wrap-client/client"
	"github.com/wippyai/wrap-client/codec"
	"github.com/wippyai/wrap-client/engine"
	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// API is a flat call surface for embedding hosts. Values cross it as
// handles, failures as sentinels: a zero Handle, a nil byte slice or false.
// The error behind the most recent failure is available from LastError.
type API struct {
	table      *table
	engine     *engine.Engine
	log        *zap.Logger
	clientOpts []client.Option
	lastErr    error
	errMu      sync.Mutex
}

// Option configures an API.
type Option func(*API)

// WithEngine enables the operations that compile bytecode.
func WithEngine(e *engine.Engine) Option {
	return func(a *API) { a.engine = e }
}

// WithLogger sets the logger for boundary failures.
func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClientOptions passes options to every client created by CreateClient.
func WithClientOptions(opts ...client.Option) Option {
	return func(a *API) { a.clientOpts = append(a.clientOpts, opts...) }
}

func New(opts ...Option) *API {
	a := &API{table: newTable(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close releases every handle. The engine, if any, is not closed.
func (a *API) Close() {
	a.table.close()
}

// LastError returns the error behind the most recent failed call on this API.
// The slot is shared by every handle and goroutine using the API. Hosts that
// call from several threads should serialize a call with its LastError read,
// or give each thread its own API.
func (a *API) LastError() error {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	return a.lastErr
}

// ClearError resets the last-error channel.
func (a *API) ClearError() {
	a.errMu.Lock()
	a.lastErr = nil
	a.errMu.Unlock()
}

func (a *API) fail(op string, err error) {
	a.log.Debug("boundary call failed", zap.String("op", op), zap.Error(err))
	a.errMu.Lock()
	a.lastErr = err
	a.errMu.Unlock()
}

// Live returns the number of outstanding handles.
func (a *API) Live() int {
	return a.table.live()
}

// Release frees a handle. Values still referenced by built clients stay alive.
func (a *API) Release(h Handle) bool {
	if _, ok := a.table.drop(h); !ok {
		a.fail("release", errors.InvalidHandle(uint32(h), "handle"))
		return false
	}
	return true
}

// KindOf reports what h refers to, or KindInvalid.
func (a *API) KindOf(h Handle) Kind {
	_, kind, err := a.table.get(h,
		KindBuilder, KindClient,
		KindWasmWrapper, KindPluginWrapper,
		KindWasmPackage, KindPluginPackage,
		KindResolver, KindStaticResolver, KindExtendableResolver)
	if err != nil {
		return KindInvalid
	}
	return kind
}

func (a *API) put(op string, kind Kind, value any) Handle {
	h, err := a.table.create(kind, value)
	if err != nil {
		a.fail(op, err)
		return 0
	}
	return h
}

// Encode converts JSON text to its msgpack form for args and envs.
func (a *API) Encode(jsonText string) []byte {
	out, err := codec.EncodeString(jsonText)
	if err != nil {
		a.fail("encode", err)
		return nil
	}
	return out
}

// CreateWasmWrapper compiles bytecode into a wrapper handle.
func (a *API) CreateWasmWrapper(ctx context.Context, wasmBytes []byte) Handle {
	if a.engine == nil {
		a.fail("create_wasm_wrapper", errors.NotInitialized(errors.PhaseBoundary, "engine"))
		return 0
	}
	w, err := a.engine.Wrapper(ctx, wasmBytes)
	if err != nil {
		a.fail("create_wasm_wrapper", err)
		return 0
	}
	return a.put("create_wasm_wrapper", KindWasmWrapper, w)
}

// CreateWasmPackage wraps bytecode in a package handle. Compilation happens
// on each load.
func (a *API) CreateWasmPackage(wasmBytes []byte) Handle {
	if a.engine == nil {
		a.fail("create_wasm_package", errors.NotInitialized(errors.PhaseBoundary, "engine"))
		return 0
	}
	return a.put("create_wasm_package", KindWasmPackage, a.engine.Package(wasmBytes))
}

// CreatePluginWrapper wraps a plugin module. The handle also addresses the
// module's environment through SetPluginEnv and GetPluginEnv.
func (a *API) CreatePluginWrapper(m wrap.PluginModule) Handle {
	if m == nil {
		a.fail("create_plugin_wrapper", errors.InvalidInput(errors.PhaseBoundary, "nil plugin module"))
		return 0
	}
	return a.put("create_plugin_wrapper", KindPluginWrapper, wrap.NewPluginWrapper(m))
}

func (a *API) CreatePluginPackage(f wrap.PluginFactory) Handle {
	if f == nil {
		a.fail("create_plugin_package", errors.InvalidInput(errors.PhaseBoundary, "nil plugin factory"))
		return 0
	}
	return a.put("create_plugin_package", KindPluginPackage, wrap.NewPluginPackage(f))
}

// SetPluginEnv replaces the environment of a plugin wrapper.
func (a *API) SetPluginEnv(w Handle, envText string) bool {
	v, _, err := a.table.get(w, KindPluginWrapper)
	if err != nil {
		a.fail("set_plugin_env", err)
		return false
	}
	env, err := wrap.ParseEnv(envText)
	if err != nil {
		a.fail("set_plugin_env", err)
		return false
	}
	v.(*wrap.PluginWrapper).SetEnv(env)
	return true
}

// GetPluginEnv returns the JSON value of key in a plugin wrapper's
// environment, or nil when the key is absent.
func (a *API) GetPluginEnv(w Handle, key string) []byte {
	v, _, err := a.table.get(w, KindPluginWrapper)
	if err != nil {
		a.fail("get_plugin_env", err)
		return nil
	}
	out, ok := v.(*wrap.PluginWrapper).EnvValue(key)
	if !ok {
		a.fail("get_plugin_env", errors.New(errors.PhaseBoundary, errors.KindNotFound).Detail("env key %q", key).Build())
		return nil
	}
	return out
}

func (a *API) parseURI(op, raw string) (uri.URI, bool) {
	u, err := uri.Parse(raw)
	if err != nil {
		a.fail(op, err)
		return uri.URI{}, false
	}
	return u, true
}
